package backend

import (
	"fmt"
	"strconv"
	"strings"
)

// Scheme classifies a source identifier.
type Scheme int

const (
	// SchemeFile is a bare file path.
	SchemeFile Scheme = iota
	// SchemeMemory is memory:<integer-id>.
	SchemeMemory
	// SchemeSource is source:<kind>[:<args>].
	SchemeSource
)

// SourceID is a parsed source identifier.
type SourceID struct {
	Scheme Scheme
	// Path is set for SchemeFile.
	Path string
	// MemoryID is set for SchemeMemory.
	MemoryID int64
	// Kind and Args are set for SchemeSource.
	Kind string
	Args string
}

// ParseSourceID splits a source identifier by its scheme prefix. Anything
// without a recognized prefix is a file path.
func ParseSourceID(s string) (SourceID, error) {
	switch {
	case strings.HasPrefix(s, "memory:"):
		id, err := strconv.ParseInt(strings.TrimPrefix(s, "memory:"), 10, 64)
		if err != nil {
			return SourceID{}, fmt.Errorf("%w: bad memory id in %q", ErrUnknownSource, s)
		}
		return SourceID{Scheme: SchemeMemory, MemoryID: id}, nil
	case strings.HasPrefix(s, "source:"):
		rest := strings.TrimPrefix(s, "source:")
		kind, args, _ := strings.Cut(rest, ":")
		if kind == "" {
			return SourceID{}, fmt.Errorf("%w: empty source kind in %q", ErrUnknownSource, s)
		}
		return SourceID{Scheme: SchemeSource, Kind: kind, Args: args}, nil
	case s == "":
		return SourceID{}, fmt.Errorf("%w: empty source identifier", ErrUnknownSource)
	default:
		return SourceID{Scheme: SchemeFile, Path: s}, nil
	}
}
