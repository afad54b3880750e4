package stream

import (
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Compression identifies how a file on disk is compressed.
type Compression int

const (
	// CompressionNone means the file is not compressed.
	CompressionNone Compression = iota
	// CompressionGZ is gzip.
	CompressionGZ
	// CompressionBZ2 is bzip2.
	CompressionBZ2
	// CompressionXZ is xz.
	CompressionXZ
	// CompressionZSTD is zstandard.
	CompressionZSTD
)

// DetectCompression returns the compression type implied by the path's
// extension.
func DetectCompression(path string) Compression {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		return CompressionGZ
	case ".bz2":
		return CompressionBZ2
	case ".xz":
		return CompressionXZ
	case ".zst":
		return CompressionZSTD
	default:
		return CompressionNone
	}
}

// BaseName returns the path with any compression extension stripped, so
// "data.csv.gz" and "data.csv" both report "data.csv".
func BaseName(path string) string {
	if DetectCompression(path) != CompressionNone {
		return strings.TrimSuffix(path, filepath.Ext(path))
	}
	return path
}

// newDecompressor wraps r with the decompression reader for c. The returned
// closer releases decoder resources; it never closes the underlying reader.
func newDecompressor(r io.Reader, c Compression) (io.Reader, func() error, error) {
	switch c {
	case CompressionNone:
		return r, func() error { return nil }, nil
	case CompressionGZ:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		return gz, gz.Close, nil
	case CompressionBZ2:
		return bzip2.NewReader(r), func() error { return nil }, nil
	case CompressionXZ:
		xzr, err := xz.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create xz reader: %w", err)
		}
		return xzr, func() error { return nil }, nil
	case CompressionZSTD:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create zstd reader: %w", err)
		}
		return dec, func() error {
			dec.Close()
			return nil
		}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported compression type: %v", c)
	}
}
