package backend

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tabql/tabql/cache"
	"github.com/tabql/tabql/domain/model"
)

// Generator produces an introspection table on demand.
type Generator func(args string) (*model.Table, error)

// Per-kind time-to-live. Fast-changing sources get short lifetimes.
var sourceTTLs = map[string]time.Duration{
	"ls":       10 * time.Second,
	"lr":       30 * time.Second,
	"ps":       5 * time.Second,
	"mounts":   60 * time.Second,
	"env":      300 * time.Second,
	"commands": 600 * time.Second,
}

// defaultSourceTTL applies to kinds without an explicit lifetime.
const defaultSourceTTL = 5 * time.Second

// lrWalkLimit caps recursive listings.
const lrWalkLimit = 100000

// SourceSet resolves source:<kind>[:<args>] identifiers through registered
// generators, memoizing results in a TTL cache. Slow-changing single-line
// values additionally persist through the on-disk cache.
type SourceSet struct {
	gens map[string]Generator
	ttl  *cache.TTL[*model.Table]
	disk *DiskCache
	log  *zap.Logger
}

// NewSourceSet returns a set with the built-in generators registered.
func NewSourceSet(disk *DiskCache, log *zap.Logger) *SourceSet {
	if log == nil {
		log = zap.NewNop()
	}
	s := &SourceSet{
		gens: make(map[string]Generator),
		ttl:  cache.NewTTL[*model.Table](),
		disk: disk,
		log:  log,
	}
	s.Register("env", envSource)
	s.Register("ls", lsSource)
	s.Register("lr", lrSource)
	s.Register("ps", psSource)
	s.Register("mounts", mountsSource)
	s.Register("commands", s.commandsSource)
	return s
}

// Register adds or replaces a generator for kind.
func (s *SourceSet) Register(kind string, gen Generator) {
	s.gens[kind] = gen
}

// Table resolves kind and args to a table, serving repeated requests within
// the kind's TTL from cache.
func (s *SourceSet) Table(kind, args string) (*model.Table, error) {
	gen, ok := s.gens[kind]
	if !ok {
		return nil, fmt.Errorf("%w: source kind %q", ErrUnknownSource, kind)
	}
	ttl, ok := sourceTTLs[kind]
	if !ok {
		ttl = defaultSourceTTL
	}
	return s.ttl.GetOrCompute(kind+":"+args, ttl, func() (*model.Table, error) {
		start := time.Now()
		tbl, err := gen(args)
		if err != nil {
			s.log.Debug("source generation failed",
				zap.String("kind", kind), zap.String("args", args), zap.Error(err))
			return nil, err
		}
		s.log.Debug("source generated",
			zap.String("kind", kind), zap.String("args", args),
			zap.Int("rows", tbl.Rows()), zap.Duration("took", time.Since(start)))
		return tbl, nil
	})
}

// envSource lists the process environment.
func envSource(_ string) (*model.Table, error) {
	environ := os.Environ()
	sort.Strings(environ)

	names := make([]model.Cell, 0, len(environ))
	values := make([]model.Cell, 0, len(environ))
	for _, kv := range environ {
		k, v, _ := strings.Cut(kv, "=")
		names = append(names, model.Str(k))
		values = append(values, model.Str(v))
	}
	return model.NewTable(
		model.Column{Name: "name", Type: model.TypeStr, Cells: names},
		model.Column{Name: "value", Type: model.TypeStr, Cells: values},
	)
}

// lsSource lists one directory, args naming it (default ".").
func lsSource(args string) (*model.Table, error) {
	dir := args
	if dir == "" {
		dir = "."
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var name, size, isDir, modified []model.Cell
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		name = append(name, model.Str(e.Name()))
		size = append(size, model.Int(info.Size()))
		isDir = append(isDir, model.Bool(e.IsDir()))
		modified = append(modified, model.DateTime(info.ModTime().Format("2006-01-02 15:04:05")))
	}
	return model.NewTable(
		model.Column{Name: "name", Type: model.TypeStr, Cells: name},
		model.Column{Name: "size", Type: model.TypeInt, Cells: size},
		model.Column{Name: "is_dir", Type: model.TypeBool, Cells: isDir},
		model.Column{Name: "modified", Type: model.TypeDateTime, Cells: modified},
	)
}

// lrSource lists a directory tree recursively, bounded by lrWalkLimit.
func lrSource(args string) (*model.Table, error) {
	root := args
	if root == "" {
		root = "."
	}

	var path, size, modified []model.Cell
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees are skipped, not fatal.
			return nil
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		path = append(path, model.Str(p))
		size = append(size, model.Int(info.Size()))
		modified = append(modified, model.DateTime(info.ModTime().Format("2006-01-02 15:04:05")))
		if len(path) >= lrWalkLimit {
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	return model.NewTable(
		model.Column{Name: "path", Type: model.TypeStr, Cells: path},
		model.Column{Name: "size", Type: model.TypeInt, Cells: size},
		model.Column{Name: "modified", Type: model.TypeDateTime, Cells: modified},
	)
}

// psSource lists processes from /proc. On systems without /proc it returns
// an empty table rather than failing.
func psSource(_ string) (*model.Table, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return emptyPS()
	}

	var pid, comm, state, rss []model.Cell
	for _, e := range entries {
		n, err := strconv.ParseInt(e.Name(), 10, 64)
		if err != nil {
			continue
		}
		data, err := os.ReadFile(filepath.Join("/proc", e.Name(), "stat"))
		if err != nil {
			continue
		}
		c, st, pages, ok := parseProcStat(string(data))
		if !ok {
			continue
		}
		pid = append(pid, model.Int(n))
		comm = append(comm, model.Str(c))
		state = append(state, model.Str(st))
		rss = append(rss, model.Int(pages*int64(os.Getpagesize())))
	}
	return model.NewTable(
		model.Column{Name: "pid", Type: model.TypeInt, Cells: pid},
		model.Column{Name: "comm", Type: model.TypeStr, Cells: comm},
		model.Column{Name: "state", Type: model.TypeStr, Cells: state},
		model.Column{Name: "rss", Type: model.TypeInt, Cells: rss},
	)
}

func emptyPS() (*model.Table, error) {
	return model.NewTable(
		model.Column{Name: "pid", Type: model.TypeInt},
		model.Column{Name: "comm", Type: model.TypeStr},
		model.Column{Name: "state", Type: model.TypeStr},
		model.Column{Name: "rss", Type: model.TypeInt},
	)
}

// parseProcStat extracts comm, state and rss from a /proc/<pid>/stat line.
// The comm field is parenthesized and may contain spaces.
func parseProcStat(line string) (comm, state string, rssPages int64, ok bool) {
	start := strings.IndexByte(line, '(')
	end := strings.LastIndexByte(line, ')')
	if start < 0 || end < start {
		return "", "", 0, false
	}
	comm = line[start+1 : end]
	fields := strings.Fields(line[end+1:])
	// fields[0] is state; rss is the 24th stat field, index 21 after comm.
	if len(fields) < 22 {
		return "", "", 0, false
	}
	state = fields[0]
	pages, err := strconv.ParseInt(fields[21], 10, 64)
	if err != nil {
		return "", "", 0, false
	}
	return comm, state, pages, true
}

// mountsSource lists mounted filesystems from /proc/mounts.
func mountsSource(_ string) (*model.Table, error) {
	f, err := os.Open("/proc/mounts")
	if err != nil {
		return model.NewTable(
			model.Column{Name: "device", Type: model.TypeStr},
			model.Column{Name: "mountpoint", Type: model.TypeStr},
			model.Column{Name: "fstype", Type: model.TypeStr},
			model.Column{Name: "options", Type: model.TypeStr},
		)
	}
	defer f.Close()

	var device, mountpoint, fstype, options []model.Cell
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 4 {
			continue
		}
		device = append(device, model.Str(fields[0]))
		mountpoint = append(mountpoint, model.Str(fields[1]))
		fstype = append(fstype, model.Str(fields[2]))
		options = append(options, model.Str(fields[3]))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read /proc/mounts: %w", err)
	}
	return model.NewTable(
		model.Column{Name: "device", Type: model.TypeStr, Cells: device},
		model.Column{Name: "mountpoint", Type: model.TypeStr, Cells: mountpoint},
		model.Column{Name: "fstype", Type: model.TypeStr, Cells: fstype},
		model.Column{Name: "options", Type: model.TypeStr, Cells: options},
	)
}

// commandsSource lists executables reachable on PATH. The name list is
// slow-changing, so it round-trips through the on-disk cache.
func (s *SourceSet) commandsSource(_ string) (*model.Table, error) {
	ttl := sourceTTLs["commands"]
	if v, ok := s.disk.Get("commands", ttl); ok {
		return commandsTable(strings.Fields(v))
	}

	seen := make(map[string]struct{})
	for _, dir := range filepath.SplitList(os.Getenv("PATH")) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			info, err := e.Info()
			if err != nil || info.Mode()&0o111 == 0 {
				continue
			}
			seen[e.Name()] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)

	if err := s.disk.Put("commands", strings.Join(names, " ")); err != nil {
		s.log.Debug("disk cache write failed", zap.Error(err))
	}
	return commandsTable(names)
}

func commandsTable(names []string) (*model.Table, error) {
	cells := make([]model.Cell, 0, len(names))
	for _, n := range names {
		cells = append(cells, model.Str(n))
	}
	return model.NewTable(model.Column{Name: "name", Type: model.TypeStr, Cells: cells})
}
