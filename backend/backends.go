package backend

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tabql/tabql/cache"
	"github.com/tabql/tabql/domain/model"
	"github.com/tabql/tabql/engine"
	"github.com/tabql/tabql/stream"
)

// fileCacheSize bounds the file backend's result cache.
const fileCacheSize = 100

// newVtable assembles an operation table whose accessors read cache-owned
// results through an arena. Failed queries log and return NullHandle; no
// error and no panic ever crosses the protocol surface.
func newVtable(
	name string,
	log *zap.Logger,
	rc cache.Cache[*model.Table],
	run func(query, sourceID string) (*model.Table, error),
	save func(query, sourceID, destPath string) error,
) *Vtable {
	arena := newHandleArena()

	return &Vtable{
		Version: ProtocolVersion,
		Name:    name,
		Query: func(query, sourceID string) (h Handle) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("backend query panicked",
						zap.String("backend", name), zap.Any("panic", r))
					h = NullHandle
				}
			}()
			key := sourceID + "\x00" + query
			tbl, err := rc.GetOrCompute(key, func() (*model.Table, error) {
				return run(query, sourceID)
			})
			if err != nil {
				log.Debug("backend query failed",
					zap.String("backend", name),
					zap.String("source", sourceID),
					zap.Error(err))
				return NullHandle
			}
			return arena.put(tbl)
		},
		ResultFree: func(h Handle) { arena.free(h) },
		Rows: func(h Handle) int {
			if tbl := arena.get(h); tbl != nil {
				return tbl.Rows()
			}
			return 0
		},
		Cols: func(h Handle) int {
			if tbl := arena.get(h); tbl != nil {
				return tbl.Cols()
			}
			return 0
		},
		ColName: func(h Handle, i int) string {
			if tbl := arena.get(h); tbl != nil && i < tbl.Cols() {
				return tbl.ColName(i)
			}
			return ""
		},
		ColKind: func(h Handle, i int) model.ColType {
			if tbl := arena.get(h); tbl != nil && i < tbl.Cols() {
				return tbl.ColType(i)
			}
			return model.TypeStr
		},
		Cell: func(h Handle, row, col int) model.Cell {
			tbl := arena.get(h)
			if tbl == nil || row >= tbl.Rows() || col >= tbl.Cols() {
				return model.Null()
			}
			return tbl.Cell(row, col)
		},
		Save: func(query, sourceID, destPath string) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("backend save panicked",
						zap.String("backend", name), zap.Any("panic", r))
					err = fmt.Errorf("backend %s: save failed", name)
				}
			}()
			return save(query, sourceID, destPath)
		},
	}
}

// NewSQLiteBackend serves memory: and source: identifiers through the
// bridge. Interactive use re-runs the latest query, so a single result slot
// is enough.
func NewSQLiteBackend(eng *engine.Engine, mem *MemoryTables, sources *SourceSet, log *zap.Logger) *Vtable {
	if log == nil {
		log = zap.NewNop()
	}

	resolve := func(sourceID string) (*model.Table, error) {
		id, err := ParseSourceID(sourceID)
		if err != nil {
			return nil, err
		}
		switch id.Scheme {
		case SchemeMemory:
			tbl, ok := mem.Get(id.MemoryID)
			if !ok {
				return nil, fmt.Errorf("%w: memory:%d", ErrUnknownSource, id.MemoryID)
			}
			return tbl, nil
		case SchemeSource:
			return sources.Table(id.Kind, id.Args)
		default:
			return nil, fmt.Errorf("%w: %q is not a memory or source identifier", ErrUnknownSource, sourceID)
		}
	}

	run := func(query, sourceID string) (*model.Table, error) {
		tbl, err := resolve(sourceID)
		if err != nil {
			return nil, err
		}
		sql := engine.Substitute(query, engine.BridgeRelation)
		return eng.QueryTable(context.Background(), tbl, sql)
	}

	save := func(query, sourceID, destPath string) error {
		tbl, err := run(query, sourceID)
		if err != nil {
			return err
		}
		return stream.WriteTableParquet(destPath, tbl)
	}

	// A cached result may reference a table that Unregister just removed;
	// dropping the slot makes the next identical query fail loudly instead
	// of serving it stale.
	rc := cache.NewSingleSlot[*model.Table]()
	mem.OnUnregister(rc.Invalidate)

	return newVtable("sqlite", log, rc, run, save)
}

// NewFileBackend serves bare file paths through native scanning (delimited
// files) or arrow materialization (parquet), with a bounded LRU of recent
// results.
func NewFileBackend(eng *engine.Engine, log *zap.Logger) (*Vtable, error) {
	if log == nil {
		log = zap.NewNop()
	}
	rc, err := cache.NewLRU[*model.Table](fileCacheSize)
	if err != nil {
		return nil, err
	}

	run := func(query, sourceID string) (*model.Table, error) {
		id, err := ParseSourceID(sourceID)
		if err != nil {
			return nil, err
		}
		if id.Scheme != SchemeFile {
			return nil, fmt.Errorf("%w: %q is not a file path", ErrUnknownSource, sourceID)
		}
		src := engine.FileSource(id.Path)
		sql := engine.Substitute(query, src.Relation())
		return eng.Execute(context.Background(), src, sql)
	}

	save := func(query, sourceID, destPath string) error {
		tbl, err := run(query, sourceID)
		if err != nil {
			return err
		}
		return stream.WriteTableParquet(destPath, tbl)
	}

	return newVtable("file", log, rc, run, save), nil
}
