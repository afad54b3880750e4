// Package tabql is the data-access core of a terminal tabular-data explorer.
// It executes SQL against in-memory tables, delimited files (optionally
// compressed) and parquet files through a single facade, with cached results
// and bounded-memory streaming ingestion for files larger than memory.
//
// Query text references its source through the reserved relation name "df";
// the routed backend substitutes the real relation before execution:
//
//	db, _ := tabql.Open()
//	defer db.Close()
//	src := db.RegisterTable(tbl)
//	res, _ := db.Query(src, "SELECT b, COUNT(*) AS Cnt FROM df GROUP BY b")
//
// Building requires the sqlite_vtable build tag.
package tabql

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tabql/tabql/backend"
	"github.com/tabql/tabql/domain/model"
	"github.com/tabql/tabql/engine"
	"github.com/tabql/tabql/stream"
)

// Placeholder is the reserved relation name query text uses to reference its
// source.
const Placeholder = engine.Placeholder

// DB wires the query engine, the built-in backends and their caches behind
// one facade. Safe for concurrent use; queries serialize on the underlying
// connection.
type DB struct {
	eng *engine.Engine
	reg *backend.Registry
	mem *backend.MemoryTables
	log *zap.Logger
}

// Open builds a DB with the built-in sqlite and file backends registered.
func Open() (*DB, error) {
	log := backend.NewDebugLogger()

	eng, err := engine.New()
	if err != nil {
		return nil, err
	}

	mem := backend.NewMemoryTables()
	sources := backend.NewSourceSet(backend.OpenDefaultDiskCache(), log)

	reg := backend.NewRegistry(log)
	if err := reg.Register(
		backend.NewSQLiteBackend(eng, mem, sources, log),
		backend.SchemeMemory, backend.SchemeSource,
	); err != nil {
		eng.Close()
		return nil, err
	}
	fileBE, err := backend.NewFileBackend(eng, log)
	if err != nil {
		eng.Close()
		return nil, err
	}
	if err := reg.Register(fileBE, backend.SchemeFile); err != nil {
		eng.Close()
		return nil, err
	}

	return &DB{eng: eng, reg: reg, mem: mem, log: log}, nil
}

// Close releases the engine connection.
func (d *DB) Close() error {
	_ = d.log.Sync()
	return d.eng.Close()
}

// Query routes sourceID to its backend and runs queryText against it. The
// query references the source as the Placeholder relation.
func (d *DB) Query(sourceID, queryText string) (*model.Table, error) {
	return d.reg.Query(sourceID, queryText)
}

// RegisterTable makes tbl queryable and returns its source identifier.
func (d *DB) RegisterTable(tbl *model.Table) string {
	return fmt.Sprintf("memory:%d", d.mem.Register(tbl))
}

// UnregisterTable drops a previously registered table. Safe on identifiers
// that are not memory registrations.
func (d *DB) UnregisterTable(sourceID string) {
	id, err := backend.ParseSourceID(sourceID)
	if err != nil || id.Scheme != backend.SchemeMemory {
		return
	}
	d.mem.Unregister(id.MemoryID)
}

// Load streams a compressed delimited file. The returned result carries the
// first chunk synchronously; see stream.Result for the partial/complete
// contract.
func (d *DB) Load(ctx context.Context, path string, opts stream.Options) (*stream.Result, error) {
	return stream.Load(ctx, path, opts)
}

// Save routes sourceID to its backend, runs queryText and writes the result
// to destPath as parquet.
func (d *DB) Save(sourceID, queryText, destPath string) error {
	return d.reg.Save(sourceID, queryText, destPath)
}

// SaveFileParquet converts a whole delimited file to parquet in the
// streaming, one-chunk-resident manner, reporting progress on the returned
// channel.
func (d *DB) SaveFileParquet(ctx context.Context, srcPath, destPath string, opts stream.Options) (<-chan stream.Progress, error) {
	return stream.SaveParquet(ctx, srcPath, destPath, opts)
}

// RegisterBackend adds a statically linked backend for the given schemes.
func (d *DB) RegisterBackend(v *backend.Vtable, schemes ...backend.Scheme) error {
	return d.reg.Register(v, schemes...)
}

// LoadBackend loads a backend shared object from the search dirs and
// registers it for the given schemes.
func (d *DB) LoadBackend(name string, dirs []string, schemes ...backend.Scheme) error {
	v, err := backend.LoadFromDirs(name, dirs)
	if err != nil {
		return err
	}
	return d.reg.Register(v, schemes...)
}
