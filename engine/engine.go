// Package engine executes SQL against in-memory tables and on-disk files
// through one embedded SQLite connection. In-memory tables are served
// zero-copy through a virtual-table bridge; delimited files are scanned
// natively without materializing; parquet files materialize through arrow.
//
// Building requires the sqlite_vtable build tag, which enables virtual-table
// support in the SQLite binding.
package engine

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/tabql/tabql/domain/model"
)

const (
	// BridgeRelation is the relation name queries use to reference a
	// bridged in-memory table.
	BridgeRelation = "tabql_bridge"
	// ScanRelation is the relation name queries use to reference a
	// natively scanned file.
	ScanRelation = "tabql_scan_df"

	scanModuleName = "tabql_scan"
)

// Source is the input of one query: exactly one of Table or Path is set.
type Source struct {
	Table *model.Table
	Path  string
}

// TableSource wraps an in-memory table as a query source.
func TableSource(tbl *model.Table) Source { return Source{Table: tbl} }

// FileSource wraps a file path as a query source.
func FileSource(path string) Source { return Source{Path: path} }

// Relation returns the relation name the query text must reference for this
// source. Callers substitute their placeholder with it before Execute.
func (s Source) Relation() string {
	if s.Table != nil || IsParquet(s.Path) {
		return BridgeRelation
	}
	return ScanRelation
}

// IsParquet reports whether path names a parquet file.
func IsParquet(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".parquet")
}

// Engine is a query executor bound to one SQLite connection. One bridged
// query runs at a time per engine; open several engines for concurrency.
type Engine struct {
	mu     sync.Mutex
	conn   *sqlite3.SQLiteConn
	slot   *tableSlot
	closed bool
}

// New opens an in-memory SQLite connection and registers the bridge and
// file-scan modules on it.
func New() (*Engine, error) {
	d := &sqlite3.SQLiteDriver{}
	c, err := d.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite connection: %w", err)
	}
	conn, ok := c.(*sqlite3.SQLiteConn)
	if !ok {
		c.Close()
		return nil, errors.New("engine: unexpected driver connection type")
	}

	e := &Engine{conn: conn, slot: &tableSlot{}}
	if err := conn.CreateModule(BridgeRelation, &bridgeModule{slot: e.slot}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to register bridge module: %w", err)
	}
	if err := conn.CreateModule(scanModuleName, &scanModule{}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to register scan module: %w", err)
	}
	return e, nil
}

// Close releases the underlying connection.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	return e.conn.Close()
}

// Execute runs query against src and returns the fully drained result. The
// query text must already reference src.Relation(); no rewriting happens
// here.
func (e *Engine) Execute(ctx context.Context, src Source, query string) (*model.Table, error) {
	if src.Table != nil {
		return e.QueryTable(ctx, src.Table, query)
	}
	return e.QueryFile(ctx, src.Path, query)
}

// QueryTable runs query against tbl through the bridge. The slot is held for
// the whole call and released on every path.
func (e *Engine) QueryTable(ctx context.Context, tbl *model.Table, query string) (*model.Table, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrClosed
	}

	release, err := e.slot.acquire(tbl)
	if err != nil {
		return nil, err
	}
	defer release()

	return e.run(ctx, query)
}

// QueryFile runs query against a file. Parquet materializes through arrow
// and runs bridged; everything else mounts as a native scan under
// ScanRelation for the duration of the query.
func (e *Engine) QueryFile(ctx context.Context, path, query string) (*model.Table, error) {
	if IsParquet(path) {
		tbl, err := ReadParquet(ctx, path)
		if err != nil {
			return nil, err
		}
		return e.QueryTable(ctx, tbl, query)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrClosed
	}

	create := fmt.Sprintf("CREATE VIRTUAL TABLE temp.%s USING %s('%s')",
		quoteIdent(ScanRelation), scanModuleName, strings.ReplaceAll(path, "'", "''"))
	if _, err := e.conn.ExecContext(ctx, create, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuery, err)
	}
	defer func() {
		drop := fmt.Sprintf("DROP TABLE temp.%s", quoteIdent(ScanRelation))
		_, _ = e.conn.ExecContext(context.Background(), drop, nil)
	}()

	return e.run(ctx, query)
}

// run executes query on the connection and drains the result set into a
// fresh table.
func (e *Engine) run(ctx context.Context, query string) (*model.Table, error) {
	rows, err := e.conn.QueryContext(ctx, query, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuery, err)
	}
	defer rows.Close()

	return drainRows(rows)
}

// drainRows materializes a driver-level result set. Column types come from
// declared types where SQLite reports them, falling back to the first
// non-null value's kind for computed columns.
func drainRows(rows driver.Rows) (*model.Table, error) {
	names := rows.Columns()
	cols := make([]model.Column, len(names))
	for i, name := range names {
		cols[i] = model.Column{Name: name, Type: model.TypeStr}
	}

	declared := make([]bool, len(names))
	if dt, ok := rows.(interface{ DeclTypes() []string }); ok {
		for i, decl := range dt.DeclTypes() {
			if i >= len(cols) {
				break
			}
			switch strings.ToUpper(decl) {
			case "INTEGER", "INT", "BIGINT":
				cols[i].Type = model.TypeInt
				declared[i] = true
			case "REAL", "FLOAT", "DOUBLE":
				cols[i].Type = model.TypeFloat
				declared[i] = true
			case "TEXT":
				cols[i].Type = model.TypeStr
				declared[i] = true
			}
		}
	}

	dest := make([]driver.Value, len(names))
	for {
		if err := rows.Next(dest); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("%w: %v", ErrQuery, err)
		}
		for i, v := range dest {
			cell := cellOf(v)
			if !declared[i] && !cell.IsNull() {
				cols[i].Type = typeOfCell(cell)
				declared[i] = true
			}
			cols[i].Cells = append(cols[i].Cells, cell)
		}
	}

	return model.NewTable(cols...)
}

// cellOf converts a driver value into a cell.
func cellOf(v driver.Value) model.Cell {
	switch x := v.(type) {
	case nil:
		return model.Null()
	case int64:
		return model.Int(x)
	case float64:
		return model.Float(x)
	case bool:
		return model.Bool(x)
	case []byte:
		return model.Str(string(x))
	case string:
		return model.Str(x)
	case time.Time:
		return model.DateTime(x.Format("2006-01-02 15:04:05"))
	default:
		return model.Str(fmt.Sprint(x))
	}
}

func typeOfCell(c model.Cell) model.ColType {
	switch c.Kind {
	case model.KindInt:
		return model.TypeInt
	case model.KindFloat:
		return model.TypeFloat
	case model.KindBool:
		return model.TypeBool
	case model.KindDate:
		return model.TypeDate
	case model.KindTime:
		return model.TypeTime
	case model.KindDateTime:
		return model.TypeDateTime
	default:
		return model.TypeStr
	}
}
