package engine

import (
	"errors"
	"fmt"
	"io"
	"strings"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/tabql/tabql/domain/model"
	"github.com/tabql/tabql/stream"
)

// scanSampleRows bounds the sample used to fix a scanned file's schema.
const scanSampleRows = 1000

// scanModule scans a delimited file (optionally compressed) as a virtual
// table without materializing it. The schema is fixed from a bounded sample
// at create time; each Filter call re-opens the file and streams rows one at
// a time, so files larger than memory stay queryable.
type scanModule struct{}

var _ sqlite3.Module = (*scanModule)(nil)

func (m *scanModule) Create(c *sqlite3.SQLiteConn, args []string) (sqlite3.VTab, error) {
	return m.Connect(c, args)
}

func (m *scanModule) Connect(c *sqlite3.SQLiteConn, args []string) (sqlite3.VTab, error) {
	// args: module name, database name, table name, then module arguments.
	if len(args) < 4 {
		return nil, errors.New("engine: scan module requires a file path argument")
	}
	path := strings.Trim(strings.TrimSpace(args[3]), `'"`)

	schema, err := stream.Sniff(path, scanSampleRows)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString("CREATE TABLE x (")
	for i, name := range schema.Names {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s %s", quoteIdent(name), schema.Types[i].SQLType())
	}
	b.WriteString(")")
	if err := c.DeclareVTab(b.String()); err != nil {
		return nil, fmt.Errorf("failed to declare scan schema: %w", err)
	}

	return &scanTable{path: path, schema: schema}, nil
}

func (m *scanModule) DestroyModule() {}

type scanTable struct {
	path   string
	schema *stream.Schema
}

// BestIndex declares a sequential scan with a high constant cost so joins
// prefer driving from bridged tables.
func (t *scanTable) BestIndex(csts []sqlite3.InfoConstraint, _ []sqlite3.InfoOrderBy) (*sqlite3.IndexResult, error) {
	return &sqlite3.IndexResult{
		Used:          make([]bool, len(csts)),
		IdxNum:        0,
		IdxStr:        "scan",
		EstimatedCost: 1e6,
		EstimatedRows: 1e6,
	}, nil
}

func (t *scanTable) Open() (sqlite3.VTabCursor, error) {
	return &scanCursor{tbl: t}, nil
}

func (t *scanTable) Disconnect() error { return nil }
func (t *scanTable) Destroy() error    { return nil }

// scanCursor streams one row at a time from the file. Filter rewinds by
// re-opening, which keeps the cursor restartable across query plans.
type scanCursor struct {
	tbl     *scanTable
	records *stream.Records
	row     []string
	rowid   int64
	eof     bool
}

func (c *scanCursor) Filter(_ int, _ string, _ []any) error {
	if c.records != nil {
		c.records.Close()
		c.records = nil
	}
	rec, err := stream.OpenRecords(c.tbl.path, c.tbl.schema.Delimiter)
	if err != nil {
		return err
	}
	c.records = rec
	c.rowid = -1
	c.eof = false
	return c.Next()
}

func (c *scanCursor) Next() error {
	row, err := c.records.Next()
	if errors.Is(err, io.EOF) {
		c.eof = true
		c.row = nil
		return nil
	}
	if err != nil {
		return err
	}
	c.row = row
	c.rowid++
	return nil
}

func (c *scanCursor) EOF() bool { return c.eof }

func (c *scanCursor) Column(ctx *sqlite3.SQLiteContext, col int) error {
	var raw string
	if col < len(c.row) {
		raw = c.row[col]
	}
	cell := c.tbl.schema.Parse(col, raw)
	switch cell.Kind {
	case model.KindNull:
		ctx.ResultNull()
	case model.KindBool:
		ctx.ResultBool(cell.Bool)
	case model.KindInt:
		ctx.ResultInt64(cell.Int)
	case model.KindFloat:
		ctx.ResultDouble(cell.Float)
	default:
		ctx.ResultText(cell.Str)
	}
	return nil
}

func (c *scanCursor) Rowid() (int64, error) { return c.rowid, nil }

func (c *scanCursor) Close() error {
	if c.records != nil {
		c.records.Close()
		c.records = nil
	}
	return nil
}
