package engine

import (
	"fmt"
	"strings"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/tabql/tabql/domain/model"
)

// bridgeModule exposes the table in the connection's slot as an eponymous
// virtual table. Query planning and row iteration read the slot directly, so
// no row is ever copied into the engine's own storage.
type bridgeModule struct {
	slot *tableSlot
}

var _ sqlite3.EponymousOnlyModule = (*bridgeModule)(nil)

func (m *bridgeModule) EponymousOnlyModule() {}

func (m *bridgeModule) Create(c *sqlite3.SQLiteConn, args []string) (sqlite3.VTab, error) {
	return m.Connect(c, args)
}

// Connect declares the bridged relation's schema from the slot's table. The
// statement referencing the bridge must be prepared while the slot is held.
func (m *bridgeModule) Connect(c *sqlite3.SQLiteConn, _ []string) (sqlite3.VTab, error) {
	tbl, err := m.slot.current()
	if err != nil {
		return nil, err
	}
	if err := c.DeclareVTab(declareSchema(tbl)); err != nil {
		return nil, fmt.Errorf("failed to declare bridge schema: %w", err)
	}
	return &bridgeTable{slot: m.slot}, nil
}

func (m *bridgeModule) DestroyModule() {}

// declareSchema renders the CREATE TABLE statement describing tbl's columns.
func declareSchema(tbl *model.Table) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE x (")
	for i := range tbl.Cols() {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s %s", quoteIdent(tbl.ColName(i)), tbl.ColType(i).SQLType())
	}
	b.WriteString(")")
	return b.String()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

type bridgeTable struct {
	slot *tableSlot
}

// BestIndex reports the slot table's row count so the planner can order
// joins sensibly. No index support; every plan is a full scan.
func (t *bridgeTable) BestIndex(csts []sqlite3.InfoConstraint, _ []sqlite3.InfoOrderBy) (*sqlite3.IndexResult, error) {
	tbl, err := t.slot.current()
	if err != nil {
		return nil, err
	}
	rows := float64(tbl.Rows())
	return &sqlite3.IndexResult{
		Used:          make([]bool, len(csts)),
		IdxNum:        0,
		IdxStr:        "fullscan",
		EstimatedCost: rows,
		EstimatedRows: rows,
	}, nil
}

func (t *bridgeTable) Open() (sqlite3.VTabCursor, error) {
	return &bridgeCursor{slot: t.slot}, nil
}

func (t *bridgeTable) Disconnect() error { return nil }
func (t *bridgeTable) Destroy() error    { return nil }

// bridgeCursor walks the slot table by row index. It holds no copy of the
// table; every callback consults the slot so a missing table fails loudly.
type bridgeCursor struct {
	slot *tableSlot
	row  int
}

func (c *bridgeCursor) Filter(_ int, _ string, _ []any) error {
	if _, err := c.slot.current(); err != nil {
		return err
	}
	c.row = 0
	return nil
}

func (c *bridgeCursor) Next() error {
	c.row++
	return nil
}

func (c *bridgeCursor) EOF() bool {
	tbl, err := c.slot.current()
	if err != nil {
		// EOF cannot return an error; Column and Rowid will surface it.
		return true
	}
	return c.row >= tbl.Rows()
}

// Column writes cell (row, col) into the engine's result slot.
func (c *bridgeCursor) Column(ctx *sqlite3.SQLiteContext, col int) error {
	tbl, err := c.slot.current()
	if err != nil {
		return err
	}
	cell := tbl.Cell(c.row, col)
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

func (c *bridgeCursor) Rowid() (int64, error) {
	if _, err := c.slot.current(); err != nil {
		return 0, err
	}
	return int64(c.row), nil
}

func (c *bridgeCursor) Close() error { return nil }
