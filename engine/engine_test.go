package engine

import (
	"compress/gzip"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabql/tabql/domain/model"
	"github.com/tabql/tabql/stream"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()

	e, err := New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func sampleTable(t *testing.T) *model.Table {
	t.Helper()

	tbl, err := model.NewTable(
		model.Column{Name: "a", Type: model.TypeInt, Cells: []model.Cell{
			model.Int(1), model.Int(2), model.Int(3), model.Int(4), model.Int(5),
		}},
		model.Column{Name: "b", Type: model.TypeStr, Cells: []model.Cell{
			model.Str("x"), model.Str("y"), model.Str("x"), model.Str("z"), model.Str("x"),
		}},
	)
	require.NoError(t, err)
	return tbl
}

func TestQueryTableBridgeFidelity(t *testing.T) {
	e := newTestEngine(t)
	tbl := sampleTable(t)

	got, err := e.QueryTable(context.Background(), tbl, "SELECT * FROM "+BridgeRelation)
	require.NoError(t, err)

	require.Equal(t, tbl.Rows(), got.Rows())
	require.Equal(t, tbl.Cols(), got.Cols())
	assert.Equal(t, tbl.ColNames(), got.ColNames())
	for r := range tbl.Rows() {
		for c := range tbl.Cols() {
			assert.Equal(t, tbl.Cell(r, c), got.Cell(r, c))
		}
	}
}

func TestQueryTableGroupBy(t *testing.T) {
	e := newTestEngine(t)
	tbl := sampleTable(t)

	query := fmt.Sprintf("SELECT b, COUNT(*) AS Cnt FROM %s GROUP BY b ORDER BY Cnt DESC", BridgeRelation)
	got, err := e.QueryTable(context.Background(), tbl, query)
	require.NoError(t, err)

	require.Equal(t, 3, got.Rows())
	assert.Equal(t, []string{"b", "Cnt"}, got.ColNames())
	assert.Equal(t, model.Str("x"), got.Cell(0, 0))
	assert.Equal(t, model.Int(3), got.Cell(0, 1))

	rest := map[string]int64{
		got.Cell(1, 0).Str: got.Cell(1, 1).Int,
		got.Cell(2, 0).Str: got.Cell(2, 1).Int,
	}
	assert.Equal(t, map[string]int64{"y": 1, "z": 1}, rest)
}

func TestQueryTableWithNullsAndFloats(t *testing.T) {
	e := newTestEngine(t)

	tbl, err := model.NewTable(
		model.Column{Name: "v", Type: model.TypeFloat, Cells: []model.Cell{
			model.Float(1.5), model.Null(), model.Float(3.25),
		}},
		model.Column{Name: "ok", Type: model.TypeBool, Cells: []model.Cell{
			model.Bool(true), model.Bool(false), model.Null(),
		}},
	)
	require.NoError(t, err)

	got, err := e.QueryTable(context.Background(), tbl, "SELECT v, ok FROM "+BridgeRelation)
	require.NoError(t, err)

	require.Equal(t, 3, got.Rows())
	assert.Equal(t, model.Float(1.5), got.Cell(0, 0))
	assert.True(t, got.Cell(1, 0).IsNull())
	assert.Equal(t, model.Float(3.25), got.Cell(2, 0))
	// Booleans come back as SQLite integers.
	assert.Equal(t, model.Int(1), got.Cell(0, 1))
	assert.Equal(t, model.Int(0), got.Cell(1, 1))
	assert.True(t, got.Cell(2, 1).IsNull())
}

func TestQueryTableRejectsBadSQL(t *testing.T) {
	e := newTestEngine(t)
	tbl := sampleTable(t)

	_, err := e.QueryTable(context.Background(), tbl, "SELEKT nope")
	require.ErrorIs(t, err, ErrQuery)

	// The slot must be released after the failed query.
	_, err = e.QueryTable(context.Background(), tbl, "SELECT COUNT(*) FROM "+BridgeRelation)
	require.NoError(t, err)
}

func TestSlot(t *testing.T) {
	t.Parallel()

	t.Run("empty slot fails loudly", func(t *testing.T) {
		t.Parallel()

		s := &tableSlot{}
		_, err := s.current()
		require.ErrorIs(t, err, ErrNoBridgedTable)
	})

	t.Run("not reentrant", func(t *testing.T) {
		t.Parallel()

		s := &tableSlot{}
		tbl := model.Empty()
		release, err := s.acquire(tbl)
		require.NoError(t, err)

		_, err = s.acquire(tbl)
		require.ErrorIs(t, err, ErrBridgeBusy)

		release()
		release2, err := s.acquire(tbl)
		require.NoError(t, err)
		release2()
	})
}

func writeCSV(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestQueryFileCSV(t *testing.T) {
	e := newTestEngine(t)

	path := filepath.Join(t.TempDir(), "fruit.csv")
	writeCSV(t, path, "name,qty,price\napple,3,1.25\nbanana,5,0.5\ncherry,2,4.0\n")

	query := fmt.Sprintf("SELECT name, qty FROM %s WHERE price < 2 ORDER BY qty", ScanRelation)
	got, err := e.QueryFile(context.Background(), path, query)
	require.NoError(t, err)

	require.Equal(t, 2, got.Rows())
	assert.Equal(t, model.Str("apple"), got.Cell(0, 0))
	assert.Equal(t, model.Int(3), got.Cell(0, 1))
	assert.Equal(t, model.Str("banana"), got.Cell(1, 0))
}

func TestQueryFileCompressed(t *testing.T) {
	e := newTestEngine(t)

	path := filepath.Join(t.TempDir(), "nums.csv.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte("n\n"))
	require.NoError(t, err)
	for i := range 100 {
		_, err = fmt.Fprintf(gz, "%d\n", i)
		require.NoError(t, err)
	}
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	got, err := e.QueryFile(context.Background(), path,
		fmt.Sprintf("SELECT SUM(n) AS total FROM %s", ScanRelation))
	require.NoError(t, err)

	require.Equal(t, 1, got.Rows())
	assert.Equal(t, model.Int(4950), got.Cell(0, 0))
}

func TestQueryFileReusable(t *testing.T) {
	e := newTestEngine(t)

	dir := t.TempDir()
	p1 := filepath.Join(dir, "a.csv")
	p2 := filepath.Join(dir, "b.csv")
	writeCSV(t, p1, "v\n1\n2\n")
	writeCSV(t, p2, "v\n10\n20\n30\n")

	count := fmt.Sprintf("SELECT COUNT(*) FROM %s", ScanRelation)
	got, err := e.QueryFile(context.Background(), p1, count)
	require.NoError(t, err)
	assert.Equal(t, model.Int(2), got.Cell(0, 0))

	// The scan mount must be dropped between queries so another file can
	// take the relation name.
	got, err = e.QueryFile(context.Background(), p2, count)
	require.NoError(t, err)
	assert.Equal(t, model.Int(3), got.Cell(0, 0))
}

func TestQueryFileParquet(t *testing.T) {
	e := newTestEngine(t)

	dir := t.TempDir()
	src := filepath.Join(dir, "rows.csv")
	writeCSV(t, src, "id,label\n1,a\n2,b\n3,c\n")
	dest := filepath.Join(dir, "rows.parquet")

	ch, err := stream.SaveParquet(context.Background(), src, dest, stream.Options{})
	require.NoError(t, err)
	for p := range ch {
		require.NoError(t, p.Err)
	}

	// Parquet runs bridged, so the query references the bridge relation.
	assert.Equal(t, BridgeRelation, FileSource(dest).Relation())
	got, err := e.QueryFile(context.Background(), dest,
		fmt.Sprintf("SELECT label FROM %s WHERE id >= 2 ORDER BY id", BridgeRelation))
	require.NoError(t, err)

	require.Equal(t, 2, got.Rows())
	assert.Equal(t, model.Str("b"), got.Cell(0, 0))
	assert.Equal(t, model.Str("c"), got.Cell(1, 0))
}

func TestSubstitute(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "SELECT * FROM t", Substitute("SELECT * FROM df", "t"))
	assert.Equal(t, "SELECT a.df_col FROM t AS a", Substitute("SELECT a.df_col FROM df AS a", "t"))
	assert.Equal(t, "SELECT * FROM dfx", Substitute("SELECT * FROM dfx", "t"))
	assert.Equal(t, "SELECT t.a FROM t JOIN t", Substitute("SELECT df.a FROM df JOIN df", "t"))
}

func TestSourceRelation(t *testing.T) {
	t.Parallel()

	assert.Equal(t, BridgeRelation, TableSource(model.Empty()).Relation())
	assert.Equal(t, ScanRelation, FileSource("data.csv").Relation())
	assert.Equal(t, ScanRelation, FileSource("data.csv.gz").Relation())
	assert.Equal(t, BridgeRelation, FileSource("data.parquet").Relation())
}

func TestExecuteRoutes(t *testing.T) {
	e := newTestEngine(t)

	tbl := sampleTable(t)
	got, err := e.Execute(context.Background(), TableSource(tbl),
		"SELECT COUNT(*) FROM "+BridgeRelation)
	require.NoError(t, err)
	assert.Equal(t, model.Int(5), got.Cell(0, 0))

	path := filepath.Join(t.TempDir(), "x.csv")
	writeCSV(t, path, "v\n7\n")
	got, err = e.Execute(context.Background(), FileSource(path),
		"SELECT v FROM "+ScanRelation)
	require.NoError(t, err)
	assert.Equal(t, model.Int(7), got.Cell(0, 0))
}
