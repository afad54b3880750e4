package tabql

import (
	"compress/gzip"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabql/tabql/backend"
	"github.com/tabql/tabql/domain/model"
	"github.com/tabql/tabql/stream"
)

func openDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestQueryRegisteredTable(t *testing.T) {
	db := openDB(t)

	tbl, err := model.NewTable(
		model.Column{Name: "a", Type: model.TypeInt, Cells: []model.Cell{
			model.Int(1), model.Int(2), model.Int(3), model.Int(4), model.Int(5),
		}},
		model.Column{Name: "b", Type: model.TypeStr, Cells: []model.Cell{
			model.Str("x"), model.Str("y"), model.Str("x"), model.Str("z"), model.Str("x"),
		}},
	)
	require.NoError(t, err)

	src := db.RegisterTable(tbl)
	got, err := db.Query(src, "SELECT b, COUNT(*) AS Cnt FROM df GROUP BY b ORDER BY Cnt DESC")
	require.NoError(t, err)

	require.Equal(t, 3, got.Rows())
	assert.Equal(t, []string{"b", "Cnt"}, got.ColNames())
	assert.Equal(t, model.Str("x"), got.Cell(0, 0))
	assert.Equal(t, model.Int(3), got.Cell(0, 1))
	counts := map[string]int64{
		got.Cell(1, 0).Str: got.Cell(1, 1).Int,
		got.Cell(2, 0).Str: got.Cell(2, 1).Int,
	}
	assert.Equal(t, map[string]int64{"y": 1, "z": 1}, counts)
}

func TestUnregisterTable(t *testing.T) {
	db := openDB(t)

	tbl, err := model.NewTable(
		model.Column{Name: "v", Type: model.TypeInt, Cells: []model.Cell{model.Int(1)}},
	)
	require.NoError(t, err)

	src := db.RegisterTable(tbl)
	const query = "SELECT v FROM df"
	_, err = db.Query(src, query)
	require.NoError(t, err)

	db.UnregisterTable(src)
	// Re-running the identical query must fail rather than serve the
	// cached result for the removed table.
	_, err = db.Query(src, query)
	require.Error(t, err)
}

func TestQueryFile(t *testing.T) {
	db := openDB(t)

	path := filepath.Join(t.TempDir(), "fruit.csv")
	require.NoError(t, os.WriteFile(path,
		[]byte("name,qty,price\napple,3,1.25\nbanana,5,0.5\n"), 0o600))

	got, err := db.Query(path, "SELECT name FROM df WHERE price < 1")
	require.NoError(t, err)
	require.Equal(t, 1, got.Rows())
	assert.Equal(t, model.Str("banana"), got.Cell(0, 0))
}

func TestQueryIntrospectionSource(t *testing.T) {
	db := openDB(t)
	t.Setenv("TABQL_FACADE_TEST", "1")

	got, err := db.Query("source:env", "SELECT COUNT(*) FROM df WHERE name = 'TABQL_FACADE_TEST'")
	require.NoError(t, err)
	assert.Equal(t, model.Int(1), got.Cell(0, 0))
}

func TestLoadThenQueryPartial(t *testing.T) {
	db := openDB(t)

	const total = 250000
	path := filepath.Join(t.TempDir(), "big.csv.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte("n,v\n"))
	require.NoError(t, err)
	for i := range total {
		_, err = fmt.Fprintf(gz, "%d,%d\n", i, i*2)
		require.NoError(t, err)
	}
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	res, err := db.Load(context.Background(), path, stream.Options{
		MinRows:       100000,
		ChunkRows:     100000,
		MemoryCeiling: 1200 * 1024,
	})
	require.NoError(t, err)
	require.False(t, res.Complete)

	resident := res.Table.Rows()
	done := false
	for c := range res.Chunks {
		require.NoError(t, c.Err)
		if c.Done {
			done = true
			continue
		}
		resident += c.Table.Rows()
	}
	// Ceiling below the file's size: the load must end without the
	// completion signal and with only the loaded prefix resident.
	assert.False(t, done)
	assert.Less(t, resident, total)
	assert.Positive(t, resident)
}

func TestSaveQueryResult(t *testing.T) {
	db := openDB(t)

	dir := t.TempDir()
	src := filepath.Join(dir, "in.csv")
	require.NoError(t, os.WriteFile(src, []byte("id,v\n1,10\n2,20\n"), 0o600))
	dest := filepath.Join(dir, "out.parquet")

	require.NoError(t, db.Save(src, "SELECT * FROM df", dest))

	got, err := db.Query(dest, "SELECT SUM(v) FROM df")
	require.NoError(t, err)
	assert.Equal(t, model.Int(30), got.Cell(0, 0))
}

func TestRegisterBackend(t *testing.T) {
	db := openDB(t)

	v := &backend.Vtable{Version: backend.ProtocolVersion - 1, Name: "stale"}
	require.Error(t, db.RegisterBackend(v))
}
