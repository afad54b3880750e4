package stream

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabql/tabql/domain/model"
)

func TestSniff(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "data.csv.gz")
	writeGzipCSV(t, path, "id;name;score", []string{
		"1;alpha;1.5",
		"2;beta;2.5",
	})

	schema, err := Sniff(path, 100)
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "name", "score"}, schema.Names)
	assert.Equal(t, []model.ColType{model.TypeInt, model.TypeStr, model.TypeFloat}, schema.Types)
	assert.Equal(t, ';', schema.Delimiter)
	assert.Equal(t, model.Int(7), schema.Parse(0, "7"))
	assert.Equal(t, model.Null(), schema.Parse(0, ""))
}

func TestOpenRecords(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "data.csv.gz")
	writeGzipCSV(t, path, "a,b", []string{"1,x", "2,y"})

	rec, err := OpenRecords(path, 0)
	require.NoError(t, err)
	defer rec.Close()

	assert.Equal(t, []string{"a", "b"}, rec.Names)

	row, err := rec.Next()
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "x"}, row)
	row, err = rec.Next()
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "y"}, row)
	_, err = rec.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestOpenRecordsRejectsParquet(t *testing.T) {
	t.Parallel()

	_, err := OpenRecords(filepath.Join(t.TempDir(), "data.parquet"), 0)
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}
