package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	pqfile "github.com/apache/arrow/go/v18/parquet/file"
	"github.com/apache/arrow/go/v18/parquet/pqarrow"

	"github.com/tabql/tabql/domain/model"
)

// parquetBatchRows is the record-batch size used when draining a parquet
// table into cells.
const parquetBatchRows = 64 * 1024

// ReadParquet materializes a parquet file into a table. Parquet needs random
// access, so the file is read fully; queries against the result run through
// the bridge.
func ReadParquet(ctx context.Context, path string) (*model.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet file %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil, errors.New("engine: empty parquet file")
	}

	pq, err := pqfile.NewParquetReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer pq.Close()

	ar, err := pqarrow.NewFileReader(pq, pqarrow.ArrowReadProperties{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create arrow reader: %w", err)
	}
	tbl, err := ar.ReadTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet table: %w", err)
	}
	defer tbl.Release()

	schema := tbl.Schema()
	cols := make([]model.Column, schema.NumFields())
	for i, field := range schema.Fields() {
		cols[i] = model.Column{
			Name:  field.Name,
			Type:  colTypeOf(field.Type),
			Cells: make([]model.Cell, 0, int(tbl.NumRows())),
		}
	}

	tr := array.NewTableReader(tbl, parquetBatchRows)
	defer tr.Release()

	for tr.Next() {
		batch := tr.Record()
		for ci, col := range batch.Columns() {
			appendArrowColumn(&cols[ci], col)
		}
	}
	if err := tr.Err(); err != nil {
		return nil, fmt.Errorf("failed to drain parquet batches: %w", err)
	}

	return model.NewTable(cols...)
}

// colTypeOf maps an arrow field type onto the table column type.
func colTypeOf(dt arrow.DataType) model.ColType {
	switch dt.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		return model.TypeInt
	case arrow.FLOAT16, arrow.FLOAT32, arrow.FLOAT64:
		return model.TypeFloat
	case arrow.BOOL:
		return model.TypeBool
	case arrow.TIMESTAMP:
		return model.TypeDateTime
	case arrow.DATE32, arrow.DATE64:
		return model.TypeDate
	case arrow.TIME32, arrow.TIME64:
		return model.TypeTime
	default:
		return model.TypeStr
	}
}

// appendArrowColumn converts one arrow array into cells. Types outside the
// fast paths fall back to the array's string rendering.
func appendArrowColumn(col *model.Column, arr arrow.Array) {
	for i := range arr.Len() {
		if arr.IsNull(i) {
			col.Cells = append(col.Cells, model.Null())
			continue
		}
		switch a := arr.(type) {
		case *array.Int64:
			col.Cells = append(col.Cells, model.Int(a.Value(i)))
		case *array.Int32:
			col.Cells = append(col.Cells, model.Int(int64(a.Value(i))))
		case *array.Float64:
			col.Cells = append(col.Cells, model.Float(a.Value(i)))
		case *array.Float32:
			col.Cells = append(col.Cells, model.Float(float64(a.Value(i))))
		case *array.Boolean:
			col.Cells = append(col.Cells, model.Bool(a.Value(i)))
		case *array.String:
			col.Cells = append(col.Cells, model.Str(a.Value(i)))
		case *array.LargeString:
			col.Cells = append(col.Cells, model.Str(a.Value(i)))
		case *array.Timestamp:
			col.Cells = append(col.Cells, model.DateTime(a.ValueStr(i)))
		default:
			cell := model.ParseCell(arr.ValueStr(i), col.Type)
			col.Cells = append(col.Cells, cell)
		}
	}
}
