package stream

import (
	"context"
	"fmt"
	"os"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/memory"
	"github.com/apache/arrow/go/v18/parquet"
	"github.com/apache/arrow/go/v18/parquet/pqarrow"

	"github.com/tabql/tabql/domain/model"
)

// Progress is one message on a save's channel: a cumulative row count, a
// terminal error, or the completion signal.
type Progress struct {
	Rows int64
	Err  error
	Done bool
}

// SaveParquet converts a compressed delimited file to a parquet file in
// chunks, holding one chunk resident at a time. Progress messages carry
// cumulative row counts; errors arrive on the same channel. The channel
// closes after Done or an error.
func SaveParquet(ctx context.Context, srcPath, destPath string, opts Options) (<-chan Progress, error) {
	// No ceiling on a save: the point is to stream the whole file through.
	opts.MemoryCeiling = 0
	res, err := Load(ctx, srcPath, opts)
	if err != nil {
		return nil, err
	}

	f, err := os.Create(destPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", destPath, err)
	}

	schema := arrowSchema(res.Names, res.Types)
	w, err := pqarrow.NewFileWriter(schema, f, parquet.NewWriterProperties(), pqarrow.DefaultWriterProps())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}

	ch := make(chan Progress, 1)
	go func() {
		defer close(ch)

		var rows int64
		cleanup := func() {
			w.Close()
			f.Close()
			os.Remove(destPath)
		}
		fail := func(err error) {
			cleanup()
			sendProgress(ctx, ch, Progress{Err: err})
		}

		writeChunk := func(tbl *model.Table) bool {
			rec := buildRecord(schema, tbl)
			err := w.Write(rec)
			rec.Release()
			if err != nil {
				fail(fmt.Errorf("failed to write parquet chunk: %w", err))
				return false
			}
			rows += int64(tbl.Rows())
			if !sendProgress(ctx, ch, Progress{Rows: rows}) {
				// Cancelled mid-save: the half-written output is useless.
				cleanup()
				return false
			}
			return true
		}

		if !writeChunk(res.Table) {
			return
		}
		if !res.Complete {
			done := false
			for c := range res.Chunks {
				if c.Err != nil {
					fail(c.Err)
					return
				}
				if c.Done {
					done = true
					break
				}
				if !writeChunk(c.Table) {
					return
				}
			}
			if !done {
				fail(fmt.Errorf("%w: source stream ended early", ErrParse))
				return
			}
		}

		if err := w.Close(); err != nil {
			f.Close()
			os.Remove(destPath)
			sendProgress(ctx, ch, Progress{Err: fmt.Errorf("failed to finalize parquet file: %w", err)})
			return
		}
		if err := f.Close(); err != nil {
			sendProgress(ctx, ch, Progress{Err: err})
			return
		}
		sendProgress(ctx, ch, Progress{Rows: rows, Done: true})
	}()

	return ch, nil
}

func sendProgress(ctx context.Context, ch chan<- Progress, p Progress) bool {
	select {
	case ch <- p:
		return true
	case <-ctx.Done():
		return false
	}
}

// arrowSchema maps column types onto arrow fields. Temporal display types
// stay as strings; they carry pre-formatted text.
func arrowSchema(names []string, types []model.ColType) *arrow.Schema {
	fields := make([]arrow.Field, len(names))
	for i, name := range names {
		var dt arrow.DataType
		switch types[i] {
		case model.TypeInt:
			dt = arrow.PrimitiveTypes.Int64
		case model.TypeFloat:
			dt = arrow.PrimitiveTypes.Float64
		case model.TypeBool:
			dt = arrow.FixedWidthTypes.Boolean
		default:
			dt = arrow.BinaryTypes.String
		}
		fields[i] = arrow.Field{Name: name, Type: dt, Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

// buildRecord converts one table chunk into an arrow record matching schema.
// The caller releases the record.
func buildRecord(schema *arrow.Schema, tbl *model.Table) arrow.Record {
	b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer b.Release()

	for ci := range tbl.Cols() {
		col := tbl.Column(ci)
		switch fb := b.Field(ci).(type) {
		case *array.Int64Builder:
			for _, c := range col.Cells {
				if c.Kind == model.KindInt {
					fb.Append(c.Int)
				} else {
					fb.AppendNull()
				}
			}
		case *array.Float64Builder:
			for _, c := range col.Cells {
				switch c.Kind {
				case model.KindFloat:
					fb.Append(c.Float)
				case model.KindInt:
					fb.Append(float64(c.Int))
				default:
					fb.AppendNull()
				}
			}
		case *array.BooleanBuilder:
			for _, c := range col.Cells {
				if c.Kind == model.KindBool {
					fb.Append(c.Bool)
				} else {
					fb.AppendNull()
				}
			}
		case *array.StringBuilder:
			for _, c := range col.Cells {
				if c.IsNull() {
					fb.AppendNull()
				} else {
					fb.Append(c.Format(defaultDecimals))
				}
			}
		}
	}
	return b.NewRecord()
}

// defaultDecimals is the float precision used when a float lands in a string
// column during save.
const defaultDecimals = 6

// WriteTableParquet writes an in-memory table to a parquet file in one shot.
func WriteTableParquet(path string, tbl *model.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	names := tbl.ColNames()
	types := make([]model.ColType, tbl.Cols())
	for i := range types {
		types[i] = tbl.ColType(i)
	}
	schema := arrowSchema(names, types)

	w, err := pqarrow.NewFileWriter(schema, f, parquet.NewWriterProperties(), pqarrow.DefaultWriterProps())
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}

	rec := buildRecord(schema, tbl)
	err = w.Write(rec)
	rec.Release()
	if err != nil {
		w.Close()
		f.Close()
		os.Remove(path)
		return fmt.Errorf("failed to write parquet file: %w", err)
	}
	if err := w.Close(); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return f.Close()
}
