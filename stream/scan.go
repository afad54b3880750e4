package stream

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/tabql/tabql/domain/model"
)

// Schema is the parse plan for a delimited file, fixed by a bounded sample.
type Schema struct {
	Names     []string
	Types     []model.ColType
	Delimiter rune

	specs []colSpec
}

// Parse converts the raw text of column i into a cell per the fixed plan.
func (s *Schema) Parse(i int, raw string) model.Cell {
	return parseSpecCell(raw, s.specs[i])
}

// Sniff reads the header and up to sampleRows data rows to fix a file's
// schema without consuming the whole file.
func Sniff(path string, sampleRows int) (*Schema, error) {
	if sampleRows <= 0 {
		sampleRows = defaultMinRows
	}

	rec, err := OpenRecords(path, 0)
	if err != nil {
		return nil, err
	}
	defer rec.Close()

	records, _, err := readBatch(rec.cr, sampleRows)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	specs := buildSpecs(rec.Names, records)
	return &Schema{
		Names:     rec.Names,
		Types:     specTypes(specs),
		Delimiter: rec.Delimiter,
		specs:     specs,
	}, nil
}

// Records iterates the data rows of a delimited file, decompressing as
// needed. The header has already been consumed when OpenRecords returns.
type Records struct {
	Names     []string
	Delimiter rune

	cr       *csv.Reader
	closeAll func()
}

// OpenRecords opens path, reads its header and positions the iterator at the
// first data row. Pass delim 0 to auto-detect.
func OpenRecords(path string, delim rune) (*Records, error) {
	if isParquet(path) {
		return nil, fmt.Errorf("%w: %s is parquet, not delimited text", ErrUnsupportedFormat, path)
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	dec, closeDec, err := newDecompressor(f, DetectCompression(path))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrDecompression, err)
	}
	closeAll := func() {
		closeDec()
		f.Close()
	}

	br := bufio.NewReaderSize(dec, 64*1024)
	header, err := readLine(br)
	if err != nil {
		closeAll()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %s", ErrEmptyFile, path)
		}
		return nil, fmt.Errorf("%w: %v", ErrDecompression, err)
	}

	if delim == 0 {
		delim = DetectDelimiter(header)
	}
	names, err := splitHeader(header, delim)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("%w: header: %v", ErrParse, err)
	}

	cr := csv.NewReader(br)
	cr.Comma = delim
	cr.FieldsPerRecord = len(names)
	cr.LazyQuotes = true

	return &Records{
		Names:     names,
		Delimiter: delim,
		cr:        cr,
		closeAll:  closeAll,
	}, nil
}

// Next returns the next data row, or io.EOF after the last one.
func (r *Records) Next() ([]string, error) {
	rec, err := r.cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return rec, nil
}

// Close releases the underlying file and decoder.
func (r *Records) Close() {
	r.closeAll()
}
