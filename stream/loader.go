// Package stream ingests large compressed delimited files incrementally. A
// load returns a first usable chunk synchronously and keeps producing chunks
// on a channel in the background until the file is exhausted, a memory
// ceiling is reached, or the caller cancels.
package stream

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tabql/tabql/domain/model"
)

const (
	// defaultChunkRows is the row count of each background chunk.
	defaultChunkRows = 100000
	// defaultMinRows is the row count of the synchronous first chunk.
	defaultMinRows = 1000
	// chunkChannelDepth bounds how far the producer may run ahead of the
	// consumer.
	chunkChannelDepth = 4
)

// candidate field delimiters, checked against the header line.
var candidateDelims = []rune{',', '\t', ';', '|'}

// Options configures a streamed load. Zero values select defaults.
type Options struct {
	// ChunkRows is the number of rows per background chunk.
	ChunkRows int
	// MinRows is the number of rows parsed synchronously before Load
	// returns.
	MinRows int
	// MemoryCeiling is the resident-size budget in bytes. The load stops
	// early once the estimated in-memory size of consumed data exceeds it.
	// Zero means unlimited.
	MemoryCeiling int64
	// Delimiter overrides delimiter detection when non-zero.
	Delimiter rune
}

func (o Options) withDefaults() Options {
	if o.ChunkRows <= 0 {
		o.ChunkRows = defaultChunkRows
	}
	if o.MinRows <= 0 {
		o.MinRows = defaultMinRows
	}
	return o
}

// Chunk is one message on a load's channel: a parsed table, a terminal
// error, or the explicit end-of-data signal. Exactly one field is set.
type Chunk struct {
	Table *model.Table
	Err   error
	Done  bool
}

// Result is the synchronous part of a streamed load. When Complete is true
// the whole file fits in the first chunk and Chunks is nil. Otherwise the
// consumer drains Chunks until it closes: a Done message before close means
// the file was fully consumed, close without Done means the load is partial
// (ceiling hit or cancelled).
type Result struct {
	// Table is the first chunk.
	Table *model.Table
	// Names are the column names from the header.
	Names []string
	// Types is the schema fixed from the first chunk; later chunks are
	// parsed against it unchanged.
	Types []model.ColType
	// Delimiter is the detected field delimiter.
	Delimiter rune
	// Complete reports that the file was fully consumed synchronously.
	Complete bool
	// Chunks delivers the remaining chunks in file order.
	Chunks <-chan Chunk
}

// colSpec is the per-column parse plan fixed by the first chunk.
type colSpec struct {
	name  string
	typ   model.ColType
	epoch epochUnit
}

// countingReader tracks decompressed bytes consumed so far.
type countingReader struct {
	r io.Reader
	n atomic.Int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(int64(n))
	return n, err
}

func (c *countingReader) bytes() int64 { return c.n.Load() }

// isParquet reports whether path names a parquet file, which is columnar
// binary rather than delimited text and loads through the query engine.
func isParquet(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".parquet")
}

// DetectDelimiter picks the most frequent candidate delimiter in the header
// line, defaulting to comma when none occurs.
func DetectDelimiter(header string) rune {
	best := ','
	bestCount := 0
	for _, d := range candidateDelims {
		if n := strings.Count(header, string(d)); n > bestCount {
			best = d
			bestCount = n
		}
	}
	return best
}

// Load opens a compressed delimited file and parses its first chunk
// synchronously. When more data remains, a producer goroutine keeps parsing
// chunk-sized batches against the first chunk's schema and delivers them on
// Result.Chunks. Cancel ctx to stop the producer promptly.
func Load(ctx context.Context, path string, opts Options) (*Result, error) {
	opts = opts.withDefaults()

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
	counter := &countingReader{r: dec}
	br := bufio.NewReaderSize(counter, 64*1024)

	closeAll := func() {
		closeDec()
		f.Close()
	}

	header, err := readLine(br)
	if err != nil {
		closeAll()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %s", ErrEmptyFile, path)
		}
		return nil, fmt.Errorf("%w: %v", ErrDecompression, err)
	}

	delim := opts.Delimiter
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
	cr.ReuseRecord = false
	cr.LazyQuotes = true

	records, eof, err := readBatch(cr, opts.MinRows)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	specs := buildSpecs(names, records)
	first, err := buildTable(specs, records)
	if err != nil {
		closeAll()
		return nil, err
	}

	res := &Result{
		Table:     first,
		Names:     names,
		Types:     specTypes(specs),
		Delimiter: delim,
	}

	if eof || overCeiling(counter.bytes(), opts.MemoryCeiling) {
		// Either the whole file fit in the first chunk, or the ceiling is
		// already exceeded. Only the former counts as complete.
		res.Complete = eof
		closeAll()
		if !eof {
			ch := make(chan Chunk)
			close(ch)
			res.Chunks = ch
		}
		return res, nil
	}

	ch := make(chan Chunk, chunkChannelDepth)
	res.Chunks = ch

	go produce(ctx, cr, counter, specs, opts, ch, closeAll)

	return res, nil
}

// produce reads chunk-sized batches until EOF, the memory ceiling, an error
// or cancellation. EOF sends an explicit Done message before closing the
// channel; every other stop closes the channel without Done, which consumers
// must treat as a partial load.
func produce(ctx context.Context, cr *csv.Reader, counter *countingReader,
	specs []colSpec, opts Options, ch chan<- Chunk, closeAll func(),
) {
	defer close(ch)
	defer closeAll()

	for {
		if ctx.Err() != nil {
			return
		}

		records, eof, err := readBatch(cr, opts.ChunkRows)
		if err != nil {
			send(ctx, ch, Chunk{Err: fmt.Errorf("%w: %v", ErrParse, err)})
			return
		}
		if len(records) > 0 {
			tbl, err := buildTable(specs, records)
			if err != nil {
				send(ctx, ch, Chunk{Err: err})
				return
			}
			if !send(ctx, ch, Chunk{Table: tbl}) {
				return
			}
		}
		if eof {
			send(ctx, ch, Chunk{Done: true})
			return
		}
		if overCeiling(counter.bytes(), opts.MemoryCeiling) {
			return
		}
	}
}

// send delivers c unless the consumer cancelled. Reports whether delivery
// happened.
func send(ctx context.Context, ch chan<- Chunk, c Chunk) bool {
	select {
	case ch <- c:
		return true
	case <-ctx.Done():
		return false
	}
}

// overCeiling estimates the in-memory footprint of the consumed data as
// twice the raw text size and compares it to the ceiling.
func overCeiling(bytesRead, ceiling int64) bool {
	return ceiling > 0 && bytesRead*2 > ceiling
}

// readBatch reads up to limit records, reporting eof when the input ended.
func readBatch(cr *csv.Reader, limit int) (records [][]string, eof bool, err error) {
	records = make([][]string, 0, min(limit, 4096))
	for len(records) < limit {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return records, true, nil
		}
		if err != nil {
			return nil, false, err
		}
		records = append(records, rec)
	}
	return records, false, nil
}

// readLine reads one line, tolerating a missing trailing newline at EOF.
func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// splitHeader parses the header line with the same quoting rules as the data
// rows.
func splitHeader(header string, delim rune) ([]string, error) {
	cr := csv.NewReader(strings.NewReader(header))
	cr.Comma = delim
	names, err := cr.Read()
	if err != nil {
		return nil, err
	}
	return names, nil
}

// buildSpecs infers the schema from the first chunk and decides epoch
// reinterpretation per column. The result is fixed for the whole load.
func buildSpecs(names []string, records [][]string) []colSpec {
	types := model.InferSchema(names, records)
	specs := make([]colSpec, len(names))
	for i := range names {
		specs[i] = colSpec{name: names[i], typ: types[i]}
		if types[i] == model.TypeInt {
			if u := detectEpoch(names[i], columnValues(records, i)); u != epochNone {
				specs[i].epoch = u
				specs[i].typ = model.TypeDateTime
			}
		}
	}
	return specs
}

func specTypes(specs []colSpec) []model.ColType {
	types := make([]model.ColType, len(specs))
	for i, s := range specs {
		types[i] = s.typ
	}
	return types
}

func columnValues(records [][]string, i int) []string {
	values := make([]string, 0, len(records))
	for _, rec := range records {
		if i < len(rec) {
			values = append(values, rec[i])
		}
	}
	return values
}

// buildTable parses row-major string records into a columnar table per the
// fixed specs.
func buildTable(specs []colSpec, records [][]string) (*model.Table, error) {
	cols := make([]model.Column, len(specs))
	for i, s := range specs {
		cells := make([]model.Cell, 0, len(records))
		for _, rec := range records {
			var raw string
			if i < len(rec) {
				raw = rec[i]
			}
			cells = append(cells, parseSpecCell(raw, s))
		}
		cols[i] = model.Column{Name: s.name, Type: s.typ, Cells: cells}
	}
	return model.NewTable(cols...)
}

func parseSpecCell(raw string, s colSpec) model.Cell {
	if s.epoch != epochNone {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			return model.Null()
		}
		if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return model.DateTime(formatEpoch(n, s.epoch))
		}
		return model.Str(raw)
	}
	return model.ParseCell(raw, s.typ)
}

// epochUnit is the resolution of an epoch-like integer column.
type epochUnit int

const (
	epochNone epochUnit = iota
	epochSeconds
	epochMillis
)

// epoch value ranges covering roughly 1973 through 5138 in seconds and the
// matching span in milliseconds.
const (
	epochSecMin   = int64(1e8)
	epochSecMax   = int64(1e11)
	epochMilliMax = int64(1e14)
)

// epochNameHints are substrings of column names that suggest epoch content.
var epochNameHints = []string{"time", "date", "_ts", "epoch"}

// detectEpoch reports whether an integer column should be reinterpreted as
// timestamps, based on its name and the range of its sampled values.
func detectEpoch(name string, values []string) epochUnit {
	lower := strings.ToLower(name)
	hinted := lower == "ts"
	for _, h := range epochNameHints {
		if strings.Contains(lower, h) {
			hinted = true
			break
		}
	}
	if !hinted {
		return epochNone
	}

	unit := epochNone
	seen := false
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return epochNone
		}
		seen = true
		var u epochUnit
		switch {
		case n >= epochSecMin && n < epochSecMax:
			u = epochSeconds
		case n >= epochSecMax && n < epochMilliMax:
			u = epochMillis
		default:
			return epochNone
		}
		if unit == epochNone {
			unit = u
		} else if unit != u {
			return epochNone
		}
	}
	if !seen {
		return epochNone
	}
	return unit
}

// formatEpoch renders an epoch value as local datetime text.
func formatEpoch(n int64, u epochUnit) string {
	var t time.Time
	switch u {
	case epochMillis:
		t = time.UnixMilli(n)
	default:
		t = time.Unix(n, 0)
	}
	return t.Format("2006-01-02 15:04:05")
}
