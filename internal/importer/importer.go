// Package importer turns per-institution CSV exports into canonical
// transactions: it detects the format, streams rows through the matching
// mapper and hands the results to a Sink.
package importer

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cleared-dev/txray/internal/model"
)

// Row is one source record keyed by header column.
type Row map[string]string

// Require returns the value of a column the mapper cannot work without.
func (r Row) Require(col string) (string, error) {
	v, ok := r[col]
	if !ok {
		return "", &RowMappingError{Column: col}
	}
	return v, nil
}

// Categorizer assigns a category to a description.
type Categorizer interface {
	Categorize(description string) string
}

// Mapper converts rows of one source format into canonical transactions.
type Mapper interface {
	Format() model.Format
	AccountType() model.AccountType
	// MapRow returns ok=false for rows that carry no transaction.
	MapRow(row Row) (txn model.Transaction, ok bool, err error)
}

// Registry holds mappers keyed by format.
type Registry struct {
	mappers map[model.Format]Mapper
}

// FileInfo describes a CSV file in the import directory.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// NewRegistry creates an empty mapper registry.
func NewRegistry() *Registry {
	return &Registry{mappers: make(map[model.Format]Mapper)}
}

// Register adds a mapper. Panics on duplicate format.
func (r *Registry) Register(m Mapper) {
	key := model.Format(strings.ToLower(string(m.Format())))
	if _, ok := r.mappers[key]; ok {
		panic("duplicate mapper format: " + string(key))
	}
	r.mappers[key] = m
}

// Get returns the mapper for format, or nil.
func (r *Registry) Get(format model.Format) Mapper {
	return r.mappers[model.Format(strings.ToLower(string(format)))]
}

// Formats returns the registered formats in sorted order.
func (r *Registry) Formats() []model.Format {
	out := make([]model.Format, 0, len(r.mappers))
	for f := range r.mappers {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// DefaultRegistry returns a registry with all built-in mappers. cat
// categorizes Amex and checking rows; Apple Card rows carry their own.
func DefaultRegistry(cat Categorizer) *Registry {
	r := NewRegistry()
	r.Register(NewAmexMapper(cat))
	r.Register(NewAppleCardMapper())
	r.Register(NewCheckingMapper(cat))
	return r
}

// Parsed is the outcome of mapping one file.
type Parsed struct {
	Format       model.Format
	Transactions []model.Transaction
	Rows         int
	Skipped      int
}

// ParseFile maps every row of the CSV at path. An empty format means
// detect it from the header line.
func (r *Registry) ParseFile(path string, format model.Format) (*Parsed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	header, err := readHeaderLine(br)
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if format == "" {
		format, err = DetectFormat(header)
		if err != nil {
			return nil, err
		}
	}
	return r.Parse(io.MultiReader(strings.NewReader(header), br), format)
}

// Parse maps every row of a CSV stream already known to be in format.
func (r *Registry) Parse(rd io.Reader, format model.Format) (*Parsed, error) {
	m := r.Get(format)
	if m == nil {
		return nil, fmt.Errorf("%w: no mapper for %q", ErrUnknownFormat, format)
	}

	cr := csv.NewReader(rd)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return &Parsed{Format: m.Format()}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s header: %w", format, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	out := &Parsed{Format: m.Format()}
	for n := 2; ; n++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s row %d: %w", format, n, err)
		}
		if isBlank(rec) {
			continue
		}
		out.Rows++

		txn, ok, err := m.MapRow(toRow(header, rec))
		if err != nil {
			var rme *RowMappingError
			if errors.As(err, &rme) {
				rme.Row = n
			}
			return nil, err
		}
		if !ok {
			out.Skipped++
			continue
		}
		out.Transactions = append(out.Transactions, txn)
	}
	return out, nil
}

// toRow pairs header columns with values. Short records leave trailing
// columns empty; extra values are dropped.
func toRow(header, rec []string) Row {
	row := make(Row, len(header))
	for i, col := range header {
		if i < len(rec) {
			row[col] = rec[i]
		} else {
			row[col] = ""
		}
	}
	return row
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// rawRow copies a row for storage alongside the canonical record.
func rawRow(row Row) model.RawRow {
	out := make(model.RawRow, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}

// processedDir is the subdirectory for processed CSVs.
const processedDir = "processed"

// Scan returns CSV files directly inside dir.
func Scan(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(e.Name()), ".csv") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
			Size: info.Size(),
		})
	}
	return files, nil
}

// MarkProcessed moves a file from dir to dir/processed.
func MarkProcessed(dir, fileName string) error {
	src := filepath.Join(dir, fileName)
	dstDir := filepath.Join(dir, processedDir)

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	dst := filepath.Join(dstDir, fileName)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}
