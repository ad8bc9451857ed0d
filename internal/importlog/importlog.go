// Package importlog keeps an append-only CSV record of every file an
// import run touched.
package importlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cleared-dev/txray/internal/model"
)

// Entry is one row in the import log.
type Entry struct {
	Timestamp  time.Time
	Batch      string
	File       string
	Format     model.Format
	Imported   int
	Duplicates int
	Error      string
}

// Failed reports whether the file was rejected.
func (e Entry) Failed() bool { return e.Error != "" }

// Header is the CSV header for the import log.
const Header = "timestamp,batch,file,format,imported,duplicates,error"

const (
	numFields     = 7
	colTimestamp  = 0
	colBatch      = 1
	colFile       = 2
	colFormat     = 3
	colImported   = 4
	colDuplicates = 5
	colError      = 6
)

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.UTC().Format(time.RFC3339)
	row[colBatch] = e.Batch
	row[colFile] = e.File
	row[colFormat] = string(e.Format)
	row[colImported] = strconv.Itoa(e.Imported)
	row[colDuplicates] = strconv.Itoa(e.Duplicates)
	row[colError] = e.Error
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}
	imported, err := strconv.Atoi(record[colImported])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing imported %q: %w", record[colImported], err)
	}
	dups, err := strconv.Atoi(record[colDuplicates])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing duplicates %q: %w", record[colDuplicates], err)
	}

	return Entry{
		Timestamp:  ts,
		Batch:      record[colBatch],
		File:       record[colFile],
		Format:     model.Format(record[colFormat]),
		Imported:   imported,
		Duplicates: dups,
		Error:      record[colError],
	}, nil
}

// Append writes entries to path, creating the file, its directory and the
// header if needed.
func Append(path string, entries []Entry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating import log dir: %w", err)
	}

	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening import log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Read returns all entries in path. A missing file yields no entries.
func Read(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening import log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading import log CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
