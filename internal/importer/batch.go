package importer

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cleared-dev/txray/internal/importlog"
	"github.com/cleared-dev/txray/internal/logger"
	"github.com/cleared-dev/txray/internal/metrics"
	"github.com/cleared-dev/txray/internal/model"
)

// Sink stores canonical transactions and reports how many were new.
type Sink interface {
	InsertBulk(ctx context.Context, txns []model.Transaction) (int, error)
}

// FileResult is the outcome of one file in a batch.
type FileResult struct {
	File       string
	Format     model.Format
	Rows       int
	Skipped    int
	Imported   int
	Duplicates int
	Err        string
}

// FileError names a file that failed and why.
type FileError struct {
	File    string
	Message string
}

// Result summarizes a batch import.
type Result struct {
	BatchID        string
	Imported       int
	Duplicates     int
	FilesProcessed int
	Files          []FileResult
	Errors         []FileError
}

// Batch imports files one at a time. A failing file is recorded and the
// batch moves on.
type Batch struct {
	Registry *Registry
	Sink     Sink

	// Format skips detection when set.
	Format model.Format
	// MarkProcessed moves each successful file into processed/ beside it.
	MarkProcessed bool
	// LogPath is the import log CSV; empty disables it.
	LogPath string
	Metrics *metrics.Recorder

	now func() time.Time
}

// NewBatch returns a batch importer writing to sink.
func NewBatch(reg *Registry, sink Sink) *Batch {
	return &Batch{
		Registry: reg,
		Sink:     sink,
		now:      time.Now,
	}
}

// ImportFiles imports every path in order. The returned error is non-nil
// only when ctx is cancelled; per-file failures land in Result.Errors.
func (b *Batch) ImportFiles(ctx context.Context, paths []string) (*Result, error) {
	res := &Result{BatchID: uuid.NewString()}
	log := logger.FromContext(ctx).With().Str("batch", res.BatchID).Logger()

	var entries []importlog.Entry
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			b.appendLog(log, entries)
			return res, err
		}

		fr := b.importFile(ctx, log, res.BatchID, path)
		res.Files = append(res.Files, fr)
		entries = append(entries, importlog.Entry{
			Timestamp:  b.now(),
			Batch:      res.BatchID,
			File:       fr.File,
			Format:     fr.Format,
			Imported:   fr.Imported,
			Duplicates: fr.Duplicates,
			Error:      fr.Err,
		})

		if fr.Err != "" {
			res.Errors = append(res.Errors, FileError{File: fr.File, Message: fr.Err})
			b.Metrics.FileImported(fr.Format, metrics.StatusFailed)
			continue
		}
		res.FilesProcessed++
		res.Imported += fr.Imported
		res.Duplicates += fr.Duplicates
		b.Metrics.FileImported(fr.Format, metrics.StatusOK)
	}

	b.appendLog(log, entries)
	log.Info().
		Int("files", res.FilesProcessed).
		Int("failed", len(res.Errors)).
		Int("imported", res.Imported).
		Int("duplicates", res.Duplicates).
		Msg("import finished")
	return res, nil
}

func (b *Batch) importFile(ctx context.Context, log zerolog.Logger, batchID, path string) FileResult {
	name := filepath.Base(path)
	fr := FileResult{File: name, Format: b.Format}
	log = log.With().Str("file", name).Logger()

	parsed, err := b.Registry.ParseFile(path, b.Format)
	if err != nil {
		log.Warn().Err(err).Msg("file rejected")
		fr.Err = err.Error()
		return fr
	}
	fr.Format = parsed.Format
	fr.Rows = parsed.Rows
	fr.Skipped = parsed.Skipped
	b.Metrics.RowsSkipped(parsed.Format, parsed.Skipped)

	txns := parsed.Transactions
	for i := range txns {
		txns[i].SourceFile = name
		txns[i].ImportBatch = batchID
	}

	if len(txns) > 0 {
		n, err := b.Sink.InsertBulk(ctx, txns)
		if err != nil {
			log.Error().Err(err).Msg("storing transactions")
			fr.Err = fmt.Sprintf("storing transactions: %v", err)
			return fr
		}
		fr.Imported = n
		fr.Duplicates = len(txns) - n
		b.Metrics.TransactionsImported(txns[0].AccountType, n)
		b.Metrics.Duplicates(fr.Duplicates)
	}

	if b.MarkProcessed {
		if err := MarkProcessed(filepath.Dir(path), name); err != nil {
			log.Warn().Err(err).Msg("could not move file to processed")
		}
	}

	log.Debug().
		Str("format", string(fr.Format)).
		Int("rows", fr.Rows).
		Int("skipped", fr.Skipped).
		Int("imported", fr.Imported).
		Int("duplicates", fr.Duplicates).
		Msg("file imported")
	return fr
}

func (b *Batch) appendLog(log zerolog.Logger, entries []importlog.Entry) {
	if b.LogPath == "" || len(entries) == 0 {
		return
	}
	if err := importlog.Append(b.LogPath, entries); err != nil {
		log.Warn().Err(err).Str("path", b.LogPath).Msg("could not write import log")
	}
}
