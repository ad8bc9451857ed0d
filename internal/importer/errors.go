package importer

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownFormat matches any FormatDetectionError.
	ErrUnknownFormat = errors.New("unknown CSV format")
	// ErrMissingColumn matches any RowMappingError.
	ErrMissingColumn = errors.New("missing required column")
)

// FormatDetectionError reports a header no detector recognized.
type FormatDetectionError struct {
	Header string
}

func (e *FormatDetectionError) Error() string {
	return fmt.Sprintf("unknown CSV format, header: %s", e.Header)
}

func (e *FormatDetectionError) Unwrap() error { return ErrUnknownFormat }

// RowMappingError reports a row lacking a column its mapper requires.
// Row is the 1-based record number counting the header.
type RowMappingError struct {
	Row    int
	Column string
}

func (e *RowMappingError) Error() string {
	if e.Row == 0 {
		return fmt.Sprintf("missing required column %q", e.Column)
	}
	return fmt.Sprintf("row %d: missing required column %q", e.Row, e.Column)
}

func (e *RowMappingError) Unwrap() error { return ErrMissingColumn }
