package importer

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cleared-dev/txray/internal/model"
)

const utf8BOM = "\ufeff"

// headerRule selects a format when the header contains every marker.
type headerRule struct {
	format  model.Format
	markers []string
}

// Evaluated in order; the first match wins.
var headerRules = []headerRule{
	{format: model.FormatAmex, markers: []string{"Card Member", "Account #"}},
	{format: model.FormatApple, markers: []string{"Transaction Date", "Clearing Date"}},
	{format: model.FormatChecking, markers: []string{"Withdrawal", "Deposit"}},
}

// DetectFormat identifies the source format from a file's header line.
func DetectFormat(header string) (model.Format, error) {
	header = strings.TrimSpace(strings.TrimPrefix(header, utf8BOM))
	for _, r := range headerRules {
		if containsAll(header, r.markers) {
			return r.format, nil
		}
	}
	return "", &FormatDetectionError{Header: header}
}

func containsAll(s string, subs []string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}

// DetectFile reads the first line of path and detects its format.
func DetectFile(path string) (model.Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	header, err := readHeaderLine(bufio.NewReader(f))
	if err != nil {
		return "", fmt.Errorf("reading header of %s: %w", path, err)
	}
	return DetectFormat(header)
}

// readHeaderLine returns the first line of r including its terminator.
// An empty file yields an empty header rather than an error.
func readHeaderLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return line, nil
}
