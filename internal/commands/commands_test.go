package commands_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/txray/internal/commands"
	"github.com/cleared-dev/txray/internal/config"
	"github.com/cleared-dev/txray/internal/importlog"
)

type result struct {
	out    string
	stderr string
}

func runTxray(t *testing.T, dir, stdin string, args ...string) (result, error) {
	t.Helper()
	var out, errOut bytes.Buffer

	cmd := commands.NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", filepath.Join(dir, "txray.yaml")}, args...))

	err := cmd.Execute()
	return result{out: out.String(), stderr: errOut.String()}, err
}

// newWorkspace runs init in a temp dir and copies the fixtures into import/.
func newWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	_, err := runTxray(t, dir, "", "init", dir)
	require.NoError(t, err)

	for _, name := range []string{"amex.csv", "apple_card.csv", "checking.csv"} {
		data, err := os.ReadFile(filepath.Join("..", "..", "testdata", name))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "import", name), data, 0o644))
	}
	return dir
}

func writeCSV(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestInit_CreatesStructure(t *testing.T) {
	dir := t.TempDir()
	res, err := runTxray(t, dir, "", "init", dir)
	require.NoError(t, err)
	assert.Contains(t, res.out, "Initialized txray workspace")

	for _, d := range []string{"import", filepath.Join("import", "processed"), "logs"} {
		info, err := os.Stat(filepath.Join(dir, d))
		require.NoError(t, err, "directory %s should exist", d)
		assert.True(t, info.IsDir(), "%s should be a directory", d)
	}

	data, err := os.ReadFile(filepath.Join(dir, "txray.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "driver: sqlite")
	assert.Contains(t, string(data), "dedupe: true")

	data, err = os.ReadFile(filepath.Join(dir, ".gitignore"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "txray.db")
	assert.Contains(t, string(data), ".env")
}

func TestInit_RefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	_, err := runTxray(t, dir, "", "init", dir)
	require.NoError(t, err)

	_, err = runTxray(t, dir, "", "init", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = runTxray(t, dir, "", "init", dir, "--force")
	assert.NoError(t, err)
}

func TestImport_Directory(t *testing.T) {
	dir := newWorkspace(t)

	res, err := runTxray(t, dir, "", "import")
	require.NoError(t, err)
	assert.Contains(t, res.out, "Found 3 CSV files")
	assert.Contains(t, res.out, "amex.csv [amex]: 5 imported, 0 duplicates, 0 skipped")
	assert.Contains(t, res.out, "apple_card.csv [apple]: 5 imported")
	assert.Contains(t, res.out, "checking.csv [checking]: 4 imported, 0 duplicates, 2 skipped")
	assert.Contains(t, res.out, "Imported 14 transactions from 3 file(s)\n")
	assert.Contains(t, res.out, "Database now holds 14 transactions\n")

	res, err = runTxray(t, dir, "", "import", "--stats")
	require.NoError(t, err)
	assert.Contains(t, res.out, "Imported 0 transactions from 3 file(s), 14 duplicates skipped")
	assert.Contains(t, res.out, "Total transactions: 14")
	assert.Contains(t, res.out, "Top categories:")

	entries, err := importlog.Read(filepath.Join(dir, "logs", "import-log.csv"))
	require.NoError(t, err)
	assert.Len(t, entries, 6)
}

func TestImport_ExplicitFilesAndFormat(t *testing.T) {
	dir := newWorkspace(t)
	amex := filepath.Join(dir, "import", "amex.csv")

	res, err := runTxray(t, dir, "", "import", amex, filepath.Join(dir, "missing.csv"))
	require.NoError(t, err)
	assert.Contains(t, res.out, "missing.csv does not exist, skipping")
	assert.Contains(t, res.out, "Imported 5 transactions from 1 file(s)")

	res, err = runTxray(t, dir, "", "import", "--format", "checking", filepath.Join(dir, "import", "apple_card.csv"))
	require.NoError(t, err)
	assert.Contains(t, res.out, "apple_card.csv: error:")
	assert.Contains(t, res.out, "Errors:")
	assert.Contains(t, res.stderr, "file rejected")

	_, err = runTxray(t, dir, "", "import", "--format", "visa", amex)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func TestImport_NoFiles(t *testing.T) {
	dir := t.TempDir()
	_, err := runTxray(t, dir, "", "init", dir)
	require.NoError(t, err)

	_, err = runTxray(t, dir, "", "import")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no CSV files")

	_, err = runTxray(t, dir, "", "import", "--dir", filepath.Join(dir, "nope"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a valid directory")
}

func TestImport_Clear(t *testing.T) {
	dir := newWorkspace(t)
	_, err := runTxray(t, dir, "", "import")
	require.NoError(t, err)

	res, err := runTxray(t, dir, "no\n", "import", "--clear")
	require.NoError(t, err)
	assert.Contains(t, res.out, "Clear cancelled")

	res, err = runTxray(t, dir, "", "stats")
	require.NoError(t, err)
	assert.Contains(t, res.out, "Total transactions: 14")

	res, err = runTxray(t, dir, "", "import", "--clear", "--yes")
	require.NoError(t, err)
	assert.Contains(t, res.out, "Cleared 14 transactions")
	assert.Contains(t, res.out, "Imported 14 transactions")
}

func TestImport_MarkProcessed(t *testing.T) {
	dir := newWorkspace(t)

	_, err := runTxray(t, dir, "", "import", "--mark-processed")
	require.NoError(t, err)

	for _, name := range []string{"amex.csv", "apple_card.csv", "checking.csv"} {
		assert.NoFileExists(t, filepath.Join(dir, "import", name))
		assert.FileExists(t, filepath.Join(dir, "import", "processed", name))
	}
}

func TestImport_MetricsTextfile(t *testing.T) {
	dir := newWorkspace(t)
	prom := filepath.Join(dir, "metrics.prom")
	t.Setenv("TXRAY_METRICS_TEXTFILE", prom)

	_, err := runTxray(t, dir, "", "import")
	require.NoError(t, err)

	data, err := os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(data), `txray_files_imported_total{format="amex",status="ok"} 1`)
	assert.Contains(t, string(data), `txray_transactions_imported_total{account_type="Checking"} 4`)
}

func TestDetectFormat(t *testing.T) {
	dir := newWorkspace(t)

	res, err := runTxray(t, dir, "", "detect-format", filepath.Join(dir, "import", "apple_card.csv"))
	require.NoError(t, err)
	assert.Equal(t, "apple\n", res.out)

	bad := writeCSV(t, dir, "bad.csv", "foo,bar\n1,2\n")
	_, err = runTxray(t, dir, "", "detect-format", bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown CSV format")
	assert.Contains(t, err.Error(), "supported: amex, apple, checking")
}

func TestCategorizeAndMappings(t *testing.T) {
	dir := newWorkspace(t)

	res, err := runTxray(t, dir, "", "categorize", "STARBUCKS", "VIA", "ZELLE")
	require.NoError(t, err)
	assert.Equal(t, "Dining (keyword: starbucks)\n", res.out)

	res, err = runTxray(t, dir, "", "categorize", "CORNER HARDWARE 22")
	require.NoError(t, err)
	assert.Equal(t, "Other (fallback)\n", res.out)

	hardware := writeCSV(t, dir, "hardware.csv",
		"Date,Description,Withdrawal,Deposit,Balance\n2025-03-20,CORNER HARDWARE 22,42.10,,100.00\n")
	_, err = runTxray(t, dir, "", "import", hardware)
	require.NoError(t, err)

	res, err = runTxray(t, dir, "", "mappings", "add", "corner hardware", "Home", "--apply")
	require.NoError(t, err)
	assert.Contains(t, res.out, "Saved mapping 1: corner hardware -> Home")
	assert.Contains(t, res.out, "Recategorized 1 transactions")

	res, err = runTxray(t, dir, "", "categorize", "Corner Hardware #9")
	require.NoError(t, err)
	assert.Equal(t, "Home (learned: CORNER HARDWARE)\n", res.out)

	res, err = runTxray(t, dir, "", "mappings", "list")
	require.NoError(t, err)
	assert.Contains(t, res.out, "PATTERN")
	assert.Contains(t, res.out, "corner hardware")

	res, err = runTxray(t, dir, "", "mappings", "matches", "hardware")
	require.NoError(t, err)
	assert.Contains(t, res.out, "42.10")
	assert.Contains(t, res.out, "Home")

	_, err = runTxray(t, dir, "", "mappings", "delete", "1")
	require.NoError(t, err)

	_, err = runTxray(t, dir, "", "mappings", "delete", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	_, err = runTxray(t, dir, "", "mappings", "delete", "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid id")

	res, err = runTxray(t, dir, "", "mappings", "list")
	require.NoError(t, err)
	assert.Equal(t, "No mappings\n", res.out)
}

func TestCategorize_RulesFile(t *testing.T) {
	dir := t.TempDir()
	_, err := runTxray(t, dir, "", "init", dir)
	require.NoError(t, err)

	writeCSV(t, dir, "rules.yaml", "- category: Pets\n  keywords: [petco, chewy]\n")
	cfgPath := filepath.Join(dir, config.FileName)
	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	cfg.Categorize.RulesFile = "rules.yaml"
	require.NoError(t, config.Save(cfgPath, cfg))

	res, err := runTxray(t, dir, "", "categorize", "CHEWY.COM")
	require.NoError(t, err)
	assert.Equal(t, "Pets (keyword: chewy)\n", res.out)
}

func TestRecurring(t *testing.T) {
	dir := newWorkspace(t)
	spotify := writeCSV(t, dir, "spotify.csv", "Date,Description,Withdrawal,Deposit,Balance\n"+
		"2025-01-15,SPOTIFY USA,11.99,,100.00\n"+
		"2025-02-15,SPOTIFY USA,11.99,,88.01\n"+
		"2025-03-15,SPOTIFY USA,11.99,,76.02\n")

	_, err := runTxray(t, dir, "", "import", spotify)
	require.NoError(t, err)

	res, err := runTxray(t, dir, "", "recurring", "detect")
	require.NoError(t, err)
	assert.Equal(t, "Detected 1 recurring payments (1 new or changed)\n", res.out)

	res, err = runTxray(t, dir, "", "recurring", "list")
	require.NoError(t, err)
	assert.Contains(t, res.out, "SPOTIFY USA")
	assert.Contains(t, res.out, "monthly")
	assert.Contains(t, res.out, "$11.99")

	_, err = runTxray(t, dir, "", "recurring", "set", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to update")

	res, err = runTxray(t, dir, "", "recurring", "set", "1", "--active=false", "--notes", "family plan")
	require.NoError(t, err)
	assert.Equal(t, "Updated recurring 1: SPOTIFY USA active=false notes=\"family plan\"\n", res.out)

	res, err = runTxray(t, dir, "", "recurring", "list")
	require.NoError(t, err)
	assert.Equal(t, "No recurring payments\n", res.out)

	res, err = runTxray(t, dir, "", "recurring", "detect")
	require.NoError(t, err)
	assert.Equal(t, "Detected 1 recurring payments (0 new or changed)\n", res.out)

	res, err = runTxray(t, dir, "", "recurring", "list", "--all")
	require.NoError(t, err)
	assert.Contains(t, res.out, "family plan")
	assert.Contains(t, res.out, "false")

	_, err = runTxray(t, dir, "", "recurring", "delete", "1")
	require.NoError(t, err)

	_, err = runTxray(t, dir, "", "recurring", "delete", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestHistory(t *testing.T) {
	dir := newWorkspace(t)

	res, err := runTxray(t, dir, "", "history")
	require.NoError(t, err)
	assert.Equal(t, "No imports recorded\n", res.out)

	writeCSV(t, filepath.Join(dir, "import"), "mystery.csv", "foo,bar\n1,2\n")
	_, err = runTxray(t, dir, "", "import")
	require.NoError(t, err)

	res, err = runTxray(t, dir, "", "history")
	require.NoError(t, err)
	assert.Contains(t, res.out, "STATUS")
	assert.Contains(t, res.out, "amex.csv")
	assert.Contains(t, res.out, "mystery.csv")
	assert.Contains(t, res.out, "ok")
	assert.Contains(t, res.out, "failed: ")

	res, err = runTxray(t, dir, "", "history", "--failed")
	require.NoError(t, err)
	assert.Contains(t, res.out, "mystery.csv")
	assert.NotContains(t, res.out, "amex.csv")

	res, err = runTxray(t, dir, "", "history", "--limit", "1")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(res.out), "\n")
	assert.Len(t, lines, 2)
}

func TestStats_Empty(t *testing.T) {
	dir := t.TempDir()
	_, err := runTxray(t, dir, "", "init", dir)
	require.NoError(t, err)

	res, err := runTxray(t, dir, "", "stats")
	require.NoError(t, err)
	assert.Equal(t, "Total transactions: 0\n", res.out)
}

func TestInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "txray.yaml", "database:\n  driver: oracle\n")

	_, err := runTxray(t, dir, "", "stats")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}
