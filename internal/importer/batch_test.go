package importer

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/txray/internal/importlog"
	"github.com/cleared-dev/txray/internal/logger"
	"github.com/cleared-dev/txray/internal/metrics"
	"github.com/cleared-dev/txray/internal/model"
)

type mockSink struct {
	mock.Mock
}

func (m *mockSink) InsertBulk(ctx context.Context, txns []model.Transaction) (int, error) {
	args := m.Called(ctx, txns)
	return args.Int(0), args.Error(1)
}

func forAccount(account model.AccountType) any {
	return mock.MatchedBy(func(txns []model.Transaction) bool {
		return len(txns) > 0 && txns[0].AccountType == account
	})
}

func copyFixture(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("../../testdata", name))
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestImportFiles_IsolatesFailures(t *testing.T) {
	dir := t.TempDir()
	amex := copyFixture(t, dir, "amex.csv")
	apple := copyFixture(t, dir, "apple_card.csv")
	checking := copyFixture(t, dir, "checking.csv")
	bad := filepath.Join(dir, "mystery.csv")
	require.NoError(t, os.WriteFile(bad, []byte("Foo,Bar\n1,2\n"), 0o644))

	sink := &mockSink{}
	sink.On("InsertBulk", mock.Anything, forAccount(model.AccountTypeAmex)).Return(5, nil)
	sink.On("InsertBulk", mock.Anything, forAccount(model.AccountTypeAppleCard)).Return(3, nil)
	sink.On("InsertBulk", mock.Anything, forAccount(model.AccountTypeChecking)).Return(4, nil)

	rec := metrics.New()
	b := NewBatch(testRegistry(t), sink)
	b.Metrics = rec
	b.LogPath = filepath.Join(dir, "logs", "import-log.csv")

	res, err := b.ImportFiles(context.Background(), []string{amex, bad, apple, checking})
	require.NoError(t, err)

	assert.NotEmpty(t, res.BatchID)
	assert.Equal(t, 3, res.FilesProcessed)
	assert.Equal(t, 12, res.Imported)
	assert.Equal(t, 2, res.Duplicates)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "mystery.csv", res.Errors[0].File)
	assert.Contains(t, res.Errors[0].Message, "unknown CSV format")

	require.Len(t, res.Files, 4)
	assert.Equal(t, model.FormatChecking, res.Files[3].Format)
	assert.Equal(t, 2, res.Files[3].Skipped)

	sink.AssertNumberOfCalls(t, "InsertBulk", 3)
	for _, call := range sink.Calls {
		txns := call.Arguments.Get(1).([]model.Transaction)
		for _, txn := range txns {
			assert.Equal(t, res.BatchID, txn.ImportBatch)
			assert.NotEmpty(t, txn.SourceFile)
		}
	}

	entries, err := importlog.Read(b.LogPath)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	assert.True(t, entries[1].Failed())
	assert.Equal(t, 3, entries[2].Imported)
	assert.Equal(t, 2, entries[2].Duplicates)

	prom := filepath.Join(dir, "txray.prom")
	require.NoError(t, rec.WriteTextfile(prom))
	data, err := os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# TYPE txray_files_imported_total counter")
	assert.Contains(t, string(data), "# TYPE txray_duplicates_total counter")
	assert.Contains(t, string(data), "# TYPE txray_rows_skipped_total counter")
}

func TestImportFiles_SinkErrorDoesNotStopBatch(t *testing.T) {
	dir := t.TempDir()
	amex := copyFixture(t, dir, "amex.csv")
	checking := copyFixture(t, dir, "checking.csv")

	sink := &mockSink{}
	sink.On("InsertBulk", mock.Anything, forAccount(model.AccountTypeAmex)).Return(0, errors.New("database is locked"))
	sink.On("InsertBulk", mock.Anything, forAccount(model.AccountTypeChecking)).Return(4, nil)

	res, err := NewBatch(testRegistry(t), sink).ImportFiles(context.Background(), []string{amex, checking})
	require.NoError(t, err)
	assert.Equal(t, 1, res.FilesProcessed)
	assert.Equal(t, 4, res.Imported)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "amex.csv", res.Errors[0].File)
	assert.Contains(t, res.Errors[0].Message, "database is locked")
}

func TestImportFiles_MarkProcessed(t *testing.T) {
	dir := t.TempDir()
	checking := copyFixture(t, dir, "checking.csv")
	bad := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte("nope\n"), 0o644))

	sink := &mockSink{}
	sink.On("InsertBulk", mock.Anything, mock.Anything).Return(4, nil)

	b := NewBatch(testRegistry(t), sink)
	b.MarkProcessed = true
	_, err := b.ImportFiles(context.Background(), []string{checking, bad})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "processed", "checking.csv"))
	assert.NoError(t, err)
	_, err = os.Stat(bad)
	assert.NoError(t, err, "failed files stay in place")
}

func TestImportFiles_FormatOverride(t *testing.T) {
	dir := t.TempDir()
	amex := copyFixture(t, dir, "amex.csv")

	b := NewBatch(testRegistry(t), &mockSink{})
	b.Format = model.FormatApple
	res, err := b.ImportFiles(context.Background(), []string{amex})
	require.NoError(t, err)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0].Message, "Transaction Date")
}

func TestImportFiles_EmptyFileSkipsSink(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(path, []byte("Date,Description,Withdrawal,Deposit\n"), 0o644))

	sink := &mockSink{}
	res, err := NewBatch(testRegistry(t), sink).ImportFiles(context.Background(), []string{path})
	require.NoError(t, err)
	assert.Equal(t, 1, res.FilesProcessed)
	assert.Zero(t, res.Imported)
	sink.AssertNotCalled(t, "InsertBulk", mock.Anything, mock.Anything)
}

func TestImportFiles_Cancelled(t *testing.T) {
	dir := t.TempDir()
	checking := copyFixture(t, dir, "checking.csv")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := NewBatch(testRegistry(t), &mockSink{}).ImportFiles(ctx, []string{checking})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, res.Files)
}

func TestImportFiles_LogsThroughContext(t *testing.T) {
	dir := t.TempDir()
	amex := copyFixture(t, dir, "amex.csv")
	bad := filepath.Join(dir, "mystery.csv")
	require.NoError(t, os.WriteFile(bad, []byte("Foo,Bar\n1,2\n"), 0o644))

	sink := &mockSink{}
	sink.On("InsertBulk", mock.Anything, forAccount(model.AccountTypeAmex)).Return(5, nil)

	buf := &bytes.Buffer{}
	ctx := logger.WithContext(context.Background(), logger.NewWithWriter(buf))

	res, err := NewBatch(testRegistry(t), sink).ImportFiles(ctx, []string{amex, bad})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "file rejected")
	assert.Contains(t, out, `"file":"mystery.csv"`)
	assert.Contains(t, out, "import finished")
	assert.Contains(t, out, `"batch":"`+res.BatchID+`"`)
}
