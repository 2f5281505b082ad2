package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"invoice_automation/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numbersFormatter(records []entities.InvoiceRecord) string {
	var b strings.Builder
	for _, r := range records {
		b.WriteString(r.InvoiceNumber + "\n")
	}
	return b.String()
}

func record(number string) entities.InvoiceRecord {
	r := entities.NewInvoiceRecord()
	r.InvoiceNumber = number
	return r
}

func TestWriteReport_OverwritesExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "extracted_data.csv")
	store := NewReportStore(path, "", numbersFormatter)

	_, err := store.WriteReport([]entities.InvoiceRecord{record("A-1"), record("B-2"), record("C-3")})
	require.NoError(t, err)

	written, err := store.WriteReport([]entities.InvoiceRecord{record("D-4")})
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(written))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "D-4\n", string(data))
}

func TestSnapshot_SaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	snapshot := filepath.Join(dir, "extracted_data.json")
	store := NewReportStore(filepath.Join(dir, "r.csv"), snapshot, numbersFormatter)

	result := &entities.RunResult{
		SessionID:  "abc",
		ClickCount: 23,
		Records:    []entities.InvoiceRecord{record("A-1")},
	}
	require.NoError(t, store.SaveSnapshot(result))

	loaded, err := LoadSnapshot(snapshot)
	require.NoError(t, err)
	assert.Equal(t, "abc", loaded.SessionID)
	assert.Equal(t, 23, loaded.ClickCount)
	require.Len(t, loaded.Records, 1)
	assert.Equal(t, "A-1", loaded.Records[0].InvoiceNumber)
}

func TestSnapshot_DisabledWithoutPath(t *testing.T) {
	store := NewReportStore(filepath.Join(t.TempDir(), "r.csv"), "", numbersFormatter)

	assert.NoError(t, store.SaveSnapshot(&entities.RunResult{}))
}

func TestLoadSnapshot_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0644))

	_, err := LoadSnapshot(path)
	assert.Error(t, err)
}
