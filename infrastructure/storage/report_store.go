package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"invoice_automation/domain/entities"
	"invoice_automation/domain/interfaces"
)

// Formatter renders records into report text
type Formatter func(records []entities.InvoiceRecord) string

type reportStore struct {
	reportPath   string
	snapshotPath string
	format       Formatter
}

// NewReportStore - creates report storage. An empty snapshotPath disables snapshots.
func NewReportStore(reportPath, snapshotPath string, format Formatter) interfaces.ReportStore {
	return &reportStore{
		reportPath:   reportPath,
		snapshotPath: snapshotPath,
		format:       format,
	}
}

// WriteReport - overwrites the report file and returns its absolute path
func (s *reportStore) WriteReport(records []entities.InvoiceRecord) (string, error) {
	if err := ensureDir(s.reportPath); err != nil {
		return "", err
	}
	if err := os.WriteFile(s.reportPath, []byte(s.format(records)), 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	abs, err := filepath.Abs(s.reportPath)
	if err != nil {
		return s.reportPath, nil
	}
	return abs, nil
}

// SaveSnapshot - saves the run result as JSON
func (s *reportStore) SaveSnapshot(result *entities.RunResult) error {
	if s.snapshotPath == "" {
		return nil
	}
	if err := ensureDir(s.snapshotPath); err != nil {
		return err
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.snapshotPath, data, 0644)
}

// LoadSnapshot - loads a run result saved by SaveSnapshot
func LoadSnapshot(path string) (*entities.RunResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var result entities.RunResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", path, err)
	}
	return &result, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}
