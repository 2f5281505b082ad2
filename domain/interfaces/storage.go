package interfaces

import "invoice_automation/domain/entities"

// ReportStore persists the results of a run
type ReportStore interface {
	// WriteReport overwrites the report file with the formatted records and returns its path
	WriteReport(records []entities.InvoiceRecord) (string, error)

	// SaveSnapshot stores the structured records of a run for later inspection
	SaveSnapshot(result *entities.RunResult) error
}

// SettingsStore loads and saves operator settings
type SettingsStore interface {
	// Load returns the stored settings, falling back to defaults
	Load() entities.Settings

	// Save persists settings
	Save(settings entities.Settings) error
}
