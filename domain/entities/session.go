package entities

import "time"

// SessionState is the position of a run in the scrape state machine
type SessionState string

const (
	StateInit              SessionState = "init"
	StateCapturingOriginal SessionState = "capturing_original"
	StateLooping           SessionState = "looping"
	StateDone              SessionState = "done"
)

// ScrapeSession holds the per-run traversal state. It is discarded once the report is flushed.
type ScrapeSession struct {
	ID                string
	State             SessionState
	OriginalSignature string
	HasLeftStart      bool
	Records           []InvoiceRecord

	seen map[string]struct{}
}

// NewScrapeSession creates an empty session in the init state
func NewScrapeSession(id string) *ScrapeSession {
	return &ScrapeSession{
		ID:      id,
		State:   StateInit,
		Records: make([]InvoiceRecord, 0),
		seen:    make(map[string]struct{}),
	}
}

// Seen reports whether the exact content was already captured
func (s *ScrapeSession) Seen(content string) bool {
	_, ok := s.seen[content]
	return ok
}

// MarkSeen remembers content for de-duplication
func (s *ScrapeSession) MarkSeen(content string) {
	s.seen[content] = struct{}{}
}

// SeenCount returns the number of distinct captures remembered
func (s *ScrapeSession) SeenCount() int {
	return len(s.seen)
}

// RunPlan describes the input a run is about to simulate
type RunPlan struct {
	RowCount   int     `json:"row_count"`
	ClickCount int     `json:"click_count"`
	Anchor     Point   `json:"anchor"`
	Spacing    float64 `json:"spacing"`
}

// RunResult summarises a finished run
type RunResult struct {
	SessionID   string          `json:"session_id"`
	ClickCount  int             `json:"click_count"`
	Iterations  int             `json:"iterations"`
	Skipped     int             `json:"skipped"`    // tabs whose capture failed
	Duplicates  int             `json:"duplicates"` // captures already seen
	Records     []InvoiceRecord `json:"records"`
	ReportPath  string          `json:"report_path,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt time.Time       `json:"completed_at"`
}
