package terminal

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"invoice_automation/application/scraper"
	"invoice_automation/domain/entities"
	"invoice_automation/domain/interfaces"
	"invoice_automation/infrastructure/security"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listPage = "Invoices\nAll invoices\nCustomer list"

func invoicePage(number string) string {
	return "Paid\nSummary\nInvoice number\n" + number + "\nBilled to\nAcme Corp\n"
}

type fakeSession struct {
	navErr   error
	captures []string
	captured int
	clicks   []int
	points   []entities.Point
	closed   bool
}

func (f *fakeSession) ClickBatch(ctx context.Context, count int, anchor entities.Point, spacing float64) error {
	f.clicks = append(f.clicks, count)
	return nil
}

func (f *fakeSession) CaptureFocusedText(ctx context.Context) (string, error) {
	i := f.captured
	if i >= len(f.captures) {
		i = len(f.captures) - 1
	}
	f.captured++
	return f.captures[i], nil
}

func (f *fakeSession) NextTab(ctx context.Context) error     { return f.navErr }
func (f *fakeSession) PreviousTab(ctx context.Context) error { return nil }

func (f *fakeSession) CapturePointer(ctx context.Context) (entities.Point, error) {
	p := f.points[0]
	f.points = f.points[1:]
	return p, nil
}

func (f *fakeSession) Close() error {
	f.closed = true
	return nil
}

type memoryStore struct {
	settings entities.Settings
	saves    int
}

func (m *memoryStore) Load() entities.Settings { return m.settings }

func (m *memoryStore) Save(s entities.Settings) error {
	m.settings = s
	m.saves++
	return nil
}

func testSettings(dir string) entities.Settings {
	s := entities.DefaultSettings()
	s.StartX, s.StartY = 400, 300
	s.RowCount = 2
	s.OutputFile = filepath.Join(dir, "extracted_data.csv")
	s.SnapshotFile = filepath.Join(dir, "extracted_data.json")
	s.PageLoadWaitMs = 0
	s.SettleDelayMs = 0
	s.WiggleDelayMs = 0
	s.MinContentChars = 0
	s.MinContentLines = 0
	return s
}

func newTestTerminal(t *testing.T, input string, store *memoryStore, session *fakeSession) (*TerminalInterface, *bytes.Buffer, *int) {
	t.Helper()
	color.NoColor = true

	logger, _ := test.NewNullLogger()
	out := &bytes.Buffer{}
	opened := 0
	open := func(entities.Settings) (interfaces.BrowserSession, error) {
		opened++
		return session, nil
	}

	term := NewTerminalInterface(store, open, logger, strings.NewReader(input), out)
	term.scraperOpts = []scraper.Option{scraper.WithSleep(func(time.Duration) {})}
	return term, out, &opened
}

func TestPromptRows(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   int
		wantOK bool
	}{
		{"empty keeps default", "\n", 20, true},
		{"number", "7\n", 7, true},
		{"invalid falls back", "abc\n", 20, true},
		{"negative falls back", "-3\n", 20, true},
		{"q cancels", "q\n", 0, false},
		{"quit cancels", "QUIT\n", 0, false},
		{"closed input cancels", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			term, _, _ := newTestTerminal(t, tt.input, &memoryStore{settings: entities.DefaultSettings()}, &fakeSession{})
			got, ok := term.promptRows(20)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStartRun_CancelledBeforeInput(t *testing.T) {
	session := &fakeSession{}
	term, out, opened := newTestTerminal(t, "q\n", &memoryStore{settings: testSettings(t.TempDir())}, session)

	_, err := term.StartRun(context.Background(), 0)

	assert.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, 0, *opened)
	assert.Empty(t, session.clicks)
	assert.Contains(t, out.String(), "Run cancelled.")
}

func TestStartRun_WritesReport(t *testing.T) {
	dir := t.TempDir()
	session := &fakeSession{captures: []string{
		listPage,
		invoicePage("INV-0001"),
		invoicePage("INV-0002"),
		invoicePage("INV-0001"),
		listPage,
	}}
	term, out, _ := newTestTerminal(t, "\n", &memoryStore{settings: testSettings(dir)}, session)

	result, err := term.StartRun(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, []int{3}, session.clicks)
	require.Len(t, result.Records, 2)
	assert.Equal(t, 1, result.Duplicates)

	data, err := os.ReadFile(filepath.Join(dir, "extracted_data.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "INV-0001")
	assert.Contains(t, string(data), "INV-0002")
	assert.FileExists(t, filepath.Join(dir, "extracted_data.json"))
	assert.Contains(t, out.String(), "SUCCESS! Data saved to:")
	assert.Contains(t, out.String(), "\a")
}

func TestStartRun_PartialReportBanner(t *testing.T) {
	dir := t.TempDir()
	session := &fakeSession{
		navErr:   errors.New("tab went away"),
		captures: []string{listPage, invoicePage("INV-0001")},
	}
	term, out, _ := newTestTerminal(t, "", &memoryStore{settings: testSettings(dir)}, session)

	result, err := term.StartRun(context.Background(), 2)

	require.Error(t, err)
	require.Len(t, result.Records, 1)
	assert.FileExists(t, filepath.Join(dir, "extracted_data.csv"))
	assert.Contains(t, out.String(), "Run interrupted, partial report saved to:")
	assert.NotContains(t, out.String(), "SUCCESS!")
	assert.NotContains(t, out.String(), "\a")
}

func TestStartRun_LargeBatchNeedsApproval(t *testing.T) {
	settings := testSettings(t.TempDir())
	settings.ConfirmClickThreshold = 2
	session := &fakeSession{captures: []string{listPage}}
	term, out, _ := newTestTerminal(t, "n\n", &memoryStore{settings: settings}, session)

	_, err := term.StartRun(context.Background(), 5)

	assert.ErrorIs(t, err, security.ErrRunRejected)
	assert.Empty(t, session.clicks)
	assert.Contains(t, out.String(), "Continue? (y/N)")
}

func TestStartRun_NothingExtracted(t *testing.T) {
	// One blank tab (initial capture plus five retries), then back on the list page
	captures := []string{listPage, "", "", "", "", "", "", listPage}
	session := &fakeSession{captures: captures}
	settings := testSettings(t.TempDir())
	term, out, _ := newTestTerminal(t, "", &memoryStore{settings: settings}, session)

	result, err := term.StartRun(context.Background(), 1)

	assert.ErrorIs(t, err, scraper.ErrNothingExtracted)
	assert.Equal(t, 1, result.Skipped)
	assert.NoFileExists(t, settings.OutputFile)
	assert.Contains(t, out.String(), "No unique data was extracted.")
}

func TestCalibrate_UpdatesSettings(t *testing.T) {
	store := &memoryStore{settings: testSettings(t.TempDir())}
	session := &fakeSession{points: []entities.Point{{X: 120, Y: 240}, {X: 121, Y: 264}}}
	term, out, _ := newTestTerminal(t, "", store, session)

	require.NoError(t, term.Calibrate(context.Background()))

	assert.Equal(t, 120.0, term.Settings().StartX)
	assert.Equal(t, 240.0, term.Settings().StartY)
	assert.Equal(t, 24.0, term.Settings().VerticalSpacing)
	assert.Equal(t, 1, store.saves)
	assert.Contains(t, out.String(), "Step 1:")
	assert.Contains(t, out.String(), "Step 2:")
}

func TestSetRowCount(t *testing.T) {
	store := &memoryStore{settings: testSettings(t.TempDir())}
	term, _, _ := newTestTerminal(t, "", store, &fakeSession{})

	require.NoError(t, term.SetRowCount("45"))
	assert.Equal(t, 45, store.settings.RowCount)

	assert.Error(t, term.SetRowCount("0"))
	assert.Error(t, term.SetRowCount("many"))
	assert.Equal(t, 1, store.saves)
}

func TestRun_Commands(t *testing.T) {
	store := &memoryStore{settings: testSettings(t.TempDir())}
	session := &fakeSession{}
	term, out, opened := newTestTerminal(t, "rows 12\nsettings\nbogus\nquit\n", store, session)

	require.NoError(t, term.Run(context.Background()))
	require.NoError(t, term.Close())

	assert.Equal(t, 12, store.settings.RowCount)
	assert.Contains(t, out.String(), "Rows:           12")
	assert.Contains(t, out.String(), `Unknown command "bogus"`)
	assert.Contains(t, out.String(), "Bye!")
	assert.Equal(t, 0, *opened)
	assert.False(t, session.closed)
}

func TestRun_EndOfInput(t *testing.T) {
	term, _, _ := newTestTerminal(t, "", &memoryStore{settings: entities.DefaultSettings()}, &fakeSession{})
	assert.NoError(t, term.Run(context.Background()))
}
