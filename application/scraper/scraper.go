// Package scraper drives the traversal of opened invoice tabs: it captures each page,
// detects the return to the starting page, de-duplicates captures and flushes the report.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"invoice_automation/application/invoice"
	"invoice_automation/domain/entities"
	"invoice_automation/domain/interfaces"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidRowCount  = errors.New("row count must be positive")
	ErrNothingExtracted = errors.New("no unique invoice data was extracted")
	ErrIterationLimit   = errors.New("iteration limit reached before returning to the original page")
	ErrNoOriginalPage   = errors.New("original page could not be captured")
)

// Wiggle navigation: forward three, back two.
const (
	wiggleForward = 3
	wiggleBack    = 2
)

type Scraper struct {
	actuator interfaces.Actuator
	store    interfaces.ReportStore
	guard    interfaces.RunGuard
	parser   *invoice.Parser
	settings entities.Settings
	logger   logrus.FieldLogger

	sleep func(time.Duration)
	newID func() string
	now   func() time.Time
}

// Option customises a Scraper
type Option func(*Scraper)

// WithGuard reviews every run plan before input is simulated
func WithGuard(guard interfaces.RunGuard) Option {
	return func(s *Scraper) { s.guard = guard }
}

// WithSleep replaces the blocking delay used inside capture and navigation bursts
func WithSleep(sleep func(time.Duration)) Option {
	return func(s *Scraper) { s.sleep = sleep }
}

// WithSessionID replaces the session id generator
func WithSessionID(newID func() string) Option {
	return func(s *Scraper) { s.newID = newID }
}

// New - creates new scraper instance
func New(actuator interfaces.Actuator, store interfaces.ReportStore, settings entities.Settings, logger logrus.FieldLogger, opts ...Option) *Scraper {
	s := &Scraper{
		actuator: actuator,
		store:    store,
		parser:   invoice.NewParser(logger),
		settings: settings,
		logger:   logger,
		sleep:    time.Sleep,
		newID:    uuid.NewString,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ClickCount returns rows plus a 15% overscan, rounded up
func ClickCount(rows int) int {
	return (rows*115 + 99) / 100
}

// Run executes one complete automation run for rowCount list rows.
// Records collected before a cancellation or failure are still written to the report.
func (s *Scraper) Run(ctx context.Context, rowCount int) (*entities.RunResult, error) {
	if rowCount <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRowCount, rowCount)
	}

	session := entities.NewScrapeSession(s.newID())
	log := s.logger.WithField("session", session.ID)
	result := &entities.RunResult{
		SessionID: session.ID,
		StartedAt: s.now(),
	}

	plan := entities.RunPlan{
		RowCount:   rowCount,
		ClickCount: ClickCount(rowCount),
		Anchor:     s.settings.Anchor(),
		Spacing:    s.settings.VerticalSpacing,
	}
	result.ClickCount = plan.ClickCount

	if s.guard != nil {
		if err := s.guard.Review(ctx, plan); err != nil {
			return result, err
		}
	}

	log.WithFields(logrus.Fields{
		"rows":   plan.RowCount,
		"clicks": plan.ClickCount,
	}).Info("Performing click batch (+15% buffer)")
	if err := s.actuator.ClickBatch(ctx, plan.ClickCount, plan.Anchor, plan.Spacing); err != nil {
		return result, fmt.Errorf("failed to perform click batch: %w", err)
	}

	session.State = entities.StateCapturingOriginal
	if err := s.wait(ctx, s.settings.SettleDelay()); err != nil {
		return result, fmt.Errorf("scrape canceled: %w", err)
	}
	original, err := s.captureOriginal(ctx, log)
	if err != nil {
		return result, err
	}
	session.OriginalSignature = original
	log.WithField("chars", utf8.RuneCountInString(session.OriginalSignature)).Info("Original page captured")

	if s.settings.PreloadTabs {
		if err := s.preload(ctx, plan.ClickCount, log); err != nil {
			return result, fmt.Errorf("failed to preload tabs: %w", err)
		}
	}

	session.State = entities.StateLooping
	loopErr := s.loop(ctx, session, result, log)
	session.State = entities.StateDone

	return s.finish(session, result, loopErr, log)
}

func (s *Scraper) loop(ctx context.Context, session *entities.ScrapeSession, result *entities.RunResult, log logrus.FieldLogger) error {
	for iteration := 1; ; iteration++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("scrape canceled: %w", ctx.Err())
		default:
		}

		if s.settings.MaxIterations > 0 && iteration > s.settings.MaxIterations {
			return fmt.Errorf("%w (%d)", ErrIterationLimit, s.settings.MaxIterations)
		}
		result.Iterations = iteration
		tabLog := log.WithField("tab", iteration)
		tabLog.Debug("Processing tab")

		if err := s.wait(ctx, s.settings.PageLoadWait()); err != nil {
			return fmt.Errorf("scrape canceled: %w", err)
		}

		content := s.captureWithRetries(ctx, session.OriginalSignature, tabLog)
		if content == "" {
			result.Skipped++
			tabLog.Warn("Failed to capture content after retries, skipping tab")
		}

		if content == session.OriginalSignature {
			if session.HasLeftStart {
				tabLog.Info("Loop complete: returned to original page")
				return nil
			}
			tabLog.Debug("Content matches original page before leaving it, continuing")
		} else {
			session.HasLeftStart = true
			s.record(session, result, content, tabLog)
		}

		if err := s.advance(ctx); err != nil {
			return fmt.Errorf("failed to navigate to next tab: %w", err)
		}
	}
}

// record parses content unless it is empty or was captured before
func (s *Scraper) record(session *entities.ScrapeSession, result *entities.RunResult, content string, log logrus.FieldLogger) {
	if content == "" {
		return
	}
	if session.Seen(content) {
		result.Duplicates++
		log.Info("Duplicate page, skipping")
		return
	}
	session.MarkSeen(content)

	record := s.parser.Parse(content)
	session.Records = append(session.Records, record)
	log.WithFields(logrus.Fields{
		"invoice": record.InvoiceNumber,
		"status":  record.Status,
	}).Info("Extracted invoice")
}

// captureWithRetries copies the focused page until it looks fully rendered.
// Cancellation is not observed here so a clipboard read is never abandoned halfway.
func (s *Scraper) captureWithRetries(ctx context.Context, original string, log logrus.FieldLogger) string {
	delays := s.settings.RetryDelays()
	for attempt := 0; attempt <= len(delays); attempt++ {
		content, err := s.actuator.CaptureFocusedText(ctx)
		if err != nil {
			log.WithError(err).Warn("Capture failed")
		}
		content = strings.TrimSpace(content)

		if content == original || s.loaded(content) {
			return content
		}

		if attempt < len(delays) {
			log.WithFields(logrus.Fields{
				"attempt": attempt + 1,
				"of":      len(delays),
				"delay":   delays[attempt],
			}).Info("Page not fully loaded, retrying")
			s.sleep(delays[attempt])
		}
	}
	return ""
}

// captureOriginal copies the starting page, retrying while the copy comes back empty.
// An empty starting page would be indistinguishable from a failed capture later on.
func (s *Scraper) captureOriginal(ctx context.Context, log logrus.FieldLogger) (string, error) {
	delays := s.settings.RetryDelays()
	var lastErr error
	for attempt := 0; attempt <= len(delays); attempt++ {
		content, err := s.actuator.CaptureFocusedText(ctx)
		if err != nil {
			lastErr = err
			log.WithError(err).Warn("Original page capture failed")
		}
		if content = strings.TrimSpace(content); content != "" {
			return content, nil
		}

		if attempt < len(delays) {
			log.WithField("delay", delays[attempt]).Info("Original page empty, retrying")
			s.sleep(delays[attempt])
		}
	}

	if lastErr != nil {
		return "", fmt.Errorf("%w: %v", ErrNoOriginalPage, lastErr)
	}
	return "", ErrNoOriginalPage
}

// loaded reports whether content passes the partial-load heuristic
func (s *Scraper) loaded(content string) bool {
	if content == "" {
		return false
	}
	if utf8.RuneCountInString(content) < s.settings.MinContentChars {
		return false
	}
	return strings.Count(content, "\n") >= s.settings.MinContentLines
}

// advance moves focus to the next tab with a forward-three, back-two wiggle so
// the upcoming tabs start rendering before they are visited
func (s *Scraper) advance(ctx context.Context) error {
	for i := 0; i < wiggleForward; i++ {
		if err := s.actuator.NextTab(ctx); err != nil {
			return err
		}
		s.sleep(s.settings.WiggleDelay())
	}
	for i := 0; i < wiggleBack; i++ {
		if err := s.actuator.PreviousTab(ctx); err != nil {
			return err
		}
		s.sleep(s.settings.WiggleDelay())
	}
	return nil
}

// preload visits every opened tab once and comes back to the starting tab
func (s *Scraper) preload(ctx context.Context, count int, log logrus.FieldLogger) error {
	log.WithField("tabs", count).Info("Cycling through tabs to trigger loading")
	for i := 0; i < count; i++ {
		if err := s.actuator.NextTab(ctx); err != nil {
			return err
		}
		s.sleep(s.settings.WiggleDelay())
	}
	for i := 0; i < count; i++ {
		if err := s.actuator.PreviousTab(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scraper) finish(session *entities.ScrapeSession, result *entities.RunResult, loopErr error, log logrus.FieldLogger) (*entities.RunResult, error) {
	result.Records = session.Records
	result.CompletedAt = s.now()

	if len(session.Records) == 0 {
		if loopErr != nil {
			return result, loopErr
		}
		log.Warn("No unique data was extracted")
		return result, ErrNothingExtracted
	}

	path, err := s.store.WriteReport(session.Records)
	if err != nil {
		if loopErr != nil {
			return result, fmt.Errorf("%w (report not written: %v)", loopErr, err)
		}
		return result, fmt.Errorf("failed to write report: %w", err)
	}
	result.ReportPath = path

	if err := s.store.SaveSnapshot(result); err != nil {
		log.WithError(err).Warn("Failed to save session snapshot")
	}

	if loopErr != nil {
		log.WithFields(logrus.Fields{
			"records": len(session.Records),
			"path":    path,
		}).Warn("Run interrupted, partial report saved")
		return result, loopErr
	}

	log.WithFields(logrus.Fields{
		"records":    len(session.Records),
		"duplicates": result.Duplicates,
		"skipped":    result.Skipped,
		"path":       path,
	}).Info("SUCCESS! Data saved")
	return result, nil
}

// wait blocks for d unless ctx is canceled first
func (s *Scraper) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
