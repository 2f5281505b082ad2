package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"invoice_automation/application/calibration"
	"invoice_automation/application/invoice"
	"invoice_automation/application/scraper"
	"invoice_automation/domain/entities"
	"invoice_automation/domain/interfaces"
	"invoice_automation/infrastructure/security"
	"invoice_automation/infrastructure/storage"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

// ErrCancelled is returned when the operator backs out of a prompt
var ErrCancelled = errors.New("cancelled by operator")

// SessionFactory opens the browser the run is driven through
type SessionFactory func(settings entities.Settings) (interfaces.BrowserSession, error)

type TerminalInterface struct {
	store    interfaces.SettingsStore
	settings entities.Settings
	open     SessionFactory
	session  interfaces.BrowserSession
	logger   *logrus.Logger
	reader   *bufio.Reader
	out      io.Writer

	scraperOpts []scraper.Option
}

// NewTerminalInterface - creates new operator terminal. The browser is opened on first use.
func NewTerminalInterface(store interfaces.SettingsStore, open SessionFactory, logger *logrus.Logger, in io.Reader, out io.Writer) *TerminalInterface {
	return &TerminalInterface{
		store:    store,
		settings: store.Load(),
		open:     open,
		logger:   logger,
		reader:   bufio.NewReader(in),
		out:      out,
	}
}

// Settings returns the settings the next run will use
func (t *TerminalInterface) Settings() entities.Settings {
	return t.settings
}

func (t *TerminalInterface) Run(ctx context.Context) error {
	title := color.New(color.FgCyan, color.Bold)
	title.Fprintln(t.out, "Invoice Scraper")
	title.Fprintln(t.out, "===============")
	fmt.Fprintln(t.out, "Commands: start [rows], calibrate, rows N, settings, quit")
	fmt.Fprintln(t.out)

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		fmt.Fprint(t.out, "> ")
		input, err := t.reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		fields := strings.Fields(strings.TrimSpace(input))
		if len(fields) == 0 {
			continue
		}

		switch strings.ToLower(fields[0]) {
		case "quit", "exit", "q":
			fmt.Fprintln(t.out, "Bye!")
			return nil
		case "start", "s", "run":
			rows := 0
			if len(fields) > 1 {
				rows, err = strconv.Atoi(fields[1])
				if err != nil {
					color.New(color.FgYellow).Fprintf(t.out, "Invalid row count %q\n", fields[1])
					continue
				}
			}
			if _, err := t.StartRun(ctx, rows); err != nil && !errors.Is(err, ErrCancelled) {
				color.New(color.FgRed).Fprintf(t.out, "\nRun failed: %v\n\n", err)
			}
		case "calibrate", "c":
			if err := t.Calibrate(ctx); err != nil {
				color.New(color.FgRed).Fprintf(t.out, "\nCalibration failed: %v\n\n", err)
			}
		case "rows":
			if len(fields) < 2 {
				fmt.Fprintf(t.out, "Rows to process: %d\n", t.settings.RowCount)
				continue
			}
			if err := t.SetRowCount(fields[1]); err != nil {
				color.New(color.FgYellow).Fprintf(t.out, "%v\n", err)
			}
		case "settings":
			t.printSettings()
		default:
			fmt.Fprintf(t.out, "Unknown command %q\n", fields[0])
		}
	}
}

// StartRun executes one automation run. A non-positive rows value prompts for the count.
func (t *TerminalInterface) StartRun(ctx context.Context, rows int) (*entities.RunResult, error) {
	if rows <= 0 {
		var ok bool
		rows, ok = t.promptRows(t.settings.RowCount)
		if !ok {
			fmt.Fprintln(t.out, "Run cancelled.")
			return nil, ErrCancelled
		}
	}

	session, err := t.browser()
	if err != nil {
		return nil, err
	}

	guard := security.NewRunGuard(t.logger, t.settings.ConfirmClickThreshold, t.approve)
	reports := storage.NewReportStore(t.settings.OutputFile, t.settings.SnapshotFile, invoice.FormatReport)
	opts := append([]scraper.Option{scraper.WithGuard(guard)}, t.scraperOpts...)
	s := scraper.New(session, reports, t.settings, t.logger, opts...)

	fmt.Fprintf(t.out, "\nStarting run over %d rows (%d clicks). Keep the list page focused.\n\n", rows, scraper.ClickCount(rows))
	result, err := s.Run(ctx, rows)
	if result != nil && result.ReportPath != "" {
		t.printResult(result, err)
	}
	if err != nil {
		if errors.Is(err, scraper.ErrNothingExtracted) {
			color.New(color.FgYellow).Fprintln(t.out, "\nNo unique data was extracted.")
		}
		return result, err
	}
	return result, nil
}

// Calibrate walks the operator through capturing the first two list rows
func (t *TerminalInterface) Calibrate(ctx context.Context) error {
	session, err := t.browser()
	if err != nil {
		return err
	}

	prompt := color.New(color.FgCyan)
	calibrator := calibration.NewCalibrator(session, t.store, t.logger)
	updated, err := calibrator.Calibrate(ctx, t.settings, func(step int, message string) {
		prompt.Fprintf(t.out, "\nStep %d: %s\n", step, message)
	})
	if err != nil {
		return err
	}
	t.settings = updated

	color.New(color.FgGreen).Fprintf(t.out, "\nCalibrated: first row at (%.1f, %.1f), spacing %.1f px\n\n",
		updated.StartX, updated.StartY, updated.VerticalSpacing)
	return nil
}

// SetRowCount validates and saves a new default row count
func (t *TerminalInterface) SetRowCount(value string) error {
	rows, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || rows <= 0 {
		return fmt.Errorf("row count must be a positive number, got %q", value)
	}

	updated := t.settings
	updated.RowCount = rows
	if err := t.store.Save(updated); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	t.settings = updated
	fmt.Fprintf(t.out, "Default rows set to %d\n", rows)
	return nil
}

// promptRows asks for the row count. Empty input keeps the default, q cancels.
func (t *TerminalInterface) promptRows(def int) (int, bool) {
	fmt.Fprintf(t.out, "Enter rows to process (Default %d, q to cancel): ", def)
	input, err := t.reader.ReadString('\n')
	if err != nil && input == "" {
		return 0, false
	}

	input = strings.TrimSpace(input)
	switch strings.ToLower(input) {
	case "":
		return def, true
	case "q", "quit":
		return 0, false
	}

	rows, err := strconv.Atoi(input)
	if err != nil || rows <= 0 {
		fmt.Fprintln(t.out, "Invalid input, using default.")
		return def, true
	}
	return rows, true
}

// approve asks the operator to confirm a large click batch
func (t *TerminalInterface) approve(plan entities.RunPlan) bool {
	color.New(color.FgYellow).Fprintf(t.out,
		"\nThis run will click %d rows starting at (%.1f, %.1f). Continue? (y/N): ",
		plan.ClickCount, plan.Anchor.X, plan.Anchor.Y)

	response, _ := t.reader.ReadString('\n')
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}

func (t *TerminalInterface) browser() (interfaces.BrowserSession, error) {
	if t.session != nil {
		return t.session, nil
	}

	session, err := t.open(t.settings)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize browser: %w", err)
	}
	t.session = session
	return session, nil
}

func (t *TerminalInterface) printResult(result *entities.RunResult, runErr error) {
	if runErr != nil {
		color.New(color.FgYellow, color.Bold).Fprintf(t.out, "\nRun interrupted, partial report saved to:\n%s\n", result.ReportPath)
	} else {
		color.New(color.FgGreen, color.Bold).Fprintf(t.out, "\nSUCCESS! Data saved to:\n%s\n", result.ReportPath)
	}
	fmt.Fprintf(t.out, "Invoices: %d  Duplicates: %d  Skipped: %d  Iterations: %d\n\n",
		len(result.Records), result.Duplicates, result.Skipped, result.Iterations)
	if runErr == nil {
		// Audible completion cue
		fmt.Fprint(t.out, "\a")
	}
}

func (t *TerminalInterface) printSettings() {
	s := t.settings
	fmt.Fprintf(t.out, "First row:      (%.1f, %.1f)\n", s.StartX, s.StartY)
	fmt.Fprintf(t.out, "Row spacing:    %.1f px\n", s.VerticalSpacing)
	fmt.Fprintf(t.out, "Rows:           %d\n", s.RowCount)
	fmt.Fprintf(t.out, "Report:         %s\n", s.OutputFile)
	fmt.Fprintf(t.out, "Browser:        %s\n", s.Browser)
	if s.ExtraFilePath != "" {
		fmt.Fprintf(t.out, "Extra file:     %s\n", s.ExtraFilePath)
	}
}

func (t *TerminalInterface) Close() error {
	if t.session == nil {
		return nil
	}
	err := t.session.Close()
	t.session = nil
	return err
}
