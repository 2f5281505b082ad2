package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"invoice_automation/domain/entities"
	"invoice_automation/domain/interfaces"

	"github.com/playwright-community/playwright-go"
	"github.com/sirupsen/logrus"
)

const browserStateDir = ".invoice_automation"
const browserStateFile = "state.json"

// Delay between the select-all and copy shortcuts and before reading the clipboard
const copySettleDelay = 150 * time.Millisecond

const clipboardScript = `() => navigator.clipboard.readText()`

const pointerScript = `
	() => new Promise(resolve => {
		document.addEventListener('click', e => {
			e.preventDefault();
			e.stopPropagation();
			resolve({ x: e.clientX, y: e.clientY });
		}, { once: true, capture: true });
	})
	`

const focusScript = `() => ({ visible: document.visibilityState === 'visible', focused: document.hasFocus() })`

var errNoTabs = errors.New("no open tabs")

// PlaywrightActuator drives a Chromium instance through playwright
type PlaywrightActuator struct {
	pw          *playwright.Playwright
	browser     playwright.Browser
	context     playwright.BrowserContext
	storagePath string
	pages       []playwright.Page
	current     int
	pagesMutex  sync.Mutex
	humanizer   *Humanizer
	logger      logrus.FieldLogger
	attached    bool // connected over CDP to a browser the operator already runs
}

// NewPlaywrightActuator - creates new playwright-driven actuator
func NewPlaywrightActuator(settings entities.Settings, logger logrus.FieldLogger) (*PlaywrightActuator, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	controller := &PlaywrightActuator{
		pw:        pw,
		humanizer: NewHumanizer(time.Now().UnixNano()),
		logger:    logger,
	}

	if settings.CDPEndpoint != "" {
		err = controller.attach(settings.CDPEndpoint)
	} else {
		err = controller.launch(settings)
	}
	if err != nil {
		pw.Stop()
		return nil, err
	}

	controller.context.OnPage(func(newPage playwright.Page) {
		controller.pagesMutex.Lock()
		defer controller.pagesMutex.Unlock()

		controller.pages = append(controller.pages, newPage)
		controller.watch(newPage)
	})

	if settings.StartURL != "" {
		page, err := controller.focused()
		if err != nil {
			controller.Close()
			return nil, err
		}
		if _, err := page.Goto(settings.StartURL, playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateNetworkidle,
			Timeout:   playwright.Float(30000),
		}); err != nil {
			controller.Close()
			return nil, fmt.Errorf("failed to navigate to %s: %w", settings.StartURL, err)
		}
	}

	return controller, nil
}

// attach connects to a running Chromium started with --remote-debugging-port
func (b *PlaywrightActuator) attach(endpoint string) error {
	browser, err := b.pw.Chromium.ConnectOverCDP(endpoint)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", endpoint, err)
	}
	b.browser = browser
	b.attached = true

	contexts := browser.Contexts()
	if len(contexts) == 0 {
		ctx, err := browser.NewContext()
		if err != nil {
			return fmt.Errorf("failed to create context: %w", err)
		}
		contexts = append(contexts, ctx)
	}
	b.context = contexts[0]
	b.grantClipboard()

	b.pages = b.context.Pages()
	if len(b.pages) == 0 {
		page, err := b.context.NewPage()
		if err != nil {
			return fmt.Errorf("failed to create page: %w", err)
		}
		b.pages = []playwright.Page{page}
	}
	states := make([]tabFocus, len(b.pages))
	for i, p := range b.pages {
		b.watch(p)
		states[i] = b.focusOf(p)
	}
	b.current = pickFocused(states)

	b.logger.WithFields(logrus.Fields{
		"endpoint": endpoint,
		"tabs":     len(b.pages),
		"focused":  b.current,
	}).Info("Attached to running browser")
	return nil
}

type tabFocus struct {
	Visible bool
	Focused bool
}

// focusOf asks a tab whether it is the one the operator is looking at
func (b *PlaywrightActuator) focusOf(page playwright.Page) tabFocus {
	result, err := page.Evaluate(focusScript)
	if err != nil {
		b.logger.WithError(err).Debug("Failed to read tab focus")
		return tabFocus{}
	}
	state, ok := result.(map[string]interface{})
	if !ok {
		return tabFocus{}
	}
	visible, _ := state["visible"].(bool)
	focused, _ := state["focused"].(bool)
	return tabFocus{Visible: visible, Focused: focused}
}

// pickFocused prefers a visible tab with focus, then any visible tab, then the first tab
func pickFocused(states []tabFocus) int {
	for i, s := range states {
		if s.Visible && s.Focused {
			return i
		}
	}
	for i, s := range states {
		if s.Visible {
			return i
		}
	}
	return 0
}

func (b *PlaywrightActuator) launch(settings entities.Settings) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	stateDir := filepath.Join(homeDir, browserStateDir)
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	b.storagePath = filepath.Join(stateDir, browserStateFile)

	contextOptions := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  1280,
			Height: 900,
		},
		JavaScriptEnabled: playwright.Bool(true),
		AcceptDownloads:   playwright.Bool(true),
		Permissions:       []string{"clipboard-read", "clipboard-write"},
	}

	// Reuse the dashboard login from the previous run
	if data, err := os.ReadFile(b.storagePath); err == nil {
		var storageState playwright.StorageState
		if err := json.Unmarshal(data, &storageState); err == nil {
			contextOptions.StorageState = storageState.ToOptionalStorageState()
		}
	}

	browser, err := b.pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(settings.Headless),
		Args: []string{
			"--disable-popup-blocking",
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--disable-infobars",
			"--disable-notifications",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}
	b.browser = browser

	context, err := browser.NewContext(contextOptions)
	if err != nil {
		return fmt.Errorf("failed to create context: %w", err)
	}
	b.context = context
	b.grantClipboard()

	page, err := context.NewPage()
	if err != nil {
		return fmt.Errorf("failed to create page: %w", err)
	}
	b.pages = []playwright.Page{page}
	b.watch(page)
	return nil
}

func (b *PlaywrightActuator) grantClipboard() {
	if err := b.context.GrantPermissions([]string{"clipboard-read", "clipboard-write"}); err != nil {
		b.logger.WithError(err).Warn("Failed to grant clipboard permissions")
	}
}

// watch keeps the tab list consistent when a tab is closed.
// Callers hold pagesMutex or own the controller exclusively.
func (b *PlaywrightActuator) watch(page playwright.Page) {
	page.OnDialog(func(dialog playwright.Dialog) {
		dialog.Dismiss()
	})

	page.OnClose(func(closedPage playwright.Page) {
		b.pagesMutex.Lock()
		defer b.pagesMutex.Unlock()

		for i, p := range b.pages {
			if p == closedPage {
				b.pages = append(b.pages[:i], b.pages[i+1:]...)
				if b.current > i || b.current >= len(b.pages) {
					b.current = max(0, b.current-1)
				}
				break
			}
		}
	})
}

// focused returns the tab that currently has focus
func (b *PlaywrightActuator) focused() (playwright.Page, error) {
	b.pagesMutex.Lock()
	defer b.pagesMutex.Unlock()

	if len(b.pages) == 0 {
		return nil, errNoTabs
	}
	return b.pages[b.current], nil
}

// ClickBatch - ctrl-clicks count rows so each opens in a background tab
func (b *PlaywrightActuator) ClickBatch(ctx context.Context, count int, anchor entities.Point, spacing float64) error {
	page, err := b.focused()
	if err != nil {
		return err
	}
	if err := page.BringToFront(); err != nil {
		return fmt.Errorf("failed to focus list page: %w", err)
	}

	centerX := b.humanizer.SessionCenterX(anchor.X)
	b.logger.WithFields(logrus.Fields{
		"clicks":   count,
		"center_x": fmt.Sprintf("%.2f", centerX),
	}).Info("Clicking automation starting")

	mouse := page.Mouse()
	keyboard := page.Keyboard()
	for i := 0; i < count; i++ {
		target := b.humanizer.RowTarget(centerX, anchor, spacing, i)

		if err := mouse.Move(target.X, target.Y, playwright.MouseMoveOptions{
			Steps: playwright.Int(b.humanizer.MoveSteps()),
		}); err != nil {
			return fmt.Errorf("failed to move pointer: %w", err)
		}
		if err := keyboard.Down(modifierKey()); err != nil {
			return err
		}
		clickErr := mouse.Click(target.X, target.Y)
		if err := keyboard.Up(modifierKey()); err != nil && clickErr == nil {
			clickErr = err
		}
		if clickErr != nil {
			return fmt.Errorf("failed to click row %d: %w", i+1, clickErr)
		}

		delay := b.humanizer.Delay()
		b.logger.WithFields(logrus.Fields{
			"row":   i + 1,
			"x":     fmt.Sprintf("%.2f", target.X),
			"y":     fmt.Sprintf("%.2f", target.Y),
			"delay": delay,
		}).Debug("Ctrl+Clicked")

		select {
		case <-ctx.Done():
			return fmt.Errorf("click batch canceled: %w", ctx.Err())
		case <-time.After(delay):
		}
	}

	b.logger.WithField("clicks", count).Info("All clicks completed")
	return nil
}

// CaptureFocusedText - select all, copy, and read the clipboard of the focused tab
func (b *PlaywrightActuator) CaptureFocusedText(ctx context.Context) (string, error) {
	page, err := b.focused()
	if err != nil {
		return "", err
	}

	keyboard := page.Keyboard()
	if err := keyboard.Press(modifierKey() + "+A"); err != nil {
		return "", fmt.Errorf("failed to select page text: %w", err)
	}
	time.Sleep(copySettleDelay)
	if err := keyboard.Press(modifierKey() + "+C"); err != nil {
		return "", fmt.Errorf("failed to copy page text: %w", err)
	}
	time.Sleep(copySettleDelay)

	result, err := page.Evaluate(clipboardScript)
	if err != nil {
		b.logger.WithError(err).Debug("Clipboard read failed, falling back to body text")
		return page.InnerText("body")
	}

	if text, ok := result.(string); ok {
		return text, nil
	}
	return "", nil
}

// NextTab - focuses the next tab, wrapping to the first
func (b *PlaywrightActuator) NextTab(ctx context.Context) error {
	return b.step(1)
}

// PreviousTab - focuses the previous tab, wrapping to the last
func (b *PlaywrightActuator) PreviousTab(ctx context.Context) error {
	return b.step(-1)
}

func (b *PlaywrightActuator) step(delta int) error {
	b.pagesMutex.Lock()
	n := len(b.pages)
	if n == 0 {
		b.pagesMutex.Unlock()
		return errNoTabs
	}
	b.current = wrapIndex(b.current+delta, n)
	page := b.pages[b.current]
	b.pagesMutex.Unlock()

	return page.BringToFront()
}

// CapturePointer - waits for the operator to click on the focused page and returns the position
func (b *PlaywrightActuator) CapturePointer(ctx context.Context) (entities.Point, error) {
	page, err := b.focused()
	if err != nil {
		return entities.Point{}, err
	}

	type evalResult struct {
		value interface{}
		err   error
	}
	done := make(chan evalResult, 1)
	go func() {
		v, err := page.Evaluate(pointerScript)
		done <- evalResult{v, err}
	}()

	select {
	case <-ctx.Done():
		return entities.Point{}, ctx.Err()
	case res := <-done:
		if res.err != nil {
			return entities.Point{}, fmt.Errorf("failed to capture pointer: %w", res.err)
		}
		pos, ok := res.value.(map[string]interface{})
		if !ok {
			return entities.Point{}, fmt.Errorf("unexpected pointer result %T", res.value)
		}
		return entities.Point{X: getFloat(pos, "x"), Y: getFloat(pos, "y")}, nil
	}
}

// SaveState - saves browser state to persistent storage
func (b *PlaywrightActuator) SaveState() error {
	if b.context == nil || b.storagePath == "" {
		return nil
	}

	if _, err := b.context.StorageState(b.storagePath); err != nil {
		if isClosedErr(err) {
			return nil
		}
		return fmt.Errorf("failed to save browser state: %w", err)
	}
	return nil
}

// Close - saves state and closes the browser. An attached browser is left running.
func (b *PlaywrightActuator) Close() error {
	var closeErr error

	if err := b.SaveState(); err != nil {
		closeErr = err
	}

	if b.context != nil && !b.attached {
		if err := b.context.Close(); err != nil && !isClosedErr(err) {
			closeErr = errors.Join(closeErr, fmt.Errorf("failed to close context: %w", err))
		}
	}
	b.context = nil

	if b.browser != nil && !b.attached {
		if err := b.browser.Close(); err != nil && !isClosedErr(err) {
			closeErr = errors.Join(closeErr, fmt.Errorf("failed to close browser: %w", err))
		}
	}
	b.browser = nil

	if b.pw != nil {
		if err := b.pw.Stop(); err != nil {
			closeErr = errors.Join(closeErr, fmt.Errorf("failed to stop playwright: %w", err))
		}
		b.pw = nil
	}

	return closeErr
}

// modifierKey - the key that opens links in a background tab
func modifierKey() string {
	if runtime.GOOS == "darwin" {
		return "Meta"
	}
	return "Control"
}

func wrapIndex(i, n int) int {
	return ((i % n) + n) % n
}

func isClosedErr(err error) bool {
	errStr := err.Error()
	return strings.Contains(errStr, "closed") || strings.Contains(errStr, "target closed")
}

// getFloat - extracts numeric value from map
func getFloat(m map[string]interface{}, key string) float64 {
	if v, ok := m[key]; ok {
		switch val := v.(type) {
		case int:
			return float64(val)
		case float64:
			return val
		}
	}
	return 0
}

// Ensure PlaywrightActuator implements BrowserSession interface
var _ interfaces.BrowserSession = (*PlaywrightActuator)(nil)
