package browser

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"invoice_automation/domain/entities"
	"invoice_automation/domain/interfaces"

	"github.com/sirupsen/logrus"
	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
)

const chromeDriverPort = 9515

// Links open through window.open so the driver keeps its current window.
// Other targets get a synthetic click with the background-tab modifier held.
const ctrlClickScript = `
	var x = arguments[0], y = arguments[1], mac = arguments[2];
	var el = document.elementFromPoint(x, y);
	if (!el) { return false; }
	var link = el.closest ? el.closest('a[href]') : null;
	if (link) {
		window.open(link.href, '_blank');
		return true;
	}
	var opts = { bubbles: true, cancelable: true, view: window, button: 0,
		clientX: x, clientY: y, ctrlKey: !mac, metaKey: mac };
	el.dispatchEvent(new MouseEvent('mousedown', opts));
	el.dispatchEvent(new MouseEvent('mouseup', opts));
	el.dispatchEvent(new MouseEvent('click', opts));
	return true;
	`

const selectAllScript = `
	if (!document.body) { return ""; }
	var sel = window.getSelection();
	sel.removeAllRanges();
	var range = document.createRange();
	range.selectNodeContents(document.body);
	sel.addRange(range);
	var text = sel.toString();
	sel.removeAllRanges();
	return text || document.body.innerText;
	`

const asyncPointerScript = `
	var done = arguments[arguments.length - 1];
	document.addEventListener('click', function(e) {
		e.preventDefault();
		e.stopPropagation();
		done({ x: e.clientX, y: e.clientY });
	}, { once: true, capture: true });
	`

// SeleniumActuator drives Chrome through chromedriver. Window handles stand in for tabs.
type SeleniumActuator struct {
	wd          selenium.WebDriver
	service     *selenium.Service
	logger      logrus.FieldLogger
	humanizer   *Humanizer
	userDataDir string
	current     int
}

// findChromeDriver - finds ChromeDriver executable path
func findChromeDriver() (string, error) {
	if path := os.Getenv("BROWSER_DRIVER_PATH"); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	commonPaths := []string{
		"/usr/local/bin/chromedriver",
		"/usr/bin/chromedriver",
		"/opt/homebrew/bin/chromedriver",
		filepath.Join(os.Getenv("HOME"), "bin", "chromedriver"),
	}

	for _, path := range commonPaths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	if path, err := exec.LookPath("chromedriver"); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("chromedriver not found. Please install it or set BROWSER_DRIVER_PATH environment variable")
}

// findChromeBinary - finds Chrome/Chromium browser executable path
func findChromeBinary() string {
	if path := os.Getenv("CHROME_BINARY_PATH"); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	chromePaths := []string{
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium",
		`C:\Program Files\Google\Chrome\Application\chrome.exe`,
	}
	for _, path := range chromePaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	for _, name := range []string{"google-chrome", "chromium", "chromium-browser"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return ""
}

// profileDir - persistent chrome profile so the dashboard login survives restarts
func profileDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}

	dir := filepath.Join(homeDir, browserStateDir, "chrome_profile")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create user data directory: %w", err)
	}
	return dir, nil
}

// NewSeleniumActuator - starts chromedriver and opens the start page
func NewSeleniumActuator(settings entities.Settings, logger logrus.FieldLogger) (*SeleniumActuator, error) {
	driverPath, err := findChromeDriver()
	if err != nil {
		return nil, fmt.Errorf("failed to find chromedriver: %w", err)
	}
	logger.Infof("Using ChromeDriver at: %s", driverPath)

	userDataDir, err := profileDir()
	if err != nil {
		return nil, err
	}

	service, err := selenium.NewChromeDriverService(driverPath, chromeDriverPort)
	if err != nil {
		return nil, fmt.Errorf("failed to start chromedriver: %w", err)
	}

	caps := selenium.Capabilities{"browserName": "chrome"}
	args := []string{
		"--disable-blink-features=AutomationControlled",
		"--disable-popup-blocking",
		"--disable-dev-shm-usage",
		fmt.Sprintf("--user-data-dir=%s", userDataDir),
	}
	if settings.Headless {
		args = append(args, "--headless=new")
	}
	chromeCaps := chrome.Capabilities{Args: args}
	if chromeBinary := findChromeBinary(); chromeBinary != "" {
		logger.Infof("Using Chrome binary at: %s", chromeBinary)
		chromeCaps.Path = chromeBinary
	}
	caps.AddChrome(chromeCaps)

	wd, err := selenium.NewRemote(caps, fmt.Sprintf("http://localhost:%d/wd/hub", chromeDriverPort))
	if err != nil {
		service.Stop()
		if strings.Contains(err.Error(), "cannot find Chrome binary") {
			return nil, fmt.Errorf("failed to create webdriver: Chrome browser not found, set CHROME_BINARY_PATH: %w", err)
		}
		return nil, fmt.Errorf("failed to create webdriver: %w", err)
	}

	s := &SeleniumActuator{
		wd:          wd,
		service:     service,
		logger:      logger,
		humanizer:   NewHumanizer(time.Now().UnixNano()),
		userDataDir: userDataDir,
	}

	if settings.StartURL != "" {
		if err := wd.Get(settings.StartURL); err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to navigate to %s: %w", settings.StartURL, err)
		}
	}
	return s, nil
}

// ClickBatch - ctrl-clicks count rows by dispatching the click inside the page
func (s *SeleniumActuator) ClickBatch(ctx context.Context, count int, anchor entities.Point, spacing float64) error {
	if err := s.focus(); err != nil {
		return err
	}

	centerX := s.humanizer.SessionCenterX(anchor.X)
	s.logger.WithField("clicks", count).Info("Clicking automation starting")

	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("click batch canceled: %w", err)
		}
		target := s.humanizer.RowTarget(centerX, anchor, spacing, i)

		hit, err := s.wd.ExecuteScript(ctrlClickScript, []interface{}{target.X, target.Y, runtime.GOOS == "darwin"})
		if err != nil {
			return fmt.Errorf("failed to click row %d: %w", i+1, err)
		}
		if ok, _ := hit.(bool); !ok {
			s.logger.WithFields(logrus.Fields{
				"row": i + 1,
				"x":   fmt.Sprintf("%.2f", target.X),
				"y":   fmt.Sprintf("%.2f", target.Y),
			}).Warn("Nothing to click at row position")
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("click batch canceled: %w", ctx.Err())
		case <-time.After(s.humanizer.Delay()):
		}
	}

	s.logger.WithField("clicks", count).Info("All clicks completed")
	return nil
}

// CaptureFocusedText - selects all text of the focused window and returns the selection,
// which is what a select-all + copy puts on the clipboard
func (s *SeleniumActuator) CaptureFocusedText(ctx context.Context) (string, error) {
	if err := s.focus(); err != nil {
		return "", err
	}

	result, err := s.wd.ExecuteScript(selectAllScript, nil)
	if err != nil {
		return "", fmt.Errorf("failed to read page text: %w", err)
	}
	text, _ := result.(string)
	return text, nil
}

// NextTab - focuses the next window handle, wrapping to the first
func (s *SeleniumActuator) NextTab(ctx context.Context) error {
	return s.step(1)
}

// PreviousTab - focuses the previous window handle, wrapping to the last
func (s *SeleniumActuator) PreviousTab(ctx context.Context) error {
	return s.step(-1)
}

func (s *SeleniumActuator) step(delta int) error {
	handles, err := s.wd.WindowHandles()
	if err != nil {
		return fmt.Errorf("failed to list windows: %w", err)
	}
	if len(handles) == 0 {
		return errNoTabs
	}

	s.current = wrapIndex(s.current+delta, len(handles))
	return s.wd.SwitchWindow(handles[s.current])
}

// focus re-selects the tracked window in case the handle list shrank
func (s *SeleniumActuator) focus() error {
	handles, err := s.wd.WindowHandles()
	if err != nil {
		return fmt.Errorf("failed to list windows: %w", err)
	}
	if len(handles) == 0 {
		return errNoTabs
	}
	if s.current >= len(handles) {
		s.current = len(handles) - 1
	}
	return s.wd.SwitchWindow(handles[s.current])
}

// CapturePointer - waits for the operator to click and returns the position
func (s *SeleniumActuator) CapturePointer(ctx context.Context) (entities.Point, error) {
	timeout := 5 * time.Minute
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if err := s.wd.SetAsyncScriptTimeout(timeout); err != nil {
		return entities.Point{}, fmt.Errorf("failed to set script timeout: %w", err)
	}

	result, err := s.wd.ExecuteScriptAsync(asyncPointerScript, nil)
	if err != nil {
		return entities.Point{}, fmt.Errorf("failed to capture pointer: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return entities.Point{}, err
	}

	pos, ok := result.(map[string]interface{})
	if !ok {
		return entities.Point{}, fmt.Errorf("unexpected pointer result %T", result)
	}
	return entities.Point{X: getFloat(pos, "x"), Y: getFloat(pos, "y")}, nil
}

// Close - closes browser and stops ChromeDriver service
func (s *SeleniumActuator) Close() error {
	var closeErr error
	if s.wd != nil {
		if err := s.wd.Quit(); err != nil {
			closeErr = fmt.Errorf("failed to quit webdriver: %w", err)
		}
		s.wd = nil
	}
	if s.service != nil {
		s.service.Stop()
		s.service = nil
	}
	return closeErr
}

// Ensure SeleniumActuator implements BrowserSession interface
var _ interfaces.BrowserSession = (*SeleniumActuator)(nil)
