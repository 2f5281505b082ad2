package entities

import "time"

// Point is a screen (or viewport) coordinate
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// IsZero reports whether the point has never been calibrated
func (p Point) IsZero() bool {
	return p.X == 0 && p.Y == 0
}

// BrowserKind selects the actuator implementation
type BrowserKind string

const (
	BrowserPlaywright BrowserKind = "playwright"
	BrowserSelenium   BrowserKind = "selenium"
)

// Settings is the operator configuration threaded through a run
type Settings struct {
	StartX          float64 `json:"start_x"`
	StartY          float64 `json:"start_y"`
	VerticalSpacing float64 `json:"vertical_spacing"`
	RowCount        int     `json:"row_count"`
	ExtraFilePath   string  `json:"extra_file_path"`

	OutputFile   string `json:"output_file"`
	SnapshotFile string `json:"snapshot_file"`

	PageLoadWaitMs  int   `json:"page_load_wait_ms"`
	SettleDelayMs   int   `json:"settle_delay_ms"`
	WiggleDelayMs   int   `json:"wiggle_delay_ms"`
	RetryDelaysMs   []int `json:"retry_delays_ms"`
	MinContentChars int   `json:"min_content_chars"`
	MinContentLines int   `json:"min_content_lines"`
	MaxIterations   int   `json:"max_iterations"` // 0 disables the ceiling
	PreloadTabs     bool  `json:"preload_tabs"`

	ConfirmClickThreshold int `json:"confirm_click_threshold"`

	Browser     BrowserKind `json:"browser"`
	CDPEndpoint string      `json:"cdp_endpoint"`
	StartURL    string      `json:"start_url"`
	Headless    bool        `json:"headless"`
}

// DefaultSettings returns the built-in configuration
func DefaultSettings() Settings {
	return Settings{
		VerticalSpacing:       23.5,
		RowCount:              20,
		OutputFile:            "extracted_data.csv",
		SnapshotFile:          "extracted_data.json",
		PageLoadWaitMs:        1000,
		SettleDelayMs:         5000,
		WiggleDelayMs:         200,
		RetryDelaysMs:         []int{200, 400, 600, 800, 1000},
		MinContentChars:       250,
		MinContentLines:       25,
		MaxIterations:         1000,
		ConfirmClickThreshold: 200,
		Browser:               BrowserPlaywright,
	}
}

// Anchor returns the first row position
func (s Settings) Anchor() Point {
	return Point{X: s.StartX, Y: s.StartY}
}

// RetryDelays converts the configured retry schedule to durations
func (s Settings) RetryDelays() []time.Duration {
	delays := make([]time.Duration, 0, len(s.RetryDelaysMs))
	for _, ms := range s.RetryDelaysMs {
		delays = append(delays, millis(ms))
	}
	return delays
}

func (s Settings) PageLoadWait() time.Duration { return millis(s.PageLoadWaitMs) }
func (s Settings) SettleDelay() time.Duration  { return millis(s.SettleDelayMs) }
func (s Settings) WiggleDelay() time.Duration  { return millis(s.WiggleDelayMs) }

func millis(ms int) time.Duration {
	if ms <= 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}
