package interfaces

import (
	"context"

	"invoice_automation/domain/entities"
)

// Actuator defines the physical input and clipboard collaborator.
// Implementations own the focused window and the clipboard, so calls must never overlap.
type Actuator interface {
	// ClickBatch ctrl-clicks count rows starting at anchor, one row every spacing pixels
	ClickBatch(ctx context.Context, count int, anchor entities.Point, spacing float64) error

	// CaptureFocusedText selects all text on the focused page, copies it and returns the clipboard
	CaptureFocusedText(ctx context.Context) (string, error)

	// NextTab moves focus one tab forward, wrapping after the last tab
	NextTab(ctx context.Context) error

	// PreviousTab moves focus one tab back, wrapping before the first tab
	PreviousTab(ctx context.Context) error

	// Close releases the browser session
	Close() error
}

// PointerTracker captures an on-screen position chosen by the operator
type PointerTracker interface {
	// CapturePointer blocks until the operator points at a position and returns it
	CapturePointer(ctx context.Context) (entities.Point, error)
}

// BrowserSession is an actuator that can also capture pointer positions for calibration
type BrowserSession interface {
	Actuator
	PointerTracker
}
