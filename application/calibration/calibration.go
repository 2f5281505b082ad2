// Package calibration records where the invoice list sits on screen.
package calibration

import (
	"context"
	"errors"
	"fmt"
	"math"

	"invoice_automation/domain/entities"
	"invoice_automation/domain/interfaces"

	"github.com/sirupsen/logrus"
)

// ErrZeroSpacing is returned when both captured rows share the same height
var ErrZeroSpacing = errors.New("captured rows are at the same height")

// Prompt announces a calibration step to the operator before the pointer is captured
type Prompt func(step int, message string)

const (
	firstRowMessage  = "Click the FIRST invoice row in the list."
	secondRowMessage = "Click the SECOND invoice row, immediately below the first."
)

// Calibrator derives the list anchor and row spacing from two pointer captures
type Calibrator struct {
	tracker interfaces.PointerTracker
	store   interfaces.SettingsStore
	logger  logrus.FieldLogger
}

// NewCalibrator - creates new calibrator instance
func NewCalibrator(tracker interfaces.PointerTracker, store interfaces.SettingsStore, logger logrus.FieldLogger) *Calibrator {
	return &Calibrator{
		tracker: tracker,
		store:   store,
		logger:  logger,
	}
}

// Calibrate captures the first and second rows, updates the anchor and spacing, and saves the result.
// Every other setting is carried over from current.
func (c *Calibrator) Calibrate(ctx context.Context, current entities.Settings, prompt Prompt) (entities.Settings, error) {
	first, err := c.capture(ctx, 1, firstRowMessage, prompt)
	if err != nil {
		return current, err
	}
	second, err := c.capture(ctx, 2, secondRowMessage, prompt)
	if err != nil {
		return current, err
	}

	spacing := math.Abs(second.Y - first.Y)
	if spacing == 0 {
		return current, ErrZeroSpacing
	}

	updated := current
	updated.StartX = first.X
	updated.StartY = first.Y
	updated.VerticalSpacing = spacing

	if err := c.store.Save(updated); err != nil {
		return current, fmt.Errorf("failed to save calibration: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"start_x":          updated.StartX,
		"start_y":          updated.StartY,
		"vertical_spacing": updated.VerticalSpacing,
	}).Info("Calibration saved")
	return updated, nil
}

func (c *Calibrator) capture(ctx context.Context, step int, message string, prompt Prompt) (entities.Point, error) {
	if prompt != nil {
		prompt(step, message)
	}

	point, err := c.tracker.CapturePointer(ctx)
	if err != nil {
		return entities.Point{}, fmt.Errorf("step %d: %w", step, err)
	}
	c.logger.WithFields(logrus.Fields{
		"step": step,
		"x":    point.X,
		"y":    point.Y,
	}).Debug("Pointer captured")
	return point, nil
}
