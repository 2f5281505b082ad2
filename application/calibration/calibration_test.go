package calibration

import (
	"context"
	"errors"
	"testing"

	"invoice_automation/domain/entities"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTracker struct {
	points []entities.Point
	err    error
	calls  int
}

func (f *fakeTracker) CapturePointer(ctx context.Context) (entities.Point, error) {
	if f.err != nil {
		return entities.Point{}, f.err
	}
	p := f.points[f.calls]
	f.calls++
	return p, nil
}

type fakeSettingsStore struct {
	saved   []entities.Settings
	saveErr error
}

func (f *fakeSettingsStore) Load() entities.Settings { return entities.DefaultSettings() }

func (f *fakeSettingsStore) Save(s entities.Settings) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, s)
	return nil
}

func TestCalibrate(t *testing.T) {
	logger, _ := test.NewNullLogger()
	tracker := &fakeTracker{points: []entities.Point{{X: 410, Y: 300}, {X: 412, Y: 276.5}}}
	store := &fakeSettingsStore{}

	current := entities.DefaultSettings()
	current.RowCount = 35

	var steps []int
	got, err := NewCalibrator(tracker, store, logger).Calibrate(context.Background(), current, func(step int, _ string) {
		steps = append(steps, step)
	})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2}, steps)
	assert.Equal(t, 410.0, got.StartX)
	assert.Equal(t, 300.0, got.StartY)
	assert.InDelta(t, 23.5, got.VerticalSpacing, 1e-9)
	assert.Equal(t, 35, got.RowCount)
	require.Len(t, store.saved, 1)
	assert.Equal(t, got, store.saved[0])
}

func TestCalibrateZeroSpacing(t *testing.T) {
	logger, _ := test.NewNullLogger()
	tracker := &fakeTracker{points: []entities.Point{{X: 10, Y: 50}, {X: 90, Y: 50}}}
	store := &fakeSettingsStore{}

	current := entities.DefaultSettings()
	got, err := NewCalibrator(tracker, store, logger).Calibrate(context.Background(), current, nil)

	assert.ErrorIs(t, err, ErrZeroSpacing)
	assert.Equal(t, current, got)
	assert.Empty(t, store.saved)
}

func TestCalibrateCaptureFailure(t *testing.T) {
	logger, _ := test.NewNullLogger()
	tracker := &fakeTracker{err: context.Canceled}
	store := &fakeSettingsStore{}

	_, err := NewCalibrator(tracker, store, logger).Calibrate(context.Background(), entities.DefaultSettings(), nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "step 1")
	assert.Empty(t, store.saved)
}

func TestCalibrateSaveFailure(t *testing.T) {
	logger, _ := test.NewNullLogger()
	tracker := &fakeTracker{points: []entities.Point{{X: 1, Y: 1}, {X: 1, Y: 25}}}
	store := &fakeSettingsStore{saveErr: errors.New("read-only")}

	current := entities.DefaultSettings()
	got, err := NewCalibrator(tracker, store, logger).Calibrate(context.Background(), current, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "read-only")
	assert.Equal(t, current, got)
}
