package browser

import (
	"math"
	"math/rand"
	"time"

	"invoice_automation/domain/entities"
)

// Humanizer produces click positions and delays that look like a person working a list
type Humanizer struct {
	rng *rand.Rand

	BaseDelayMs   float64
	StdDevMs      float64
	MinDelayMs    float64
	MaxDelayMs    float64
	OutlierChance float64
	OutlierFactor float64
	MaxResamples  int

	SessionJitterX float64 // session-wide shift of the click column
	StdDevX        float64
	ClampX         float64
	MarginY        float64
}

// NewHumanizer - creates a humanizer with the default timing profile
func NewHumanizer(seed int64) *Humanizer {
	return &Humanizer{
		rng:            rand.New(rand.NewSource(seed)),
		BaseDelayMs:    521,
		StdDevMs:       81,
		MinDelayMs:     200,
		MaxDelayMs:     1176,
		OutlierChance:  0.16,
		OutlierFactor:  2.4,
		MaxResamples:   100,
		SessionJitterX: 10,
		StdDevX:        15,
		ClampX:         50,
		MarginY:        3,
	}
}

// Delay samples a gaussian delay with occasional outliers, resampling until it lands
// within [MinDelayMs, MaxDelayMs]. After MaxResamples rejections it returns the base delay.
func (h *Humanizer) Delay() time.Duration {
	for i := 0; i < h.MaxResamples; i++ {
		delay := h.rng.NormFloat64()*h.StdDevMs + h.BaseDelayMs

		if h.rng.Float64() < h.OutlierChance {
			if h.rng.Float64() < 0.5 {
				delay += h.OutlierFactor * h.StdDevMs
			} else {
				delay -= h.OutlierFactor * h.StdDevMs
			}
		}

		if delay >= h.MinDelayMs && delay <= h.MaxDelayMs {
			return toDuration(delay)
		}
	}
	return toDuration(h.BaseDelayMs)
}

// SessionCenterX shifts the click column once per batch
func (h *Humanizer) SessionCenterX(startX float64) float64 {
	return startX + (h.rng.Float64()*2-1)*h.SessionJitterX
}

// RowTarget returns a jittered position for the given row, clamped around the row centre
func (h *Humanizer) RowTarget(centerX float64, anchor entities.Point, spacing float64, row int) entities.Point {
	meanY := anchor.Y + float64(row)*spacing

	x := h.rng.NormFloat64()*h.StdDevX + centerX
	y := h.rng.NormFloat64()*(h.MarginY/2) + meanY

	return entities.Point{
		X: clamp(x, centerX-h.ClampX, centerX+h.ClampX),
		Y: clamp(y, meanY-h.MarginY, meanY+h.MarginY),
	}
}

// MoveSteps returns the number of intermediate pointer moves for one approach (100-300ms at ~60Hz)
func (h *Humanizer) MoveSteps() int {
	ms := 100 + h.rng.Float64()*200
	return int(math.Max(1, math.Round(ms/16)))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}

func toDuration(ms float64) time.Duration {
	return time.Duration(math.Round(ms)) * time.Millisecond
}
