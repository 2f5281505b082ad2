package security

import (
	"context"
	"errors"
	"fmt"

	"invoice_automation/domain/entities"
	"invoice_automation/domain/interfaces"

	"github.com/sirupsen/logrus"
)

var ErrRunRejected = errors.New("run rejected")

// Approver asks the operator whether a plan may run
type Approver func(plan entities.RunPlan) bool

type RunGuard struct {
	logger    logrus.FieldLogger
	threshold int
	approve   Approver
}

// NewRunGuard - creates a guard. Plans with more than threshold clicks need approval;
// a threshold of zero disables the approval step.
func NewRunGuard(logger logrus.FieldLogger, threshold int, approve Approver) *RunGuard {
	return &RunGuard{
		logger:    logger,
		threshold: threshold,
		approve:   approve,
	}
}

func (g *RunGuard) Review(ctx context.Context, plan entities.RunPlan) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if plan.ClickCount <= 0 {
		return fmt.Errorf("%w: nothing to click", ErrRunRejected)
	}

	// An uncalibrated anchor would click the screen corner
	if plan.Anchor.IsZero() {
		return fmt.Errorf("%w: click position is not calibrated, run calibrate first", ErrRunRejected)
	}

	if plan.ClickCount > 1 && plan.Spacing <= 0 {
		return fmt.Errorf("%w: vertical spacing must be positive to click more than one row", ErrRunRejected)
	}

	if g.RequiresApproval(plan) {
		g.logger.WithFields(logrus.Fields{
			"clicks":    plan.ClickCount,
			"threshold": g.threshold,
		}).Warn("Click batch exceeds confirmation threshold")

		if g.approve == nil || !g.approve(plan) {
			return fmt.Errorf("%w: %d clicks not approved", ErrRunRejected, plan.ClickCount)
		}
	}

	return nil
}

func (g *RunGuard) RequiresApproval(plan entities.RunPlan) bool {
	return g.threshold > 0 && plan.ClickCount > g.threshold
}

// Ensure RunGuard implements RunGuard interface
var _ interfaces.RunGuard = (*RunGuard)(nil)
