package interfaces

import (
	"context"

	"invoice_automation/domain/entities"
)

// RunGuard defines the checks performed before any input is simulated
type RunGuard interface {
	// Review returns an error when the plan must not be executed
	Review(ctx context.Context, plan entities.RunPlan) error

	// RequiresApproval checks if the plan needs explicit operator approval
	RequiresApproval(plan entities.RunPlan) bool
}
