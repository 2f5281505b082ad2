package security

import (
	"context"
	"testing"

	"invoice_automation/domain/entities"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
)

func plan(clicks int, anchor entities.Point, spacing float64) entities.RunPlan {
	return entities.RunPlan{RowCount: clicks, ClickCount: clicks, Anchor: anchor, Spacing: spacing}
}

func TestReview(t *testing.T) {
	anchor := entities.Point{X: 400, Y: 300}

	tests := []struct {
		name    string
		plan    entities.RunPlan
		approve Approver
		wantErr bool
	}{
		{name: "calibrated plan", plan: plan(23, anchor, 23.5)},
		{name: "no clicks", plan: plan(0, anchor, 23.5), wantErr: true},
		{name: "uncalibrated anchor", plan: plan(23, entities.Point{}, 23.5), wantErr: true},
		{name: "zero spacing", plan: plan(23, anchor, 0), wantErr: true},
		{name: "single click without spacing", plan: plan(1, anchor, 0)},
		{name: "large batch approved", plan: plan(300, anchor, 20), approve: func(entities.RunPlan) bool { return true }},
		{name: "large batch declined", plan: plan(300, anchor, 20), approve: func(entities.RunPlan) bool { return false }, wantErr: true},
		{name: "large batch without approver", plan: plan(300, anchor, 20), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := test.NewNullLogger()
			guard := NewRunGuard(logger, 200, tt.approve)

			err := guard.Review(context.Background(), tt.plan)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrRunRejected)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRequiresApproval(t *testing.T) {
	logger, _ := test.NewNullLogger()
	anchor := entities.Point{X: 1, Y: 1}

	assert.False(t, NewRunGuard(logger, 200, nil).RequiresApproval(plan(200, anchor, 10)))
	assert.True(t, NewRunGuard(logger, 200, nil).RequiresApproval(plan(201, anchor, 10)))
	assert.False(t, NewRunGuard(logger, 0, nil).RequiresApproval(plan(5000, anchor, 10)))
}

func TestReview_CanceledContext(t *testing.T) {
	logger, _ := test.NewNullLogger()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewRunGuard(logger, 0, nil).Review(ctx, plan(3, entities.Point{X: 1, Y: 1}, 10))
	assert.ErrorIs(t, err, context.Canceled)
}
