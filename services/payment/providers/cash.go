package providers

import (
	"context"
	"strings"

	"rentwheels/models"

	"github.com/google/uuid"
)

// Cash records an offline payment. Nothing leaves the process; the owner
// confirms receipt out of band.
type Cash struct{}

func (Cash) Name() string { return models.MethodCash }

func (Cash) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	ref := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:12])
	return &ChargeResult{
		Provider:  models.MethodCash,
		Reference: "CASH-" + ref,
		Status:    StatusCompleted,
	}, nil
}
