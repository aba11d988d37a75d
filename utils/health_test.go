package utils

import (
	"context"
	"errors"
	"testing"
)

func TestHealthMonitorCheck(t *testing.T) {
	h := NewHealthMonitor(map[string]Pinger{
		"mongo": func(ctx context.Context) error { return nil },
		"redis": func(ctx context.Context) error { return errors.New("down") },
	})

	status := h.Check(context.Background())
	if status.Healthy {
		t.Error("expected unhealthy when one backend fails")
	}
	if !status.Checks["mongo"] || status.Checks["redis"] {
		t.Errorf("unexpected checks: %+v", status.Checks)
	}
	if got := h.Status(); got.CheckedAt != status.CheckedAt {
		t.Error("Status should return the stored snapshot")
	}
}
