package utils

import (
	"context"
	"sync"
	"time"
)

// Pinger is anything that can report its own reachability.
type Pinger func(ctx context.Context) error

// HealthStatus represents current status of external services.
type HealthStatus struct {
	Checks    map[string]bool `json:"checks"`
	Healthy   bool            `json:"healthy"`
	CheckedAt time.Time       `json:"checkedAt"`
}

// HealthMonitor keeps the latest health snapshot of the registered backends.
type HealthMonitor struct {
	pingers map[string]Pinger

	mu      sync.RWMutex
	current HealthStatus
}

func NewHealthMonitor(pingers map[string]Pinger) *HealthMonitor {
	return &HealthMonitor{pingers: pingers}
}

// Status returns latest stored health snapshot.
func (h *HealthMonitor) Status() HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Check pings every backend once and stores the result.
func (h *HealthMonitor) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{Checks: make(map[string]bool, len(h.pingers)), Healthy: true, CheckedAt: time.Now()}
	for name, ping := range h.pingers {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		ok := ping(pingCtx) == nil
		cancel()
		status.Checks[name] = ok
		if !ok {
			status.Healthy = false
		}
	}

	h.mu.Lock()
	h.current = status
	h.mu.Unlock()
	return status
}

// Start performs periodic health checks until ctx is cancelled.
func (h *HealthMonitor) Start(ctx context.Context, interval time.Duration) {
	h.Check(ctx)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				h.Check(ctx)
			}
		}
	}()
}
