// Package health provides Kubernetes-style liveness and readiness probes.
// Each registered check runs in a background goroutine at a fixed interval;
// failure and success thresholds prevent a single blip from flapping the
// reported state.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc is a health check. It returns nil when the checked component is
// healthy.
type CheckFunc func(ctx context.Context) error

const (
	defaultFailureThreshold = 3
	defaultSuccessThreshold = 1
)

// check holds the configuration and runtime state of one registered check.
// The healthy flag and lastErr are read by HTTP handlers from arbitrary
// goroutines; the consecutive counters are only touched by the single ticker
// goroutine.
type check struct {
	name    string
	timeout time.Duration
	fn      CheckFunc

	healthy atomic.Bool
	lastErr atomic.Pointer[error]

	fails int
	oks   int
}

func (c *check) run(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.fn(checkCtx)
	c.lastErr.Store(&err)

	if err != nil {
		c.oks = 0
		if c.fails++; c.fails >= defaultFailureThreshold {
			c.healthy.Store(false)
		}
		return
	}
	c.fails = 0
	if c.oks++; c.oks >= defaultSuccessThreshold {
		c.healthy.Store(true)
	}
}

// Health manages liveness and readiness checks for a service.
type Health struct {
	ready atomic.Bool

	mu        sync.RWMutex
	liveness  []*check
	readiness []*check
	cancel    context.CancelFunc
}

// New creates a Health instance. The service starts not-ready; call
// SetReady(true) once initialization is complete.
func New() *Health {
	return &Health{}
}

func newCheck(name string, timeout time.Duration, fn CheckFunc) *check {
	c := &check{name: name, timeout: timeout, fn: fn}
	c.healthy.Store(true)
	return c
}

// AddLivenessCheck registers a liveness check (is the process functional).
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.liveness = append(h.liveness, newCheck(name, timeout, fn))
}

// AddReadinessCheck registers a readiness check (can the process serve
// traffic, e.g. its database is reachable).
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readiness = append(h.readiness, newCheck(name, timeout, fn))
}

// Start launches the background check loop with the given interval. All
// checks also run once immediately.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancel = cancel
	checks := make([]*check, 0, len(h.liveness)+len(h.readiness))
	checks = append(checks, h.liveness...)
	checks = append(checks, h.readiness...)
	h.mu.Unlock()

	go func() {
		for _, c := range checks {
			c.run(ctx)
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, c := range checks {
					c.run(ctx)
				}
			}
		}
	}()
}

// Stop terminates the background check loop.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// SetReady flips the manual readiness gate, independent of check results.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

type probeResult struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (h *Health) snapshot(checks []*check) (bool, map[string]string) {
	healthy := true
	details := make(map[string]string, len(checks))
	for _, c := range checks {
		if c.healthy.Load() {
			details[c.name] = "ok"
			continue
		}
		healthy = false
		msg := "failing"
		if p := c.lastErr.Load(); p != nil && *p != nil {
			msg = (*p).Error()
		}
		details[c.name] = msg
	}
	return healthy, details
}

func writeProbe(w http.ResponseWriter, healthy bool, details map[string]string) {
	result := probeResult{Status: "ok", Checks: details}
	status := http.StatusOK
	if !healthy {
		result.Status = "unavailable"
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(result)
}

// LiveEndpoint serves the liveness probe.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	checks := append([]*check(nil), h.liveness...)
	h.mu.RUnlock()

	healthy, details := h.snapshot(checks)
	writeProbe(w, healthy, details)
}

// ReadyEndpoint serves the readiness probe: the manual gate plus all
// readiness checks must pass.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	checks := append([]*check(nil), h.readiness...)
	h.mu.RUnlock()

	healthy, details := h.snapshot(checks)
	if !h.ready.Load() {
		healthy = false
	}
	writeProbe(w, healthy, details)
}
