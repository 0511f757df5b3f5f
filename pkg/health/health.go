// Package health provides liveness and readiness probe endpoints backed by
// periodically executed checks. A check must fail three times in a row before
// it is reported unhealthy, so a single slow database ping does not flip the
// readiness probe.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc probes one component. It returns nil when the component is
// healthy.
type CheckFunc func(ctx context.Context) error

const failureThreshold = 3

// check holds configuration and state for a single registered check.
// run is only ever called from the check's own goroutine; healthy and lastErr
// are additionally read by HTTP handlers, hence the atomics.
type check struct {
	name    string
	timeout time.Duration
	fn      CheckFunc

	healthy atomic.Bool
	lastErr atomic.Pointer[error]

	consecutiveFails int
}

func (c *check) run(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.fn(checkCtx)
	c.lastErr.Store(&err)

	if err != nil {
		c.consecutiveFails++
		if c.consecutiveFails >= failureThreshold {
			c.healthy.Store(false)
		}
		return
	}
	c.consecutiveFails = 0
	c.healthy.Store(true)
}

func (c *check) status() (bool, error) {
	ok := c.healthy.Load()
	if p := c.lastErr.Load(); p != nil {
		return ok, *p
	}
	return ok, nil
}

// Health manages liveness and readiness checks for a service.
type Health struct {
	ready atomic.Bool

	mu        sync.Mutex
	liveness  []*check
	readiness []*check
	cancel    context.CancelFunc
}

// New creates a Health instance. The service starts not ready; call
// SetReady(true) once initialization completes.
func New() *Health {
	return &Health{}
}

func newCheck(name string, timeout time.Duration, fn CheckFunc) *check {
	c := &check{name: name, timeout: timeout, fn: fn}
	c.healthy.Store(true) // assume healthy until proven otherwise
	return c
}

// AddLivenessCheck registers a check for /livez. Liveness answers "is the
// process functioning": goroutine counts, deadlock detection.
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.liveness = append(h.liveness, newCheck(name, timeout, fn))
}

// AddReadinessCheck registers a check for /readyz. Readiness answers "can the
// service take traffic": database connectivity, dependent services.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readiness = append(h.readiness, newCheck(name, timeout, fn))
}

// Start launches one goroutine per registered check, each executing at the
// given interval until Stop is called or ctx is cancelled.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancel = cancel
	checks := make([]*check, 0, len(h.liveness)+len(h.readiness))
	checks = append(checks, h.liveness...)
	checks = append(checks, h.readiness...)
	h.mu.Unlock()

	for _, c := range checks {
		go func(c *check) {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			c.run(ctx)
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					c.run(ctx)
				}
			}
		}(c)
	}
}

// Stop cancels the background check goroutines.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// SetReady sets the manual readiness gate. Typically set true after startup
// and false at the beginning of graceful shutdown.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

type probeResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (h *Health) respond(w http.ResponseWriter, checks []*check, gated bool) {
	resp := probeResponse{Status: "ok", Checks: make(map[string]string, len(checks))}
	healthy := true

	for _, c := range checks {
		ok, err := c.status()
		switch {
		case ok:
			resp.Checks[c.name] = "ok"
		case err != nil:
			resp.Checks[c.name] = err.Error()
			healthy = false
		default:
			resp.Checks[c.name] = "unhealthy"
			healthy = false
		}
	}
	if gated && !h.ready.Load() {
		resp.Checks["ready"] = "not ready"
		healthy = false
	}

	w.Header().Set("Content-Type", "application/json")
	if !healthy {
		resp.Status = "unavailable"
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// LiveEndpoint serves the liveness probe.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	h.mu.Lock()
	checks := append([]*check(nil), h.liveness...)
	h.mu.Unlock()
	h.respond(w, checks, false)
}

// ReadyEndpoint serves the readiness probe. It reports unavailable when any
// readiness check fails or the manual gate is closed.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	h.mu.Lock()
	checks := append([]*check(nil), h.readiness...)
	h.mu.Unlock()
	h.respond(w, checks, true)
}

// GoroutineCountCheck returns a liveness check that fails when the process
// has more than max goroutines, a common sign of a leak.
func GoroutineCountCheck(max int) CheckFunc {
	return func(context.Context) error {
		if n := numGoroutine(); n > max {
			return &tooManyGoroutinesError{count: n, max: max}
		}
		return nil
	}
}
