// Package health runs registered dependency checks in parallel and serves
// the aggregate as liveness and readiness endpoints.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"maps"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

type Status string

const (
	StatusUp       Status = "up"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

func (s Status) severity() int {
	switch s {
	case StatusUp:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}

type Check func(ctx context.Context) ComponentHealth

type ComponentHealth struct {
	Status    Status  `json:"status"`
	Message   string  `json:"message,omitempty"`
	LatencyMS float64 `json:"latency_ms"`
}

type Report struct {
	Status     Status                     `json:"status"`
	Draining   bool                       `json:"draining,omitempty"`
	Components map[string]ComponentHealth `json:"components"`
	CheckedAt  time.Time                  `json:"checked_at"`
}

// Checker holds named checks. A check that outlives CheckTimeout reports
// down.
type Checker struct {
	CheckTimeout time.Duration

	mu       sync.RWMutex
	checks   map[string]Check
	last     map[string]Status
	draining atomic.Bool
	logger   *slog.Logger
}

func NewChecker() *Checker {
	return &Checker{
		CheckTimeout: 2 * time.Second,
		checks:       make(map[string]Check),
		last:         make(map[string]Status),
		logger:       slog.Default().With("component", "health"),
	}
}

func (c *Checker) Register(name string, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Drain makes readiness fail from now on while liveness keeps passing, so
// load balancers stop routing before the server shuts down.
func (c *Checker) Drain() {
	if !c.draining.Swap(true) {
		c.logger.Info("draining, readiness will fail")
	}
}

// Run executes every check concurrently. The report takes the worst
// component status.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	checks := maps.Clone(c.checks)
	c.mu.RUnlock()

	report := Report{
		Status:     StatusUp,
		Draining:   c.draining.Load(),
		Components: make(map[string]ComponentHealth, len(checks)),
		CheckedAt:  time.Now().UTC(),
	}
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for name, check := range checks {
		wg.Go(func() {
			result := c.runOne(ctx, check)
			mu.Lock()
			report.Components[name] = result
			mu.Unlock()
		})
	}
	wg.Wait()

	for name, comp := range report.Components {
		if comp.Status.severity() > report.Status.severity() {
			report.Status = comp.Status
		}
		c.noteChange(name, comp)
	}
	return report
}

func (c *Checker) runOne(ctx context.Context, check Check) ComponentHealth {
	if c.CheckTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.CheckTimeout)
		defer cancel()
	}
	start := time.Now()
	result := make(chan ComponentHealth, 1)
	go func() { result <- check(ctx) }()

	var out ComponentHealth
	select {
	case out = <-result:
	case <-ctx.Done():
		out = ComponentHealth{Status: StatusDown, Message: "check timed out"}
	}
	out.LatencyMS = float64(time.Since(start).Microseconds()) / 1000
	return out
}

func (c *Checker) noteChange(name string, comp ComponentHealth) {
	c.mu.Lock()
	prev, seen := c.last[name]
	c.last[name] = comp.Status
	c.mu.Unlock()
	if !seen || prev == comp.Status {
		return
	}
	if comp.Status == StatusUp {
		c.logger.Info("component recovered", "name", name, "from", prev)
		return
	}
	c.logger.Warn("component unhealthy", "name", name, "status", comp.Status, "message", comp.Message)
}

func (c *Checker) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
	}
}

// ReadyHandler answers 503 when a required dependency is down or the
// checker is draining. Degraded still serves.
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := c.Run(r.Context())
		status := http.StatusOK
		if report.Draining || report.Status == StatusDown {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, report)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// PingCheck reports down when ping fails, or degraded for an optional
// dependency.
func PingCheck(ping func(context.Context) error, optional bool) Check {
	return func(ctx context.Context) ComponentHealth {
		if err := ping(ctx); err != nil {
			status := StatusDown
			if optional {
				status = StatusDegraded
			}
			return ComponentHealth{Status: status, Message: err.Error()}
		}
		return ComponentHealth{Status: StatusUp}
	}
}

// Static reports a fixed status, for dependencies that are configured off.
func Static(status Status, message string) Check {
	return func(context.Context) ComponentHealth {
		return ComponentHealth{Status: status, Message: message}
	}
}
