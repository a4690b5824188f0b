package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status  string                    `json:"status"` // healthy, degraded, unhealthy
	Version string                    `json:"version"`
	Uptime  string                    `json:"uptime"`
	Checks  map[string]ComponentCheck `json:"checks"`
}

// ComponentCheck is the verdict for one dependency.
type ComponentCheck struct {
	Status  string `json:"status"` // up, down, degraded, not_configured
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}

// Probe checks one dependency. A nil check reports not_configured.
type Probe struct {
	Name    string
	Timeout time.Duration
	Slow    time.Duration
	Check   func(ctx context.Context) (string, error)
}

// OutboxStats is the part of the write-behind outbox reported on.
type OutboxStats interface {
	Pending(ctx context.Context) (int64, error)
	DeadLetters(ctx context.Context) (int64, error)
}

// HealthChecker runs its probes concurrently on every request.
type HealthChecker struct {
	probes    []Probe
	startTime time.Time
}

const healthVersion = "1.0.0"

// NewHealthChecker reports on the database, Redis and the outbox. Any of
// them may be nil.
func NewHealthChecker(db *sql.DB, redisClient *redis.Client, ob OutboxStats) *HealthChecker {
	hc := &HealthChecker{startTime: time.Now()}
	hc.Add(Probe{Name: "database", Timeout: 3 * time.Second, Slow: time.Second, Check: pingDB(db)})
	hc.Add(Probe{Name: "redis", Timeout: 2 * time.Second, Slow: 500 * time.Millisecond, Check: pingRedis(redisClient)})
	hc.Add(Probe{Name: "outbox", Timeout: 2 * time.Second, Slow: time.Second, Check: outboxBacklog(ob)})
	return hc
}

// Add registers another probe.
func (hc *HealthChecker) Add(p Probe) { hc.probes = append(hc.probes, p) }

func pingDB(db *sql.DB) func(context.Context) (string, error) {
	if db == nil {
		return nil
	}
	return func(ctx context.Context) (string, error) {
		return "connected", db.PingContext(ctx)
	}
}

func pingRedis(c *redis.Client) func(context.Context) (string, error) {
	if c == nil {
		return nil
	}
	return func(ctx context.Context) (string, error) {
		return "connected", c.Ping(ctx).Err()
	}
}

// errDeadLetters marks an outbox that is reachable but has given up on writes.
type errDeadLetters int64

func (e errDeadLetters) Error() string { return fmt.Sprintf("%d dead-lettered writes", int64(e)) }

func outboxBacklog(ob OutboxStats) func(context.Context) (string, error) {
	if ob == nil {
		return nil
	}
	return func(ctx context.Context) (string, error) {
		pending, err := ob.Pending(ctx)
		if err != nil {
			return "", err
		}
		dead, err := ob.DeadLetters(ctx)
		if err != nil {
			return "", err
		}
		msg := fmt.Sprintf("%d pending", pending)
		if dead > 0 {
			return msg, errDeadLetters(dead)
		}
		return msg, nil
	}
}

// HandleHealth always answers 200; the status field carries the verdict.
//
//	GET /health
func (hc *HealthChecker) HandleHealth(w http.ResponseWriter, r *http.Request) {
	checks := hc.run(r.Context())
	respondJSON(w, http.StatusOK, HealthStatus{
		Status:  overallStatus(checks),
		Version: healthVersion,
		Uptime:  formatUptime(time.Since(hc.startTime)),
		Checks:  checks,
	})
}

// HandleLiveness answers 200 while the process runs.
//
//	GET /health/live
func (hc *HealthChecker) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "alive",
		"uptime": formatUptime(time.Since(hc.startTime)),
	})
}

// HandleReadiness answers 503 when a configured dependency is down.
//
//	GET /health/ready
func (hc *HealthChecker) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	checks := hc.run(r.Context())
	overall := overallStatus(checks)
	status := http.StatusOK
	if overall == "unhealthy" {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, map[string]interface{}{
		"ready":  overall != "unhealthy",
		"status": overall,
		"checks": checks,
	})
}

func (hc *HealthChecker) run(ctx context.Context) map[string]ComponentCheck {
	checks := make(map[string]ComponentCheck, len(hc.probes))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, p := range hc.probes {
		wg.Add(1)
		go func(p Probe) {
			defer wg.Done()
			c := p.run(ctx)
			mu.Lock()
			checks[p.Name] = c
			mu.Unlock()
		}(p)
	}
	wg.Wait()
	return checks
}

func (p Probe) run(ctx context.Context) ComponentCheck {
	if p.Check == nil {
		return ComponentCheck{Status: "not_configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	start := time.Now()
	msg, err := p.Check(ctx)
	latency := time.Since(start)

	var dead errDeadLetters
	switch {
	case errors.As(err, &dead):
		return ComponentCheck{Status: "degraded", Latency: latency.String(), Message: msg + ", " + dead.Error()}
	case err != nil:
		return ComponentCheck{Status: "down", Latency: latency.String(), Message: err.Error()}
	case p.Slow > 0 && latency > p.Slow:
		return ComponentCheck{Status: "degraded", Latency: latency.String(), Message: "slow response"}
	}
	return ComponentCheck{Status: "up", Latency: latency.String(), Message: msg}
}

// overallStatus is unhealthy when any configured component is down and
// degraded when any is degraded.
func overallStatus(checks map[string]ComponentCheck) string {
	overall := "healthy"
	for _, c := range checks {
		switch c.Status {
		case "down":
			return "unhealthy"
		case "degraded":
			overall = "degraded"
		}
	}
	return overall
}

func formatUptime(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m, s := int(d.Minutes())%60, int(d.Seconds())%60
	switch {
	case h >= 24:
		return fmt.Sprintf("%dd %dh %dm %ds", h/24, h%24, m, s)
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	return fmt.Sprintf("%dm %ds", m, s)
}
