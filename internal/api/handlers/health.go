package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Pinger is the storage surface the readiness check needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// migrationReporter is implemented by stores that track schema migrations.
type migrationReporter interface {
	MigrationState(ctx context.Context) (version int64, dirty bool, err error)
}

// HealthCheck is the /readyz response body.
type HealthCheck struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	GitCommit string                 `json:"git_commit"`
	Checks    map[string]CheckResult `json:"checks"`
	Timestamp string                 `json:"timestamp"`
}

// CheckResult is the outcome of one readiness check.
type CheckResult struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
}

const checkTimeout = 2 * time.Second

type HealthChecker struct {
	store     Pinger
	version   string
	gitCommit string
}

func NewHealthChecker(store Pinger, version, gitCommit string) *HealthChecker {
	return &HealthChecker{store: store, version: version, gitCommit: gitCommit}
}

// Healthz is the liveness probe. It never touches storage.
func (h *HealthChecker) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz reports whether storage is reachable and, for stores that track
// them, whether migrations are in a clean state.
func (h *HealthChecker) Readyz(w http.ResponseWriter, r *http.Request) {
	select {
	case <-r.Context().Done():
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "shutting_down"})
		return
	default:
	}

	checks := map[string]CheckResult{
		"database": h.checkDatabase(r.Context()),
	}
	if reporter, ok := h.store.(migrationReporter); ok {
		checks["migrations"] = checkMigrations(r.Context(), reporter)
	}

	status, code := "healthy", http.StatusOK
	for _, check := range checks {
		if check.Status == "fail" {
			status, code = "unhealthy", http.StatusServiceUnavailable
			break
		}
	}

	writeJSON(w, code, HealthCheck{
		Status:    status,
		Version:   h.version,
		GitCommit: h.gitCommit,
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *HealthChecker) checkDatabase(ctx context.Context) CheckResult {
	if h.store == nil {
		return CheckResult{Status: "fail", Message: "Storage not initialized"}
	}

	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	start := time.Now()
	err := h.store.Ping(ctx)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		message := "Storage ping failed"
		if ctx.Err() == context.DeadlineExceeded {
			message = "Storage ping timed out after 2 seconds"
		}
		return CheckResult{Status: "fail", Message: message, LatencyMs: latency}
	}
	return CheckResult{Status: "pass", Message: "Storage reachable", LatencyMs: latency}
}

func checkMigrations(ctx context.Context, reporter migrationReporter) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	start := time.Now()
	version, dirty, err := reporter.MigrationState(ctx)
	latency := time.Since(start).Milliseconds()
	switch {
	case err != nil:
		return CheckResult{Status: "fail", Message: "Failed to read migration state", LatencyMs: latency}
	case dirty:
		return CheckResult{Status: "fail", Message: fmt.Sprintf("Database in dirty migration state (version %d)", version), LatencyMs: latency}
	case version == 0:
		return CheckResult{Status: "fail", Message: "No migrations applied", LatencyMs: latency}
	}
	return CheckResult{Status: "pass", Message: fmt.Sprintf("Migrations applied (version %d)", version), LatencyMs: latency}
}
