package events

import "time"

// HealthStatus classifies a health probe
type HealthStatus string

const (
	Healthy   HealthStatus = "healthy"
	Unhealthy HealthStatus = "unhealthy"
)

// HealthCheckResult is the outcome of probing one service's health endpoint
type HealthCheckResult struct {
	Service   string       `json:"service"`
	Status    HealthStatus `json:"status"`
	Response  string       `json:"response,omitempty"`
	Error     string       `json:"error,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// Healthy reports whether the probe succeeded
func (r HealthCheckResult) Healthy() bool {
	return r.Status == Healthy
}

// Outcome of a single test stage
const (
	TestPassed = "passed"
	TestFailed = "failed"
)

// UnitResult is the outcome of one service's unit test script
type UnitResult struct {
	Status    string    `json:"status"`
	Output    string    `json:"output,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// E2EResult is the outcome of the end-to-end runner
type E2EResult struct {
	Status    string    `json:"status"`
	Output    string    `json:"output,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// TestResults aggregates one full test run
type TestResults struct {
	Unit        map[string]UnitResult `json:"unit"`
	E2E         *E2EResult            `json:"e2e,omitempty"`
	Integration []HealthCheckResult   `json:"integration,omitempty"`
	Coverage    *float64              `json:"coverage,omitempty"`
}
