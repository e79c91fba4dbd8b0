package orchestrator

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"devpilot/internal/events"
	"devpilot/internal/service"
	"devpilot/internal/tester"
)

// ErrorLogEntry is one line of the status error log
type ErrorLogEntry struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Service   string    `json:"service,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ServiceStatus is the snapshot view of one service
type ServiceStatus struct {
	Status    service.Status `json:"status"`
	PID       int            `json:"pid,omitempty"`
	Port      int            `json:"port,omitempty"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Status is the aggregate read-only view of the system. A Status value is
// never modified once published; Reduce returns a new one.
type Status struct {
	Building     bool                                `json:"building"`
	Testing      bool                                `json:"testing"`
	Services     map[string]ServiceStatus            `json:"services"`
	BuildQueue   []string                            `json:"buildQueue"`
	TestResults  *tester.ResultSet                   `json:"testResults"`
	HealthChecks map[string]events.HealthCheckResult `json:"healthChecks"`
	Errors       []ErrorLogEntry                     `json:"errors"`
	LastBuild    *time.Time                          `json:"lastBuild"`
	BuildCount   int                                 `json:"buildCount"`
	TestCount    int                                 `json:"testCount"`
	DeployCount  int                                 `json:"deployCount"`
}

// NewStatus returns the empty snapshot
func NewStatus() Status {
	return Status{
		Services:     map[string]ServiceStatus{},
		BuildQueue:   []string{},
		HealthChecks: map[string]events.HealthCheckResult{},
		Errors:       []ErrorLogEntry{},
	}
}

// Clone returns a deep enough copy of s that the caller may modify freely
func (s Status) Clone() Status {
	out := s
	out.Services = maps.Clone(s.Services)
	out.BuildQueue = slices.Clone(s.BuildQueue)
	out.HealthChecks = maps.Clone(s.HealthChecks)
	out.Errors = slices.Clone(s.Errors)
	if s.LastBuild != nil {
		t := *s.LastBuild
		out.LastBuild = &t
	}
	return out
}

// Reduce folds e into s at time now and returns the next snapshot. s is not
// modified; collections are copied before they change.
func Reduce(s Status, e events.Event, now time.Time) Status {
	switch ev := e.(type) {
	case events.InstallFailed:
		return s.withError("install", ev.Error, ev.Target, now)
	case events.ConfigureFailed:
		return s.withError("configure", ev.Error, "", now)

	case events.BuildStarted:
		s.Building = true
	case events.BuildCompleted:
		s.Building = false
		s.BuildCount++
		s.LastBuild = &now
	case events.BuildFailed:
		s.Building = false
		return s.withError("build", ev.Error, "", now)
	case events.ComponentBuildFailed:
		return s.withError("build", ev.Error, ev.Service, now)
	case events.BuildQueued:
		if !slices.Contains(s.BuildQueue, ev.File) {
			s.BuildQueue = append(slices.Clip(s.BuildQueue), ev.File)
		}
	case events.BuildQueueFlushed:
		s.BuildQueue = []string{}
	case events.IncrementalBuildCompleted:
		s.BuildCount++
		s.LastBuild = &now
	case events.IncrementalBuildFailed:
		return s.withError("incremental-build", ev.Error, ev.Service, now)

	case events.TestsStarted:
		s.Testing = true
	case events.TestsCompleted:
		s.Testing = false
		s.TestCount++
		s.TestResults = cloneResults(ev.Results)
	case events.TestsFailed:
		s.Testing = false
		s.TestCount++
		s.TestResults = cloneResults(ev.Results)
		return s.withError("tests", ev.Error, "", now)
	case events.UnitTestFailed:
		return s.withError("unit-test", ev.Error, ev.Service, now)
	case events.E2EFailed:
		return s.withError("e2e", ev.Error, "", now)
	case events.CoverageWarning:
		return s.withError("coverage", ev.Error, "", now)

	case events.DeploymentCompleted:
		s.DeployCount++
	case events.DeploymentFailed:
		return s.withError("deployment", ev.Error, "", now)

	case events.AutoFixStepFailed:
		return s.withError("autofix", fmt.Sprintf("%s: %s", ev.Step, ev.Error), "", now)
	case events.FileFixFailed:
		return s.withError("autofix", fmt.Sprintf("%s: %s", ev.Path, ev.Error), "", now)

	case events.ServiceStarting:
		return s.withService(ev.Service, ServiceStatus{Status: service.StatusStarting}, now)
	case events.ServiceStarted:
		return s.withService(ev.Service, ServiceStatus{Status: service.StatusRunning, PID: ev.PID, Port: ev.Port}, now)
	case events.ServiceStartFailed:
		s = s.withService(ev.Service, ServiceStatus{Status: service.StatusStopped}, now)
		return s.withError("service-start", ev.Error, ev.Service, now)
	case events.ServiceStopping:
		return s.withService(ev.Service, s.serviceOr(ev.Service, service.StatusStopping), now)
	case events.ServiceStopped:
		return s.withService(ev.Service, ServiceStatus{Status: service.StatusStopped}, now)
	case events.ServiceRestarting:
		return s.withService(ev.Service, s.serviceOr(ev.Service, service.StatusRestarting), now)
	case events.ServiceRestartFailed:
		return s.withError("service-restart", ev.Error, ev.Service, now)

	case events.HealthCheckCompleted:
		checks := maps.Clone(s.HealthChecks)
		if checks == nil {
			checks = map[string]events.HealthCheckResult{}
		}
		for _, r := range ev.Results {
			checks[r.Service] = r
		}
		s.HealthChecks = checks

	case events.FullCycleFailed:
		return s.withError("full-cycle", fmt.Sprintf("%s: %s", ev.Stage, ev.Error), "", now)
	case events.CommandFailed:
		return s.withError("command", fmt.Sprintf("%s: %s", ev.Command, ev.Error), "", now)
	}
	return s
}

func (s Status) withError(kind, message, svc string, now time.Time) Status {
	s.Errors = append(slices.Clip(s.Errors), ErrorLogEntry{
		Type:      kind,
		Message:   message,
		Service:   svc,
		Timestamp: now,
	})
	return s
}

func (s Status) withService(name string, st ServiceStatus, now time.Time) Status {
	services := maps.Clone(s.Services)
	if services == nil {
		services = map[string]ServiceStatus{}
	}
	st.UpdatedAt = now
	services[name] = st
	s.Services = services
	return s
}

// serviceOr keeps the known pid and port of name under a new lifecycle status
func (s Status) serviceOr(name string, status service.Status) ServiceStatus {
	st := s.Services[name]
	st.Status = status
	return st
}

func cloneResults(r tester.ResultSet) *tester.ResultSet {
	out := r
	out.Unit = maps.Clone(r.Unit)
	out.Integration = slices.Clone(r.Integration)
	if r.E2E != nil {
		e2e := *r.E2E
		out.E2E = &e2e
	}
	if r.Coverage != nil {
		c := *r.Coverage
		out.Coverage = &c
	}
	return &out
}
