// Package service supervises service processes: start with readiness
// probing, graceful stop with forced kill, restart, and a health monitor that
// restarts unhealthy services.
package service

import (
	"context"
	stderrors "errors"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"devpilot/internal/config"
	"devpilot/internal/errors"
	"devpilot/internal/events"
	"devpilot/internal/logger"
)

// HealthCheckResult is the outcome of one health probe
type HealthCheckResult = events.HealthCheckResult

// Status is the lifecycle state of a tracked service
type Status string

const (
	StatusStarting   Status = "starting"
	StatusRunning    Status = "running"
	StatusStopping   Status = "stopping"
	StatusStopped    Status = "stopped"
	StatusRestarting Status = "restarting"
)

// RuntimeState tracks a service between a successful start and a completed stop
type RuntimeState struct {
	Descriptor config.ServiceDescriptor `json:"descriptor"`
	Process    *Process                 `json:"-"`
	PID        int                      `json:"pid,omitempty"`
	Status     Status                   `json:"status"`
	StartTime  time.Time                `json:"start_time"`
	StopTime   time.Time                `json:"stop_time,omitempty"`
}

// Manager handles service lifecycle operations
type Manager struct {
	cfg *config.Config
	bus *events.Bus

	readiness ProbeFactory
	health    ProbeFactory

	services map[string]*RuntimeState
	mutex    sync.Mutex

	monitorMu     sync.Mutex
	monitorCancel context.CancelFunc
	monitorDone   chan struct{}
}

// New creates a new service manager
func New(cfg *config.Config, bus *events.Bus) *Manager {
	return &Manager{
		cfg:       cfg,
		bus:       bus,
		readiness: DefaultReadiness(cfg.Monitor.HealthTimeout()),
		health:    DefaultHealth(cfg.Monitor.HealthTimeout()),
		services:  make(map[string]*RuntimeState),
	}
}

// SetProbes replaces the readiness and health probe factories. A nil factory
// keeps the current one.
func (m *Manager) SetProbes(readiness, health ProbeFactory) {
	if readiness != nil {
		m.readiness = readiness
	}
	if health != nil {
		m.health = health
	}
}

// StartService spawns svc and, when it declares a port, waits for the
// readiness probe. Starting a tracked service is a logged no-op.
func (m *Manager) StartService(ctx context.Context, svc config.ServiceDescriptor) error {
	log := logger.WithField("service", svc.Name)

	m.mutex.Lock()
	if _, exists := m.services[svc.Name]; exists {
		m.mutex.Unlock()
		log.Warn("Service already running")
		return nil
	}
	state := &RuntimeState{Descriptor: svc, Status: StatusStarting}
	m.services[svc.Name] = state
	m.mutex.Unlock()

	m.bus.Publish(events.ServiceStarting{Service: svc.Name})

	fail := func(proc *Process, err error) error {
		if proc != nil {
			proc.Kill()
		}
		m.untrack(svc.Name, state)
		wrapped := errors.ServiceStartFailed(svc.Name, err)
		m.bus.Publish(events.ServiceStartFailed{Service: svc.Name, Error: wrapped.Error()})
		log.WithError(err).Error("Service failed to start")
		return wrapped
	}

	proc, err := spawn(svc, m.cfg.ServiceDir(svc))
	if err != nil {
		return fail(nil, err)
	}

	if svc.HasPort() {
		if err := m.waitReady(ctx, m.readiness(svc, proc)); err != nil {
			return fail(proc, err)
		}
	}

	m.mutex.Lock()
	state.Process = proc
	state.PID = proc.PID()
	state.Status = StatusRunning
	state.StartTime = time.Now()
	m.mutex.Unlock()

	m.bus.Publish(events.ServiceStarted{Service: svc.Name, PID: proc.PID(), Port: svc.Port})
	log.WithField("pid", proc.PID()).Info("Service started")
	return nil
}

// waitReady polls probe until it succeeds, the process exits or the ready
// timeout elapses
func (m *Manager) waitReady(ctx context.Context, probe Probe) error {
	timeout := m.cfg.Monitor.ReadyTimeout()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(m.cfg.Monitor.ReadyPoll())
	defer ticker.Stop()

	for {
		_, err := probe.Check(ctx)
		if err == nil {
			return nil
		}
		if stderrors.Is(err, ErrProcessExited) {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return errors.TimeoutError("waiting for service readiness", timeout).WithContext("last_error", err.Error())
		case <-ticker.C:
		}
	}
}

// untrack removes name if it still maps to state
func (m *Manager) untrack(name string, state *RuntimeState) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.services[name] == state {
		delete(m.services, name)
	}
}

// StopService terminates a tracked service, force-killing it when it has not
// exited within the stop timeout. Stopping an untracked service is a logged
// no-op.
func (m *Manager) StopService(ctx context.Context, name string) error {
	log := logger.WithField("service", name)

	m.mutex.Lock()
	state, exists := m.services[name]
	if !exists {
		m.mutex.Unlock()
		log.Warn("Service not running")
		return nil
	}
	if state.Process == nil {
		m.mutex.Unlock()
		return errors.ServiceStopFailed(name, errors.New(errors.ErrServiceStopFailed, "service is still starting"))
	}
	state.Status = StatusStopping
	proc := state.Process
	m.mutex.Unlock()

	m.bus.Publish(events.ServiceStopping{Service: name})

	forced := proc.Stop(m.cfg.Monitor.StopTimeout())

	m.mutex.Lock()
	state.Status = StatusStopped
	state.StopTime = time.Now()
	m.mutex.Unlock()
	m.untrack(name, state)

	m.bus.Publish(events.ServiceStopped{Service: name, Forced: forced})
	log.WithField("forced", forced).Info("Service stopped")
	return nil
}

// RestartService stops then starts a service, using the tracked descriptor
// or the configured one when the service is not running
func (m *Manager) RestartService(ctx context.Context, name string) error {
	m.mutex.Lock()
	state, tracked := m.services[name]
	var svc config.ServiceDescriptor
	if tracked {
		svc = state.Descriptor
		state.Status = StatusRestarting
	}
	m.mutex.Unlock()

	fail := func(err error) error {
		wrapped := errors.ServiceRestartFailed(name, err)
		m.bus.Publish(events.ServiceRestartFailed{Service: name, Error: wrapped.Error()})
		logger.WithError(err).WithField("service", name).Error("Service restart failed")
		return wrapped
	}

	if !tracked {
		var ok bool
		if svc, ok = m.cfg.Lookup(name); !ok {
			return fail(errors.ServiceNotFound(name))
		}
	}

	m.bus.Publish(events.ServiceRestarting{Service: name})

	if err := m.StopService(ctx, name); err != nil {
		return fail(err)
	}
	if err := m.StartService(ctx, svc); err != nil {
		return fail(err)
	}

	m.bus.Publish(events.ServiceRestarted{Service: name})
	return nil
}

// StartAllServices starts every port-bearing service concurrently. Failures
// are logged, not returned.
func (m *Manager) StartAllServices(ctx context.Context) {
	var g errgroup.Group
	for _, svc := range m.cfg.PortServices() {
		g.Go(func() error {
			if err := m.StartService(ctx, svc); err != nil {
				logger.WithError(err).WithField("service", svc.Name).Warn("Start failed")
			}
			return nil
		})
	}
	_ = g.Wait()
}

// StopAllServices stops every port-bearing or tracked service concurrently.
// Failures are logged, not returned.
func (m *Manager) StopAllServices(ctx context.Context) {
	var names []string
	for _, svc := range m.cfg.PortServices() {
		names = append(names, svc.Name)
	}
	m.mutex.Lock()
	for name := range m.services {
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	m.mutex.Unlock()

	var g errgroup.Group
	for _, name := range names {
		g.Go(func() error {
			if err := m.StopService(ctx, name); err != nil {
				logger.WithError(err).WithField("service", name).Warn("Stop failed")
			}
			return nil
		})
	}
	_ = g.Wait()
}

// IsRunning reports whether name is tracked
func (m *Manager) IsRunning(name string) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	_, ok := m.services[name]
	return ok
}

// GetService returns a copy of the tracked state of name
func (m *Manager) GetService(name string) (RuntimeState, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	state, ok := m.services[name]
	if !ok {
		return RuntimeState{}, false
	}
	return *state, true
}

// ListServices returns copies of every tracked state, sorted by name
func (m *Manager) ListServices() []RuntimeState {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	states := make([]RuntimeState, 0, len(m.services))
	for _, s := range m.services {
		states = append(states, *s)
	}
	slices.SortFunc(states, func(a, b RuntimeState) int {
		switch {
		case a.Descriptor.Name < b.Descriptor.Name:
			return -1
		case a.Descriptor.Name > b.Descriptor.Name:
			return 1
		}
		return 0
	})
	return states
}
