package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"devpilot/internal/config"
	"devpilot/internal/events"
	"devpilot/internal/logger"
)

// PerformHealthCheck probes svc's health endpoint with the configured timeout
func (m *Manager) PerformHealthCheck(ctx context.Context, svc config.ServiceDescriptor) HealthCheckResult {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.Monitor.HealthTimeout())
	defer cancel()

	var proc *Process
	m.mutex.Lock()
	if state, ok := m.services[svc.Name]; ok {
		proc = state.Process
	}
	m.mutex.Unlock()

	detail, err := m.health(svc, proc).Check(ctx)
	res := HealthCheckResult{
		Service:   svc.Name,
		Status:    events.Healthy,
		Response:  detail,
		Timestamp: time.Now(),
	}
	if err != nil {
		res.Status = events.Unhealthy
		res.Error = err.Error()
	}
	return res
}

// CheckAllHealth probes every port-bearing service concurrently and
// publishes the results in configuration order
func (m *Manager) CheckAllHealth(ctx context.Context) []HealthCheckResult {
	services := m.cfg.PortServices()
	results := make([]HealthCheckResult, len(services))

	var g errgroup.Group
	for i, svc := range services {
		g.Go(func() error {
			results[i] = m.PerformHealthCheck(ctx, svc)
			return nil
		})
	}
	_ = g.Wait()

	m.bus.Publish(events.HealthCheckCompleted{Results: results})
	return results
}

// StartHealthMonitoring checks all services every interval and restarts the
// unhealthy ones. A non-positive interval uses the configured one. Calling it
// while monitoring is active is a no-op.
func (m *Manager) StartHealthMonitoring(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = m.cfg.Monitor.HealthInterval()
	}

	m.monitorMu.Lock()
	defer m.monitorMu.Unlock()
	if m.monitorCancel != nil {
		logger.Debug("Health monitoring already running")
		return
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	m.monitorCancel = cancel
	m.monitorDone = done

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.sweep(ctx)
			}
		}
	}()

	logger.WithField("interval", interval.String()).Info("Health monitoring started")
}

// sweep runs one health check round and restarts every unhealthy service
func (m *Manager) sweep(ctx context.Context) {
	for _, res := range m.CheckAllHealth(ctx) {
		if res.Healthy() {
			continue
		}
		if ctx.Err() != nil {
			return
		}
		logger.WithFields(logger.Fields{
			"service": res.Service,
			"error":   res.Error,
		}).Warn("Service unhealthy, restarting")
		if err := m.RestartService(ctx, res.Service); err != nil {
			logger.WithError(err).WithField("service", res.Service).Error("Automatic restart failed")
		}
	}
}

// StopHealthMonitoring cancels the monitor and waits for an in-flight sweep
func (m *Manager) StopHealthMonitoring() {
	m.monitorMu.Lock()
	cancel, done := m.monitorCancel, m.monitorDone
	m.monitorCancel, m.monitorDone = nil, nil
	m.monitorMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	logger.Info("Health monitoring stopped")
}

// IsMonitoring reports whether the health monitor is active
func (m *Manager) IsMonitoring() bool {
	m.monitorMu.Lock()
	defer m.monitorMu.Unlock()
	return m.monitorCancel != nil
}
