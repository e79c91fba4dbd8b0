// Package orchestrator composes the build, test, deploy, remediation and
// service components. It runs the full pipeline, maps boundary commands onto
// component calls and projects every event into one status snapshot.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"devpilot/internal/config"
	"devpilot/internal/errors"
	"devpilot/internal/events"
	"devpilot/internal/logger"
	"devpilot/internal/service"
)

// Orchestrator delegates each operation to exactly one component
type Orchestrator struct {
	cfg *config.Config
	bus *events.Bus
	c   Components
	now func() time.Time

	mu     sync.RWMutex
	status Status
	sub    events.Subscription
}

// New creates an orchestrator and subscribes its reducer to every event
func New(cfg *config.Config, bus *events.Bus, c Components) *Orchestrator {
	o := &Orchestrator{
		cfg:    cfg,
		bus:    bus,
		c:      c,
		now:    time.Now,
		status: NewStatus(),
	}
	o.sub = bus.SubscribeAll(o.apply)
	return o
}

func (o *Orchestrator) apply(e events.Event) {
	o.mu.Lock()
	o.status = Reduce(o.status, e, o.now())
	o.mu.Unlock()
}

// Status returns a copy of the current snapshot
func (o *Orchestrator) Status() Status {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.status.Clone()
}

// Bus returns the event bus the orchestrator observes
func (o *Orchestrator) Bus() *events.Bus {
	return o.bus
}

// Close detaches the reducer and drops any pending incremental builds
func (o *Orchestrator) Close() {
	o.bus.Unsubscribe(o.sub)
	o.c.Builder.Stop()
}

// Build runs a full build of every service
func (o *Orchestrator) Build(ctx context.Context) error {
	return o.c.Builder.FullBuild(ctx)
}

// Test runs the whole test suite
func (o *Orchestrator) Test(ctx context.Context) error {
	_, err := o.c.Tester.RunAllTests(ctx)
	return err
}

// Deploy commits and pushes when auto-push is enabled
func (o *Orchestrator) Deploy(ctx context.Context) error {
	return o.c.Deployer.DeployChanges(ctx)
}

// AutoPush commits and pushes regardless of the auto-push setting
func (o *Orchestrator) AutoPush(ctx context.Context) error {
	return o.c.Deployer.Push(ctx)
}

// Fix runs the remediation sweep. Remediation is best effort, so step
// failures are reported through events and never returned.
func (o *Orchestrator) Fix(ctx context.Context) error {
	report := o.c.Fixer.AutoFixIssues(ctx)
	logger.WithFields(logger.Fields{
		"applied": report.Applied,
		"failed":  report.Failed,
	}).Info("Auto-fix finished")
	return nil
}

// AutoInstall installs dependencies for the project and every node service
func (o *Orchestrator) AutoInstall(ctx context.Context) error {
	return o.c.Deps.InstallDependencies(ctx)
}

// AutoConfigure writes the missing default tool configs into the project root
func (o *Orchestrator) AutoConfigure(ctx context.Context) error {
	_, err := o.c.Fixer.CreateMissingConfigs(o.cfg.Project.Root)
	return err
}

// Cypress runs only the end-to-end suite
func (o *Orchestrator) Cypress(ctx context.Context) error {
	_, err := o.c.Tester.RunE2ETests(ctx)
	return err
}

// FullCycle runs the five-stage pipeline
func (o *Orchestrator) FullCycle(ctx context.Context) error {
	return o.RunFullAutoCycle(ctx)
}

// StartService starts one configured service, or every port-bearing service
// when name is empty
func (o *Orchestrator) StartService(ctx context.Context, name string) error {
	if name == "" {
		o.c.Services.StartAllServices(ctx)
		return nil
	}
	svc, ok := o.cfg.Lookup(name)
	if !ok {
		return errors.ServiceNotFound(name)
	}
	return o.c.Services.StartService(ctx, svc)
}

// StopService stops one service, or every service when name is empty
func (o *Orchestrator) StopService(ctx context.Context, name string) error {
	if name == "" {
		o.c.Services.StopAllServices(ctx)
		return nil
	}
	return o.c.Services.StopService(ctx, name)
}

// RestartService restarts the named service
func (o *Orchestrator) RestartService(ctx context.Context, name string) error {
	if name == "" {
		return errors.InvalidInput("service", "a service name")
	}
	return o.c.Services.RestartService(ctx, name)
}

// Services returns the live state of every tracked service process
func (o *Orchestrator) Services() []service.RuntimeState {
	return o.c.Services.ListServices()
}

// Service returns the live state of name. A configured service that is not
// running is reported as stopped.
func (o *Orchestrator) Service(name string) (service.RuntimeState, error) {
	if state, ok := o.c.Services.GetService(name); ok {
		return state, nil
	}
	svc, ok := o.cfg.Lookup(name)
	if !ok {
		return service.RuntimeState{}, errors.ServiceNotFound(name)
	}
	return service.RuntimeState{Descriptor: svc, Status: service.StatusStopped}, nil
}

// QueueBuild schedules an incremental build for a changed file
func (o *Orchestrator) QueueBuild(ctx context.Context, file string) {
	o.c.Builder.QueueBuild(ctx, file)
}
