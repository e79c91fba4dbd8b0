package orchestrator

import (
	"context"

	"devpilot/internal/autofix"
	"devpilot/internal/config"
	"devpilot/internal/service"
	"devpilot/internal/tester"
)

// DependencyInstaller defines the dependency operations used by the orchestrator
type DependencyInstaller interface {
	InstallDependencies(ctx context.Context) error
}

// Builder defines the build operations used by the orchestrator
type Builder interface {
	FullBuild(ctx context.Context) error
	QueueBuild(ctx context.Context, file string)
	Stop()
}

// Tester defines the test operations used by the orchestrator
type Tester interface {
	RunAllTests(ctx context.Context) (tester.ResultSet, error)
	RunE2ETests(ctx context.Context) (*tester.E2EResult, error)
}

// Deployer defines the deployment operations used by the orchestrator
type Deployer interface {
	// DeployChanges honours the auto-push gate
	DeployChanges(ctx context.Context) error
	// Push deploys unconditionally
	Push(ctx context.Context) error
}

// Fixer defines the remediation operations used by the orchestrator
type Fixer interface {
	AutoFixIssues(ctx context.Context) autofix.Report
	CreateMissingConfigs(dir string) ([]string, error)
}

// ServiceManager defines the service lifecycle operations used by the orchestrator
type ServiceManager interface {
	StartService(ctx context.Context, svc config.ServiceDescriptor) error
	StopService(ctx context.Context, name string) error
	RestartService(ctx context.Context, name string) error
	StartAllServices(ctx context.Context)
	StopAllServices(ctx context.Context)
	GetService(name string) (service.RuntimeState, bool)
	ListServices() []service.RuntimeState
}

// Components groups the collaborators an Orchestrator delegates to
type Components struct {
	Deps     DependencyInstaller
	Builder  Builder
	Tester   Tester
	Deployer Deployer
	Fixer    Fixer
	Services ServiceManager
}
