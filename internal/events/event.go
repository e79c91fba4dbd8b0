package events

import "time"

// Kind is the wire name of an event variant. The set of kinds is the
// contract dashboards and CI track.
type Kind string

// Event is implemented only by the variants declared in this package
type Event interface {
	Kind() Kind
	isEvent()
}

// variant is embedded by every event to seal the Event interface
type variant struct{}

func (variant) isEvent() {}

const (
	KindInstallStarted        Kind = "install-started"
	KindInstallStrategyFailed Kind = "install-strategy-failed"
	KindInstallCompleted      Kind = "install-completed"
	KindInstallFailed         Kind = "install-failed"

	KindConfigureStarted   Kind = "configure-started"
	KindConfigureCompleted Kind = "configure-completed"
	KindConfigureFailed    Kind = "configure-failed"

	KindBuildStarted              Kind = "build-started"
	KindComponentBuilt            Kind = "component-built"
	KindComponentBuildFailed      Kind = "component-build-failed"
	KindBuildCompleted            Kind = "build-completed"
	KindBuildFailed               Kind = "build-failed"
	KindBuildQueued               Kind = "build-queued"
	KindBuildQueueFlushed         Kind = "build-queue-flushed"
	KindIncrementalBuildCompleted Kind = "incremental-build-completed"
	KindIncrementalBuildFailed    Kind = "incremental-build-failed"

	KindTestsStarted       Kind = "tests-started"
	KindUnitTestPassed     Kind = "unit-test-passed"
	KindUnitTestFailed     Kind = "unit-test-failed"
	KindE2EStarted         Kind = "e2e-started"
	KindE2ECompleted       Kind = "e2e-completed"
	KindE2EFailed          Kind = "e2e-failed"
	KindCoverageCalculated Kind = "coverage-calculated"
	KindCoverageWarning    Kind = "coverage-warning"
	KindTestsCompleted     Kind = "tests-completed"
	KindTestsFailed        Kind = "tests-failed"

	KindDeploymentStarted   Kind = "deployment-started"
	KindDeploymentCompleted Kind = "deployment-completed"
	KindDeploymentFailed    Kind = "deployment-failed"
	KindDeploymentSkipped   Kind = "deployment-skipped"

	KindAutoFixStarted    Kind = "autofix-started"
	KindAutoFixStepFailed Kind = "autofix-step-failed"
	KindAutoFixCompleted  Kind = "autofix-completed"
	KindFileFixed         Kind = "file-fixed"
	KindFileFixFailed     Kind = "file-fix-failed"

	KindServiceStarting      Kind = "service-starting"
	KindServiceStarted       Kind = "service-started"
	KindServiceStartFailed   Kind = "service-start-failed"
	KindServiceStopping      Kind = "service-stopping"
	KindServiceStopped       Kind = "service-stopped"
	KindServiceRestarting    Kind = "service-restarting"
	KindServiceRestarted     Kind = "service-restarted"
	KindServiceRestartFailed Kind = "service-restart-failed"
	KindHealthCheckCompleted Kind = "health-check-completed"

	KindFullCycleStarted   Kind = "full-cycle-started"
	KindFullCycleStage     Kind = "full-cycle-stage"
	KindFullCycleCompleted Kind = "full-cycle-completed"
	KindFullCycleFailed    Kind = "full-cycle-failed"

	KindCommandFailed Kind = "command-failed"
)

// Dependency installation

type InstallStarted struct {
	variant
	Targets []string `json:"targets"`
}

type InstallStrategyFailed struct {
	variant
	Target   string `json:"target"`
	Path     string `json:"path"`
	Strategy string `json:"strategy"`
	Error    string `json:"error"`
}

type InstallCompleted struct {
	variant
	Targets  []string      `json:"targets"`
	Duration time.Duration `json:"duration"`
}

type InstallFailed struct {
	variant
	Target string `json:"target"`
	Error  string `json:"error"`
}

// Auto-configuration

type ConfigureStarted struct {
	variant
}

type ConfigureCompleted struct {
	variant
	Created []string `json:"created"`
}

type ConfigureFailed struct {
	variant
	Error string `json:"error"`
}

// Builds

type BuildStarted struct {
	variant
	Services []string `json:"services"`
}

type ComponentBuilt struct {
	variant
	Service  string        `json:"service"`
	Duration time.Duration `json:"duration"`
}

type ComponentBuildFailed struct {
	variant
	Service string `json:"service"`
	Error   string `json:"error"`
}

type BuildCompleted struct {
	variant
	Built    int           `json:"built"`
	Duration time.Duration `json:"duration"`
}

type BuildFailed struct {
	variant
	Failed []string `json:"failed"`
	Error  string   `json:"error"`
}

type BuildQueued struct {
	variant
	File    string `json:"file"`
	Pending int    `json:"pending"`
}

type BuildQueueFlushed struct {
	variant
	Files []string `json:"files"`
}

type IncrementalBuildCompleted struct {
	variant
	Files            []string `json:"files"`
	AffectedServices []string `json:"affectedServices"`
}

type IncrementalBuildFailed struct {
	variant
	Service string `json:"service"`
	Error   string `json:"error"`
}

// Tests

type TestsStarted struct {
	variant
}

type UnitTestPassed struct {
	variant
	Service string `json:"service"`
}

type UnitTestFailed struct {
	variant
	Service string `json:"service"`
	Error   string `json:"error"`
}

type E2EStarted struct {
	variant
	Command []string `json:"command"`
}

type E2ECompleted struct {
	variant
	Duration time.Duration `json:"duration"`
}

type E2EFailed struct {
	variant
	Error string `json:"error"`
}

type CoverageCalculated struct {
	variant
	Percent float64 `json:"percent"`
	Target  float64 `json:"target"`
}

type CoverageWarning struct {
	variant
	Error string `json:"error"`
}

type TestsCompleted struct {
	variant
	Results TestResults `json:"results"`
}

type TestsFailed struct {
	variant
	Results TestResults `json:"results"`
	Error   string      `json:"error"`
}

// Deployment

type DeploymentStarted struct {
	variant
	DeployID string `json:"deployId"`
}

type DeploymentCompleted struct {
	variant
	DeployID  string `json:"deployId"`
	Commit    string `json:"commit,omitempty"`
	Remote    string `json:"remote"`
	Branch    string `json:"branch"`
	Committed bool   `json:"committed"`
}

type DeploymentFailed struct {
	variant
	DeployID string `json:"deployId"`
	Error    string `json:"error"`
}

type DeploymentSkipped struct {
	variant
	Reason string `json:"reason"`
}

// Auto-fix

type AutoFixStarted struct {
	variant
}

type AutoFixStepFailed struct {
	variant
	Step  string `json:"step"`
	Error string `json:"error"`
}

type AutoFixCompleted struct {
	variant
	Applied []string `json:"applied"`
	Failed  []string `json:"failed"`
}

type FileFixed struct {
	variant
	Path    string   `json:"path"`
	Actions []string `json:"actions"`
}

type FileFixFailed struct {
	variant
	Path  string `json:"path"`
	Error string `json:"error"`
}

// Services

type ServiceStarting struct {
	variant
	Service string `json:"service"`
}

type ServiceStarted struct {
	variant
	Service string `json:"service"`
	PID     int    `json:"pid"`
	Port    int    `json:"port,omitempty"`
}

type ServiceStartFailed struct {
	variant
	Service string `json:"service"`
	Error   string `json:"error"`
}

type ServiceStopping struct {
	variant
	Service string `json:"service"`
}

type ServiceStopped struct {
	variant
	Service string `json:"service"`
	Forced  bool   `json:"forced"`
}

type ServiceRestarting struct {
	variant
	Service string `json:"service"`
}

type ServiceRestarted struct {
	variant
	Service string `json:"service"`
}

type ServiceRestartFailed struct {
	variant
	Service string `json:"service"`
	Error   string `json:"error"`
}

type HealthCheckCompleted struct {
	variant
	Results []HealthCheckResult `json:"results"`
}

// Full cycle

type FullCycleStarted struct {
	variant
}

type FullCycleStage struct {
	variant
	Stage string `json:"stage"`
}

type FullCycleCompleted struct {
	variant
	Duration time.Duration `json:"duration"`
}

type FullCycleFailed struct {
	variant
	Stage string `json:"stage"`
	Error string `json:"error"`
}

// Commands

type CommandFailed struct {
	variant
	Command string `json:"command"`
	Error   string `json:"error"`
}

func (InstallStarted) Kind() Kind            { return KindInstallStarted }
func (InstallStrategyFailed) Kind() Kind     { return KindInstallStrategyFailed }
func (InstallCompleted) Kind() Kind          { return KindInstallCompleted }
func (InstallFailed) Kind() Kind             { return KindInstallFailed }
func (ConfigureStarted) Kind() Kind          { return KindConfigureStarted }
func (ConfigureCompleted) Kind() Kind        { return KindConfigureCompleted }
func (ConfigureFailed) Kind() Kind           { return KindConfigureFailed }
func (BuildStarted) Kind() Kind              { return KindBuildStarted }
func (ComponentBuilt) Kind() Kind            { return KindComponentBuilt }
func (ComponentBuildFailed) Kind() Kind      { return KindComponentBuildFailed }
func (BuildCompleted) Kind() Kind            { return KindBuildCompleted }
func (BuildFailed) Kind() Kind               { return KindBuildFailed }
func (BuildQueued) Kind() Kind               { return KindBuildQueued }
func (BuildQueueFlushed) Kind() Kind         { return KindBuildQueueFlushed }
func (IncrementalBuildCompleted) Kind() Kind { return KindIncrementalBuildCompleted }
func (IncrementalBuildFailed) Kind() Kind    { return KindIncrementalBuildFailed }
func (TestsStarted) Kind() Kind              { return KindTestsStarted }
func (UnitTestPassed) Kind() Kind            { return KindUnitTestPassed }
func (UnitTestFailed) Kind() Kind            { return KindUnitTestFailed }
func (E2EStarted) Kind() Kind                { return KindE2EStarted }
func (E2ECompleted) Kind() Kind              { return KindE2ECompleted }
func (E2EFailed) Kind() Kind                 { return KindE2EFailed }
func (CoverageCalculated) Kind() Kind        { return KindCoverageCalculated }
func (CoverageWarning) Kind() Kind           { return KindCoverageWarning }
func (TestsCompleted) Kind() Kind            { return KindTestsCompleted }
func (TestsFailed) Kind() Kind               { return KindTestsFailed }
func (DeploymentStarted) Kind() Kind         { return KindDeploymentStarted }
func (DeploymentCompleted) Kind() Kind       { return KindDeploymentCompleted }
func (DeploymentFailed) Kind() Kind          { return KindDeploymentFailed }
func (DeploymentSkipped) Kind() Kind         { return KindDeploymentSkipped }
func (AutoFixStarted) Kind() Kind            { return KindAutoFixStarted }
func (AutoFixStepFailed) Kind() Kind         { return KindAutoFixStepFailed }
func (AutoFixCompleted) Kind() Kind          { return KindAutoFixCompleted }
func (FileFixed) Kind() Kind                 { return KindFileFixed }
func (FileFixFailed) Kind() Kind             { return KindFileFixFailed }
func (ServiceStarting) Kind() Kind           { return KindServiceStarting }
func (ServiceStarted) Kind() Kind            { return KindServiceStarted }
func (ServiceStartFailed) Kind() Kind        { return KindServiceStartFailed }
func (ServiceStopping) Kind() Kind           { return KindServiceStopping }
func (ServiceStopped) Kind() Kind            { return KindServiceStopped }
func (ServiceRestarting) Kind() Kind         { return KindServiceRestarting }
func (ServiceRestarted) Kind() Kind          { return KindServiceRestarted }
func (ServiceRestartFailed) Kind() Kind      { return KindServiceRestartFailed }
func (HealthCheckCompleted) Kind() Kind      { return KindHealthCheckCompleted }
func (FullCycleStarted) Kind() Kind          { return KindFullCycleStarted }
func (FullCycleStage) Kind() Kind            { return KindFullCycleStage }
func (FullCycleCompleted) Kind() Kind        { return KindFullCycleCompleted }
func (FullCycleFailed) Kind() Kind           { return KindFullCycleFailed }
func (CommandFailed) Kind() Kind             { return KindCommandFailed }
