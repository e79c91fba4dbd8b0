package errors

import "fmt"

// Configuration Errors
func ConfigNotFound(path string) *PilotError {
	return NewWithDetails(ErrConfigNotFound, "Configuration file not found", fmt.Sprintf("Path: %s", path))
}

func ConfigParseError(path string, cause error) *PilotError {
	return WrapWithDetails(ErrConfigParse, "Failed to parse configuration", fmt.Sprintf("Path: %s", path), cause)
}

func ConfigValidationError(field, reason string) *PilotError {
	return NewWithDetails(ErrConfigValidation, "Configuration validation failed",
		fmt.Sprintf("Field: %s, Reason: %s", field, reason))
}

// Dependency Errors
func InstallFailed(name string, cause error) *PilotError {
	return WrapWithDetails(ErrInstallFailed, "Dependency installation failed",
		fmt.Sprintf("Target: %s", name), cause)
}

// Build Errors
func BuildFailed(service string, cause error) *PilotError {
	return WrapWithDetails(ErrBuildFailed, "Build failed", fmt.Sprintf("Service: %s", service), cause)
}

func UnknownRuntime(service, runtime string) *PilotError {
	return NewWithDetails(ErrUnknownRuntime, "Unsupported runtime",
		fmt.Sprintf("Service: %s, Runtime: %s", service, runtime))
}

// Test Errors
func E2EFailed(cause error) *PilotError {
	return Wrap(ErrE2EFailed, "End-to-end tests failed", cause)
}

func CoverageBelowTarget(actual, target float64) *PilotError {
	return NewWithDetails(ErrCoverageTooLow, "Coverage below target",
		fmt.Sprintf("Coverage: %.2f%%, Target: %.2f%%", actual, target))
}

func CoverageUnavailable(cause error) *PilotError {
	return Wrap(ErrCoverageUnknown, "Coverage could not be calculated", cause)
}

// Deployment Errors
func DeployFailed(step string, cause error) *PilotError {
	return WrapWithDetails(ErrDeployFailed, "Deployment failed", fmt.Sprintf("Step: %s", step), cause)
}

func GitRepoNotFound(path string) *PilotError {
	return NewWithDetails(ErrGitRepoNotFound, "Git repository not found", fmt.Sprintf("Path: %s", path))
}

// Auto-fix Errors
func UnknownConfigTemplate(name string) *PilotError {
	return NewWithDetails(ErrUnknownConfig, "No default template for config file",
		fmt.Sprintf("File: %s", name))
}

func ManifestInvalid(path string, cause error) *PilotError {
	return WrapWithDetails(ErrManifestInvalid, "Package manifest is invalid", fmt.Sprintf("Path: %s", path), cause)
}

// Service Errors
func ServiceNotFound(name string) *PilotError {
	return NewWithDetails(ErrServiceNotFound, "Service not found", fmt.Sprintf("Service: %s", name))
}

func ServiceStartFailed(name string, cause error) *PilotError {
	return WrapWithDetails(ErrServiceStartFailed, "Failed to start service",
		fmt.Sprintf("Service: %s", name), cause)
}

func ServiceStopFailed(name string, cause error) *PilotError {
	return WrapWithDetails(ErrServiceStopFailed, "Failed to stop service",
		fmt.Sprintf("Service: %s", name), cause)
}

func ServiceRestartFailed(name string, cause error) *PilotError {
	return WrapWithDetails(ErrServiceRestartFailed, "Failed to restart service",
		fmt.Sprintf("Service: %s", name), cause)
}

// Command Errors
func UnknownCommand(command string) *PilotError {
	return NewWithDetails(ErrUnknownCommand, "Unknown command", fmt.Sprintf("Command: %s", command))
}

func CommandFailed(command string, cause error) *PilotError {
	return WrapWithDetails(ErrCommandFailed, "Command failed", fmt.Sprintf("Command: %s", command), cause)
}

func FullCycleFailed(stage string, cause error) *PilotError {
	return WrapWithDetails(ErrFullCycleFailed, "Full cycle failed", fmt.Sprintf("Stage: %s", stage), cause)
}

// Client Errors
func ServerUnreachable(url string, cause error) *PilotError {
	return WrapWithDetails(ErrServerUnreachable, "Control API not reachable", fmt.Sprintf("URL: %s", url), cause)
}

func InvalidInput(input, expected string) *PilotError {
	return NewWithDetails(ErrInvalidInput, "Invalid input",
		fmt.Sprintf("Input: %s, Expected: %s", input, expected))
}

// Internal Errors
func TimeoutError(operation string, duration interface{}) *PilotError {
	return NewWithDetails(ErrTimeout, "Operation timed out",
		fmt.Sprintf("Operation: %s, Duration: %v", operation, duration))
}
