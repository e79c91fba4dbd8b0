// Package constants defines application-wide constants to avoid magic numbers
package constants

import "time"

// Network and Port Constants
const (
	// DefaultServerPort is the default port for the devpilot control API
	DefaultServerPort = 8090

	// DefaultServerHost is the default bind address for the control API
	DefaultServerHost = "localhost"
)

// File System Permissions
const (
	// DirPermissions is the standard directory permissions for devpilot directories
	DirPermissions = 0755

	// FilePermissions is the standard file permissions for generated files
	FilePermissions = 0644
)

// Build Configuration
const (
	// DefaultDebounceInterval is how long queued file changes wait before an incremental build
	DefaultDebounceInterval = 2000 * time.Millisecond
)

// Service Lifecycle
const (
	// DefaultReadyTimeout bounds how long a started service may take to answer on its port
	DefaultReadyTimeout = 30 * time.Second

	// DefaultReadyPollInterval is the delay between readiness probes
	DefaultReadyPollInterval = 1 * time.Second

	// DefaultStopTimeout is how long a service gets to exit after SIGTERM before SIGKILL
	DefaultStopTimeout = 5 * time.Second

	// DefaultHealthCheckTimeout bounds a single health probe request
	DefaultHealthCheckTimeout = 5 * time.Second

	// DefaultHealthInterval is the period of the health monitoring loop
	DefaultHealthInterval = 30 * time.Second

	// DefaultHealthPath is the health endpoint every managed service must expose
	DefaultHealthPath = "/health"
)

// HTTP Configuration
const (
	// DefaultServerReadTimeout is the default server read timeout
	DefaultServerReadTimeout = 10 * time.Second

	// DefaultWSWriteTimeout bounds a single WebSocket frame write
	DefaultWSWriteTimeout = 5 * time.Second

	// DefaultServerShutdownTimeout is the default server graceful shutdown timeout
	DefaultServerShutdownTimeout = 30 * time.Second

	// DefaultClientTimeout bounds one control API request. It covers a
	// restart: a stop grace period plus a full readiness wait.
	DefaultClientTimeout = 2 * time.Minute
)

// Testing
const (
	// DefaultCoverageTarget is the minimum line coverage percentage accepted by a test run
	DefaultCoverageTarget = 80.0
)

// Deployment
const (
	// DefaultGitRemote is the remote pushed to by the deployer
	DefaultGitRemote = "origin"

	// DefaultGitBranch is the branch pushed to by the deployer
	DefaultGitBranch = "main"
)

// Logging and Output Limits
const (
	// MaxOutputLength is the maximum length for command output kept in results
	MaxOutputLength = 4000
)

// Package manager and tool binaries
const (
	NPM    = "npm"
	NPX    = "npx"
	Python = "python3"
	Pip    = "pip"
	PHP    = "php"

	// PackageManifest is the node package manifest file name
	PackageManifest = "package.json"

	// PackageLock is the npm lock file removed by the destructive install rung
	PackageLock = "package-lock.json"

	// NodeModules is the npm dependency directory
	NodeModules = "node_modules"

	// Requirements is the python dependency manifest
	Requirements = "requirements.txt"
)
