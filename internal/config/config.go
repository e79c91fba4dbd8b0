package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"devpilot/internal/constants"
	"devpilot/internal/errors"
	"devpilot/internal/validation"
	"devpilot/internal/xdg"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Runtime identifies how a service is built and started
type Runtime string

const (
	RuntimeNode   Runtime = "node"
	RuntimePython Runtime = "python"
	RuntimePHP    Runtime = "php"
)

// Readiness probe kinds
const (
	ProbeHTTP = "http"
	ProbeTCP  = "tcp"
)

// configFileNames are searched, in order, in the working directory and then
// in the XDG config directory
var configFileNames = []string{"devpilot.toml", "devpilot.yaml", "devpilot.yml"}

// ServiceDescriptor is the static description of a manageable service
type ServiceDescriptor struct {
	Name      string  `toml:"name" yaml:"name" json:"name"`
	Directory string  `toml:"directory" yaml:"directory" json:"directory"`
	Port      int     `toml:"port,omitempty" yaml:"port,omitempty" json:"port,omitempty"`
	Runtime   Runtime `toml:"runtime" yaml:"runtime" json:"runtime"`

	// HealthPath overrides the default /health endpoint
	HealthPath string `toml:"health_path,omitempty" yaml:"health_path,omitempty" json:"health_path,omitempty"`
	// StartCommand overrides the runtime's default start command
	StartCommand []string `toml:"start_command,omitempty" yaml:"start_command,omitempty" json:"start_command,omitempty"`
	// ReadyProbe selects how startup readiness is detected: "http" (default) or "tcp"
	ReadyProbe string `toml:"ready_probe,omitempty" yaml:"ready_probe,omitempty" json:"ready_probe,omitempty"`
}

// HasPort reports whether the service listens on a declared port
func (d ServiceDescriptor) HasPort() bool {
	return d.Port > 0
}

// BaseURL returns the root URL of the service
func (d ServiceDescriptor) BaseURL() string {
	return fmt.Sprintf("http://localhost:%d/", d.Port)
}

// HealthURL returns the URL of the service's health endpoint
func (d ServiceDescriptor) HealthURL() string {
	path := d.HealthPath
	if path == "" {
		path = constants.DefaultHealthPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return fmt.Sprintf("http://localhost:%d%s", d.Port, path)
}

// ProjectConfig describes the project root all service directories are relative to
type ProjectConfig struct {
	Name string `toml:"name" yaml:"name"`
	Root string `toml:"root" yaml:"root"`
}

// BuildConfig configures the builder
type BuildConfig struct {
	DebounceMS int `toml:"debounce_ms" yaml:"debounce_ms"`
}

// Debounce returns the debounce window for queued incremental builds
func (b BuildConfig) Debounce() time.Duration {
	return time.Duration(b.DebounceMS) * time.Millisecond
}

// TestConfig configures the tester
type TestConfig struct {
	E2ECommand      []string `toml:"e2e_command" yaml:"e2e_command"`
	SkipE2E         bool     `toml:"skip_e2e" yaml:"skip_e2e"`
	CoverageCommand []string `toml:"coverage_command" yaml:"coverage_command"`
	SkipCoverage    bool     `toml:"skip_coverage" yaml:"skip_coverage"`
	CoverageTarget  float64  `toml:"coverage_target" yaml:"coverage_target"`
}

// DeployConfig configures git based deployment
type DeployConfig struct {
	AutoPush    bool   `toml:"auto_push" yaml:"auto_push"`
	Remote      string `toml:"remote" yaml:"remote"`
	Branch      string `toml:"branch" yaml:"branch"`
	AuthorName  string `toml:"author_name" yaml:"author_name"`
	AuthorEmail string `toml:"author_email" yaml:"author_email"`
}

// MonitorConfig configures service supervision timings
type MonitorConfig struct {
	HealthIntervalMS int `toml:"health_interval_ms" yaml:"health_interval_ms"`
	HealthTimeoutMS  int `toml:"health_timeout_ms" yaml:"health_timeout_ms"`
	ReadyTimeoutMS   int `toml:"ready_timeout_ms" yaml:"ready_timeout_ms"`
	ReadyPollMS      int `toml:"ready_poll_ms" yaml:"ready_poll_ms"`
	StopTimeoutMS    int `toml:"stop_timeout_ms" yaml:"stop_timeout_ms"`
}

func (m MonitorConfig) HealthInterval() time.Duration {
	return time.Duration(m.HealthIntervalMS) * time.Millisecond
}

func (m MonitorConfig) HealthTimeout() time.Duration {
	return time.Duration(m.HealthTimeoutMS) * time.Millisecond
}

func (m MonitorConfig) ReadyTimeout() time.Duration {
	return time.Duration(m.ReadyTimeoutMS) * time.Millisecond
}

func (m MonitorConfig) ReadyPoll() time.Duration {
	return time.Duration(m.ReadyPollMS) * time.Millisecond
}

func (m MonitorConfig) StopTimeout() time.Duration {
	return time.Duration(m.StopTimeoutMS) * time.Millisecond
}

// ServerConfig configures the HTTP/WebSocket control API
type ServerConfig struct {
	Host string `toml:"host" yaml:"host"`
	Port int    `toml:"port" yaml:"port"`
}

// Config is the complete devpilot configuration
type Config struct {
	Project  ProjectConfig       `toml:"project" yaml:"project"`
	Build    BuildConfig         `toml:"build" yaml:"build"`
	Test     TestConfig          `toml:"test" yaml:"test"`
	Deploy   DeployConfig        `toml:"deploy" yaml:"deploy"`
	Monitor  MonitorConfig       `toml:"monitor" yaml:"monitor"`
	Server   ServerConfig        `toml:"server" yaml:"server"`
	LogLevel string              `toml:"log_level" yaml:"log_level"`
	Services []ServiceDescriptor `toml:"services" yaml:"services"`

	// Path is the file the configuration was loaded from, empty for defaults
	Path string `toml:"-" yaml:"-"`
}

// Default returns a configuration with every default applied and no services
func Default() *Config {
	cfg := newConfig()
	cfg.applyDefaults("")
	return cfg
}

// newConfig returns the base that decoding starts from. It carries the
// defaults for fields whose zero value is meaningful, so an explicit zero in
// the file survives.
func newConfig() *Config {
	return &Config{
		Test: TestConfig{CoverageTarget: constants.DefaultCoverageTarget},
	}
}

// Load reads the configuration from path, or searches the working directory
// and the XDG config directory when path is empty. A missing configuration
// is not an error when searching; defaults are returned instead.
func Load(path string) (*Config, error) {
	if path == "" {
		found, err := findConfigPath()
		if err != nil {
			return nil, err
		}
		if found == "" {
			cfg := Default()
			return cfg, nil
		}
		path = found
	} else if _, err := os.Stat(path); err != nil {
		return nil, errors.ConfigNotFound(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, errors.ConfigParseError(path, err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}
	cfg.Path = absPath
	cfg.applyDefaults(filepath.Dir(absPath))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes TOML or YAML configuration data based on the file extension.
// Apart from the coverage target, defaults are not applied.
func Parse(data []byte, ext string) (*Config, error) {
	cfg := newConfig()
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// findConfigPath returns the first config file found in the working
// directory or the XDG config directory, or "" when there is none
func findConfigPath() (string, error) {
	currentDir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}

	dirs := []string{currentDir}
	if configDir, err := xdg.ConfigDir(); err == nil {
		dirs = append(dirs, configDir)
	}

	for _, dir := range dirs {
		for _, name := range configFileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}
	}
	return "", nil
}

// applyDefaults fills every unset value. baseDir anchors a relative project
// root; the working directory is used when it is empty.
func (c *Config) applyDefaults(baseDir string) {
	if baseDir == "" {
		if wd, err := os.Getwd(); err == nil {
			baseDir = wd
		}
	}
	if c.Project.Root == "" {
		c.Project.Root = baseDir
	} else if !filepath.IsAbs(c.Project.Root) {
		c.Project.Root = filepath.Join(baseDir, c.Project.Root)
	}
	if c.Project.Name == "" {
		c.Project.Name = filepath.Base(c.Project.Root)
	}

	if c.Build.DebounceMS <= 0 {
		c.Build.DebounceMS = int(constants.DefaultDebounceInterval / time.Millisecond)
	}

	if len(c.Test.E2ECommand) == 0 {
		c.Test.E2ECommand = []string{constants.NPX, "cypress", "run"}
	}
	if len(c.Test.CoverageCommand) == 0 {
		c.Test.CoverageCommand = []string{constants.NPX, "nyc", "report", "--reporter=text-summary"}
	}

	if c.Deploy.Remote == "" {
		c.Deploy.Remote = constants.DefaultGitRemote
	}
	if c.Deploy.Branch == "" {
		c.Deploy.Branch = constants.DefaultGitBranch
	}
	if c.Deploy.AuthorName == "" {
		c.Deploy.AuthorName = "devpilot"
	}
	if c.Deploy.AuthorEmail == "" {
		c.Deploy.AuthorEmail = "devpilot@localhost"
	}

	if c.Monitor.HealthIntervalMS <= 0 {
		c.Monitor.HealthIntervalMS = int(constants.DefaultHealthInterval / time.Millisecond)
	}
	if c.Monitor.HealthTimeoutMS <= 0 {
		c.Monitor.HealthTimeoutMS = int(constants.DefaultHealthCheckTimeout / time.Millisecond)
	}
	if c.Monitor.ReadyTimeoutMS <= 0 {
		c.Monitor.ReadyTimeoutMS = int(constants.DefaultReadyTimeout / time.Millisecond)
	}
	if c.Monitor.ReadyPollMS <= 0 {
		c.Monitor.ReadyPollMS = int(constants.DefaultReadyPollInterval / time.Millisecond)
	}
	if c.Monitor.StopTimeoutMS <= 0 {
		c.Monitor.StopTimeoutMS = int(constants.DefaultStopTimeout / time.Millisecond)
	}

	if c.Server.Host == "" {
		c.Server.Host = constants.DefaultServerHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = constants.DefaultServerPort
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate checks the configuration for values the orchestrator cannot work with
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Services))
	for i, svc := range c.Services {
		field := fmt.Sprintf("services[%d]", i)
		if svc.Name == "" {
			return errors.ConfigValidationError(field+".name", "name is required")
		}
		if err := validation.ServiceName(svc.Name); err != nil {
			return errors.ConfigValidationError(field+".name", err.Error())
		}
		if seen[svc.Name] {
			return errors.ConfigValidationError(field+".name", fmt.Sprintf("duplicate service name %q", svc.Name))
		}
		seen[svc.Name] = true

		if svc.Directory == "" {
			return errors.ConfigValidationError(field+".directory", "directory is required")
		}
		switch svc.Runtime {
		case RuntimeNode, RuntimePython, RuntimePHP:
		default:
			return errors.ConfigValidationError(field+".runtime", fmt.Sprintf("unsupported runtime %q", svc.Runtime))
		}
		switch svc.ReadyProbe {
		case "", ProbeHTTP, ProbeTCP:
		default:
			return errors.ConfigValidationError(field+".ready_probe", fmt.Sprintf("unsupported probe %q", svc.ReadyProbe))
		}
		if svc.Port != 0 {
			if err := validation.PortNumber(svc.Port); err != nil {
				return errors.ConfigValidationError(field+".port", fmt.Sprintf("invalid port %d", svc.Port))
			}
		}
		if err := validation.CommandLine(svc.StartCommand); err != nil {
			return errors.ConfigValidationError(field+".start_command", err.Error())
		}
	}

	if c.Test.CoverageTarget < 0 || c.Test.CoverageTarget > 100 {
		return errors.ConfigValidationError("test.coverage_target", "must be between 0 and 100")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.ConfigValidationError("server.port", fmt.Sprintf("invalid port %d", c.Server.Port))
	}
	return nil
}

// Lookup returns the descriptor registered under name
func (c *Config) Lookup(name string) (ServiceDescriptor, bool) {
	for _, svc := range c.Services {
		if svc.Name == name {
			return svc, true
		}
	}
	return ServiceDescriptor{}, false
}

// PortServices returns the services that declare a port, in configuration order
func (c *Config) PortServices() []ServiceDescriptor {
	var out []ServiceDescriptor
	for _, svc := range c.Services {
		if svc.HasPort() {
			out = append(out, svc)
		}
	}
	return out
}

// ServiceDir returns the absolute directory of a service
func (c *Config) ServiceDir(svc ServiceDescriptor) string {
	if filepath.IsAbs(svc.Directory) {
		return filepath.Clean(svc.Directory)
	}
	return filepath.Join(c.Project.Root, svc.Directory)
}

// Save writes the configuration as TOML
func (c *Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), constants.DirPermissions); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return os.WriteFile(path, data, constants.FilePermissions)
}
