package autofix

import (
	"embed"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"devpilot/internal/constants"
	"devpilot/internal/errors"
	"devpilot/internal/events"
	"devpilot/internal/logger"
)

//go:embed templates
var templateFS embed.FS

// configTemplates maps a config file name to its embedded default
var configTemplates = map[string]string{
	".eslintrc.json":    "templates/eslintrc.json",
	".prettierrc":       "templates/prettierrc.json",
	"cypress.config.js": "templates/cypress.config.js",
	".nycrc":            "templates/nycrc.json",
}

// ConfigNames returns the config files a default exists for, sorted
func ConfigNames() []string {
	names := make([]string, 0, len(configTemplates))
	for name := range configTemplates {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// CreateDefaultConfig writes the default template for name into dir unless
// the file already exists. It reports whether a file was created.
func (e *Engine) CreateDefaultConfig(dir, name string) (bool, error) {
	tmpl, ok := configTemplates[name]
	if !ok {
		return false, errors.UnknownConfigTemplate(name)
	}
	body, err := fs.ReadFile(templateFS, tmpl)
	if err != nil {
		return false, fmt.Errorf("failed to read template %s: %w", tmpl, err)
	}

	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, constants.FilePermissions)
	if err != nil {
		if stderrors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write(body); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", path, err)
	}

	logger.WithField("path", path).Info("Created default config")
	return true, nil
}

// CreateMissingConfigs synthesizes every missing default config in dir
func (e *Engine) CreateMissingConfigs(dir string) ([]string, error) {
	e.bus.Publish(events.ConfigureStarted{})

	created := []string{}
	for _, name := range ConfigNames() {
		ok, err := e.CreateDefaultConfig(dir, name)
		if err != nil {
			e.bus.Publish(events.ConfigureFailed{Error: err.Error()})
			return created, err
		}
		if ok {
			created = append(created, name)
		}
	}

	e.bus.Publish(events.ConfigureCompleted{Created: created})
	return created, nil
}
