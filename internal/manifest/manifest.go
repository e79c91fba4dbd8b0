// Package manifest reads and edits node package manifests (package.json).
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"devpilot/internal/constants"
	"devpilot/internal/errors"
)

var dependencySections = []string{"dependencies", "devDependencies", "peerDependencies", "optionalDependencies"}

// Manifest is a decoded package.json. Unknown fields are preserved on Save.
type Manifest struct {
	path string
	data map[string]any
}

// Path returns the manifest location for a project directory
func Path(dir string) string {
	return filepath.Join(dir, constants.PackageManifest)
}

// Exists reports whether dir contains a package.json
func Exists(dir string) bool {
	info, err := os.Stat(Path(dir))
	return err == nil && !info.IsDir()
}

// Load reads the manifest in dir
func Load(dir string) (*Manifest, error) {
	path := Path(dir)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	data := make(map[string]any)
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, errors.ManifestInvalid(path, err)
	}
	return &Manifest{path: path, data: data}, nil
}

// Name returns the declared package name
func (m *Manifest) Name() string {
	name, _ := m.data["name"].(string)
	return name
}

// Script returns the declared script body, or "" if absent
func (m *Manifest) Script(name string) string {
	scripts, _ := m.data["scripts"].(map[string]any)
	body, _ := scripts[name].(string)
	return body
}

// HasScript reports whether a non-empty script is declared
func (m *Manifest) HasScript(name string) bool {
	return m.Script(name) != ""
}

// HasDependency reports whether pkg is declared in any dependency section
func (m *Manifest) HasDependency(pkg string) bool {
	for _, section := range dependencySections {
		deps, _ := m.data[section].(map[string]any)
		if _, ok := deps[pkg]; ok {
			return true
		}
	}
	return false
}

// AddDevDependency declares pkg as a dev dependency unless it is already
// declared somewhere. It reports whether the manifest changed.
func (m *Manifest) AddDevDependency(pkg, version string) bool {
	if m.HasDependency(pkg) {
		return false
	}
	dev, ok := m.data["devDependencies"].(map[string]any)
	if !ok {
		dev = make(map[string]any)
		m.data["devDependencies"] = dev
	}
	dev[pkg] = version
	return true
}

// DevDependency returns the declared dev dependency version
func (m *Manifest) DevDependency(pkg string) string {
	dev, _ := m.data["devDependencies"].(map[string]any)
	v, _ := dev[pkg].(string)
	return v
}

// Save writes the manifest back with two-space indentation
func (m *Manifest) Save() error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m.data); err != nil {
		return fmt.Errorf("failed to encode %s: %w", m.path, err)
	}
	if err := os.WriteFile(m.path, buf.Bytes(), constants.FilePermissions); err != nil {
		return fmt.Errorf("failed to write %s: %w", m.path, err)
	}
	return nil
}
