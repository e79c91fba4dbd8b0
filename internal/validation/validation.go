// Package validation checks user-supplied names, ports, paths and command
// lines before they reach a process or the filesystem.
package validation

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"devpilot/internal/errors"
)

// maxNameLength bounds service names, which end up in log fields and event payloads
const maxNameLength = 64

var (
	// serviceNameRegex validates service names
	serviceNameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)

	// safeStringRegex matches strings that are safe for shell use without escaping
	safeStringRegex = regexp.MustCompile(`^[a-zA-Z0-9_\-./=:@]+$`)
)

// ServiceName validates a service name
func ServiceName(name string) error {
	if name == "" {
		return errors.InvalidInput("service name", "a non-empty name")
	}
	if len(name) > maxNameLength {
		return errors.InvalidInput(name, "at most 64 characters")
	}
	if !serviceNameRegex.MatchString(name) {
		return errors.InvalidInput(name, "letters, digits, '.', '_' or '-', starting with a letter or digit")
	}
	return nil
}

// PortNumber validates a single port number
func PortNumber(port int) error {
	if port <= 0 || port > 65535 {
		return errors.InvalidInput(strconv.Itoa(port), "a port between 1 and 65535")
	}
	return nil
}

// Path cleans a file path and rejects relative paths that climb out of the
// directory they are resolved against
func Path(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.InvalidInput("path", "a non-empty path")
	}

	cleaned := filepath.Clean(path)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", errors.InvalidInput(path, "a path without traversal")
	}
	return cleaned, nil
}

// CommandLine validates a start command given as argv
func CommandLine(argv []string) error {
	if len(argv) == 0 {
		return nil
	}
	if strings.TrimSpace(argv[0]) == "" {
		return errors.InvalidInput("start_command", "a program name as the first element")
	}
	return nil
}

// ShellEscape quotes s for display in a copy-pasteable command line
func ShellEscape(s string) string {
	if s != "" && safeStringRegex.MatchString(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

// JoinCommand renders argv as a shell command line
func JoinCommand(argv []string) string {
	quoted := make([]string, len(argv))
	for i, arg := range argv {
		quoted[i] = ShellEscape(arg)
	}
	return strings.Join(quoted, " ")
}
