package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"devpilot/internal/config"
	"devpilot/internal/constants"
	"devpilot/internal/logger"

	"github.com/spf13/cobra"
)

// defaultPHPPort is the first port handed to detected php services, which
// need one for the built-in server
const defaultPHPPort = 8000

// InitCommands creates the init command for project setup
func InitCommands() []*cobra.Command {
	initCmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Create a devpilot.toml for a project",
		Long: `Create devpilot.toml in the project directory (default: the working
directory). Each immediate subdirectory holding a package.json, a
requirements.txt or app.py, or an index.php or composer.json becomes a
node, python or php service.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")
			dir := optionalArg(args)
			if dir == "" {
				dir = "."
			}
			return initProject(dir, force)
		},
	}
	initCmd.Flags().BoolP("force", "f", false, "Overwrite an existing configuration")

	return []*cobra.Command{initCmd}
}

func initProject(dir string, force bool) error {
	root, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	path := filepath.Join(root, "devpilot.toml")

	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	services, err := DetectServices(root)
	if err != nil {
		return err
	}

	cfg := config.Default()
	cfg.Project.Name = filepath.Base(root)
	cfg.Project.Root = "."
	cfg.Services = services
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.Save(path); err != nil {
		return err
	}

	names := make([]string, 0, len(services))
	for _, s := range services {
		names = append(names, fmt.Sprintf("%s (%s)", s.Name, s.Runtime))
	}
	logger.WithFields(logger.Fields{
		"path":     path,
		"services": strings.Join(names, ", "),
	}).Info("✓ Project configuration created")
	return nil
}

// DetectServices returns a descriptor for every immediate subdirectory of
// root that looks like a node, python or php service, sorted by name
func DetectServices(root string) ([]config.ServiceDescriptor, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", root, err)
	}

	names := []string{}
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") || e.Name() == constants.NodeModules || e.Name() == "vendor" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	services := []config.ServiceDescriptor{}
	phpPort := defaultPHPPort
	for _, name := range names {
		dir := filepath.Join(root, name)
		svc := config.ServiceDescriptor{Name: name, Directory: name}
		switch {
		case exists(dir, constants.PackageManifest):
			svc.Runtime = config.RuntimeNode
		case exists(dir, constants.Requirements), exists(dir, "app.py"):
			svc.Runtime = config.RuntimePython
		case exists(dir, "index.php"), exists(dir, "composer.json"):
			svc.Runtime = config.RuntimePHP
			svc.Port = phpPort
			phpPort++
		default:
			continue
		}
		services = append(services, svc)
	}
	return services, nil
}

func exists(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}
