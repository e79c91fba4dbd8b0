package deps

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devpilot/internal/config"
	"devpilot/internal/errors"
	"devpilot/internal/events"
	"devpilot/internal/runner"
	"devpilot/internal/testutil"
)

func newProject(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Project.Root = t.TempDir()
	return cfg
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
}

func TestInstallForPath_FirstRungSucceeds(t *testing.T) {
	cfg := newProject(t)
	run := testutil.NewFakeRunner()
	bus := events.NewBus()
	rec := testutil.NewRecorder(bus)

	require.NoError(t, New(cfg, bus, run).InstallForPath(context.Background(), cfg.Project.Root, "root"))

	assert.Equal(t, []string{"npm install"}, run.Lines())
	assert.False(t, rec.Has(events.KindInstallStrategyFailed))
}

func TestInstallForPath_EscalatesInOrder(t *testing.T) {
	cfg := newProject(t)
	dir := cfg.Project.Root
	writeFile(t, filepath.Join(dir, "package-lock.json"), "{}")
	writeFile(t, filepath.Join(dir, "node_modules", "left-pad", "index.js"), "")

	run := testutil.NewFakeRunner()
	run.Handler = func(runner.Cmd) (string, error) { return "npm ERR!", stderrors.New("exit status 1") }
	bus := events.NewBus()
	rec := testutil.NewRecorder(bus)

	err := New(cfg, bus, run).InstallForPath(context.Background(), dir, "web")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInstallFailed))

	assert.Equal(t, []string{
		"npm install",
		"npm install --legacy-peer-deps",
		"npm install --force",
		"npm cache clean --force",
		"npm install --legacy-peer-deps",
	}, run.Lines())

	assert.NoFileExists(t, filepath.Join(dir, "package-lock.json"))
	assert.NoDirExists(t, filepath.Join(dir, "node_modules"))

	assert.Equal(t, 4, rec.Count(events.KindInstallStrategyFailed))
	last, ok := rec.Last(events.KindInstallStrategyFailed).(events.InstallStrategyFailed)
	require.True(t, ok)
	assert.Equal(t, "clean-reinstall", last.Strategy)
	assert.Equal(t, "web", last.Target)
}

func TestInstallForPath_StopsAtForce(t *testing.T) {
	cfg := newProject(t)
	run := testutil.NewFakeRunner().
		On("npm install", "", stderrors.New("ERESOLVE")).
		On("npm install --legacy-peer-deps", "", stderrors.New("ERESOLVE"))

	require.NoError(t, New(cfg, events.NewBus(), run).InstallForPath(context.Background(), cfg.Project.Root, "root"))
	assert.Equal(t, []string{"npm install", "npm install --legacy-peer-deps", "npm install --force"}, run.Lines())
}

func TestInstallDependencies_RootThenNodeServices(t *testing.T) {
	cfg := newProject(t)
	root := cfg.Project.Root
	cfg.Services = []config.ServiceDescriptor{
		{Name: "api", Directory: "api", Runtime: config.RuntimeNode, Port: 4000},
		{Name: "worker", Directory: "worker", Runtime: config.RuntimePython},
		{Name: "empty", Directory: "empty", Runtime: config.RuntimeNode},
	}
	writeFile(t, filepath.Join(root, "package.json"), `{"name":"root"}`)
	writeFile(t, filepath.Join(root, "api", "package.json"), `{"name":"api"}`)
	writeFile(t, filepath.Join(root, "worker", "package.json"), `{"name":"not-node"}`)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0755))

	run := testutil.NewFakeRunner()
	bus := events.NewBus()
	rec := testutil.NewRecorder(bus)

	require.NoError(t, New(cfg, bus, run).InstallDependencies(context.Background()))

	calls := run.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, root, calls[0].Dir)
	assert.Equal(t, filepath.Join(root, "api"), calls[1].Dir)

	assert.Equal(t, []events.Kind{events.KindInstallStarted, events.KindInstallCompleted}, rec.Kinds())
	started := rec.Last(events.KindInstallStarted).(events.InstallStarted)
	assert.Equal(t, []string{"root", "api"}, started.Targets)
}

func TestInstallDependencies_FailureIsFatal(t *testing.T) {
	cfg := newProject(t)
	writeFile(t, filepath.Join(cfg.Project.Root, "package.json"), `{}`)

	run := testutil.NewFakeRunner()
	run.Handler = func(runner.Cmd) (string, error) { return "", stderrors.New("offline") }
	bus := events.NewBus()
	rec := testutil.NewRecorder(bus)

	err := New(cfg, bus, run).InstallDependencies(context.Background())
	require.Error(t, err)
	assert.True(t, rec.Has(events.KindInstallFailed))
	assert.False(t, rec.Has(events.KindInstallCompleted))
}

func TestStrategies(t *testing.T) {
	assert.Equal(t, []string{"standard", "legacy-peer-deps", "force", "clean-reinstall"}, Strategies())
}
