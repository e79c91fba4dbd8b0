package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"devpilot/internal/config"
	"devpilot/internal/events"
	"devpilot/internal/orchestrator"
	"devpilot/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingConfig(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "devpilot.toml"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "devpilot.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[[services]]
name = "web"
directory = "web"
runtime = "node"
`), 0o644))

	engine, err := Load(path)
	require.NoError(t, err)
	defer engine.Close()
	assert.Equal(t, dir, engine.Config().Project.Root)
}

func TestEngine_BuildCommandRunsThroughComponents(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "web"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "web", "package.json"),
		[]byte(`{"name":"web","scripts":{"build":"vite build"}}`), 0o644))

	cfg := config.Default()
	cfg.Project.Root = root
	cfg.Services = []config.ServiceDescriptor{{Name: "web", Directory: "web", Runtime: config.RuntimeNode}}

	run := testutil.NewFakeRunner()
	engine := NewEngine(cfg, run)
	defer engine.Close()
	rec := testutil.NewRecorder(engine.Bus)

	res := engine.Execute(context.Background(), orchestrator.Command{Type: orchestrator.CommandBuild})
	require.True(t, res.Success, res.Error)

	assert.Equal(t, []string{"npm install", "npm run build"}, run.Lines())
	assert.True(t, rec.Has(events.KindBuildCompleted))

	status := engine.Orchestrator.Status()
	assert.Equal(t, 1, status.BuildCount)
	assert.False(t, status.Building)
}

func TestEngine_UnknownCommand(t *testing.T) {
	engine := NewEngine(config.Default(), testutil.NewFakeRunner())
	defer engine.Close()

	res := engine.Execute(context.Background(), orchestrator.Command{Type: "nope"})
	assert.False(t, res.Success)
	assert.Len(t, engine.Orchestrator.Status().Errors, 1)
}
