package build

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"devpilot/internal/config"
	"devpilot/internal/deps"
	"devpilot/internal/errors"
	"devpilot/internal/events"
	"devpilot/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeInstaller struct {
	mu      sync.Mutex
	dirs    []string
	err     error
	entered chan struct{}
	release chan struct{}
}

func (f *fakeInstaller) InstallForPath(_ context.Context, dir, _ string) error {
	f.mu.Lock()
	f.dirs = append(f.dirs, dir)
	f.mu.Unlock()
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	return f.err
}

func (f *fakeInstaller) Dirs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.dirs...)
}

func newConfig(t *testing.T, services ...config.ServiceDescriptor) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Project.Root = t.TempDir()
	cfg.Services = services
	for _, svc := range services {
		require.NoError(t, os.MkdirAll(cfg.ServiceDir(svc), 0755))
		if svc.Runtime == config.RuntimeNode {
			writeFile(t, filepath.Join(cfg.ServiceDir(svc), "package.json"), `{}`)
		}
	}
	return cfg
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
}

func node(name string) config.ServiceDescriptor {
	return config.ServiceDescriptor{Name: name, Directory: "svc" + name, Runtime: config.RuntimeNode}
}

func TestFullBuild_Success(t *testing.T) {
	cfg := newConfig(t, node("A"), node("B"), node("C"))
	inst := &fakeInstaller{}
	bus := events.NewBus()
	rec := testutil.NewRecorder(bus)
	b := New(cfg, bus, testutil.NewFakeRunner(), inst)

	require.NoError(t, b.FullBuild(context.Background()))

	assert.False(t, b.IsBuilding())
	assert.Len(t, inst.Dirs(), 3)
	assert.Equal(t, 3, rec.Count(events.KindComponentBuilt))
	assert.Equal(t, events.KindBuildStarted, rec.Kinds()[0])
	assert.Equal(t, events.KindBuildCompleted, rec.Kinds()[len(rec.Kinds())-1])
}

func TestFullBuild_FailureClearsFlag(t *testing.T) {
	cfg := newConfig(t, node("A"), node("B"))
	inst := &fakeInstaller{err: stderrors.New("npm exploded")}
	bus := events.NewBus()
	rec := testutil.NewRecorder(bus)
	b := New(cfg, bus, testutil.NewFakeRunner(), inst)

	err := b.FullBuild(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrBuildFailed))
	assert.False(t, b.IsBuilding())

	assert.Equal(t, 2, rec.Count(events.KindComponentBuildFailed))
	failed := rec.Last(events.KindBuildFailed).(events.BuildFailed)
	assert.Equal(t, []string{"A", "B"}, failed.Failed)
	assert.False(t, rec.Has(events.KindBuildCompleted))
}

func TestFullBuild_RejectsConcurrentBuild(t *testing.T) {
	cfg := newConfig(t, node("A"))
	inst := &fakeInstaller{entered: make(chan struct{}, 1), release: make(chan struct{})}
	bus := events.NewBus()
	rec := testutil.NewRecorder(bus)
	b := New(cfg, bus, testutil.NewFakeRunner(), inst)

	done := make(chan error, 1)
	go func() { done <- b.FullBuild(context.Background()) }()

	select {
	case <-inst.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first build never started")
	}
	assert.True(t, b.IsBuilding())

	require.NoError(t, b.FullBuild(context.Background()))
	assert.Equal(t, 1, rec.Count(events.KindBuildStarted))

	close(inst.release)
	require.NoError(t, <-done)
	assert.False(t, b.IsBuilding())
	assert.Len(t, inst.Dirs(), 1)
}

func TestIncrementalBuild_OnlyAffectedService(t *testing.T) {
	a := config.ServiceDescriptor{Name: "A", Directory: "svcA", Port: 4000, Runtime: config.RuntimeNode}
	bSvc := config.ServiceDescriptor{Name: "B", Directory: "svcB", Runtime: config.RuntimePython}
	cfg := newConfig(t, a, bSvc)
	inst := &fakeInstaller{}
	run := testutil.NewFakeRunner()
	bus := events.NewBus()
	rec := testutil.NewRecorder(bus)

	affected := New(cfg, bus, run, inst).IncrementalBuild(context.Background(), []string{"svcA/index.js"})

	assert.Equal(t, []string{"A"}, affected)
	assert.Equal(t, []string{filepath.Join(cfg.Project.Root, "svcA")}, inst.Dirs())
	assert.Empty(t, run.Lines())

	done := rec.Last(events.KindIncrementalBuildCompleted).(events.IncrementalBuildCompleted)
	assert.Equal(t, []string{"A"}, done.AffectedServices)
	assert.Equal(t, []string{"svcA/index.js"}, done.Files)
}

func TestIncrementalBuild_CountsDistinctServices(t *testing.T) {
	cfg := newConfig(t, node("A"), node("AB"), node("C"), node("D"))
	inst := &fakeInstaller{}
	bus := events.NewBus()
	rec := testutil.NewRecorder(bus)

	files := []string{
		"svcA/index.js",
		"svcA/lib/util.js",
		filepath.Join(cfg.Project.Root, "svcC", "main.js"),
		"docs/readme.md",
		"svcAlpha/ignored.js",
	}
	affected := New(cfg, bus, testutil.NewFakeRunner(), inst).IncrementalBuild(context.Background(), files)

	assert.Equal(t, []string{"A", "C"}, affected)
	assert.Len(t, inst.Dirs(), 2)
	done := rec.Last(events.KindIncrementalBuildCompleted).(events.IncrementalBuildCompleted)
	assert.Len(t, done.AffectedServices, 2)
	assert.Equal(t, files, done.Files)
}

func TestIncrementalBuild_FailureDoesNotAbort(t *testing.T) {
	php := config.ServiceDescriptor{Name: "legacy", Directory: "legacy", Runtime: config.RuntimePHP}
	cfg := newConfig(t, php, node("A"))
	writeFile(t, filepath.Join(cfg.Project.Root, "legacy", "index.php"), "<?php echo 1")

	run := testutil.NewFakeRunner().On("php -l index.php", "Parse error", stderrors.New("exit status 255"))
	inst := &fakeInstaller{}
	bus := events.NewBus()
	rec := testutil.NewRecorder(bus)

	affected := New(cfg, bus, run, inst).IncrementalBuild(context.Background(), []string{"legacy/index.php", "svcA/app.js"})

	assert.Equal(t, []string{"legacy", "A"}, affected)
	assert.Equal(t, 1, rec.Count(events.KindIncrementalBuildFailed))
	assert.Len(t, inst.Dirs(), 1)
	assert.True(t, rec.Has(events.KindIncrementalBuildCompleted))
}

func TestBuildComponent_NodeBuildScript(t *testing.T) {
	svc := node("web")
	cfg := newConfig(t, svc)
	dir := cfg.ServiceDir(svc)
	writeFile(t, filepath.Join(dir, "package.json"), `{"scripts":{"build":"vite build"}}`)

	run := testutil.NewFakeRunner()
	require.NoError(t, New(cfg, events.NewBus(), run, &fakeInstaller{}).BuildComponent(context.Background(), svc))
	assert.Equal(t, []string{"npm run build"}, run.CallsIn(dir))
}

func TestBuildComponent_NodeWithoutBuildScript(t *testing.T) {
	svc := node("api")
	cfg := newConfig(t, svc)
	writeFile(t, filepath.Join(cfg.ServiceDir(svc), "package.json"), `{"scripts":{"start":"node ."}}`)

	run := testutil.NewFakeRunner()
	require.NoError(t, New(cfg, events.NewBus(), run, &fakeInstaller{}).BuildComponent(context.Background(), svc))
	assert.Empty(t, run.Lines())
}

func TestBuildComponent_NodeWithoutManifestRunsNothing(t *testing.T) {
	svc := node("A")
	cfg := newConfig(t, svc)
	require.NoError(t, os.Remove(filepath.Join(cfg.ServiceDir(svc), "package.json")))

	bus := events.NewBus()
	run := testutil.NewFakeRunner()
	b := New(cfg, bus, run, deps.New(cfg, bus, run))

	require.NoError(t, b.BuildComponent(context.Background(), svc))
	assert.Empty(t, run.Lines())
}

func TestFullBuild_SkipsInstallWithoutManifest(t *testing.T) {
	cfg := newConfig(t, node("A"), node("B"))
	require.NoError(t, os.Remove(filepath.Join(cfg.ServiceDir(cfg.Services[1]), "package.json")))
	inst := &fakeInstaller{}

	require.NoError(t, New(cfg, events.NewBus(), testutil.NewFakeRunner(), inst).FullBuild(context.Background()))
	assert.Equal(t, []string{filepath.Join(cfg.Project.Root, "svcA")}, inst.Dirs())
}

func TestBuildComponent_Python(t *testing.T) {
	svc := config.ServiceDescriptor{Name: "worker", Directory: "worker", Runtime: config.RuntimePython}
	cfg := newConfig(t, svc)
	dir := cfg.ServiceDir(svc)
	writeFile(t, filepath.Join(dir, "app.py"), "print('hi')")
	writeFile(t, filepath.Join(dir, "pkg", "jobs.py"), "")
	writeFile(t, filepath.Join(dir, "node_modules", "skip.py"), "")
	writeFile(t, filepath.Join(dir, "__pycache__", "skip.py"), "")
	writeFile(t, filepath.Join(dir, "requirements.txt"), "flask\n")

	run := testutil.NewFakeRunner()
	require.NoError(t, New(cfg, events.NewBus(), run, &fakeInstaller{}).BuildComponent(context.Background(), svc))
	assert.Equal(t, []string{
		"python3 -m py_compile app.py",
		"python3 -m py_compile " + filepath.Join("pkg", "jobs.py"),
		"pip install -r requirements.txt",
	}, run.Lines())
}

func TestBuildComponent_PythonSyntaxErrorAborts(t *testing.T) {
	svc := config.ServiceDescriptor{Name: "worker", Directory: "worker", Runtime: config.RuntimePython}
	cfg := newConfig(t, svc)
	dir := cfg.ServiceDir(svc)
	writeFile(t, filepath.Join(dir, "a.py"), "def (")
	writeFile(t, filepath.Join(dir, "b.py"), "")
	writeFile(t, filepath.Join(dir, "requirements.txt"), "")

	run := testutil.NewFakeRunner().On("python3 -m py_compile a.py", "SyntaxError", stderrors.New("exit status 1"))
	err := New(cfg, events.NewBus(), run, &fakeInstaller{}).BuildComponent(context.Background(), svc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a.py")
	assert.Equal(t, []string{"python3 -m py_compile a.py"}, run.Lines())
}

func TestBuildComponent_UnknownRuntime(t *testing.T) {
	svc := config.ServiceDescriptor{Name: "rusty", Directory: "rusty", Runtime: "rust"}
	cfg := newConfig(t, svc)

	err := New(cfg, events.NewBus(), testutil.NewFakeRunner(), &fakeInstaller{}).BuildComponent(context.Background(), svc)
	assert.True(t, errors.HasCode(err, errors.ErrUnknownRuntime))
}
