package client

import (
	"context"
	"net"
	"net/http/httptest"
	"sync"
	"testing"

	"devpilot/internal/config"
	"devpilot/internal/errors"
	"devpilot/internal/events"
	"devpilot/internal/orchestrator"
	"devpilot/internal/server"
	"devpilot/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOrchestrator stands behind a real control API server
type fakeOrchestrator struct {
	bus      *events.Bus
	services []service.RuntimeState
	results  map[string]orchestrator.CommandResult

	mu       sync.Mutex
	commands []orchestrator.Command
}

func (f *fakeOrchestrator) Execute(_ context.Context, cmd orchestrator.Command) orchestrator.CommandResult {
	f.mu.Lock()
	f.commands = append(f.commands, cmd)
	f.mu.Unlock()
	if res, ok := f.results[cmd.Type]; ok {
		return res
	}
	return orchestrator.CommandResult{Success: true}
}

func (f *fakeOrchestrator) Status() orchestrator.Status {
	st := orchestrator.NewStatus()
	st.BuildCount = 3
	return st
}

func (f *fakeOrchestrator) QueueBuild(context.Context, string) {}

func (f *fakeOrchestrator) Services() []service.RuntimeState { return f.services }

func (f *fakeOrchestrator) Service(name string) (service.RuntimeState, error) {
	for _, s := range f.services {
		if s.Descriptor.Name == name {
			return s, nil
		}
	}
	return service.RuntimeState{}, errors.ServiceNotFound(name)
}

func (f *fakeOrchestrator) Bus() *events.Bus { return f.bus }

func (f *fakeOrchestrator) Commands() []orchestrator.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]orchestrator.Command(nil), f.commands...)
}

func newTestClient(t *testing.T) (*Client, *fakeOrchestrator) {
	t.Helper()
	orch := &fakeOrchestrator{
		bus:     events.NewBus(),
		results: map[string]orchestrator.CommandResult{},
		services: []service.RuntimeState{{
			Descriptor: config.ServiceDescriptor{Name: "api", Directory: "api", Port: 4000, Runtime: config.RuntimeNode},
			PID:        777,
			Status:     service.StatusRunning,
		}},
	}
	srv := server.New(server.DefaultConfig(), orch)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Hub().Close()
		ts.Close()
	})

	c, err := New(ts.URL)
	require.NoError(t, err)
	return c, orch
}

func closedAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestNew(t *testing.T) {
	c, err := New("localhost:8090")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8090", c.BaseURL())

	c, err = New("https://pilot.internal:9000/")
	require.NoError(t, err)
	assert.Equal(t, "https://pilot.internal:9000", c.BaseURL())

	_, err = New("http://")
	assert.Error(t, err)
}

func TestFromConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.ServerConfig
		want string
	}{
		{"named host", config.ServerConfig{Host: "localhost", Port: 8090}, "http://localhost:8090"},
		{"wildcard", config.ServerConfig{Host: "0.0.0.0", Port: 9001}, "http://127.0.0.1:9001"},
		{"ipv6 wildcard", config.ServerConfig{Host: "::", Port: 9001}, "http://127.0.0.1:9001"},
		{"empty", config.ServerConfig{}, "http://127.0.0.1:8090"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromConfig(tt.cfg).BaseURL())
		})
	}
}

func TestHealth(t *testing.T) {
	c, _ := newTestClient(t)
	assert.NoError(t, c.Health(context.Background()))
}

func TestExecute(t *testing.T) {
	c, orch := newTestClient(t)
	ctx := context.Background()
	orch.results[orchestrator.CommandRestartService] = orchestrator.CommandResult{Success: false, Error: "[SERVICE_RESTART_FAILED] boom"}

	res, err := c.Execute(ctx, orchestrator.Command{Type: orchestrator.CommandStartService, Service: "api"})
	require.NoError(t, err)
	assert.True(t, res.Success)

	res, err = c.Execute(ctx, orchestrator.Command{Type: orchestrator.CommandRestartService, Service: "api"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "SERVICE_RESTART_FAILED")

	assert.Equal(t, []orchestrator.Command{
		{Type: orchestrator.CommandStartService, Service: "api"},
		{Type: orchestrator.CommandRestartService, Service: "api"},
	}, orch.Commands())
}

func TestExecute_RejectedRequest(t *testing.T) {
	c, orch := newTestClient(t)

	_, err := c.Execute(context.Background(), orchestrator.Command{Type: "  "})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidInput))
	assert.Empty(t, orch.Commands())
}

func TestUnreachableServer(t *testing.T) {
	c, err := New(closedAddr(t))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.Execute(ctx, orchestrator.Command{Type: orchestrator.CommandStopService, Service: "api"})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrServerUnreachable))
	assert.Contains(t, err.Error(), c.BaseURL())

	assert.True(t, errors.HasCode(c.Health(ctx), errors.ErrServerUnreachable))
}

func TestStatus(t *testing.T) {
	c, _ := newTestClient(t)

	st, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, st.BuildCount)
}

func TestServices(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	list, err := c.ListServices(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 777, list[0].PID)

	state, err := c.GetService(ctx, "api")
	require.NoError(t, err)
	assert.Equal(t, service.StatusRunning, state.Status)
	assert.Equal(t, 4000, state.Descriptor.Port)

	_, err = c.GetService(ctx, "ghost")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrServiceNotFound))
}
