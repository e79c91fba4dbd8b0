package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devpilot/internal/config"
	"devpilot/internal/events"
	"devpilot/internal/testutil"
)

func TestPerformHealthCheck(t *testing.T) {
	hs := testutil.NewHealthServer(t, http.StatusOK)
	svc := config.ServiceDescriptor{Name: "api", Port: hs.Port(), Runtime: config.RuntimeNode}
	m, _ := newManager(t, testConfig(t, svc))

	res := m.PerformHealthCheck(context.Background(), svc)
	assert.Equal(t, events.Healthy, res.Status)
	assert.Equal(t, "ok", res.Response)
	assert.Empty(t, res.Error)
	assert.False(t, res.Timestamp.IsZero())

	hs.SetCode(http.StatusInternalServerError)
	res = m.PerformHealthCheck(context.Background(), svc)
	assert.Equal(t, events.Unhealthy, res.Status)
	assert.Contains(t, res.Error, "500")
}

func TestPerformHealthCheck_Unreachable(t *testing.T) {
	svc := config.ServiceDescriptor{Name: "api", Port: closedPort(t), Runtime: config.RuntimeNode}
	m, _ := newManager(t, testConfig(t, svc))

	res := m.PerformHealthCheck(context.Background(), svc)
	assert.Equal(t, events.Unhealthy, res.Status)
	assert.NotEmpty(t, res.Error)
}

func TestCheckAllHealth(t *testing.T) {
	up := testutil.NewHealthServer(t, http.StatusOK)
	down := testutil.NewHealthServer(t, http.StatusServiceUnavailable)
	cfg := testConfig(t,
		config.ServiceDescriptor{Name: "web", Directory: "web", Port: up.Port(), Runtime: config.RuntimeNode},
		config.ServiceDescriptor{Name: "jobs", Directory: "jobs", Runtime: config.RuntimePython},
		config.ServiceDescriptor{Name: "api", Directory: "api", Port: down.Port(), Runtime: config.RuntimeNode},
	)
	m, rec := newManager(t, cfg)

	results := m.CheckAllHealth(context.Background())
	require.Len(t, results, 2)
	assert.Equal(t, "web", results[0].Service)
	assert.True(t, results[0].Healthy())
	assert.Equal(t, "api", results[1].Service)
	assert.False(t, results[1].Healthy())

	done := rec.Last(events.KindHealthCheckCompleted).(events.HealthCheckCompleted)
	assert.Equal(t, results, done.Results)
}

func TestHealthMonitoring_RestartsOnlyUnhealthy(t *testing.T) {
	healthy := sleeper("healthy", 4301)
	sick := sleeper("sick", 4302)
	m, rec := newManager(t, testConfig(t, healthy, sick))

	ready := probeFunc(func(context.Context) (string, error) { return "ok", nil })
	m.SetProbes(
		func(config.ServiceDescriptor, *Process) Probe { return ready },
		func(svc config.ServiceDescriptor, _ *Process) Probe {
			if svc.Name == "sick" {
				return failingProbe()
			}
			return ready
		},
	)

	ctx := context.Background()
	m.StartAllServices(ctx)
	first, _ := m.GetService("sick")

	m.StartHealthMonitoring(ctx, 50*time.Millisecond)
	assert.True(t, m.IsMonitoring())
	require.Eventually(t, func() bool {
		return rec.Has(events.KindServiceRestarted)
	}, 5*time.Second, 10*time.Millisecond)
	m.StopHealthMonitoring()
	assert.False(t, m.IsMonitoring())

	for _, e := range rec.Events() {
		switch ev := e.(type) {
		case events.ServiceRestarting:
			assert.Equal(t, "sick", ev.Service)
		case events.ServiceRestarted:
			assert.Equal(t, "sick", ev.Service)
		}
	}

	second, ok := m.GetService("sick")
	require.True(t, ok)
	assert.NotEqual(t, first.PID, second.PID)
	assert.True(t, m.IsRunning("healthy"))
}

func TestStartHealthMonitoring_Idempotent(t *testing.T) {
	m, rec := newManager(t, testConfig(t))

	m.StartHealthMonitoring(context.Background(), 20*time.Millisecond)
	m.StartHealthMonitoring(context.Background(), 20*time.Millisecond)
	require.Eventually(t, func() bool {
		return rec.Count(events.KindHealthCheckCompleted) >= 2
	}, 2*time.Second, 5*time.Millisecond)

	m.StopHealthMonitoring()
	count := rec.Count(events.KindHealthCheckCompleted)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, count, rec.Count(events.KindHealthCheckCompleted))

	// stopping twice is harmless
	m.StopHealthMonitoring()
}
