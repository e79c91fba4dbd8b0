package build

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devpilot/internal/events"
	"devpilot/internal/testutil"
)

func TestQueueBuild_DebouncesIntoOneBatch(t *testing.T) {
	cfg := newConfig(t, node("A"), node("B"))
	cfg.Build.DebounceMS = 50
	bus := events.NewBus()
	rec := testutil.NewRecorder(bus)
	inst := &fakeInstaller{}
	b := New(cfg, bus, testutil.NewFakeRunner(), inst)

	ctx, cancel := context.WithCancel(context.Background())
	b.QueueBuild(ctx, "svcA/one.js")
	b.QueueBuild(ctx, "svcA/two.js")
	b.QueueBuild(ctx, "svcB/three.js")
	// a cancelled caller context must not abort the deferred build
	cancel()

	assert.Len(t, b.Pending(), 3)
	assert.Equal(t, 3, rec.Count(events.KindBuildQueued))

	require.Eventually(t, func() bool {
		return rec.Has(events.KindIncrementalBuildCompleted)
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 1, rec.Count(events.KindBuildQueueFlushed))
	done := rec.Last(events.KindIncrementalBuildCompleted).(events.IncrementalBuildCompleted)
	assert.Equal(t, []string{"svcA/one.js", "svcA/two.js", "svcB/three.js"}, done.Files)
	assert.Equal(t, []string{"A", "B"}, done.AffectedServices)
	assert.Empty(t, b.Pending())
}

func TestQueueBuild_RearmsAfterFlush(t *testing.T) {
	cfg := newConfig(t, node("A"))
	cfg.Build.DebounceMS = 20
	bus := events.NewBus()
	rec := testutil.NewRecorder(bus)
	b := New(cfg, bus, testutil.NewFakeRunner(), &fakeInstaller{})

	b.QueueBuild(context.Background(), "svcA/first.js")
	require.Eventually(t, func() bool {
		return rec.Count(events.KindIncrementalBuildCompleted) == 1
	}, 2*time.Second, 5*time.Millisecond)

	b.QueueBuild(context.Background(), "svcA/second.js")
	require.Eventually(t, func() bool {
		return rec.Count(events.KindIncrementalBuildCompleted) == 2
	}, 2*time.Second, 5*time.Millisecond)

	second := rec.Last(events.KindIncrementalBuildCompleted).(events.IncrementalBuildCompleted)
	assert.Equal(t, []string{"svcA/second.js"}, second.Files)
}

func TestQueueBuild_StopDropsBatch(t *testing.T) {
	cfg := newConfig(t, node("A"))
	cfg.Build.DebounceMS = 30
	bus := events.NewBus()
	rec := testutil.NewRecorder(bus)
	b := New(cfg, bus, testutil.NewFakeRunner(), &fakeInstaller{})

	b.QueueBuild(context.Background(), "svcA/index.js")
	b.Stop()
	assert.Empty(t, b.Pending())

	time.Sleep(100 * time.Millisecond)
	assert.False(t, rec.Has(events.KindBuildQueueFlushed))
}
