package build

import (
	"context"
	"slices"
	"time"

	"devpilot/internal/events"
	"devpilot/internal/logger"
)

// QueueBuild adds a changed file to the pending batch. The first file of an
// idle window arms the debounce timer; when it fires the whole batch is
// cleared and rebuilt as one incremental build.
func (b *Builder) QueueBuild(ctx context.Context, file string) {
	b.mu.Lock()
	b.queue = append(b.queue, file)
	pending := len(b.queue)
	if b.timer == nil {
		flushCtx := context.WithoutCancel(ctx)
		b.timer = time.AfterFunc(b.cfg.Build.Debounce(), func() { b.flush(flushCtx) })
	}
	b.mu.Unlock()

	logger.WithFields(logger.Fields{"file": file, "pending": pending}).Debug("Build queued")
	b.bus.Publish(events.BuildQueued{File: file, Pending: pending})
}

// Pending returns the files waiting for the debounce timer
func (b *Builder) Pending() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.queue)
}

// Stop disarms a pending debounce timer and drops the batch
func (b *Builder) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.queue = nil
}

func (b *Builder) flush(ctx context.Context) {
	b.mu.Lock()
	files := b.queue
	b.queue = nil
	b.timer = nil
	b.mu.Unlock()

	if len(files) == 0 {
		return
	}

	b.bus.Publish(events.BuildQueueFlushed{Files: files})
	b.IncrementalBuild(ctx, files)
}
