package orchestrator

import (
	"context"
	"time"

	"devpilot/internal/errors"
	"devpilot/internal/events"
	"devpilot/internal/logger"
)

// Full-cycle stage names
const (
	StageInstall   = "install"
	StageConfigure = "configure"
	StageBuild     = "build"
	StageTest      = "test"
	StageDeploy    = "deploy"
)

type stage struct {
	name string
	run  func(ctx context.Context) error
}

// stages returns the pipeline in execution order. Deploy is only part of it
// when auto-push is enabled.
func (o *Orchestrator) stages() []stage {
	list := []stage{
		{StageInstall, o.AutoInstall},
		{StageConfigure, o.AutoConfigure},
		{StageBuild, o.Build},
		{StageTest, o.Cypress},
	}
	if o.cfg.Deploy.AutoPush {
		list = append(list, stage{StageDeploy, o.Deploy})
	}
	return list
}

// RunFullAutoCycle executes the stages strictly in order. The first failing
// stage aborts the rest.
func (o *Orchestrator) RunFullAutoCycle(ctx context.Context) error {
	start := time.Now()
	o.bus.Publish(events.FullCycleStarted{})
	logger.Info("Full cycle started")

	for _, st := range o.stages() {
		o.bus.Publish(events.FullCycleStage{Stage: st.name})
		logger.WithField("stage", st.name).Info("Full cycle stage")

		if err := st.run(ctx); err != nil {
			o.bus.Publish(events.FullCycleFailed{Stage: st.name, Error: err.Error()})
			logger.WithError(err).WithField("stage", st.name).Error("Full cycle failed")
			return errors.FullCycleFailed(st.name, err)
		}
	}

	elapsed := time.Since(start)
	o.bus.Publish(events.FullCycleCompleted{Duration: elapsed})
	logger.WithField("duration", elapsed.String()).Info("Full cycle completed")
	return nil
}
