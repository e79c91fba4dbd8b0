// Package deploy commits the working tree and pushes it to the configured remote.
package deploy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"devpilot/internal/config"
	"devpilot/internal/errors"
	"devpilot/internal/events"
	"devpilot/internal/logger"

	"github.com/go-git/go-git/v5/plumbing/object"
)

// Repository is the version-control collaborator used to publish changes
type Repository interface {
	IsRepository() bool
	HasChanges(ctx context.Context) (bool, error)
	StageAll(ctx context.Context) error
	Commit(ctx context.Context, message string) (string, error)
	Push(ctx context.Context, remote, branch string) error
	HeadCommit(ctx context.Context) (*object.Commit, error)
}

// Deployer publishes the working tree. At most one deploy runs at a time.
type Deployer struct {
	cfg  config.DeployConfig
	bus  *events.Bus
	repo Repository
	now  func() time.Time

	mu        sync.Mutex
	deploying bool
}

// New creates a deployer
func New(cfg config.DeployConfig, bus *events.Bus, repo Repository) *Deployer {
	return &Deployer{cfg: cfg, bus: bus, repo: repo, now: time.Now}
}

// DeployChanges stages, commits and pushes when auto-push is enabled, and
// does nothing otherwise
func (d *Deployer) DeployChanges(ctx context.Context) error {
	if !d.cfg.AutoPush {
		logger.Info("Auto-push disabled, skipping deployment")
		d.bus.Publish(events.DeploymentSkipped{Reason: "auto-push disabled"})
		return nil
	}
	return d.Push(ctx)
}

// Push stages, commits and pushes regardless of the auto-push setting. A
// clean working tree is pushed without a new commit and reports HEAD.
func (d *Deployer) Push(ctx context.Context) error {
	d.mu.Lock()
	if d.deploying {
		d.mu.Unlock()
		return errors.New(errors.ErrDeployInProgress, "Deployment already in progress")
	}
	d.deploying = true
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.deploying = false
		d.mu.Unlock()
	}()

	now := d.now()
	id := fmt.Sprintf("deploy-%d", now.UnixMilli())
	log := logger.WithField("deploy_id", id)

	d.bus.Publish(events.DeploymentStarted{DeployID: id})
	log.Info("Starting deployment")

	fail := func(step string, err error) error {
		wrapped := errors.DeployFailed(step, err).WithContext("deploy_id", id)
		d.bus.Publish(events.DeploymentFailed{DeployID: id, Error: wrapped.Error()})
		log.WithError(err).WithField("step", step).Error("Deployment failed")
		return wrapped
	}

	if !d.repo.IsRepository() {
		return fail("open", errors.New(errors.ErrGitRepoNotFound, "Project root is not inside a git repository"))
	}

	changed, err := d.repo.HasChanges(ctx)
	if err != nil {
		return fail("status", err)
	}

	var commit string
	if changed {
		if err := d.repo.StageAll(ctx); err != nil {
			return fail("stage", err)
		}
		commit, err = d.repo.Commit(ctx, CommitMessage(now))
		if err != nil {
			return fail("commit", err)
		}
	} else {
		log.Debug("Working tree clean, pushing without a new commit")
		head, err := d.repo.HeadCommit(ctx)
		if err != nil {
			return fail("head", err)
		}
		commit = head.Hash.String()
	}

	if err := d.repo.Push(ctx, d.cfg.Remote, d.cfg.Branch); err != nil {
		return fail("push", err)
	}

	d.bus.Publish(events.DeploymentCompleted{
		DeployID:  id,
		Commit:    commit,
		Remote:    d.cfg.Remote,
		Branch:    d.cfg.Branch,
		Committed: changed,
	})
	log.WithField("commit", commit).Info("Deployment completed")
	return nil
}

// CommitMessage is the timestamped message used for deploy commits
func CommitMessage(t time.Time) string {
	return fmt.Sprintf("Auto-deploy: %s", t.UTC().Format(time.RFC3339))
}
