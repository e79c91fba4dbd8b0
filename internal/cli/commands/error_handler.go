package commands

import (
	"fmt"
	"strings"

	"devpilot/internal/errors"
	"devpilot/internal/logger"
)

// hints are shown below errors carrying the given code. Command results only
// carry the error text, so codes are matched on their "[CODE]" rendering.
var hints = []struct {
	code errors.ErrorCode
	hint string
}{
	{errors.ErrConfigNotFound, "Run 'devpilot init' to create a devpilot.toml in the project root."},
	{errors.ErrConfigValidation, "Check the [[services]] entries in your configuration."},
	{errors.ErrServiceNotFound, "Service names come from the [[services]] entries of the configuration."},
	{errors.ErrInstallFailed, "Every install strategy failed. Try 'devpilot fix' and then 'devpilot auto-install'."},
	{errors.ErrCoverageTooLow, "Raise coverage or lower test.coverage_target in the configuration."},
	{errors.ErrGitRepoNotFound, "Deployment needs the project root to be inside a git repository."},
	{errors.ErrGitPushFailed, "Check the remote and credentials (SSH_KEY_PATH, GIT_USERNAME/GIT_PASSWORD or GITHUB_TOKEN)."},
	{errors.ErrServiceStartFailed, "Inspect the service output of 'devpilot serve'; the service never became ready."},
	{errors.ErrServerUnreachable, "Service commands run on the control API. Start it with 'devpilot serve' or point --server at it."},
}

// HandleError adds a hint for well-known failures
func HandleError(err error) error {
	if err == nil {
		return nil
	}

	logger.WithError(err).Debug("Command error")
	msg := err.Error()
	for _, h := range hints {
		if errors.HasCode(err, h.code) || strings.Contains(msg, "["+string(h.code)+"]") {
			return fmt.Errorf("%w\n\nTip: %s", err, h.hint)
		}
	}
	return err
}
