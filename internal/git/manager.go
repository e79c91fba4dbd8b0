// Package git stages, commits and pushes the project working tree with go-git.
package git

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"

	"devpilot/internal/errors"
	"devpilot/internal/logger"
)

// Signature identifies the author of deploy commits
type Signature struct {
	Name  string
	Email string
}

// Manager operates on the repository containing path
type Manager struct {
	path   string
	author Signature
}

// New creates a Git manager for the repository containing path
func New(path string, author Signature) *Manager {
	return &Manager{path: path, author: author}
}

func (m *Manager) open() (*git.Repository, error) {
	repo, err := git.PlainOpenWithOptions(m.path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if stderrors.Is(err, git.ErrRepositoryNotExists) {
			return nil, errors.GitRepoNotFound(m.path)
		}
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}
	return repo, nil
}

// IsRepository checks if the path is inside a git repository
func (m *Manager) IsRepository() bool {
	_, err := m.open()
	return err == nil
}

// HasChanges reports whether the working tree differs from HEAD
func (m *Manager) HasChanges(ctx context.Context) (bool, error) {
	repo, err := m.open()
	if err != nil {
		return false, err
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("failed to get worktree: %w", err)
	}

	status, err := worktree.Status()
	if err != nil {
		return false, fmt.Errorf("failed to get status: %w", err)
	}

	return !status.IsClean(), nil
}

// StageAll stages every change in the working tree, deletions included
func (m *Manager) StageAll(ctx context.Context) error {
	repo, err := m.open()
	if err != nil {
		return err
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	if err := worktree.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return fmt.Errorf("failed to stage changes: %w", err)
	}
	return nil
}

// Commit records the staged changes and returns the new commit hash
func (m *Manager) Commit(ctx context.Context, message string) (string, error) {
	repo, err := m.open()
	if err != nil {
		return "", err
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to get worktree: %w", err)
	}

	hash, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  m.author.Name,
			Email: m.author.Email,
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to commit: %w", err)
	}
	return hash.String(), nil
}

// Push sends branch to remote. An up to date remote is not an error.
func (m *Manager) Push(ctx context.Context, remote, branch string) error {
	repo, err := m.open()
	if err != nil {
		return err
	}

	rem, err := repo.Remote(remote)
	if err != nil {
		return fmt.Errorf("failed to find remote %s: %w", remote, err)
	}

	var url string
	if urls := rem.Config().URLs; len(urls) > 0 {
		url = urls[0]
	}

	ref := plumbing.NewBranchReferenceName(branch)
	err = repo.PushContext(ctx, &git.PushOptions{
		RemoteName: remote,
		RefSpecs:   []gitconfig.RefSpec{gitconfig.RefSpec(fmt.Sprintf("%s:%s", ref, ref))},
		Auth:       authFor(url),
	})
	if err != nil && !stderrors.Is(err, git.NoErrAlreadyUpToDate) {
		return errors.Wrap(errors.ErrGitPushFailed, fmt.Sprintf("Failed to push %s to %s", branch, remote), err)
	}

	logger.WithFields(logger.Fields{"remote": remote, "branch": branch}).Info("Pushed changes")
	return nil
}

// HeadCommit returns the commit HEAD points at
func (m *Manager) HeadCommit(ctx context.Context) (*object.Commit, error) {
	repo, err := m.open()
	if err != nil {
		return nil, err
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD: %w", err)
	}

	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to get commit: %w", err)
	}
	return commit, nil
}

// isSSH reports whether a remote URL uses the ssh transport, including the
// scp-like user@host:path form
func isSSH(url string) bool {
	if strings.HasPrefix(url, "ssh://") {
		return true
	}
	if strings.Contains(url, "://") {
		return false
	}
	at := strings.Index(url, "@")
	return at > 0 && strings.Index(url[at:], ":") > 0
}

// authFor picks credentials from the environment matching the remote's scheme
func authFor(url string) transport.AuthMethod {
	switch {
	case isSSH(url):
		if sshKey := os.Getenv("SSH_KEY_PATH"); sshKey != "" {
			if auth, err := ssh.NewPublicKeysFromFile("git", sshKey, ""); err == nil {
				return auth
			}
		}
		if auth, err := ssh.NewSSHAgentAuth("git"); err == nil {
			return auth
		}
	case strings.HasPrefix(url, "http://"), strings.HasPrefix(url, "https://"):
		if username := os.Getenv("GIT_USERNAME"); username != "" {
			if password := os.Getenv("GIT_PASSWORD"); password != "" {
				return &http.BasicAuth{
					Username: username,
					Password: password,
				}
			}
		}
		if token := os.Getenv("GITHUB_TOKEN"); token != "" {
			return &http.BasicAuth{
				Username: "token",
				Password: token,
			}
		}
	}
	return nil
}
