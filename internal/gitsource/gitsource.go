// Package gitsource keeps local clones of deck repositories up to date.
package gitsource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"go.uber.org/zap"
)

// Client clones and pulls repositories with go-git.
type Client struct {
	logger   *zap.Logger
	progress io.Writer
}

// New returns a Client. progress receives git's progress output and may be
// nil.
func New(logger *zap.Logger, progress io.Writer) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{logger: logger, progress: progress}
}

// Sync clones a git repository if it doesn't exist at the given path,
// or pulls the latest changes if it does.
func (c *Client) Sync(ctx context.Context, url, localPath string) error {
	_, err := os.Stat(localPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		c.logger.Info("cloning repository", zap.String("url", url), zap.String("path", localPath))
		_, err := git.PlainCloneContext(ctx, localPath, false, &git.CloneOptions{
			URL:      url,
			Progress: c.progress,
		})
		if err != nil {
			return fmt.Errorf("failed to clone repo %s: %w", url, err)
		}
		c.logger.Info("clone successful", zap.String("url", url))

	case err == nil:
		c.logger.Info("pulling latest changes", zap.String("path", localPath))
		repo, err := git.PlainOpen(localPath)
		if err != nil {
			return fmt.Errorf("failed to open existing repo at %s: %w", localPath, err)
		}

		worktree, err := repo.Worktree()
		if err != nil {
			return fmt.Errorf("failed to get worktree for repo at %s: %w", localPath, err)
		}

		err = worktree.PullContext(ctx, &git.PullOptions{
			RemoteName: "origin",
			Progress:   c.progress,
		})
		if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
			return fmt.Errorf("failed to pull changes for repo at %s: %w", localPath, err)
		}
		c.logger.Info("pull successful", zap.String("path", localPath), zap.Bool("up_to_date", err != nil))

	default:
		return fmt.Errorf("error checking path %s: %w", localPath, err)
	}

	return nil
}

// LocalPath maps a repository URL to its clone directory below baseDir:
// https://github.com/me/decks.git and git@github.com:me/decks.git both map
// to baseDir/github.com/me/decks.
func LocalPath(baseDir, repoURL string) (string, error) {
	parsedURL, err := url.Parse(repoURL)
	if err == nil && (parsedURL.Scheme == "https" || parsedURL.Scheme == "http") && parsedURL.Host != "" {
		return filepath.Join(baseDir, parsedURL.Host, strings.TrimSuffix(parsedURL.Path, ".git")), nil
	}

	// scp-like syntax: user@host:path
	if userHost, repoPath, ok := strings.Cut(repoURL, ":"); ok && strings.Contains(userHost, "@") {
		_, host, _ := strings.Cut(userHost, "@")
		repoPath = strings.TrimSuffix(repoPath, ".git")
		if host != "" && repoPath != "" {
			return filepath.Join(baseDir, host, repoPath), nil
		}
	}
	return "", fmt.Errorf("could not parse git URL: %s", repoURL)
}
