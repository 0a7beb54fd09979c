package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"go.uber.org/zap"
)

// isGitURL reports whether an argument names a remote repository rather than a local path.
func isGitURL(input string) bool {
	return strings.HasSuffix(input, ".git") || strings.HasPrefix(input, "git@")
}

// cloneGitRepo shallow-clones the default branch of url into a temporary
// directory named after the repository. cleanup removes everything it created.
func cloneGitRepo(ctx context.Context, url string, progress io.Writer, logger *zap.Logger) (dir string, cleanup func(), err error) {
	tempDir, err := os.MkdirTemp("", "insight-git-")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temporary directory: %w", err)
	}
	dir = filepath.Join(tempDir, repoName(url))

	logger.Info("cloning repository", zap.String("url", url), zap.String("dir", dir))
	_, err = git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:           url,
		Progress:      progress,
		Depth:         1,
		ReferenceName: plumbing.HEAD,
		SingleBranch:  true,
	})
	if err != nil {
		_ = os.RemoveAll(tempDir)
		if ctx.Err() != nil {
			return "", nil, aborted(ctx)
		}
		return "", nil, fmt.Errorf("failed to clone repository '%s': %w", url, err)
	}
	return dir, func() { _ = os.RemoveAll(tempDir) }, nil
}

// repoName derives a directory name for a cloned repository from its URL.
func repoName(url string) string {
	name := strings.TrimSuffix(strings.TrimRight(url, "/"), ".git")
	if i := strings.LastIndexAny(name, "/:"); i >= 0 {
		name = name[i+1:]
	}
	if name == "" {
		return "repository"
	}
	return name
}
