// Package git reads just enough repository state to scope a review to the
// files that changed.
package git

import (
	"errors"
	"fmt"
	"os/exec"
	"slices"
	"strings"
)

// Client is the subset of git a review needs.
type Client interface {
	RepoRoot(path string) (string, error)
	CurrentBranch(path string) (string, error)
	HeadCommit(path string) (string, error)
	IsDirty(path string) (bool, error)
	ChangedFiles(path, ref string) ([]string, error)
}

// RealClient shells out to the git binary.
type RealClient struct{}

// NewClient returns a git client backed by the git binary.
func NewClient() *RealClient {
	return &RealClient{}
}

func gitCmd(path string, args ...string) (string, error) {
	fullArgs := append([]string{"-C", path}, args...)
	out, err := exec.Command("git", fullArgs...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("git %s: %s", strings.Join(args, " "), strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (c *RealClient) RepoRoot(path string) (string, error) {
	return gitCmd(path, "rev-parse", "--show-toplevel")
}

func (c *RealClient) CurrentBranch(path string) (string, error) {
	return gitCmd(path, "rev-parse", "--abbrev-ref", "HEAD")
}

func (c *RealClient) HeadCommit(path string) (string, error) {
	return gitCmd(path, "rev-parse", "--short", "HEAD")
}

func (c *RealClient) IsDirty(path string) (bool, error) {
	out, err := gitCmd(path, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return out != "", nil
}

// ChangedFiles lists files under path that differ from ref, plus untracked
// files. Deleted files are left out. Paths are relative to path and use
// forward slashes.
func (c *RealClient) ChangedFiles(path, ref string) ([]string, error) {
	diff, err := gitCmd(path, "diff", "--name-only", "--relative", "--diff-filter=d", ref)
	if err != nil {
		return nil, err
	}
	untracked, err := gitCmd(path, "ls-files", "--others", "--exclude-standard")
	if err != nil {
		return nil, err
	}
	files := append(ParseNameOnly(diff), ParseNameOnly(untracked)...)
	slices.Sort(files)
	return slices.Compact(files), nil
}

// ParseNameOnly splits `git ... --name-only` output into paths.
func ParseNameOnly(output string) []string {
	var files []string
	for _, line := range strings.Split(output, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			files = append(files, line)
		}
	}
	return files
}
