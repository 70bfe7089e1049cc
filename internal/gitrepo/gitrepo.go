// Package gitrepo drives the git binary for the record store working
// tree: staging, commits with explicit identities and dates, and periodic
// repacking.
package gitrepo

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Signature identifies the author or committer of one commit.
type Signature struct {
	Name  string
	Email string
	When  time.Time
}

// FormatWhen renders a commit date the way the history replay records it:
// ISO-8601 in UTC with a literal Z suffix, sub-second part truncated.
func FormatWhen(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format("2006-01-02T15:04:05Z")
}

// CommandError is a failed git invocation with its captured output.
type CommandError struct {
	Args   []string
	Output string
	Err    error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("git %s failed: %v: %s", strings.Join(e.Args, " "), e.Err, strings.TrimSpace(e.Output))
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Repo is one git working tree.
type Repo struct {
	dir string
}

// Init creates the directory if needed and initializes a repository in it.
// Reuses an existing repository, so a resumed run picks up where the
// previous one stopped.
func Init(dir string) (*Repo, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create repository directory: %w", err)
	}
	repo := &Repo{dir: dir}
	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		return repo, nil
	}
	if _, err := repo.run(nil, "init"); err != nil {
		return nil, err
	}
	return repo, nil
}

// Open returns the repository at dir, which must already be initialized.
func Open(dir string) (*Repo, error) {
	if _, err := os.Stat(filepath.Join(dir, ".git")); err != nil {
		return nil, fmt.Errorf("not a git repository: %s: %w", dir, err)
	}
	return &Repo{dir: dir}, nil
}

// Dir returns the working tree path.
func (r *Repo) Dir() string {
	return r.dir
}

// Stage adds the given paths (all changes when none given) to the index.
func (r *Repo) Stage(paths ...string) error {
	args := []string{"add", "-A", "--"}
	if len(paths) == 0 {
		args = append(args, ".")
	} else {
		args = append(args, paths...)
	}
	_, err := r.run(nil, args...)
	return err
}

// Commit records the staged tree with the given message, identities and
// dates. Author and committer dates both come from the signature's When.
func (r *Repo) Commit(message string, author, committer Signature, allowEmpty bool) error {
	args := []string{"commit", "-m", message}
	if allowEmpty {
		args = append(args, "--allow-empty")
	}
	env := []string{
		"GIT_AUTHOR_NAME=" + author.Name,
		"GIT_AUTHOR_EMAIL=" + author.Email,
		"GIT_AUTHOR_DATE=" + FormatWhen(author.When),
		"GIT_COMMITTER_NAME=" + committer.Name,
		"GIT_COMMITTER_EMAIL=" + committer.Email,
		"GIT_COMMITTER_DATE=" + FormatWhen(committer.When),
	}
	_, err := r.run(env, args...)
	return err
}

// GC compacts the repository. The replay calls this periodically since it
// produces thousands of small commits.
func (r *Repo) GC() error {
	_, err := r.run(nil, "gc", "--quiet")
	return err
}

// HeadCount returns the number of commits on HEAD, 0 for an unborn branch.
func (r *Repo) HeadCount() (int, error) {
	out, err := r.run(nil, "rev-list", "--count", "HEAD")
	if err != nil {
		// An unborn HEAD is not an error for our purposes.
		return 0, nil
	}
	var count int
	if _, err := fmt.Sscanf(strings.TrimSpace(out), "%d", &count); err != nil {
		return 0, fmt.Errorf("unexpected rev-list output %q: %w", out, err)
	}
	return count, nil
}

func (r *Repo) run(extraEnv []string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = r.dir
	if len(extraEnv) > 0 {
		cmd.Env = append(os.Environ(), extraEnv...)
	}
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", &CommandError{Args: args, Output: string(output), Err: err}
	}
	return string(output), nil
}
