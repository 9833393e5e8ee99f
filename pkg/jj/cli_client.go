package jj

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/cockroachdb/errors"

	jiberrors "thoreinstein.com/jib/pkg/errors"
)

// CommandRunner abstracts subprocess execution so tests can stand in
// for the jj binary.
type CommandRunner interface {
	Output(ctx context.Context, dir, name string, args ...string) (string, error)
}

// execRunner runs commands with os/exec. jj writes its diagnostics to
// stderr, so stderr becomes the error message on failure.
type execRunner struct{}

func (execRunner) Output(ctx context.Context, dir, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", errors.Wrap(err, msg)
	}

	return stdout.String(), nil
}

// CLIClient talks to a jj repository by shelling out to the jj binary.
type CLIClient struct {
	binary  string
	remote  string
	dir     string
	verbose bool
	logger  *slog.Logger
	runner  CommandRunner
}

// Compile-time check that CLIClient implements Client.
var _ Client = (*CLIClient)(nil)

// CLIClientOption configures a CLIClient.
type CLIClientOption func(*CLIClient)

// WithBinary overrides the jj binary name or path.
func WithBinary(binary string) CLIClientOption {
	return func(c *CLIClient) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// WithRemote sets the git remote bookmarks are pushed to.
func WithRemote(remote string) CLIClientOption {
	return func(c *CLIClient) {
		if remote != "" {
			c.remote = remote
		}
	}
}

// WithDir runs jj in the given directory instead of the process cwd.
func WithDir(dir string) CLIClientOption {
	return func(c *CLIClient) {
		c.dir = dir
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) CLIClientOption {
	return func(c *CLIClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRunner replaces the subprocess runner. Used by tests.
func WithRunner(runner CommandRunner) CLIClientOption {
	return func(c *CLIClient) {
		if runner != nil {
			c.runner = runner
		}
	}
}

// NewCLIClient creates a jj client with the given options.
func NewCLIClient(verbose bool, opts ...CLIClientOption) *CLIClient {
	c := &CLIClient{
		binary:  "jj",
		remote:  "origin",
		verbose: verbose,
		logger:  slog.Default(),
		runner:  execRunner{},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// logDebug logs a debug message when verbose mode is enabled.
func (c *CLIClient) logDebug(msg string, args ...any) {
	if c.verbose {
		c.logger.Debug(msg, args...)
	}
}

// run executes jj with the given arguments. Failures come back as a
// VCSError carrying the jj subcommand as the operation.
func (c *CLIClient) run(ctx context.Context, operation string, args ...string) (string, error) {
	c.logDebug("running jj command", "operation", operation, "args", strings.Join(args, " "))

	out, err := c.runner.Output(ctx, c.dir, c.binary, args...)
	if err != nil {
		return "", jiberrors.NewVCSErrorWithCause(operation, err.Error(), err)
	}

	return out, nil
}

// Root returns the repository root directory.
func (c *CLIClient) Root(ctx context.Context) (string, error) {
	out, err := c.run(ctx, "root", "root")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Version reports the version of the installed jj binary.
func (c *CLIClient) Version(ctx context.Context) (*semver.Version, error) {
	out, err := c.run(ctx, "version", "version")
	if err != nil {
		return nil, err
	}
	return ParseVersion(out)
}

// currentChangeTemplate renders the change ID and emptiness on a single
// line. The description is fetched separately because it spans lines.
const currentChangeTemplate = `change_id ++ " " ++ if(empty, "true", "false")`

// CurrentChange returns the working-copy change (@).
func (c *CLIClient) CurrentChange(ctx context.Context) (*Change, error) {
	out, err := c.run(ctx, "log", "log", "--no-graph", "-r", "@", "-T", currentChangeTemplate)
	if err != nil {
		return nil, err
	}

	fields := strings.Fields(strings.TrimSpace(out))
	if len(fields) != 2 {
		return nil, jiberrors.NewVCSError("log", fmt.Sprintf("unexpected change template output: %q", strings.TrimSpace(out)))
	}

	desc, err := c.Description(ctx, fields[0])
	if err != nil {
		return nil, err
	}

	return &Change{
		ID:          fields[0],
		Description: desc,
		Empty:       fields[1] == "true",
	}, nil
}

// Diff returns the change's diff in git format, the form review prompts
// and pull request bodies expect.
func (c *CLIClient) Diff(ctx context.Context, changeID string) (string, error) {
	return c.run(ctx, "diff", "diff", "-r", changeID, "--git")
}

// Description returns the change's current description.
func (c *CLIClient) Description(ctx context.Context, changeID string) (string, error) {
	out, err := c.run(ctx, "log", "log", "--no-graph", "-r", changeID, "-T", "description")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// SetDescription replaces the change's description.
func (c *CLIClient) SetDescription(ctx context.Context, changeID, description string) error {
	_, err := c.run(ctx, "describe", "describe", "-r", changeID, "-m", description)
	return err
}

// Bookmarks returns the local bookmarks pointing at the change.
func (c *CLIClient) Bookmarks(ctx context.Context, changeID string) ([]string, error) {
	out, err := c.run(ctx, "bookmark list", "bookmark", "list", "-r", changeID)
	if err != nil {
		return nil, err
	}
	return parseBookmarkList(out), nil
}

// parseBookmarkList extracts local bookmark names from `jj bookmark
// list` output. Remote-tracking entries (name@remote) and indented
// tracking detail lines are skipped.
func parseBookmarkList(out string) []string {
	var names []string

	for _, line := range strings.Split(out, "\n") {
		if line == "" || strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
			continue
		}

		name, _, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}

		name = strings.TrimSpace(name)
		if name == "" || strings.Contains(name, "@") {
			continue
		}

		names = append(names, name)
	}

	return names
}

// CreateBookmark creates a local bookmark pointing at the change.
func (c *CLIClient) CreateBookmark(ctx context.Context, name, changeID string) error {
	_, err := c.run(ctx, "bookmark create", "bookmark", "create", name, "-r", changeID)
	return err
}

// nearestBookmarkRevset selects the closest ancestors of a change
// (excluding the change itself) that carry a bookmark.
const nearestBookmarkRevset = `heads(::parents(%s) & bookmarks())`

// NearestBookmarkedAncestor walks the change's ancestry for the closest
// bookmarked revision and returns its bookmark name, or "" when no
// ancestor carries one. When a merge yields several bookmarked heads,
// the first one jj reports wins.
func (c *CLIClient) NearestBookmarkedAncestor(ctx context.Context, changeID string) (string, error) {
	revset := fmt.Sprintf(nearestBookmarkRevset, changeID)

	out, err := c.run(ctx, "log", "log", "--no-graph", "-r", revset, "-T", `change_id ++ "\n"`)
	if err != nil {
		return "", err
	}

	ancestors := strings.Fields(strings.TrimSpace(out))
	if len(ancestors) == 0 {
		return "", nil
	}

	bookmarks, err := c.Bookmarks(ctx, ancestors[0])
	if err != nil {
		return "", err
	}
	if len(bookmarks) == 0 {
		return "", nil
	}

	return bookmarks[0], nil
}

// Push pushes the bookmark to the configured remote. allowNew is
// required the first time a bookmark is pushed, matching jj's refusal
// to create remote bookmarks implicitly.
func (c *CLIClient) Push(ctx context.Context, bookmark string, allowNew bool) error {
	args := []string{"git", "push", "--remote", c.remote, "--bookmark", bookmark}
	if allowNew {
		args = append(args, "--allow-new")
	}

	_, err := c.run(ctx, "git push", args...)
	return err
}
