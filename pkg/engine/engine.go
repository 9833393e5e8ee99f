// Package engine orchestrates a sync run: it verifies preconditions,
// resolves the change's bookmark and base branch, pushes, and creates
// or updates the pull request, reconciling reviewers along the way.
//
// The flow is strictly sequential and user-suspended: every remote call
// and prompt blocks until it returns, and a cancellation at any prompt
// aborts the steps not yet reached. Preconditions all run before the
// first remote mutation so a failed check never leaves a partial PR.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"thoreinstein.com/jib/pkg/config"
	jiberrors "thoreinstein.com/jib/pkg/errors"
	"thoreinstein.com/jib/pkg/github"
	"thoreinstein.com/jib/pkg/jj"
	"thoreinstein.com/jib/pkg/reviewers"
	"thoreinstein.com/jib/pkg/synclog"
	"thoreinstein.com/jib/pkg/ui"
)

// Engine drives one jj change through to an open pull request.
type Engine struct {
	jj       jj.Client
	gh       github.Client
	surface  ui.Surface
	cfg      *config.Config
	store    *synclog.Store
	resolver *reviewers.Resolver
	out      io.Writer
	stderr   io.Writer
	logger   *slog.Logger
}

// NewEngine creates a sync engine. store may be nil when history is
// disabled.
func NewEngine(jjClient jj.Client, gh github.Client, surface ui.Surface, cfg *config.Config, store *synclog.Store, verbose bool) *Engine {
	var logger *slog.Logger
	if verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}

	return &Engine{
		jj:       jjClient,
		gh:       gh,
		surface:  surface,
		cfg:      cfg,
		store:    store,
		resolver: reviewers.NewResolver(cfg, gh, surface),
		out:      os.Stdout,
		stderr:   os.Stderr,
		logger:   logger,
	}
}

// WithOutput redirects progress output and warnings, mainly for tests.
func (e *Engine) WithOutput(out, stderr io.Writer) *Engine {
	if out != nil {
		e.out = out
	}
	if stderr != nil {
		e.stderr = stderr
		e.resolver = e.resolver.WithStderr(stderr)
	}
	return e
}

// PreflightResult carries what the checks established about the
// repository and its working change.
type PreflightResult struct {
	Root   string
	Change *jj.Change
}

// Preflight verifies the environment before anything is drafted or
// pushed: the working directory is inside a jj repository, jj is new
// enough, the working change has content, and the GitHub session is
// authenticated. Description validation happens at the top of Sync,
// after the refinement loop has had its chance to write one.
func (e *Engine) Preflight(ctx context.Context) (*PreflightResult, error) {
	root, err := e.jj.Root(ctx)
	if err != nil {
		return nil, jiberrors.NewPreconditionErrorWithCause("repository",
			"not inside a jj repository", err)
	}

	version, err := e.jj.Version(ctx)
	if err != nil {
		return nil, err
	}
	if err := jj.CheckMinimum(version, e.cfg.JJ.MinVersion); err != nil {
		if jiberrors.IsConfigError(err) {
			return nil, err
		}
		return nil, jiberrors.NewPreconditionError("jj_version", err.Error())
	}

	change, err := e.jj.CurrentChange(ctx)
	if err != nil {
		return nil, err
	}
	if change.Empty {
		return nil, jiberrors.NewPreconditionError("change",
			"working change is empty; nothing to sync")
	}

	if !e.gh.IsAuthenticated() {
		return nil, jiberrors.NewPreconditionError("auth",
			"not authenticated with GitHub; run 'gh auth login' or set JIB_GITHUB_TOKEN")
	}

	e.logDebug("preflight passed", "root", root, "change", change.ShortID(), "jj", version.String())
	return &PreflightResult{Root: root, Change: change}, nil
}

func (e *Engine) printf(format string, args ...any) {
	fmt.Fprintf(e.out, format, args...)
}

// logDebug logs a debug message if a logger is configured.
func (e *Engine) logDebug(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}
