package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"thoreinstein.com/jib/pkg/engine"
	jiberrors "thoreinstein.com/jib/pkg/errors"
	"thoreinstein.com/jib/pkg/github"
	"thoreinstein.com/jib/pkg/jj"
	"thoreinstein.com/jib/pkg/synclog"
	"thoreinstein.com/jib/pkg/ui"
)

type syncOptions struct {
	promptOptions
	SkipDescribe bool
	DryRun       bool
}

var syncOpts syncOptions

// syncDeps extends the drafting collaborators with the ones only a full
// sync touches.
type syncDeps struct {
	describeDeps
	gh    github.Client
	store *synclog.Store
}

// syncCmd pushes the working change and creates or updates its pull
// request.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync the working change to a GitHub pull request",
	Long: `Sync the working jj change to a GitHub pull request.

The change's bookmark is resolved (or created from the configured
template), pushed, and matched against open pull requests. The first
sync opens a PR after you confirm; later syncs update the existing PR's
title, body, and base in place and reconcile its reviewers.

Unless --skip-describe is given, the AI provider drafts a description
from the diff first and you refine it interactively; the accepted text
becomes the PR title and body.

Examples:
  jib sync                         # Describe, push, create or update
  jib sync --ticket PROJ-123       # Reference a ticket in the description
  jib sync --skip-describe         # Keep the change's existing description
  jib sync --dry-run               # Report what would happen, touch nothing`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return jiberrors.NewConfigErrorWithCause("", "failed to load configuration", err)
		}

		ghClient, err := github.NewClient(&cfg.GitHub, verbose)
		if err != nil {
			return err
		}

		deps := syncDeps{
			describeDeps: describeDeps{
				jj:      jj.NewClient(cfg, verbose),
				tickets: newTicketClient(cfg, os.Stderr),
				surface: ui.NewTerminal(),
				cfg:     cfg,
				out:     os.Stdout,
				errOut:  os.Stderr,
			},
			gh: ghClient,
		}

		// The conversationalist is only constructed when the loop will
		// actually run, so sync works with AI disabled via --skip-describe.
		if !syncOpts.SkipDescribe && !syncOpts.DryRun {
			conv, err := newConversationalist(cfg)
			if err != nil {
				return err
			}
			deps.conv = conv
		}

		if !syncOpts.DryRun {
			if store := openSyncLog(cfg, os.Stderr); store != nil {
				deps.store = store
				defer store.Close()
			}
		}

		return runSync(cmd.Context(), syncOpts, deps)
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)

	addPromptFlags(syncCmd, &syncOpts.promptOptions)
	syncCmd.Flags().BoolVar(&syncOpts.SkipDescribe, "skip-describe", false, "keep the change's existing description")
	syncCmd.Flags().BoolVar(&syncOpts.DryRun, "dry-run", false, "resolve and report without pushing or prompting")
}

func runSync(ctx context.Context, opts syncOptions, deps syncDeps) error {
	eng := engine.NewEngine(deps.jj, deps.gh, deps.surface, deps.cfg, deps.store, verbose).
		WithOutput(deps.out, deps.errOut)

	pf, err := eng.Preflight(ctx)
	if err != nil {
		return err
	}

	// Dry runs never prompt, so the loop is skipped there too.
	if !opts.DryRun && !opts.SkipDescribe {
		description, err := draftDescription(ctx, deps.describeDeps, pf.Root, pf.Change, opts.promptOptions)
		if err != nil {
			return err
		}
		if err := deps.jj.SetDescription(ctx, pf.Change.ID, description); err != nil {
			return err
		}
	}

	result, err := eng.Sync(ctx, engine.Request{Change: pf.Change, Root: pf.Root, DryRun: opts.DryRun})
	if err != nil {
		return err
	}

	switch result.Action {
	case engine.ActionPlanned:
		printPlan(deps.out, result)
	case engine.ActionDeclined:
		fmt.Fprintln(deps.out, "Nothing synced.")
	case engine.ActionCreated:
		printReviewerChanges(deps.out, result)
		transitionTicket(ctx, deps.tickets, deps.cfg, opts.Ticket, deps.out, deps.errOut)
	case engine.ActionUpdated:
		printReviewerChanges(deps.out, result)
	}

	return nil
}

// printPlan reports what a real run would have done.
func printPlan(out io.Writer, result *engine.Result) {
	fmt.Fprintln(out, "Dry run; nothing pushed.")

	fmt.Fprintf(out, "  Bookmark: %s", result.Bookmark)
	if result.BookmarkCreated {
		fmt.Fprint(out, " (would be created)")
	}
	fmt.Fprintln(out)

	fmt.Fprintf(out, "  Base:     %s\n", result.Base)
	fmt.Fprintf(out, "  Title:    %s\n", result.Title)

	if result.PR != nil {
		fmt.Fprintf(out, "  Would update pull request #%d: %s\n", result.PR.Number, result.PR.URL)
	} else {
		fmt.Fprintln(out, "  Would create a new pull request")
	}
}

// printReviewerChanges reports the reviewer reconciliation outcome.
func printReviewerChanges(out io.Writer, result *engine.Result) {
	if len(result.ReviewersAdded) > 0 {
		fmt.Fprintf(out, "Requested reviews from %s\n", strings.Join(result.ReviewersAdded, ", "))
	}
	if len(result.ReviewersRemoved) > 0 {
		fmt.Fprintf(out, "Removed review requests for %s\n", strings.Join(result.ReviewersRemoved, ", "))
	}
}
