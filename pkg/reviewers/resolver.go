// Package reviewers computes who should review a pull request and the
// minimal review-request mutations that get the PR there.
//
// Candidates come from the project's configured reviewers unioned with
// the PR's live review requests, so nobody already asked for review
// drops out of the picker. The user narrows candidates to a desired set
// interactively, and Reconcile diffs desired against current into the
// add/remove calls to apply.
package reviewers

import (
	"context"
	"fmt"
	"io"
	"os"

	"thoreinstein.com/jib/pkg/config"
	"thoreinstein.com/jib/pkg/github"
	"thoreinstein.com/jib/pkg/set"
	"thoreinstein.com/jib/pkg/ui"
)

// MaxReviewerPicks bounds how many new reviewers one selection can add.
const MaxReviewerPicks = 3

// Delta is the pair of review-request mutations that moves a pull
// request from its current reviewer set to the desired one. Applying
// ToRemove then ToAdd converges: reconciling again once current equals
// desired yields an empty delta.
type Delta struct {
	ToAdd    []string
	ToRemove []string
}

// Empty reports whether applying the delta would change nothing.
func (d Delta) Empty() bool {
	return len(d.ToAdd) == 0 && len(d.ToRemove) == 0
}

// Resolver computes candidate and desired reviewer sets for a project.
type Resolver struct {
	cfg     *config.Config
	gh      github.Client
	surface ui.Surface
	stderr  io.Writer
}

// NewResolver creates a resolver over the injected config, GitHub client
// and interaction surface.
func NewResolver(cfg *config.Config, gh github.Client, surface ui.Surface) *Resolver {
	return &Resolver{
		cfg:     cfg,
		gh:      gh,
		surface: surface,
		stderr:  os.Stderr,
	}
}

// WithStderr sets a custom warning writer for testing.
func (r *Resolver) WithStderr(w io.Writer) *Resolver {
	r.stderr = w
	return r
}

// ResolveCandidates returns the reviewers eligible for selection: the
// project's configured reviewers unioned with the PR's current review
// requests when pr is non-nil. Configured reviewers come first, then
// live requests, first seen wins, so the picker is stable across runs.
//
// An empty result is not an error; reviewer selection is optional. A
// failure fetching live review requests degrades to the configured set
// with a warning, for the same reason.
func (r *Resolver) ResolveCandidates(ctx context.Context, projectPath string, pr *github.PRInfo) ([]string, error) {
	configured := r.cfg.ReviewersFor(projectPath)

	var live []string
	if pr != nil {
		var err error
		live, err = r.gh.RequestedReviewers(ctx, pr.Number)
		if err != nil {
			fmt.Fprintf(r.stderr, "Warning: failed to fetch review requests for PR #%d: %v\n", pr.Number, err)
		}
	}

	candidates := set.Union(configured, live)
	if len(candidates) == 0 {
		fmt.Fprintln(r.stderr, "Warning: no reviewers configured for this project; skipping reviewer selection")
	}
	return candidates, nil
}

// SelectDesired presents an ordered multi-select over candidates,
// pre-checking preselected, bounded to MaxReviewerPicks new picks.
// Cancellation propagates as ui.ErrCancelled, never as "selected none".
// Empty candidates skip the picker and select nobody.
func (r *Resolver) SelectDesired(candidates, preselected []string) ([]string, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	return r.surface.MultiSelect("Select reviewers", candidates, preselected, MaxReviewerPicks)
}

// Reconcile diffs the desired reviewer set against the PR's current one.
func Reconcile(desired, current []string) Delta {
	return Delta{
		ToAdd:    set.Difference(desired, current),
		ToRemove: set.Difference(current, desired),
	}
}
