package engine

import (
	"context"
	"fmt"
	"strings"

	"thoreinstein.com/jib/pkg/config"
	"thoreinstein.com/jib/pkg/describe"
	jiberrors "thoreinstein.com/jib/pkg/errors"
	"thoreinstein.com/jib/pkg/github"
	"thoreinstein.com/jib/pkg/jj"
	"thoreinstein.com/jib/pkg/reviewers"
	"thoreinstein.com/jib/pkg/synclog"
)

// Request parameterizes one sync run.
type Request struct {
	// Change is the working change, from Preflight.
	Change *jj.Change

	// Root is the repository root, used for per-project reviewer lookup
	// and the synclog.
	Root string

	// DryRun resolves and reports without pushing, prompting, or
	// mutating anything.
	DryRun bool
}

// Action says what a sync run did.
type Action string

const (
	// ActionCreated means a new pull request was opened.
	ActionCreated Action = "created"
	// ActionUpdated means an existing pull request was edited.
	ActionUpdated Action = "updated"
	// ActionDeclined means the user declined the confirmation; the PR
	// was left untouched.
	ActionDeclined Action = "declined"
	// ActionPlanned means a dry run; the result reports what a real run
	// would do.
	ActionPlanned Action = "planned"
)

// Result reports what Sync did.
type Result struct {
	Action           Action
	PR               *github.PRInfo
	Bookmark         string
	BookmarkCreated  bool
	Base             string
	Title            string
	ReviewersAdded   []string
	ReviewersRemoved []string
}

// Sync pushes the change's bookmark and creates or updates its pull
// request. The change's description must already be in its final form;
// Sync validates it before touching the remote.
func (e *Engine) Sync(ctx context.Context, req Request) (*Result, error) {
	description, err := e.jj.Description(ctx, req.Change.ID)
	if err != nil {
		return nil, err
	}
	if err := describe.ValidateDescription(description); err != nil {
		return nil, err
	}
	title, body := describe.ParseDescription(description)

	if req.DryRun {
		return e.plan(ctx, req, title)
	}

	base, err := e.ResolveBase(ctx, req.Change)
	if err != nil {
		return nil, err
	}

	bookmark, created, err := e.ResolveBookmark(ctx, req.Change)
	if err != nil {
		return nil, err
	}

	e.printf("Pushing %s...\n", bookmark)
	if err := e.jj.Push(ctx, bookmark, created); err != nil {
		return nil, err
	}

	pr, err := e.gh.FindOpenPR(ctx, bookmark)
	if err != nil {
		return nil, err
	}

	var result *Result
	if pr == nil {
		result, err = e.createPR(ctx, req, bookmark, created, base, title, body)
	} else {
		result, err = e.updatePR(ctx, req, pr, bookmark, base, title, body)
	}
	if err != nil {
		return nil, err
	}

	e.record(ctx, req, result)
	return result, nil
}

// ResolveBookmark returns the bookmark to push, creating one from the
// configured template when the change has none. This runs before the
// push so a jj-side auto-created bookmark can never blur the
// create-vs-update decision.
func (e *Engine) ResolveBookmark(ctx context.Context, change *jj.Change) (string, bool, error) {
	name, exists, err := e.currentBookmark(ctx, change)
	if err != nil {
		return "", false, err
	}
	if exists {
		e.logDebug("reusing bookmark", "name", name)
		return name, false, nil
	}

	if err := e.jj.CreateBookmark(ctx, name, change.ID); err != nil {
		return "", false, err
	}
	e.logDebug("created bookmark", "name", name, "change", change.ShortID())
	return name, true, nil
}

// ResolveBase returns the PR base branch: the bookmark on the nearest
// ancestor of the change that carries one.
func (e *Engine) ResolveBase(ctx context.Context, change *jj.Change) (string, error) {
	base, err := e.jj.NearestBookmarkedAncestor(ctx, change.ID)
	if err != nil {
		return "", err
	}
	if base == "" {
		return "", jiberrors.NewPreconditionError("base",
			"no ancestor of the change carries a bookmark; set one on your trunk (e.g. 'jj bookmark set main -r <rev>') so jib can pick a base branch")
	}
	return base, nil
}

// plan is the dry-run path: read-only resolution of what a real run
// would do.
func (e *Engine) plan(ctx context.Context, req Request, title string) (*Result, error) {
	base, err := e.ResolveBase(ctx, req.Change)
	if err != nil {
		return nil, err
	}

	bookmark, exists, err := e.currentBookmark(ctx, req.Change)
	if err != nil {
		return nil, err
	}

	pr, err := e.gh.FindOpenPR(ctx, bookmark)
	if err != nil {
		return nil, err
	}

	return &Result{
		Action:          ActionPlanned,
		PR:              pr,
		Bookmark:        bookmark,
		BookmarkCreated: !exists,
		Base:            base,
		Title:           title,
	}, nil
}

// currentBookmark returns the change's bookmark, or the name a fresh
// one would get, without creating anything.
func (e *Engine) currentBookmark(ctx context.Context, change *jj.Change) (string, bool, error) {
	bookmarks, err := e.jj.Bookmarks(ctx, change.ID)
	if err != nil {
		return "", false, err
	}
	if len(bookmarks) > 0 {
		return bookmarks[0], true, nil
	}

	name, err := e.renderBookmarkName(ctx, change)
	if err != nil {
		return "", false, err
	}
	return name, false, nil
}

// renderBookmarkName expands the configured naming template.
func (e *Engine) renderBookmarkName(ctx context.Context, change *jj.Change) (string, error) {
	name := strings.ReplaceAll(e.cfg.Bookmark.Template, "{change_id}", change.ShortID())
	if strings.Contains(name, "{user}") {
		user, err := e.gh.CurrentUser(ctx)
		if err != nil {
			return "", jiberrors.Wrap(err, "bookmark template uses {user} but the GitHub login could not be resolved")
		}
		name = strings.ReplaceAll(name, "{user}", user)
	}
	return name, nil
}

// createPR runs the no-existing-PR path: pick reviewers, confirm
// (default no), create, request reviews.
func (e *Engine) createPR(ctx context.Context, req Request, bookmark string, bookmarkCreated bool, base, title, body string) (*Result, error) {
	result := &Result{
		Action:          ActionCreated,
		Bookmark:        bookmark,
		BookmarkCreated: bookmarkCreated,
		Base:            base,
		Title:           title,
	}

	candidates, err := e.resolver.ResolveCandidates(ctx, req.Root, nil)
	if err != nil {
		return nil, err
	}
	var desired []string
	if len(candidates) > 0 {
		desired, err = e.resolver.SelectDesired(candidates, nil)
		if err != nil {
			return nil, err
		}
	}

	ok, err := e.surface.Confirm(fmt.Sprintf("Create pull request for %s into %s?", bookmark, base), false)
	if err != nil {
		return nil, err
	}
	if !ok {
		result.Action = ActionDeclined
		return result, nil
	}

	pr, err := e.gh.CreatePR(ctx, github.CreatePROptions{
		Title:      title,
		Body:       body,
		HeadBranch: bookmark,
		BaseBranch: base,
	})
	if err != nil {
		return nil, err
	}
	result.PR = pr
	e.printf("Created pull request #%d: %s\n", pr.Number, pr.URL)

	if len(desired) > 0 {
		if err := e.gh.RequestReviewers(ctx, pr.Number, desired); err != nil {
			return nil, err
		}
		result.ReviewersAdded = desired
	}

	return result, nil
}

// updatePR runs the existing-PR path: confirm (default yes), edit
// title/body/base, then reconcile reviewers remove-first.
func (e *Engine) updatePR(ctx context.Context, req Request, pr *github.PRInfo, bookmark, base, title, body string) (*Result, error) {
	result := &Result{
		Action:   ActionUpdated,
		PR:       pr,
		Bookmark: bookmark,
		Base:     base,
		Title:    title,
	}

	ok, err := e.surface.Confirm(fmt.Sprintf("Update pull request #%d?", pr.Number), true)
	if err != nil {
		return nil, err
	}
	if !ok {
		result.Action = ActionDeclined
		return result, nil
	}

	updated, err := e.gh.UpdatePR(ctx, pr.Number, github.UpdatePROptions{
		Title: &title,
		Body:  &body,
		Base:  &base,
	})
	if err != nil {
		return nil, err
	}
	result.PR = updated
	e.printf("Updated pull request #%d: %s\n", updated.Number, updated.URL)

	candidates, err := e.resolver.ResolveCandidates(ctx, req.Root, pr)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		// No candidates means selection is skipped entirely, never
		// "remove everyone".
		return result, nil
	}

	desired, err := e.resolver.SelectDesired(candidates, pr.Reviewers)
	if err != nil {
		return nil, err
	}

	delta := reviewers.Reconcile(desired, pr.Reviewers)
	if len(delta.ToRemove) > 0 {
		if err := e.gh.RemoveReviewers(ctx, pr.Number, delta.ToRemove); err != nil {
			return nil, err
		}
		result.ReviewersRemoved = delta.ToRemove
	}
	if len(delta.ToAdd) > 0 {
		if err := e.gh.RequestReviewers(ctx, pr.Number, delta.ToAdd); err != nil {
			return nil, err
		}
		result.ReviewersAdded = delta.ToAdd
	}

	return result, nil
}

// record appends the run to the synclog. History failures never fail a
// sync that already happened.
func (e *Engine) record(ctx context.Context, req Request, result *Result) {
	if e.store == nil {
		return
	}
	if result.Action != ActionCreated && result.Action != ActionUpdated {
		return
	}

	entry := synclog.Entry{
		Project:  config.NormalizeProjectPath(req.Root),
		ChangeID: req.Change.ID,
		Bookmark: result.Bookmark,
		Base:     result.Base,
		Action:   string(result.Action),
		Title:    result.Title,
	}
	if result.PR != nil {
		entry.PRNumber = result.PR.Number
		entry.PRURL = result.PR.URL
	}

	if err := e.store.Record(ctx, entry); err != nil {
		fmt.Fprintf(e.stderr, "Warning: failed to record sync history: %v\n", err)
	}
}
