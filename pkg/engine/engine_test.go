package engine

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/Masterminds/semver/v3"

	"thoreinstein.com/jib/pkg/config"
	jiberrors "thoreinstein.com/jib/pkg/errors"
	"thoreinstein.com/jib/pkg/github"
	"thoreinstein.com/jib/pkg/jj"
	"thoreinstein.com/jib/pkg/ui"
)

// callLog records collaborator calls in order so tests can assert
// sequencing across fakes.
type callLog struct {
	calls []string
}

func (l *callLog) add(name string) {
	l.calls = append(l.calls, name)
}

func (l *callLog) has(name string) bool {
	for _, c := range l.calls {
		if c == name {
			return true
		}
	}
	return false
}

func (l *callLog) indexOf(name string) int {
	for i, c := range l.calls {
		if c == name {
			return i
		}
	}
	return -1
}

type pushCall struct {
	bookmark string
	allowNew bool
}

type fakeJJ struct {
	jj.Client

	log *callLog

	root        string
	version     string
	change      *jj.Change
	description string
	bookmarks   []string
	ancestor    string

	rootErr error

	createdBookmarks []string
	pushes           []pushCall
	pushErr          error
}

func (f *fakeJJ) Root(ctx context.Context) (string, error) {
	if f.rootErr != nil {
		return "", f.rootErr
	}
	return f.root, nil
}

func (f *fakeJJ) Version(ctx context.Context) (*semver.Version, error) {
	return semver.MustParse(f.version), nil
}

func (f *fakeJJ) CurrentChange(ctx context.Context) (*jj.Change, error) {
	return f.change, nil
}

func (f *fakeJJ) Description(ctx context.Context, changeID string) (string, error) {
	return f.description, nil
}

func (f *fakeJJ) Bookmarks(ctx context.Context, changeID string) ([]string, error) {
	return f.bookmarks, nil
}

func (f *fakeJJ) CreateBookmark(ctx context.Context, name, changeID string) error {
	f.log.add("jj.CreateBookmark")
	f.createdBookmarks = append(f.createdBookmarks, name)
	return nil
}

func (f *fakeJJ) NearestBookmarkedAncestor(ctx context.Context, changeID string) (string, error) {
	return f.ancestor, nil
}

func (f *fakeJJ) Push(ctx context.Context, bookmark string, allowNew bool) error {
	f.log.add("jj.Push")
	f.pushes = append(f.pushes, pushCall{bookmark: bookmark, allowNew: allowNew})
	return f.pushErr
}

type fakeGH struct {
	github.Client

	log *callLog

	authenticated      bool
	user               string
	openPR             *github.PRInfo
	requestedReviewers []string

	createdOpts   []github.CreatePROptions
	updatedOpts   []github.UpdatePROptions
	updatedNumber int
	requested     [][]string
	removed       [][]string
}

func (f *fakeGH) IsAuthenticated() bool {
	return f.authenticated
}

func (f *fakeGH) CurrentUser(ctx context.Context) (string, error) {
	return f.user, nil
}

func (f *fakeGH) FindOpenPR(ctx context.Context, head string) (*github.PRInfo, error) {
	f.log.add("gh.FindOpenPR")
	return f.openPR, nil
}

func (f *fakeGH) CreatePR(ctx context.Context, opts github.CreatePROptions) (*github.PRInfo, error) {
	f.log.add("gh.CreatePR")
	f.createdOpts = append(f.createdOpts, opts)
	return &github.PRInfo{
		Number:     101,
		Title:      opts.Title,
		Body:       opts.Body,
		State:      "open",
		URL:        "https://github.com/acme/widget/pull/101",
		HeadBranch: opts.HeadBranch,
		BaseBranch: opts.BaseBranch,
	}, nil
}

func (f *fakeGH) UpdatePR(ctx context.Context, number int, opts github.UpdatePROptions) (*github.PRInfo, error) {
	f.log.add("gh.UpdatePR")
	f.updatedNumber = number
	f.updatedOpts = append(f.updatedOpts, opts)

	updated := *f.openPR
	if opts.Title != nil {
		updated.Title = *opts.Title
	}
	if opts.Body != nil {
		updated.Body = *opts.Body
	}
	if opts.Base != nil {
		updated.BaseBranch = *opts.Base
	}
	return &updated, nil
}

func (f *fakeGH) RequestedReviewers(ctx context.Context, number int) ([]string, error) {
	f.log.add("gh.RequestedReviewers")
	return f.requestedReviewers, nil
}

func (f *fakeGH) RequestReviewers(ctx context.Context, number int, logins []string) error {
	f.log.add("gh.RequestReviewers")
	f.requested = append(f.requested, logins)
	return nil
}

func (f *fakeGH) RemoveReviewers(ctx context.Context, number int, logins []string) error {
	f.log.add("gh.RemoveReviewers")
	f.removed = append(f.removed, logins)
	return nil
}

type fakeSurface struct {
	ui.Surface

	log *callLog

	confirmAnswers []bool
	confirmErr     error
	confirmPrompts []string
	confirmDefs    []bool

	selection  []string
	selectErr  error
	selections [][]string // preselected lists seen
}

func (f *fakeSurface) Confirm(prompt string, def bool) (bool, error) {
	f.log.add("ui.Confirm")
	f.confirmPrompts = append(f.confirmPrompts, prompt)
	f.confirmDefs = append(f.confirmDefs, def)
	if f.confirmErr != nil {
		return false, f.confirmErr
	}
	if len(f.confirmAnswers) == 0 {
		return def, nil
	}
	answer := f.confirmAnswers[0]
	f.confirmAnswers = f.confirmAnswers[1:]
	return answer, nil
}

func (f *fakeSurface) MultiSelect(header string, options, preselected []string, maxPicks int) ([]string, error) {
	f.log.add("ui.MultiSelect")
	f.selections = append(f.selections, preselected)
	if f.selectErr != nil {
		return nil, f.selectErr
	}
	return f.selection, nil
}

// fixture wires an Engine over fakes sharing one ordered call log.
type fixture struct {
	jj      *fakeJJ
	gh      *fakeGH
	surface *fakeSurface
	log     *callLog
	out     bytes.Buffer
	errOut  bytes.Buffer
	eng     *Engine
}

func newFixture() *fixture {
	log := &callLog{}
	f := &fixture{
		log: log,
		jj: &fakeJJ{
			log:         log,
			root:        "/work/widget",
			version:     "0.23.0",
			change:      &jj.Change{ID: "abc123def456xyz"},
			description: "Fix login bug\n\nThe session cookie lost its domain attribute.",
			ancestor:    "main",
		},
		gh: &fakeGH{
			log:           log,
			authenticated: true,
			user:          "dev",
		},
		surface: &fakeSurface{log: log},
	}

	cfg := &config.Config{
		Bookmark: config.BookmarkConfig{Template: "push-{change_id}"},
		JJ:       config.JJConfig{MinVersion: "0.14.0"},
		Projects: []config.ProjectConfig{
			{Path: "/work/widget", Reviewers: []string{"alice", "bob"}},
		},
	}

	f.eng = NewEngine(f.jj, f.gh, f.surface, cfg, nil, false).WithOutput(&f.out, &f.errOut)
	return f
}

func TestPreflight_Passes(t *testing.T) {
	f := newFixture()

	pf, err := f.eng.Preflight(t.Context())
	if err != nil {
		t.Fatalf("Preflight() error = %v, want nil", err)
	}
	if pf.Root != "/work/widget" {
		t.Errorf("Root = %q, want %q", pf.Root, "/work/widget")
	}
	if pf.Change == nil || pf.Change.ID != "abc123def456xyz" {
		t.Errorf("Change = %+v, want the working change", pf.Change)
	}
}

func TestPreflight_NotARepository(t *testing.T) {
	f := newFixture()
	f.jj.rootErr = jiberrors.NewVCSError("root", "not in a jj repo")

	_, err := f.eng.Preflight(t.Context())
	if !jiberrors.IsPreconditionError(err) {
		t.Fatalf("error = %v, want PreconditionError", err)
	}
	if !strings.Contains(err.Error(), "jj repository") {
		t.Errorf("error = %q, should name the missing repository", err.Error())
	}
}

func TestPreflight_JJTooOld(t *testing.T) {
	f := newFixture()
	f.jj.version = "0.12.0"

	_, err := f.eng.Preflight(t.Context())
	if !jiberrors.IsPreconditionError(err) {
		t.Fatalf("error = %v, want PreconditionError", err)
	}
	if !strings.Contains(err.Error(), "0.14.0") {
		t.Errorf("error = %q, should name the required version", err.Error())
	}
}

func TestPreflight_EmptyChange(t *testing.T) {
	f := newFixture()
	f.jj.change = &jj.Change{ID: "abc123def456xyz", Empty: true}

	_, err := f.eng.Preflight(t.Context())
	if !jiberrors.IsPreconditionError(err) {
		t.Fatalf("error = %v, want PreconditionError", err)
	}
	if !strings.Contains(err.Error(), "empty") {
		t.Errorf("error = %q, should say the change is empty", err.Error())
	}
}

func TestPreflight_Unauthenticated(t *testing.T) {
	f := newFixture()
	f.gh.authenticated = false

	_, err := f.eng.Preflight(t.Context())
	if !jiberrors.IsPreconditionError(err) {
		t.Fatalf("error = %v, want PreconditionError", err)
	}
	if !strings.Contains(err.Error(), "authenticated") {
		t.Errorf("error = %q, should mention authentication", err.Error())
	}
}
