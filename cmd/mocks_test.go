package cmd

import (
	"context"

	"github.com/Masterminds/semver/v3"

	"thoreinstein.com/jib/pkg/config"
	"thoreinstein.com/jib/pkg/github"
	"thoreinstein.com/jib/pkg/jj"
	"thoreinstein.com/jib/pkg/ticket"
)

// testConfig returns a config that passes validation with every
// integration pointed away from the network.
func testConfig() *config.Config {
	return &config.Config{
		GitHub:   config.GitHubConfig{AuthMethod: "token", Remote: "origin"},
		AI:       config.AIConfig{Enabled: true, Provider: "anthropic", Role: "describe"},
		Bookmark: config.BookmarkConfig{Template: "push-{change_id}"},
		JJ:       config.JJConfig{Binary: "jj", MinVersion: "0.14.0"},
	}
}

// mockJJClient is a jj.Client whose default answers describe a healthy
// repository with one non-empty, already-bookmarked change.
type mockJJClient struct {
	rootFunc     func(ctx context.Context) (string, error)
	changeFunc   func(ctx context.Context) (*jj.Change, error)
	diffFunc     func(ctx context.Context, changeID string) (string, error)
	bookmarksFn  func(ctx context.Context, changeID string) ([]string, error)
	ancestorFunc func(ctx context.Context, changeID string) (string, error)
	pushFunc     func(ctx context.Context, bookmark string, allowNew bool) error

	// description backs Description and SetDescription so a draft
	// written by the loop is what the engine reads back.
	description string
	setCalls    []string
}

func (m *mockJJClient) Root(ctx context.Context) (string, error) {
	if m.rootFunc != nil {
		return m.rootFunc(ctx)
	}
	return "/home/tester/src/widget", nil
}

func (m *mockJJClient) Version(ctx context.Context) (*semver.Version, error) {
	return semver.MustParse("0.34.0"), nil
}

func (m *mockJJClient) CurrentChange(ctx context.Context) (*jj.Change, error) {
	if m.changeFunc != nil {
		return m.changeFunc(ctx)
	}
	return &jj.Change{ID: "vvkvtnvzolpzsmxrwqkmnlqxvxrkpnwo", Description: m.description}, nil
}

func (m *mockJJClient) Diff(ctx context.Context, changeID string) (string, error) {
	if m.diffFunc != nil {
		return m.diffFunc(ctx, changeID)
	}
	return "diff --git a/main.go b/main.go\n+func main() {}\n", nil
}

func (m *mockJJClient) Description(ctx context.Context, changeID string) (string, error) {
	return m.description, nil
}

func (m *mockJJClient) SetDescription(ctx context.Context, changeID, description string) error {
	m.description = description
	m.setCalls = append(m.setCalls, description)
	return nil
}

func (m *mockJJClient) Bookmarks(ctx context.Context, changeID string) ([]string, error) {
	if m.bookmarksFn != nil {
		return m.bookmarksFn(ctx, changeID)
	}
	return []string{"push-vvkvtnvzolpz"}, nil
}

func (m *mockJJClient) CreateBookmark(ctx context.Context, name, changeID string) error {
	return nil
}

func (m *mockJJClient) NearestBookmarkedAncestor(ctx context.Context, changeID string) (string, error) {
	if m.ancestorFunc != nil {
		return m.ancestorFunc(ctx, changeID)
	}
	return "main", nil
}

func (m *mockJJClient) Push(ctx context.Context, bookmark string, allowNew bool) error {
	if m.pushFunc != nil {
		return m.pushFunc(ctx, bookmark, allowNew)
	}
	return nil
}

// mockGHClient fakes the forge. With no open PR configured, syncs take
// the create path.
type mockGHClient struct {
	github.Client
	isAuthenticated bool
	findOpenPRFunc  func(ctx context.Context, head string) (*github.PRInfo, error)
	createPRFunc    func(ctx context.Context, opts github.CreatePROptions) (*github.PRInfo, error)
	updatePRFunc    func(ctx context.Context, number int, opts github.UpdatePROptions) (*github.PRInfo, error)

	requested []string
	removed   []string
}

func (m *mockGHClient) IsAuthenticated() bool {
	return m.isAuthenticated
}

func (m *mockGHClient) CurrentUser(ctx context.Context) (string, error) {
	return "tester", nil
}

func (m *mockGHClient) FindOpenPR(ctx context.Context, head string) (*github.PRInfo, error) {
	if m.findOpenPRFunc != nil {
		return m.findOpenPRFunc(ctx, head)
	}
	return nil, nil
}

func (m *mockGHClient) CreatePR(ctx context.Context, opts github.CreatePROptions) (*github.PRInfo, error) {
	if m.createPRFunc != nil {
		return m.createPRFunc(ctx, opts)
	}
	return &github.PRInfo{
		Number:     42,
		Title:      opts.Title,
		HeadBranch: opts.HeadBranch,
		BaseBranch: opts.BaseBranch,
		URL:        "https://github.com/test/widget/pull/42",
	}, nil
}

func (m *mockGHClient) UpdatePR(ctx context.Context, number int, opts github.UpdatePROptions) (*github.PRInfo, error) {
	if m.updatePRFunc != nil {
		return m.updatePRFunc(ctx, number, opts)
	}
	info := &github.PRInfo{Number: number, URL: "https://github.com/test/widget/pull/42"}
	if opts.Title != nil {
		info.Title = *opts.Title
	}
	return info, nil
}

func (m *mockGHClient) RequestedReviewers(ctx context.Context, number int) ([]string, error) {
	return nil, nil
}

func (m *mockGHClient) RequestReviewers(ctx context.Context, number int, logins []string) error {
	m.requested = append(m.requested, logins...)
	return nil
}

func (m *mockGHClient) RemoveReviewers(ctx context.Context, number int, logins []string) error {
	m.removed = append(m.removed, logins...)
	return nil
}

// mockSurface scripts the interactive prompts. Confirms default to yes
// and selections default to the preselected set.
type mockSurface struct {
	confirmFunc func(prompt string, def bool) (bool, error)
	promptFunc  func(placeholder string) (string, error)
	selectFunc  func(header string, options, preselected []string, maxPicks int) ([]string, error)

	confirms []string
}

func (m *mockSurface) Confirm(prompt string, def bool) (bool, error) {
	m.confirms = append(m.confirms, prompt)
	if m.confirmFunc != nil {
		return m.confirmFunc(prompt, def)
	}
	return true, nil
}

func (m *mockSurface) PromptText(placeholder string) (string, error) {
	if m.promptFunc != nil {
		return m.promptFunc(placeholder)
	}
	return "", nil
}

func (m *mockSurface) MultiSelect(header string, options, preselected []string, maxPicks int) ([]string, error) {
	if m.selectFunc != nil {
		return m.selectFunc(header, options, preselected, maxPicks)
	}
	return preselected, nil
}

// mockConversationalist returns a canned draft and records the prompts
// it saw.
type mockConversationalist struct {
	startFunc    func(ctx context.Context, role, system, prompt string) (string, error)
	continueFunc func(ctx context.Context, role, feedback string) (string, error)

	startPrompts []string
}

const cannedDraft = "feat: add widget flange\n\nWire the flange into the widget assembly\nso spinning works under load."

func (m *mockConversationalist) StartSession(ctx context.Context, role, system, prompt string) (string, error) {
	m.startPrompts = append(m.startPrompts, prompt)
	if m.startFunc != nil {
		return m.startFunc(ctx, role, system, prompt)
	}
	return cannedDraft, nil
}

func (m *mockConversationalist) ContinueSession(ctx context.Context, role, feedback string) (string, error) {
	if m.continueFunc != nil {
		return m.continueFunc(ctx, role, feedback)
	}
	return cannedDraft, nil
}

// mockTicketClient fakes Jira and records transitions.
type mockTicketClient struct {
	available      bool
	fetchFunc      func(ctx context.Context, key string) (*ticket.Info, error)
	transitionFunc func(ctx context.Context, key, statusName string) error

	transitions []string
}

func (m *mockTicketClient) IsAvailable() bool {
	return m.available
}

func (m *mockTicketClient) FetchDetails(ctx context.Context, key string) (*ticket.Info, error) {
	if m.fetchFunc != nil {
		return m.fetchFunc(ctx, key)
	}
	return &ticket.Info{Key: key, Summary: "Widget flange", Type: "Story"}, nil
}

func (m *mockTicketClient) TransitionByName(ctx context.Context, key, statusName string) error {
	m.transitions = append(m.transitions, key+"->"+statusName)
	if m.transitionFunc != nil {
		return m.transitionFunc(ctx, key, statusName)
	}
	return nil
}
