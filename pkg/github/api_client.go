package github

import (
	"context"
	"log/slog"
	"os/exec"
	"strings"

	gh "github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"

	jiberrors "thoreinstein.com/jib/pkg/errors"
)

// APIClient implements Client using the GitHub REST API.
type APIClient struct {
	client  *gh.Client
	remote  string
	verbose bool
	logger  *slog.Logger

	// owner/repo resolved from the git remote on first use.
	owner string
	repo  string
}

// Compile-time check that APIClient implements Client.
var _ Client = (*APIClient)(nil)

// APIClientOption is a functional option for configuring APIClient.
type APIClientOption func(*APIClient)

// WithAPILogger sets a custom logger for the API client.
func WithAPILogger(logger *slog.Logger) APIClientOption {
	return func(c *APIClient) {
		c.logger = logger
	}
}

// WithAPIRemote sets the git remote used to resolve the repository.
func WithAPIRemote(remote string) APIClientOption {
	return func(c *APIClient) {
		if remote != "" {
			c.remote = remote
		}
	}
}

// NewAPIClient creates a GitHub API client with the given token.
func NewAPIClient(token string, verbose bool, opts ...APIClientOption) (*APIClient, error) {
	if token == "" {
		return nil, jiberrors.NewForgeError("NewAPIClient", "token is required")
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(context.Background(), ts)

	client := &APIClient{
		client:  gh.NewClient(tc),
		remote:  "origin",
		verbose: verbose,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// IsAuthenticated checks if the client is authenticated with GitHub.
func (c *APIClient) IsAuthenticated() bool {
	ctx := context.Background()
	_, _, err := c.client.Users.Get(ctx, "")
	return err == nil
}

// CurrentUser returns the authenticated user's login.
func (c *APIClient) CurrentUser(ctx context.Context) (string, error) {
	user, resp, err := c.client.Users.Get(ctx, "")
	if err != nil {
		return "", toForgeError("CurrentUser", resp, err)
	}
	return user.GetLogin(), nil
}

// RepoInfo returns owner, name and default branch for the repository
// behind the configured remote.
func (c *APIClient) RepoInfo(ctx context.Context) (*RepoInfo, error) {
	owner, repo, err := c.resolveRepo()
	if err != nil {
		return nil, err
	}

	c.logDebug("getting repo info", "owner", owner, "repo", repo)

	repository, resp, err := c.client.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return nil, toForgeError("RepoInfo", resp, err)
	}

	return &RepoInfo{
		Owner:         owner,
		Name:          repo,
		DefaultBranch: repository.GetDefaultBranch(),
	}, nil
}

// FindOpenPR returns the open pull request whose head branch is head,
// or nil when none exists.
func (c *APIClient) FindOpenPR(ctx context.Context, head string) (*PRInfo, error) {
	if head == "" {
		return nil, jiberrors.NewForgeError("FindOpenPR", "head branch is required")
	}

	owner, repo, err := c.resolveRepo()
	if err != nil {
		return nil, err
	}

	c.logDebug("searching for open PR", "head", head)

	prs, resp, err := c.client.PullRequests.List(ctx, owner, repo, &gh.PullRequestListOptions{
		State: "open",
		Head:  owner + ":" + head,
	})
	if err != nil {
		return nil, toForgeError("FindOpenPR", resp, err)
	}

	if len(prs) == 0 {
		return nil, nil
	}

	// GitHub lists newest first; the newest PR wins if several share
	// a head.
	return prInfoFromGitHub(prs[0]), nil
}

// CreatePR creates a new pull request.
func (c *APIClient) CreatePR(ctx context.Context, opts CreatePROptions) (*PRInfo, error) {
	if opts.Title == "" {
		return nil, jiberrors.NewForgeError("CreatePR", "title is required")
	}
	if opts.HeadBranch == "" {
		return nil, jiberrors.NewForgeError("CreatePR", "head branch is required")
	}

	owner, repo, err := c.resolveRepo()
	if err != nil {
		return nil, err
	}

	// Determine base branch if not specified
	base := opts.BaseBranch
	if base == "" {
		info, infoErr := c.RepoInfo(ctx)
		if infoErr != nil {
			return nil, infoErr
		}
		base = info.DefaultBranch
	}

	c.logDebug("creating PR", "owner", owner, "repo", repo, "head", opts.HeadBranch, "base", base)

	newPR := &gh.NewPullRequest{
		Title: gh.Ptr(opts.Title),
		Head:  gh.Ptr(opts.HeadBranch),
		Base:  gh.Ptr(base),
		Body:  gh.Ptr(opts.Body),
		Draft: gh.Ptr(opts.Draft),
	}

	pr, resp, err := c.client.PullRequests.Create(ctx, owner, repo, newPR)
	if err != nil {
		return nil, toForgeError("CreatePR", resp, err)
	}

	return prInfoFromGitHub(pr), nil
}

// UpdatePR edits an existing pull request. Only non-nil fields are sent.
func (c *APIClient) UpdatePR(ctx context.Context, number int, opts UpdatePROptions) (*PRInfo, error) {
	owner, repo, err := c.resolveRepo()
	if err != nil {
		return nil, err
	}

	patch := &gh.PullRequest{}
	if opts.Title != nil {
		patch.Title = opts.Title
	}
	if opts.Body != nil {
		patch.Body = opts.Body
	}
	if opts.Base != nil {
		patch.Base = &gh.PullRequestBranch{Ref: opts.Base}
	}

	c.logDebug("updating PR", "number", number)

	pr, resp, err := c.client.PullRequests.Edit(ctx, owner, repo, number, patch)
	if err != nil {
		return nil, toForgeError("UpdatePR", resp, err)
	}

	return prInfoFromGitHub(pr), nil
}

// RequestedReviewers returns the logins whose review is currently
// requested. Team review requests are ignored.
func (c *APIClient) RequestedReviewers(ctx context.Context, number int) ([]string, error) {
	owner, repo, err := c.resolveRepo()
	if err != nil {
		return nil, err
	}

	c.logDebug("listing requested reviewers", "number", number)

	reviewers, resp, err := c.client.PullRequests.ListReviewers(ctx, owner, repo, number, nil)
	if err != nil {
		return nil, toForgeError("RequestedReviewers", resp, err)
	}

	logins := make([]string, 0, len(reviewers.Users))
	for _, user := range reviewers.Users {
		if login := user.GetLogin(); login != "" {
			logins = append(logins, login)
		}
	}

	return logins, nil
}

// RequestReviewers asks the given users for review. A no-op when logins
// is empty.
func (c *APIClient) RequestReviewers(ctx context.Context, number int, logins []string) error {
	if len(logins) == 0 {
		return nil
	}

	owner, repo, err := c.resolveRepo()
	if err != nil {
		return err
	}

	c.logDebug("requesting reviewers", "number", number, "reviewers", strings.Join(logins, ","))

	_, resp, err := c.client.PullRequests.RequestReviewers(ctx, owner, repo, number, gh.ReviewersRequest{
		Reviewers: logins,
	})
	if err != nil {
		return toForgeError("RequestReviewers", resp, err)
	}

	return nil
}

// RemoveReviewers withdraws pending review requests for the given
// users. A no-op when logins is empty.
func (c *APIClient) RemoveReviewers(ctx context.Context, number int, logins []string) error {
	if len(logins) == 0 {
		return nil
	}

	owner, repo, err := c.resolveRepo()
	if err != nil {
		return err
	}

	c.logDebug("removing reviewers", "number", number, "reviewers", strings.Join(logins, ","))

	resp, err := c.client.PullRequests.RemoveReviewers(ctx, owner, repo, number, gh.ReviewersRequest{
		Reviewers: logins,
	})
	if err != nil {
		return toForgeError("RemoveReviewers", resp, err)
	}

	return nil
}

// resolveRepo parses owner/repo from the configured git remote and
// caches the result for the life of the client.
func (c *APIClient) resolveRepo() (string, string, error) {
	if c.owner != "" && c.repo != "" {
		return c.owner, c.repo, nil
	}

	owner, repo, err := parseGitRemote(c.remote)
	if err != nil {
		return "", "", jiberrors.NewForgeErrorWithCause("resolveRepo", "failed to parse git remote", err)
	}

	c.owner, c.repo = owner, repo
	return owner, repo, nil
}

func (c *APIClient) logDebug(msg string, args ...any) {
	if c.verbose {
		c.logger.Debug(msg, args...)
	}
}

// Helper functions

func prInfoFromGitHub(pr *gh.PullRequest) *PRInfo {
	info := &PRInfo{
		Number:    pr.GetNumber(),
		Title:     pr.GetTitle(),
		Body:      pr.GetBody(),
		State:     pr.GetState(),
		Draft:     pr.GetDraft(),
		URL:       pr.GetHTMLURL(),
		Author:    pr.GetUser().GetLogin(),
		CreatedAt: pr.GetCreatedAt().Time,
		UpdatedAt: pr.GetUpdatedAt().Time,
	}

	if pr.Head != nil {
		info.HeadBranch = pr.GetHead().GetRef()
	}
	if pr.Base != nil {
		info.BaseBranch = pr.GetBase().GetRef()
	}

	for _, user := range pr.RequestedReviewers {
		if login := user.GetLogin(); login != "" {
			info.Reviewers = append(info.Reviewers, login)
		}
	}

	return info
}

func toForgeError(operation string, resp *gh.Response, err error) error {
	if resp != nil && resp.StatusCode > 0 {
		return jiberrors.NewForgeErrorWithStatus(operation, resp.StatusCode, err.Error())
	}
	return jiberrors.NewForgeErrorWithCause(operation, "API request failed", err)
}

// parseGitRemote reads the URL of the named git remote. jj colocated
// repositories keep a regular .git, so git answers for them too.
func parseGitRemote(remote string) (owner, repo string, err error) {
	if remote == "" {
		remote = "origin"
	}

	cmd := exec.Command("git", "remote", "get-url", remote)
	output, err := cmd.Output()
	if err != nil {
		return "", "", err
	}

	url := strings.TrimSpace(string(output))
	return parseGitHubURL(url)
}

func parseGitHubURL(url string) (owner, repo string, err error) {
	// Handle SSH format: git@github.com:owner/repo.git
	if strings.HasPrefix(url, "git@") {
		parts := strings.Split(url, ":")
		if len(parts) != 2 {
			return "", "", jiberrors.NewForgeError("parseGitHubURL", "invalid SSH URL format")
		}
		path := strings.TrimSuffix(parts[1], ".git")
		segments := strings.Split(path, "/")
		if len(segments) != 2 {
			return "", "", jiberrors.NewForgeError("parseGitHubURL", "invalid repository path")
		}
		return segments[0], segments[1], nil
	}

	// Handle HTTPS format: https://github.com/owner/repo.git
	url = strings.TrimPrefix(url, "https://")
	url = strings.TrimPrefix(url, "http://")
	url = strings.TrimSuffix(url, ".git")

	parts := strings.Split(url, "/")
	if len(parts) < 3 {
		return "", "", jiberrors.NewForgeError("parseGitHubURL", "invalid HTTPS URL format")
	}

	return parts[1], parts[2], nil
}
