package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"

	jiberrors "thoreinstein.com/jib/pkg/errors"
)

// CLIClient implements the Client interface using the gh CLI.
// This is the default implementation as most users have gh CLI
// installed and it handles authentication automatically.
type CLIClient struct {
	verbose bool
	token   string // Optional token for GITHUB_TOKEN env override
	logger  *slog.Logger
}

// CLIClientOption is a functional option for configuring CLIClient.
type CLIClientOption func(*CLIClient)

// WithToken sets a token to be used via GITHUB_TOKEN environment variable.
func WithToken(token string) CLIClientOption {
	return func(c *CLIClient) {
		c.token = token
	}
}

// WithLogger sets a custom logger for the client.
func WithLogger(logger *slog.Logger) CLIClientOption {
	return func(c *CLIClient) {
		c.logger = logger
	}
}

// NewCLIClient creates a new gh CLI-based GitHub client.
func NewCLIClient(verbose bool, opts ...CLIClientOption) (*CLIClient, error) {
	c := &CLIClient{
		verbose: verbose,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	// Verify gh CLI is available
	if _, err := exec.LookPath("gh"); err != nil {
		return nil, jiberrors.NewForgeErrorWithCause("NewCLIClient", "gh CLI not found in PATH", err)
	}

	return c, nil
}

// IsAuthenticated checks if gh CLI is authenticated with GitHub.
func (c *CLIClient) IsAuthenticated() bool {
	cmd := exec.Command("gh", "auth", "status")
	if c.token != "" {
		cmd.Env = append(os.Environ(), "GITHUB_TOKEN="+c.token)
	}
	return cmd.Run() == nil
}

// CurrentUser returns the authenticated user's login.
func (c *CLIClient) CurrentUser(ctx context.Context) (string, error) {
	output, err := c.runGH(ctx, "api", "user", "--jq", ".login")
	if err != nil {
		return "", jiberrors.NewForgeErrorWithCause("CurrentUser", "failed to get authenticated user", err)
	}
	return strings.TrimSpace(output), nil
}

// RepoInfo returns owner, name and default branch for the current
// repository.
func (c *CLIClient) RepoInfo(ctx context.Context) (*RepoInfo, error) {
	args := []string{"repo", "view", "--json", "owner,name,defaultBranchRef"}

	c.logDebug("getting repo info")

	output, err := c.runGH(ctx, args...)
	if err != nil {
		return nil, jiberrors.NewForgeErrorWithCause("RepoInfo", "failed to get repo info", err)
	}

	var resp ghRepoResponse
	if err := json.Unmarshal([]byte(output), &resp); err != nil {
		return nil, jiberrors.NewForgeErrorWithCause("RepoInfo", "failed to parse repo response", err)
	}

	return &RepoInfo{
		Owner:         resp.Owner.Login,
		Name:          resp.Name,
		DefaultBranch: resp.DefaultBranchRef.Name,
	}, nil
}

// FindOpenPR returns the open pull request whose head branch is head,
// or nil when none exists.
func (c *CLIClient) FindOpenPR(ctx context.Context, head string) (*PRInfo, error) {
	if head == "" {
		return nil, jiberrors.NewForgeError("FindOpenPR", "head branch is required")
	}

	fields := prJSONFields()
	args := []string{
		"pr", "list",
		"--head", head,
		"--state", "open",
		"--json", strings.Join(fields, ","),
	}

	c.logDebug("searching for open PR", "head", head)

	output, err := c.runGH(ctx, args...)
	if err != nil {
		return nil, jiberrors.NewForgeErrorWithCause("FindOpenPR", "failed to list PRs", err)
	}

	var responses []ghPRResponse
	if err := json.Unmarshal([]byte(output), &responses); err != nil {
		return nil, jiberrors.NewForgeErrorWithCause("FindOpenPR", "failed to parse PR list response", err)
	}

	if len(responses) == 0 {
		return nil, nil
	}

	// gh lists newest first; the newest PR wins if several share a head.
	return responses[0].toPRInfo(), nil
}

// CreatePR creates a new pull request using gh pr create.
func (c *CLIClient) CreatePR(ctx context.Context, opts CreatePROptions) (*PRInfo, error) {
	if opts.Title == "" {
		return nil, jiberrors.NewForgeError("CreatePR", "title is required")
	}
	if opts.HeadBranch == "" {
		return nil, jiberrors.NewForgeError("CreatePR", "head branch is required")
	}

	// Always pass --body (even if empty) because gh requires both --title and --body
	// when running non-interactively
	args := []string{"pr", "create", "--title", opts.Title, "--body", opts.Body, "--head", opts.HeadBranch}
	if opts.BaseBranch != "" {
		args = append(args, "--base", opts.BaseBranch)
	}
	if opts.Draft {
		args = append(args, "--draft")
	}

	c.logDebug("creating PR", "head", opts.HeadBranch, "base", opts.BaseBranch)

	output, err := c.runGH(ctx, args...)
	if err != nil {
		return nil, jiberrors.NewForgeErrorWithCause("CreatePR", "failed to create PR", err)
	}

	// gh pr create outputs the PR URL on success
	// We need to fetch the PR details to get full info
	prURL := strings.TrimSpace(output)
	c.logDebug("PR created", "url", prURL)

	// Extract PR number from URL and fetch details
	number, parseErr := extractPRNumber(prURL)
	if parseErr != nil {
		// Return minimal info if we can't parse the URL
		c.logDebug("could not parse PR number from URL, returning minimal info", "url", prURL, "error", parseErr)
		return &PRInfo{URL: prURL, Title: opts.Title, Draft: opts.Draft, HeadBranch: opts.HeadBranch, BaseBranch: opts.BaseBranch}, nil
	}

	return c.viewPR(ctx, number)
}

// UpdatePR edits an existing pull request. Only non-nil fields are sent.
func (c *CLIClient) UpdatePR(ctx context.Context, number int, opts UpdatePROptions) (*PRInfo, error) {
	args := []string{"pr", "edit", strconv.Itoa(number)}
	if opts.Title != nil {
		args = append(args, "--title", *opts.Title)
	}
	if opts.Body != nil {
		args = append(args, "--body", *opts.Body)
	}
	if opts.Base != nil {
		args = append(args, "--base", *opts.Base)
	}

	// Nothing to change; skip the edit call but still return the PR.
	if len(args) > 3 {
		c.logDebug("updating PR", "number", number)

		if _, err := c.runGH(ctx, args...); err != nil {
			return nil, jiberrors.NewForgeErrorWithCause("UpdatePR", fmt.Sprintf("failed to edit PR #%d", number), err)
		}
	}

	return c.viewPR(ctx, number)
}

// RequestedReviewers returns the logins whose review is currently
// requested on the pull request.
func (c *CLIClient) RequestedReviewers(ctx context.Context, number int) ([]string, error) {
	args := []string{"pr", "view", strconv.Itoa(number), "--json", "reviewRequests"}

	c.logDebug("listing requested reviewers", "number", number)

	output, err := c.runGH(ctx, args...)
	if err != nil {
		return nil, jiberrors.NewForgeErrorWithCause("RequestedReviewers", fmt.Sprintf("failed to get PR #%d", number), err)
	}

	var resp ghPRResponse
	if err := json.Unmarshal([]byte(output), &resp); err != nil {
		return nil, jiberrors.NewForgeErrorWithCause("RequestedReviewers", "failed to parse PR response", err)
	}

	logins := make([]string, 0, len(resp.ReviewRequests))
	for _, req := range resp.ReviewRequests {
		if req.Login != "" {
			logins = append(logins, req.Login)
		}
	}

	return logins, nil
}

// RequestReviewers asks the given users for review. A no-op when logins
// is empty.
func (c *CLIClient) RequestReviewers(ctx context.Context, number int, logins []string) error {
	if len(logins) == 0 {
		return nil
	}

	args := []string{"pr", "edit", strconv.Itoa(number), "--add-reviewer", strings.Join(logins, ",")}

	c.logDebug("requesting reviewers", "number", number, "reviewers", strings.Join(logins, ","))

	if _, err := c.runGH(ctx, args...); err != nil {
		return jiberrors.NewForgeErrorWithCause("RequestReviewers", "failed to add reviewers", err)
	}

	return nil
}

// RemoveReviewers withdraws pending review requests for the given
// users. A no-op when logins is empty.
func (c *CLIClient) RemoveReviewers(ctx context.Context, number int, logins []string) error {
	if len(logins) == 0 {
		return nil
	}

	args := []string{"pr", "edit", strconv.Itoa(number), "--remove-reviewer", strings.Join(logins, ",")}

	c.logDebug("removing reviewers", "number", number, "reviewers", strings.Join(logins, ","))

	if _, err := c.runGH(ctx, args...); err != nil {
		return jiberrors.NewForgeErrorWithCause("RemoveReviewers", "failed to remove reviewers", err)
	}

	return nil
}

// viewPR retrieves pull request information by number.
func (c *CLIClient) viewPR(ctx context.Context, number int) (*PRInfo, error) {
	fields := prJSONFields()
	args := []string{
		"pr", "view", strconv.Itoa(number),
		"--json", strings.Join(fields, ","),
	}

	c.logDebug("getting PR", "number", number)

	output, err := c.runGH(ctx, args...)
	if err != nil {
		return nil, jiberrors.NewForgeErrorWithCause("viewPR", fmt.Sprintf("failed to get PR #%d", number), err)
	}

	var resp ghPRResponse
	if err := json.Unmarshal([]byte(output), &resp); err != nil {
		return nil, jiberrors.NewForgeErrorWithCause("viewPR", "failed to parse PR response", err)
	}

	return resp.toPRInfo(), nil
}

// runGH executes a gh command and returns its output.
func (c *CLIClient) runGH(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "gh", args...)

	// Set GITHUB_TOKEN if configured
	if c.token != "" {
		cmd.Env = append(os.Environ(), "GITHUB_TOKEN="+c.token)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		errMsg := strings.TrimSpace(stderr.String())
		if errMsg == "" {
			errMsg = err.Error()
		}
		// Check for specific error patterns to determine retryability
		ghErr := jiberrors.NewForgeError("gh", errMsg)
		if isRetryableGHError(errMsg) {
			ghErr.Retryable = true
		}
		return "", ghErr
	}

	return stdout.String(), nil
}

// logDebug logs a debug message if verbose mode is enabled.
func (c *CLIClient) logDebug(msg string, args ...any) {
	if c.verbose {
		c.logger.Debug(msg, args...)
	}
}

// prJSONFields returns the list of fields to request from gh pr view/list.
func prJSONFields() []string {
	return []string{
		"number",
		"title",
		"body",
		"state",
		"isDraft",
		"url",
		"headRefName",
		"baseRefName",
		"author",
		"createdAt",
		"updatedAt",
		"reviewRequests",
	}
}

// extractPRNumber extracts the PR number from a GitHub PR URL.
func extractPRNumber(url string) (int, error) {
	// URL format: https://github.com/owner/repo/pull/123
	parts := strings.Split(url, "/")
	if len(parts) < 2 {
		return 0, jiberrors.NewForgeError("extractPRNumber", "invalid PR URL format")
	}
	numberStr := parts[len(parts)-1]
	number, err := strconv.Atoi(numberStr)
	if err != nil {
		return 0, jiberrors.NewForgeErrorWithCause("extractPRNumber", "failed to parse PR number", err)
	}
	return number, nil
}

// isRetryableGHError checks if a gh CLI error message indicates a retryable error.
func isRetryableGHError(errMsg string) bool {
	retryablePatterns := []string{
		"rate limit",
		"timeout",
		"connection refused",
		"network",
		"502",
		"503",
		"504",
	}

	lowerErr := strings.ToLower(errMsg)
	for _, pattern := range retryablePatterns {
		if strings.Contains(lowerErr, pattern) {
			return true
		}
	}
	return false
}
