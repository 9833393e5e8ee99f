package github

import (
	"context"
	"log/slog"
	"os"

	"golang.org/x/oauth2"

	"thoreinstein.com/jib/pkg/config"
	jiberrors "thoreinstein.com/jib/pkg/errors"
)

// Client defines the interface for GitHub operations.
// Implementations include CLIClient (wrapping gh CLI) and APIClient
// (using the GitHub REST API).
type Client interface {
	// IsAuthenticated checks if the client is authenticated with GitHub.
	IsAuthenticated() bool

	// CurrentUser returns the authenticated user's login.
	CurrentUser(ctx context.Context) (string, error)

	// RepoInfo returns owner, name and default branch for the current
	// repository.
	RepoInfo(ctx context.Context) (*RepoInfo, error)

	// FindOpenPR returns the open pull request whose head branch is
	// head, or nil when no such PR exists.
	FindOpenPR(ctx context.Context, head string) (*PRInfo, error)

	// CreatePR creates a new pull request.
	CreatePR(ctx context.Context, opts CreatePROptions) (*PRInfo, error)

	// UpdatePR edits an existing pull request. Nil fields in opts are
	// left unchanged.
	UpdatePR(ctx context.Context, number int, opts UpdatePROptions) (*PRInfo, error)

	// RequestedReviewers returns the logins whose review is currently
	// requested on the pull request.
	RequestedReviewers(ctx context.Context, number int) ([]string, error)

	// RequestReviewers asks the given users for review.
	RequestReviewers(ctx context.Context, number int, logins []string) error

	// RemoveReviewers withdraws pending review requests for the given
	// users.
	RemoveReviewers(ctx context.Context, number int, logins []string) error
}

// Compile-time checks that implementations satisfy the Client interface.
var (
	_ Client = (*CLIClient)(nil)
	_ Client = (*APIClient)(nil)
)

// NewClient creates a GitHub client based on the provided configuration.
//
// Token resolution order:
//  1. GITHUB_TOKEN environment variable
//  2. JIB_GITHUB_TOKEN environment variable
//  3. Token from config file (github.token)
//  4. Cached OAuth token (keychain or file)
//  5. OAuth device flow (if client_id configured)
//  6. Fall back to gh CLI
func NewClient(cfg *config.GitHubConfig, verbose bool) (Client, error) {
	if cfg == nil {
		return nil, jiberrors.NewForgeError("NewClient", "github config is required")
	}

	// Check environment variable tokens first (highest precedence)
	token := os.Getenv("GITHUB_TOKEN")
	if token == "" {
		token = os.Getenv("JIB_GITHUB_TOKEN")
	}
	if token == "" {
		token = cfg.Token
	}

	// Determine which client to create based on auth method
	switch AuthMethod(cfg.AuthMethod) {
	case AuthToken:
		if token == "" {
			return nil, jiberrors.NewForgeError("NewClient",
				"token auth requires GITHUB_TOKEN, JIB_GITHUB_TOKEN env var, or github.token in config")
		}
		return NewAPIClient(token, verbose, WithAPIRemote(cfg.Remote))

	case AuthOAuth:
		return newOAuthClient(cfg, verbose)

	case AuthGHCLI, "":
		// Default: prefer API client if we have a token, fall back to CLI
		if token != "" {
			return NewAPIClient(token, verbose, WithAPIRemote(cfg.Remote))
		}
		return NewCLIClient(verbose)

	default:
		return nil, jiberrors.NewForgeError("NewClient", "unknown auth method: "+cfg.AuthMethod)
	}
}

// newOAuthClient creates a client using OAuth device flow with token caching.
func newOAuthClient(cfg *config.GitHubConfig, verbose bool) (Client, error) {
	cache := NewTokenCache()

	// Try cached token first
	cachedToken, err := cache.Get()
	if err != nil {
		// Log but don't fail - we can try device flow
		if verbose {
			slog.Debug("failed to read cached token", "error", err)
		}
	}

	if cachedToken != nil && cachedToken.Valid() {
		if verbose {
			slog.Debug("using cached OAuth token")
		}
		return NewAPIClient(cachedToken.AccessToken, verbose, WithAPIRemote(cfg.Remote))
	}

	// No valid cached token - need to do device flow
	if cfg.ClientID == "" {
		return nil, jiberrors.NewForgeError("NewClient",
			"oauth auth requires github.client_id in config; alternatively use gh_cli auth method")
	}

	oauthCfg := OAuthConfig{
		ClientID: cfg.ClientID,
		Scopes:   []string{"repo", "read:org"},
	}

	// Perform device flow authentication
	apiToken, err := DeviceAuth(context.Background(), oauthCfg, os.Stdout)
	if err != nil {
		return nil, err
	}

	// Convert to oauth2.Token and cache it
	token := &oauth2.Token{
		AccessToken: apiToken.Token,
		TokenType:   apiToken.Type,
	}

	if cacheErr := cache.Set(token); cacheErr != nil {
		// Log but don't fail - auth succeeded
		if verbose {
			slog.Debug("failed to cache token", "error", cacheErr)
		}
	} else if verbose {
		slog.Debug("cached OAuth token for future use")
	}

	return NewAPIClient(token.AccessToken, verbose, WithAPIRemote(cfg.Remote))
}
