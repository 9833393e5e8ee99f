// Package jj wraps the Jujutsu (jj) command-line tool. Every
// repository read and mutation jib performs goes through the Client
// interface so commands and the sync engine can run against fakes in
// tests.
package jj

import (
	"context"

	"github.com/Masterminds/semver/v3"

	"thoreinstein.com/jib/pkg/config"
)

// Change is a single jj change (revision) as jib sees it.
type Change struct {
	// ID is the full change ID, stable across rewrites.
	ID string

	// Description is the change's full description, empty when the
	// change has not been described yet.
	Description string

	// Empty reports whether the change contains no file modifications.
	Empty bool
}

// ShortID returns the 12-character change ID prefix, the same prefix jj
// itself uses when it generates bookmark names.
func (c *Change) ShortID() string {
	if len(c.ID) <= 12 {
		return c.ID
	}
	return c.ID[:12]
}

// Client is the surface jib needs from a jj repository.
type Client interface {
	// Root returns the absolute path of the repository root, or an
	// error when the working directory is not inside a jj repository.
	Root(ctx context.Context) (string, error)

	// Version returns the version of the installed jj binary.
	Version(ctx context.Context) (*semver.Version, error)

	// CurrentChange returns the working-copy change (@).
	CurrentChange(ctx context.Context) (*Change, error)

	// Diff returns the change's diff in git format.
	Diff(ctx context.Context, changeID string) (string, error)

	// Description returns the change's current description.
	Description(ctx context.Context, changeID string) (string, error)

	// SetDescription replaces the change's description.
	SetDescription(ctx context.Context, changeID, description string) error

	// Bookmarks returns the local bookmarks pointing at the change.
	Bookmarks(ctx context.Context, changeID string) ([]string, error)

	// CreateBookmark creates a local bookmark pointing at the change.
	CreateBookmark(ctx context.Context, name, changeID string) error

	// NearestBookmarkedAncestor returns a bookmark on the closest
	// ancestor of the change (excluding the change itself) that
	// carries one, or "" when no ancestor is bookmarked.
	NearestBookmarkedAncestor(ctx context.Context, changeID string) (string, error)

	// Push pushes the bookmark to the configured git remote. allowNew
	// must be set the first time a bookmark is pushed.
	Push(ctx context.Context, bookmark string, allowNew bool) error
}

// NewClient builds the CLI-backed jj client from configuration.
func NewClient(cfg *config.Config, verbose bool) Client {
	return NewCLIClient(verbose,
		WithBinary(cfg.JJ.Binary),
		WithRemote(cfg.GitHub.Remote),
	)
}
