// Package ticket talks to Jira: it fetches issue context that enriches
// drafted PR descriptions, and moves issues along the workflow after a
// pull request is created. Every caller treats failures here as
// warnings — ticket enrichment never blocks a sync.
package ticket

import "context"

// Client is the surface jib needs from the issue tracker.
type Client interface {
	// IsAvailable reports whether the client is configured and ready.
	IsAvailable() bool

	// FetchDetails retrieves the ticket's summary and description.
	FetchDetails(ctx context.Context, key string) (*Info, error)

	// TransitionByName moves the ticket to the workflow status with the
	// given name (matched case-insensitively against transition names
	// and target status names).
	TransitionByName(ctx context.Context, key, statusName string) error
}

// Info holds the ticket fields included in drafting prompts.
type Info struct {
	Key         string
	Summary     string
	Type        string
	Status      string
	Priority    string
	Description string
}

// Transition is one available workflow move for a ticket.
type Transition struct {
	ID   string
	Name string
	To   TransitionStatus
}

// TransitionStatus is the status a transition leads to.
type TransitionStatus struct {
	ID   string
	Name string
}
