package cmd

import (
	"context"
	"fmt"
	"io"

	"thoreinstein.com/jib/pkg/ai"
	"thoreinstein.com/jib/pkg/config"
	"thoreinstein.com/jib/pkg/describe"
	"thoreinstein.com/jib/pkg/synclog"
	"thoreinstein.com/jib/pkg/ticket"
)

// newConversationalist builds the session-backed AI client used by the
// description loop.
func newConversationalist(cfg *config.Config) (ai.Conversationalist, error) {
	provider, err := ai.NewProvider(&cfg.AI, verbose)
	if err != nil {
		return nil, err
	}
	return ai.NewSessionManager(provider)
}

// newTicketClient builds a Jira client when the integration is enabled.
// Ticket enrichment is optional, so construction failures degrade to a
// warning instead of blocking the command.
func newTicketClient(cfg *config.Config, errOut io.Writer) ticket.Client {
	if !cfg.Jira.Enabled {
		return nil
	}
	tc, err := ticket.NewAPIClient(&cfg.Jira, verbose)
	if err != nil {
		fmt.Fprintf(errOut, "Warning: jira integration unavailable: %v\n", err)
		return nil
	}
	return tc
}

// fetchTicketInfo fetches ticket details for prompt enrichment. Any
// failure is reported as a warning and the prompt falls back to the bare
// ticket key.
func fetchTicketInfo(ctx context.Context, tickets ticket.Client, key string, errOut io.Writer) *ticket.Info {
	if key == "" || tickets == nil || !tickets.IsAvailable() {
		return nil
	}
	info, err := tickets.FetchDetails(ctx, key)
	if err != nil {
		fmt.Fprintf(errOut, "Warning: could not fetch %s: %v\n", key, err)
		return nil
	}
	return info
}

// transitionTicket moves the referenced ticket to the configured
// in-review status after a pull request is created. The PR exists either
// way, so failures degrade to a warning.
func transitionTicket(ctx context.Context, tickets ticket.Client, cfg *config.Config, key string, out, errOut io.Writer) {
	status := cfg.Jira.InReviewStatus
	if key == "" || status == "" || tickets == nil || !tickets.IsAvailable() {
		return
	}
	if err := tickets.TransitionByName(ctx, key, status); err != nil {
		fmt.Fprintf(errOut, "Warning: could not transition %s to %q: %v\n", key, status, err)
		return
	}
	fmt.Fprintf(out, "Transitioned %s to %s\n", key, status)
}

// loadRoleFor resolves the conversation role for a repository: an
// explicit flag wins, then the per-project mapping, then the global
// default.
func loadRoleFor(cfg *config.Config, root, override string) (describe.Role, error) {
	name := override
	if name == "" {
		name = cfg.RoleFor(root)
	}
	return describe.LoadRole(cfg.AI.RolesDir, name)
}

// openSyncLog opens the history store, or returns nil when history is
// disabled. A broken history database must not stop a sync, so open
// failures degrade to a warning.
func openSyncLog(cfg *config.Config, errOut io.Writer) *synclog.Store {
	if !cfg.History.Enabled {
		return nil
	}
	store, err := synclog.Open(cfg.History.DatabasePath)
	if err != nil {
		fmt.Fprintf(errOut, "Warning: sync history disabled: %v\n", err)
		return nil
	}
	return store
}
