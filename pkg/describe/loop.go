// Package describe turns a change diff into a user-accepted pull request
// description through an iterative AI conversation, and owns the
// title/body convention that maps descriptions onto pull requests.
//
// The refinement loop drafts a description from the diff, shows it, and
// asks for feedback: an empty answer accepts the draft, any other text is
// sent back to the same conversation session for another pass. Only the
// user ends the loop, by accepting or cancelling.
package describe

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"thoreinstein.com/jib/pkg/ai"
	jiberrors "thoreinstein.com/jib/pkg/errors"
	"thoreinstein.com/jib/pkg/ui"
)

// Request describes one description-refinement run.
type Request struct {
	// Diff is the full diff of the change; it is sent untruncated as part
	// of the first conversational turn.
	Diff string

	// Existing is the change's current description, included as context
	// when non-empty.
	Existing string

	// Ticket is an optional ticket reference, e.g. "PROJ-123". The
	// remaining Ticket* fields carry details fetched for it, when any.
	Ticket        string
	TicketType    string
	TicketSummary string
	TicketBody    string

	// Fixes asks the draft to state that the change fixes Ticket.
	Fixes bool

	// Instruction is optional free-form text added to the drafting prompt.
	Instruction string

	// Role is the assistant persona; its name keys the conversation
	// session. Zero value means the built-in describe role.
	Role Role
}

const feedbackPlaceholder = "Refine the description, or press Enter to accept"

const draftRule = "----------------------------------------"

// Loop drives the description-refinement conversation.
type Loop struct {
	conv    ai.Conversationalist
	surface ui.Surface
	writer  io.Writer
}

// NewLoop creates a refinement loop on top of a conversationalist and an
// interaction surface.
func NewLoop(conv ai.Conversationalist, surface ui.Surface) *Loop {
	return &Loop{
		conv:    conv,
		surface: surface,
		writer:  os.Stdout,
	}
}

// WithOutput sets a custom writer for testing.
func (l *Loop) WithOutput(w io.Writer) *Loop {
	l.writer = w
	return l
}

// Run drafts a description for the request and refines it until the user
// accepts or cancels. The accepted description is returned verbatim;
// persisting it onto the change is the caller's job. Cancellation during
// the feedback prompt surfaces as ui.ErrCancelled, unchanged, with no
// description returned.
func (l *Loop) Run(ctx context.Context, req Request) (string, error) {
	role := req.Role
	if role.Name == "" {
		role = BuiltinRole()
	}

	fmt.Fprintln(l.writer, "Drafting description...")
	draft, err := l.conv.StartSession(ctx, role.Name, role.System, BuildDraftPrompt(req))
	if err != nil {
		return "", jiberrors.Wrap(err, "failed to draft description")
	}

	for {
		l.renderDraft(draft)

		feedback, err := l.surface.PromptText(feedbackPlaceholder)
		if err != nil {
			// ui.ErrCancelled propagates unchanged so the caller can
			// abort the whole invocation.
			return "", err
		}

		feedback = strings.TrimSpace(feedback)
		if feedback == "" {
			return draft, nil
		}

		fmt.Fprintln(l.writer, "Refining description...")
		draft, err = l.conv.ContinueSession(ctx, role.Name, feedback)
		if err != nil {
			return "", jiberrors.Wrap(err, "failed to refine description")
		}
	}
}

// renderDraft shows the current draft between rules so it stands out from
// the surrounding prompts.
func (l *Loop) renderDraft(draft string) {
	fmt.Fprintf(l.writer, "\n%s\n%s\n%s\n\n", draftRule, draft, draftRule)
}
