package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"thoreinstein.com/jib/pkg/ai"
	"thoreinstein.com/jib/pkg/config"
	"thoreinstein.com/jib/pkg/describe"
	jiberrors "thoreinstein.com/jib/pkg/errors"
	"thoreinstein.com/jib/pkg/jj"
	"thoreinstein.com/jib/pkg/ticket"
	"thoreinstein.com/jib/pkg/ui"
)

// promptOptions are the flags sync and describe share to shape the
// drafting prompt.
type promptOptions struct {
	Ticket      string
	Fixes       bool
	Instruction string
	Role        string
}

var describeOpts promptOptions

// describeDeps collects the collaborators the drafting loop needs, so
// tests can swap in fakes. syncDeps embeds it.
type describeDeps struct {
	jj      jj.Client
	conv    ai.Conversationalist
	tickets ticket.Client
	surface ui.Surface
	cfg     *config.Config
	out     io.Writer
	errOut  io.Writer
}

// describeCmd drafts a description for the working change without
// touching the remote.
var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Draft a description for the working change",
	Long: `Draft a pull-request-ready description for the working change.

The AI provider writes a first draft from the change's diff; you then
accept it, ask for a revision, or cancel. An accepted draft is written
back to the change with 'jj describe', so the next sync picks it up.

Examples:
  jib describe                          # Draft from the diff alone
  jib describe --ticket PROJ-123        # Reference a ticket
  jib describe -i "focus on the API"    # Steer the first draft
  jib describe --role backend           # Use a specific conversation role`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return jiberrors.NewConfigErrorWithCause("", "failed to load configuration", err)
		}

		conv, err := newConversationalist(cfg)
		if err != nil {
			return err
		}

		deps := describeDeps{
			jj:      jj.NewClient(cfg, verbose),
			conv:    conv,
			tickets: newTicketClient(cfg, os.Stderr),
			surface: ui.NewTerminal(),
			cfg:     cfg,
			out:     os.Stdout,
			errOut:  os.Stderr,
		}

		return runDescribe(cmd.Context(), describeOpts, deps)
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
	addPromptFlags(describeCmd, &describeOpts)
}

// addPromptFlags binds the prompt-shaping flags shared by sync and
// describe.
func addPromptFlags(cmd *cobra.Command, opts *promptOptions) {
	cmd.Flags().StringVarP(&opts.Ticket, "ticket", "t", "", "ticket key to reference (e.g. PROJ-123)")
	cmd.Flags().BoolVar(&opts.Fixes, "fixes", false, "reference the ticket as fixed rather than related")
	cmd.Flags().StringVarP(&opts.Instruction, "instruction", "i", "", "extra instruction for the first draft")
	cmd.Flags().StringVar(&opts.Role, "role", "", "conversation role (default from config)")
}

func runDescribe(ctx context.Context, opts promptOptions, deps describeDeps) error {
	root, err := deps.jj.Root(ctx)
	if err != nil {
		return jiberrors.NewPreconditionErrorWithCause("repository",
			"not inside a jj repository", err)
	}

	change, err := deps.jj.CurrentChange(ctx)
	if err != nil {
		return err
	}
	if change.Empty {
		return jiberrors.NewPreconditionError("change",
			"working change is empty; nothing to describe")
	}

	description, err := draftDescription(ctx, deps, root, change, opts)
	if err != nil {
		return err
	}

	if err := deps.jj.SetDescription(ctx, change.ID, description); err != nil {
		return err
	}

	fmt.Fprintf(deps.out, "Saved description for %s\n", change.ShortID())
	return nil
}

// draftDescription runs the refinement loop over the change's diff and
// returns the accepted description. A cancellation inside the loop
// propagates unchanged so the caller's exit code reflects it.
func draftDescription(ctx context.Context, deps describeDeps, root string, change *jj.Change, opts promptOptions) (string, error) {
	role, err := loadRoleFor(deps.cfg, root, opts.Role)
	if err != nil {
		return "", err
	}

	diff, err := deps.jj.Diff(ctx, change.ID)
	if err != nil {
		return "", err
	}

	req := describe.Request{
		Diff:        diff,
		Existing:    change.Description,
		Ticket:      opts.Ticket,
		Fixes:       opts.Fixes,
		Instruction: opts.Instruction,
		Role:        role,
	}
	if info := fetchTicketInfo(ctx, deps.tickets, opts.Ticket, deps.errOut); info != nil {
		req.TicketType = info.Type
		req.TicketSummary = info.Summary
		req.TicketBody = info.Description
	}

	loop := describe.NewLoop(deps.conv, deps.surface).WithOutput(deps.out)
	return loop.Run(ctx, req)
}
