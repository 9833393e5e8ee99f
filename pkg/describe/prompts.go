package describe

import (
	"fmt"
	"strings"
)

// SystemPromptDescribe is the system prompt of the built-in describe role.
const SystemPromptDescribe = `You are a senior engineer writing pull request descriptions for your team.

Your role is to read a code diff and produce a description that tells a
reviewer what changed and why, without making them read every hunk.

Guidelines:
- The first line is the title: imperative mood, at most 72 characters,
  no trailing period
- The second line is blank
- The body starts on the third line: explain the motivation, the approach,
  and anything a reviewer should look at closely
- Mention user-visible behavior changes and migration steps explicitly
- Do not enumerate every file; group changes by intent
- Plain text only: no markdown headers, no code fences around the whole reply

You MUST respond with only the description text in exactly that shape.
Do not add commentary before or after it.`

// maxTicketBodyChars bounds how much fetched ticket text goes into the
// prompt; the diff itself is never truncated.
const maxTicketBodyChars = 2000

// BuildDraftPrompt composes the first conversational turn: the directive,
// the optional context sections, and the full diff.
func BuildDraftPrompt(req Request) string {
	var sb strings.Builder

	sb.WriteString("Write a description for this change.\n\n")

	if req.Role.Instructions != "" {
		sb.WriteString("## Role Instructions\n")
		sb.WriteString(req.Role.Instructions)
		sb.WriteString("\n\n")
	}

	if req.Ticket != "" {
		sb.WriteString("## Ticket\n")
		sb.WriteString(fmt.Sprintf("**ID:** %s\n", req.Ticket))
		if req.TicketType != "" {
			sb.WriteString(fmt.Sprintf("**Type:** %s\n", req.TicketType))
		}
		if req.TicketSummary != "" {
			sb.WriteString(fmt.Sprintf("**Summary:** %s\n", req.TicketSummary))
		}
		if req.TicketBody != "" {
			sb.WriteString(fmt.Sprintf("**Details:**\n%s\n", truncate(req.TicketBody, maxTicketBodyChars)))
		}
		if req.Fixes {
			sb.WriteString(fmt.Sprintf("This change fixes %s. Include a line \"Fixes %s\" in the body.\n", req.Ticket, req.Ticket))
		}
		sb.WriteString("\n")
	}

	if req.Instruction != "" {
		sb.WriteString("## Additional Instructions\n")
		sb.WriteString(req.Instruction)
		sb.WriteString("\n\n")
	}

	if req.Existing != "" {
		sb.WriteString("## Current Description\n")
		sb.WriteString("The change already carries this description; treat it as context and improve on it:\n\n")
		sb.WriteString(req.Existing)
		sb.WriteString("\n\n")
	}

	sb.WriteString("## Diff\n")
	sb.WriteString(req.Diff)

	return sb.String()
}

// truncate shortens a string to maxLen characters, adding ellipsis if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
