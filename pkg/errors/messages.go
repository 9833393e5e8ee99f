package errors

import (
	"fmt"
	"strings"
)

// FormatUserError returns a user-friendly error message with actionable guidance.
// It examines the error chain and provides context-appropriate help text.
func FormatUserError(err error) string {
	if err == nil {
		return ""
	}

	// Check for PreconditionError
	var preErr *PreconditionError
	if As(err, &preErr) {
		return formatPreconditionError(preErr)
	}

	// Check for ConfigError
	var configErr *ConfigError
	if As(err, &configErr) {
		return formatConfigError(configErr)
	}

	// Check for ForgeError
	var forgeErr *ForgeError
	if As(err, &forgeErr) {
		return formatForgeError(forgeErr)
	}

	// Check for AIError
	var aiErr *AIError
	if As(err, &aiErr) {
		return formatAIError(aiErr)
	}

	// Check for TicketError
	var ticketErr *TicketError
	if As(err, &ticketErr) {
		return formatTicketError(ticketErr)
	}

	// Default: return the error message as-is
	return err.Error()
}

// formatPreconditionError formats a PreconditionError with actionable guidance.
func formatPreconditionError(err *PreconditionError) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Cannot continue: %s\n", err.Message)

	switch err.Check {
	case "repository":
		b.WriteString("\nTo fix this:\n")
		b.WriteString("  • Run jib from inside a jj repository\n")
		b.WriteString("  • Initialize one with 'jj git init --colocate'\n")

	case "jj_version":
		b.WriteString("\nTo fix this:\n")
		b.WriteString("  • Upgrade jj: https://jj-vcs.dev/latest/install-and-setup\n")

	case "change":
		b.WriteString("\nTo fix this:\n")
		b.WriteString("  • Make some changes before syncing\n")
		b.WriteString("  • Or move to a non-empty change with 'jj edit'\n")

	case "auth":
		b.WriteString("\nTo fix this:\n")
		b.WriteString("  • Set the JIB_GITHUB_TOKEN or GITHUB_TOKEN environment variable\n")
		b.WriteString("  • Or authenticate the gh CLI with 'gh auth login'\n")

	case "description":
		b.WriteString("\nTo fix this:\n")
		b.WriteString("  • Give the change a title and a body (at least 3 lines)\n")
		b.WriteString("  • 'jib describe' drafts one for you\n")

	case "base":
		b.WriteString("\nTo fix this:\n")
		b.WriteString("  • Ensure an ancestor of the change carries a bookmark\n")
		b.WriteString("  • Typically 'jj bookmark track main@origin' is enough\n")
	}

	if err.Cause != nil {
		fmt.Fprintf(&b, "\nUnderlying error: %v", err.Cause)
	}

	return b.String()
}

// formatConfigError formats a ConfigError with actionable guidance.
func formatConfigError(err *ConfigError) string {
	var b strings.Builder

	if err.Field != "" {
		fmt.Fprintf(&b, "Configuration error in '%s': %s\n", err.Field, err.Message)
	} else {
		fmt.Fprintf(&b, "Configuration error: %s\n", err.Message)
	}

	b.WriteString("\nTo fix this:\n")
	b.WriteString("  • Check your config file: ~/.config/jib/config.toml\n")
	b.WriteString("  • Run 'jib config init' to write a starter config\n")

	if err.Cause != nil {
		fmt.Fprintf(&b, "\nUnderlying error: %v", err.Cause)
	}

	return b.String()
}

// formatForgeError formats a ForgeError with actionable guidance based on status code.
func formatForgeError(err *ForgeError) string {
	var b strings.Builder

	fmt.Fprintf(&b, "GitHub error during %s: %s\n", err.Operation, err.Message)

	switch err.StatusCode {
	case 401:
		b.WriteString("\nAuthentication failed. To fix this:\n")
		b.WriteString("  • Set the JIB_GITHUB_TOKEN environment variable\n")
		b.WriteString("  • Or authenticate the gh CLI with 'gh auth login'\n")
		b.WriteString("  • Ensure your token has the required scopes (repo, read:org)\n")

	case 403:
		b.WriteString("\nPermission denied. To fix this:\n")
		b.WriteString("  • Ensure you have write access to this repository\n")
		b.WriteString("  • Check that your token has the 'repo' scope\n")
		b.WriteString("  • If using SSO, ensure the token is authorized for your organization\n")

	case 404:
		b.WriteString("\nResource not found. To fix this:\n")
		b.WriteString("  • Verify the repository name and owner are correct\n")
		b.WriteString("  • Ensure the branch or PR exists\n")
		b.WriteString("  • Check that you have access to the repository\n")

	case 422:
		b.WriteString("\nValidation failed. To fix this:\n")
		b.WriteString("  • Check that all required fields are provided\n")
		b.WriteString("  • Reviewers must be collaborators and cannot include the PR author\n")
		b.WriteString("  • Review the error message for specific field issues\n")

	case 429:
		b.WriteString("\nRate limit exceeded. To fix this:\n")
		b.WriteString("  • Wait a few minutes before retrying\n")

	case 500, 502, 503, 504:
		b.WriteString("\nGitHub server error. To fix this:\n")
		b.WriteString("  • Wait a few moments and try again\n")
		b.WriteString("  • Check GitHub Status: https://www.githubstatus.com\n")
	}

	if err.Cause != nil {
		fmt.Fprintf(&b, "\nUnderlying error: %v", err.Cause)
	}

	return b.String()
}

// formatAIError formats an AIError with actionable guidance based on status code.
func formatAIError(err *AIError) string {
	var b strings.Builder

	fmt.Fprintf(&b, "AI provider error (%s) during %s: %s\n", err.Provider, err.Operation, err.Message)

	switch err.StatusCode {
	case 401:
		fmt.Fprintf(&b, "\nAuthentication failed with %s. To fix this:\n", err.Provider)
		b.WriteString("  • Set the appropriate API key environment variable\n")
		b.WriteString("  • Verify your API key is valid and not expired\n")

	case 403:
		fmt.Fprintf(&b, "\nAccess denied by %s. To fix this:\n", err.Provider)
		b.WriteString("  • Check your API key permissions\n")
		b.WriteString("  • Ensure the model you're using is available to your account tier\n")

	case 429:
		fmt.Fprintf(&b, "\n%s rate limit exceeded. To fix this:\n", err.Provider)
		b.WriteString("  • Wait a few minutes before retrying\n")
		b.WriteString("  • Consider upgrading your API tier for higher limits\n")

	case 500, 502, 503, 504:
		fmt.Fprintf(&b, "\n%s server error. To fix this:\n", err.Provider)
		b.WriteString("  • Wait a few moments and try again\n")
		b.WriteString("  • Check the provider's status page\n")
	}

	if err.Cause != nil {
		fmt.Fprintf(&b, "\nUnderlying error: %v", err.Cause)
	}

	return b.String()
}

// formatTicketError formats a TicketError with actionable guidance based on status code.
func formatTicketError(err *TicketError) string {
	var b strings.Builder

	if err.Ticket != "" {
		fmt.Fprintf(&b, "Jira error during %s for ticket %s: %s\n", err.Operation, err.Ticket, err.Message)
	} else {
		fmt.Fprintf(&b, "Jira error during %s: %s\n", err.Operation, err.Message)
	}

	switch err.StatusCode {
	case 401:
		b.WriteString("\nAuthentication failed. To fix this:\n")
		b.WriteString("  • Set the JIRA_TOKEN environment variable\n")
		b.WriteString("  • Verify your email and API token are correct\n")
		b.WriteString("  • Generate a new API token at: https://id.atlassian.com/manage-profile/security/api-tokens\n")

	case 403:
		b.WriteString("\nAccess denied. To fix this:\n")
		b.WriteString("  • Ensure you have permission to access this ticket\n")
		b.WriteString("  • Check that your Jira account has the required project permissions\n")

	case 404:
		if err.Ticket != "" {
			fmt.Fprintf(&b, "\nTicket %s not found. To fix this:\n", err.Ticket)
		} else {
			b.WriteString("\nResource not found. To fix this:\n")
		}
		b.WriteString("  • Verify the ticket ID is correct\n")
		b.WriteString("  • Check that you have access to the project\n")

	case 429:
		b.WriteString("\nJira rate limit exceeded. To fix this:\n")
		b.WriteString("  • Wait before making more requests\n")

	case 500, 502, 503, 504:
		b.WriteString("\nJira server error. To fix this:\n")
		b.WriteString("  • Wait a few moments and try again\n")
		b.WriteString("  • Check Atlassian Status: https://status.atlassian.com\n")
	}

	if err.Cause != nil {
		fmt.Fprintf(&b, "\nUnderlying error: %v", err.Cause)
	}

	return b.String()
}
