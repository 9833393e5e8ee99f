// Package errors provides typed errors for the jib project.
//
// This package defines domain-specific error types that provide structured
// error information for different subsystems (preconditions, config, jj,
// GitHub, AI, Jira). All error types implement the standard error interface
// and support errors.Is() and errors.As() from the standard library and
// cockroachdb/errors.
package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// PreconditionError represents a failed assertion that must hold before any
// remote mutation is attempted (unrecognized repository, empty change,
// unauthenticated session, missing base bookmark, short description).
type PreconditionError struct {
	Check   string // Which precondition failed, e.g. "repository", "description"
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *PreconditionError) Error() string {
	if e.Check != "" {
		return fmt.Sprintf("precondition %s failed: %s", e.Check, e.Message)
	}
	return "precondition failed: " + e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *PreconditionError) Unwrap() error {
	return e.Cause
}

// NewPreconditionError creates a new PreconditionError.
func NewPreconditionError(check, message string) *PreconditionError {
	return &PreconditionError{Check: check, Message: message}
}

// NewPreconditionErrorWithCause creates a new PreconditionError with an underlying cause.
func NewPreconditionErrorWithCause(check, message string, cause error) *PreconditionError {
	return &PreconditionError{Check: check, Message: message, Cause: cause}
}

// ConfigError represents configuration-related errors.
type ConfigError struct {
	Field   string // Which config field has the issue
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
	}
	return "config error: " + e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// NewConfigErrorWithCause creates a new ConfigError with an underlying cause.
func NewConfigErrorWithCause(field, message string, cause error) *ConfigError {
	return &ConfigError{Field: field, Message: message, Cause: cause}
}

// VCSError represents failures of the jj version control tool.
type VCSError struct {
	Operation string // e.g., "Push", "CreateBookmark"
	Message   string
	Cause     error
}

// Error implements the error interface.
func (e *VCSError) Error() string {
	return fmt.Sprintf("jj %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *VCSError) Unwrap() error {
	return e.Cause
}

// NewVCSError creates a new VCSError.
func NewVCSError(operation, message string) *VCSError {
	return &VCSError{Operation: operation, Message: message}
}

// NewVCSErrorWithCause creates a new VCSError with an underlying cause.
func NewVCSErrorWithCause(operation, message string, cause error) *VCSError {
	return &VCSError{Operation: operation, Message: message, Cause: cause}
}

// ForgeError represents GitHub API/CLI errors.
type ForgeError struct {
	Operation  string // e.g., "CreatePR", "RequestReviewers"
	StatusCode int    // HTTP status code if applicable
	Message    string
	Retryable  bool
	Cause      error
}

// Error implements the error interface.
func (e *ForgeError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("github %s failed (HTTP %d): %s", e.Operation, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("github %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *ForgeError) Unwrap() error {
	return e.Cause
}

// NewForgeError creates a new ForgeError.
func NewForgeError(operation, message string) *ForgeError {
	return &ForgeError{Operation: operation, Message: message}
}

// NewForgeErrorWithStatus creates a new ForgeError with HTTP status code.
func NewForgeErrorWithStatus(operation string, statusCode int, message string) *ForgeError {
	retryable := isRetryableHTTPStatus(statusCode)
	return &ForgeError{
		Operation:  operation,
		StatusCode: statusCode,
		Message:    message,
		Retryable:  retryable,
	}
}

// NewForgeErrorWithCause creates a new ForgeError with an underlying cause.
func NewForgeErrorWithCause(operation, message string, cause error) *ForgeError {
	return &ForgeError{
		Operation: operation,
		Message:   message,
		Retryable: IsRetryable(cause),
		Cause:     cause,
	}
}

// AIError represents AI provider errors.
type AIError struct {
	Provider   string // e.g., "anthropic", "ollama"
	Operation  string // e.g., "Chat"
	StatusCode int
	Message    string
	Retryable  bool
	Cause      error
}

// Error implements the error interface.
func (e *AIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("ai %s %s failed (HTTP %d): %s", e.Provider, e.Operation, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("ai %s %s failed: %s", e.Provider, e.Operation, e.Message)
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *AIError) Unwrap() error {
	return e.Cause
}

// NewAIError creates a new AIError.
func NewAIError(provider, operation, message string) *AIError {
	return &AIError{Provider: provider, Operation: operation, Message: message}
}

// NewAIErrorWithStatus creates a new AIError with HTTP status code.
func NewAIErrorWithStatus(provider, operation string, statusCode int, message string) *AIError {
	retryable := isRetryableHTTPStatus(statusCode)
	return &AIError{
		Provider:   provider,
		Operation:  operation,
		StatusCode: statusCode,
		Message:    message,
		Retryable:  retryable,
	}
}

// NewAIErrorWithCause creates a new AIError with an underlying cause.
func NewAIErrorWithCause(provider, operation, message string, cause error) *AIError {
	return &AIError{
		Provider:  provider,
		Operation: operation,
		Message:   message,
		Retryable: IsRetryable(cause),
		Cause:     cause,
	}
}

// TicketError represents Jira API errors.
type TicketError struct {
	Operation  string
	Ticket     string
	StatusCode int
	Message    string
	Retryable  bool
	Cause      error
}

// Error implements the error interface.
func (e *TicketError) Error() string {
	if e.Ticket != "" && e.StatusCode > 0 {
		return fmt.Sprintf("jira %s for %s failed (HTTP %d): %s", e.Operation, e.Ticket, e.StatusCode, e.Message)
	}
	if e.Ticket != "" {
		return fmt.Sprintf("jira %s for %s failed: %s", e.Operation, e.Ticket, e.Message)
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("jira %s failed (HTTP %d): %s", e.Operation, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("jira %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *TicketError) Unwrap() error {
	return e.Cause
}

// NewTicketError creates a new TicketError.
func NewTicketError(operation, message string) *TicketError {
	return &TicketError{Operation: operation, Message: message}
}

// NewTicketErrorWithStatus creates a new TicketError with HTTP status code.
func NewTicketErrorWithStatus(operation, ticket string, statusCode int, message string) *TicketError {
	retryable := isRetryableHTTPStatus(statusCode)
	return &TicketError{
		Operation:  operation,
		Ticket:     ticket,
		StatusCode: statusCode,
		Message:    message,
		Retryable:  retryable,
	}
}

// NewTicketErrorWithCause creates a new TicketError with an underlying cause.
func NewTicketErrorWithCause(operation, ticket, message string, cause error) *TicketError {
	return &TicketError{
		Operation: operation,
		Ticket:    ticket,
		Message:   message,
		Retryable: IsRetryable(cause),
		Cause:     cause,
	}
}

// IsRetryable checks if an error or any error in its chain is retryable.
// It returns true if the error itself is retryable, or if any wrapped error
// is marked as retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Check ForgeError
	var forgeErr *ForgeError
	if errors.As(err, &forgeErr) {
		return forgeErr.Retryable
	}

	// Check AIError
	var aiErr *AIError
	if errors.As(err, &aiErr) {
		return aiErr.Retryable
	}

	// Check TicketError
	var ticketErr *TicketError
	if errors.As(err, &ticketErr) {
		return ticketErr.Retryable
	}

	return false
}

// IsPreconditionError checks if an error or any error in its chain is a PreconditionError.
func IsPreconditionError(err error) bool {
	var preErr *PreconditionError
	return errors.As(err, &preErr)
}

// IsConfigError checks if an error or any error in its chain is a ConfigError.
func IsConfigError(err error) bool {
	var configErr *ConfigError
	return errors.As(err, &configErr)
}

// IsVCSError checks if an error or any error in its chain is a VCSError.
func IsVCSError(err error) bool {
	var vcsErr *VCSError
	return errors.As(err, &vcsErr)
}

// IsForgeError checks if an error or any error in its chain is a ForgeError.
func IsForgeError(err error) bool {
	var forgeErr *ForgeError
	return errors.As(err, &forgeErr)
}

// IsAIError checks if an error or any error in its chain is an AIError.
func IsAIError(err error) bool {
	var aiErr *AIError
	return errors.As(err, &aiErr)
}

// IsTicketError checks if an error or any error in its chain is a TicketError.
func IsTicketError(err error) bool {
	var ticketErr *TicketError
	return errors.As(err, &ticketErr)
}

// isRetryableHTTPStatus returns true for HTTP status codes that are typically retryable.
func isRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, // Request Timeout
		429, // Too Many Requests
		500, // Internal Server Error
		502, // Bad Gateway
		503, // Service Unavailable
		504: // Gateway Timeout
		return true
	default:
		return false
	}
}

// Re-export commonly used functions from cockroachdb/errors for convenience.
// This allows consumers to use jiberrors.Wrap() instead of importing two packages.
var (
	// New creates a new error with the given message.
	New = errors.New

	// Newf creates a new error with formatted message.
	Newf = errors.Newf

	// Wrap wraps an error with additional context.
	Wrap = errors.Wrap

	// Wrapf wraps an error with formatted additional context.
	Wrapf = errors.Wrapf

	// Is reports whether any error in err's chain matches target.
	Is = errors.Is

	// As finds the first error in err's chain that matches target.
	As = errors.As

	// Cause returns the root cause of an error.
	Cause = errors.Cause
)
