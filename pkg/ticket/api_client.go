package ticket

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"thoreinstein.com/jib/pkg/config"
	jiberrors "thoreinstein.com/jib/pkg/errors"
)

// Compile-time interface check
var _ Client = (*APIClient)(nil)

// APIClient implements Client using the Jira Cloud REST API v3.
type APIClient struct {
	baseURL    string
	email      string
	token      string
	httpClient *http.Client
	retryCfg   jiberrors.RetryConfig
	logger     *slog.Logger
}

// NewAPIClient creates a Jira API client.
// Token lookup precedence: JIB_JIRA_TOKEN env > JIRA_TOKEN env > config.
func NewAPIClient(cfg *config.JiraConfig, verbose bool) (*APIClient, error) {
	if cfg == nil {
		return nil, jiberrors.NewConfigError("jira", "jira config is required")
	}

	token := os.Getenv("JIB_JIRA_TOKEN")
	if token == "" {
		token = os.Getenv("JIRA_TOKEN")
	}
	if token == "" {
		token = cfg.Token
	}

	if cfg.BaseURL == "" {
		return nil, jiberrors.NewConfigError("jira.base_url", "base_url is required for ticket enrichment")
	}
	if cfg.Email == "" {
		return nil, jiberrors.NewConfigError("jira.email", "email is required for ticket enrichment")
	}
	if token == "" {
		return nil, jiberrors.NewConfigError("jira.token", "token is required (set JIRA_TOKEN env var or jira.token in config)")
	}

	var logger *slog.Logger
	if verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}

	return &APIClient{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		email:      cfg.Email,
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		retryCfg:   jiberrors.DefaultRetryConfig(),
		logger:     logger,
	}, nil
}

// IsAvailable checks if the API client is configured and ready to use.
func (c *APIClient) IsAvailable() bool {
	return c.baseURL != "" && c.email != "" && c.token != ""
}

// FetchDetails retrieves ticket information from Jira.
func (c *APIClient) FetchDetails(ctx context.Context, key string) (*Info, error) {
	if !c.IsAvailable() {
		return nil, jiberrors.NewTicketError("FetchDetails", "jira client is not configured")
	}

	url := fmt.Sprintf("%s/rest/api/3/issue/%s", c.baseURL, key)
	c.logDebug("fetching ticket", "url", url)

	resp, err := c.doRequestWithRetry(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, jiberrors.NewTicketErrorWithCause("FetchDetails", key, "failed to read response body", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.handleHTTPError("FetchDetails", key, resp.StatusCode, body)
	}

	info, err := parseIssueResponse(key, body)
	if err != nil {
		return nil, err
	}
	c.logDebug("fetched ticket", "key", key, "summary", info.Summary)
	return info, nil
}

// GetTransitions returns the available workflow transitions for a ticket.
func (c *APIClient) GetTransitions(ctx context.Context, key string) ([]Transition, error) {
	if !c.IsAvailable() {
		return nil, jiberrors.NewTicketError("GetTransitions", "jira client is not configured")
	}

	url := fmt.Sprintf("%s/rest/api/3/issue/%s/transitions", c.baseURL, key)

	resp, err := c.doRequestWithRetry(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, jiberrors.NewTicketErrorWithCause("GetTransitions", key, "failed to read response body", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.handleHTTPError("GetTransitions", key, resp.StatusCode, body)
	}

	var transResp jiraTransitionsResponse
	if err := json.Unmarshal(body, &transResp); err != nil {
		return nil, jiberrors.NewTicketErrorWithCause("GetTransitions", key, "failed to parse transitions response", err)
	}

	transitions := make([]Transition, len(transResp.Transitions))
	for i, t := range transResp.Transitions {
		transitions[i] = Transition{
			ID:   t.ID,
			Name: t.Name,
			To: TransitionStatus{
				ID:   t.To.ID,
				Name: t.To.Name,
			},
		}
	}

	c.logDebug("fetched transitions", "key", key, "count", len(transitions))
	return transitions, nil
}

// TransitionTicket executes a workflow transition by its ID.
func (c *APIClient) TransitionTicket(ctx context.Context, key, transitionID string) error {
	if !c.IsAvailable() {
		return jiberrors.NewTicketError("TransitionTicket", "jira client is not configured")
	}

	url := fmt.Sprintf("%s/rest/api/3/issue/%s/transitions", c.baseURL, key)

	reqBody, err := json.Marshal(jiraTransitionRequest{
		Transition: jiraTransitionID{ID: transitionID},
	})
	if err != nil {
		return jiberrors.NewTicketErrorWithCause("TransitionTicket", key, "failed to marshal request body", err)
	}

	c.logDebug("transitioning ticket", "key", key, "transition", transitionID)

	resp, err := c.doRequestWithRetry(ctx, http.MethodPost, url, reqBody)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// 204 No Content is the success response for transitions.
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return jiberrors.NewTicketErrorWithCause("TransitionTicket", key, "failed to read response body", err)
	}

	return c.handleHTTPError("TransitionTicket", key, resp.StatusCode, body)
}

// TransitionByName finds a transition whose name or target status matches
// statusName (case-insensitive) and executes it.
func (c *APIClient) TransitionByName(ctx context.Context, key, statusName string) error {
	transitions, err := c.GetTransitions(ctx, key)
	if err != nil {
		return err
	}

	statusLower := strings.ToLower(statusName)
	var matched *Transition
	for i := range transitions {
		t := &transitions[i]
		if strings.ToLower(t.Name) == statusLower || strings.ToLower(t.To.Name) == statusLower {
			matched = t
			break
		}
	}

	if matched == nil {
		available := make([]string, len(transitions))
		for i, t := range transitions {
			available[i] = fmt.Sprintf("%s -> %s", t.Name, t.To.Name)
		}
		return jiberrors.NewTicketError("TransitionByName",
			fmt.Sprintf("transition to %q not found for %s; available: [%s]",
				statusName, key, strings.Join(available, ", ")))
	}

	c.logDebug("matched transition", "key", key, "name", matched.Name, "to", matched.To.Name)
	return c.TransitionTicket(ctx, key, matched.ID)
}

// doRequestWithRetry executes a request, retrying on HTTP 429. The delay
// honors the Retry-After header when present and falls back to
// exponential backoff with jitter. The final 429 is returned as a plain
// response for the caller's status handling.
func (c *APIClient) doRequestWithRetry(ctx context.Context, method, url string, body []byte) (*http.Response, error) {
	cfg := c.retryCfg

	for attempt := 0; ; attempt++ {
		req, err := c.newRequest(ctx, method, url, body)
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, jiberrors.Wrap(err, "failed to execute jira request")
		}

		if resp.StatusCode != http.StatusTooManyRequests || attempt == cfg.MaxRetries {
			return resp, nil
		}
		resp.Body.Close()

		delay := parseRetryAfter(resp.Header.Get("Retry-After"))
		if delay == 0 {
			delay = jiberrors.CalculateBackoff(cfg.BaseDelay, cfg.MaxDelay, attempt, cfg.Jitter)
		}
		c.logDebug("rate limited, retrying", "delay", delay, "attempt", attempt+1, "max", cfg.MaxRetries)

		select {
		case <-ctx.Done():
			return nil, jiberrors.Wrap(ctx.Err(), "cancelled while waiting out a jira rate limit")
		case <-time.After(delay):
		}
	}
}

// newRequest builds a request with Basic auth. The body is rebuilt per
// attempt so retries never send a drained reader.
func (c *APIClient) newRequest(ctx context.Context, method, url string, body []byte) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, jiberrors.Wrap(err, "failed to create jira request")
	}

	auth := base64.StdEncoding.EncodeToString([]byte(c.email + ":" + c.token))
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// parseRetryAfter extracts the delay from a Retry-After header, either
// seconds or an HTTP date. Returns 0 when absent or invalid.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(header); err == nil {
		return time.Duration(seconds) * time.Second
	}

	if t, err := time.Parse(time.RFC1123, header); err == nil {
		if delay := time.Until(t); delay > 0 {
			return delay
		}
	}

	return 0
}

// handleHTTPError maps non-success responses to TicketErrors.
func (c *APIClient) handleHTTPError(operation, key string, statusCode int, body []byte) error {
	switch statusCode {
	case http.StatusUnauthorized:
		return jiberrors.NewTicketErrorWithStatus(operation, key, statusCode,
			"authentication failed: check your email and API token")
	case http.StatusForbidden:
		return jiberrors.NewTicketErrorWithStatus(operation, key, statusCode,
			"access denied: check your permissions")
	case http.StatusNotFound:
		return jiberrors.NewTicketErrorWithStatus(operation, key, statusCode, "ticket not found")
	case http.StatusTooManyRequests:
		return jiberrors.NewTicketErrorWithStatus(operation, key, statusCode,
			"rate limit exceeded after retries")
	default:
		var errResp struct {
			ErrorMessages []string `json:"errorMessages"`
		}
		if err := json.Unmarshal(body, &errResp); err == nil && len(errResp.ErrorMessages) > 0 {
			return jiberrors.NewTicketErrorWithStatus(operation, key, statusCode,
				strings.Join(errResp.ErrorMessages, "; "))
		}
		return jiberrors.NewTicketErrorWithStatus(operation, key, statusCode, "jira API error")
	}
}

// logDebug logs a debug message if a logger is configured.
func (c *APIClient) logDebug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

// jiraIssueResponse represents the relevant parts of a Jira API v3 issue
// response.
type jiraIssueResponse struct {
	Fields struct {
		IssueType   *jiraNameField   `json:"issuetype"`
		Summary     string           `json:"summary"`
		Status      *jiraNameField   `json:"status"`
		Priority    *jiraNameField   `json:"priority"`
		Description *jiraADFDocument `json:"description"`
	} `json:"fields"`
}

// jiraNameField represents a Jira field with a name property.
type jiraNameField struct {
	Name string `json:"name"`
}

// jiraADFDocument represents an Atlassian Document Format document, the
// nested rich-text structure Jira Cloud API v3 uses for text fields.
type jiraADFDocument struct {
	Type    string           `json:"type"`
	Content []jiraADFContent `json:"content"`
}

// jiraADFContent represents a content node in an ADF document.
type jiraADFContent struct {
	Type    string           `json:"type"`
	Text    string           `json:"text,omitempty"`
	Content []jiraADFContent `json:"content,omitempty"`
}

// jiraTransitionsResponse represents the response from the transitions
// endpoint.
type jiraTransitionsResponse struct {
	Transitions []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		To   struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"to"`
	} `json:"transitions"`
}

// jiraTransitionRequest represents the request body for executing a
// transition.
type jiraTransitionRequest struct {
	Transition jiraTransitionID `json:"transition"`
}

// jiraTransitionID represents the transition ID in the request body.
type jiraTransitionID struct {
	ID string `json:"id"`
}

// parseIssueResponse extracts ticket information from an issue response.
func parseIssueResponse(key string, body []byte) (*Info, error) {
	var resp jiraIssueResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, jiberrors.NewTicketErrorWithCause("FetchDetails", key, "failed to parse jira response", err)
	}

	info := &Info{
		Key:     key,
		Summary: resp.Fields.Summary,
	}

	if resp.Fields.IssueType != nil {
		info.Type = resp.Fields.IssueType.Name
	}
	if resp.Fields.Status != nil {
		info.Status = resp.Fields.Status.Name
	}
	if resp.Fields.Priority != nil {
		info.Priority = resp.Fields.Priority.Name
	}
	if resp.Fields.Description != nil {
		info.Description = extractADFText(resp.Fields.Description)
	}

	return info, nil
}

// extractADFText extracts plain text from an Atlassian Document Format
// document. Text lives in leaf nodes of type "text".
func extractADFText(doc *jiraADFDocument) string {
	if doc == nil {
		return ""
	}

	var parts []string
	for _, content := range doc.Content {
		if text := extractADFContentText(&content); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n")
}

// extractADFContentText recursively extracts text from an ADF content node.
func extractADFContentText(content *jiraADFContent) string {
	if content == nil {
		return ""
	}

	if content.Type == "text" {
		return content.Text
	}

	var parts []string
	for _, child := range content.Content {
		if text := extractADFContentText(&child); text != "" {
			parts = append(parts, text)
		}
	}

	switch content.Type {
	case "bulletList", "orderedList":
		return strings.Join(parts, "\n")
	default:
		return strings.Join(parts, "")
	}
}
