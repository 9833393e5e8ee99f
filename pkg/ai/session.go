package ai

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	jiberrors "thoreinstein.com/jib/pkg/errors"
)

// SessionDir is the directory under the user's home where conversation
// sessions are persisted, one JSON file per role.
const SessionDir = ".config/jib/sessions"

// Conversationalist runs role-keyed conversations. A session's turn
// history is preserved for the life of the session and persisted on disk
// between invocations.
type Conversationalist interface {
	// StartSession begins a fresh session for role, discarding any
	// previous one, and returns the assistant's reply to prompt.
	StartSession(ctx context.Context, role, system, prompt string) (string, error)

	// ContinueSession appends feedback as the next user turn of the
	// role's session and returns the assistant's reply.
	ContinueSession(ctx context.Context, role, feedback string) (string, error)
}

// SessionManager implements Conversationalist on top of a Provider.
type SessionManager struct {
	provider Provider
	dir      string
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Conversation
}

var _ Conversationalist = (*SessionManager)(nil)

// SessionOption configures a SessionManager.
type SessionOption func(*SessionManager)

// WithSessionDir overrides the session storage directory.
func WithSessionDir(dir string) SessionOption {
	return func(m *SessionManager) {
		if dir != "" {
			m.dir = dir
		}
	}
}

// WithSessionLogger sets the logger for debug output.
func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(m *SessionManager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewSessionManager creates a session manager storing sessions under
// ~/.config/jib/sessions.
func NewSessionManager(provider Provider, opts ...SessionOption) (*SessionManager, error) {
	if provider == nil {
		return nil, jiberrors.New("session manager requires a provider")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, jiberrors.Wrap(err, "failed to get home directory")
	}

	m := &SessionManager{
		provider: provider,
		dir:      filepath.Join(home, SessionDir),
		sessions: make(map[string]*Conversation),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// sessionState is the on-disk representation of a session.
type sessionState struct {
	Role      string    `json:"role"`
	System    string    `json:"system"`
	Messages  []Message `json:"messages"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StartSession begins a fresh session for role and returns the reply.
func (m *SessionManager) StartSession(ctx context.Context, role, system, prompt string) (string, error) {
	if err := validateRole(role); err != nil {
		return "", err
	}

	conv := NewConversation(m.provider, system)
	conv.AddUserMessage(prompt)

	resp, err := conv.Send(ctx)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	m.sessions[role] = conv
	m.mu.Unlock()

	m.persist(role, conv)
	return resp.Content, nil
}

// ContinueSession appends feedback to the role's session and returns the
// reply. Sessions survive process restarts: if no in-memory session
// exists, the persisted one is loaded.
func (m *SessionManager) ContinueSession(ctx context.Context, role, feedback string) (string, error) {
	if err := validateRole(role); err != nil {
		return "", err
	}

	conv, err := m.session(role)
	if err != nil {
		return "", err
	}
	if conv == nil {
		return "", jiberrors.NewAIError(m.provider.Name(), "ContinueSession",
			"no active session for role "+role)
	}

	conv.AddUserMessage(feedback)

	resp, err := conv.Send(ctx)
	if err != nil {
		return "", err
	}

	m.persist(role, conv)
	return resp.Content, nil
}

// ClearSession removes the role's session from memory and disk.
func (m *SessionManager) ClearSession(role string) error {
	if err := validateRole(role); err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.sessions, role)
	m.mu.Unlock()

	if err := os.Remove(m.sessionPath(role)); err != nil && !os.IsNotExist(err) {
		return jiberrors.Wrapf(err, "failed to remove session for role %s", role)
	}
	return nil
}

// session returns the in-memory session for role, falling back to the
// persisted one. Returns nil when neither exists.
func (m *SessionManager) session(role string) (*Conversation, error) {
	m.mu.Lock()
	conv, ok := m.sessions[role]
	m.mu.Unlock()
	if ok {
		return conv, nil
	}

	st, err := m.load(role)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, nil
	}

	conv = &Conversation{
		provider: m.provider,
		messages: st.Messages,
		system:   st.System,
	}

	m.mu.Lock()
	m.sessions[role] = conv
	m.mu.Unlock()
	return conv, nil
}

// persist writes the session to disk. Persistence failures degrade to a
// debug log: the in-memory session still serves the current invocation.
func (m *SessionManager) persist(role string, conv *Conversation) {
	st := sessionState{
		Role:      role,
		System:    conv.SystemPrompt(),
		Messages:  conv.History(),
		UpdatedAt: time.Now().UTC(),
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		m.logDebug("failed to marshal session", "role", role, "error", err)
		return
	}

	if err := os.MkdirAll(m.dir, 0700); err != nil {
		m.logDebug("failed to create session directory", "dir", m.dir, "error", err)
		return
	}

	if err := os.WriteFile(m.sessionPath(role), data, 0600); err != nil {
		m.logDebug("failed to write session", "role", role, "error", err)
	}
}

// load reads the persisted session for role. Returns nil when no session
// file exists.
func (m *SessionManager) load(role string) (*sessionState, error) {
	data, err := os.ReadFile(m.sessionPath(role))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, jiberrors.Wrapf(err, "failed to read session for role %s", role)
	}

	var st sessionState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, jiberrors.Wrapf(err, "failed to parse session for role %s", role)
	}
	return &st, nil
}

func (m *SessionManager) sessionPath(role string) string {
	return filepath.Join(m.dir, role+".json")
}

func (m *SessionManager) logDebug(msg string, args ...any) {
	if m.logger != nil {
		m.logger.Debug(msg, args...)
	}
}

// validateRole rejects role names that cannot serve as session file names.
func validateRole(role string) error {
	if role == "" {
		return jiberrors.NewConfigError("ai.role", "role name must not be empty")
	}
	if strings.ContainsAny(role, `/\`) || role == "." || role == ".." {
		return jiberrors.NewConfigError("ai.role", "invalid role name: "+role)
	}
	return nil
}
