package describe

import (
	"bytes"
	"context"
	"strings"
	"testing"

	jiberrors "thoreinstein.com/jib/pkg/errors"
	"thoreinstein.com/jib/pkg/ui"
)

type startCall struct {
	role   string
	system string
	prompt string
}

type continueCall struct {
	role     string
	feedback string
}

// fakeConv scripts assistant replies and records every turn.
type fakeConv struct {
	replies     []string
	startErr    error
	continueErr error

	starts    []startCall
	continues []continueCall
}

func (c *fakeConv) StartSession(_ context.Context, role, system, prompt string) (string, error) {
	c.starts = append(c.starts, startCall{role: role, system: system, prompt: prompt})
	if c.startErr != nil {
		return "", c.startErr
	}
	return c.pop(), nil
}

func (c *fakeConv) ContinueSession(_ context.Context, role, feedback string) (string, error) {
	c.continues = append(c.continues, continueCall{role: role, feedback: feedback})
	if c.continueErr != nil {
		return "", c.continueErr
	}
	return c.pop(), nil
}

func (c *fakeConv) pop() string {
	if len(c.replies) == 0 {
		return "reply"
	}
	reply := c.replies[0]
	c.replies = c.replies[1:]
	return reply
}

// fakeSurface scripts PromptText answers; an ErrCancelled entry simulates
// a user interrupt.
type fakeSurface struct {
	answers      []string
	cancelAt     int // 1-based prompt index that cancels; 0 disables
	promptCount  int
	placeholders []string
}

func (s *fakeSurface) Confirm(string, bool) (bool, error) { return false, nil }

func (s *fakeSurface) MultiSelect(string, []string, []string, int) ([]string, error) {
	return nil, nil
}

func (s *fakeSurface) PromptText(placeholder string) (string, error) {
	s.promptCount++
	s.placeholders = append(s.placeholders, placeholder)
	if s.cancelAt > 0 && s.promptCount == s.cancelAt {
		return "", ui.ErrCancelled
	}
	if len(s.answers) == 0 {
		return "", nil
	}
	answer := s.answers[0]
	s.answers = s.answers[1:]
	return answer, nil
}

func TestLoop_AcceptsOnEmptyFeedback(t *testing.T) {
	conv := &fakeConv{replies: []string{"Fix login bug"}}
	surface := &fakeSurface{answers: []string{""}}
	var out bytes.Buffer

	loop := NewLoop(conv, surface).WithOutput(&out)
	got, err := loop.Run(t.Context(), Request{Diff: "some diff"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got != "Fix login bug" {
		t.Errorf("accepted draft = %q, want %q", got, "Fix login bug")
	}
	if len(conv.starts) != 1 {
		t.Errorf("StartSession called %d times, want 1", len(conv.starts))
	}
	if len(conv.continues) != 0 {
		t.Errorf("ContinueSession called %d times, want 0", len(conv.continues))
	}
	if !strings.Contains(out.String(), "Fix login bug") {
		t.Error("draft was never rendered")
	}
}

func TestLoop_RefinesThenAccepts(t *testing.T) {
	conv := &fakeConv{replies: []string{"draft one", "draft two"}}
	surface := &fakeSurface{answers: []string{"make it shorter", ""}}
	var out bytes.Buffer

	loop := NewLoop(conv, surface).WithOutput(&out)
	got, err := loop.Run(t.Context(), Request{Diff: "some diff"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got != "draft two" {
		t.Errorf("accepted draft = %q, want %q", got, "draft two")
	}
	if len(conv.continues) != 1 {
		t.Fatalf("ContinueSession called %d times, want 1", len(conv.continues))
	}
	// The refinement turn carries only the feedback, never the diff again.
	if conv.continues[0].feedback != "make it shorter" {
		t.Errorf("feedback = %q, want %q", conv.continues[0].feedback, "make it shorter")
	}
	for _, draft := range []string{"draft one", "draft two"} {
		if !strings.Contains(out.String(), draft) {
			t.Errorf("draft %q was never rendered", draft)
		}
	}
}

func TestLoop_MultipleRefinements(t *testing.T) {
	conv := &fakeConv{replies: []string{"v1", "v2", "v3"}}
	surface := &fakeSurface{answers: []string{"tweak a", "tweak b", ""}}

	loop := NewLoop(conv, surface).WithOutput(&bytes.Buffer{})
	got, err := loop.Run(t.Context(), Request{Diff: "d"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got != "v3" {
		t.Errorf("accepted draft = %q, want %q", got, "v3")
	}
	if len(conv.continues) != 2 {
		t.Errorf("ContinueSession called %d times, want 2", len(conv.continues))
	}
}

func TestLoop_CancelDuringReview(t *testing.T) {
	conv := &fakeConv{replies: []string{"draft"}}
	surface := &fakeSurface{cancelAt: 1}

	loop := NewLoop(conv, surface).WithOutput(&bytes.Buffer{})
	got, err := loop.Run(t.Context(), Request{Diff: "d"})

	if !jiberrors.Is(err, ui.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if got != "" {
		t.Errorf("cancelled run returned draft %q, want empty", got)
	}
	if len(conv.continues) != 0 {
		t.Error("no refinement turn should follow a cancel")
	}
}

func TestLoop_CancelAfterRefinement(t *testing.T) {
	conv := &fakeConv{replies: []string{"v1", "v2"}}
	surface := &fakeSurface{answers: []string{"tweak"}, cancelAt: 2}

	loop := NewLoop(conv, surface).WithOutput(&bytes.Buffer{})
	_, err := loop.Run(t.Context(), Request{Diff: "d"})

	if !jiberrors.Is(err, ui.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if len(conv.continues) != 1 {
		t.Errorf("ContinueSession called %d times, want 1", len(conv.continues))
	}
}

func TestLoop_WhitespaceFeedbackAccepts(t *testing.T) {
	conv := &fakeConv{replies: []string{"draft"}}
	surface := &fakeSurface{answers: []string{"   "}}

	loop := NewLoop(conv, surface).WithOutput(&bytes.Buffer{})
	got, err := loop.Run(t.Context(), Request{Diff: "d"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got != "draft" {
		t.Errorf("accepted draft = %q, want %q", got, "draft")
	}
	if len(conv.continues) != 0 {
		t.Error("whitespace-only feedback should accept, not refine")
	}
}

func TestLoop_FirstTurnCarriesDirectiveAndDiff(t *testing.T) {
	conv := &fakeConv{replies: []string{"draft"}}
	surface := &fakeSurface{answers: []string{""}}
	req := Request{
		Diff: "UNIQUE-DIFF-MARKER",
		Role: Role{Name: "backend", System: "You are a backend reviewer."},
	}

	loop := NewLoop(conv, surface).WithOutput(&bytes.Buffer{})
	if _, err := loop.Run(t.Context(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	start := conv.starts[0]
	if start.role != "backend" {
		t.Errorf("session role = %q, want %q", start.role, "backend")
	}
	if start.system != "You are a backend reviewer." {
		t.Errorf("system prompt = %q, want the role's system prompt", start.system)
	}
	if !strings.Contains(start.prompt, "Write a description for this change.") {
		t.Error("first turn missing the directive")
	}
	if !strings.Contains(start.prompt, "UNIQUE-DIFF-MARKER") {
		t.Error("first turn missing the diff")
	}
}

func TestLoop_ZeroRoleUsesBuiltin(t *testing.T) {
	conv := &fakeConv{replies: []string{"draft"}}
	surface := &fakeSurface{answers: []string{""}}

	loop := NewLoop(conv, surface).WithOutput(&bytes.Buffer{})
	if _, err := loop.Run(t.Context(), Request{Diff: "d"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	start := conv.starts[0]
	if start.role != DefaultRoleName {
		t.Errorf("session role = %q, want %q", start.role, DefaultRoleName)
	}
	if start.system != SystemPromptDescribe {
		t.Error("zero role should use the built-in system prompt")
	}
}

func TestLoop_DraftError(t *testing.T) {
	conv := &fakeConv{startErr: jiberrors.NewAIError("anthropic", "Chat", "boom")}
	surface := &fakeSurface{}

	loop := NewLoop(conv, surface).WithOutput(&bytes.Buffer{})
	_, err := loop.Run(t.Context(), Request{Diff: "d"})

	if !jiberrors.IsAIError(err) {
		t.Fatalf("expected AIError, got %v", err)
	}
	if surface.promptCount != 0 {
		t.Error("no feedback prompt should follow a failed draft")
	}
}

func TestLoop_RefineError(t *testing.T) {
	conv := &fakeConv{
		replies:     []string{"draft"},
		continueErr: jiberrors.NewAIError("anthropic", "Chat", "boom"),
	}
	surface := &fakeSurface{answers: []string{"tweak"}}

	loop := NewLoop(conv, surface).WithOutput(&bytes.Buffer{})
	_, err := loop.Run(t.Context(), Request{Diff: "d"})

	if !jiberrors.IsAIError(err) {
		t.Fatalf("expected AIError, got %v", err)
	}
}
