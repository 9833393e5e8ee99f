// Package ui is the interactive surface jib prompts through: yes/no
// confirmations, free-text prompts, and the bounded reviewer
// multi-select.
//
// Every interactive call can return ErrCancelled when the user aborts.
// Callers propagate that error unchanged; only the outermost command
// shell translates it into an exit code.
package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	jiberrors "thoreinstein.com/jib/pkg/errors"
)

// ErrCancelled is returned when the user aborts an interactive prompt.
var ErrCancelled = jiberrors.New("cancelled")

// Surface is the set of interactive operations jib performs.
type Surface interface {
	// Confirm asks a yes/no question. An empty answer takes def.
	Confirm(prompt string, def bool) (bool, error)

	// PromptText reads one line of free text. An empty line is a valid
	// answer, not a cancellation.
	PromptText(placeholder string) (string, error)

	// MultiSelect presents a checkbox picker over options, pre-checking
	// preselected, allowing at most maxPicks new selections (0 means
	// unbounded). The picks come back in option order.
	MultiSelect(header string, options, preselected []string, maxPicks int) ([]string, error)
}

// Terminal implements Surface on a terminal. The mutex serializes
// prompts so concurrent callers cannot interleave on the one terminal.
type Terminal struct {
	mu     sync.Mutex
	in     io.Reader
	out    io.Writer
	reader *bufio.Reader
}

var _ Surface = (*Terminal)(nil)

// TerminalOption configures a Terminal.
type TerminalOption func(*Terminal)

// WithIO sets custom reader and writer for testing.
func WithIO(r io.Reader, w io.Writer) TerminalOption {
	return func(t *Terminal) {
		if r != nil {
			t.in = r
		}
		if w != nil {
			t.out = w
		}
	}
}

// NewTerminal creates a Terminal on stdin/stdout.
func NewTerminal(opts ...TerminalOption) *Terminal {
	t := &Terminal{
		in:  os.Stdin,
		out: os.Stdout,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.reader = bufio.NewReader(t.in)
	return t
}

// Confirm asks a yes/no question. The suffix shows which answer an
// empty line takes.
func (t *Terminal) Confirm(prompt string, def bool) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	suffix := "[y/N]"
	if def {
		suffix = "[Y/n]"
	}
	fmt.Fprintf(t.out, "%s %s ", prompt, suffix)

	input, err := t.readLine()
	if err != nil {
		return false, err
	}

	input = strings.ToLower(input)
	if input == "" {
		return def, nil
	}
	return strings.HasPrefix(input, "y"), nil
}

// PromptText reads one line of free text.
func (t *Terminal) PromptText(placeholder string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if placeholder != "" {
		fmt.Fprintf(t.out, "%s\n", placeholder)
	}
	fmt.Fprintf(t.out, "> ")

	return t.readLine()
}

// readLine reads one trimmed line. EOF with nothing pending is a
// cancellation; a final line without a trailing newline still counts.
func (t *Terminal) readLine() (string, error) {
	line, err := t.reader.ReadString('\n')
	trimmed := strings.TrimSpace(line)
	if err != nil {
		if err == io.EOF && trimmed != "" {
			return trimmed, nil
		}
		if err == io.EOF {
			return "", ErrCancelled
		}
		return "", jiberrors.Wrap(err, "failed to read input")
	}
	return trimmed, nil
}

// IsInteractive reports whether stdin is attached to a terminal.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
