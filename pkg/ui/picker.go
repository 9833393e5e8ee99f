package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	jiberrors "thoreinstein.com/jib/pkg/errors"
)

// Styles for the picker UI.
var (
	pickerHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15"))

	pickerItemStyle = lipgloss.NewStyle().
			PaddingLeft(2)

	pickerCursorStyle = lipgloss.NewStyle().
				PaddingLeft(2).
				Background(lipgloss.Color("236"))

	pickerCheckboxSelected   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render("[x]")
	pickerCheckboxUnselected = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render("[ ]")

	pickerHelpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))

	pickerLimitStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))
)

// pickerModel is the bubbletea model for the bounded multi-select.
type pickerModel struct {
	header   string
	options  []string
	selected map[int]bool
	cursor   int
	maxPicks int

	limitHit  bool
	confirmed bool
	quitted   bool
}

// newPickerModel creates a picker with preselected options checked.
// Preselection may exceed maxPicks (e.g. a PR already carries more
// review requests than the bound); the bound applies to new picks only,
// so nothing already assigned is silently dropped.
func newPickerModel(header string, options, preselected []string, maxPicks int) pickerModel {
	pre := make(map[string]bool, len(preselected))
	for _, p := range preselected {
		pre[p] = true
	}

	selected := make(map[int]bool, len(options))
	for i, opt := range options {
		if pre[opt] {
			selected[i] = true
		}
	}

	return pickerModel{
		header:   header,
		options:  options,
		selected: selected,
		cursor:   0,
		maxPicks: maxPicks,
	}
}

// Init implements tea.Model.
func (m pickerModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
			m.limitHit = false
		case "down", "j":
			if m.cursor < len(m.options)-1 {
				m.cursor++
			}
			m.limitHit = false
		case " ":
			if m.selected[m.cursor] {
				delete(m.selected, m.cursor)
				m.limitHit = false
			} else if m.maxPicks > 0 && m.pickCount() >= m.maxPicks {
				m.limitHit = true
			} else {
				m.selected[m.cursor] = true
				m.limitHit = false
			}
		case "enter":
			m.confirmed = true
			return m, tea.Quit
		case "q", "esc", "ctrl+c":
			m.quitted = true
			return m, tea.Quit
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m pickerModel) View() string {
	if len(m.options) == 0 {
		return "Nothing to select.\n"
	}

	var b strings.Builder

	b.WriteString(pickerHeaderStyle.Render(m.header))
	b.WriteString("\n\n")

	for i, opt := range m.options {
		checkbox := pickerCheckboxUnselected
		if m.selected[i] {
			checkbox = pickerCheckboxSelected
		}

		line := fmt.Sprintf("%s %s", checkbox, opt)
		if i == m.cursor {
			b.WriteString(pickerCursorStyle.Render(line))
		} else {
			b.WriteString(pickerItemStyle.Render(line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.limitHit {
		b.WriteString(pickerLimitStyle.Render(fmt.Sprintf("at most %d selections", m.maxPicks)))
		b.WriteString("\n")
	}
	help := "↑/↓ navigate • space toggle • enter confirm • esc cancel"
	if m.maxPicks > 0 {
		help = fmt.Sprintf("%s • max %d", help, m.maxPicks)
	}
	b.WriteString(pickerHelpStyle.Render(help))
	b.WriteString("\n")

	return b.String()
}

// pickCount returns the number of checked options.
func (m pickerModel) pickCount() int {
	n := 0
	for _, sel := range m.selected {
		if sel {
			n++
		}
	}
	return n
}

// picks returns the checked options in option order.
func (m pickerModel) picks() []string {
	out := make([]string, 0, len(m.selected))
	for i, opt := range m.options {
		if m.selected[i] {
			out = append(out, opt)
		}
	}
	return out
}

// MultiSelect runs the checkbox picker. ESC, q, or Ctrl-C cancel.
func (t *Terminal) MultiSelect(header string, options, preselected []string, maxPicks int) ([]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(options) == 0 {
		return nil, nil
	}

	model := newPickerModel(header, options, preselected, maxPicks)
	p := tea.NewProgram(model, tea.WithInput(t.in), tea.WithOutput(t.out))

	finalModel, err := p.Run()
	if err != nil {
		return nil, jiberrors.Wrap(err, "picker failed")
	}

	m, ok := finalModel.(pickerModel)
	if !ok {
		return nil, jiberrors.New("unexpected picker model type")
	}

	if m.quitted {
		return nil, ErrCancelled
	}
	return m.picks(), nil
}
