// Package tui is the terminal chat surface: an employee-code login screen
// followed by a streaming conversation view with quick-action shortcuts.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"axisconnect/internal/assistant"
	"axisconnect/internal/domain"
	"axisconnect/internal/prompt"
	"axisconnect/internal/session"
)

type mode int

const (
	modeLogin mode = iota
	modeChat
)

// Model is the Bubble Tea model for the assistant surface.
type Model struct {
	resources *session.Resources
	assistant *assistant.Assistant

	mode     mode
	sess     *session.Session
	input    textinput.Model
	viewport viewport.Model
	actions  []domain.QuickAction

	reply   *assistant.Reply
	partial string
	status  string
	ready   bool
	width   int
}

// New creates the surface. The assistant must already be wired; login is
// handled here.
func New(resources *session.Resources, asst *assistant.Assistant) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Enter your employee code"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		resources: resources,
		assistant: asst,
		input:     ti,
		viewport:  vp,
		actions:   assistant.QuickActions(),
		status:    "Sign in with your employee code.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

type loginMsg struct {
	sess *session.Session
	err  error
}

type replyMsg struct {
	reply *assistant.Reply
	err   error
}

type fragmentMsg struct {
	frag string
	err  error
}

func (m Model) loginCmd(code string) tea.Cmd {
	return func() tea.Msg {
		s, err := m.resources.Login(context.Background(), code)
		return loginMsg{sess: s, err: err}
	}
}

func (m Model) respondCmd(query string) tea.Cmd {
	return func() tea.Msg {
		r, err := m.assistant.Respond(context.Background(), m.sess, query)
		return replyMsg{reply: r, err: err}
	}
}

func readFragment(r *assistant.Reply) tea.Cmd {
	return func() tea.Msg {
		frag, err := r.Recv()
		return fragmentMsg{frag: frag, err: err}
	}
}

// Update handles key, window and streaming events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		_, qh := inputBoxStyle.GetFrameSize()
		reserved := qh + 4 // header, status, hints, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved)
		m.refreshTranscript()
		return m, nil

	case loginMsg:
		if msg.err != nil {
			if errors.Is(msg.err, domain.ErrNotFound) {
				m.status = "Unknown employee code. Try again."
			} else {
				m.status = "Login failed: " + msg.err.Error()
			}
			return m, nil
		}
		m.mode = modeChat
		m.sess = msg.sess
		m.input.Reset()
		m.input.Placeholder = "Ask Axis anything, or press F1-F5 for quick actions"
		m.status = fmt.Sprintf("Signed in as %s (%s).", m.sess.Profile().Name, m.sess.Profile().EmployeeCode)
		m.refreshTranscript()
		m.viewport.GotoTop()
		return m, nil

	case replyMsg:
		if msg.err != nil {
			if errors.Is(msg.err, session.ErrGenerationActive) {
				m.status = "Still answering the previous question."
			} else {
				m.status = "Error: " + msg.err.Error()
			}
			return m, nil
		}
		m.reply = msg.reply
		m.partial = ""
		m.status = "Axis is answering... (esc to stop)"
		m.refreshTranscript()
		return m, readFragment(m.reply)

	case fragmentMsg:
		if m.reply == nil {
			return m, nil
		}
		if msg.err == nil {
			m.partial += msg.frag
			m.refreshTranscript()
			m.viewport.GotoBottom()
			return m, readFragment(m.reply)
		}
		// io.EOF is normal completion; anything else already produced a
		// failure turn in the history.
		if msg.err == io.EOF {
			m.status = "Ready."
		} else {
			m.status = "The response was interrupted."
		}
		m.reply = nil
		m.partial = ""
		m.refreshTranscript()
		m.viewport.GotoBottom()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			if m.reply != nil {
				m.reply.Cancel()
			}
			return m, tea.Quit
		}
		switch m.mode {
		case modeLogin:
			if msg.String() == "enter" {
				code := strings.TrimSpace(m.input.Value())
				if code != "" {
					m.status = "Signing in..."
					return m, m.loginCmd(code)
				}
			}
		case modeChat:
			switch msg.String() {
			case "enter":
				q := strings.TrimSpace(m.input.Value())
				if q != "" && m.reply == nil {
					m.input.Reset()
					return m, m.respondCmd(q)
				}
			case "esc":
				if m.reply != nil {
					m.reply.Cancel()
					m.reply = nil
					m.partial = ""
					m.status = "Response cancelled."
					m.refreshTranscript()
					return m, nil
				}
				// Logout back to the login screen.
				m.resources.Logout(m.sess)
				m.mode = modeLogin
				m.sess = nil
				m.input.Reset()
				m.input.Placeholder = "Enter your employee code"
				m.status = "Signed out. Sign in with your employee code."
				m.viewport.SetContent("")
				return m, nil
			case "f1", "f2", "f3", "f4", "f5":
				idx := int(msg.String()[1] - '1')
				if idx >= 0 && idx < len(m.actions) && m.reply == nil {
					return m, m.respondCmd(m.actions[idx].Query)
				}
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the current screen.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("AxisConnect")
	input := inputBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	if m.mode == modeLogin {
		return header + "\n\n" + loginHintStyle.Render("Employee sign-in") + "\n" + input + "\n" + status
	}
	hints := hintStyle.Render(m.renderHints())
	return header + "\n" + m.viewport.View() + "\n" + input + "\n" + status + "\n" + hints
}

func (m Model) renderHints() string {
	parts := make([]string, 0, len(m.actions)+1)
	for i, a := range m.actions {
		parts = append(parts, fmt.Sprintf("F%d %s", i+1, a.Label))
	}
	parts = append(parts, "esc sign out")
	return strings.Join(parts, "  |  ")
}

// refreshTranscript rebuilds the viewport: the welcome banner, the committed
// history, and any in-flight partial reply. The banner is a surface element
// only; it is never part of the history itself.
func (m *Model) refreshTranscript() {
	if m.sess == nil {
		return
	}
	var b strings.Builder
	b.WriteString(welcomeStyle.Render(prompt.WelcomeMessage))
	b.WriteString("\n")
	for _, turn := range m.sess.History() {
		b.WriteString("\n")
		if turn.Role == domain.RoleUser {
			b.WriteString(userLabelStyle.Render("You") + "  " + turn.Content)
		} else {
			b.WriteString(axisLabelStyle.Render("Axis") + " " + turn.Content)
		}
		b.WriteString("\n")
	}
	if m.reply != nil {
		b.WriteString("\n" + axisLabelStyle.Render("Axis") + " " + m.partial + "▌\n")
	}
	m.viewport.SetContent(wrapToWidth(b.String(), m.viewport.Width))
}

func wrapToWidth(s string, width int) string {
	if width <= 0 {
		return s
	}
	return lipgloss.NewStyle().Width(width).Render(s)
}

var (
	headerStyle    = lipgloss.NewStyle().Bold(true)
	welcomeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	inputBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	hintStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	loginHintStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	userLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	axisLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
)

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
