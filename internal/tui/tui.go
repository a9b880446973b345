// Package tui is the terminal chat client.
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"pgagent/internal/chat"
	"pgagent/internal/status"
)

// sessionID is the only chat session the terminal client uses.
const sessionID = "tui"

// StatusSource reports MCP server availability. *status.Monitor implements it.
type StatusSource interface {
	Status(ctx context.Context) status.Status
}

type theme struct {
	header    lipgloss.Style
	user      lipgloss.Style
	assistant lipgloss.Style
	errorMsg  lipgloss.Style
	ok        lipgloss.Style
	down      lipgloss.Style
	help      lipgloss.Style
}

func newTheme() theme {
	muted := lipgloss.Color("#8b949e")
	return theme{
		header:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#336791")),
		user:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#05ffa1")),
		assistant: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#58a6ff")),
		errorMsg:  lipgloss.NewStyle().Foreground(lipgloss.Color("#ff6b6b")),
		ok:        lipgloss.NewStyle().Foreground(lipgloss.Color("#3fb950")),
		down:      lipgloss.NewStyle().Foreground(lipgloss.Color("#f85149")),
		help:      lipgloss.NewStyle().Foreground(muted),
	}
}

type replyMsg struct {
	msg chat.Message
	err error
}

type statusMsg struct {
	st status.Status
}

// Model is the bubbletea model of the chat client.
type Model struct {
	svc      *chat.Service
	status   StatusSource
	renderer Renderer
	theme    theme

	input    textinput.Model
	timeline viewport.Model
	spinner  spinner.Model

	busy       bool
	statusLine string
	notice     string
	width      int
	height     int
}

// New creates the model. renderer may be nil for plain text output.
func New(svc *chat.Service, st StatusSource, renderer Renderer) Model {
	input := textinput.New()
	input.Prompt = "❯ "
	input.CharLimit = 4000
	input.Placeholder = "Ask about database performance, optimization, or health analysis... (/help)"
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	timeline := viewport.New(80, 20)
	timeline.MouseWheelEnabled = true

	return Model{
		svc:        svc,
		status:     st,
		renderer:   renderer,
		theme:      newTheme(),
		input:      input,
		timeline:   timeline,
		spinner:    sp,
		statusLine: "checking MCP Pro server...",
		width:      80,
		height:     24,
	}
}

// Run starts the program and blocks until the user quits.
func Run(svc *chat.Service, st StatusSource, renderer Renderer) error {
	_, err := tea.NewProgram(New(svc, st, renderer), tea.WithAltScreen(), tea.WithMouseCellMotion()).Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.statusCmd())
}

func (m Model) statusCmd() tea.Cmd {
	return func() tea.Msg {
		return statusMsg{st: m.status.Status(context.Background())}
	}
}

func (m Model) submitCmd(text string) tea.Cmd {
	return func() tea.Msg {
		msg, err := m.svc.Submit(context.Background(), sessionID, text)
		return replyMsg{msg: msg, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.input.Width = max(msg.Width-4, 10)
		m.timeline.Width = msg.Width
		m.timeline.Height = max(msg.Height-6, 3)
		m.renderTimeline()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			text := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			if text == "" {
				return m, nil
			}
			if strings.HasPrefix(text, "/") {
				return m.command(text)
			}
			return m.ask(text)
		}

	case statusMsg:
		if msg.st.SSE {
			m.statusLine = m.theme.ok.Render("● " + msg.st.Headline())
		} else {
			m.statusLine = m.theme.down.Render("● " + msg.st.Headline())
		}

	case replyMsg:
		m.busy = false
		if msg.err != nil {
			m.notice = msg.err.Error()
		}
		m.renderTimeline()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.timeline, cmd = m.timeline.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) ask(text string) (tea.Model, tea.Cmd) {
	if m.busy {
		m.notice = chat.ErrBusy.Error()
		return m, nil
	}
	m.busy = true
	m.notice = ""
	// Show the question right away; Submit appends it before asking.
	m.renderPending(text)
	return m, m.submitCmd(text)
}

func (m Model) command(text string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(text)
	m.notice = ""
	switch fields[0] {
	case "/quit", "/exit":
		return m, tea.Quit
	case "/clear":
		if err := m.svc.Clear(sessionID); err != nil {
			m.notice = err.Error()
			return m, nil
		}
		m.renderTimeline()
	case "/status":
		return m, m.statusCmd()
	case "/examples":
		var b strings.Builder
		for _, g := range chat.Examples() {
			fmt.Fprintf(&b, "%s\n", m.theme.header.Render(g.Title))
			for _, q := range g.Queries {
				fmt.Fprintf(&b, "  • %s\n", q)
			}
		}
		m.timeline.SetContent(b.String())
	case "/quick":
		qas := chat.QuickActions()
		if len(fields) < 2 {
			var b strings.Builder
			for i, qa := range qas {
				fmt.Fprintf(&b, "/quick %d  %s\n", i+1, qa.Label)
			}
			m.timeline.SetContent(b.String())
			return m, nil
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil || n < 1 || n > len(qas) {
			m.notice = fmt.Sprintf("usage: /quick <1-%d>", len(qas))
			return m, nil
		}
		return m.ask(qas[n-1].Query)
	case "/help":
		m.timeline.SetContent(helpText)
	default:
		m.notice = "unknown command " + fields[0] + " (try /help)"
	}
	return m, nil
}

const helpText = `Commands:
  /quick [n]   list or run a quick action
  /examples    show example queries
  /clear       clear chat history
  /status      re-check the MCP Pro server
  /quit        exit (also Ctrl+C, Esc)`

func (m *Model) renderTimeline() {
	m.timeline.SetContent(m.transcriptView(m.svc.Messages(sessionID)))
	m.timeline.GotoBottom()
}

func (m *Model) renderPending(question string) {
	msgs := append(m.svc.Messages(sessionID), chat.Message{Role: chat.RoleUser, Content: question})
	m.timeline.SetContent(m.transcriptView(msgs))
	m.timeline.GotoBottom()
}

func (m Model) transcriptView(msgs []chat.Message) string {
	if len(msgs) == 0 {
		return m.theme.help.Render("No messages yet. Type a question or /quick to start.")
	}
	var b strings.Builder
	for _, msg := range msgs {
		switch {
		case msg.Role == chat.RoleUser:
			b.WriteString(m.theme.user.Render("You") + "\n" + msg.Content + "\n\n")
		case msg.Error:
			b.WriteString(m.theme.assistant.Render("Agent") + "\n" + m.theme.errorMsg.Render(msg.Content) + "\n\n")
		default:
			b.WriteString(m.theme.assistant.Render("Agent") + "\n" + RenderMarkdown(m.renderer, msg.Content) + "\n\n")
		}
	}
	return b.String()
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.theme.header.Render("PostgreSQL Pro MCP Agent") + "  " + m.statusLine + "\n")
	b.WriteString(m.timeline.View() + "\n")
	switch {
	case m.busy:
		b.WriteString(m.spinner.View() + " Analyzing database... This may take a moment for complex queries.\n")
	case m.notice != "":
		b.WriteString(m.theme.errorMsg.Render(m.notice) + "\n")
	default:
		b.WriteString("\n")
	}
	b.WriteString(m.input.View())
	return b.String()
}
