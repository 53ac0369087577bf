// Package tui is the terminal shell of the chat widget.
package tui

import (
	"context"

	"github.com/MegaGrindStone/taskflow-chat/internal/widget"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
)

// Height of everything around the message list: header, busy line, shortcuts, the bordered input and
// the help line.
const chromeHeight = 8

// Model renders a widget.Widget in the terminal and feeds it key presses.
type Model struct {
	ctx    context.Context
	widget *widget.Widget

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	renderer     *glamour.TermRenderer
	glamourStyle string

	// Index into widget.Shortcuts of the last inserted shortcut, -1 when none.
	shortcut int

	width  int
	height int
	ready  bool
}

// replyMsg carries the outcome of a round trip back into the update loop.
type replyMsg struct {
	sub widget.Submission
	res widget.Result
}

// Option configures a Model.
type Option func(*Model)

// WithGlamourStyle selects a standard glamour style (such as "dark", "light" or "notty") for assistant
// replies instead of detecting one from the terminal.
func WithGlamourStyle(style string) Option {
	return func(m *Model) {
		m.glamourStyle = style
	}
}

// New creates the terminal shell of w. Round trips run with ctx.
func New(ctx context.Context, w *widget.Widget, opts ...Option) Model {
	ti := textinput.New()
	ti.Placeholder = "Type..."
	ti.CharLimit = 1000
	ti.Prompt = "› "

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))

	m := Model{
		ctx:      ctx,
		widget:   w,
		input:    ti,
		viewport: viewport.New(80, 20),
		spinner:  sp,
		shortcut: -1,
		width:    80,
		height:   20 + chromeHeight,
	}
	for _, opt := range opts {
		opt(&m)
	}

	st := w.State()
	m.input.SetValue(st.Draft)
	if st.Open {
		m.input.Focus()
	}
	m.resize(m.width, m.height)
	return m
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.ready = true
		return m, nil

	case tea.KeyMsg:
		return m.updateKey(msg)

	case replyMsg:
		m.widget.Complete(msg.sub, msg.res)
		if m.widget.State().Open {
			m.input.Focus()
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.widget.State().Loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit

	case "ctrl+o":
		if m.widget.Toggle() && !m.widget.State().Loading {
			m.input.Focus()
		} else {
			m.input.Blur()
		}
		m.refresh()
		return m, nil
	}

	st := m.widget.State()
	if !st.Open {
		return m, nil
	}

	switch msg.String() {
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case "tab":
		m.cycleShortcut(1)
		return m, nil

	case "shift+tab":
		m.cycleShortcut(-1)
		return m, nil
	}

	if st.Loading {
		return m, nil
	}

	if msg.String() == "enter" {
		return m.submit()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.widget.SetDraft(m.input.Value())
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	sub, ok := m.widget.Submit(m.input.Value())
	if !ok {
		return m, nil
	}

	m.input.Reset()
	m.input.Blur()
	m.shortcut = -1
	m.refresh()

	return m, tea.Batch(m.send(sub), m.spinner.Tick)
}

// send performs the round trip off the update loop.
func (m Model) send(sub widget.Submission) tea.Cmd {
	ctx, w := m.ctx, m.widget
	return func() tea.Msg {
		return replyMsg{sub: sub, res: w.Chat(ctx, sub)}
	}
}

func (m *Model) cycleShortcut(step int) {
	n := len(widget.Shortcuts)
	switch {
	case m.shortcut < 0 && step < 0:
		m.shortcut = n - 1
	case m.shortcut < 0:
		m.shortcut = 0
	default:
		m.shortcut = (m.shortcut + step + n) % n
	}

	value := widget.Shortcuts[m.shortcut]
	m.widget.Prefill(value)
	m.input.SetValue(value)
	m.input.CursorEnd()
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height

	m.viewport.Width = width
	m.viewport.Height = max(height-chromeHeight, 1)
	m.input.Width = max(width-8, 1)

	style := glamour.WithAutoStyle()
	if m.glamourStyle != "" {
		style = glamour.WithStandardStyle(m.glamourStyle)
	}
	renderer, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(max(width-4, 20)))
	if err == nil {
		m.renderer = renderer
	}

	m.refresh()
}

// refresh re-renders the conversation and scrolls to the newest message.
func (m *Model) refresh() {
	m.viewport.SetContent(m.renderMessages(m.widget.State().Messages))
	m.viewport.GotoBottom()
}
