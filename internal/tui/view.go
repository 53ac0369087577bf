package tui

import (
	"strings"

	"github.com/MegaGrindStone/taskflow-chat/internal/models"
	"github.com/MegaGrindStone/taskflow-chat/internal/widget"
	"github.com/charmbracelet/lipgloss"
)

func (m Model) View() string {
	st := m.widget.State()
	if !st.Open {
		return lipgloss.JoinVertical(lipgloss.Left,
			toggleStyle.Render("💬 Chat"),
			helpStyle.Render("ctrl+o open • esc quit"),
		)
	}

	busy := ""
	if st.Loading {
		busy = m.spinner.View() + " " + helpStyle.Render("waiting for reply")
	}

	input := inputStyle
	if st.Loading {
		input = disabledInputStyle
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		headerStyle.Width(m.width).Render("TaskFlow Assistant"),
		m.viewport.View(),
		busy,
		m.renderShortcuts(),
		input.Width(max(m.width-2, 1)).Render(m.input.View()),
		helpStyle.Render("enter send • tab/shift+tab shortcuts • pgup/pgdown scroll • ctrl+o close • esc quit"),
	)
}

func (m Model) renderShortcuts() string {
	labels := make([]string, len(widget.Shortcuts))
	for i, s := range widget.Shortcuts {
		style := shortcutStyle
		if i == m.shortcut {
			style = selectedShortcutStyle
		}
		labels[i] = style.Render(strings.TrimSpace(s))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, labels...)
}

func (m Model) renderMessages(msgs []models.Message) string {
	var sb strings.Builder
	for i, msg := range msgs {
		if i > 0 {
			sb.WriteString("\n")
		}
		if msg.Role == models.RoleUser {
			sb.WriteString(userLabelStyle.Render("You"))
			sb.WriteString("\n")
			sb.WriteString(userTextStyle.Width(max(m.width-2, 1)).Render(msg.Text))
			sb.WriteString("\n")
			continue
		}
		sb.WriteString(assistantLabelStyle.Render("Assistant"))
		sb.WriteString("\n")
		sb.WriteString(m.renderMarkdown(msg.Text))
	}
	return sb.String()
}

func (m Model) renderMarkdown(text string) string {
	if m.renderer == nil {
		return text + "\n"
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		return text + "\n"
	}
	return out
}
