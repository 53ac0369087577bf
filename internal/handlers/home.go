package handlers

import (
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/MegaGrindStone/taskflow-chat/internal/models"
	"github.com/MegaGrindStone/taskflow-chat/internal/widget"
)

type message struct {
	ID      string
	Role    string
	Content template.HTML
}

type shortcut struct {
	Label string
	Value string
}

type widgetView struct {
	Open      bool
	Loading   bool
	CanSubmit bool
	Draft     string
	Revision  uint64
	Messages  []message
	Shortcuts []shortcut
}

type homePageData struct {
	Widget widgetView
}

// HandleHome renders the page hosting the widget of the caller's session.
func (m Main) HandleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	view, err := newWidgetView(m.peek(w, r))
	if err != nil {
		m.logger.Error("Failed to render widget", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err := m.templates.ExecuteTemplate(w, "home.html", homePageData{Widget: view}); err != nil {
		m.logger.Error("Failed to execute home template", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func newWidgetView(st widget.State) (widgetView, error) {
	msgs := make([]message, len(st.Messages))
	for i, msg := range st.Messages {
		content, err := renderMessage(msg)
		if err != nil {
			return widgetView{}, fmt.Errorf("failed to render message %s: %w", msg.ID, err)
		}
		msgs[i] = message{
			ID:      msg.ID,
			Role:    string(msg.Role),
			Content: content,
		}
	}

	shortcuts := make([]shortcut, len(widget.Shortcuts))
	for i, s := range widget.Shortcuts {
		shortcuts[i] = shortcut{Label: strings.TrimSpace(s), Value: s}
	}

	return widgetView{
		Open:      st.Open,
		Loading:   st.Loading,
		CanSubmit: st.CanSubmit(),
		Draft:     st.Draft,
		Revision:  st.Revision,
		Messages:  msgs,
		Shortcuts: shortcuts,
	}, nil
}

// renderMessage renders assistant replies as markdown; user text is shown as typed.
func renderMessage(msg models.Message) (template.HTML, error) {
	if msg.Role != models.RoleAssistant {
		return template.HTML(template.HTMLEscapeString(msg.Text)), nil
	}

	html, err := models.RenderMarkdown(msg.Text)
	if err != nil {
		return "", err
	}
	return template.HTML(html), nil
}

func (m Main) renderWidget(w io.Writer, st widget.State) error {
	view, err := newWidgetView(st)
	if err != nil {
		return err
	}
	return m.templates.ExecuteTemplate(w, "widget", view)
}
