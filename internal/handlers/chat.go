package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/MegaGrindStone/taskflow-chat/internal/widget"
	"github.com/tmaxmax/go-sse"
)

// SSE event type carrying a re-rendered widget.
var widgetSSEType = sse.Type("widget")

// HandleChats accepts a submission through the "message" form field. The widget's single-flight guard
// decides whether a round trip starts: a blank message or a pending round trip yields 204 No Content
// and changes nothing, not even the composer. Once the server is shutting down, submissions are
// answered with 503 Service Unavailable.
//
// When a round trip starts, the handler responds immediately with the widget showing the user's
// message and the busy indicator. The round trip finishes in the background and its outcome, a reply
// or the rollback of the message, is pushed to the session's SSE topic.
func (m Main) HandleChats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		m.logger.Error("Method not allowed", slog.String("method", r.Method))
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !m.inflight.add() {
		http.Error(w, "Server is shutting down", http.StatusServiceUnavailable)
		return
	}

	wdg := m.session(w, r)

	sub, ok := wdg.Submit(r.FormValue("message"))
	if !ok {
		m.inflight.done()
		rejectedSubmissionsTotal.Inc()
		m.logger.Debug("Submission ignored", slog.String("userID", wdg.UserID()))
		w.WriteHeader(http.StatusNoContent)
		return
	}

	st := wdg.State()

	go m.complete(wdg, sub)

	if err := m.renderWidget(w, st); err != nil {
		m.logger.Error("Failed to render widget", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// complete runs the round trip of sub to completion and publishes the resulting widget. It is not
// bound to the request that started it.
func (m Main) complete(wdg *widget.Widget, sub widget.Submission) {
	defer m.inflight.done()

	start := time.Now()
	res := wdg.Chat(context.Background(), sub)
	roundTripSeconds.Observe(time.Since(start).Seconds())

	wdg.Complete(sub, res)

	outcome := outcomeSuccess
	if res.Err != nil {
		outcome = outcomeFailure
	}
	submissionsTotal.WithLabelValues(outcome).Inc()

	m.publish(wdg)
}

func (m Main) publish(wdg *widget.Widget) {
	var sb strings.Builder
	if err := m.renderWidget(&sb, wdg.State()); err != nil {
		m.logger.Error("Failed to render widget",
			slog.String("userID", wdg.UserID()),
			slog.String(errLoggerKey, err.Error()))
		return
	}

	msg := sse.Message{
		Type: widgetSSEType,
	}
	msg.AppendData(sb.String())
	if err := m.sseSrv.Publish(&msg, widgetTopic(wdg.UserID())); err != nil {
		m.logger.Error("Failed to publish widget",
			slog.String("userID", wdg.UserID()),
			slog.String(errLoggerKey, err.Error()))
	}
}

// HandleToggle opens or closes the widget and returns it re-rendered. The optional "draft" form field
// carries text typed but not yet submitted, so it survives closing the widget.
func (m Main) HandleToggle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	wdg := m.session(w, r)
	if r.PostForm.Has("draft") {
		wdg.SyncDraft(r.PostForm.Get("draft"))
	}
	wdg.Toggle()

	if err := m.renderWidget(w, wdg.State()); err != nil {
		m.logger.Error("Failed to render widget", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// HandlePrefill replaces the composer text with one of the quick shortcuts, given in the "shortcut"
// form field, and returns the widget re-rendered.
func (m Main) HandlePrefill(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	value := r.FormValue("shortcut")
	if !slices.Contains(widget.Shortcuts, value) {
		http.Error(w, "Unknown shortcut", http.StatusBadRequest)
		return
	}

	wdg := m.session(w, r)
	wdg.Prefill(value)

	if err := m.renderWidget(w, wdg.State()); err != nil {
		m.logger.Error("Failed to render widget", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
