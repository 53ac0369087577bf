// Package widget implements the state of a chat widget: the conversation, the composer, the
// open/closed toggle and the single-flight submission protocol with optimistic update and rollback.
// Presentation shells render State and drive the widget through its methods.
package widget

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/MegaGrindStone/taskflow-chat/internal/models"
)

// Transport delivers one submission to the chat backend and returns the reply text. An empty reply
// with a nil error is a success.
type Transport interface {
	Chat(ctx context.Context, req models.ChatRequest) (string, error)
}

// DefaultGreeting is the assistant message a new widget starts with.
const DefaultGreeting = "Welcome! Commands:\n- add [task]\n- edit [old] to [new]\n- delete [task]\n- complete [task]\n- show tasks"

// Shortcuts are the quick-insert values offered below the message list. Selecting one replaces the
// composer text with it.
var Shortcuts = []string{"add ", "edit ", "delete ", "complete ", "show tasks"}

// State is a snapshot of everything a shell needs to render the widget. Revision grows with every
// change, so shells receiving snapshots out of order can drop stale ones.
type State struct {
	Open     bool
	Loading  bool
	Draft    string
	Messages []models.Message
	Revision uint64
}

// CanSubmit reports whether the composer would accept a submission.
func (s State) CanSubmit() bool {
	return !s.Loading && strings.TrimSpace(s.Draft) != ""
}

// Submission is a pending round trip started by Begin.
type Submission struct {
	PendingID string
	Request   models.ChatRequest
}

// Widget holds the state of one chat widget instance. It is safe for concurrent use.
type Widget struct {
	mu       sync.Mutex
	conv     *Conversation
	open     bool
	loading  bool
	draft    string
	revision uint64

	greeting   string
	userID     string
	transport  Transport
	newMessage MessageFactory

	logger *slog.Logger
}

// Option configures a Widget.
type Option func(*Widget)

// WithGreeting replaces the initial assistant message. An empty text starts with an empty conversation.
func WithGreeting(text string) Option {
	return func(w *Widget) {
		w.greeting = text
	}
}

// WithMessageFactory replaces the function used to create messages.
func WithMessageFactory(f MessageFactory) Option {
	return func(w *Widget) {
		w.newMessage = f
	}
}

// WithOpen sets the initial open state.
func WithOpen(open bool) Option {
	return func(w *Widget) {
		w.open = open
	}
}

// New creates a closed, idle widget for the given session identifier. The conversation starts with
// DefaultGreeting unless WithGreeting says otherwise.
func New(userID string, transport Transport, logger *slog.Logger, opts ...Option) *Widget {
	w := &Widget{
		greeting:   DefaultGreeting,
		userID:     userID,
		transport:  transport,
		newMessage: models.NewMessage,
		logger:     logger.With(slog.String("module", "widget"), slog.String("userID", userID)),
	}
	for _, opt := range opts {
		opt(w)
	}

	w.conv = NewConversation()
	if w.greeting != "" {
		w.conv.Append(w.newMessage(models.RoleAssistant, w.greeting))
	}
	return w
}

// UserID returns the session identifier sent with every request.
func (w *Widget) UserID() string {
	return w.userID
}

// State returns a snapshot of the widget.
func (w *Widget) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.stateLocked()
}

func (w *Widget) stateLocked() State {
	return State{
		Open:     w.open,
		Loading:  w.loading,
		Draft:    w.draft,
		Messages: w.conv.Messages(),
		Revision: w.revision,
	}
}

// Toggle flips the open state and returns the new one.
func (w *Widget) Toggle() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.open = !w.open
	w.revision++
	return w.open
}

// SetOpen sets the open state.
func (w *Widget) SetOpen(open bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.open != open {
		w.open = open
		w.revision++
	}
}

// SetDraft replaces the composer text.
func (w *Widget) SetDraft(text string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.draft != text {
		w.draft = text
		w.revision++
	}
}

// Prefill replaces the composer text with a quick shortcut.
func (w *Widget) Prefill(shortcut string) {
	w.SetDraft(shortcut)
}

// Begin starts a submission of the current draft. It does nothing and returns false when the trimmed
// draft is empty or another submission is pending. Otherwise it captures the conversation as history,
// appends the user message with the untrimmed draft, clears the composer and marks the widget busy.
func (w *Widget) Begin() (Submission, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.beginLocked(w.draft)
}

// Submit starts a submission of text as if it had been typed into the composer. When it refuses, as
// Begin does, the composer is left untouched.
func (w *Widget) Submit(text string) (Submission, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.beginLocked(text)
}

// SyncDraft replaces the composer text unless a submission is pending, and reports whether it did.
func (w *Widget) SyncDraft(text string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.loading {
		return false
	}
	if w.draft != text {
		w.draft = text
		w.revision++
	}
	return true
}

func (w *Widget) beginLocked(query string) (Submission, bool) {
	if w.loading || strings.TrimSpace(query) == "" {
		return Submission{}, false
	}

	history := w.conv.History()

	msg := w.newMessage(models.RoleUser, query)
	w.conv.Append(msg)
	w.draft = ""
	w.loading = true
	w.revision++

	return Submission{
		PendingID: msg.ID,
		Request: models.ChatRequest{
			Query:       query,
			UserID:      w.userID,
			ChatHistory: history,
		},
	}, true
}

// Chat performs the round trip of sub over the widget's transport. It does not touch widget state, so
// it can run outside of whatever loop owns the widget.
func (w *Widget) Chat(ctx context.Context, sub Submission) Result {
	reply, err := w.transport.Chat(ctx, sub.Request)
	if err != nil {
		w.logger.Error("Failed to deliver message",
			slog.String("messageID", sub.PendingID),
			slog.String(errLoggerKey, err.Error()))
		return Failed(err)
	}
	return Ok(reply)
}

// Complete applies the result of sub to the conversation in a single step and marks the widget idle.
func (w *Widget) Complete(sub Submission, res Result) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.conv.replace(Reduce(w.conv.messages, sub.PendingID, res, w.newMessage))
	w.loading = false
	w.revision++
}

// Send runs a whole submission synchronously and reports whether one was started.
func (w *Widget) Send(ctx context.Context) bool {
	sub, ok := w.Begin()
	if !ok {
		return false
	}
	w.Complete(sub, w.Chat(ctx, sub))
	return true
}

const errLoggerKey = "err"
