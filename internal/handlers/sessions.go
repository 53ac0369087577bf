package handlers

import (
	"net/http"
	"sync"

	"github.com/MegaGrindStone/taskflow-chat/internal/services"
	"github.com/MegaGrindStone/taskflow-chat/internal/widget"
)

// sessionCookie holds the browser's session identifier, playing the role of client-side storage.
const sessionCookie = "uid"

// sessionCookieMaxAge keeps the identifier for ten years.
const sessionCookieMaxAge = 10 * 365 * 24 * 60 * 60

// registry keeps one widget per browser session for the life of the process.
type registry struct {
	mu        sync.Mutex
	widgets   map[string]*widget.Widget
	newWidget WidgetFactory
}

func newRegistry(newWidget WidgetFactory) *registry {
	return &registry{
		widgets:   make(map[string]*widget.Widget),
		newWidget: newWidget,
	}
}

func (r *registry) get(userID string) *widget.Widget {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.widgets[userID]
	if !ok {
		w = r.newWidget(userID)
		r.widgets[userID] = w
		activeWidgets.Inc()
	}
	return w
}

func (r *registry) lookup(userID string) (*widget.Widget, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.widgets[userID]
	return w, ok
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.widgets)
}

func sessionIDFromRequest(r *http.Request) (string, bool) {
	c, err := r.Cookie(sessionCookie)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// session returns the widget of the caller, issuing a session cookie on the first visit.
func (m Main) session(w http.ResponseWriter, r *http.Request) *widget.Widget {
	userID, ok := sessionIDFromRequest(r)
	if !ok {
		userID = issueSession(w)
	}
	return m.widgets.get(userID)
}

// peek returns the state to render for the caller without registering a widget. Callers without a
// widget see a fresh one; it is kept only once they act on it.
func (m Main) peek(w http.ResponseWriter, r *http.Request) widget.State {
	userID, ok := sessionIDFromRequest(r)
	if !ok {
		userID = issueSession(w)
	}
	if wdg, ok := m.widgets.lookup(userID); ok {
		return wdg.State()
	}
	return m.widgets.newWidget(userID).State()
}

func issueSession(w http.ResponseWriter) string {
	userID := services.NewSessionID()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    userID,
		Path:     "/",
		MaxAge:   sessionCookieMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return userID
}
