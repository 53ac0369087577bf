package handlers

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"sync"
	"time"

	taskflowchat "github.com/MegaGrindStone/taskflow-chat"
	"github.com/MegaGrindStone/taskflow-chat/internal/widget"
	"github.com/tmaxmax/go-sse"
)

// WidgetFactory creates the widget of a session seen for the first time.
type WidgetFactory func(userID string) *widget.Widget

// Main handles the web widget: it renders the widget of each browser session, accepts submissions and
// pushes the outcome of every round trip to the browser through server-sent events.
type Main struct {
	sseSrv    *sse.Server
	templates *template.Template

	widgets  *registry
	inflight *roundTrips

	logger *slog.Logger
}

const errLoggerKey = "err"

// NewMain creates a new Main instance that creates widgets with newWidget. It initializes the SSE
// server and parses the required HTML templates from the embedded filesystem. Every SSE client is
// subscribed to the topic of its own session only.
func NewMain(newWidget WidgetFactory, logger *slog.Logger) (Main, error) {
	// We parse templates from three distinct directories to separate layout, pages, and partial views
	tmpl, err := template.ParseFS(
		taskflowchat.TemplateFS,
		"templates/layout/*.html",
		"templates/pages/*.html",
		"templates/partials/*.html",
	)
	if err != nil {
		return Main{}, err
	}

	logger = logger.With(slog.String("module", "main"))

	return Main{
		sseSrv: &sse.Server{
			OnSession: func(s *sse.Session) (sse.Subscription, bool) {
				userID, ok := sessionIDFromRequest(s.Req)
				if !ok {
					logger.Warn("SSE session without session cookie")
					http.Error(s.Res, "session cookie is required", http.StatusBadRequest)
					return sse.Subscription{}, false
				}

				return sse.Subscription{
					Client:      s,
					LastEventID: s.LastEventID,
					Topics:      []string{sse.DefaultTopic, widgetTopic(userID)},
				}, true
			},
		},
		templates: tmpl,
		widgets:   newRegistry(newWidget),
		inflight:  &roundTrips{},
		logger:    logger,
	}, nil
}

// roundTrips tracks background round trips. Once closed it admits no new ones, so Add never races the
// final Wait.
type roundTrips struct {
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func (f *roundTrips) add() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return false
	}
	f.wg.Add(1)
	return true
}

func (f *roundTrips) done() {
	f.wg.Done()
}

// close stops admitting round trips and returns a channel closed once the admitted ones are done.
func (f *roundTrips) close() <-chan struct{} {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()

	done := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(done)
	}()
	return done
}

func widgetTopic(userID string) string {
	return fmt.Sprintf("widget-%s", userID)
}

// HandleSSE streams widget updates of the caller's session.
func (m Main) HandleSSE(w http.ResponseWriter, r *http.Request) {
	m.sseSrv.ServeHTTP(w, r)
}

// Shutdown gracefully terminates the Main instance's SSE server. New submissions are refused from
// then on. Round trips in flight are given until ctx is done to finish, so their outcome still
// reaches the browser. It then broadcasts a close message to all connected clients and waits up to 5
// seconds for connections to terminate. After the timeout, any remaining connections are forcefully
// closed.
func (m Main) Shutdown(ctx context.Context) error {
	select {
	case <-m.inflight.close():
	case <-ctx.Done():
		m.logger.Warn("Shutting down with round trips in flight")
	}

	e := &sse.Message{Type: sse.Type("closeChat")}
	// SSE events must carry data
	e.AppendData("bye")

	// We ignore the error here since we're shutting down anyway
	_ = m.sseSrv.Publish(e)

	ctx, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()

	return m.sseSrv.Shutdown(ctx)
}
