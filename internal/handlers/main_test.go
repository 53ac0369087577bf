package handlers_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/MegaGrindStone/taskflow-chat/internal/handlers"
	"github.com/MegaGrindStone/taskflow-chat/internal/models"
	"github.com/MegaGrindStone/taskflow-chat/internal/widget"
)

type mockTransport struct {
	mu       sync.Mutex
	requests []models.ChatRequest

	reply string
	err   error
	// release, when set, blocks every round trip until it is closed.
	release chan struct{}
}

type mockFactory struct {
	mu        sync.Mutex
	transport *mockTransport
	widgets   map[string]*widget.Widget
}

func TestNewMain(t *testing.T) {
	main, _ := newMain(t, &mockTransport{})

	if main.Shutdown(context.Background()) != nil {
		t.Error("Shutdown() should not return error")
	}
}

func TestHandleHome(t *testing.T) {
	main, _ := newMain(t, &mockTransport{})

	tests := []struct {
		name       string
		url        string
		cookie     string
		wantStatus int
		wantBody   string
		wantCookie bool
	}{
		{
			name:       "First visit",
			url:        "/",
			wantStatus: http.StatusOK,
			wantBody:   "Chat",
			wantCookie: true,
		},
		{
			name:       "Returning visit",
			url:        "/",
			cookie:     "returning",
			wantStatus: http.StatusOK,
			wantBody:   `id="chat-widget"`,
		},
		{
			name:       "Unknown path",
			url:        "/nope",
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "uid", Value: tt.cookie})
			}
			w := httptest.NewRecorder()

			main.HandleHome(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("HandleHome() status = %v, want %v", w.Code, tt.wantStatus)
			}

			if !strings.Contains(w.Body.String(), tt.wantBody) {
				t.Errorf("HandleHome() body = %v, want to contain %v", w.Body.String(), tt.wantBody)
			}

			gotCookie := strings.Contains(w.Header().Get("Set-Cookie"), "uid=")
			if gotCookie != tt.wantCookie {
				t.Errorf("HandleHome() set cookie = %v, want %v", gotCookie, tt.wantCookie)
			}
		})
	}
}

func TestHandleToggle(t *testing.T) {
	main, factory := newMain(t, &mockTransport{})

	w := post(main.HandleToggle, "/widget/toggle", "alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("HandleToggle() status = %v, want %v", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), "TaskFlow Assistant") {
		t.Errorf("HandleToggle() body = %v, want the open widget", w.Body.String())
	}
	if !factory.widget("alice").State().Open {
		t.Error("widget should be open")
	}

	w = post(main.HandleToggle, "/widget/toggle", "alice", nil)
	if strings.Contains(w.Body.String(), "TaskFlow Assistant") {
		t.Errorf("HandleToggle() body = %v, want the closed widget", w.Body.String())
	}
}

func TestHandlePrefill(t *testing.T) {
	main, factory := newMain(t, &mockTransport{})

	tests := []struct {
		name       string
		shortcut   string
		wantStatus int
		wantDraft  string
	}{
		{name: "Known shortcut", shortcut: "complete ", wantStatus: http.StatusOK, wantDraft: "complete "},
		{name: "Unknown shortcut", shortcut: "rm -rf ", wantStatus: http.StatusBadRequest, wantDraft: "complete "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(main.HandlePrefill, "/widget/prefill", "bob", url.Values{"shortcut": {tt.shortcut}})

			if w.Code != tt.wantStatus {
				t.Errorf("HandlePrefill() status = %v, want %v", w.Code, tt.wantStatus)
			}
			if got := factory.widget("bob").State().Draft; got != tt.wantDraft {
				t.Errorf("draft = %q, want %q", got, tt.wantDraft)
			}
		})
	}
}

func TestHandleChats(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		message    string
		transport  *mockTransport
		wantStatus int
		wantTexts  []string
	}{
		{
			name:       "Invalid method",
			method:     http.MethodGet,
			transport:  &mockTransport{},
			wantStatus: http.StatusMethodNotAllowed,
		},
		{
			name:       "Empty message",
			method:     http.MethodPost,
			transport:  &mockTransport{},
			wantStatus: http.StatusNoContent,
			wantTexts:  []string{widget.DefaultGreeting},
		},
		{
			name:       "Whitespace message",
			method:     http.MethodPost,
			message:    "   ",
			transport:  &mockTransport{},
			wantStatus: http.StatusNoContent,
			wantTexts:  []string{widget.DefaultGreeting},
		},
		{
			name:       "Reply",
			method:     http.MethodPost,
			message:    "add buy milk",
			transport:  &mockTransport{reply: "Added!"},
			wantStatus: http.StatusOK,
			wantTexts:  []string{widget.DefaultGreeting, "add buy milk", "Added!"},
		},
		{
			name:       "Failure",
			method:     http.MethodPost,
			message:    "add buy milk",
			transport:  &mockTransport{err: errors.New("connection refused")},
			wantStatus: http.StatusOK,
			wantTexts:  []string{widget.DefaultGreeting, widget.ErrorReply},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			main, factory := newMain(t, tt.transport)

			form := strings.NewReader(url.Values{"message": {tt.message}}.Encode())
			req := httptest.NewRequest(tt.method, "/chats", form)
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			req.AddCookie(&http.Cookie{Name: "uid", Value: "carol"})
			w := httptest.NewRecorder()

			main.HandleChats(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("HandleChats() status = %v, want %v", w.Code, tt.wantStatus)
			}

			// Shutdown waits for the background round trip.
			if err := main.Shutdown(context.Background()); err != nil {
				t.Fatalf("Shutdown() error = %v", err)
			}

			wdg := factory.widget("carol")
			if wdg == nil {
				if tt.wantTexts != nil {
					t.Fatal("widget should have been created")
				}
				return
			}
			st := wdg.State()
			if st.Loading {
				t.Error("widget should be idle after the round trip")
			}
			got := make([]string, len(st.Messages))
			for i, m := range st.Messages {
				got[i] = m.Text
			}
			if strings.Join(got, "|") != strings.Join(tt.wantTexts, "|") {
				t.Errorf("messages = %q, want %q", got, tt.wantTexts)
			}
		})
	}
}

func TestHandleChatsRendersPendingState(t *testing.T) {
	tr := &mockTransport{reply: "Added!", release: make(chan struct{})}
	main, _ := newMain(t, tr)

	post(main.HandleToggle, "/widget/toggle", "dave", nil)
	w := post(main.HandleChats, "/chats", "dave", url.Values{"message": {"add eggs"}})
	if w.Code != http.StatusOK {
		t.Fatalf("HandleChats() status = %v, want %v", w.Code, http.StatusOK)
	}
	body := w.Body.String()
	if !strings.Contains(body, "add eggs") {
		t.Errorf("HandleChats() body should contain the user message, got %v", body)
	}
	if !strings.Contains(body, "chat-spinner") {
		t.Errorf("HandleChats() body should contain the busy indicator, got %v", body)
	}

	// A second submission while the first is pending is ignored.
	w = post(main.HandleChats, "/chats", "dave", url.Values{"message": {"add bread"}})
	if w.Code != http.StatusNoContent {
		t.Errorf("HandleChats() status = %v, want %v", w.Code, http.StatusNoContent)
	}

	close(tr.release)
	if err := main.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	if n := tr.count(); n != 1 {
		t.Errorf("transport called %d times, want 1", n)
	}
}

func TestHandleChatsSendsPriorHistory(t *testing.T) {
	tr := &mockTransport{reply: "ok"}
	main, _ := newMain(t, tr)

	post(main.HandleChats, "/chats", "erin", url.Values{"message": {"show tasks"}})
	if err := main.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	tr.mu.Lock()
	defer tr.mu.Unlock()
	if len(tr.requests) != 1 {
		t.Fatalf("transport called %d times, want 1", len(tr.requests))
	}
	req := tr.requests[0]
	if req.UserID != "erin" {
		t.Errorf("UserID = %q, want %q", req.UserID, "erin")
	}
	if len(req.ChatHistory) != 1 || req.ChatHistory[0].Content != widget.DefaultGreeting {
		t.Errorf("ChatHistory = %+v, want only the greeting", req.ChatHistory)
	}
}

func newMain(t *testing.T, tr *mockTransport) (handlers.Main, *mockFactory) {
	t.Helper()

	factory := &mockFactory{transport: tr, widgets: map[string]*widget.Widget{}}
	main, err := handlers.NewMain(factory.newWidget, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewMain() error = %v", err)
	}
	return main, factory
}

func post(h http.HandlerFunc, target, userID string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: "uid", Value: userID})
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func (f *mockFactory) newWidget(userID string) *widget.Widget {
	f.mu.Lock()
	defer f.mu.Unlock()

	w := widget.New(userID, f.transport, slog.New(slog.NewTextHandler(io.Discard, nil)))
	f.widgets[userID] = w
	return w
}

func (f *mockFactory) widget(userID string) *widget.Widget {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.widgets[userID]
}

func (m *mockTransport) Chat(_ context.Context, req models.ChatRequest) (string, error) {
	if m.release != nil {
		<-m.release
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	return m.reply, m.err
}

func (m *mockTransport) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func TestHandleChatsWhileBusyLeavesComposerUntouched(t *testing.T) {
	tr := &mockTransport{reply: "ok", release: make(chan struct{})}
	main, factory := newMain(t, tr)

	post(main.HandleChats, "/chats", "frank", url.Values{"message": {"show tasks"}})
	wdg := factory.widget("frank")
	wdg.Prefill("add ")
	before := wdg.State()

	w := post(main.HandleChats, "/chats", "frank", url.Values{"message": {"second"}})
	if w.Code != http.StatusNoContent {
		t.Errorf("HandleChats() status = %v, want %v", w.Code, http.StatusNoContent)
	}

	after := wdg.State()
	if after.Draft != before.Draft {
		t.Errorf("draft = %q, want %q", after.Draft, before.Draft)
	}
	if after.Revision != before.Revision {
		t.Errorf("revision = %d, want %d", after.Revision, before.Revision)
	}

	close(tr.release)
	if err := main.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	if got := wdg.State().Draft; got != "add " {
		t.Errorf("draft after completion = %q, want %q", got, "add ")
	}
	if n := tr.count(); n != 1 {
		t.Errorf("transport called %d times, want 1", n)
	}
}

func TestHandleChatsAfterShutdown(t *testing.T) {
	tr := &mockTransport{reply: "ok"}
	main, factory := newMain(t, tr)

	post(main.HandleToggle, "/widget/toggle", "gina", nil)
	if err := main.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	w := post(main.HandleChats, "/chats", "gina", url.Values{"message": {"add eggs"}})
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("HandleChats() status = %v, want %v", w.Code, http.StatusServiceUnavailable)
	}
	if n := tr.count(); n != 0 {
		t.Errorf("transport called %d times, want 0", n)
	}
	if st := factory.widget("gina").State(); st.Loading || len(st.Messages) != 1 {
		t.Errorf("widget changed after shutdown: %+v", st)
	}
}

func TestHandleHomeWithoutCookieKeepsNoWidget(t *testing.T) {
	main, _ := newMain(t, &mockTransport{})

	for range 10 {
		w := httptest.NewRecorder()
		main.HandleHome(w, httptest.NewRequest(http.MethodGet, "/", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("HandleHome() status = %v, want %v", w.Code, http.StatusOK)
		}
		if !strings.Contains(w.Header().Get("Set-Cookie"), "uid=") {
			t.Fatal("HandleHome() should issue a session cookie")
		}
	}
	if n := handlers.WidgetCount(main); n != 0 {
		t.Errorf("widgets = %d, want 0", n)
	}

	post(main.HandleToggle, "/widget/toggle", "hank", nil)
	if n := handlers.WidgetCount(main); n != 1 {
		t.Errorf("widgets = %d, want 1", n)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "uid", Value: "hank"})
	w := httptest.NewRecorder()
	main.HandleHome(w, req)

	if !strings.Contains(w.Body.String(), "TaskFlow Assistant") {
		t.Errorf("HandleHome() body = %v, want the open widget of the session", w.Body.String())
	}
	if n := handlers.WidgetCount(main); n != 1 {
		t.Errorf("widgets = %d, want 1", n)
	}
}

func TestHandleToggleKeepsUnsentDraft(t *testing.T) {
	main, factory := newMain(t, &mockTransport{})

	post(main.HandleToggle, "/widget/toggle", "ivy", nil)
	post(main.HandleToggle, "/widget/toggle", "ivy", url.Values{"draft": {"add mi"}})

	if got := factory.widget("ivy").State().Draft; got != "add mi" {
		t.Errorf("draft = %q, want %q", got, "add mi")
	}

	w := post(main.HandleToggle, "/widget/toggle", "ivy", nil)
	if !strings.Contains(w.Body.String(), `value="add mi"`) {
		t.Errorf("HandleToggle() body = %v, want the kept draft in the composer", w.Body.String())
	}
}
