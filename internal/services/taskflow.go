package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MegaGrindStone/taskflow-chat/internal/models"
)

// TaskFlow is the transport to the TaskFlow chat API. Every submission is a single JSON POST to
// {baseURL}/api/chat.
type TaskFlow struct {
	endpoint string

	client *http.Client

	logger *slog.Logger
}

// StatusError is returned when the chat API answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

const (
	taskFlowChatPath = "/api/chat"

	// maxErrorBody bounds how much of an error response is kept for logging.
	maxErrorBody = 512
)

func (e StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d: %s", e.StatusCode, e.Body)
}

// NewTaskFlow creates a transport for the API rooted at baseURL. A zero timeout leaves requests
// unbounded.
func NewTaskFlow(baseURL string, timeout time.Duration, logger *slog.Logger) TaskFlow {
	return TaskFlow{
		endpoint: strings.TrimRight(baseURL, "/") + taskFlowChatPath,
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With(slog.String("module", "taskflow")),
	}
}

// Chat sends req and returns the textual response, which is empty when the API omitted it. Non-2xx
// statuses, network failures and undecodable bodies are all reported as errors.
func (t TaskFlow) Chat(ctx context.Context, req models.ChatRequest) (string, error) {
	if req.ChatHistory == nil {
		req.ChatHistory = []models.HistoryEntry{}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("error marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	t.logger.Debug("Request",
		slog.String("endpoint", t.endpoint),
		slog.Int("historyLen", len(req.ChatHistory)))

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", StatusError{StatusCode: resp.StatusCode, Body: string(b)}
	}

	var chatResp models.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("error decoding response: %w", err)
	}

	return chatResp.Response, nil
}
