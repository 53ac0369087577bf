package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/MegaGrindStone/taskflow-chat/internal/models"
	"github.com/ollama/ollama/api"
)

// Ollama answers submissions with a local Ollama model instead of the TaskFlow API. It is meant for
// trying the widget without a running backend; the session identifier is not forwarded.
type Ollama struct {
	model        string
	systemPrompt string

	client *api.Client
}

// NewOllama creates a new Ollama instance with the specified host URL and model name. The host
// parameter should be a valid URL pointing to an Ollama server.
func NewOllama(host, model, systemPrompt string) (Ollama, error) {
	u, err := url.Parse(host)
	if err != nil {
		return Ollama{}, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}

	return Ollama{
		model:        model,
		systemPrompt: systemPrompt,
		client:       api.NewClient(u, &http.Client{}),
	}, nil
}

func ollamaMessages(systemPrompt string, req models.ChatRequest) []api.Message {
	msgs := make([]api.Message, 0, len(req.ChatHistory)+2)
	if systemPrompt != "" {
		msgs = append(msgs, api.Message{
			Role:    "system",
			Content: systemPrompt,
		})
	}
	for _, entry := range req.ChatHistory {
		msgs = append(msgs, api.Message{
			Role:    string(entry.Role),
			Content: entry.Content,
		})
	}
	return append(msgs, api.Message{
		Role:    string(models.RoleUser),
		Content: req.Query,
	})
}

// Chat sends the conversation to the model without streaming and returns the complete reply.
func (o Ollama) Chat(ctx context.Context, req models.ChatRequest) (string, error) {
	f := false
	chatReq := api.ChatRequest{
		Model:    o.model,
		Messages: ollamaMessages(o.systemPrompt, req),
		Stream:   &f,
	}

	var sb strings.Builder
	if err := o.client.Chat(ctx, &chatReq, func(res api.ChatResponse) error {
		sb.WriteString(res.Message.Content)
		return nil
	}); err != nil {
		return "", fmt.Errorf("error sending request: %w", err)
	}

	return sb.String(), nil
}
