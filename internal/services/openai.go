package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MegaGrindStone/taskflow-chat/internal/models"
	goopenai "github.com/sashabaranov/go-openai"
)

// OpenAI answers submissions with an OpenAI-compatible chat completion endpoint. The session
// identifier is forwarded as the end-user ID.
type OpenAI struct {
	model        string
	systemPrompt string

	client *goopenai.Client

	logger *slog.Logger
}

// NewOpenAI creates a new OpenAI instance. An empty baseURL targets the official API.
func NewOpenAI(apiKey, baseURL, model, systemPrompt string, logger *slog.Logger) OpenAI {
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return OpenAI{
		model:        model,
		systemPrompt: systemPrompt,
		client:       goopenai.NewClientWithConfig(cfg),
		logger:       logger.With(slog.String("module", "openai")),
	}
}

func openAIMessages(systemPrompt string, req models.ChatRequest) []goopenai.ChatCompletionMessage {
	msgs := make([]goopenai.ChatCompletionMessage, 0, len(req.ChatHistory)+2)
	if systemPrompt != "" {
		msgs = append(msgs, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	for _, entry := range req.ChatHistory {
		msgs = append(msgs, goopenai.ChatCompletionMessage{
			Role:    string(entry.Role),
			Content: entry.Content,
		})
	}
	return append(msgs, goopenai.ChatCompletionMessage{
		Role:    goopenai.ChatMessageRoleUser,
		Content: req.Query,
	})
}

// Chat is a wrapper around the OpenAI chat completion API.
func (o OpenAI) Chat(ctx context.Context, req models.ChatRequest) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:    o.model,
		Messages: openAIMessages(o.systemPrompt, req),
		User:     req.UserID,
	})
	if err != nil {
		return "", fmt.Errorf("error sending request: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no choices returned")
	}

	o.logger.Debug("Usage",
		slog.Int("promptTokens", resp.Usage.PromptTokens),
		slog.Int("completionTokens", resp.Usage.CompletionTokens))

	return resp.Choices[0].Message.Content, nil
}
