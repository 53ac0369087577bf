package models

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// ChatRequest is the body of a single submission sent to the chat API. ChatHistory holds the
// conversation as it was before the submitted message was appended.
type ChatRequest struct {
	Query       string         `json:"query"`
	UserID      string         `json:"user_id"`
	ChatHistory []HistoryEntry `json:"chat_history"`
}

// HistoryEntry is the wire shape of a prior message.
type HistoryEntry struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatResponse is the body returned by the chat API on success. Response may be absent.
type ChatResponse struct {
	Response string `json:"response"`
}

// History maps messages to their wire shape. The result is never nil, so an empty conversation is
// encoded as an empty JSON array.
func History(messages []Message) []HistoryEntry {
	entries := make([]HistoryEntry, 0, len(messages))
	for _, msg := range messages {
		entries = append(entries, HistoryEntry{
			Role:    msg.Role,
			Content: msg.Text,
		})
	}
	return entries
}

var markdown = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		highlighting.NewHighlighting(highlighting.WithStyle("github")),
	),
	// Line breaks in replies are kept as typed.
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// RenderMarkdown converts the text of a message into HTML. Raw HTML in the source is omitted.
func RenderMarkdown(text string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return buf.String(), nil
}
