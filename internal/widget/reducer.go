package widget

import (
	"slices"

	"github.com/MegaGrindStone/taskflow-chat/internal/models"
)

const (
	// FallbackReply is shown when the chat API succeeds without a textual response.
	FallbackReply = "Done!"
	// ErrorReply replaces a submission that could not be delivered.
	ErrorReply = "Error communicating with the server. Please try again."
)

// Result is the outcome of one round trip: either a reply text, possibly empty, or an error.
type Result struct {
	Reply string
	Err   error
}

// Ok returns a successful result.
func Ok(reply string) Result {
	return Result{Reply: reply}
}

// Failed returns a failed result.
func Failed(err error) Result {
	return Result{Err: err}
}

// MessageFactory creates a message with a fresh ID.
type MessageFactory func(role models.Role, text string) models.Message

// Reduce returns the conversation that follows from applying res to messages, where pendingID is the
// ID of the optimistically appended user message. The input slice is not modified.
//
// On success an assistant message with the reply (or FallbackReply) is appended. On failure the
// pending message is removed and an assistant message with ErrorReply is appended; no other entry is
// touched.
func Reduce(messages []models.Message, pendingID string, res Result, newMessage MessageFactory) []models.Message {
	next := slices.Clone(messages)

	if res.Err != nil {
		idx := slices.IndexFunc(next, func(m models.Message) bool { return m.ID == pendingID })
		if idx != -1 {
			next = slices.Delete(next, idx, idx+1)
		}
		return append(next, newMessage(models.RoleAssistant, ErrorReply))
	}

	reply := res.Reply
	if reply == "" {
		reply = FallbackReply
	}
	return append(next, newMessage(models.RoleAssistant, reply))
}
