package widget

import (
	"slices"

	"github.com/MegaGrindStone/taskflow-chat/internal/models"
)

// Conversation is the insertion-ordered list of messages shown by a widget. It is append-only except
// for the removal of a rolled back submission, and it is not safe for concurrent use on its own; the
// owning Widget serializes access.
type Conversation struct {
	messages []models.Message
}

// NewConversation returns a conversation seeded with the given messages.
func NewConversation(seed ...models.Message) *Conversation {
	return &Conversation{messages: slices.Clone(seed)}
}

// Append adds msg to the end of the conversation.
func (c *Conversation) Append(msg models.Message) {
	c.messages = append(c.messages, msg)
}

// Remove deletes the first message with the given ID and reports whether one was found. The relative
// order of the remaining messages is preserved.
func (c *Conversation) Remove(id string) bool {
	idx := slices.IndexFunc(c.messages, func(m models.Message) bool { return m.ID == id })
	if idx == -1 {
		return false
	}
	c.messages = slices.Delete(c.messages, idx, idx+1)
	return true
}

// Messages returns a copy of the conversation.
func (c *Conversation) Messages() []models.Message {
	return slices.Clone(c.messages)
}

// History returns the conversation in its wire shape.
func (c *Conversation) History() []models.HistoryEntry {
	return models.History(c.messages)
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	return len(c.messages)
}

func (c *Conversation) replace(messages []models.Message) {
	c.messages = messages
}
