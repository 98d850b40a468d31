package chat

import (
	"sync"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"
)

// Role identifies who authored a chat message.
type Role string

const (
	// RoleHuman marks a message typed by the user.
	RoleHuman Role = "human"
	// RoleAssistant marks a model-generated answer.
	RoleAssistant Role = "assistant"
)

// Message is one turn of the conversation.
type Message struct {
	ID        uuid.UUID
	Role      Role
	Content   string
	CreatedAt time.Time
}

// History is the append-only, chronologically ordered record of a
// conversation. Safe for concurrent use.
type History struct {
	mu       sync.RWMutex
	messages []Message
}

// NewHistory returns an empty conversation history.
func NewHistory() *History {
	return &History{}
}

// Append adds one message to the end of the history.
func (h *History) Append(role Role, content string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, Message{
		ID:        uuid.New(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	})
}

// Messages returns a copy of the history in insertion order.
func (h *History) Messages() []Message {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// Len reports the number of messages recorded.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.messages)
}

// Clear discards all recorded messages.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = nil
}

// ModelMessages converts the history into the message format the model
// consumes. Human turns become user messages, assistant turns become model
// messages.
func (h *History) ModelMessages() []*ai.Message {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.messages) == 0 {
		return nil
	}
	out := make([]*ai.Message, 0, len(h.messages))
	for _, m := range h.messages {
		switch m.Role {
		case RoleAssistant:
			out = append(out, ai.NewModelMessage(ai.NewTextPart(m.Content)))
		default:
			out = append(out, ai.NewUserMessage(ai.NewTextPart(m.Content)))
		}
	}
	return out
}
