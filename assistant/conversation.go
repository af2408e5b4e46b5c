package assistant

import (
	"slices"
	"sync"
)

// Message is one side of a conversation exchange. Role is "user" or "model".
type Message struct {
	Role string
	Text string
}

// Conversation is an append-only exchange log shared across sessions.
// Callers append the user message before the model message for each
// exchange.
type Conversation struct {
	mu       sync.Mutex
	messages []Message
}

// NewConversation creates an empty conversation log.
func NewConversation() *Conversation {
	return &Conversation{}
}

// AddUserMessage appends a user turn.
func (c *Conversation) AddUserMessage(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, Message{Role: "user", Text: text})
}

// AddModelMessage appends a model turn.
func (c *Conversation) AddModelMessage(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, Message{Role: "model", Text: text})
}

// History returns a snapshot of the log. Later appends do not affect the
// returned slice.
func (c *Conversation) History() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.messages)
}

// Clear empties the log.
func (c *Conversation) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = nil
}
