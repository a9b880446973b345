// Package chat keeps per-session conversation transcripts and runs chat
// turns through the agent runner.
package chat

import (
	"sync"
	"time"
)

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one transcript entry. Error marks assistant messages that
// carry a failure description instead of an answer.
type Message struct {
	Role    Role      `json:"role"`
	Content string    `json:"content"`
	Error   bool      `json:"error"`
	At      time.Time `json:"at"`
}

// Transcript is an ordered, in-memory message list safe for concurrent use.
type Transcript struct {
	mu       sync.Mutex
	messages []Message
}

// Append adds m to the end, stamping At when unset.
func (t *Transcript) Append(m Message) {
	if m.At.IsZero() {
		m.At = time.Now()
	}
	t.mu.Lock()
	t.messages = append(t.messages, m)
	t.mu.Unlock()
}

// Snapshot returns a copy of the messages in order.
func (t *Transcript) Snapshot() []Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Clear removes every message.
func (t *Transcript) Clear() {
	t.mu.Lock()
	t.messages = nil
	t.mu.Unlock()
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.messages)
}
