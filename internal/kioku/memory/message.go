// Package memory implements Kioku's session-scoped conversation store.
// Each session accumulates an ordered message buffer plus the context
// metadata extracted from user turns. Records live in process memory only,
// bounded per session by a sliding message window and globally by idle
// eviction and a hard session cap.
package memory

import (
	"fmt"
	"strings"
	"time"
)

// Role identifies the author of a message.
type Role string

const (
	// RoleUser marks a turn written by the human participant.
	RoleUser Role = "user"
	// RoleAssistant marks a turn written by the language model.
	RoleAssistant Role = "assistant"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is a single turn in a conversation.
type Message struct {
	Role      Role           // author of the turn
	Content   string         // message text
	Timestamp time.Time      // when the message was recorded
	Metadata  map[string]any // optional per-message annotations
}

// NewMessage creates a message stamped with the current time.
// The role must be a known value and the content must not be blank.
func NewMessage(role Role, content string) (Message, error) {
	return NewMessageAt(role, content, time.Now())
}

// NewMessageAt is the time-injectable core of NewMessage (for testing).
func NewMessageAt(role Role, content string, now time.Time) (Message, error) {
	if !role.Valid() {
		return Message{}, fmt.Errorf("%w: unknown role %q", ErrInvalidArgument, string(role))
	}
	if strings.TrimSpace(content) == "" {
		return Message{}, fmt.Errorf("%w: message content is empty", ErrInvalidArgument)
	}
	return Message{Role: role, Content: content, Timestamp: now}, nil
}

// IsUser reports whether the message was written by the user.
func (m Message) IsUser() bool { return m.Role == RoleUser }

// IsAssistant reports whether the message was written by the assistant.
func (m Message) IsAssistant() bool { return m.Role == RoleAssistant }

// SetMeta attaches an annotation to the message, overwriting any previous
// value stored under the key.
func (m *Message) SetMeta(key string, value any) {
	if m.Metadata == nil {
		m.Metadata = make(map[string]any)
	}
	m.Metadata[key] = value
}

// Meta returns the annotation stored under key.
func (m Message) Meta(key string) (any, bool) {
	v, ok := m.Metadata[key]
	return v, ok
}

// clone returns a deep copy of the message.
func (m Message) clone() Message {
	cp := m
	if m.Metadata != nil {
		cp.Metadata = make(map[string]any, len(m.Metadata))
		for k, v := range m.Metadata {
			cp.Metadata[k] = v
		}
	}
	return cp
}

// cloneMessages returns a deep copy of a message slice.
func cloneMessages(msgs []Message) []Message {
	if msgs == nil {
		return nil
	}
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.clone()
	}
	return out
}
