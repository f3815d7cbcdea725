package memory

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ConversationRecord is the full state of one session: the ordered message
// buffer plus the context metadata extracted from user turns. Records are
// exclusively owned by the Store; callers work on deep copies and hand
// copies back.
type ConversationRecord struct {
	ID              string              // unique record ID (UUID)
	SessionID       string              // caller-supplied session identity
	Messages        []Message           // ordered message buffer (oldest first)
	ContextMetadata map[string][]string // category -> ordered unique values
	CreatedAt       time.Time           // when the record was created
	LastActivity    time.Time           // when the record last changed or was used
}

// NewRecord creates an empty record for the given session.
func NewRecord(sessionID string) (*ConversationRecord, error) {
	return NewRecordAt(sessionID, time.Now())
}

// NewRecordAt is the time-injectable core of NewRecord (for testing).
func NewRecordAt(sessionID string, now time.Time) (*ConversationRecord, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("%w: session id is empty", ErrInvalidArgument)
	}
	return &ConversationRecord{
		ID:              uuid.New().String(),
		SessionID:       sessionID,
		ContextMetadata: make(map[string][]string),
		CreatedAt:       now,
		LastActivity:    now,
	}, nil
}

// AddMessage appends a message and advances the activity timestamp to the
// message's own timestamp.
func (r *ConversationRecord) AddMessage(msg Message) {
	r.Messages = append(r.Messages, msg)
	r.TouchAt(msg.Timestamp)
}

// AddUserMessage appends a user turn stamped with the current time.
func (r *ConversationRecord) AddUserMessage(content string) (Message, error) {
	return r.AddUserMessageAt(content, time.Now())
}

// AddUserMessageAt is the time-injectable core of AddUserMessage (for testing).
func (r *ConversationRecord) AddUserMessageAt(content string, now time.Time) (Message, error) {
	msg, err := NewMessageAt(RoleUser, content, now)
	if err != nil {
		return Message{}, err
	}
	r.AddMessage(msg)
	return msg, nil
}

// AddAssistantMessage appends an assistant turn stamped with the current time.
func (r *ConversationRecord) AddAssistantMessage(content string) (Message, error) {
	return r.AddAssistantMessageAt(content, time.Now())
}

// AddAssistantMessageAt is the time-injectable core of AddAssistantMessage
// (for testing).
func (r *ConversationRecord) AddAssistantMessageAt(content string, now time.Time) (Message, error) {
	msg, err := NewMessageAt(RoleAssistant, content, now)
	if err != nil {
		return Message{}, err
	}
	r.AddMessage(msg)
	return msg, nil
}

// RecentMessages returns a copy of the up-to-n most recent messages,
// oldest first. Returns nil when n is non-positive or the record is empty.
func (r *ConversationRecord) RecentMessages(n int) []Message {
	if n <= 0 || len(r.Messages) == 0 {
		return nil
	}
	if n > len(r.Messages) {
		n = len(r.Messages)
	}
	return cloneMessages(r.Messages[len(r.Messages)-n:])
}

// MessageCount returns the number of buffered messages.
func (r *ConversationRecord) MessageCount() int {
	return len(r.Messages)
}

// IsEmpty reports whether the record holds no messages.
func (r *ConversationRecord) IsEmpty() bool {
	return len(r.Messages) == 0
}

// LastMessage returns the most recent message. The second return is false
// for an empty record.
func (r *ConversationRecord) LastMessage() (Message, bool) {
	if len(r.Messages) == 0 {
		return Message{}, false
	}
	return r.Messages[len(r.Messages)-1].clone(), true
}

// MessagesByRole returns a copy of all messages with the given role,
// oldest first.
func (r *ConversationRecord) MessagesByRole(role Role) []Message {
	var out []Message
	for _, m := range r.Messages {
		if m.Role == role {
			out = append(out, m.clone())
		}
	}
	return out
}

// AddContextValue appends value to the named metadata category, keeping the
// category ordered and duplicate free. Returns false when the value was
// already present or either argument is empty.
func (r *ConversationRecord) AddContextValue(category, value string) bool {
	if category == "" || value == "" {
		return false
	}
	if containsValue(r.ContextMetadata[category], value) {
		return false
	}
	if r.ContextMetadata == nil {
		r.ContextMetadata = make(map[string][]string)
	}
	r.ContextMetadata[category] = append(r.ContextMetadata[category], value)
	return true
}

// ContextValues returns a copy of the values stored in a category, in
// insertion order. Returns nil for an unknown or empty category.
func (r *ConversationRecord) ContextValues(category string) []string {
	vals := r.ContextMetadata[category]
	if len(vals) == 0 {
		return nil
	}
	out := make([]string, len(vals))
	copy(out, vals)
	return out
}

// HasContextValue reports whether the category already holds value.
func (r *ConversationRecord) HasContextValue(category, value string) bool {
	return containsValue(r.ContextMetadata[category], value)
}

// Touch advances the activity timestamp to the current time.
func (r *ConversationRecord) Touch() {
	r.TouchAt(time.Now())
}

// TouchAt advances the activity timestamp to now. The timestamp never
// moves backward.
func (r *ConversationRecord) TouchAt(now time.Time) {
	if now.After(r.LastActivity) {
		r.LastActivity = now
	}
}

// InactiveSince reports whether the record has seen no activity for at
// least window before now.
func (r *ConversationRecord) InactiveSince(now time.Time, window time.Duration) bool {
	return r.LastActivity.Before(now.Add(-window))
}

// Clone returns a deep copy of the record.
func (r *ConversationRecord) Clone() *ConversationRecord {
	cp := *r
	cp.Messages = cloneMessages(r.Messages)
	cp.ContextMetadata = make(map[string][]string, len(r.ContextMetadata))
	for category, vals := range r.ContextMetadata {
		out := make([]string, len(vals))
		copy(out, vals)
		cp.ContextMetadata[category] = out
	}
	return &cp
}

// containsValue reports whether vals holds the exact string value.
func containsValue(vals []string, value string) bool {
	for _, v := range vals {
		if v == value {
			return true
		}
	}
	return false
}
