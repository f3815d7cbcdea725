package memory

import (
	"errors"
	"testing"
	"time"
)

func TestNewMessageAt_Validation(t *testing.T) {
	now := time.Date(2026, 2, 24, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		role    Role
		content string
		wantErr bool
	}{
		{name: "valid user message", role: RoleUser, content: "hello", wantErr: false},
		{name: "valid assistant message", role: RoleAssistant, content: "hi there", wantErr: false},
		{name: "unknown role", role: Role("system"), content: "hello", wantErr: true},
		{name: "empty role", role: Role(""), content: "hello", wantErr: true},
		{name: "empty content", role: RoleUser, content: "", wantErr: true},
		{name: "whitespace content", role: RoleUser, content: "   \t", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := NewMessageAt(tt.role, tt.content, now)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !errors.Is(err, ErrInvalidArgument) {
					t.Errorf("expected ErrInvalidArgument, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if msg.Role != tt.role {
				t.Errorf("expected role %q, got %q", tt.role, msg.Role)
			}
			if msg.Content != tt.content {
				t.Errorf("expected content %q, got %q", tt.content, msg.Content)
			}
			if !msg.Timestamp.Equal(now) {
				t.Errorf("expected timestamp %v, got %v", now, msg.Timestamp)
			}
		})
	}
}

func TestRole_Valid(t *testing.T) {
	if !RoleUser.Valid() {
		t.Error("expected user role to be valid")
	}
	if !RoleAssistant.Valid() {
		t.Error("expected assistant role to be valid")
	}
	if Role("moderator").Valid() {
		t.Error("expected unknown role to be invalid")
	}
}

func TestMessage_RoleHelpers(t *testing.T) {
	now := time.Date(2026, 2, 24, 10, 0, 0, 0, time.UTC)

	user, _ := NewMessageAt(RoleUser, "question", now)
	if !user.IsUser() || user.IsAssistant() {
		t.Error("expected user message to report IsUser only")
	}

	assistant, _ := NewMessageAt(RoleAssistant, "answer", now)
	if !assistant.IsAssistant() || assistant.IsUser() {
		t.Error("expected assistant message to report IsAssistant only")
	}
}

func TestMessage_Meta(t *testing.T) {
	now := time.Date(2026, 2, 24, 10, 0, 0, 0, time.UTC)
	msg, _ := NewMessageAt(RoleUser, "hello", now)

	if _, ok := msg.Meta("source"); ok {
		t.Error("expected no annotation before SetMeta")
	}

	msg.SetMeta("source", "repl")
	msg.SetMeta("attempt", 2)
	msg.SetMeta("source", "api") // overwrite

	v, ok := msg.Meta("source")
	if !ok || v != "api" {
		t.Errorf("expected source 'api', got %v (present=%v)", v, ok)
	}
	if v, _ := msg.Meta("attempt"); v != 2 {
		t.Errorf("expected attempt 2, got %v", v)
	}
}

func TestMessage_CloneIsolatesMetadata(t *testing.T) {
	now := time.Date(2026, 2, 24, 10, 0, 0, 0, time.UTC)
	msg, _ := NewMessageAt(RoleUser, "hello", now)
	msg.SetMeta("key", "original")

	cp := msg.clone()
	cp.SetMeta("key", "mutated")

	if v, _ := msg.Meta("key"); v != "original" {
		t.Errorf("expected original metadata untouched, got %v", v)
	}
}
