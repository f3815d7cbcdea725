package nlp

import (
	"testing"
	"time"

	"github.com/bdobrica/Kioku/internal/kioku/memory"
)

func TestKeyConcept(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "technical vocabulary first", content: "My function is broken", want: "function"},
		{name: "vocabulary beats capitalization", content: "The Database query fails", want: "database"},
		{name: "vocabulary hit is lowercase", content: "An ERROR appeared", want: "error"},
		{name: "capitalized word", content: "please describe Kubernetes", want: "Kubernetes"},
		{name: "common word skipped", content: "What about Redis", want: "Redis"},
		{name: "opening words fallback", content: "tell me something nice today", want: "tell me something..."},
		{name: "short message verbatim", content: "hello there", want: "hello there"},
		{name: "blank input", content: "   ", want: ""},
		{name: "empty input", content: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KeyConcept(tt.content); got != tt.want {
				t.Errorf("KeyConcept(%q) = %q, want %q", tt.content, got, tt.want)
			}
		})
	}
}

func TestFrequentConcept(t *testing.T) {
	now := time.Date(2026, 2, 24, 10, 0, 0, 0, time.UTC)

	msg := func(role memory.Role, content string) memory.Message {
		m, err := memory.NewMessageAt(role, content, now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return m
	}

	messages := []memory.Message{
		msg(memory.RoleUser, "my database is slow"),
		msg(memory.RoleAssistant, "which database engine is it?"),
		msg(memory.RoleUser, "the api times out too"),
	}

	if got := FrequentConcept(messages); got != "database" {
		t.Errorf("expected most frequent concept 'database', got %q", got)
	}
}

func TestFrequentConcept_TieResolvesToEarliest(t *testing.T) {
	now := time.Date(2026, 2, 24, 10, 0, 0, 0, time.UTC)

	first, _ := memory.NewMessageAt(memory.RoleUser, "the api is down", now)
	second, _ := memory.NewMessageAt(memory.RoleUser, "check the database", now)

	if got := FrequentConcept([]memory.Message{first, second}); got != "api" {
		t.Errorf("expected tie to resolve to earliest concept 'api', got %q", got)
	}
}

func TestFrequentConcept_Empty(t *testing.T) {
	if got := FrequentConcept(nil); got != "" {
		t.Errorf("expected empty result for no messages, got %q", got)
	}
}
