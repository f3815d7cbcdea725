package nlp

import (
	"testing"
	"time"

	"github.com/bdobrica/Kioku/internal/kioku/memory"
)

func TestContainsReference(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{name: "bare pronoun", text: "what does it mean?", want: true},
		{name: "demonstrative phrase", text: "show me this function", want: true},
		{name: "explicit back reference", text: "explain the above please", want: true},
		{name: "mentioned reference", text: "summarize the mentioned points", want: true},
		{name: "plain question", text: "how are you?", want: false},
		{name: "pronoun inside a word", text: "the item is ready", want: false},
		{name: "empty", text: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ContainsReference(tt.text); got != tt.want {
				t.Errorf("ContainsReference(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestContainsPronoun(t *testing.T) {
	if !ContainsPronoun("is it done?") {
		t.Error("expected bare pronoun to be detected")
	}
	if ContainsPronoun("explain the above") {
		t.Error("expected back reference without pronoun to not count")
	}
}

func conversationRecord(t *testing.T, turns ...memory.Message) *memory.ConversationRecord {
	t.Helper()
	now := time.Date(2026, 2, 24, 10, 0, 0, 0, time.UTC)
	rec, err := memory.NewRecordAt("session-1", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, m := range turns {
		rec.AddMessage(m)
	}
	return rec
}

func turn(t *testing.T, role memory.Role, content string) memory.Message {
	t.Helper()
	now := time.Date(2026, 2, 24, 10, 0, 0, 0, time.UTC)
	m, err := memory.NewMessageAt(role, content, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return m
}

func TestResolver_EmptyInputs(t *testing.T) {
	resolver := NewResolver(10)
	rec := conversationRecord(t, turn(t, memory.RoleUser, "hello"))

	if got := resolver.Resolve("", rec); len(got) != 0 {
		t.Errorf("expected no resolutions for empty message, got %v", got)
	}
	if got := resolver.Resolve("what is that?", nil); len(got) != 0 {
		t.Errorf("expected no resolutions for nil record, got %v", got)
	}
	if got := resolver.Resolve("what is that?", conversationRecord(t)); len(got) != 0 {
		t.Errorf("expected no resolutions for empty record, got %v", got)
	}
}

func TestResolver_DemonstrativeResolution(t *testing.T) {
	resolver := NewResolver(10)
	rec := conversationRecord(t,
		turn(t, memory.RoleUser, "My payment handler keeps crashing"),
		turn(t, memory.RoleAssistant, "Try checking the payment handler logs"),
	)

	got := resolver.Resolve("how do I fix that handler?", rec)

	want := "checking the payment handler logs"
	if got["that handler"] != want {
		t.Errorf("expected 'that handler' -> %q, got %q", want, got["that handler"])
	}
	// The bare pronoun inside the phrase resolves independently, against
	// the last assistant message's key concept.
	if got["that"] == "" {
		t.Error("expected bare pronoun 'that' to resolve as well")
	}
}

func TestResolver_DemonstrativePicksNewestMention(t *testing.T) {
	resolver := NewResolver(10)
	rec := conversationRecord(t,
		turn(t, memory.RoleUser, "first mention of the widget here"),
		turn(t, memory.RoleAssistant, "newest widget details arrive last"),
	)

	got := resolver.Resolve("remove this widget", rec)

	want := "newest widget details arrive last"
	if got["this widget"] != want {
		t.Errorf("expected newest mention to win, got %q", got["this widget"])
	}
}

func TestResolver_DemonstrativeUnresolvedWhenNounAbsent(t *testing.T) {
	resolver := NewResolver(10)
	rec := conversationRecord(t,
		turn(t, memory.RoleUser, "we talked only of weather"),
	)

	got := resolver.Resolve("delete that spreadsheet", rec)

	if _, ok := got["that spreadsheet"]; ok {
		t.Errorf("expected no resolution for absent noun, got %q", got["that spreadsheet"])
	}
}

func TestResolver_PronounNeedsAssistantTurn(t *testing.T) {
	resolver := NewResolver(10)
	rec := conversationRecord(t,
		turn(t, memory.RoleUser, "my parser is broken"),
	)

	got := resolver.Resolve("can you explain it?", rec)

	if _, ok := got["it"]; ok {
		t.Errorf("expected pronoun to stay unresolved without assistant turns, got %q", got["it"])
	}
}

func TestResolver_PronounResolvesToAssistantConcept(t *testing.T) {
	resolver := NewResolver(10)
	rec := conversationRecord(t,
		turn(t, memory.RoleUser, "my build fails"),
		turn(t, memory.RoleAssistant, "the error comes from your linker flags"),
	)

	got := resolver.Resolve("how do I fix it?", rec)

	if got["it"] != "error" {
		t.Errorf("expected 'it' -> 'error', got %q", got["it"])
	}
}

func TestResolver_PronounSpanKeepsTypedCase(t *testing.T) {
	resolver := NewResolver(10)
	rec := conversationRecord(t,
		turn(t, memory.RoleAssistant, "the algorithm looks fine"),
	)

	got := resolver.Resolve("That seems wrong", rec)

	if got["That"] != "algorithm" {
		t.Errorf("expected span 'That' as typed, got map %v", got)
	}
}

func TestResolver_BackReferenceToLatestMessage(t *testing.T) {
	resolver := NewResolver(10)
	rec := conversationRecord(t,
		turn(t, memory.RoleUser, "here is my question"),
		turn(t, memory.RoleAssistant, "use a library for parsing"),
	)

	got := resolver.Resolve("improve the previous suggestion", rec)

	if got["the previous"] != "library" {
		t.Errorf("expected 'the previous' -> 'library', got %q", got["the previous"])
	}
}

func TestResolver_BackReferenceToMentionedConcept(t *testing.T) {
	resolver := NewResolver(10)
	rec := conversationRecord(t,
		turn(t, memory.RoleUser, "my api is failing"),
		turn(t, memory.RoleAssistant, "the api needs a key"),
		turn(t, memory.RoleUser, "here is my question"),
	)

	got := resolver.Resolve("summarize the mentioned points", rec)

	if got["the mentioned"] != "api" {
		t.Errorf("expected 'the mentioned' -> 'api', got %q", got["the mentioned"])
	}
}

func TestResolver_WindowLimitsLookback(t *testing.T) {
	resolver := NewResolver(2)
	rec := conversationRecord(t,
		turn(t, memory.RoleUser, "the database keeps timing out"),
		turn(t, memory.RoleUser, "hello again"),
		turn(t, memory.RoleAssistant, "hi there"),
	)

	got := resolver.Resolve("fix that database", rec)

	if _, ok := got["that database"]; ok {
		t.Errorf("expected mention outside the window to be invisible, got %q", got["that database"])
	}
}

func TestNewResolver_DefaultWindow(t *testing.T) {
	if r := NewResolver(0); r.Window != 10 {
		t.Errorf("expected default window 10, got %d", r.Window)
	}
	if r := NewResolver(-5); r.Window != 10 {
		t.Errorf("expected default window 10, got %d", r.Window)
	}
	if r := NewResolver(4); r.Window != 4 {
		t.Errorf("expected window 4, got %d", r.Window)
	}
}
