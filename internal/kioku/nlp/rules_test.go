package nlp

import (
	"testing"
	"time"

	"github.com/bdobrica/Kioku/internal/kioku/memory"
)

func newTestRecord(t *testing.T) *memory.ConversationRecord {
	t.Helper()
	now := time.Date(2026, 2, 24, 10, 0, 0, 0, time.UTC)
	rec, err := memory.NewRecordAt("session-1", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return rec
}

func assertValues(t *testing.T, rec *memory.ConversationRecord, category string, want []string) {
	t.Helper()
	got := rec.ContextValues(category)
	if len(got) != len(want) {
		t.Fatalf("category %s: expected %v, got %v", category, want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("category %s: expected %v, got %v", category, want, got)
			return
		}
	}
}

func TestExtractContext_SkillLevels(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "positive assessment", text: "I am good at python", want: "python: good"},
		{name: "contracted form", text: "I'm excellent at golang", want: "golang: excellent"},
		{name: "negated reads as beginner", text: "I am not good at java", want: "java: beginner"},
		{name: "negated strong adjective", text: "I'm not experienced at kubernetes", want: "kubernetes: beginner"},
		{name: "new counts as stated", text: "I am new at rust", want: "rust: new"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newTestRecord(t)
			ExtractContext(tt.text, rec)
			if !rec.HasContextValue(CategorySkills, tt.want) {
				t.Errorf("expected skill %q, got %v", tt.want, rec.ContextValues(CategorySkills))
			}
		})
	}
}

func TestExtractContext_SkillPreservesTypedCase(t *testing.T) {
	rec := newTestRecord(t)
	ExtractContext("I'm excellent at SQL", rec)

	assertValues(t, rec, CategorySkills, []string{"SQL: excellent"})
	// The capitalized acronym is also picked up as an entity, and the
	// vocabulary scan records the lowercase topic.
	assertValues(t, rec, CategoryEntities, []string{"SQL"})
	assertValues(t, rec, CategoryTopics, []string{"sql"})
}

func TestExtractContext_Preferences(t *testing.T) {
	rec := newTestRecord(t)
	ExtractContext("I prefer tabs over spaces", rec)
	assertValues(t, rec, CategoryPreferences, []string{"I prefer tabs over spaces"})

	rec = newTestRecord(t)
	ExtractContext("I like functional programming", rec)
	assertValues(t, rec, CategoryPreferences, []string{"I like functional programming"})
	assertValues(t, rec, CategoryTopics, []string{"programming"})
}

func TestExtractContext_TopicMarkers(t *testing.T) {
	rec := newTestRecord(t)
	ExtractContext("Tell me about microservices", rec)
	// The marker word and the vocabulary hit collapse into one entry.
	assertValues(t, rec, CategoryTopics, []string{"microservices"})

	rec = newTestRecord(t)
	ExtractContext("What do you think regarding Docker?", rec)
	// The marker captures the word as typed; the vocabulary scan records
	// the lowercase form separately.
	assertValues(t, rec, CategoryTopics, []string{"Docker", "docker"})
	assertValues(t, rec, CategoryEntities, []string{"Docker"})
}

func TestExtractContext_Entities(t *testing.T) {
	rec := newTestRecord(t)
	ExtractContext("How do I use Spring Boot with Docker?", rec)

	assertValues(t, rec, CategoryEntities, []string{"Spring", "Boot", "Docker"})
	assertValues(t, rec, CategoryTopics, []string{"spring", "boot", "docker"})
}

func TestExtractContext_MultipleCategoriesInOneMessage(t *testing.T) {
	rec := newTestRecord(t)
	ExtractContext("I'm great at python and I love Django", rec)

	assertValues(t, rec, CategorySkills, []string{"python: great"})
	assertValues(t, rec, CategoryPreferences, []string{"I love Django"})
	assertValues(t, rec, CategoryTopics, []string{"python"})
	assertValues(t, rec, CategoryEntities, []string{"Django"})
}

func TestExtractContext_Idempotent(t *testing.T) {
	rec := newTestRecord(t)
	text := "I am good at python and I like testing my code"

	ExtractContext(text, rec)
	skills := rec.ContextValues(CategorySkills)
	prefs := rec.ContextValues(CategoryPreferences)
	topics := rec.ContextValues(CategoryTopics)

	ExtractContext(text, rec)

	assertValues(t, rec, CategorySkills, skills)
	assertValues(t, rec, CategoryPreferences, prefs)
	assertValues(t, rec, CategoryTopics, topics)
}

func TestExtractContext_BlankOrMissingInput(t *testing.T) {
	rec := newTestRecord(t)
	ExtractContext("", rec)
	ExtractContext("   \t", rec)

	for _, category := range []string{CategorySkills, CategoryPreferences, CategoryTopics, CategoryEntities} {
		if vals := rec.ContextValues(category); vals != nil {
			t.Errorf("expected no %s from blank input, got %v", category, vals)
		}
	}

	// A nil record must not panic.
	ExtractContext("I am good at python", nil)
}

func TestExtractContext_NoFalsePositives(t *testing.T) {
	rec := newTestRecord(t)
	ExtractContext("hello there, nice weather today", rec)

	for _, category := range []string{CategorySkills, CategoryPreferences, CategoryTopics, CategoryEntities} {
		if vals := rec.ContextValues(category); vals != nil {
			t.Errorf("expected no %s from plain chat, got %v", category, vals)
		}
	}
}
