package redact_test

import (
	"testing"

	"github.com/bdobrica/Kioku/common/redact"
)

func TestSnippet_ShortStringsPassThrough(t *testing.T) {
	got := redact.Snippet("hello world", 48)
	if got != "hello world" {
		t.Fatalf("expected unchanged string, got %q", got)
	}
}

func TestSnippet_TruncatesWithEllipsis(t *testing.T) {
	got := redact.Snippet("the quick brown fox jumps over the lazy dog", 9)
	if got != "the quick..." {
		t.Fatalf("expected %q, got %q", "the quick...", got)
	}
}

func TestSnippet_FlattensWhitespace(t *testing.T) {
	got := redact.Snippet("line one\nline two\t\tend", 48)
	if got != "line one line two end" {
		t.Fatalf("expected flattened string, got %q", got)
	}
}

func TestSnippet_CountsRunesNotBytes(t *testing.T) {
	// Five runes, fifteen bytes. A byte-based cut would split a rune.
	got := redact.Snippet("日本語です", 3)
	if got != "日本語..." {
		t.Fatalf("expected %q, got %q", "日本語...", got)
	}
}

func TestSnippet_NonPositiveMax(t *testing.T) {
	if got := redact.Snippet("anything", 0); got != "" {
		t.Fatalf("expected empty string for max 0, got %q", got)
	}
}

func TestMap_RedactsSensitiveKeys(t *testing.T) {
	m := map[string]any{
		"username":     "alice",
		"password":     "s3cr3t",
		"api_key":      "key_abc",
		"access_token": "tok_123",
		"count":        42,
	}
	out := redact.Map(m)

	if out["username"] != "alice" {
		t.Errorf("username should not be redacted, got %v", out["username"])
	}
	if out["password"] != "[REDACTED]" {
		t.Errorf("password should be redacted, got %v", out["password"])
	}
	if out["api_key"] != "[REDACTED]" {
		t.Errorf("api_key should be redacted, got %v", out["api_key"])
	}
	if out["access_token"] != "[REDACTED]" {
		t.Errorf("access_token should be redacted, got %v", out["access_token"])
	}
	if out["count"] != 42 {
		t.Errorf("non-string count should be unchanged, got %v", out["count"])
	}
}

func TestMap_DoesNotMutateOriginal(t *testing.T) {
	m := map[string]any{"password": "secret"}
	redact.Map(m)
	if m["password"] != "secret" {
		t.Error("Map mutated the original; expected shallow copy")
	}
}
