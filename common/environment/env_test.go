package environment_test

import (
	"testing"
	"time"

	"github.com/bdobrica/Kioku/common/environment"
)

func TestString(t *testing.T) {
	t.Setenv("TEST_SET_EMPTY", "")
	if v, ok := environment.String("TEST_SET_EMPTY"); !ok || v != "" {
		t.Errorf("expected (%q, true), got (%q, %v)", "", v, ok)
	}
	if _, ok := environment.String("TEST_STRING_UNSET"); ok {
		t.Error("expected ok=false for an unset variable")
	}
}

func TestStringOr(t *testing.T) {
	t.Setenv("TEST_STRING", "hello")
	if got := environment.StringOr("TEST_STRING", "default"); got != "hello" {
		t.Errorf("expected %q, got %q", "hello", got)
	}
	if got := environment.StringOr("TEST_STRING_MISSING", "default"); got != "default" {
		t.Errorf("expected %q, got %q", "default", got)
	}
}

func TestBoolOr(t *testing.T) {
	t.Setenv("TEST_BOOL", "true")
	if !environment.BoolOr("TEST_BOOL", false) {
		t.Error("expected true")
	}
	t.Setenv("TEST_BOOL", "0")
	if environment.BoolOr("TEST_BOOL", true) {
		t.Error("expected false")
	}
	if !environment.BoolOr("TEST_BOOL_MISSING", true) {
		t.Error("expected default true")
	}
	t.Setenv("TEST_BOOL_BAD", "maybe")
	if environment.BoolOr("TEST_BOOL_BAD", false) {
		t.Error("expected default false for unparsable value")
	}
}

func TestIntOr(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	if got := environment.IntOr("TEST_INT", 0); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
	if got := environment.IntOr("TEST_INT_MISSING", 99); got != 99 {
		t.Errorf("expected 99, got %d", got)
	}
	t.Setenv("TEST_INT_BAD", "notanint")
	if got := environment.IntOr("TEST_INT_BAD", 7); got != 7 {
		t.Errorf("expected default 7 for bad value, got %d", got)
	}
}

func TestDurationOr(t *testing.T) {
	t.Setenv("TEST_DUR", "30s")
	if got := environment.DurationOr("TEST_DUR", time.Minute); got != 30*time.Second {
		t.Errorf("expected 30s, got %v", got)
	}
	if got := environment.DurationOr("TEST_DUR_MISSING", time.Minute); got != time.Minute {
		t.Errorf("expected 1m, got %v", got)
	}
	t.Setenv("TEST_DUR_BAD", "90 minutes")
	if got := environment.DurationOr("TEST_DUR_BAD", time.Hour); got != time.Hour {
		t.Errorf("expected default 1h for bad value, got %v", got)
	}
}
