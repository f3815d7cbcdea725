// Package redact keeps conversation content and caller-supplied metadata
// out of log output.
//
// Kioku log lines are built from ids and counts. When a bounded glimpse of
// message text is genuinely useful at debug level, Snippet caps it; when
// per-message metadata is logged, Map strips values whose keys look like
// credentials. Redaction is best-effort string work. It is NOT a substitute
// for keeping sensitive values out of log call-sites in the first place.
package redact

import (
	"strings"
)

const placeholder = "[REDACTED]"

// Snippet returns s flattened onto one line and truncated to max runes,
// with "..." appended when anything was cut. A non-positive max returns "".
//
// Example:
//
//	logger.Debug("turn recorded", "preview", redact.Snippet(content, 48))
func Snippet(s string, max int) string {
	if max <= 0 {
		return ""
	}
	flat := strings.Join(strings.Fields(s), " ")
	runes := []rune(flat)
	if len(runes) <= max {
		return flat
	}
	return string(runes[:max]) + "..."
}

// Map returns a shallow copy of m with values replaced by [REDACTED] for
// every key whose name suggests it contains a secret (password, token, key,
// secret, credential, auth). Message metadata is caller-supplied, so Kioku
// never assumes it is safe to log verbatim. Non-string values are left
// unchanged.
func Map(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if isSensitiveKey(k) {
			if str, ok := v.(string); ok && str != "" {
				out[k] = placeholder
				continue
			}
		}
		out[k] = v
	}
	return out
}

// isSensitiveKey returns true when the key name suggests it holds a secret.
func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, word := range []string{"password", "passwd", "token", "secret", "key", "credential", "auth", "apikey"} {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}
