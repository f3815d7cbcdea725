package nlp

import (
	"regexp"
	"strings"

	"github.com/bdobrica/Kioku/internal/kioku/memory"
)

var (
	// pronounPattern matches bare referring pronouns.
	pronounPattern = regexp.MustCompile(`(?i)\b(that|it|this|these|those)\b`)

	// demonstrativePattern matches a demonstrative with its noun, as in
	// "that function" or "this error".
	demonstrativePattern = regexp.MustCompile(`(?i)\b(this|that|these|those)\s+(\w+)`)

	// backReferencePattern matches explicit pointers to earlier turns,
	// as in "the above" or "the mentioned".
	backReferencePattern = regexp.MustCompile(`(?i)\b(the (above|previous|last|earlier|mentioned))\b`)
)

// ContainsReference reports whether text carries any referring expression:
// a bare pronoun, a demonstrative phrase, or an explicit back reference.
func ContainsReference(text string) bool {
	return pronounPattern.MatchString(text) ||
		demonstrativePattern.MatchString(text) ||
		backReferencePattern.MatchString(text)
}

// ContainsPronoun reports whether text carries a bare referring pronoun.
func ContainsPronoun(text string) bool {
	return pronounPattern.MatchString(text)
}

// Resolver maps referring expressions in a message to their likely
// referents in the recent conversation window.
type Resolver struct {
	// Window is how many recent messages are consulted. Default: 10.
	Window int
}

// NewResolver creates a Resolver over a window of the given size.
func NewResolver(window int) *Resolver {
	if window <= 0 {
		window = 10
	}
	return &Resolver{Window: window}
}

// Resolve returns a map from each referring span in text to its resolved
// referent. Three strategies run in order (demonstrative, pronoun, back
// reference) and the first resolution recorded for a span wins. The map
// is empty when the message or the conversation history is empty; spans
// that resolve to nothing are simply absent.
func (r *Resolver) Resolve(text string, rec *memory.ConversationRecord) map[string]string {
	resolutions := make(map[string]string)
	if strings.TrimSpace(text) == "" || rec == nil || rec.IsEmpty() {
		return resolutions
	}

	window := rec.RecentMessages(r.Window)

	r.resolveDemonstratives(text, window, resolutions)
	r.resolvePronouns(text, window, resolutions)
	r.resolveBackReferences(text, window, resolutions)

	return resolutions
}

// resolveDemonstratives resolves "<this|that|these|those> <noun>" phrases
// by locating the noun in the window, newest message first, and answering
// with the phrase around it.
func (r *Resolver) resolveDemonstratives(text string, window []memory.Message, resolutions map[string]string) {
	for _, m := range demonstrativePattern.FindAllStringSubmatch(text, -1) {
		span, noun := m[0], m[2]
		if referent, ok := findNounContext(noun, window); ok {
			setIfAbsent(resolutions, span, referent)
		}
	}
}

// resolvePronouns points every bare pronoun at the key concept of the most
// recent assistant message in the window. Without an assistant message or
// a usable concept, pronouns stay unresolved.
func (r *Resolver) resolvePronouns(text string, window []memory.Message, resolutions map[string]string) {
	var lastAssistant string
	for i := len(window) - 1; i >= 0; i-- {
		if window[i].IsAssistant() {
			lastAssistant = window[i].Content
			break
		}
	}
	if lastAssistant == "" {
		return
	}

	concept := KeyConcept(lastAssistant)
	if concept == "" {
		return
	}
	for _, m := range pronounPattern.FindAllStringSubmatch(text, -1) {
		setIfAbsent(resolutions, m[1], concept)
	}
}

// resolveBackReferences resolves "the above/previous/last/earlier" to the
// key concept of the latest message in the window, and "the mentioned" to
// the concept heard most often across it.
func (r *Resolver) resolveBackReferences(text string, window []memory.Message, resolutions map[string]string) {
	for _, m := range backReferencePattern.FindAllStringSubmatch(text, -1) {
		span := m[0]

		var referent string
		switch strings.ToLower(m[2]) {
		case "above", "previous", "last", "earlier":
			if len(window) > 0 {
				referent = KeyConcept(window[len(window)-1].Content)
			}
		case "mentioned":
			referent = FrequentConcept(window)
		}

		if referent != "" {
			setIfAbsent(resolutions, span, referent)
		}
	}
}

// findNounContext scans the window newest first for a message mentioning
// the noun (case insensitive substring) and returns the phrase around it.
func findNounContext(noun string, window []memory.Message) (string, bool) {
	needle := strings.ToLower(noun)
	for i := len(window) - 1; i >= 0; i-- {
		content := window[i].Content
		if strings.Contains(strings.ToLower(content), needle) {
			return contextAround(content, needle), true
		}
	}
	return "", false
}

// contextAround returns up to three words either side of the word that
// contains the noun, falling back to a truncated snippet of the message.
func contextAround(content, noun string) string {
	words := strings.Fields(content)
	for i, word := range words {
		if strings.Contains(strings.ToLower(word), noun) {
			start := i - 3
			if start < 0 {
				start = 0
			}
			end := i + 4
			if end > len(words) {
				end = len(words)
			}
			return strings.Join(words[start:end], " ")
		}
	}
	if len(content) > 50 {
		return content[:50] + "..."
	}
	return content
}

// setIfAbsent records a resolution unless the span is already resolved by
// an earlier strategy.
func setIfAbsent(resolutions map[string]string, span, referent string) {
	if _, ok := resolutions[span]; !ok {
		resolutions[span] = referent
	}
}
