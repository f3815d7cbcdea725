package nlp

import (
	"regexp"
	"strings"

	"github.com/bdobrica/Kioku/internal/kioku/memory"
)

// conceptPattern matches capitalized words of at least three letters,
// the second-choice concept signal after the technical vocabulary.
var conceptPattern = regexp.MustCompile(`\b[A-Z][a-zA-Z]{2,}\b`)

// KeyConcept distills a short label from a message. Precedence: the first
// technical-vocabulary hit, else the first capitalized word that is not a
// common sentence opener, else the opening words of the message ("..."
// appended when truncated). Returns "" for blank input.
func KeyConcept(content string) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}

	lower := strings.ToLower(content)
	for _, term := range techTerms {
		if strings.Contains(lower, term) {
			return term
		}
	}

	for _, word := range conceptPattern.FindAllString(content, -1) {
		if !commonWords[word] {
			return word
		}
	}

	words := strings.Fields(content)
	if len(words) > 3 {
		return strings.Join(words[:3], " ") + "..."
	}
	return strings.TrimSpace(content)
}

// FrequentConcept returns the key concept heard most often across the
// messages, scanning oldest first. Ties resolve to the concept that
// appeared earliest, so the result is deterministic.
func FrequentConcept(messages []memory.Message) string {
	counts := make(map[string]int)
	var order []string
	for _, msg := range messages {
		concept := KeyConcept(msg.Content)
		if concept == "" {
			continue
		}
		if counts[concept] == 0 {
			order = append(order, concept)
		}
		counts[concept]++
	}

	best := ""
	for _, concept := range order {
		if best == "" || counts[concept] > counts[best] {
			best = concept
		}
	}
	return best
}
