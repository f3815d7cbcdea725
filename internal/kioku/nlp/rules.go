// Package nlp implements the lightweight text analysis behind Kioku's
// conversational memory: extraction rules that mine user messages for
// skills, preferences, topics, and entities; key-concept heuristics;
// reference resolution against recent turns; and prompt composition.
// Everything is regex and vocabulary driven, there are no model calls.
package nlp

import (
	"regexp"
	"strings"

	"github.com/bdobrica/Kioku/internal/kioku/memory"
)

// Context metadata categories populated by the extraction rules.
const (
	CategorySkills      = "skills"
	CategoryPreferences = "preferences"
	CategoryTopics      = "topics"
	CategoryEntities    = "entities"
)

var (
	// skillPattern matches self-assessments like "I'm good at python" or
	// "I am not experienced at kubernetes".
	skillPattern = regexp.MustCompile(`(?i)\b(I am|I'm)\s+(not\s+)?(good|bad|terrible|excellent|great|new|experienced)\s+at\s+(\w+)`)

	// preferencePattern matches statements like "I prefer tabs over spaces".
	preferencePattern = regexp.MustCompile(`(?i)\b(I (like|prefer|hate|dislike|love|want|need))\s+(.+)`)

	// topicPattern matches subject markers like "about microservices".
	topicPattern = regexp.MustCompile(`(?i)\b(about|regarding|concerning|related to)\s+(\w+)`)

	// entityPattern matches capitalized words. Deliberately case sensitive,
	// capitalization is the signal.
	entityPattern = regexp.MustCompile(`\b[A-Z][a-zA-Z]+\b`)
)

// extractionRule is one category of context extraction. Every rule runs
// its pattern over the message and turns each match into an entry via
// collect; rules with a vocab additionally record each vocabulary word
// found in the lowercased message.
type extractionRule struct {
	name     string
	category string
	pattern  *regexp.Regexp
	collect  func(match []string) string
	vocab    []string
}

// extractionRules is the full rule set, applied in order. Adding a
// category means adding a row, not a new extraction function.
var extractionRules = []extractionRule{
	{
		name:     "skill",
		category: CategorySkills,
		pattern:  skillPattern,
		collect: func(m []string) string {
			// A negated self-assessment reads as a beginner, whatever the
			// adjective: "I'm not good at X" and "I'm not great at X" both
			// record "X: beginner".
			level := m[3]
			if m[2] != "" {
				level = "beginner"
			}
			return m[4] + ": " + level
		},
	},
	{
		name:     "preference",
		category: CategoryPreferences,
		pattern:  preferencePattern,
		collect: func(m []string) string {
			// Keep the stated verb with its object: "I prefer" + "tabs".
			return m[1] + " " + m[3]
		},
	},
	{
		name:     "topic",
		category: CategoryTopics,
		pattern:  topicPattern,
		collect:  func(m []string) string { return m[2] },
		vocab:    techKeywords,
	},
	{
		name:     "entity",
		category: CategoryEntities,
		pattern:  entityPattern,
		collect: func(m []string) string {
			if commonWords[m[0]] {
				return ""
			}
			return m[0]
		},
	},
}

// ExtractContext runs every extraction rule against a user message and
// appends the findings to the record's context metadata. Categories are
// ordered unique sets, so repeating the same input adds nothing.
func ExtractContext(text string, rec *memory.ConversationRecord) {
	if rec == nil || strings.TrimSpace(text) == "" {
		return
	}

	lower := strings.ToLower(text)
	for _, rule := range extractionRules {
		for _, m := range rule.pattern.FindAllStringSubmatch(text, -1) {
			if entry := rule.collect(m); entry != "" {
				rec.AddContextValue(rule.category, entry)
			}
		}
		for _, word := range rule.vocab {
			if strings.Contains(lower, word) {
				rec.AddContextValue(rule.category, word)
			}
		}
	}
}
