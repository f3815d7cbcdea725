package nlp

// techKeywords are technology names recognised as discussion topics when
// they appear anywhere in a user message. All entries are lowercase and
// matched against the lowercased message.
var techKeywords = []string{
	"java", "python", "javascript", "typescript", "react", "spring",
	"boot", "database", "sql", "api", "rest", "microservices", "docker",
	"kubernetes", "programming", "coding", "development", "software",
	"web", "frontend", "backend",
}

// techTerms are generic software-engineering nouns used as first-choice
// key concepts. All entries are lowercase and matched against the
// lowercased message.
var techTerms = []string{
	"algorithm", "function", "method", "class", "variable", "array",
	"list", "database", "query", "api", "framework", "library",
	"pattern", "design", "error", "exception", "bug", "issue",
	"problem", "solution", "approach",
}

// commonWords are capitalized sentence openers and auxiliaries that never
// make useful entities or concepts.
var commonWords = map[string]bool{
	"I": true, "You": true, "The": true, "This": true, "That": true,
	"How": true, "What": true, "When": true, "Where": true, "Why": true,
	"Can": true, "Could": true, "Should": true, "Would": true, "Will": true,
	"Do": true, "Does": true, "Did": true, "Have": true, "Has": true,
	"Had": true, "Is": true, "Are": true, "Was": true, "Were": true,
	"Be": true, "Been": true, "Being": true,
}
