package nlp

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bdobrica/Kioku/internal/kioku/memory"
)

// promptSections fixes the order and labels of the context information
// block in the composed prompt.
var promptSections = []struct {
	label    string
	category string
}{
	{"User skills", CategorySkills},
	{"Discussion topics", CategoryTopics},
	{"User preferences", CategoryPreferences},
	{"Mentioned entities", CategoryEntities},
}

// referenceNote is appended when the message refers back to earlier turns
// but nothing could be resolved, so the model knows to resolve them itself.
const referenceNote = "\n\nNote: The user's message contains references (like 'that', 'it', 'this'). " +
	"Please resolve these references using the conversation context above."

// resolutionInstruction closes the reference resolutions block.
const resolutionInstruction = "\nPlease use these reference resolutions when responding to the user's message."

// ComposePrompt renders the model prompt for a user message: the recent
// transcript, the accumulated context information, the message itself,
// and, when the message refers back to earlier turns, either the supplied
// resolutions or a note asking the model to resolve them. Resolutions are
// rendered in sorted span order so output is deterministic.
//
// An empty or missing record yields the message verbatim. Composition
// never fails.
func ComposePrompt(rec *memory.ConversationRecord, currentMessage string, window int, resolutions map[string]string) string {
	if rec == nil || rec.IsEmpty() {
		return currentMessage
	}

	var b strings.Builder

	recent := rec.RecentMessages(window)
	if len(recent) > 0 {
		b.WriteString("Previous conversation context:\n")
		for _, msg := range recent {
			role := "Assistant"
			if msg.IsUser() {
				role = "User"
			}
			fmt.Fprintf(&b, "%s: \"%s\"\n", role, msg.Content)
		}
		b.WriteString("\n")
	}

	var info []string
	for _, section := range promptSections {
		if vals := rec.ContextValues(section.category); len(vals) > 0 {
			info = append(info, "- "+section.label+": "+strings.Join(vals, ", "))
		}
	}
	if len(info) > 0 {
		b.WriteString("Context information:\n")
		for _, line := range info {
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Current message: \"%s\"", currentMessage)

	if ContainsReference(currentMessage) {
		if len(resolutions) > 0 {
			b.WriteString("\n\nReference resolutions:\n")

			spans := make([]string, 0, len(resolutions))
			for span := range resolutions {
				spans = append(spans, span)
			}
			sort.Strings(spans)

			for _, span := range spans {
				fmt.Fprintf(&b, "- \"%s\" likely refers to: %s\n", span, resolutions[span])
			}
			b.WriteString(resolutionInstruction)
		} else {
			b.WriteString(referenceNote)
		}
	}

	return b.String()
}
