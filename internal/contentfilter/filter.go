// Package contentfilter strips model "thinking" spans from event content
// before it reaches a prompt, and detects reasoning-only content. Grounded
// on nexus's internal/agent/compaction.go text-normalization idiom (regexp
// passes over message content with graceful fallback on the original text).
package contentfilter

import (
	"regexp"
	"strings"

	"github.com/signalmesh/swarmcore/pkg/event"
)

var thinkingTagRe = regexp.MustCompile(`(?is)<thinking[^>]*>.*?</thinking>`)

var multiSpaceRe = regexp.MustCompile(`[ \t]{2,}`)

var multiBlankLineRe = regexp.MustCompile(`\n{3,}`)

// Strip removes every <thinking ...>...</thinking> span (case-insensitive,
// attributes allowed, contents may span multiple lines, non-nested),
// collapses runs of two or more spaces to one (except leading indentation),
// collapses two-or-more consecutive blank lines to a single blank line, and
// trims the result. Strip never panics; on any unexpected input it falls
// back to returning the trimmed original text.
func Strip(text string) (result string) {
	defer func() {
		if r := recover(); r != nil {
			result = strings.TrimSpace(text)
		}
	}()

	stripped := thinkingTagRe.ReplaceAllString(text, "")

	lines := strings.Split(stripped, "\n")
	for i, line := range lines {
		leading := leadingWhitespace(line)
		rest := line[len(leading):]
		rest = multiSpaceRe.ReplaceAllString(rest, " ")
		lines[i] = leading + rest
	}
	collapsed := strings.Join(lines, "\n")

	collapsed = multiBlankLineRe.ReplaceAllString(collapsed, "\n\n")

	return strings.TrimSpace(collapsed)
}

func leadingWhitespace(line string) string {
	i := 0
	for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
		i++
	}
	return line[:i]
}

// IsOnlyThinking reports whether text is non-empty after trimming but
// stripping thinking spans leaves nothing.
func IsOnlyThinking(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	return Strip(text) == ""
}

// HasReasoningTag reports whether the event carries the bare "reasoning"
// marker tag (first element "reasoning", length 1).
func HasReasoningTag(e event.Event) bool {
	return e.IsReasoning()
}
