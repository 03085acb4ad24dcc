// Package budgeter adaptively truncates tool-call output based on its size
// and how deeply it is buried in the prompt history, grounded on nexus's
// internal/compaction token-budget trimming idiom (there trimming whole
// messages against a token ceiling; here truncating individual tool parts
// against a burial-depth ceiling).
package budgeter

import "fmt"

// Tunable thresholds, per spec.md §4.6.
const (
	NeverTruncate    = 1000
	Large            = 10_000
	LargeBurialLimit = 3
	SmallBurialLimit = 6
)

// Part is one tool-result fragment whose Output may be truncated.
type Part struct {
	Output string
}

// Decision describes how a set of tool-result parts at a given prompt
// position were treated.
type Decision struct {
	// Truncated reports whether any rewriting occurred; when false, Parts
	// is returned unmodified.
	Truncated bool
	Parts     []Part
}

// BurialDepth computes spec.md §4.6's `totalMessages - currentIndex - 1`.
func BurialDepth(totalMessages, currentIndex int) int {
	return totalMessages - currentIndex - 1
}

// Decide applies spec.md §4.6's decision table to parts appearing at
// currentIndex out of totalMessages, with an optional retrievalEventID (""
// means absent). The decision depends only on total output size, burial
// depth, and whether a retrieval id is present, never on the id's value.
func Decide(parts []Part, currentIndex, totalMessages int, retrievalEventID string) Decision {
	size := totalSize(parts)
	if size < NeverTruncate {
		return Decision{Truncated: false, Parts: parts}
	}

	depth := BurialDepth(totalMessages, currentIndex)
	limit := SmallBurialLimit
	if size > Large {
		limit = LargeBurialLimit
	}
	if depth < limit {
		return Decision{Truncated: false, Parts: parts}
	}

	var placeholder string
	if retrievalEventID != "" {
		placeholder = fmt.Sprintf(
			"[Tool executed, %d chars output truncated. Use fs_read(tool=\"%s\") to retrieve full output if needed]",
			size, retrievalEventID)
	} else {
		placeholder = fmt.Sprintf(
			"[Tool output omitted to save context (%d chars) - no reference available for retrieval]", size)
	}

	out := make([]Part, len(parts))
	for i := range parts {
		out[i] = Part{Output: placeholder}
	}
	return Decision{Truncated: true, Parts: out}
}

func totalSize(parts []Part) int {
	total := 0
	for _, p := range parts {
		total += len(p.Output)
	}
	return total
}
