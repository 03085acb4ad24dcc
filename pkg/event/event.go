// Package event defines the logical shape of the signed, threaded event log
// that the conversation engine reads and writes. The wire format and the
// transport that moves these events between peers are out of scope for this
// module; only the shape fixed by the specification lives here.
package event

import "time"

// Well-known tag names. Tag matching is first-element equality; a tag may be
// repeated to carry multiple values (e.g. several "p" tags for a multi-target
// delegation).
const (
	TagRoot               = "E" // root of the conversation thread
	TagParent             = "e" // direct parent event
	TagAddressee          = "p" // addressee public key, may repeat
	TagTool               = "tool"
	TagReasoning          = "reasoning"
	TagPhase              = "phase"
	TagPhaseInstructions  = "phase-instructions"
	TagClaudeSession      = "claude-session"
	TagBranch             = "branch"
	TagStatus             = "status"
)

// Kind enumerates the well-known event kinds this engine cares about. Other
// kind values are passed through opaquely.
type Kind int

const (
	KindNote       Kind = 1   // a plain threaded note (user or agent message)
	KindToolRecord Kind = 1111 // a tool-call/result record (full payload lives in ToolMessageStore)
)

// Tag is an ordered tuple (name, value, ...extra). The transport may attach
// additional positional elements after the value; this engine only ever
// reads the first two.
type Tag []string

// Name returns the tag's first element, or "" if the tag is empty.
func (t Tag) Name() string {
	if len(t) == 0 {
		return ""
	}
	return t[0]
}

// Value returns the tag's second element, or "" if absent.
func (t Tag) Value() string {
	if len(t) < 2 {
		return ""
	}
	return t[1]
}

// Tags is an ordered sequence of Tag tuples.
type Tags []Tag

// Find returns the value of the first tag whose name matches, and whether
// one was found.
func (ts Tags) Find(name string) (string, bool) {
	for _, t := range ts {
		if t.Name() == name {
			return t.Value(), true
		}
	}
	return "", false
}

// FindAll returns the values of every tag whose name matches, in order.
func (ts Tags) FindAll(name string) []string {
	var out []string
	for _, t := range ts {
		if t.Name() == name {
			out = append(out, t.Value())
		}
	}
	return out
}

// Has reports whether any tag matches name exactly (ignoring value).
func (ts Tags) Has(name string) bool {
	for _, t := range ts {
		if t.Name() == name {
			return true
		}
	}
	return false
}

// HasLen1 reports whether any tag matches name and carries no extra
// elements beyond the name itself (used for the bare "reasoning" marker).
func (ts Tags) HasLen1(name string) bool {
	for _, t := range ts {
		if len(t) == 1 && t[0] == name {
			return true
		}
	}
	return false
}

// PValues returns every addressee public key from "p" tags, in order,
// duplicates included (callers that need a set should dedupe themselves).
func (ts Tags) PValues() []string {
	return ts.FindAll(TagAddressee)
}

// Event is an immutable, signed record observed on the shared event log.
type Event struct {
	ID        string
	Author    string // public key, hex
	CreatedAt time.Time
	Kind      Kind
	Content   string
	Tags      Tags
}

// RootID returns the event's "E" tag value, if present.
func (e Event) RootID() (string, bool) {
	return e.Tags.Find(TagRoot)
}

// ParentID returns the event's "e" tag value, if present.
func (e Event) ParentID() (string, bool) {
	return e.Tags.Find(TagParent)
}

// IsToolRecord reports whether the event carries the "tool" marker tag.
func (e Event) IsToolRecord() bool {
	return e.Tags.Has(TagTool)
}

// IsReasoning reports whether the event carries the bare "reasoning" marker
// tag (first element "reasoning", no further elements).
func (e Event) IsReasoning() bool {
	return e.Tags.HasLen1(TagReasoning)
}

// Addressees returns the distinct set of agents this event targets via "p"
// tags, preserving first-seen order.
func (e Event) Addressees() []string {
	seen := make(map[string]struct{}, len(e.Tags))
	var out []string
	for _, v := range e.Tags.PValues() {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
