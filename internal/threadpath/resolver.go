// Package threadpath computes ancestor chains within a shared, threaded
// event history, grounded on nexus's internal/sessions/hierarchy.go
// parent-chain walking idiom (there applied to session branches instead of
// events).
package threadpath

import "github.com/signalmesh/swarmcore/pkg/event"

// Path computes the ordered list of event ids from the root of the
// conversation down to target, per spec.md §4.4.
//
//  1. If target has no "E" tag, the whole history (in order) is the path.
//  2. Otherwise walk from target via "e" tags, prepending each visited id,
//     stopping when the current event's id equals the root id (success), or
//     the current event has no "e" tag (orphan), or the "e" parent is not
//     present in history (incomplete thread), or a cycle is detected.
//
// In the orphan/incomplete-thread cases, the root id is prepended if it
// exists in history.
func Path(history []event.Event, target event.Event) []string {
	rootID, hasRoot := target.RootID()
	if !hasRoot {
		return ids(history)
	}

	byID := index(history)

	var collected []string
	seen := make(map[string]struct{})
	current := target

	for {
		currentID := current.ID
		if _, cyc := seen[currentID]; cyc {
			// Cycle detected: stop, keep what was collected so far.
			break
		}
		seen[currentID] = struct{}{}
		collected = append([]string{currentID}, collected...)

		if currentID == rootID {
			return collected
		}

		parentID, hasParent := current.ParentID()
		if !hasParent {
			return prependRoot(collected, rootID, byID)
		}

		parent, ok := byID[parentID]
		if !ok {
			return prependRoot(collected, rootID, byID)
		}
		current = parent
	}

	return prependRoot(collected, rootID, byID)
}

func prependRoot(collected []string, rootID string, byID map[string]event.Event) []string {
	if _, ok := byID[rootID]; !ok {
		return collected
	}
	if len(collected) > 0 && collected[0] == rootID {
		return collected
	}
	return append([]string{rootID}, collected...)
}

// ThreadEvents computes the ordered subset of history relevant to
// triggering, per spec.md §4.4's derived operation:
//   - no triggering event, or triggering has no "E" tag: whole history.
//   - triggering.e == triggering.E, or triggering.e points to the root
//     event: whole history (a direct reply to the root).
//   - otherwise: history filtered to members of Path(history, parentOf(triggering)).
//   - if that parent isn't in history: whole history (fallback).
func ThreadEvents(history []event.Event, triggering *event.Event) []event.Event {
	if triggering == nil {
		return history
	}
	rootID, hasRoot := triggering.RootID()
	if !hasRoot {
		return history
	}
	parentID, hasParent := triggering.ParentID()
	if !hasParent || parentID == rootID {
		return history
	}

	byID := index(history)
	parent, ok := byID[parentID]
	if !ok {
		return history
	}

	pathIDs := Path(history, parent)
	inPath := make(map[string]struct{}, len(pathIDs))
	for _, id := range pathIDs {
		inPath[id] = struct{}{}
	}

	var filtered []event.Event
	for _, e := range history {
		if _, ok := inPath[e.ID]; ok {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

// FilterToThread keeps only the events in candidates whose id is on the
// thread path leading to target (used by buildMessagesWithMissedHistory to
// narrow a "missed events" batch down to the relevant thread).
func FilterToThread(history []event.Event, target event.Event, candidates []event.Event) []event.Event {
	pathIDs := Path(history, target)
	inPath := make(map[string]struct{}, len(pathIDs))
	for _, id := range pathIDs {
		inPath[id] = struct{}{}
	}
	var filtered []event.Event
	for _, e := range candidates {
		if _, ok := inPath[e.ID]; ok {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

func ids(history []event.Event) []string {
	out := make([]string, len(history))
	for i, e := range history {
		out[i] = e.ID
	}
	return out
}

func index(history []event.Event) map[string]event.Event {
	m := make(map[string]event.Event, len(history))
	for _, e := range history {
		m[e.ID] = e
	}
	return m
}
