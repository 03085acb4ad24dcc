package event

import "testing"

func TestTagFind(t *testing.T) {
	tags := Tags{{"e", "parent1"}, {"p", "agent-a"}, {"p", "agent-b"}}

	if v, ok := tags.Find("e"); !ok || v != "parent1" {
		t.Fatalf("Find(e) = %q, %v", v, ok)
	}
	if _, ok := tags.Find("missing"); ok {
		t.Fatalf("Find(missing) should not be found")
	}

	all := tags.FindAll("p")
	if len(all) != 2 || all[0] != "agent-a" || all[1] != "agent-b" {
		t.Fatalf("FindAll(p) = %v", all)
	}
}

func TestTagHasLen1(t *testing.T) {
	tags := Tags{{"reasoning"}, {"phase", "REFLECTION"}}
	if !tags.HasLen1("reasoning") {
		t.Fatalf("expected bare reasoning tag to match")
	}
	if tags.HasLen1("phase") {
		t.Fatalf("phase tag has a value, should not match HasLen1")
	}
}

func TestEventAddresseesDedup(t *testing.T) {
	e := Event{Tags: Tags{{"p", "a"}, {"p", "b"}, {"p", "a"}}}
	got := e.Addressees()
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("Addressees() = %v", got)
	}
}

func TestEventIsToolRecordAndReasoning(t *testing.T) {
	toolEvt := Event{Tags: Tags{{"tool", "call-1"}}}
	if !toolEvt.IsToolRecord() {
		t.Fatalf("expected tool record")
	}

	reasoningEvt := Event{Tags: Tags{{"reasoning"}}}
	if !reasoningEvt.IsReasoning() {
		t.Fatalf("expected reasoning marker")
	}

	plain := Event{Tags: Tags{{"e", "x"}}}
	if plain.IsToolRecord() || plain.IsReasoning() {
		t.Fatalf("plain event should not be tool/reasoning")
	}
}

func TestRootAndParentID(t *testing.T) {
	e := Event{Tags: Tags{{"E", "root1"}, {"e", "parent1"}}}
	root, ok := e.RootID()
	if !ok || root != "root1" {
		t.Fatalf("RootID() = %q, %v", root, ok)
	}
	parent, ok := e.ParentID()
	if !ok || parent != "parent1" {
		t.Fatalf("ParentID() = %q, %v", parent, ok)
	}
}
