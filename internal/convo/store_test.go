package convo

import (
	"context"
	"testing"

	"github.com/signalmesh/swarmcore/pkg/event"
)

func TestUpsertEventAppendsAndDedupes(t *testing.T) {
	s := New(nil)
	e := event.Event{ID: "e1", Content: "hello"}

	if err := s.UpsertEvent("c1", e); err != nil {
		t.Fatalf("UpsertEvent() error: %v", err)
	}
	if err := s.UpsertEvent("c1", e); err != nil {
		t.Fatalf("UpsertEvent() duplicate error: %v", err)
	}

	c := s.Get("c1")
	if len(c.History) != 1 {
		t.Fatalf("History = %d events, want 1 after duplicate upsert", len(c.History))
	}
}

func TestGetReturnsIndependentCopy(t *testing.T) {
	s := New(nil)
	if err := s.UpsertEvent("c1", event.Event{ID: "e1", Content: "hello"}); err != nil {
		t.Fatalf("UpsertEvent() error: %v", err)
	}
	if err := s.UpdateAgentState("c1", "agentA", func(st AgentState) AgentState {
		st.Scratch["k"] = "v"
		return st
	}); err != nil {
		t.Fatalf("UpdateAgentState() error: %v", err)
	}

	c := s.Get("c1")
	c.History[0].Content = "mutated"
	c.AgentStates["agentA"].Scratch["k"] = "mutated"
	c.Metadata["new"] = "mutated"

	fresh := s.Get("c1")
	if fresh.History[0].Content != "hello" {
		t.Fatalf("History mutation through Get() leaked into the Store, content = %q", fresh.History[0].Content)
	}
	if fresh.AgentStates["agentA"].Scratch["k"] != "v" {
		t.Fatalf("AgentState.Scratch mutation through Get() leaked into the Store")
	}
	if _, ok := fresh.Metadata["new"]; ok {
		t.Fatalf("Metadata mutation through Get() leaked into the Store")
	}
}

func TestUpdateAgentStateAppliesDelta(t *testing.T) {
	s := New(nil)
	err := s.UpdateAgentState("c1", "agentA", func(st AgentState) AgentState {
		st.LastProcessedMessageIndex = 5
		return st
	})
	if err != nil {
		t.Fatalf("UpdateAgentState() error: %v", err)
	}

	c := s.Get("c1")
	if c.AgentStates["agentA"].LastProcessedMessageIndex != 5 {
		t.Fatalf("LastProcessedMessageIndex = %d, want 5", c.AgentStates["agentA"].LastProcessedMessageIndex)
	}
}

func TestUpdatePhaseRecordsTransition(t *testing.T) {
	s := New(nil)
	if err := s.UpdatePhase("c1", "REFLECTION", "manual", "actor1", "Actor"); err != nil {
		t.Fatalf("UpdatePhase() error: %v", err)
	}
	c := s.Get("c1")
	if c.Phase != "REFLECTION" {
		t.Fatalf("Phase = %q", c.Phase)
	}
	if len(c.PhaseHistory) != 1 || c.PhaseHistory[0].To != "REFLECTION" {
		t.Fatalf("PhaseHistory = %+v", c.PhaseHistory)
	}
}

func TestUpdateMetadataMerges(t *testing.T) {
	s := New(nil)
	if err := s.UpdateMetadata("c1", map[string]any{"a": 1}); err != nil {
		t.Fatalf("UpdateMetadata() error: %v", err)
	}
	if err := s.UpdateMetadata("c1", map[string]any{"b": 2}); err != nil {
		t.Fatalf("UpdateMetadata() error: %v", err)
	}
	c := s.Get("c1")
	if c.Metadata["a"] != 1 || c.Metadata["b"] != 2 {
		t.Fatalf("Metadata = %+v", c.Metadata)
	}
}

func TestPersistAndRestoreRoundTrip(t *testing.T) {
	persistence := NewMemoryPersistence()
	s := New(persistence)
	ctx := context.Background()

	e := event.Event{ID: "e1", Content: "hi"}
	if err := s.UpsertEvent("c1", e); err != nil {
		t.Fatalf("UpsertEvent() error: %v", err)
	}
	if err := s.UpdateMetadata("c1", map[string]any{"k": "v"}); err != nil {
		t.Fatalf("UpdateMetadata() error: %v", err)
	}
	if err := s.Persist(ctx, "c1"); err != nil {
		t.Fatalf("Persist() error: %v", err)
	}

	s2 := New(persistence)
	if err := s2.Restore(ctx, "c1"); err != nil {
		t.Fatalf("Restore() error: %v", err)
	}
	c := s2.Get("c1")
	if len(c.History) != 1 || c.History[0].ID != "e1" {
		t.Fatalf("History after restore = %+v", c.History)
	}
	if c.Metadata["k"] != "v" {
		t.Fatalf("Metadata after restore = %+v", c.Metadata)
	}
	if !c.HasEvent("e1") {
		t.Fatalf("processedIDs not restored")
	}
}

func TestRestoreWithoutSnapshotErrors(t *testing.T) {
	s := New(NewMemoryPersistence())
	if err := s.Restore(context.Background(), "missing"); err == nil {
		t.Fatalf("expected error restoring unknown conversation")
	}
}
