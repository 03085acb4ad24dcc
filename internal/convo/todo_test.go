package convo

import "testing"

func TestWriteTodosRejectsDuplicateIDs(t *testing.T) {
	s := New(nil)
	items := []TodoItem{{ID: "t1", Title: "a"}, {ID: "t1", Title: "b"}}
	if err := s.WriteTodos("c1", "agentA", items, true); err == nil {
		t.Fatalf("expected error for duplicate ids")
	}
}

func TestWriteTodosRejectsSkippedWithoutReason(t *testing.T) {
	s := New(nil)
	items := []TodoItem{{ID: "t1", Title: "a", Status: TodoSkipped}}
	if err := s.WriteTodos("c1", "agentA", items, true); err == nil {
		t.Fatalf("expected error for skipped item without skipReason")
	}
}

func TestWriteTodosRejectsMissingIDsWithoutForce(t *testing.T) {
	s := New(nil)
	first := []TodoItem{{ID: "t1", Title: "a"}, {ID: "t2", Title: "b"}}
	if err := s.WriteTodos("c1", "agentA", first, true); err != nil {
		t.Fatalf("initial WriteTodos() error: %v", err)
	}

	second := []TodoItem{{ID: "t1", Title: "a"}}
	if err := s.WriteTodos("c1", "agentA", second, false); err == nil {
		t.Fatalf("expected error dropping t2 without force")
	}

	got := s.GetTodos("c1", "agentA")
	if len(got) != 2 {
		t.Fatalf("state should be unchanged after rejected write, got %d items", len(got))
	}
}

func TestWriteTodosAllowsDroppingIDsWithForce(t *testing.T) {
	s := New(nil)
	first := []TodoItem{{ID: "t1", Title: "a"}, {ID: "t2", Title: "b"}}
	if err := s.WriteTodos("c1", "agentA", first, true); err != nil {
		t.Fatalf("initial WriteTodos() error: %v", err)
	}

	second := []TodoItem{{ID: "t1", Title: "a"}}
	if err := s.WriteTodos("c1", "agentA", second, true); err != nil {
		t.Fatalf("forced WriteTodos() error: %v", err)
	}

	got := s.GetTodos("c1", "agentA")
	if len(got) != 1 || got[0].ID != "t1" {
		t.Fatalf("GetTodos() = %+v", got)
	}
}

func TestWriteTodosPreservesCreatedAtAndDescription(t *testing.T) {
	s := New(nil)
	first := []TodoItem{{ID: "t1", Title: "a", Description: "original desc", Status: TodoPending}}
	if err := s.WriteTodos("c1", "agentA", first, true); err != nil {
		t.Fatalf("initial WriteTodos() error: %v", err)
	}
	originalCreatedAt := s.GetTodos("c1", "agentA")[0].CreatedAt

	second := []TodoItem{{ID: "t1", Title: "a", Status: TodoInProgress}}
	if err := s.WriteTodos("c1", "agentA", second, true); err != nil {
		t.Fatalf("second WriteTodos() error: %v", err)
	}

	got := s.GetTodos("c1", "agentA")[0]
	if got.Description != "original desc" {
		t.Fatalf("Description = %q, want preserved original", got.Description)
	}
	if !got.CreatedAt.Equal(originalCreatedAt) {
		t.Fatalf("CreatedAt changed across replace")
	}
	if got.Status != TodoInProgress {
		t.Fatalf("Status = %q, want in_progress", got.Status)
	}
}

func TestWriteTodosUpdatedAtOnlyChangesOnStatusChange(t *testing.T) {
	s := New(nil)
	first := []TodoItem{{ID: "t1", Title: "a", Status: TodoPending}}
	if err := s.WriteTodos("c1", "agentA", first, true); err != nil {
		t.Fatalf("initial WriteTodos() error: %v", err)
	}
	originalUpdatedAt := s.GetTodos("c1", "agentA")[0].UpdatedAt

	unchanged := []TodoItem{{ID: "t1", Title: "a", Status: TodoPending}}
	if err := s.WriteTodos("c1", "agentA", unchanged, true); err != nil {
		t.Fatalf("second WriteTodos() error: %v", err)
	}
	got := s.GetTodos("c1", "agentA")[0]
	if !got.UpdatedAt.Equal(originalUpdatedAt) {
		t.Fatalf("UpdatedAt changed despite unchanged status")
	}
}
