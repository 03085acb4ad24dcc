package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/signalmesh/swarmcore/internal/convo"
)

func TestTodoWriteExecutePreservesCreatedAtOnResubmission(t *testing.T) {
	store := convo.New(nil)
	tw := &TodoWrite{Store: store, ConversationID: "c1", AgentPubkey: "agentA"}

	first := tw.Execute(context.Background(), json.RawMessage(`{
		"items": [{"id": "t1", "title": "write tests", "status": "pending"}]
	}`))
	if !first.OK {
		t.Fatalf("first Execute() failed: %+v", first)
	}

	created := store.GetTodos("c1", "agentA")[0].CreatedAt
	if created.IsZero() {
		t.Fatalf("expected WriteTodos to populate CreatedAt for a new item")
	}

	second := tw.Execute(context.Background(), json.RawMessage(`{
		"items": [{"id": "t1", "title": "write tests", "status": "in_progress"}]
	}`))
	if !second.OK {
		t.Fatalf("second Execute() failed: %+v", second)
	}

	got := store.GetTodos("c1", "agentA")[0]
	if !got.CreatedAt.Equal(created) {
		t.Fatalf("CreatedAt changed on status-only resubmission: got %v, want %v", got.CreatedAt, created)
	}
	if got.Status != convo.TodoInProgress {
		t.Fatalf("Status = %q, want in_progress", got.Status)
	}
}
