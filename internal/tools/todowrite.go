package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/signalmesh/swarmcore/internal/convo"
	"github.com/signalmesh/swarmcore/internal/swarmerr"
)

// TodoWrite wires the write-only-replace todo operation (spec.md §4.11)
// into the tool framework, so an agent's own model turn can update its
// todo list through the same validated-invocation path as any other tool.
type TodoWrite struct {
	Store          *convo.Store
	ConversationID string
	AgentPubkey    string
}

type todoWriteParams struct {
	Items []todoWriteItem `json:"items"`
	Force bool            `json:"force"`
}

type todoWriteItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
	SkipReason  string `json:"skipReason,omitempty"`
}

// Name implements Tool.
func (t *TodoWrite) Name() string { return "todo_write" }

// Description implements Tool.
func (t *TodoWrite) Description() string {
	return "Replaces the calling agent's todo list for this conversation."
}

// Schema implements Tool.
func (t *TodoWrite) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"items": {
				"type": "array",
				"items": {
					"type": "object",
					"properties": {
						"id": {"type": "string"},
						"title": {"type": "string"},
						"description": {"type": "string"},
						"status": {"type": "string", "enum": ["pending", "in_progress", "done", "skipped"]},
						"skipReason": {"type": "string"}
					},
					"required": ["id", "title", "status"]
				}
			},
			"force": {"type": "boolean"}
		},
		"required": ["items"]
	}`)
}

// Execute implements Tool.
func (t *TodoWrite) Execute(ctx context.Context, params json.RawMessage) Result {
	var p todoWriteParams
	if err := json.Unmarshal(params, &p); err != nil {
		return errResult(swarmerr.Validation("items", fmt.Sprintf("invalid parameters: %v", err)))
	}

	items := make([]convo.TodoItem, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, convo.TodoItem{
			ID:          it.ID,
			Title:       it.Title,
			Description: it.Description,
			Status:      convo.TodoStatus(it.Status),
			SkipReason:  it.SkipReason,
		})
	}

	if err := t.Store.WriteTodos(t.ConversationID, t.AgentPubkey, items, p.Force); err != nil {
		if swerr, ok := swarmerr.AsError(err); ok {
			return errResult(swerr)
		}
		return errResult(swarmerr.Execution(t.Name(), err.Error(), err))
	}

	return Result{OK: true, Value: fmt.Sprintf("todo list replaced with %d item(s)", len(items))}
}
