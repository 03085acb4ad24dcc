package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/signalmesh/swarmcore/internal/swarmerr"
	"github.com/signalmesh/swarmcore/internal/toolstore"
)

// FSRead is the retrieval-reference target named by ToolOutputBudgeter's
// truncation placeholder ("Use fs_read(tool=\"<ID>\") to retrieve full
// output if needed", spec.md §4.6): it recovers the full structured tool
// messages a prior tool call produced, by the event id ToolMessageStore
// filed them under.
type FSRead struct {
	Store *toolstore.Store
}

type fsReadParams struct {
	Tool string `json:"tool"`
}

// Name implements Tool.
func (t *FSRead) Name() string { return "fs_read" }

// Description implements Tool.
func (t *FSRead) Description() string {
	return "Retrieves the full output of a previously truncated tool result by its event id."
}

// Schema implements Tool.
func (t *FSRead) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"tool": {"type": "string", "description": "event id of the truncated tool result"}
		},
		"required": ["tool"]
	}`)
}

// Execute implements Tool.
func (t *FSRead) Execute(ctx context.Context, params json.RawMessage) Result {
	var p fsReadParams
	if err := json.Unmarshal(params, &p); err != nil {
		return errResult(swarmerr.Validation("tool", fmt.Sprintf("invalid parameters: %v", err)))
	}

	messages, ok, err := t.Store.Load(ctx, p.Tool)
	if err != nil {
		return errResult(swarmerr.Execution(t.Name(), err.Error(), err))
	}
	if !ok {
		return errResult(swarmerr.Validation("tool", fmt.Sprintf("no stored tool output for event %q", p.Tool)))
	}

	var sb strings.Builder
	for i, m := range messages {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(m.Content)
	}

	return Result{OK: true, Value: sb.String()}
}
