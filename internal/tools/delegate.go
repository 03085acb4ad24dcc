package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/signalmesh/swarmcore/internal/delegation"
	"github.com/signalmesh/swarmcore/internal/swarmerr"
)

// Delegate registers an outbound delegation through the DelegationRegistry
// (spec.md §4.7) as a callable tool, so an agent's own model turn can
// delegate to one or more other agents through the same validated path as
// any other tool call.
type Delegate struct {
	Registry        *delegation.Registry
	ConversationID  string
	DelegatingAgent string
	DefaultTimeout  time.Duration
	OnComplete      delegation.ResumeHook
}

type delegateParams struct {
	Targets []string `json:"targets"`
	Request string   `json:"request"`
}

// Name implements Tool.
func (t *Delegate) Name() string { return "delegate" }

// Description implements Tool.
func (t *Delegate) Description() string {
	return "Delegates a request to one or more other agents and waits for their responses."
}

// Schema implements Tool.
func (t *Delegate) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"targets": {"type": "array", "items": {"type": "string"}, "minItems": 1},
			"request": {"type": "string"}
		},
		"required": ["targets", "request"]
	}`)
}

// Execute implements Tool.
func (t *Delegate) Execute(ctx context.Context, params json.RawMessage) Result {
	var p delegateParams
	if err := json.Unmarshal(params, &p); err != nil {
		return errResult(swarmerr.Validation("targets", fmt.Sprintf("invalid parameters: %v", err)))
	}

	timeout := t.DefaultTimeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}

	id, err := t.Registry.Register(t.ConversationID, t.DelegatingAgent, p.Targets, p.Request, timeout, t.OnComplete)
	if err != nil {
		if swerr, ok := swarmerr.AsError(err); ok {
			return errResult(swerr)
		}
		return errResult(swarmerr.Execution(t.Name(), err.Error(), err))
	}

	return Result{OK: true, Value: fmt.Sprintf("delegation %s registered to %d target(s)", id, len(p.Targets))}
}
