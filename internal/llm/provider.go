// Package llm defines the provider-agnostic streaming completion contract
// ExecutionEngine drives, grounded on nexus's internal/agent/provider_types.go
// LLMProvider/CompletionRequest/CompletionChunk shapes, adapted to this
// engine's own message/tool-call vocabulary instead of nexus's pkg/models.
package llm

import "context"

// Provider is the interface ExecutionEngine calls into for one model turn,
// per SPEC_FULL.md §4.13.
type Provider interface {
	// Complete streams one completion for req. The returned channel is
	// closed when the stream ends, whether by completion, error, or ctx
	// cancellation.
	Complete(ctx context.Context, req *CompletionRequest) (<-chan *CompletionChunk, error)

	// Name identifies the provider (e.g. "anthropic", "openai").
	Name() string

	// Models lists the models this provider can serve.
	Models() []Model

	// SupportsTools reports whether this provider can receive tool
	// definitions and emit tool-call chunks.
	SupportsTools() bool
}

// Model describes one servable model and its capabilities.
type Model struct {
	ID             string
	Name           string
	ContextSize    int
	SupportsVision bool
}

// ToolDefinition describes a callable tool as exposed to the model, mirroring
// the §6 JSON Schema parameter contract.
type ToolDefinition struct {
	Name        string
	Description string
	Schema      []byte // JSON Schema document
}

// ToolCall is a model-issued request to invoke a tool.
type ToolCall struct {
	ID        string
	Name      string
	Arguments []byte // raw JSON arguments
}

// ToolResult is the outcome of a previously issued ToolCall, fed back on a
// subsequent turn.
type ToolResult struct {
	ToolCallID string
	Content    string
	IsError    bool
}

// CompletionMessage is one entry in the conversation history sent to the
// provider. Role is one of "user", "assistant", "tool".
type CompletionMessage struct {
	Role        string
	Content     string
	ToolCalls   []ToolCall
	ToolResults []ToolResult
}

// CompletionRequest carries everything needed for one streaming completion.
type CompletionRequest struct {
	Model                string
	System               string
	Messages             []CompletionMessage
	Tools                []ToolDefinition
	MaxTokens            int
	EnableThinking       bool
	ThinkingBudgetTokens int
}

// CompletionChunk is one unit of a streaming response.
type CompletionChunk struct {
	Text          string
	Thinking      string
	ThinkingStart bool
	ThinkingEnd   bool
	ToolCall      *ToolCall
	Done          bool
	Error         error
	InputTokens   int
	OutputTokens  int

	// SessionID, set on at most one chunk per stream, carries a
	// provider-native continuity id (when the provider has one) for
	// persisting into agentState.sessionsByPhase per spec.md §4.9 step 5.
	// Most providers never set this.
	SessionID string
}
