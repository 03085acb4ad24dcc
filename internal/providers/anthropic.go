// Package providers implements the llm.Provider backends ExecutionEngine
// drives, grounded on nexus's internal/agent/providers (AnthropicProvider,
// OpenAIProvider, GoogleProvider, BedrockProvider), carried over client
// construction, retry-with-backoff, and message-conversion idioms.
package providers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/signalmesh/swarmcore/internal/llm"
)

// Anthropic implements llm.Provider against the Messages streaming API.
type Anthropic struct {
	client       anthropic.Client
	maxRetries   int
	retryDelay   time.Duration
	defaultModel string
}

// AnthropicConfig configures Anthropic.
type AnthropicConfig struct {
	APIKey       string
	BaseURL      string
	MaxRetries   int
	RetryDelay   time.Duration
	DefaultModel string
}

// NewAnthropic builds an Anthropic provider, applying the same defaults as
// the teacher's NewAnthropicProvider.
func NewAnthropic(cfg AnthropicConfig) (*Anthropic, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic: API key is required")
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "claude-sonnet-4-20250514"
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Anthropic{
		client:       anthropic.NewClient(opts...),
		maxRetries:   cfg.MaxRetries,
		retryDelay:   cfg.RetryDelay,
		defaultModel: cfg.DefaultModel,
	}, nil
}

// Name implements llm.Provider.
func (p *Anthropic) Name() string { return "anthropic" }

// Models implements llm.Provider.
func (p *Anthropic) Models() []llm.Model {
	return []llm.Model{
		{ID: "claude-opus-4-20250514", Name: "Claude Opus 4", ContextSize: 200_000, SupportsVision: true},
		{ID: "claude-sonnet-4-20250514", Name: "Claude Sonnet 4", ContextSize: 200_000, SupportsVision: true},
		{ID: "claude-haiku-4-20250514", Name: "Claude Haiku 4", ContextSize: 200_000, SupportsVision: true},
	}
}

// SupportsTools implements llm.Provider.
func (p *Anthropic) SupportsTools() bool { return true }

func (p *Anthropic) model(requested string) string {
	if requested != "" {
		return requested
	}
	return p.defaultModel
}

func (p *Anthropic) maxTokens(requested int) int {
	if requested > 0 {
		return requested
	}
	return 4096
}

// Complete implements llm.Provider, streaming text and thinking chunks in
// feed order, with exponential-backoff retry on the initial stream
// creation, matching the teacher's retry loop shape. Tool-use content
// blocks in the stream are not turned into tool-call chunks.
func (p *Anthropic) Complete(ctx context.Context, req *llm.CompletionRequest) (<-chan *llm.CompletionChunk, error) {
	chunks := make(chan *llm.CompletionChunk)

	go func() {
		defer close(chunks)

		messages, err := convertMessages(req.Messages)
		if err != nil {
			chunks <- &llm.CompletionChunk{Error: fmt.Errorf("anthropic: convert messages: %w", err)}
			return
		}
		tools := convertTools(req.Tools)

		params := anthropic.MessageNewParams{
			Model:     anthropic.Model(p.model(req.Model)),
			MaxTokens: int64(p.maxTokens(req.MaxTokens)),
			Messages:  messages,
		}
		if req.System != "" {
			params.System = []anthropic.TextBlockParam{{Text: req.System}}
		}
		if len(tools) > 0 {
			params.Tools = tools
		}
		if req.EnableThinking {
			budget := req.ThinkingBudgetTokens
			if budget <= 0 {
				budget = 10_000
			}
			params.Thinking = anthropic.ThinkingConfigParamUnion{
				OfEnabled: &anthropic.ThinkingConfigEnabledParam{BudgetTokens: int64(budget)},
			}
		}

		var stream *anthropic.StreamOf[anthropic.MessageStreamEventUnion]
		for attempt := 0; attempt <= p.maxRetries; attempt++ {
			stream = p.client.Messages.NewStreaming(ctx, params)
			if stream.Err() == nil {
				break
			}
			if attempt == p.maxRetries || !isRetryable(stream.Err()) {
				chunks <- &llm.CompletionChunk{Error: fmt.Errorf("anthropic: %w", stream.Err())}
				return
			}
			backoff := p.retryDelay * time.Duration(math.Pow(2, float64(attempt)))
			select {
			case <-ctx.Done():
				chunks <- &llm.CompletionChunk{Error: ctx.Err()}
				return
			case <-time.After(backoff):
			}
		}

		processAnthropicStream(stream, chunks)
	}()

	return chunks, nil
}

func processAnthropicStream(stream *anthropic.StreamOf[anthropic.MessageStreamEventUnion], chunks chan<- *llm.CompletionChunk) {
	var inputTokens, outputTokens int
	thinkingOpen := false

	for stream.Next() {
		event := stream.Current()
		switch variant := event.AsAny().(type) {
		case anthropic.ContentBlockStartEvent:
			if variant.ContentBlock.Type == "thinking" {
				thinkingOpen = true
				chunks <- &llm.CompletionChunk{ThinkingStart: true}
			}
		case anthropic.ContentBlockDeltaEvent:
			switch d := variant.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				chunks <- &llm.CompletionChunk{Text: d.Text}
			case anthropic.ThinkingDelta:
				chunks <- &llm.CompletionChunk{Thinking: d.Thinking}
			}
		case anthropic.ContentBlockStopEvent:
			if thinkingOpen {
				thinkingOpen = false
				chunks <- &llm.CompletionChunk{ThinkingEnd: true}
			}
		case anthropic.MessageDeltaEvent:
			if variant.Usage.OutputTokens > 0 {
				outputTokens = int(variant.Usage.OutputTokens)
			}
		}
	}

	if err := stream.Err(); err != nil {
		chunks <- &llm.CompletionChunk{Error: fmt.Errorf("anthropic: stream: %w", err)}
		return
	}

	chunks <- &llm.CompletionChunk{Done: true, InputTokens: inputTokens, OutputTokens: outputTokens}
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	return false
}

func convertMessages(messages []llm.CompletionMessage) ([]anthropic.MessageParam, error) {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "user":
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case "assistant":
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		case "tool":
			for _, r := range m.ToolResults {
				out = append(out, anthropic.NewUserMessage(
					anthropic.NewToolResultBlock(r.ToolCallID, r.Content, r.IsError)))
			}
		default:
			return nil, fmt.Errorf("anthropic: unsupported role %q", m.Role)
		}
	}
	return out, nil
}

func convertTools(tools []llm.ToolDefinition) []anthropic.ToolUnionParam {
	if len(tools) == 0 {
		return nil
	}
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		out = append(out, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					// Raw JSON Schema is accepted verbatim by the SDK's
					// schema param; tools.Registry already validated it.
					ExtraFields: map[string]any{"raw": string(t.Schema)},
				},
			},
		})
	}
	return out
}
