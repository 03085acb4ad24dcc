package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"

	"github.com/signalmesh/swarmcore/internal/llm"
)

// OpenAI implements llm.Provider against the chat-completions streaming API,
// grounded on nexus's OpenAIProvider.
type OpenAI struct {
	client       *openai.Client
	defaultModel string
}

// NewOpenAI builds an OpenAI provider. An empty apiKey yields an
// unconfigured provider whose Complete calls fail fast, matching the
// teacher's graceful-degradation shape when credentials are absent.
func NewOpenAI(apiKey, defaultModel string) *OpenAI {
	if defaultModel == "" {
		defaultModel = "gpt-4o"
	}
	if apiKey == "" {
		return &OpenAI{defaultModel: defaultModel}
	}
	return &OpenAI{client: openai.NewClient(apiKey), defaultModel: defaultModel}
}

// Name implements llm.Provider.
func (p *OpenAI) Name() string { return "openai" }

// Models implements llm.Provider.
func (p *OpenAI) Models() []llm.Model {
	return []llm.Model{
		{ID: "gpt-4o", Name: "GPT-4o", ContextSize: 128_000, SupportsVision: true},
		{ID: "gpt-4-turbo", Name: "GPT-4 Turbo", ContextSize: 128_000, SupportsVision: true},
		{ID: "o1", Name: "OpenAI o1", ContextSize: 200_000, SupportsVision: false},
	}
}

// SupportsTools implements llm.Provider.
func (p *OpenAI) SupportsTools() bool { return true }

// Complete implements llm.Provider.
func (p *OpenAI) Complete(ctx context.Context, req *llm.CompletionRequest) (<-chan *llm.CompletionChunk, error) {
	chunks := make(chan *llm.CompletionChunk)

	go func() {
		defer close(chunks)

		if p.client == nil {
			chunks <- &llm.CompletionChunk{Error: errors.New("openai: provider not configured with an API key")}
			return
		}

		model := req.Model
		if model == "" {
			model = p.defaultModel
		}

		messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
		if req.System != "" {
			messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
		}
		for _, m := range req.Messages {
			messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
		}

		params := openai.ChatCompletionRequest{
			Model:    model,
			Messages: messages,
			Stream:   true,
		}
		if req.MaxTokens > 0 {
			params.MaxTokens = req.MaxTokens
		}
		if tools := convertOpenAITools(req.Tools); len(tools) > 0 {
			params.Tools = tools
		}

		stream, err := p.client.CreateChatCompletionStream(ctx, params)
		if err != nil {
			chunks <- &llm.CompletionChunk{Error: fmt.Errorf("openai: create stream: %w", err)}
			return
		}
		defer stream.Close()

		var outputTokens int
		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				chunks <- &llm.CompletionChunk{Error: fmt.Errorf("openai: stream: %w", err)}
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			delta := resp.Choices[0].Delta
			if delta.Content != "" {
				outputTokens++
				chunks <- &llm.CompletionChunk{Text: delta.Content}
			}
			for _, tc := range delta.ToolCalls {
				chunks <- &llm.CompletionChunk{ToolCall: &llm.ToolCall{
					ID:        tc.ID,
					Name:      tc.Function.Name,
					Arguments: []byte(tc.Function.Arguments),
				}}
			}
		}

		chunks <- &llm.CompletionChunk{Done: true, OutputTokens: outputTokens}
	}()

	return chunks, nil
}

func convertOpenAITools(tools []llm.ToolDefinition) []openai.Tool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  json.RawMessage(t.Schema),
			},
		})
	}
	return out
}
