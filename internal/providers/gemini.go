package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/signalmesh/swarmcore/internal/llm"
)

// Gemini implements llm.Provider against google.golang.org/genai's streaming
// content generation API, grounded on nexus's GoogleProvider.
type Gemini struct {
	client       *genai.Client
	defaultModel string
}

// GeminiConfig configures Gemini.
type GeminiConfig struct {
	APIKey       string
	DefaultModel string
}

// NewGemini builds a Gemini provider.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: API key is required")
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("gemini: new client: %w", err)
	}
	return &Gemini{client: client, defaultModel: cfg.DefaultModel}, nil
}

// Name implements llm.Provider.
func (p *Gemini) Name() string { return "gemini" }

// Models implements llm.Provider.
func (p *Gemini) Models() []llm.Model {
	return []llm.Model{
		{ID: "gemini-2.0-flash", Name: "Gemini 2.0 Flash", ContextSize: 1_000_000, SupportsVision: true},
		{ID: "gemini-2.0-pro", Name: "Gemini 2.0 Pro", ContextSize: 2_000_000, SupportsVision: true},
	}
}

// SupportsTools implements llm.Provider.
func (p *Gemini) SupportsTools() bool { return true }

// Complete implements llm.Provider.
func (p *Gemini) Complete(ctx context.Context, req *llm.CompletionRequest) (<-chan *llm.CompletionChunk, error) {
	chunks := make(chan *llm.CompletionChunk)

	go func() {
		defer close(chunks)

		model := req.Model
		if model == "" {
			model = p.defaultModel
		}

		contents := make([]*genai.Content, 0, len(req.Messages))
		for _, m := range req.Messages {
			role := genai.RoleUser
			if m.Role == "assistant" {
				role = genai.RoleModel
			}
			contents = append(contents, &genai.Content{
				Role:  role,
				Parts: []*genai.Part{{Text: m.Content}},
			})
		}

		genCfg := &genai.GenerateContentConfig{}
		if req.System != "" {
			genCfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
		}
		if req.MaxTokens > 0 {
			genCfg.MaxOutputTokens = int32(req.MaxTokens)
		}

		stream := p.client.Models.GenerateContentStream(ctx, model, contents, genCfg)

		var outputTokens int
		for resp, err := range stream {
			if err != nil {
				chunks <- &llm.CompletionChunk{Error: fmt.Errorf("gemini: stream: %w", err)}
				return
			}
			for _, cand := range resp.Candidates {
				if cand.Content == nil {
					continue
				}
				for _, part := range cand.Content.Parts {
					if part.Text != "" {
						outputTokens++
						chunks <- &llm.CompletionChunk{Text: part.Text}
					}
					if part.FunctionCall != nil {
						args, _ := marshalArgs(part.FunctionCall.Args)
						chunks <- &llm.CompletionChunk{ToolCall: &llm.ToolCall{
							Name:      part.FunctionCall.Name,
							Arguments: args,
						}}
					}
				}
			}
		}

		chunks <- &llm.CompletionChunk{Done: true, OutputTokens: outputTokens}
	}()

	return chunks, nil
}

func marshalArgs(args map[string]any) ([]byte, error) {
	return json.Marshal(args)
}
