package providers

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/signalmesh/swarmcore/internal/llm"
)

// Bedrock implements llm.Provider against AWS Bedrock's ConverseStream API
// for Claude-on-Bedrock model ids, grounded on nexus's BedrockProvider.
type Bedrock struct {
	client       *bedrockruntime.Client
	defaultModel string
}

// BedrockConfig configures Bedrock.
type BedrockConfig struct {
	Region       string
	DefaultModel string
}

// NewBedrock builds a Bedrock provider using the default AWS credential
// chain (environment, shared config, or IAM role).
func NewBedrock(ctx context.Context, cfg BedrockConfig) (*Bedrock, error) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "anthropic.claude-3-5-sonnet-20241022-v2:0"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("bedrock: load AWS config: %w", err)
	}
	return &Bedrock{
		client:       bedrockruntime.NewFromConfig(awsCfg),
		defaultModel: cfg.DefaultModel,
	}, nil
}

// Name implements llm.Provider.
func (p *Bedrock) Name() string { return "bedrock" }

// Models implements llm.Provider.
func (p *Bedrock) Models() []llm.Model {
	return []llm.Model{
		{ID: "anthropic.claude-3-5-sonnet-20241022-v2:0", Name: "Claude 3.5 Sonnet (Bedrock)", ContextSize: 200_000, SupportsVision: true},
		{ID: "anthropic.claude-3-haiku-20240307-v1:0", Name: "Claude 3 Haiku (Bedrock)", ContextSize: 200_000, SupportsVision: true},
	}
}

// SupportsTools implements llm.Provider.
func (p *Bedrock) SupportsTools() bool { return true }

// Complete implements llm.Provider.
func (p *Bedrock) Complete(ctx context.Context, req *llm.CompletionRequest) (<-chan *llm.CompletionChunk, error) {
	chunks := make(chan *llm.CompletionChunk)

	go func() {
		defer close(chunks)

		model := req.Model
		if model == "" {
			model = p.defaultModel
		}

		messages := make([]brtypes.Message, 0, len(req.Messages))
		for _, m := range req.Messages {
			role := brtypes.ConversationRoleUser
			if m.Role == "assistant" {
				role = brtypes.ConversationRoleAssistant
			}
			messages = append(messages, brtypes.Message{
				Role:    role,
				Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: m.Content}},
			})
		}

		input := &bedrockruntime.ConverseStreamInput{
			ModelId:  aws.String(model),
			Messages: messages,
		}
		if req.System != "" {
			input.System = []brtypes.SystemContentBlock{&brtypes.SystemContentBlockMemberText{Value: req.System}}
		}
		if req.MaxTokens > 0 {
			input.InferenceConfig = &brtypes.InferenceConfiguration{MaxTokens: aws.Int32(int32(req.MaxTokens))}
		}

		out, err := p.client.ConverseStream(ctx, input)
		if err != nil {
			chunks <- &llm.CompletionChunk{Error: fmt.Errorf("bedrock: converse stream: %w", err)}
			return
		}

		stream := out.GetStream()
		defer stream.Close()

		var outputTokens int
		for event := range stream.Events() {
			switch v := event.(type) {
			case *brtypes.ConverseStreamOutputMemberContentBlockDelta:
				if textDelta, ok := v.Value.Delta.(*brtypes.ContentBlockDeltaMemberText); ok {
					outputTokens++
					chunks <- &llm.CompletionChunk{Text: textDelta.Value}
				}
			case *brtypes.ConverseStreamOutputMemberMetadata:
				if v.Value.Usage != nil && v.Value.Usage.OutputTokens != nil {
					outputTokens = int(*v.Value.Usage.OutputTokens)
				}
			}
		}
		if err := stream.Err(); err != nil {
			chunks <- &llm.CompletionChunk{Error: fmt.Errorf("bedrock: stream: %w", err)}
			return
		}

		chunks <- &llm.CompletionChunk{Done: true, OutputTokens: outputTokens}
	}()

	return chunks, nil
}
