package providers

import (
	"testing"

	"github.com/signalmesh/swarmcore/internal/llm"
)

func TestNewAnthropicRequiresAPIKey(t *testing.T) {
	if _, err := NewAnthropic(AnthropicConfig{}); err == nil {
		t.Fatalf("expected error for missing API key")
	}
}

func TestNewAnthropicAppliesDefaults(t *testing.T) {
	p, err := NewAnthropic(AnthropicConfig{APIKey: "sk-ant-test"})
	if err != nil {
		t.Fatalf("NewAnthropic() error: %v", err)
	}
	if p.defaultModel == "" {
		t.Fatalf("expected a default model")
	}
	if p.maxRetries != 3 {
		t.Fatalf("maxRetries = %d, want 3", p.maxRetries)
	}
	if p.Name() != "anthropic" {
		t.Fatalf("Name() = %q", p.Name())
	}
	if !p.SupportsTools() {
		t.Fatalf("expected SupportsTools true")
	}
	if len(p.Models()) == 0 {
		t.Fatalf("expected at least one model")
	}
}

func TestConvertMessagesRejectsUnknownRole(t *testing.T) {
	_, err := convertMessages([]llm.CompletionMessage{{Role: "narrator", Content: "x"}})
	if err == nil {
		t.Fatalf("expected error for unsupported role")
	}
}

func TestConvertMessagesHandlesToolResults(t *testing.T) {
	msgs := []llm.CompletionMessage{
		{Role: "user", Content: "do something"},
		{Role: "tool", ToolResults: []llm.ToolResult{{ToolCallID: "t1", Content: "ok"}}},
	}
	out, err := convertMessages(msgs)
	if err != nil {
		t.Fatalf("convertMessages() error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("len(out) = %d, want 2", len(out))
	}
}

func TestConvertToolsEmpty(t *testing.T) {
	if got := convertTools(nil); got != nil {
		t.Fatalf("convertTools(nil) = %v, want nil", got)
	}
}

func TestConvertToolsNonEmpty(t *testing.T) {
	got := convertTools([]llm.ToolDefinition{{Name: "fs_read", Description: "reads a file", Schema: []byte(`{}`)}})
	if len(got) != 1 {
		t.Fatalf("len(got) = %d, want 1", len(got))
	}
}

func TestIsRetryableNilIsFalse(t *testing.T) {
	if isRetryable(nil) {
		t.Fatalf("nil error must not be retryable")
	}
}
