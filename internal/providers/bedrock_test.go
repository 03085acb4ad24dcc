package providers

import "testing"

func TestBedrockNameAndModels(t *testing.T) {
	p := &Bedrock{defaultModel: "anthropic.claude-3-5-sonnet-20241022-v2:0"}
	if p.Name() != "bedrock" {
		t.Fatalf("Name() = %q", p.Name())
	}
	if len(p.Models()) == 0 {
		t.Fatalf("expected default model list")
	}
	if !p.SupportsTools() {
		t.Fatalf("expected SupportsTools true")
	}
}
