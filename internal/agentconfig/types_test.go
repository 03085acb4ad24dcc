package agentconfig

import "testing"

const sampleRoster = `
defaults:
  model: claude-sonnet
  provider: anthropic
  human_delay:
    mode: random
    min_ms: 200
    max_ms: 800

agents:
  - pubkey: abc123
    name: Scout
    default_phase: research
  - pubkey: def456
    name: Builder
    model: claude-opus
    allowed_tools: ["fs_read", "todo_write"]
`

func TestDecodeAppliesDefaults(t *testing.T) {
	r, err := Decode([]byte(sampleRoster))
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if len(r.Agents) != 2 {
		t.Fatalf("len(Agents) = %d, want 2", len(r.Agents))
	}

	scout := r.ByPubkey()["abc123"]
	if scout == nil {
		t.Fatalf("missing agent abc123")
	}
	if scout.Model != "claude-sonnet" || scout.Provider != "anthropic" {
		t.Fatalf("scout did not inherit defaults: %+v", scout)
	}
	if scout.HumanDelay == nil || scout.HumanDelay.Mode != "random" {
		t.Fatalf("scout did not inherit human delay: %+v", scout.HumanDelay)
	}

	builder := r.ByPubkey()["def456"]
	if builder.Model != "claude-opus" {
		t.Fatalf("builder should keep its own model, got %q", builder.Model)
	}
	if builder.Provider != "anthropic" {
		t.Fatalf("builder should inherit provider, got %q", builder.Provider)
	}
}

func TestDecodeRejectsMissingPubkey(t *testing.T) {
	_, err := Decode([]byte("agents:\n  - name: Nameless\n"))
	if err == nil {
		t.Fatalf("expected error for missing pubkey")
	}
}

func TestAllowsToolRestriction(t *testing.T) {
	r, err := Decode([]byte(sampleRoster))
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	builder := r.ByPubkey()["def456"]

	if !builder.AllowsTool("fs_read") {
		t.Fatalf("expected fs_read to be allowed")
	}
	if builder.AllowsTool("delegate") {
		t.Fatalf("expected delegate to be disallowed")
	}

	scout := r.ByPubkey()["abc123"]
	if !scout.AllowsTool("anything") {
		t.Fatalf("expected unrestricted agent to allow any tool")
	}
}
