// Package agentconfig decodes the static roster of agents a deployment
// wires into ExecutionEngine, grounded on nexus's internal/agents/identity.go
// AgentConfig/AgentsConfig shapes, adapted from nexus's channel-identity
// fields (name, emoji, message prefixes) to this engine's own per-agent
// fields (pubkey, default phase, model, allowed tools). This package only
// decodes the roster shape; loading it from a file or watching it for
// changes is out of scope, as config-file loading is for the whole system.
package agentconfig

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// HumanDelay configures an artificial delay before an agent's turn starts,
// mirroring nexus's HumanDelayConfig mode/min/max shape.
type HumanDelay struct {
	Mode  string `yaml:"mode"`
	MinMs int    `yaml:"min_ms"`
	MaxMs int    `yaml:"max_ms"`
}

// AgentDefinition is one entry in the roster: everything ExecutionEngine
// and AgentContextBuilder need to know about an agent ahead of any turn.
type AgentDefinition struct {
	// Pubkey is the agent's identity key, the same string used as the key
	// into identity.Resolver and opsregistry.Registry.
	Pubkey string `yaml:"pubkey"`

	// Name is the display name registered with identity.Resolver.
	Name string `yaml:"name"`

	// Description documents the agent's role; carried through for
	// operator-facing listings, not consumed by the engine itself.
	Description string `yaml:"description,omitempty"`

	// Model selects which model this agent's turns request; empty defers
	// to Engine's own default.
	Model string `yaml:"model,omitempty"`

	// Provider names which llm.Provider this agent should run against
	// (e.g. "anthropic", "openai"); empty defers to the engine's default
	// provider.
	Provider string `yaml:"provider,omitempty"`

	// DefaultPhase seeds a conversation's phase when this agent starts
	// one, per spec.md's phase-transition preamble rules.
	DefaultPhase string `yaml:"default_phase,omitempty"`

	// AllowedTools restricts which tools.Registry entries this agent may
	// invoke; empty means no restriction.
	AllowedTools []string `yaml:"allowed_tools,omitempty"`

	HumanDelay *HumanDelay `yaml:"human_delay,omitempty"`
}

// Roster is the decoded top-level document: a list of agent definitions
// plus defaults applied to every one of them.
type Roster struct {
	Defaults *AgentDefinition   `yaml:"defaults,omitempty"`
	Agents   []*AgentDefinition `yaml:"agents"`
}

// Decode parses a roster document, applying Defaults' Model, Provider,
// DefaultPhase, HumanDelay, and AllowedTools to any agent that leaves them
// unset.
func Decode(data []byte) (*Roster, error) {
	var r Roster
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("agentconfig: decode roster: %w", err)
	}

	for i, a := range r.Agents {
		if a.Pubkey == "" {
			return nil, fmt.Errorf("agentconfig: agent at index %d missing pubkey", i)
		}
		applyDefaults(a, r.Defaults)
	}

	return &r, nil
}

func applyDefaults(a, defaults *AgentDefinition) {
	if defaults == nil {
		return
	}
	if a.Model == "" {
		a.Model = defaults.Model
	}
	if a.Provider == "" {
		a.Provider = defaults.Provider
	}
	if a.DefaultPhase == "" {
		a.DefaultPhase = defaults.DefaultPhase
	}
	if a.HumanDelay == nil {
		a.HumanDelay = defaults.HumanDelay
	}
	if len(a.AllowedTools) == 0 {
		a.AllowedTools = defaults.AllowedTools
	}
}

// ByPubkey indexes a roster's agents for O(1) lookup by pubkey.
func (r *Roster) ByPubkey() map[string]*AgentDefinition {
	out := make(map[string]*AgentDefinition, len(r.Agents))
	for _, a := range r.Agents {
		out[a.Pubkey] = a
	}
	return out
}

// AllowsTool reports whether a has no restriction, or explicitly allows
// toolName.
func (a *AgentDefinition) AllowsTool(toolName string) bool {
	if len(a.AllowedTools) == 0 {
		return true
	}
	for _, t := range a.AllowedTools {
		if t == toolName {
			return true
		}
	}
	return false
}
