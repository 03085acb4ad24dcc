// Package tools implements the uniform tool-execution wrapper and a small
// demonstrative tool set, grounded on nexus's internal/agent/tool_registry.go
// ToolRegistry (name-keyed map, thread-safe Register/Get/Execute), extended
// with JSON Schema parameter validation per SPEC_FULL.md §4.14.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/signalmesh/swarmcore/internal/swarmerr"
)

// MaxToolNameLength bounds tool-name input, matching the teacher's resource
// exhaustion guard in ToolRegistry.
const MaxToolNameLength = 256

// MaxParamsSize bounds raw parameter JSON size (10MB), matching the
// teacher's MaxToolParamsSize.
const MaxParamsSize = 10 << 20

// Result is the outcome of a tool invocation, matching the §6 response
// contract shape: either ok with a value, or ok:false with a structured
// error.
type Result struct {
	OK    bool
	Value string
	Err   *swarmerr.Error
}

// Tool is one invokable tool. Schema returns a JSON Schema document
// describing Params' shape.
type Tool interface {
	Name() string
	Description() string
	Schema() json.RawMessage
	Execute(ctx context.Context, params json.RawMessage) Result
}

// Registry is a name-keyed, thread-safe table of Tools with compiled-schema
// caching, grounded on ToolRegistry.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	schemas map[string]*jsonschema.Schema
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:   make(map[string]Tool),
		schemas: make(map[string]*jsonschema.Schema),
	}
}

// Register compiles tool's schema and adds it to the registry, replacing any
// existing tool with the same name.
func (r *Registry) Register(tool Tool) error {
	compiled, err := compileSchema(tool.Name(), tool.Schema())
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
	r.schemas[tool.Name()] = compiled
	return nil
}

func compileSchema(name string, schema json.RawMessage) (*jsonschema.Schema, error) {
	if len(schema) == 0 {
		return nil, nil
	}
	uri := fmt.Sprintf("mem://tools/%s.json", name)
	c := jsonschema.NewCompiler()
	if err := c.AddResource(uri, strings.NewReader(string(schema))); err != nil {
		return nil, fmt.Errorf("tools: register %s: %w", name, err)
	}
	compiled, err := c.Compile(uri)
	if err != nil {
		return nil, fmt.Errorf("tools: compile %s: %w", name, err)
	}
	return compiled, nil
}

// Get returns a registered tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns every registered tool's definition, for passing to an
// llm.Provider.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	return out
}

// Invoke validates params against the tool's schema, then executes it,
// normalizing both validation and execution failures into the §6
// `{ok:false, error:{kind,...}}` shape (SPEC_FULL.md §4.14).
func (r *Registry) Invoke(ctx context.Context, name string, params json.RawMessage) Result {
	if len(name) > MaxToolNameLength {
		return errResult(swarmerr.Validation("name", "tool name exceeds maximum length"))
	}
	if len(params) > MaxParamsSize {
		return errResult(swarmerr.Validation("params", "tool parameters exceed maximum size"))
	}

	r.mu.RLock()
	tool, ok := r.tools[name]
	schema := r.schemas[name]
	r.mu.RUnlock()
	if !ok {
		return errResult(swarmerr.Validation("name", fmt.Sprintf("tool not found: %s", name)))
	}

	if schema != nil {
		var decoded any
		if len(params) == 0 {
			decoded = map[string]any{}
		} else if err := json.Unmarshal(params, &decoded); err != nil {
			return errResult(swarmerr.Validation("params", fmt.Sprintf("invalid JSON: %v", err)))
		}
		if err := schema.Validate(decoded); err != nil {
			return errResult(swarmerr.Validation("params", err.Error()))
		}
	}

	return tool.Execute(ctx, params)
}

func errResult(err *swarmerr.Error) Result {
	return Result{OK: false, Err: err}
}
