// Package tools implements the ToolRegistry together with the
// read-before-edit freshness tracker and hashline anchoring that the
// built-in file tools (package tools/files) use to make LLM-driven edits
// reliable without exact line-number tracking.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

func mustReader(raw json.RawMessage) io.Reader {
	return bytes.NewReader(raw)
}

// Result is the outcome of one tool invocation.
type Result struct {
	OK       bool
	Output   string
	Error    string
	Metadata map[string]any
}

// Spec is the provider-facing description of a registered tool.
type Spec struct {
	Name        string
	Title       string
	Description string
	InputSchema json.RawMessage
}

// Tool is the capability every built-in tool implements.
type Tool interface {
	Name() string
	Title() string
	Description() string
	Schema() json.RawMessage
	Execute(ctx context.Context, args json.RawMessage) (Result, error)
}

// Registry is the name→Tool map. Unknown tool names and tool panics never
// escape Call — they become a failed Result, matching §4.5.
type Registry struct {
	tools    map[string]Tool
	schemas  map[string]*jsonschema.Schema
}

func NewRegistry() *Registry {
	return &Registry{
		tools:   make(map[string]Tool),
		schemas: make(map[string]*jsonschema.Schema),
	}
}

// Register compiles the tool's declared schema (best-effort — a tool with
// no/invalid schema is still registered, just without argument
// validation) and adds it to the registry.
func (r *Registry) Register(t Tool) {
	r.tools[t.Name()] = t
	if compiled, err := compileSchema(t.Name(), t.Schema()); err == nil {
		r.schemas[t.Name()] = compiled
	}
}

func compileSchema(name string, raw json.RawMessage) (*jsonschema.Schema, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name+".json", mustReader(raw)); err != nil {
		return nil, err
	}
	return compiler.Compile(name + ".json")
}

// ToProviderSpecs returns the provider-facing tool catalog.
func (r *Registry) ToProviderSpecs() []Spec {
	specs := make([]Spec, 0, len(r.tools))
	for _, t := range r.tools {
		specs = append(specs, Spec{
			Name:        t.Name(),
			Title:       t.Title(),
			Description: t.Description(),
			InputSchema: t.Schema(),
		})
	}
	return specs
}

// Call executes a named tool. Unknown tools, schema validation failures,
// and panics all surface as a non-ok Result rather than an error.
func (r *Registry) Call(ctx context.Context, name string, args json.RawMessage) (result Result) {
	defer func() {
		if rec := recover(); rec != nil {
			result = Result{OK: false, Error: "internal error during tool execution"}
		}
	}()

	t, ok := r.tools[name]
	if !ok {
		return Result{OK: false, Error: "not registered"}
	}

	if schema, ok := r.schemas[name]; ok && schema != nil {
		var decoded any
		if err := json.Unmarshal(args, &decoded); err == nil {
			if err := schema.Validate(decoded); err != nil {
				return Result{OK: false, Error: "invalid arguments: " + err.Error()}
			}
		}
	}

	out, err := t.Execute(ctx, args)
	if err != nil {
		msg := err.Error()
		if msg == "" {
			msg = "알 수 없는 오류"
		}
		return Result{OK: false, Error: msg}
	}
	return out
}
