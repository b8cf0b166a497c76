// Package dispatcher is the process-local tool registry the Runner's
// tool-call sub-loop dispatches against: it maps a tool name to a JSON
// schema and a handler, and renders the vendor-shaped tool list the LLM
// API expects. Parameter schemas are reflected from each tool's argument
// struct rather than hand-written.
package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/buger/jsonparser"
	"github.com/invopop/jsonschema"
)

// Handler executes one tool call. argsJSON is the raw JSON object string
// from the model (already defaulted to "{}" for an empty argument
// string). A returned error is rendered into tool-result content by the
// caller; it is never treated as fatal to the conversation.
type Handler func(ctx context.Context, argsJSON string) (string, error)

// Tool is one registrable entry. Params is a pointer to a zero-value
// struct whose JSON/jsonschema tags describe the tool's arguments; it is
// used only for schema reflection, never invoked.
type Tool struct {
	Name        string
	Description string
	Params      any
	Handler     Handler
}

// UnknownToolError is returned by Execute when name is not registered,
// before any handler runs. It is a distinct error type so callers can
// tell it apart from handler failures; the Runner's tool-call sub-loop
// still renders it into tool-result content like any other error.
type UnknownToolError struct{ Name string }

func (e *UnknownToolError) Error() string { return fmt.Sprintf("UnknownTool: %q", e.Name) }

// successSentinel is returned to the model when a handler completes with
// no output of its own (the two upgrade tools never reach this path
// since they replace the process, but a defensive value still needs to
// exist for them).
const successSentinel = "Tool executed successfully"

// Registry holds the tools exposed to one Runner session.
type Registry struct {
	order []string
	tools map[string]Tool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds tool to the registry. Registration order is preserved in
// ListSchemas so the tool list presented to the model is stable run to
// run.
func (r *Registry) Register(tool Tool) {
	if _, exists := r.tools[tool.Name]; !exists {
		r.order = append(r.order, tool.Name)
	}
	r.tools[tool.Name] = tool
}

// functionDescriptor is the `function` object inside one OpenAI-style
// tool schema entry.
type functionDescriptor struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Parameters  *jsonschema.Schema `json:"parameters"`
}

// Schema is one vendor-shaped tool descriptor: {type: "function",
// function: {...}}.
type Schema struct {
	Type     string             `json:"type"`
	Function functionDescriptor `json:"function"`
}

// ListSchemas renders every registered tool into the wire shape the
// chat-completions `tools` array expects.
func (r *Registry) ListSchemas() []Schema {
	reflector := &jsonschema.Reflector{ExpandedStruct: true, DoNotReference: true}
	schemas := make([]Schema, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		var params *jsonschema.Schema
		if t.Params != nil {
			params = reflector.Reflect(t.Params)
			params.Version = ""
		} else {
			params = &jsonschema.Schema{Type: "object"}
		}
		schemas = append(schemas, Schema{
			Type: "function",
			Function: functionDescriptor{
				Name:        name,
				Description: t.Description,
				Parameters:  params,
			},
		})
	}
	return schemas
}

// Execute looks up name and runs its handler against argsJSON, which may
// be the empty string (treated as "{}"). A handler returning "" with a
// nil error maps to the success sentinel.
func (r *Registry) Execute(ctx context.Context, name, argsJSON string) (string, error) {
	t, ok := r.tools[name]
	if !ok {
		return "", &UnknownToolError{Name: name}
	}
	if argsJSON == "" {
		argsJSON = "{}"
	}
	out, err := t.Handler(ctx, argsJSON)
	if err != nil {
		return "", err
	}
	if out == "" {
		return successSentinel, nil
	}
	return out, nil
}

// ArgsPreview extracts a shallow, best-effort preview of the top-level
// argument keys for logging, without fully unmarshaling into a typed
// struct.
func ArgsPreview(argsJSON string) string {
	var fields []string
	_ = jsonparser.ObjectEach([]byte(argsJSON), func(key, value []byte, dataType jsonparser.ValueType, offset int) error {
		fields = append(fields, string(key))
		return nil
	})
	b, err := json.Marshal(fields)
	if err != nil {
		return "(unavailable)"
	}
	return string(b)
}
