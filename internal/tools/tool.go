package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"cody-cli/internal/api"
)

// Executor runs a tool against validated arguments and returns its output,
// conventionally a JSON document.
type Executor func(ctx context.Context, args map[string]any) (string, error)

// Tool couples a name and JSON-Schema signature with a local executor.
// Tools are registered once at session start and immutable afterwards.
type Tool struct {
	Name        string
	Description string
	Parameters  *Schema
	Execute     Executor
}

// Schema is the subset of JSON Schema the API contract uses for tool
// parameters: an object with typed properties and a required list.
type Schema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

type Property struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

// ObjectSchema builds an object schema from properties and required names.
func ObjectSchema(props map[string]Property, required ...string) *Schema {
	return &Schema{Type: "object", Properties: props, Required: required}
}

// Declaration renders the tool in the wire format embedded in chat requests.
func (t Tool) Declaration() (api.ToolSchema, error) {
	params := t.Parameters
	if params == nil {
		params = &Schema{Type: "object", Properties: map[string]Property{}}
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return api.ToolSchema{}, fmt.Errorf("marshal schema for %s: %w", t.Name, err)
	}
	return api.ToolSchema{
		Type: "function",
		Function: api.ToolFunction{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  raw,
		},
	}, nil
}

// DuplicateToolError reports a second registration under an existing name.
type DuplicateToolError struct {
	Name string
}

func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("tool already registered: %s", e.Name)
}

// NotFoundError reports a lookup for an unregistered tool name.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("tool not found: %s", e.Name)
}

// ArgumentError reports tool arguments that failed parsing or schema
// validation before execution.
type ArgumentError struct {
	Tool string
	Err  error
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid arguments for %s: %v", e.Tool, e.Err)
}

func (e *ArgumentError) Unwrap() error { return e.Err }
