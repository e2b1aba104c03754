package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"cody-cli/internal/api"
)

// Registry keeps the mapping between tool names and implementations. It is
// purely descriptive: executors may do whatever local work they like, the
// registry only dispatches by name.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register inserts a tool; a duplicate name fails with DuplicateToolError.
func (r *Registry) Register(t Tool) error {
	if t.Name == "" {
		return errors.New("tool name is empty")
	}
	if t.Execute == nil {
		return fmt.Errorf("tool %s has no executor", t.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[t.Name]; exists {
		return &DuplicateToolError{Name: t.Name}
	}
	r.tools[t.Name] = t
	r.order = append(r.order, t.Name)
	return nil
}

// Resolve fetches a tool by name, failing with NotFoundError.
func (r *Registry) Resolve(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[name]
	if !ok {
		return Tool{}, &NotFoundError{Name: name}
	}
	return t, nil
}

// Schemas lists the registered declarations in registration order; this is
// what gets embedded in outbound chat requests.
func (r *Registry) Schemas() ([]api.ToolSchema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]api.ToolSchema, 0, len(r.order))
	for _, name := range r.order {
		decl, err := r.tools[name].Declaration()
		if err != nil {
			return nil, err
		}
		out = append(out, decl)
	}
	return out, nil
}

// ParseArgs parses raw argument text as JSON and validates it against the
// tool's schema. The raw text comes from the remote model and is untrusted:
// malformed or schema-violating input fails with ArgumentError.
func (t Tool) ParseArgs(raw string) (map[string]any, error) {
	args := map[string]any{}
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			return nil, &ArgumentError{Tool: t.Name, Err: err}
		}
	}
	if err := validateArgs(args, t.Parameters); err != nil {
		return nil, &ArgumentError{Tool: t.Name, Err: err}
	}
	return args, nil
}

func validateArgs(args map[string]any, schema *Schema) error {
	if schema == nil {
		return nil
	}
	for _, field := range schema.Required {
		if _, ok := args[field]; !ok {
			return fmt.Errorf("missing required field: %s", field)
		}
	}
	for key, value := range args {
		prop, ok := schema.Properties[key]
		if !ok {
			continue
		}
		if err := validateType(value, prop); err != nil {
			return fmt.Errorf("field %s: %w", key, err)
		}
	}
	return nil
}

func validateType(value any, prop Property) error {
	switch prop.Type {
	case "string":
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
		if len(prop.Enum) > 0 {
			for _, allowed := range prop.Enum {
				if s == allowed {
					return nil
				}
			}
			return fmt.Errorf("value %q not in enum %v", s, prop.Enum)
		}
	case "number", "integer":
		if _, ok := value.(float64); !ok {
			return fmt.Errorf("expected %s, got %T", prop.Type, value)
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("expected boolean, got %T", value)
		}
	}
	return nil
}
