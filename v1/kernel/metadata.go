package kernel

import (
	"github.com/Aleph-Alpha/connectors/v1/contents"
)

// ParameterMetadata describes one function parameter.
type ParameterMetadata struct {
	Name        string
	Description string
	Required    bool
	Default     any

	// Schema is the JSON schema of the parameter. Nil means string.
	Schema map[string]any
}

// FunctionMetadata describes a kernel function as it is advertised to models.
type FunctionMetadata struct {
	Name              string
	PluginName        string
	Description       string
	Parameters        []ParameterMetadata
	ReturnDescription string
}

// FullyQualifiedName is the name models see: "plugin-function".
func (m *FunctionMetadata) FullyQualifiedName() string {
	return contents.JoinName(m.PluginName, m.Name)
}

// RequiredParameters returns the names of the required parameters in order.
func (m *FunctionMetadata) RequiredParameters() []string {
	var names []string
	for _, p := range m.Parameters {
		if p.Required {
			names = append(names, p.Name)
		}
	}
	return names
}

// JSONSchema renders the parameters as a JSON schema object, the shape
// every tool-calling API expects.
func (m *FunctionMetadata) JSONSchema() map[string]any {
	properties := make(map[string]any, len(m.Parameters))
	for _, p := range m.Parameters {
		schema := map[string]any{"type": "string"}
		if p.Schema != nil {
			schema = make(map[string]any, len(p.Schema)+1)
			for k, v := range p.Schema {
				schema[k] = v
			}
		}
		if p.Description != "" {
			schema["description"] = p.Description
		}
		properties[p.Name] = schema
	}

	out := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if required := m.RequiredParameters(); len(required) > 0 {
		out["required"] = required
	}
	return out
}

// ToolDefinition is a function as a chat API sees it. Connectors map it
// onto their SDK's tool type.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
}

// ToolDefinitions describes functions as tools, named by their fully
// qualified name so calls can be resolved with GetFunctionFromFQN.
func ToolDefinitions(functions []*FunctionMetadata) []ToolDefinition {
	defs := make([]ToolDefinition, 0, len(functions))
	for _, m := range functions {
		defs = append(defs, ToolDefinition{
			Name:        m.FullyQualifiedName(),
			Description: m.Description,
			Parameters:  m.JSONSchema(),
		})
	}
	return defs
}

func (m *FunctionMetadata) clone() *FunctionMetadata {
	out := *m
	out.Parameters = append([]ParameterMetadata(nil), m.Parameters...)
	return &out
}
