package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// schemaNode is the subset of JSON Schema the Gemini SDKs understand.
type schemaNode struct {
	Type        json.RawMessage        `json:"type"`
	Description string                 `json:"description"`
	Properties  map[string]*schemaNode `json:"properties"`
	Items       *schemaNode            `json:"items"`
	Required    []string               `json:"required"`
	Enum        []string               `json:"enum"`
}

// typeName returns the schema type and whether null is allowed. "type" may be a string or a list.
func (n *schemaNode) typeName() (string, bool) {
	if len(n.Type) == 0 {
		return "", false
	}
	var single string
	if err := json.Unmarshal(n.Type, &single); err == nil {
		return single, false
	}
	var list []string
	if err := json.Unmarshal(n.Type, &list); err != nil {
		return "", false
	}
	name, nullable := "", false
	for _, t := range list {
		if t == "null" {
			nullable = true
		} else if name == "" {
			name = t
		}
	}
	return name, nullable
}

type compiledSchema struct {
	node      *schemaNode
	validator *jsonschema.Schema
}

func compileSchema(raw json.RawMessage) (*compiledSchema, error) {
	var node schemaNode
	if err := json.Unmarshal(raw, &node); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("schema resource: %w", err)
	}
	s, err := c.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &compiledSchema{node: &node, validator: s}, nil
}

func (s *compiledSchema) root() *schemaNode {
	if s == nil {
		return nil
	}
	return s.node
}

func (s *compiledSchema) validate(doc map[string]any) error {
	return s.validator.Validate(doc)
}
