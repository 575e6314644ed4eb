// Package prompts resolves prompt templates by site, item type and name.
package prompts

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultPrompts []byte

// ErrPromptNotFound is returned when no template matches the requested key.
var ErrPromptNotFound = errors.New("prompt not found")

// Prompt is a template plus the JSON Schema its response is expected to follow.
type Prompt struct {
	Site     string `yaml:"site"`
	ItemType string `yaml:"item_type"`
	Name     string `yaml:"name"`
	Template string `yaml:"template"`
	Schema   string `yaml:"schema"`
}

// SchemaJSON returns the response schema as raw JSON, or nil if the prompt has none.
func (p *Prompt) SchemaJSON() json.RawMessage {
	s := strings.TrimSpace(p.Schema)
	if s == "" {
		return nil
	}
	return json.RawMessage(s)
}

// PromptContext holds the values a template may reference.
type PromptContext struct {
	ImageData string
	Site      string
	ItemType  string
	Query     string
}

type key struct {
	site, itemType, name string
}

// Registry is an immutable set of prompts.
type Registry struct {
	prompts map[key]*Prompt
}

type promptFile struct {
	Prompts []*Prompt `yaml:"prompts"`
}

// Default returns the registry built from the embedded prompts.
func Default() (*Registry, error) {
	return Parse(defaultPrompts)
}

// Load returns the registry from path, or the embedded one when path is empty.
func Load(path string) (*Registry, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompts file: %w", err)
	}
	reg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	log.Info().Str("path", path).Int("prompts", len(reg.prompts)).Msg("Loaded prompts file")
	return reg, nil
}

// Parse builds a registry from YAML. Templates and schemas are checked up front.
func Parse(data []byte) (*Registry, error) {
	var f promptFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse prompts: %w", err)
	}

	reg := &Registry{prompts: make(map[key]*Prompt, len(f.Prompts))}
	for i, p := range f.Prompts {
		if p == nil || p.Name == "" || p.Template == "" {
			return nil, fmt.Errorf("prompt %d: name and template are required", i)
		}
		if _, err := template.New(p.Name).Parse(p.Template); err != nil {
			return nil, fmt.Errorf("prompt %s: %w", p.Name, err)
		}
		if s := p.SchemaJSON(); s != nil && !json.Valid(s) {
			return nil, fmt.Errorf("prompt %s: schema is not valid JSON", p.Name)
		}
		reg.prompts[key{p.Site, p.ItemType, p.Name}] = p
	}
	return reg, nil
}

// Find returns the prompt registered for site, item type and name.
func (r *Registry) Find(site, itemType, name string) (*Prompt, bool) {
	p, ok := r.prompts[key{site, itemType, name}]
	return p, ok
}

// Fill renders the prompt template with pc.
func Fill(p *Prompt, pc PromptContext) (string, error) {
	tmpl, err := template.New(p.Name).Option("missingkey=error").Parse(p.Template)
	if err != nil {
		return "", fmt.Errorf("parse template %s: %w", p.Name, err)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, pc); err != nil {
		return "", fmt.Errorf("fill template %s: %w", p.Name, err)
	}
	return strings.TrimSpace(b.String()), nil
}
