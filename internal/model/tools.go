package model

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"google.golang.org/genai"
)

// toolInterface matches the tool.Tool interface from ADK.
type toolInterface interface {
	Name() string
	Description() string
}

// declarationProvider matches tools that have a Declaration method.
type declarationProvider interface {
	Declaration() *genai.FunctionDeclaration
}

// toolDecl is a provider-neutral function declaration.
type toolDecl struct {
	Name        string
	Description string
	// Schema is a JSON-schema object ({"type":"object","properties":...}).
	Schema map[string]any
}

// toolDeclarations extracts declarations from the ADK request tool map,
// sorted by name so requests are deterministic.
func toolDeclarations(tools map[string]any) ([]toolDecl, error) {
	names := make([]string, 0, len(tools))
	for name := range tools {
		names = append(names, name)
	}
	sort.Strings(names)

	decls := make([]toolDecl, 0, len(names))
	for _, name := range names {
		d := toolDecl{Name: name}

		var fd *genai.FunctionDeclaration
		switch def := tools[name].(type) {
		case *genai.FunctionDeclaration:
			fd = def
		case genai.FunctionDeclaration:
			fd = &def
		default:
			if t, ok := def.(toolInterface); ok {
				d.Description = t.Description()
			}
			if dp, ok := def.(declarationProvider); ok {
				fd = dp.Declaration()
			}
		}
		if fd == nil && d.Description == "" {
			slog.Warn("skipping tool without declaration", "tool", name, "type", fmt.Sprintf("%T", tools[name]))
			continue
		}

		if fd != nil {
			if d.Description == "" {
				d.Description = fd.Description
			}
			schema, err := declarationSchema(fd)
			if err != nil {
				return nil, fmt.Errorf("tool %s: %w", name, err)
			}
			d.Schema = schema
		}
		if d.Schema == nil {
			d.Schema = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		decls = append(decls, d)
	}
	return decls, nil
}

// declarationSchema converts either the JSON-schema or the genai.Schema form
// of a declaration's parameters into a generic map.
func declarationSchema(fd *genai.FunctionDeclaration) (map[string]any, error) {
	var src any
	switch {
	case fd.ParametersJsonSchema != nil:
		src = fd.ParametersJsonSchema
	case fd.Parameters != nil:
		src = fd.Parameters
	default:
		return nil, nil
	}

	raw, err := json.Marshal(src)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	var schema map[string]any
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}
	if schema == nil {
		return nil, nil
	}
	// genai.Schema marshals its type enum in upper case ("OBJECT").
	normalizeTypes(schema)
	if _, ok := schema["type"]; !ok {
		schema["type"] = "object"
	}
	return schema, nil
}

func normalizeTypes(v any) {
	switch node := v.(type) {
	case map[string]any:
		for k, child := range node {
			if s, ok := child.(string); ok && k == "type" {
				node[k] = strings.ToLower(s)
				continue
			}
			normalizeTypes(child)
		}
	case []any:
		for _, child := range node {
			normalizeTypes(child)
		}
	}
}

// systemText joins the system instruction parts of req.
func systemText(cfg *genai.GenerateContentConfig, contents []*genai.Content) []string {
	var out []string
	if cfg != nil && cfg.SystemInstruction != nil {
		for _, p := range cfg.SystemInstruction.Parts {
			if p.Text != "" {
				out = append(out, p.Text)
			}
		}
	}
	for _, c := range contents {
		if c.Role != "system" {
			continue
		}
		for _, p := range c.Parts {
			if p.Text != "" {
				out = append(out, p.Text)
			}
		}
	}
	return out
}
