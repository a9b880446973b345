// Package demo runs a scripted tour of the agent's analysis features.
package demo

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"pgagent/internal/agentrun"
	"pgagent/internal/apperr"
)

//go:embed demos.yaml
var defaultCatalog []byte

// Demo is one scripted question.
type Demo struct {
	Name        string `yaml:"name"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Query       string `yaml:"query"`
}

// Catalog is an ordered list of demos.
type Catalog struct {
	Version string `yaml:"version"`
	Demos   []Demo `yaml:"demos"`
}

// Default returns the built-in catalog.
func Default() (*Catalog, error) {
	return Load(defaultCatalog)
}

// LoadFile loads a catalog from a YAML file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read demo catalog: %w", err)
	}
	return Load(data)
}

// Load parses a catalog from YAML data.
func Load(data []byte) (*Catalog, error) {
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parse demo catalog YAML: %w", err)
	}
	if err := validate(&cat); err != nil {
		return nil, fmt.Errorf("validate demo catalog: %w", err)
	}
	return &cat, nil
}

func validate(cat *Catalog) error {
	if cat.Version == "" {
		cat.Version = "1"
	}
	if len(cat.Demos) == 0 {
		return fmt.Errorf("at least one demo is required")
	}
	seen := make(map[string]bool)
	for i, d := range cat.Demos {
		if strings.TrimSpace(d.Title) == "" {
			return fmt.Errorf("demo %d: title is required", i)
		}
		if strings.TrimSpace(d.Query) == "" {
			return fmt.Errorf("demo %q: query is required", d.Title)
		}
		if d.Name != "" {
			if seen[d.Name] {
				return fmt.Errorf("demo %d: duplicate name %q", i, d.Name)
			}
			seen[d.Name] = true
		}
	}
	return nil
}

// Asker answers one question. *agentrun.Runner implements it.
type Asker interface {
	Ask(ctx context.Context, q agentrun.Question) (agentrun.Answer, error)
}

// Report counts demo outcomes.
type Report struct {
	Passed int
	Failed int
}

const (
	queryPreview    = 100
	responsePreview = 200
	separator       = "------------------------------------------------------------"
)

// Run asks every demo in order and writes progress to w. A failing demo
// does not stop the run.
func Run(ctx context.Context, cat *Catalog, asker Asker, w io.Writer) Report {
	var rep Report
	for i, d := range cat.Demos {
		if ctx.Err() != nil {
			break
		}
		fmt.Fprintf(w, "\n%d. %s\n", i+1, d.Title)
		if d.Description != "" {
			fmt.Fprintf(w, "   Description: %s\n", d.Description)
		}
		fmt.Fprintf(w, "   Query: %s\n", preview(d.Query, queryPreview))

		answer, err := asker.Ask(ctx, agentrun.Question{Text: d.Query, Source: "demo"})
		if err != nil {
			rep.Failed++
			fmt.Fprintf(w, "   Failed: %s\n", firstLine(apperr.UserMessage(err)))
		} else {
			rep.Passed++
			fmt.Fprintf(w, "   Completed in %s via %s\n", answer.Elapsed.Round(100*time.Millisecond), answer.Transport)
			fmt.Fprintf(w, "   Response preview: %s\n", preview(answer.Text, responsePreview))
		}
		fmt.Fprintln(w, separator)
	}
	return rep
}

func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
