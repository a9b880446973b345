package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// Renderer turns markdown into terminal output.
type Renderer interface {
	Render(markdown string) (string, error)
}

// NewRenderer returns a glamour renderer wrapping at width columns, or nil
// when one cannot be built.
func NewRenderer(width int) Renderer {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	return r
}

// RenderMarkdown renders s with r, returning s unchanged when r is nil or
// rendering fails.
func RenderMarkdown(r Renderer, s string) string {
	if r == nil {
		return s
	}
	out, err := r.Render(s)
	if err != nil {
		return s
	}
	return strings.TrimRight(out, "\n")
}
