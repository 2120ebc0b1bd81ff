// Package tagview renders HTML views built from escaped-by-default templates.
//
// The root package re-exports the pieces most callers need: the template
// constructors from pkg/html and the view engine from pkg/engine.
package tagview

import (
	"context"

	"github.com/goliatone/go-tagview/pkg/engine"
	"github.com/goliatone/go-tagview/pkg/html"
	"github.com/goliatone/go-tagview/pkg/sanitize"
)

// TemplateResult aliases html.TemplateResult.
type TemplateResult = html.TemplateResult

// Options aliases the render options bag handed to template functions.
type Options = engine.Options

// Engine aliases engine.Engine.
type Engine = engine.Engine

// HTML pairs literal fragments with interpolated values. Strings are escaped
// when rendered; template results are not.
func HTML(literals []string, values ...any) *TemplateResult {
	return html.HTML(literals, values...)
}

// Parse builds a template from src, splitting literals on "{}".
func Parse(src string, values ...any) *TemplateResult {
	return html.Parse(src, values...)
}

// Unsafe returns a template that renders raw verbatim.
func Unsafe(raw string) *TemplateResult {
	return html.Unsafe(raw)
}

// Sanitized cleans raw with the user content policy and marks it trusted.
func Sanitized(raw string) *TemplateResult {
	return sanitize.Trusted(raw, sanitize.UGC())
}

// NewEngine exposes the engine constructor from the top-level module.
func NewEngine(options ...engine.Option) *Engine {
	return engine.New(options...)
}

// Render renders t with ctx. It is shorthand for t.Render(ctx).
func Render(ctx context.Context, t *TemplateResult) (string, error) {
	return t.Render(ctx)
}
