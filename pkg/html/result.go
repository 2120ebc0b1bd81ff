package html

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// Placeholder separates literals in Parse sources.
const Placeholder = "{}"

// Options is an opaque configuration bag carried by a TemplateResult. The
// renderer never reads it.
type Options map[string]any

// TemplateResult is an immutable, lazily rendered fragment. Rendering never
// mutates the receiver, so a result may be rendered any number of times and
// from several goroutines.
type TemplateResult struct {
	literals []string
	values   []Value
	options  Options
}

// HTML pairs literals with values. It is the Go counterpart of a tagged
// template literal: len(literals) is expected to be len(values)+1. Literals
// drive rendering, so surplus values are ignored and missing ones are absent.
func HTML(literals []string, values ...any) *TemplateResult {
	return New(literals, values, nil)
}

// New builds a TemplateResult carrying options.
func New(literals []string, values []any, options Options) *TemplateResult {
	t := &TemplateResult{
		literals: append([]string(nil), literals...),
		options:  options,
	}
	if len(values) > 0 {
		t.values = make([]Value, len(values))
		for i, v := range values {
			t.values[i] = ValueOf(v)
		}
	}
	return t
}

// Unsafe wraps raw so it renders byte for byte with no escaping. The caller
// is responsible for raw being safe to emit.
func Unsafe(raw string) *TemplateResult {
	return &TemplateResult{literals: []string{raw}}
}

// Parse splits src on Placeholder and pairs the pieces with values.
//
//	html.Parse("<li>{}</li>", name)
func Parse(src string, values ...any) *TemplateResult {
	return HTML(strings.Split(src, Placeholder), values...)
}

// Literals returns a copy of the literal fragments.
func (t *TemplateResult) Literals() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.literals...)
}

// Values returns a copy of the interpolation slots.
func (t *TemplateResult) Values() []Value {
	if t == nil {
		return nil
	}
	return append([]Value(nil), t.values...)
}

// Options returns the options bag the result was built with.
func (t *TemplateResult) Options() Options {
	if t == nil {
		return nil
	}
	return t.options
}

// RenderOption tweaks a single render call.
type RenderOption func(*renderConfig)

type renderConfig struct {
	strict bool
}

// Strict makes unsupported value kinds fail the render with an
// *UnsupportedValueError instead of being dropped.
func Strict() RenderOption {
	return func(cfg *renderConfig) {
		cfg.strict = true
	}
}

// Render resolves the tree into a string. Slots are resolved strictly left to
// right; deferred values are awaited one at a time.
func (t *TemplateResult) Render(ctx context.Context, opts ...RenderOption) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := renderConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	var b strings.Builder
	if err := t.render(ctx, &b, &cfg); err != nil {
		return "", err
	}
	return b.String(), nil
}

// RenderTo renders and writes the output to w. Nothing is written when the
// render fails.
func (t *TemplateResult) RenderTo(ctx context.Context, w io.Writer, opts ...RenderOption) error {
	out, err := t.Render(ctx, opts...)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

// String renders with a background context and drops errors. Handy for
// debugging and fmt verbs.
func (t *TemplateResult) String() string {
	out, _ := t.Render(context.Background())
	return out
}

func (t *TemplateResult) render(ctx context.Context, b *strings.Builder, cfg *renderConfig) error {
	if t == nil {
		return nil
	}
	for i, literal := range t.literals {
		b.WriteString(literal)
		if i >= len(t.values) {
			continue
		}
		slot := t.values[i]
		if !slot.truthy() {
			continue
		}
		if err := resolve(ctx, slot, b, cfg); err != nil {
			return fmt.Errorf("html: resolve value %d: %w", i, err)
		}
	}
	return nil
}

func resolve(ctx context.Context, v Value, b *strings.Builder, cfg *renderConfig) error {
	switch v.kind {
	case KindDeferred:
		settled, err := v.future.Await(ctx)
		if err != nil {
			return err
		}
		return resolve(ctx, ValueOf(settled), b, cfg)
	case KindSeq:
		for _, item := range v.seq {
			if err := resolve(ctx, item, b, cfg); err != nil {
				return err
			}
		}
		return nil
	case KindNested:
		return v.nested.render(ctx, b, cfg)
	case KindText:
		b.WriteString(Escape(v.text))
		return nil
	case KindAbsent:
		return nil
	default:
		if cfg.strict {
			return &UnsupportedValueError{Kind: v.kind, Value: v.raw}
		}
		return nil
	}
}
