package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/goliatone/go-tagview/pkg/html"
)

// Callback receives the outcome of a hook render. Exactly one of err and
// rendered is meaningful.
type Callback func(err error, rendered string)

// HookFunc is the view hook a host framework invokes with a template path,
// the render options and a completion callback.
type HookFunc func(path string, options Options, done Callback)

// Option configures an Engine.
type Option func(*Engine)

// WithLoader appends loaders consulted after the engine's own registry.
func WithLoader(loaders ...Loader) Option {
	return func(e *Engine) {
		for _, l := range loaders {
			if l != nil {
				e.loaders = append(e.loaders, l)
			}
		}
	}
}

// WithLogger sets the logger used for render diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithStrict renders template results in strict mode, failing on
// interpolations that have no string form.
func WithStrict(strict bool) Option {
	return func(e *Engine) {
		e.strict = strict
	}
}

// Engine resolves template paths to modules and renders them.
type Engine struct {
	registry *Registry
	loaders  ChainLoader
	logger   *slog.Logger
	strict   bool
}

// New creates an Engine. The engine's registry is always consulted first.
func New(opts ...Option) *Engine {
	e := &Engine{
		registry: NewRegistry(),
		logger:   slog.Default(),
	}
	e.loaders = ChainLoader{e.registry}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Registry exposes the in-process module registry.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Register is shorthand for e.Registry().Register.
func (e *Engine) Register(path string, module any) error {
	return e.registry.Register(path, module)
}

// Invalidate drops cached state for path in every caching loader.
func (e *Engine) Invalidate(path string) {
	e.loaders.Invalidate(path)
	e.logger.Debug("template invalidated", "path", path)
}

// Hook returns the callback style view hook. Every failure, panics
// included, is delivered through done.
func (e *Engine) Hook() HookFunc {
	return func(path string, options Options, done Callback) {
		rendered, err := e.Render(context.Background(), path, options)
		if done != nil {
			done(err, rendered)
		}
	}
}

// RenderTo renders path and writes the output to w.
func (e *Engine) RenderTo(ctx context.Context, w io.Writer, path string, options Options) error {
	rendered, err := e.Render(ctx, path, options)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, rendered)
	return err
}

// Render loads path, invokes it with options when it is a function and
// renders the outcome to a string.
func (e *Engine) Render(ctx context.Context, path string, options Options) (rendered string, err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			rendered, err = "", &PanicError{Path: path, Value: r}
		}
		if err != nil {
			e.logger.Error("template render failed", "path", path, "error", err)
			return
		}
		e.logger.Debug("template rendered", "path", path, "bytes", len(rendered), "duration", time.Since(start))
	}()

	module, err := e.loaders.Load(ctx, path)
	if err != nil {
		return "", fmt.Errorf("engine: load %q: %w", path, err)
	}

	module = unwrap(module)
	kind, fn := classify(module)
	if kind == ModuleInvalid {
		return "", &TypeError{Path: path, Type: typeName(module)}
	}

	outcome := module
	if kind == ModuleFunc {
		outcome, err = fn(ctx, options)
		if err != nil {
			return "", fmt.Errorf("engine: template %q: %w", path, err)
		}
	}
	return e.finish(ctx, path, outcome)
}

func (e *Engine) finish(ctx context.Context, path string, outcome any) (string, error) {
	for {
		future, ok := outcome.(*html.Future)
		if !ok || future == nil {
			break
		}
		settled, err := future.Await(ctx)
		if err != nil {
			return "", fmt.Errorf("engine: template %q: %w", path, err)
		}
		outcome = settled
	}

	if s, ok := formatNumber(outcome); ok {
		return s, nil
	}
	switch v := outcome.(type) {
	case string:
		return v, nil
	case *html.TemplateResult:
		if v == nil {
			break
		}
		var opts []html.RenderOption
		if e.strict {
			opts = append(opts, html.Strict())
		}
		out, err := v.Render(ctx, opts...)
		if err != nil {
			return "", fmt.Errorf("engine: template %q: %w", path, err)
		}
		return out, nil
	}
	return "", &TypeError{Path: path, Type: typeName(outcome)}
}

// IsNotFound reports whether err means no loader knew the template.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
