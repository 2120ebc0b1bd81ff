package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	gopath "path"
	"strings"
	"sync"

	"github.com/goliatone/go-tagview/pkg/markdown"
	"github.com/goliatone/go-tagview/pkg/render/template/gotemplate"
)

// Loader resolves a template path to a module. Unknown paths must return an
// error wrapping ErrNotFound so chained loaders can fall through.
type Loader interface {
	Load(ctx context.Context, path string) (any, error)
}

// Invalidator is implemented by loaders that cache what they load.
type Invalidator interface {
	Invalidate(path string)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, path string) (any, error)

// Load calls f(ctx, path).
func (f LoaderFunc) Load(ctx context.Context, path string) (any, error) {
	return f(ctx, path)
}

// ChainLoader asks each loader in turn and returns the first hit.
type ChainLoader []Loader

// Load implements Loader.
func (c ChainLoader) Load(ctx context.Context, path string) (any, error) {
	for _, loader := range c {
		if loader == nil {
			continue
		}
		module, err := loader.Load(ctx, path)
		if err == nil {
			return module, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, normalizePath(path))
}

// Invalidate forwards to every loader that caches.
func (c ChainLoader) Invalidate(path string) {
	for _, loader := range c {
		if inv, ok := loader.(Invalidator); ok {
			inv.Invalidate(path)
		}
	}
}

// DefaultExtensions are tried, in order, for paths without an extension.
var DefaultExtensions = []string{".html", ".tpl", ".md", ".txt"}

// FSOption configures an FSLoader.
type FSOption func(*FSLoader)

// WithExtensions replaces the extensions tried for bare paths.
func WithExtensions(exts ...string) FSOption {
	return func(l *FSLoader) {
		l.extensions = l.extensions[:0]
		for _, ext := range exts {
			ext = strings.TrimSpace(ext)
			if ext == "" {
				continue
			}
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			l.extensions = append(l.extensions, ext)
		}
	}
}

// WithPongo supplies the pongo2 engine used for template files instead of
// one built over the same filesystem. Files carrying the engine's extension
// are rendered by it.
func WithPongo(engine *gotemplate.Engine) FSOption {
	return func(l *FSLoader) {
		if engine == nil {
			return
		}
		l.pongo = engine
		l.pongoExt = engine.Extension()
	}
}

// FSLoader turns files into modules by extension: pongo2 files (".tpl" by
// default) become template functions, ".md" files become markdown template
// functions and everything else is a string module.
type FSLoader struct {
	fsys       fs.FS
	extensions []string
	pongoExt   string

	mu    sync.Mutex
	pongo *gotemplate.Engine
}

var (
	_ Loader      = (*FSLoader)(nil)
	_ Invalidator = (*FSLoader)(nil)
)

// NewFSLoader creates a loader over fsys.
func NewFSLoader(fsys fs.FS, opts ...FSOption) *FSLoader {
	l := &FSLoader{
		fsys:       fsys,
		extensions: append([]string(nil), DefaultExtensions...),
		pongoExt:   gotemplate.DefaultExtension,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Load implements Loader.
func (l *FSLoader) Load(_ context.Context, path string) (any, error) {
	name, err := l.resolve(path)
	if err != nil {
		return nil, err
	}

	switch gopath.Ext(name) {
	case l.pongoExt:
		engine, err := l.pongoEngine()
		if err != nil {
			return nil, err
		}
		return TemplateFunc(func(_ context.Context, opts Options) (any, error) {
			return engine.RenderTemplate(name, opts)
		}), nil
	case ".md":
		data, err := fs.ReadFile(l.fsys, name)
		if err != nil {
			return nil, fmt.Errorf("engine: read %q: %w", name, err)
		}
		return TemplateFunc(func(context.Context, Options) (any, error) {
			return markdown.Render(data)
		}), nil
	default:
		data, err := fs.ReadFile(l.fsys, name)
		if err != nil {
			return nil, fmt.Errorf("engine: read %q: %w", name, err)
		}
		return string(data), nil
	}
}

// Invalidate drops cached pongo2 templates for path.
func (l *FSLoader) Invalidate(path string) {
	l.mu.Lock()
	engine := l.pongo
	l.mu.Unlock()
	if engine == nil {
		return
	}
	name := normalizePath(path)
	if gopath.Ext(name) == "" {
		engine.Reset()
		return
	}
	engine.Invalidate(name)
}

func (l *FSLoader) resolve(path string) (string, error) {
	name := normalizePath(path)
	if name != "" {
		name = gopath.Clean(name)
	}
	if name == "" || !fs.ValidPath(name) {
		return "", fmt.Errorf("%w: %q", ErrNotFound, path)
	}

	candidates := []string{name}
	if gopath.Ext(name) == "" {
		candidates = candidates[:0]
		for _, ext := range l.extensions {
			candidates = append(candidates, name+ext)
		}
	}

	for _, candidate := range candidates {
		info, err := fs.Stat(l.fsys, candidate)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return "", fmt.Errorf("engine: stat %q: %w", candidate, err)
		}
		if info.IsDir() {
			continue
		}
		return candidate, nil
	}
	return "", fmt.Errorf("%w: %q", ErrNotFound, name)
}

func (l *FSLoader) pongoEngine() (*gotemplate.Engine, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.pongo != nil {
		return l.pongo, nil
	}
	engine, err := gotemplate.New(gotemplate.WithFS(l.fsys))
	if err != nil {
		return nil, fmt.Errorf("engine: pongo2: %w", err)
	}
	l.pongo = engine
	return engine, nil
}
