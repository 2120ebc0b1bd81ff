package gotemplate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"reflect"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-tagview/pkg/html"
	"github.com/goliatone/go-tagview/pkg/markdown"
	"github.com/goliatone/go-tagview/pkg/render/template"
)

// DefaultExtension is appended to template names that carry none.
const DefaultExtension = ".tpl"

// FilterFunc is the plain Go shape accepted for custom filters.
type FilterFunc func(input any, param any) (any, error)

// Option configures the pongo2 adapter before construction.
type Option func(*settings)

type settings struct {
	baseDir   string
	files     fs.FS
	extension string
	funcs     map[string]any
	globals   map[string]any
}

// WithBaseDir loads templates from a directory on disk. Includes and
// extends resolve relative to it.
func WithBaseDir(dir string) Option {
	return func(s *settings) {
		s.baseDir = strings.TrimSpace(dir)
	}
}

// WithFS loads templates from an fs.FS.
func WithFS(files fs.FS) Option {
	return func(s *settings) {
		s.files = files
	}
}

// WithExtension overrides DefaultExtension.
func WithExtension(ext string) Option {
	return func(s *settings) {
		if ext = normalizeExt(ext); ext != "" {
			s.extension = ext
		}
	}
}

// WithTemplateFunc exposes funcs to templates. A pongo2.FilterFunction or a
// FilterFunc becomes a filter, any other function a global callable.
func WithTemplateFunc(funcs map[string]any) Option {
	return func(s *settings) {
		s.funcs = mergeInto(s.funcs, funcs)
	}
}

// WithGlobalData seeds values visible to every template. Render options
// shadow globals of the same name.
func WithGlobalData(data map[string]any) Option {
	return func(s *settings) {
		s.globals = mergeInto(s.globals, data)
	}
}

// Engine renders pongo2 view files and keeps parsed templates until they
// are invalidated.
type Engine struct {
	set       *pongo2.TemplateSet
	extension string

	mu    sync.RWMutex
	cache map[string]*pongo2.Template
}

var (
	_ template.TemplateRenderer = (*Engine)(nil)
	_ template.Invalidator      = (*Engine)(nil)
)

// New constructs an Engine. Either a base dir or an fs.FS is required.
func New(options ...Option) (*Engine, error) {
	s := &settings{extension: DefaultExtension}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	if s.baseDir == "" && s.files == nil {
		return nil, errors.New("gotemplate: need to provide either base dir or fs.FS")
	}

	var loaders []pongo2.TemplateLoader
	if s.baseDir != "" {
		local, err := pongo2.NewLocalFileSystemLoader(s.baseDir)
		if err != nil {
			return nil, fmt.Errorf("gotemplate: base dir %s: %w", s.baseDir, err)
		}
		loaders = append(loaders, local)
	}
	if s.files != nil {
		loaders = append(loaders, pongo2.NewFSLoader(s.files))
	}

	e := &Engine{
		set:       pongo2.NewSet("tagview", loaders...),
		extension: s.extension,
		cache:     make(map[string]*pongo2.Template),
	}
	e.set.Globals = make(pongo2.Context)
	registerDefaultFilters()

	if err := e.GlobalContext(s.globals); err != nil {
		return nil, fmt.Errorf("gotemplate: global data: %w", err)
	}
	for name, fn := range s.funcs {
		if err := e.addFunc(name, fn); err != nil {
			return nil, fmt.Errorf("gotemplate: template func %q: %w", name, err)
		}
	}
	return e, nil
}

// Extension reports the extension that marks pongo2 view files.
func (e *Engine) Extension() string {
	return e.extension
}

// Render renders name as inline source when it contains pongo2 tags and as
// a view file otherwise.
func (e *Engine) Render(name string, data any, out ...io.Writer) (string, error) {
	if strings.Contains(name, "{{") || strings.Contains(name, "{%") {
		return e.RenderString(name, data, out...)
	}
	return e.RenderTemplate(name, data, out...)
}

// RenderTemplate renders the view file at name, adding the extension when
// name has none.
func (e *Engine) RenderTemplate(name string, data any, out ...io.Writer) (string, error) {
	if e == nil || e.set == nil {
		return "", errors.New("gotemplate: engine is nil")
	}
	path := e.withExtension(name)
	tmpl, err := e.lookup(path)
	if err != nil {
		return "", err
	}
	return e.execute(tmpl, data, path, out)
}

// RenderString compiles and renders src. The result is not cached.
func (e *Engine) RenderString(src string, data any, out ...io.Writer) (string, error) {
	if e == nil || e.set == nil {
		return "", errors.New("gotemplate: engine is nil")
	}
	tmpl, err := e.set.FromString(src)
	if err != nil {
		return "", fmt.Errorf("gotemplate: parse inline template: %w", err)
	}
	return e.execute(tmpl, data, "inline template", out)
}

// RegisterFilter registers fn as a pongo2 filter. pongo2 filters are
// process wide, so an existing name is an error.
func (e *Engine) RegisterFilter(name string, fn func(input any, param any) (any, error)) error {
	name = strings.TrimSpace(name)
	if name == "" || fn == nil {
		return errors.New("gotemplate: filter name and function required")
	}
	if pongo2.FilterExists(name) {
		return fmt.Errorf("gotemplate: filter %q already exists", name)
	}
	return pongo2.RegisterFilter(name, adaptFilter(name, fn))
}

// GlobalContext merges data into the globals visible to every template.
func (e *Engine) GlobalContext(data any) error {
	if e == nil || e.set == nil {
		return errors.New("gotemplate: engine is nil")
	}
	if data == nil {
		return nil
	}
	globals, err := toContext(data)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.set.Globals.Update(globals)
	e.mu.Unlock()
	return nil
}

// Invalidate drops the parsed template for name.
func (e *Engine) Invalidate(name string) {
	if e == nil {
		return
	}
	path := e.withExtension(name)
	e.mu.Lock()
	delete(e.cache, path)
	e.mu.Unlock()
}

// Reset drops every parsed template.
func (e *Engine) Reset() {
	if e == nil {
		return
	}
	e.mu.Lock()
	clear(e.cache)
	e.mu.Unlock()
}

func (e *Engine) withExtension(name string) string {
	name = strings.TrimPrefix(strings.TrimSpace(name), "/")
	if strings.HasSuffix(name, e.extension) {
		return name
	}
	return name + e.extension
}

func (e *Engine) addFunc(name string, fn any) error {
	name = strings.TrimSpace(name)
	if name == "" || fn == nil {
		return nil
	}

	var filter pongo2.FilterFunction
	switch f := fn.(type) {
	case pongo2.FilterFunction:
		filter = f
	case func(*pongo2.Value, *pongo2.Value) (*pongo2.Value, *pongo2.Error):
		filter = f
	case FilterFunc:
		filter = adaptFilter(name, f)
	case func(any, any) (any, error):
		filter = adaptFilter(name, f)
	}
	if filter != nil {
		if pongo2.FilterExists(name) {
			return nil
		}
		return pongo2.RegisterFilter(name, filter)
	}

	if reflect.TypeOf(fn).Kind() != reflect.Func {
		return fmt.Errorf("expected a function, got %T", fn)
	}
	e.mu.Lock()
	e.set.Globals[name] = fn
	e.mu.Unlock()
	return nil
}

func (e *Engine) lookup(path string) (*pongo2.Template, error) {
	e.mu.RLock()
	tmpl, ok := e.cache[path]
	e.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if tmpl, ok := e.cache[path]; ok {
		return tmpl, nil
	}
	tmpl, err := e.set.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("gotemplate: load %q: %w", path, err)
	}
	e.cache[path] = tmpl
	return tmpl, nil
}

func (e *Engine) execute(tmpl *pongo2.Template, data any, label string, out []io.Writer) (string, error) {
	ctx, err := toContext(data)
	if err != nil {
		return "", fmt.Errorf("gotemplate: %s: %w", label, err)
	}

	e.mu.RLock()
	rendered, err := tmpl.Execute(ctx)
	e.mu.RUnlock()
	if err != nil {
		return "", fmt.Errorf("gotemplate: execute %s: %w", label, err)
	}

	for _, w := range out {
		if _, err := io.WriteString(w, rendered); err != nil {
			return "", err
		}
	}
	return rendered, nil
}

func adaptFilter(name string, fn func(input any, param any) (any, error)) pongo2.FilterFunction {
	return func(in *pongo2.Value, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
		var p any
		if param != nil {
			p = param.Interface()
		}
		result, err := fn(in.Interface(), p)
		if err != nil {
			return nil, &pongo2.Error{Sender: "filter:" + name, OrigError: err}
		}
		if t, ok := result.(*html.TemplateResult); ok {
			return trusted(t)
		}
		return pongo2.AsValue(result), nil
	}
}

// toContext turns render data into a pongo2 context. Options bags and maps
// are converted key by key; structs go through their JSON form.
func toContext(data any) (pongo2.Context, error) {
	switch v := data.(type) {
	case nil:
		return pongo2.Context{}, nil
	case pongo2.Context:
		return toContextMap(v)
	case html.Options:
		return toContextMap(v)
	case map[string]any:
		return toContextMap(v)
	}

	decoded, err := viaJSON(data)
	if err != nil {
		return nil, err
	}
	m, ok := decoded.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("context must be an object, got %T", data)
	}
	return toContextMap(m)
}

func toContextMap(in map[string]any) (pongo2.Context, error) {
	out := make(pongo2.Context, len(in))
	for key, value := range in {
		if key = strings.TrimSpace(key); key == "" {
			continue
		}
		converted, err := toContextValue(value)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		out[key] = converted
	}
	return out, nil
}

func toContextValue(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	if reflect.TypeOf(value).Kind() == reflect.Func {
		return value, nil
	}

	switch v := value.(type) {
	case string, bool, int, int64, float64, *pongo2.Value:
		return v, nil
	case *html.TemplateResult:
		// Template results carry their own escaping; pongo2 must not
		// autoescape them again.
		rendered, err := v.Render(context.Background())
		if err != nil {
			return nil, err
		}
		return pongo2.AsSafeValue(rendered), nil
	case *html.Future:
		settled, err := v.Await(context.Background())
		if err != nil {
			return nil, err
		}
		return toContextValue(settled)
	case pongo2.Context:
		return toContextMap(v)
	case html.Options:
		return toContextMap(v)
	case map[string]any:
		return toContextMap(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			converted, err := toContextValue(item)
			if err != nil {
				return nil, err
			}
			out[i] = converted
		}
		return out, nil
	}

	decoded, err := viaJSON(value)
	if err != nil {
		return nil, err
	}
	switch d := decoded.(type) {
	case map[string]any:
		return toContextMap(d)
	case []any:
		return toContextValue(d)
	default:
		return d, nil
	}
}

func trusted(t *html.TemplateResult) (*pongo2.Value, *pongo2.Error) {
	rendered, err := t.Render(context.Background())
	if err != nil {
		return nil, &pongo2.Error{Sender: "filter", OrigError: err}
	}
	return pongo2.AsSafeValue(rendered), nil
}

func viaJSON(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func mergeInto(dst, src map[string]any) map[string]any {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for key, value := range src {
		dst[strings.TrimSpace(key)] = value
	}
	return dst
}

func normalizeExt(ext string) string {
	ext = strings.TrimSpace(ext)
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

func registerDefaultFilters() {
	if !pongo2.FilterExists("trim") {
		_ = pongo2.RegisterFilter("trim", filterTrim)
	}
	if !pongo2.FilterExists("markdown_safe") {
		_ = pongo2.RegisterFilter("markdown_safe", filterMarkdown)
	}
}

func filterTrim(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	return pongo2.AsValue(strings.TrimSpace(in.String())), nil
}

func filterMarkdown(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	doc, err := markdown.String(in.String())
	if err != nil {
		return nil, &pongo2.Error{Sender: "filter:markdown_safe", OrigError: err}
	}
	return trusted(doc)
}
