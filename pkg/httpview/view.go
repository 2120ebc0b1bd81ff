// Package httpview mounts engine views on net/http.
package httpview

import (
	"encoding/hex"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/goliatone/go-tagview/internal/logging"
	"github.com/goliatone/go-tagview/pkg/engine"
)

// DataFunc builds the render options for a request.
type DataFunc func(r *http.Request) engine.Options

// View renders engine templates into HTTP responses.
type View struct {
	engine *engine.Engine
	logger *slog.Logger
	index  string
	inject string
}

// Option configures a View.
type Option func(*View)

// WithLogger sets the logger used for failed renders.
func WithLogger(logger *slog.Logger) Option {
	return func(v *View) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// WithIndex sets the template served for directory paths. Default "index".
func WithIndex(name string) Option {
	return func(v *View) {
		if name = strings.TrimSpace(name); name != "" {
			v.index = name
		}
	}
}

// WithInjection appends snippet before the closing body tag of every HTML
// response, or at the end when there is none. Used for live reload.
func WithInjection(snippet string) Option {
	return func(v *View) {
		v.inject = snippet
	}
}

// New creates a View over e.
func New(e *engine.Engine, opts ...Option) *View {
	v := &View{
		engine: e,
		logger: slog.Default(),
		index:  "index",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v
}

// Render renders name and writes it to w with an ETag derived from the body.
// A matching If-None-Match yields 304 with no body.
func (v *View) Render(w http.ResponseWriter, r *http.Request, name string, options engine.Options) {
	ctx := r.Context()
	logger := logging.FromContext(ctx, v.logger)

	rendered, err := v.engine.Render(ctx, name, options)
	if err != nil {
		status := http.StatusInternalServerError
		if engine.IsNotFound(err) {
			status = http.StatusNotFound
		}
		logger.Error("view render failed", "template", name, "status", status, "error", err)
		http.Error(w, http.StatusText(status), status)
		return
	}
	if v.inject != "" {
		rendered = injectSnippet(rendered, v.inject)
	}

	tag := ETag([]byte(rendered))
	w.Header().Set("ETag", tag)
	if match := r.Header.Get("If-None-Match"); match != "" && match == tag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write([]byte(rendered)); err != nil {
		logger.Warn("write response", "template", name, "error", err)
	}
}

// Handler serves the fixed template name, building options with data.
func (v *View) Handler(name string, data DataFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var opts engine.Options
		if data != nil {
			opts = data(r)
		}
		v.Render(w, r, name, opts)
	})
}

// Dir serves every path as a template name: "/" maps to the index template,
// "/docs/" to "docs/index" and "/about" to "about". Query parameters are
// passed as options.
func (v *View) Dir() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		v.Render(w, r, v.templateFor(r.URL.Path), QueryOptions(r))
	})
}

func (v *View) templateFor(urlPath string) string {
	clean := path.Clean("/" + urlPath)
	if clean == "/" {
		return v.index
	}
	name := strings.TrimPrefix(clean, "/")
	if strings.HasSuffix(urlPath, "/") {
		return name + "/" + v.index
	}
	return name
}

// QueryOptions exposes the first value of each query parameter.
func QueryOptions(r *http.Request) engine.Options {
	query := r.URL.Query()
	opts := make(engine.Options, len(query))
	for key, values := range query {
		if len(values) > 0 {
			opts[key] = values[0]
		}
	}
	return opts
}

// ETag returns a strong entity tag for body.
func ETag(body []byte) string {
	sum := blake3.Sum256(body)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}

func injectSnippet(body, snippet string) string {
	idx := lastIndexASCIIFold(body, "</body>")
	if idx < 0 {
		return body + snippet
	}
	return body[:idx] + snippet + body[idx:]
}

// lastIndexASCIIFold is strings.LastIndex ignoring ASCII case. Offsets are
// taken on body itself so multi-byte runes are never split.
func lastIndexASCIIFold(s, sub string) int {
	for i := len(s) - len(sub); i >= 0; i-- {
		if asciiEqualFold(s[i:i+len(sub)], sub) {
			return i
		}
	}
	return -1
}

func asciiEqualFold(a, b string) bool {
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
