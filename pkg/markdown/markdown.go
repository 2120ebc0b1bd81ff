// Package markdown turns Markdown sources into trusted template results.
package markdown

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/goliatone/go-tagview/pkg/html"
	"github.com/goliatone/go-tagview/pkg/sanitize"
)

// Option configures a Render call.
type Option func(*config)

type config struct {
	converter goldmark.Markdown
	sanitizer sanitize.Sanitizer
}

// WithGoldmark overrides the converter. The default enables GFM.
func WithGoldmark(md goldmark.Markdown) Option {
	return func(cfg *config) {
		if md != nil {
			cfg.converter = md
		}
	}
}

// WithSanitizer overrides the policy applied to the converted HTML.
func WithSanitizer(s sanitize.Sanitizer) Option {
	return func(cfg *config) {
		if s != nil {
			cfg.sanitizer = s
		}
	}
}

var defaultConverter = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Render converts src and sanitizes the output. The result is trusted and
// renders unescaped when interpolated into other templates.
func Render(src []byte, opts ...Option) (*html.TemplateResult, error) {
	cfg := &config{
		converter: defaultConverter,
		sanitizer: sanitize.UGC(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	var buf bytes.Buffer
	if err := cfg.converter.Convert(src, &buf); err != nil {
		return nil, fmt.Errorf("markdown: convert: %w", err)
	}
	return sanitize.Trusted(buf.String(), cfg.sanitizer), nil
}

// String is Render for string sources.
func String(src string, opts ...Option) (*html.TemplateResult, error) {
	return Render([]byte(src), opts...)
}
