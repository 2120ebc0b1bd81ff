// Package sanitize is the extension point for content that must reach the
// page unescaped. Markup is cleaned by a Sanitizer and then wrapped with
// html.Unsafe, so templates can interpolate it without double escaping.
package sanitize

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-tagview/pkg/html"
)

// Sanitizer cleans untrusted markup. *bluemonday.Policy satisfies it.
type Sanitizer interface {
	Sanitize(s string) string
}

// SanitizerFunc adapts a function to the Sanitizer interface.
type SanitizerFunc func(string) string

// Sanitize calls f(s).
func (f SanitizerFunc) Sanitize(s string) string {
	return f(s)
}

var (
	ugcOnce    sync.Once
	ugcPolicy  *bluemonday.Policy
	textOnce   sync.Once
	textPolicy *bluemonday.Policy
)

// UGC returns the shared policy for user generated content: formatting,
// links, images and tables, no scripts or styles.
func UGC() *bluemonday.Policy {
	ugcOnce.Do(func() {
		policy := bluemonday.UGCPolicy()
		policy.RequireNoFollowOnLinks(true)
		policy.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("code", "pre", "span")
		ugcPolicy = policy
	})
	return ugcPolicy
}

// Strict returns the shared policy that strips every element.
func Strict() *bluemonday.Policy {
	textOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	return textPolicy
}

// Trusted runs raw through p and marks the outcome as safe to render. A nil
// sanitizer falls back to UGC.
func Trusted(raw string, p Sanitizer) *html.TemplateResult {
	if p == nil {
		p = UGC()
	}
	if strings.TrimSpace(raw) == "" {
		return html.Unsafe("")
	}
	return html.Unsafe(p.Sanitize(raw))
}

// Func returns a reusable helper bound to p, suitable for template code:
//
//	clean := sanitize.Func(sanitize.UGC())
//	html.Parse("<div>{}</div>", clean(comment.Body))
func Func(p Sanitizer) func(string) *html.TemplateResult {
	return func(raw string) *html.TemplateResult {
		return Trusted(raw, p)
	}
}
