package markdown_test

import (
	"context"
	"strings"
	"testing"

	"github.com/goliatone/go-tagview/pkg/html"
	"github.com/goliatone/go-tagview/pkg/markdown"
	"github.com/goliatone/go-tagview/pkg/sanitize"
)

func TestRender_ConvertsAndSanitizes(t *testing.T) {
	doc, err := markdown.String("# Title\n\nSome *text* <script>alert(1)</script>\n")
	if err != nil {
		t.Fatalf("markdown: %v", err)
	}

	out, err := html.Parse("<article>{}</article>", doc).Render(context.Background())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, "<h1>Title</h1>") {
		t.Fatalf("expected heading, got %q", out)
	}
	if !strings.Contains(out, "<em>text</em>") {
		t.Fatalf("expected emphasis, got %q", out)
	}
	if strings.Contains(out, "<script>") {
		t.Fatalf("expected script to be stripped, got %q", out)
	}
	if !strings.HasPrefix(out, "<article>") {
		t.Fatalf("expected literal wrapper, got %q", out)
	}
}

func TestRender_WithSanitizer(t *testing.T) {
	doc, err := markdown.String("**bold**", markdown.WithSanitizer(sanitize.Strict()))
	if err != nil {
		t.Fatalf("markdown: %v", err)
	}
	out, err := doc.Render(context.Background())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.TrimSpace(out) != "bold" {
		t.Fatalf("unexpected output %q", out)
	}
}
