package httpview_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/goliatone/go-tagview/internal/logging"
	"github.com/goliatone/go-tagview/pkg/engine"
	"github.com/goliatone/go-tagview/pkg/html"
	"github.com/goliatone/go-tagview/pkg/httpview"
)

func newView(t *testing.T, opts ...httpview.Option) *httpview.View {
	t.Helper()

	files := fstest.MapFS{
		"index.html":      {Data: []byte("<html><body>home</body></html>")},
		"docs/index.html": {Data: []byte("docs home")},
		"hello.tpl":       {Data: []byte("Hello {{ name }}")},
	}
	e := engine.New(
		engine.WithLogger(logging.Discard()),
		engine.WithLoader(engine.NewFSLoader(files)),
	)
	e.Registry().MustRegister("greet", func(opts engine.Options) *html.TemplateResult {
		return html.Parse("<p>{}</p>", opts["name"])
	})
	e.Registry().MustRegister("broken", 3+4i)

	return httpview.New(e, append([]httpview.Option{httpview.WithLogger(logging.Discard())}, opts...)...)
}

func TestHandler_RendersWithData(t *testing.T) {
	view := newView(t)
	handler := view.Handler("greet", func(r *http.Request) engine.Options {
		return engine.Options{"name": r.URL.Query().Get("name")}
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?name=%3Cb%3E", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if body := rec.Body.String(); body != "<p>&lt;b&gt;</p>" {
		t.Fatalf("unexpected body %q", body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if rec.Header().Get("ETag") != httpview.ETag([]byte("<p>&lt;b&gt;</p>")) {
		t.Fatalf("unexpected etag %q", rec.Header().Get("ETag"))
	}
}

func TestDir_RoutesPathsToTemplates(t *testing.T) {
	handler := newView(t).Dir()

	cases := map[string]string{
		"/":               "<html><body>home</body></html>",
		"/docs/":          "docs home",
		"/hello?name=Ada": "Hello Ada",
	}
	for target, want := range cases {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		if rec.Code != http.StatusOK || rec.Body.String() != want {
			t.Fatalf("%s: got %d %q", target, rec.Code, rec.Body.String())
		}
	}
}

func TestDir_Errors(t *testing.T) {
	handler := newView(t).Dir()

	cases := map[string]int{
		"/missing": http.StatusNotFound,
		"/broken":  http.StatusInternalServerError,
	}
	for target, want := range cases {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		if rec.Code != want {
			t.Fatalf("%s: want %d, got %d", target, want, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestRender_NotModified(t *testing.T) {
	handler := newView(t).Dir()

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
	tag := first.Header().Get("ETag")
	if tag == "" {
		t.Fatalf("expected etag")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("If-None-Match", tag)
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, req)
	if second.Code != http.StatusNotModified || second.Body.Len() != 0 {
		t.Fatalf("expected 304 with empty body, got %d %q", second.Code, second.Body.String())
	}
}

func TestRender_HeadHasNoBody(t *testing.T) {
	rec := httptest.NewRecorder()
	newView(t).Dir().ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/", nil))
	if rec.Code != http.StatusOK || rec.Body.Len() != 0 {
		t.Fatalf("unexpected HEAD response %d %q", rec.Code, rec.Body.String())
	}
}

func TestWithInjection(t *testing.T) {
	view := newView(t, httpview.WithInjection("<!--lr-->"))
	handler := view.Dir()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if body := rec.Body.String(); body != "<html><body>home<!--lr--></body></html>" {
		t.Fatalf("unexpected body %q", body)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/docs/", nil))
	if body := rec.Body.String(); !strings.HasSuffix(body, "<!--lr-->") {
		t.Fatalf("expected snippet appended, got %q", body)
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logging.GetRequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	})
	handler := httpview.RequestID(logging.Discard(), inner)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(httpview.RequestIDHeader, "abc")
	handler.ServeHTTP(rec, req)
	if seen != "abc" || rec.Header().Get(httpview.RequestIDHeader) != "abc" {
		t.Fatalf("expected propagated id, got %q / %q", seen, rec.Header().Get(httpview.RequestIDHeader))
	}
	if rec.Code != http.StatusTeapot {
		t.Fatalf("unexpected status %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if len(seen) != 36 || rec.Header().Get(httpview.RequestIDHeader) != seen {
		t.Fatalf("expected generated uuid, got %q", seen)
	}
}
