// Package html builds lazily rendered HTML fragments from literal text and
// interpolated values.
//
// A TemplateResult pairs N+1 literal fragments with N values. Literals are
// written verbatim. Plain string values have every "<" and ">" replaced with
// "&lt;" and "&gt;". Nested results are rendered and written unescaped, which
// keeps composition free of double escaping:
//
//	inner := html.HTML([]string{"<b>", "</b>"}, "<c>")
//	outer := html.HTML([]string{"<a>", "</a>"}, inner)
//	out, _ := outer.Render(ctx) // <a><b>&lt;c&gt;</b></a>
//
// Unsafe wraps a raw string so it bypasses escaping. Callers that accept user
// markup should run it through a sanitizer first (see package sanitize) and
// only then wrap it.
//
// Escaping is a blanket "<"/">" replacement. It is not context aware and does
// not protect attribute values, URLs or script bodies.
package html
