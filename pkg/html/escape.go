package html

import "strings"

var escaper = strings.NewReplacer("<", "&lt;", ">", "&gt;")

// Escape replaces every "<" with "&lt;" and every ">" with "&gt;". Nothing
// else is touched, "&" and quotes included.
func Escape(s string) string {
	if !strings.ContainsAny(s, "<>") {
		return s
	}
	return escaper.Replace(s)
}
