// Package render is the runtime support imported by generated template code.
//
// Generated Render methods wrap their destination in a Writer and call
// Literal for markup, Escaped for expressions that must be HTML-safe and Raw
// for author-trusted values.
package render

import (
	"fmt"
	"io"
	"strings"
)

// Escape replaces the HTML-significant characters of s with entities:
//
//	&  &amp;
//	<  &lt;
//	>  &gt;
//	"  &quot;
//	'  &#39;
//	/  &#x2F;
//
// Every other byte is copied unchanged, including bytes that are not valid
// UTF-8. Each byte of the input is looked at exactly once, so entities
// produced here are never escaped again.
func Escape(s string) string {
	if !strings.ContainsAny(s, `&<>"'/`) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + len(s)/4)
	last := 0
	for i := 0; i < len(s); i++ {
		entity, ok := entityFor(s[i])
		if !ok {
			continue
		}
		b.WriteString(s[last:i])
		b.WriteString(entity)
		last = i + 1
	}
	b.WriteString(s[last:])
	return b.String()
}

// EscapeValue stringifies v and escapes the result.
func EscapeValue(v any) string {
	return Escape(Stringify(v))
}

// EscapeTo writes the escaped form of s to w.
func EscapeTo(w io.Writer, s string) error {
	_, err := io.WriteString(w, Escape(s))
	return err
}

// Stringify returns the textual form of a dynamic value the way the
// generated code writes it.
func Stringify(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func entityFor(c byte) (string, bool) {
	switch c {
	case '&':
		return "&amp;", true
	case '<':
		return "&lt;", true
	case '>':
		return "&gt;", true
	case '"':
		return "&quot;", true
	case '\'':
		return "&#39;", true
	case '/':
		return "&#x2F;", true
	}
	return "", false
}
