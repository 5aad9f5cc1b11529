package render

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func TestEscape(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"plain", "hello world", "hello world"},
		{"ampersand", "a & b", "a &amp; b"},
		{"tags", "<b>", "&lt;b&gt;"},
		{"double quote", `say "hi"`, "say &quot;hi&quot;"},
		{"single quote", "it's", "it&#39;s"},
		{"slash", "</script>", "&lt;&#x2F;script&gt;"},
		{"existing entity is escaped again", "&amp;", "&amp;amp;"},
		{"unicode untouched", "héllo ✓", "héllo ✓"},
		{"all specials", `&<>"'/`, "&amp;&lt;&gt;&quot;&#39;&#x2F;"},
		{"invalid utf8 kept", "a\xffb", "a\xffb"},
		{"invalid utf8 kept next to special", "a\xffb<", "a\xffb&lt;"},
		{"truncated rune before special", "\xe2\x9c<\xe2\x9c\x93", "\xe2\x9c&lt;\xe2\x9c\x93"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Escape(tc.input))
		})
	}
}

func TestEscapeIsNotIdempotent(t *testing.T) {
	once := Escape("<b>")
	twice := Escape(once)
	assert.NotEqual(t, once, twice)
	assert.Equal(t, "&amp;lt;b&amp;gt;", twice)
}

type stringer struct{ s string }

func (s stringer) String() string { return s.s }

func TestEscapeValue(t *testing.T) {
	assert.Equal(t, "42", EscapeValue(42))
	assert.Equal(t, "3.5", EscapeValue(3.5))
	assert.Equal(t, "true", EscapeValue(true))
	assert.Equal(t, "", EscapeValue(nil))
	assert.Equal(t, "&lt;i&gt;", EscapeValue([]byte("<i>")))
	assert.Equal(t, "a&#x2F;b", EscapeValue(stringer{"a/b"}))
	assert.Equal(t, "1s", EscapeValue(time.Second))
}

func TestEscapeTo(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EscapeTo(&buf, "x<y"))
	assert.Equal(t, "x&lt;y", buf.String())
}

// The escaped form must come back out of an HTML tokenizer as a single text
// token holding the original value.
func TestEscapedOutputStaysText(t *testing.T) {
	inputs := []string{
		"<script>alert('x')</script>",
		`"><img src=x onerror=alert(1)>`,
		"a & b < c",
		"</p><p>",
		"plain",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			doc := "<p>" + Escape(input) + "</p>"
			z := html.NewTokenizer(strings.NewReader(doc))

			require.Equal(t, html.StartTagToken, z.Next())
			require.Equal(t, html.TextToken, z.Next())
			assert.Equal(t, input, z.Token().Data)
			require.Equal(t, html.EndTagToken, z.Next())
			assert.Equal(t, html.ErrorToken, z.Next())
		})
	}
}

type failingWriter struct {
	writes int
}

func (f *failingWriter) Write(p []byte) (int, error) {
	f.writes++
	return 0, errors.New("disk full")
}

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	w.Literal("<p>")
	w.Escaped("<b>")
	w.Raw("<i>")
	w.Escaped(7)
	w.Literal("</p>")

	require.NoError(t, w.Err())
	assert.Equal(t, "<p>&lt;b&gt;<i>7</p>", buf.String())
	assert.Equal(t, int64(buf.Len()), w.Written())
}

func TestWriterStickyError(t *testing.T) {
	fw := &failingWriter{}
	w := NewWriter(fw)

	w.Literal("a")
	w.Literal("b")
	w.Escaped("c")

	require.Error(t, w.Err())
	assert.Equal(t, 1, fw.writes)
}

func TestWriterSkipsEmptyWrites(t *testing.T) {
	fw := &failingWriter{}
	w := NewWriter(fw)

	w.Literal("")
	w.Raw(nil)

	assert.NoError(t, w.Err())
	assert.Zero(t, fw.writes)
}

func TestSizeHint(t *testing.T) {
	testCases := []struct {
		textSize int
		expected int
	}{
		{-5, 32},
		{0, 32},
		{100, 132},
		{320, 352},
		{1000, 1100},
		{5120, 5632},
		{10000, 10512},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, SizeHint(tc.textSize), "text size %d", tc.textSize)
	}
}
