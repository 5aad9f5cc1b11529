package render

import "io"

// Writer writes template output and remembers the first write error. After
// an error every further call is a no-op, so generated code checks Err once
// at the end instead of after each write.
type Writer struct {
	w   io.Writer
	n   int64
	err error
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Literal writes template markup as is.
func (w *Writer) Literal(s string) {
	w.write(s)
}

// Escaped writes the HTML-escaped textual form of v.
func (w *Writer) Escaped(v any) {
	w.write(EscapeValue(v))
}

// Raw writes the textual form of v without escaping.
func (w *Writer) Raw(v any) {
	w.write(Stringify(v))
}

// Written returns the number of bytes written so far.
func (w *Writer) Written() int64 {
	return w.n
}

// Err returns the first error encountered while writing.
func (w *Writer) Err() error {
	return w.err
}

func (w *Writer) write(s string) {
	if w.err != nil || s == "" {
		return
	}
	n, err := io.WriteString(w.w, s)
	w.n += int64(n)
	w.err = err
}
