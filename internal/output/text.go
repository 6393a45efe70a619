package output

import (
	"fmt"
	"io"
	"strings"
)

// TextWriter writes the found URLs joined by newlines, with no trailing
// newline.
type TextWriter struct {
	path string
}

func (t *TextWriter) Write(found []string, _ Stats) error {
	w, closeFn, err := create(t.path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", t.path, err)
	}
	if _, err := io.WriteString(w, strings.Join(found, "\n")); err != nil {
		_ = closeFn()
		return fmt.Errorf("writing results: %w", err)
	}
	return closeFn()
}
