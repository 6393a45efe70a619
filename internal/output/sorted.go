package output

import "sort"

// SortedWriter sorts a copy of the found list before handing it to the
// wrapped writer. Completion order is otherwise preserved.
type SortedWriter struct {
	inner Writer
}

// NewSortedWriter wraps inner.
func NewSortedWriter(inner Writer) *SortedWriter {
	return &SortedWriter{inner: inner}
}

func (w *SortedWriter) Write(found []string, stats Stats) error {
	sorted := make([]string, len(found))
	copy(sorted, found)
	sort.Strings(sorted)
	return w.inner.Write(sorted, stats)
}
