package output

import (
	"encoding/csv"
	"fmt"
)

// CSVWriter writes a "url" header followed by one row per found URL.
type CSVWriter struct {
	path string
}

func (c *CSVWriter) Write(found []string, _ Stats) error {
	w, closeFn, err := create(c.path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", c.path, err)
	}
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"url"})
	for _, u := range found {
		_ = cw.Write([]string{u})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		_ = closeFn()
		return fmt.Errorf("writing results: %w", err)
	}
	return closeFn()
}
