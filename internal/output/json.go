package output

import (
	"encoding/json"
	"fmt"
	"time"
)

type jsonReport struct {
	Session    string   `json:"session"`
	Template   string   `json:"template"`
	Start      string   `json:"start"`
	End        string   `json:"end"`
	Checked    int      `json:"checked"`
	Errors     int      `json:"errors"`
	DurationMs int64    `json:"duration_ms"`
	Found      []string `json:"found"`
}

// JSONWriter writes the found list and scan totals as one JSON object.
type JSONWriter struct {
	path string
}

func (j *JSONWriter) Write(found []string, stats Stats) error {
	w, closeFn, err := create(j.path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", j.path, err)
	}

	report := jsonReport{
		Session:    stats.SessionID,
		Template:   stats.Template,
		Start:      formatDate(stats.Start),
		End:        formatDate(stats.End),
		Checked:    stats.Completed,
		Errors:     stats.Errors,
		DurationMs: stats.Duration.Milliseconds(),
		Found:      found,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		_ = closeFn()
		return fmt.Errorf("encoding results: %w", err)
	}
	return closeFn()
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
