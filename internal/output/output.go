package output

import (
	"fmt"
	"io"
	"os"
	"time"
)

// Stats holds aggregate scan statistics.
type Stats struct {
	SessionID      string
	Template       string
	Start          time.Time
	End            time.Time
	Total          int
	Completed      int
	Found          int
	Errors         int
	Skipped        int // completed by a previous run (resume)
	Duration       time.Duration
	Paused         time.Duration
	RequestsPerSec float64
	Interrupted    bool
}

// Writer persists the found list in one format.
type Writer interface {
	Write(found []string, stats Stats) error
}

// NewWriter returns the writer for format. An empty path writes to stdout
// (not supported for xlsx).
func NewWriter(format, path string) (Writer, error) {
	switch format {
	case "", "text":
		return &TextWriter{path: path}, nil
	case "json":
		return &JSONWriter{path: path}, nil
	case "csv":
		return &CSVWriter{path: path}, nil
	case "xlsx":
		if path == "" {
			return nil, fmt.Errorf("xlsx output requires an output file")
		}
		return &XLSXWriter{path: path}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// create opens path for writing, or stdout when path is empty. The
// returned close function is always safe to call.
func create(path string) (io.Writer, func() error, error) {
	if path == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}
