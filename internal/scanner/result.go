package scanner

import (
	"fmt"
	"time"
)

// Outcome is the classification of a single probe.
type Outcome int

const (
	Absent Outcome = iota
	Exists
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Exists:
		return "exists"
	case Absent:
		return "absent"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// ProbeResult holds the outcome of a single probe. Err is non-nil exactly
// when Outcome is Failed.
type ProbeResult struct {
	Target   string
	Outcome  Outcome
	Err      error
	Duration time.Duration
}

// Snapshot is the aggregate progress of a running scan.
type Snapshot struct {
	Completed int
	Total     int
	Found     int
	Errors    int
}

// TransportError reports a network-level failure while probing one URL
// (dial, DNS, TLS, timeout, body read). It is recovered locally and never
// retried.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("probing %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
