package scanner

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// DefaultProgressEvery is the number of completions between progress
// notifications.
const DefaultProgressEvery = 50

// State is the lifecycle state of a Session.
type State int

const (
	Idle State = iota
	Running
	Finished
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// Session is the aggregate state of one scan. It is written only by the
// coordinator's aggregation loop and must not be read concurrently until
// Run returns.
type Session struct {
	ID         string
	State      State
	Total      int
	Completed  int
	Found      int
	Errors     int
	FoundList  []string // completion order
	StartedAt  time.Time
	FinishedAt time.Time
}

// Snapshot returns the current counters.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{Completed: s.Completed, Total: s.Total, Found: s.Found, Errors: s.Errors}
}

// Duration returns the wall time of a finished session.
func (s *Session) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return time.Since(s.StartedAt)
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// Notifier receives scan events. Calls are made from the single
// aggregation goroutine, in completion order, so implementations need no
// locking of their own for state touched only here.
type Notifier interface {
	// Found is called for every target classified Exists.
	Found(r ProbeResult)
	// Failed is called for every target whose probe carried an error.
	Failed(r ProbeResult)
	// Completed is called for every result, after Found or Failed.
	Completed(r ProbeResult)
	// Progress is called every ProgressEvery completions.
	Progress(s Snapshot)
}

// NopNotifier ignores every event. Embed it to implement a subset of
// Notifier.
type NopNotifier struct{}

func (NopNotifier) Found(ProbeResult)     {}
func (NopNotifier) Failed(ProbeResult)    {}
func (NopNotifier) Completed(ProbeResult) {}
func (NopNotifier) Progress(Snapshot)     {}

// MultiNotifier forwards each event to every notifier in order.
type MultiNotifier []Notifier

func (m MultiNotifier) Found(r ProbeResult) {
	for _, n := range m {
		n.Found(r)
	}
}

func (m MultiNotifier) Failed(r ProbeResult) {
	for _, n := range m {
		n.Failed(r)
	}
}

func (m MultiNotifier) Completed(r ProbeResult) {
	for _, n := range m {
		n.Completed(r)
	}
}

func (m MultiNotifier) Progress(s Snapshot) {
	for _, n := range m {
		n.Progress(s)
	}
}

// Config holds coordinator options.
type Config struct {
	SessionID     string // "" = random uuid per Run
	Concurrency   int
	ProgressEvery int // 0 = DefaultProgressEvery
	Limiter       *Limiter
	Pauser        *Pauser
	Logger        *slog.Logger
}

// Coordinator dispatches targets to a Classifier under a concurrency limit
// and aggregates the results into a Session.
type Coordinator struct {
	classifier Classifier
	cfg        Config
	notifier   Notifier
	logger     *slog.Logger
}

// NewCoordinator creates a Coordinator. A nil notifier discards events.
func NewCoordinator(c Classifier, cfg Config, n Notifier) *Coordinator {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.ProgressEvery <= 0 {
		cfg.ProgressEvery = DefaultProgressEvery
	}
	if n == nil {
		n = NopNotifier{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{classifier: c, cfg: cfg, notifier: n, logger: logger}
}

// Run probes every target and returns the finished session. It returns
// only after each target has produced exactly one result; a failed probe
// is recorded and never aborts the scan.
func (c *Coordinator) Run(ctx context.Context, targets []string) *Session {
	id := c.cfg.SessionID
	if id == "" {
		id = uuid.NewString()
	}
	s := &Session{
		ID:        id,
		State:     Idle,
		Total:     len(targets),
		FoundList: []string{},
	}

	s.State = Running
	s.StartedAt = time.Now()
	c.logger.Debug("scan started", "session", s.ID, "targets", s.Total, "concurrency", c.cfg.Concurrency)

	if len(targets) > 0 {
		results := RunWorkerPool(ctx, c.classifier, targets, WorkerConfig{
			Threads: c.cfg.Concurrency,
			Limiter: c.cfg.Limiter,
			Pauser:  c.cfg.Pauser,
			Logger:  c.logger,
		})
		for r := range results {
			c.collect(s, r)
		}
	}

	s.State = Finished
	s.FinishedAt = time.Now()
	c.logger.Debug("scan finished", "session", s.ID,
		"completed", s.Completed, "found", s.Found, "errors", s.Errors,
		"duration", s.Duration())
	return s
}

// collect is the single aggregation point for results.
func (c *Coordinator) collect(s *Session, r ProbeResult) {
	s.Completed++

	switch r.Outcome {
	case Exists:
		s.Found++
		s.FoundList = append(s.FoundList, r.Target)
		c.notifier.Found(r)
	case Failed:
		s.Errors++
		c.notifier.Failed(r)
	}
	c.notifier.Completed(r)

	if s.Completed%c.cfg.ProgressEvery == 0 {
		c.notifier.Progress(s.Snapshot())
	}
}
