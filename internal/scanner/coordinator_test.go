package scanner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeClassifier answers from a fixed table. Unknown targets are absent.
type fakeClassifier struct {
	outcomes map[string]Outcome
	errs     map[string]error
	delay    time.Duration

	mu    sync.Mutex
	calls map[string]int

	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (f *fakeClassifier) Classify(ctx context.Context, url string) (Outcome, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxSeen.Load()
		if n <= m || f.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}

	f.mu.Lock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[url]++
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if err := f.errs[url]; err != nil {
		return Absent, err
	}
	return f.outcomes[url], nil
}

// recorder captures notifications. Calls come from one goroutine.
type recorder struct {
	found     []string
	failed    []string
	completed int
	progress  []Snapshot
}

func (r *recorder) Found(res ProbeResult)     { r.found = append(r.found, res.Target) }
func (r *recorder) Failed(res ProbeResult)    { r.failed = append(r.failed, res.Target) }
func (r *recorder) Completed(res ProbeResult) { r.completed++ }
func (r *recorder) Progress(s Snapshot)       { r.progress = append(r.progress, s) }

func sorted(s []string) []string {
	out := append([]string(nil), s...)
	sort.Strings(out)
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestCoordinatorMixedOutcomes(t *testing.T) {
	c := &fakeClassifier{
		outcomes: map[string]Outcome{"A": Exists, "C": Exists},
		errs:     map[string]error{"D": &TransportError{URL: "D", Err: errors.New("connection refused")}},
	}
	rec := &recorder{}
	coord := NewCoordinator(c, Config{Concurrency: 2, Logger: testLogger()}, rec)

	s := coord.Run(context.Background(), []string{"A", "B", "C", "D"})

	if s.State != Finished {
		t.Errorf("state = %s, want finished", s.State)
	}
	if s.Total != 4 || s.Completed != 4 {
		t.Errorf("completed %d/%d, want 4/4", s.Completed, s.Total)
	}
	if s.Found != 2 || s.Errors != 1 {
		t.Errorf("found=%d errors=%d, want 2 and 1", s.Found, s.Errors)
	}
	if got := sorted(s.FoundList); !equalStrings(got, []string{"A", "C"}) {
		t.Errorf("FoundList = %v, want [A C]", got)
	}
	if !equalStrings(sorted(rec.found), []string{"A", "C"}) {
		t.Errorf("Found notifications = %v", rec.found)
	}
	if !equalStrings(rec.failed, []string{"D"}) {
		t.Errorf("Failed notifications = %v, want [D]", rec.failed)
	}
	if rec.completed != 4 {
		t.Errorf("Completed notifications = %d, want 4", rec.completed)
	}
	if s.ID == "" {
		t.Error("session has no id")
	}
	if s.FinishedAt.Before(s.StartedAt) {
		t.Error("FinishedAt before StartedAt")
	}
}

func TestCoordinatorEmptyInput(t *testing.T) {
	c := &fakeClassifier{}
	rec := &recorder{}
	s := NewCoordinator(c, Config{Concurrency: 4, Logger: testLogger()}, rec).Run(context.Background(), nil)

	if s.State != Finished {
		t.Errorf("state = %s, want finished", s.State)
	}
	if s.Total != 0 || s.Completed != 0 || s.Found != 0 || s.Errors != 0 {
		t.Errorf("unexpected counters: %+v", s.Snapshot())
	}
	if s.FoundList == nil || len(s.FoundList) != 0 {
		t.Errorf("FoundList = %#v, want empty non-nil", s.FoundList)
	}
	if rec.completed != 0 || len(rec.progress) != 0 || len(rec.found) != 0 {
		t.Error("notifications sent for empty input")
	}
	if len(c.calls) != 0 {
		t.Error("classifier called for empty input")
	}
}

func TestCoordinatorDuplicateTargets(t *testing.T) {
	c := &fakeClassifier{outcomes: map[string]Outcome{"X": Exists}}
	s := NewCoordinator(c, Config{Concurrency: 3, Logger: testLogger()}, nil).
		Run(context.Background(), []string{"X", "Y", "X", "X"})

	if s.Completed != 4 {
		t.Errorf("completed = %d, want 4", s.Completed)
	}
	if s.Found != 3 || len(s.FoundList) != 3 {
		t.Errorf("found = %d (%v), want each duplicate counted", s.Found, s.FoundList)
	}
	if c.calls["X"] != 3 {
		t.Errorf("X probed %d times, want 3", c.calls["X"])
	}
}

func TestCoordinatorConcurrencyBound(t *testing.T) {
	targets := make([]string, 40)
	for i := range targets {
		targets[i] = fmt.Sprintf("t%d", i)
	}

	for _, limit := range []int{1, 3, 8} {
		t.Run(fmt.Sprintf("limit=%d", limit), func(t *testing.T) {
			c := &fakeClassifier{delay: 5 * time.Millisecond}
			s := NewCoordinator(c, Config{Concurrency: limit, Logger: testLogger()}, nil).
				Run(context.Background(), targets)

			if s.Completed != len(targets) {
				t.Fatalf("completed = %d, want %d", s.Completed, len(targets))
			}
			if got := int(c.maxSeen.Load()); got > limit {
				t.Errorf("observed %d concurrent probes, limit %d", got, limit)
			}
		})
	}
}

func TestCoordinatorZeroConcurrency(t *testing.T) {
	c := &fakeClassifier{}
	s := NewCoordinator(c, Config{Concurrency: 0, Logger: testLogger()}, nil).
		Run(context.Background(), []string{"a", "b"})
	if s.Completed != 2 {
		t.Errorf("completed = %d, want 2", s.Completed)
	}
	if got := c.maxSeen.Load(); got != 1 {
		t.Errorf("max concurrency = %d, want 1", got)
	}
}

func TestCoordinatorErrorsDoNotStopScan(t *testing.T) {
	targets := make([]string, 20)
	errs := make(map[string]error)
	for i := range targets {
		targets[i] = fmt.Sprintf("t%d", i)
		if i%2 == 0 {
			errs[targets[i]] = errors.New("timeout")
		}
	}
	c := &fakeClassifier{errs: errs, outcomes: map[string]Outcome{"t1": Exists}}
	s := NewCoordinator(c, Config{Concurrency: 4, Logger: testLogger()}, nil).
		Run(context.Background(), targets)

	if s.Completed != 20 || s.Errors != 10 {
		t.Errorf("completed=%d errors=%d, want 20 and 10", s.Completed, s.Errors)
	}
	if !equalStrings(s.FoundList, []string{"t1"}) {
		t.Errorf("FoundList = %v, want [t1]", s.FoundList)
	}
}

func TestCoordinatorIdempotentMembership(t *testing.T) {
	outcomes := map[string]Outcome{}
	targets := make([]string, 30)
	for i := range targets {
		targets[i] = fmt.Sprintf("t%d", i)
		if i%3 == 0 {
			outcomes[targets[i]] = Exists
		}
	}

	var first []string
	for run := 0; run < 3; run++ {
		c := &fakeClassifier{outcomes: outcomes}
		s := NewCoordinator(c, Config{Concurrency: 5, Logger: testLogger()}, nil).
			Run(context.Background(), targets)
		got := sorted(s.FoundList)
		if run == 0 {
			first = got
			continue
		}
		if !equalStrings(first, got) {
			t.Fatalf("run %d found %v, first run found %v", run, got, first)
		}
	}
	if len(first) != 10 {
		t.Errorf("found %d, want 10", len(first))
	}
}

func TestCoordinatorProgressCadence(t *testing.T) {
	targets := make([]string, 120)
	for i := range targets {
		targets[i] = fmt.Sprintf("t%d", i)
	}
	rec := &recorder{}
	NewCoordinator(&fakeClassifier{}, Config{Concurrency: 8, Logger: testLogger()}, rec).
		Run(context.Background(), targets)

	if len(rec.progress) != 2 {
		t.Fatalf("progress notifications = %d, want 2", len(rec.progress))
	}
	for i, p := range rec.progress {
		want := (i + 1) * DefaultProgressEvery
		if p.Completed != want || p.Total != 120 {
			t.Errorf("progress[%d] = %+v, want %d/120", i, p, want)
		}
	}

	rec = &recorder{}
	NewCoordinator(&fakeClassifier{}, Config{Concurrency: 2, ProgressEvery: 10, Logger: testLogger()}, rec).
		Run(context.Background(), targets[:35])
	if len(rec.progress) != 3 {
		t.Errorf("progress notifications = %d, want 3", len(rec.progress))
	}
}

type panicClassifier struct{}

func (panicClassifier) Classify(ctx context.Context, url string) (Outcome, error) {
	if url == "boom" {
		panic("classifier bug")
	}
	return Exists, nil
}

func TestCoordinatorRecoversPanic(t *testing.T) {
	rec := &recorder{}
	s := NewCoordinator(panicClassifier{}, Config{Concurrency: 2, Logger: testLogger()}, rec).
		Run(context.Background(), []string{"ok1", "boom", "ok2"})

	if s.Completed != 3 || s.Errors != 1 || s.Found != 2 {
		t.Errorf("completed=%d errors=%d found=%d, want 3, 1, 2", s.Completed, s.Errors, s.Found)
	}
	if !equalStrings(rec.failed, []string{"boom"}) {
		t.Errorf("failed = %v, want [boom]", rec.failed)
	}
}

// ctxClassifier blocks until ctx is done, like a hung server.
type ctxClassifier struct{ started chan struct{} }

func (c *ctxClassifier) Classify(ctx context.Context, url string) (Outcome, error) {
	select {
	case c.started <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return Absent, &TransportError{URL: url, Err: ctx.Err()}
}

func TestCoordinatorCancelCompletesAllTargets(t *testing.T) {
	targets := make([]string, 50)
	for i := range targets {
		targets[i] = fmt.Sprintf("t%d", i)
	}
	c := &ctxClassifier{started: make(chan struct{}, 1)}
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		<-c.started
		cancel()
	}()

	done := make(chan *Session)
	go func() {
		done <- NewCoordinator(c, Config{Concurrency: 4, Logger: testLogger()}, nil).Run(ctx, targets)
	}()

	select {
	case s := <-done:
		if s.Completed != len(targets) {
			t.Errorf("completed = %d, want %d", s.Completed, len(targets))
		}
		if s.Errors != len(targets) {
			t.Errorf("errors = %d, want %d", s.Errors, len(targets))
		}
		if s.State != Finished {
			t.Errorf("state = %s, want finished", s.State)
		}
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("Run did not return after cancellation")
	}
}

func TestCoordinatorSessionID(t *testing.T) {
	s := NewCoordinator(&fakeClassifier{}, Config{SessionID: "fixed", Logger: testLogger()}, nil).
		Run(context.Background(), []string{"a"})
	if s.ID != "fixed" {
		t.Errorf("ID = %q, want fixed", s.ID)
	}
}

func TestCoordinatorLimiter(t *testing.T) {
	targets := []string{"a", "b", "c", "d", "e", "f", "g"}
	lim := NewLimiter(5)

	start := time.Now()
	s := NewCoordinator(&fakeClassifier{}, Config{Concurrency: 7, Limiter: lim, Logger: testLogger()}, nil).
		Run(context.Background(), targets)
	elapsed := time.Since(start)

	if s.Completed != len(targets) {
		t.Fatalf("completed = %d", s.Completed)
	}
	// burst of 5, then two more tokens at 200ms each
	if elapsed < 300*time.Millisecond {
		t.Errorf("seven probes at 5/s took %s, want >= 300ms", elapsed)
	}
}

func TestNewLimiterDisabled(t *testing.T) {
	for _, r := range []float64{0, -1} {
		if l := NewLimiter(r); l != nil {
			t.Errorf("NewLimiter(%v) = %v, want nil", r, l)
		}
	}
	var l *Limiter
	if err := l.Wait(context.Background()); err != nil {
		t.Errorf("nil limiter Wait: %v", err)
	}
}

func TestLimiterCancelledFailsProbe(t *testing.T) {
	lim := NewLimiter(0.001)
	// drain the single token
	_ = lim.Wait(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewCoordinator(&fakeClassifier{}, Config{Concurrency: 1, Limiter: lim, Logger: testLogger()}, nil).
		Run(ctx, []string{"a", "b"})
	if s.Completed != 2 || s.Errors != 2 {
		t.Errorf("completed=%d errors=%d, want 2 and 2", s.Completed, s.Errors)
	}
}

func TestMultiNotifierFanOut(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	m := MultiNotifier{a, b, NopNotifier{}}
	m.Found(ProbeResult{Target: "x"})
	m.Failed(ProbeResult{Target: "y"})
	m.Completed(ProbeResult{})
	m.Progress(Snapshot{Completed: 1})

	for _, r := range []*recorder{a, b} {
		if len(r.found) != 1 || len(r.failed) != 1 || r.completed != 1 || len(r.progress) != 1 {
			t.Errorf("notifier missed events: %+v", r)
		}
	}
}

func TestOutcomeString(t *testing.T) {
	tests := map[Outcome]string{Absent: "absent", Exists: "exists", Failed: "failed", Outcome(9): "outcome(9)"}
	for o, want := range tests {
		if got := o.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(o), got, want)
		}
	}
}

func TestCoordinatorRunTwice(t *testing.T) {
	coord := NewCoordinator(&fakeClassifier{outcomes: map[string]Outcome{"a": Exists}}, Config{Concurrency: 2, Logger: testLogger()}, nil)
	first := coord.Run(context.Background(), []string{"a", "b"})
	second := coord.Run(context.Background(), []string{"a"})

	if first == second || first.ID == second.ID {
		t.Fatal("runs share a session")
	}
	if first.Completed != 2 || second.Completed != 1 {
		t.Errorf("completed = %d and %d, want 2 and 1", first.Completed, second.Completed)
	}
	if len(first.FoundList) != 1 || len(second.FoundList) != 1 {
		t.Errorf("found lists = %v and %v", first.FoundList, second.FoundList)
	}
}

func TestCoordinatorPausedAfterCancel(t *testing.T) {
	p := NewPauser()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.Resume()
	p.Toggle() // paused again after the interrupt, e.g. a stray Enter

	c := &fakeClassifier{}
	done := make(chan *Session, 1)
	go func() {
		done <- NewCoordinator(c, Config{Concurrency: 2, Pauser: p, Logger: testLogger()}, nil).
			Run(ctx, []string{"a", "b", "c"})
	}()

	select {
	case s := <-done:
		if s.Completed != 3 || s.Errors != 3 {
			t.Errorf("completed=%d errors=%d, want 3 and 3", s.Completed, s.Errors)
		}
		if len(c.calls) != 0 {
			t.Errorf("classifier called after cancel: %v", c.calls)
		}
	case <-time.After(2 * time.Second):
		p.Resume()
		t.Fatal("Run blocked on a paused gate after cancel")
	}
}
