package runner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/maxvaer/dateprobe/internal/config"
	"github.com/maxvaer/dateprobe/internal/dates"
	"github.com/maxvaer/dateprobe/internal/hook"
	"github.com/maxvaer/dateprobe/internal/output"
	"github.com/maxvaer/dateprobe/internal/resume"
	"github.com/maxvaer/dateprobe/internal/scanner"
	"github.com/maxvaer/dateprobe/internal/store"
)

// Run executes the full scan pipeline against stdout and stderr.
func Run(ctx context.Context, opts *config.Options) error {
	return RunWithIO(ctx, opts, os.Stdout, os.Stderr)
}

// RunWithIO executes the full scan pipeline: build targets, probe them,
// report, and persist the found list. Only an invalid configuration or a
// failure to write the result file is returned as an error; per-target and
// ancillary failures are reported and the scan completes.
func RunWithIO(ctx context.Context, opts *config.Options, stdout, stderr io.Writer) error {
	if err := opts.Validate(); err != nil {
		return err
	}

	logger := newLogger(stderr, opts.Verbose)
	console := output.NewConsole(stdout, stderr, opts.NoColor, opts.Quiet)
	sessionID := uuid.NewString()
	startStr := opts.Start.Format(dates.Layout)
	endStr := opts.End.Format(dates.Layout)

	// 1. Build targets.
	targets := dates.Targets(opts.Template, opts.Start, opts.End)
	total := len(targets)

	// 2. Resume support.
	var (
		resumeState   *resume.State
		previousFound []string
	)
	if opts.ResumeFile != "" {
		existing, err := resume.Load(opts.ResumeFile)
		if err != nil {
			console.Warn("Ignoring resume file: %v", err)
		}
		if existing != nil && existing.Matches(opts.Template, startStr, endStr) {
			resumeState = existing
			previousFound = resumeState.Found()
			targets = resumeState.FilterRemaining(targets)
			console.Info("Resuming: skipping %d already completed dates", total-len(targets))
		} else {
			resumeState = resume.New(opts.ResumeFile, sessionID, opts.Template, startStr, endStr)
		}
		resumeState.Session = sessionID
	}
	skipped := total - len(targets)

	// 3. Create the classifier.
	classifier, err := scanner.NewHTTPClassifier(opts)
	if err != nil {
		return fmt.Errorf("creating classifier: %w", err)
	}
	defer classifier.Close()

	// 4. Optional collaborators. None of them can stop the scan.
	notifiers := scanner.MultiNotifier{console}
	if resumeState != nil {
		notifiers = append(notifiers, &resumeTracker{state: resumeState})
	}

	var history *store.Store
	if opts.DBPath != "" {
		history, err = store.Open(opts.DBPath, logger)
		if err != nil {
			console.Warn("History disabled: %v", err)
		} else {
			defer history.Close()
			err = history.BeginSession(ctx, store.Session{
				ID:        sessionID,
				Template:  opts.Template,
				StartDate: startStr,
				EndDate:   endStr,
				Total:     len(targets),
			})
			if err != nil {
				console.Warn("History disabled: %v", err)
				history = nil
			} else {
				notifiers = append(notifiers, history.NewRecorder(sessionID))
			}
		}
	}

	var hookRunner *hook.Runner
	if opts.OnFoundCmd != "" {
		hookRunner = hook.NewRunner(opts.OnFoundCmd, sessionID, logger)
		notifiers = append(notifiers, hookRunner)
	}

	// 5. Banner and pause toggle.
	console.Banner(len(targets), opts.Start, opts.End, opts.Template, opts.Threads)
	pauser, restoreTerm := startStdinToggle(console)
	console.TrackPause(pauser)
	defer restoreTerm()

	// An interrupt does not stop the scan: in-flight and queued probes fail
	// fast with the context error and are accounted for like any other.
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			console.Interrupt()
			pauser.Resume()
		case <-done:
		}
	}()

	// 6. Scan.
	coord := scanner.NewCoordinator(classifier, scanner.Config{
		SessionID:   sessionID,
		Concurrency: opts.Threads,
		Limiter:     scanner.NewLimiter(opts.Rate),
		Pauser:      pauser,
		Logger:      logger,
	}, notifiers)
	session := coord.Run(ctx, targets)
	close(done)
	restoreTerm()

	if hookRunner != nil {
		hookRunner.Close()
	}

	found := make([]string, 0, len(previousFound)+len(session.FoundList))
	found = append(found, previousFound...)
	found = append(found, session.FoundList...)

	interrupted := ctx.Err() != nil
	stats := output.Stats{
		SessionID:   session.ID,
		Template:    opts.Template,
		Start:       opts.Start,
		End:         opts.End,
		Total:       total,
		Completed:   session.Completed,
		Found:       len(found),
		Errors:      session.Errors,
		Skipped:     skipped,
		Duration:    session.Duration(),
		Paused:      pauser.PausedDuration(),
		Interrupted: interrupted,
	}
	if secs := (stats.Duration - stats.Paused).Seconds(); secs > 0 {
		stats.RequestsPerSec = float64(session.Completed) / secs
	}

	// Finishing bookkeeping uses a fresh context: ctx may be cancelled.
	if history != nil {
		err := history.FinishSession(context.Background(), session.ID, session.Completed, session.Found, session.Errors)
		if err != nil {
			console.Warn("Could not finish history session: %v", err)
		}
	}

	if resumeState != nil {
		if interrupted || session.Errors > 0 {
			if err := resumeState.Save(); err != nil {
				console.Warn("Could not save resume state: %v", err)
			} else {
				console.Info("Progress saved to %s, resume with --resume-file", opts.ResumeFile)
			}
		} else if err := resumeState.Remove(); err != nil {
			console.Warn("Could not remove resume file: %v", err)
		}
	}

	// 7. Report and persist.
	console.Summary(stats)

	if len(found) == 0 {
		console.NoResults()
		return nil
	}

	w, err := output.NewWriter(opts.OutputFormat, opts.OutputFile)
	if err != nil {
		return err
	}
	if opts.SortResults {
		w = output.NewSortedWriter(w)
	}
	if err := w.Write(found, stats); err != nil {
		return fmt.Errorf("saving results: %w", err)
	}
	console.Saved(opts.OutputFile, found)
	return nil
}

// resumeTracker marks targets that completed without error.
type resumeTracker struct {
	scanner.NopNotifier
	state *resume.State
}

func (t *resumeTracker) Completed(r scanner.ProbeResult) {
	if r.Outcome == scanner.Failed {
		return
	}
	t.state.MarkCompleted(r.Target, r.Outcome == scanner.Exists)
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
