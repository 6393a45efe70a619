package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
)

// WorkerConfig holds options for the worker pool.
type WorkerConfig struct {
	Threads int
	Limiter *Limiter // nil = unpaced
	Pauser  *Pauser  // nil = no pause support
	Logger  *slog.Logger
}

// RunWorkerPool fans targets out across cfg.Threads workers and returns a
// channel carrying exactly one result per target. The channel is closed
// once every target has been processed. Cancelling ctx does not drop
// targets: the remaining ones complete as Failed.
//
// The caller must drain the returned channel.
func RunWorkerPool(ctx context.Context, c Classifier, targets []string, cfg WorkerConfig) <-chan ProbeResult {
	threads := cfg.Threads
	if threads < 1 {
		threads = 1
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	targetsCh := make(chan string, threads*2)
	resultsCh := make(chan ProbeResult, threads*2)

	var wg sync.WaitGroup

	// Producer: feed every target, even after cancellation.
	go func() {
		defer close(targetsCh)
		for _, t := range targets {
			targetsCh <- t
		}
	}()

	for i := 0; i < threads; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for target := range targetsCh {
				cfg.Pauser.Wait(ctx)
				resultsCh <- probe(ctx, c, target, cfg.Limiter, logger)
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultsCh)
	}()

	return resultsCh
}

// probe runs one classification and converts it into a ProbeResult. A
// classifier panic is recovered and reported as Failed.
func probe(ctx context.Context, c Classifier, target string, limiter *Limiter, logger *slog.Logger) (res ProbeResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			logger.Error("classifier panic",
				"correlation_id", correlationID,
				"url", target,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			res = ProbeResult{
				Target:   target,
				Outcome:  Failed,
				Err:      fmt.Errorf("classifier panic (correlation_id: %s)", correlationID),
				Duration: time.Since(start),
			}
		}
	}()

	if err := limiter.Wait(ctx); err != nil {
		return ProbeResult{
			Target:   target,
			Outcome:  Failed,
			Err:      &TransportError{URL: target, Err: err},
			Duration: time.Since(start),
		}
	}

	// cancelled scans finish their remaining targets without touching the network
	if err := ctx.Err(); err != nil {
		return ProbeResult{
			Target:   target,
			Outcome:  Failed,
			Err:      &TransportError{URL: target, Err: err},
			Duration: time.Since(start),
		}
	}

	outcome, err := c.Classify(ctx, target)
	if err != nil {
		logger.Debug("probe failed", "url", target, "error", err)
		return ProbeResult{Target: target, Outcome: Failed, Err: err, Duration: time.Since(start)}
	}
	// Failed is reserved for results that carry an error.
	if outcome == Failed {
		outcome = Absent
	}
	return ProbeResult{Target: target, Outcome: outcome, Duration: time.Since(start)}
}
