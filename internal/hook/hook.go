// Package hook runs a user-supplied shell command for every found target.
package hook

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/maxvaer/dateprobe/internal/scanner"
)

const (
	defaultTimeout = 30 * time.Second
	queueSize      = 64
)

// payload is the JSON document sent to the hook command via stdin.
type payload struct {
	Session string `json:"session"`
	URL     string `json:"url"`
	FoundAt string `json:"found_at"`
	Elapsed int64  `json:"elapsed_ms"`
}

// Runner executes a shell command for each found target. Commands run one
// at a time on a background goroutine; Found only blocks once queueSize
// commands are pending. It implements scanner.Notifier.
type Runner struct {
	scanner.NopNotifier

	cmd     string
	session string
	timeout time.Duration
	logger  *slog.Logger

	queue chan payload
	wg    sync.WaitGroup
	once  sync.Once
}

// NewRunner creates and starts a hook runner. Call Close to wait for
// queued commands.
func NewRunner(cmd, session string, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{
		cmd:     cmd,
		session: session,
		timeout: defaultTimeout,
		logger:  logger,
		queue:   make(chan payload, queueSize),
	}
	r.wg.Add(1)
	go r.loop()
	return r
}

// Found queues the hook for a found target.
func (r *Runner) Found(res scanner.ProbeResult) {
	r.queue <- payload{
		Session: r.session,
		URL:     res.Target,
		FoundAt: time.Now().UTC().Format(time.RFC3339),
		Elapsed: res.Duration.Milliseconds(),
	}
}

// Close waits for all queued commands to finish. Safe to call more than
// once.
func (r *Runner) Close() {
	r.once.Do(func() { close(r.queue) })
	r.wg.Wait()
}

func (r *Runner) loop() {
	defer r.wg.Done()
	for p := range r.queue {
		r.run(p)
	}
}

// run executes the hook command with p as JSON on stdin. Errors are logged
// and never halt the scan.
func (r *Runner) run(p payload) {
	data, err := json.Marshal(p)
	if err != nil {
		r.logger.Warn("hook payload marshal failed", "url", p.URL, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	shell, args := shellCommand()
	cmd := exec.CommandContext(ctx, shell, append(args, Expand(r.cmd, p.URL, r.session))...)
	cmd.Stdin = bytes.NewReader(data)
	// grandchildren may hold the output pipes open after a timeout kill
	cmd.WaitDelay = time.Second

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		r.logger.Warn("hook failed", "url", p.URL, "error", err, "stderr", strings.TrimSpace(stderr.String()))
		return
	}
	if len(out) > 0 {
		r.logger.Info("hook output", "url", p.URL, "output", strings.TrimSpace(string(out)))
	}
}

// Expand replaces the {url} and {session} placeholders in cmd.
func Expand(cmd, url, session string) string {
	return strings.NewReplacer("{url}", url, "{session}", session).Replace(cmd)
}

func shellCommand() (string, []string) {
	if runtime.GOOS == "windows" {
		return "cmd", []string{"/C"}
	}
	return "sh", []string{"-c"}
}
