package output

import (
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/maxvaer/dateprobe/internal/scanner"
)

// ANSI color codes.
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorCyan   = "\033[36m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorDim    = "\033[2m"
)

// Console prints scan notifications for a human. Found lines go to out,
// everything else to errOut. It implements scanner.Notifier.
type Console struct {
	scanner.NopNotifier

	out     io.Writer
	errOut  io.Writer
	noColor bool
	quiet   bool
	start   time.Time
	pauser  *scanner.Pauser

	interrupted atomic.Bool
	suppressed  atomic.Int64
}

// NewConsole creates a console reporter.
func NewConsole(out, errOut io.Writer, noColor, quiet bool) *Console {
	return &Console{
		out:     out,
		errOut:  errOut,
		noColor: noColor,
		quiet:   quiet,
		start:   time.Now(),
	}
}

func (c *Console) color(code string) string {
	if c.noColor {
		return ""
	}
	return code
}

// Banner prints the start-of-scan summary.
func (c *Console) Banner(total int, start, end time.Time, template string, threads int) {
	c.start = time.Now()
	if c.quiet {
		return
	}
	d, y, rs := c.color(colorDim), c.color(colorYellow), c.color(colorReset)
	fmt.Fprintf(c.errOut, "%s  ──────────────────────────────────────%s\n", d, rs)
	fmt.Fprintf(c.errOut, "  %sTemplate:%s  %s\n", d, rs, template)
	fmt.Fprintf(c.errOut, "  %sRange:%s     %s to %s\n", d, rs, start.Format("2006-01-02"), end.Format("2006-01-02"))
	fmt.Fprintf(c.errOut, "  %sTargets:%s   %s%d dates%s\n", d, rs, y, total, rs)
	fmt.Fprintf(c.errOut, "  %sThreads:%s   %s%d%s\n", d, rs, y, threads, rs)
	fmt.Fprintf(c.errOut, "%s  ──────────────────────────────────────%s\n\n", d, rs)
	fmt.Fprintf(c.errOut, "[*] Scanning %d dates from %s to %s...\n",
		total, start.Format("2006-01-02"), end.Format("2006-01-02"))
}

// Info prints a neutral status line.
func (c *Console) Info(format string, args ...any) {
	if c.quiet {
		return
	}
	fmt.Fprintf(c.errOut, "[*] "+format+"\n", args...)
}

// Warn prints a non-fatal problem. Warnings are shown even in quiet mode.
func (c *Console) Warn(format string, args ...any) {
	fmt.Fprintf(c.errOut, "%s[!]%s "+format+"\n", append([]any{c.color(colorRed), c.color(colorReset)}, args...)...)
}

// Found prints a confirmed target.
func (c *Console) Found(r scanner.ProbeResult) {
	fmt.Fprintf(c.out, "%s[+] FOUND:%s %s\n", c.color(colorGreen), c.color(colorReset), r.Target)
}

// Failed prints a per-target error. After Interrupt the individual errors
// are counted instead of printed.
func (c *Console) Failed(r scanner.ProbeResult) {
	if c.interrupted.Load() {
		c.suppressed.Add(1)
		return
	}
	fmt.Fprintf(c.errOut, "%s[!]%s Error checking %s: %v\n", c.color(colorYellow), c.color(colorReset), r.Target, r.Err)
}

// TrackPause excludes time spent paused on p from the progress rate and
// ETA. A nil p is allowed.
func (c *Console) TrackPause(p *scanner.Pauser) {
	c.pauser = p
}

// Progress prints a progress line with rate and ETA.
func (c *Console) Progress(s scanner.Snapshot) {
	if c.quiet {
		return
	}
	elapsed := (time.Since(c.start) - c.pauser.PausedDuration()).Seconds()
	rate := float64(0)
	if elapsed > 0 {
		rate = float64(s.Completed) / elapsed
	}

	eta := ""
	if rate > 0 && s.Completed < s.Total {
		remaining := float64(s.Total-s.Completed) / rate
		eta = fmt.Sprintf(" | ETA: %s", time.Duration(remaining*float64(time.Second)).Round(time.Second))
	}

	fmt.Fprintf(c.errOut, "%s[*]%s Progress: %d/%d (%d found) | %.0f req/s | Errors: %d%s\n",
		c.color(colorCyan), c.color(colorReset),
		s.Completed, s.Total, s.Found, rate, s.Errors, eta)
}

// Interrupt switches the console to interrupted mode: the remaining
// probes are about to fail with a cancellation error and are not printed
// one by one.
func (c *Console) Interrupt() {
	if c.interrupted.CompareAndSwap(false, true) {
		fmt.Fprintf(c.errOut, "\n%s[!]%s Interrupted, finishing remaining targets as failed...\n",
			c.color(colorRed), c.color(colorReset))
	}
}

// Summary prints the end-of-scan block.
func (c *Console) Summary(stats Stats) {
	if c.quiet {
		return
	}
	sep := strings.Repeat("=", 60)
	fmt.Fprintf(c.errOut, "\n%s\n", sep)
	if stats.Interrupted {
		fmt.Fprintf(c.errOut, "Scan interrupted!\n")
	} else {
		fmt.Fprintf(c.errOut, "Scan complete!\n")
	}
	fmt.Fprintf(c.errOut, "Checked: %d URLs\n", stats.Completed+stats.Skipped)
	fmt.Fprintf(c.errOut, "Found: %d valid directories\n", stats.Found)
	if stats.Errors > 0 {
		fmt.Fprintf(c.errOut, "Errors: %d", stats.Errors)
		if n := c.suppressed.Load(); n > 0 {
			fmt.Fprintf(c.errOut, " (%d after interrupt)", n)
		}
		fmt.Fprintln(c.errOut)
	}
	if stats.Skipped > 0 {
		fmt.Fprintf(c.errOut, "Resumed: %d URLs skipped from a previous run\n", stats.Skipped)
	}
	line := fmt.Sprintf("Duration: %s | %.1f req/s", stats.Duration.Round(time.Millisecond), stats.RequestsPerSec)
	if stats.Paused > 0 {
		line += fmt.Sprintf(" | paused %s", stats.Paused.Round(time.Second))
	}
	fmt.Fprintln(c.errOut, line)
	fmt.Fprintf(c.errOut, "%s\n\n", sep)
}

// Saved reports the result file and lists every found URL.
func (c *Console) Saved(path string, found []string) {
	if c.quiet {
		return
	}
	fmt.Fprintf(c.errOut, "[+] Results saved to %s\n", path)
	fmt.Fprintf(c.errOut, "\nAll valid directories:\n")
	for _, u := range found {
		fmt.Fprintln(c.out, u)
	}
}

// NoResults reports an empty found list.
func (c *Console) NoResults() {
	fmt.Fprintln(c.errOut, "[*] No valid directories found.")
}
