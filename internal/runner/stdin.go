package runner

import (
	"os"
	"sync"

	"github.com/maxvaer/dateprobe/internal/output"
	"github.com/maxvaer/dateprobe/internal/scanner"
	"golang.org/x/term"
)

// startStdinToggle reads single keypresses from stdin and toggles dispatch
// on Enter or Space. The returned cleanup restores the terminal and may be
// called more than once. If stdin is not a terminal it returns a nil pauser.
func startStdinToggle(console *output.Console) (pauser *scanner.Pauser, cleanup func()) {
	fd := int(os.Stdin.Fd())

	if !term.IsTerminal(fd) {
		return nil, func() {}
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		console.Warn("Could not enable raw terminal: %v", err)
		return nil, func() {}
	}

	// MakeRaw disables OPOST, which stops \n -> \r\n translation on output.
	fixOutputProcessing(fd)

	pauser = scanner.NewPauser()

	var once sync.Once
	cleanup = func() {
		once.Do(func() { _ = term.Restore(fd, oldState) })
	}

	go func() {
		buf := make([]byte, 1)
		for {
			n, err := os.Stdin.Read(buf)
			if err != nil {
				return
			}
			if n == 0 {
				continue
			}

			switch buf[0] {
			case 0x03:
				// Ctrl+C: raw mode swallows the signal, so restore the
				// terminal and raise it ourselves.
				cleanup()
				sendInterrupt()
				return
			case '\r', '\n', ' ':
				if pauser.Toggle() {
					console.Info("Scan PAUSED, press Enter or Space to resume")
				} else {
					console.Info("Scan RESUMED")
				}
			}
		}
	}()

	return pauser, cleanup
}
