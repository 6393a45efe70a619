//go:build unix

package runner

import "golang.org/x/sys/unix"

// sendInterrupt raises SIGINT on the current process so the context
// installed by the command layer is cancelled.
func sendInterrupt() {
	_ = unix.Kill(unix.Getpid(), unix.SIGINT)
}
