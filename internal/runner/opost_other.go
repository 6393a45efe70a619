//go:build !linux && !darwin && !dragonfly && !freebsd && !netbsd && !openbsd

package runner

// Raw mode leaves output processing alone here.
func fixOutputProcessing(fd int) {}
