// Package version holds the build version, set via ldflags:
//
//	go build -ldflags "-X github.com/maxvaer/dateprobe/pkg/version.Version=1.2.0"
package version

// Version is the release version of dateprobe.
var Version = "dev"
