// Package config holds scan options, their defaults and validation, and the
// YAML configuration file loader.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/maxvaer/dateprobe/pkg/version"
)

// Defaults for a scan.
const (
	DefaultTemplate   = "https://cdn.runescape.com/assets/img/external/oldschool/{YYYY}/newsposts/{YYYY}-{MM}-{DD}/"
	DefaultStart      = "2000-01-01"
	DefaultEnd        = "2025-12-31"
	DefaultThreads    = 20
	DefaultTimeout    = 10 * time.Second
	DefaultOutputFile = "valid_directories.txt"
	DefaultFormat     = "text"
)

// DateLayout is the layout of start and end dates.
const DateLayout = "2006-01-02"

// Formats lists the supported result file formats.
var Formats = []string{"text", "json", "csv", "xlsx"}

// Options holds all configuration for a dateprobe scan.
type Options struct {
	// Target
	Template string
	Start    time.Time
	End      time.Time

	// Performance
	Threads int
	Timeout time.Duration
	Rate    float64 // requests per second, 0 = unlimited

	// Output
	OutputFile   string
	OutputFormat string
	SortResults  bool
	Quiet        bool
	NoColor      bool
	Verbose      bool

	// HTTP
	Headers   map[string]string
	UserAgent string
	Proxy     string

	// State
	ResumeFile string
	DBPath     string

	// Hooks
	OnFoundCmd string
}

// Default returns Options populated with the built-in defaults.
func Default() Options {
	start, _ := time.Parse(DateLayout, DefaultStart)
	end, _ := time.Parse(DateLayout, DefaultEnd)
	return Options{
		Template:     DefaultTemplate,
		Start:        start,
		End:          end,
		Threads:      DefaultThreads,
		Timeout:      DefaultTimeout,
		OutputFile:   DefaultOutputFile,
		OutputFormat: DefaultFormat,
	}
}

// EffectiveUserAgent returns the configured User-Agent or the default one.
func (o *Options) EffectiveUserAgent() string {
	if o.UserAgent != "" {
		return o.UserAgent
	}
	return "dateprobe/" + version.Version
}

// ConfigError reports an invalid setting. A scan with invalid options
// never starts.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

// Validate checks the options for settings that would make a scan
// meaningless.
func (o *Options) Validate() error {
	if strings.TrimSpace(o.Template) == "" {
		return &ConfigError{Field: "template", Msg: "must not be empty"}
	}
	if !strings.HasPrefix(o.Template, "http://") && !strings.HasPrefix(o.Template, "https://") {
		return &ConfigError{Field: "template", Msg: "must start with http:// or https://"}
	}
	if !strings.Contains(o.Template, "{YYYY}") && !strings.Contains(o.Template, "{MM}") && !strings.Contains(o.Template, "{DD}") {
		return &ConfigError{Field: "template", Msg: "must contain at least one of {YYYY}, {MM}, {DD}"}
	}
	if o.Start.IsZero() || o.End.IsZero() {
		return &ConfigError{Field: "date range", Msg: "start and end dates are required"}
	}
	if o.End.Before(o.Start) {
		return &ConfigError{Field: "date range", Msg: fmt.Sprintf("end %s is before start %s",
			o.End.Format(DateLayout), o.Start.Format(DateLayout))}
	}
	if o.Threads < 1 {
		return &ConfigError{Field: "threads", Msg: "must be at least 1"}
	}
	if o.Timeout <= 0 {
		return &ConfigError{Field: "timeout", Msg: "must be positive"}
	}
	if o.Rate < 0 {
		return &ConfigError{Field: "rate", Msg: "must not be negative"}
	}
	if !validFormat(o.OutputFormat) {
		return &ConfigError{Field: "format", Msg: fmt.Sprintf("%q is not one of %s", o.OutputFormat, strings.Join(Formats, ", "))}
	}
	return nil
}

func validFormat(f string) bool {
	for _, v := range Formats {
		if f == v {
			return true
		}
	}
	return false
}
