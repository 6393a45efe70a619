package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// File is the YAML configuration file structure. Pointer fields distinguish
// "not set" from a zero value so that only present keys override defaults.
//
// Example:
//
//	template: "https://cdn.example.com/{YYYY}/posts/{YYYY}-{MM}-{DD}/"
//	start: 2019-01-01
//	end: 2019-12-31
//	threads: 20
//	timeout: 10s
//	output: found.txt
//	format: text
//	headers:
//	  Accept-Language: en
type File struct {
	Template   *string           `yaml:"template"`
	Start      *Date             `yaml:"start"`
	End        *Date             `yaml:"end"`
	Threads    *int              `yaml:"threads"`
	Timeout    *Duration         `yaml:"timeout"`
	Rate       *float64          `yaml:"rate"`
	Output     *string           `yaml:"output"`
	Format     *string           `yaml:"format"`
	Sort       *bool             `yaml:"sort"`
	Quiet      *bool             `yaml:"quiet"`
	NoColor    *bool             `yaml:"no_color"`
	Verbose    *bool             `yaml:"verbose"`
	Headers    map[string]string `yaml:"headers"`
	UserAgent  *string           `yaml:"user_agent"`
	Proxy      *string           `yaml:"proxy"`
	ResumeFile *string           `yaml:"resume_file"`
	DB         *string           `yaml:"db"`
	OnFound    *string           `yaml:"on_found"`
}

// Duration wraps time.Duration for YAML strings like "10s" or "1m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the value as a time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Date wraps time.Time for YAML dates in YYYY-MM-DD form.
type Date time.Time

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Date) UnmarshalYAML(value *yaml.Node) error {
	// plain 2019-01-01 resolves to a timestamp; the raw scalar text is all we need
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("date must be a scalar, got %s", value.Tag)
	}
	s := value.Value
	parsed, err := time.Parse(DateLayout, s)
	if err != nil {
		return fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", s, err)
	}
	*d = Date(parsed)
	return nil
}

// Time returns the value as a time.Time.
func (d Date) Time() time.Time {
	return time.Time(d)
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse parses YAML configuration data.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	return &f, nil
}

// ApplyTo copies every key present in the file into opts, except keys for
// which keep returns true. keep receives the flag name of the setting and
// may be nil.
func (f *File) ApplyTo(opts *Options, keep func(flag string) bool) {
	if keep == nil {
		keep = func(string) bool { return false }
	}
	setString(f.Template, &opts.Template, keep("template"))
	if f.Start != nil && !keep("start") {
		opts.Start = f.Start.Time()
	}
	if f.End != nil && !keep("end") {
		opts.End = f.End.Time()
	}
	if f.Threads != nil && !keep("threads") {
		opts.Threads = *f.Threads
	}
	if f.Timeout != nil && !keep("timeout") {
		opts.Timeout = f.Timeout.Duration()
	}
	if f.Rate != nil && !keep("rate") {
		opts.Rate = *f.Rate
	}
	setString(f.Output, &opts.OutputFile, keep("output"))
	setString(f.Format, &opts.OutputFormat, keep("format"))
	setBool(f.Sort, &opts.SortResults, keep("sort"))
	setBool(f.Quiet, &opts.Quiet, keep("quiet"))
	setBool(f.NoColor, &opts.NoColor, keep("no-color"))
	setBool(f.Verbose, &opts.Verbose, keep("verbose"))
	if len(f.Headers) > 0 {
		if opts.Headers == nil {
			opts.Headers = make(map[string]string, len(f.Headers))
		}
		// explicit -H flags take precedence per key
		for k, v := range f.Headers {
			if _, exists := opts.Headers[k]; !exists {
				opts.Headers[k] = v
			}
		}
	}
	setString(f.UserAgent, &opts.UserAgent, keep("user-agent"))
	setString(f.Proxy, &opts.Proxy, keep("proxy"))
	setString(f.ResumeFile, &opts.ResumeFile, keep("resume-file"))
	setString(f.DB, &opts.DBPath, keep("db"))
	setString(f.OnFound, &opts.OnFoundCmd, keep("on-found"))
}

func setString(src *string, dst *string, keep bool) {
	if src != nil && !keep {
		*dst = *src
	}
}

func setBool(src *bool, dst *bool, keep bool) {
	if src != nil && !keep {
		*dst = *src
	}
}
