package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/maxvaer/dateprobe/internal/config"
	"github.com/maxvaer/dateprobe/internal/dates"
	"github.com/maxvaer/dateprobe/internal/runner"
	"github.com/maxvaer/dateprobe/pkg/version"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

var (
	opts       = config.Default()
	configPath string
	startDate  string
	endDate    string
)

type flagGroup struct {
	title string
	flags []string
}

var helpGroups = []flagGroup{
	{"TARGET", []string{"template", "start", "end"}},
	{"RATE-LIMIT", []string{"threads", "timeout", "rate"}},
	{"HTTP", []string{"header", "user-agent", "proxy"}},
	{"OUTPUT", []string{"output", "format", "sort", "quiet", "no-color", "verbose", "on-found"}},
	{"STATE", []string{"config", "resume-file", "db"}},
}

var rootCmd = &cobra.Command{
	Use:     "dateprobe [flags]",
	Short:   "Probe a web server for date-keyed directories",
	Version: version.Version,
	Long: `dateprobe walks a calendar range, builds one URL per day from a template
containing {YYYY}, {MM} and {DD}, and checks each URL concurrently to find
which dated directories exist on the server.`,
	Example: `  dateprobe
  dateprobe -u "https://cdn.example.com/{YYYY}/posts/{YYYY}-{MM}-{DD}/" -s 2020-01-01 -e 2020-12-31
  dateprobe -c scan.yaml -t 40 --timeout 5s
  dateprobe -s 2015-01-01 -e 2015-06-30 -o found.json --format json
  dateprobe --resume-file scan.state --db history.db
  dateprobe --on-found "notify-send {url}"
  dateprobe history --db history.db`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if opts.Start, err = dates.ParseDate(startDate); err != nil {
			return fmt.Errorf("--start: %w", err)
		}
		if opts.End, err = dates.ParseDate(endDate); err != nil {
			return fmt.Errorf("--end: %w", err)
		}

		// Config file values apply unless the flag was set explicitly.
		if configPath != "" {
			file, err := config.Load(configPath)
			if err != nil {
				return err
			}
			file.ApplyTo(&opts, cmd.Flags().Changed)
		}

		if !cmd.Flags().Changed("no-color") && !term.IsTerminal(int(os.Stdout.Fd())) {
			opts.NoColor = true
		}
		return opts.Validate()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		return runner.Run(ctx, &opts)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	f := rootCmd.Flags()

	// Target
	f.StringVarP(&opts.Template, "template", "u", opts.Template, "URL template with {YYYY}, {MM}, {DD} tokens")
	f.StringVarP(&startDate, "start", "s", config.DefaultStart, "First date to probe (YYYY-MM-DD)")
	f.StringVarP(&endDate, "end", "e", config.DefaultEnd, "Last date to probe, inclusive (YYYY-MM-DD)")

	// Performance
	f.IntVarP(&opts.Threads, "threads", "t", opts.Threads, "Number of concurrent requests")
	f.DurationVar(&opts.Timeout, "timeout", opts.Timeout, "Per-request timeout")
	f.Float64Var(&opts.Rate, "rate", 0, "Maximum requests per second across all threads (0 = unlimited)")

	// HTTP
	f.VarP(&headerValue{target: &opts.Headers}, "header", "H", "Custom header (Key: Value), repeatable")
	f.StringVar(&opts.UserAgent, "user-agent", "", "Custom User-Agent string")
	f.StringVar(&opts.Proxy, "proxy", "", "HTTP/SOCKS proxy URL")

	// Output
	f.StringVarP(&opts.OutputFile, "output", "o", opts.OutputFile, "Result file path")
	f.StringVar(&opts.OutputFormat, "format", opts.OutputFormat, "Result format: "+strings.Join(config.Formats, ", "))
	f.BoolVar(&opts.SortResults, "sort", false, "Sort the result file instead of keeping completion order")
	f.BoolVarP(&opts.Quiet, "quiet", "q", false, "Only print found URLs and errors")
	f.BoolVar(&opts.NoColor, "no-color", false, "Disable colored output")
	f.BoolVarP(&opts.Verbose, "verbose", "v", false, "Debug logging on stderr")

	// Hooks
	f.StringVar(&opts.OnFoundCmd, "on-found", "", "Shell command to run for each found URL ({url}, {session}; JSON on stdin)")

	// State
	f.StringVarP(&configPath, "config", "c", "", "YAML config file (flags take precedence)")
	f.StringVar(&opts.ResumeFile, "resume-file", "", "File to save/load scan progress for resume")
	f.StringVar(&opts.DBPath, "db", "", "SQLite database recording scan history")

	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		if cmd != rootCmd {
			// subcommands use cobra's default layout
			fmt.Fprint(cmd.OutOrStderr(), cmd.UsageString())
			return
		}
		w := os.Stderr
		fmt.Fprint(w, helpBanner(cmd.Version))
		fmt.Fprintf(w, "%s\n\nUsage:\n  %s\n", cmd.Long, cmd.UseLine())
		fmt.Fprintf(w, "\nExamples:\n%s\n", cmd.Example)
		fmt.Fprintf(w, "\nFlags:\n")
		for _, g := range helpGroups {
			fmt.Fprintf(w, "\n%s:\n", g.title)
			for _, name := range g.flags {
				if f := cmd.Flags().Lookup(name); f != nil {
					fmt.Fprintln(w, formatFlag(f))
				}
			}
		}
		fmt.Fprintf(w, "\nCommands:\n  history    Show past scans recorded with --db\n\n")
	})
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// headerValue implements pflag.Value for repeatable "Key: Value" headers.
type headerValue struct {
	target *map[string]string
}

func (v *headerValue) String() string {
	if v.target == nil || len(*v.target) == 0 {
		return ""
	}
	parts := make([]string, 0, len(*v.target))
	for k, val := range *v.target {
		parts = append(parts, k+": "+val)
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}

func (v *headerValue) Set(s string) error {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" {
		return fmt.Errorf("invalid header format %q, expected 'Key: Value'", s)
	}
	if *v.target == nil {
		*v.target = make(map[string]string)
	}
	(*v.target)[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	return nil
}

func (v *headerValue) Type() string { return "header" }

func formatFlag(f *pflag.Flag) string {
	var left string
	if f.Shorthand != "" {
		left = fmt.Sprintf("-%s, --%s", f.Shorthand, f.Name)
	} else {
		left = fmt.Sprintf("    --%s", f.Name)
	}

	typ := f.Value.Type()
	if typ != "bool" {
		left += " " + typ
	}

	// Pad to fixed column width for aligned descriptions.
	const col = 30
	for len(left) < col {
		left += " "
	}

	right := f.Usage
	def := f.DefValue
	if def != "" && def != "false" && def != "0" && def != "0s" && def != "[]" {
		right += fmt.Sprintf(" (default %s)", def)
	}

	return "   " + left + right
}

func helpBanner(ver string) string {
	if ver != "dev" && ver != "" && !strings.HasPrefix(ver, "v") {
		ver = "v" + ver
	}
	return fmt.Sprintf(`
      _       _                        _
   __| | __ _| |_ ___ _ __  _ __ ___ | |__   ___
  / _` + "`" + ` |/ _` + "`" + ` | __/ _ \ '_ \| '__/ _ \| '_ \ / _ \
 | (_| | (_| | ||  __/ |_) | | | (_) | |_) |  __/
  \__,_|\__,_|\__\___| .__/|_|  \___/|_.__/ \___|   %s
                    |_|

`, ver)
}
