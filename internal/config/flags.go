package config

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const defaultIterations = 1

// newFlagCommand creates a cobra command with all flags configured. Help is
// written to out.
func newFlagCommand(out io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "exectime [flags] <command> [args...]",
		Short:         "Execute a command repeatedly and measure the time consumed",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(out)
	flags := cmd.Flags()
	flags.SetInterspersed(false)
	configureFlags(flags)
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Measurement flags
	flags.VarP(newIterationsValue(defaultIterations), "iterations", "i", "Number of timed iterations (>= 1)")
	flags.Int("warmup", 0, "Untimed iterations to run before measuring")
	flags.Float64("rate", 0, "Maximum trial starts per second (0 means back to back)")
	flags.String("pacing", string(PacingUniform), "Spacing of trial starts when --rate is set (uniform or poisson)")
	flags.String("lock-file", "", "Hold an exclusive lock on this file while benchmarking")

	// Output comparison flags
	flags.Bool("cmp-stdout", false, "Fail if any iteration's stdout differs from the first")
	flags.String("ref-stdout", "", "Fail if any iteration's stdout differs from this file")

	// Output flags
	flags.Bool("color", false, "Colorized output for easier interpretation")
	flags.Bool("diagnostics", false, "Annotate stderr of children terminated by a signal")
	flags.String("format", string(FormatText), "Report format: text, json or yaml")
	flags.String("html-output", "", "Generate HTML report to the specified file path")
	flags.Bool("progress", false, "Show a progress line on stderr while running")
	flags.Bool("dashboard", false, "Show live terminal dashboard")
	flags.Bool("log-trials", false, "Log each trial's exit code and duration to stderr")
	flags.String("config", "", "Path to configuration file (JSON or YAML)")

	// Threshold flags
	flags.StringArray("threshold", nil, "Assertion on the results (repeatable, e.g. 'duration:p99 < 250')")

	// Tracing flags
	flags.String("otel-endpoint", "", "OTLP collector endpoint (enables tracing)")
	flags.String("otel-protocol", ProtocolGRPC, "OTLP protocol: grpc or http")
	flags.Bool("otel-insecure", false, "Disable TLS for the OTLP exporter")
	flags.String("otel-service-name", "exectime", "Service name reported with spans")
	flags.Float64("otel-sample-rate", 1, "Fraction of runs to trace (0-1)")

	flags.BoolP("help", "h", false, "Print this help and exit")
	flags.BoolP("version", "v", false, "Print version information and exit")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\n%s.\n\nFlags:\n", cmd.Use, cmd.Short)
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies command-line flag values to the config, overriding
// values from the config file.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	if iv, ok := fs.Lookup("iterations").Value.(*iterationsValue); ok {
		cfg.Warnings = append(cfg.Warnings, iv.warnings...)
		if iv.set {
			cfg.Iterations = iv.n
		}
	}
	if fs.Changed("warmup") {
		val, err := fs.GetInt("warmup")
		if err != nil {
			return err
		}
		cfg.Warmup = val
	}
	if fs.Changed("rate") {
		val, err := fs.GetFloat64("rate")
		if err != nil {
			return err
		}
		cfg.Rate = val
	}
	if fs.Changed("pacing") {
		val, err := fs.GetString("pacing")
		if err != nil {
			return err
		}
		cfg.Pacing = PacingModel(strings.ToLower(strings.TrimSpace(val)))
	}
	if fs.Changed("lock-file") {
		val, err := fs.GetString("lock-file")
		if err != nil {
			return err
		}
		cfg.LockFile = strings.TrimSpace(val)
	}
	if fs.Changed("cmp-stdout") {
		val, err := fs.GetBool("cmp-stdout")
		if err != nil {
			return err
		}
		cfg.CompareStdout = val
	}
	if fs.Changed("ref-stdout") {
		val, err := fs.GetString("ref-stdout")
		if err != nil {
			return err
		}
		cfg.RefStdoutPath = val
	}
	if fs.Changed("color") {
		val, err := fs.GetBool("color")
		if err != nil {
			return err
		}
		cfg.Color = val
	}
	if fs.Changed("diagnostics") {
		val, err := fs.GetBool("diagnostics")
		if err != nil {
			return err
		}
		cfg.Diagnostics = val
	}
	if fs.Changed("format") {
		val, err := fs.GetString("format")
		if err != nil {
			return err
		}
		cfg.Format = Format(strings.ToLower(strings.TrimSpace(val)))
	}
	if fs.Changed("html-output") {
		val, err := fs.GetString("html-output")
		if err != nil {
			return err
		}
		cfg.HTMLOutput = val
	}
	if fs.Changed("progress") {
		val, err := fs.GetBool("progress")
		if err != nil {
			return err
		}
		cfg.Progress = val
	}
	if fs.Changed("dashboard") {
		val, err := fs.GetBool("dashboard")
		if err != nil {
			return err
		}
		cfg.Dashboard = val
	}
	if fs.Changed("log-trials") {
		val, err := fs.GetBool("log-trials")
		if err != nil {
			return err
		}
		cfg.LogTrials = val
	}
	if fs.Changed("threshold") {
		val, err := fs.GetStringArray("threshold")
		if err != nil {
			return err
		}
		cfg.Thresholds = val
	}
	if fs.Changed("otel-endpoint") {
		val, err := fs.GetString("otel-endpoint")
		if err != nil {
			return err
		}
		cfg.Tracing.Endpoint = strings.TrimSpace(val)
	}
	if fs.Changed("otel-protocol") {
		val, err := fs.GetString("otel-protocol")
		if err != nil {
			return err
		}
		cfg.Tracing.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("otel-insecure") {
		val, err := fs.GetBool("otel-insecure")
		if err != nil {
			return err
		}
		cfg.Tracing.Insecure = val
	}
	if fs.Changed("otel-service-name") {
		val, err := fs.GetString("otel-service-name")
		if err != nil {
			return err
		}
		cfg.Tracing.ServiceName = val
	}
	if fs.Changed("otel-sample-rate") {
		val, err := fs.GetFloat64("otel-sample-rate")
		if err != nil {
			return err
		}
		cfg.Tracing.SampleRate = val
	}
	return nil
}

// iterationsValue accepts only integers >= 1. Anything else is recorded as a
// warning and the previous value is kept, so parsing never fails on it.
type iterationsValue struct {
	n        int
	set      bool
	warnings []string
}

func newIterationsValue(n int) *iterationsValue {
	return &iterationsValue{n: n}
}

func (v *iterationsValue) String() string { return strconv.Itoa(v.n) }

func (v *iterationsValue) Type() string { return "int" }

func (v *iterationsValue) Set(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	switch {
	case err != nil:
		v.warnings = append(v.warnings, fmt.Sprintf("ignoring invalid iteration count %q, using %d", s, v.n))
	case n < 1:
		v.warnings = append(v.warnings, fmt.Sprintf("ignoring iteration count %d (must be >= 1), using %d", n, v.n))
	default:
		v.n = n
		v.set = true
	}
	return nil
}

// splitArgs separates the flag arguments from the command. Unknown flags and
// flags missing their value are dropped with a warning so they are never
// taken for the command. The command starts at the first non-flag token or
// after "--".
func splitArgs(fs *pflag.FlagSet, args []string) (flagArgs, command, warnings []string) {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			return flagArgs, args[i+1:], warnings
		}
		if len(arg) < 2 || arg[0] != '-' {
			return flagArgs, args[i:], warnings
		}

		var (
			flag     *pflag.Flag
			hasValue bool
			label    = arg
		)
		if strings.HasPrefix(arg, "--") {
			name, _, eq := strings.Cut(arg[2:], "=")
			label = "--" + name
			flag = fs.Lookup(name)
			hasValue = eq
		} else {
			flag = fs.ShorthandLookup(arg[1:2])
			label = arg[:2]
			hasValue = len(arg) > 2
			if flag != nil && hasValue && isBool(flag) {
				if !allBoolShorthands(fs, arg[1:]) {
					warnings = append(warnings, fmt.Sprintf("unknown flag %s ignored", arg))
					continue
				}
				flagArgs = append(flagArgs, arg)
				continue
			}
		}

		if flag == nil {
			warnings = append(warnings, fmt.Sprintf("unknown flag %s ignored", label))
			continue
		}
		if isBool(flag) || hasValue {
			flagArgs = append(flagArgs, arg)
			continue
		}
		if i+1 >= len(args) {
			warnings = append(warnings, fmt.Sprintf("flag %s requires a value, ignored", label))
			continue
		}
		flagArgs = append(flagArgs, arg, args[i+1])
		i++
	}
	return flagArgs, nil, warnings
}

func isBool(f *pflag.Flag) bool {
	return f.NoOptDefVal != ""
}

func allBoolShorthands(fs *pflag.FlagSet, letters string) bool {
	for _, r := range letters {
		if r >= utf8.RuneSelf {
			return false
		}
		f := fs.ShorthandLookup(string(r))
		if f == nil || !isBool(f) {
			return false
		}
	}
	return true
}
