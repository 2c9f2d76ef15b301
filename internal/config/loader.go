package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Loader handles loading configuration from files and command-line arguments.
type Loader struct {
	// ReadFile reads the --ref-stdout reference. Defaults to os.ReadFile.
	ReadFile func(name string) ([]byte, error)
	// Out receives the --help text. Defaults to os.Stdout.
	Out io.Writer
}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// ErrVersionRequested is returned when the user requests version information.
var ErrVersionRequested = errors.New("version requested")

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{ReadFile: os.ReadFile, Out: os.Stdout}
}

// Load parses command-line arguments and configuration files to produce a
// Config. Recoverable argument problems are reported in Config.Warnings.
// The returned Config is not validated.
func (l Loader) Load(args []string) (*Config, error) {
	out := l.Out
	if out == nil {
		out = os.Stdout
	}
	cmd := newFlagCommand(out)
	flagSet := cmd.Flags()

	flagArgs, command, warnings := splitArgs(flagSet, args)
	if err := flagSet.Parse(flagArgs); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	if wantsHelp, _ := flagSet.GetBool("help"); wantsHelp {
		displayHelp(cmd)
		return nil, ErrHelpRequested
	}
	if wantsVersion, _ := flagSet.GetBool("version"); wantsVersion {
		return nil, ErrVersionRequested
	}

	configPath, _ := flagSet.GetString("config")
	cfgViper := viper.New()
	if configPath != "" {
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		Iterations: defaultIterations,
		Format:     FormatText,
		Pacing:     PacingUniform,
		ConfigFile: configPath,
		Warnings:   warnings,
		Tracing: TracingConfig{
			Protocol:    ProtocolGRPC,
			ServiceName: "exectime",
			SampleRate:  1,
		},
	}

	if err := applyConfigSettings(cfg, cfgViper.AllSettings()); err != nil {
		return nil, err
	}
	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}
	if len(command) > 0 {
		cfg.Command = append([]string(nil), command...)
	}

	l.loadReference(cfg)
	return cfg, nil
}

// loadReference reads the reference output. A read failure is a warning and
// leaves comparison against an external reference disabled.
func (l Loader) loadReference(cfg *Config) {
	path := strings.TrimSpace(cfg.RefStdoutPath)
	if path == "" {
		return
	}
	readFile := l.ReadFile
	if readFile == nil {
		readFile = os.ReadFile
	}
	data, err := readFile(path)
	if err != nil {
		cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("cannot read reference output: %v", err))
		return
	}
	if data == nil {
		data = []byte{}
	}
	cfg.Reference = data
}

// applyConfigSettings applies settings from a config file to the Config struct.
func applyConfigSettings(cfg *Config, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	if raw, ok := lookupSetting(settings, "command"); ok {
		val, err := asCommand(raw)
		if err != nil {
			return fmt.Errorf("command: %w", err)
		}
		cfg.Command = val
	}

	if raw, ok := lookupSetting(settings, "iterations"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("iterations: %w", err)
		}
		if val < 1 {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("ignoring iteration count %d (must be >= 1), using %d", val, cfg.Iterations))
		} else {
			cfg.Iterations = val
		}
	}

	if raw, ok := lookupSetting(settings, "warmup"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("warmup: %w", err)
		}
		cfg.Warmup = val
	}

	if raw, ok := lookupSetting(settings, "rate"); ok {
		val, err := asFloat64(raw)
		if err != nil {
			return fmt.Errorf("rate: %w", err)
		}
		cfg.Rate = val
	}

	if raw, ok := lookupSetting(settings, "pacing"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("pacing: %w", err)
		}
		if val != "" {
			cfg.Pacing = PacingModel(strings.ToLower(strings.TrimSpace(val)))
		}
	}

	if raw, ok := lookupSetting(settings, "lock_file", "lockfile", "lock-file"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("lockFile: %w", err)
		}
		cfg.LockFile = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "cmp_stdout", "cmpstdout", "cmp-stdout"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("cmpStdout: %w", err)
		}
		cfg.CompareStdout = val
	}

	if raw, ok := lookupSetting(settings, "ref_stdout", "refstdout", "ref-stdout"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("refStdout: %w", err)
		}
		cfg.RefStdoutPath = val
	}

	boolSettings := []struct {
		keys []string
		dst  *bool
	}{
		{[]string{"color"}, &cfg.Color},
		{[]string{"diagnostics"}, &cfg.Diagnostics},
		{[]string{"progress"}, &cfg.Progress},
		{[]string{"dashboard"}, &cfg.Dashboard},
		{[]string{"log_trials", "logtrials", "log-trials"}, &cfg.LogTrials},
	}
	for _, s := range boolSettings {
		if raw, ok := lookupSetting(settings, s.keys...); ok {
			val, err := asBool(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", s.keys[0], err)
			}
			*s.dst = val
		}
	}

	if raw, ok := lookupSetting(settings, "format"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("format: %w", err)
		}
		if val != "" {
			cfg.Format = Format(strings.ToLower(strings.TrimSpace(val)))
		}
	}

	if raw, ok := lookupSetting(settings, "html_output", "htmloutput", "html-output"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("htmlOutput: %w", err)
		}
		cfg.HTMLOutput = val
	}

	if raw, ok := lookupSetting(settings, "thresholds"); ok {
		val, err := asStringSlice(raw)
		if err != nil {
			return fmt.Errorf("thresholds: %w", err)
		}
		cfg.Thresholds = val
	}

	if raw, ok := lookupSetting(settings, "tracing"); ok {
		tc, err := parseTracing(raw, cfg.Tracing)
		if err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
		cfg.Tracing = tc
	}

	return nil
}

func parseTracing(value interface{}, tc TracingConfig) (TracingConfig, error) {
	settings, err := toStringKeyMap(value)
	if err != nil {
		return tc, err
	}
	if raw, ok := lookupSetting(settings, "endpoint"); ok {
		val, err := asString(raw)
		if err != nil {
			return tc, fmt.Errorf("endpoint: %w", err)
		}
		tc.Endpoint = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "protocol"); ok {
		val, err := asString(raw)
		if err != nil {
			return tc, fmt.Errorf("protocol: %w", err)
		}
		if val != "" {
			tc.Protocol = strings.ToLower(strings.TrimSpace(val))
		}
	}
	if raw, ok := lookupSetting(settings, "service_name", "servicename", "service-name"); ok {
		val, err := asString(raw)
		if err != nil {
			return tc, fmt.Errorf("service_name: %w", err)
		}
		if val != "" {
			tc.ServiceName = val
		}
	}
	if raw, ok := lookupSetting(settings, "insecure"); ok {
		val, err := asBool(raw)
		if err != nil {
			return tc, fmt.Errorf("insecure: %w", err)
		}
		tc.Insecure = val
	}
	if raw, ok := lookupSetting(settings, "sample_rate", "samplerate", "sample-rate"); ok {
		val, err := asFloat64(raw)
		if err != nil {
			return tc, fmt.Errorf("sample_rate: %w", err)
		}
		tc.SampleRate = val
	}
	return tc, nil
}

// asCommand accepts a list of arguments or a single whitespace-separated
// string.
func asCommand(value interface{}) ([]string, error) {
	if s, ok := value.(string); ok {
		return strings.Fields(s), nil
	}
	return asStringSlice(value)
}
