package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/torosent/exectime/internal/threshold"
)

// ErrNoCommand is returned when neither the arguments nor the config file
// name a command to benchmark.
var ErrNoCommand = errors.New("no command specified")

// Format selects how the final report is rendered.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// PacingModel selects how trial starts are spaced when a rate is set.
type PacingModel string

const (
	PacingUniform PacingModel = "uniform"
	PacingPoisson PacingModel = "poisson"
)

// OTel exporter protocols.
const (
	ProtocolGRPC = "grpc"
	ProtocolHTTP = "http"
)

type Config struct {
	Command       []string      `mapstructure:"command"`
	Iterations    int           `mapstructure:"iterations"`
	Warmup        int           `mapstructure:"warmup"`
	CompareStdout bool          `mapstructure:"cmp_stdout"`
	RefStdoutPath string        `mapstructure:"ref_stdout"`
	Reference     []byte        `mapstructure:"-"`
	Color         bool          `mapstructure:"color"`
	Diagnostics   bool          `mapstructure:"diagnostics"`
	Format        Format        `mapstructure:"format"`
	HTMLOutput    string        `mapstructure:"html_output"`
	Progress      bool          `mapstructure:"progress"`
	Dashboard     bool          `mapstructure:"dashboard"`
	LogTrials     bool          `mapstructure:"log_trials"`
	Rate          float64       `mapstructure:"rate"`
	Pacing        PacingModel   `mapstructure:"pacing"`
	Thresholds    []string      `mapstructure:"thresholds"`
	LockFile      string        `mapstructure:"lock_file"`
	ConfigFile    string        `mapstructure:"-"`
	Tracing       TracingConfig `mapstructure:"tracing"`

	// Warnings collects recoverable argument problems, in the order found.
	Warnings []string `mapstructure:"-"`
}

// TracingConfig configures OpenTelemetry export. Tracing is disabled when
// Endpoint is empty.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"`
	ServiceName string  `mapstructure:"service_name"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

// Enabled reports whether spans should be exported.
func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != ""
}

// CompareOutputs reports whether trial outputs are checked against a
// reference.
func (c Config) CompareOutputs() bool {
	return c.CompareStdout || c.Reference != nil
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	if len(c.Command) == 0 || strings.TrimSpace(c.Command[0]) == "" {
		return ErrNoCommand
	}

	var issues []string
	if c.Iterations < 1 {
		issues = append(issues, "iterations must be >= 1")
	}
	if c.Warmup < 0 {
		issues = append(issues, "warmup must be >= 0")
	}
	if c.Rate < 0 {
		issues = append(issues, "rate must be >= 0")
	}

	switch c.Format {
	case "", FormatText, FormatJSON, FormatYAML:
	default:
		issues = append(issues, fmt.Sprintf("format %q is not supported (text, json, yaml)", c.Format))
	}
	switch c.Pacing {
	case "", PacingUniform, PacingPoisson:
	default:
		issues = append(issues, fmt.Sprintf("pacing model %q is not supported", c.Pacing))
	}

	if c.Dashboard && c.Format != "" && c.Format != FormatText {
		issues = append(issues, "dashboard and json/yaml format are mutually exclusive")
	}
	if c.Dashboard && c.Progress {
		issues = append(issues, "dashboard and progress are mutually exclusive")
	}

	for i, expr := range c.Thresholds {
		if _, err := threshold.Parse(expr); err != nil {
			issues = append(issues, fmt.Sprintf("thresholds[%d]: %v", i, err))
		}
	}

	issues = append(issues, validateTracingConfig(c.Tracing)...)

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

func validateTracingConfig(t TracingConfig) []string {
	var issues []string
	if t.SampleRate < 0 || t.SampleRate > 1 {
		issues = append(issues, "tracing: sample_rate must be between 0 and 1")
	}
	switch t.Protocol {
	case "", ProtocolGRPC, ProtocolHTTP:
	default:
		issues = append(issues, fmt.Sprintf("tracing: protocol must be 'grpc' or 'http', got %q", t.Protocol))
	}
	return issues
}
