package config

import (
	"errors"
	"reflect"
	"testing"

	"github.com/spf13/pflag"
)

func TestAsString(t *testing.T) {
	tests := []struct {
		input interface{}
		want  string
	}{
		{"hello", "hello"},
		{123, "123"},
		{true, "true"},
		{nil, ""},
		{[]byte("bytes"), "bytes"},
	}

	for _, tt := range tests {
		got, err := asString(tt.input)
		if err != nil {
			t.Errorf("asString(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asString(%v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestAsInt(t *testing.T) {
	tests := []struct {
		input interface{}
		want  int
	}{
		{123, 123},
		{"456", 456},
		{int64(789), 789},
		{float64(10.0), 10},
		{nil, 0},
	}

	for _, tt := range tests {
		got, err := asInt(tt.input)
		if err != nil {
			t.Errorf("asInt(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asInt(%v) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestAsBool(t *testing.T) {
	tests := []struct {
		input interface{}
		want  bool
	}{
		{true, true},
		{"true", true},
		{"1", true},
		{false, false},
		{"false", false},
		{"0", false},
		{nil, false},
	}

	for _, tt := range tests {
		got, err := asBool(tt.input)
		if err != nil {
			t.Errorf("asBool(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asBool(%v) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestAsStringSlice(t *testing.T) {
	tests := []struct {
		input interface{}
		want  []string
	}{
		{nil, nil},
		{"duration:p99 < 250", []string{"duration:p99 < 250"}},
		{[]interface{}{"a", 1}, []string{"a", "1"}},
	}
	for _, tt := range tests {
		got, err := asStringSlice(tt.input)
		if err != nil {
			t.Errorf("asStringSlice(%v) error = %v", tt.input, err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("asStringSlice(%v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestToStringKeyMap(t *testing.T) {
	got, err := toStringKeyMap(map[interface{}]interface{}{" Endpoint ": "x", "Insecure": true})
	if err != nil {
		t.Fatalf("toStringKeyMap() error = %v", err)
	}
	want := map[string]interface{}{"endpoint": "x", "insecure": true}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("toStringKeyMap() = %v, want %v", got, want)
	}
	if _, err := toStringKeyMap(42); err == nil {
		t.Error("toStringKeyMap(42) should fail")
	}
}

func TestAsCommand(t *testing.T) {
	tests := []struct {
		input interface{}
		want  []string
	}{
		{"sleep 0.1", []string{"sleep", "0.1"}},
		{[]interface{}{"sh", "-c", "echo hi"}, []string{"sh", "-c", "echo hi"}},
		{[]string{"true"}, []string{"true"}},
	}
	for _, tt := range tests {
		got, err := asCommand(tt.input)
		if err != nil {
			t.Errorf("asCommand(%v) error = %v", tt.input, err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("asCommand(%v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestApplyConfigSettings(t *testing.T) {
	cfg := &Config{Iterations: 1, Tracing: TracingConfig{Protocol: ProtocolGRPC, SampleRate: 1}}
	settings := map[string]interface{}{
		"command":    []interface{}{"ls", "-l"},
		"iterations": 25,
		"warmup":     "2",
		"rate":       2.5,
		"cmp_stdout": true,
		"format":     "JSON",
		"log_trials": "true",
		"thresholds": []interface{}{"duration:p99 < 100"},
		"tracing": map[string]interface{}{
			"endpoint":    "localhost:4317",
			"protocol":    "HTTP",
			"sample_rate": 0.5,
		},
	}

	if err := applyConfigSettings(cfg, settings); err != nil {
		t.Fatalf("applyConfigSettings() error = %v", err)
	}

	if !reflect.DeepEqual(cfg.Command, []string{"ls", "-l"}) {
		t.Errorf("Command = %q", cfg.Command)
	}
	if cfg.Iterations != 25 {
		t.Errorf("Iterations = %d, want 25", cfg.Iterations)
	}
	if cfg.Warmup != 2 {
		t.Errorf("Warmup = %d, want 2", cfg.Warmup)
	}
	if cfg.Rate != 2.5 {
		t.Errorf("Rate = %v, want 2.5", cfg.Rate)
	}
	if !cfg.CompareStdout || !cfg.LogTrials {
		t.Errorf("CompareStdout = %v, LogTrials = %v, want both true", cfg.CompareStdout, cfg.LogTrials)
	}
	if cfg.Format != FormatJSON {
		t.Errorf("Format = %q, want json", cfg.Format)
	}
	if len(cfg.Thresholds) != 1 {
		t.Errorf("Thresholds = %v", cfg.Thresholds)
	}
	if cfg.Tracing.Endpoint != "localhost:4317" || cfg.Tracing.Protocol != ProtocolHTTP || cfg.Tracing.SampleRate != 0.5 {
		t.Errorf("Tracing = %+v", cfg.Tracing)
	}
}

func TestApplyConfigSettingsRejectsBadIterations(t *testing.T) {
	cfg := &Config{Iterations: 1}
	if err := applyConfigSettings(cfg, map[string]interface{}{"iterations": 0}); err != nil {
		t.Fatalf("applyConfigSettings() error = %v", err)
	}
	if cfg.Iterations != 1 {
		t.Errorf("Iterations = %d, want 1", cfg.Iterations)
	}
	if len(cfg.Warnings) != 1 {
		t.Errorf("Warnings = %v, want one", cfg.Warnings)
	}
}

func TestApplyFlagOverrides(t *testing.T) {
	cfg := &Config{Iterations: 1, Format: FormatText}

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	configureFlags(fs)

	args := []string{
		"-i", "7",
		"--format=yaml",
		"--threshold=duration:mean < 5",
		"--threshold=trials:failures == 0",
		"--otel-endpoint", " collector:4318 ",
	}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if err := applyFlagOverrides(cfg, fs); err != nil {
		t.Fatalf("applyFlagOverrides() error = %v", err)
	}

	if cfg.Iterations != 7 {
		t.Errorf("Iterations = %d, want 7", cfg.Iterations)
	}
	if cfg.Format != FormatYAML {
		t.Errorf("Format = %q, want yaml", cfg.Format)
	}
	if len(cfg.Thresholds) != 2 {
		t.Errorf("Thresholds = %v, want 2 entries", cfg.Thresholds)
	}
	if cfg.Tracing.Endpoint != "collector:4318" {
		t.Errorf("Tracing.Endpoint = %q", cfg.Tracing.Endpoint)
	}
}

func TestIterationsValue(t *testing.T) {
	tests := []struct {
		input    string
		want     int
		wantSet  bool
		warnings int
	}{
		{"5", 5, true, 0},
		{" 12 ", 12, true, 0},
		{"0", 1, false, 1},
		{"-4", 1, false, 1},
		{"ten", 1, false, 1},
		{"", 1, false, 1},
	}
	for _, tt := range tests {
		v := newIterationsValue(1)
		if err := v.Set(tt.input); err != nil {
			t.Fatalf("Set(%q) error = %v", tt.input, err)
		}
		if v.n != tt.want || v.set != tt.wantSet || len(v.warnings) != tt.warnings {
			t.Errorf("Set(%q) = n %d set %v warnings %v", tt.input, v.n, v.set, v.warnings)
		}
	}

	v := newIterationsValue(1)
	_ = v.Set("4")
	_ = v.Set("bogus")
	if v.n != 4 {
		t.Errorf("invalid value must keep previous count, got %d", v.n)
	}
}

func TestSplitArgs(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	configureFlags(fs)

	tests := []struct {
		name        string
		args        []string
		wantFlags   []string
		wantCommand []string
		warnings    int
	}{
		{
			name:        "command after flags",
			args:        []string{"-i", "3", "--cmp-stdout", "ls", "-l"},
			wantFlags:   []string{"-i", "3", "--cmp-stdout"},
			wantCommand: []string{"ls", "-l"},
		},
		{
			name:        "attached values",
			args:        []string{"-i3", "--ref-stdout=out.txt", "echo", "--color"},
			wantFlags:   []string{"-i3", "--ref-stdout=out.txt"},
			wantCommand: []string{"echo", "--color"},
		},
		{
			name:        "double dash",
			args:        []string{"--color", "--", "-weird", "x"},
			wantFlags:   []string{"--color"},
			wantCommand: []string{"-weird", "x"},
		},
		{
			name:        "unknown flags are dropped",
			args:        []string{"--bogus", "-z", "true"},
			wantCommand: []string{"true"},
			warnings:    2,
		},
		{
			name:      "missing value",
			args:      []string{"--color", "-i"},
			wantFlags: []string{"--color"},
			warnings:  1,
		},
		{
			name:      "no command",
			args:      []string{"--progress"},
			wantFlags: []string{"--progress"},
		},
		{
			name:        "combined bool shorthands",
			args:        []string{"-hv", "ls"},
			wantFlags:   []string{"-hv"},
			wantCommand: []string{"ls"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags, command, warnings := splitArgs(fs, tt.args)
			if !reflect.DeepEqual(flags, tt.wantFlags) {
				t.Errorf("flags = %q, want %q", flags, tt.wantFlags)
			}
			if !reflect.DeepEqual(command, tt.wantCommand) {
				t.Errorf("command = %q, want %q", command, tt.wantCommand)
			}
			if len(warnings) != tt.warnings {
				t.Errorf("warnings = %v, want %d", warnings, tt.warnings)
			}
		})
	}
}

func TestLoader_LoadReferenceFailureIsWarning(t *testing.T) {
	loader := Loader{ReadFile: func(string) ([]byte, error) { return nil, errors.New("denied") }}
	cfg, err := loader.Load([]string{"--ref-stdout=ref.txt", "echo"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Reference != nil {
		t.Errorf("Reference = %q, want nil", cfg.Reference)
	}
	if len(cfg.Warnings) != 1 {
		t.Errorf("Warnings = %v, want one", cfg.Warnings)
	}
}
