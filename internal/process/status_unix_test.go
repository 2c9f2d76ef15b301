//go:build unix

package process_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/torosent/exectime/internal/process"
)

func TestExecuteSignaledChildIsAbnormal(t *testing.T) {
	tests := []struct {
		name        string
		diagnostics bool
		wantNote    bool
	}{
		{"quiet", false, false},
		{"diagnostics", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := process.New(tt.diagnostics)
			res, err := r.Execute(context.Background(), process.Command{"/bin/sh", "-c", "printf partial >&2; kill -KILL $$"})
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}
			if res.ExitCode != process.AbnormalExit {
				t.Fatalf("ExitCode = %d, want %d", res.ExitCode, process.AbnormalExit)
			}
			if !res.Abnormal() {
				t.Errorf("Abnormal() = false")
			}
			stderr := string(res.Stderr)
			if !strings.HasPrefix(stderr, "partial") {
				t.Errorf("Stderr = %q, want child output preserved", stderr)
			}
			if got := strings.Contains(stderr, "killed by signal 9"); got != tt.wantNote {
				t.Errorf("diagnostic note present = %v, want %v (stderr %q)", got, tt.wantNote, stderr)
			}
		})
	}
}

func TestExecuteNonExecutableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script")
	if err := os.WriteFile(path, []byte("#!/bin/sh\necho hi\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	r := process.New(false)
	_, err := r.Execute(context.Background(), process.Command{path})
	var execErr *process.ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("Execute() error = %v (%T), want *ExecError", err, err)
	}
}

func TestExecuteDirectoryIsExecError(t *testing.T) {
	r := process.New(false)
	_, err := r.Execute(context.Background(), process.Command{t.TempDir()})
	var execErr *process.ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("Execute() error = %v (%T), want *ExecError", err, err)
	}
}

func TestExecuteShellPipeline(t *testing.T) {
	r := process.New(false)
	res, err := r.Execute(context.Background(), process.Command{"/bin/sh", "-c", "printf 'a\\nb\\n'; printf err >&2; exit 3"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if res.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", res.ExitCode)
	}
	if string(res.Stdout) != "a\nb\n" {
		t.Errorf("Stdout = %q", res.Stdout)
	}
	if string(res.Stderr) != "err" {
		t.Errorf("Stderr = %q", res.Stderr)
	}
}
