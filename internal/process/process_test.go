package process_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/torosent/exectime/internal/process"
)

// TestHelperProcess is not a real test. It is re-executed by the tests below
// as the child command: everything after "--" selects its behavior.
func TestHelperProcess(t *testing.T) {
	args := helperArgs()
	if args == nil {
		return
	}
	switch args[0] {
	case "echo":
		fmt.Fprint(os.Stdout, strings.Join(args[1:], " "))
	case "stderr":
		fmt.Fprint(os.Stderr, strings.Join(args[1:], " "))
	case "env":
		fmt.Fprint(os.Stdout, os.Getenv(args[1]))
	case "exit":
		code, _ := strconv.Atoi(args[1])
		os.Exit(code)
	case "flood":
		n, _ := strconv.Atoi(args[1])
		chunk := bytes.Repeat([]byte("x"), 4096)
		for written := 0; written < n; written += len(chunk) {
			os.Stdout.Write(chunk)
			os.Stderr.Write(chunk)
		}
	}
	os.Exit(0)
}

func helperArgs() []string {
	for i, arg := range os.Args {
		if arg == "--" && i+1 < len(os.Args) {
			return os.Args[i+1:]
		}
	}
	return nil
}

func helperCommand(t *testing.T, args ...string) process.Command {
	t.Helper()
	exe, err := os.Executable()
	if err != nil {
		t.Fatalf("os.Executable() error = %v", err)
	}
	return append(process.Command{exe, "-test.run=^TestHelperProcess$", "--"}, args...)
}

func TestExecuteCapturesStdout(t *testing.T) {
	r := process.New(false)
	res, err := r.Execute(context.Background(), helperCommand(t, "echo", "hello", "world"))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if res.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", res.ExitCode)
	}
	if got := string(res.Stdout); got != "hello world" {
		t.Errorf("Stdout = %q, want %q", got, "hello world")
	}
	if len(res.Stderr) != 0 {
		t.Errorf("Stderr = %q, want empty", res.Stderr)
	}
}

func TestExecuteCapturesStderr(t *testing.T) {
	r := process.New(false)
	res, err := r.Execute(context.Background(), helperCommand(t, "stderr", "oops"))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got := string(res.Stderr); got != "oops" {
		t.Errorf("Stderr = %q, want %q", got, "oops")
	}
	if len(res.Stdout) != 0 {
		t.Errorf("Stdout = %q, want empty", res.Stdout)
	}
}

func TestExecuteReportsExitCode(t *testing.T) {
	tests := []struct {
		code int
	}{
		{0}, {1}, {42}, {255},
	}
	r := process.New(true)
	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.code), func(t *testing.T) {
			res, err := r.Execute(context.Background(), helperCommand(t, "exit", strconv.Itoa(tt.code)))
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}
			if res.ExitCode != tt.code {
				t.Errorf("ExitCode = %d, want %d", res.ExitCode, tt.code)
			}
			if res.Abnormal() {
				t.Errorf("Abnormal() = true for a normal exit")
			}
		})
	}
}

func TestExecuteDrainsLargeOutputWithoutDeadlock(t *testing.T) {
	const size = 4 << 20 // far beyond any pipe buffer

	r := process.New(false)
	done := make(chan struct{})
	var (
		res process.Result
		err error
	)
	go func() {
		defer close(done)
		res, err = r.Execute(context.Background(), helperCommand(t, "flood", strconv.Itoa(size)))
	}()

	select {
	case <-done:
	case <-time.After(60 * time.Second):
		t.Fatal("Execute() did not return; output streams are not drained while waiting")
	}
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(res.Stdout) < size {
		t.Errorf("len(Stdout) = %d, want >= %d", len(res.Stdout), size)
	}
	if len(res.Stderr) < size {
		t.Errorf("len(Stderr) = %d, want >= %d", len(res.Stderr), size)
	}
}

func TestExecuteMissingProgram(t *testing.T) {
	tests := []struct {
		name    string
		program string
	}{
		{"bare name", "exectime-missing-program-3f9a"},
		{"absolute path", filepath.Join(t.TempDir(), "missing")},
	}
	r := process.New(false)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Execute(context.Background(), process.Command{tt.program})
			var execErr *process.ExecError
			if !errors.As(err, &execErr) {
				t.Fatalf("Execute() error = %v (%T), want *ExecError", err, err)
			}
			if execErr.Program != tt.program {
				t.Errorf("Program = %q, want %q", execErr.Program, tt.program)
			}
			if !strings.Contains(err.Error(), tt.program) {
				t.Errorf("error %q does not mention the program", err)
			}
		})
	}
}

func TestExecuteEmptyCommand(t *testing.T) {
	r := process.New(false)
	_, err := r.Execute(context.Background(), nil)
	var spawnErr *process.SpawnError
	if !errors.As(err, &spawnErr) {
		t.Fatalf("Execute() error = %v, want *SpawnError", err)
	}
	if !errors.Is(err, process.ErrEmptyCommand) {
		t.Errorf("errors.Is(err, ErrEmptyCommand) = false")
	}
}

func TestExecuteCanceledContextDoesNotSpawn(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires /bin/sh")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	marker := filepath.Join(t.TempDir(), "spawned")
	r := process.New(false)
	_, err := r.Execute(ctx, process.Command{"/bin/sh", "-c", "touch " + marker})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Execute() error = %v, want context.Canceled", err)
	}
	if _, statErr := os.Stat(marker); statErr == nil {
		t.Errorf("child was spawned despite canceled context")
	}
}

func TestExecuteAppendsEnviron(t *testing.T) {
	type key struct{}
	r := process.New(false)
	r.Environ = func(ctx context.Context) []string {
		return []string{"EXECTIME_TEST_VALUE=" + ctx.Value(key{}).(string)}
	}
	ctx := context.WithValue(context.Background(), key{}, "from-context")
	res, err := r.Execute(ctx, helperCommand(t, "env", "EXECTIME_TEST_VALUE"))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got := string(res.Stdout); got != "from-context" {
		t.Errorf("child saw %q, want %q", got, "from-context")
	}
}

func TestCommandHelpers(t *testing.T) {
	cmd := process.Command{"/bin/echo", "a", "b"}
	if cmd.Program() != "/bin/echo" {
		t.Errorf("Program() = %q", cmd.Program())
	}
	if cmd.String() != "/bin/echo a b" {
		t.Errorf("String() = %q", cmd.String())
	}
	if (process.Command{}).Program() != "" {
		t.Errorf("Program() of empty command should be empty")
	}
}
