package runner_test

import (
	"context"
	"errors"
	"testing"

	"github.com/torosent/exectime/internal/process"
	"github.com/torosent/exectime/internal/runner"
)

type captureLogger struct {
	cmds []process.Command
	errs []error
}

func (c *captureLogger) LogFailure(cmd process.Command, err error) {
	c.cmds = append(c.cmds, cmd)
	c.errs = append(c.errs, err)
}

func TestWithLoggingLogsFailuresOnly(t *testing.T) {
	logger := &captureLogger{}
	exec := runner.WithLogging(&fakeExecutor{failAt: 2, exitCode: func(int64) int { return 7 }}, logger)
	r := runner.New(runner.Options{Command: process.Command{"bench", "-x"}, Iterations: 3, Executor: exec})
	_, err := r.Run(context.Background())
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected executor error, got %v", err)
	}
	if len(logger.errs) != 1 {
		t.Fatalf("expected 1 logged failure, got %d", len(logger.errs))
	}
	if logger.cmds[0].String() != "bench -x" {
		t.Errorf("logged command %q", logger.cmds[0])
	}
}

func TestWithLoggingNilLogger(t *testing.T) {
	inner := &fakeExecutor{}
	if got := runner.WithLogging(inner, nil); got != runner.Executor(inner) {
		t.Fatalf("expected executor to be returned unchanged")
	}
}
