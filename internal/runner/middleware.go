package runner

import (
	"context"

	"github.com/torosent/exectime/internal/process"
)

// FailureLogger logs commands that could not be executed.
type FailureLogger interface {
	LogFailure(cmd process.Command, err error)
}

// loggingExecutor wraps an Executor with failure logging.
type loggingExecutor struct {
	inner  Executor
	logger FailureLogger
}

// WithLogging wraps an Executor to log execution failures. A nonzero exit is
// not a failure.
func WithLogging(exec Executor, logger FailureLogger) Executor {
	if logger == nil {
		return exec
	}
	return &loggingExecutor{
		inner:  exec,
		logger: logger,
	}
}

func (l *loggingExecutor) Execute(ctx context.Context, cmd process.Command) (process.Result, error) {
	res, err := l.inner.Execute(ctx, cmd)
	if err != nil {
		l.logger.LogFailure(cmd, err)
	}
	return res, err
}
