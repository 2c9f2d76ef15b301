package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"

	"github.com/torosent/exectime/internal/metrics"
	"github.com/torosent/exectime/internal/output"
	"github.com/torosent/exectime/internal/process"
	"github.com/torosent/exectime/internal/runner"
)

const (
	logPrefix = "[exectime]"
	clearLine = "\r\033[K"
)

// logger writes diagnostics to stderr, one line per message. A status line
// written through StatusWriter is cleared before the next message.
type logger struct {
	mu     sync.Mutex
	w      io.Writer
	warn   *color.Color
	err    *color.Color
	dim    *color.Color
	status bool // an unterminated status line is on screen
}

func newLogger(w io.Writer, useColor bool) *logger {
	l := &logger{
		w:    w,
		warn: color.New(color.FgYellow),
		err:  color.New(color.FgRed),
		dim:  color.New(color.FgHiBlack),
	}
	l.SetColor(useColor)
	return l
}

// SetColor enables or disables ANSI colors regardless of whether w is a
// terminal.
func (l *logger) SetColor(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range []*color.Color{l.warn, l.err, l.dim} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
}

// StatusWriter returns a writer for a single redrawn line, such as the
// progress line, that shares the logger's lock.
func (l *logger) StatusWriter() io.Writer {
	return statusWriter{l}
}

type statusWriter struct{ l *logger }

func (s statusWriter) Write(p []byte) (int, error) {
	s.l.mu.Lock()
	defer s.l.mu.Unlock()
	n, err := s.l.w.Write(p)
	s.l.status = len(p) > 0 && p[len(p)-1] != '\n' && string(p) != clearLine
	return n, err
}

func (l *logger) printf(c *color.Color, level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.status {
		fmt.Fprint(l.w, clearLine)
		l.status = false
	}
	msg := fmt.Sprintf(format, args...)
	if level != "" {
		msg = c.Sprint(level+":") + " " + msg
	}
	fmt.Fprintf(l.w, "%s %s\n", logPrefix, msg)
}

func (l *logger) Infof(format string, args ...interface{}) {
	l.printf(l.dim, "", format, args...)
}

func (l *logger) Warnf(format string, args ...interface{}) {
	l.printf(l.warn, "warning", format, args...)
}

func (l *logger) Errorf(format string, args ...interface{}) {
	l.printf(l.err, "error", format, args...)
}

// LogFailure implements runner.FailureLogger.
func (l *logger) LogFailure(cmd process.Command, err error) {
	if err == nil {
		return
	}
	l.Errorf("executing %q failed: %v", cmd.String(), err)
}

// trialLogger prints one line per finished trial.
type trialLogger struct {
	log        *logger
	iterations int
	warmup     int
}

func newTrialLogger(log *logger, iterations, warmup int) *trialLogger {
	return &trialLogger{log: log, iterations: iterations, warmup: warmup}
}

func (t *trialLogger) TrialStarted(ctx context.Context, _ int, _ bool) context.Context {
	return ctx
}

func (t *trialLogger) TrialFinished(_ context.Context, trial runner.Trial, err error) {
	if err != nil {
		return
	}
	phase, total := "iteration", t.iterations
	if trial.Warmup {
		phase, total = "warmup", t.warmup
	}
	t.log.Infof("%s %d/%d completed with code %s, took %s",
		phase, trial.Index, total, metrics.ExitCodeLabel(trial.Result.ExitCode), output.FormatDuration(float64(trial.Elapsed)))
}

var _ runner.Observer = (*trialLogger)(nil)
