package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/torosent/exectime/internal/process"
)

// ErrEmptySample is returned when a run finishes without recording any
// measured trial.
var ErrEmptySample = errors.New("no timing measurements were recorded")

// ErrNoExecutor is returned by Run when Options.Executor is nil.
var ErrNoExecutor = errors.New("runner: no executor configured")

// ComparisonError reports the first trial whose standard output differed
// from the reference.
type ComparisonError struct {
	Trial    int
	Expected []byte
	Actual   []byte
}

func (e *ComparisonError) Error() string {
	return fmt.Sprintf("trial %d: standard output differs from reference (%d bytes expected, %d bytes actual)",
		e.Trial, len(e.Expected), len(e.Actual))
}

// Trial is one invocation of the command. Index is 1-based within its phase.
type Trial struct {
	Index   int
	Warmup  bool
	Elapsed time.Duration
	Result  process.Result
}

// Result captures the execution summary.
type Result struct {
	Sample    []time.Duration // elapsed time of each measured trial, in execution order
	TrialsRun int             // measured trials executed, including a mismatching one
	WarmupRun int
	Warnings  []string
	Duration  time.Duration
}

// Runner executes trials sequentially.
type Runner struct {
	opt      Options
	pacer    pacer
	warnings []string
}

func New(opt Options) *Runner {
	warnings := opt.normalize()
	return &Runner{opt: opt, pacer: newPacer(opt), warnings: warnings}
}

// Warnings returns the option adjustments made by New.
func (r *Runner) Warnings() []string {
	return append([]string(nil), r.warnings...)
}

// Run executes the warmup trials and then the measured trials. Any execution
// error aborts the run. The returned Result is populated up to the point of
// failure.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	res := Result{Warnings: r.Warnings()}
	err := r.run(ctx, &res)
	res.Duration = time.Since(start)
	return res, err
}

func (r *Runner) run(ctx context.Context, res *Result) error {
	if r.opt.Executor == nil {
		return ErrNoExecutor
	}

	for i := 1; i <= r.opt.Warmup; i++ {
		if _, err := r.trial(ctx, i, true); err != nil {
			return fmt.Errorf("warmup trial %d: %w", i, err)
		}
		res.WarmupRun++
	}
	if r.opt.Recorder != nil {
		r.opt.Recorder.Start()
	}

	reference := r.opt.Reference
	res.Sample = make([]time.Duration, 0, r.opt.Iterations)
	for i := 1; i <= r.opt.Iterations; i++ {
		trial, err := r.trial(ctx, i, false)
		if err != nil {
			return fmt.Errorf("trial %d: %w", i, err)
		}
		res.TrialsRun++

		if r.opt.CompareOutputs {
			stdout := trial.Result.Stdout
			if stdout == nil {
				stdout = []byte{}
			}
			if reference == nil {
				reference = stdout
			} else if !bytes.Equal(reference, stdout) {
				return &ComparisonError{Trial: i, Expected: reference, Actual: stdout}
			}
		}

		res.Sample = append(res.Sample, trial.Elapsed)
		if r.opt.Recorder != nil {
			r.opt.Recorder.RecordTrial(trial.Elapsed, trial.Result.ExitCode)
		}
	}

	if len(res.Sample) == 0 {
		return ErrEmptySample
	}
	return nil
}

func (r *Runner) trial(ctx context.Context, index int, warmup bool) (Trial, error) {
	if err := ctx.Err(); err != nil {
		return Trial{}, err
	}
	if r.pacer != nil {
		if err := r.pacer.Wait(ctx); err != nil {
			return Trial{}, err
		}
	}
	for _, o := range r.opt.Observers {
		ctx = o.TrialStarted(ctx, index, warmup)
	}

	start := time.Now()
	result, err := r.opt.Executor.Execute(ctx, r.opt.Command)
	elapsed := time.Since(start)

	trial := Trial{Index: index, Warmup: warmup, Elapsed: elapsed, Result: result}
	for _, o := range r.opt.Observers {
		o.TrialFinished(ctx, trial, err)
	}
	return trial, err
}
