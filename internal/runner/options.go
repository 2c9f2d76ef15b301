package runner

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/torosent/exectime/internal/process"
)

// Executor runs a single command to completion.
type Executor interface {
	Execute(ctx context.Context, cmd process.Command) (process.Result, error)
}

// Recorder receives every measured trial. Start is called once, after the
// warmup trials and before the first measured one.
type Recorder interface {
	Start()
	RecordTrial(elapsed time.Duration, exitCode int)
}

// Observer is notified around each trial. TrialStarted may return a derived
// context that is passed to the executor and to TrialFinished.
type Observer interface {
	TrialStarted(ctx context.Context, index int, warmup bool) context.Context
	TrialFinished(ctx context.Context, trial Trial, err error)
}

// PacingModel selects how trial starts are spaced when a rate is set.
type PacingModel string

const (
	PacingUniform PacingModel = "uniform"
	PacingPoisson PacingModel = "poisson"
)

// Options configure the Runner.
type Options struct {
	Command        process.Command
	Iterations     int                             // measured trials, at least 1
	Warmup         int                             // untimed trials before the measured ones
	CompareOutputs bool                            // compare each trial's stdout to the reference
	Reference      []byte                          // external reference; non-nil enables comparison
	RatePerSecond  float64                         // trial starts per second (0 means unpaced)
	Pacing         PacingModel                     // spacing model when RatePerSecond > 0
	RandomSeed     int64                           // seed for Poisson pacing
	Executor       Executor                        // command executor (required)
	Recorder       Recorder                        // optional sink for measured trials
	Observers      []Observer                      // optional trial hooks
	LimiterFactory func(rps float64) *rate.Limiter // optional injection for tests
	Sampler        func() float64                  // optional exponential sampler for tests
}

func (o *Options) normalize() []string {
	var warnings []string
	if o.Iterations < 1 {
		warnings = append(warnings, fmt.Sprintf("iterations %d is below 1, using 1", o.Iterations))
		o.Iterations = 1
	}
	if o.Warmup < 0 {
		o.Warmup = 0
	}
	if o.RatePerSecond < 0 {
		o.RatePerSecond = 0
	}
	if o.Pacing == "" {
		o.Pacing = PacingUniform
	}
	if o.Reference != nil {
		o.CompareOutputs = true
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = func(rps float64) *rate.Limiter {
			if rps <= 0 {
				return rate.NewLimiter(rate.Inf, 0)
			}
			// Burst of one keeps sequential trials evenly spaced.
			return rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
	return warnings
}
