// Package runner executes the timed trials of a benchmark.
//
// A [Runner] invokes one command a fixed number of times, strictly one after
// another, and records how long each invocation took on the monotonic clock:
//
//	r := runner.New(runner.Options{
//		Command:    process.Command{"/bin/ls", "-l"},
//		Iterations: 10,
//		Executor:   process.New(false),
//	})
//	res, err := r.Run(ctx)
//
// # Output Comparison
//
// With CompareOutputs set, or a Reference supplied, every trial's standard
// output must match the reference byte for byte. Without a Reference the
// first measured trial provides it. The first mismatch stops the run with a
// [ComparisonError]; remaining trials are not executed.
//
// # Warmup and Pacing
//
// Warmup trials run before the measured ones and are neither timed nor
// compared. RatePerSecond spaces trial starts with a rate limiter, uniformly
// or with exponential (Poisson) gaps; the wait happens before the clock
// starts so it never counts toward a trial.
//
// # Observers and Middleware
//
// [Observer] implementations are notified around every trial, outside the
// timed region. [WithLogging] wraps an [Executor] to report execution
// failures.
//
// # Cancellation
//
// The context is checked before every trial. A trial that has started is
// never interrupted: a child that does not exit blocks the run.
package runner
