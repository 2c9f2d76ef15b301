package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/torosent/exectime/internal/config"
	"github.com/torosent/exectime/internal/dashboard"
	"github.com/torosent/exectime/internal/hostlock"
	"github.com/torosent/exectime/internal/metrics"
	"github.com/torosent/exectime/internal/output"
	"github.com/torosent/exectime/internal/process"
	"github.com/torosent/exectime/internal/runner"
	"github.com/torosent/exectime/internal/stats"
	"github.com/torosent/exectime/internal/threshold"
	"github.com/torosent/exectime/internal/tracing"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// Exit codes.
const (
	exitOK          = 0
	exitUsage       = 1 // no command, invalid configuration or setup failure
	exitMismatch    = 2
	exitEmptySample = 3
	exitExecution   = 4
	exitThreshold   = 5
	exitInterrupted = 130
)

const (
	progressInterval = 250 * time.Millisecond
	historySize      = 10000
	shutdownTimeout  = 5 * time.Second
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	log := newLogger(stderr, false)

	loader := config.NewLoader()
	loader.Out = stdout
	cfg, err := loader.Load(args)
	if err != nil {
		switch {
		case errors.Is(err, config.ErrHelpRequested):
			return exitOK
		case errors.Is(err, config.ErrVersionRequested):
			fmt.Fprintf(stdout, "exectime v%s\n", version)
			return exitOK
		}
		log.Errorf("%v", err)
		return exitUsage
	}

	log.SetColor(cfg.Color)
	for _, w := range cfg.Warnings {
		log.Warnf("%s", w)
	}
	if err := cfg.Validate(); err != nil {
		log.Errorf("%v", err)
		return exitUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return benchmark(ctx, cfg, stdout, log)
}

func benchmark(ctx context.Context, cfg *config.Config, stdout io.Writer, log *logger) int {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.LockFile != "" {
		lock, err := hostlock.Acquire(ctx, cfg.LockFile, hostlock.DefaultRetry)
		if err != nil {
			if ctx.Err() != nil {
				log.Errorf("interrupted while waiting for %s", cfg.LockFile)
				return exitInterrupted
			}
			log.Errorf("%v", err)
			return exitUsage
		}
		defer func() {
			if err := lock.Release(); err != nil {
				log.Warnf("release lock %s: %v", lock.Path(), err)
			}
		}()
	}

	provider, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		log.Errorf("%v", err)
		return exitUsage
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			log.Warnf("tracing shutdown: %v", err)
		}
	}()

	cmd := process.Command(cfg.Command)
	runID := output.NewRunID()

	proc := process.New(cfg.Diagnostics)
	var observers []runner.Observer
	if provider.Enabled() {
		observers = append(observers, tracing.NewTrialObserver(provider.Tracer()))
	}
	if provider.ShouldPropagate() {
		proc.Environ = tracing.Environ
	}

	var exec runner.Executor = proc
	if cfg.LogTrials {
		exec = runner.WithLogging(exec, log)
		observers = append(observers, newTrialLogger(log, cfg.Iterations, cfg.Warmup))
	}

	collector := metrics.NewCollectorWithHistory(historySize)
	collector.SetPlanned(cfg.Iterations)

	r := runner.New(runner.Options{
		Command:        cmd,
		Iterations:     cfg.Iterations,
		Warmup:         cfg.Warmup,
		CompareOutputs: cfg.CompareOutputs(),
		Reference:      cfg.Reference,
		RatePerSecond:  cfg.Rate,
		Pacing:         runner.PacingModel(cfg.Pacing),
		RandomSeed:     time.Now().UnixNano(),
		Executor:       exec,
		Recorder:       collector,
		Observers:      observers,
	})
	for _, w := range r.Warnings() {
		log.Warnf("%s", w)
	}

	ctx, runSpan := tracing.StartRunSpan(ctx, provider.Tracer(), cmd, cfg.Iterations)
	runSpan.SetAttributes(tracing.AttrRunID.String(runID))

	stopLive, err := startLiveView(cfg, collector, cancel, log)
	if err != nil {
		tracing.EndSpan(runSpan, err)
		log.Errorf("%v", err)
		return exitUsage
	}

	res, runErr := r.Run(ctx)
	stopLive()
	tracing.EndSpan(runSpan, runErr)

	if runErr != nil {
		var cmpErr *runner.ComparisonError
		if errors.As(runErr, &cmpErr) {
			output.PrintMismatch(stdout, cmpErr.Trial, cmpErr.Expected, cmpErr.Actual, cfg.Color)
		} else {
			log.Errorf("%v", runErr)
		}
		return exitCodeFor(runErr)
	}

	sample := stats.CalculateDurations(res.Sample)
	trialStats := collector.Stats()
	report := output.Report{
		RunID:       runID,
		Command:     cfg.Command,
		GeneratedAt: time.Now(),
		Warmup:      res.WarmupRun,
		Statistics:  sample,
		Trials:      trialStats,
		History:     collector.History(),
	}
	if len(cfg.Thresholds) > 0 {
		thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
		if err != nil {
			log.Errorf("%v", err)
			return exitUsage
		}
		report.Thresholds = threshold.NewEvaluator(thresholds).Evaluate(threshold.Input{Sample: sample, Trials: trialStats})
	}

	if err := writeReport(stdout, cfg, report); err != nil {
		log.Errorf("write report: %v", err)
		return exitUsage
	}
	if cfg.HTMLOutput != "" {
		if err := writeHTMLReport(cfg.HTMLOutput, report); err != nil {
			log.Errorf("%v", err)
			return exitUsage
		}
		log.Infof("HTML report written to %s", cfg.HTMLOutput)
	}

	if failed := threshold.Failed(report.Thresholds); failed > 0 {
		log.Errorf("%d of %d thresholds failed", failed, len(report.Thresholds))
		return exitThreshold
	}
	return exitOK
}

// startLiveView starts the dashboard or the progress line, if requested, and
// returns the function that stops it.
func startLiveView(cfg *config.Config, collector *metrics.Collector, cancel context.CancelFunc, log *logger) (func(), error) {
	switch {
	case cfg.Dashboard:
		dash, err := dashboard.New(collector, dashboard.RunConfig{
			Command:    process.Command(cfg.Command).String(),
			Iterations: cfg.Iterations,
			Warmup:     cfg.Warmup,
			Rate:       cfg.Rate,
			Pacing:     string(cfg.Pacing),
			ConfigFile: cfg.ConfigFile,
		}, cancel)
		if err != nil {
			return nil, err
		}
		dash.Start()
		return dash.Stop, nil
	case cfg.Progress:
		progress := output.NewProgressReporter(collector, progressInterval, log.StatusWriter(), output.TerminalWidth(os.Stderr, 80))
		progress.Start()
		return progress.Stop, nil
	default:
		return func() {}, nil
	}
}

func writeReport(w io.Writer, cfg *config.Config, report output.Report) error {
	switch cfg.Format {
	case config.FormatJSON:
		return output.PrintJSONReport(w, report)
	case config.FormatYAML:
		return output.PrintYAMLReport(w, report)
	default:
		output.PrintReport(w, report, output.TextOptions{Color: cfg.Color, Width: terminalWidth(w)})
		return nil
	}
}

func writeHTMLReport(path string, report output.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create HTML report: %w", err)
	}
	if err := output.GenerateHTMLReport(f, report); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// terminalWidth returns the width of w when it is a terminal, else 0.
func terminalWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok {
		return output.TerminalWidth(f, 0)
	}
	return 0
}

// exitCodeFor maps a run error to the process exit code. Spawn, stream and
// exec failures, and anything unclassified, are execution failures.
func exitCodeFor(err error) int {
	var cmpErr *runner.ComparisonError
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &cmpErr):
		return exitMismatch
	case errors.Is(err, runner.ErrEmptySample):
		return exitEmptySample
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	default:
		return exitExecution
	}
}
