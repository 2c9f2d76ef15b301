// Package threshold evaluates pass/fail assertions against the results of a
// benchmark run.
package threshold

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/torosent/exectime/internal/metrics"
	"github.com/torosent/exectime/internal/stats"
)

// Metric names.
const (
	MetricDuration = "duration"
	MetricTrials   = "trials"
)

var (
	durationAggregates = []string{"min", "max", "range", "mean", "avg", "median", "stddev", "stderr", "rse", "p50", "p90", "p99"}
	trialAggregates    = []string{"count", "failures", "abnormal", "failure_rate", "rate"}
	operators          = []string{"<", "<=", ">", ">=", "=="}
)

// pattern: metric:aggregate operator value, e.g. "duration:p99 < 250".
var pattern = regexp.MustCompile(`^([a-z_]+):([a-z0-9_]+)\s*([<>=!]+)\s*([0-9.]+)$`)

// Threshold represents an assertion that can pass or fail.
type Threshold struct {
	Metric    string  // "duration" or "trials"
	Aggregate string  // e.g. "p99", "mean", "rse", "failures"
	Operator  string  // "<", "<=", ">", ">=", "=="
	Value     float64 // durations in milliseconds, rse and failure_rate in percent
	Raw       string  // Original threshold string for display
}

// Result represents the outcome of evaluating a threshold.
type Result struct {
	Threshold Threshold `json:"-" yaml:"-"`
	Expr      string    `json:"threshold" yaml:"threshold"`
	Actual    float64   `json:"actual" yaml:"actual"`
	Pass      bool      `json:"pass" yaml:"pass"`
	Message   string    `json:"message" yaml:"message"`
}

// Input is what thresholds are evaluated against: the exact statistics of
// the sample (in nanoseconds) and the running trial metrics.
type Input struct {
	Sample stats.SampleStatistics
	Trials metrics.Stats
}

// Evaluator evaluates thresholds against run results.
type Evaluator struct {
	thresholds []Threshold
}

// NewEvaluator creates a new threshold evaluator.
func NewEvaluator(thresholds []Threshold) *Evaluator {
	return &Evaluator{
		thresholds: thresholds,
	}
}

// Evaluate checks all thresholds against in.
func (e *Evaluator) Evaluate(in Input) []Result {
	if len(e.thresholds) == 0 {
		return nil
	}

	results := make([]Result, 0, len(e.thresholds))
	for _, t := range e.thresholds {
		results = append(results, e.evaluateOne(t, in))
	}
	return results
}

func (e *Evaluator) evaluateOne(t Threshold, in Input) Result {
	actual, err := extractMetricValue(t, in)
	if err != nil {
		return Result{
			Threshold: t,
			Expr:      t.Raw,
			Pass:      false,
			Message:   fmt.Sprintf("error: %v", err),
		}
	}

	pass := compareValues(actual, t.Operator, t.Value)
	status := "✓"
	if !pass {
		status = "✗"
	}

	return Result{
		Threshold: t,
		Expr:      t.Raw,
		Actual:    actual,
		Pass:      pass,
		Message:   fmt.Sprintf("%s %s: %.3f %s %.3f", status, t.Raw, actual, t.Operator, t.Value),
	}
}

// Failed counts the results that did not pass.
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if !r.Pass {
			n++
		}
	}
	return n
}

// Parse parses a threshold string into a Threshold struct.
// Supported formats:
// - "duration:p99 < 250"        (percentile in ms)
// - "duration:mean <= 100"      (also min, max, range, median, stddev, stderr)
// - "duration:rse < 5"          (relative standard error in percent)
// - "trials:failures == 0"      (trials with a nonzero exit code)
// - "trials:failure_rate < 10"  (percent of trials with a nonzero exit code)
// - "trials:rate > 2"           (trials per second)
func Parse(s string) (Threshold, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Threshold{}, fmt.Errorf("empty threshold string")
	}

	matches := pattern.FindStringSubmatch(s)
	if matches == nil {
		return Threshold{}, fmt.Errorf("invalid threshold format: %q (expected format: metric:aggregate operator value, e.g., 'duration:p99 < 250')", s)
	}

	metric := matches[1]
	aggregate := matches[2]
	operator := matches[3]
	valueStr := matches[4]

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return Threshold{}, fmt.Errorf("invalid threshold value %q: %v", valueStr, err)
	}

	switch metric {
	case MetricDuration:
		if !slices.Contains(durationAggregates, aggregate) {
			return Threshold{}, fmt.Errorf("unsupported aggregate %q for duration (supported: %s)", aggregate, strings.Join(durationAggregates, ", "))
		}
	case MetricTrials:
		if !slices.Contains(trialAggregates, aggregate) {
			return Threshold{}, fmt.Errorf("unsupported aggregate %q for trials (supported: %s)", aggregate, strings.Join(trialAggregates, ", "))
		}
	default:
		return Threshold{}, fmt.Errorf("unsupported metric: %q (supported: duration, trials)", metric)
	}

	if !slices.Contains(operators, operator) {
		return Threshold{}, fmt.Errorf("unsupported operator: %q (supported: <, <=, >, >=, ==)", operator)
	}

	return Threshold{
		Metric:    metric,
		Aggregate: aggregate,
		Operator:  operator,
		Value:     value,
		Raw:       s,
	}, nil
}

// ParseMultiple parses multiple threshold strings.
func ParseMultiple(thresholds []string) ([]Threshold, error) {
	if len(thresholds) == 0 {
		return nil, nil
	}

	result := make([]Threshold, 0, len(thresholds))
	var errs []string

	for i, s := range thresholds {
		t, err := Parse(s)
		if err != nil {
			errs = append(errs, fmt.Sprintf("threshold[%d]: %v", i, err))
			continue
		}
		result = append(result, t)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("threshold parsing errors: %s", strings.Join(errs, "; "))
	}

	return result, nil
}

func extractMetricValue(t Threshold, in Input) (float64, error) {
	switch t.Metric {
	case MetricDuration:
		return extractDurationMetric(t.Aggregate, in)
	case MetricTrials:
		return extractTrialMetric(t.Aggregate, in.Trials)
	default:
		return 0, fmt.Errorf("unknown metric: %s", t.Metric)
	}
}

func extractDurationMetric(aggregate string, in Input) (float64, error) {
	s := in.Sample
	switch aggregate {
	case "min":
		return nsToMs(s.Minimum), nil
	case "max":
		return nsToMs(s.Maximum), nil
	case "range":
		return nsToMs(s.Range), nil
	case "mean", "avg":
		return nsToMs(s.Average), nil
	case "median":
		return nsToMs(s.Median), nil
	case "stddev":
		return nsToMs(s.StandardDeviation), nil
	case "stderr":
		return nsToMs(s.StandardError), nil
	case "rse":
		return s.RelativeStandardError, nil
	case "p50":
		return in.Trials.P50ElapsedMs, nil
	case "p90":
		return in.Trials.P90ElapsedMs, nil
	case "p99":
		return in.Trials.P99ElapsedMs, nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q for duration", aggregate)
	}
}

func extractTrialMetric(aggregate string, m metrics.Stats) (float64, error) {
	switch aggregate {
	case "count":
		return float64(m.Trials), nil
	case "failures":
		return float64(m.NonZeroExits), nil
	case "abnormal":
		return float64(m.Abnormal), nil
	case "failure_rate":
		if m.Trials == 0 {
			return 0, nil
		}
		return float64(m.NonZeroExits) / float64(m.Trials) * 100, nil
	case "rate":
		return m.TrialsPerSec, nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q for trials", aggregate)
	}
}

func nsToMs(ns float64) float64 {
	return ns / float64(time.Millisecond)
}

func compareValues(actual float64, operator string, expected float64) bool {
	// Handle floating point comparison with small epsilon
	epsilon := 1e-9

	switch operator {
	case "<":
		return actual < expected
	case "<=":
		return actual <= expected || math.Abs(actual-expected) < epsilon
	case ">":
		return actual > expected
	case ">=":
		return actual >= expected || math.Abs(actual-expected) < epsilon
	case "==":
		return math.Abs(actual-expected) < epsilon
	default:
		return false
	}
}
