// Package output renders benchmark results for terminals and files.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/oklog/ulid/v2"
	"gopkg.in/yaml.v3"

	"github.com/torosent/exectime/internal/metrics"
	"github.com/torosent/exectime/internal/stats"
	"github.com/torosent/exectime/internal/threshold"
)

const prefix = "exectime:"

// Report is everything known about a finished run.
type Report struct {
	RunID       string
	Command     []string
	GeneratedAt time.Time
	Warmup      int
	Statistics  stats.SampleStatistics // nanoseconds
	Trials      metrics.Stats
	History     []metrics.DataPoint
	Thresholds  []threshold.Result
}

// NewRunID returns a new lexically sortable run identifier.
func NewRunID() string {
	return ulid.Make().String()
}

// TextOptions control the human-readable report.
type TextOptions struct {
	Color bool
	Width int // terminal columns available for sigma bars; 0 disables them
}

type palette struct {
	label, value, good, bad, dim *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		label: color.New(color.FgCyan),
		value: color.New(color.FgGreen),
		good:  color.New(color.FgGreen, color.Bold),
		bad:   color.New(color.FgRed, color.Bold),
		dim:   color.New(color.FgHiBlack),
	}
	for _, c := range []*color.Color{p.label, p.value, p.good, p.bad, p.dim} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// PrintReport outputs a human-readable summary report.
func PrintReport(w io.Writer, r Report, opts TextOptions) {
	p := newPalette(opts.Color)
	s := r.Statistics
	sc := scaleFor(s.Average)

	line := func(label, format string, args ...interface{}) {
		fmt.Fprintf(w, "%s %s %s\n", prefix, p.label.Sprintf("%-5s", label), fmt.Sprintf(format, args...))
	}

	fmt.Fprintln(w)
	line("cmd", "%q", strings.Join(r.Command, " "))
	runs := fmt.Sprintf("%d", s.SampleSize)
	if r.Warmup > 0 {
		runs += p.dim.Sprintf(" (+%d warmup)", r.Warmup)
	}
	line("runs", "%s", runs)
	line("range", "%s … %s %s", p.value.Sprint(sc.format(s.Minimum)), p.value.Sprint(sc.format(s.Maximum)),
		p.dim.Sprintf("(%s)", sc.format(s.Range)))
	line("avg", "%s", p.value.Sprint(sc.format(s.Average)))
	line("med", "%s", p.value.Sprint(sc.format(s.Median)))
	lo, hi := s.Interval(1)
	line("sd", "%s %s", p.value.Sprint(sc.format(s.StandardDeviation)),
		p.dim.Sprintf("(%s … %s)", sc.format(lo), sc.format(hi)))
	for _, b := range s.SigmaBands {
		line(fmt.Sprintf("±%dσ", b.K), "%s %s%s", p.value.Sprintf("%6.2f%%", b.Percent),
			p.dim.Sprintf("%d/%d, normal %.2f%%", b.Count, s.SampleSize, b.Expected), sigmaBar(b.Percent, opts.Width))
	}
	line("se", "%s", p.value.Sprint(sc.format(s.StandardError)))
	line("rse", "%s", p.value.Sprintf("%.2f%%", s.RelativeStandardError))

	if r.Trials.Trials > 0 {
		t := r.Trials
		line("pct", "p50 %s  p90 %s  p99 %s",
			sc.format(float64(t.P50Elapsed)), sc.format(float64(t.P90Elapsed)), sc.format(float64(t.P99Elapsed)))
		var codes []string
		for _, b := range metrics.FlattenExitCodes(t.ExitCodes) {
			c := p.good
			if b.Code != 0 {
				c = p.bad
			}
			codes = append(codes, c.Sprintf("%s×%d", metrics.ExitCodeLabel(b.Code), b.Count))
		}
		line("exit", "%s", strings.Join(codes, " "))
	}

	if len(r.Thresholds) > 0 {
		fmt.Fprintln(w)
		failed := threshold.Failed(r.Thresholds)
		summary := p.good.Sprintf("%d/%d passed", len(r.Thresholds)-failed, len(r.Thresholds))
		if failed > 0 {
			summary = p.bad.Sprintf("%d/%d passed", len(r.Thresholds)-failed, len(r.Thresholds))
		}
		fmt.Fprintf(w, "%s thresholds %s\n", prefix, summary)
		for _, res := range r.Thresholds {
			c := p.good
			if !res.Pass {
				c = p.bad
			}
			fmt.Fprintf(w, "%s   %s\n", prefix, c.Sprint(res.Message))
		}
	}
}

// sigmaBar draws percent as a bar sized to the space left on a report line.
func sigmaBar(percent float64, width int) string {
	const used = 48
	avail := width - used
	if avail < 10 {
		return ""
	}
	if avail > 50 {
		avail = 50
	}
	filled := int(percent / 100 * float64(avail))
	if filled > avail {
		filled = avail
	}
	return " " + strings.Repeat("█", filled) + strings.Repeat("░", avail-filled)
}

// PrintMismatch reports the first output difference with both payloads.
func PrintMismatch(w io.Writer, trial int, expected, actual []byte, useColor bool) {
	p := newPalette(useColor)
	fmt.Fprintf(w, "%s %s at iteration %d\n", prefix, p.bad.Sprint("stdout mismatch"), trial)
	fmt.Fprintf(w, "%s %s (%d bytes)\n%s", prefix, p.label.Sprint("expected"), len(expected), terminated(expected))
	fmt.Fprintf(w, "%s %s (%d bytes)\n%s", prefix, p.label.Sprint("actual"), len(actual), terminated(actual))
}

func terminated(b []byte) string {
	s := string(b)
	if s != "" && !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	return s
}

// Document is the machine-readable report shared by the JSON and YAML
// formats. Durations are in milliseconds.
type Document struct {
	RunID         string                   `json:"run_id" yaml:"run_id"`
	Command       []string                 `json:"command" yaml:"command"`
	GeneratedAt   string                   `json:"generated_at" yaml:"generated_at"`
	SampleSize    int                      `json:"sample_size" yaml:"sample_size"`
	Warmup        int                      `json:"warmup" yaml:"warmup"`
	MinMs         float64                  `json:"min_ms" yaml:"min_ms"`
	MaxMs         float64                  `json:"max_ms" yaml:"max_ms"`
	RangeMs       float64                  `json:"range_ms" yaml:"range_ms"`
	MeanMs        float64                  `json:"mean_ms" yaml:"mean_ms"`
	MedianMs      float64                  `json:"median_ms" yaml:"median_ms"`
	VarianceMs2   float64                  `json:"variance_ms2" yaml:"variance_ms2"`
	StdDevMs      float64                  `json:"stddev_ms" yaml:"stddev_ms"`
	StdDevRangeMs [2]float64               `json:"stddev_interval_ms" yaml:"stddev_interval_ms,flow"`
	StdErrMs      float64                  `json:"stderr_ms" yaml:"stderr_ms"`
	RSEPercent    float64                  `json:"rse_percent" yaml:"rse_percent"`
	SigmaBands    []stats.SigmaBand        `json:"sigma_bands" yaml:"sigma_bands"`
	Trials        metrics.Stats            `json:"trials" yaml:"trials"`
	ExitCodes     []metrics.ExitCodeBucket `json:"exit_codes" yaml:"exit_codes"`
	Thresholds    []threshold.Result       `json:"thresholds,omitempty" yaml:"thresholds,omitempty"`
}

// NewDocument converts r for serialization.
func NewDocument(r Report) Document {
	s := r.Statistics
	lo, hi := s.Interval(1)
	bands := s.SigmaBands
	if bands == nil {
		bands = []stats.SigmaBand{}
	}
	codes := metrics.FlattenExitCodes(r.Trials.ExitCodes)
	if codes == nil {
		codes = []metrics.ExitCodeBucket{}
	}
	return Document{
		RunID:         r.RunID,
		Command:       r.Command,
		GeneratedAt:   r.GeneratedAt.UTC().Format(time.RFC3339),
		SampleSize:    s.SampleSize,
		Warmup:        r.Warmup,
		MinMs:         nsToMs(s.Minimum),
		MaxMs:         nsToMs(s.Maximum),
		RangeMs:       nsToMs(s.Range),
		MeanMs:        nsToMs(s.Average),
		MedianMs:      nsToMs(s.Median),
		VarianceMs2:   s.Variance / float64(time.Millisecond) / float64(time.Millisecond),
		StdDevMs:      nsToMs(s.StandardDeviation),
		StdDevRangeMs: [2]float64{nsToMs(lo), nsToMs(hi)},
		StdErrMs:      nsToMs(s.StandardError),
		RSEPercent:    s.RelativeStandardError,
		SigmaBands:    bands,
		Trials:        r.Trials,
		ExitCodes:     codes,
		Thresholds:    r.Thresholds,
	}
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewDocument(r))
}

// PrintYAMLReport outputs a YAML-formatted report.
func PrintYAMLReport(w io.Writer, r Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(NewDocument(r)); err != nil {
		return err
	}
	return enc.Close()
}

func nsToMs(ns float64) float64 {
	return ns / float64(time.Millisecond)
}
