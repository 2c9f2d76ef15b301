// Package stats computes descriptive statistics over a sample of trial
// durations.
package stats

import (
	"math"
	"slices"
	"time"
)

// UndefinedRSE is the relative standard error reported when the sample
// average is zero.
const UndefinedRSE = 100.0

// SigmaBand counts the sample values within K standard deviations of the
// average, next to the share a normal distribution would put there.
type SigmaBand struct {
	K        int     `json:"k" yaml:"k"`
	Count    int     `json:"count" yaml:"count"`
	Percent  float64 `json:"percent" yaml:"percent"`
	Expected float64 `json:"expected_percent" yaml:"expected_percent"`
}

// normalCoverage holds the theoretical occupancy of ±1σ, ±2σ and ±3σ.
var normalCoverage = [...]float64{68.27, 95.45, 99.73}

// SampleStatistics summarizes one sample. Values share the unit of the
// input (nanoseconds for CalculateDurations) except RelativeStandardError,
// which is a percentage.
type SampleStatistics struct {
	SampleSize            int         `json:"sample_size" yaml:"sample_size"`
	Minimum               float64     `json:"minimum" yaml:"minimum"`
	Maximum               float64     `json:"maximum" yaml:"maximum"`
	Range                 float64     `json:"range" yaml:"range"`
	Average               float64     `json:"average" yaml:"average"`
	Median                float64     `json:"median" yaml:"median"`
	Variance              float64     `json:"variance" yaml:"variance"`
	StandardDeviation     float64     `json:"standard_deviation" yaml:"standard_deviation"`
	StandardError         float64     `json:"standard_error" yaml:"standard_error"`
	RelativeStandardError float64     `json:"relative_standard_error" yaml:"relative_standard_error"`
	SigmaBands            []SigmaBand `json:"sigma_bands" yaml:"sigma_bands"`
}

// Calculate returns the statistics of sample. The caller's slice is not
// reordered. An empty sample yields a zeroed record.
func Calculate(sample []float64) SampleStatistics {
	s := SampleStatistics{SampleSize: len(sample), SigmaBands: emptyBands()}
	if len(sample) == 0 {
		return s
	}

	sorted := slices.Clone(sample)
	slices.Sort(sorted)
	n := float64(len(sorted))

	s.Minimum = sorted[0]
	s.Maximum = sorted[len(sorted)-1]
	s.Range = s.Maximum - s.Minimum
	s.Median = median(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	s.Average = sum / n

	var squares float64
	for _, v := range sorted {
		d := v - s.Average
		squares += d * d
	}
	s.Variance = squares / n
	s.StandardDeviation = math.Sqrt(s.Variance)
	s.StandardError = s.StandardDeviation / math.Sqrt(n)
	if s.Average == 0 {
		s.RelativeStandardError = UndefinedRSE
	} else {
		s.RelativeStandardError = s.StandardError / s.Average * 100
	}

	for i := range s.SigmaBands {
		band := &s.SigmaBands[i]
		lo, hi := s.Interval(band.K)
		for _, v := range sorted {
			if v >= lo && v <= hi {
				band.Count++
			}
		}
		band.Percent = float64(band.Count) / n * 100
	}
	return s
}

// CalculateDurations is Calculate over durations, in nanoseconds.
func CalculateDurations(sample []time.Duration) SampleStatistics {
	values := make([]float64, len(sample))
	for i, d := range sample {
		values[i] = float64(d)
	}
	return Calculate(values)
}

// Interval returns [Average-kσ, Average+kσ].
func (s SampleStatistics) Interval(k int) (float64, float64) {
	spread := float64(k) * s.StandardDeviation
	return s.Average - spread, s.Average + spread
}

func median(sorted []float64) float64 {
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	a, b := sorted[mid-1], sorted[mid]
	return a + (b-a)/2
}

func emptyBands() []SigmaBand {
	bands := make([]SigmaBand, len(normalCoverage))
	for i, expected := range normalCoverage {
		bands[i] = SigmaBand{K: i + 1, Expected: expected}
	}
	return bands
}
