package metrics

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/torosent/exectime/internal/process"
)

// Collector records per-trial metrics in a thread-safe manner.
type Collector struct {
	mu          sync.Mutex
	hist        *hdrhistogram.Histogram
	trials      int64
	planned     int64
	nonZero     int64
	abnormal    int64
	minElapsed  time.Duration
	maxElapsed  time.Duration
	sumElapsed  time.Duration
	exitCodes   map[int]int64
	history     []DataPoint
	start       time.Time
	historySize int
}

// DataPoint is one measured trial.
type DataPoint struct {
	Trial     int           `json:"trial" yaml:"trial"`
	Timestamp time.Time     `json:"timestamp" yaml:"timestamp"`
	Elapsed   time.Duration `json:"-" yaml:"-"`
	ElapsedMs float64       `json:"elapsed_ms" yaml:"elapsed_ms"`
	ExitCode  int           `json:"exit_code" yaml:"exit_code"`
}

// Stats represents the running aggregate of recorded trials.
type Stats struct {
	Trials       int64         `json:"trials" yaml:"trials"`
	Planned      int64         `json:"planned" yaml:"planned"`
	NonZeroExits int64         `json:"nonzero_exits" yaml:"nonzero_exits"`
	Abnormal     int64         `json:"abnormal_exits" yaml:"abnormal_exits"`
	MinElapsed   time.Duration `json:"-" yaml:"-"`
	MaxElapsed   time.Duration `json:"-" yaml:"-"`
	MeanElapsed  time.Duration `json:"-" yaml:"-"`
	P50Elapsed   time.Duration `json:"-" yaml:"-"`
	P90Elapsed   time.Duration `json:"-" yaml:"-"`
	P99Elapsed   time.Duration `json:"-" yaml:"-"`
	Duration     time.Duration `json:"-" yaml:"-"`
	TrialsPerSec float64       `json:"trials_per_sec" yaml:"trials_per_sec"`

	// JSON-friendly millisecond fields.
	MinElapsedMs  float64       `json:"min_ms" yaml:"min_ms"`
	MaxElapsedMs  float64       `json:"max_ms" yaml:"max_ms"`
	MeanElapsedMs float64       `json:"mean_ms" yaml:"mean_ms"`
	P50ElapsedMs  float64       `json:"p50_ms" yaml:"p50_ms"`
	P90ElapsedMs  float64       `json:"p90_ms" yaml:"p90_ms"`
	P99ElapsedMs  float64       `json:"p99_ms" yaml:"p99_ms"`
	DurationMs    float64       `json:"duration_ms" yaml:"duration_ms"`
	ExitCodes     map[int]int64 `json:"exit_codes,omitempty" yaml:"exit_codes,omitempty"`
}

// Progress returns the completed fraction of planned trials in [0,1], or 0
// when nothing is planned.
func (s Stats) Progress() float64 {
	if s.Planned <= 0 {
		return 0
	}
	p := float64(s.Trials) / float64(s.Planned)
	if p > 1 {
		return 1
	}
	return p
}

// ETA estimates the time left for the remaining planned trials from the mean
// trial time so far.
func (s Stats) ETA() time.Duration {
	remaining := s.Planned - s.Trials
	if remaining <= 0 || s.Trials == 0 {
		return 0
	}
	return time.Duration(remaining) * s.MeanElapsed
}

// NewCollector returns a collector whose history keeps every trial.
func NewCollector() *Collector {
	return NewCollectorWithHistory(0)
}

// NewCollectorWithHistory bounds the per-trial history to the most recent
// size points. A size <= 0 keeps everything.
func NewCollectorWithHistory(size int) *Collector {
	// Track trials from 1µs up to one hour with 3 significant figures.
	h := hdrhistogram.New(1, int64(time.Hour/time.Microsecond), 3)
	return &Collector{
		hist:        h,
		exitCodes:   make(map[int]int64),
		start:       time.Now(),
		historySize: size,
	}
}

// Start resets the wall-clock origin used for Duration and TrialsPerSec.
func (c *Collector) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.start = time.Now()
}

// SetPlanned records how many measured trials the run intends to execute.
func (c *Collector) SetPlanned(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.planned = int64(n)
}

// RecordTrial records one measured trial.
func (c *Collector) RecordTrial(elapsed time.Duration, exitCode int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	us := elapsed.Microseconds()
	if us < c.hist.LowestTrackableValue() {
		us = c.hist.LowestTrackableValue()
	}
	if us > c.hist.HighestTrackableValue() {
		us = c.hist.HighestTrackableValue()
	}
	_ = c.hist.RecordValue(us)

	c.trials++
	c.sumElapsed += elapsed
	if c.trials == 1 || elapsed < c.minElapsed {
		c.minElapsed = elapsed
	}
	if elapsed > c.maxElapsed {
		c.maxElapsed = elapsed
	}
	if exitCode != 0 {
		c.nonZero++
	}
	if exitCode == process.AbnormalExit {
		c.abnormal++
	}
	c.exitCodes[exitCode]++

	c.history = append(c.history, DataPoint{
		Trial:     int(c.trials),
		Timestamp: time.Now(),
		Elapsed:   elapsed,
		ElapsedMs: toMs(elapsed),
		ExitCode:  exitCode,
	})
	if c.historySize > 0 && len(c.history) > c.historySize {
		c.history = c.history[len(c.history)-c.historySize:]
	}
}

// Stats computes and returns current aggregated statistics.
func (c *Collector) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := Stats{
		Trials:       c.trials,
		Planned:      c.planned,
		NonZeroExits: c.nonZero,
		Abnormal:     c.abnormal,
		MinElapsed:   c.minElapsed,
		MaxElapsed:   c.maxElapsed,
	}
	if c.trials > 0 {
		stats.MeanElapsed = time.Duration(int64(c.sumElapsed) / c.trials)
	}
	if c.hist.TotalCount() > 0 {
		stats.P50Elapsed = time.Duration(c.hist.ValueAtQuantile(50)) * time.Microsecond
		stats.P90Elapsed = time.Duration(c.hist.ValueAtQuantile(90)) * time.Microsecond
		stats.P99Elapsed = time.Duration(c.hist.ValueAtQuantile(99)) * time.Microsecond
	}

	stats.MinElapsedMs = toMs(stats.MinElapsed)
	stats.MaxElapsedMs = toMs(stats.MaxElapsed)
	stats.MeanElapsedMs = toMs(stats.MeanElapsed)
	stats.P50ElapsedMs = toMs(stats.P50Elapsed)
	stats.P90ElapsedMs = toMs(stats.P90Elapsed)
	stats.P99ElapsedMs = toMs(stats.P99Elapsed)

	stats.Duration = time.Since(c.start)
	stats.DurationMs = toMs(stats.Duration)
	if stats.Duration > 0 && c.trials > 0 {
		stats.TrialsPerSec = float64(c.trials) / stats.Duration.Seconds()
	}

	if len(c.exitCodes) > 0 {
		stats.ExitCodes = make(map[int]int64, len(c.exitCodes))
		for k, v := range c.exitCodes {
			stats.ExitCodes[k] = v
		}
	}
	return stats
}

// History returns a copy of the recorded per-trial points, oldest first.
func (c *Collector) History() []DataPoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]DataPoint, len(c.history))
	copy(out, c.history)
	return out
}

func toMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
