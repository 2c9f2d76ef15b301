package metrics_test

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/tidwall/gjson"

	"github.com/torosent/exectime/internal/metrics"
	"github.com/torosent/exectime/internal/process"
)

func TestCollectorElapsedStats(t *testing.T) {
	c := metrics.NewCollector()
	c.SetPlanned(5)

	c.RecordTrial(10*time.Millisecond, 0)
	c.RecordTrial(20*time.Millisecond, 0)
	c.RecordTrial(30*time.Millisecond, 1)
	c.RecordTrial(40*time.Millisecond, 0)
	c.RecordTrial(50*time.Millisecond, process.AbnormalExit)

	stats := c.Stats()

	if stats.Trials != 5 {
		t.Errorf("expected trials 5, got %d", stats.Trials)
	}
	if stats.NonZeroExits != 2 {
		t.Errorf("expected nonzero exits 2, got %d", stats.NonZeroExits)
	}
	if stats.Abnormal != 1 {
		t.Errorf("expected abnormal exits 1, got %d", stats.Abnormal)
	}
	if stats.MinElapsed != 10*time.Millisecond {
		t.Errorf("expected min 10ms, got %s", stats.MinElapsed)
	}
	if stats.MaxElapsed != 50*time.Millisecond {
		t.Errorf("expected max 50ms, got %s", stats.MaxElapsed)
	}
	if stats.MeanElapsed != 30*time.Millisecond {
		t.Errorf("expected mean 30ms, got %s", stats.MeanElapsed)
	}
	if stats.ExitCodes[0] != 3 || stats.ExitCodes[1] != 1 || stats.ExitCodes[-1] != 1 {
		t.Errorf("unexpected exit code breakdown %v", stats.ExitCodes)
	}
	if stats.Progress() != 1 {
		t.Errorf("expected progress 1, got %v", stats.Progress())
	}
	if stats.ETA() != 0 {
		t.Errorf("expected ETA 0 once all trials ran, got %s", stats.ETA())
	}
}

func TestCollectorMinimumAllowsZeroElapsed(t *testing.T) {
	c := metrics.NewCollector()
	c.RecordTrial(5*time.Millisecond, 0)
	c.RecordTrial(0, 0)
	if got := c.Stats().MinElapsed; got != 0 {
		t.Errorf("expected min 0, got %s", got)
	}
}

func TestPercentilesCalculations(t *testing.T) {
	c := metrics.NewCollector()

	// 100 samples: 1ms, 2ms, ..., 100ms.
	for i := 1; i <= 100; i++ {
		c.RecordTrial(time.Duration(i)*time.Millisecond, 0)
	}

	stats := c.Stats()

	if stats.P50Elapsed < 49*time.Millisecond || stats.P50Elapsed > 51*time.Millisecond {
		t.Errorf("expected P50 ~50ms, got %s", stats.P50Elapsed)
	}
	if stats.P90Elapsed < 89*time.Millisecond || stats.P90Elapsed > 91*time.Millisecond {
		t.Errorf("expected P90 ~90ms, got %s", stats.P90Elapsed)
	}
	if stats.P99Elapsed < 98*time.Millisecond || stats.P99Elapsed > 100*time.Millisecond {
		t.Errorf("expected P99 ~99ms, got %s", stats.P99Elapsed)
	}
}

func TestProgressAndETA(t *testing.T) {
	c := metrics.NewCollector()
	c.SetPlanned(4)
	c.RecordTrial(100*time.Millisecond, 0)

	stats := c.Stats()
	if stats.Progress() != 0.25 {
		t.Errorf("expected progress 0.25, got %v", stats.Progress())
	}
	if stats.ETA() != 300*time.Millisecond {
		t.Errorf("expected ETA 300ms, got %s", stats.ETA())
	}

	if (metrics.Stats{}).Progress() != 0 {
		t.Errorf("expected zero progress without a plan")
	}
}

func TestJSONReportSchema(t *testing.T) {
	c := metrics.NewCollector()
	c.RecordTrial(15*time.Millisecond, 0)
	c.RecordTrial(25*time.Millisecond, 2)

	data, err := json.Marshal(c.Stats())
	if err != nil {
		t.Fatalf("failed to marshal stats: %v", err)
	}

	requiredFields := []string{"trials", "planned", "nonzero_exits", "abnormal_exits", "min_ms", "max_ms", "mean_ms", "p50_ms", "p90_ms", "p99_ms", "duration_ms", "trials_per_sec"}
	for _, field := range requiredFields {
		if !gjson.GetBytes(data, field).Exists() {
			t.Errorf("missing field %q in JSON output", field)
		}
	}
	if got := gjson.GetBytes(data, "exit_codes.2").Int(); got != 1 {
		t.Errorf("expected exit_codes.2 = 1, got %d", got)
	}
	if got := gjson.GetBytes(data, "max_ms").Float(); got != 25 {
		t.Errorf("expected max_ms 25, got %v", got)
	}
}

func TestHistoryIsBounded(t *testing.T) {
	c := metrics.NewCollectorWithHistory(3)
	for i := 1; i <= 5; i++ {
		c.RecordTrial(time.Duration(i)*time.Millisecond, i%2)
	}
	history := c.History()
	if len(history) != 3 {
		t.Fatalf("expected 3 points, got %d", len(history))
	}
	if history[0].Trial != 3 || history[2].Trial != 5 {
		t.Errorf("expected trials 3..5, got %d..%d", history[0].Trial, history[2].Trial)
	}
	if history[2].ElapsedMs != 5 || history[2].ExitCode != 1 {
		t.Errorf("unexpected last point %+v", history[2])
	}

	history[0].Trial = 99
	if c.History()[0].Trial == 99 {
		t.Errorf("History must return a copy")
	}
}

func TestConcurrentRecording(t *testing.T) {
	c := metrics.NewCollector()

	var wg sync.WaitGroup
	workers := 10
	recordsPerWorker := 100

	wg.Add(workers + 1)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < recordsPerWorker; j++ {
				c.RecordTrial(time.Millisecond, 0)
			}
		}()
	}
	go func() {
		defer wg.Done()
		for j := 0; j < recordsPerWorker; j++ {
			_ = c.Stats()
			_ = c.History()
		}
	}()
	wg.Wait()

	stats := c.Stats()
	expected := workers * recordsPerWorker
	if stats.Trials != int64(expected) {
		t.Errorf("expected trials %d, got %d", expected, stats.Trials)
	}
}
