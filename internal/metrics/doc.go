// Package metrics collects per-trial measurements while a benchmark runs.
//
// The exact descriptive statistics of the final sample live in package stats;
// this package keeps the running view used by progress output, the dashboard
// and the reports: an HDR histogram for percentiles, counts per exit code and
// a per-trial history.
//
//	collector := metrics.NewCollector()
//	collector.SetPlanned(10)
//	collector.Start()
//
//	collector.RecordTrial(elapsed, exitCode)
//
//	snapshot := collector.Stats()
//	history := collector.History()
//
// # Thread Safety
//
// Trials are recorded from the harness goroutine while reporters read
// snapshots from their own tickers, so every method takes the collector lock.
package metrics
