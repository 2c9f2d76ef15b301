package output

import (
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/torosent/exectime/internal/metrics"
)

const clearLine = "\r\033[K"

// ProgressReporter displays real-time progress updates.
type ProgressReporter struct {
	collector *metrics.Collector
	ticker    *time.Ticker
	done      chan struct{}
	finished  chan struct{}
	writer    io.Writer
	width     int
	active    int32
}

// NewProgressReporter creates a progress reporter that updates at the given
// interval. width is the terminal width; lines are never drawn wider.
func NewProgressReporter(collector *metrics.Collector, interval time.Duration, writer io.Writer, width int) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	return &ProgressReporter{
		collector: collector,
		ticker:    time.NewTicker(interval),
		done:      make(chan struct{}),
		finished:  make(chan struct{}),
		writer:    writer,
		width:     width,
	}
}

// Start begins displaying progress updates in a background goroutine.
func (p *ProgressReporter) Start() {
	if !atomic.CompareAndSwapInt32(&p.active, 0, 1) {
		return // already running
	}
	go p.run()
}

// Stop halts progress updates and erases the progress line.
func (p *ProgressReporter) Stop() {
	if atomic.CompareAndSwapInt32(&p.active, 1, 0) {
		close(p.done)
		p.ticker.Stop()
		<-p.finished
		fmt.Fprint(p.writer, clearLine)
	}
}

func (p *ProgressReporter) run() {
	defer close(p.finished)
	for {
		select {
		case <-p.ticker.C:
			fmt.Fprint(p.writer, clearLine+progressLine(p.collector.Stats(), p.width))
		case <-p.done:
			return
		}
	}
}

// progressLine renders "Trials: n/N | mean | [bar] | ETA hh:mm:ss".
func progressLine(s metrics.Stats, width int) string {
	head := fmt.Sprintf("Trials: %d/%d", s.Trials, s.Planned)
	if s.Trials > 0 {
		head += " | mean " + FormatDuration(float64(s.MeanElapsed))
	}
	eta := s.ETA()
	tail := fmt.Sprintf(" | ETA %02d:%02d:%02d", int(eta.Hours()), int(eta.Minutes())%60, int(eta.Seconds())%60)

	barWidth := width - len([]rune(head)) - len(tail) - 5
	if barWidth > 40 {
		barWidth = 40
	}
	if barWidth < 5 {
		return head + tail
	}
	done := int(s.Progress() * float64(barWidth))
	return head + " | [" + strings.Repeat("=", done) + strings.Repeat(" ", barWidth-done) + "]" + tail
}
