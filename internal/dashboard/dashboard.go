// Package dashboard renders a live terminal view of a benchmark run.
package dashboard

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/torosent/exectime/internal/metrics"
)

// sparklineWidth is how many recent trials the elapsed-time sparkline shows.
const sparklineWidth = 100

// RunConfig holds run parameters for display.
type RunConfig struct {
	Command    string
	Iterations int
	Warmup     int
	Rate       float64 // trials per second, 0 = back to back
	Pacing     string
	ConfigFile string
}

// Dashboard renders a live terminal UI for trial metrics.
type Dashboard struct {
	collector    *metrics.Collector
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownFunc func()
	wg           sync.WaitGroup
	mu           sync.Mutex

	grid          *ui.Grid
	elapsedSpark  *widgets.SparklineGroup
	statsPara     *widgets.Paragraph
	progressGauge *widgets.Gauge
	exitList      *widgets.List
	summaryPara   *widgets.Paragraph
	startTime     time.Time
	cfg           RunConfig
}

// New initializes the terminal and creates a Dashboard. shutdownFunc is
// called when the user presses q or Ctrl-C.
func New(collector *metrics.Collector, cfg RunConfig, shutdownFunc func()) (*Dashboard, error) {
	if err := ui.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize termui: %w", err)
	}

	d := newDashboard(collector, cfg, shutdownFunc)
	d.setupGrid()
	return d, nil
}

func newDashboard(collector *metrics.Collector, cfg RunConfig, shutdownFunc func()) *Dashboard {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dashboard{
		collector:    collector,
		ctx:          ctx,
		cancel:       cancel,
		shutdownFunc: shutdownFunc,
		startTime:    time.Now(),
		cfg:          cfg,
	}
	d.initWidgets()
	return d
}

func (d *Dashboard) initWidgets() {
	sparkline := widgets.NewSparkline()
	sparkline.Title = "Elapsed (ms)"
	sparkline.LineColor = ui.ColorGreen
	sparkline.Data = []float64{0}

	d.elapsedSpark = widgets.NewSparklineGroup(sparkline)
	d.elapsedSpark.Title = "Elapsed per trial"
	d.elapsedSpark.BorderStyle.Fg = ui.ColorCyan

	d.statsPara = widgets.NewParagraph()
	d.statsPara.Title = "Timing"
	d.statsPara.Text = "Waiting for the first trial..."
	d.statsPara.BorderStyle.Fg = ui.ColorCyan

	d.progressGauge = widgets.NewGauge()
	d.progressGauge.Title = "Progress"
	d.progressGauge.BarColor = ui.ColorBlue
	d.progressGauge.BorderStyle.Fg = ui.ColorCyan
	d.progressGauge.LabelStyle = ui.NewStyle(ui.ColorWhite)

	d.exitList = widgets.NewList()
	d.exitList.Title = "Exit codes"
	d.exitList.Rows = []string{"Awaiting data"}
	d.exitList.TextStyle = ui.NewStyle(ui.ColorYellow)
	d.exitList.BorderStyle.Fg = ui.ColorCyan

	d.summaryPara = widgets.NewParagraph()
	d.summaryPara.Title = "exectime"
	d.summaryPara.Text = "Initializing..."
	d.summaryPara.BorderStyle.Fg = ui.ColorCyan
}

func (d *Dashboard) setupGrid() {
	termWidth, termHeight := ui.TerminalDimensions()

	d.grid = ui.NewGrid()
	d.grid.SetRect(0, 0, termWidth, termHeight)
	d.grid.Set(
		ui.NewRow(0.2,
			ui.NewCol(1.0, d.summaryPara),
		),
		ui.NewRow(0.15,
			ui.NewCol(1.0, d.progressGauge),
		),
		ui.NewRow(0.4,
			ui.NewCol(1.0, d.elapsedSpark),
		),
		ui.NewRow(0.25,
			ui.NewCol(0.6, d.statsPara),
			ui.NewCol(0.4, d.exitList),
		),
	)
}

// Start begins the dashboard update loop.
func (d *Dashboard) Start() {
	d.wg.Add(1)
	go d.run()
}

// Stop stops the dashboard and restores the terminal.
func (d *Dashboard) Stop() {
	d.cancel()
	d.wg.Wait()
	ui.Close()
	// Give terminal time to restore
	time.Sleep(100 * time.Millisecond)
}

func (d *Dashboard) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	uiEvents := ui.PollEvents()

	d.update()
	d.render()

	for {
		select {
		case <-d.ctx.Done():
			for len(uiEvents) > 0 {
				<-uiEvents
			}
			return
		case e := <-uiEvents:
			select {
			case <-d.ctx.Done():
				return
			default:
			}

			switch e.ID {
			case "q", "<C-c>":
				if d.shutdownFunc != nil {
					d.shutdownFunc()
				}
				// Stop() cancels the context once the run has unwound.
			case "<Resize>":
				payload := e.Payload.(ui.Resize)
				d.mu.Lock()
				d.grid.SetRect(0, 0, payload.Width, payload.Height)
				d.mu.Unlock()
				ui.Clear()
				d.render()
			}
		case <-ticker.C:
			d.update()
			d.render()
		}
	}
}

// update refreshes all widget data from the collector.
func (d *Dashboard) update() {
	d.mu.Lock()
	defer d.mu.Unlock()

	stats := d.collector.Stats()
	elapsed := time.Since(d.startTime)

	if data := sparklineData(d.collector.History(), sparklineWidth); len(data) > 0 {
		d.elapsedSpark.Sparklines[0].Data = data
		last := data[len(data)-1]
		d.elapsedSpark.Title = fmt.Sprintf("Elapsed per trial | Last: %.2fms | Min: %.2fms | Max: %.2fms",
			last, stats.MinElapsedMs, stats.MaxElapsedMs)
	}

	d.progressGauge.Percent, d.progressGauge.Label = gaugeState(stats)
	d.summaryPara.Text = d.formatSummary(stats, elapsed)
	d.statsPara.Text = formatTiming(stats)
	d.exitList.Rows = formatExitCodeRows(stats.ExitCodes)
}

func (d *Dashboard) render() {
	d.mu.Lock()
	defer d.mu.Unlock()

	ui.Render(d.grid)
}

func sparklineData(history []metrics.DataPoint, limit int) []float64 {
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	data := make([]float64, len(history))
	for i, p := range history {
		data[i] = p.ElapsedMs
	}
	return data
}

func gaugeState(s metrics.Stats) (int, string) {
	percent := int(s.Progress() * 100)
	label := fmt.Sprintf("%d/%d trials", s.Trials, s.Planned)
	if eta := s.ETA(); eta > 0 {
		label += fmt.Sprintf(" | ETA %s", eta.Round(time.Second))
	}
	return percent, label
}

func formatTiming(s metrics.Stats) string {
	if s.Trials == 0 {
		return "Waiting for the first trial..."
	}
	return fmt.Sprintf(
		"Min:  %.2fms\nMean: %.2fms\nMax:  %.2fms\nP50/P90/P99: %.2f / %.2f / %.2f ms\nTrials/sec:  %.2f",
		s.MinElapsedMs,
		s.MeanElapsedMs,
		s.MaxElapsedMs,
		s.P50ElapsedMs,
		s.P90ElapsedMs,
		s.P99ElapsedMs,
		s.TrialsPerSec,
	)
}

func formatExitCodeRows(codes map[int]int64) []string {
	buckets := metrics.FlattenExitCodes(codes)
	if len(buckets) == 0 {
		return []string{"Awaiting data"}
	}
	if len(buckets) > 10 {
		buckets = buckets[:10]
	}
	rows := make([]string, 0, len(buckets))
	for _, b := range buckets {
		color := "green"
		if b.Code != 0 {
			color = "red"
		}
		rows = append(rows, fmt.Sprintf("[%s](fg:%s) %d", metrics.ExitCodeLabel(b.Code), color, b.Count))
	}
	return rows
}

func (d *Dashboard) formatSummary(s metrics.Stats, elapsed time.Duration) string {
	return fmt.Sprintf("Command: %s\n%s\nElapsed: %s | Trials: %d | Non-zero exits: %d",
		d.cfg.Command,
		d.formatRunParams(),
		elapsed.Round(time.Second),
		s.Trials,
		s.NonZeroExits,
	)
}

func (d *Dashboard) formatRunParams() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("Iterations: %d", d.cfg.Iterations))
	if d.cfg.Warmup > 0 {
		parts = append(parts, fmt.Sprintf("Warmup: %d", d.cfg.Warmup))
	}
	if d.cfg.Rate > 0 {
		pacing := d.cfg.Pacing
		if pacing == "" {
			pacing = "uniform"
		}
		parts = append(parts, fmt.Sprintf("Rate: %g/s (%s)", d.cfg.Rate, pacing))
	} else {
		parts = append(parts, "Rate: back to back")
	}
	if d.cfg.ConfigFile != "" {
		parts = append(parts, fmt.Sprintf("Config: %s", d.cfg.ConfigFile))
	}
	return strings.Join(parts, " | ")
}
