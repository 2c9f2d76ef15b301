package output

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/torosent/exectime/internal/metrics"
	"github.com/torosent/exectime/internal/threshold"
)

// HTMLReportData contains all data needed for the HTML report template.
type HTMLReportData struct {
	Report
	Document         Document
	ThresholdSummary *ThresholdSummary
	HistoryJSON      string
	CommandLine      string
}

// ThresholdSummary aggregates threshold outcomes for display.
type ThresholdSummary struct {
	Total   int
	Passed  int
	Failed  int
	Results []ThresholdResultJSON
}

// ThresholdResultJSON is one threshold row.
type ThresholdResultJSON struct {
	Threshold string  `json:"threshold"`
	Metric    string  `json:"metric"`
	Aggregate string  `json:"aggregate"`
	Operator  string  `json:"operator"`
	Expected  float64 `json:"expected"`
	Actual    float64 `json:"actual"`
	Pass      bool    `json:"pass"`
}

func summarizeThresholds(results []threshold.Result) *ThresholdSummary {
	if len(results) == 0 {
		return nil
	}
	s := &ThresholdSummary{
		Total:   len(results),
		Results: make([]ThresholdResultJSON, len(results)),
	}
	for i, tr := range results {
		s.Results[i] = ThresholdResultJSON{
			Threshold: tr.Threshold.Raw,
			Metric:    tr.Threshold.Metric,
			Aggregate: tr.Threshold.Aggregate,
			Operator:  tr.Threshold.Operator,
			Expected:  tr.Threshold.Value,
			Actual:    tr.Actual,
			Pass:      tr.Pass,
		}
		if tr.Pass {
			s.Passed++
		} else {
			s.Failed++
		}
	}
	return s
}

// GenerateHTMLReport writes a standalone HTML report with a per-trial chart.
func GenerateHTMLReport(w io.Writer, r Report) error {
	history := r.History
	if history == nil {
		history = []metrics.DataPoint{}
	}
	historyJSON, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}
	if r.GeneratedAt.IsZero() {
		r.GeneratedAt = time.Now()
	}

	data := HTMLReportData{
		Report:           r,
		Document:         NewDocument(r),
		ThresholdSummary: summarizeThresholds(r.Thresholds),
		HistoryJSON:      string(historyJSON),
		CommandLine:      strings.Join(r.Command, " "),
	}

	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"formatMs": func(ms float64) string {
			return FormatDuration(ms * float64(time.Millisecond))
		},
		"formatFloat": func(f float64) string {
			return fmt.Sprintf("%.2f", f)
		},
		"exitLabel": metrics.ExitCodeLabel,
	}).Parse(htmlTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}
	return nil
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>exectime report</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body { font-family: -apple-system, 'Segoe UI', Roboto, Arial, sans-serif; background: #f4f5f7; color: #1f2933; padding: 20px; line-height: 1.5; }
        .container { max-width: 1200px; margin: 0 auto; background: #fff; border-radius: 6px; box-shadow: 0 1px 6px rgba(0,0,0,0.08); }
        header { background: #0f766e; color: #fff; padding: 24px 32px; border-radius: 6px 6px 0 0; }
        header h1 { font-size: 1.6rem; }
        header .meta { font-size: 0.85rem; opacity: 0.9; font-family: monospace; }
        .content { padding: 32px; }
        .grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(200px, 1fr)); gap: 16px; margin-bottom: 32px; }
        .card { background: #f8fafc; padding: 16px; border-left: 4px solid #0f766e; border-radius: 4px; }
        .card.error { border-left-color: #dc2626; }
        .card h3 { font-size: 0.8rem; text-transform: uppercase; color: #64748b; }
        .card .value { font-size: 1.7rem; font-weight: bold; }
        .card .subvalue { font-size: 0.8rem; color: #64748b; }
        .section { margin-bottom: 32px; }
        .section h2 { font-size: 1.3rem; margin-bottom: 12px; border-bottom: 2px solid #e2e8f0; padding-bottom: 6px; }
        .chart { width: 100%; height: 300px; }
        table { width: 100%; border-collapse: collapse; }
        th, td { text-align: left; padding: 8px 12px; border-bottom: 1px solid #e2e8f0; }
        th { background: #f8fafc; font-size: 0.8rem; text-transform: uppercase; color: #475569; }
        .badge { padding: 2px 10px; border-radius: 10px; font-size: 0.8rem; font-weight: 600; }
        .badge-success { background: #dcfce7; color: #166534; }
        .badge-error { background: #fee2e2; color: #991b1b; }
    </style>
    <script src="https://cdn.jsdelivr.net/npm/uplot@1.6.24/dist/uPlot.iife.min.js"></script>
    <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/uplot@1.6.24/dist/uPlot.min.css">
</head>
<body>
    <div class="container">
        <header>
            <h1>exectime report</h1>
            <div class="meta">{{.CommandLine}}</div>
            <div class="meta">Run {{.RunID}} | Generated: {{.Document.GeneratedAt}}</div>
        </header>

        <div class="content">
            <div class="grid">
                <div class="card">
                    <h3>Trials</h3>
                    <div class="value">{{.Document.SampleSize}}</div>
                    {{if .Warmup}}<div class="subvalue">+{{.Warmup}} warmup</div>{{end}}
                </div>
                <div class="card">
                    <h3>Mean</h3>
                    <div class="value">{{formatMs .Document.MeanMs}}</div>
                    <div class="subvalue">± {{formatMs .Document.StdDevMs}}</div>
                </div>
                <div class="card">
                    <h3>Median</h3>
                    <div class="value">{{formatMs .Document.MedianMs}}</div>
                </div>
                <div class="card{{if gt .Document.RSEPercent 5.0}} error{{end}}">
                    <h3>Relative standard error</h3>
                    <div class="value">{{formatFloat .Document.RSEPercent}}%</div>
                </div>
            </div>

            {{if .History}}
            <div class="section">
                <h2>Elapsed time per trial</h2>
                <div id="trial-chart" class="chart"></div>
            </div>
            {{end}}

            <div class="section">
                <h2>Statistics</h2>
                <table>
                    <tbody>
                        <tr><th>Min</th><td>{{formatMs .Document.MinMs}}</td></tr>
                        <tr><th>Max</th><td>{{formatMs .Document.MaxMs}}</td></tr>
                        <tr><th>Range</th><td>{{formatMs .Document.RangeMs}}</td></tr>
                        <tr><th>Standard deviation</th><td>{{formatMs .Document.StdDevMs}} ({{formatMs (index .Document.StdDevRangeMs 0)}} … {{formatMs (index .Document.StdDevRangeMs 1)}})</td></tr>
                        <tr><th>Standard error</th><td>{{formatMs .Document.StdErrMs}}</td></tr>
                        <tr><th>P50 / P90 / P99</th><td>{{formatMs .Trials.P50ElapsedMs}} / {{formatMs .Trials.P90ElapsedMs}} / {{formatMs .Trials.P99ElapsedMs}}</td></tr>
                    </tbody>
                </table>
            </div>

            <div class="section">
                <h2>Sigma bands</h2>
                <table>
                    <thead><tr><th>Band</th><th>Trials</th><th>Observed</th><th>Normal</th></tr></thead>
                    <tbody>
                        {{range .Document.SigmaBands}}
                        <tr><td>±{{.K}}σ</td><td>{{.Count}}</td><td>{{formatFloat .Percent}}%</td><td>{{formatFloat .Expected}}%</td></tr>
                        {{end}}
                    </tbody>
                </table>
            </div>

            {{if .Document.ExitCodes}}
            <div class="section">
                <h2>Exit codes</h2>
                <table>
                    <thead><tr><th>Code</th><th>Trials</th></tr></thead>
                    <tbody>
                        {{range .Document.ExitCodes}}
                        <tr><td>{{exitLabel .Code}}</td><td>{{.Count}}</td></tr>
                        {{end}}
                    </tbody>
                </table>
            </div>
            {{end}}

            {{if .ThresholdSummary}}
            <div class="section">
                <h2>Thresholds ({{.ThresholdSummary.Passed}}/{{.ThresholdSummary.Total}} Passed)</h2>
                <table>
                    <thead><tr><th>Threshold</th><th>Metric</th><th>Expected</th><th>Actual</th><th>Status</th></tr></thead>
                    <tbody>
                        {{range .ThresholdSummary.Results}}
                        <tr>
                            <td>{{.Threshold}}</td>
                            <td>{{.Metric}} ({{.Aggregate}})</td>
                            <td>{{.Operator}} {{formatFloat .Expected}}</td>
                            <td>{{formatFloat .Actual}}</td>
                            <td>{{if .Pass}}<span class="badge badge-success">✓ PASS</span>{{else}}<span class="badge badge-error">✗ FAIL</span>{{end}}</td>
                        </tr>
                        {{end}}
                    </tbody>
                </table>
            </div>
            {{end}}
        </div>
    </div>

    {{if .History}}
    <script>
        const history = JSON.parse({{.HistoryJSON}});
        if (history && history.length > 0) {
            const el = document.getElementById('trial-chart');
            new uPlot({
                width: el.offsetWidth,
                height: 300,
                scales: { x: { time: false } },
                series: [
                    { label: "Trial" },
                    { label: "Elapsed (ms)", stroke: "#0f766e", width: 2, points: { show: true } }
                ],
                axes: [{ label: "Trial" }, { label: "Elapsed (ms)" }]
            }, [history.map(d => d.trial), history.map(d => d.elapsed_ms)], el);
        }
    </script>
    {{end}}
</body>
</html>
`
