// Package report renders the cached versions of a chart as one self-contained
// HTML page.
package report

import (
	"encoding/base64"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dygy/chartgen/internal/cache"
)

// ReportData holds all data needed to generate a report
type ReportData struct {
	Title     string
	Key       string
	Kind      string
	CreatedAt time.Time
	Versions  []VersionData
}

// VersionData is one cached output of the chart
type VersionData struct {
	Version     int
	Generator   string
	CreatedAt   time.Time
	Staves      int
	LedgerLines int
	Metadata    map[string]string
	LilyPond    string
	MIDI        []byte
}

// Generator creates HTML reports
type Generator struct {
	cache *cache.ChartCache
}

// NewGenerator creates a new report generator
func NewGenerator(c *cache.ChartCache) *Generator {
	return &Generator{cache: c}
}

// LoadData loads every cached version of key
func (g *Generator) LoadData(key cache.Key) (*ReportData, error) {
	outputs, err := g.cache.History(key)
	if err != nil {
		return nil, err
	}
	if len(outputs) == 0 {
		return nil, fmt.Errorf("no cached chart for %s", key)
	}

	data := &ReportData{
		Title:     fmt.Sprintf("%s, seed %d (%s to %s)", key.Kind, key.Seed, key.Low, key.High),
		Key:       key.String(),
		Kind:      key.Kind,
		CreatedAt: time.Now(),
	}
	for _, o := range outputs {
		data.Versions = append(data.Versions, VersionData{
			Version:     o.Version,
			Generator:   o.Generator,
			CreatedAt:   o.CreatedAt,
			Staves:      o.Staves,
			LedgerLines: o.LedgerLines,
			Metadata:    o.Metadata,
			LilyPond:    o.LilyPond,
			MIDI:        o.MIDI,
		})
	}
	return data, nil
}

// Generate writes the HTML report for key. The default destination is
// report.html in the chart's cache directory.
func (g *Generator) Generate(key cache.Key, outputPath string) (string, error) {
	data, err := g.LoadData(key)
	if err != nil {
		return "", fmt.Errorf("failed to load data: %w", err)
	}

	if outputPath == "" {
		outputPath = filepath.Join(g.cache.Dir(key), "report.html")
	}

	if err := os.WriteFile(outputPath, []byte(generateHTML(data)), 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return outputPath, nil
}

// GenerateFromData creates HTML from pre-loaded data
func GenerateFromData(data *ReportData) string {
	return generateHTML(data)
}

// Helper functions

func encodeMIDIBase64(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	return "data:audio/midi;base64," + base64.StdEncoding.EncodeToString(data)
}

func formatValue(v int, fallback string) string {
	if v <= 0 {
		return fallback
	}
	return fmt.Sprintf("%d", v)
}

// ledgerChartHTML draws one bar per version, scaled to the worst one
func ledgerChartHTML(versions []VersionData) string {
	most := 0
	for _, v := range versions {
		most = max(most, v.LedgerLines)
	}
	if most == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(`<div class="card"><div class="card-title">Ledger lines per version</div>`)
	for _, v := range versions {
		pct := float64(v.LedgerLines) / float64(most) * 100
		fmt.Fprintf(&b, `<div class="bar-row"><span class="bar-label">v%d</span><div class="bar" style="width: %.0f%%"></div><span class="bar-value">%d</span></div>`,
			v.Version, pct, v.LedgerLines)
	}
	b.WriteString(`</div>`)
	return b.String()
}

func metadataHTML(meta map[string]string) string {
	if len(meta) == 0 {
		return ""
	}
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(`<dl class="meta">`)
	for _, k := range keys {
		fmt.Fprintf(&b, `<dt>%s</dt><dd>%s</dd>`, html.EscapeString(k), html.EscapeString(meta[k]))
	}
	b.WriteString(`</dl>`)
	return b.String()
}

func versionHTML(v VersionData) string {
	download := `<div class="no-data">No MIDI stored</div>`
	if uri := encodeMIDIBase64(v.MIDI); uri != "" {
		download = fmt.Sprintf(`<a class="download" href="%s" download="v%03d.mid">Download MIDI</a>`, uri, v.Version)
	}

	return fmt.Sprintf(`
		<div class="card">
			<div class="card-title">Version %d <span class="muted">%s, %s</span></div>
			<div class="stats-grid">
				<div class="stat"><div class="stat-value">%s</div><div class="stat-label">Staves</div></div>
				<div class="stat"><div class="stat-value">%d</div><div class="stat-label">Ledger lines</div></div>
			</div>
			%s
			%s
			<pre class="code">%s</pre>
		</div>`,
		v.Version,
		html.EscapeString(v.Generator),
		v.CreatedAt.Format("2006-01-02 15:04"),
		formatValue(v.Staves, "N/A"),
		v.LedgerLines,
		metadataHTML(v.Metadata),
		download,
		html.EscapeString(v.LilyPond),
	)
}

func generateHTML(data *ReportData) string {
	var versions strings.Builder
	// newest first
	for i := len(data.Versions) - 1; i >= 0; i-- {
		versions.WriteString(versionHTML(data.Versions[i]))
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>chartgen report: %s</title>
    <style>
        :root {
            --bg-primary: #0d1117;
            --bg-secondary: #161b22;
            --text-primary: #c9d1d9;
            --text-secondary: #8b949e;
            --accent: #58a6ff;
            --accent-green: #3fb950;
            --border: #30363d;
        }
        * { box-sizing: border-box; margin: 0; padding: 0; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Helvetica, Arial, sans-serif;
            background: var(--bg-primary);
            color: var(--text-primary);
            line-height: 1.6;
            padding: 2rem;
        }
        h1 { font-size: 1.5rem; margin-bottom: 0.25rem; }
        .muted { color: var(--text-secondary); font-weight: normal; font-size: 0.9rem; }
        .card { background: var(--bg-secondary); border: 1px solid var(--border); border-radius: 6px; padding: 1.25rem; margin-top: 1.5rem; }
        .card-title { font-weight: 600; margin-bottom: 1rem; }
        .stats-grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(120px, 1fr)); gap: 1rem; margin-bottom: 1rem; }
        .stat-value { font-size: 1.5rem; color: var(--accent); }
        .stat-label { color: var(--text-secondary); font-size: 0.8rem; }
        .bar-row { display: flex; align-items: center; gap: 0.5rem; margin: 0.25rem 0; }
        .bar-label, .bar-value { width: 3rem; color: var(--text-secondary); font-size: 0.8rem; }
        .bar { height: 0.75rem; background: var(--accent-green); border-radius: 3px; }
        .meta { display: grid; grid-template-columns: max-content 1fr; gap: 0.25rem 1rem; margin-bottom: 1rem; font-size: 0.85rem; }
        .meta dt { color: var(--text-secondary); }
        .download { color: var(--accent); display: inline-block; margin-bottom: 1rem; }
        .no-data { color: var(--text-secondary); font-style: italic; margin-bottom: 1rem; }
        .code { background: var(--bg-primary); padding: 1rem; border-radius: 6px; overflow-x: auto; font-size: 0.8rem; max-height: 30rem; }
    </style>
</head>
<body>
    <h1>%s</h1>
    <div class="muted">%s, %d versions, generated %s</div>
    %s
    %s
</body>
</html>
`,
		html.EscapeString(data.Title),
		html.EscapeString(data.Title),
		html.EscapeString(data.Key),
		len(data.Versions),
		data.CreatedAt.Format("2006-01-02 15:04"),
		ledgerChartHTML(data.Versions),
		versions.String(),
	)
}
