package report_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/networkteam/pagecheck/collector"
	"github.com/networkteam/pagecheck/failure"
	"github.com/networkteam/pagecheck/report"
	"github.com/networkteam/pagecheck/step"
)

var generated = time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

func passedReport() *step.Report {
	return &step.Report{
		RunID:    uuid.Must(uuid.NewV7()),
		Scenario: "Builder initial state",
		Steps: []step.Result{
			{Label: "Navigate to LPB with fresh state", Status: step.StatusPassed, Duration: 1200 * time.Millisecond},
			{Label: "Verify only Core Options section is visible", Status: step.StatusPassed, Duration: 80 * time.Millisecond},
		},
		Started:  generated,
		Duration: 1280 * time.Millisecond,
	}
}

func failedReport() *step.Report {
	err := &failure.AssertionFailure{What: "card title", Expected: "Digital Marketing Report", Actual: "<untitled>"}
	return &step.Report{
		RunID:    uuid.Must(uuid.NewV7()),
		Scenario: "Ungated report journey",
		Steps: []step.Result{
			{Label: "Part C-1: Verify marquee content", Status: step.StatusPassed, Duration: time.Second},
			{Label: "Part C-2: Verify card content", Status: step.StatusFailed, Duration: 2 * time.Second, Err: err},
			{Label: "Part C-3: Verify SEO metadata", Status: step.StatusSkipped},
		},
		FailedStep:  "Part C-2: Verify card content",
		Err:         &failure.StepError{Label: "Part C-2: Verify card content", Err: err},
		CleanupErrs: []error{errors.New(`cleanup "close preview": target closed`)},
		Diagnostic: &step.Diagnostic{
			URL:        "https://main--da-bacom--adobecom.aem.page/resources/reports/nala",
			HTML:       `<body><div class="card"><h3>&lt;untitled&gt;</h3></div></body>`,
			Screenshot: "screenshots/ungated-report.png",
		},
		Started:  generated,
		Duration: 3 * time.Second,
	}
}

func TestRenderer_Render(t *testing.T) {
	t.Parallel()

	passed, failed := passedReport(), failedReport()
	logs := collector.NewLogCollector(10)
	defer logs.Close()

	record := slog.NewRecord(generated, slog.LevelError, "Step failed", 0)
	record.AddAttrs(slog.String(collector.RunIDAttr, failed.RunID.String()), slog.String("step", failed.FailedStep))
	logs.Collect(collector.LogEntry{RunID: failed.RunID, Record: record})
	other := slog.NewRecord(generated, slog.LevelInfo, "Unrelated run", 0)
	logs.Collect(collector.LogEntry{RunID: uuid.Must(uuid.NewV7()), Record: other})

	r := report.NewRenderer(
		report.WithTitle("Nightly landing pages"),
		report.WithLogs(logs),
		report.WithClock(func() time.Time { return generated }),
	)

	var buf bytes.Buffer
	require.NoError(t, r.Render(context.Background(), &buf, []*step.Report{passed, nil, failed}))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.Contains(t, out, "<title>Nightly landing pages</title>")
	assert.Contains(t, out, "1 passed")
	assert.Contains(t, out, "1 failed")
	assert.Contains(t, out, "2026-01-01 10:00:00")
	assert.Contains(t, out, "Builder initial state")
	assert.Contains(t, out, "Part C-2: Verify card content")
	assert.Contains(t, out, "&lt;untitled&gt;", "error text is escaped")
	assert.NotContains(t, out, "<untitled>")
	assert.Contains(t, out, `href="screenshots/ungated-report.png"`)
	assert.Contains(t, out, `class="chroma"`)
	assert.Contains(t, out, "cleanup: ")
	assert.Contains(t, out, "Step failed")
	assert.NotContains(t, out, "Unrelated run")
	assert.Equal(t, 2, strings.Count(out, "<section "))
}

func TestRenderer_TrimsDiagnosticWithoutTouchingReport(t *testing.T) {
	t.Parallel()

	failed := failedReport()
	long := "<body>" + strings.Repeat("<p>filler</p>", 100) + "<p>tail-marker</p></body>"
	failed.Diagnostic.HTML = long

	var buf bytes.Buffer
	r := report.NewRenderer(report.WithExcerptLimit(200))
	require.NoError(t, r.Render(context.Background(), &buf, []*step.Report{failed}))

	assert.NotContains(t, buf.String(), "tail-marker")
	assert.Equal(t, long, failed.Diagnostic.HTML)
}

func TestRenderer_WriteFile(t *testing.T) {
	t.Parallel()

	name := filepath.Join(t.TempDir(), "out", "report.html")
	r := report.NewRenderer()
	require.NoError(t, r.WriteFile(context.Background(), name, []*step.Report{passedReport()}))

	data, err := os.ReadFile(name)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Landing page checks")
}

func TestExcerpt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		html  string
		limit int
		want  string
	}{
		{name: "short document is kept", html: "<p>ok</p>", limit: 100, want: "<p>ok</p>"},
		{name: "starts at body", html: "<html><head><style>x</style></head><body><p>ok</p></body></html>", limit: 100, want: "<body><p>ok</p></body></html>"},
		{name: "cut with marker", html: "<body>0123456789", limit: 8, want: "<body>01\n<!-- truncated -->"},
		{name: "cut on rune boundary", html: "<body>äöü", limit: 9, want: "<body>ä\n<!-- truncated -->"},
		{name: "no limit", html: "<body>0123456789", limit: 0, want: "<body>0123456789"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, report.Excerpt(tt.html, tt.limit))
		})
	}
}
