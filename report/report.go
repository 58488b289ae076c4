// Package report renders scenario reports as a standalone HTML document and
// as console output.
package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/samber/lo"

	"github.com/networkteam/pagecheck/collector"
	"github.com/networkteam/pagecheck/report/views"
	"github.com/networkteam/pagecheck/step"
)

// DefaultExcerptLimit bounds the page HTML kept per failure.
const DefaultExcerptLimit = 20_000

const truncatedMarker = "\n<!-- truncated -->"

// Renderer writes the HTML report.
type Renderer struct {
	title        string
	logs         *collector.LogCollector
	excerptLimit int
	now          func() time.Time
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithTitle sets the document title.
func WithTitle(title string) Option {
	return func(r *Renderer) {
		r.title = title
	}
}

// WithLogs attaches the log records of each run to its section.
func WithLogs(logs *collector.LogCollector) Option {
	return func(r *Renderer) {
		r.logs = logs
	}
}

// WithExcerptLimit bounds the page HTML rendered per failure. Zero or less
// keeps DefaultExcerptLimit.
func WithExcerptLimit(n int) Option {
	return func(r *Renderer) {
		if n > 0 {
			r.excerptLimit = n
		}
	}
}

// WithClock replaces time.Now for the generated timestamp.
func WithClock(now func() time.Time) Option {
	return func(r *Renderer) {
		r.now = now
	}
}

func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		title:        "Landing page checks",
		excerptLimit: DefaultExcerptLimit,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render writes the report document for reports to w.
func (r *Renderer) Render(ctx context.Context, w io.Writer, reports []*step.Report) error {
	runs := lo.FilterMap(reports, func(rep *step.Report, _ int) (views.Run, bool) {
		if rep == nil {
			return views.Run{}, false
		}
		run := views.Run{Report: r.trimmed(rep)}
		if r.logs != nil {
			run.Logs = r.logs.ForRun(rep.RunID)
		}
		return run, true
	})
	return views.Page(views.PageProps{
		Title:     r.title,
		Generated: r.now(),
		Runs:      runs,
	}).Render(ctx, w)
}

// WriteFile renders the report to name, creating parent directories.
func (r *Renderer) WriteFile(ctx context.Context, name string, reports []*step.Report) error {
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("creating report: %w", err)
	}
	if err := r.Render(ctx, f, reports); err != nil {
		_ = f.Close()
		return fmt.Errorf("rendering report: %w", err)
	}
	return f.Close()
}

// trimmed returns rep with its diagnostic HTML cut to the excerpt limit.
// rep itself is not modified.
func (r *Renderer) trimmed(rep *step.Report) *step.Report {
	if rep.Diagnostic == nil || len(rep.Diagnostic.HTML) <= r.excerptLimit {
		return rep
	}
	cp := *rep
	d := *rep.Diagnostic
	d.HTML = Excerpt(d.HTML, r.excerptLimit)
	cp.Diagnostic = &d
	return &cp
}

// Excerpt returns at most limit bytes of html, starting at the body element
// when there is one. Cut excerpts end in a truncation marker.
func Excerpt(html string, limit int) string {
	if i := strings.Index(strings.ToLower(html), "<body"); i > 0 {
		html = html[i:]
	}
	if limit <= 0 || len(html) <= limit {
		return html
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(html[cut]) {
		cut--
	}
	return html[:cut] + truncatedMarker
}
