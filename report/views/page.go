package views

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/a-h/templ"

	"github.com/networkteam/pagecheck/collector"
	"github.com/networkteam/pagecheck/step"
)

// Run is one scenario report with the log records of its run.
type Run struct {
	Report *step.Report
	Logs   []collector.LogEntry
}

// PageProps is the input of Page.
type PageProps struct {
	Title     string
	Generated time.Time
	Runs      []Run
}

// Page renders the standalone report document.
func Page(props PageProps) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{ctx: ctx, w: w}
		hw.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1"><title>`)
		hw.text(props.Title)
		hw.raw(`</title><script src="https://cdn.tailwindcss.com"></script>`)
		hw.render(chromaStyles())
		hw.raw(`</head><body class="bg-neutral-50 text-neutral-900"><main class="mx-auto max-w-6xl p-6 space-y-6">`)
		hw.render(header(props))
		for _, run := range props.Runs {
			hw.render(runSection(run))
		}
		hw.raw(`</main></body></html>`)
		return hw.err
	})
}

func header(props PageProps) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{ctx: ctx, w: w}
		passed := 0
		for _, run := range props.Runs {
			if run.Report.Passed() {
				passed++
			}
		}
		failed := len(props.Runs) - passed

		hw.raw(`<header class="flex items-center justify-between"><h1 class="text-2xl font-semibold">`)
		hw.text(props.Title)
		hw.raw(`</h1><div class="flex items-center gap-2" id="totals">`)
		hw.render(Badge(BadgeProps{Variant: BadgeVariantSuccess}, fmt.Sprintf("%d passed", passed)))
		if failed > 0 {
			hw.render(Badge(BadgeProps{Variant: BadgeVariantError}, fmt.Sprintf("%d failed", failed)))
		}
		hw.raw(`<span class="text-sm text-neutral-500">generated `)
		hw.text(formatTime(props.Generated))
		hw.raw(`</span></div></header>`)
		return hw.err
	})
}

func runSection(run Run) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{ctx: ctx, w: w}
		r := run.Report
		status := step.StatusPassed
		if !r.Passed() {
			status = step.StatusFailed
		}

		hw.raw(`<section class="rounded-lg border border-neutral-200 bg-white p-4 space-y-4" data-run="`)
		hw.text(r.RunID.String())
		hw.raw(`"><div class="flex items-center gap-3"><h2 class="text-lg font-semibold">`)
		hw.text(r.Scenario)
		hw.raw(`</h2>`)
		hw.render(StatusBadge(status))
		hw.raw(`<span class="text-sm text-neutral-500">`)
		hw.text(formatTime(r.Started) + " · " + formatDuration(r.Duration))
		hw.raw(`</span></div>`)

		if r.Err != nil {
			hw.raw(`<p class="rounded-md bg-red-50 p-3 font-mono text-sm text-red-700">`)
			if r.FailedStep != "" {
				hw.text(r.FailedStep + ": ")
			}
			hw.text(r.Err.Error())
			hw.raw(`</p>`)
		}

		hw.render(stepTable(r.Steps))

		if len(r.CleanupErrs) > 0 {
			hw.raw(`<ul class="text-sm text-orange-700 list-disc pl-5">`)
			for _, err := range r.CleanupErrs {
				hw.raw(`<li>cleanup: `)
				hw.text(err.Error())
				hw.raw(`</li>`)
			}
			hw.raw(`</ul>`)
		}

		if r.Diagnostic != nil {
			hw.render(diagnostic(r.Diagnostic))
		}

		if len(run.Logs) > 0 {
			hw.raw(`<details><summary class="cursor-pointer text-sm font-medium">Logs (`)
			hw.text(fmt.Sprint(len(run.Logs)))
			hw.raw(`)</summary><table class="mt-2 w-full text-sm">`)
			hw.render(LogRows(run.Logs))
			hw.raw(`</table></details>`)
		}

		hw.raw(`</section>`)
		return hw.err
	})
}

func stepTable(results []step.Result) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{ctx: ctx, w: w}
		hw.raw(`<table class="w-full text-sm"><thead><tr class="text-left text-neutral-500"><th class="py-1">Step</th><th class="py-1">Status</th><th class="py-1 text-right">Duration</th></tr></thead><tbody>`)
		for _, res := range results {
			hw.raw(`<tr class="border-t border-neutral-100 align-top"><td class="py-1 pr-3">`)
			hw.text(res.Label)
			if res.Err != nil {
				hw.raw(`<div class="font-mono text-xs text-red-700">`)
				hw.text(res.Err.Error())
				hw.raw(`</div>`)
			}
			hw.raw(`</td><td class="py-1 pr-3">`)
			hw.render(StatusBadge(res.Status))
			hw.raw(`</td><td class="py-1 text-right font-mono text-xs">`)
			if res.Status != step.StatusSkipped {
				hw.text(formatDuration(res.Duration))
			}
			hw.raw(`</td></tr>`)
		}
		hw.raw(`</tbody></table>`)
		return hw.err
	})
}

func diagnostic(d *step.Diagnostic) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{ctx: ctx, w: w}
		hw.raw(`<div class="space-y-2"><div class="flex items-center gap-2 text-sm">`)
		if d.URL != "" {
			hw.render(ButtonLink(ButtonProps{Variant: ButtonVariantOutline, Size: ButtonSizeSm}, d.URL, "Open page"))
			hw.raw(`<span class="font-mono text-xs text-neutral-500">`)
			hw.text(d.URL)
			hw.raw(`</span>`)
		}
		if d.Screenshot != "" {
			hw.render(ButtonLink(ButtonProps{Variant: ButtonVariantSecondary, Size: ButtonSizeSm}, d.Screenshot, "Screenshot"))
		}
		hw.raw(`</div>`)
		if d.HTML != "" {
			hw.raw(`<details><summary class="cursor-pointer text-sm font-medium">Page HTML at failure</summary><div class="mt-2 max-h-96 overflow-auto rounded-md text-xs">`)
			hw.render(highlightContent(d.HTML, "text/html"))
			hw.raw(`</div></details>`)
		}
		hw.raw(`</div>`)
		return hw.err
	})
}
