package views

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/a-h/templ"
	"github.com/gofrs/uuid"

	"github.com/networkteam/pagecheck/collector"
	"github.com/networkteam/pagecheck/step"
)

// DashboardProps is the input of Dashboard.
type DashboardProps struct {
	Title      string
	PathPrefix string
	// Events are the most recent events, newest first.
	Events []collector.Event
	// Selected is shown in the detail panel together with its run.
	Selected *collector.Event
	Run      []collector.Event
}

// Dashboard renders the live view of running checks. New events arrive over
// server-sent events and are prepended to the list.
func Dashboard(props DashboardProps) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{ctx: ctx, w: w}
		var selectedID *uuid.UUID
		if props.Selected != nil {
			selectedID = &props.Selected.ID
		}

		hw.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>`)
		hw.text(props.Title)
		hw.raw(`</title><script src="https://cdn.tailwindcss.com"></script></head><body class="bg-neutral-50 text-neutral-900">`)
		hw.raw(`<main class="mx-auto max-w-7xl p-6 grid grid-cols-2 gap-6"><section><h1 class="text-2xl font-semibold mb-4">`)
		hw.text(props.Title)
		hw.raw(`</h1>`)
		hw.render(EventList(props.Events, selectedID, props.PathPrefix))
		hw.raw(`</section><section id="event-detail">`)
		if props.Selected != nil {
			hw.render(EventDetail(*props.Selected, props.Run))
		}
		hw.raw(`</section></main><script>(() => {const list = document.getElementById('event-list');const source = new EventSource(`)
		hw.raw(strconv.Quote(props.PathPrefix + "/events-sse"))
		hw.raw(`);source.addEventListener('new-event', (e) => list.insertAdjacentHTML('afterbegin', e.data));})();</script></body></html>`)
		return hw.err
	})
}

// EventList renders the event list fragment.
func EventList(events []collector.Event, selectedID *uuid.UUID, pathPrefix string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{ctx: ctx, w: w}
		hw.raw(`<ul id="event-list" class="divide-y rounded border bg-white">`)
		for _, ev := range events {
			hw.render(EventListItem(ev, selectedID != nil && *selectedID == ev.ID, pathPrefix))
		}
		hw.raw(`</ul>`)
		return hw.err
	})
}

// EventListItem renders one event on a single line, so it can be sent as
// one server-sent event.
func EventListItem(ev collector.Event, selected bool, pathPrefix string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{ctx: ctx, w: w}
		class := "px-3 py-2 text-sm flex items-center gap-2"
		if selected {
			class += " bg-neutral-100"
		}
		hw.raw(`<li class="` + class + `" data-event="` + ev.ID.String() + `" data-kind="` + string(ev.Kind) + `">`)
		hw.render(eventBadge(ev))
		hw.raw(`<a class="hover:underline" href="`)
		hw.text(string(templ.URL(fmt.Sprintf("%s/?id=%s", pathPrefix, ev.ID))))
		hw.raw(`">`)
		hw.text(eventLabel(ev))
		hw.raw(`</a>`)
		if !ev.End.IsZero() {
			hw.raw(`<span class="ml-auto text-neutral-500">`)
			hw.text(formatDuration(ev.End.Sub(ev.Start)))
			hw.raw(`</span>`)
		}
		hw.raw(`</li>`)
		return hw.err
	})
}

// EventDetail renders an event and the timeline of its run.
func EventDetail(ev collector.Event, run []collector.Event) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{ctx: ctx, w: w}
		hw.raw(`<div class="rounded border bg-white p-4 space-y-3"><h2 class="text-lg font-semibold">`)
		hw.text(eventLabel(ev))
		hw.raw(`</h2><dl class="grid grid-cols-2 gap-1 text-sm"><dt>Run</dt><dd>`)
		hw.text(ev.RunID.String())
		hw.raw(`</dd><dt>Started</dt><dd>`)
		hw.text(formatTime(ev.Start))
		hw.raw(`</dd></dl>`)
		if ev.Err != nil {
			hw.raw(`<pre class="text-sm text-red-700 whitespace-pre-wrap">`)
			hw.text(ev.Err.Error())
			hw.raw(`</pre>`)
		}
		hw.raw(`<ol class="text-sm space-y-1">`)
		for _, e := range run {
			hw.raw(`<li class="flex items-center gap-2">`)
			hw.render(eventBadge(e))
			hw.text(eventLabel(e))
			hw.raw(`</li>`)
		}
		hw.raw(`</ol></div>`)
		return hw.err
	})
}

func eventBadge(ev collector.Event) templ.Component {
	switch {
	case ev.Kind == collector.EventCleanupFailed:
		return Badge(BadgeProps{Variant: BadgeVariantWarning}, "cleanup")
	case ev.Status != "":
		return StatusBadge(step.Status(ev.Status))
	}
	return Badge(BadgeProps{Variant: BadgeVariantOutline}, "running")
}

func eventLabel(ev collector.Event) string {
	if ev.Step == "" {
		return ev.Scenario
	}
	return ev.Scenario + " › " + ev.Step
}
