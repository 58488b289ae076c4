package views

import (
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"

	"github.com/a-h/templ"

	"github.com/networkteam/pagecheck/collector"
)

func iterSlogAttrs(record slog.Record) iter.Seq[slog.Attr] {
	return func(yield func(attr slog.Attr) bool) {
		record.Attrs(func(attr slog.Attr) bool {
			return yield(attr)
		})
	}
}

// LogRows renders collected log records as table rows. The run id
// attribute is left out since all rows of a report share it.
func LogRows(entries []collector.LogEntry) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{ctx: ctx, w: w}
		for _, entry := range entries {
			r := entry.Record
			hw.raw(`<tr class="border-t border-neutral-100 align-top"><td class="py-1 pr-3 font-mono text-xs text-neutral-500 whitespace-nowrap">`)
			hw.text(r.Time.Format("15:04:05.000"))
			hw.raw(`</td><td class="py-1 pr-3">`)
			hw.render(Badge(BadgeProps{Variant: levelVariant(r.Level)}, r.Level.String()))
			hw.raw(`</td><td class="py-1 pr-3">`)
			hw.text(r.Message)
			hw.raw(`</td><td class="py-1 font-mono text-xs">`)
			for attr := range iterSlogAttrs(r) {
				if attr.Key == collector.RunIDAttr {
					continue
				}
				writeAttr(hw, "", attr)
			}
			hw.raw(`</td></tr>`)
		}
		return hw.err
	})
}

func writeAttr(hw *htmlWriter, prefix string, attr slog.Attr) {
	key := attr.Key
	if prefix != "" {
		key = prefix + "." + key
	}
	if attr.Value.Kind() == slog.KindGroup {
		for _, sub := range attr.Value.Group() {
			writeAttr(hw, key, sub)
		}
		return
	}
	hw.raw(`<span class="mr-2"><span class="text-neutral-500">`)
	hw.text(key)
	hw.raw(`=</span>`)
	hw.text(fmt.Sprint(attr.Value.Resolve().Any()))
	hw.raw(`</span>`)
}
