package views

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/a-h/templ"

	"github.com/networkteam/pagecheck/step"
)

type BadgeVariant string

const (
	BadgeVariantSecondary BadgeVariant = "secondary"
	BadgeVariantSuccess   BadgeVariant = "success"
	BadgeVariantWarning   BadgeVariant = "warning"
	BadgeVariantError     BadgeVariant = "error"
	BadgeVariantOutline   BadgeVariant = "outline"
)

type BadgeProps struct {
	Variant BadgeVariant
	Class   string
}

// Badge renders label as a pill.
func Badge(props BadgeProps, label string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}
		hw.raw(`<span class="`)
		hw.text(badgeClasses(props))
		hw.raw(`">`)
		hw.text(label)
		hw.raw(`</span>`)
		return hw.err
	})
}

// StatusBadge renders the status of a step or scenario.
func StatusBadge(status step.Status) templ.Component {
	return Badge(BadgeProps{Variant: statusVariant(status)}, string(status))
}

func statusVariant(status step.Status) BadgeVariant {
	switch status {
	case step.StatusPassed:
		return BadgeVariantSuccess
	case step.StatusFailed:
		return BadgeVariantError
	case step.StatusSkipped:
		return BadgeVariantSecondary
	}
	return BadgeVariantOutline
}

func levelVariant(level slog.Level) BadgeVariant {
	switch {
	case level >= slog.LevelError:
		return BadgeVariantError
	case level >= slog.LevelWarn:
		return BadgeVariantWarning
	case level >= slog.LevelInfo:
		return BadgeVariantOutline
	}
	return BadgeVariantSecondary
}

func badgeClasses(props BadgeProps) string {
	var classes []string

	// Base classes
	classes = append(classes, "inline-flex items-center rounded-full border px-2.5 py-0.5 text-xs font-semibold transition-colors font-mono")

	// Variant classes
	switch props.Variant {
	case BadgeVariantSecondary:
		classes = append(classes, "border-transparent bg-neutral-200 text-black")
	case BadgeVariantSuccess:
		classes = append(classes, "border-transparent bg-green-600 text-white")
	case BadgeVariantWarning:
		classes = append(classes, "border-transparent bg-orange-400 text-white")
	case BadgeVariantError:
		classes = append(classes, "border-transparent bg-red-500 text-white")
	case BadgeVariantOutline:
		classes = append(classes, "border-neutral-300 text-foreground")
	default:
		classes = append(classes, "border-transparent bg-black text-white")
	}

	if props.Class != "" {
		classes = append(classes, props.Class)
	}

	return strings.Join(classes, " ")
}
