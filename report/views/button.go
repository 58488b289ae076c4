package views

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
)

type ButtonVariant string
type ButtonSize string

const (
	ButtonVariantDefault   ButtonVariant = ""
	ButtonVariantOutline   ButtonVariant = "outline"
	ButtonVariantSecondary ButtonVariant = "secondary"

	ButtonSizeSm ButtonSize = "sm"
)

type ButtonProps struct {
	Variant ButtonVariant
	Size    ButtonSize
	Class   string
}

// ButtonLink renders an anchor styled as a button. Links open in a new tab.
func ButtonLink(props ButtonProps, href, label string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}
		hw.raw(`<a target="_blank" rel="noopener" href="`)
		hw.text(string(templ.URL(href)))
		hw.raw(`" class="`)
		hw.text(buttonClasses(props))
		hw.raw(`">`)
		hw.text(label)
		hw.raw(`</a>`)
		return hw.err
	})
}

func buttonClasses(props ButtonProps) string {
	var classes []string

	// Base classes
	classes = append(classes, "cursor-pointer inline-flex items-center justify-center whitespace-nowrap rounded-md text-sm font-medium transition-colors")

	// Variant classes
	switch props.Variant {
	case ButtonVariantOutline:
		classes = append(classes, "border border-neutral-200 bg-white hover:bg-neutral-200 text-black")
	case ButtonVariantSecondary:
		classes = append(classes, "bg-neutral-200 text-black hover:bg-neutral-200/80")
	default:
		classes = append(classes, "bg-black text-white hover:bg-black/90")
	}

	switch props.Size {
	case ButtonSizeSm:
		classes = append(classes, "h-8 rounded-md px-3")
	default:
		classes = append(classes, "h-10 px-4 py-2")
	}

	if props.Class != "" {
		classes = append(classes, props.Class)
	}

	return strings.Join(classes, " ")
}
