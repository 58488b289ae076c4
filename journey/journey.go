// Package journey turns scenarios into step plans.
//
// Builder feature scenarios map to a fixed plan per id. Every full-journey
// scenario (tag @e2e) shares one generic plan that builds the page, saves it,
// verifies the preview and, for gated pages, submits the embedded form.
package journey

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/networkteam/pagecheck/failure"
	"github.com/networkteam/pagecheck/page"
	"github.com/networkteam/pagecheck/scenario"
	"github.com/networkteam/pagecheck/step"
)

// JourneyTimeout is the ceiling of a full journey.
const JourneyTimeout = 180 * time.Second

// ErrUnknownScenario is returned for scenario ids without a plan.
var ErrUnknownScenario = errors.New("no plan for scenario")

// Env is what a plan runs against.
type Env struct {
	// Builder drives the builder document of the scenario's browser context.
	Builder *page.Builder
	// Route is the builder route. For takes the scenario's route when empty.
	Route string
	// Ref is the content branch passed to the builder.
	Ref string
	// PreviewOptions configure the verifier of the preview document.
	PreviewOptions []page.PreviewOption
}

type constructor func(s scenario.Scenario, env Env) step.Plan

var features = map[string]constructor{
	"lpb-initial-state":          initialState,
	"lpb-confirm-disabled":       confirmDisabled,
	"lpb-url-auto-generation":    urlAutoGeneration,
	"lpb-confirm-shows-form":     confirmShowsForm,
	"lpb-reset-form":             resetForm,
	"lpb-missing-required-error": missingRequired,
	"lpb-gated-validation":       gatedValidation,
	"lpb-marquee-image-upload":   marqueeImageUpload,
	"lpb-image-delete-reupload":  imageDeleteReupload,
	"lpb-pdf-upload":             pdfUpload,
	"lpb-pdf-clear":              pdfClear,
	"lpb-video-hides-pdf":        videoHidesPDF,
	"lpb-multi-select-products":  multiSelectProducts,
	"lpb-remove-product-tag":     removeProductTag,
	"lpb-dropdown-close-outside": dropdownCloseOutside,
	"lpb-persist-on-refresh":     persistOnRefresh,
	"lpb-reset-clears-storage":   resetClearsStorage,
	"lpb-rich-text-bold":         richTextBold,
	"lpb-rich-text-italic":       richTextItalic,
	"lpb-rich-text-bullets":      richTextBullets,
}

// FeatureIDs returns the ids of the builder feature plans.
func FeatureIDs() []string {
	return slices.Sorted(maps.Keys(features))
}

// Has reports whether For can build a plan for s.
func Has(s scenario.Scenario) bool {
	if s.IsJourney() {
		return true
	}
	_, ok := features[s.ID]
	return ok
}

// For builds the plan for s.
func For(s scenario.Scenario, env Env) (step.Plan, error) {
	if env.Builder == nil {
		return step.Plan{}, errors.New("journey: environment has no builder")
	}
	if env.Route == "" {
		env.Route = s.Route
	}
	if s.IsJourney() {
		return fullJourney(s, env), nil
	}
	build, ok := features[s.ID]
	if !ok {
		return step.Plan{}, fmt.Errorf("%w: %q", ErrUnknownScenario, s.ID)
	}
	return build(s, env), nil
}

// Assertion helpers shared by the plans.

func visible(b *page.Builder, name string, timeout time.Duration) error {
	f, err := b.Field(name)
	if err != nil {
		return err
	}
	if timeout > 0 {
		f = f.WithTimeout(timeout)
	}
	return f.WaitVisible()
}

func hidden(b *page.Builder, name string) error {
	f, err := b.Field(name)
	if err != nil {
		return err
	}
	return f.WaitHidden()
}

func attached(b *page.Builder, name string) error {
	f, err := b.Field(name)
	if err != nil {
		return err
	}
	return f.WaitAttached()
}

func allVisible(b *page.Builder, names ...string) error {
	for _, name := range names {
		if err := visible(b, name, 0); err != nil {
			return err
		}
	}
	return nil
}

func expectTrue(what string, check func() (bool, error)) error {
	ok, err := check()
	if err != nil {
		return err
	}
	if !ok {
		return &failure.AssertionFailure{What: what, Expected: "true", Actual: "false"}
	}
	return nil
}

func expectCount(what string, want int, count func() (int, error)) error {
	n, err := count()
	if err != nil {
		return err
	}
	if n != want {
		return &failure.AssertionFailure{What: what, Expected: fmt.Sprint(want), Actual: fmt.Sprint(n)}
	}
	return nil
}

func expectContains(what, text string, parts ...string) error {
	missing := lo.Reject(parts, func(p string, _ int) bool { return strings.Contains(text, p) })
	if len(missing) > 0 {
		return &failure.AssertionFailure{What: what, Expected: strings.Join(missing, ", "), Actual: text}
	}
	return nil
}

func expectHeaders(b *page.Builder, want ...string) error {
	headers, err := b.VisibleSectionHeaders()
	if err != nil {
		return err
	}
	if missing := lo.Without(want, headers...); len(missing) > 0 {
		return &failure.AssertionFailure{
			What:     "form sections",
			Expected: strings.Join(missing, ", "),
			Actual:   strings.Join(headers, ", "),
		}
	}
	return nil
}
