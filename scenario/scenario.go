// Package scenario holds the named data sets the harness runs against the
// builder.
//
// Scenarios are loaded once and treated as read-only. Payload values are
// addressed by logical field name; an absent key or an empty string means the
// corresponding step is skipped, never that the field is cleared.
package scenario

import (
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"github.com/samber/lo"
)

// TagJourney marks full-journey scenarios.
const TagJourney = "@e2e"

// AssetPrefix marks payload values that name a file in the assets directory.
const AssetPrefix = "asset:"

// Content types offered by the builder.
const (
	Guide       = "Guide"
	Infographic = "Infographic"
	Report      = "Report"
	VideoDemo   = "Video/Demo"
)

// Gating modes.
const (
	Gated   = "Gated"
	Ungated = "Ungated"
)

// ContentTypes lists the valid content types.
var ContentTypes = []string{Guide, Infographic, Report, VideoDemo}

// Scenario is one named data set.
type Scenario struct {
	ID      string   `yaml:"id"`
	Name    string   `yaml:"name"`
	Tags    []string `yaml:"tags"`
	Route   string   `yaml:"route"`
	Payload Payload  `yaml:"payload"`
}

// Title is the display name, prefixed with the ID.
func (s Scenario) Title() string {
	return fmt.Sprintf("@%s: %s", s.ID, s.Name)
}

// HasTag reports whether the scenario carries tag. The leading @ is optional.
func (s Scenario) HasTag(tag string) bool {
	tag = normalizeTag(tag)
	return lo.ContainsBy(s.Tags, func(t string) bool { return normalizeTag(t) == tag })
}

// IsJourney reports whether this is a full-journey scenario.
func (s Scenario) IsJourney() bool {
	return s.HasTag(TagJourney)
}

func normalizeTag(tag string) string {
	return "@" + strings.TrimPrefix(strings.TrimSpace(tag), "@")
}

// Payload maps logical field names to values.
type Payload map[string]any

// String returns a non-empty string value.
func (p Payload) String(key string) (string, bool) {
	v, ok := p[key]
	if !ok || v == nil {
		return "", false
	}
	var s string
	switch x := v.(type) {
	case string:
		s = x
	case fmt.Stringer:
		s = x.String()
	default:
		s = fmt.Sprint(x)
	}
	if s == "" {
		return "", false
	}
	return s, true
}

// Get returns the string value or "".
func (p Payload) Get(key string) string {
	s, _ := p.String(key)
	return s
}

// Strings returns a list value. A single string counts as a list of one.
func (p Payload) Strings(key string) []string {
	switch x := p[key].(type) {
	case []string:
		return slices.Clone(x)
	case []any:
		return lo.FilterMap(x, func(item any, _ int) (string, bool) {
			s := fmt.Sprint(item)
			return s, item != nil && s != ""
		})
	case string:
		if x == "" {
			return nil
		}
		return []string{x}
	}
	return nil
}

// Map returns a copy of a nested value.
func (p Payload) Map(key string) Payload {
	switch x := p[key].(type) {
	case map[string]any:
		return Payload(x).Clone()
	case Payload:
		return x.Clone()
	}
	return nil
}

// Asset returns the file path for key. Values with the asset: prefix resolve
// against dir, other values are used as they are.
func (p Payload) Asset(key, dir string) (string, bool) {
	s, ok := p.String(key)
	if !ok {
		return "", false
	}
	if name, found := strings.CutPrefix(s, AssetPrefix); found {
		return filepath.Join(dir, name), true
	}
	return s, true
}

// Clone returns a deep copy.
func (p Payload) Clone() Payload {
	if p == nil {
		return nil
	}
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return map[string]any(Payload(x).Clone())
	case Payload:
		return x.Clone()
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return slices.Clone(x)
	}
	return v
}

// Keys returns the payload keys in sorted order.
func (p Payload) Keys() []string {
	return slices.Sorted(maps.Keys(p))
}

// FormData is the contact data submitted to the embedded form of a gated
// preview.
type FormData struct {
	FirstName string
	LastName  string
	Email     string
	Company   string
	Country   string
	State     string
	ZipCode   string
	Phone     string
}

// FormData reads the nested formTestData value.
func (p Payload) FormData() (FormData, bool) {
	m := p.Map("formTestData")
	if m == nil {
		return FormData{}, false
	}
	return FormData{
		FirstName: m.Get("firstName"),
		LastName:  m.Get("lastName"),
		Email:     m.Get("email"),
		Company:   m.Get("company"),
		Country:   m.Get("country"),
		State:     m.Get("state"),
		ZipCode:   m.Get("zipCode"),
		Phone:     m.Get("phone"),
	}, true
}

// Validate checks the payload against what the builder accepts.
func Validate(s Scenario) error {
	var errs []error
	if s.ID == "" {
		errs = append(errs, errors.New("missing id"))
	}
	p := s.Payload
	contentType, hasType := p.String("contentType")
	if hasType && !slices.Contains(ContentTypes, contentType) {
		errs = append(errs, fmt.Errorf("content type %q is not one of %s", contentType, strings.Join(ContentTypes, ", ")))
	}
	gated, hasGated := p.String("gated")
	if hasGated && gated != Gated && gated != Ungated {
		errs = append(errs, fmt.Errorf("gating mode %q is neither %s nor %s", gated, Gated, Ungated))
	}
	if contentType == VideoDemo {
		if _, ok := p.String("pdfAsset"); ok {
			errs = append(errs, errors.New("Video/Demo must not carry pdfAsset"))
		}
	}
	if s.IsJourney() {
		if !hasType || !hasGated {
			errs = append(errs, errors.New("journey needs contentType and gated"))
		}
		if _, ok := p.String("headline"); !ok {
			errs = append(errs, errors.New("journey needs headline"))
		}
		if gated == Gated {
			for _, key := range []string{"formTemplate", "campaignId"} {
				if _, ok := p.String(key); !ok {
					errs = append(errs, fmt.Errorf("gated journey needs %s", key))
				}
			}
		}
		if contentType == VideoDemo {
			if _, ok := p.String("videoUrl"); !ok {
				errs = append(errs, errors.New("Video/Demo journey needs videoUrl"))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("scenario %q: %w", s.ID, errors.Join(errs...))
	}
	return nil
}

// ValidateAll validates every scenario and checks that IDs are unique.
func ValidateAll(scenarios []Scenario) error {
	var errs []error
	for _, s := range scenarios {
		if err := Validate(s); err != nil {
			errs = append(errs, err)
		}
	}
	for _, id := range lo.FindDuplicates(lo.Map(scenarios, func(s Scenario, _ int) string { return s.ID })) {
		errs = append(errs, fmt.Errorf("scenario %q defined more than once", id))
	}
	return errors.Join(errs...)
}

// Filter returns the scenarios carrying all tags, in their original order.
func Filter(scenarios []Scenario, tags ...string) []Scenario {
	return lo.Filter(scenarios, func(s Scenario, _ int) bool {
		return lo.EveryBy(tags, s.HasTag)
	})
}

// Find returns the scenario with id.
func Find(scenarios []Scenario, id string) (Scenario, bool) {
	return lo.Find(scenarios, func(s Scenario) bool { return s.ID == id })
}
