// Package locator maps semantic field names to selection strategies against a
// live document.
//
// Each page object owns exactly one Registry. Selectors never appear in test
// bodies; they ask the page object for a named Field instead. A Field resolves
// its selector against the current document on every call, so nothing goes
// stale after a re-render or a reload.
package locator

import (
	"fmt"
	"slices"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Kind tells a Field how user intents map onto the element.
type Kind int

const (
	// Input is a wrapper (sl-input) around a native input. Fill writes the
	// inner input and dispatches "input" on it once.
	Input Kind = iota
	// Select is a wrapper (sl-select) around a native select. Select picks the
	// option on the inner select and dispatches "change" on the wrapper once.
	Select
	// Editor is a contenteditable region filled by click + fill.
	Editor
	// File is a file input.
	File
	// Button is a clickable control.
	Button
	// Region is a read-only element.
	Region
	// Plain is a native control filled without a synthetic event.
	Plain
)

func (k Kind) String() string {
	switch k {
	case Input:
		return "input"
	case Select:
		return "select"
	case Editor:
		return "editor"
	case File:
		return "file"
	case Button:
		return "button"
	case Region:
		return "region"
	case Plain:
		return "plain"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Strategy is the fixed traversal path to a field.
type Strategy struct {
	// Selector locates the outer element.
	Selector string
	// Inner is resolved inside Selector for composite fields. Empty means the
	// outer element is the control. Input and Select default to "input" and
	// "select".
	Inner string
	Kind  Kind
	// First picks the first match when the selector is intentionally broad.
	First bool
}

func (s Strategy) inner() string {
	if s.Inner != "" {
		return s.Inner
	}
	switch s.Kind {
	case Input:
		return "input"
	case Select:
		return "select"
	}
	return ""
}

// Path describes the traversal for error messages.
func (s Strategy) Path() string {
	if in := s.inner(); in != "" {
		return s.Selector + " >> " + in
	}
	return s.Selector
}

// Root is what a registry resolves against. playwright.Page satisfies it.
type Root interface {
	Locator(selector string, options ...playwright.PageLocatorOptions) playwright.Locator
}

// Registry is the central table of named fields of one page object.
type Registry struct {
	name    string
	entries map[string]Strategy
	order   []string
}

// NewRegistry creates an empty registry. The name shows up in diagnostics.
func NewRegistry(name string) *Registry {
	return &Registry{
		name:    name,
		entries: make(map[string]Strategy),
	}
}

// Register adds a field. Registering a name twice panics, since registries
// are built once at package init.
func (r *Registry) Register(name string, strategy Strategy) *Registry {
	if _, exists := r.entries[name]; exists {
		panic(fmt.Sprintf("locator: field %q registered twice in %s", name, r.name))
	}
	if strategy.Selector == "" {
		panic(fmt.Sprintf("locator: field %q in %s has no selector", name, r.name))
	}
	r.entries[name] = strategy
	r.order = append(r.order, name)
	return r
}

// Lookup returns the strategy for name.
func (r *Registry) Lookup(name string) (Strategy, bool) {
	s, ok := r.entries[name]
	return s, ok
}

// Names returns all field names in registration order.
func (r *Registry) Names() []string {
	return slices.Clone(r.order)
}

// Name of the registry.
func (r *Registry) Name() string {
	return r.name
}

// Bind attaches the registry to a live document.
func (r *Registry) Bind(root Root, timeout time.Duration) *Fields {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fields{registry: r, root: root, timeout: timeout}
}

// DefaultTimeout bounds every element wait unless a caller passes its own.
const DefaultTimeout = 10 * time.Second
