package locator

import (
	"errors"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/networkteam/pagecheck/failure"
)

// Fields is a registry bound to a live document.
type Fields struct {
	registry *Registry
	root     Root
	timeout  time.Duration
}

// Get returns the named field or failure.ErrUnknownField.
func (fs *Fields) Get(name string) (*Field, error) {
	strategy, ok := fs.registry.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%s: %w: %q", fs.registry.Name(), failure.ErrUnknownField, name)
	}
	return &Field{name: name, strategy: strategy, root: fs.root, timeout: fs.timeout, nth: -1}, nil
}

// Must is Get for names the page object registered itself.
func (fs *Fields) Must(name string) *Field {
	f, err := fs.Get(name)
	if err != nil {
		panic(err)
	}
	return f
}

// Root returns the document the fields resolve against.
func (fs *Fields) Root() Root {
	return fs.root
}

// Field is the capability object for one semantic field.
type Field struct {
	name     string
	strategy Strategy
	root     Root
	timeout  time.Duration
	hasText  string
	nth      int
}

// Name is the semantic field name.
func (f *Field) Name() string { return f.name }

// Strategy returns the traversal path of the field.
func (f *Field) Strategy() Strategy { return f.strategy }

// WithTimeout returns a copy of the field with a different bounded wait.
func (f *Field) WithTimeout(timeout time.Duration) *Field {
	cp := *f
	cp.timeout = timeout
	return &cp
}

// WithText narrows the field to outer elements containing text.
func (f *Field) WithText(text string) *Field {
	cp := *f
	cp.hasText = text
	return &cp
}

// Nth narrows the field to the outer element at index.
func (f *Field) Nth(index int) *Field {
	cp := *f
	cp.nth = index
	return &cp
}

// Locator resolves the outer element against the current document.
func (f *Field) Locator() playwright.Locator {
	loc := f.root.Locator(f.strategy.Selector)
	if f.strategy.First {
		loc = loc.First()
	}
	if f.hasText != "" {
		loc = loc.Filter(playwright.LocatorFilterOptions{HasText: f.hasText})
	}
	if f.nth >= 0 {
		loc = loc.Nth(f.nth)
	}
	return loc
}

// control resolves the element user input goes to.
func (f *Field) control() playwright.Locator {
	loc := f.Locator()
	if in := f.strategy.inner(); in != "" {
		loc = loc.Locator(in)
	}
	return loc
}

func (f *Field) ms() *float64 {
	return playwright.Float(float64(f.timeout.Milliseconds()))
}

func (f *Field) wrap(err error, state string, start time.Time) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, playwright.ErrTimeout) {
		return &failure.LocatorTimeoutError{
			Field:    f.name,
			Selector: f.strategy.Path(),
			State:    state,
			Elapsed:  time.Since(start),
			Err:      err,
		}
	}
	return fmt.Errorf("field %q: %w", f.name, err)
}

// Fill types text into the field and emits the input signal exactly once.
func (f *Field) Fill(text string) error {
	start := time.Now()
	switch f.strategy.Kind {
	case Input:
		ctl := f.control()
		if err := ctl.Fill(text, playwright.LocatorFillOptions{Timeout: f.ms()}); err != nil {
			return f.wrap(err, "fillable", start)
		}
		return f.wrap(ctl.DispatchEvent("input", nil, playwright.LocatorDispatchEventOptions{Timeout: f.ms()}), "fillable", start)
	case Editor:
		ctl := f.control()
		if err := ctl.Click(playwright.LocatorClickOptions{Timeout: f.ms()}); err != nil {
			return f.wrap(err, "editable", start)
		}
		return f.wrap(ctl.Fill(text, playwright.LocatorFillOptions{Timeout: f.ms()}), "editable", start)
	case Plain:
		return f.wrap(f.control().Fill(text, playwright.LocatorFillOptions{Timeout: f.ms()}), "fillable", start)
	default:
		return fmt.Errorf("field %q: fill not supported for %s", f.name, f.strategy.Kind)
	}
}

// Select picks an option by value and emits the change signal exactly once.
func (f *Field) Select(value string) error {
	start := time.Now()
	switch f.strategy.Kind {
	case Select:
		_, err := f.control().SelectOption(playwright.SelectOptionValues{Values: &[]string{value}}, playwright.LocatorSelectOptionOptions{Timeout: f.ms()})
		if err != nil {
			return f.wrap(err, "selectable", start)
		}
		return f.wrap(f.Locator().DispatchEvent("change", nil, playwright.LocatorDispatchEventOptions{Timeout: f.ms()}), "selectable", start)
	case Plain:
		_, err := f.control().SelectOption(playwright.SelectOptionValues{Values: &[]string{value}}, playwright.LocatorSelectOptionOptions{Timeout: f.ms()})
		return f.wrap(err, "selectable", start)
	default:
		return fmt.Errorf("field %q: select not supported for %s", f.name, f.strategy.Kind)
	}
}

// Click clicks the control.
func (f *Field) Click() error {
	start := time.Now()
	return f.wrap(f.control().Click(playwright.LocatorClickOptions{Timeout: f.ms()}), "clickable", start)
}

// UploadFile attaches a local file to a file input.
func (f *Field) UploadFile(path string) error {
	if f.strategy.Kind != File {
		return fmt.Errorf("field %q: upload not supported for %s", f.name, f.strategy.Kind)
	}
	start := time.Now()
	return f.wrap(f.control().SetInputFiles(path, playwright.LocatorSetInputFilesOptions{Timeout: f.ms()}), "attached", start)
}

// IsVisible reports visibility right now, without waiting.
func (f *Field) IsVisible() (bool, error) {
	visible, err := f.Locator().IsVisible()
	if err != nil {
		return false, fmt.Errorf("field %q: %w", f.name, err)
	}
	return visible, nil
}

// TextContent returns the text of the outer element.
func (f *Field) TextContent() (string, error) {
	start := time.Now()
	text, err := f.Locator().TextContent(playwright.LocatorTextContentOptions{Timeout: f.ms()})
	return text, f.wrap(err, "attached", start)
}

// Texts returns the text of every element the outer selector matches.
func (f *Field) Texts() ([]string, error) {
	texts, err := f.Locator().AllTextContents()
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", f.name, err)
	}
	return texts, nil
}

// InnerHTML returns the markup inside the control.
func (f *Field) InnerHTML() (string, error) {
	start := time.Now()
	html, err := f.control().InnerHTML(playwright.LocatorInnerHTMLOptions{Timeout: f.ms()})
	return html, f.wrap(err, "attached", start)
}

// ScrollIntoView scrolls the outer element into the viewport.
func (f *Field) ScrollIntoView() error {
	start := time.Now()
	err := f.Locator().ScrollIntoViewIfNeeded(playwright.LocatorScrollIntoViewIfNeededOptions{Timeout: f.ms()})
	return f.wrap(err, "visible", start)
}

// InputValue returns the current value of the control.
func (f *Field) InputValue() (string, error) {
	start := time.Now()
	value, err := f.control().InputValue(playwright.LocatorInputValueOptions{Timeout: f.ms()})
	return value, f.wrap(err, "attached", start)
}

// Attribute returns an attribute of the outer element and whether it is set.
func (f *Field) Attribute(name string) (string, bool, error) {
	start := time.Now()
	res, err := f.Locator().Evaluate(`(el, name) => el.getAttribute(name)`, name, playwright.LocatorEvaluateOptions{Timeout: f.ms()})
	if err != nil {
		return "", false, f.wrap(err, "attached", start)
	}
	value, ok := res.(string)
	return value, ok, nil
}

// Count returns how many elements the outer selector matches right now.
func (f *Field) Count() (int, error) {
	loc := f.root.Locator(f.strategy.Selector)
	if f.hasText != "" {
		loc = loc.Filter(playwright.LocatorFilterOptions{HasText: f.hasText})
	}
	n, err := loc.Count()
	if err != nil {
		return 0, fmt.Errorf("field %q: %w", f.name, err)
	}
	return n, nil
}

// WaitVisible waits until the field is visible.
func (f *Field) WaitVisible() error {
	return f.waitFor(playwright.WaitForSelectorStateVisible, "visible")
}

// WaitHidden waits until the field is hidden or detached.
func (f *Field) WaitHidden() error {
	return f.waitFor(playwright.WaitForSelectorStateHidden, "hidden")
}

// WaitAttached waits until the field is in the document.
func (f *Field) WaitAttached() error {
	return f.waitFor(playwright.WaitForSelectorStateAttached, "attached")
}

func (f *Field) waitFor(state *playwright.WaitForSelectorState, label string) error {
	start := time.Now()
	err := f.Locator().WaitFor(playwright.LocatorWaitForOptions{State: state, Timeout: f.ms()})
	return f.wrap(err, label, start)
}
