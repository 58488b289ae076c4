// Package pwfake is a scripted stand-in for playwright pages and locators.
// It is only meant to be used from tests.
//
// Fakes embed the playwright interfaces, so any method a test did not script
// panics with a nil dereference instead of silently passing.
package pwfake

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Element is the scripted state of one resolved path.
type Element struct {
	Visible bool
	Text    string
	Value   string
	HTML    string
	Attrs   map[string]string
	// Matches is what Count reports; zero means 1 when the element exists.
	Matches int
	// OnClick runs after a click was recorded.
	OnClick func(d *Document)
	// Options lists selectable values; empty accepts anything.
	Options []string
}

// Document records every interaction and resolves paths against Elements.
type Document struct {
	mu       sync.Mutex
	elements map[string]*Element
	log      []string
	resolves map[string]int

	// Storage backs localStorage evaluations.
	Storage map[string]string

	url     string
	content string

	// EvaluateFn overrides page-level Evaluate when set.
	EvaluateFn func(expression string, arg ...any) (any, error)
	// OnReload runs after each reload.
	OnReload func(d *Document)
	// LoadErr fails WaitForLoadState when set.
	LoadErr error
}

// NewDocument creates an empty document at url.
func NewDocument(url string) *Document {
	return &Document{
		elements: make(map[string]*Element),
		resolves: make(map[string]int),
		Storage:  make(map[string]string),
		url:      url,
	}
}

// Set defines or replaces the element at path.
func (d *Document) Set(path string, el *Element) *Document {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.elements[path] = el
	return d
}

// Update mutates the element at path under the document lock.
func (d *Document) Update(path string, fn func(el *Element)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	el, ok := d.elements[path]
	if !ok {
		el = &Element{}
		d.elements[path] = el
	}
	fn(el)
}

// Remove deletes the element at path.
func (d *Document) Remove(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.elements, path)
}

// SetContent sets what Content returns.
func (d *Document) SetContent(html string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.content = html
}

// Log returns the recorded interactions in order.
func (d *Document) Log() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.log...)
}

// Resolves returns how often a selector was resolved from the page.
func (d *Document) Resolves(selector string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.resolves[selector]
}

func (d *Document) record(format string, args ...any) {
	d.log = append(d.log, fmt.Sprintf(format, args...))
}

// Record appends an entry to the interaction log from outside the fake.
func (d *Document) Record(format string, args ...any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record(format, args...)
}

func (d *Document) lookup(path string) (*Element, bool) {
	if el, ok := d.elements[path]; ok {
		return el, true
	}
	if base, ok := strings.CutSuffix(path, " >> first"); ok {
		el, ok := d.elements[base]
		return el, ok
	}
	return nil, false
}

// Page returns a playwright.Page view of the document.
func (d *Document) Page() *Page {
	return &Page{doc: d}
}

func timeoutErr(path, state string) error {
	return fmt.Errorf("%w: waiting for %s to be %s", playwright.ErrTimeout, path, state)
}

func waitUntil(timeout *float64, cond func() bool) bool {
	limit := 50 * time.Millisecond
	if timeout != nil {
		limit = time.Duration(*timeout) * time.Millisecond
	}
	deadline := time.Now().Add(limit)
	for {
		if cond() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(2 * time.Millisecond)
	}
}

// Page is the fake playwright.Page.
type Page struct {
	playwright.Page
	doc    *Document
	closed bool
	ctx    playwright.BrowserContext
}

// Doc returns the backing document.
func (p *Page) Doc() *Document { return p.doc }

// SetContext sets what Context returns.
func (p *Page) SetContext(ctx playwright.BrowserContext) { p.ctx = ctx }

func (p *Page) Context() playwright.BrowserContext { return p.ctx }

func (p *Page) Locator(selector string, _ ...playwright.PageLocatorOptions) playwright.Locator {
	p.doc.mu.Lock()
	p.doc.resolves[selector]++
	p.doc.mu.Unlock()
	return &Locator{doc: p.doc, path: selector}
}

func (p *Page) Goto(url string, _ ...playwright.PageGotoOptions) (playwright.Response, error) {
	p.doc.mu.Lock()
	defer p.doc.mu.Unlock()
	p.doc.url = url
	p.doc.record("goto %s", url)
	return nil, nil
}

func (p *Page) Reload(_ ...playwright.PageReloadOptions) (playwright.Response, error) {
	p.doc.mu.Lock()
	p.doc.record("reload")
	hook := p.doc.OnReload
	p.doc.mu.Unlock()
	if hook != nil {
		hook(p.doc)
	}
	return nil, nil
}

func (p *Page) WaitForLoadState(_ ...playwright.PageWaitForLoadStateOptions) error {
	p.doc.mu.Lock()
	defer p.doc.mu.Unlock()
	p.doc.record("load")
	return p.doc.LoadErr
}

func (p *Page) URL() string {
	p.doc.mu.Lock()
	defer p.doc.mu.Unlock()
	return p.doc.url
}

func (p *Page) Content() (string, error) {
	p.doc.mu.Lock()
	defer p.doc.mu.Unlock()
	return p.doc.content, nil
}

func (p *Page) Close(_ ...playwright.PageCloseOptions) error {
	p.doc.Record("close")
	p.closed = true
	return nil
}

func (p *Page) IsClosed() bool { return p.closed }

// Evaluate understands the localStorage snippets used by the builder page
// object and otherwise defers to EvaluateFn.
func (p *Page) Evaluate(expression string, arg ...any) (any, error) {
	p.doc.mu.Lock()
	fn := p.doc.EvaluateFn
	p.doc.mu.Unlock()
	if fn != nil {
		return fn(expression, arg...)
	}
	key := ""
	if len(arg) > 0 {
		key, _ = arg[0].(string)
	}
	p.doc.mu.Lock()
	defer p.doc.mu.Unlock()
	switch {
	case strings.Contains(expression, "localStorage.removeItem"):
		delete(p.doc.Storage, key)
		p.doc.record("storage remove %s", key)
		return nil, nil
	case strings.Contains(expression, "localStorage.getItem"):
		if v, ok := p.doc.Storage[key]; ok {
			return v, nil
		}
		return nil, nil
	}
	return nil, fmt.Errorf("pwfake: unscripted evaluate %q", expression)
}

func (p *Page) Keyboard() playwright.Keyboard {
	return &Keyboard{doc: p.doc}
}

func (p *Page) WaitForTimeout(timeout float64) {
	p.doc.Record("sleep %v", timeout)
}

// Keyboard records typing.
type Keyboard struct {
	playwright.Keyboard
	doc *Document
}

func (k *Keyboard) Type(text string, _ ...playwright.KeyboardTypeOptions) error {
	k.doc.Record("type %s", text)
	return nil
}

func (k *Keyboard) Press(key string, _ ...playwright.KeyboardPressOptions) error {
	k.doc.Record("press %s", key)
	return nil
}

// playwrightLocator lets Locator embed the interface and still define a
// Locator method.
type playwrightLocator = playwright.Locator

// Locator is the fake playwright.Locator. Paths of nested locators are
// joined with " >> ".
type Locator struct {
	playwrightLocator
	doc  *Document
	path string
}

// Path returns the resolved path.
func (l *Locator) Path() string { return l.path }

func (l *Locator) Locator(selectorOrLocator any, _ ...playwright.LocatorLocatorOptions) playwright.Locator {
	var selector string
	switch v := selectorOrLocator.(type) {
	case string:
		selector = v
	case *Locator:
		selector = v.path
	default:
		selector = fmt.Sprint(v)
	}
	return &Locator{doc: l.doc, path: l.path + " >> " + selector}
}

func (l *Locator) First() playwright.Locator {
	return &Locator{doc: l.doc, path: l.path + " >> first"}
}

func (l *Locator) Nth(index int) playwright.Locator {
	return &Locator{doc: l.doc, path: fmt.Sprintf("%s >> nth=%d", l.path, index)}
}

func (l *Locator) Filter(options ...playwright.LocatorFilterOptions) playwright.Locator {
	path := l.path
	for _, o := range options {
		if s, ok := o.HasText.(string); ok {
			path += fmt.Sprintf(" >> has-text=%q", s)
		}
	}
	return &Locator{doc: l.doc, path: path}
}

func (l *Locator) act(timeout *float64, state string, fn func(el *Element)) error {
	var el *Element
	ok := waitUntil(timeout, func() bool {
		l.doc.mu.Lock()
		defer l.doc.mu.Unlock()
		e, found := l.doc.lookup(l.path)
		if found {
			el = e
		}
		return found
	})
	if !ok {
		return timeoutErr(l.path, state)
	}
	l.doc.mu.Lock()
	fn(el)
	l.doc.mu.Unlock()
	return nil
}

func (l *Locator) Fill(value string, options ...playwright.LocatorFillOptions) error {
	var timeout *float64
	if len(options) > 0 {
		timeout = options[0].Timeout
	}
	return l.act(timeout, "fillable", func(el *Element) {
		el.Value = value
		l.doc.record("fill %s = %s", l.path, value)
	})
}

func (l *Locator) DispatchEvent(typ string, _ any, options ...playwright.LocatorDispatchEventOptions) error {
	var timeout *float64
	if len(options) > 0 {
		timeout = options[0].Timeout
	}
	return l.act(timeout, "attached", func(el *Element) {
		l.doc.record("dispatch %s %s", typ, l.path)
	})
}

func (l *Locator) SelectOption(values playwright.SelectOptionValues, options ...playwright.LocatorSelectOptionOptions) ([]string, error) {
	var timeout *float64
	if len(options) > 0 {
		timeout = options[0].Timeout
	}
	var picked []string
	if values.Values != nil {
		picked = *values.Values
	}
	var unknown string
	err := l.act(timeout, "selectable", func(el *Element) {
		for _, v := range picked {
			if len(el.Options) > 0 && !contains(el.Options, v) {
				unknown = v
				return
			}
		}
		if len(picked) > 0 {
			el.Value = picked[0]
		}
		l.doc.record("select %s = %s", l.path, strings.Join(picked, ","))
	})
	if err != nil {
		return nil, err
	}
	if unknown != "" {
		return nil, timeoutErr(l.path+" option "+unknown, "selectable")
	}
	return picked, nil
}

func (l *Locator) Click(options ...playwright.LocatorClickOptions) error {
	var timeout *float64
	if len(options) > 0 {
		timeout = options[0].Timeout
	}
	var hook func(d *Document)
	err := l.act(timeout, "clickable", func(el *Element) {
		l.doc.record("click %s", l.path)
		hook = el.OnClick
	})
	if err == nil && hook != nil {
		hook(l.doc)
	}
	return err
}

func (l *Locator) SetInputFiles(files any, options ...playwright.LocatorSetInputFilesOptions) error {
	var timeout *float64
	if len(options) > 0 {
		timeout = options[0].Timeout
	}
	return l.act(timeout, "attached", func(el *Element) {
		l.doc.record("upload %s = %v", l.path, files)
	})
}

func (l *Locator) IsVisible(_ ...playwright.LocatorIsVisibleOptions) (bool, error) {
	l.doc.mu.Lock()
	defer l.doc.mu.Unlock()
	el, ok := l.doc.lookup(l.path)
	return ok && el.Visible, nil
}

func (l *Locator) TextContent(options ...playwright.LocatorTextContentOptions) (string, error) {
	var timeout *float64
	if len(options) > 0 {
		timeout = options[0].Timeout
	}
	var text string
	err := l.act(timeout, "attached", func(el *Element) { text = el.Text })
	return text, err
}

func (l *Locator) InnerHTML(options ...playwright.LocatorInnerHTMLOptions) (string, error) {
	var timeout *float64
	if len(options) > 0 {
		timeout = options[0].Timeout
	}
	var html string
	err := l.act(timeout, "attached", func(el *Element) { html = el.HTML })
	return html, err
}

func (l *Locator) InputValue(options ...playwright.LocatorInputValueOptions) (string, error) {
	var timeout *float64
	if len(options) > 0 {
		timeout = options[0].Timeout
	}
	var value string
	err := l.act(timeout, "attached", func(el *Element) { value = el.Value })
	return value, err
}

func (l *Locator) GetAttribute(name string, options ...playwright.LocatorGetAttributeOptions) (string, error) {
	var timeout *float64
	if len(options) > 0 {
		timeout = options[0].Timeout
	}
	var value string
	err := l.act(timeout, "attached", func(el *Element) { value = el.Attrs[name] })
	return value, err
}

// Evaluate supports the attribute lookup used by locator.Field.
func (l *Locator) Evaluate(expression string, arg any, options ...playwright.LocatorEvaluateOptions) (any, error) {
	var timeout *float64
	if len(options) > 0 {
		timeout = options[0].Timeout
	}
	if !strings.Contains(expression, "getAttribute") {
		return nil, fmt.Errorf("pwfake: unscripted locator evaluate %q", expression)
	}
	name, _ := arg.(string)
	var (
		value any
	)
	err := l.act(timeout, "attached", func(el *Element) {
		if v, ok := el.Attrs[name]; ok {
			value = v
		}
	})
	return value, err
}

func (l *Locator) Count() (int, error) {
	l.doc.mu.Lock()
	defer l.doc.mu.Unlock()
	el, ok := l.doc.lookup(l.path)
	if !ok {
		return 0, nil
	}
	if el.Matches > 0 {
		return el.Matches, nil
	}
	return 1, nil
}

func (l *Locator) AllTextContents() ([]string, error) {
	l.doc.mu.Lock()
	defer l.doc.mu.Unlock()
	el, ok := l.doc.lookup(l.path)
	if !ok || el.Text == "" {
		return []string{}, nil
	}
	return strings.Split(el.Text, "|"), nil
}

func (l *Locator) ScrollIntoViewIfNeeded(_ ...playwright.LocatorScrollIntoViewIfNeededOptions) error {
	return nil
}

func (l *Locator) WaitFor(options ...playwright.LocatorWaitForOptions) error {
	var (
		timeout *float64
		state   = "visible"
	)
	if len(options) > 0 {
		timeout = options[0].Timeout
		if options[0].State != nil {
			state = string(*options[0].State)
		}
	}
	ok := waitUntil(timeout, func() bool {
		l.doc.mu.Lock()
		defer l.doc.mu.Unlock()
		el, found := l.doc.lookup(l.path)
		switch state {
		case "attached":
			return found
		case "detached":
			return !found
		case "hidden":
			return !found || !el.Visible
		default:
			return found && el.Visible
		}
	})
	if !ok {
		return timeoutErr(l.path, state)
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
