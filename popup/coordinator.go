// Package popup captures documents the builder opens in a new tab.
package popup

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/networkteam/pagecheck/failure"
)

// DefaultTimeout bounds how long a preview tab may take to open.
const DefaultTimeout = 60 * time.Second

// DefaultHosts are the hosts a preview may be served from.
var DefaultHosts = []string{`business\.stage\.adobe\.com`, `aem\.page`}

// Opener registers for new documents in the browsing context.
// playwright.BrowserContext satisfies it.
type Opener interface {
	ExpectPage(cb func() error, options ...playwright.BrowserContextExpectPageOptions) (playwright.Page, error)
}

// Coordinator opens secondary documents from actions in a primary one.
type Coordinator struct {
	opener  Opener
	hosts   *regexp.Regexp
	timeout time.Duration
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithHosts adds host patterns accepted by ExpectHost.
func WithHosts(patterns ...string) Option {
	return func(c *Coordinator) {
		c.hosts = compileHosts(append(hostPatterns(c.hosts), patterns...))
	}
}

// WithTimeout sets the default open timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Coordinator) {
		c.timeout = timeout
	}
}

// New creates a coordinator for the given browsing context.
func New(opener Opener, opts ...Option) *Coordinator {
	c := &Coordinator{
		opener:  opener,
		hosts:   compileHosts(DefaultHosts),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func hostPatterns(re *regexp.Regexp) []string {
	if re == nil {
		return nil
	}
	return strings.Split(re.String(), "|")
}

func compileHosts(patterns []string) *regexp.Regexp {
	return regexp.MustCompile(strings.Join(patterns, "|"))
}

// Open registers the wait for a new document, then runs trigger. The
// registration always happens first, so a tab opened by a fast trigger is
// not missed. A failing trigger is returned unchanged.
func (c *Coordinator) Open(trigger func() error, timeout time.Duration) (*Secondary, error) {
	if timeout <= 0 {
		timeout = c.timeout
	}
	var triggerErr error
	page, err := c.opener.ExpectPage(func() error {
		triggerErr = trigger()
		return triggerErr
	}, playwright.BrowserContextExpectPageOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if triggerErr != nil {
		return nil, triggerErr
	}
	if err != nil {
		if errors.Is(err, playwright.ErrTimeout) {
			return nil, &failure.PreviewNotOpenedError{Timeout: timeout, Err: err}
		}
		return nil, fmt.Errorf("waiting for new document: %w", err)
	}
	if err := page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State: playwright.LoadStateDomcontentloaded,
	}); err != nil {
		err = fmt.Errorf("waiting for new document to load: %w", err)
		if closeErr := page.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("closing new document: %w", closeErr))
		}
		return nil, err
	}
	return &Secondary{page: page, hosts: c.hosts}, nil
}

// Secondary is a document opened by the coordinator.
type Secondary struct {
	page  playwright.Page
	hosts *regexp.Regexp

	closeOnce sync.Once
	closeErr  error
}

// Page returns the underlying document.
func (s *Secondary) Page() playwright.Page { return s.page }

// URL returns the current URL of the document.
func (s *Secondary) URL() string { return s.page.URL() }

// ExpectHost asserts the document is served from a preview host.
func (s *Secondary) ExpectHost() error {
	raw := s.page.URL()
	u, err := url.Parse(raw)
	if err != nil || !s.hosts.MatchString(u.Host) {
		return &failure.AssertionFailure{
			What:     "preview host",
			Expected: s.hosts.String(),
			Actual:   raw,
		}
	}
	return nil
}

// Close closes the document. Repeated calls return the first result.
func (s *Secondary) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.page.Close()
	})
	return s.closeErr
}
