//go:build acceptance
// +build acceptance

package acceptance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/networkteam/pagecheck"
	"github.com/networkteam/pagecheck/internal/stubapp"
	"github.com/networkteam/pagecheck/page"
)

// TestFixtures bundles all commonly needed test fixtures.
type TestFixtures struct {
	App   *TestApp
	PW    *PlaywrightFixture
	Suite *pagecheck.Suite
	// ScreenshotDir receives failure screenshots of the suite.
	ScreenshotDir string
}

// FixtureOption adjusts the stub or suite a test runs against.
type FixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	stub    []stubapp.Option
	options pagecheck.Options
}

// WithStub passes options to the stub builder.
func WithStub(opts ...stubapp.Option) FixtureOption {
	return func(c *fixtureConfig) {
		c.stub = append(c.stub, opts...)
	}
}

// WithTimeouts overrides the suite's bounded waits.
func WithTimeouts(t page.Timeouts) FixtureOption {
	return func(c *fixtureConfig) {
		c.options.Timeouts = t
	}
}

// WithTestFixtures creates all fixtures, registers cleanup with t.Cleanup(), and calls the test function.
func WithTestFixtures(t *testing.T, fn func(t *testing.T, f *TestFixtures), opts ...FixtureOption) {
	t.Helper()

	cfg := &fixtureConfig{
		options: pagecheck.Options{
			Parallelism: 4,
			AssetsDir:   "../assets",
			Timeouts: page.Timeouts{
				FormRetryInterval: 500 * time.Millisecond,
				FormRetryBudget:   15 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	app := NewTestApp(t, cfg.stub...)
	t.Cleanup(func() { app.Close() })

	pw := NewPlaywrightFixture(t)
	t.Cleanup(func() { pw.Close() })

	options := cfg.options
	options.BaseURL = app.BaseURL
	options.PreviewHosts = app.PreviewHosts
	options.Logger = app.Logger
	options.ScreenshotDir = t.TempDir()

	suite := pagecheck.NewWithBrowser(options, pw.Browser)
	t.Cleanup(func() {
		require.NoError(t, suite.Close())
	})

	fn(t, &TestFixtures{
		App:           app,
		PW:            pw,
		Suite:         suite,
		ScreenshotDir: options.ScreenshotDir,
	})
}
