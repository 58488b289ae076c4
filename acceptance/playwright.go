//go:build acceptance
// +build acceptance

package acceptance

import (
	"os"
	"strconv"
	"testing"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/require"
)

// PlaywrightFixture owns the driver and the one Chromium instance every
// scenario of a test shares through its own browser context.
type PlaywrightFixture struct {
	PW      *playwright.Playwright
	Browser playwright.Browser
}

// NewPlaywrightFixture starts the driver and launches Chromium.
//
// HEADLESS=false shows the browser window, SLOW_MO=<ms> delays every browser
// operation so a failing journey can be followed by eye.
func NewPlaywrightFixture(t *testing.T) *PlaywrightFixture {
	t.Helper()

	launch := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(os.Getenv("HEADLESS") != "false"),
	}
	if v := os.Getenv("SLOW_MO"); v != "" {
		ms, err := strconv.Atoi(v)
		require.NoError(t, err, "SLOW_MO must be milliseconds")
		launch.SlowMo = playwright.Float(float64(ms))
	}

	pw, err := playwright.Run()
	require.NoError(t, err, "starting playwright driver")
	browser, err := pw.Chromium.Launch(launch)
	if err != nil {
		_ = pw.Stop()
		require.NoError(t, err, "launching chromium")
	}
	return &PlaywrightFixture{PW: pw, Browser: browser}
}

// Close stops the driver. Suite.Close may have closed the browser already.
func (pf *PlaywrightFixture) Close() {
	if pf.Browser.IsConnected() {
		_ = pf.Browser.Close()
	}
	_ = pf.PW.Stop()
}
