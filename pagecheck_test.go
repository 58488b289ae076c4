package pagecheck_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/networkteam/pagecheck"
	"github.com/networkteam/pagecheck/collector"
	"github.com/networkteam/pagecheck/failure"
	"github.com/networkteam/pagecheck/internal/pwfake"
	"github.com/networkteam/pagecheck/journey"
	"github.com/networkteam/pagecheck/page"
	"github.com/networkteam/pagecheck/scenario"
)

func TestMain(m *testing.M) {
	// Highlighting failure excerpts starts the regexp engine's shared clock.
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("github.com/dlclark/regexp2.runClock"))
}

// fakeBrowser hands out one fresh document per browser context.
type fakeBrowser struct {
	mu       sync.Mutex
	docs     []*pwfake.Document
	contexts []*fakeContext
	newErr   error
	closed   bool

	running atomic.Int32
	peak    atomic.Int32
}

func (b *fakeBrowser) NewContext(_ ...playwright.BrowserNewContextOptions) (playwright.BrowserContext, error) {
	if b.newErr != nil {
		return nil, b.newErr
	}
	n := b.running.Add(1)
	for {
		p := b.peak.Load()
		if n <= p || b.peak.CompareAndSwap(p, n) {
			break
		}
	}
	doc := pwfake.NewDocument("about:blank")
	doc.SetContent("<html><head></head><body><main>builder failed to load</main></body></html>")
	c := &fakeContext{browser: b, doc: doc}
	b.mu.Lock()
	b.docs = append(b.docs, doc)
	b.contexts = append(b.contexts, c)
	b.mu.Unlock()
	return c, nil
}

func (b *fakeBrowser) Close(_ ...playwright.BrowserCloseOptions) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

type fakeContext struct {
	playwright.BrowserContext
	browser *fakeBrowser
	doc     *pwfake.Document
	closed  atomic.Bool
}

func (c *fakeContext) NewPage() (playwright.Page, error) {
	return c.doc.Page(), nil
}

func (c *fakeContext) Close(_ ...playwright.BrowserContextCloseOptions) error {
	c.closed.Store(true)
	c.browser.running.Add(-1)
	return nil
}

func fastTimeouts() page.Timeouts {
	return page.Timeouts{
		Element:    20 * time.Millisecond,
		Navigation: 30 * time.Millisecond,
	}
}

func featureScenarios(t *testing.T, ids ...string) []scenario.Scenario {
	t.Helper()
	all, err := scenario.Builtin(time.UnixMilli(1767225600000))
	require.NoError(t, err)
	var out []scenario.Scenario
	for _, id := range ids {
		s, ok := scenario.Find(all, id)
		require.True(t, ok, id)
		out = append(out, s)
	}
	return out
}

func TestSuite_RunReportsInInputOrder(t *testing.T) {
	browser := &fakeBrowser{}
	suite := pagecheck.NewWithBrowser(pagecheck.Options{
		BaseURL:     "http://builder.test",
		Ref:         "stage",
		Parallelism: 2,
		Timeouts:    fastTimeouts(),
	}, browser)
	defer suite.Close()

	scenarios := featureScenarios(t, "lpb-initial-state", "lpb-reset-form", "lpb-pdf-clear")
	reports, err := suite.Run(context.Background(), scenarios)
	require.NoError(t, err)
	require.Len(t, reports, 3)

	for i, r := range reports {
		assert.Equal(t, scenarios[i].Title(), r.Scenario)
		assert.False(t, r.Passed())
		assert.Equal(t, "Navigate to LPB with fresh state", r.FailedStep)

		var timeout *failure.LocatorTimeoutError
		assert.ErrorAs(t, r.Err, &timeout)

		require.NotNil(t, r.Diagnostic, "failure diagnostics are captured")
		assert.Equal(t, "http://builder.test"+page.BuilderPath+"?ref=stage", r.Diagnostic.URL)
		assert.Equal(t, "<body><main>builder failed to load</main></body></html>", r.Diagnostic.HTML)
		assert.Empty(t, r.Diagnostic.Screenshot)
	}

	assert.LessOrEqual(t, browser.peak.Load(), int32(2))
	assert.Len(t, browser.contexts, 3, "every scenario gets its own browser context")
	for _, c := range browser.contexts {
		assert.True(t, c.closed.Load())
	}
	for _, doc := range browser.docs {
		assert.Equal(t, []string{
			"goto http://builder.test" + page.BuilderPath + "?ref=stage",
			"storage remove " + page.StorageKey,
			"reload",
		}, doc.Log())
	}

	require.NoError(t, suite.Close())
	assert.True(t, browser.closed)
}

func TestSuite_JournalFollowsRuns(t *testing.T) {
	suite := pagecheck.NewWithBrowser(pagecheck.Options{Timeouts: fastTimeouts()}, &fakeBrowser{})
	defer suite.Close()

	reports, err := suite.Run(context.Background(), featureScenarios(t, "lpb-initial-state"))
	require.NoError(t, err)
	runID := reports[0].RunID

	assert.Eventually(t, func() bool {
		events := suite.Journal().Run(runID)
		return len(events) > 0 && events[len(events)-1].Kind == collector.EventScenarioFinished
	}, time.Second, 5*time.Millisecond)
}

func TestSuite_RendererIncludesRunLogs(t *testing.T) {
	suite := pagecheck.NewWithBrowser(pagecheck.Options{Timeouts: fastTimeouts()}, &fakeBrowser{})
	defer suite.Close()

	reports, err := suite.Run(context.Background(), featureScenarios(t, "lpb-initial-state"))
	require.NoError(t, err)

	var buf strings.Builder
	require.NoError(t, suite.Renderer().Render(context.Background(), &buf, reports))
	assert.Contains(t, buf.String(), "Scenario failed")
}

func TestSuite_RejectsScenariosWithoutPlan(t *testing.T) {
	browser := &fakeBrowser{}
	suite := pagecheck.NewWithBrowser(pagecheck.Options{}, browser)
	defer suite.Close()

	_, err := suite.Run(context.Background(), []scenario.Scenario{{ID: "lpb-unknown", Name: "Unknown"}})

	assert.ErrorIs(t, err, journey.ErrUnknownScenario)
	assert.Empty(t, browser.contexts)
}

func TestSuite_BrowserContextErrorStopsRun(t *testing.T) {
	boom := errors.New("browser has been closed")
	suite := pagecheck.NewWithBrowser(pagecheck.Options{}, &fakeBrowser{newErr: boom})
	defer suite.Close()

	reports, err := suite.Run(context.Background(), featureScenarios(t, "lpb-initial-state"))

	assert.ErrorIs(t, err, boom)
	require.Len(t, reports, 1)
	assert.Nil(t, reports[0])
}
