// Package pagecheck runs landing page builder scenarios in a shared browser.
//
// Every scenario gets its own browser context, so persisted builder state never
// leaks between scenarios running in parallel.
package pagecheck

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/uuid"
	"github.com/playwright-community/playwright-go"
	"github.com/samber/lo"
	slogmulti "github.com/samber/slog-multi"
	"golang.org/x/sync/errgroup"

	"github.com/networkteam/pagecheck/collector"
	"github.com/networkteam/pagecheck/journey"
	"github.com/networkteam/pagecheck/page"
	"github.com/networkteam/pagecheck/report"
	"github.com/networkteam/pagecheck/scenario"
	"github.com/networkteam/pagecheck/step"
	"github.com/networkteam/pagecheck/toast"
)

// DefaultRef is the content branch used when Options.Ref is empty.
const DefaultRef = "main"

// Browser opens isolated browsing contexts. playwright.Browser satisfies it.
type Browser interface {
	NewContext(options ...playwright.BrowserNewContextOptions) (playwright.BrowserContext, error)
	Close(options ...playwright.BrowserCloseOptions) error
}

type Options struct {
	// BaseURL is the origin serving the builder.
	// Default: page.DefaultBaseURL
	BaseURL string
	// Ref is the content branch passed to the builder.
	// Default: DefaultRef
	Ref string
	// Headless hides the browser window. Only used by NewWithOptions.
	Headless bool
	// Parallelism is the number of scenarios running at the same time.
	// Default: 1
	Parallelism int
	// AssetsDir is the directory asset: payload values resolve against.
	// Default: "assets"
	AssetsDir string
	// Timeouts bound the waits of the page objects. Zero fields keep their defaults.
	Timeouts page.Timeouts
	// Logger receives structured logs. Records are also collected per run for the report.
	// Default: nil, logs are only collected
	Logger *slog.Logger
	// PreviewHosts are host patterns accepted for the preview tab in addition
	// to popup.DefaultHosts.
	PreviewHosts []string
	// ScreenshotDir receives a screenshot of the document when a step fails.
	// Default: "", no screenshots
	ScreenshotDir string
	// ExcerptLimit bounds the document HTML kept when a step fails.
	// Default: report.DefaultExcerptLimit
	ExcerptLimit int
	// EventCapacity is the number of run events retained by the journal.
	// Default: 1000
	EventCapacity uint64
	// LogCapacity is the number of log records retained for the report.
	// Default: 5000
	LogCapacity uint64
}

// Suite runs scenarios. Create it with NewWithOptions or NewWithBrowser and
// release it with Close.
type Suite struct {
	options Options
	browser Browser
	pw      *playwright.Playwright

	logger  *slog.Logger
	logs    *collector.LogCollector
	journal *collector.Journal
	runner  *step.Runner

	stopFollow context.CancelFunc
	closeOnce  sync.Once
	closeErr   error
}

// NewWithOptions starts playwright, launches Chromium and creates a suite
// owning both.
func NewWithOptions(options Options) (*Suite, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("starting playwright: %w", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(options.Headless),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launching browser: %w", err)
	}
	s := NewWithBrowser(options, browser)
	s.pw = pw
	return s, nil
}

// NewWithBrowser creates a suite on an already running browser. Close
// closes the browser.
func NewWithBrowser(options Options, browser Browser) *Suite {
	options = withDefaults(options)

	logs := collector.NewLogCollector(options.LogCapacity)
	handlers := []slog.Handler{collector.NewSlogLogCollectorHandler(logs, collector.CollectSlogLogsOptions{Level: slog.LevelDebug})}
	if options.Logger != nil {
		handlers = append(handlers, options.Logger.Handler())
	}
	logger := slog.New(slogmulti.Fanout(handlers...))

	s := &Suite{
		options: options,
		browser: browser,
		logger:  logger,
		logs:    logs,
		journal: collector.NewJournal(options.EventCapacity),
	}
	s.runner = step.NewRunner(
		step.WithLogger(logger),
		step.WithFailureHook(s.captureFailure),
	)

	followCtx, cancel := context.WithCancel(context.Background())
	s.stopFollow = cancel
	go s.journal.Follow(followCtx, s.runner.Subscribe(followCtx))

	return s
}

func withDefaults(o Options) Options {
	o.BaseURL = cmp.Or(o.BaseURL, page.DefaultBaseURL)
	o.Ref = cmp.Or(o.Ref, DefaultRef)
	o.AssetsDir = cmp.Or(o.AssetsDir, "assets")
	o.Parallelism = max(o.Parallelism, 1)
	if o.ExcerptLimit <= 0 {
		o.ExcerptLimit = report.DefaultExcerptLimit
	}
	if o.EventCapacity == 0 {
		o.EventCapacity = 1000
	}
	if o.LogCapacity == 0 {
		o.LogCapacity = 5000
	}
	return o
}

// Close stops the runner and closes the browser.
func (s *Suite) Close() error {
	s.closeOnce.Do(func() {
		s.stopFollow()
		s.runner.Close()
		s.journal.Close()
		s.logs.Close()
		var errs []error
		if err := s.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing browser: %w", err))
		}
		if s.pw != nil {
			if err := s.pw.Stop(); err != nil {
				errs = append(errs, fmt.Errorf("stopping playwright: %w", err))
			}
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}

// Subscribe returns a channel of run events for live progress.
func (s *Suite) Subscribe(ctx context.Context) <-chan collector.Event {
	return s.runner.Subscribe(ctx)
}

// Journal returns the retained run events.
func (s *Suite) Journal() *collector.Journal {
	return s.journal
}

// Logger returns the logger scenarios log to.
func (s *Suite) Logger() *slog.Logger {
	return s.logger
}

// Renderer returns a report renderer that includes the logs of each run.
func (s *Suite) Renderer(opts ...report.Option) *report.Renderer {
	return report.NewRenderer(append([]report.Option{
		report.WithLogs(s.logs),
		report.WithExcerptLimit(s.options.ExcerptLimit),
	}, opts...)...)
}

// Run executes scenarios, up to Options.Parallelism at a time, and returns
// their reports in input order. Failing scenarios are reported, not returned
// as error. An error is returned when a scenario has no plan or a browser
// context cannot be opened.
func (s *Suite) Run(ctx context.Context, scenarios []scenario.Scenario) ([]*step.Report, error) {
	if unknown := lo.Reject(scenarios, func(sc scenario.Scenario, _ int) bool { return journey.Has(sc) }); len(unknown) > 0 {
		ids := lo.Map(unknown, func(sc scenario.Scenario, _ int) string { return sc.ID })
		return nil, fmt.Errorf("%w: %v", journey.ErrUnknownScenario, ids)
	}

	reports := make([]*step.Report, len(scenarios))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.options.Parallelism)
	for i, sc := range scenarios {
		g.Go(func() error {
			r, err := s.runScenario(gctx, sc)
			reports[i] = r
			return err
		})
	}
	err := g.Wait()
	return reports, err
}

func (s *Suite) runScenario(ctx context.Context, sc scenario.Scenario) (*step.Report, error) {
	bctx, err := s.browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport:        &playwright.Size{Width: 1440, Height: 900},
		AcceptDownloads: playwright.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("opening browser context for %s: %w", sc.ID, err)
	}
	defer func() {
		if err := bctx.Close(); err != nil {
			s.logger.Warn("Closing browser context failed", slog.String("scenario", sc.ID), slog.Any("error", err))
		}
	}()

	pg, err := bctx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("opening page for %s: %w", sc.ID, err)
	}

	runID := uuid.Must(uuid.NewV7())
	ctx = collector.WithRunID(ctx, runID)
	logger := s.logger.With(slog.String(collector.RunIDAttr, runID.String()), slog.String("scenario", sc.ID))

	builder := page.NewBuilder(pg,
		page.WithBaseURL(s.options.BaseURL),
		page.WithAssetsDir(s.options.AssetsDir),
		page.WithTimeouts(s.options.Timeouts),
		page.WithPreviewHosts(s.options.PreviewHosts...),
		page.WithToastVerifier(toast.NewVerifier(toast.NewPageSurface(pg), toast.WithLogger(logger))),
		page.WithLogger(logger),
	)
	plan, err := journey.For(sc, journey.Env{
		Builder:        builder,
		Ref:            s.options.Ref,
		PreviewOptions: []page.PreviewOption{page.WithPreviewLogger(logger)},
	})
	if err != nil {
		return nil, err
	}

	return s.runner.Run(withDocument(ctx, pg), plan), nil
}

type documentKeyType struct{}

var documentKey = documentKeyType{}

// withDocument records the document failure diagnostics are taken from.
func withDocument(ctx context.Context, pg playwright.Page) context.Context {
	return context.WithValue(ctx, documentKey, pg)
}

func documentFromContext(ctx context.Context) (playwright.Page, bool) {
	pg, ok := ctx.Value(documentKey).(playwright.Page)
	return pg, ok && pg != nil
}

func (s *Suite) captureFailure(ctx context.Context, res step.Result) *step.Diagnostic {
	pg, ok := documentFromContext(ctx)
	if !ok || pg.IsClosed() {
		return nil
	}
	d := &step.Diagnostic{URL: pg.URL()}
	if html, err := pg.Content(); err != nil {
		s.logger.WarnContext(ctx, "Reading document for diagnostics failed", slog.Any("error", err))
	} else {
		d.HTML = report.Excerpt(html, s.options.ExcerptLimit)
	}

	if s.options.ScreenshotDir == "" {
		return d
	}
	runID, _ := collector.RunIDFromContext(ctx)
	name := filepath.Join(s.options.ScreenshotDir, fmt.Sprintf("%s-%s.png", runID, lo.KebabCase(res.Label)))
	if err := os.MkdirAll(s.options.ScreenshotDir, 0o755); err != nil {
		s.logger.WarnContext(ctx, "Creating screenshot directory failed", slog.Any("error", err))
		return d
	}
	if _, err := pg.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(name),
		FullPage: playwright.Bool(true),
	}); err != nil {
		s.logger.WarnContext(ctx, "Taking screenshot failed", slog.Any("error", err))
		return d
	}
	d.Screenshot = name
	return d
}
