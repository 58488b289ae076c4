package step

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/uuid"

	"github.com/networkteam/pagecheck/collector"
	"github.com/networkteam/pagecheck/failure"
)

const (
	// DefaultStepTimeout applies to steps without their own timeout.
	DefaultStepTimeout = 60 * time.Second
	// DefaultScenarioTimeout is the ceiling of builder feature scenarios.
	DefaultScenarioTimeout = 120 * time.Second
	// DefaultCleanupTimeout bounds each cleanup and the failure hook.
	DefaultCleanupTimeout = 30 * time.Second
)

// FailureHook captures evidence after a step failed. It runs before the
// cleanups with a fresh bounded context.
type FailureHook func(ctx context.Context, res Result) *Diagnostic

// Runner executes plans.
type Runner struct {
	stepTimeout     time.Duration
	scenarioTimeout time.Duration
	cleanupTimeout  time.Duration
	logger          *slog.Logger
	notifier        *collector.Notifier[collector.Event]
	ownsNotifier    bool
	onFailure       FailureHook
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithStepTimeout sets the default per-step timeout.
func WithStepTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.stepTimeout = d
	}
}

// WithScenarioTimeout sets the ceiling for plans without their own.
func WithScenarioTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.scenarioTimeout = d
	}
}

// WithCleanupTimeout bounds each cleanup.
func WithCleanupTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.cleanupTimeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithNotifier publishes run events to an existing notifier. The runner does
// not close it.
func WithNotifier(n *collector.Notifier[collector.Event]) RunnerOption {
	return func(r *Runner) {
		r.notifier = n
		r.ownsNotifier = false
	}
}

// WithFailureHook sets the hook that captures failure evidence.
func WithFailureHook(hook FailureHook) RunnerOption {
	return func(r *Runner) {
		r.onFailure = hook
	}
}

// NewRunner creates a runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		stepTimeout:     DefaultStepTimeout,
		scenarioTimeout: DefaultScenarioTimeout,
		cleanupTimeout:  DefaultCleanupTimeout,
		logger:          slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.notifier == nil {
		r.notifier = collector.NewNotifier[collector.Event]()
		r.ownsNotifier = true
	}
	return r
}

// Subscribe returns a channel of run events.
func (r *Runner) Subscribe(ctx context.Context) <-chan collector.Event {
	return r.notifier.Subscribe(ctx)
}

// Close releases the runner's notifier if it created it.
func (r *Runner) Close() {
	if !r.ownsNotifier {
		return
	}
	r.notifier.Close()
	if dropped := r.notifier.Dropped(); dropped > 0 {
		r.logger.Warn("Run events were dropped for slow subscribers", slog.Uint64("dropped", dropped))
	}
}

// Run executes plan and always returns a report. The run ID is taken from
// ctx if present.
func (r *Runner) Run(ctx context.Context, plan Plan) *Report {
	runID, ok := collector.RunIDFromContext(ctx)
	if !ok {
		runID = uuid.Must(uuid.NewV7())
		ctx = collector.WithRunID(ctx, runID)
	}
	ceiling := plan.Timeout
	if ceiling <= 0 {
		ceiling = r.scenarioTimeout
	}

	report := &Report{
		RunID:    runID,
		Scenario: plan.Name,
		Steps:    make([]Result, 0, len(plan.Steps)),
		Started:  time.Now(),
	}
	logger := r.logger.With(slog.String("scenario", plan.Name), slog.String("run_id", runID.String()))

	scenarioCtx, cancel := context.WithTimeout(ctx, ceiling)
	defer cancel()
	stack := &cleanupStack{}
	scenarioCtx = withCleanups(scenarioCtx, stack)

	r.notifier.Notify(collector.NewEvent(runID, collector.EventScenarioStarted, plan.Name))
	logger.Info("Scenario started", slog.Int("steps", len(plan.Steps)), slog.Duration("timeout", ceiling))

	for _, s := range plan.Steps {
		if report.Err != nil {
			res := Result{Label: s.Label, Status: StatusSkipped}
			report.Steps = append(report.Steps, res)
			r.publishStep(runID, plan.Name, res, time.Now())
			continue
		}

		res := r.runStep(ctx, scenarioCtx, runID, plan.Name, ceiling, s, logger)
		report.Steps = append(report.Steps, res)
		if res.Err != nil {
			report.FailedStep = s.Label
			report.Err = &failure.StepError{Label: s.Label, Err: res.Err}
			report.Diagnostic = r.diagnose(ctx, res, logger)
		}
	}

	for _, c := range stack.drain() {
		cctx, ccancel := context.WithTimeout(context.WithoutCancel(ctx), r.cleanupTimeout)
		err := runBounded(cctx, c.fn)
		ccancel()
		if err != nil {
			err = fmt.Errorf("cleanup %q: %w", c.label, err)
			report.CleanupErrs = append(report.CleanupErrs, err)
			logger.Warn("Cleanup failed", slog.String("cleanup", c.label), slog.Any("error", err))

			evt := collector.NewEvent(runID, collector.EventCleanupFailed, plan.Name)
			evt.Step = c.label
			evt.Err = err
			r.notifier.Notify(evt)
		}
	}

	report.Duration = time.Since(report.Started)

	finished := collector.NewEvent(runID, collector.EventScenarioFinished, plan.Name)
	finished.Start = report.Started
	finished.End = time.Now()
	finished.Step = report.FailedStep
	finished.Err = report.Err
	if report.Passed() {
		finished.Status = string(StatusPassed)
		logger.Info("Scenario passed", slog.Duration("duration", report.Duration))
	} else {
		finished.Status = string(StatusFailed)
		logger.Error("Scenario failed", slog.String("step", report.FailedStep), slog.Duration("duration", report.Duration), slog.Any("error", report.Err))
	}
	r.notifier.Notify(finished)

	return report
}

func (r *Runner) runStep(parent, scenarioCtx context.Context, runID uuid.UUID, scenario string, ceiling time.Duration, s Step, logger *slog.Logger) Result {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = r.stepTimeout
	}
	start := time.Now()

	evt := collector.NewEvent(runID, collector.EventStepStarted, scenario)
	evt.Step = s.Label
	r.notifier.Notify(evt)
	logger.Debug("Step started", slog.String("step", s.Label))

	stepCtx, cancel := context.WithTimeout(scenarioCtx, timeout)
	defer cancel()

	err := runBounded(stepCtx, s.Action)
	if err != nil && (errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)) {
		switch {
		case parent.Err() != nil:
			err = parent.Err()
		case errors.Is(scenarioCtx.Err(), context.DeadlineExceeded):
			err = &failure.ScenarioTimeoutError{Scenario: scenario, Timeout: ceiling, Step: s.Label}
		case errors.Is(stepCtx.Err(), context.DeadlineExceeded):
			err = &failure.StepTimeoutError{Label: s.Label, Timeout: timeout}
		}
	}

	res := Result{Label: s.Label, Status: StatusPassed, Duration: time.Since(start), Err: err}
	if err != nil {
		res.Status = StatusFailed
		logger.Warn("Step failed", slog.String("step", s.Label), slog.Duration("duration", res.Duration), slog.Any("error", err))
	} else {
		logger.Debug("Step passed", slog.String("step", s.Label), slog.Duration("duration", res.Duration))
	}
	r.publishStep(runID, scenario, res, start)
	return res
}

func (r *Runner) publishStep(runID uuid.UUID, scenario string, res Result, start time.Time) {
	evt := collector.NewEvent(runID, collector.EventStepFinished, scenario)
	evt.Step = res.Label
	evt.Status = string(res.Status)
	evt.Err = res.Err
	evt.Start = start
	evt.End = start.Add(res.Duration)
	r.notifier.Notify(evt)
}

func (r *Runner) diagnose(ctx context.Context, res Result, logger *slog.Logger) *Diagnostic {
	if r.onFailure == nil {
		return nil
	}
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cleanupTimeout)
	defer cancel()

	var diag *Diagnostic
	err := runBounded(dctx, func(ctx context.Context) error {
		diag = r.onFailure(ctx, res)
		return nil
	})
	if err != nil {
		logger.Warn("Capturing failure diagnostics failed", slog.Any("error", err))
		return nil
	}
	return diag
}

// runBounded runs fn and returns when it finishes or ctx is done, whichever
// comes first. Panics become errors.
func runBounded(ctx context.Context, fn Func) error {
	errCh := make(chan error, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				errCh <- fmt.Errorf("panic: %v", rec)
			}
		}()
		errCh <- fn(ctx)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
