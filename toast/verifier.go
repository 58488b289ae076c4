package toast

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/networkteam/pagecheck/collector"
	"github.com/networkteam/pagecheck/failure"
)

// Verifier waits for notifications on a surface.
type Verifier struct {
	surface  Surface
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	seen    map[int]struct{}
	history *collector.RingBuffer[Toast]
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithInterval sets the poll interval. Defaults to 100ms.
func WithInterval(d time.Duration) Option {
	return func(v *Verifier) {
		v.interval = d
	}
}

// WithLogger sets the logger for observations.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Verifier) {
		v.logger = logger
	}
}

// WithHistorySize bounds how many observations are kept for diagnostics.
func WithHistorySize(n uint64) Option {
	return func(v *Verifier) {
		v.history = collector.NewRingBuffer[Toast](n)
	}
}

// NewVerifier creates a verifier for the surface.
func NewVerifier(surface Surface, opts ...Option) *Verifier {
	v := &Verifier{
		surface:  surface,
		interval: 100 * time.Millisecond,
		logger:   slog.New(slog.DiscardHandler),
		seen:     make(map[int]struct{}),
		history:  collector.NewRingBuffer[Toast](50),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// History returns recent first observations, oldest first.
func (v *Verifier) History() []Toast {
	return v.history.All()
}

// snapshot polls the surface once and records toasts not seen before.
func (v *Verifier) snapshot(ctx context.Context) ([]Toast, error) {
	toasts, err := v.surface.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, t := range toasts {
		if _, ok := v.seen[t.Seq]; ok {
			continue
		}
		v.seen[t.Seq] = struct{}{}
		v.history.Add(t)
		v.logger.Debug("Toast observed", slog.Int("seq", t.Seq), slog.String("severity", string(t.Severity)), slog.String("text", t.Text))
	}
	return toasts, nil
}

// WaitFor polls until a visible toast matches exp. Toasts already on screen
// count, so call it after the trigger.
func (v *Verifier) WaitFor(ctx context.Context, exp Expectation, timeout time.Duration) (Toast, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	start := time.Now()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	var seen []string
	for {
		toasts, err := v.snapshot(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return Toast{}, ctx.Err()
			}
			v.logger.Debug("Toast snapshot failed", slog.Any("error", err))
		}
		for _, t := range toasts {
			if exp.Matches(t) {
				return t, nil
			}
			if t.Visible && !lo.Contains(seen, t.String()) {
				seen = append(seen, t.String())
			}
		}

		select {
		case <-ctx.Done():
			return Toast{}, ctx.Err()
		case <-deadline.C:
			return Toast{}, &failure.ToastTimeoutError{
				Text:     exp.Text,
				Severity: string(exp.Severity),
				Elapsed:  time.Since(start),
				Seen:     seen,
			}
		case <-time.After(v.interval):
		}
	}
}

// Watch starts recording toasts that appear from now on. Start it before the
// trigger so quickly dismissed toasts are not missed, and Stop it when done.
func (v *Verifier) Watch(ctx context.Context) *Watch {
	return v.watch(ctx, false)
}

// VerifySequence checks that exps appear in this order within timeout,
// counting toasts that are already on screen.
func (v *Verifier) VerifySequence(ctx context.Context, exps []Expectation, timeout time.Duration) error {
	w := v.watch(ctx, true)
	defer w.Stop()
	return w.Sequence(ctx, exps, timeout)
}

func (v *Verifier) watch(ctx context.Context, includeExisting bool) *Watch {
	ctx, cancel := context.WithCancel(ctx)
	w := &Watch{
		verifier: v,
		cancel:   cancel,
		done:     make(chan struct{}),
		changed:  make(chan struct{}, 1),
		known:    make(map[int]struct{}),
	}
	if !includeExisting {
		if toasts, err := v.snapshot(ctx); err == nil {
			for _, t := range toasts {
				w.known[t.Seq] = struct{}{}
			}
		}
	}
	go w.poll(ctx)
	return w
}

// Watch is a running registration of toast observations.
type Watch struct {
	verifier *Verifier
	cancel   context.CancelFunc
	done     chan struct{}
	changed  chan struct{}

	mu       sync.Mutex
	known    map[int]struct{}
	observed []Toast
	cursor   int
	stopOnce sync.Once
}

func (w *Watch) poll(ctx context.Context) {
	defer close(w.done)
	ticker := time.NewTicker(w.verifier.interval)
	defer ticker.Stop()
	for {
		toasts, err := w.verifier.snapshot(ctx)
		if err == nil {
			w.record(toasts)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *Watch) record(toasts []Toast) {
	w.mu.Lock()
	added := false
	for _, t := range toasts {
		if !t.Visible {
			continue
		}
		if _, ok := w.known[t.Seq]; ok {
			continue
		}
		w.known[t.Seq] = struct{}{}
		w.observed = append(w.observed, t)
		added = true
	}
	w.mu.Unlock()
	if added {
		select {
		case w.changed <- struct{}{}:
		default:
		}
	}
}

// Observed returns everything recorded so far in first-seen order.
func (w *Watch) Observed() []Toast {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Toast(nil), w.observed...)
}

// Stop ends polling. It is safe to call more than once.
func (w *Watch) Stop() {
	w.stopOnce.Do(func() {
		w.cancel()
		<-w.done
	})
}

// Expect consumes observations until one matches exp.
func (w *Watch) Expect(ctx context.Context, exp Expectation, timeout time.Duration) (Toast, error) {
	toasts, err := w.sequence(ctx, []Expectation{exp}, timeout)
	if err != nil {
		return Toast{}, err
	}
	return toasts[0], nil
}

// Sequence consumes observations and requires exps in order. Unrelated toasts
// in between are ignored; a later expectation observed before the current one
// fails with failure.ToastOrderError.
func (w *Watch) Sequence(ctx context.Context, exps []Expectation, timeout time.Duration) error {
	_, err := w.sequence(ctx, exps, timeout)
	return err
}

func (w *Watch) sequence(ctx context.Context, exps []Expectation, timeout time.Duration) ([]Toast, error) {
	if timeout <= 0 {
		timeout = SequenceTimeout
	}
	start := time.Now()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	matched := make([]Toast, 0, len(exps))
	for pos := 0; pos < len(exps); {
		t, found, err := w.next(exps, pos)
		if err != nil {
			return matched, err
		}
		if found {
			matched = append(matched, t)
			pos++
			continue
		}

		select {
		case <-ctx.Done():
			return matched, ctx.Err()
		case <-deadline.C:
			// One last look, the poller may have recorded them just now.
			return w.drain(exps, pos, matched, start)
		case <-w.changed:
		case <-w.done:
			if ctx.Err() != nil {
				return matched, ctx.Err()
			}
			// Stopped watch: only what was recorded can still match.
			return w.drain(exps, pos, matched, start)
		}
	}
	return matched, nil
}

func (w *Watch) drain(exps []Expectation, pos int, matched []Toast, start time.Time) ([]Toast, error) {
	for ; pos < len(exps); pos++ {
		t, found, err := w.next(exps, pos)
		if err != nil {
			return matched, err
		}
		if !found {
			return matched, w.timeout(exps[pos], start)
		}
		matched = append(matched, t)
	}
	return matched, nil
}

func (w *Watch) timeout(exp Expectation, start time.Time) error {
	return &failure.ToastTimeoutError{
		Text:     exp.Text,
		Severity: string(exp.Severity),
		Elapsed:  time.Since(start),
		Seen:     lo.Map(w.Observed(), func(t Toast, _ int) string { return t.String() }),
	}
}

// next scans unconsumed observations for exps[pos].
func (w *Watch) next(exps []Expectation, pos int) (Toast, bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := w.cursor; i < len(w.observed); i++ {
		t := w.observed[i]
		if exps[pos].Matches(t) {
			w.cursor = i + 1
			return t, true, nil
		}
		for _, later := range exps[pos+1:] {
			if later.Matches(t) {
				w.cursor = i + 1
				return Toast{}, false, &failure.ToastOrderError{
					Expected: exps[pos].String(),
					Got:      t.String(),
					Position: pos,
				}
			}
		}
	}
	w.cursor = len(w.observed)
	return Toast{}, false, nil
}
