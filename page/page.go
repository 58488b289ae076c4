// Package page holds the page objects for the landing page builder and the
// preview it publishes.
//
// Page objects are the only place that knows selectors. Callers work with
// intent level methods and semantic field names.
package page

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Builder location and persisted state.
const (
	DefaultBaseURL = "https://da.live"
	BuilderPath    = "/app/adobecom/da-bacom/tools/generator/landing-page"
	StorageKey     = "landing-page-builder"
)

// Timeouts bounds every wait of the page objects.
type Timeouts struct {
	// Element is the default wait for a single element.
	Element time.Duration
	// Navigation bounds waiting for the builder root after a load.
	Navigation time.Duration
	// Settle is the pause between entering the headline and checking the path.
	Settle time.Duration
	// PathAvailable bounds the page path availability check.
	PathAvailable time.Duration
	// FormReveal bounds the full form appearing after confirm.
	FormReveal  time.Duration
	ImageUpload time.Duration
	PDFUpload   time.Duration
	// Preview bounds the preview document opening after save.
	Preview time.Duration
	// FormRetryInterval and FormRetryBudget drive the wait for the embedded
	// form provider.
	FormRetryInterval time.Duration
	FormRetryBudget   time.Duration
	ThankYou          time.Duration
	// Poll is the interval between reads of content that is still rendering.
	Poll time.Duration
}

// DefaultTimeouts returns the bounds used against the live builder.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Element:           10 * time.Second,
		Navigation:        30 * time.Second,
		Settle:            time.Second,
		PathAvailable:     15 * time.Second,
		FormReveal:        10 * time.Second,
		ImageUpload:       15 * time.Second,
		PDFUpload:         30 * time.Second,
		Preview:           60 * time.Second,
		FormRetryInterval: 3 * time.Second,
		FormRetryBudget:   60 * time.Second,
		ThankYou:          30 * time.Second,
		Poll:              250 * time.Millisecond,
	}
}

// withDefaults fills zero values from DefaultTimeouts.
func (t Timeouts) withDefaults() Timeouts {
	d := DefaultTimeouts()
	fill := func(v *time.Duration, def time.Duration) {
		if *v <= 0 {
			*v = def
		}
	}
	fill(&t.Element, d.Element)
	fill(&t.Navigation, d.Navigation)
	fill(&t.Settle, d.Settle)
	fill(&t.PathAvailable, d.PathAvailable)
	fill(&t.FormReveal, d.FormReveal)
	fill(&t.ImageUpload, d.ImageUpload)
	fill(&t.PDFUpload, d.PDFUpload)
	fill(&t.Preview, d.Preview)
	fill(&t.FormRetryInterval, d.FormRetryInterval)
	fill(&t.FormRetryBudget, d.FormRetryBudget)
	fill(&t.ThankYou, d.ThankYou)
	fill(&t.Poll, d.Poll)
	return t
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// retry runs op at a fixed interval until it succeeds or budget is spent and
// returns the last error of op.
func retry(ctx context.Context, interval, budget time.Duration, op func() error) error {
	rctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	var last error
	err := backoff.Retry(func() error {
		last = op()
		if last != nil && errors.Is(last, context.Canceled) {
			return backoff.Permanent(last)
		}
		return last
	}, backoff.WithContext(backoff.NewConstantBackOff(interval), rctx))
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if last != nil {
		return last
	}
	return fmt.Errorf("retry budget of %s spent: %w", budget, err)
}
