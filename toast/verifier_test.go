package toast_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/networkteam/pagecheck/failure"
	"github.com/networkteam/pagecheck/toast"
)

type fakeSurface struct {
	mu     sync.Mutex
	seq    int
	toasts []toast.Toast
	polls  int
}

func (s *fakeSurface) Snapshot(ctx context.Context) ([]toast.Toast, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.polls++
	return append([]toast.Toast(nil), s.toasts...), nil
}

func (s *fakeSurface) show(text string, severity toast.Severity) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.toasts = append(s.toasts, toast.Toast{Seq: s.seq, Text: text, Severity: severity, Visible: true})
	return s.seq
}

func (s *fakeSurface) dismiss(seq int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.toasts {
		if t.Seq == seq {
			s.toasts = append(s.toasts[:i], s.toasts[i+1:]...)
			return
		}
	}
}

// flash shows a toast and removes it again after d.
func (s *fakeSurface) flash(text string, severity toast.Severity, d time.Duration) {
	seq := s.show(text, severity)
	time.Sleep(d)
	s.dismiss(seq)
}

func newVerifier(s *fakeSurface) *toast.Verifier {
	return toast.NewVerifier(s, toast.WithInterval(2*time.Millisecond))
}

func TestVerifier_WaitForExistingToast(t *testing.T) {
	t.Parallel()

	s := &fakeSurface{}
	s.show("Image Uploaded", toast.Success)

	got, err := newVerifier(s).WaitFor(context.Background(), toast.ImageUploaded, 100*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "Image Uploaded", got.Text)
	assert.Equal(t, toast.Success, got.Severity)
}

func TestVerifier_WaitForLateToast(t *testing.T) {
	t.Parallel()

	s := &fakeSurface{}
	go func() {
		time.Sleep(20 * time.Millisecond)
		s.show("PDF uploaded successfully", toast.Success)
	}()

	_, err := newVerifier(s).WaitFor(context.Background(), toast.PDFUploaded, time.Second)
	require.NoError(t, err)
}

func TestVerifier_WaitForSeverityMismatchTimesOut(t *testing.T) {
	t.Parallel()

	s := &fakeSurface{}
	s.show("Please complete all required fields", toast.Warning)

	start := time.Now()
	_, err := newVerifier(s).WaitFor(context.Background(), toast.RequiredMissing, 30*time.Millisecond)

	var timeoutErr *failure.ToastTimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, "Please complete all required fields", timeoutErr.Text)
	assert.Equal(t, "error", timeoutErr.Severity)
	assert.Equal(t, []string{"warning: Please complete all required fields"}, timeoutErr.Seen)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	assert.True(t, failure.IsTimeout(err))
}

func TestVerifier_WaitForAnySeverity(t *testing.T) {
	t.Parallel()

	s := &fakeSurface{}
	s.show("Page saved to draft", toast.Info)

	got, err := newVerifier(s).WaitFor(context.Background(), toast.Expectation{Text: "Page saved"}, 50*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, toast.Info, got.Severity)
}

func TestVerifier_WaitForCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newVerifier(&fakeSurface{}).WaitFor(ctx, toast.PageSaved, time.Second)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestWatch_SequenceWithFastDismiss(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := &fakeSurface{}
	v := newVerifier(s)

	w := v.Watch(context.Background())
	defer w.Stop()

	// Trigger: every toast is gone long before the sequence is checked.
	s.flash("Saving page", toast.Info, 15*time.Millisecond)
	s.flash("Page saved", toast.Success, 15*time.Millisecond)
	s.flash("Preview updated", toast.Success, 15*time.Millisecond)

	err := w.Sequence(context.Background(), []toast.Expectation{toast.SavingPage, toast.PageSaved, toast.PreviewUpdated}, time.Second)
	require.NoError(t, err)

	w.Stop()
	assert.Len(t, v.History(), 3)
}

func TestWatch_SequenceOutOfOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := &fakeSurface{}
	w := newVerifier(s).Watch(context.Background())
	defer w.Stop()

	s.flash("Page saved", toast.Success, 15*time.Millisecond)
	s.flash("Saving page", toast.Info, 15*time.Millisecond)

	err := w.Sequence(context.Background(), []toast.Expectation{toast.SavingPage, toast.PageSaved}, time.Second)

	var orderErr *failure.ToastOrderError
	require.ErrorAs(t, err, &orderErr)
	assert.Equal(t, 0, orderErr.Position)
	assert.Equal(t, "info: Saving page", orderErr.Expected)
	assert.Equal(t, "success: Page saved", orderErr.Got)
}

func TestWatch_IgnoresUnrelatedAndPreexisting(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := &fakeSurface{}
	s.show("Page saved", toast.Success)

	w := newVerifier(s).Watch(context.Background())
	defer w.Stop()

	s.show("Image Uploaded", toast.Success)
	go func() {
		time.Sleep(10 * time.Millisecond)
		s.show("Page saved", toast.Success)
	}()

	got, err := w.Expect(context.Background(), toast.PageSaved, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Seq, "the toast present before Watch does not count")
}

func TestWatch_SequenceTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := &fakeSurface{}
	w := newVerifier(s).Watch(context.Background())
	defer w.Stop()

	s.show("Saving page", toast.Info)

	err := w.Sequence(context.Background(), []toast.Expectation{toast.SavingPage, toast.PageSaved}, 40*time.Millisecond)

	var timeoutErr *failure.ToastTimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, "Page saved", timeoutErr.Text)
	assert.Equal(t, []string{"info: Saving page"}, timeoutErr.Seen)
}

func TestWatch_StoppedWatchMatchesRecorded(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := &fakeSurface{}
	w := newVerifier(s).Watch(context.Background())

	s.show("Saving page", toast.Info)
	require.Eventually(t, func() bool { return len(w.Observed()) == 1 }, time.Second, time.Millisecond)
	w.Stop()
	w.Stop()

	_, err := w.Expect(context.Background(), toast.SavingPage, time.Second)
	require.NoError(t, err)

	_, err = w.Expect(context.Background(), toast.PageSaved, time.Second)
	var timeoutErr *failure.ToastTimeoutError
	assert.ErrorAs(t, err, &timeoutErr)
}

func TestVerifier_VerifySequenceCountsExisting(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := &fakeSurface{}
	s.show("Page saved", toast.Success)
	go func() {
		time.Sleep(10 * time.Millisecond)
		s.show("Preview updated", toast.Success)
	}()

	err := newVerifier(s).VerifySequence(context.Background(), []toast.Expectation{toast.PageSaved, toast.PreviewUpdated}, time.Second)
	require.NoError(t, err)
}

func TestParseSeverity(t *testing.T) {
	assert.Equal(t, toast.Success, toast.ParseSeverity("toast success show"))
	assert.Equal(t, toast.Error, toast.ParseSeverity("error toast"))
	assert.Equal(t, toast.Severity(""), toast.ParseSeverity("toast"))
}
