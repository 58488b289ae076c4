// Package failure holds the typed errors a scenario can fail with.
//
// Every bounded wait in the harness ends in one of these types so a report can
// tell a slow element apart from a missing toast or a tab that never opened.
// Match them with errors.As.
package failure

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnknownField is returned when a page object is asked for a field its
// locator registry does not define.
var ErrUnknownField = errors.New("unknown field")

// LocatorTimeoutError means an element never reached the expected state.
type LocatorTimeoutError struct {
	Field    string
	Selector string
	State    string
	Elapsed  time.Duration
	Err      error
}

func (e *LocatorTimeoutError) Error() string {
	return fmt.Sprintf("locator %q (%s) not %s after %s", e.Field, e.Selector, e.State, e.Elapsed.Round(time.Millisecond))
}

func (e *LocatorTimeoutError) Unwrap() error { return e.Err }

// ToastTimeoutError means an expected notification was never observed.
type ToastTimeoutError struct {
	Text     string
	Severity string
	Elapsed  time.Duration
	// Seen lists the notifications observed while waiting, newest last.
	Seen []string
}

func (e *ToastTimeoutError) Error() string {
	sev := e.Severity
	if sev == "" {
		sev = "any"
	}
	msg := fmt.Sprintf("toast %q (severity %s) not observed after %s", e.Text, sev, e.Elapsed.Round(time.Millisecond))
	if len(e.Seen) > 0 {
		msg += "; seen: " + strings.Join(e.Seen, ", ")
	}
	return msg
}

// ToastOrderError means a later toast of a sequence showed up before an
// earlier one resolved.
type ToastOrderError struct {
	Expected string
	Got      string
	Position int
}

func (e *ToastOrderError) Error() string {
	return fmt.Sprintf("toast sequence broken at position %d: expected %q, observed %q first", e.Position, e.Expected, e.Got)
}

// PathConflictError means the page path never became available.
type PathConflictError struct {
	Path     string
	Conflict bool
	Elapsed  time.Duration
}

func (e *PathConflictError) Error() string {
	if e.Conflict {
		return fmt.Sprintf("page path %q is already taken", e.Path)
	}
	return fmt.Sprintf("page path %q availability not confirmed after %s", e.Path, e.Elapsed.Round(time.Millisecond))
}

// PreviewNotOpenedError means saving did not open a preview document in time.
type PreviewNotOpenedError struct {
	Timeout time.Duration
	Err     error
}

func (e *PreviewNotOpenedError) Error() string {
	return fmt.Sprintf("preview document not opened within %s", e.Timeout)
}

func (e *PreviewNotOpenedError) Unwrap() error { return e.Err }

// FormRevealTimeoutError means the full form did not appear after confirming
// the core options.
type FormRevealTimeoutError struct {
	Timeout time.Duration
	Err     error
}

func (e *FormRevealTimeoutError) Error() string {
	return fmt.Sprintf("full form not revealed within %s after confirm", e.Timeout)
}

func (e *FormRevealTimeoutError) Unwrap() error { return e.Err }

// AssertionFailure is an expected value mismatch.
type AssertionFailure struct {
	What     string
	Expected string
	Actual   string
}

func (e *AssertionFailure) Error() string {
	if e.Actual == "" && e.Expected == "" {
		return e.What
	}
	return fmt.Sprintf("%s: expected %q, got %s", e.What, e.Expected, quoteOrEmpty(e.Actual))
}

// Assertf builds an AssertionFailure with only a description.
func Assertf(format string, args ...any) *AssertionFailure {
	return &AssertionFailure{What: fmt.Sprintf(format, args...)}
}

// StepTimeoutError means a single step exceeded its own deadline.
type StepTimeoutError struct {
	Label   string
	Timeout time.Duration
}

func (e *StepTimeoutError) Error() string {
	return fmt.Sprintf("step %q exceeded its timeout of %s", e.Label, e.Timeout)
}

// ScenarioTimeoutError means the whole scenario exceeded its hard ceiling.
type ScenarioTimeoutError struct {
	Scenario string
	Timeout  time.Duration
	Step     string
}

func (e *ScenarioTimeoutError) Error() string {
	return fmt.Sprintf("scenario %q exceeded its timeout of %s during step %q", e.Scenario, e.Timeout, e.Step)
}

// StepError attaches the failing step label to the underlying cause.
type StepError struct {
	Label string
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %q: %v", e.Label, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// IsTimeout reports whether err is any of the typed timeout failures.
func IsTimeout(err error) bool {
	var (
		locatorErr  *LocatorTimeoutError
		toastErr    *ToastTimeoutError
		previewErr  *PreviewNotOpenedError
		revealErr   *FormRevealTimeoutError
		stepErr     *StepTimeoutError
		scenarioErr *ScenarioTimeoutError
	)
	return errors.As(err, &locatorErr) ||
		errors.As(err, &toastErr) ||
		errors.As(err, &previewErr) ||
		errors.As(err, &revealErr) ||
		errors.As(err, &stepErr) ||
		errors.As(err, &scenarioErr)
}

func quoteOrEmpty(s string) string {
	if s == "" {
		return "nothing"
	}
	return fmt.Sprintf("%q", s)
}
