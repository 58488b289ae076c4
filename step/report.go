package step

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/samber/lo"
)

// Status of a step after the run.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Result is the outcome of one step.
type Result struct {
	Label    string
	Status   Status
	Duration time.Duration
	Err      error
}

// Diagnostic is evidence captured when a step failed.
type Diagnostic struct {
	// URL of the document at the time of failure.
	URL string
	// HTML is an excerpt of the document.
	HTML string
	// Screenshot is the path of a saved screenshot, if any.
	Screenshot string
}

// Report is the outcome of one scenario run.
type Report struct {
	RunID    uuid.UUID
	Scenario string
	Steps    []Result
	// FailedStep is the label of the first failing step, empty on success.
	FailedStep  string
	Err         error
	CleanupErrs []error
	Diagnostic  *Diagnostic
	Started     time.Time
	Duration    time.Duration
}

// Passed reports whether every step passed.
func (r *Report) Passed() bool {
	return r.Err == nil
}

// Count returns how many steps ended with status.
func (r *Report) Count(status Status) int {
	return lo.CountBy(r.Steps, func(res Result) bool { return res.Status == status })
}

// Result returns the result of the step with label.
func (r *Report) Result(label string) (Result, bool) {
	return lo.Find(r.Steps, func(res Result) bool { return res.Label == label })
}
