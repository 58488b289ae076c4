// Package toast observes the builder's transient notifications.
//
// Notifications appear and dismiss on their own, so the verifier works on
// snapshots of the notification area. Every element gets a sequence number the
// first time it is seen, which gives it an identity across polls and lets
// ordering be checked on first-seen order.
package toast

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Severity is the notification level, taken from the toast's CSS class.
type Severity string

const (
	Info    Severity = "info"
	Success Severity = "success"
	Warning Severity = "warning"
	Error   Severity = "error"
)

// ParseSeverity returns the severity named by one of the classes, or "".
func ParseSeverity(classes string) Severity {
	for _, c := range strings.Fields(classes) {
		switch Severity(c) {
		case Info, Success, Warning, Error:
			return Severity(c)
		}
	}
	return ""
}

// Toast is one observed notification.
type Toast struct {
	Seq        int
	Text       string
	Severity   Severity
	Visible    bool
	ObservedAt time.Time
}

func (t Toast) String() string {
	if t.Severity == "" {
		return t.Text
	}
	return fmt.Sprintf("%s: %s", t.Severity, t.Text)
}

// Expectation describes a toast to wait for. An empty severity matches any.
type Expectation struct {
	Text     string
	Severity Severity
}

// Matches reports whether a visible toast contains the text with the severity.
func (e Expectation) Matches(t Toast) bool {
	if !t.Visible || !strings.Contains(t.Text, e.Text) {
		return false
	}
	return e.Severity == "" || e.Severity == t.Severity
}

func (e Expectation) String() string {
	if e.Severity == "" {
		return e.Text
	}
	return fmt.Sprintf("%s: %s", e.Severity, e.Text)
}

// Surface takes a snapshot of the notification area.
type Surface interface {
	Snapshot(ctx context.Context) ([]Toast, error)
}

// Well-known builder notifications.
var (
	ImageUploaded   = Expectation{Text: "Image Uploaded", Severity: Success}
	PDFUploaded     = Expectation{Text: "PDF uploaded successfully", Severity: Success}
	SavingPage      = Expectation{Text: "Saving page", Severity: Info}
	PageSaved       = Expectation{Text: "Page saved", Severity: Success}
	PreviewUpdated  = Expectation{Text: "Preview updated", Severity: Success}
	RequiredMissing = Expectation{Text: "Please complete all required fields", Severity: Error}
)

// Default bounds for the well-known notifications.
const (
	ImageUploadTimeout = 15 * time.Second
	PDFUploadTimeout   = 30 * time.Second
	DefaultTimeout     = 10 * time.Second
	SequenceTimeout    = 30 * time.Second
)
