package report

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/samber/lo"

	"github.com/networkteam/pagecheck/collector"
	"github.com/networkteam/pagecheck/step"
)

var (
	passColor = color.New(color.FgGreen)
	failColor = color.New(color.FgRed, color.Bold)
	skipColor = color.New(color.FgHiBlack)
	warnColor = color.New(color.FgYellow)
	headColor = color.New(color.Bold)
)

// Summary counts the outcome of a set of reports.
type Summary struct {
	Total    int
	Passed   int
	Failed   int
	Duration time.Duration
}

// Summarize counts reports. Nil reports are ignored.
func Summarize(reports []*step.Report) Summary {
	reports = lo.Compact(reports)
	passed := lo.CountBy(reports, (*step.Report).Passed)
	return Summary{
		Total:    len(reports),
		Passed:   passed,
		Failed:   len(reports) - passed,
		Duration: lo.SumBy(reports, func(r *step.Report) time.Duration { return r.Duration }),
	}
}

// PrintSummary writes one line per scenario, the failing step with its error
// and a closing total.
func PrintSummary(w io.Writer, reports []*step.Report) {
	for _, r := range lo.Compact(reports) {
		if r.Passed() {
			passColor.Fprint(w, "PASS")
			fmt.Fprintf(w, " %s (%s)\n", r.Scenario, r.Duration.Round(time.Millisecond))
			continue
		}
		failColor.Fprint(w, "FAIL")
		fmt.Fprintf(w, " %s (%s)\n", r.Scenario, r.Duration.Round(time.Millisecond))
		if r.FailedStep != "" {
			fmt.Fprintf(w, "     at %q: %v\n", r.FailedStep, r.Err)
		} else {
			fmt.Fprintf(w, "     %v\n", r.Err)
		}
		if skipped := r.Count(step.StatusSkipped); skipped > 0 {
			skipColor.Fprintf(w, "     %d steps skipped\n", skipped)
		}
		if r.Diagnostic != nil && r.Diagnostic.Screenshot != "" {
			fmt.Fprintf(w, "     screenshot: %s\n", r.Diagnostic.Screenshot)
		}
		for _, err := range r.CleanupErrs {
			warnColor.Fprintf(w, "     cleanup: %v\n", err)
		}
	}

	s := Summarize(reports)
	line := fmt.Sprintf("%d scenarios, %d passed, %d failed", s.Total, s.Passed, s.Failed)
	if s.Failed > 0 {
		failColor.Fprintln(w, line)
		return
	}
	headColor.Fprintln(w, line)
}

// Follow prints progress for events until ctx ends or events is closed.
func Follow(ctx context.Context, w io.Writer, events <-chan collector.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			printEvent(w, evt)
		}
	}
}

func printEvent(w io.Writer, evt collector.Event) {
	switch evt.Kind {
	case collector.EventScenarioStarted:
		headColor.Fprintf(w, "▶ %s\n", evt.Scenario)
	case collector.EventStepFinished:
		switch step.Status(evt.Status) {
		case step.StatusPassed:
			passColor.Fprint(w, "  ✓")
			fmt.Fprintf(w, " %s › %s (%s)\n", evt.Scenario, evt.Step, evt.Duration().Round(time.Millisecond))
		case step.StatusFailed:
			failColor.Fprint(w, "  ✗")
			fmt.Fprintf(w, " %s › %s: %v\n", evt.Scenario, evt.Step, evt.Err)
		default:
			skipColor.Fprintf(w, "  - %s › %s\n", evt.Scenario, evt.Step)
		}
	case collector.EventCleanupFailed:
		warnColor.Fprintf(w, "  ! %s › cleanup %s: %v\n", evt.Scenario, evt.Step, evt.Err)
	case collector.EventScenarioFinished:
		if evt.Status == string(step.StatusFailed) {
			failColor.Fprintf(w, "■ %s failed (%s)\n", evt.Scenario, evt.Duration().Round(time.Millisecond))
			return
		}
		passColor.Fprintf(w, "■ %s passed (%s)\n", evt.Scenario, evt.Duration().Round(time.Millisecond))
	}
}
