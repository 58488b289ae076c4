//go:build acceptance
// +build acceptance

package acceptance

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/networkteam/pagecheck/failure"
	"github.com/networkteam/pagecheck/internal/stubapp"
	"github.com/networkteam/pagecheck/journey"
	"github.com/networkteam/pagecheck/page"
	"github.com/networkteam/pagecheck/report"
	"github.com/networkteam/pagecheck/scenario"
	"github.com/networkteam/pagecheck/step"
)

func builtin(t *testing.T, ids ...string) []scenario.Scenario {
	t.Helper()
	all, err := scenario.Builtin(time.Now())
	require.NoError(t, err)
	byID := lo.KeyBy(all, func(s scenario.Scenario) string { return s.ID })
	return lo.Map(ids, func(id string, _ int) scenario.Scenario {
		s, ok := byID[id]
		require.True(t, ok, "scenario %s", id)
		return s
	})
}

// requirePassed fails the test with the console summary of every failed report.
func requirePassed(t *testing.T, reports []*step.Report) {
	t.Helper()
	failed := lo.Reject(reports, func(r *step.Report, _ int) bool { return r.Passed() })
	if len(failed) == 0 {
		return
	}
	var sb strings.Builder
	report.PrintSummary(&sb, failed)
	t.Fatalf("%d of %d scenarios failed:\n%s", len(failed), len(reports), sb.String())
}

func TestBuilderFeatures(t *testing.T) {
	WithTestFixtures(t, func(t *testing.T, f *TestFixtures) {
		scenarios := builtin(t, journey.FeatureIDs()...)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		reports, err := f.Suite.Run(ctx, scenarios)
		require.NoError(t, err)
		require.Len(t, reports, len(scenarios))

		requirePassed(t, reports)
		assert.Empty(t, f.App.Stub.Pages(), "feature checks never save a complete page")
	})
}

func TestPathConflictIsReported(t *testing.T) {
	WithTestFixtures(t, func(t *testing.T, f *TestFixtures) {
		reports, err := f.Suite.Run(context.Background(), builtin(t, "lpb-confirm-shows-form"))
		require.NoError(t, err)
		require.Len(t, reports, 1)

		r := reports[0]
		require.False(t, r.Passed())
		assert.Equal(t, "Fill core options and confirm", r.FailedStep)

		var conflict *failure.PathConflictError
		require.True(t, errors.As(r.Err, &conflict), "got %v", r.Err)
		assert.True(t, conflict.Conflict)

		require.NotNil(t, r.Diagnostic)
		assert.Contains(t, r.Diagnostic.URL, page.BuilderPath)
		assert.Contains(t, r.Diagnostic.HTML, "path-input")
		require.NotEmpty(t, r.Diagnostic.Screenshot)
		_, err = os.Stat(r.Diagnostic.Screenshot)
		assert.NoError(t, err, "screenshot is written")

		lo.ForEach(r.Steps[2:], func(res step.Result, _ int) {
			assert.Equal(t, step.StatusSkipped, res.Status, res.Label)
		})
	}, WithStub(stubapp.WithTakenPaths("nala-lpb-confirm-test")), WithTimeouts(page.Timeouts{PathAvailable: 2 * time.Second}))
}
