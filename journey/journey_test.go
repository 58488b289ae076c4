package journey_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/networkteam/pagecheck/failure"
	"github.com/networkteam/pagecheck/internal/pwfake"
	"github.com/networkteam/pagecheck/journey"
	"github.com/networkteam/pagecheck/page"
	"github.com/networkteam/pagecheck/popup"
	"github.com/networkteam/pagecheck/scenario"
	"github.com/networkteam/pagecheck/step"
	"github.com/networkteam/pagecheck/toast"
)

const saveButton = `sl-button[type="submit"]`

// builderToasts derives the notifications of the builder from its
// interaction log.
type builderToasts struct {
	doc     *pwfake.Document
	invalid bool
}

func (s builderToasts) Snapshot(context.Context) ([]toast.Toast, error) {
	var out []toast.Toast
	for i, entry := range s.doc.Log() {
		seq := (i + 1) * 10
		switch {
		case strings.HasPrefix(entry, "upload ") && strings.HasSuffix(entry, ".pdf"):
			out = append(out, toast.Toast{Seq: seq, Text: "PDF uploaded successfully", Severity: toast.Success, Visible: true})
		case strings.HasPrefix(entry, "upload "):
			out = append(out, toast.Toast{Seq: seq, Text: "Image Uploaded", Severity: toast.Success, Visible: true})
		case entry == "click "+saveButton && s.invalid:
			out = append(out, toast.Toast{Seq: seq, Text: "Please complete all required fields", Severity: toast.Error, Visible: true})
		case entry == "click "+saveButton:
			out = append(out,
				toast.Toast{Seq: seq, Text: "Saving page...", Severity: toast.Info, Visible: true},
				toast.Toast{Seq: seq + 1, Text: "Page saved", Severity: toast.Success, Visible: true},
				toast.Toast{Seq: seq + 2, Text: "Preview updated", Severity: toast.Success, Visible: true},
			)
		}
	}
	return out, nil
}

type fakeOpener struct {
	page playwright.Page
}

func (o *fakeOpener) ExpectPage(cb func() error, _ ...playwright.BrowserContextExpectPageOptions) (playwright.Page, error) {
	if err := cb(); err != nil {
		return nil, err
	}
	return o.page, nil
}

func testTimeouts() page.Timeouts {
	return page.Timeouts{
		Element:       50 * time.Millisecond,
		Navigation:    50 * time.Millisecond,
		Settle:        time.Millisecond,
		PathAvailable: 30 * time.Millisecond,
		FormReveal:    30 * time.Millisecond,
		ImageUpload:   100 * time.Millisecond,
		PDFUpload:     100 * time.Millisecond,
		Preview:       100 * time.Millisecond,
		Poll:          5 * time.Millisecond,
	}
}

func builtin(t *testing.T, id string) scenario.Scenario {
	t.Helper()
	all, err := scenario.Builtin(time.UnixMilli(1767225600000))
	require.NoError(t, err)
	s, ok := scenario.Find(all, id)
	require.True(t, ok, "fixture %s", id)
	return s
}

func selectable(doc *pwfake.Document, name string, options ...string) {
	doc.Set(`sl-select[name="`+name+`"]`, &pwfake.Element{Visible: true})
	doc.Set(`sl-select[name="`+name+`"] >> select`, &pwfake.Element{Options: options})
}

func fillable(doc *pwfake.Document, names ...string) {
	for _, name := range names {
		doc.Set(`sl-input[name="`+name+`"] >> input`, &pwfake.Element{Visible: true})
	}
}

// builderDoc scripts a builder with fresh state whose confirm reveals the
// full form.
func builderDoc() *pwfake.Document {
	doc := pwfake.NewDocument("about:blank")
	doc.Set("da-generator", &pwfake.Element{Visible: true})
	selectable(doc, "contentType", scenario.ContentTypes...)
	selectable(doc, "gated", scenario.Gated, scenario.Ungated)
	selectable(doc, "region")
	fillable(doc, "marqueeHeadline")
	doc.Set(`path-input[name="pageName"] >> input.path-input`, &pwfake.Element{Value: "nala-e2e"})
	doc.Set(`path-input[name="pageName"] button.path-action-btn`, &pwfake.Element{Visible: true})
	doc.Set(`path-input[name="pageName"] svg.validation-icon.available`, &pwfake.Element{Visible: true})
	doc.Set(`sl-button.primary`, &pwfake.Element{Visible: true, OnClick: func(d *pwfake.Document) {
		d.Set(saveButton, &pwfake.Element{Visible: true})
	}})
	return doc
}

func newEnv(doc *pwfake.Document, surface toast.Surface, opts ...page.BuilderOption) journey.Env {
	opts = append([]page.BuilderOption{
		page.WithAssetsDir("testdata"),
		page.WithTimeouts(testTimeouts()),
		page.WithToastVerifier(toast.NewVerifier(surface, toast.WithInterval(2*time.Millisecond))),
	}, opts...)
	return journey.Env{Builder: page.NewBuilder(doc.Page(), opts...), Ref: "main"}
}

func run(t *testing.T, s scenario.Scenario, env journey.Env) *step.Report {
	t.Helper()
	plan, err := journey.For(s, env)
	require.NoError(t, err)

	runner := step.NewRunner()
	defer runner.Close()
	return runner.Run(context.Background(), plan)
}

func TestFor_UnknownScenario(t *testing.T) {
	t.Parallel()

	env := newEnv(builderDoc(), builderToasts{})
	_, err := journey.For(scenario.Scenario{ID: "lpb-does-not-exist"}, env)
	assert.ErrorIs(t, err, journey.ErrUnknownScenario)
	assert.False(t, journey.Has(scenario.Scenario{ID: "lpb-does-not-exist"}))

	_, err = journey.For(builtin(t, "lpb-initial-state"), journey.Env{})
	assert.Error(t, err)
}

func TestFor_CoversBuiltinScenarios(t *testing.T) {
	t.Parallel()

	all, err := scenario.Builtin(time.Now())
	require.NoError(t, err)
	env := newEnv(builderDoc(), builderToasts{})

	assert.Len(t, journey.FeatureIDs(), 20)
	for _, s := range all {
		require.True(t, journey.Has(s), s.ID)
		plan, err := journey.For(s, env)
		require.NoError(t, err, s.ID)
		assert.Equal(t, s.Title(), plan.Name)
		assert.NotEmpty(t, plan.Steps, s.ID)
		if s.IsJourney() {
			assert.Equal(t, journey.JourneyTimeout, plan.Timeout, s.ID)
		} else {
			assert.Equal(t, step.DefaultScenarioTimeout, plan.Timeout, s.ID)
		}
	}
}

func TestFullJourney_GatedLabels(t *testing.T) {
	t.Parallel()

	env := journey.Env{Builder: page.NewBuilder(builderDoc().Page(), page.WithCoordinator(popup.New(&fakeOpener{})))}
	plan, err := journey.For(builtin(t, "lpb-e2e-gated-guide"), env)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Part A-1: Navigate to LPB with fresh state",
		"Part A-2: Fill core options and confirm",
		"Part A-3: Fill Form section (gated)",
		"Part A-4: Fill Marquee section",
		"Part A-5: Fill Body section",
		"Part A-6: Fill Card section",
		"Part A-7: Fill SEO Metadata",
		"Part A-8: Upload PDF asset",
		"Part B-1: Click Save & Preview and wait for new tab",
		"Part B-2: Verify toast sequence",
		"Part B-3: Verify new tab opened on a preview host",
		"Part C-1: Verify marquee content",
		"Part C-2: Verify marquee image",
		"Part C-3: Verify body content",
		"Part C-4: Verify card content",
		"Part C-5: Verify CaaS content type tag",
		"Part C-6: Verify SEO metadata",
		"Part D-1: Verify embedded form is displayed",
		"Part D-2: Verify form description message",
		"Part D-3: Submit form with test data",
		"Part D-4: Verify thank you message",
		"Part D-5: Verify PDF access",
	}, plan.Labels())

	defaults := page.DefaultTimeouts()
	save, _ := lo.Find(plan.Steps, func(s step.Step) bool { return strings.HasPrefix(s.Label, "Part B-1") })
	assert.Equal(t, defaults.Preview+defaults.Navigation, save.Timeout)
	submit, _ := lo.Find(plan.Steps, func(s step.Step) bool { return strings.HasPrefix(s.Label, "Part D-3") })
	assert.Equal(t, defaults.FormRetryBudget+defaults.Navigation, submit.Timeout)
}

func TestFullJourney_VideoLabels(t *testing.T) {
	t.Parallel()

	env := newEnv(builderDoc(), builderToasts{})
	plan, err := journey.For(builtin(t, "lpb-e2e-video-demo"), env)
	require.NoError(t, err)

	labels := plan.Labels()
	assert.Contains(t, labels, "Part A-7: Enter Video URL (no PDF)")
	assert.Equal(t, "Part C-7: Verify video player presence", labels[len(labels)-1])
	assert.False(t, lo.SomeBy(labels, func(l string) bool { return strings.HasPrefix(l, "Part D") }))
}

func reportPreview() *pwfake.Document {
	doc := pwfake.NewDocument("https://main--da-bacom--adobecom.aem.page/resources/reports/nala-e2e")
	doc.Set(".marquee h1, .marquee h2", &pwfake.Element{Visible: true, Text: "Nala E2E Ungated Report 1767225600000"})
	doc.Set(".marquee .body-m, .marquee p", &pwfake.Element{Visible: true, Text: "Insights from 5,000+ marketing leaders worldwide."})
	doc.Set(".marquee img", &pwfake.Element{Visible: true, Attrs: map[string]string{"src": "./media_1.png"}})
	doc.Set(".text", &pwfake.Element{Visible: true, Text: "Key trends shaping the future of digital marketing."})
	doc.Set(".card h3, .consonant-Card-title", &pwfake.Element{Visible: true, Text: "Digital Marketing Report"})
	doc.Set(".card p, .consonant-Card-description", &pwfake.Element{Visible: true, Text: "Get the latest insights on digital marketing trends."})
	doc.Set(`meta[property="og:title"]`, &pwfake.Element{Attrs: map[string]string{"content": "State of Digital Marketing 2025 | Adobe"}})
	doc.Set(`meta[name="description"]`, &pwfake.Element{Attrs: map[string]string{"content": "Discover key trends shaping the marketing landscape."}})
	doc.SetContent(`<meta name="caas-tags" content="caas:content-type/report">`)
	return doc
}

func reportBuilder() *pwfake.Document {
	doc := builderDoc()
	fillable(doc, "marqueeDescription", "cardTitle", "cardDescription", "seoMetadataTitle", "seoMetadataDescription")
	doc.Set(`text-editor[name="bodyDescription"] .editor-content`, &pwfake.Element{Visible: true})
	doc.Set(`image-dropzone[name="marqueeImage"] input.img-file-input`, &pwfake.Element{})
	doc.Set(`image-dropzone[name="cardImage"] input.img-file-input`, &pwfake.Element{})
	doc.Set("input.pdf-file-input", &pwfake.Element{})
	return doc
}

func TestFullJourney_UngatedReport(t *testing.T) {
	t.Parallel()

	doc := reportBuilder()
	preview := reportPreview()
	env := newEnv(doc, builderToasts{doc: doc}, page.WithCoordinator(popup.New(&fakeOpener{page: preview.Page()})))

	report := run(t, builtin(t, "lpb-e2e-ungated-report"), env)

	require.True(t, report.Passed(), "failed at %s: %v", report.FailedStep, report.Err)
	assert.Empty(t, report.CleanupErrs)
	assert.Equal(t, 0, report.Count(step.StatusSkipped))

	log := doc.Log()
	assert.Contains(t, log, "click "+saveButton)
	assert.Contains(t, log, "upload input.pdf-file-input = testdata/sample-guide.pdf")
	assert.Less(t, lo.IndexOf(log, "click sl-button.primary"), lo.IndexOf(log, "click "+saveButton))

	assert.Equal(t, []string{"load", "close"}, preview.Log(), "the preview is closed by the cleanup")
}

func TestFullJourney_WrongPreviewHostFails(t *testing.T) {
	t.Parallel()

	doc := reportBuilder()
	elsewhere := pwfake.NewDocument("https://example.com/preview")
	env := newEnv(doc, builderToasts{doc: doc}, page.WithCoordinator(popup.New(&fakeOpener{page: elsewhere.Page()})))

	report := run(t, builtin(t, "lpb-e2e-ungated-report"), env)

	require.False(t, report.Passed())
	assert.Equal(t, "Part B-3: Verify new tab opened on a preview host", report.FailedStep)
	var assertion *failure.AssertionFailure
	require.ErrorAs(t, report.Err, &assertion)
	assert.Equal(t, "preview host", assertion.What)
	assert.Equal(t, []string{"load", "close"}, elsewhere.Log())
}

func TestFeature_ConfirmDisabled(t *testing.T) {
	t.Parallel()

	doc := builderDoc()
	doc.Update("sl-button.primary", func(el *pwfake.Element) { el.Attrs = map[string]string{"disabled": ""} })
	doc.Set("p.help-text", &pwfake.Element{Visible: true})

	report := run(t, builtin(t, "lpb-confirm-disabled"), newEnv(doc, builderToasts{doc: doc}))

	require.True(t, report.Passed(), "failed at %s: %v", report.FailedStep, report.Err)
	assert.Equal(t, []string{
		"goto https://da.live/app/adobecom/da-bacom/tools/generator/landing-page?ref=main",
		"storage remove " + page.StorageKey,
		"reload",
		`select sl-select[name="contentType"] >> select = Guide`,
		`dispatch change sl-select[name="contentType"]`,
	}, doc.Log())
}

func TestFeature_NavigatesToScenarioRoute(t *testing.T) {
	t.Parallel()

	s := builtin(t, "lpb-confirm-disabled")
	assert.Equal(t, page.BuilderPath, s.Route)
	s.Route = "/app/adobecom/da-bacom-stage/tools/generator/landing-page"

	doc := builderDoc()
	_ = run(t, s, newEnv(doc, builderToasts{doc: doc}))

	require.NotEmpty(t, doc.Log())
	assert.Equal(t, "goto https://da.live/app/adobecom/da-bacom-stage/tools/generator/landing-page?ref=main", doc.Log()[0])
}

func TestFeature_MissingRequiredError(t *testing.T) {
	t.Parallel()

	doc := builderDoc()
	doc.Set(".error-message", &pwfake.Element{Visible: true, Matches: 3})

	report := run(t, builtin(t, "lpb-missing-required-error"), newEnv(doc, builderToasts{doc: doc, invalid: true}))

	require.True(t, report.Passed(), "failed at %s: %v", report.FailedStep, report.Err)
}

func TestFeature_MissingRequiredWithoutToast(t *testing.T) {
	t.Parallel()

	// The builder accepts the save instead of rejecting it.
	doc := builderDoc()
	doc.Set(".error-message", &pwfake.Element{Visible: true})
	plan, err := journey.For(builtin(t, "lpb-missing-required-error"), newEnv(doc, builderToasts{doc: doc}))
	require.NoError(t, err)

	runner := step.NewRunner(step.WithStepTimeout(200 * time.Millisecond))
	defer runner.Close()
	report := runner.Run(context.Background(), plan)

	require.False(t, report.Passed())
	assert.Equal(t, "Save with required fields empty", report.FailedStep)
	var timeoutErr *failure.StepTimeoutError
	assert.ErrorAs(t, report.Err, &timeoutErr)
}

func TestFeature_PersistOnRefresh(t *testing.T) {
	t.Parallel()

	doc := builderDoc()
	fillable(doc, "seoMetadataTitle", "seoMetadataDescription")

	report := run(t, builtin(t, "lpb-persist-on-refresh"), newEnv(doc, builderToasts{doc: doc}))

	require.True(t, report.Passed(), "failed at %s: %v", report.FailedStep, report.Err)
	assert.Equal(t, 2, lo.Count(doc.Log(), "reload"))
}

func TestFeature_PersistOnRefreshDetectsLostState(t *testing.T) {
	t.Parallel()

	doc := builderDoc()
	fillable(doc, "seoMetadataTitle", "seoMetadataDescription")
	doc.OnReload = func(d *pwfake.Document) {
		d.Update(`sl-input[name="seoMetadataTitle"] >> input`, func(el *pwfake.Element) { el.Value = "" })
	}

	report := run(t, builtin(t, "lpb-persist-on-refresh"), newEnv(doc, builderToasts{doc: doc}))

	require.False(t, report.Passed())
	assert.Equal(t, "Verify SEO metadata is restored", report.FailedStep)
	var assertion *failure.AssertionFailure
	require.ErrorAs(t, report.Err, &assertion)
	assert.Equal(t, "Nala Persistence SEO Title", assertion.Expected)
	assert.Empty(t, assertion.Actual)
}

func TestFeature_DropdownStaysOpen(t *testing.T) {
	t.Parallel()

	const ms = `multi-select[name="primaryProducts"]`
	doc := builderDoc()
	doc.Set(ms+" .selected-items", &pwfake.Element{Visible: true})
	doc.Set(ms+" .dropdown-menu", &pwfake.Element{Visible: true})
	doc.Set(ms+" .dropdown-menu .dropdown-option >> nth=0", &pwfake.Element{Visible: true, Text: "Adobe Analytics"})
	doc.Set("h1", &pwfake.Element{Visible: true})

	report := run(t, builtin(t, "lpb-dropdown-close-outside"), newEnv(doc, builderToasts{doc: doc}))

	require.False(t, report.Passed())
	assert.Equal(t, "Verify dropdown is closed", report.FailedStep)
	var timeoutErr *failure.LocatorTimeoutError
	require.ErrorAs(t, report.Err, &timeoutErr)
	assert.Equal(t, page.FieldProductsMenu, timeoutErr.Field)
	assert.Equal(t, step.StatusSkipped, lo.Must(report.Result("Verify selection is kept")).Status)
}

func TestFeature_RichTextBullets(t *testing.T) {
	t.Parallel()

	doc := builderDoc()
	doc.Set(`text-editor[name="bodyDescription"] .editor-content`, &pwfake.Element{Visible: true, HTML: "<ul><li>First bullet</li><li>Second bullet</li></ul>"})
	doc.Set(`text-editor[name="bodyDescription"] .toolbar-btn.list`, &pwfake.Element{Visible: true})

	report := run(t, builtin(t, "lpb-rich-text-bullets"), newEnv(doc, builderToasts{doc: doc}))

	require.True(t, report.Passed(), "failed at %s: %v", report.FailedStep, report.Err)
	log := doc.Log()
	assert.Equal(t, []string{
		`click text-editor[name="bodyDescription"] .editor-content`,
		`click text-editor[name="bodyDescription"] .toolbar-btn.list`,
		"type First bullet",
		"press Enter",
		"type Second bullet",
	}, log[len(log)-5:])
}

func TestFeature_RichTextBoldNeedsMarkup(t *testing.T) {
	t.Parallel()

	doc := builderDoc()
	doc.Set(`text-editor[name="bodyDescription"] .editor-content`, &pwfake.Element{Visible: true, HTML: "Bold text test"})
	doc.Set(`text-editor[name="bodyDescription"] .toolbar-btn.bold`, &pwfake.Element{Visible: true})

	report := run(t, builtin(t, "lpb-rich-text-bold"), newEnv(doc, builderToasts{doc: doc}))

	require.False(t, report.Passed())
	assert.Equal(t, "Verify bold markup", report.FailedStep)
	assert.Contains(t, doc.Log(), "press ControlOrMeta+a")
}
