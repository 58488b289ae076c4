package page

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/networkteam/pagecheck/failure"
	"github.com/networkteam/pagecheck/locator"
	"github.com/networkteam/pagecheck/popup"
	"github.com/networkteam/pagecheck/scenario"
	"github.com/networkteam/pagecheck/toast"
)

// Builder is the page object of the landing page builder form.
type Builder struct {
	page      playwright.Page
	fields    *locator.Fields
	toasts    *toast.Verifier
	popups    *popup.Coordinator
	hosts     []string
	timeouts  Timeouts
	baseURL   string
	assetsDir string
	logger    *slog.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithBaseURL sets the origin the builder is served from.
func WithBaseURL(baseURL string) BuilderOption {
	return func(b *Builder) {
		b.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithAssetsDir sets the directory asset: payload values resolve against.
func WithAssetsDir(dir string) BuilderOption {
	return func(b *Builder) {
		b.assetsDir = dir
	}
}

// WithTimeouts overrides the bounded waits. Zero values keep their defaults.
func WithTimeouts(t Timeouts) BuilderOption {
	return func(b *Builder) {
		b.timeouts = t.withDefaults()
	}
}

// WithToastVerifier replaces the verifier reading the notification area.
func WithToastVerifier(v *toast.Verifier) BuilderOption {
	return func(b *Builder) {
		b.toasts = v
	}
}

// WithCoordinator replaces the coordinator used for documents opened in a new tab.
func WithCoordinator(c *popup.Coordinator) BuilderOption {
	return func(b *Builder) {
		b.popups = c
	}
}

// WithPreviewHosts adds host patterns a preview may be served from. It has
// no effect when WithCoordinator is used.
func WithPreviewHosts(patterns ...string) BuilderOption {
	return func(b *Builder) {
		b.hosts = append(b.hosts, patterns...)
	}
}

// WithLogger sets the logger for page level actions.
func WithLogger(logger *slog.Logger) BuilderOption {
	return func(b *Builder) {
		b.logger = logger
	}
}

// NewBuilder creates the page object for an open page.
func NewBuilder(page playwright.Page, opts ...BuilderOption) *Builder {
	b := &Builder{
		page:      page,
		timeouts:  DefaultTimeouts(),
		baseURL:   DefaultBaseURL,
		assetsDir: "assets",
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.fields = BuilderFields.Bind(page, b.timeouts.Element)
	if b.toasts == nil {
		b.toasts = toast.NewVerifier(toast.NewPageSurface(page), toast.WithLogger(b.logger))
	}
	if b.popups == nil {
		b.popups = popup.New(page.Context(), popup.WithTimeout(b.timeouts.Preview), popup.WithHosts(b.hosts...))
	}
	return b
}

// Page returns the underlying document.
func (b *Builder) Page() playwright.Page { return b.page }

// Toasts returns the notification verifier of the builder document.
func (b *Builder) Toasts() *toast.Verifier { return b.toasts }

// Timeouts returns the effective bounded waits.
func (b *Builder) Timeouts() Timeouts { return b.timeouts }

// Field returns a named field for direct checks.
func (b *Builder) Field(name string) (*locator.Field, error) {
	return b.fields.Get(name)
}

func (b *Builder) field(name string) *locator.Field {
	return b.fields.Must(name)
}

// URL returns the builder address for the given content branch.
// URL is the builder address for route and ref. An empty route means
// BuilderPath.
func (b *Builder) URL(route, ref string) string {
	if route == "" {
		route = BuilderPath
	}
	u := b.baseURL + route
	if ref == "" {
		return u
	}
	return u + "?ref=" + url.QueryEscape(ref)
}

// Navigate opens the builder and waits for its root element.
func (b *Builder) Navigate(route, ref string) error {
	target := b.URL(route, ref)
	b.logger.Debug("Navigating to builder", slog.String("url", target))
	if _, err := b.page.Goto(target, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(b.timeouts.Navigation.Milliseconds())),
	}); err != nil {
		return fmt.Errorf("navigating to %s: %w", target, err)
	}
	return b.waitForGenerator()
}

// NavigateFresh opens the builder with no persisted state: it navigates,
// removes the persisted form state, reloads and waits for the root element.
func (b *Builder) NavigateFresh(route, ref string) error {
	target := b.URL(route, ref)
	if _, err := b.page.Goto(target, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(b.timeouts.Navigation.Milliseconds())),
	}); err != nil {
		return fmt.Errorf("navigating to %s: %w", target, err)
	}
	if err := b.ClearPersistedState(); err != nil {
		return err
	}
	return b.Reload()
}

// Reload reloads the document and waits for the root element.
func (b *Builder) Reload() error {
	if _, err := b.page.Reload(playwright.PageReloadOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(b.timeouts.Navigation.Milliseconds())),
	}); err != nil {
		return fmt.Errorf("reloading builder: %w", err)
	}
	return b.waitForGenerator()
}

func (b *Builder) waitForGenerator() error {
	return b.field(FieldGenerator).WithTimeout(b.timeouts.Navigation).WaitAttached()
}

// PersistedState returns the raw persisted form state and whether it exists.
func (b *Builder) PersistedState() (string, bool, error) {
	res, err := b.page.Evaluate(`(key) => window.localStorage.getItem(key)`, StorageKey)
	if err != nil {
		return "", false, fmt.Errorf("reading persisted state: %w", err)
	}
	s, ok := res.(string)
	return s, ok, nil
}

// ClearPersistedState removes the persisted form state.
func (b *Builder) ClearPersistedState() error {
	if _, err := b.page.Evaluate(`(key) => window.localStorage.removeItem(key)`, StorageKey); err != nil {
		return fmt.Errorf("clearing persisted state: %w", err)
	}
	return nil
}

// Core options

func (b *Builder) SelectContentType(value string) error {
	return b.field(FieldContentType).Select(value)
}

func (b *Builder) SelectGated(value string) error {
	return b.field(FieldGated).Select(value)
}

func (b *Builder) SelectRegion(value string) error {
	return b.field(FieldRegion).Select(value)
}

func (b *Builder) FillMarqueeHeadline(text string) error {
	return b.field(FieldMarqueeHeadline).Fill(text)
}

func (b *Builder) FillPageName(text string) error {
	return b.field(FieldPageName).Fill(text)
}

// PageName returns the generated or entered page name.
func (b *Builder) PageName() (string, error) {
	return b.field(FieldPageName).InputValue()
}

// PathPrefix returns the read-only prefix shown in front of the page name.
func (b *Builder) PathPrefix() (string, error) {
	text, err := b.field(FieldPathPrefix).TextContent()
	return strings.TrimSpace(text), err
}

func (b *Builder) ClickPathCheck() error {
	return b.field(FieldPathCheck).Click()
}

// WaitForPathAvailable waits for the availability indicator. The conflict
// indicator ends the wait early.
func (b *Builder) WaitForPathAvailable() error {
	start := time.Now()
	err := b.field(FieldPathAvailable).WithTimeout(b.timeouts.PathAvailable).WaitVisible()
	if err == nil {
		return nil
	}
	var timeoutErr *failure.LocatorTimeoutError
	if !errors.As(err, &timeoutErr) {
		return err
	}
	name, _ := b.PageName()
	conflict, _ := b.field(FieldPathConflict).IsVisible()
	return &failure.PathConflictError{Path: name, Conflict: conflict, Elapsed: time.Since(start)}
}

func (b *Builder) ClickConfirm() error {
	return b.field(FieldConfirm).Click()
}

// IsConfirmDisabled reports whether the confirm control carries the disabled attribute.
func (b *Builder) IsConfirmDisabled() (bool, error) {
	_, set, err := b.field(FieldConfirm).Attribute("disabled")
	return set, err
}

func (b *Builder) IsHelpTextVisible() (bool, error) {
	return b.field(FieldHelpText).IsVisible()
}

func (b *Builder) IsTemplateLinkVisible() (bool, error) {
	return b.field(FieldTemplateLink).IsVisible()
}

// FillCoreOptions fills the core options in the order the builder requires
// and waits for the page name to settle. It does not confirm.
func (b *Builder) FillCoreOptions(ctx context.Context, p scenario.Payload) error {
	if err := b.SelectContentType(p.Get("contentType")); err != nil {
		return err
	}
	if err := b.SelectGated(p.Get("gated")); err != nil {
		return err
	}
	if region, ok := p.String("region"); ok {
		if err := b.SelectRegion(region); err != nil {
			return err
		}
	}
	if err := b.FillMarqueeHeadline(p.Get("headline")); err != nil {
		return err
	}
	// The page name is derived from the headline after a debounce.
	return sleep(ctx, b.timeouts.Settle)
}

// FillCoreOptionsAndConfirm fills the core options, checks the generated path
// and waits for the full form.
func (b *Builder) FillCoreOptionsAndConfirm(ctx context.Context, p scenario.Payload) error {
	if err := b.FillCoreOptions(ctx, p); err != nil {
		return err
	}
	if err := b.ClickPathCheck(); err != nil {
		return err
	}
	if err := b.WaitForPathAvailable(); err != nil {
		return err
	}
	if err := b.ClickConfirm(); err != nil {
		return err
	}
	if err := b.field(FieldSaveAndPreview).WithTimeout(b.timeouts.FormReveal).WaitVisible(); err != nil {
		return &failure.FormRevealTimeoutError{Timeout: b.timeouts.FormReveal, Err: err}
	}
	b.logger.Debug("Full form revealed", slog.String("contentType", p.Get("contentType")))
	return nil
}

// Sections

// FillFormSection fills the gated form settings.
func (b *Builder) FillFormSection(ctx context.Context, p scenario.Payload) error {
	return b.each(ctx,
		b.selectIf(p, "formTemplate", FieldFormTemplate),
		b.fillIf(p, "campaignId", FieldCampaignID),
		b.selectIf(p, "poi", FieldMarketoPOI),
	)
}

func (b *Builder) FillMarquee(ctx context.Context, p scenario.Payload) error {
	return b.each(ctx,
		b.selectIf(p, "marqueeEyebrow", FieldMarqueeEyebrow),
		b.fillIf(p, "marqueeDescription", FieldMarqueeDescription),
		b.uploadIf(ctx, p, "marqueeImage", b.UploadMarqueeImage),
	)
}

func (b *Builder) FillBody(ctx context.Context, p scenario.Payload) error {
	return b.each(ctx,
		b.fillIf(p, "bodyDescription", FieldBodyDescription),
		b.uploadIf(ctx, p, "bodyImage", b.UploadBodyImage),
	)
}

func (b *Builder) FillCard(ctx context.Context, p scenario.Payload) error {
	return b.each(ctx,
		b.fillIf(p, "cardTitle", FieldCardTitle),
		b.fillIf(p, "cardDescription", FieldCardDescription),
		b.uploadIf(ctx, p, "cardImage", b.UploadCardImage),
	)
}

func (b *Builder) FillCaaS(ctx context.Context, p scenario.Payload) error {
	return b.each(ctx,
		func() error {
			if products := p.Strings("products"); len(products) > 0 {
				return b.SelectProducts(products)
			}
			return nil
		},
		b.selectIf(p, "industry", FieldIndustry),
	)
}

func (b *Builder) FillSEO(ctx context.Context, p scenario.Payload) error {
	return b.each(ctx,
		b.fillIf(p, "seoTitle", FieldSEOTitle),
		b.fillIf(p, "seoDescription", FieldSEODescription),
		b.selectIf(p, "primaryProductName", FieldPrimaryProductName),
	)
}

func (b *Builder) FillExperienceFragment(ctx context.Context, p scenario.Payload) error {
	return b.each(ctx, b.selectIf(p, "experienceFragment", FieldExperienceFragment))
}

func (b *Builder) FillAssetDelivery(ctx context.Context, p scenario.Payload) error {
	return b.each(ctx,
		b.fillIf(p, "videoUrl", FieldVideoAsset),
		b.uploadIf(ctx, p, "pdfAsset", b.UploadPdf),
	)
}

// FillCompleteForm fills every section after the core options. The form
// section is only filled for gated pages.
func (b *Builder) FillCompleteForm(ctx context.Context, p scenario.Payload) error {
	sections := []func(context.Context, scenario.Payload) error{
		b.FillMarquee,
		b.FillBody,
		b.FillCard,
		b.FillCaaS,
		b.FillSEO,
		b.FillExperienceFragment,
		b.FillAssetDelivery,
	}
	if p.Get("gated") == scenario.Gated {
		sections = append([]func(context.Context, scenario.Payload) error{b.FillFormSection}, sections...)
	}
	for _, fill := range sections {
		if err := fill(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) each(ctx context.Context, actions ...func() error) error {
	for _, action := range actions {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := action(); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) fillIf(p scenario.Payload, key, field string) func() error {
	return func() error {
		if v, ok := p.String(key); ok {
			return b.field(field).Fill(v)
		}
		return nil
	}
}

func (b *Builder) selectIf(p scenario.Payload, key, field string) func() error {
	return func() error {
		if v, ok := p.String(key); ok {
			return b.field(field).Select(v)
		}
		return nil
	}
}

// AssetPath resolves a file named by the payload against the assets directory.
func (b *Builder) AssetPath(p scenario.Payload, key string) (string, bool) {
	return p.Asset(key, b.assetsDir)
}

func (b *Builder) uploadIf(ctx context.Context, p scenario.Payload, key string, upload func(context.Context, string) error) func() error {
	return func() error {
		if path, ok := b.AssetPath(p, key); ok {
			return upload(ctx, path)
		}
		return nil
	}
}

// Uploads

// UploadMarqueeImage attaches an image and waits for its acknowledgement.
func (b *Builder) UploadMarqueeImage(ctx context.Context, path string) error {
	return b.upload(ctx, FieldMarqueeImage, path, toast.ImageUploaded, b.timeouts.ImageUpload)
}

func (b *Builder) UploadBodyImage(ctx context.Context, path string) error {
	return b.upload(ctx, FieldBodyImage, path, toast.ImageUploaded, b.timeouts.ImageUpload)
}

func (b *Builder) UploadCardImage(ctx context.Context, path string) error {
	return b.upload(ctx, FieldCardImage, path, toast.ImageUploaded, b.timeouts.ImageUpload)
}

func (b *Builder) UploadPdf(ctx context.Context, path string) error {
	return b.upload(ctx, FieldPDFFile, path, toast.PDFUploaded, b.timeouts.PDFUpload)
}

// upload watches for toasts before attaching the file, so an acknowledgement
// of an earlier upload that is still on screen does not count.
func (b *Builder) upload(ctx context.Context, field, path string, ack toast.Expectation, timeout time.Duration) error {
	w := b.toasts.Watch(ctx)
	defer w.Stop()
	if err := b.field(field).UploadFile(path); err != nil {
		return err
	}
	if _, err := w.Expect(ctx, ack, timeout); err != nil {
		return fmt.Errorf("uploading %s to %s: %w", path, field, err)
	}
	b.logger.Debug("Upload acknowledged", slog.String("field", field), slog.String("path", path))
	return nil
}

func (b *Builder) DeleteMarqueeImage() error {
	return b.field(FieldMarqueeDelete).Click()
}

// IsMarqueeImagePreviewVisible reports whether the uploaded image preview shows.
func (b *Builder) IsMarqueeImagePreviewVisible() (bool, error) {
	return b.field(FieldMarqueePreview).IsVisible()
}

func (b *Builder) ClearPdf() error {
	return b.field(FieldPDFClear).Click()
}

// IsPdfInfoVisible reports whether the uploaded file summary shows.
func (b *Builder) IsPdfInfoVisible() (bool, error) {
	return b.field(FieldPDFInfo).IsVisible()
}

// IsPdfInputVisible reports whether the PDF upload control is offered.
func (b *Builder) IsPdfInputVisible() (bool, error) {
	return b.field(FieldPDFFile).IsVisible()
}

// IsVideoInputVisible reports whether the video URL input is offered.
func (b *Builder) IsVideoInputVisible() (bool, error) {
	return b.field(FieldVideoAsset).IsVisible()
}

// ViewPdf opens the uploaded file in a new tab.
func (b *Builder) ViewPdf() (*popup.Secondary, error) {
	return b.popups.Open(b.field(FieldPDFView).Click, b.timeouts.Preview)
}

// Actions

func (b *Builder) ClickSaveAndPreview() error {
	return b.field(FieldSaveAndPreview).Click()
}

func (b *Builder) ClickReset() error {
	return b.field(FieldReset).Click()
}

// SubmitAndWaitForPreview saves the page and returns the preview tab it opens.
func (b *Builder) SubmitAndWaitForPreview(ctx context.Context) (*popup.Secondary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.popups.Open(b.ClickSaveAndPreview, b.timeouts.Preview)
}

// SaveAndWatch registers a notification watch, saves the page and returns
// the preview tab together with the watch. The watch records until ctx ends
// or the caller stops it.
func (b *Builder) SaveAndWatch(ctx context.Context) (*popup.Secondary, *toast.Watch, error) {
	w := b.toasts.Watch(ctx)
	preview, err := b.SubmitAndWaitForPreview(ctx)
	if err != nil {
		w.Stop()
		return nil, nil, err
	}
	return preview, w, nil
}

// State queries

// IsFullFormVisible reports whether the form past the core options shows.
func (b *Builder) IsFullFormVisible() (bool, error) {
	return b.field(FieldSaveAndPreview).IsVisible()
}

// IsCoreOptionsLocked reports whether the core options are locked after confirm.
func (b *Builder) IsCoreOptionsLocked() (bool, error) {
	classes, _, err := b.field(FieldCoreOptions).Attribute("class")
	if err != nil {
		return false, err
	}
	return strings.Contains(classes, "locked"), nil
}

// GetFieldError returns the error text next to a form control, or "" when
// none is visible.
func (b *Builder) GetFieldError(name string) (string, error) {
	loc := b.page.Locator(`[name="` + name + `"]`).Locator("..").Locator(".error-message, .inputfield-error")
	visible, err := loc.IsVisible()
	if err != nil || !visible {
		return "", err
	}
	text, err := loc.TextContent(playwright.LocatorTextContentOptions{
		Timeout: playwright.Float(float64(b.timeouts.Element.Milliseconds())),
	})
	if err != nil {
		return "", fmt.Errorf("reading error of %q: %w", name, err)
	}
	return strings.TrimSpace(text), nil
}

// FieldErrorCount returns how many validation messages are rendered.
func (b *Builder) FieldErrorCount() (int, error) {
	return b.field(FieldErrors).Count()
}

// VisibleSectionHeaders returns the section titles of the full form.
func (b *Builder) VisibleSectionHeaders() ([]string, error) {
	texts, err := b.field(FieldSectionHeaders).Texts()
	if err != nil {
		return nil, err
	}
	for i, t := range texts {
		texts[i] = strings.TrimSpace(t)
	}
	return texts, nil
}

// RequiredFieldsHighlighted checks that every named control carries the
// error attribute. The builder marks fields with a bare attribute, so an empty
// value counts as highlighted; only a missing attribute or the literal "false"
// does not.
func (b *Builder) RequiredFieldsHighlighted(names []string) error {
	for _, name := range names {
		res, err := b.page.Locator(`[name="`+name+`"]`).Evaluate(`(el, name) => el.getAttribute(name)`, "error", playwright.LocatorEvaluateOptions{
			Timeout: playwright.Float(float64(b.timeouts.Element.Milliseconds())),
		})
		if err != nil {
			return fmt.Errorf("reading error state of %q: %w", name, err)
		}
		if v, ok := res.(string); !ok || v == "false" {
			return &failure.AssertionFailure{What: fmt.Sprintf("field %q highlighted as required", name), Expected: "error attribute", Actual: ""}
		}
	}
	return nil
}
