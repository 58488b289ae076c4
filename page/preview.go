package page

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/networkteam/pagecheck/failure"
	"github.com/networkteam/pagecheck/locator"
	"github.com/networkteam/pagecheck/scenario"
)

// Semantic field names of the published preview.
const (
	PreviewMarquee            = "marquee"
	PreviewMarqueeHeadline    = "marqueeHeadline"
	PreviewMarqueeDescription = "marqueeDescription"
	PreviewMarqueeImage       = "marqueeImage"
	PreviewBody               = "bodyText"
	PreviewCardTitle          = "cardTitle"
	PreviewCardDescription    = "cardDescription"
	PreviewForm               = "form"
	PreviewFormDescription    = "formDescription"
	PreviewEmail              = "email"
	PreviewFirstName          = "firstName"
	PreviewLastName           = "lastName"
	PreviewCompany            = "company"
	PreviewCountry            = "country"
	PreviewState              = "state"
	PreviewZipCode            = "zipCode"
	PreviewPhone              = "phone"
	PreviewSubmit             = "submit"
	PreviewThankYou           = "thankYou"
	PreviewPDFLink            = "pdfLink"
	PreviewVideoPlayer        = "videoPlayer"
	PreviewMetaTitle          = "metaTitle"
	PreviewMetaDescription    = "metaDescription"
)

// PreviewFields is the locator registry of the preview document.
var PreviewFields = locator.NewRegistry("landing page preview").
	Register(PreviewMarquee, locator.Strategy{Selector: ".marquee", Kind: locator.Region, First: true}).
	Register(PreviewMarqueeHeadline, locator.Strategy{Selector: ".marquee h1, .marquee h2", Kind: locator.Region, First: true}).
	Register(PreviewMarqueeDescription, locator.Strategy{Selector: ".marquee .body-m, .marquee p", Kind: locator.Region, First: true}).
	Register(PreviewMarqueeImage, locator.Strategy{Selector: ".marquee img", Kind: locator.Region, First: true}).
	Register(PreviewBody, locator.Strategy{Selector: ".text", Kind: locator.Region}).
	Register(PreviewCardTitle, locator.Strategy{Selector: ".card h3, .consonant-Card-title", Kind: locator.Region, First: true}).
	Register(PreviewCardDescription, locator.Strategy{Selector: ".card p, .consonant-Card-description", Kind: locator.Region, First: true}).
	// Embedded form, rendered by the form provider on gated pages.
	Register(PreviewForm, locator.Strategy{Selector: ".marketo", Kind: locator.Region, First: true}).
	Register(PreviewFormDescription, locator.Strategy{Selector: ".marketo .body-m, .marketo p", Kind: locator.Region, First: true}).
	Register(PreviewEmail, locator.Strategy{Selector: "#Email", Kind: locator.Plain}).
	Register(PreviewFirstName, locator.Strategy{Selector: "#FirstName", Kind: locator.Plain}).
	Register(PreviewLastName, locator.Strategy{Selector: "#LastName", Kind: locator.Plain}).
	Register(PreviewCompany, locator.Strategy{Selector: "#Company", Kind: locator.Plain}).
	Register(PreviewCountry, locator.Strategy{Selector: "#Country", Kind: locator.Plain}).
	Register(PreviewState, locator.Strategy{Selector: "#State", Kind: locator.Plain}).
	Register(PreviewZipCode, locator.Strategy{Selector: "#Postal_Code__c, #PostalCode", Kind: locator.Plain, First: true}).
	Register(PreviewPhone, locator.Strategy{Selector: "#Phone", Kind: locator.Plain}).
	Register(PreviewSubmit, locator.Strategy{Selector: `.marketo button[type="submit"], .mktoButton`, Kind: locator.Button, First: true}).
	Register(PreviewThankYou, locator.Strategy{Selector: `.section:has-text("Thank you")`, Kind: locator.Region, First: true}).
	Register(PreviewPDFLink, locator.Strategy{Selector: `a[href$=".pdf"]`, Kind: locator.Region, First: true}).
	Register(PreviewVideoPlayer, locator.Strategy{Selector: `.video, video, iframe[src*="video"]`, Kind: locator.Region, First: true}).
	Register(PreviewMetaTitle, locator.Strategy{Selector: `meta[property="og:title"]`, Kind: locator.Region}).
	Register(PreviewMetaDescription, locator.Strategy{Selector: `meta[name="description"]`, Kind: locator.Region})

// CaaSContentTypes maps builder content types to the tag the preview carries.
var CaaSContentTypes = map[string]string{
	scenario.Guide:       "caas:content-type/guide",
	scenario.Infographic: "caas:content-type/infographic",
	scenario.Report:      "caas:content-type/report",
	scenario.VideoDemo:   "caas:content-type/demos-and-video",
}

// Preview verifies the document the builder publishes on save.
type Preview struct {
	page     playwright.Page
	fields   *locator.Fields
	timeouts Timeouts
	logger   *slog.Logger
}

// PreviewOption configures a Preview.
type PreviewOption func(*Preview)

// WithPreviewTimeouts overrides the bounded waits. Zero values keep their defaults.
func WithPreviewTimeouts(t Timeouts) PreviewOption {
	return func(p *Preview) {
		p.timeouts = t.withDefaults()
	}
}

// WithPreviewLogger sets the logger for preview checks.
func WithPreviewLogger(logger *slog.Logger) PreviewOption {
	return func(p *Preview) {
		p.logger = logger
	}
}

// NewPreview creates the verifier for an open preview document.
func NewPreview(page playwright.Page, opts ...PreviewOption) *Preview {
	p := &Preview{
		page:     page,
		timeouts: DefaultTimeouts(),
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.fields = PreviewFields.Bind(page, p.timeouts.Element)
	return p
}

// Page returns the preview document.
func (p *Preview) Page() playwright.Page { return p.page }

// Field returns a named field for direct checks.
func (p *Preview) Field(name string) (*locator.Field, error) {
	return p.fields.Get(name)
}

func (p *Preview) field(name string) *locator.Field {
	return p.fields.Must(name)
}

var errNotYet = errors.New("not yet")

// eventually polls read until the value contains want or the element wait
// is spent. The last value read ends up in the failure.
func (p *Preview) eventually(ctx context.Context, what, want string, read func() (string, error)) error {
	var got string
	err := retry(ctx, p.timeouts.Poll, p.timeouts.Element, func() error {
		value, err := read()
		if err != nil {
			return err
		}
		got = value
		if !strings.Contains(value, want) {
			return errNotYet
		}
		return nil
	})
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return &failure.AssertionFailure{What: what, Expected: want, Actual: got}
}

func (p *Preview) text(name string) func() (string, error) {
	return func() (string, error) {
		return p.field(name).WithTimeout(p.timeouts.Poll).TextContent()
	}
}

func (p *Preview) attribute(name, attr string) func() (string, error) {
	return func() (string, error) {
		value, _, err := p.field(name).WithTimeout(p.timeouts.Poll).Attribute(attr)
		return value, err
	}
}

func (p *Preview) visible(name, what string) error {
	if err := p.field(name).WaitVisible(); err != nil {
		return &failure.AssertionFailure{What: what + " visible", Expected: "visible", Actual: err.Error()}
	}
	return nil
}

// VerifyMarquee checks the marquee headline and description. Empty values
// are not checked.
func (p *Preview) VerifyMarquee(ctx context.Context, headline, description string) error {
	if headline != "" {
		if err := p.eventually(ctx, "marquee headline", headline, p.text(PreviewMarqueeHeadline)); err != nil {
			return err
		}
	}
	if description != "" {
		return p.eventually(ctx, "marquee description", description, p.text(PreviewMarqueeDescription))
	}
	return nil
}

// VerifyMarqueeImage checks that the marquee image shows and has a source.
func (p *Preview) VerifyMarqueeImage(ctx context.Context) error {
	if err := p.visible(PreviewMarqueeImage, "marquee image"); err != nil {
		return err
	}
	src, _, err := p.field(PreviewMarqueeImage).Attribute("src")
	if err != nil {
		return err
	}
	if src == "" {
		return &failure.AssertionFailure{What: "marquee image source", Expected: "non-empty src"}
	}
	return nil
}

// VerifyBody checks that some text block contains text.
func (p *Preview) VerifyBody(ctx context.Context, text string) error {
	return p.eventually(ctx, "body text", text, func() (string, error) {
		texts, err := p.field(PreviewBody).Texts()
		return strings.Join(texts, "\n"), err
	})
}

// VerifyCard checks the card title and description. Empty values are not checked.
func (p *Preview) VerifyCard(ctx context.Context, title, description string) error {
	if title != "" {
		if err := p.eventually(ctx, "card title", title, p.text(PreviewCardTitle)); err != nil {
			return err
		}
	}
	if description != "" {
		return p.eventually(ctx, "card description", description, p.text(PreviewCardDescription))
	}
	return nil
}

// VerifyCaaSTag checks that the raw document contains tag.
func (p *Preview) VerifyCaaSTag(ctx context.Context, tag string) error {
	return p.eventually(ctx, "content tag in document", tag, func() (string, error) {
		html, err := p.page.Content()
		if err != nil {
			return "", err
		}
		if strings.Contains(html, tag) {
			return tag, nil
		}
		return "", nil
	})
}

// VerifyCaaSContentType checks the tag derived from the builder content type.
// Unknown content types are not checked.
func (p *Preview) VerifyCaaSContentType(ctx context.Context, contentType string) error {
	tag, ok := CaaSContentTypes[contentType]
	if !ok {
		return nil
	}
	return p.VerifyCaaSTag(ctx, tag)
}

// VerifySEO checks the og:title and description metadata.
func (p *Preview) VerifySEO(ctx context.Context, title, description string) error {
	if title != "" {
		if err := p.eventually(ctx, "og:title", title, p.attribute(PreviewMetaTitle, "content")); err != nil {
			return err
		}
	}
	if description != "" {
		return p.eventually(ctx, "meta description", description, p.attribute(PreviewMetaDescription, "content"))
	}
	return nil
}

// VerifyVideoPlayer checks that a video player is rendered.
func (p *Preview) VerifyVideoPlayer(ctx context.Context) error {
	return p.visible(PreviewVideoPlayer, "video player")
}

// VerifyContent checks everything the builder payload put on the page.
func (p *Preview) VerifyContent(ctx context.Context, data scenario.Payload) error {
	if err := p.VerifyMarquee(ctx, data.Get("headline"), data.Get("marqueeDescription")); err != nil {
		return err
	}
	if err := p.VerifyMarqueeImage(ctx); err != nil {
		return err
	}
	if body, ok := data.String("bodyDescription"); ok {
		if err := p.VerifyBody(ctx, body); err != nil {
			return err
		}
	}
	if title, ok := data.String("cardTitle"); ok {
		if err := p.VerifyCard(ctx, title, data.Get("cardDescription")); err != nil {
			return err
		}
	}
	if tag, ok := data.String("expectedCaasTag"); ok {
		if err := p.VerifyCaaSTag(ctx, tag); err != nil {
			return err
		}
	} else if err := p.VerifyCaaSContentType(ctx, data.Get("contentType")); err != nil {
		return err
	}
	if title, ok := data.String("seoTitle"); ok {
		if err := p.VerifySEO(ctx, title, data.Get("seoDescription")); err != nil {
			return err
		}
	}
	p.logger.Debug("Preview content verified", slog.String("url", p.page.URL()))
	return nil
}

// VerifyThankYou waits for the confirmation shown after a form submission.
func (p *Preview) VerifyThankYou(ctx context.Context) error {
	if err := p.field(PreviewThankYou).WithTimeout(p.timeouts.ThankYou).WaitVisible(); err != nil {
		return &failure.AssertionFailure{What: "thank you message after submission", Expected: "Thank you", Actual: err.Error()}
	}
	return p.eventually(ctx, "thank you message", "Thank you", p.text(PreviewThankYou))
}

// VerifyPDFAccess checks that the asset is offered as a PDF link.
func (p *Preview) VerifyPDFAccess(ctx context.Context) error {
	if err := p.visible(PreviewPDFLink, "PDF link"); err != nil {
		return err
	}
	href, _, err := p.field(PreviewPDFLink).Attribute("href")
	if err != nil {
		return err
	}
	u, err := url.Parse(href)
	if err != nil || !strings.HasSuffix(strings.ToLower(u.Path), ".pdf") {
		return &failure.AssertionFailure{What: "PDF link target", Expected: "path ending in .pdf", Actual: href}
	}
	return nil
}

// VerifyFormDisplayed checks that the embedded form block shows.
func (p *Preview) VerifyFormDisplayed(ctx context.Context) error {
	return p.visible(PreviewForm, "embedded form")
}

// VerifyFormDescription checks the text above the embedded form.
func (p *Preview) VerifyFormDescription(ctx context.Context, text string) error {
	return p.eventually(ctx, "form description", text, p.text(PreviewFormDescription))
}

// SubmitEmbeddedForm waits for the form provider to render its fields,
// fills them from data and submits. Empty values are skipped.
func (p *Preview) SubmitEmbeddedForm(ctx context.Context, data scenario.FormData) error {
	err := retry(ctx, p.timeouts.FormRetryInterval, p.timeouts.FormRetryBudget, func() error {
		if err := p.field(PreviewForm).ScrollIntoView(); err != nil {
			return err
		}
		return p.field(PreviewEmail).WithTimeout(p.timeouts.FormReveal).WaitVisible()
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &failure.AssertionFailure{
			What:     fmt.Sprintf("embedded form rendered within %s", p.timeouts.FormRetryBudget),
			Expected: "email field visible",
			Actual:   err.Error(),
		}
	}

	steps := []struct {
		field, value string
		choose       bool
	}{
		{PreviewFirstName, data.FirstName, false},
		{PreviewLastName, data.LastName, false},
		{PreviewEmail, data.Email, false},
		{PreviewCompany, data.Company, false},
		{PreviewCountry, data.Country, true},
		{PreviewState, data.State, true},
		{PreviewZipCode, data.ZipCode, false},
		{PreviewPhone, data.Phone, false},
	}
	for _, s := range steps {
		if s.value == "" {
			continue
		}
		f := p.field(s.field)
		if s.choose {
			err = f.Select(s.value)
		} else {
			err = f.Fill(s.value)
		}
		if err != nil {
			return fmt.Errorf("filling embedded form: %w", err)
		}
	}
	if err := p.field(PreviewSubmit).Click(); err != nil {
		return fmt.Errorf("submitting embedded form: %w", err)
	}
	p.logger.Debug("Embedded form submitted", slog.String("email", data.Email))
	return nil
}
