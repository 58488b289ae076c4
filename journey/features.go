package journey

import (
	"cmp"
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/networkteam/pagecheck/failure"
	"github.com/networkteam/pagecheck/page"
	"github.com/networkteam/pagecheck/scenario"
	"github.com/networkteam/pagecheck/step"
	"github.com/networkteam/pagecheck/toast"
)

// Section titles of the full form for every content type.
var formSections = []string{"Marquee", "Body", "Card", "CaaS Content", "Metadata", "Experience Fragment", "Asset Delivery"}

func featurePlan(s scenario.Scenario, env Env) *step.Plan {
	plan := &step.Plan{Name: s.Title(), Timeout: step.DefaultScenarioTimeout}
	b := env.Builder
	plan.Then("Navigate to LPB with fresh state", func(context.Context) error {
		return b.NavigateFresh(env.Route, env.Ref)
	})
	return plan
}

// confirmedPlan navigates and fills the core options from the payload.
func confirmedPlan(s scenario.Scenario, env Env) *step.Plan {
	plan := featurePlan(s, env)
	plan.Then("Fill core options and confirm", func(ctx context.Context) error {
		return env.Builder.FillCoreOptionsAndConfirm(ctx, s.Payload)
	})
	return plan
}

func initialState(s scenario.Scenario, env Env) step.Plan {
	b := env.Builder
	plan := featurePlan(s, env)
	plan.Then("Verify core option fields are visible", func(context.Context) error {
		return allVisible(b, page.FieldContentType, page.FieldGated, page.FieldMarqueeHeadline)
	})
	plan.Then("Verify Confirm is visible", func(context.Context) error {
		return visible(b, page.FieldConfirm, 0)
	})
	plan.Then("Verify full form is hidden", func(context.Context) error {
		return hidden(b, page.FieldSaveAndPreview)
	})
	return *plan
}

func confirmDisabled(s scenario.Scenario, env Env) step.Plan {
	b := env.Builder
	plan := featurePlan(s, env)
	plan.Then("Verify Confirm is disabled with empty core options", func(context.Context) error {
		return expectTrue("confirm disabled", b.IsConfirmDisabled)
	})
	plan.Then("Select only a content type", func(context.Context) error {
		return b.SelectContentType(cmp.Or(s.Payload.Get("contentType"), scenario.Guide))
	})
	plan.Then("Verify help text is visible", func(context.Context) error {
		return visible(b, page.FieldHelpText, 0)
	})
	plan.Then("Verify full form is still hidden", func(context.Context) error {
		return hidden(b, page.FieldSaveAndPreview)
	})
	return *plan
}

func urlAutoGeneration(s scenario.Scenario, env Env) step.Plan {
	b := env.Builder
	p := s.Payload
	plan := featurePlan(s, env)
	plan.Then("Fill core options", func(ctx context.Context) error {
		return b.FillCoreOptions(ctx, p)
	})
	plan.Then("Verify URL prefix is generated", func(context.Context) error {
		prefix, err := b.PathPrefix()
		if err != nil {
			return err
		}
		return expectContains("URL prefix", prefix, p.Get("region"), "resources", strings.ToLower(p.Get("contentType")))
	})
	plan.Then("Verify template link is visible", func(context.Context) error {
		return visible(b, page.FieldTemplateLink, 0)
	})
	return *plan
}

func confirmShowsForm(s scenario.Scenario, env Env) step.Plan {
	b := env.Builder
	plan := confirmedPlan(s, env)
	plan.Then("Verify all form sections are visible", func(context.Context) error {
		return expectHeaders(b, formSections...)
	})
	plan.Then("Verify Save & Preview is visible", func(context.Context) error {
		return visible(b, page.FieldSaveAndPreview, 0)
	})
	plan.Then("Verify core options are locked", func(context.Context) error {
		return expectTrue("core options locked", b.IsCoreOptionsLocked)
	})
	return *plan
}

func resetForm(s scenario.Scenario, env Env) step.Plan {
	b := env.Builder
	plan := confirmedPlan(s, env)
	plan.Then("Verify full form is visible", func(context.Context) error {
		return visible(b, page.FieldSaveAndPreview, 0)
	})
	plan.Then("Click Reset", func(context.Context) error {
		return b.ClickReset()
	})
	plan.Then("Verify form returns to initial state", func(context.Context) error {
		if err := hidden(b, page.FieldSaveAndPreview); err != nil {
			return err
		}
		return visible(b, page.FieldConfirm, 0)
	})
	plan.Then("Verify form stays reset after reload", func(context.Context) error {
		if err := b.Reload(); err != nil {
			return err
		}
		return hidden(b, page.FieldSaveAndPreview)
	})
	return *plan
}

// saveExpectingRequiredError saves and expects the validation notification.
func saveExpectingRequiredError(b *page.Builder) step.Func {
	return func(ctx context.Context) error {
		w := b.Toasts().Watch(ctx)
		defer w.Stop()
		if err := b.ClickSaveAndPreview(); err != nil {
			return err
		}
		_, err := w.Expect(ctx, toast.RequiredMissing, toast.DefaultTimeout)
		return err
	}
}

func missingRequired(s scenario.Scenario, env Env) step.Plan {
	b := env.Builder
	plan := confirmedPlan(s, env)
	plan.Then("Save with required fields empty", saveExpectingRequiredError(b))
	plan.Then("Verify required field errors are shown", func(context.Context) error {
		n, err := b.FieldErrorCount()
		if err != nil {
			return err
		}
		if n == 0 {
			return &failure.AssertionFailure{What: "required field errors", Expected: "at least one", Actual: "0"}
		}
		return nil
	})
	return *plan
}

func gatedValidation(s scenario.Scenario, env Env) step.Plan {
	b := env.Builder
	plan := confirmedPlan(s, env)
	plan.Then("Verify Form section is visible", func(context.Context) error {
		return expectHeaders(b, "Form")
	})
	plan.Then("Verify gated fields are visible", func(context.Context) error {
		return allVisible(b, page.FieldFormTemplate, page.FieldCampaignID, page.FieldMarketoPOI)
	})
	plan.Then("Save without gated fields", saveExpectingRequiredError(b))
	return *plan
}

func uploadMarquee(b *page.Builder, p scenario.Payload) step.Func {
	return func(ctx context.Context) error {
		path, ok := b.AssetPath(p, "imagePath")
		if !ok {
			return failure.Assertf("scenario has no imagePath")
		}
		return b.UploadMarqueeImage(ctx, path)
	}
}

func uploadPDF(b *page.Builder, p scenario.Payload) step.Func {
	return func(ctx context.Context) error {
		path, ok := b.AssetPath(p, "pdfPath")
		if !ok {
			return failure.Assertf("scenario has no pdfPath")
		}
		return b.UploadPdf(ctx, path)
	}
}

func marqueeImageUpload(s scenario.Scenario, env Env) step.Plan {
	b := env.Builder
	plan := confirmedPlan(s, env)
	plan.Then("Upload marquee image", uploadMarquee(b, s.Payload))
	plan.Then("Verify image preview is visible", func(context.Context) error {
		return visible(b, page.FieldMarqueePreview, b.Timeouts().ImageUpload)
	})
	return *plan
}

func imageDeleteReupload(s scenario.Scenario, env Env) step.Plan {
	b := env.Builder
	plan := confirmedPlan(s, env)
	plan.Then("Upload marquee image", uploadMarquee(b, s.Payload))
	plan.Then("Verify image preview is visible", func(context.Context) error {
		return visible(b, page.FieldMarqueePreview, b.Timeouts().ImageUpload)
	})
	plan.Then("Delete marquee image", func(context.Context) error {
		return b.DeleteMarqueeImage()
	})
	plan.Then("Verify upload is offered again", func(context.Context) error {
		if err := hidden(b, page.FieldMarqueePreview); err != nil {
			return err
		}
		return attached(b, page.FieldMarqueeImage)
	})
	plan.Then("Upload marquee image again", uploadMarquee(b, s.Payload))
	plan.Then("Verify image preview is visible again", func(context.Context) error {
		return visible(b, page.FieldMarqueePreview, b.Timeouts().ImageUpload)
	})
	return *plan
}

func pdfUpload(s scenario.Scenario, env Env) step.Plan {
	b := env.Builder
	plan := confirmedPlan(s, env)
	plan.Then("Upload PDF", uploadPDF(b, s.Payload))
	plan.Then("Verify file info and actions are visible", func(context.Context) error {
		return allVisible(b, page.FieldPDFInfo, page.FieldPDFView, page.FieldPDFClear)
	})
	plan.Then("View uploaded PDF in a new tab", func(ctx context.Context) error {
		doc, err := b.ViewPdf()
		if err != nil {
			return err
		}
		step.Defer(ctx, "close PDF tab", func(context.Context) error { return doc.Close() })
		return nil
	})
	return *plan
}

func pdfClear(s scenario.Scenario, env Env) step.Plan {
	b := env.Builder
	plan := confirmedPlan(s, env)
	plan.Then("Upload PDF", uploadPDF(b, s.Payload))
	plan.Then("Verify file info is visible", func(context.Context) error {
		return visible(b, page.FieldPDFInfo, b.Timeouts().PDFUpload)
	})
	plan.Then("Clear PDF", func(context.Context) error {
		return b.ClearPdf()
	})
	plan.Then("Verify upload is offered again", func(context.Context) error {
		if err := hidden(b, page.FieldPDFInfo); err != nil {
			return err
		}
		return attached(b, page.FieldPDFFile)
	})
	return *plan
}

func videoHidesPDF(s scenario.Scenario, env Env) step.Plan {
	b := env.Builder
	plan := confirmedPlan(s, env)
	plan.Then("Verify PDF upload is hidden", func(context.Context) error {
		return hidden(b, page.FieldPDFFile)
	})
	plan.Then("Verify video URL input is visible", func(context.Context) error {
		return visible(b, page.FieldVideoAsset, 0)
	})
	return *plan
}

func selectFirstProducts(b *page.Builder, n int) step.Func {
	return func(context.Context) error {
		for i := range n {
			if _, err := b.SelectProductAt(i); err != nil {
				return fmt.Errorf("selecting product %d: %w", i, err)
			}
		}
		return nil
	}
}

func openProducts(b *page.Builder) step.Func {
	return func(context.Context) error { return b.OpenProducts() }
}

func closeDropdown(b *page.Builder) step.Func {
	return func(context.Context) error { return b.CloseDropdown() }
}

func expectTags(b *page.Builder, want int) step.Func {
	return func(context.Context) error {
		return expectCount("selected product tags", want, func() (int, error) {
			tags, err := b.SelectedProducts()
			return len(tags), err
		})
	}
}

func multiSelectProducts(s scenario.Scenario, env Env) step.Plan {
	b := env.Builder
	plan := confirmedPlan(s, env)
	plan.Then("Open product dropdown", openProducts(b))
	plan.Then("Verify products are offered", func(context.Context) error {
		n, err := b.ProductOptionCount()
		if err != nil {
			return err
		}
		if n == 0 {
			return &failure.AssertionFailure{What: "product options", Expected: "at least one", Actual: "0"}
		}
		return nil
	})
	plan.Then("Select two products", selectFirstProducts(b, 2))
	plan.Then("Verify two products are selected", func(ctx context.Context) error {
		if err := expectTags(b, 2)(ctx); err != nil {
			return err
		}
		return expectCount("selected product options", 2, b.SelectedOptionCount)
	})
	return *plan
}

func removeProductTag(s scenario.Scenario, env Env) step.Plan {
	b := env.Builder
	plan := confirmedPlan(s, env)
	plan.Then("Open product dropdown", openProducts(b))
	plan.Then("Select two products", selectFirstProducts(b, 2))
	plan.Then("Close dropdown", closeDropdown(b))
	plan.Then("Remove first product tag", func(context.Context) error {
		return b.RemoveFirstProductTag()
	})
	plan.Then("Verify one product remains", expectTags(b, 1))
	return *plan
}

func dropdownCloseOutside(s scenario.Scenario, env Env) step.Plan {
	b := env.Builder
	plan := confirmedPlan(s, env)
	plan.Then("Open product dropdown", openProducts(b))
	plan.Then("Select one product", selectFirstProducts(b, 1))
	plan.Then("Click outside the dropdown", closeDropdown(b))
	plan.Then("Verify dropdown is closed", func(context.Context) error {
		return hidden(b, page.FieldProductsMenu)
	})
	plan.Then("Verify selection is kept", expectTags(b, 1))
	return *plan
}

func expectValue(b *page.Builder, name, want string) error {
	f, err := b.Field(name)
	if err != nil {
		return err
	}
	got, err := f.InputValue()
	if err != nil {
		return err
	}
	if got != want {
		return &failure.AssertionFailure{What: "value of " + name, Expected: want, Actual: got}
	}
	return nil
}

func persistOnRefresh(s scenario.Scenario, env Env) step.Plan {
	b := env.Builder
	p := s.Payload
	plan := confirmedPlan(s, env)
	plan.Then("Fill SEO metadata", func(ctx context.Context) error {
		return b.FillSEO(ctx, p)
	})
	plan.Then("Reload builder", func(context.Context) error {
		return b.Reload()
	})
	plan.Then("Verify SEO metadata is restored", func(context.Context) error {
		if err := expectValue(b, page.FieldSEOTitle, p.Get("seoTitle")); err != nil {
			return err
		}
		return expectValue(b, page.FieldSEODescription, p.Get("seoDescription"))
	})
	return *plan
}

func resetClearsStorage(s scenario.Scenario, env Env) step.Plan {
	b := env.Builder
	plan := confirmedPlan(s, env)
	plan.Then("Fill card title", func(ctx context.Context) error {
		return b.FillCard(ctx, s.Payload)
	})
	plan.Then("Click Reset", func(context.Context) error {
		return b.ClickReset()
	})
	plan.Then("Reload builder", func(context.Context) error {
		return b.Reload()
	})
	plan.Then("Verify full form is hidden", func(context.Context) error {
		return hidden(b, page.FieldSaveAndPreview)
	})
	plan.Then("Verify persisted state is cleared", func(context.Context) error {
		state, present, err := b.PersistedState()
		if err != nil {
			return err
		}
		if present {
			return &failure.AssertionFailure{What: "persisted form state", Expected: "", Actual: state}
		}
		return nil
	})
	return *plan
}

// formatting checks one toolbar action on the body editor. Any of tags in
// the markup counts.
func formatting(s scenario.Scenario, env Env, label string, apply func() error, tags ...string) step.Plan {
	b := env.Builder
	plan := confirmedPlan(s, env)
	plan.Then("Type body text", func(context.Context) error {
		return b.TypeInBody(s.Payload.Get("bodyText"))
	})
	plan.Then("Select all and apply "+label, func(context.Context) error {
		if err := b.SelectAllInBody(); err != nil {
			return err
		}
		return apply()
	})
	plan.Then("Verify "+label+" markup", func(context.Context) error {
		html, err := b.BodyHTML()
		if err != nil {
			return err
		}
		if !lo.SomeBy(tags, func(tag string) bool { return strings.Contains(html, tag) }) {
			return &failure.AssertionFailure{What: label + " markup", Expected: strings.Join(tags, " or "), Actual: html}
		}
		return nil
	})
	return *plan
}

func richTextBold(s scenario.Scenario, env Env) step.Plan {
	b := env.Builder
	plan := formatting(s, env, "bold", b.ApplyBold, "<b>", "<strong>")
	plan.Then("Verify bold button is active", func(context.Context) error {
		return expectTrue("bold button active", b.IsBoldActive)
	})
	return plan
}

func richTextItalic(s scenario.Scenario, env Env) step.Plan {
	return formatting(s, env, "italic", env.Builder.ApplyItalic, "<i>", "<em>")
}

func richTextBullets(s scenario.Scenario, env Env) step.Plan {
	b := env.Builder
	bullets := s.Payload.Strings("bullets")
	plan := confirmedPlan(s, env)
	plan.Then("Start a bullet list", func(context.Context) error {
		if err := b.FocusBody(); err != nil {
			return err
		}
		return b.ApplyBulletList()
	})
	plan.Then("Type bullet items", func(context.Context) error {
		for i, item := range bullets {
			if i > 0 {
				if err := b.PressInBody("Enter"); err != nil {
					return err
				}
			}
			if err := b.Type(item); err != nil {
				return err
			}
		}
		return nil
	})
	plan.Then("Verify list markup", func(context.Context) error {
		html, err := b.BodyHTML()
		if err != nil {
			return err
		}
		return expectContains("list markup", html, "<ul>", "<li>")
	})
	return *plan
}
