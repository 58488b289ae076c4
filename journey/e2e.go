package journey

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/networkteam/pagecheck/page"
	"github.com/networkteam/pagecheck/popup"
	"github.com/networkteam/pagecheck/scenario"
	"github.com/networkteam/pagecheck/step"
	"github.com/networkteam/pagecheck/toast"
)

// DefaultFormDescription is expected above the embedded form when the
// scenario does not name one.
const DefaultFormDescription = "share your contact information"

// SaveSequence is the notification order after Save & Preview.
var SaveSequence = []toast.Expectation{toast.SavingPage, toast.PageSaved, toast.PreviewUpdated}

var errNoPreview = errors.New("preview was not opened")

// part numbers the steps of one lettered part of a journey.
type part struct {
	plan   *step.Plan
	letter string
	n      int
}

func (p *part) then(label string, fn step.Func) {
	p.within(0, label, fn)
}

// within adds a step with its own deadline. Zero keeps the runner default.
func (p *part) within(timeout time.Duration, label string, fn step.Func) {
	p.n++
	p.plan.Add(step.New(fmt.Sprintf("Part %s-%d: %s", p.letter, p.n, label), fn).WithTimeout(timeout))
}

// journeyState carries what earlier steps opened to later ones.
type journeyState struct {
	secondary *popup.Secondary
	watch     *toast.Watch
	preview   *page.Preview
}

func (st *journeyState) check() error {
	if st.preview == nil {
		return errNoPreview
	}
	return nil
}

func fullJourney(s scenario.Scenario, env Env) step.Plan {
	b := env.Builder
	p := s.Payload
	t := b.Timeouts()
	gated := p.Get("gated") == scenario.Gated
	st := &journeyState{}
	plan := &step.Plan{Name: s.Title(), Timeout: JourneyTimeout}

	// Part A: build the page
	a := &part{plan: plan, letter: "A"}
	a.then("Navigate to LPB with fresh state", func(context.Context) error {
		return b.NavigateFresh(env.Route, env.Ref)
	})
	a.then("Fill core options and confirm", func(ctx context.Context) error {
		return b.FillCoreOptionsAndConfirm(ctx, p)
	})
	if gated {
		a.then("Fill Form section (gated)", func(ctx context.Context) error {
			return b.FillFormSection(ctx, p)
		})
	}
	a.then("Fill Marquee section", func(ctx context.Context) error {
		return b.FillMarquee(ctx, p)
	})
	a.then("Fill Body section", func(ctx context.Context) error {
		return b.FillBody(ctx, p)
	})
	a.then("Fill Card section", func(ctx context.Context) error {
		return b.FillCard(ctx, p)
	})
	if len(p.Strings("products")) > 0 || p.Get("industry") != "" {
		a.then("Fill CaaS section", func(ctx context.Context) error {
			return b.FillCaaS(ctx, p)
		})
	}
	a.then("Fill SEO Metadata", func(ctx context.Context) error {
		return b.FillSEO(ctx, p)
	})
	if p.Get("experienceFragment") != "" {
		a.then("Fill Experience Fragment", func(ctx context.Context) error {
			return b.FillExperienceFragment(ctx, p)
		})
	}
	assetLabel := "Upload PDF asset"
	if _, video := p.String("videoUrl"); video {
		assetLabel = "Enter Video URL (no PDF)"
	}
	a.then(assetLabel, func(ctx context.Context) error {
		return b.FillAssetDelivery(ctx, p)
	})

	// Part B: save and follow the builder's notifications
	bp := &part{plan: plan, letter: "B"}
	bp.within(t.Preview+t.Navigation, "Click Save & Preview and wait for new tab", func(ctx context.Context) error {
		// The watch outlives this step and is read by the next one.
		secondary, w, err := b.SaveAndWatch(context.WithoutCancel(ctx))
		if err != nil {
			return err
		}
		st.secondary, st.watch = secondary, w
		st.preview = page.NewPreview(secondary.Page(), append([]page.PreviewOption{page.WithPreviewTimeouts(t)}, env.PreviewOptions...)...)
		release := func(context.Context) error {
			w.Stop()
			return secondary.Close()
		}
		if !step.Defer(ctx, "close preview", release) {
			return release(ctx)
		}
		return nil
	})
	bp.then("Verify toast sequence", func(ctx context.Context) error {
		if err := st.check(); err != nil {
			return err
		}
		return st.watch.Sequence(ctx, SaveSequence, toast.SequenceTimeout)
	})
	bp.then("Verify new tab opened on a preview host", func(context.Context) error {
		if err := st.check(); err != nil {
			return err
		}
		return st.secondary.ExpectHost()
	})

	// Part C: preview content
	c := &part{plan: plan, letter: "C"}
	c.then("Verify marquee content", func(ctx context.Context) error {
		if err := st.check(); err != nil {
			return err
		}
		return st.preview.VerifyMarquee(ctx, p.Get("headline"), p.Get("marqueeDescription"))
	})
	c.then("Verify marquee image", func(ctx context.Context) error {
		return st.preview.VerifyMarqueeImage(ctx)
	})
	if body, ok := p.String("bodyDescription"); ok {
		c.then("Verify body content", func(ctx context.Context) error {
			return st.preview.VerifyBody(ctx, body)
		})
	}
	if title, ok := p.String("cardTitle"); ok {
		c.then("Verify card content", func(ctx context.Context) error {
			return st.preview.VerifyCard(ctx, title, p.Get("cardDescription"))
		})
	}
	c.then("Verify CaaS content type tag", func(ctx context.Context) error {
		if tag, ok := p.String("expectedCaasTag"); ok {
			return st.preview.VerifyCaaSTag(ctx, tag)
		}
		return st.preview.VerifyCaaSContentType(ctx, p.Get("contentType"))
	})
	if title, ok := p.String("seoTitle"); ok {
		c.then("Verify SEO metadata", func(ctx context.Context) error {
			return st.preview.VerifySEO(ctx, title, p.Get("seoDescription"))
		})
	}
	if p.Get("contentType") == scenario.VideoDemo {
		c.then("Verify video player presence", func(ctx context.Context) error {
			return st.preview.VerifyVideoPlayer(ctx)
		})
	}

	// Part D: gated form submission
	if gated {
		d := &part{plan: plan, letter: "D"}
		d.then("Verify embedded form is displayed", func(ctx context.Context) error {
			return st.preview.VerifyFormDisplayed(ctx)
		})
		d.then("Verify form description message", func(ctx context.Context) error {
			return st.preview.VerifyFormDescription(ctx, cmp.Or(p.Get("formDescription"), DefaultFormDescription))
		})
		d.within(t.FormRetryBudget+t.Navigation, "Submit form with test data", func(ctx context.Context) error {
			data, _ := p.FormData()
			return st.preview.SubmitEmbeddedForm(ctx, data)
		})
		d.then("Verify thank you message", func(ctx context.Context) error {
			return st.preview.VerifyThankYou(ctx)
		})
		if _, ok := p.String("pdfAsset"); ok {
			d.then("Verify PDF access", func(ctx context.Context) error {
				return st.preview.VerifyPDFAccess(ctx)
			})
		}
	}

	return *plan
}
