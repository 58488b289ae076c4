package page

import "github.com/networkteam/pagecheck/locator"

// Semantic field names of the builder.
const (
	FieldGenerator          = "generator"
	FieldContentType        = "contentType"
	FieldGated              = "gated"
	FieldRegion             = "region"
	FieldMarqueeHeadline    = "marqueeHeadline"
	FieldPageName           = "pageName"
	FieldPathPrefix         = "pathPrefix"
	FieldPathCheck          = "pathCheck"
	FieldPathAvailable      = "pathAvailable"
	FieldPathConflict       = "pathConflict"
	FieldPathChecking       = "pathChecking"
	FieldCoreOptions        = "coreOptions"
	FieldTemplateLink       = "templateLink"
	FieldConfirm            = "confirm"
	FieldSaveAndPreview     = "saveAndPreview"
	FieldReset              = "reset"
	FieldHelpText           = "helpText"
	FieldFormTemplate       = "formTemplate"
	FieldCampaignID         = "campaignId"
	FieldMarketoPOI         = "marketoPOI"
	FieldMarqueeEyebrow     = "marqueeEyebrow"
	FieldMarqueeDescription = "marqueeDescription"
	FieldMarqueeImage       = "marqueeImage"
	FieldMarqueePreview     = "marqueeImagePreview"
	FieldMarqueeDelete      = "marqueeImageDelete"
	FieldBodyDescription    = "bodyDescription"
	FieldBold               = "boldButton"
	FieldItalic             = "italicButton"
	FieldBulletList         = "listButton"
	FieldBodyImage          = "bodyImage"
	FieldCardTitle          = "cardTitle"
	FieldCardDescription    = "cardDescription"
	FieldCardImage          = "cardImage"
	FieldProducts           = "primaryProducts"
	FieldProductsTrigger    = "productsTrigger"
	FieldProductsMenu       = "productsMenu"
	FieldProductOption      = "productOption"
	FieldProductSelected    = "productOptionSelected"
	FieldProductTag         = "productTag"
	FieldIndustry           = "caasIndustry"
	FieldSEOTitle           = "seoMetadataTitle"
	FieldSEODescription     = "seoMetadataDescription"
	FieldPrimaryProductName = "primaryProductName"
	FieldExperienceFragment = "experienceFragment"
	FieldVideoAsset         = "videoAsset"
	FieldPDFFile            = "pdfFile"
	FieldPDFInfo            = "pdfInfo"
	FieldPDFView            = "pdfView"
	FieldPDFClear           = "pdfClear"
	FieldErrors             = "fieldErrors"
	FieldSectionHeaders     = "sectionHeaders"
	FieldHeading            = "heading"
)

func selectField(name string) locator.Strategy {
	return locator.Strategy{Selector: `sl-select[name="` + name + `"]`, Kind: locator.Select}
}

func inputField(name string) locator.Strategy {
	return locator.Strategy{Selector: `sl-input[name="` + name + `"]`, Kind: locator.Input}
}

func dropzone(name string) locator.Strategy {
	return locator.Strategy{Selector: `image-dropzone[name="` + name + `"] input.img-file-input`, Kind: locator.File}
}

const (
	pathInput   = `path-input[name="pageName"]`
	bodyEditor  = `text-editor[name="bodyDescription"]`
	multiSelect = `multi-select[name="primaryProducts"]`
)

// BuilderFields is the locator registry of the builder.
var BuilderFields = locator.NewRegistry("landing page builder").
	Register(FieldGenerator, locator.Strategy{Selector: "da-generator", Kind: locator.Region}).
	// Core options
	Register(FieldContentType, selectField("contentType")).
	Register(FieldGated, selectField("gated")).
	Register(FieldRegion, selectField("region")).
	Register(FieldMarqueeHeadline, inputField("marqueeHeadline")).
	Register(FieldPageName, locator.Strategy{Selector: pathInput, Inner: "input.path-input", Kind: locator.Input}).
	Register(FieldPathPrefix, locator.Strategy{Selector: pathInput + " .path-prefix", Kind: locator.Region}).
	Register(FieldPathCheck, locator.Strategy{Selector: pathInput + " button.path-action-btn", Kind: locator.Button}).
	Register(FieldPathAvailable, locator.Strategy{Selector: pathInput + " svg.validation-icon.available", Kind: locator.Region}).
	Register(FieldPathConflict, locator.Strategy{Selector: pathInput + " svg.validation-icon.conflict", Kind: locator.Region}).
	Register(FieldPathChecking, locator.Strategy{Selector: pathInput + " svg.validation-icon.checking", Kind: locator.Region}).
	Register(FieldCoreOptions, locator.Strategy{Selector: ".form-row.core-options", Kind: locator.Region}).
	Register(FieldTemplateLink, locator.Strategy{Selector: ".template-preview-label a", Kind: locator.Region}).
	// Actions
	Register(FieldConfirm, locator.Strategy{Selector: "sl-button.primary", Kind: locator.Button}).
	Register(FieldSaveAndPreview, locator.Strategy{Selector: `sl-button[type="submit"]`, Kind: locator.Button}).
	Register(FieldReset, locator.Strategy{Selector: "sl-button.reset", Kind: locator.Button}).
	Register(FieldHelpText, locator.Strategy{Selector: "p.help-text", Kind: locator.Region}).
	// Form (gated only)
	Register(FieldFormTemplate, selectField("formTemplate")).
	Register(FieldCampaignID, inputField("campaignId")).
	Register(FieldMarketoPOI, selectField("marketoPOI")).
	// Marquee
	Register(FieldMarqueeEyebrow, selectField("marqueeEyebrow")).
	Register(FieldMarqueeDescription, inputField("marqueeDescription")).
	Register(FieldMarqueeImage, dropzone("marqueeImage")).
	Register(FieldMarqueePreview, locator.Strategy{Selector: `image-dropzone[name="marqueeImage"] .preview-img-placeholder img`, Kind: locator.Region}).
	Register(FieldMarqueeDelete, locator.Strategy{Selector: `image-dropzone[name="marqueeImage"] .icon-delete`, Kind: locator.Button}).
	// Body
	Register(FieldBodyDescription, locator.Strategy{Selector: bodyEditor + " .editor-content", Kind: locator.Editor}).
	Register(FieldBold, locator.Strategy{Selector: bodyEditor + " .toolbar-btn.bold", Kind: locator.Button}).
	Register(FieldItalic, locator.Strategy{Selector: bodyEditor + " .toolbar-btn.italic", Kind: locator.Button}).
	Register(FieldBulletList, locator.Strategy{Selector: bodyEditor + " .toolbar-btn.list", Kind: locator.Button}).
	Register(FieldBodyImage, dropzone("bodyImage")).
	// Card
	Register(FieldCardTitle, inputField("cardTitle")).
	Register(FieldCardDescription, inputField("cardDescription")).
	Register(FieldCardImage, dropzone("cardImage")).
	// CaaS
	Register(FieldProducts, locator.Strategy{Selector: multiSelect, Kind: locator.Region}).
	Register(FieldProductsTrigger, locator.Strategy{Selector: multiSelect + " .selected-items", Kind: locator.Button}).
	Register(FieldProductsMenu, locator.Strategy{Selector: multiSelect + " .dropdown-menu", Kind: locator.Region}).
	Register(FieldProductOption, locator.Strategy{Selector: multiSelect + " .dropdown-menu .dropdown-option", Kind: locator.Button}).
	Register(FieldProductSelected, locator.Strategy{Selector: multiSelect + " .dropdown-menu .dropdown-option.selected", Kind: locator.Region}).
	Register(FieldProductTag, locator.Strategy{Selector: multiSelect + " .selected-tag", Inner: "button", Kind: locator.Button}).
	Register(FieldIndustry, selectField("caasIndustry")).
	// SEO metadata
	Register(FieldSEOTitle, inputField("seoMetadataTitle")).
	Register(FieldSEODescription, inputField("seoMetadataDescription")).
	Register(FieldPrimaryProductName, selectField("primaryProductName")).
	Register(FieldExperienceFragment, selectField("experienceFragment")).
	// Asset delivery
	Register(FieldVideoAsset, inputField("videoAsset")).
	Register(FieldPDFFile, locator.Strategy{Selector: "input.pdf-file-input", Kind: locator.File}).
	Register(FieldPDFInfo, locator.Strategy{Selector: ".file-info", Kind: locator.Region}).
	Register(FieldPDFView, locator.Strategy{Selector: `.file-info a:has-text("View")`, Kind: locator.Button}).
	Register(FieldPDFClear, locator.Strategy{Selector: `.file-info a:has-text("Clear")`, Kind: locator.Button}).
	// Validation and layout
	Register(FieldErrors, locator.Strategy{Selector: ".error-message", Kind: locator.Region}).
	Register(FieldSectionHeaders, locator.Strategy{Selector: ".form-row h2", Kind: locator.Region}).
	Register(FieldHeading, locator.Strategy{Selector: "h1", Kind: locator.Region, First: true})
