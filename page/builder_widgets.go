package page

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// Product multi-select

// OpenProducts opens the product dropdown.
func (b *Builder) OpenProducts() error {
	if err := b.field(FieldProductsTrigger).Click(); err != nil {
		return err
	}
	return b.field(FieldProductsMenu).WaitVisible()
}

// IsProductsMenuVisible reports whether the product dropdown is open.
func (b *Builder) IsProductsMenuVisible() (bool, error) {
	return b.field(FieldProductsMenu).IsVisible()
}

// ProductOptionCount returns how many products the dropdown offers.
func (b *Builder) ProductOptionCount() (int, error) {
	return b.field(FieldProductOption).Count()
}

// SelectProductAt picks the option at index and returns its label.
func (b *Builder) SelectProductAt(index int) (string, error) {
	option := b.field(FieldProductOption).Nth(index)
	label, err := option.TextContent()
	if err != nil {
		return "", err
	}
	if err := option.Click(); err != nil {
		return "", err
	}
	return strings.TrimSpace(label), nil
}

// SelectProducts opens the dropdown, picks every named product and closes it.
func (b *Builder) SelectProducts(names []string) error {
	if err := b.OpenProducts(); err != nil {
		return err
	}
	for _, name := range names {
		if err := b.field(FieldProductOption).WithText(name).Click(); err != nil {
			return fmt.Errorf("selecting product %q: %w", name, err)
		}
	}
	return b.CloseDropdown()
}

// SelectedOptionCount returns how many options the open dropdown marks as selected.
func (b *Builder) SelectedOptionCount() (int, error) {
	return b.field(FieldProductSelected).Count()
}

// SelectedProducts returns the labels of the selected product tags.
func (b *Builder) SelectedProducts() ([]string, error) {
	texts, err := b.field(FieldProductTag).Texts()
	if err != nil {
		return nil, err
	}
	return lo.FilterMap(texts, func(t string, _ int) (string, bool) {
		t = strings.TrimSpace(t)
		return t, t != ""
	}), nil
}

// RemoveProductTag removes a selected product through its tag.
func (b *Builder) RemoveProductTag(name string) error {
	return b.field(FieldProductTag).WithText(name).Click()
}

// RemoveFirstProductTag removes the first selected product.
func (b *Builder) RemoveFirstProductTag() error {
	return b.field(FieldProductTag).Nth(0).Click()
}

// CloseDropdown closes open dropdowns by clicking the page heading.
func (b *Builder) CloseDropdown() error {
	return b.field(FieldHeading).Click()
}

// Rich text

// FocusBody puts the caret into the body editor.
func (b *Builder) FocusBody() error {
	return b.field(FieldBodyDescription).Click()
}

// TypeInBody focuses the body editor and types text.
func (b *Builder) TypeInBody(text string) error {
	if err := b.FocusBody(); err != nil {
		return err
	}
	return b.Type(text)
}

// Type sends text to the focused element.
func (b *Builder) Type(text string) error {
	if err := b.page.Keyboard().Type(text); err != nil {
		return fmt.Errorf("typing into body: %w", err)
	}
	return nil
}

// SelectAllInBody selects the whole content of the focused editor.
func (b *Builder) SelectAllInBody() error {
	return b.PressInBody("ControlOrMeta+a")
}

// PressInBody sends a key chord to the focused editor.
func (b *Builder) PressInBody(key string) error {
	if err := b.page.Keyboard().Press(key); err != nil {
		return fmt.Errorf("pressing %s in body: %w", key, err)
	}
	return nil
}

func (b *Builder) ApplyBold() error {
	return b.field(FieldBold).Click()
}

func (b *Builder) ApplyItalic() error {
	return b.field(FieldItalic).Click()
}

func (b *Builder) ApplyBulletList() error {
	return b.field(FieldBulletList).Click()
}

// BodyHTML returns the markup of the body editor.
func (b *Builder) BodyHTML() (string, error) {
	return b.field(FieldBodyDescription).InnerHTML()
}

// IsBoldActive reports whether the bold toolbar button is active.
func (b *Builder) IsBoldActive() (bool, error) {
	classes, _, err := b.field(FieldBold).Attribute("class")
	if err != nil {
		return false, err
	}
	return lo.Contains(strings.Fields(classes), "is-active"), nil
}

