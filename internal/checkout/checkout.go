// Package checkout aligns the purchase-options substructure of a generated
// page against the variant catalog and hard-validates the result. Alignment
// is best-effort and rewrites ids, labels and prices from the catalog;
// validation failures are fatal and fully enumerated.
package checkout

import (
	"context"
	"fmt"

	"pagecraft/internal/page"
)

// CatalogSource supplies the read-only variant snapshot a generation
// attempt sells against.
type CatalogSource interface {
	Snapshot(ctx context.Context) (*Catalog, error)
}

// Category names one purchase-option axis.
type Category string

const (
	CategorySize  Category = "sizes"
	CategoryColor Category = "colors"
	CategoryOffer Category = "offers"
)

// categories fixes iteration order for alignment and validation.
var categories = []Category{CategorySize, CategoryColor, CategoryOffer}

// Option is one selectable entry in a purchase-option array.
type Option struct {
	ID          string
	Label       string
	PriceAmount float64
}

// Options is the purchase-options substructure of a page, decoded from the
// checkout config sub-document.
type Options struct {
	Sizes  []Option
	Colors []Option
	Offers []Option
}

func (o *Options) category(c Category) []Option {
	switch c {
	case CategorySize:
		return o.Sizes
	case CategoryColor:
		return o.Colors
	default:
		return o.Offers
	}
}

func (o *Options) setCategory(c Category, opts []Option) {
	switch c {
	case CategorySize:
		o.Sizes = opts
	case CategoryColor:
		o.Colors = opts
	default:
		o.Offers = opts
	}
}

// VariantOption is one option value carried by a catalog variant.
type VariantOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// OptionValues is the option triple that selects a variant. Unused axes
// stay zero.
type OptionValues struct {
	Size  VariantOption `json:"size"`
	Color VariantOption `json:"color"`
	Offer VariantOption `json:"offer"`
}

// Variant is one purchasable catalog entry.
type Variant struct {
	Title        string       `json:"title"`
	PriceAmount  float64      `json:"priceAmount"`
	OptionValues OptionValues `json:"optionValues"`
}

func (v *Variant) option(c Category) VariantOption {
	switch c {
	case CategorySize:
		return v.OptionValues.Size
	case CategoryColor:
		return v.OptionValues.Color
	default:
		return v.OptionValues.Offer
	}
}

// Catalog is the read-only variant snapshot a page sells against.
type Catalog struct {
	Variants []Variant
}

// values returns the distinct option values for one category in catalog
// order of first occurrence.
func (c *Catalog) values(cat Category) []VariantOption {
	var out []VariantOption
	seen := map[string]bool{}
	for _, v := range c.Variants {
		opt := v.option(cat)
		if opt.ID == "" || seen[opt.ID] {
			continue
		}
		seen[opt.ID] = true
		out = append(out, opt)
	}
	return out
}

// priceFor returns the price of the first variant carrying the option value.
func (c *Catalog) priceFor(cat Category, id string) float64 {
	for _, v := range c.Variants {
		if v.option(cat).ID == id {
			return v.PriceAmount
		}
	}
	return 0
}

// lookup finds the variant selected by an option-id triple. Empty ids match
// only variants that leave that category unset.
func (c *Catalog) lookup(size, color, offer string) (*Variant, bool) {
	for i := range c.Variants {
		v := &c.Variants[i]
		ov := v.OptionValues
		if ov.Size.ID == size && ov.Color.ID == color && ov.Offer.ID == offer {
			return v, true
		}
	}
	return nil, false
}

// OptionsFromValue decodes the purchase-options substructure out of a
// decoded checkout config value. Unknown keys are ignored; malformed entries
// are skipped rather than failed, validation catches what matters.
func OptionsFromValue(m map[string]any) *Options {
	o := &Options{}
	for _, cat := range categories {
		var opts []Option
		for _, item := range page.PropList(m, string(cat)) {
			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}
			opt := Option{
				ID:    page.PropString(entry, "id"),
				Label: page.PropString(entry, "label"),
			}
			opt.PriceAmount, _ = page.PropFloat(entry, "priceAmount")
			opts = append(opts, opt)
		}
		o.setCategory(cat, opts)
	}
	return o
}

// WriteValue serializes the options back into a decoded checkout config
// value, replacing the category arrays in place.
func (o *Options) WriteValue(m map[string]any) {
	for _, cat := range categories {
		opts := o.category(cat)
		out := make([]any, 0, len(opts))
		for _, opt := range opts {
			out = append(out, map[string]any{
				"id":          opt.ID,
				"label":       opt.Label,
				"priceAmount": opt.PriceAmount,
			})
		}
		m[string(cat)] = out
	}
}

// ValidationError enumerates every checkout violation found. The stored list
// is capped for readability; Total always carries the full count.
type ValidationError struct {
	Violations []string
	Total      int
}

// ViolationCap bounds how many violations one error carries.
const ViolationCap = 25

func (e *ValidationError) Error() string {
	if e.Total > len(e.Violations) {
		return fmt.Sprintf("checkout validation failed with %d violations (first %d): %v",
			e.Total, len(e.Violations), e.Violations)
	}
	return fmt.Sprintf("checkout validation failed with %d violations: %v", e.Total, e.Violations)
}

func (e *ValidationError) add(format string, args ...any) {
	e.Total++
	if len(e.Violations) < ViolationCap {
		e.Violations = append(e.Violations, fmt.Sprintf(format, args...))
	}
}
