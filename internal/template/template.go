// Package template defines canonical page templates and the reconciliation
// engine that merges candidate documents against them. Reconciliation is a
// template-order, match-by-id-then-type-FIFO merge; it never silently drops
// data without counting it, and it fails hard when a required structural
// element cannot be recovered.
package template

import "pagecraft/internal/page"

// Kind is the template operating mode.
type Kind string

const (
	KindSalesPDP Kind = "sales-pdp"
	KindListicle Kind = "pre-sales-listicle"
	KindNone     Kind = "none"
)

// Template pairs a canonical document with its operating mode.
type Template struct {
	ID       string
	Kind     Kind
	Document *page.Document
}

// Lookup resolves templates by id. The registry implements it; tests use
// in-memory stubs.
type Lookup interface {
	GetTemplate(id string) (*Template, error)
}

// pageRootTypes names the required page-root wrapper per kind. A generated
// document missing this type cannot be repaired.
var pageRootTypes = map[Kind]string{
	KindSalesPDP: "SalesPage",
	KindListicle: "ListiclePage",
}

// PageRootType returns the required page-root type for a kind, if any.
func PageRootType(k Kind) (string, bool) {
	t, ok := pageRootTypes[k]
	return t, ok
}

// requiredCandidates lists, per kind, the component types whose presence in
// the base document makes them required in the reconciled output.
var requiredCandidates = map[Kind][]string{
	KindSalesPDP: {
		"SalesPage", "Header", "Footer", "Hero", "PurchaseOptions",
		"TestimonialCarousel", "Accordion",
	},
	KindListicle: {
		"ListiclePage", "Header", "Footer", "Hero", "ListicleItem",
		"TestimonialCarousel",
	},
}

// RequiredTypes computes the candidate types present (count>0) in the base
// document for the given kind. Every one of them must survive reconciliation.
func RequiredTypes(k Kind, base *page.Document) []string {
	candidates := requiredCandidates[k]
	if len(candidates) == 0 {
		return nil
	}
	counts := base.TypeCounts()
	var required []string
	for _, t := range candidates {
		if counts[t] > 0 {
			required = append(required, t)
		}
	}
	return required
}

// allowedByKind is the component allow-list active per template mode. The
// free-editing mode accepts the full vocabulary.
var allowedByKind = map[Kind]page.TypeSet{
	KindSalesPDP: page.NewTypeSet(
		"SalesPage", "Header", "Footer", "Section", "Hero", "Columns",
		"Heading", "Text", "Button", "Image", "Video", "Icon", "Divider",
		"Spacer", "Accordion", "AccordionItem", "PurchaseOptions",
		"TestimonialCarousel", "TestimonialSlide", "TrustBadges",
	),
	KindListicle: page.NewTypeSet(
		"ListiclePage", "Header", "Footer", "Section", "Hero", "Columns",
		"Heading", "Text", "Button", "Image", "Video", "Icon", "Divider",
		"Spacer", "ListicleItem", "TestimonialCarousel", "TestimonialSlide",
		"TrustBadges",
	),
	KindNone: page.NewTypeSet(
		"SalesPage", "ListiclePage", "Header", "Footer", "Section", "Hero",
		"Columns", "Heading", "Text", "Button", "Image", "Video", "Icon",
		"Divider", "Spacer", "Accordion", "AccordionItem", "PurchaseOptions",
		"ListicleItem", "TestimonialCarousel", "TestimonialSlide", "TrustBadges",
	),
}

// AllowedTypes returns the allow-list for a kind.
func AllowedTypes(k Kind) page.TypeSet {
	if ts, ok := allowedByKind[k]; ok {
		return ts
	}
	return allowedByKind[KindNone]
}
