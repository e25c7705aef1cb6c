package page

// TypeSet is the allow-list of component types active for a template mode.
type TypeSet map[string]struct{}

// NewTypeSet builds a TypeSet from type names.
func NewTypeSet(types ...string) TypeSet {
	ts := make(TypeSet, len(types))
	for _, t := range types {
		ts[t] = struct{}{}
	}
	return ts
}

// Has reports whether the type is allowed.
func (ts TypeSet) Has(t string) bool {
	_, ok := ts[t]
	return ok
}

// containerSlots declares the ordered slot fields of every known slot-bearing
// component type. Types absent from this table pass through the sanitizer
// unmodified even when they look container-shaped.
var containerSlots = map[string][]string{
	"SalesPage":           {"content"},
	"ListiclePage":        {"content"},
	"Section":             {"content"},
	"Hero":                {"content"},
	"Columns":             {"left", "right"},
	"Header":              {"content"},
	"Footer":              {"content"},
	"Accordion":           {"items"},
	"AccordionItem":       {"content"},
	"ListicleItem":        {"content"},
	"TestimonialCarousel": {"slides"},
}

// Sanitize filters an untrusted node list against the allow-list and
// normalizes slot fields. Nodes with a type outside the set, or whose props
// is not a mapping, are dropped. Slot fields of known container types are
// coerced to arrays (never nil) and recursively sanitized.
//
// Sanitizing an already-sanitized list with the same allow-list is a no-op.
func Sanitize(nodes []*Node, allowed TypeSet) []*Node {
	out := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		if n == nil || n.Type == "" || !allowed.Has(n.Type) {
			continue
		}
		if n.Props == nil {
			continue
		}
		for _, slot := range n.Slots() {
			n.Props[slot] = Sanitize(coerceChildren(n.Props[slot]), allowed)
		}
		out = append(out, n)
	}
	return out
}

// coerceChildren turns whatever a slot field holds into a node list. Already
// typed children pass through; raw decoded arrays are lifted; anything else
// becomes empty.
func coerceChildren(v any) []*Node {
	switch t := v.(type) {
	case []*Node:
		return t
	case []any:
		return rawNodes(t)
	default:
		return nil
	}
}

// SanitizeDocument sanitizes content and every zone in place.
func SanitizeDocument(doc *Document, allowed TypeSet) {
	doc.Content = Sanitize(doc.Content, allowed)
	for name, nodes := range doc.Zones {
		doc.Zones[name] = Sanitize(nodes, allowed)
	}
	if doc.Root.Props == nil {
		doc.Root.Props = map[string]any{}
	}
}
