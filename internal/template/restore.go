package template

import "pagecraft/internal/page"

// deepCopyProps lists, per type, the nested sub-structures a generated node
// must carry; when the model omits them they are deep-copied from the base.
var deepCopyProps = map[string][]string{
	"Hero":            {"gift", "modal"},
	"PurchaseOptions": {"upsell"},
}

// nullIntolerantArrays lists, per type, optional array props that consumers
// index without nil checks. Absent or null values are coerced to [].
var nullIntolerantArrays = map[string][]string{
	"Hero":            {"badges"},
	"TrustBadges":     {"badges"},
	"PurchaseOptions": {"benefits"},
	"ListicleItem":    {"highlights"},
}

// maxTestimonialImages caps positional image backfill per testimonial slide.
const maxTestimonialImages = 3

// restoreRequired applies type-specific required-field restoration to a
// matched overlay pair. auth is the base node, cand the generated node being
// kept in the output.
func (m *merger) restoreRequired(auth, cand *page.Node) {
	for _, key := range deepCopyProps[cand.Type] {
		if cand.Props[key] != nil {
			continue
		}
		if baseVal, ok := auth.Props[key]; ok && baseVal != nil {
			cand.Props[key] = page.DeepCopyValue(baseVal)
		}
	}

	for _, key := range nullIntolerantArrays[cand.Type] {
		if _, ok := cand.Props[key].([]any); !ok {
			cand.Props[key] = []any{}
		}
	}

	if m.kind == KindListicle && cand.Type == "TestimonialSlide" {
		m.restoreSlideImages(auth, cand)
	}
}

// restoreSlideImages backfills up to maxTestimonialImages image entries
// positionally from the base slide. A present generated image missing its
// alt text gets the base image's alt.
func (m *merger) restoreSlideImages(auth, cand *page.Node) {
	baseImages := page.PropList(auth.Props, "images")
	if len(baseImages) == 0 {
		return
	}
	genImages, _ := cand.Props["images"].([]any)

	limit := len(baseImages)
	if limit > maxTestimonialImages {
		limit = maxTestimonialImages
	}
	for i := 0; i < limit; i++ {
		if i >= len(genImages) || genImages[i] == nil {
			for len(genImages) <= i {
				genImages = append(genImages, nil)
			}
			genImages[i] = page.DeepCopyValue(baseImages[i])
			m.report.RestoredImageSlots++
			continue
		}
		genImg, ok := genImages[i].(map[string]any)
		if !ok {
			continue
		}
		baseImg, ok := baseImages[i].(map[string]any)
		if !ok {
			continue
		}
		if page.PropString(genImg, "alt") == "" {
			if alt := page.PropString(baseImg, "alt"); alt != "" {
				genImg["alt"] = alt
			}
		}
	}
	cand.Props["images"] = genImages
}
