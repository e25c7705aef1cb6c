package checkout

import "strings"

// Align rewrites each option category whose ids do not correspond 1:1 by
// count and ordinal to the catalog's distinct values for that category. The
// rewrite takes id and label from the catalog value and the price from the
// first variant carrying it, preserving array order. Reports whether any
// category was rewritten.
func Align(opts *Options, catalog *Catalog) bool {
	aligned := false
	for _, cat := range categories {
		want := catalog.values(cat)
		have := opts.category(cat)
		if len(have) == 0 && len(want) == 0 {
			continue
		}
		if ordinalMatch(have, want) {
			continue
		}
		rewritten := make([]Option, 0, len(want))
		for _, v := range want {
			rewritten = append(rewritten, Option{
				ID:          v.ID,
				Label:       v.Label,
				PriceAmount: catalog.priceFor(cat, v.ID),
			})
		}
		opts.setCategory(cat, rewritten)
		aligned = true
	}
	return aligned
}

func ordinalMatch(have []Option, want []VariantOption) bool {
	if len(have) != len(want) {
		return false
	}
	for i := range have {
		if have[i].ID != want[i].ID {
			return false
		}
	}
	return true
}

// Validate hard-checks the options against the catalog: the catalog itself
// must be internally consistent, every referenced id must exist, and every
// combination in the cross-product of the option arrays must select an
// actual variant. Returns a ValidationError enumerating every violation, or
// nil when clean.
func Validate(opts *Options, catalog *Catalog) error {
	verr := &ValidationError{}

	validateCatalog(catalog, verr)

	for _, cat := range categories {
		known := map[string]bool{}
		for _, v := range catalog.values(cat) {
			known[v.ID] = true
		}
		for _, opt := range opts.category(cat) {
			if opt.ID == "" {
				verr.add("%s: option with empty id (label %q)", cat, opt.Label)
				continue
			}
			if !known[opt.ID] {
				verr.add("%s: id %q not in catalog", cat, opt.ID)
			}
		}
	}

	for _, combo := range crossProduct(opts) {
		if _, ok := catalog.lookup(combo[0], combo[1], combo[2]); !ok {
			verr.add("no variant for combination (%s)", comboString(combo))
		}
	}

	if verr.Total > 0 {
		return verr
	}
	return nil
}

func validateCatalog(catalog *Catalog, verr *ValidationError) {
	if len(catalog.Variants) == 0 {
		verr.add("catalog has no variants")
		return
	}
	seen := map[[3]string]string{}
	for i, v := range catalog.Variants {
		if v.Title == "" {
			verr.add("catalog variant %d has no title", i)
		}
		triple := [3]string{v.OptionValues.Size.ID, v.OptionValues.Color.ID, v.OptionValues.Offer.ID}
		if triple == ([3]string{}) {
			verr.add("catalog variant %q has no option values", v.Title)
			continue
		}
		if prev, dup := seen[triple]; dup {
			verr.add("catalog variants %q and %q share option triple (%s)",
				prev, v.Title, comboString(triple[:]))
			continue
		}
		seen[triple] = v.Title
	}
}

// crossProduct enumerates every option-id combination the substructure
// implies. An empty category contributes a single empty id so unset axes
// still combine.
func crossProduct(opts *Options) [][]string {
	axes := make([][]string, len(categories))
	for i, cat := range categories {
		for _, opt := range opts.category(cat) {
			axes[i] = append(axes[i], opt.ID)
		}
		if len(axes[i]) == 0 {
			axes[i] = []string{""}
		}
	}

	var combos [][]string
	for _, s := range axes[0] {
		for _, c := range axes[1] {
			for _, o := range axes[2] {
				combos = append(combos, []string{s, c, o})
			}
		}
	}
	return combos
}

func comboString(combo []string) string {
	parts := make([]string, len(combo))
	for i, id := range combo {
		if id == "" {
			id = "-"
		}
		parts[i] = id
	}
	return strings.Join(parts, ",")
}
