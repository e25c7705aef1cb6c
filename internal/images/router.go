package images

import "strings"

// RouterConfig holds the tunable routing thresholds. The defaults are
// empirically chosen, not invariants.
type RouterConfig struct {
	StockMaxWords  int
	StockMaxCommas int
}

// DefaultRouterConfig returns the tuned thresholds.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{StockMaxWords: 16, StockMaxCommas: 2}
}

// Keyword corpora for the routing heuristic. Matching is substring-based
// over the lowercased prompt; keep entries lowercase.

// graphicTerms indicate drawn or rendered artwork, which stock search
// cannot satisfy.
var graphicTerms = []string{
	"icon", "diagram", "illustration", "infographic", "graphic",
	"chart", "logo", "vector", "sketch", "line art", "pictogram",
}

// productTerms indicate the exact product must appear, which rules out
// generic stock photography.
var productTerms = []string{
	"packaging", "studio shot", "close-up", "closeup", "close up",
	"white background", "product shot", "product photo", "label",
	"macro", "flat lay", "flatlay", "on a plain",
}

// lifestyleTerms indicate a generic human scene stock search covers well.
var lifestyleTerms = []string{
	"lifestyle", "woman", "man ", "person", "people", "family",
	"kitchen", "living room", "outdoor", "beach", "park", "office",
	"smiling", "drinking", "walking", "running", "relaxing", "couple",
}

// complexityTerms mark prompts too specific for stock even when the scene
// reads as lifestyle.
var complexityTerms = []string{
	"before/after", "before and after", "collage", "split screen",
	"split-screen", "side by side", "side-by-side", "step by step",
}

// Route decides the recommended source for one image target. It is a pure
// function of its inputs: same prompt, key and reference flag always yields
// the same source. Explicit caller declarations are handled by the resolver
// and never reach this function.
func Route(prompt string, key AssetKey, hasReference bool, cfg RouterConfig) Source {
	// Icons and reference-guided targets always generate.
	if key == KeyIcon || hasReference {
		return SourceGeneration
	}

	lower := strings.ToLower(prompt)

	if containsAny(lower, graphicTerms) {
		return SourceGeneration
	}
	if containsAny(lower, productTerms) {
		return SourceGeneration
	}
	if containsAny(lower, lifestyleTerms) {
		if len(strings.Fields(lower)) > cfg.StockMaxWords {
			return SourceGeneration
		}
		if strings.Count(lower, ",") > cfg.StockMaxCommas {
			return SourceGeneration
		}
		if containsAny(lower, complexityTerms) {
			return SourceGeneration
		}
		return SourceStock
	}

	return SourceGeneration
}

func containsAny(s string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(s, term) {
			return true
		}
	}
	return false
}
