package generate

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"pagecraft/internal/checkout"
	"pagecraft/internal/template"
)

// buildPrompt assembles the initial draft prompt: kind, brief, the allowed
// component vocabulary and the serialized variant catalog.
func buildPrompt(tmpl *template.Template, brief string, catalog *checkout.Catalog) string {
	var b strings.Builder

	b.WriteString("Draft a marketing page as a single JSON object with the shape\n")
	b.WriteString(`{"root":{"props":{}},"content":[...],"zones":{"header":[...],"footer":[...]}}.` + "\n")
	b.WriteString("Every component is {\"type\":...,\"props\":{...}}.\n\n")

	fmt.Fprintf(&b, "Page kind: %s\n", tmpl.Kind)
	if root, ok := template.PageRootType(tmpl.Kind); ok {
		fmt.Fprintf(&b, "The first content component must be a %s.\n", root)
	}

	types := make([]string, 0)
	for t := range template.AllowedTypes(tmpl.Kind) {
		types = append(types, t)
	}
	sort.Strings(types)
	fmt.Fprintf(&b, "Allowed component types: %s\n\n", strings.Join(types, ", "))

	fmt.Fprintf(&b, "Brief:\n%s\n", brief)

	if catalog != nil && len(catalog.Variants) > 0 {
		raw, err := json.Marshal(catalog.Variants)
		if err == nil {
			fmt.Fprintf(&b, "\nVariant catalog (use these exact option ids and prices):\n%s\n", raw)
		}
	}

	b.WriteString("\nRespond with the JSON object only.")
	return b.String()
}

// repairPrompt re-prompts with the specific defect named, keeping the
// original instructions in view.
func repairPrompt(base string, d defect) string {
	var problem string
	switch d.phase {
	case PhaseRepairInvalidJSON:
		problem = "Your previous response was not a parseable JSON object"
	case PhaseRepairEmptyPage:
		problem = "Your previous response contained no usable page content"
	case PhaseRepairHeaderFooter:
		problem = "Your previous response was missing required header/footer zones"
	}
	return fmt.Sprintf("%s: %s.\nProduce a corrected response.\n\n%s", problem, d.detail, base)
}
