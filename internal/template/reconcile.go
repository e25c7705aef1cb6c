package template

import "pagecraft/internal/page"

// mode selects which counters a merge feeds.
type mode int

const (
	modeUpgrade mode = iota // stored base vs. current canonical template
	modeOverlay             // freshly generated vs. resolved base
)

// merger runs one template-order, match-by-id-then-type-FIFO merge. The
// authority side dictates order, ids and required props; the candidate side
// supplies content. All counters go into the threaded report.
type merger struct {
	mode   mode
	kind   Kind
	report *Report
}

// Upgrade merges a stored base document against the current canonical
// template, for the case where the template definition evolved since the base
// was persisted. Template children missing from the base are inserted
// (counted as upgraded); base children the template no longer knows are
// dropped (counted). Matched ids are rewritten to the template's ids.
func Upgrade(base *page.Document, tmpl *Template, report *Report) *page.Document {
	m := &merger{mode: modeUpgrade, kind: tmpl.Kind, report: report}
	return m.mergeDocuments(tmpl.Document, base)
}

// Overlay merges a freshly generated document against the resolved base,
// then restores type-specific required sub-structures and verifies that every
// component type the base requires is still present. Fails hard when the
// required page root is absent or a required type disappeared.
func Overlay(gen *page.Document, base *page.Document, tmpl *Template, report *Report) (*page.Document, error) {
	if rootType, ok := PageRootType(tmpl.Kind); ok {
		if gen.TypeCounts()[rootType] == 0 {
			return nil, &ReconcileError{Kind: tmpl.Kind, PageMissing: true}
		}
	}

	m := &merger{mode: modeOverlay, kind: tmpl.Kind, report: report}
	merged := m.mergeDocuments(base, gen)

	required := RequiredTypes(tmpl.Kind, base)
	counts := merged.TypeCounts()
	var missing []string
	for _, t := range required {
		if counts[t] == 0 {
			missing = append(missing, t)
		}
	}
	if len(missing) > 0 {
		return nil, &ReconcileError{Kind: tmpl.Kind, MissingTypes: missing}
	}
	return merged, nil
}

// mergeDocuments merges candidate into authority shape: content, every
// authority zone, and root props. Candidate zones unknown to the authority
// are dropped child by child.
func (m *merger) mergeDocuments(authority, candidate *page.Document) *page.Document {
	out := &page.Document{
		Root:  page.Root{Props: candidate.Root.Props},
		Zones: map[string][]*page.Node{},
	}
	if out.Root.Props == nil {
		out.Root.Props = map[string]any{}
	}
	for k, v := range authority.Root.Props {
		if _, ok := out.Root.Props[k]; !ok {
			out.Root.Props[k] = page.DeepCopyValue(v)
		}
	}

	out.Content = m.mergeLists(authority.Content, candidate.Content)

	for _, name := range authority.ZoneNames() {
		out.Zones[name] = m.mergeLists(authority.Zones[name], candidate.Zones[name])
	}
	for _, name := range candidate.ZoneNames() {
		if _, known := authority.Zones[name]; !known {
			for _, n := range candidate.Zones[name] {
				m.countDropped(n)
			}
		}
	}
	return out
}

// mergeLists walks authority children in order. Each authority child either
// finds its candidate match (by id, else first unconsumed same-type child in
// document order) or is inserted from the authority. Unmatched candidate
// children are dropped and counted, never silently lost.
func (m *merger) mergeLists(authority, candidate []*page.Node) []*page.Node {
	matches, unmatched := matchChildren(authority, candidate)

	out := make([]*page.Node, 0, len(authority))
	for i, auth := range authority {
		if cand := matches[i]; cand != nil {
			out = append(out, m.mergePair(auth, cand))
			continue
		}
		out = append(out, auth.DeepCopy())
		m.countInserted()
	}
	for _, n := range unmatched {
		m.countDropped(n)
	}
	return out
}

// matchChildren pairs authority children with candidate children: id match
// first (same type required), then FIFO same-type. Returns the candidate
// match per authority index (nil = none) and the leftover candidates.
func matchChildren(authority, candidate []*page.Node) ([]*page.Node, []*page.Node) {
	consumed := make([]bool, len(candidate))
	byID := map[string]int{}
	for i, c := range candidate {
		if id := c.ID(); id != "" {
			if _, seen := byID[id]; !seen {
				byID[id] = i
			}
		}
	}

	matches := make([]*page.Node, len(authority))
	for i, a := range authority {
		if id := a.ID(); id != "" {
			if j, ok := byID[id]; ok && !consumed[j] && candidate[j].Type == a.Type {
				matches[i] = candidate[j]
				consumed[j] = true
			}
		}
	}
	for i, a := range authority {
		if matches[i] != nil {
			continue
		}
		for j, c := range candidate {
			if !consumed[j] && c.Type == a.Type {
				matches[i] = c
				consumed[j] = true
				break
			}
		}
	}

	var unmatched []*page.Node
	for j, c := range candidate {
		if !consumed[j] {
			unmatched = append(unmatched, c)
		}
	}
	return matches, unmatched
}

// mergePair merges one matched candidate node under its authority node: the
// authority's id wins, authority props absent from the candidate are filled
// in (slot fields excluded), and slots recurse through the same merge.
func (m *merger) mergePair(auth, cand *page.Node) *page.Node {
	if cand.Props == nil {
		cand.Props = map[string]any{}
	}
	if id := auth.ID(); id != "" {
		cand.Props["id"] = id
	}

	slots := map[string]struct{}{}
	for _, s := range auth.Slots() {
		slots[s] = struct{}{}
	}
	for k, v := range auth.Props {
		if _, isSlot := slots[k]; isSlot {
			continue
		}
		if _, ok := cand.Props[k]; !ok {
			cand.Props[k] = page.DeepCopyValue(v)
		}
	}

	if m.mode == modeOverlay {
		m.restoreRequired(auth, cand)
	}

	for _, slot := range auth.Slots() {
		cand.Props[slot] = m.mergeLists(auth.Children(slot), cand.Children(slot))
	}
	return cand
}

func (m *merger) countInserted() {
	switch m.mode {
	case modeUpgrade:
		m.report.UpgradedBaseSections++
	case modeOverlay:
		m.report.RestoredSections++
	}
}

func (m *merger) countDropped(n *page.Node) {
	switch m.mode {
	case modeUpgrade:
		m.report.DroppedUpgradedBaseSections++
	case modeOverlay:
		m.report.DroppedExtraSections++
		m.report.recordDropped(n.Type, n.ID())
	}
}
