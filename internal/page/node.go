// Package page defines the document tree a page draft is made of, plus the
// operations that keep it structurally legal: sanitizing untrusted trees
// against an allow-list, assigning unique component ids, and accessing the
// dual object/JSON-string config sub-documents hidden inside component props.
package page

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Node is one typed, prop-bearing tree element. Slot fields inside Props
// (content, left, right, items, slides) hold []*Node child sequences after
// sanitization; everything else in Props is plain decoded JSON.
type Node struct {
	Type  string
	Props map[string]any
}

// Root holds the page root's props. The root is not a component; it carries
// page-level settings only.
type Root struct {
	Props map[string]any
}

// Document is the root tree representing one page's layout. The wire shape —
// root.props, content array, zones map of named arrays — is the external
// contract every consumer depends on.
type Document struct {
	Root    Root
	Content []*Node
	Zones   map[string][]*Node
}

// ID returns the node's props.id, or "" when absent or not a string.
func (n *Node) ID() string {
	return PropString(n.Props, "id")
}

// Slots returns the names of the slot fields this node's type owns, in
// declaration order. Nil for non-container types.
func (n *Node) Slots() []string {
	return containerSlots[n.Type]
}

// Children returns the child list held in the named slot. After sanitization
// slots always hold []*Node; before it, the raw value may be anything.
func (n *Node) Children(slot string) []*Node {
	if kids, ok := n.Props[slot].([]*Node); ok {
		return kids
	}
	return nil
}

type nodeWire struct {
	Type  string         `json:"type"`
	Props map[string]any `json:"props"`
}

// MarshalJSON writes the node's wire form: {"type": ..., "props": {...}}.
func (n *Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(nodeWire{Type: n.Type, Props: n.Props})
}

// UnmarshalJSON reads the wire form. Slot fields stay raw; run Sanitize to
// normalize them into typed children.
func (n *Node) UnmarshalJSON(data []byte) error {
	var w nodeWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	n.Type = w.Type
	n.Props = w.Props
	return nil
}

type documentWire struct {
	Root struct {
		Props map[string]any `json:"props"`
	} `json:"root"`
	Content []*Node            `json:"content"`
	Zones   map[string][]*Node `json:"zones"`
}

// MarshalJSON preserves the wire contract field-for-field.
func (d *Document) MarshalJSON() ([]byte, error) {
	var w documentWire
	w.Root.Props = d.Root.Props
	if w.Root.Props == nil {
		w.Root.Props = map[string]any{}
	}
	w.Content = d.Content
	if w.Content == nil {
		w.Content = []*Node{}
	}
	w.Zones = d.Zones
	if w.Zones == nil {
		w.Zones = map[string][]*Node{}
	}
	return json.Marshal(w)
}

// UnmarshalJSON reads the wire form without sanitizing.
func (d *Document) UnmarshalJSON(data []byte) error {
	var w documentWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	d.Root = Root{Props: w.Root.Props}
	d.Content = w.Content
	d.Zones = w.Zones
	return nil
}

// FromObject builds an unsanitized Document from a decoded JSON object, the
// shape extraction returns. Missing sections default to empty; a content or
// zones value of the wrong shape is an error naming the field.
func FromObject(obj map[string]any) (*Document, error) {
	doc := &Document{
		Root:  Root{Props: map[string]any{}},
		Zones: map[string][]*Node{},
	}

	if rootVal, ok := obj["root"]; ok {
		rootMap, ok := rootVal.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("document root is %T, want object", rootVal)
		}
		if props, ok := rootMap["props"].(map[string]any); ok {
			doc.Root.Props = props
		}
	}

	if contentVal, ok := obj["content"]; ok && contentVal != nil {
		list, ok := contentVal.([]any)
		if !ok {
			return nil, fmt.Errorf("document content is %T, want array", contentVal)
		}
		doc.Content = rawNodes(list)
	}

	if zonesVal, ok := obj["zones"]; ok && zonesVal != nil {
		zones, ok := zonesVal.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("document zones is %T, want object", zonesVal)
		}
		for name, zv := range zones {
			list, ok := zv.([]any)
			if !ok {
				return nil, fmt.Errorf("zone %q is %T, want array", name, zv)
			}
			doc.Zones[name] = rawNodes(list)
		}
	}

	return doc, nil
}

// rawNodes lifts raw decoded values into Nodes without validating types or
// props shape; the sanitizer owns dropping malformed entries.
func rawNodes(list []any) []*Node {
	nodes := make([]*Node, 0, len(list))
	for _, v := range list {
		m, ok := v.(map[string]any)
		if !ok {
			nodes = append(nodes, &Node{}) // malformed, sanitizer drops it
			continue
		}
		n := &Node{}
		n.Type, _ = m["type"].(string)
		n.Props, _ = m["props"].(map[string]any)
		nodes = append(nodes, n)
	}
	return nodes
}

// ZoneNames returns the document's zone names sorted, so walks are
// deterministic.
func (d *Document) ZoneNames() []string {
	names := make([]string, 0, len(d.Zones))
	for name := range d.Zones {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Walk visits every node in document order: content first, then zones by
// sorted name, recursing into slot children depth-first. Returning false from
// visit stops the walk.
func (d *Document) Walk(visit func(n *Node) bool) {
	if !walkNodes(d.Content, visit) {
		return
	}
	for _, name := range d.ZoneNames() {
		if !walkNodes(d.Zones[name], visit) {
			return
		}
	}
}

func walkNodes(nodes []*Node, visit func(n *Node) bool) bool {
	for _, n := range nodes {
		if !visit(n) {
			return false
		}
		for _, slot := range n.Slots() {
			if !walkNodes(n.Children(slot), visit) {
				return false
			}
		}
	}
	return true
}

// TypeCounts returns how many nodes of each type the document holds.
func (d *Document) TypeCounts() map[string]int {
	counts := map[string]int{}
	d.Walk(func(n *Node) bool {
		counts[n.Type]++
		return true
	})
	return counts
}

// DeepCopyValue copies any decoded-JSON-shaped value. Node pointers are
// copied structurally so the copy shares nothing with the source.
func DeepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = DeepCopyValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = DeepCopyValue(val)
		}
		return out
	case []*Node:
		out := make([]*Node, len(t))
		for i, n := range t {
			out[i] = n.DeepCopy()
		}
		return out
	case *Node:
		return t.DeepCopy()
	default:
		return v
	}
}

// DeepCopy returns a structural copy of the node.
func (n *Node) DeepCopy() *Node {
	if n == nil {
		return nil
	}
	cp := &Node{Type: n.Type}
	if n.Props != nil {
		cp.Props = DeepCopyValue(n.Props).(map[string]any)
	}
	return cp
}

// DeepCopy returns a structural copy of the document.
func (d *Document) DeepCopy() *Document {
	cp := &Document{Root: Root{Props: map[string]any{}}, Zones: map[string][]*Node{}}
	if d.Root.Props != nil {
		cp.Root.Props = DeepCopyValue(d.Root.Props).(map[string]any)
	}
	for _, n := range d.Content {
		cp.Content = append(cp.Content, n.DeepCopy())
	}
	for name, nodes := range d.Zones {
		zone := make([]*Node, 0, len(nodes))
		for _, n := range nodes {
			zone = append(zone, n.DeepCopy())
		}
		cp.Zones[name] = zone
	}
	return cp
}
