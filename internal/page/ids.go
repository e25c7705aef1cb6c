package page

import "github.com/google/uuid"

// AssignIDs walks the whole document in document order and assigns a fresh
// unique id to every node missing one or reusing an id already seen. First
// occurrence wins. Returns how many ids were assigned.
func AssignIDs(doc *Document) int {
	seen := map[string]struct{}{}
	assigned := 0
	doc.Walk(func(n *Node) bool {
		if n.Props == nil {
			n.Props = map[string]any{}
		}
		id := n.ID()
		if id == "" {
			id = uuid.NewString()
			n.Props["id"] = id
			assigned++
		} else if _, dup := seen[id]; dup {
			id = uuid.NewString()
			n.Props["id"] = id
			assigned++
		}
		seen[id] = struct{}{}
		return true
	})
	return assigned
}
