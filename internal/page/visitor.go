package page

import (
	"fmt"
	"sort"
)

// WalkValues visits every object inside a decoded-JSON-shaped value,
// depth-first, with a JSON-path-like location string. fn returns whether to
// descend into the object's own values. Map keys are visited in sorted order
// so walks are deterministic. Typed *Node values are opaque; callers walk
// those through the document itself.
func WalkValues(v any, path string, fn func(path string, obj map[string]any) bool) {
	switch t := v.(type) {
	case map[string]any:
		if !fn(path, t) {
			return
		}
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			WalkValues(t[k], path+"."+k, fn)
		}
	case []any:
		for i, item := range t {
			WalkValues(item, fmt.Sprintf("%s[%d]", path, i), fn)
		}
	}
}
