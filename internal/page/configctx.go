package page

import (
	"encoding/json"
	"fmt"
)

// configKeys is the fixed set of prop fields that may hold a config
// sub-document. The *Json variants hold the sub-document JSON-encoded as a
// string; the plain variants hold it as a decoded object. Consumers never
// branch on the representation — the ConfigContext hides it.
var configKeys = []string{
	"config",
	"configJson",
	"settings",
	"settingsJson",
	"checkoutConfig",
	"checkoutConfigJson",
}

// IsConfigKey reports whether key is one of the props fields reserved for
// config sub-documents.
func IsConfigKey(key string) bool {
	for _, k := range configKeys {
		if k == key {
			return true
		}
	}
	return false
}

// ConfigContext wraps one nested config sub-document reachable through a
// component's props. Mutate the parsed value through Value, call MarkDirty,
// and Commit re-serializes it into the owning props in its original
// representation.
type ConfigContext struct {
	ownerType  string
	ownerProps map[string]any
	key        string
	parsed     map[string]any
	fromString bool
	dirty      bool
}

// OwnerType names the component type the sub-document belongs to.
func (c *ConfigContext) OwnerType() string { return c.ownerType }

// Key names the prop field the sub-document lives in.
func (c *ConfigContext) Key() string { return c.key }

// Value returns the parsed sub-document. Mutations to the returned map are
// only persisted after MarkDirty and Commit.
func (c *ConfigContext) Value() map[string]any { return c.parsed }

// MarkDirty flags the context for re-serialization on Commit.
func (c *ConfigContext) MarkDirty() { c.dirty = true }

// Dirty reports whether the context has pending changes.
func (c *ConfigContext) Dirty() bool { return c.dirty }

// commit writes the parsed value back into the owning props, preserving the
// original representation.
func (c *ConfigContext) commit() error {
	if !c.dirty {
		return nil
	}
	if c.fromString {
		data, err := json.Marshal(c.parsed)
		if err != nil {
			return fmt.Errorf("re-serialize %s.%s: %w", c.ownerType, c.key, err)
		}
		c.ownerProps[c.key] = string(data)
	} else {
		c.ownerProps[c.key] = c.parsed
	}
	c.dirty = false
	return nil
}

// nodeConfigContexts extracts every config sub-document present on a single
// node. A string field that fails to parse is a hard error naming the owner
// type and field; silently dropping it would discard page behavior.
func nodeConfigContexts(n *Node) ([]*ConfigContext, error) {
	var ctxs []*ConfigContext
	for _, key := range configKeys {
		raw, ok := n.Props[key]
		if !ok || raw == nil {
			continue
		}
		switch v := raw.(type) {
		case map[string]any:
			ctxs = append(ctxs, &ConfigContext{
				ownerType:  n.Type,
				ownerProps: n.Props,
				key:        key,
				parsed:     v,
			})
		case string:
			if v == "" {
				continue
			}
			var parsed map[string]any
			if err := json.Unmarshal([]byte(v), &parsed); err != nil {
				return nil, fmt.Errorf("component %s field %s holds invalid JSON: %w", n.Type, key, err)
			}
			ctxs = append(ctxs, &ConfigContext{
				ownerType:  n.Type,
				ownerProps: n.Props,
				key:        key,
				parsed:     parsed,
				fromString: true,
			})
		}
	}
	return ctxs, nil
}

// ConfigContexts collects every config sub-document in the document, in
// document order.
func ConfigContexts(doc *Document) ([]*ConfigContext, error) {
	var all []*ConfigContext
	var walkErr error
	doc.Walk(func(n *Node) bool {
		ctxs, err := nodeConfigContexts(n)
		if err != nil {
			walkErr = err
			return false
		}
		all = append(all, ctxs...)
		return true
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return all, nil
}

// CommitConfigs re-serializes every dirty context back into its owning props.
// A dirty context must never be discarded uncommitted.
func CommitConfigs(ctxs []*ConfigContext) error {
	for _, c := range ctxs {
		if err := c.commit(); err != nil {
			return err
		}
	}
	return nil
}
