package page

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigContexts(t *testing.T) {
	t.Run("string representation parses and commits back to string", func(t *testing.T) {
		n := &Node{Type: "PurchaseOptions", Props: map[string]any{
			"checkoutConfigJson": `{"sizes":[{"id":"s1"}]}`,
		}}
		doc := &Document{Content: []*Node{n}}

		ctxs, err := ConfigContexts(doc)
		require.NoError(t, err)
		require.Len(t, ctxs, 1)

		ctx := ctxs[0]
		assert.Equal(t, "PurchaseOptions", ctx.OwnerType())
		assert.Equal(t, "checkoutConfigJson", ctx.Key())

		ctx.Value()["aligned"] = true
		ctx.MarkDirty()
		require.NoError(t, CommitConfigs(ctxs))

		raw, ok := n.Props["checkoutConfigJson"].(string)
		require.True(t, ok, "string representation must be preserved")
		var back map[string]any
		require.NoError(t, json.Unmarshal([]byte(raw), &back))
		assert.Equal(t, true, back["aligned"])
	})

	t.Run("object representation stays an object", func(t *testing.T) {
		n := &Node{Type: "Hero", Props: map[string]any{
			"settings": map[string]any{"theme": "dark"},
		}}
		doc := &Document{Content: []*Node{n}}

		ctxs, err := ConfigContexts(doc)
		require.NoError(t, err)
		require.Len(t, ctxs, 1)

		ctxs[0].Value()["theme"] = "light"
		ctxs[0].MarkDirty()
		require.NoError(t, CommitConfigs(ctxs))

		m, ok := n.Props["settings"].(map[string]any)
		require.True(t, ok, "object representation must be preserved")
		assert.Equal(t, "light", m["theme"])
	})

	t.Run("invalid JSON string is a hard error naming owner and field", func(t *testing.T) {
		n := &Node{Type: "PurchaseOptions", Props: map[string]any{
			"configJson": `{broken`,
		}}
		doc := &Document{Content: []*Node{n}}

		_, err := ConfigContexts(doc)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "PurchaseOptions")
		assert.Contains(t, err.Error(), "configJson")
	})

	t.Run("empty string and absent keys are skipped", func(t *testing.T) {
		n := &Node{Type: "Hero", Props: map[string]any{"configJson": ""}}
		doc := &Document{Content: []*Node{n}}

		ctxs, err := ConfigContexts(doc)
		require.NoError(t, err)
		assert.Empty(t, ctxs)
	})

	t.Run("clean contexts are not re-serialized", func(t *testing.T) {
		original := `{"keep":  "spacing"}`
		n := &Node{Type: "Hero", Props: map[string]any{"configJson": original}}
		doc := &Document{Content: []*Node{n}}

		ctxs, err := ConfigContexts(doc)
		require.NoError(t, err)
		require.NoError(t, CommitConfigs(ctxs))

		assert.Equal(t, original, n.Props["configJson"], "untouched context must keep its exact bytes")
	})
}
