package template

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagecraft/internal/page"
)

func writeTemplate(t *testing.T, dir, id, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, id+".json"), []byte(body), 0o644))
}

const salesTemplateJSON = `{
	"kind": "sales-pdp",
	"document": {
		"root": {"props": {"title": "Canonical"}},
		"content": [
			{"type": "SalesPage", "props": {"content": [
				{"type": "Hero", "props": {}},
				{"type": "Bogus", "props": {}}
			]}}
		],
		"zones": {}
	}
}`

func TestRegistryLoad(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "sales-basic", salesTemplateJSON)

	reg, err := NewRegistry(dir)
	require.NoError(t, err)
	defer reg.Close()

	tmpl, err := reg.GetTemplate("sales-basic")
	require.NoError(t, err)
	assert.Equal(t, "sales-basic", tmpl.ID)
	assert.Equal(t, KindSalesPDP, tmpl.Kind)

	// Canonical document is sanitized and id-assigned on load.
	counts := tmpl.Document.TypeCounts()
	assert.Equal(t, 1, counts["SalesPage"])
	assert.Equal(t, 1, counts["Hero"])
	assert.Zero(t, counts["Bogus"], "disallowed type dropped from canonical document")
	tmpl.Document.Walk(func(n *page.Node) bool {
		assert.NotEmpty(t, n.ID())
		return true
	})

	// Second lookup hits the cache.
	again, err := reg.GetTemplate("sales-basic")
	require.NoError(t, err)
	assert.Same(t, tmpl, again)
}

func TestRegistryErrors(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "bad-kind", `{"kind": "mystery", "document": {"content": []}}`)
	writeTemplate(t, dir, "no-doc", `{"kind": "none"}`)

	reg, err := NewRegistry(dir)
	require.NoError(t, err)
	defer reg.Close()

	_, err = reg.GetTemplate("bad-kind")
	assert.ErrorContains(t, err, "unknown kind")

	_, err = reg.GetTemplate("no-doc")
	assert.ErrorContains(t, err, "no document")

	_, err = reg.GetTemplate("absent")
	assert.Error(t, err)
}

func TestRegistryHotReload(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "sales-basic", salesTemplateJSON)

	reg, err := NewRegistry(dir)
	require.NoError(t, err)
	defer reg.Close()

	first, err := reg.GetTemplate("sales-basic")
	require.NoError(t, err)

	writeTemplate(t, dir, "sales-basic", salesTemplateJSON)

	assert.Eventually(t, func() bool {
		cur, err := reg.GetTemplate("sales-basic")
		return err == nil && cur != first
	}, 2*time.Second, 20*time.Millisecond, "edited template should be reloaded")
}
