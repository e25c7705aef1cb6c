package images

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagecraft/internal/page"
)

func imageProps(prompt string) map[string]any {
	return map[string]any{
		"assetPublicId": "",
		"src":           "",
		"prompt":        prompt,
		"alt":           "alt text",
	}
}

func TestResolveFindsUnresolvedTargets(t *testing.T) {
	doc := &page.Document{
		Content: []*page.Node{
			{Type: "Image", Props: imageProps("infographic of shipping steps")},
			{Type: "Image", Props: map[string]any{
				"assetPublicId": "asset-123",
				"src":           "https://cdn.example.com/a.jpg",
				"prompt":        "already resolved",
				"alt":           "done",
			}},
			{Type: "Image", Props: map[string]any{
				"assetPublicId": "",
				"src":           "https://cdn.example.com/placeholder-hero.jpg",
				"prompt":        "woman drinking coffee in a kitchen",
				"alt":           "hero",
			}},
		},
		Zones: map[string][]*page.Node{
			"footer": {
				{Type: "Icon", Props: map[string]any{
					"iconAssetPublicId": "",
					"iconSrc":           "",
					"prompt":            "lifestyle photo of people in a park",
					"alt":               "social",
				}},
			},
		},
	}

	plans, err := Resolve(doc, nil, DefaultResolveConfig())
	require.NoError(t, err)
	require.Len(t, plans, 3)

	assert.Equal(t, "content[0].props", plans[0].Path)
	assert.Equal(t, KeyAsset, plans[0].AssetKey)
	assert.Equal(t, SourceGeneration, plans[0].RecommendedSource)

	// A placeholder src does not count as resolved.
	assert.Equal(t, "content[2].props", plans[1].Path)
	assert.Equal(t, SourceStock, plans[1].RecommendedSource)

	// Icon keys route to generation even for lifestyle prompts.
	assert.Equal(t, "zones.footer[0].props", plans[2].Path)
	assert.Equal(t, KeyIcon, plans[2].AssetKey)
	assert.Equal(t, SourceGeneration, plans[2].RecommendedSource)
	assert.False(t, plans[2].Explicit)
}

func TestResolveRespectsDeclaredSource(t *testing.T) {
	props := imageProps("icon of a rocket ship") // would route to generation
	props["source"] = "stock"
	doc := &page.Document{Content: []*page.Node{{Type: "Image", Props: props}}}

	plans, err := Resolve(doc, nil, DefaultResolveConfig())
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, SourceStock, plans[0].DeclaredSource)
	assert.Equal(t, SourceStock, plans[0].RecommendedSource)
	assert.True(t, plans[0].Explicit)
}

func TestResolveSkipsVideoAndTestimonials(t *testing.T) {
	doc := &page.Document{
		Content: []*page.Node{
			{Type: "Video", Props: map[string]any{
				"posterAssetPublicId": "",
				"posterSrc":           "",
				"prompt":              "poster frame",
				"alt":                 "poster",
			}},
			{Type: "TestimonialSlide", Props: imageProps("customer headshot")},
			{Type: "Section", Props: map[string]any{
				"content": []*page.Node{
					{Type: "Text", Props: map[string]any{
						"media": map[string]any{
							"isTestimonial": true,
							"assetPublicId": "",
							"src":           "",
							"prompt":        "customer photo",
							"alt":           "quote",
						},
					}},
					{Type: "Text", Props: map[string]any{
						"media": map[string]any{
							"type":   "video",
							"src":    "",
							"prompt": "clip",
							"alt":    "clip",
						},
					}},
				},
			}},
		},
	}

	plans, err := Resolve(doc, nil, DefaultResolveConfig())
	require.NoError(t, err)
	assert.Empty(t, plans)
}

func TestResolveWalksConfigSubDocuments(t *testing.T) {
	doc := &page.Document{
		Content: []*page.Node{
			{Type: "PurchaseOptions", Props: map[string]any{
				"checkoutConfig": `{"upsell":{"image":{"assetPublicId":"","src":"","prompt":"product shot of the bundle","alt":"bundle"}}}`,
			}},
		},
	}
	ctxs, err := page.ConfigContexts(doc)
	require.NoError(t, err)
	require.Len(t, ctxs, 1)

	plans, err := Resolve(doc, ctxs, DefaultResolveConfig())
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, "PurchaseOptions.checkoutConfig.upsell.image", plans[0].Path)
	assert.Equal(t, SourceGeneration, plans[0].RecommendedSource)
	assert.False(t, ctxs[0].Dirty())

	plans[0].Apply("asset-777")

	assert.True(t, ctxs[0].Dirty())
	require.NoError(t, page.CommitConfigs(ctxs))
	raw := page.PropString(doc.Content[0].Props, "checkoutConfig")
	assert.Contains(t, raw, `"assetPublicId":"asset-777"`)
}

func TestResolvePlansMapConfigTargetOnce(t *testing.T) {
	// A map-represented config sub-document is reachable both through the
	// node's props and through its ConfigContext; only the context walk may
	// plan it.
	doc := &page.Document{
		Content: []*page.Node{
			{Type: "PurchaseOptions", Props: map[string]any{
				"checkoutConfig": map[string]any{
					"upsell": map[string]any{
						"image": map[string]any{
							"assetPublicId": "",
							"src":           "",
							"prompt":        "product shot of the bundle",
							"alt":           "bundle",
						},
					},
				},
			}},
		},
	}
	ctxs, err := page.ConfigContexts(doc)
	require.NoError(t, err)
	require.Len(t, ctxs, 1)

	plans, err := Resolve(doc, ctxs, DefaultResolveConfig())
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, "PurchaseOptions.checkoutConfig.upsell.image", plans[0].Path)

	plans[0].Apply("asset-42")
	assert.True(t, ctxs[0].Dirty())
	require.NoError(t, page.CommitConfigs(ctxs))
	cfg, ok := doc.Content[0].Props["checkoutConfig"].(map[string]any)
	require.True(t, ok)
	img := cfg["upsell"].(map[string]any)["image"].(map[string]any)
	assert.Equal(t, "asset-42", img["assetPublicId"])
}

func TestResolveEnforcesPlanCap(t *testing.T) {
	var nodes []*page.Node
	for i := 0; i < 6; i++ {
		nodes = append(nodes, &page.Node{
			Type:  "Image",
			Props: imageProps(fmt.Sprintf("illustration number %d", i)),
		})
	}
	doc := &page.Document{Content: nodes}

	cfg := DefaultResolveConfig()
	cfg.MaxPlans = 4
	plans, err := Resolve(doc, nil, cfg)
	assert.Nil(t, plans)

	var capErr *CapError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, 6, capErr.Count)
	assert.Equal(t, 4, capErr.Cap)
	require.Len(t, capErr.SamplePaths, 5)
	assert.Equal(t, "content[0].props", capErr.SamplePaths[0])
}

func TestResolveTargetErrors(t *testing.T) {
	tests := []struct {
		name   string
		props  map[string]any
		detail string
	}{
		{
			name: "no prompt and no src",
			props: map[string]any{
				"assetPublicId": "", "src": "", "prompt": "", "alt": "x",
			},
			detail: "no prompt",
		},
		{
			name: "reference without prompt",
			props: map[string]any{
				"assetPublicId": "", "src": "",
				"prompt": "", "alt": "x",
				"referenceAssetPublicId": "ref-1",
			},
			detail: "requires a prompt",
		},
		{
			name: "stock with reference",
			props: map[string]any{
				"assetPublicId": "", "src": "",
				"prompt": "woman in a park", "alt": "x",
				"source":                 "stock",
				"referenceAssetPublicId": "ref-1",
			},
			detail: "incompatible",
		},
		{
			name: "stock icon",
			props: map[string]any{
				"iconAssetPublicId": "", "iconSrc": "",
				"prompt": "star icon", "alt": "x",
				"source": "stock",
			},
			detail: "route to generation",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := &page.Document{Content: []*page.Node{{Type: "Image", Props: tt.props}}}
			_, err := Resolve(doc, nil, DefaultResolveConfig())

			var targetErr *TargetError
			require.ErrorAs(t, err, &targetErr)
			assert.Equal(t, "content[0].props", targetErr.Path)
			assert.Contains(t, targetErr.Detail, tt.detail)
		})
	}
}
