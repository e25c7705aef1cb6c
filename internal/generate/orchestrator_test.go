package generate

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"pagecraft/internal/checkout"
	"pagecraft/internal/images"
	"pagecraft/internal/llm"
	"pagecraft/internal/page"
	"pagecraft/internal/template"
)

func TestMain(m *testing.M) {
	// go.opencensus.io starts a process-wide worker goroutine from package
	// init; it is not a leak from this package's tests.
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

type stubLookup struct {
	tmpl *template.Template
}

func (s stubLookup) GetTemplate(id string) (*template.Template, error) {
	if id != s.tmpl.ID {
		return nil, fmt.Errorf("no template %q", id)
	}
	return s.tmpl, nil
}

type stubCatalog struct {
	catalog *checkout.Catalog
}

func (s stubCatalog) Snapshot(ctx context.Context) (*checkout.Catalog, error) {
	return s.catalog, nil
}

type stubAssets struct {
	created []string
}

func (s *stubAssets) CreateImage(ctx context.Context, prompt, aspectRatio, referenceID string) (string, error) {
	s.created = append(s.created, prompt)
	return fmt.Sprintf("asset-%d", len(s.created)), nil
}

type memRecorder struct {
	attempts []*Attempt
}

func (r *memRecorder) RecordAttempt(ctx context.Context, a *Attempt) error {
	r.attempts = append(r.attempts, a)
	return nil
}

// salesTemplate is a minimal sales page: hero with one unresolved image
// placeholder, purchase options with a checkout config, header and footer.
func salesTemplate() *template.Template {
	return &template.Template{
		ID:   "tmpl-sales",
		Kind: template.KindSalesPDP,
		Document: &page.Document{
			Root: page.Root{Props: map[string]any{}},
			Content: []*page.Node{{
				Type: "SalesPage",
				Props: map[string]any{
					"id": "sp-1",
					"content": []*page.Node{
						{Type: "Hero", Props: map[string]any{
							"id": "hero-1",
							"content": []*page.Node{
								{Type: "Image", Props: map[string]any{
									"id":            "img-1",
									"assetPublicId": "",
									"src":           "",
									"prompt":        "illustration of the product in use",
									"alt":           "product",
								}},
							},
						}},
						{Type: "PurchaseOptions", Props: map[string]any{
							"id":             "po-1",
							"content":        []*page.Node{},
							"checkoutConfig": `{"sizes":[{"id":"old-size","label":"Old","priceAmount":1}]}`,
						}},
					},
				},
			}},
			Zones: map[string][]*page.Node{
				"header": {{Type: "Header", Props: map[string]any{"id": "hdr-1", "content": []*page.Node{}}}},
				"footer": {{Type: "Footer", Props: map[string]any{"id": "ftr-1", "content": []*page.Node{}}}},
			},
		},
	}
}

func salesCatalog() *checkout.Catalog {
	return &checkout.Catalog{Variants: []checkout.Variant{{
		Title:       "Small",
		PriceAmount: 29,
		OptionValues: checkout.OptionValues{
			Size: checkout.VariantOption{ID: "s1", Label: "Small"},
		},
	}}}
}

// goodDraft is a generated response the pipeline can finalize directly.
const goodDraft = `{
  "root": {"props": {}},
  "content": [{"type": "SalesPage", "props": {"content": [
    {"type": "Hero", "props": {"headline": "Buy the thing"}}
  ]}}],
  "zones": {
    "header": [{"type": "Header", "props": {}}],
    "footer": [{"type": "Footer", "props": {}}]
  }
}`

func newTestOrchestrator(client llm.Client, rec *memRecorder) *Orchestrator {
	opts := Options{
		Catalogs: stubCatalog{catalog: salesCatalog()},
		Assets:   &stubAssets{},
	}
	if rec != nil {
		opts.Recorders = []Recorder{rec}
	}
	return New(client, stubLookup{tmpl: salesTemplate()}, opts)
}

func TestGenerateBlockingHappyPath(t *testing.T) {
	client := &llm.Scripted{Queue: []llm.Response{{Text: "Here you go:\n```json\n" + goodDraft + "\n```"}}}
	rec := &memRecorder{}
	o := newTestOrchestrator(client, rec)

	res, err := o.Generate(context.Background(), Request{TemplateID: "tmpl-sales", Brief: "sell the thing"})
	require.NoError(t, err)

	assert.Equal(t, []Phase{PhaseInitial}, res.Phases)
	assert.Equal(t, 1, res.ModelCalls)

	// The template's placeholder image was planned and fulfilled.
	require.Len(t, res.Plans, 1)
	assert.Equal(t, images.SourceGeneration, res.Plans[0].RecommendedSource)
	require.Len(t, res.CreatedAssets, 1)

	// Checkout options were rewritten from the catalog.
	assert.True(t, res.Aligned)
	var po *page.Node
	res.Document.Walk(func(n *page.Node) bool {
		if n.Type == "PurchaseOptions" {
			po = n
		}
		return true
	})
	require.NotNil(t, po)
	assert.Contains(t, page.PropString(po.Props, "checkoutConfig"), `"id":"s1"`)

	// Hero survives with the generated headline merged onto the template id.
	var hero *page.Node
	res.Document.Walk(func(n *page.Node) bool {
		if n.Type == "Hero" {
			hero = n
		}
		return true
	})
	require.NotNil(t, hero)
	assert.Equal(t, "hero-1", hero.ID())
	assert.Equal(t, "Buy the thing", page.PropString(hero.Props, "headline"))

	require.Len(t, rec.attempts, 1)
	assert.Equal(t, "ok", rec.attempts[0].Outcome)
	assert.NotEmpty(t, rec.attempts[0].PromptHash)
}

func TestGenerateStructuredBypassesExtraction(t *testing.T) {
	obj := map[string]any{
		"root": map[string]any{"props": map[string]any{}},
		"content": []any{map[string]any{
			"type":  "SalesPage",
			"props": map[string]any{"content": []any{}},
		}},
		"zones": map[string]any{
			"header": []any{map[string]any{"type": "Header", "props": map[string]any{}}},
			"footer": []any{map[string]any{"type": "Footer", "props": map[string]any{}}},
		},
	}
	client := &llm.ScriptedStructured{Scripted: &llm.Scripted{Queue: []llm.Response{{Object: obj}}}}
	o := newTestOrchestrator(client, nil)

	res, err := o.Generate(context.Background(), Request{TemplateID: "tmpl-sales", Brief: "b"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.ModelCalls)
}

func TestGenerateStructuredDecodeFailureGetsRepair(t *testing.T) {
	// Structured output that fails to decode is malformed output, not a
	// transport failure; the repair call goes through the plain path.
	inner := &llm.Scripted{Queue: []llm.Response{
		{Text: "I could not produce the draft"},
		{Text: goodDraft},
	}}
	client := &llm.ScriptedStructured{Scripted: inner}
	rec := &memRecorder{}
	o := newTestOrchestrator(client, rec)

	res, err := o.Generate(context.Background(), Request{TemplateID: "tmpl-sales", Brief: "b"})
	require.NoError(t, err)

	assert.Equal(t, []Phase{PhaseInitial, PhaseRepairInvalidJSON}, res.Phases)
	assert.Equal(t, 2, res.ModelCalls)
	require.Len(t, inner.Prompts, 2)
	assert.Contains(t, inner.Prompts[1], "not a parseable JSON object")
	require.Len(t, rec.attempts, 1)
	assert.Equal(t, "ok", rec.attempts[0].Outcome)
}

func TestGenerateRepairsInvalidJSON(t *testing.T) {
	client := &llm.Scripted{Queue: []llm.Response{
		{Text: "sorry, I cannot produce that"},
		{Text: goodDraft},
	}}
	o := newTestOrchestrator(client, nil)

	res, err := o.Generate(context.Background(), Request{TemplateID: "tmpl-sales", Brief: "b"})
	require.NoError(t, err)

	assert.Equal(t, []Phase{PhaseInitial, PhaseRepairInvalidJSON}, res.Phases)
	require.Len(t, client.Prompts, 2)
	assert.Contains(t, client.Prompts[1], "not a parseable JSON object")
}

func TestGenerateInvalidJSONTurnsFatal(t *testing.T) {
	client := &llm.Scripted{Queue: []llm.Response{
		{Text: "still not json"},
		{Text: "and again not json"},
	}}
	rec := &memRecorder{}
	o := newTestOrchestrator(client, rec)

	_, err := o.Generate(context.Background(), Request{TemplateID: "tmpl-sales", Brief: "b"})

	var gerr *Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, ClassMalformedOutput, gerr.Class)
	assert.Equal(t, PhaseRepairInvalidJSON, gerr.Diag.Phase)
	assert.Equal(t, 2, gerr.Diag.ModelCalls)
	// Diagnostics carry hashes, never the raw output.
	assert.NotContains(t, gerr.Error(), "still not json")

	require.Len(t, rec.attempts, 1)
	assert.Equal(t, string(ClassMalformedOutput), rec.attempts[0].Outcome)
}

func TestGenerateRepairsEmptyPage(t *testing.T) {
	client := &llm.Scripted{Queue: []llm.Response{
		{Text: `{"root":{"props":{}},"content":[],"zones":{}}`},
		{Text: goodDraft},
	}}
	o := newTestOrchestrator(client, nil)

	res, err := o.Generate(context.Background(), Request{TemplateID: "tmpl-sales", Brief: "b"})
	require.NoError(t, err)
	assert.Equal(t, []Phase{PhaseInitial, PhaseRepairEmptyPage}, res.Phases)
	assert.Contains(t, client.Prompts[1], "no usable page content")
}

func TestGenerateRepairsMissingHeaderFooter(t *testing.T) {
	noChrome := `{"root":{"props":{}},"content":[{"type":"SalesPage","props":{"content":[]}}],"zones":{}}`
	client := &llm.Scripted{Queue: []llm.Response{
		{Text: noChrome},
		{Text: goodDraft},
	}}
	o := newTestOrchestrator(client, nil)

	res, err := o.Generate(context.Background(), Request{TemplateID: "tmpl-sales", Brief: "b"})
	require.NoError(t, err)
	assert.Equal(t, []Phase{PhaseInitial, PhaseRepairHeaderFooter}, res.Phases)
	assert.Contains(t, client.Prompts[1], "header/footer")
}

func TestGenerateOneRepairPerDefect(t *testing.T) {
	// The same defect twice in a row is fatal even with budget left.
	empty := `{"root":{"props":{}},"content":[],"zones":{}}`
	client := &llm.Scripted{Queue: []llm.Response{
		{Text: empty},
		{Text: empty},
		{Text: goodDraft},
	}}
	o := newTestOrchestrator(client, nil)

	_, err := o.Generate(context.Background(), Request{TemplateID: "tmpl-sales", Brief: "b"})

	var gerr *Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, ClassStructural, gerr.Class)
	assert.Len(t, client.Prompts, 2)
}

func TestGenerateMissingPageRootIsFatal(t *testing.T) {
	noRoot := `{"root":{"props":{}},"content":[{"type":"Section","props":{"content":[]}}],"zones":{"header":[{"type":"Header","props":{}}],"footer":[{"type":"Footer","props":{}}]}}`
	client := &llm.Scripted{Queue: []llm.Response{{Text: noRoot}}}
	o := newTestOrchestrator(client, nil)

	_, err := o.Generate(context.Background(), Request{TemplateID: "tmpl-sales", Brief: "b"})

	var gerr *Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, ClassStructural, gerr.Class)

	var rerr *template.ReconcileError
	assert.ErrorAs(t, err, &rerr)
	// No second model call: page-root absence is not repairable.
	assert.Len(t, client.Prompts, 1)
}

func TestGenerateImageCapIsFatal(t *testing.T) {
	client := &llm.Scripted{Queue: []llm.Response{{Text: goodDraft}}}
	o := New(client, stubLookup{tmpl: salesTemplate()}, Options{
		Catalogs: stubCatalog{catalog: salesCatalog()},
		Images:   images.ResolveConfig{MaxPlans: 0, Router: images.DefaultRouterConfig()},
	})
	o.opts.Images.MaxPlans = -1 // below any plan count

	_, err := o.Generate(context.Background(), Request{TemplateID: "tmpl-sales", Brief: "b"})

	var gerr *Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, ClassResourceCap, gerr.Class)
}

func TestGenerateCheckoutViolationIsFatal(t *testing.T) {
	client := &llm.Scripted{Queue: []llm.Response{{Text: goodDraft}}}
	o := New(client, stubLookup{tmpl: salesTemplate()}, Options{
		Catalogs: stubCatalog{catalog: &checkout.Catalog{}},
		Assets:   &stubAssets{},
	})

	_, err := o.Generate(context.Background(), Request{TemplateID: "tmpl-sales", Brief: "b"})

	var gerr *Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, ClassValidation, gerr.Class)

	var verr *checkout.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Violations, "catalog has no variants")
}

func TestGenerateStreamSurfacesMessage(t *testing.T) {
	draft := `{"message":"Drafting your sales page now.",` + strings.TrimPrefix(goodDraft, "{")
	client := &llm.Scripted{
		Queue:        []llm.Response{{Text: draft}},
		FragmentSize: 7,
	}
	o := newTestOrchestrator(client, nil)

	var streamed strings.Builder
	res, err := o.Generate(context.Background(), Request{
		TemplateID: "tmpl-sales",
		Brief:      "b",
		Stream:     true,
		OnMessage:  func(delta string) { streamed.WriteString(delta) },
	})
	require.NoError(t, err)
	assert.Equal(t, "Drafting your sales page now.", streamed.String())
	assert.Equal(t, "Drafting your sales page now.", res.Message)
	assert.NotNil(t, res.Document)
}

func TestGeneratePromptCarriesCatalogAndVocabulary(t *testing.T) {
	client := &llm.Scripted{Queue: []llm.Response{{Text: goodDraft}}}
	o := newTestOrchestrator(client, nil)

	_, err := o.Generate(context.Background(), Request{TemplateID: "tmpl-sales", Brief: "sell the thing"})
	require.NoError(t, err)

	prompt := client.Prompts[0]
	assert.Contains(t, prompt, "sales-pdp")
	assert.Contains(t, prompt, "sell the thing")
	assert.Contains(t, prompt, "PurchaseOptions")
	assert.Contains(t, prompt, `"s1"`)
}
