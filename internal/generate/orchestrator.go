// Package generate drives a full draft-generation attempt: prompt the
// model, coerce its output into a page document, reconcile it against the
// canonical template, resolve images, align checkout options and commit the
// result. Repair is bounded to a fixed set of named phases; components never
// retry on their own.
package generate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pagecraft/internal/checkout"
	"pagecraft/internal/extract"
	"pagecraft/internal/images"
	"pagecraft/internal/llm"
	"pagecraft/internal/logging"
	"pagecraft/internal/page"
	"pagecraft/internal/template"
)

// Request describes one generation attempt.
type Request struct {
	TemplateID string
	Brief      string

	// Base is the previously persisted document to reconcile against.
	// Nil uses the template's canonical document.
	Base *page.Document

	// Stream asks for fragment-level delivery when the client supports it,
	// surfacing assistant commentary through OnMessage as it arrives.
	Stream    bool
	OnMessage func(delta string)
}

// Result is a finalized draft plus its telemetry.
type Result struct {
	AttemptID     string
	Document      *page.Document
	Plans         []*images.Plan
	CreatedAssets map[string]string
	Aligned       bool
	Report        *template.Report
	Message       string
	Phases        []Phase
	AssignedIDs   int
	ModelCalls    int
}

// Attempt is the audit record of one generation attempt, successful or not.
type Attempt struct {
	ID         string
	TemplateID string
	Kind       template.Kind
	Phase      Phase
	ModelCalls int
	Outcome    string // "ok" or the fatal error class
	PromptHash string
	RawHash    string
	Report     *template.Report
	StartedAt  time.Time
	Duration   time.Duration
}

// Recorder receives the audit record of every finished attempt.
type Recorder interface {
	RecordAttempt(ctx context.Context, a *Attempt) error
}

// Options wires the optional collaborators of an Orchestrator.
type Options struct {
	Catalogs  checkout.CatalogSource
	Assets    images.AssetCreator
	Recorders []Recorder
	Images    images.ResolveConfig

	// DroppedCap overrides the per-report dropped-section recording cap.
	DroppedCap int
}

// Orchestrator owns the generate → repair → finalize state machine.
type Orchestrator struct {
	client    llm.Client
	templates template.Lookup
	opts      Options
	log       *zap.Logger
}

// New builds an orchestrator around a generation client and a template
// source.
func New(client llm.Client, templates template.Lookup, opts Options) *Orchestrator {
	if opts.Images.MaxPlans == 0 {
		opts.Images = images.DefaultResolveConfig()
	}
	return &Orchestrator{
		client:    client,
		templates: templates,
		opts:      opts,
		log:       logging.Get(logging.CategoryGenerate),
	}
}

// Generate runs one bounded attempt and returns either a finalized document
// or a single classified error carrying reproducible diagnostics.
func (o *Orchestrator) Generate(ctx context.Context, req Request) (*Result, error) {
	tmpl, err := o.templates.GetTemplate(req.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("template %q: %w", req.TemplateID, err)
	}

	var catalog *checkout.Catalog
	if o.opts.Catalogs != nil {
		catalog, err = o.opts.Catalogs.Snapshot(ctx)
		if err != nil {
			return nil, fmt.Errorf("catalog snapshot: %w", err)
		}
	}

	base := req.Base
	if base == nil {
		base = tmpl.Document
	}

	att := &Attempt{
		ID:         uuid.NewString(),
		TemplateID: req.TemplateID,
		Kind:       tmpl.Kind,
		Phase:      PhaseInitial,
		StartedAt:  time.Now(),
	}

	basePrompt := buildPrompt(tmpl, req.Brief, catalog)
	att.PromptHash = hashText(basePrompt)

	prompt := basePrompt
	phase := PhaseInitial
	used := map[Phase]bool{}
	var phases []Phase
	var message string

	for att.ModelCalls < maxModelCalls {
		att.ModelCalls++
		att.Phase = phase
		phases = append(phases, phase)
		o.log.Info("model call",
			zap.String("attempt", att.ID),
			zap.String("phase", string(phase)),
			zap.Int("call", att.ModelCalls))

		obj, raw, msg, callErr := o.callModel(ctx, phase, prompt, req)
		att.RawHash = hashText(raw)
		if msg != "" {
			message = msg
		}

		var d *defect
		switch {
		case callErr != nil:
			var exErr *extract.Error
			if !errors.As(callErr, &exErr) {
				o.record(ctx, att, "model_error")
				return nil, fmt.Errorf("model call failed: %w", callErr)
			}
			d = &defect{phase: PhaseRepairInvalidJSON, detail: exErr.Error()}
		default:
			report := &template.Report{DroppedCap: o.opts.DroppedCap}
			var result *Result
			result, d, err = o.assemble(ctx, obj, tmpl, base, catalog, report)
			if err != nil {
				return nil, o.fail(ctx, att, classify(err), report, err)
			}
			if result != nil {
				result.AttemptID = att.ID
				result.Phases = phases
				result.Message = message
				result.ModelCalls = att.ModelCalls
				att.Report = result.Report
				o.record(ctx, att, "ok")
				o.log.Info("attempt finished",
					zap.String("attempt", att.ID),
					zap.Int("calls", att.ModelCalls),
					zap.String("report", result.Report.String()))
				return result, nil
			}
		}

		if used[d.phase] || att.ModelCalls >= maxModelCalls {
			err := fmt.Errorf("%s persisted after repair: %s", d.phase, d.detail)
			return nil, o.fail(ctx, att, defectClass(d.phase), nil, err)
		}
		used[d.phase] = true
		phase = d.phase
		prompt = repairPrompt(basePrompt, *d)
		o.log.Warn("repair phase scheduled",
			zap.String("attempt", att.ID),
			zap.String("phase", string(d.phase)),
			zap.String("detail", d.detail))
	}

	// Unreachable: the loop always returns once the call budget is spent.
	return nil, o.fail(ctx, att, ClassMalformedOutput, nil, errors.New("model call budget exhausted"))
}

// callModel performs one model call in whichever mode the client supports:
// structured output on the initial phase, streaming when requested, plain
// blocking otherwise. The returned object is already extracted.
func (o *Orchestrator) callModel(ctx context.Context, phase Phase, prompt string, req Request) (obj map[string]any, raw, message string, err error) {
	if sc, ok := o.client.(llm.StructuredClient); ok && phase == PhaseInitial {
		obj, err = sc.GenerateStructured(ctx, prompt, draftSchema())
		return obj, "", "", err
	}

	if stream, ok := o.client.(llm.StreamingClient); ok && req.Stream {
		ex := NewMessageExtractor("message")
		raw, err = stream.GenerateStream(ctx, prompt, func(fragment string) error {
			if delta := ex.Feed(fragment); delta != "" && req.OnMessage != nil {
				req.OnMessage(delta)
			}
			return nil
		})
		if err != nil {
			return nil, raw, ex.Message(), err
		}
		obj, err = extract.Object(raw)
		return obj, raw, ex.Message(), err
	}

	raw, err = o.client.Generate(ctx, prompt)
	if err != nil {
		return nil, raw, "", err
	}
	obj, err = extract.Object(raw)
	return obj, raw, "", err
}

// draftSchema is the loose response schema handed to structured-output
// clients; the full shape contract lives in the prompt.
func draftSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"root":    map[string]any{"type": "object"},
			"content": map[string]any{"type": "array"},
			"zones":   map[string]any{"type": "object"},
		},
	}
}

// assemble turns one extracted object into a finalized result. It returns a
// defect for the soft problems that earn a repair phase, or an error for
// everything fatal.
func (o *Orchestrator) assemble(ctx context.Context, obj map[string]any, tmpl *template.Template, base *page.Document, catalog *checkout.Catalog, report *template.Report) (*Result, *defect, error) {
	doc, err := page.FromObject(obj)
	if err != nil {
		return nil, &defect{phase: PhaseRepairInvalidJSON, detail: err.Error()}, nil
	}

	allowed := template.AllowedTypes(tmpl.Kind)
	page.SanitizeDocument(doc, allowed)
	assigned := page.AssignIDs(doc)

	if len(doc.Content) == 0 {
		return nil, &defect{phase: PhaseRepairEmptyPage, detail: "content array is empty after sanitization"}, nil
	}

	upgraded := template.Upgrade(base.DeepCopy(), tmpl, report)
	if missing := missingChromeZones(doc, upgraded); missing != "" {
		return nil, &defect{phase: PhaseRepairHeaderFooter, detail: missing}, nil
	}

	merged, err := template.Overlay(doc, upgraded, tmpl, report)
	if err != nil {
		return nil, nil, err
	}

	ctxs, err := page.ConfigContexts(merged)
	if err != nil {
		return nil, nil, err
	}

	plans, err := images.Resolve(merged, ctxs, o.opts.Images)
	if err != nil {
		return nil, nil, err
	}

	aligned, err := o.alignCheckout(ctxs, catalog)
	if err != nil {
		return nil, nil, err
	}

	created, err := o.createAssets(ctx, plans)
	if err != nil {
		return nil, nil, err
	}

	if err := page.CommitConfigs(ctxs); err != nil {
		return nil, nil, err
	}

	return &Result{
		Document:      merged,
		Plans:         plans,
		CreatedAssets: created,
		Aligned:       aligned,
		Report:        report,
		AssignedIDs:   assigned,
	}, nil, nil
}

// missingChromeZones names the header/footer zones the template expects but
// the generated document left empty.
func missingChromeZones(doc, upgraded *page.Document) string {
	var missing []string
	for _, zone := range []string{"header", "footer"} {
		if len(upgraded.Zones[zone]) == 0 {
			continue
		}
		if len(doc.Zones[zone]) == 0 {
			missing = append(missing, zone)
		}
	}
	switch len(missing) {
	case 0:
		return ""
	case 1:
		return "missing " + missing[0] + " zone"
	default:
		return "missing header and footer zones"
	}
}

// alignCheckout aligns and validates every checkout config sub-document
// against the catalog. Without a catalog there is nothing to check.
func (o *Orchestrator) alignCheckout(ctxs []*page.ConfigContext, catalog *checkout.Catalog) (bool, error) {
	if catalog == nil {
		return false, nil
	}
	aligned := false
	for _, c := range ctxs {
		if c.Key() != "checkoutConfig" && c.Key() != "checkoutConfigJson" {
			continue
		}
		opts := checkout.OptionsFromValue(c.Value())
		if checkout.Align(opts, catalog) {
			opts.WriteValue(c.Value())
			c.MarkDirty()
			aligned = true
		}
		if err := checkout.Validate(opts, catalog); err != nil {
			return aligned, err
		}
	}
	return aligned, nil
}

// createAssets fulfills the generation-routed plans through the asset
// creator, writing the new public ids back into their targets.
func (o *Orchestrator) createAssets(ctx context.Context, plans []*images.Plan) (map[string]string, error) {
	if o.opts.Assets == nil || len(plans) == 0 {
		return nil, nil
	}
	created := map[string]string{}
	for _, p := range plans {
		if p.RecommendedSource != images.SourceGeneration {
			continue
		}
		publicID, err := o.opts.Assets.CreateImage(ctx, p.Prompt, p.AspectRatio, p.ReferenceID)
		if err != nil {
			return nil, fmt.Errorf("create image for %s: %w", p.Path, err)
		}
		p.Apply(publicID)
		created[p.Path] = publicID
	}
	return created, nil
}

// classify maps a component error onto the fatal taxonomy.
func classify(err error) Class {
	var capErr *images.CapError
	if errors.As(err, &capErr) {
		return ClassResourceCap
	}
	var valErr *checkout.ValidationError
	if errors.As(err, &valErr) {
		return ClassValidation
	}
	var exErr *extract.Error
	if errors.As(err, &exErr) {
		return ClassMalformedOutput
	}
	return ClassStructural
}

// defectClass is the fatal class a soft defect collapses into once its
// repair phase is spent.
func defectClass(p Phase) Class {
	if p == PhaseRepairInvalidJSON {
		return ClassMalformedOutput
	}
	return ClassStructural
}

func (o *Orchestrator) fail(ctx context.Context, att *Attempt, class Class, report *template.Report, err error) error {
	att.Report = report
	o.record(ctx, att, string(class))
	ferr := &Error{
		Class: class,
		Diag: Diagnostics{
			Model:        o.client.Model(),
			TemplateKind: att.Kind,
			Phase:        att.Phase,
			ModelCalls:   att.ModelCalls,
			PromptHash:   att.PromptHash,
			RawHash:      att.RawHash,
			Report:       report,
		},
		Err: err,
	}
	o.log.Error("attempt failed",
		zap.String("attempt", att.ID),
		zap.String("class", string(class)),
		zap.Error(err))
	return ferr
}

// record hands the attempt to every recorder, best effort.
func (o *Orchestrator) record(ctx context.Context, att *Attempt, outcome string) {
	att.Outcome = outcome
	att.Duration = time.Since(att.StartedAt)
	for _, r := range o.opts.Recorders {
		if err := r.RecordAttempt(ctx, att); err != nil {
			o.log.Warn("attempt record failed", zap.String("attempt", att.ID), zap.Error(err))
		}
	}
}
