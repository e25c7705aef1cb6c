package images

import (
	"context"
	"fmt"
	"strings"

	"pagecraft/internal/page"
)

// ResolveConfig bounds resolution and carries the router thresholds.
type ResolveConfig struct {
	// MaxPlans is the hard cap on unresolved targets per document.
	MaxPlans int
	Router   RouterConfig
}

// DefaultResolveConfig returns the tuned resolution settings.
func DefaultResolveConfig() ResolveConfig {
	return ResolveConfig{MaxPlans: 40, Router: DefaultRouterConfig()}
}

// AssetCreator creates one image asset per resolved plan. It is an external
// collaborator; the resolver never calls it.
type AssetCreator interface {
	CreateImage(ctx context.Context, prompt, aspectRatio, referenceID string) (publicID string, err error)
}

// keyOrder fixes detection order so a target holding several asset fields
// resolves deterministically.
var keyOrder = []AssetKey{KeyAsset, KeyIcon, KeyPoster, KeyThumb, KeySwatch}

// Resolve walks the document and every config sub-document for image-shaped
// objects and returns a Plan per unresolved target. Testimonial-flagged
// objects and video nodes are excluded: a separate renderer owns them.
// Exceeding cfg.MaxPlans refuses the whole document with a CapError.
func Resolve(doc *page.Document, ctxs []*page.ConfigContext, cfg ResolveConfig) ([]*Plan, error) {
	r := &resolver{cfg: cfg}

	for i, n := range doc.Content {
		if err := r.visitNode(fmt.Sprintf("content[%d]", i), n); err != nil {
			return nil, err
		}
	}
	for _, name := range doc.ZoneNames() {
		for i, n := range doc.Zones[name] {
			if err := r.visitNode(fmt.Sprintf("zones.%s[%d]", name, i), n); err != nil {
				return nil, err
			}
		}
	}
	for _, c := range ctxs {
		r.ctx = c
		if err := r.inspectValue(fmt.Sprintf("%s.%s", c.OwnerType(), c.Key()), c.Value()); err != nil {
			return nil, err
		}
		r.ctx = nil
	}

	if len(r.plans) > cfg.MaxPlans {
		sample := make([]string, 0, 5)
		for _, p := range r.plans {
			if len(sample) == 5 {
				break
			}
			sample = append(sample, p.Path)
		}
		return nil, &CapError{Count: len(r.plans), Cap: cfg.MaxPlans, SamplePaths: sample}
	}
	return r.plans, nil
}

type resolver struct {
	cfg   ResolveConfig
	plans []*Plan
	ctx   *page.ConfigContext // set while walking a config sub-document
}

func (r *resolver) visitNode(path string, n *page.Node) error {
	switch n.Type {
	case "Video":
		return nil
	case "TestimonialSlide":
		// Populated by the external testimonial renderer.
		return nil
	}

	// Config sub-document fields belong to the ConfigContext walk; planning
	// them here too would yield two plans for the same target.
	props := n.Props
	for key := range n.Props {
		if !page.IsConfigKey(key) {
			continue
		}
		props = make(map[string]any, len(n.Props))
		for k, v := range n.Props {
			if !page.IsConfigKey(k) {
				props[k] = v
			}
		}
		break
	}
	if err := r.inspectValue(path+".props", props); err != nil {
		return err
	}
	for _, slot := range n.Slots() {
		for i, child := range n.Children(slot) {
			childPath := fmt.Sprintf("%s.props.%s[%d]", path, slot, i)
			if err := r.visitNode(childPath, child); err != nil {
				return err
			}
		}
	}
	return nil
}

// inspectValue walks raw decoded values under path. Typed child nodes inside
// slot fields are opaque to page.WalkValues; visitNode owns those.
func (r *resolver) inspectValue(path string, v any) error {
	var werr error
	page.WalkValues(v, path, func(p string, m map[string]any) bool {
		if werr != nil {
			return false
		}
		if flagged, _ := page.PropBool(m, "isTestimonial"); flagged {
			return false
		}
		if flagged, _ := page.PropBool(m, "testimonial"); flagged {
			return false
		}
		if page.PropString(m, "type") == "video" {
			return false
		}
		key, shaped := imageShape(m)
		if !shaped {
			return true
		}
		if err := r.addTarget(p, m, key); err != nil {
			werr = err
		}
		return false
	})
	return werr
}

// imageShape reports whether the object looks like an image target and which
// asset key it fills: a known asset-id/src key pair present, a prompt+alt
// shape, or an explicit type=="image".
func imageShape(m map[string]any) (AssetKey, bool) {
	for _, key := range keyOrder {
		_, hasID := m[string(key)]
		_, hasSrc := m[assetKeyPairs[key]]
		if hasID || hasSrc {
			return key, true
		}
	}
	_, hasPrompt := m["prompt"]
	_, hasAlt := m["alt"]
	if hasPrompt && hasAlt {
		return KeyAsset, true
	}
	if page.PropString(m, "type") == "image" {
		return KeyAsset, true
	}
	return "", false
}

// addTarget validates one image-shaped object and, if it is unresolved,
// records a plan for it.
func (r *resolver) addTarget(path string, m map[string]any, key AssetKey) error {
	if page.PropString(m, string(key)) != "" {
		return nil // already resolved to an asset
	}
	src := page.PropString(m, assetKeyPairs[key])
	if src != "" && !isPlaceholderSrc(src) {
		return nil // usable source already present
	}

	prompt := strings.TrimSpace(page.PropString(m, "prompt"))
	reference := page.PropString(m, "referenceAssetPublicId")
	declared := Source(page.PropString(m, "source"))

	if prompt == "" {
		if reference != "" {
			return &TargetError{Path: path, Detail: "referenceAssetPublicId requires a prompt"}
		}
		return &TargetError{Path: path, Detail: "no prompt and no usable src"}
	}
	if declared == SourceStock && reference != "" {
		return &TargetError{Path: path, Detail: "stock source is incompatible with referenceAssetPublicId"}
	}
	if declared == SourceStock && key == KeyIcon {
		return &TargetError{Path: path, Detail: "icon targets always route to generation"}
	}

	plan := &Plan{
		Path:        path,
		AssetKey:    key,
		Prompt:      prompt,
		ReferenceID: reference,
		AspectRatio: page.PropString(m, "aspectRatio"),
		target:      m,
		configCtx:   r.ctx,
	}
	switch declared {
	case SourceGeneration, SourceStock:
		plan.DeclaredSource = declared
		plan.RecommendedSource = declared
		plan.Explicit = true
	default:
		plan.RecommendedSource = Route(prompt, key, reference != "", r.cfg.Router)
	}

	r.plans = append(r.plans, plan)
	return nil
}

func isPlaceholderSrc(src string) bool {
	return strings.Contains(strings.ToLower(src), "placeholder")
}
