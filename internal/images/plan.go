// Package images finds unresolved image targets in a page document and
// decides, per target, whether the image should be generated or sourced from
// stock search. Routing is a pure function of the prompt text so identical
// prompts always route identically.
package images

import (
	"fmt"
	"strings"

	"pagecraft/internal/page"
)

// AssetKey identifies which asset-id field an image target fills.
type AssetKey string

const (
	KeyAsset  AssetKey = "assetPublicId"
	KeyIcon   AssetKey = "iconAssetPublicId"
	KeyPoster AssetKey = "posterAssetPublicId"
	KeyThumb  AssetKey = "thumbAssetPublicId"
	KeySwatch AssetKey = "swatchAssetPublicId"
)

// assetKeyPairs maps each asset-id field to its src counterpart.
var assetKeyPairs = map[AssetKey]string{
	KeyAsset:  "src",
	KeyIcon:   "iconSrc",
	KeyPoster: "posterSrc",
	KeyThumb:  "thumbSrc",
	KeySwatch: "swatchSrc",
}

// Source is where an image comes from.
type Source string

const (
	SourceGeneration Source = "generation"
	SourceStock      Source = "stock"
)

// Plan describes one image that must exist before the document is complete.
type Plan struct {
	Path              string   `json:"path"`
	AssetKey          AssetKey `json:"assetKey"`
	Prompt            string   `json:"prompt"`
	DeclaredSource    Source   `json:"declaredSource,omitempty"`
	ReferenceID       string   `json:"referenceId,omitempty"`
	AspectRatio       string   `json:"aspectRatio,omitempty"`
	RecommendedSource Source   `json:"recommendedSource"`
	Explicit          bool     `json:"explicit"`

	target    map[string]any
	configCtx *page.ConfigContext
}

// Apply writes a created asset id into the target object. Targets inside a
// config sub-document mark it dirty so the serialized form is rewritten on
// commit.
func (p *Plan) Apply(publicID string) {
	p.target[string(p.AssetKey)] = publicID
	if p.configCtx != nil {
		p.configCtx.MarkDirty()
	}
}

// CapError refuses the whole document when image fan-out exceeds the hard
// cap. Nothing is truncated and no assets are created.
type CapError struct {
	Count       int
	Cap         int
	SamplePaths []string
}

func (e *CapError) Error() string {
	return fmt.Sprintf("document requires %d images, cap is %d (e.g. %s)",
		e.Count, e.Cap, strings.Join(e.SamplePaths, ", "))
}

// TargetError is a fatal problem with one image target.
type TargetError struct {
	Path   string
	Detail string
}

func (e *TargetError) Error() string {
	return fmt.Sprintf("image target %s: %s", e.Path, e.Detail)
}
