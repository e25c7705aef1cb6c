package generate

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"pagecraft/internal/template"
)

// Class buckets fatal generation errors by what went wrong.
type Class string

const (
	// ClassMalformedOutput marks text that never became an object, even
	// after the repair phase.
	ClassMalformedOutput Class = "malformed_output"
	// ClassStructural marks hard structural violations: missing page root,
	// missing required types, bad config sub-documents, bad image targets.
	ClassStructural Class = "structural_violation"
	// ClassResourceCap marks image fan-out beyond the hard cap.
	ClassResourceCap Class = "resource_cap"
	// ClassValidation marks checkout id or combination mismatches.
	ClassValidation Class = "domain_validation"
)

// Diagnostics is everything needed to reproduce a failed attempt without
// shipping the raw model output.
type Diagnostics struct {
	Model        string
	TemplateKind template.Kind
	Phase        Phase
	ModelCalls   int
	PromptHash   string
	RawHash      string
	Report       *template.Report
}

// Error is the single fatal error surfaced to callers.
type Error struct {
	Class Class
	Diag  Diagnostics
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("generation failed (%s, phase %s, model %s, prompt %s, raw %s): %v",
		e.Class, e.Diag.Phase, e.Diag.Model, e.Diag.PromptHash, e.Diag.RawHash, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// hashText returns a short stable fingerprint for prompts and raw output.
func hashText(s string) string {
	if s == "" {
		return "-"
	}
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:6])
}
