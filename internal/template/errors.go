package template

import (
	"fmt"
	"strings"
)

// ReconcileError is a fatal structural violation found during reconciliation.
type ReconcileError struct {
	Kind         Kind
	MissingTypes []string // required types absent after reconciliation
	PageMissing  bool     // the required page-root type is absent entirely
}

func (e *ReconcileError) Error() string {
	if e.PageMissing {
		root, _ := PageRootType(e.Kind)
		return fmt.Sprintf("template %s: generated document has no %s page root (non-repairable)", e.Kind, root)
	}
	return fmt.Sprintf("template %s: required component types missing after reconciliation: %s",
		e.Kind, strings.Join(e.MissingTypes, ", "))
}
