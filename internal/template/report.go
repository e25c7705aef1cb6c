package template

import "fmt"

// DroppedSection records one candidate child discarded during reconciliation.
type DroppedSection struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Report carries the reconciliation counters. It is threaded explicitly
// through every merge call; nothing in this package keeps ambient state.
// Counters are telemetry only, never control flow.
type Report struct {
	RestoredSections            int `json:"restoredSections"`
	DroppedExtraSections        int `json:"droppedExtraSections"`
	RestoredImageSlots          int `json:"restoredImageSlots"`
	UpgradedBaseSections        int `json:"upgradedBaseSections"`
	DroppedUpgradedBaseSections int `json:"droppedUpgradedBaseSections"`

	// Dropped records type+id of discarded candidate children, capped at
	// DroppedCap entries to keep diagnostics readable.
	Dropped    []DroppedSection `json:"dropped,omitempty"`
	DroppedCap int              `json:"-"`
}

const defaultDroppedCap = 20

func (r *Report) recordDropped(typ, id string) {
	cap := r.DroppedCap
	if cap == 0 {
		cap = defaultDroppedCap
	}
	if len(r.Dropped) < cap {
		r.Dropped = append(r.Dropped, DroppedSection{Type: typ, ID: id})
	}
}

func (r *Report) String() string {
	return fmt.Sprintf("restored=%d droppedExtra=%d restoredImageSlots=%d upgraded=%d droppedUpgraded=%d",
		r.RestoredSections, r.DroppedExtraSections, r.RestoredImageSlots,
		r.UpgradedBaseSections, r.DroppedUpgradedBaseSections)
}
