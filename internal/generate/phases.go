package generate

// Phase names one model call in the bounded repair protocol. Every phase
// after the initial one targets exactly one defect class and runs at most
// once per attempt.
type Phase string

const (
	PhaseInitial            Phase = "initial"
	PhaseRepairInvalidJSON  Phase = "repair_invalid_json"
	PhaseRepairEmptyPage    Phase = "repair_empty_page"
	PhaseRepairHeaderFooter Phase = "repair_header_footer"
)

// maxModelCalls bounds the whole attempt: the initial call plus one call
// per repairable defect class.
const maxModelCalls = 4

// defect is a soft problem that earns one repair phase before it turns
// fatal.
type defect struct {
	phase  Phase
	detail string
}
