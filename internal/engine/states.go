package engine

// State names one stage of the workflow state machine.
type State string

const (
	StateInit                  State = "init"
	StateAwaitingPhase1        State = "awaiting_phase_1"
	StateGeneratingPhase2      State = "generating_phase_2"
	StateAwaitingPhase2Answers State = "awaiting_phase_2_answers"
	StateGeneratingPhase3      State = "generating_phase_3"
	StateRefiningPhase3        State = "refining_phase_3"
	StateComplete              State = "complete"
	StateAborted               State = "aborted"
)

// Terminal reports whether no further forward transition exists. Complete is
// terminal for the forward path but still accepts the refinement cycle.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateAborted
}

var transitions = map[State][]State{
	StateInit:                  {StateAwaitingPhase1},
	StateAwaitingPhase1:        {StateGeneratingPhase2},
	StateGeneratingPhase2:      {StateAwaitingPhase2Answers, StateAborted},
	StateAwaitingPhase2Answers: {StateGeneratingPhase3},
	StateGeneratingPhase3:      {StateComplete, StateAborted},
	StateComplete:              {StateRefiningPhase3},
	StateRefiningPhase3:        {StateComplete, StateAborted},
}

// CanTransition reports whether s may move to next.
func (s State) CanTransition(next State) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Session state keys. Forward-phase keys are written exactly once;
// phase_3_system_design alone is overwritten during refinement.
const (
	KeyWorkflowState     = "workflow_state"
	KeyPhase1Inputs      = "phase_1_inputs"
	KeyPhase2Questions   = "phase_2_clarification_questions"
	KeyPhase2Answers     = "phase_2_answers"
	KeyPhase2CompletedAt = "phase_2_completed_at"
	KeyPhase3Design      = "phase_3_system_design"
	KeyPhase3CompletedAt = "phase_3_completed_at"
	KeyAbortReason       = "abort_reason"
)
