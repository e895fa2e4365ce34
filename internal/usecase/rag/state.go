package rag

// State is a step of one question/answer cycle.
type State string

const (
	StateIdle       State = "idle"
	StateRetrieving State = "retrieving"
	StateGenerating State = "generating"
	StateDone       State = "done"
	StateFailed     State = "failed"
	// StateRejected is terminal for input refused before retrieval starts.
	StateRejected State = "rejected"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed || s == StateRejected
}
