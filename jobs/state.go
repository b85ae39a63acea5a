// Package jobs tracks the lifecycle of background document ingestion.
package jobs

// State is the externally visible status of an ingestion job.
type State string

const (
	StatePending    State = "pending"
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"

	// StateNotFound is returned for unknown identifiers; it is never stored.
	StateNotFound State = "not_found"
)

// Terminal reports whether no further transitions can happen without a
// brand-new upload.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

type Event string

const (
	EventAccept   Event = "accept"
	EventStart    Event = "start"
	EventComplete Event = "complete"
	EventFail     Event = "fail"
)

// Next is the pure transition function: (current state, event) -> new
// state plus whether the event applies. EventAccept on a non-terminal job
// and EventStart on a processing job are the two suppressed duplicates.
func Next(current State, ev Event) (State, bool) {
	switch ev {
	case EventAccept:
		if current == StatePending || current == StateProcessing {
			return current, false
		}
		return StatePending, true
	case EventStart:
		if current == StateProcessing {
			return current, false
		}
		return StateProcessing, true
	case EventComplete:
		if current != StateProcessing {
			return current, false
		}
		return StateCompleted, true
	case EventFail:
		if current != StateProcessing {
			return current, false
		}
		return StateFailed, true
	default:
		return current, false
	}
}
