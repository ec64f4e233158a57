package latency

// State is a snapshot classification of where a revision stands at the end of
// its recorded history. It is informational; latencies are not derived from it.
type State int

const (
	StateNoCreation State = iota
	StateAwaitingReview
	StateExcluded
	StateReviewed
	// StateMalformed marks a revision whose history could not be replayed
	StateMalformed
)

func (s State) String() string {
	switch s {
	case StateNoCreation:
		return "NoCreation"
	case StateAwaitingReview:
		return "AwaitingReview"
	case StateExcluded:
		return "Excluded"
	case StateReviewed:
		return "Reviewed"
	case StateMalformed:
		return "Malformed"
	default:
		return "Unknown"
	}
}

// MarshalText renders the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// State replays the timeline's events in recorded order.
//
// Only an AwaitingReview revision moves to Reviewed on a review; a review while
// Excluded leaves it Excluded. Exclusion can be entered from any created state
// and an exclusion end returns an Excluded revision to AwaitingReview.
func (tl Timeline) State() State {
	state := StateNoCreation
	for _, s := range tl.steps {
		switch s.kind {
		case stepCreate:
			if state == StateNoCreation {
				state = StateAwaitingReview
			}
		case stepReview:
			if state == StateAwaitingReview {
				state = StateReviewed
			}
		case stepExclusionStart:
			if state != StateNoCreation {
				state = StateExcluded
			}
		case stepExclusionEnd:
			if state == StateExcluded {
				state = StateAwaitingReview
			}
		}
	}
	return state
}
