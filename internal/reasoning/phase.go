package reasoning

// Phase is the position of a single response in the reasoning/answer
// timeline. It only ever moves forward.
type Phase int

const (
	// PhaseNotStarted means no reasoning fragment has been seen yet.
	PhaseNotStarted Phase = iota
	// PhaseThinking means the opening marker was emitted and reasoning is streaming.
	PhaseThinking
	// PhaseAnswered means the closing marker was emitted.
	PhaseAnswered
)

func (p Phase) String() string {
	switch p {
	case PhaseNotStarted:
		return "not_started"
	case PhaseThinking:
		return "thinking"
	case PhaseAnswered:
		return "answered"
	default:
		return "unknown"
	}
}
