package session

// Phase is the capture state for the currently displayed question.
type Phase int

const (
	// PhaseIdle: no capture running; manual text entry is available.
	PhaseIdle Phase = iota
	// PhaseListening: a transcript stream is live and fragments are being
	// accumulated into the draft.
	PhaseListening
	// PhaseConfirming: the stream ended with a non-empty draft awaiting the
	// user's confirm or retry.
	PhaseConfirming
)

func (p Phase) String() string {
	switch p {
	case PhaseListening:
		return "listening"
	case PhaseConfirming:
		return "confirming"
	default:
		return "idle"
	}
}
