package transcript

import (
	"context"
	"errors"
)

// ErrUnsupportedCapability is returned by Source.Start when the peer has no
// speech-to-text capability. It is permanent for the session: callers fall
// back to manual text entry instead of retrying.
var ErrUnsupportedCapability = errors.New("speech-to-text capability not available")

// Fragment is one unit of transcribed speech. Final fragments are committed
// text; non-final fragments are provisional and only used for live display.
type Fragment struct {
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

type EventKind int

const (
	// EventFragment carries a partial or final transcript fragment.
	EventFragment EventKind = iota
	// EventEnded signals the stream closed on its own (silence timeout,
	// explicit stop, peer hangup).
	EventEnded
	// EventError signals the stream failed. The stream is stopped; Err holds
	// the reason.
	EventError
)

// Event is one item of a transcript stream. Fragments are delivered in
// production order; a final fragment for a segment is never followed by
// another fragment for the same segment. EventEnded or EventError is always
// the last event on a stream.
type Event struct {
	Kind     EventKind
	Fragment Fragment
	Err      error
}

// Stream is a live sequence of transcript events.
type Stream interface {
	// Events yields the event sequence. The channel is closed after the
	// terminal EventEnded/EventError.
	Events() <-chan Event

	// Stop ends the stream. Always safe to call, including when the stream
	// already finished; repeated calls are no-ops.
	Stop()
}

// Source starts transcript streams for a capture attempt.
type Source interface {
	Start(ctx context.Context) (Stream, error)
}

// Unavailable is a Source for peers without speech capability; Start always
// fails with ErrUnsupportedCapability.
type Unavailable struct{}

func (Unavailable) Start(context.Context) (Stream, error) {
	return nil, ErrUnsupportedCapability
}
