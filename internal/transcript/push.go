package transcript

import (
	"context"
	"sync"
)

// PushStream is a Stream fed by an external producer, typically a websocket
// reader relaying fragments recognized on the client. Push, End and Fail are
// safe to call from any goroutine and become no-ops once the stream is done.
type PushStream struct {
	mu     sync.Mutex
	events chan Event
	done   bool
}

func NewPushStream(buffer int) *PushStream {
	if buffer <= 0 {
		buffer = 16
	}
	// One slot beyond the fragment budget, reserved for the terminal event.
	return &PushStream{events: make(chan Event, buffer+1)}
}

func (p *PushStream) Events() <-chan Event { return p.events }

// Push delivers a fragment. Dropped if the stream already ended or the
// consumer has fallen behind; blocking here would stall the socket reader
// while holding the stream lock. Fragments never occupy the reserved
// terminal slot.
func (p *PushStream) Push(f Fragment) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done || len(p.events) >= cap(p.events)-1 {
		return
	}
	p.events <- Event{Kind: EventFragment, Fragment: f}
}

// End terminates the stream normally.
func (p *PushStream) End() {
	p.finish(Event{Kind: EventEnded})
}

// Fail terminates the stream with an error.
func (p *PushStream) Fail(err error) {
	p.finish(Event{Kind: EventError, Err: err})
}

// Stop implements Stream. Equivalent to End; idempotent.
func (p *PushStream) Stop() { p.End() }

func (p *PushStream) finish(terminal Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return
	}
	p.done = true
	// The reserved slot guarantees this send never blocks, so the terminal
	// event (and its failure reason) always reaches the consumer.
	p.events <- terminal
	close(p.events)
}

// PushSource hands out PushStreams one capture attempt at a time and keeps a
// handle to the active one so the transport can feed it.
type PushSource struct {
	mu      sync.Mutex
	current *PushStream
	buffer  int
}

func NewPushSource(buffer int) *PushSource {
	return &PushSource{buffer: buffer}
}

func (s *PushSource) Start(ctx context.Context) (Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.current.End()
	}
	s.current = NewPushStream(s.buffer)
	return s.current, nil
}

// Current returns the active stream, or nil when no capture is running.
func (s *PushSource) Current() *PushStream {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}
