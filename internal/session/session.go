package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/entrevo/interview-backend/internal/models"
	"github.com/entrevo/interview-backend/internal/transcript"
)

// Session is the answer capture controller for one open interview. The
// transcript stream, the timer ticks and user intents all arrive
// asynchronously; serializing them onto a single event loop goroutine means
// no two state transitions ever race.
//
// Loop-owned state (phase, draft, timers, current index) is only touched from
// run(); user intents are posted as closures onto the command channel.
type Session struct {
	ID uuid.UUID

	tracker *Tracker
	source  transcript.Source
	sink    Sink
	ticker  Ticker

	ctx      context.Context
	cancel   context.CancelFunc
	commands chan func()
	done     chan struct{}
	closing  sync.Once

	phase       Phase
	draft       DraftBuffer
	current     int
	answerSec   int
	sessionSec  int
	submitting  bool
	unavailable bool
	stream      transcript.Stream
}

// State is a point-in-time snapshot handed to a client when it attaches.
type State struct {
	Interview          *models.Interview `json:"interview"`
	Current            int               `json:"current"`
	Phase              string            `json:"phase"`
	Answers            map[int]string    `json:"answers"`
	AnswerSec          int               `json:"answer_elapsed"`
	SessionSec         int               `json:"session_elapsed"`
	Submitting         bool              `json:"submitting"`
	CaptureUnavailable bool              `json:"capture_unavailable"`
}

// New starts a session for an already-fetched interview. The ticker drives
// both elapsed counters; it is owned by the session and stopped on teardown.
func New(ctx context.Context, id uuid.UUID, tracker *Tracker, source transcript.Source, sink Sink, ticker Ticker) *Session {
	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		ID:       id,
		tracker:  tracker,
		source:   source,
		sink:     sink,
		ticker:   ticker,
		ctx:      ctx,
		cancel:   cancel,
		commands: make(chan func(), 32),
		done:     make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *Session) run() {
	defer close(s.done)
	defer s.teardown()

	for {
		var streamEvents <-chan transcript.Event
		if s.stream != nil {
			streamEvents = s.stream.Events()
		}

		select {
		case <-s.ctx.Done():
			return
		case fn := <-s.commands:
			fn()
		case <-s.ticker.C():
			s.tick()
		case ev, ok := <-streamEvents:
			if !ok {
				// Channel close without a terminal event still ends the
				// capture attempt.
				s.stream = nil
				s.streamClosed(nil)
				continue
			}
			s.handleStreamEvent(ev)
		}
	}
}

// teardown releases held resources on every exit path: the live transcript
// stream, if any, and the session ticker.
func (s *Session) teardown() {
	if s.stream != nil {
		s.stream.Stop()
		s.stream = nil
	}
	s.ticker.Stop()
	slog.Info("session closed", "session_id", s.ID, "interview_id", s.tracker.Interview().ID)
}

// Close tears the session down and waits for the loop to exit.
func (s *Session) Close() {
	s.closing.Do(func() { s.cancel() })
	<-s.done
}

// do posts an intent onto the event loop; dropped once the session is closed.
func (s *Session) do(fn func()) {
	select {
	case s.commands <- fn:
	case <-s.ctx.Done():
	}
}

// State returns a snapshot, serialized through the loop. After close it is
// assembled from the tracker directly.
func (s *Session) State() State {
	reply := make(chan State, 1)
	select {
	case s.commands <- func() { reply <- s.snapshot() }:
		// The command channel is buffered, so the send can succeed even when
		// the loop has already exited; never wait on a reply that will not
		// come.
		select {
		case st := <-reply:
			return st
		case <-s.done:
			select {
			case st := <-reply:
				return st
			default:
			}
			return s.closedState()
		}
	case <-s.ctx.Done():
		return s.closedState()
	}
}

func (s *Session) closedState() State {
	return State{
		Interview: s.tracker.Interview(),
		Answers:   s.tracker.Locals(),
		Phase:     PhaseIdle.String(),
	}
}

func (s *Session) snapshot() State {
	return State{
		Interview:          s.tracker.Interview(),
		Current:            s.current,
		Phase:              s.phase.String(),
		Answers:            s.tracker.Locals(),
		AnswerSec:          s.answerSec,
		SessionSec:         s.sessionSec,
		Submitting:         s.submitting,
		CaptureUnavailable: s.unavailable,
	}
}

// StartCapture begins a capture attempt for the current question.
func (s *Session) StartCapture() { s.do(s.startCapture) }

// StopCapture forces the live stream to stop; the resulting terminal event
// resolves the attempt to confirming or idle based on the draft content.
func (s *Session) StopCapture() { s.do(s.stopCapture) }

// Confirm accepts the reviewed draft as the current question's local answer.
func (s *Session) Confirm() { s.do(s.confirm) }

// Retry discards the reviewed draft.
func (s *Session) Retry() { s.do(s.retry) }

// Edit writes free text straight into the local answer map. Only honored
// while idle; editing is disabled during capture and review.
func (s *Session) Edit(text string) { s.do(func() { s.edit(text) }) }

// Navigate switches the current question. Never blocked by answer state; a
// capture in progress for the question being left is discarded.
func (s *Session) Navigate(index int) { s.do(func() { s.navigate(index) }) }

// Save persists the current question's local answer.
func (s *Session) Save() { s.do(s.save) }

// Complete transitions the interview to completed once every question holds
// an answer.
func (s *Session) Complete() { s.do(s.complete) }

func (s *Session) tick() {
	s.sessionSec++
	if s.phase == PhaseListening {
		s.answerSec++
	}
	s.sink.Timers(s.answerSec, s.sessionSec)
}

func (s *Session) startCapture() {
	if s.phase != PhaseIdle || s.submitting || s.unavailable {
		return
	}
	if s.tracker.Interview().Status != models.StatusInProgress {
		s.sink.Failed("capture", ErrNotInProgress)
		return
	}

	stream, err := s.source.Start(s.ctx)
	if err != nil {
		if errors.Is(err, transcript.ErrUnsupportedCapability) {
			s.unavailable = true
			s.sink.CaptureUnavailable()
			return
		}
		s.sink.Failed("capture", err)
		return
	}

	s.stream = stream
	s.draft.Reset()
	s.answerSec = 0
	s.setPhase(PhaseListening)
	s.sink.Timers(s.answerSec, s.sessionSec)
	s.sink.Hint("listening")
}

func (s *Session) stopCapture() {
	if s.phase == PhaseListening && s.stream != nil {
		s.stream.Stop()
	}
}

func (s *Session) handleStreamEvent(ev transcript.Event) {
	switch ev.Kind {
	case transcript.EventFragment:
		if s.phase != PhaseListening {
			return
		}
		s.draft.Append(ev.Fragment)
		if ev.Fragment.Final {
			s.sink.DraftUpdated(s.draft.Snapshot())
		} else {
			s.sink.Partial(s.draft.Partial())
		}
	case transcript.EventEnded:
		s.streamClosed(nil)
	case transcript.EventError:
		s.streamClosed(ev.Err)
	}
}

// streamClosed resolves the end of a capture attempt. An error is never
// fatal: with reviewable content it still moves to confirming, otherwise the
// phase resets to idle with a retry hint.
func (s *Session) streamClosed(cause error) {
	if s.stream != nil {
		s.stream.Stop()
		s.stream = nil
	}
	if s.phase != PhaseListening {
		return
	}
	if cause != nil {
		s.sink.StreamFailed(cause)
	}

	if snap := s.draft.Snapshot(); snap != "" {
		s.setPhase(PhaseConfirming)
		s.sink.DraftPending(snap)
		s.sink.Hint("review your answer, then confirm or retry")
		return
	}

	s.draft.Reset()
	s.setPhase(PhaseIdle)
	s.sink.Hint("nothing captured, tap the mic to try again")
}

func (s *Session) confirm() {
	if s.phase != PhaseConfirming {
		return
	}
	text := s.draft.Snapshot()
	s.tracker.SetLocal(s.current, text)
	s.draft.Reset()
	s.answerSec = 0
	s.setPhase(PhaseIdle)
	s.sink.AnswerChanged(s.current, text)
	s.sink.Hint("answer confirmed")
}

func (s *Session) retry() {
	if s.phase != PhaseConfirming {
		return
	}
	s.draft.Reset()
	s.answerSec = 0
	s.setPhase(PhaseIdle)
	s.sink.Hint("discarded, record again whenever you are ready")
}

func (s *Session) edit(text string) {
	if s.phase != PhaseIdle || s.submitting {
		return
	}
	if s.tracker.Interview().Status != models.StatusInProgress {
		return
	}
	s.tracker.SetLocal(s.current, text)
}

func (s *Session) navigate(index int) {
	if index < 0 || index >= s.tracker.Len() {
		s.sink.Failed("navigate", ErrQuestionOutOfRange)
		return
	}
	if index == s.current {
		return
	}

	// A half-finished capture never follows across questions; the last saved
	// or locally-typed answer of the question being left is untouched.
	if s.stream != nil {
		s.stream.Stop()
		s.stream = nil
	}
	s.draft.Reset()
	s.answerSec = 0
	if s.phase != PhaseIdle {
		s.setPhase(PhaseIdle)
	}

	s.current = index
	s.sink.QuestionChanged(index, s.tracker.Local(index))
}

func (s *Session) save() {
	if s.submitting {
		s.sink.Failed("save", ErrSubmitting)
		return
	}
	if s.tracker.Local(s.current) == "" {
		s.sink.Failed("save", ErrEmptyAnswer)
		return
	}

	s.submitting = true
	index := s.current
	go func() {
		resp, err := s.tracker.Save(s.ctx, index)
		s.do(func() {
			s.submitting = false
			if err != nil {
				s.sink.Failed("save", err)
				return
			}
			s.sink.Saved(index, resp)
			s.sink.InterviewUpdated(s.tracker.Interview())
		})
	}()
}

func (s *Session) complete() {
	if s.submitting {
		s.sink.Failed("complete", ErrSubmitting)
		return
	}
	if !s.tracker.AllAnswered() {
		s.sink.Failed("complete", ErrIncompleteAnswers)
		return
	}

	s.submitting = true
	go func() {
		err := s.tracker.Complete(s.ctx)
		s.do(func() {
			s.submitting = false
			if err != nil {
				s.sink.Failed("complete", err)
				return
			}
			s.sink.Completed(s.tracker.Interview())
			s.sink.InterviewUpdated(s.tracker.Interview())
		})
	}()
}

func (s *Session) setPhase(p Phase) {
	if s.phase == p {
		return
	}
	s.phase = p
	s.sink.PhaseChanged(p)
}
