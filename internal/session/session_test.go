package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrevo/interview-backend/internal/transcript"
)

const (
	waitFor  = 2 * time.Second
	pollTick = 2 * time.Millisecond
)

type testEnv struct {
	s      *Session
	dir    *fakeDirectory
	resp   *fakeResponder
	sink   *recordingSink
	ticker *fakeTicker
	src    *transcript.PushSource
}

func newTestEnv(t *testing.T, questions ...string) *testEnv {
	t.Helper()
	dir := newFakeDirectory(questions...)
	resp := &fakeResponder{dir: dir}
	return newTestEnvWith(t, dir, resp)
}

func newTestEnvWith(t *testing.T, dir *fakeDirectory, resp *fakeResponder) *testEnv {
	t.Helper()
	sink := newRecordingSink()
	ticker := newFakeTicker()
	src := transcript.NewPushSource(8)

	iv, err := dir.Get(context.Background(), dir.iv.ID)
	require.NoError(t, err)

	s := New(context.Background(), uuid.New(), NewTracker(dir, resp, iv), src, sink, ticker)
	t.Cleanup(s.Close)

	return &testEnv{s: s, dir: dir, resp: resp, sink: sink, ticker: ticker, src: src}
}

func (e *testEnv) phase(t *testing.T) string {
	t.Helper()
	return e.s.State().Phase
}

func (e *testEnv) waitPhase(t *testing.T, want string) {
	t.Helper()
	require.Eventually(t, func() bool { return e.phase(t) == want }, waitFor, pollTick,
		"phase never reached %q", want)
}

// startListening starts a capture and returns the live push stream.
func (e *testEnv) startListening(t *testing.T) *transcript.PushStream {
	t.Helper()
	e.s.StartCapture()
	e.waitPhase(t, "listening")
	stream := e.src.Current()
	require.NotNil(t, stream)
	return stream
}

func TestSession_CaptureConfirmFlow(t *testing.T) {
	env := newTestEnv(t, "tell me about yourself", "why this role")

	stream := env.startListening(t)
	stream.Push(transcript.Fragment{Text: "hel", Final: false})
	stream.Push(transcript.Fragment{Text: "hello ", Final: true})
	stream.Push(transcript.Fragment{Text: "world", Final: true})
	stream.End()

	env.waitPhase(t, "confirming")
	require.Equal(t, []string{"hello world"}, env.sink.pendingDrafts())

	env.s.Confirm()
	env.waitPhase(t, "idle")

	state := env.s.State()
	assert.Equal(t, "hello world", state.Answers[0])
	assert.Equal(t, 0, state.AnswerSec, "confirm resets the answer timer")
	assert.Zero(t, env.resp.submitCalls(), "confirm alone never hits persistence")
}

func TestSession_RetryDiscardsDraft(t *testing.T) {
	env := newTestEnv(t, "q1")

	stream := env.startListening(t)
	stream.Push(transcript.Fragment{Text: "scratch that", Final: true})
	stream.End()
	env.waitPhase(t, "confirming")

	env.s.Retry()
	env.waitPhase(t, "idle")

	state := env.s.State()
	assert.Empty(t, state.Answers, "retry leaves the local answer map unchanged")
	assert.Equal(t, 0, state.AnswerSec)
}

func TestSession_StreamErrorWithoutContentReturnsIdle(t *testing.T) {
	env := newTestEnv(t, "q1")

	stream := env.startListening(t)
	stream.Fail(errors.New("microphone permission revoked"))

	env.waitPhase(t, "idle")
	require.Eventually(t, func() bool { return len(env.sink.streamFailures()) == 1 }, waitFor, pollTick)

	state := env.s.State()
	assert.Empty(t, state.Answers)
	assert.Zero(t, env.resp.submitCalls(), "no network call on a failed empty capture")
	assert.Empty(t, env.sink.pendingDrafts(), "no confirming phase without content")
}

func TestSession_StreamErrorWithContentStillConfirms(t *testing.T) {
	env := newTestEnv(t, "q1")

	stream := env.startListening(t)
	stream.Push(transcript.Fragment{Text: "partial but committed", Final: true})
	stream.Fail(errors.New("network blip"))

	env.waitPhase(t, "confirming")
	assert.Equal(t, []string{"partial but committed"}, env.sink.pendingDrafts())
	assert.Len(t, env.sink.streamFailures(), 1, "the failure reason is still surfaced")
}

func TestSession_UnsupportedCapabilityFallsBackToManual(t *testing.T) {
	dir := newFakeDirectory("q1")
	resp := &fakeResponder{dir: dir}
	sink := newRecordingSink()
	ticker := newFakeTicker()

	iv, err := dir.Get(context.Background(), dir.iv.ID)
	require.NoError(t, err)

	s := New(context.Background(), uuid.New(), NewTracker(dir, resp, iv), transcript.Unavailable{}, sink, ticker)
	t.Cleanup(s.Close)

	s.StartCapture()
	require.Eventually(t, func() bool { return sink.unavailableCount() == 1 }, waitFor, pollTick)
	assert.Equal(t, "idle", s.State().Phase)
	assert.True(t, s.State().CaptureUnavailable)

	// Permanent for the session: further attempts are swallowed, not retried.
	s.StartCapture()
	s.Edit("typed by hand instead")
	assert.Equal(t, "typed by hand instead", s.State().Answers[0])
	assert.Equal(t, 1, sink.unavailableCount())
}

func TestSession_TimerSemantics(t *testing.T) {
	env := newTestEnv(t, "q1")

	// Session clock runs from open; answer clock only while listening.
	env.ticker.tick()
	require.Eventually(t, func() bool {
		st := env.s.State()
		return st.SessionSec == 1 && st.AnswerSec == 0
	}, waitFor, pollTick)

	stream := env.startListening(t)
	env.ticker.tick()
	env.ticker.tick()
	require.Eventually(t, func() bool {
		st := env.s.State()
		return st.SessionSec == 3 && st.AnswerSec == 2
	}, waitFor, pollTick)

	// Stream end pauses the answer clock but never the session clock.
	stream.Push(transcript.Fragment{Text: "an answer", Final: true})
	stream.End()
	env.waitPhase(t, "confirming")

	env.ticker.tick()
	require.Eventually(t, func() bool {
		st := env.s.State()
		return st.SessionSec == 4 && st.AnswerSec == 2
	}, waitFor, pollTick)

	// Re-entering listening resets the answer clock to zero.
	env.s.Retry()
	env.waitPhase(t, "idle")
	env.startListening(t)
	st := env.s.State()
	assert.Equal(t, 0, st.AnswerSec)
	assert.Equal(t, 4, st.SessionSec, "session clock is never reset")
}

func TestSession_NavigateMidListeningDiscardsCapture(t *testing.T) {
	env := newTestEnv(t, "q1", "q2")

	// Confirmed answer for question 0.
	stream := env.startListening(t)
	stream.Push(transcript.Fragment{Text: "kept answer", Final: true})
	stream.End()
	env.waitPhase(t, "confirming")
	env.s.Confirm()
	env.waitPhase(t, "idle")

	// New capture, abandoned by navigating away with no stop issued.
	stream = env.startListening(t)
	stream.Push(transcript.Fragment{Text: "half finished thought", Final: true})

	env.s.Navigate(1)
	require.Eventually(t, func() bool { return env.s.State().Current == 1 }, waitFor, pollTick)

	state := env.s.State()
	assert.Equal(t, "idle", state.Phase)
	assert.Equal(t, "kept answer", state.Answers[0], "the confirmed answer survives navigation")
	assert.NotContains(t, state.Answers, 1, "the abandoned draft is not carried to the next question")
}

func TestSession_EditDisabledOutsideIdle(t *testing.T) {
	env := newTestEnv(t, "q1")

	stream := env.startListening(t)
	env.s.Edit("typed during capture")
	assert.Empty(t, env.s.State().Answers)

	stream.Push(transcript.Fragment{Text: "dictated", Final: true})
	stream.End()
	env.waitPhase(t, "confirming")
	env.s.Edit("typed during review")
	assert.Empty(t, env.s.State().Answers)

	env.s.Confirm()
	env.waitPhase(t, "idle")
	env.s.Edit("typed while idle")
	assert.Equal(t, "typed while idle", env.s.State().Answers[0])
}

func TestSession_SaveEmptyAnswerFails(t *testing.T) {
	env := newTestEnv(t, "q1")

	env.s.Save()
	require.Eventually(t, func() bool { return len(env.sink.failuresFor("save")) == 1 }, waitFor, pollTick)
	assert.ErrorIs(t, env.sink.failuresFor("save")[0], ErrEmptyAnswer)
	assert.Zero(t, env.resp.submitCalls(), "local validation issues zero persistence calls")
}

func TestSession_SaveGuardRejectsConcurrentSubmit(t *testing.T) {
	dir := newFakeDirectory("q1")
	gate := make(chan struct{})
	resp := &fakeResponder{dir: dir, gate: gate}
	env := newTestEnvWith(t, dir, resp)

	env.s.Edit("an answer")
	env.s.Save()
	require.Eventually(t, func() bool { return env.s.State().Submitting }, waitFor, pollTick)

	env.s.Save()
	require.Eventually(t, func() bool { return len(env.sink.failuresFor("save")) == 1 }, waitFor, pollTick)
	assert.ErrorIs(t, env.sink.failuresFor("save")[0], ErrSubmitting)

	close(gate)
	require.Eventually(t, func() bool { return env.sink.savedCount() == 1 }, waitFor, pollTick)
	assert.False(t, env.s.State().Submitting, "guard released after the in-flight save resolves")
}

func TestSession_SaveFailureLeavesStateRecoverable(t *testing.T) {
	dir := newFakeDirectory("q1")
	resp := &fakeResponder{dir: dir, submitErr: errors.New("persistence down")}
	env := newTestEnvWith(t, dir, resp)

	env.s.Edit("an answer")
	env.s.Save()
	require.Eventually(t, func() bool { return len(env.sink.failuresFor("save")) == 1 }, waitFor, pollTick)

	state := env.s.State()
	assert.Equal(t, "an answer", state.Answers[0], "local answer kept for retry")
	assert.False(t, state.Submitting)

	// Same action succeeds once the backend recovers.
	resp.mu.Lock()
	resp.submitErr = nil
	resp.mu.Unlock()
	env.s.Save()
	require.Eventually(t, func() bool { return env.sink.savedCount() == 1 }, waitFor, pollTick)
}

func TestSession_StateAfterCloseDoesNotBlock(t *testing.T) {
	env := newTestEnv(t, "q1")
	env.s.Edit("typed while open")
	require.Eventually(t, func() bool {
		return env.s.State().Answers[0] == "typed while open"
	}, waitFor, pollTick)

	env.s.Close()

	// The command buffer keeps accepting sends after the loop exits; every
	// call must still return, far past the buffer size.
	got := make(chan State, 1)
	go func() {
		var st State
		for i := 0; i < 200; i++ {
			st = env.s.State()
		}
		got <- st
	}()

	select {
	case st := <-got:
		assert.Equal(t, "idle", st.Phase)
		assert.Equal(t, "typed while open", st.Answers[0])
	case <-time.After(waitFor):
		t.Fatal("State blocked after Close")
	}
}

// Mirrors the two-question walkthrough: dictate q1, type q2, save both,
// complete.
func TestSession_CompleteGatedUntilAllAnswered(t *testing.T) {
	env := newTestEnv(t, "q1", "q2")

	stream := env.startListening(t)
	stream.Push(transcript.Fragment{Text: "hello world", Final: true})
	stream.End()
	env.waitPhase(t, "confirming")
	env.s.Confirm()
	env.waitPhase(t, "idle")
	assert.Equal(t, map[int]string{0: "hello world"}, env.s.State().Answers)

	env.s.Complete()
	require.Eventually(t, func() bool { return len(env.sink.failuresFor("complete")) == 1 }, waitFor, pollTick)
	assert.ErrorIs(t, env.sink.failuresFor("complete")[0], ErrIncompleteAnswers)

	env.s.Save()
	require.Eventually(t, func() bool { return env.sink.savedCount() == 1 }, waitFor, pollTick)

	env.s.Navigate(1)
	require.Eventually(t, func() bool { return env.s.State().Current == 1 }, waitFor, pollTick)
	env.s.Edit("done")
	env.s.Save()
	require.Eventually(t, func() bool { return env.sink.savedCount() == 2 }, waitFor, pollTick)

	env.s.Complete()
	require.Eventually(t, func() bool { return env.sink.completedCount() == 1 }, waitFor, pollTick)
	assert.Equal(t, "completed", string(env.s.State().Interview.Status))
}
