package transcript

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, s Stream) []Event {
	t.Helper()
	var evs []Event
	for ev := range s.Events() {
		evs = append(evs, ev)
	}
	return evs
}

func TestPushStream_OrderPreserved(t *testing.T) {
	ps := NewPushStream(8)
	ps.Push(Fragment{Text: "hello ", Final: true})
	ps.Push(Fragment{Text: "wor", Final: false})
	ps.Push(Fragment{Text: "world", Final: true})
	ps.End()

	evs := drain(t, ps)
	require.Len(t, evs, 4)
	assert.Equal(t, "hello ", evs[0].Fragment.Text)
	assert.True(t, evs[0].Fragment.Final)
	assert.False(t, evs[1].Fragment.Final)
	assert.Equal(t, "world", evs[2].Fragment.Text)
	assert.Equal(t, EventEnded, evs[3].Kind)
}

func TestPushStream_StopIdempotent(t *testing.T) {
	ps := NewPushStream(4)
	ps.Stop()
	ps.Stop()
	ps.End()
	ps.Push(Fragment{Text: "late", Final: true}) // dropped

	evs := drain(t, ps)
	require.Len(t, evs, 1)
	assert.Equal(t, EventEnded, evs[0].Kind)
}

func TestPushStream_FailTerminal(t *testing.T) {
	cause := errors.New("mic gone")
	ps := NewPushStream(4)
	ps.Fail(cause)
	ps.End() // no-op after failure

	evs := drain(t, ps)
	require.Len(t, evs, 1)
	assert.Equal(t, EventError, evs[0].Kind)
	assert.ErrorIs(t, evs[0].Err, cause)
}

func TestPushStream_TerminalSurvivesFullBuffer(t *testing.T) {
	cause := errors.New("mic gone")
	ps := NewPushStream(2)
	for i := 0; i < 5; i++ {
		ps.Push(Fragment{Text: "x", Final: true})
	}
	ps.Fail(cause)

	evs := drain(t, ps)
	require.Len(t, evs, 3, "two buffered fragments plus the terminal event")
	assert.Equal(t, EventFragment, evs[0].Kind)
	assert.Equal(t, EventFragment, evs[1].Kind)
	assert.Equal(t, EventError, evs[2].Kind, "the failure reason is never dropped")
	assert.ErrorIs(t, evs[2].Err, cause)
}

func TestPushSource_StartEndsPrevious(t *testing.T) {
	src := NewPushSource(4)
	first, err := src.Start(context.Background())
	require.NoError(t, err)

	second, err := src.Start(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, first, second)

	evs := drain(t, first)
	require.Len(t, evs, 1)
	assert.Equal(t, EventEnded, evs[0].Kind)
	assert.Same(t, second, src.Current())
}

func TestUnavailable(t *testing.T) {
	_, err := Unavailable{}.Start(context.Background())
	assert.ErrorIs(t, err, ErrUnsupportedCapability)
}
