package handlers

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrevo/interview-backend/internal/models"
	"github.com/entrevo/interview-backend/internal/session"
)

type stubDirectory struct {
	mu sync.Mutex
	iv *models.Interview
}

func newStubDirectory(questions ...string) *stubDirectory {
	iv := &models.Interview{
		ID:     uuid.New(),
		Title:  "backend engineer screen",
		Status: models.StatusInProgress,
	}
	for i, q := range questions {
		iv.Questions = append(iv.Questions, models.Question{
			ID:          uuid.New(),
			InterviewID: iv.ID,
			Position:    i,
			Text:        q,
		})
	}
	return &stubDirectory{iv: iv}
}

func (d *stubDirectory) Get(ctx context.Context, id uuid.UUID) (*models.Interview, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.iv, nil
}

func (d *stubDirectory) UpdateStatus(ctx context.Context, id uuid.UUID, status models.InterviewStatus) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.iv.Status = status
	return nil
}

func (d *stubDirectory) Start(ctx context.Context, id uuid.UUID) (*models.Interview, error) {
	return d.Get(ctx, id)
}

type stubResponder struct{}

func (stubResponder) Submit(ctx context.Context, questionID, interviewID uuid.UUID, text string) (*models.Response, error) {
	return &models.Response{
		ID:          uuid.New(),
		QuestionID:  questionID,
		InterviewID: interviewID,
		Text:        text,
	}, nil
}

// dialSession stands a router up around the handler and dials the session
// socket. The hour-long tick keeps timer frames out of the assertions.
func dialSession(t *testing.T, dir *stubDirectory) *websocket.Conn {
	t.Helper()

	manager := session.NewManager(dir, stubResponder{}, time.Hour)
	t.Cleanup(manager.Shutdown)
	h := NewSessionHandler(dir, manager)

	r := chi.NewRouter()
	r.Get("/api/v1/interviews/{id}/session", h.Attach)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") +
		"/api/v1/interviews/" + dir.iv.ID.String() + "/session"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readFrameOfType reads frames until one of the wanted type arrives, skipping
// interleaved hints and draft updates.
func readFrameOfType(t *testing.T, conn *websocket.Conn, want string) map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var frame map[string]interface{}
		require.NoError(t, conn.ReadJSON(&frame), "waiting for %q frame", want)
		if frame["type"] == want {
			return frame
		}
	}
}

func TestSessionHandler_CaptureRoundTrip(t *testing.T) {
	dir := newStubDirectory("tell me about yourself")
	conn := dialSession(t, dir)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "hello", "speech": true}))
	state := readFrameOfType(t, conn, "state")
	assert.NotEmpty(t, state["session_id"])

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "capture_start"}))
	phase := readFrameOfType(t, conn, "phase")
	assert.Equal(t, "listening", phase["phase"])

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "fragment", "text": "hello ", "final": true}))
	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "fragment", "text": "world", "final": true}))
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "stream_end"}))

	pending := readFrameOfType(t, conn, "draft_pending")
	assert.Equal(t, "hello world", pending["text"])

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "confirm"}))
	answer := readFrameOfType(t, conn, "answer")
	assert.EqualValues(t, 0, answer["index"])
	assert.Equal(t, "hello world", answer["text"])

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "exit"}))
}

func TestSessionHandler_NoSpeechFallsBackToManual(t *testing.T) {
	dir := newStubDirectory("q1")
	conn := dialSession(t, dir)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "hello", "speech": false}))
	readFrameOfType(t, conn, "state")

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "capture_start"}))
	readFrameOfType(t, conn, "capture_unavailable")

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "edit", "text": "typed by hand"}))
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "save"}))
	saved := readFrameOfType(t, conn, "saved")
	assert.EqualValues(t, 0, saved["index"])
}

func TestSessionHandler_HelloRequired(t *testing.T) {
	dir := newStubDirectory("q1")
	conn := dialSession(t, dir)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "capture_start"}))
	frame := readFrameOfType(t, conn, "error")
	assert.Equal(t, "expected hello frame", frame["error"])
}
