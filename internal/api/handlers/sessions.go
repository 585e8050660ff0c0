package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/entrevo/interview-backend/internal/interview"
	"github.com/entrevo/interview-backend/internal/models"
	"github.com/entrevo/interview-backend/internal/session"
	"github.com/entrevo/interview-backend/internal/transcript"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Origin enforcement happens in the CORS layer; the socket shares it.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// InterviewStarter opens an interview for session attachment, moving it out
// of scheduled on first open.
type InterviewStarter interface {
	Start(ctx context.Context, id uuid.UUID) (*models.Interview, error)
}

type SessionHandler struct {
	interviews InterviewStarter
	manager    *session.Manager
}

func NewSessionHandler(interviews InterviewStarter, manager *session.Manager) *SessionHandler {
	return &SessionHandler{interviews: interviews, manager: manager}
}

// clientFrame is one decoded intent from the socket. The client performs
// speech recognition locally and relays fragments; everything else maps 1:1
// onto a session operation.
type clientFrame struct {
	Type   string `json:"type"`
	Speech bool   `json:"speech"`
	Text   string `json:"text"`
	Final  bool   `json:"final"`
	Reason string `json:"reason"`
	Index  int    `json:"index"`
}

// Attach upgrades the connection and runs the session for its lifetime. The
// first frame must be a hello announcing whether the client has a speech
// capability; without one, capture falls back to manual entry.
func (h *SessionHandler) Attach(w http.ResponseWriter, r *http.Request) {
	interviewID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid interview ID"})
		return
	}

	// Opening a scheduled interview moves it to in_progress before the
	// session attaches.
	if _, err := h.interviews.Start(r.Context(), interviewID); err != nil {
		if errors.Is(err, interview.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "interview not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("session upgrade failed", "interview_id", interviewID, "error", err)
		return
	}
	defer conn.Close()

	var hello clientFrame
	if err := conn.ReadJSON(&hello); err != nil || hello.Type != "hello" {
		conn.WriteJSON(map[string]string{"type": "error", "error": "expected hello frame"})
		return
	}

	sink := newWSSink(conn)

	var pushSource *transcript.PushSource
	var factory session.SourceFactory
	if hello.Speech {
		pushSource = transcript.NewPushSource(32)
		factory = func() transcript.Source { return pushSource }
	} else {
		factory = func() transcript.Source { return transcript.Unavailable{} }
	}

	sess, err := h.manager.Open(r.Context(), interviewID, factory, sink)
	if err != nil {
		sink.write(map[string]interface{}{"type": "error", "op": "open", "error": err.Error()})
		return
	}
	defer h.manager.Close(sess.ID)

	slog.Info("session attached", "session_id", sess.ID, "interview_id", interviewID, "speech", hello.Speech)

	state := sess.State()
	sink.write(map[string]interface{}{"type": "state", "session_id": sess.ID, "state": state})

	for {
		var frame clientFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("session socket closed unexpectedly", "session_id", sess.ID, "error", err)
			}
			return
		}

		switch frame.Type {
		case "capture_start":
			sess.StartCapture()
		case "capture_stop":
			sess.StopCapture()
		case "fragment":
			if pushSource != nil {
				if stream := pushSource.Current(); stream != nil {
					stream.Push(transcript.Fragment{Text: frame.Text, Final: frame.Final})
				}
			}
		case "stream_end":
			if pushSource != nil {
				if stream := pushSource.Current(); stream != nil {
					stream.End()
				}
			}
		case "stream_error":
			if pushSource != nil {
				if stream := pushSource.Current(); stream != nil {
					stream.Fail(errors.New(frame.Reason))
				}
			}
		case "confirm":
			sess.Confirm()
		case "retry":
			sess.Retry()
		case "edit":
			sess.Edit(frame.Text)
		case "navigate":
			sess.Navigate(frame.Index)
		case "save":
			sess.Save()
		case "complete":
			sess.Complete()
		case "exit":
			return
		default:
			sink.write(map[string]interface{}{"type": "error", "op": frame.Type, "error": "unknown frame type"})
		}
	}
}

// wsSink forwards session events to the client as JSON frames. Session events
// arrive from the event loop while the initial state frame comes from the
// handler goroutine, so writes are serialized.
type wsSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func newWSSink(conn *websocket.Conn) *wsSink {
	return &wsSink{conn: conn}
}

func (s *wsSink) write(v interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.WriteJSON(v); err != nil {
		slog.Debug("session frame write failed", "error", err)
	}
}

func (s *wsSink) PhaseChanged(phase session.Phase) {
	s.write(map[string]interface{}{"type": "phase", "phase": phase.String()})
}

func (s *wsSink) Partial(text string) {
	s.write(map[string]interface{}{"type": "partial", "text": text})
}

func (s *wsSink) DraftUpdated(draft string) {
	s.write(map[string]interface{}{"type": "draft", "text": draft})
}

func (s *wsSink) DraftPending(draft string) {
	s.write(map[string]interface{}{"type": "draft_pending", "text": draft})
}

func (s *wsSink) Hint(text string) {
	s.write(map[string]interface{}{"type": "hint", "text": text})
}

func (s *wsSink) QuestionChanged(index int, answer string) {
	s.write(map[string]interface{}{"type": "question", "index": index, "answer": answer})
}

func (s *wsSink) AnswerChanged(index int, answer string) {
	s.write(map[string]interface{}{"type": "answer", "index": index, "text": answer})
}

func (s *wsSink) Timers(answerSec, sessionSec int) {
	s.write(map[string]interface{}{"type": "timers", "answer_elapsed": answerSec, "session_elapsed": sessionSec})
}

func (s *wsSink) Saved(index int, resp *models.Response) {
	s.write(map[string]interface{}{"type": "saved", "index": index, "response": resp})
}

func (s *wsSink) Completed(iv *models.Interview) {
	s.write(map[string]interface{}{"type": "completed", "interview": iv})
}

func (s *wsSink) InterviewUpdated(iv *models.Interview) {
	s.write(map[string]interface{}{"type": "interview", "interview": iv})
}

func (s *wsSink) CaptureUnavailable() {
	s.write(map[string]interface{}{"type": "capture_unavailable"})
}

func (s *wsSink) StreamFailed(reason error) {
	s.write(map[string]interface{}{"type": "stream_error", "reason": reason.Error()})
}

func (s *wsSink) Failed(op string, err error) {
	s.write(map[string]interface{}{"type": "error", "op": op, "error": err.Error()})
}
