package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/entrevo/interview-backend/internal/queue"
	"github.com/entrevo/interview-backend/internal/response"
	"github.com/entrevo/interview-backend/internal/transcript"
)

// TranscribeWorker is the server-side dictation fallback: clients without a
// speech capability upload a recorded clip, the worker transcribes it and
// saves the text as the question's response.
type TranscribeWorker struct {
	stt       *transcript.WhisperTranscriber
	responses *response.Service
}

func NewTranscribeWorker(stt *transcript.WhisperTranscriber, responses *response.Service) *TranscribeWorker {
	return &TranscribeWorker{stt: stt, responses: responses}
}

func (w *TranscribeWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.ClipTranscribePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	questionID, err := uuid.Parse(payload.QuestionID)
	if err != nil {
		return fmt.Errorf("parse question ID: %w", err)
	}
	interviewID, err := uuid.Parse(payload.InterviewID)
	if err != nil {
		return fmt.Errorf("parse interview ID: %w", err)
	}

	slog.Info("transcribing answer clip", "question_id", questionID, "clip", payload.ClipPath)

	text, err := w.stt.Transcribe(ctx, payload.ClipPath)
	if err != nil {
		return fmt.Errorf("transcribe clip: %w", err)
	}

	if _, err := w.responses.Submit(ctx, questionID, interviewID, text); err != nil {
		return fmt.Errorf("save transcribed response: %w", err)
	}

	if err := os.Remove(payload.ClipPath); err != nil {
		slog.Warn("failed to remove transcribed clip", "clip", payload.ClipPath, "error", err)
	}
	return nil
}
