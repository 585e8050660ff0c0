package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/entrevo/interview-backend/internal/config"
	"github.com/entrevo/interview-backend/internal/queue"
	"github.com/entrevo/interview-backend/internal/response"
)

type ResponseHandler struct {
	svc   *response.Service
	queue *queue.Client
	clips config.ClipConfig
}

func NewResponseHandler(svc *response.Service, qc *queue.Client, clips config.ClipConfig) *ResponseHandler {
	return &ResponseHandler{svc: svc, queue: qc, clips: clips}
}

// Submit is the plain save path for clients not holding a live session.
func (h *ResponseHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		QuestionID  string `json:"question_id"`
		InterviewID string `json:"interview_id"`
		Text        string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	questionID, err := uuid.Parse(req.QuestionID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid question ID"})
		return
	}
	interviewID, err := uuid.Parse(req.InterviewID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid interview ID"})
		return
	}
	if req.Text == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "text required"})
		return
	}

	resp, err := h.svc.Submit(r.Context(), questionID, interviewID, req.Text)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"response": resp})
}

// UploadClip accepts a recorded answer clip for server-side transcription,
// the dictation fallback for clients without a speech capability. The clip is
// staged on disk and transcription runs in the worker.
func (h *ResponseHandler) UploadClip(w http.ResponseWriter, r *http.Request) {
	maxBytes := int64(h.clips.MaxSizeMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
		return
	}

	questionID, err := uuid.Parse(r.FormValue("question_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid question ID"})
		return
	}
	interviewID, err := uuid.Parse(r.FormValue("interview_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid interview ID"})
		return
	}

	file, header, err := r.FormFile("clip")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "clip file required"})
		return
	}
	defer file.Close()

	ext := filepath.Ext(header.Filename)
	if ext == "" {
		ext = ".webm"
	}
	path := filepath.Join(h.clips.Dir, fmt.Sprintf("clip-%s-%s%s", questionID, uuid.New(), ext))

	dst, err := os.Create(path)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to stage clip"})
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		os.Remove(path)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to stage clip"})
		return
	}
	dst.Close()

	err = h.queue.EnqueueClipTranscribe(queue.ClipTranscribePayload{
		QuestionID:  questionID.String(),
		InterviewID: interviewID.String(),
		ClipPath:    path,
	})
	if err != nil {
		os.Remove(path)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}
