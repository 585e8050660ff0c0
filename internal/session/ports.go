package session

import (
	"context"

	"github.com/google/uuid"

	"github.com/entrevo/interview-backend/internal/models"
	"github.com/entrevo/interview-backend/internal/transcript"
)

// Directory is the slice of the interview directory the session core depends
// on: reading an interview (with questions and latest responses) and driving
// its status transitions.
type Directory interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Interview, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.InterviewStatus) error
}

// SourceFactory builds the transcript source for a new session, chosen per
// client based on its announced speech capability.
type SourceFactory func() transcript.Source

// Responder persists one answer for one question. Repeated submissions
// overwrite the latest response for that question.
type Responder interface {
	Submit(ctx context.Context, questionID, interviewID uuid.UUID, text string) (*models.Response, error)
}
