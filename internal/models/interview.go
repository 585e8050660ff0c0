package models

import (
	"time"

	"github.com/google/uuid"
)

type InterviewStatus string

const (
	StatusScheduled  InterviewStatus = "scheduled"
	StatusInProgress InterviewStatus = "in_progress"
	StatusCompleted  InterviewStatus = "completed"
)

type Interview struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	Title      string          `json:"title" db:"title"`
	Profession string          `json:"profession,omitempty" db:"profession"`
	Difficulty string          `json:"difficulty,omitempty" db:"difficulty"`
	Status     InterviewStatus `json:"status" db:"status"`
	Questions  []Question      `json:"questions"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

type Question struct {
	ID          uuid.UUID `json:"id" db:"id"`
	InterviewID uuid.UUID `json:"interview_id" db:"interview_id"`
	Position    int       `json:"position" db:"position"`
	Text        string    `json:"text" db:"question_text"`
	Difficulty  string    `json:"difficulty,omitempty" db:"difficulty"`
	// Response is the latest persisted answer for this question, if any.
	Response *Response `json:"response,omitempty"`
}

type Response struct {
	ID          uuid.UUID `json:"id" db:"id"`
	QuestionID  uuid.UUID `json:"question_id" db:"question_id"`
	InterviewID uuid.UUID `json:"interview_id" db:"interview_id"`
	Text        string    `json:"text" db:"response_text"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// AnswerText returns the saved answer text for a question, or "" when no
// response has been persisted yet.
func (q *Question) AnswerText() string {
	if q.Response == nil {
		return ""
	}
	return q.Response.Text
}
