package response

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/entrevo/interview-backend/internal/cache"
	"github.com/entrevo/interview-backend/internal/models"
)

// Service persists answers. A question holds at most one response; repeated
// submissions overwrite the previous text.
type Service struct {
	db    *pgxpool.Pool
	cache *cache.Cache
}

func NewService(db *pgxpool.Pool, c *cache.Cache) *Service {
	return &Service{db: db, cache: c}
}

// Submit upserts the response for a question and invalidates the interview
// cache so the next directory read reflects it.
func (s *Service) Submit(ctx context.Context, questionID, interviewID uuid.UUID, text string) (*models.Response, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("response text required")
	}

	var belongs bool
	err := s.db.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM questions WHERE id = $1 AND interview_id = $2)",
		questionID, interviewID,
	).Scan(&belongs)
	if err != nil {
		return nil, fmt.Errorf("check question: %w", err)
	}
	if !belongs {
		return nil, fmt.Errorf("question %s does not belong to interview %s", questionID, interviewID)
	}

	var resp models.Response
	err = s.db.QueryRow(ctx,
		`INSERT INTO responses (question_id, interview_id, response_text)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (question_id)
		 DO UPDATE SET response_text = EXCLUDED.response_text, updated_at = now()
		 RETURNING id, question_id, interview_id, response_text, created_at, updated_at`,
		questionID, interviewID, text,
	).Scan(&resp.ID, &resp.QuestionID, &resp.InterviewID, &resp.Text, &resp.CreatedAt, &resp.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert response: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, "interview:"+interviewID.String()); err != nil {
			slog.Warn("interview cache invalidation failed", "interview_id", interviewID, "error", err)
		}
	}
	return &resp, nil
}
