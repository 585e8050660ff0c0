package interview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/entrevo/interview-backend/internal/cache"
	"github.com/entrevo/interview-backend/internal/models"
	"github.com/entrevo/interview-backend/internal/webhook"
)

var (
	ErrNotFound          = errors.New("interview not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Service is the interview directory: interviews, their ordered questions and
// each question's latest response. Reads go through the redis cache; every
// write invalidates it, so the next read is authoritative.
type Service struct {
	db       *pgxpool.Pool
	cache    *cache.Cache
	cacheTTL time.Duration
	hooks    *webhook.Service
}

func NewService(db *pgxpool.Pool, c *cache.Cache, ttl time.Duration, hooks *webhook.Service) *Service {
	return &Service{db: db, cache: c, cacheTTL: ttl, hooks: hooks}
}

type QuestionInput struct {
	Text       string `json:"text"`
	Difficulty string `json:"difficulty"`
}

type CreateRequest struct {
	Title      string          `json:"title"`
	Profession string          `json:"profession"`
	Difficulty string          `json:"difficulty"`
	Questions  []QuestionInput `json:"questions"`
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.Interview, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, fmt.Errorf("title required")
	}
	if len(req.Questions) == 0 {
		return nil, fmt.Errorf("at least one question required")
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var iv models.Interview
	err = tx.QueryRow(ctx,
		`INSERT INTO interviews (title, profession, difficulty, status)
		 VALUES ($1, $2, $3, 'scheduled')
		 RETURNING id, title, profession, difficulty, status, created_at`,
		req.Title, req.Profession, req.Difficulty,
	).Scan(&iv.ID, &iv.Title, &iv.Profession, &iv.Difficulty, &iv.Status, &iv.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert interview: %w", err)
	}

	for i, q := range req.Questions {
		difficulty := q.Difficulty
		if difficulty == "" {
			difficulty = req.Difficulty
		}
		var question models.Question
		err = tx.QueryRow(ctx,
			`INSERT INTO questions (interview_id, position, question_text, difficulty)
			 VALUES ($1, $2, $3, $4)
			 RETURNING id, interview_id, position, question_text, difficulty`,
			iv.ID, i, q.Text, difficulty,
		).Scan(&question.ID, &question.InterviewID, &question.Position, &question.Text, &question.Difficulty)
		if err != nil {
			return nil, fmt.Errorf("insert question %d: %w", i, err)
		}
		iv.Questions = append(iv.Questions, question)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return &iv, nil
}

// Get returns an interview with its ordered questions and each question's
// latest persisted response.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Interview, error) {
	key := cacheKey(id)
	if s.cache != nil {
		var cached models.Interview
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	var iv models.Interview
	err := s.db.QueryRow(ctx,
		`SELECT id, title, profession, difficulty, status, created_at
		 FROM interviews WHERE id = $1`,
		id,
	).Scan(&iv.ID, &iv.Title, &iv.Profession, &iv.Difficulty, &iv.Status, &iv.CreatedAt)
	if err != nil {
		return nil, ErrNotFound
	}

	rows, err := s.db.Query(ctx,
		`SELECT q.id, q.interview_id, q.position, q.question_text, q.difficulty,
		        r.id, r.response_text, r.created_at, r.updated_at
		 FROM questions q
		 LEFT JOIN responses r ON r.question_id = q.id
		 WHERE q.interview_id = $1
		 ORDER BY q.position`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("get questions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var q models.Question
		var respID *uuid.UUID
		var respText *string
		var respCreated, respUpdated *time.Time
		if err := rows.Scan(&q.ID, &q.InterviewID, &q.Position, &q.Text, &q.Difficulty,
			&respID, &respText, &respCreated, &respUpdated); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if respID != nil {
			q.Response = &models.Response{
				ID:          *respID,
				QuestionID:  q.ID,
				InterviewID: iv.ID,
				Text:        *respText,
				CreatedAt:   *respCreated,
				UpdatedAt:   *respUpdated,
			}
		}
		iv.Questions = append(iv.Questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, &iv, s.cacheTTL); err != nil {
			slog.Warn("interview cache set failed", "interview_id", id, "error", err)
		}
	}
	return &iv, nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]models.Interview, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, title, profession, difficulty, status, created_at
		 FROM interviews ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list interviews: %w", err)
	}
	defer rows.Close()

	var interviews []models.Interview
	for rows.Next() {
		var iv models.Interview
		if err := rows.Scan(&iv.ID, &iv.Title, &iv.Profession, &iv.Difficulty, &iv.Status, &iv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan interview: %w", err)
		}
		interviews = append(interviews, iv)
	}
	return interviews, rows.Err()
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, "DELETE FROM interviews WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete interview: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	s.invalidate(ctx, id)
	return nil
}

// UpdateStatus moves an interview along its lifecycle. Legal transitions:
// scheduled to in_progress to completed. Completion fans out the
// interview.completed webhook event.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status models.InterviewStatus) error {
	var current models.InterviewStatus
	err := s.db.QueryRow(ctx, "SELECT status FROM interviews WHERE id = $1", id).Scan(&current)
	if err != nil {
		return ErrNotFound
	}

	if !legalTransition(current, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, status)
	}

	_, err = s.db.Exec(ctx, "UPDATE interviews SET status = $1 WHERE id = $2", status, id)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	s.invalidate(ctx, id)

	if status == models.StatusCompleted && s.hooks != nil {
		payload := map[string]interface{}{"interview_id": id, "status": status, "completed_at": time.Now().UTC()}
		if err := s.hooks.Dispatch(ctx, webhook.EventInterviewCompleted, payload); err != nil {
			slog.Error("failed to dispatch completion webhooks", "interview_id", id, "error", err)
		}
	}
	return nil
}

// Start opens an interview for a session, moving it out of scheduled on
// first open.
func (s *Service) Start(ctx context.Context, id uuid.UUID) (*models.Interview, error) {
	iv, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if iv.Status != models.StatusScheduled {
		return iv, nil
	}
	if err := s.UpdateStatus(ctx, id, models.StatusInProgress); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func legalTransition(from, to models.InterviewStatus) bool {
	switch from {
	case models.StatusScheduled:
		return to == models.StatusInProgress
	case models.StatusInProgress:
		return to == models.StatusCompleted
	default:
		return false
	}
}

func (s *Service) invalidate(ctx context.Context, id uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cacheKey(id)); err != nil {
		slog.Warn("interview cache invalidation failed", "interview_id", id, "error", err)
	}
}

func cacheKey(id uuid.UUID) string { return "interview:" + id.String() }
