package webhook

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/entrevo/interview-backend/internal/models"
	"github.com/entrevo/interview-backend/internal/queue"
)

const EventInterviewCompleted = "interview.completed"

// Service manages webhook registrations and fans events out as delivery
// tasks. Actual delivery runs in the worker so a slow endpoint never holds up
// a session.
type Service struct {
	db    *pgxpool.Pool
	queue *queue.Client
}

func NewService(db *pgxpool.Pool, qc *queue.Client) *Service {
	return &Service{db: db, queue: qc}
}

type CreateRequest struct {
	URL    string   `json:"url"`
	Events []string `json:"events"`
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.Webhook, error) {
	secret, err := generateSecret()
	if err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}

	eventsJSON, _ := json.Marshal(req.Events)

	var wh models.Webhook
	err = s.db.QueryRow(ctx,
		`INSERT INTO webhooks (url, events, secret, is_active)
		 VALUES ($1, $2, $3, true)
		 RETURNING id, url, events, is_active, created_at`,
		req.URL, eventsJSON, secret,
	).Scan(&wh.ID, &wh.URL, &wh.Events, &wh.IsActive, &wh.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert webhook: %w", err)
	}

	// Return secret only on creation
	wh.Secret = secret

	return &wh, nil
}

func (s *Service) List(ctx context.Context) ([]models.Webhook, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, url, events, is_active, created_at
		 FROM webhooks ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list webhooks: %w", err)
	}
	defer rows.Close()

	var webhooks []models.Webhook
	for rows.Next() {
		var wh models.Webhook
		if err := rows.Scan(&wh.ID, &wh.URL, &wh.Events, &wh.IsActive, &wh.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan webhook: %w", err)
		}
		webhooks = append(webhooks, wh)
	}
	return webhooks, rows.Err()
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.Exec(ctx, "DELETE FROM webhooks WHERE id = $1", id)
	return err
}

// Dispatch enqueues one delivery task per active webhook subscribed to the
// event.
func (s *Service) Dispatch(ctx context.Context, event string, payload interface{}) error {
	rows, err := s.db.Query(ctx,
		`SELECT id, url, secret FROM webhooks
		 WHERE is_active = true AND events @> $1::jsonb`,
		fmt.Sprintf(`["%s"]`, event),
	)
	if err != nil {
		return fmt.Errorf("find matching webhooks: %w", err)
	}
	defer rows.Close()

	payloadJSON, _ := json.Marshal(payload)

	for rows.Next() {
		var id uuid.UUID
		var url, secret string
		if err := rows.Scan(&id, &url, &secret); err != nil {
			return fmt.Errorf("scan webhook: %w", err)
		}
		err := s.queue.EnqueueWebhookDeliver(queue.WebhookDeliverPayload{
			WebhookID: id.String(),
			URL:       url,
			Secret:    secret,
			Event:     event,
			Payload:   payloadJSON,
		})
		if err != nil {
			return fmt.Errorf("enqueue delivery for %s: %w", id, err)
		}
	}
	return rows.Err()
}

func generateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "whsec_" + hex.EncodeToString(b), nil
}
