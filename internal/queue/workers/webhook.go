package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/entrevo/interview-backend/internal/queue"
	"github.com/entrevo/interview-backend/internal/webhook"
)

type WebhookWorker struct {
	deliverer *webhook.Deliverer
}

func NewWebhookWorker(d *webhook.Deliverer) *WebhookWorker {
	return &WebhookWorker{deliverer: d}
}

func (w *WebhookWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.WebhookDeliverPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	webhookID, err := uuid.Parse(payload.WebhookID)
	if err != nil {
		return fmt.Errorf("parse webhook ID: %w", err)
	}

	slog.Info("delivering webhook", "webhook_id", webhookID, "event", payload.Event)

	return w.deliverer.Deliver(ctx, webhook.DeliveryRequest{
		WebhookID: webhookID,
		URL:       payload.URL,
		Secret:    payload.Secret,
		Event:     payload.Event,
		Payload:   payload.Payload,
	})
}
