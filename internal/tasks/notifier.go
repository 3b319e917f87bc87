package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"github.com/changheecho2/banju/internal/config"
	"github.com/changheecho2/banju/internal/models"
	"github.com/changheecho2/banju/internal/services"
)

// EmailNotifier implements services.INotifier by enqueuing email tasks.
type EmailNotifier struct {
	cfg    *config.Config
	client TaskEnqueuer
}

var _ services.INotifier = (*EmailNotifier)(nil)

func NewEmailNotifier(cfg *config.Config, client TaskEnqueuer) *EmailNotifier {
	return &EmailNotifier{cfg: cfg, client: client}
}

// NewRequest emails the accompanist a summary without the requester's contact.
func (n *EmailNotifier) NewRequest(ctx context.Context, profile *models.AccompanistProfile, req *models.ServiceRequest) error {
	if profile.NotifyEmail == "" {
		log.Printf("DEBUG: accompanist %s has no notify email, skipping new request notice", profile.ID)
		return nil
	}
	return n.enqueue(ctx, EmailTaskPayload{
		To:         profile.NotifyEmail,
		TemplateID: services.TemplateNewRequest,
		Locale:     services.DefaultLocale,
		Data: map[string]any{
			"app_name":     n.cfg.AppName,
			"display_name": profile.DisplayName,
			"purpose":      req.Purpose,
			"instrument":   req.Instrument,
			"repertoire":   req.Repertoire,
			"schedule":     req.Schedule,
			"location":     req.Location,
			"budget_min":   req.BudgetMin,
			"budget_max":   req.BudgetMax,
			"link":         fmt.Sprintf("%s/dashboard/requests/%s", n.cfg.WebBaseURL, req.ID),
		},
	})
}

// RequestAccepted tells the requester the accompanist accepted and paid.
func (n *EmailNotifier) RequestAccepted(ctx context.Context, requesterEmail string, req *models.ServiceRequest) error {
	return n.enqueue(ctx, EmailTaskPayload{
		To:         requesterEmail,
		TemplateID: services.TemplateRequestAccepted,
		Locale:     services.DefaultLocale,
		Data: map[string]any{
			"app_name":   n.cfg.AppName,
			"purpose":    req.Purpose,
			"repertoire": req.Repertoire,
			"schedule":   req.Schedule,
		},
	})
}

func (n *EmailNotifier) enqueue(ctx context.Context, payload EmailTaskPayload) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal email task payload: %w", err)
	}
	task := asynq.NewTask(TypeEmailDelivery, payloadBytes)
	if _, err := n.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("failed to enqueue %s email: %w", payload.TemplateID, err)
	}
	return nil
}
