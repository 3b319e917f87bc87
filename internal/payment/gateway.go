// Package payment abstracts how an accompanist pays the acceptance fee.
//
// A Gateway is chosen once at startup. The mock gateway accepts instantly;
// the Stripe gateway opens a Checkout Session and confirms acceptance when
// the signed checkout.session.completed webhook arrives.
package payment

import (
	"context"
	"errors"

	"github.com/changheecho2/banju/internal/models"
)

// Gateway modes.
const (
	ModeMock   = "mock"
	ModeStripe = "stripe"
)

var (
	// ErrInvalidSignature is returned when a webhook payload fails verification.
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrWebhookNotConfigured is returned when no webhook secret is set.
	ErrWebhookNotConfigured = errors.New("webhook secret not configured")
)

// Outcome is returned to the accompanist after starting an acceptance.
type Outcome struct {
	Mode      string `json:"mode,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	URL       string `json:"url,omitempty"`
}

// WebhookResult acknowledges a webhook delivery.
type WebhookResult struct {
	Received bool   `json:"received"`
	Mode     string `json:"mode,omitempty"`
}

// Confirmer applies the payment side of the lifecycle. It is implemented by
// the lifecycle service.
type Confirmer interface {
	// ConfirmPayment moves a pending request to accepted and unlocks its contact.
	ConfirmPayment(ctx context.Context, requestID string, sessionID *string) (*models.ServiceRequest, error)
	// RecordSession stores the checkout session on a still-pending request.
	RecordSession(ctx context.Context, requestID, sessionID string) error
}

// Gateway starts acceptance payments and receives their confirmations.
type Gateway interface {
	Mode() string
	// Initiate starts the payment for an owned, pending request.
	Initiate(ctx context.Context, req *models.ServiceRequest) (*Outcome, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error)
}
