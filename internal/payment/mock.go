package payment

import (
	"context"
	"log"

	"github.com/changheecho2/banju/internal/models"
)

// MockGateway accepts requests immediately without any external call.
type MockGateway struct {
	confirmer Confirmer
}

// NewMockGateway creates a gateway that confirms through c synchronously.
func NewMockGateway(c Confirmer) *MockGateway {
	return &MockGateway{confirmer: c}
}

func (g *MockGateway) Mode() string { return ModeMock }

func (g *MockGateway) Initiate(ctx context.Context, req *models.ServiceRequest) (*Outcome, error) {
	if _, err := g.confirmer.ConfirmPayment(ctx, req.ID, nil); err != nil {
		return nil, err
	}
	log.Printf("DEBUG: mock payment accepted request %s", req.ID)
	return &Outcome{Mode: ModeMock}, nil
}

// HandleWebhook acknowledges without verifying or mutating anything.
func (g *MockGateway) HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	return &WebhookResult{Received: true, Mode: ModeMock}, nil
}
