package services

import (
	"context"

	"github.com/changheecho2/banju/internal/models"
)

// INotifier sends out-of-band notifications about request events.
// Implementations must not block on delivery.
type INotifier interface {
	// NewRequest tells the accompanist a request arrived. The requester's
	// contact must not be included.
	NewRequest(ctx context.Context, profile *models.AccompanistProfile, req *models.ServiceRequest) error
	// RequestAccepted tells the requester their request was accepted.
	RequestAccepted(ctx context.Context, requesterEmail string, req *models.ServiceRequest) error
}

type noopNotifier struct{}

func (noopNotifier) NewRequest(context.Context, *models.AccompanistProfile, *models.ServiceRequest) error {
	return nil
}

func (noopNotifier) RequestAccepted(context.Context, string, *models.ServiceRequest) error {
	return nil
}
