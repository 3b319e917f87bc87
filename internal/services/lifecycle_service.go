package services

import (
	"context"
	"log"
	"time"

	"github.com/changheecho2/banju/internal/apperr"
	"github.com/changheecho2/banju/internal/metrics"
	"github.com/changheecho2/banju/internal/models"
	"github.com/changheecho2/banju/internal/payment"
	"github.com/changheecho2/banju/internal/store"
)

// ILifecycleService moves requests out of pending. It is the only component
// that changes a request's status.
type ILifecycleService interface {
	payment.Confirmer
	// Accept starts the paid acceptance of an owned pending request.
	Accept(ctx context.Context, requestID, callerUID string) (*payment.Outcome, error)
	// Reject closes an owned pending request without unlocking its contact.
	Reject(ctx context.Context, requestID, callerUID string) error
	// SetGateway breaks the construction cycle with the payment gateway.
	SetGateway(g payment.Gateway)
}

type lifecycleService struct {
	requests store.IRequestStore
	gateway  payment.Gateway
	notifier INotifier
	now      func() time.Time
}

// NewLifecycleService creates a new LifecycleService. SetGateway must be
// called before Accept is used.
func NewLifecycleService(requests store.IRequestStore, notifier INotifier) ILifecycleService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &lifecycleService{
		requests: requests,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *lifecycleService) SetGateway(g payment.Gateway) {
	s.gateway = g
}

func (s *lifecycleService) Accept(ctx context.Context, requestID, callerUID string) (*payment.Outcome, error) {
	req, err := loadPendingOwned(ctx, s.requests, requestID, callerUID)
	if err != nil {
		return nil, err
	}
	if s.gateway == nil {
		return nil, apperr.New(apperr.CodeInternal, "결제 설정이 필요합니다.")
	}
	return s.gateway.Initiate(ctx, req)
}

func (s *lifecycleService) Reject(ctx context.Context, requestID, callerUID string) error {
	if _, err := loadPendingOwned(ctx, s.requests, requestID, callerUID); err != nil {
		return err
	}
	if _, err := s.requests.MarkRejected(ctx, requestID, s.now()); err != nil {
		return storeError(err)
	}
	metrics.RequestTransitions.WithLabelValues(string(models.RequestStatusRejected)).Inc()
	log.Printf("DEBUG: request %s rejected by %s", requestID, callerUID)
	return nil
}

func (s *lifecycleService) ConfirmPayment(ctx context.Context, requestID string, sessionID *string) (*models.ServiceRequest, error) {
	updated, err := s.requests.MarkAccepted(ctx, requestID, sessionID, s.now())
	if err != nil {
		return nil, storeError(err)
	}
	metrics.RequestTransitions.WithLabelValues(string(models.RequestStatusAccepted)).Inc()
	log.Printf("DEBUG: request %s accepted, contact unlocked", requestID)

	email, err := s.requests.FindContact(ctx, requestID, updated.AccompanistUID)
	if err != nil {
		log.Printf("WARN: could not load contact of accepted request %s for notification: %v", requestID, err)
	} else if err := s.notifier.RequestAccepted(ctx, email, updated); err != nil {
		log.Printf("WARN: failed to notify requester of request %s: %v", requestID, err)
	}
	return updated, nil
}

func (s *lifecycleService) RecordSession(ctx context.Context, requestID, sessionID string) error {
	if err := s.requests.SetPaymentSession(ctx, requestID, sessionID); err != nil {
		return storeError(err)
	}
	return nil
}

// loadPendingOwned checks identity, existence, ownership and state, in that order.
func loadPendingOwned(ctx context.Context, requests store.IRequestStore, requestID, callerUID string) (*models.ServiceRequest, error) {
	req, err := loadOwnedRequest(ctx, requests, requestID, callerUID)
	if err != nil {
		return nil, err
	}
	if req.Status != models.RequestStatusPending {
		return nil, apperr.Wrap(apperr.CodeFailedPrecondition, apperr.MsgAlreadyProcessed, store.ErrNotPending)
	}
	return req, nil
}
