package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/changheecho2/banju/internal/apperr"
	"github.com/changheecho2/banju/internal/metrics"
	"github.com/changheecho2/banju/internal/models"
	"github.com/changheecho2/banju/internal/store"
)

const (
	msgAccompanistNotFound = "해당 반주자를 찾을 수 없습니다."
	msgContactLocked       = "결제 완료 후 공개됩니다."
)

// RequestDetail is a request as its owner sees it. ContactEmail is only set
// once the contact has been unlocked.
type RequestDetail struct {
	models.ServiceRequest
	ContactEmail string `json:"contactEmail,omitempty"`
}

// IRequestService defines submission and read operations on service requests.
type IRequestService interface {
	CreateRequest(ctx context.Context, in CreateRequestInput) (*models.ServiceRequest, error)
	GetRequest(ctx context.Context, requestID, callerUID string) (*RequestDetail, error)
	ListMyRequests(ctx context.Context, callerUID string) ([]models.ServiceRequest, error)
	GetContact(ctx context.Context, requestID, callerUID string) (string, error)
}

type requestService struct {
	requests     store.IRequestStore
	accompanists store.IAccompanistStore
	notifier     INotifier
	now          func() time.Time
}

// NewRequestService creates a new RequestService. A nil notifier disables notifications.
func NewRequestService(requests store.IRequestStore, accompanists store.IAccompanistStore, notifier INotifier) IRequestService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &requestService{
		requests:     requests,
		accompanists: accompanists,
		notifier:     notifier,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// CreateRequest validates a submission and stores it as a pending request
// addressed to a currently public accompanist.
func (s *requestService) CreateRequest(ctx context.Context, in CreateRequestInput) (*models.ServiceRequest, error) {
	req, err := ValidateRequest(in)
	if err != nil {
		return nil, err
	}

	profile, err := s.accompanists.FindPublicByID(ctx, req.AccompanistUID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.New(apperr.CodeNotFound, msgAccompanistNotFound)
		}
		return nil, apperr.Wrap(apperr.CodeInternal, "반주자 조회에 실패했습니다.", err)
	}

	req.CreatedAt = s.now()
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "요청서 저장에 실패했습니다.", err)
	}
	metrics.RequestsCreated.Inc()
	log.Printf("DEBUG: request %s created for accompanist %s", req.ID, req.AccompanistUID)

	if err := s.notifier.NewRequest(ctx, profile, req); err != nil {
		log.Printf("WARN: failed to notify accompanist %s of request %s: %v", profile.ID, req.ID, err)
	}

	// The caller only ever gets the public view back.
	out := *req
	out.Private = nil
	return &out, nil
}

func (s *requestService) GetRequest(ctx context.Context, requestID, callerUID string) (*RequestDetail, error) {
	req, err := loadOwnedRequest(ctx, s.requests, requestID, callerUID)
	if err != nil {
		return nil, err
	}
	detail := &RequestDetail{ServiceRequest: *req}
	if req.ContactUnlocked {
		email, err := s.requests.FindContact(ctx, requestID, callerUID)
		if err != nil {
			return nil, storeError(err)
		}
		detail.ContactEmail = email
	}
	return detail, nil
}

func (s *requestService) ListMyRequests(ctx context.Context, callerUID string) ([]models.ServiceRequest, error) {
	if callerUID == "" {
		return nil, apperr.New(apperr.CodeUnauthenticated, apperr.MsgLoginRequired)
	}
	requests, err := s.requests.ListByAccompanist(ctx, callerUID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "요청서 목록 조회에 실패했습니다.", err)
	}
	return requests, nil
}

// GetContact reveals the requester's email to the owning accompanist once unlocked.
func (s *requestService) GetContact(ctx context.Context, requestID, callerUID string) (string, error) {
	req, err := loadOwnedRequest(ctx, s.requests, requestID, callerUID)
	if err != nil {
		return "", err
	}
	if !req.ContactUnlocked {
		return "", apperr.New(apperr.CodeFailedPrecondition, msgContactLocked)
	}
	email, err := s.requests.FindContact(ctx, requestID, callerUID)
	if err != nil {
		return "", storeError(err)
	}
	return email, nil
}

// loadOwnedRequest resolves a request for its owning accompanist.
// Authentication is checked before the lookup and ownership after it.
func loadOwnedRequest(ctx context.Context, requests store.IRequestStore, requestID, callerUID string) (*models.ServiceRequest, error) {
	if callerUID == "" {
		return nil, apperr.New(apperr.CodeUnauthenticated, apperr.MsgLoginRequired)
	}
	if requestID == "" {
		return nil, apperr.New(apperr.CodeInvalidArgument, "requestId 값이 필요합니다.")
	}
	req, err := requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, storeError(err)
	}
	if req.AccompanistUID != callerUID {
		return nil, apperr.New(apperr.CodePermissionDenied, apperr.MsgNoPermission)
	}
	return req, nil
}

// storeError maps store sentinels onto the caller-facing taxonomy.
func storeError(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apperr.Wrap(apperr.CodeNotFound, apperr.MsgRequestNotFound, err)
	case errors.Is(err, store.ErrNotPending):
		return apperr.Wrap(apperr.CodeFailedPrecondition, apperr.MsgAlreadyProcessed, err)
	default:
		return apperr.Wrap(apperr.CodeInternal, "요청서 처리에 실패했습니다.", err)
	}
}
