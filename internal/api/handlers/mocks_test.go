package handlers_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/changheecho2/banju/internal/models"
	"github.com/changheecho2/banju/internal/payment"
	"github.com/changheecho2/banju/internal/services"
	"github.com/changheecho2/banju/internal/storage"
)

// MockRequestService
type MockRequestService struct {
	mock.Mock
}

func (m *MockRequestService) CreateRequest(ctx context.Context, in services.CreateRequestInput) (*models.ServiceRequest, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ServiceRequest), args.Error(1)
}

func (m *MockRequestService) GetRequest(ctx context.Context, requestID, callerUID string) (*services.RequestDetail, error) {
	args := m.Called(ctx, requestID, callerUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.RequestDetail), args.Error(1)
}

func (m *MockRequestService) ListMyRequests(ctx context.Context, callerUID string) ([]models.ServiceRequest, error) {
	args := m.Called(ctx, callerUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ServiceRequest), args.Error(1)
}

func (m *MockRequestService) GetContact(ctx context.Context, requestID, callerUID string) (string, error) {
	args := m.Called(ctx, requestID, callerUID)
	return args.String(0), args.Error(1)
}

// MockLifecycleService
type MockLifecycleService struct {
	mock.Mock
}

func (m *MockLifecycleService) ConfirmPayment(ctx context.Context, requestID string, sessionID *string) (*models.ServiceRequest, error) {
	args := m.Called(ctx, requestID, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ServiceRequest), args.Error(1)
}

func (m *MockLifecycleService) RecordSession(ctx context.Context, requestID, sessionID string) error {
	return m.Called(ctx, requestID, sessionID).Error(0)
}

func (m *MockLifecycleService) Accept(ctx context.Context, requestID, callerUID string) (*payment.Outcome, error) {
	args := m.Called(ctx, requestID, callerUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Outcome), args.Error(1)
}

func (m *MockLifecycleService) Reject(ctx context.Context, requestID, callerUID string) error {
	return m.Called(ctx, requestID, callerUID).Error(0)
}

func (m *MockLifecycleService) SetGateway(g payment.Gateway) {
	m.Called(g)
}

// MockAccompanistService
type MockAccompanistService struct {
	mock.Mock
}

func (m *MockAccompanistService) GetMyProfile(ctx context.Context, uid, email string) (*models.AccompanistProfile, error) {
	args := m.Called(ctx, uid, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AccompanistProfile), args.Error(1)
}

func (m *MockAccompanistService) SaveProfile(ctx context.Context, uid, email string, in services.ProfileInput) (*models.AccompanistProfile, error) {
	args := m.Called(ctx, uid, email, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AccompanistProfile), args.Error(1)
}

func (m *MockAccompanistService) GetPublicProfile(ctx context.Context, uid string) (*models.AccompanistProfile, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AccompanistProfile), args.Error(1)
}

func (m *MockAccompanistService) ListPublicProfiles(ctx context.Context, filter models.ProfileFilter) ([]models.AccompanistProfile, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AccompanistProfile), args.Error(1)
}

// MockS3Storage
type MockS3Storage struct {
	mock.Mock
}

func (m *MockS3Storage) PresignPortfolioUpload(ctx context.Context, uid, filename, contentType string) (*storage.PortfolioUpload, error) {
	args := m.Called(ctx, uid, filename, contentType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.PortfolioUpload), args.Error(1)
}

// MockGateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Mode() string {
	return m.Called().String(0)
}

func (m *MockGateway) Initiate(ctx context.Context, req *models.ServiceRequest) (*payment.Outcome, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Outcome), args.Error(1)
}

func (m *MockGateway) HandleWebhook(ctx context.Context, payload []byte, signature string) (*payment.WebhookResult, error) {
	args := m.Called(ctx, payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.WebhookResult), args.Error(1)
}
