package services

import (
	"context"
	"errors"
	"testing"

	"github.com/changheecho2/banju/internal/apperr"
	"github.com/changheecho2/banju/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newRequestFixture(profiles ...models.AccompanistProfile) (IRequestService, *memRequestStore, *MockNotifier) {
	requests := newMemRequestStore()
	notifier := new(MockNotifier)
	svc := NewRequestService(requests, newMemAccompanistStore(profiles...), notifier)
	return svc, requests, notifier
}

func TestRequestService_CreateRequest(t *testing.T) {
	svc, requests, notifier := newRequestFixture(publicProfile("mock-1"))
	notifier.On("NewRequest", mock.Anything, mock.MatchedBy(func(p *models.AccompanistProfile) bool {
		return p.ID == "mock-1"
	}), mock.Anything).Return(nil)

	req, err := svc.CreateRequest(context.Background(), validInput())
	require.NoError(t, err)
	assert.NotEmpty(t, req.ID)
	assert.Equal(t, models.RequestStatusPending, req.Status)
	assert.False(t, req.ContactUnlocked)
	assert.Nil(t, req.Private)
	assert.False(t, req.CreatedAt.IsZero())

	stored := requests.raw(req.ID)
	require.NotNil(t, stored.Private)
	assert.Equal(t, "a@b.com", stored.Private.Email)
	notifier.AssertExpectations(t)
}

func TestRequestService_CreateRequest_NotifierFailureIgnored(t *testing.T) {
	svc, requests, notifier := newRequestFixture(publicProfile("mock-1"))
	notifier.On("NewRequest", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("redis down"))

	_, err := svc.CreateRequest(context.Background(), validInput())
	require.NoError(t, err)
	assert.Equal(t, 1, requests.count())
}

func TestRequestService_CreateRequest_TargetMustBePublic(t *testing.T) {
	private := publicProfile("mock-1")
	private.IsPublic = false
	svc, requests, notifier := newRequestFixture(private)

	_, err := svc.CreateRequest(context.Background(), validInput())
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
	assert.Equal(t, "해당 반주자를 찾을 수 없습니다.", apperr.MessageOf(err))

	in := validInput()
	in.AccompanistUID = "ghost"
	_, err = svc.CreateRequest(context.Background(), in)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))

	assert.Equal(t, 0, requests.count())
	notifier.AssertNotCalled(t, "NewRequest", mock.Anything, mock.Anything, mock.Anything)
}

func TestRequestService_CreateRequest_InvalidPersistsNothing(t *testing.T) {
	svc, requests, _ := newRequestFixture(publicProfile("mock-1"))
	in := validInput()
	in.BudgetMin, in.BudgetMax = int64p(90000), int64p(60000)

	_, err := svc.CreateRequest(context.Background(), in)
	assert.True(t, apperr.Is(err, apperr.CodeInvalidArgument))
	assert.Equal(t, 0, requests.count())
}

func TestRequestService_ReadsRequireOwner(t *testing.T) {
	svc, _, notifier := newRequestFixture(publicProfile("mock-1"))
	notifier.On("NewRequest", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	ctx := context.Background()

	req, err := svc.CreateRequest(ctx, validInput())
	require.NoError(t, err)

	_, err = svc.GetRequest(ctx, req.ID, "")
	assert.True(t, apperr.Is(err, apperr.CodeUnauthenticated))

	_, err = svc.GetRequest(ctx, req.ID, "mock-2")
	assert.True(t, apperr.Is(err, apperr.CodePermissionDenied))

	_, err = svc.GetRequest(ctx, "missing", "mock-1")
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))

	detail, err := svc.GetRequest(ctx, req.ID, "mock-1")
	require.NoError(t, err)
	assert.Empty(t, detail.ContactEmail)
	assert.Nil(t, detail.Private)

	_, err = svc.GetContact(ctx, req.ID, "mock-1")
	assert.True(t, apperr.Is(err, apperr.CodeFailedPrecondition))

	list, err := svc.ListMyRequests(ctx, "mock-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	others, err := svc.ListMyRequests(ctx, "mock-2")
	require.NoError(t, err)
	assert.Empty(t, others)

	_, err = svc.ListMyRequests(ctx, "")
	assert.True(t, apperr.Is(err, apperr.CodeUnauthenticated))
}

func TestRequestService_ContactAfterUnlock(t *testing.T) {
	svc, requests, notifier := newRequestFixture(publicProfile("mock-1"))
	notifier.On("NewRequest", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	ctx := context.Background()

	req, err := svc.CreateRequest(ctx, validInput())
	require.NoError(t, err)
	_, err = requests.MarkAccepted(ctx, req.ID, nil, req.CreatedAt)
	require.NoError(t, err)

	email, err := svc.GetContact(ctx, req.ID, "mock-1")
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", email)

	detail, err := svc.GetRequest(ctx, req.ID, "mock-1")
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", detail.ContactEmail)

	_, err = svc.GetContact(ctx, req.ID, "mock-2")
	assert.True(t, apperr.Is(err, apperr.CodePermissionDenied))
}
