package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/changheecho2/banju/internal/db"
	"github.com/changheecho2/banju/internal/models"
	"github.com/changheecho2/banju/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func testDatabase(t *testing.T) *mongo.Database {
	t.Helper()
	database := utils.SetupTestDB(t)
	require.NoError(t, db.EnsureIndexes(context.Background(), database))
	return database
}

func newPendingRequest(uid string) *models.ServiceRequest {
	return &models.ServiceRequest{
		AccompanistUID: uid,
		Purpose:        models.PurposeAudition,
		Instrument:     "성악",
		Repertoire:     "Ave Maria",
		Schedule:       "3/10 14:00",
		Location:       "서울",
		BudgetMin:      50000,
		BudgetMax:      100000,
		Status:         models.RequestStatusPending,
		CreatedAt:      time.Now().UTC().Truncate(time.Millisecond),
		Private:        &models.PrivateContact{Email: "singer@example.com"},
	}
}

func TestRequestStore_CreateHidesPrivate(t *testing.T) {
	ctx := context.Background()
	s := NewRequestStore(testDatabase(t))

	req := newPendingRequest("mock-1")
	require.NoError(t, s.Create(ctx, req))
	require.NotEmpty(t, req.ID)

	got, err := s.FindByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Private)
	assert.Equal(t, models.RequestStatusPending, got.Status)
	assert.False(t, got.ContactUnlocked)

	list, err := s.ListByAccompanist(ctx, "mock-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Nil(t, list[0].Private)

	_, err = s.FindContact(ctx, req.ID, "mock-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRequestStore_AcceptUnlocksContact(t *testing.T) {
	ctx := context.Background()
	s := NewRequestStore(testDatabase(t))

	req := newPendingRequest("mock-1")
	require.NoError(t, s.Create(ctx, req))

	session := "cs_test_1"
	updated, err := s.MarkAccepted(ctx, req.ID, &session, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusAccepted, updated.Status)
	assert.True(t, updated.ContactUnlocked)
	require.NotNil(t, updated.PaidAt)
	require.NotNil(t, updated.PaymentSessionID)
	assert.Equal(t, session, *updated.PaymentSessionID)
	assert.Nil(t, updated.Private)

	email, err := s.FindContact(ctx, req.ID, "mock-1")
	require.NoError(t, err)
	assert.Equal(t, "singer@example.com", email)

	_, err = s.FindContact(ctx, req.ID, "mock-2")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.MarkRejected(ctx, req.ID, time.Now().UTC())
	assert.ErrorIs(t, err, ErrNotPending)
}

func TestRequestStore_TransitionMisses(t *testing.T) {
	ctx := context.Background()
	s := NewRequestStore(testDatabase(t))

	_, err := s.MarkAccepted(ctx, "missing", nil, time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.SetPaymentSession(ctx, "missing", "cs"), ErrNotFound)

	req := newPendingRequest("mock-1")
	require.NoError(t, s.Create(ctx, req))
	require.NoError(t, s.SetPaymentSession(ctx, req.ID, "cs_1"))

	rejected, err := s.MarkRejected(ctx, req.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusRejected, rejected.Status)
	assert.False(t, rejected.ContactUnlocked)
	assert.NotNil(t, rejected.RejectedAt)

	assert.ErrorIs(t, s.SetPaymentSession(ctx, req.ID, "cs_2"), ErrNotPending)
	_, err = s.FindContact(ctx, req.ID, "mock-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRequestStore_ConcurrentAcceptSingleWinner(t *testing.T) {
	ctx := context.Background()
	s := NewRequestStore(testDatabase(t))

	req := newPendingRequest("mock-1")
	require.NoError(t, s.Create(ctx, req))

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.MarkAccepted(ctx, req.ID, nil, time.Now().UTC())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	wins := 0
	for err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, ErrNotPending)
	}
	assert.Equal(t, 1, wins)
}

func TestRequestStore_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewRequestStore(testDatabase(t))

	older := newPendingRequest("mock-1")
	older.CreatedAt = time.Now().Add(-time.Hour).UTC().Truncate(time.Millisecond)
	newer := newPendingRequest("mock-1")
	other := newPendingRequest("mock-2")
	for _, r := range []*models.ServiceRequest{older, newer, other} {
		require.NoError(t, s.Create(ctx, r))
	}

	list, err := s.ListByAccompanist(ctx, "mock-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, older.ID, list[1].ID)
}

func TestAccompanistStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	database := testDatabase(t)
	s := NewAccompanistStore(database)
	now := time.Now().UTC().Truncate(time.Millisecond)

	created, err := s.GetOrCreate(ctx, models.NewEmptyProfile("acc-1", "acc@example.com", now))
	require.NoError(t, err)
	assert.False(t, created.IsPublic)

	again, err := s.GetOrCreate(ctx, models.NewEmptyProfile("acc-1", "other@example.com", now))
	require.NoError(t, err)
	assert.Equal(t, "acc@example.com", again.NotifyEmail)

	_, err = s.FindPublicByID(ctx, "acc-1")
	assert.ErrorIs(t, err, ErrNotFound)

	updated, err := s.Update(ctx, "acc-1", ProfileUpdate{
		DisplayName: "김반주",
		Region:      "서울",
		Specialties: []string{"성악"},
		Purposes:    []string{models.PurposeAudition},
		PriceMin:    50000,
		PriceMax:    100000,
		IsPublic:    true,
	}, now)
	require.NoError(t, err)
	assert.Equal(t, "김반주", updated.DisplayName)
	assert.Equal(t, []string{}, updated.PortfolioLinks)

	public, err := s.FindPublicByID(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, "서울", public.Region)

	_, err = s.Update(ctx, "nobody", ProfileUpdate{}, now)
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := database.Collection(db.CollectionAccompanists).CountDocuments(ctx, bson.M{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestAccompanistStore_ListPublicFilters(t *testing.T) {
	ctx := context.Background()
	s := NewAccompanistStore(testDatabase(t))
	now := time.Now().UTC()

	profiles := []*models.AccompanistProfile{
		{ID: "a", Region: "서울", Specialties: []string{"성악"}, Purposes: []string{models.PurposeAudition}, IsPublic: true, UpdatedAt: now},
		{ID: "b", Region: "부산", Specialties: []string{"바이올린"}, Purposes: []string{models.PurposeLesson}, IsPublic: true, UpdatedAt: now},
		{ID: "c", Region: "서울", Specialties: []string{"성악"}, Purposes: []string{models.PurposeAudition}, IsPublic: false, UpdatedAt: now},
	}
	for _, p := range profiles {
		require.NoError(t, s.Upsert(ctx, p))
	}

	all, err := s.ListPublic(ctx, models.ProfileFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	seoul, err := s.ListPublic(ctx, models.ProfileFilter{Region: "서울", Specialty: "성악"})
	require.NoError(t, err)
	require.Len(t, seoul, 1)
	assert.Equal(t, "a", seoul[0].ID)

	lesson, err := s.ListPublic(ctx, models.ProfileFilter{Purpose: models.PurposeLesson})
	require.NoError(t, err)
	require.Len(t, lesson, 1)
	assert.Equal(t, "b", lesson[0].ID)
}
