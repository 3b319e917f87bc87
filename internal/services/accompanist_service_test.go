package services

import (
	"context"
	"testing"

	"github.com/changheecho2/banju/internal/apperr"
	"github.com/changheecho2/banju/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validProfileInput() ProfileInput {
	return ProfileInput{
		DisplayName:    "김반주",
		Region:         "서울",
		Specialties:    []string{" 성악 ", ""},
		Purposes:       []string{models.PurposeAudition, models.PurposeLesson},
		PriceMin:       50000,
		PriceMax:       120000,
		PortfolioLinks: []string{},
		IsPublic:       true,
	}
}

func TestAccompanistService_GetMyProfileCreatesPrivate(t *testing.T) {
	svc := NewAccompanistService(newMemAccompanistStore(), nil)
	ctx := context.Background()

	_, err := svc.GetMyProfile(ctx, "", "")
	assert.True(t, apperr.Is(err, apperr.CodeUnauthenticated))

	p, err := svc.GetMyProfile(ctx, "acc-1", "acc@example.com")
	require.NoError(t, err)
	assert.Equal(t, "acc-1", p.ID)
	assert.False(t, p.IsPublic)
	assert.Equal(t, "acc@example.com", p.NotifyEmail)

	_, err = svc.GetPublicProfile(ctx, "acc-1")
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}

func TestAccompanistService_SaveProfile(t *testing.T) {
	svc := NewAccompanistService(newMemAccompanistStore(), nil)
	ctx := context.Background()

	p, err := svc.SaveProfile(ctx, "acc-1", "acc@example.com", validProfileInput())
	require.NoError(t, err)
	assert.Equal(t, []string{"성악"}, p.Specialties)
	assert.True(t, p.IsPublic)
	assert.Equal(t, "acc@example.com", p.NotifyEmail)

	public, err := svc.GetPublicProfile(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, "김반주", public.DisplayName)
}

func TestAccompanistService_SaveProfileValidation(t *testing.T) {
	svc := NewAccompanistService(newMemAccompanistStore(), nil)
	ctx := context.Background()

	_, err := svc.SaveProfile(ctx, "", "", validProfileInput())
	assert.True(t, apperr.Is(err, apperr.CodeUnauthenticated))

	in := validProfileInput()
	in.Region = " "
	_, err = svc.SaveProfile(ctx, "acc-1", "", in)
	assert.True(t, apperr.Is(err, apperr.CodeInvalidArgument))
	assert.Equal(t, "이름과 지역은 필수입니다.", apperr.MessageOf(err))

	in = validProfileInput()
	in.PriceMin, in.PriceMax = 200000, 100000
	_, err = svc.SaveProfile(ctx, "acc-1", "", in)
	assert.True(t, apperr.Is(err, apperr.CodeInvalidArgument))

	in = validProfileInput()
	in.Purposes = []string{"결혼식"}
	_, err = svc.SaveProfile(ctx, "acc-1", "", in)
	assert.True(t, apperr.Is(err, apperr.CodeInvalidArgument))
}

func TestAccompanistService_ListUsesCacheUntilSave(t *testing.T) {
	profiles := newMemAccompanistStore(publicProfile("mock-1"), publicProfile("mock-2"))
	svc := NewAccompanistService(profiles, newMemCache())
	ctx := context.Background()

	first, err := svc.ListPublicProfiles(ctx, models.ProfileFilter{Region: "서울"})
	require.NoError(t, err)
	assert.Len(t, first, 2)

	second, err := svc.ListPublicProfiles(ctx, models.ProfileFilter{Region: "서울"})
	require.NoError(t, err)
	require.Len(t, second, 2)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Empty(t, second[0].NotifyEmail, "cached entries never carry the notify email")
	assert.Equal(t, 1, profiles.lists)

	in := validProfileInput()
	in.IsPublic = false
	_, err = svc.SaveProfile(ctx, "mock-2", "", in)
	require.NoError(t, err)

	third, err := svc.ListPublicProfiles(ctx, models.ProfileFilter{Region: "서울"})
	require.NoError(t, err)
	assert.Len(t, third, 1)
	assert.Equal(t, 2, profiles.lists)

	_, err = svc.GetPublicProfile(ctx, "mock-2")
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}
