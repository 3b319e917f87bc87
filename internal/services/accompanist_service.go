package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/changheecho2/banju/internal/apperr"
	"github.com/changheecho2/banju/internal/models"
	"github.com/changheecho2/banju/internal/store"
)

// IProfileCache caches public profile reads. Satisfied by *cache.JSONCache.
type IProfileCache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any) error
	Delete(ctx context.Context, keys ...string) error
	DeleteMatching(ctx context.Context, prefix string) error
}

// ProfileInput is the owner-editable part of a profile as sent by saveProfile.
type ProfileInput struct {
	DisplayName    string   `json:"displayName"`
	Region         string   `json:"region"`
	Specialties    []string `json:"specialties"`
	Purposes       []string `json:"purposes"`
	PriceMin       int64    `json:"priceMin"`
	PriceMax       int64    `json:"priceMax"`
	Bio            string   `json:"bio"`
	Education      string   `json:"education"`
	Experience     string   `json:"experience"`
	PortfolioLinks []string `json:"portfolioLinks"`
	AvailableSlots string   `json:"availableSlots"`
	IsPublic       bool     `json:"isPublic"`
}

// IAccompanistService defines accompanist profile operations.
type IAccompanistService interface {
	// GetMyProfile returns the caller's profile, creating a private empty one on first access.
	GetMyProfile(ctx context.Context, uid, email string) (*models.AccompanistProfile, error)
	SaveProfile(ctx context.Context, uid, email string, in ProfileInput) (*models.AccompanistProfile, error)
	GetPublicProfile(ctx context.Context, uid string) (*models.AccompanistProfile, error)
	ListPublicProfiles(ctx context.Context, filter models.ProfileFilter) ([]models.AccompanistProfile, error)
}

type accompanistService struct {
	accompanists store.IAccompanistStore
	cache        IProfileCache
	now          func() time.Time
}

// NewAccompanistService creates a new AccompanistService. A nil cache disables caching.
func NewAccompanistService(accompanists store.IAccompanistStore, cache IProfileCache) IAccompanistService {
	return &accompanistService{
		accompanists: accompanists,
		cache:        cache,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *accompanistService) GetMyProfile(ctx context.Context, uid, email string) (*models.AccompanistProfile, error) {
	if uid == "" {
		return nil, apperr.New(apperr.CodeUnauthenticated, apperr.MsgLoginRequired)
	}
	profile, err := s.accompanists.GetOrCreate(ctx, models.NewEmptyProfile(uid, email, s.now()))
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "프로필 조회에 실패했습니다.", err)
	}
	return profile, nil
}

func (s *accompanistService) SaveProfile(ctx context.Context, uid, email string, in ProfileInput) (*models.AccompanistProfile, error) {
	if uid == "" {
		return nil, apperr.New(apperr.CodeUnauthenticated, apperr.MsgLoginRequired)
	}
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	in.Region = strings.TrimSpace(in.Region)
	if in.DisplayName == "" || in.Region == "" {
		return nil, apperr.New(apperr.CodeInvalidArgument, "이름과 지역은 필수입니다.")
	}
	if in.PriceMin < 0 || in.PriceMin > in.PriceMax {
		return nil, apperr.New(apperr.CodeInvalidArgument, "가격 범위를 확인해 주세요.")
	}
	for _, p := range in.Purposes {
		if !models.IsValidPurpose(p) {
			return nil, apperr.New(apperr.CodeInvalidArgument, fmt.Sprintf("알 수 없는 목적입니다: %s", p))
		}
	}

	// Saving before the dashboard was ever opened still needs a document to update.
	if _, err := s.accompanists.GetOrCreate(ctx, models.NewEmptyProfile(uid, email, s.now())); err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "프로필 저장에 실패했습니다.", err)
	}
	profile, err := s.accompanists.Update(ctx, uid, store.ProfileUpdate{
		DisplayName:    in.DisplayName,
		Region:         in.Region,
		Specialties:    trimAll(in.Specialties),
		Purposes:       in.Purposes,
		PriceMin:       in.PriceMin,
		PriceMax:       in.PriceMax,
		Bio:            in.Bio,
		Education:      in.Education,
		Experience:     in.Experience,
		PortfolioLinks: trimAll(in.PortfolioLinks),
		AvailableSlots: in.AvailableSlots,
		IsPublic:       in.IsPublic,
	}, s.now())
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "프로필 저장에 실패했습니다.", err)
	}

	s.invalidate(ctx, uid)
	return profile, nil
}

func (s *accompanistService) GetPublicProfile(ctx context.Context, uid string) (*models.AccompanistProfile, error) {
	key := "profile:" + uid
	var cached models.AccompanistProfile
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	profile, err := s.accompanists.FindPublicByID(ctx, uid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.New(apperr.CodeNotFound, msgAccompanistNotFound)
		}
		return nil, apperr.Wrap(apperr.CodeInternal, "반주자 조회에 실패했습니다.", err)
	}
	s.cacheSet(ctx, key, profile)
	return profile, nil
}

func (s *accompanistService) ListPublicProfiles(ctx context.Context, filter models.ProfileFilter) ([]models.AccompanistProfile, error) {
	key := fmt.Sprintf("list:%s|%s|%s", filter.Region, filter.Purpose, filter.Specialty)
	var cached []models.AccompanistProfile
	if s.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	profiles, err := s.accompanists.ListPublic(ctx, filter)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "반주자 목록 조회에 실패했습니다.", err)
	}
	s.cacheSet(ctx, key, profiles)
	return profiles, nil
}

// Cache failures degrade to direct reads.
func (s *accompanistService) cacheGet(ctx context.Context, key string, dst any) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.Get(ctx, key, dst)
	if err != nil {
		log.Printf("WARN: profile cache read %s: %v", key, err)
		return false
	}
	return hit
}

func (s *accompanistService) cacheSet(ctx context.Context, key string, v any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, v); err != nil {
		log.Printf("WARN: profile cache write %s: %v", key, err)
	}
}

func (s *accompanistService) invalidate(ctx context.Context, uid string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, "profile:"+uid); err != nil {
		log.Printf("WARN: profile cache invalidate %s: %v", uid, err)
	}
	if err := s.cache.DeleteMatching(ctx, "list:"); err != nil {
		log.Printf("WARN: profile list cache invalidate: %v", err)
	}
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
