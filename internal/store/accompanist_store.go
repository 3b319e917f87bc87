package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/changheecho2/banju/internal/db"
	"github.com/changheecho2/banju/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ProfileUpdate carries the owner-editable fields of a profile.
type ProfileUpdate struct {
	DisplayName    string
	Region         string
	Specialties    []string
	Purposes       []string
	PriceMin       int64
	PriceMax       int64
	Bio            string
	Education      string
	Experience     string
	PortfolioLinks []string
	AvailableSlots string
	IsPublic       bool
}

// IAccompanistStore is the persistence boundary for accompanist profiles.
type IAccompanistStore interface {
	FindByID(ctx context.Context, uid string) (*models.AccompanistProfile, error)
	FindPublicByID(ctx context.Context, uid string) (*models.AccompanistProfile, error)
	ListPublic(ctx context.Context, filter models.ProfileFilter) ([]models.AccompanistProfile, error)
	// GetOrCreate returns the stored profile, inserting initial when absent.
	GetOrCreate(ctx context.Context, initial *models.AccompanistProfile) (*models.AccompanistProfile, error)
	Update(ctx context.Context, uid string, upd ProfileUpdate, now time.Time) (*models.AccompanistProfile, error)
	// Upsert replaces the whole profile. Used by the dev seed.
	Upsert(ctx context.Context, profile *models.AccompanistProfile) error
}

type accompanistStore struct {
	coll *mongo.Collection
}

// NewAccompanistStore creates a MongoDB backed IAccompanistStore.
func NewAccompanistStore(database *mongo.Database) IAccompanistStore {
	return &accompanistStore{coll: database.Collection(db.CollectionAccompanists)}
}

func (s *accompanistStore) findOne(ctx context.Context, filter bson.M) (*models.AccompanistProfile, error) {
	var p models.AccompanistProfile
	if err := s.coll.FindOne(ctx, filter).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error finding accompanist: %w", err)
	}
	return &p, nil
}

func (s *accompanistStore) FindByID(ctx context.Context, uid string) (*models.AccompanistProfile, error) {
	return s.findOne(ctx, bson.M{"_id": uid})
}

func (s *accompanistStore) FindPublicByID(ctx context.Context, uid string) (*models.AccompanistProfile, error) {
	return s.findOne(ctx, bson.M{"_id": uid, "is_public": true})
}

func (s *accompanistStore) ListPublic(ctx context.Context, f models.ProfileFilter) ([]models.AccompanistProfile, error) {
	filter := bson.M{"is_public": true}
	if f.Region != "" {
		filter["region"] = f.Region
	}
	// Equality on an array field matches any element.
	if f.Purpose != "" {
		filter["purposes"] = f.Purpose
	}
	if f.Specialty != "" {
		filter["specialties"] = f.Specialty
	}

	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing accompanists: %w", err)
	}
	defer cursor.Close(ctx)

	profiles := []models.AccompanistProfile{}
	if err := cursor.All(ctx, &profiles); err != nil {
		return nil, fmt.Errorf("error decoding accompanists: %w", err)
	}
	return profiles, nil
}

func (s *accompanistStore) GetOrCreate(ctx context.Context, initial *models.AccompanistProfile) (*models.AccompanistProfile, error) {
	p, err := s.FindByID(ctx, initial.ID)
	if !errors.Is(err, ErrNotFound) {
		return p, err
	}
	if _, err := s.coll.InsertOne(ctx, initial); err != nil {
		// A concurrent first access won the insert.
		if db.IsMongoDuplicateKeyError(err) {
			return s.FindByID(ctx, initial.ID)
		}
		return nil, fmt.Errorf("failed to create accompanist %s: %w", initial.ID, err)
	}
	return initial, nil
}

func (s *accompanistStore) Update(ctx context.Context, uid string, upd ProfileUpdate, now time.Time) (*models.AccompanistProfile, error) {
	set := bson.M{
		"display_name":    upd.DisplayName,
		"region":          upd.Region,
		"specialties":     nonNil(upd.Specialties),
		"purposes":        nonNil(upd.Purposes),
		"price_min":       upd.PriceMin,
		"price_max":       upd.PriceMax,
		"bio":             upd.Bio,
		"education":       upd.Education,
		"experience":      upd.Experience,
		"portfolio_links": nonNil(upd.PortfolioLinks),
		"available_slots": upd.AvailableSlots,
		"is_public":       upd.IsPublic,
		"updated_at":      now,
	}

	var p models.AccompanistProfile
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": uid},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update accompanist %s: %w", uid, err)
	}
	return &p, nil
}

func (s *accompanistStore) Upsert(ctx context.Context, profile *models.AccompanistProfile) error {
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": profile.ID}, profile, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert accompanist %s: %w", profile.ID, err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
