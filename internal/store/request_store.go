package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/changheecho2/banju/internal/db"
	"github.com/changheecho2/banju/internal/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// IRequestStore is the persistence boundary for service requests.
type IRequestStore interface {
	// Create assigns a fresh ID and inserts the request together with its
	// private contact in a single write.
	Create(ctx context.Context, req *models.ServiceRequest) error
	FindByID(ctx context.Context, id string) (*models.ServiceRequest, error)
	ListByAccompanist(ctx context.Context, uid string) ([]models.ServiceRequest, error)
	// FindContact returns the contact email of a request owned by ownerUID,
	// but only once the contact is unlocked.
	FindContact(ctx context.Context, id, ownerUID string) (string, error)
	SetPaymentSession(ctx context.Context, id, sessionID string) error
	MarkAccepted(ctx context.Context, id string, sessionID *string, paidAt time.Time) (*models.ServiceRequest, error)
	MarkRejected(ctx context.Context, id string, rejectedAt time.Time) (*models.ServiceRequest, error)
}

type requestStore struct {
	coll *mongo.Collection
}

// NewRequestStore creates a MongoDB backed IRequestStore.
func NewRequestStore(database *mongo.Database) IRequestStore {
	return &requestStore{coll: database.Collection(db.CollectionRequests)}
}

var withoutPrivate = bson.M{"private": 0}

func (s *requestStore) Create(ctx context.Context, req *models.ServiceRequest) error {
	err := db.Try(ctx, func() error {
		req.ID = uuid.NewString()
		_, err := s.coll.InsertOne(ctx, req)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to insert request for accompanist %s: %w", req.AccompanistUID, err)
	}
	return nil
}

func (s *requestStore) FindByID(ctx context.Context, id string) (*models.ServiceRequest, error) {
	var req models.ServiceRequest
	err := s.coll.FindOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(withoutPrivate)).Decode(&req)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error finding request %s: %w", id, err)
	}
	return &req, nil
}

func (s *requestStore) ListByAccompanist(ctx context.Context, uid string) ([]models.ServiceRequest, error) {
	opts := options.Find().
		SetProjection(withoutPrivate).
		SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.coll.Find(ctx, bson.M{"accompanist_uid": uid}, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing requests for %s: %w", uid, err)
	}
	defer cursor.Close(ctx)

	requests := []models.ServiceRequest{}
	if err := cursor.All(ctx, &requests); err != nil {
		return nil, fmt.Errorf("error decoding requests for %s: %w", uid, err)
	}
	return requests, nil
}

func (s *requestStore) FindContact(ctx context.Context, id, ownerUID string) (string, error) {
	filter := bson.M{
		"_id":              id,
		"accompanist_uid":  ownerUID,
		"contact_unlocked": true,
	}
	var doc struct {
		Private *models.PrivateContact `bson:"private"`
	}
	opts := options.FindOne().SetProjection(bson.M{"private.contact_email": 1})
	if err := s.coll.FindOne(ctx, filter, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("error reading contact of request %s: %w", id, err)
	}
	if doc.Private == nil {
		return "", ErrNotFound
	}
	return doc.Private.Email, nil
}

func (s *requestStore) SetPaymentSession(ctx context.Context, id, sessionID string) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.RequestStatusPending},
		bson.M{"$set": bson.M{"payment_session_id": sessionID}},
	)
	if err != nil {
		return fmt.Errorf("failed to record payment session on request %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return s.resolveMiss(ctx, id)
	}
	return nil
}

func (s *requestStore) MarkAccepted(ctx context.Context, id string, sessionID *string, paidAt time.Time) (*models.ServiceRequest, error) {
	set := bson.M{
		"status":           models.RequestStatusAccepted,
		"contact_unlocked": true,
		"paid_at":          paidAt,
	}
	if sessionID != nil {
		set["payment_session_id"] = *sessionID
	}
	return s.transition(ctx, id, set)
}

func (s *requestStore) MarkRejected(ctx context.Context, id string, rejectedAt time.Time) (*models.ServiceRequest, error) {
	return s.transition(ctx, id, bson.M{
		"status":      models.RequestStatusRejected,
		"rejected_at": rejectedAt,
	})
}

// transition applies set only while the request is still pending.
func (s *requestStore) transition(ctx context.Context, id string, set bson.M) (*models.ServiceRequest, error) {
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(withoutPrivate)

	var updated models.ServiceRequest
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": models.RequestStatusPending},
		bson.M{"$set": set},
		opts,
	).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, s.resolveMiss(ctx, id)
		}
		return nil, fmt.Errorf("failed to update request %s: %w", id, err)
	}
	return &updated, nil
}

// resolveMiss tells a missing request apart from one that already left pending.
func (s *requestStore) resolveMiss(ctx context.Context, id string) error {
	n, err := s.coll.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("error checking request %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrNotPending
}
