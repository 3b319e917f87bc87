package db

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

// Operation performs one attempt of a write. It should generate any fresh
// identifiers itself so that a retry uses new ones.
type Operation func() error

// RetryPredicate decides whether a failed attempt may be retried.
type RetryPredicate func(err error) bool

const DefaultMaxRetries = 3

// Try runs op with DefaultMaxRetries, retrying only on duplicate key errors.
func Try(ctx context.Context, op Operation) error {
	return WithRetries(ctx, op, DefaultMaxRetries, IsMongoDuplicateKeyError)
}

// WithRetries runs op once plus up to maxRetries more times while
// shouldRetry accepts the error. Backoff grows linearly from 50ms.
func WithRetries(ctx context.Context, op Operation, maxRetries int, shouldRetry RetryPredicate) error {
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err = op()
		if err == nil {
			return nil
		}
		if attempt == maxRetries || !shouldRetry(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(time.Duration(50*(attempt+1)) * time.Millisecond):
		}
	}
	return err
}

// IsMongoDuplicateKeyError reports whether err carries MongoDB error code 11000.
func IsMongoDuplicateKeyError(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}
