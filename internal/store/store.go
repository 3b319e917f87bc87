// Package store persists accompanist profiles and service requests in MongoDB.
package store

import "errors"

var (
	// ErrNotFound is returned when no document matches.
	ErrNotFound = errors.New("document not found")
	// ErrNotPending is returned when a conditional transition finds the
	// request already out of the pending state.
	ErrNotPending = errors.New("request is no longer pending")
)
