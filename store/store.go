// Package store defines the durable key-material store contract: single
// record put/get/delete across the five collections of the data model, and
// an implementation backed by Redis for production use.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by every Get when the requested record does not
// exist. It carries no information about which collection was queried;
// callers already know that from which method they called.
var ErrNotFound = errors.New("store: record not found")

// KeyStore is the durable local key-material store. It performs no
// cryptographic transformations; every value crossing this interface is
// already an opaque serialized blob (JWK-equivalent for keys, JSON for
// records) produced by the model and crypto packages.
//
// Implementations must make writes observable after process restart and
// must not let concurrent operations on disjoint keys interfere with one
// another.
type KeyStore interface {
	PutIdentity(ctx context.Context, userID string, data []byte) error
	GetIdentity(ctx context.Context, userID string) ([]byte, error)
	DeleteIdentity(ctx context.Context, userID string) error

	PutSignedPrekey(ctx context.Context, userID string, id uint32, data []byte) error
	GetSignedPrekey(ctx context.Context, userID string, id uint32) ([]byte, error)
	DeleteSignedPrekey(ctx context.Context, userID string, id uint32) error
	ListSignedPrekeyIDs(ctx context.Context, userID string) ([]uint32, error)

	PutOneTimePrekey(ctx context.Context, userID string, id uint32, data []byte) error
	GetOneTimePrekey(ctx context.Context, userID string, id uint32) ([]byte, error)
	DeleteOneTimePrekey(ctx context.Context, userID string, id uint32) error
	ListOneTimePrekeyIDs(ctx context.Context, userID string) ([]uint32, error)

	PutSession(ctx context.Context, conversationID string, data []byte) error
	GetSession(ctx context.Context, conversationID string) ([]byte, error)
	DeleteSession(ctx context.Context, conversationID string) error

	PutMetadata(ctx context.Context, userID, name string, data []byte) error
	GetMetadata(ctx context.Context, userID, name string) ([]byte, error)

	// ClearAll removes every record belonging to userID across all five
	// collections, including session records addressed by conversation id
	// that this store has tracked for that user. Called on sign-out; must
	// leave no residual secret bytes readable through this interface.
	ClearAll(ctx context.Context, userID string) error
}
