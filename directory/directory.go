// Package directory is the client for the external key directory: the
// service, out of scope for this module, that stores and serves the public
// material peers need to bootstrap X3DH. This package only defines the
// narrow interface the orchestrator consumes and a Redis-backed client;
// the directory service itself lives elsewhere.
package directory

import (
	"context"
	"errors"

	"sealwire/model"
)

// ErrUserNotFound is returned by Fetch* when the directory holds no record
// for the requested user at all.
var ErrUserNotFound = errors.New("directory: no record for user")

// Directory is the narrow surface the orchestrator uses to publish and
// fetch public key material.
type Directory interface {
	UpsertIdentity(ctx context.Context, identity model.PublicIdentity) error
	UpsertSignedPrekey(ctx context.Context, userID string, spk model.PublicSignedPrekey) error
	InsertOneTimePrekeys(ctx context.Context, userID string, otpks []model.PublicOneTimePrekey) error

	FetchIdentity(ctx context.Context, userID string) (*model.PublicIdentity, error)
	FetchLatestSignedPrekey(ctx context.Context, userID string) (*model.PublicSignedPrekey, error)

	// ClaimOneTimePrekey atomically selects and removes one unused
	// one-time prekey for userID, equivalent to SELECT FOR UPDATE SKIP
	// LOCKED: concurrent callers never receive the same key. Returns nil,
	// nil when none remain.
	ClaimOneTimePrekey(ctx context.Context, userID string) (*model.PublicOneTimePrekey, error)

	// UnusedOneTimePrekeyCount reports how many one-time prekeys remain
	// available for userID, for refill threshold decisions.
	UnusedOneTimePrekeyCount(ctx context.Context, userID string) (int, error)
}

// FetchBundle assembles a PrekeyBundle for initiating X3DH against userID:
// identity, latest signed prekey, and one claimed one-time prekey if any
// remain. Returns ErrUserNotFound if the directory has no identity or no
// signed prekey on file.
func FetchBundle(ctx context.Context, dir Directory, userID string) (*model.PrekeyBundle, error) {
	identity, err := dir.FetchIdentity(ctx, userID)
	if err != nil {
		return nil, err
	}
	spk, err := dir.FetchLatestSignedPrekey(ctx, userID)
	if err != nil {
		return nil, err
	}

	otpk, err := dir.ClaimOneTimePrekey(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &model.PrekeyBundle{
		IdentityKey:        identity.DHKey,
		SigningKey:         identity.SigningKey,
		SignedPrekeyID:     spk.ID,
		SignedPrekeyPublic: spk.PublicKey,
		SignedPrekeySig:    spk.Signature,
		OneTimePrekey:      otpk,
	}, nil
}
