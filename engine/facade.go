package engine

import (
	"context"
	"sync"

	"sealwire/crypto"
	"sealwire/directory"
	"sealwire/protocol/doubleratchet"
	"sealwire/protocol/fingerprint"
)

// SafetyNumber derives the human-comparable fingerprint for remoteUserID's
// identity key against this engine's own identity.
func (e *Engine) SafetyNumber(ctx context.Context, remoteUserID string) (string, error) {
	if e.identity == nil {
		return "", ErrNotInitialized
	}
	remote, err := e.dir.FetchIdentity(ctx, remoteUserID)
	if err == directory.ErrUserNotFound {
		return "", ErrBundleUnavailable
	}
	if err != nil {
		return "", directoryErr(err)
	}
	remoteKey, err := crypto.ParseDHPublicJWK(remote.DHKey)
	if err != nil {
		return "", ErrBundleInvalid
	}
	return fingerprint.Compute(e.identity.DH.Public, remoteKey)
}

// HasSession reports whether a live or persisted ratchet already exists
// for conversationID.
func (e *Engine) HasSession(ctx context.Context, conversationID string) bool {
	e.convMu.Lock()
	_, cached := e.sessions[conversationID]
	e.convMu.Unlock()
	if cached {
		return true
	}
	_, err := e.store.GetSession(ctx, conversationID)
	return err == nil
}

// ClearAll wipes this user's identity, prekeys, metadata and session
// records, and drops the in-memory session cache. Called on sign-out.
func (e *Engine) ClearAll(ctx context.Context) error {
	if e.identity == nil {
		return ErrNotInitialized
	}
	if err := e.store.ClearAll(ctx, e.userID); err != nil {
		return storageErr(err)
	}

	e.convMu.Lock()
	e.sessions = make(map[string]*doubleratchet.DoubleRatchet)
	e.convLocks = make(map[string]*sync.Mutex)
	e.convMu.Unlock()

	e.identity = nil
	return nil
}
