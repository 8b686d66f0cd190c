package engine

import (
	"context"
	"encoding/json"
	"time"

	"sealwire/crypto"
	"sealwire/directory"
	"sealwire/model"
	"sealwire/protocol/doubleratchet"
	"sealwire/protocol/x3dh"
	"sealwire/store"
)

// loadCachedOrPersisted returns the live ratchet for conversationID if one
// is already in memory or can be resumed from the store, and nil if no
// session exists yet either way.
func (e *Engine) loadCachedOrPersisted(ctx context.Context, conversationID string) (*doubleratchet.DoubleRatchet, *model.SessionRecord, error) {
	e.convMu.Lock()
	dr, cached := e.sessions[conversationID]
	e.convMu.Unlock()
	if cached {
		return dr, nil, nil
	}

	raw, err := e.store.GetSession(ctx, conversationID)
	if err == store.ErrNotFound {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, storageErr(err)
	}

	var record model.SessionRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, nil, storageErr(err)
	}
	dr, err = doubleratchet.Unmarshal(record.RatchetState)
	if err != nil {
		return nil, nil, storageErr(err)
	}

	e.convMu.Lock()
	e.sessions[conversationID] = dr
	e.convMu.Unlock()
	return dr, &record, nil
}

// initiateSession runs X3DH against remoteUserID's bundle and returns a
// fresh Alice-initial ratchet, plus the preamble to attach to the next
// outgoing envelope.
func (e *Engine) initiateSession(ctx context.Context, remoteUserID string) (*doubleratchet.DoubleRatchet, *wireX3DHPreamble, error) {
	bundle, err := directory.FetchBundle(ctx, e.dir, remoteUserID)
	if err == directory.ErrUserNotFound {
		return nil, nil, ErrBundleUnavailable
	}
	if err != nil {
		return nil, nil, directoryErr(err)
	}

	result, err := x3dh.Initiate(e.identity.DH, bundle)
	if err == x3dh.ErrBundleInvalid {
		e.log.WithField("remoteUser", remoteUserID).Warn("remote prekey bundle failed signature verification")
		return nil, nil, ErrBundleInvalid
	}
	if err != nil {
		return nil, nil, err
	}

	remoteSignedPrekey, err := crypto.ParseDHPublicJWK(bundle.SignedPrekeyPublic)
	if err != nil {
		return nil, nil, ErrBundleInvalid
	}

	dr, err := doubleratchet.InitAlice(doubleratchet.RootKey(result.SharedSecret), remoteSignedPrekey)
	if err != nil {
		return nil, nil, err
	}

	preamble := &wireX3DHPreamble{
		IdentityKey:     crypto.PublicJWK(e.identity.DH.Public),
		EphemeralKey:    crypto.PublicJWK(result.EphemeralKeyPair.Public),
		OneTimePrekeyID: result.UsedOneTimePrekeyID,
	}
	return dr, preamble, nil
}

// completeSession runs the X3DH responder step against an inbound
// preamble, consuming the referenced one-time prekey if any, and returns a
// fresh Bob-initial ratchet.
//
// The wire format carries no signed-prekey id in the preamble, so the
// responder resolves against the latest locally-stored signed prekey
// rather than the specific id the initiator saw — see the design notes on
// this open question.
func (e *Engine) completeSession(ctx context.Context, preamble *wireX3DHPreamble) (*doubleratchet.DoubleRatchet, error) {
	ids, err := e.store.ListSignedPrekeyIDs(ctx, e.userID)
	if err != nil {
		return nil, storageErr(err)
	}
	latest := latestID(ids)
	if latest == 0 {
		return nil, ErrUndecryptable
	}
	spk, err := e.getSignedPrekey(ctx, e.userID, latest)
	if err != nil {
		return nil, ErrUndecryptable
	}

	var otpkPair *crypto.DHKeyPair
	var consumedID uint32
	if preamble.OneTimePrekeyID != nil {
		otpk, err := e.getOneTimePrekey(ctx, e.userID, *preamble.OneTimePrekeyID)
		if err != nil {
			return nil, ErrUndecryptable
		}
		otpkPair = otpk.KeyPair
		consumedID = *preamble.OneTimePrekeyID
	}

	remoteIdentity, err := crypto.ParseDHPublicJWK(preamble.IdentityKey)
	if err != nil {
		return nil, ErrUndecryptable
	}
	remoteEphemeral, err := crypto.ParseDHPublicJWK(preamble.EphemeralKey)
	if err != nil {
		return nil, ErrUndecryptable
	}

	sharedSecret, err := x3dh.Complete(e.identity.DH, spk.KeyPair, otpkPair, remoteIdentity, remoteEphemeral)
	if err != nil {
		return nil, ErrUndecryptable
	}

	if otpkPair != nil {
		if err := e.store.DeleteOneTimePrekey(ctx, e.userID, consumedID); err != nil {
			e.log.WithError(err).Warn("failed to delete consumed one-time prekey")
		}
	}

	return doubleratchet.InitBob(doubleratchet.RootKey(sharedSecret), spk.KeyPair), nil
}

func (e *Engine) persistSession(ctx context.Context, conversationID, remoteUserID string, dr *doubleratchet.DoubleRatchet, existing *model.SessionRecord, now time.Time) error {
	state, err := dr.Marshal()
	if err != nil {
		return err
	}
	record := model.SessionRecord{
		ConversationID: conversationID,
		RemoteUserID:   remoteUserID,
		RatchetState:   state,
		X3DHCompleted:  true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if existing != nil {
		record.CreatedAt = existing.CreatedAt
	}

	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	if err := e.store.PutSession(ctx, conversationID, data); err != nil {
		return storageErr(err)
	}

	e.convMu.Lock()
	e.sessions[conversationID] = dr
	e.convMu.Unlock()
	return nil
}
