// Package engine is the protocol orchestrator: the public facade the chat
// layer drives. It owns identity bootstrap and rotation, the per-conversation
// session cache, and the translation between wire envelopes and the
// underlying X3DH/Double Ratchet primitives.
package engine

import (
	"context"
	cryptorand "crypto/rand"
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"sealwire/configs"
	"sealwire/crypto"
	"sealwire/directory"
	"sealwire/model"
	"sealwire/protocol/doubleratchet"
	"sealwire/protocol/x3dh"
	"sealwire/store"
)

const (
	metaNextSignedID   = "next-signed-id"
	metaNextOneTimeID  = "next-one-time-id"
	metaLastRotation   = "last-rotation"
)

// Engine is one local user's live protocol state: identity, in-memory
// session cache, and the locks that keep conversation and account
// mutations from interleaving unsafely. The zero value is not usable;
// construct with New and call Initialize before Encrypt or Decrypt.
type Engine struct {
	store store.KeyStore
	dir   directory.Directory
	clock func() time.Time
	log   *logrus.Logger

	userID string

	userMu   sync.Mutex // serializes identity/signed-prekey writes (rotation, refill)
	identity *model.Identity

	convMu    sync.Mutex // guards convLocks and sessions maps themselves
	convLocks map[string]*sync.Mutex
	sessions  map[string]*doubleratchet.DoubleRatchet
}

// New builds an Engine over the given store and directory. clock defaults
// to time.Now; pass a fixed function in tests to control rotation decisions.
func New(ks store.KeyStore, dir directory.Directory, clock func() time.Time, log *logrus.Logger) *Engine {
	if clock == nil {
		clock = time.Now
	}
	if log == nil {
		log = logrus.New()
	}
	return &Engine{
		store:     ks,
		dir:       dir,
		clock:     clock,
		log:       log,
		convLocks: make(map[string]*sync.Mutex),
		sessions:  make(map[string]*doubleratchet.DoubleRatchet),
	}
}

func (e *Engine) lockFor(conversationID string) *sync.Mutex {
	e.convMu.Lock()
	defer e.convMu.Unlock()
	l, ok := e.convLocks[conversationID]
	if !ok {
		l = &sync.Mutex{}
		e.convLocks[conversationID] = l
	}
	return l
}

// Initialize bootstraps or resumes userID's identity: generates it on first
// use, re-publishes public material if the directory has forgotten it, and
// runs the rotation and refill checks.
func (e *Engine) Initialize(ctx context.Context, userID string) error {
	e.userMu.Lock()
	defer e.userMu.Unlock()

	e.userID = userID

	raw, err := e.store.GetIdentity(ctx, userID)
	switch {
	case err == store.ErrNotFound:
		if err := e.bootstrap(ctx, userID); err != nil {
			return err
		}
	case err != nil:
		return storageErr(err)
	default:
		var identity model.Identity
		if err := json.Unmarshal(raw, &identity); err != nil {
			return storageErr(err)
		}
		e.identity = &identity
		if err := e.republishIfForgotten(ctx); err != nil {
			return err
		}
	}

	if err := e.checkRotation(ctx); err != nil {
		e.log.WithError(err).Warn("signed prekey rotation check failed, will retry next initialize")
	}
	if err := e.checkRefill(ctx); err != nil {
		e.log.WithError(err).Warn("one-time prekey refill check failed, will retry next initialize")
	}
	return nil
}

func (e *Engine) bootstrap(ctx context.Context, userID string) error {
	dhPair, err := crypto.GenerateDHKeyPair()
	if err != nil {
		return err
	}
	signingPair, err := crypto.GenerateSigningKeyPair()
	if err != nil {
		return err
	}
	registrationID, err := randomRegistrationID()
	if err != nil {
		return err
	}

	identity := &model.Identity{
		UserID:         userID,
		DH:             dhPair,
		Signing:        signingPair,
		RegistrationID: registrationID,
		CreatedAt:      e.clock(),
	}

	spk, err := x3dh.GenerateSignedPrekey(signingPair, 1)
	if err != nil {
		return err
	}
	spk.CreatedAt = e.clock()

	otpks, err := x3dh.GenerateOneTimePrekeys(1, configs.InitialOneTimePrekeyCount)
	if err != nil {
		return err
	}

	identityData, err := json.Marshal(identity)
	if err != nil {
		return err
	}
	if err := e.store.PutIdentity(ctx, userID, identityData); err != nil {
		return storageErr(err)
	}
	if err := e.putSignedPrekey(ctx, userID, spk); err != nil {
		return err
	}
	for _, otpk := range otpks {
		if err := e.putOneTimePrekey(ctx, userID, otpk); err != nil {
			return err
		}
	}

	if err := e.setMetaUint32(ctx, metaNextSignedID, 2); err != nil {
		return err
	}
	if err := e.setMetaUint32(ctx, metaNextOneTimeID, uint32(configs.InitialOneTimePrekeyCount+1)); err != nil {
		return err
	}
	if err := e.setMetaTime(ctx, metaLastRotation, e.clock()); err != nil {
		return err
	}

	e.identity = identity

	if err := e.dir.UpsertIdentity(ctx, identity.Public()); err != nil {
		return directoryErr(err)
	}
	if err := e.dir.UpsertSignedPrekey(ctx, userID, spk.Public()); err != nil {
		return directoryErr(err)
	}
	publics := make([]model.PublicOneTimePrekey, len(otpks))
	for i, otpk := range otpks {
		publics[i] = otpk.Public()
	}
	if err := e.dir.InsertOneTimePrekeys(ctx, userID, publics); err != nil {
		return directoryErr(err)
	}
	return nil
}

// republishIfForgotten re-publishes this user's public material when the
// directory, not local state, shows no identity on file for them.
func (e *Engine) republishIfForgotten(ctx context.Context) error {
	_, err := e.dir.FetchIdentity(ctx, e.userID)
	if err == nil {
		return nil
	}
	if err != directory.ErrUserNotFound {
		return directoryErr(err)
	}

	if err := e.dir.UpsertIdentity(ctx, e.identity.Public()); err != nil {
		return directoryErr(err)
	}

	ids, err := e.store.ListSignedPrekeyIDs(ctx, e.userID)
	if err != nil {
		return storageErr(err)
	}
	latest := latestID(ids)
	if latest > 0 {
		spk, err := e.getSignedPrekey(ctx, e.userID, latest)
		if err != nil {
			return err
		}
		if err := e.dir.UpsertSignedPrekey(ctx, e.userID, spk.Public()); err != nil {
			return directoryErr(err)
		}
	}

	otpkIDs, err := e.store.ListOneTimePrekeyIDs(ctx, e.userID)
	if err != nil {
		return storageErr(err)
	}
	var publics []model.PublicOneTimePrekey
	for _, id := range otpkIDs {
		otpk, err := e.getOneTimePrekey(ctx, e.userID, id)
		if err != nil {
			return err
		}
		publics = append(publics, otpk.Public())
	}
	if len(publics) > 0 {
		if err := e.dir.InsertOneTimePrekeys(ctx, e.userID, publics); err != nil {
			return directoryErr(err)
		}
	}
	return nil
}

func (e *Engine) checkRotation(ctx context.Context) error {
	lastRotation, err := e.getMetaTime(ctx, metaLastRotation)
	if err != nil {
		return err
	}
	if e.clock().Sub(lastRotation) < configs.SignedPrekeyRotationPeriod {
		return nil
	}

	nextID, err := e.getMetaUint32(ctx, metaNextSignedID)
	if err != nil {
		return err
	}
	spk, err := x3dh.GenerateSignedPrekey(e.identity.Signing, nextID)
	if err != nil {
		return err
	}
	spk.CreatedAt = e.clock()

	if err := e.putSignedPrekey(ctx, e.userID, spk); err != nil {
		return err
	}
	if err := e.dir.UpsertSignedPrekey(ctx, e.userID, spk.Public()); err != nil {
		return directoryErr(err)
	}
	if err := e.setMetaUint32(ctx, metaNextSignedID, nextID+1); err != nil {
		return err
	}
	return e.setMetaTime(ctx, metaLastRotation, e.clock())
}

func (e *Engine) checkRefill(ctx context.Context) error {
	count, err := e.dir.UnusedOneTimePrekeyCount(ctx, e.userID)
	if err != nil {
		return directoryErr(err)
	}
	if count >= configs.OneTimePrekeyLowWaterMark {
		return nil
	}

	nextID, err := e.getMetaUint32(ctx, metaNextOneTimeID)
	if err != nil {
		return err
	}
	toGenerate := configs.OneTimePrekeyTargetPoolSize - count
	otpks, err := x3dh.GenerateOneTimePrekeys(nextID, toGenerate)
	if err != nil {
		return err
	}
	publics := make([]model.PublicOneTimePrekey, len(otpks))
	for i, otpk := range otpks {
		if err := e.putOneTimePrekey(ctx, e.userID, otpk); err != nil {
			return err
		}
		publics[i] = otpk.Public()
	}
	if err := e.dir.InsertOneTimePrekeys(ctx, e.userID, publics); err != nil {
		return directoryErr(err)
	}
	return e.setMetaUint32(ctx, metaNextOneTimeID, nextID+uint32(toGenerate))
}

func latestID(ids []uint32) uint32 {
	var max uint32
	for _, id := range ids {
		if id > max {
			max = id
		}
	}
	return max
}

func randomRegistrationID() (uint16, error) {
	b := make([]byte, 2)
	if _, err := cryptorand.Read(b); err != nil {
		return 0, err
	}
	v := uint16(b[0])<<8 | uint16(b[1])
	return v & (1<<configs.RegistrationIDBits - 1), nil
}
