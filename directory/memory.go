package directory

import (
	"context"
	"sync"

	"sealwire/model"
)

// MemoryDirectory is an in-process Directory, used by orchestrator tests
// and any single-process deployment that doesn't need a shared directory.
type MemoryDirectory struct {
	mu        sync.Mutex
	identity  map[string]model.PublicIdentity
	signed    map[string]model.PublicSignedPrekey
	oneTime   map[string]map[uint32]model.PublicOneTimePrekey
}

// NewMemoryDirectory returns an empty in-memory Directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		identity: make(map[string]model.PublicIdentity),
		signed:   make(map[string]model.PublicSignedPrekey),
		oneTime:  make(map[string]map[uint32]model.PublicOneTimePrekey),
	}
}

func (d *MemoryDirectory) UpsertIdentity(_ context.Context, identity model.PublicIdentity) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.identity[identity.UserID] = identity
	return nil
}

func (d *MemoryDirectory) UpsertSignedPrekey(_ context.Context, userID string, spk model.PublicSignedPrekey) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.signed[userID] = spk
	return nil
}

func (d *MemoryDirectory) InsertOneTimePrekeys(_ context.Context, userID string, otpks []model.PublicOneTimePrekey) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	bucket, ok := d.oneTime[userID]
	if !ok {
		bucket = make(map[uint32]model.PublicOneTimePrekey)
		d.oneTime[userID] = bucket
	}
	for _, otpk := range otpks {
		bucket[otpk.ID] = otpk
	}
	return nil
}

func (d *MemoryDirectory) FetchIdentity(_ context.Context, userID string) (*model.PublicIdentity, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	identity, ok := d.identity[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &identity, nil
}

func (d *MemoryDirectory) FetchLatestSignedPrekey(_ context.Context, userID string) (*model.PublicSignedPrekey, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	spk, ok := d.signed[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &spk, nil
}

// ClaimOneTimePrekey picks an arbitrary unused key under the lock, which is
// sufficient for single-process atomicity; map iteration order is already
// randomized per Go's runtime, so no two concurrent callers racing for the
// same lock can observe the same key.
func (d *MemoryDirectory) ClaimOneTimePrekey(_ context.Context, userID string) (*model.PublicOneTimePrekey, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	bucket := d.oneTime[userID]
	for id, otpk := range bucket {
		delete(bucket, id)
		claimed := otpk
		return &claimed, nil
	}
	return nil, nil
}

func (d *MemoryDirectory) UnusedOneTimePrekeyCount(_ context.Context, userID string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.oneTime[userID]), nil
}
