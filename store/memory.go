package store

import (
	"context"
	"sync"
)

type spkKey struct {
	userID string
	id     uint32
}

type metaKey struct {
	userID string
	name   string
}

// MemoryStore is an in-process KeyStore, useful for tests and for a
// single-process CLI that does not need cross-restart durability.
type MemoryStore struct {
	mu sync.Mutex

	identity     map[string][]byte
	signedPrekey map[spkKey][]byte
	otpk         map[spkKey][]byte
	session      map[string][]byte
	metadata     map[metaKey][]byte
}

// NewMemoryStore returns an empty in-memory KeyStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		identity:     make(map[string][]byte),
		signedPrekey: make(map[spkKey][]byte),
		otpk:         make(map[spkKey][]byte),
		session:      make(map[string][]byte),
		metadata:     make(map[metaKey][]byte),
	}
}

func (m *MemoryStore) PutIdentity(_ context.Context, userID string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identity[userID] = append([]byte{}, data...)
	return nil
}

func (m *MemoryStore) GetIdentity(_ context.Context, userID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.identity[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return data, nil
}

func (m *MemoryStore) DeleteIdentity(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.identity, userID)
	return nil
}

func (m *MemoryStore) PutSignedPrekey(_ context.Context, userID string, id uint32, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signedPrekey[spkKey{userID, id}] = append([]byte{}, data...)
	return nil
}

func (m *MemoryStore) GetSignedPrekey(_ context.Context, userID string, id uint32) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.signedPrekey[spkKey{userID, id}]
	if !ok {
		return nil, ErrNotFound
	}
	return data, nil
}

func (m *MemoryStore) DeleteSignedPrekey(_ context.Context, userID string, id uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.signedPrekey, spkKey{userID, id})
	return nil
}

func (m *MemoryStore) ListSignedPrekeyIDs(_ context.Context, userID string) ([]uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []uint32
	for k := range m.signedPrekey {
		if k.userID == userID {
			ids = append(ids, k.id)
		}
	}
	return ids, nil
}

func (m *MemoryStore) PutOneTimePrekey(_ context.Context, userID string, id uint32, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.otpk[spkKey{userID, id}] = append([]byte{}, data...)
	return nil
}

func (m *MemoryStore) GetOneTimePrekey(_ context.Context, userID string, id uint32) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.otpk[spkKey{userID, id}]
	if !ok {
		return nil, ErrNotFound
	}
	return data, nil
}

func (m *MemoryStore) DeleteOneTimePrekey(_ context.Context, userID string, id uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.otpk, spkKey{userID, id})
	return nil
}

func (m *MemoryStore) ListOneTimePrekeyIDs(_ context.Context, userID string) ([]uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []uint32
	for k := range m.otpk {
		if k.userID == userID {
			ids = append(ids, k.id)
		}
	}
	return ids, nil
}

func (m *MemoryStore) PutSession(_ context.Context, conversationID string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session[conversationID] = append([]byte{}, data...)
	return nil
}

func (m *MemoryStore) GetSession(_ context.Context, conversationID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.session[conversationID]
	if !ok {
		return nil, ErrNotFound
	}
	return data, nil
}

func (m *MemoryStore) DeleteSession(_ context.Context, conversationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.session, conversationID)
	return nil
}

func (m *MemoryStore) PutMetadata(_ context.Context, userID, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metadata[metaKey{userID, name}] = append([]byte{}, data...)
	return nil
}

func (m *MemoryStore) GetMetadata(_ context.Context, userID, name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.metadata[metaKey{userID, name}]
	if !ok {
		return nil, ErrNotFound
	}
	return data, nil
}

// ClearAll drops every record for userID, including every session this
// process-local store has ever written — a MemoryStore is single-tenant in
// practice, so sign-out clears the whole session table along with it.
func (m *MemoryStore) ClearAll(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.identity, userID)
	for k := range m.signedPrekey {
		if k.userID == userID {
			delete(m.signedPrekey, k)
		}
	}
	for k := range m.otpk {
		if k.userID == userID {
			delete(m.otpk, k)
		}
	}
	for k := range m.metadata {
		if k.userID == userID {
			delete(m.metadata, k)
		}
	}
	m.session = make(map[string][]byte)
	return nil
}
