package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreImplementsKeyStoreContract(t *testing.T) {
	testKeyStoreContract(t, NewMemoryStore())
}

// testKeyStoreContract exercises the behavior every KeyStore implementation
// must provide, independent of backing storage.
func testKeyStoreContract(t *testing.T, s KeyStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("identity put/get/delete", func(t *testing.T) {
		_, err := s.GetIdentity(ctx, "alice")
		assert.ErrorIs(t, err, ErrNotFound)

		require.NoError(t, s.PutIdentity(ctx, "alice", []byte("identity-blob")))
		data, err := s.GetIdentity(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, []byte("identity-blob"), data)

		require.NoError(t, s.DeleteIdentity(ctx, "alice"))
		_, err = s.GetIdentity(ctx, "alice")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("signed prekeys are keyed by (user, id) and enumerable", func(t *testing.T) {
		require.NoError(t, s.PutSignedPrekey(ctx, "bob", 1, []byte("spk-1")))
		require.NoError(t, s.PutSignedPrekey(ctx, "bob", 2, []byte("spk-2")))

		data, err := s.GetSignedPrekey(ctx, "bob", 1)
		require.NoError(t, err)
		assert.Equal(t, []byte("spk-1"), data)

		ids, err := s.ListSignedPrekeyIDs(ctx, "bob")
		require.NoError(t, err)
		assert.ElementsMatch(t, []uint32{1, 2}, ids)

		require.NoError(t, s.DeleteSignedPrekey(ctx, "bob", 1))
		ids, err = s.ListSignedPrekeyIDs(ctx, "bob")
		require.NoError(t, err)
		assert.ElementsMatch(t, []uint32{2}, ids)
	})

	t.Run("one-time prekeys are keyed by (user, id) and enumerable", func(t *testing.T) {
		require.NoError(t, s.PutOneTimePrekey(ctx, "bob", 10, []byte("otpk-10")))
		require.NoError(t, s.PutOneTimePrekey(ctx, "bob", 11, []byte("otpk-11")))

		ids, err := s.ListOneTimePrekeyIDs(ctx, "bob")
		require.NoError(t, err)
		assert.ElementsMatch(t, []uint32{10, 11}, ids)

		require.NoError(t, s.DeleteOneTimePrekey(ctx, "bob", 10))
		_, err = s.GetOneTimePrekey(ctx, "bob", 10)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("sessions are keyed by conversation id", func(t *testing.T) {
		require.NoError(t, s.PutSession(ctx, "conv-1", []byte("session-v1")))
		data, err := s.GetSession(ctx, "conv-1")
		require.NoError(t, err)
		assert.Equal(t, []byte("session-v1"), data)

		require.NoError(t, s.PutSession(ctx, "conv-1", []byte("session-v2")))
		data, err = s.GetSession(ctx, "conv-1")
		require.NoError(t, err)
		assert.Equal(t, []byte("session-v2"), data, "a later put must overwrite, not append")

		require.NoError(t, s.DeleteSession(ctx, "conv-1"))
		_, err = s.GetSession(ctx, "conv-1")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("metadata is keyed by (user, scalar name)", func(t *testing.T) {
		require.NoError(t, s.PutMetadata(ctx, "carol", "next-signed-id", []byte("2")))
		data, err := s.GetMetadata(ctx, "carol", "next-signed-id")
		require.NoError(t, err)
		assert.Equal(t, []byte("2"), data)

		_, err = s.GetMetadata(ctx, "carol", "last-rotation")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("ClearAll leaves no record for the user readable", func(t *testing.T) {
		require.NoError(t, s.PutIdentity(ctx, "dave", []byte("id")))
		require.NoError(t, s.PutSignedPrekey(ctx, "dave", 1, []byte("spk")))
		require.NoError(t, s.PutOneTimePrekey(ctx, "dave", 1, []byte("otpk")))
		require.NoError(t, s.PutMetadata(ctx, "dave", "last-rotation", []byte("now")))
		require.NoError(t, s.PutSession(ctx, "dave-conv", []byte("session")))

		require.NoError(t, s.ClearAll(ctx, "dave"))

		_, err := s.GetIdentity(ctx, "dave")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.GetSignedPrekey(ctx, "dave", 1)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.GetOneTimePrekey(ctx, "dave", 1)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.GetMetadata(ctx, "dave", "last-rotation")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.GetSession(ctx, "dave-conv")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
