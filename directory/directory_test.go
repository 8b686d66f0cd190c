package directory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sealwire/model"
)

func TestFetchBundleAssemblesPublishedMaterial(t *testing.T) {
	ctx := context.Background()
	dir := NewMemoryDirectory()

	identity := model.PublicIdentity{UserID: "bob"}
	require.NoError(t, dir.UpsertIdentity(ctx, identity))
	require.NoError(t, dir.UpsertSignedPrekey(ctx, "bob", model.PublicSignedPrekey{ID: 1}))
	require.NoError(t, dir.InsertOneTimePrekeys(ctx, "bob", []model.PublicOneTimePrekey{{ID: 5}}))

	bundle, err := FetchBundle(ctx, dir, "bob")
	require.NoError(t, err)
	assert.EqualValues(t, 1, bundle.SignedPrekeyID)
	require.NotNil(t, bundle.OneTimePrekey)
	assert.EqualValues(t, 5, bundle.OneTimePrekey.ID)
}

func TestFetchBundleWithoutAnyOneTimePrekeyLeavesItNil(t *testing.T) {
	ctx := context.Background()
	dir := NewMemoryDirectory()

	require.NoError(t, dir.UpsertIdentity(ctx, model.PublicIdentity{UserID: "bob"}))
	require.NoError(t, dir.UpsertSignedPrekey(ctx, "bob", model.PublicSignedPrekey{ID: 1}))

	bundle, err := FetchBundle(ctx, dir, "bob")
	require.NoError(t, err)
	assert.Nil(t, bundle.OneTimePrekey)
}

func TestFetchBundleWithUnknownUserFails(t *testing.T) {
	ctx := context.Background()
	dir := NewMemoryDirectory()

	_, err := FetchBundle(ctx, dir, "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestClaimOneTimePrekeyNeverDoublesAnIDUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	dir := NewMemoryDirectory()

	const n = 50
	otpks := make([]model.PublicOneTimePrekey, n)
	for i := 0; i < n; i++ {
		otpks[i] = model.PublicOneTimePrekey{ID: uint32(i)}
	}
	require.NoError(t, dir.InsertOneTimePrekeys(ctx, "bob", otpks))

	var wg sync.WaitGroup
	var mu sync.Mutex
	claimed := make(map[uint32]int)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			otpk, err := dir.ClaimOneTimePrekey(ctx, "bob")
			require.NoError(t, err)
			if otpk == nil {
				return
			}
			mu.Lock()
			claimed[otpk.ID]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	for id, count := range claimed {
		assert.Equal(t, 1, count, "one-time prekey %d was claimed more than once", id)
	}
	count, err := dir.UnusedOneTimePrekeyCount(ctx, "bob")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestClaimOneTimePrekeyReturnsNilWhenExhausted(t *testing.T) {
	ctx := context.Background()
	dir := NewMemoryDirectory()

	otpk, err := dir.ClaimOneTimePrekey(ctx, "bob")
	require.NoError(t, err)
	assert.Nil(t, otpk)
}
