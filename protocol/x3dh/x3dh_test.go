package x3dh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sealwire/crypto"
	"sealwire/model"
)

type bobMaterial struct {
	identity     *crypto.DHKeyPair
	signing      *crypto.SigningKeyPair
	signedPrekey *model.SignedPrekey
	oneTime      *model.OneTimePrekey
}

func newBob(t *testing.T, withOneTimePrekey bool) *bobMaterial {
	t.Helper()

	identity, err := crypto.GenerateDHKeyPair()
	require.NoError(t, err)
	signing, err := crypto.GenerateSigningKeyPair()
	require.NoError(t, err)
	spk, err := GenerateSignedPrekey(signing, 1)
	require.NoError(t, err)

	bob := &bobMaterial{identity: identity, signing: signing, signedPrekey: spk}
	if withOneTimePrekey {
		otpks, err := GenerateOneTimePrekeys(1, 1)
		require.NoError(t, err)
		bob.oneTime = otpks[0]
	}
	return bob
}

func (b *bobMaterial) bundle() *model.PrekeyBundle {
	bundle := &model.PrekeyBundle{
		IdentityKey:        crypto.PublicJWK(b.identity.Public),
		SigningKey:         crypto.SigningPublicJWK(b.signing.Public),
		SignedPrekeyID:     b.signedPrekey.ID,
		SignedPrekeyPublic: crypto.PublicJWK(b.signedPrekey.KeyPair.Public),
		SignedPrekeySig:    b.signedPrekey.Signature,
	}
	if b.oneTime != nil {
		pub := b.oneTime.Public()
		bundle.OneTimePrekey = &pub
	}
	return bundle
}

func TestInitiateAndCompleteDeriveTheSameSecret_WithOneTimePrekey(t *testing.T) {
	bob := newBob(t, true)
	alice, err := crypto.GenerateDHKeyPair()
	require.NoError(t, err)

	result, err := Initiate(alice, bob.bundle())
	require.NoError(t, err)
	require.NotNil(t, result.UsedOneTimePrekeyID)
	assert.Equal(t, bob.oneTime.ID, *result.UsedOneTimePrekeyID)

	secret, err := Complete(
		bob.identity, bob.signedPrekey.KeyPair, bob.oneTime.KeyPair,
		alice.Public, result.EphemeralKeyPair.Public,
	)
	require.NoError(t, err)
	assert.Equal(t, result.SharedSecret, secret)
}

func TestInitiateAndCompleteDeriveTheSameSecret_WithoutOneTimePrekey(t *testing.T) {
	bob := newBob(t, false)
	alice, err := crypto.GenerateDHKeyPair()
	require.NoError(t, err)

	result, err := Initiate(alice, bob.bundle())
	require.NoError(t, err)
	assert.Nil(t, result.UsedOneTimePrekeyID)

	secret, err := Complete(
		bob.identity, bob.signedPrekey.KeyPair, nil,
		alice.Public, result.EphemeralKeyPair.Public,
	)
	require.NoError(t, err)
	assert.Equal(t, result.SharedSecret, secret)
}

func TestInitiateRejectsTamperedSignedPrekeySignature(t *testing.T) {
	bob := newBob(t, false)
	alice, err := crypto.GenerateDHKeyPair()
	require.NoError(t, err)

	bundle := bob.bundle()
	tampered := append([]byte{}, bundle.SignedPrekeySig...)
	tampered[0] ^= 0xff
	bundle.SignedPrekeySig = tampered

	_, err = Initiate(alice, bundle)
	assert.ErrorIs(t, err, ErrBundleInvalid)
}

func TestInitiateRejectsBundleSignedByDifferentIdentity(t *testing.T) {
	bob := newBob(t, false)
	alice, err := crypto.GenerateDHKeyPair()
	require.NoError(t, err)

	impostor, err := crypto.GenerateSigningKeyPair()
	require.NoError(t, err)
	bundle := bob.bundle()
	bundle.SigningKey = crypto.SigningPublicJWK(impostor.Public)

	_, err = Initiate(alice, bundle)
	assert.ErrorIs(t, err, ErrBundleInvalid)
}

func TestDifferentInitiatorsAgainstTheSameBundleDeriveDifferentSecrets(t *testing.T) {
	bob := newBob(t, true)

	aliceA, err := crypto.GenerateDHKeyPair()
	require.NoError(t, err)
	aliceB, err := crypto.GenerateDHKeyPair()
	require.NoError(t, err)

	resultA, err := Initiate(aliceA, bob.bundle())
	require.NoError(t, err)
	resultB, err := Initiate(aliceB, bob.bundle())
	require.NoError(t, err)

	assert.NotEqual(t, resultA.SharedSecret, resultB.SharedSecret)
}

func TestGenerateSignedPrekeyProducesAVerifiableSignature(t *testing.T) {
	signing, err := crypto.GenerateSigningKeyPair()
	require.NoError(t, err)

	spk, err := GenerateSignedPrekey(signing, 7)
	require.NoError(t, err)
	assert.EqualValues(t, 7, spk.ID)

	payload, err := model.CanonicalSignedPrekeyPayload(crypto.PublicJWK(spk.KeyPair.Public))
	require.NoError(t, err)
	assert.True(t, crypto.Verify(signing.Public, payload, spk.Signature))
}

func TestGenerateOneTimePrekeysAreSequentialAndDistinct(t *testing.T) {
	otpks, err := GenerateOneTimePrekeys(100, 5)
	require.NoError(t, err)
	require.Len(t, otpks, 5)

	seen := make(map[string]bool)
	for i, otpk := range otpks {
		assert.EqualValues(t, 100+i, otpk.ID)
		raw := otpk.KeyPair.Public.Bytes()
		assert.False(t, seen[string(raw)], "one-time prekeys must not repeat key material")
		seen[string(raw)] = true
	}
}
