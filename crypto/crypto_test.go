package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDHAgreementIsCommutative(t *testing.T) {
	a, err := GenerateDHKeyPair()
	require.NoError(t, err)
	b, err := GenerateDHKeyPair()
	require.NoError(t, err)

	secretA, err := DH(a.Private, b.Public)
	require.NoError(t, err)
	secretB, err := DH(b.Private, a.Public)
	require.NoError(t, err)

	assert.Equal(t, secretA, secretB)
	assert.Len(t, secretA, 32)
}

func TestDHRejectsForeignPoint(t *testing.T) {
	a, err := GenerateDHKeyPair()
	require.NoError(t, err)

	_, err = ImportDHPublicKey([]byte("not a point on the curve"))
	assert.ErrorIs(t, err, ErrNotOnCurve)
	_ = a
}

func TestDHPublicKeyJWKRoundTrip(t *testing.T) {
	pair, err := GenerateDHKeyPair()
	require.NoError(t, err)

	jwk := PublicJWK(pair.Public)
	assert.Equal(t, "EC", jwk.Kty)
	assert.Equal(t, "P-256", jwk.Crv)
	assert.Empty(t, jwk.D)

	restored, err := ParseDHPublicJWK(jwk)
	require.NoError(t, err)
	assert.Equal(t, pair.Public.Bytes(), restored.Bytes())
}

func TestDHPrivateKeyJWKRoundTrip(t *testing.T) {
	pair, err := GenerateDHKeyPair()
	require.NoError(t, err)

	jwk := PrivateJWK(pair)
	restored, err := ParseDHPrivateJWK(jwk)
	require.NoError(t, err)
	assert.Equal(t, pair.Private.Bytes(), restored.Private.Bytes())
	assert.Equal(t, pair.Public.Bytes(), restored.Public.Bytes())
}

func TestSigningRoundTripAndTamperDetection(t *testing.T) {
	pair, err := GenerateSigningKeyPair()
	require.NoError(t, err)

	msg := []byte("a signed prekey's canonical JSON")
	sig, err := Sign(pair.Private, msg)
	require.NoError(t, err)
	assert.True(t, Verify(pair.Public, msg, sig))

	tampered := append([]byte{}, msg...)
	tampered[0] ^= 0xff
	assert.False(t, Verify(pair.Public, tampered, sig))
}

func TestSigningKeyJWKRoundTrip(t *testing.T) {
	pair, err := GenerateSigningKeyPair()
	require.NoError(t, err)

	jwk := SigningPrivateJWK(pair)
	restored, err := ParseSigningPrivateJWK(jwk)
	require.NoError(t, err)

	msg := []byte("round trip check")
	sig, err := Sign(restored.Private, msg)
	require.NoError(t, err)
	assert.True(t, Verify(pair.Public, msg, sig))
}

func TestAEADRoundTripAndAuthFailure(t *testing.T) {
	var mk [32]byte
	for i := range mk {
		mk[i] = byte(i)
	}

	plaintext := []byte("hello, double ratchet")
	ciphertext, err := AEADEncrypt(mk, plaintext)
	require.NoError(t, err)

	recovered, err := AEADDecrypt(mk, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, recovered)

	tampered := append([]byte{}, ciphertext...)
	tampered[0] ^= 0xff
	_, err = AEADDecrypt(mk, tampered)
	assert.ErrorIs(t, err, ErrAuthFailed)
}

func TestAEADEncryptionIsDeterministicPerKey(t *testing.T) {
	var mk [32]byte
	for i := range mk {
		mk[i] = 7
	}
	c1, err := AEADEncrypt(mk, []byte("same message"))
	require.NoError(t, err)
	c2, err := AEADEncrypt(mk, []byte("same message"))
	require.NoError(t, err)
	assert.Equal(t, c1, c2, "the nonce is derived from the message key, so repeat calls with the same key and plaintext must match")
}

func TestHKDFZeroSaltIsLegal(t *testing.T) {
	out, err := HKDF([]byte("input key material"), ZeroSalt32(), "signal-root-chain", 64)
	require.NoError(t, err)
	assert.Len(t, out, 64)
}
