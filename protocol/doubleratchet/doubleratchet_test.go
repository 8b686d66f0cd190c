package doubleratchet

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sealwire/crypto"
)

func newSession(t *testing.T) (*DoubleRatchet, *DoubleRatchet) {
	t.Helper()

	bobSignedPrekey, err := crypto.GenerateDHKeyPair()
	require.NoError(t, err)

	var sharedSecret RootKey
	for i := range sharedSecret {
		sharedSecret[i] = byte(i + 1)
	}

	alice, err := InitAlice(sharedSecret, bobSignedPrekey.Public)
	require.NoError(t, err)
	bob := InitBob(sharedSecret, bobSignedPrekey)
	return alice, bob
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	alice, bob := newSession(t)

	header, ciphertext, err := alice.Encrypt([]byte("hello, bob"))
	require.NoError(t, err)

	plaintext, err := bob.Decrypt(header, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "hello, bob", string(plaintext))
}

func TestBobCannotEncryptBeforeFirstDecrypt(t *testing.T) {
	_, bob := newSession(t)
	_, _, err := bob.Encrypt([]byte("too soon"))
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestConversationAdvancesInBothDirections(t *testing.T) {
	alice, bob := newSession(t)

	h1, c1, err := alice.Encrypt([]byte("hello"))
	require.NoError(t, err)
	_, err = bob.Decrypt(h1, c1)
	require.NoError(t, err)

	oldAliceDHs := alice.State.Dhs.Public.Bytes()

	h2, c2, err := bob.Encrypt([]byte("hi"))
	require.NoError(t, err)
	pt, err := alice.Decrypt(h2, c2)
	require.NoError(t, err)
	assert.Equal(t, "hi", string(pt))

	assert.NotEqual(t, oldAliceDHs, alice.State.Dhs.Public.Bytes(),
		"receiving bob's reply must drive a DH ratchet step that replaces alice's sending key")
}

func TestOutOfOrderDeliveryWithinOneChain(t *testing.T) {
	alice, bob := newSession(t)

	type sent struct {
		header Header
		cipher []byte
		plain  string
	}
	var msgs []sent
	for i := 0; i < 4; i++ {
		plain := []byte{byte('A' + i)}
		h, c, err := alice.Encrypt(plain)
		require.NoError(t, err)
		msgs = append(msgs, sent{h, c, string(plain)})
	}

	order := []int{2, 0, 3, 1}
	for _, idx := range order {
		pt, err := bob.Decrypt(msgs[idx].header, msgs[idx].cipher)
		require.NoError(t, err)
		assert.Equal(t, msgs[idx].plain, string(pt))
	}
	assert.Empty(t, bob.State.MkSkipped, "no skipped keys should remain once all four messages arrive")
}

func TestGapBeyondMaxSkipIsUndecryptable(t *testing.T) {
	alice, bob := newSession(t)

	var last Header
	var lastCipher []byte
	for i := 0; i <= 300; i++ {
		h, c, err := alice.Encrypt([]byte("msg"))
		require.NoError(t, err)
		if i == 300 {
			last, lastCipher = h, c
		}
	}

	before := *bob.State
	_, err := bob.Decrypt(last, lastCipher)
	assert.ErrorIs(t, err, ErrTooManySkipped)
	assert.Equal(t, before.Nr, bob.State.Nr, "state must be untouched after a too-many-skipped failure")
	assert.Nil(t, bob.State.Dhr)
}

func TestTamperedCiphertextFailsWithoutRollingForwardCounters(t *testing.T) {
	alice, bob := newSession(t)

	h1, c1, err := alice.Encrypt([]byte("first"))
	require.NoError(t, err)
	_, err = bob.Decrypt(h1, c1)
	require.NoError(t, err)

	h2, c2, err := alice.Encrypt([]byte("second"))
	require.NoError(t, err)
	tampered := append([]byte{}, c2...)
	tampered[0] ^= 0xff

	nrBefore := bob.State.Nr
	_, err = bob.Decrypt(h2, tampered)
	assert.ErrorIs(t, err, ErrUndecryptable)
	assert.Equal(t, nrBefore, bob.State.Nr, "a forged ciphertext must not advance Nr")

	// A legitimate resend of the same message number must still decrypt.
	pt, err := bob.Decrypt(h2, c2)
	require.NoError(t, err)
	assert.Equal(t, "second", string(pt))
}

func TestSerializationRoundTripPreservesBehavior(t *testing.T) {
	alice, bob := newSession(t)

	h1, c1, err := alice.Encrypt([]byte("before crash"))
	require.NoError(t, err)
	_, err = bob.Decrypt(h1, c1)
	require.NoError(t, err)

	snapshot, err := alice.Marshal()
	require.NoError(t, err)

	resumed, err := Unmarshal(snapshot)
	require.NoError(t, err)

	h2, c2, err := resumed.Encrypt([]byte("after restart"))
	require.NoError(t, err)
	pt, err := bob.Decrypt(h2, c2)
	require.NoError(t, err)
	assert.Equal(t, "after restart", string(pt))
}

func TestRandomPermutationOfManyMessages(t *testing.T) {
	alice, bob := newSession(t)

	const n = 40
	type sent struct {
		header Header
		cipher []byte
	}
	msgs := make([]sent, n)
	for i := 0; i < n; i++ {
		h, c, err := alice.Encrypt([]byte{byte(i)})
		require.NoError(t, err)
		msgs[i] = sent{h, c}
	}

	order := rand.New(rand.NewSource(1)).Perm(n)
	for _, idx := range order {
		pt, err := bob.Decrypt(msgs[idx].header, msgs[idx].cipher)
		require.NoError(t, err)
		assert.Equal(t, []byte{byte(idx)}, pt)
	}
}
