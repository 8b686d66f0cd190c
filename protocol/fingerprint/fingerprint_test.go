package fingerprint

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sealwire/crypto"
)

var safetyNumberShape = regexp.MustCompile(`^\d{5}( \d{5}){5}$`)

func TestComputeIsCommutative(t *testing.T) {
	a, err := crypto.GenerateDHKeyPair()
	require.NoError(t, err)
	b, err := crypto.GenerateDHKeyPair()
	require.NoError(t, err)

	ab, err := Compute(a.Public, b.Public)
	require.NoError(t, err)
	ba, err := Compute(b.Public, a.Public)
	require.NoError(t, err)

	assert.Equal(t, ab, ba)
}

func TestComputeMatchesWireFormat(t *testing.T) {
	a, err := crypto.GenerateDHKeyPair()
	require.NoError(t, err)
	b, err := crypto.GenerateDHKeyPair()
	require.NoError(t, err)

	number, err := Compute(a.Public, b.Public)
	require.NoError(t, err)
	assert.Len(t, number, 35)
	assert.Regexp(t, safetyNumberShape, number)
}

func TestComputeIsDeterministicAndDiscriminating(t *testing.T) {
	a, err := crypto.GenerateDHKeyPair()
	require.NoError(t, err)
	b, err := crypto.GenerateDHKeyPair()
	require.NoError(t, err)
	c, err := crypto.GenerateDHKeyPair()
	require.NoError(t, err)

	first, err := Compute(a.Public, b.Public)
	require.NoError(t, err)
	second, err := Compute(a.Public, b.Public)
	require.NoError(t, err)
	assert.Equal(t, first, second, "must be deterministic for the same identity pair")

	other, err := Compute(a.Public, c.Public)
	require.NoError(t, err)
	assert.NotEqual(t, first, other, "different identity pairs must not collide in practice")
}

func TestComputeOfIdenticalKeysIsStillWellFormed(t *testing.T) {
	a, err := crypto.GenerateDHKeyPair()
	require.NoError(t, err)

	number, err := Compute(a.Public, a.Public)
	require.NoError(t, err)
	assert.Regexp(t, safetyNumberShape, number)
}
