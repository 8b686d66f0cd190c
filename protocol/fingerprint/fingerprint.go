// Package fingerprint derives the human-comparable "safety number" used to
// authenticate a peer's identity key out-of-band.
package fingerprint

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"sealwire/crypto"
)

const (
	iterations = 5
	groups     = 6
	groupBytes = 4
	groupMod   = 100000
)

// Compute derives the safety number for an identity pair. It is commutative:
// the two canonical public keys are ordered lexicographically before
// hashing, so Compute(a, b) == Compute(b, a) regardless of caller role.
func Compute(a, b *crypto.DHPublicKey) (string, error) {
	canonicalA, err := canonicalBytes(a)
	if err != nil {
		return "", err
	}
	canonicalB, err := canonicalBytes(b)
	if err != nil {
		return "", err
	}

	first, second := canonicalA, canonicalB
	if bytes.Compare(first, second) > 0 {
		first, second = second, first
	}

	digest := append(append([]byte{}, first...), second...)
	for i := 0; i < iterations; i++ {
		sum := sha256.Sum256(digest)
		digest = sum[:]
	}

	groupStrings := make([]string, groups)
	for i := 0; i < groups; i++ {
		chunk := digest[i*5 : i*5+groupBytes]
		num := binary.BigEndian.Uint32(chunk) % groupMod
		groupStrings[i] = fmt.Sprintf("%05d", num)
	}

	result := groupStrings[0]
	for i := 1; i < groups; i++ {
		result += " " + groupStrings[i]
	}
	return result, nil
}

// canonicalBytes serializes a public key the same way it would be signed:
// the canonical JSON of its JWK representation.
func canonicalBytes(pub *crypto.DHPublicKey) ([]byte, error) {
	return crypto.PublicJWK(pub).CanonicalJSON()
}
