// Package x3dh implements the X3DH asynchronous key agreement: bundle
// generation, the initiator's four-DH combination, and the responder's
// symmetric reconstruction of the same shared secret.
// https://signal.org/docs/specifications/x3dh/
package x3dh

import (
	"bytes"
	"errors"

	"sealwire/configs"
	"sealwire/crypto"
	"sealwire/model"
)

var (
	// ErrBundleInvalid is returned when a prekey bundle's signed-prekey
	// signature does not verify against the bundle's signing key.
	ErrBundleInvalid = errors.New("x3dh: signed prekey signature does not verify")
)

// InitiatorResult is everything the initiator needs to bootstrap a ratchet
// and construct the X3DH preamble for the first outgoing envelope.
type InitiatorResult struct {
	SharedSecret       [32]byte
	EphemeralKeyPair   *crypto.DHKeyPair
	UsedOneTimePrekeyID *uint32
}

// Initiate runs the initiator side of X3DH against a fetched prekey bundle,
// verifying the bundle's signed-prekey signature before doing any DH work.
// Order of the four DH computations is cryptographically significant.
func Initiate(localIdentity *crypto.DHKeyPair, bundle *model.PrekeyBundle) (*InitiatorResult, error) {
	signingKey, err := crypto.ParseSigningPublicJWK(bundle.SigningKey)
	if err != nil {
		return nil, err
	}
	payload, err := model.CanonicalSignedPrekeyPayload(bundle.SignedPrekeyPublic)
	if err != nil {
		return nil, err
	}
	if !crypto.Verify(signingKey, payload, bundle.SignedPrekeySig) {
		return nil, ErrBundleInvalid
	}

	remoteIdentity, err := crypto.ParseDHPublicJWK(bundle.IdentityKey)
	if err != nil {
		return nil, err
	}
	remoteSignedPrekey, err := crypto.ParseDHPublicJWK(bundle.SignedPrekeyPublic)
	if err != nil {
		return nil, err
	}

	ephemeral, err := crypto.GenerateDHKeyPair()
	if err != nil {
		return nil, err
	}

	dh1, err := crypto.DH(localIdentity.Private, remoteSignedPrekey)
	if err != nil {
		return nil, err
	}
	dh2, err := crypto.DH(ephemeral.Private, remoteIdentity)
	if err != nil {
		return nil, err
	}
	dh3, err := crypto.DH(ephemeral.Private, remoteSignedPrekey)
	if err != nil {
		return nil, err
	}

	var input bytes.Buffer
	input.Write(dh1)
	input.Write(dh2)
	input.Write(dh3)

	var usedID *uint32
	if bundle.OneTimePrekey != nil {
		remoteOTPK, err := crypto.ParseDHPublicJWK(bundle.OneTimePrekey.PublicKey)
		if err != nil {
			return nil, err
		}
		dh4, err := crypto.DH(ephemeral.Private, remoteOTPK)
		if err != nil {
			return nil, err
		}
		input.Write(dh4)
		id := bundle.OneTimePrekey.ID
		usedID = &id
	}

	sharedSecret, err := crypto.HKDF(input.Bytes(), crypto.ZeroSalt32(), configs.HKDFInfoX3DHSharedSecret, 32)
	if err != nil {
		return nil, err
	}

	result := &InitiatorResult{EphemeralKeyPair: ephemeral, UsedOneTimePrekeyID: usedID}
	copy(result.SharedSecret[:], sharedSecret)
	return result, nil
}

// Complete runs the responder side of X3DH. localOneTimePrekey is nil when
// the preamble did not claim one.
func Complete(
	localIdentity *crypto.DHKeyPair,
	localSignedPrekey *crypto.DHKeyPair,
	localOneTimePrekey *crypto.DHKeyPair,
	remoteIdentity *crypto.DHPublicKey,
	remoteEphemeral *crypto.DHPublicKey,
) ([32]byte, error) {
	var sharedSecret [32]byte

	dh1, err := crypto.DH(localSignedPrekey.Private, remoteIdentity)
	if err != nil {
		return sharedSecret, err
	}
	dh2, err := crypto.DH(localIdentity.Private, remoteEphemeral)
	if err != nil {
		return sharedSecret, err
	}
	dh3, err := crypto.DH(localSignedPrekey.Private, remoteEphemeral)
	if err != nil {
		return sharedSecret, err
	}

	var input bytes.Buffer
	input.Write(dh1)
	input.Write(dh2)
	input.Write(dh3)

	if localOneTimePrekey != nil {
		dh4, err := crypto.DH(localOneTimePrekey.Private, remoteEphemeral)
		if err != nil {
			return sharedSecret, err
		}
		input.Write(dh4)
	}

	derived, err := crypto.HKDF(input.Bytes(), crypto.ZeroSalt32(), configs.HKDFInfoX3DHSharedSecret, 32)
	if err != nil {
		return sharedSecret, err
	}
	copy(sharedSecret[:], derived)
	return sharedSecret, nil
}

// GenerateSignedPrekey creates a fresh signed prekey under id, signing its
// canonical public JWK with the identity's signing key. The caller stamps
// CreatedAt before persisting.
func GenerateSignedPrekey(identity *crypto.SigningKeyPair, id uint32) (*model.SignedPrekey, error) {
	pair, err := crypto.GenerateDHKeyPair()
	if err != nil {
		return nil, err
	}
	payload, err := model.CanonicalSignedPrekeyPayload(crypto.PublicJWK(pair.Public))
	if err != nil {
		return nil, err
	}
	sig, err := crypto.Sign(identity.Private, payload)
	if err != nil {
		return nil, err
	}
	return &model.SignedPrekey{ID: id, KeyPair: pair, Signature: sig}, nil
}

// GenerateOneTimePrekeys creates count fresh one-time prekeys with
// sequential ids starting at startID.
func GenerateOneTimePrekeys(startID uint32, count int) ([]*model.OneTimePrekey, error) {
	out := make([]*model.OneTimePrekey, 0, count)
	for i := 0; i < count; i++ {
		pair, err := crypto.GenerateDHKeyPair()
		if err != nil {
			return nil, err
		}
		out = append(out, &model.OneTimePrekey{ID: startID + uint32(i), KeyPair: pair})
	}
	return out, nil
}
