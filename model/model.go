// Package model holds the durable and wire data types shared by the key
// store, the key directory client and the protocol orchestrator: identities,
// prekeys, prekey bundles and session records, per the data model.
package model

import (
	"encoding/json"
	"time"

	"sealwire/crypto"
)

// Identity is the local user's long-term key material. It is created once
// on first use and never mutated thereafter.
type Identity struct {
	UserID         string               `json:"userId"`
	DH             *crypto.DHKeyPair    `json:"-"`
	Signing        *crypto.SigningKeyPair `json:"-"`
	RegistrationID uint16               `json:"registrationId"`
	CreatedAt      time.Time            `json:"createdAt"`
}

type identityWire struct {
	UserID         string        `json:"userId"`
	DHKey          crypto.JWK    `json:"dhKey"`
	SigningKey     crypto.JWK    `json:"signingKey"`
	RegistrationID uint16        `json:"registrationId"`
	CreatedAt      time.Time     `json:"createdAt"`
}

// MarshalJSON serializes the identity's private key material as JWKs.
func (id *Identity) MarshalJSON() ([]byte, error) {
	return json.Marshal(identityWire{
		UserID:         id.UserID,
		DHKey:          crypto.PrivateJWK(id.DH),
		SigningKey:     crypto.SigningPrivateJWK(id.Signing),
		RegistrationID: id.RegistrationID,
		CreatedAt:      id.CreatedAt,
	})
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (id *Identity) UnmarshalJSON(data []byte) error {
	var w identityWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	dh, err := crypto.ParseDHPrivateJWK(w.DHKey)
	if err != nil {
		return err
	}
	signing, err := crypto.ParseSigningPrivateJWK(w.SigningKey)
	if err != nil {
		return err
	}
	id.UserID = w.UserID
	id.DH = dh
	id.Signing = signing
	id.RegistrationID = w.RegistrationID
	id.CreatedAt = w.CreatedAt
	return nil
}

// PublicIdentity is what a user publishes to the key directory.
type PublicIdentity struct {
	UserID     string     `json:"userId"`
	DHKey      crypto.JWK `json:"dhKey"`
	SigningKey crypto.JWK `json:"signingKey"`
}

// Public projects an Identity to the material safe to publish.
func (id *Identity) Public() PublicIdentity {
	return PublicIdentity{
		UserID:     id.UserID,
		DHKey:      crypto.PublicJWK(id.DH.Public),
		SigningKey: crypto.SigningPublicJWK(id.Signing.Public),
	}
}

// SignedPrekey is a medium-lived DH key pair, signed by the owning
// identity's signing key, plus the id under which it is published.
type SignedPrekey struct {
	ID        uint32            `json:"id"`
	KeyPair   *crypto.DHKeyPair `json:"-"`
	Signature []byte            `json:"signature"`
	CreatedAt time.Time         `json:"createdAt"`
}

type signedPrekeyWire struct {
	ID        uint32     `json:"id"`
	KeyPair   crypto.JWK `json:"keyPair"`
	Signature []byte     `json:"signature"`
	CreatedAt time.Time  `json:"createdAt"`
}

func (sp *SignedPrekey) MarshalJSON() ([]byte, error) {
	return json.Marshal(signedPrekeyWire{
		ID:        sp.ID,
		KeyPair:   crypto.PrivateJWK(sp.KeyPair),
		Signature: sp.Signature,
		CreatedAt: sp.CreatedAt,
	})
}

func (sp *SignedPrekey) UnmarshalJSON(data []byte) error {
	var w signedPrekeyWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	pair, err := crypto.ParseDHPrivateJWK(w.KeyPair)
	if err != nil {
		return err
	}
	sp.ID = w.ID
	sp.KeyPair = pair
	sp.Signature = w.Signature
	sp.CreatedAt = w.CreatedAt
	return nil
}

// PublicSignedPrekey is the record published to, and fetched from, the
// directory.
type PublicSignedPrekey struct {
	ID        uint32     `json:"id"`
	PublicKey crypto.JWK `json:"publicKey"`
	Signature []byte     `json:"signature"`
}

// Public projects a SignedPrekey to its published form.
func (sp *SignedPrekey) Public() PublicSignedPrekey {
	return PublicSignedPrekey{
		ID:        sp.ID,
		PublicKey: crypto.PublicJWK(sp.KeyPair.Public),
		Signature: sp.Signature,
	}
}

// CanonicalSignedPrekeyPayload returns the exact bytes signed and verified
// for a signed prekey: the canonical JSON of its public key.
func CanonicalSignedPrekeyPayload(pub crypto.JWK) ([]byte, error) {
	return pub.CanonicalJSON()
}

// OneTimePrekey is a single-use DH key pair. Claimed at most once; deleted
// locally once the responder's X3DH step consumes it.
type OneTimePrekey struct {
	ID      uint32            `json:"id"`
	KeyPair *crypto.DHKeyPair `json:"-"`
	Used    bool              `json:"used"`
}

type oneTimePrekeyWire struct {
	ID      uint32     `json:"id"`
	KeyPair crypto.JWK `json:"keyPair"`
	Used    bool       `json:"used"`
}

func (otpk *OneTimePrekey) MarshalJSON() ([]byte, error) {
	return json.Marshal(oneTimePrekeyWire{
		ID:      otpk.ID,
		KeyPair: crypto.PrivateJWK(otpk.KeyPair),
		Used:    otpk.Used,
	})
}

func (otpk *OneTimePrekey) UnmarshalJSON(data []byte) error {
	var w oneTimePrekeyWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	pair, err := crypto.ParseDHPrivateJWK(w.KeyPair)
	if err != nil {
		return err
	}
	otpk.ID = w.ID
	otpk.KeyPair = pair
	otpk.Used = w.Used
	return nil
}

// PublicOneTimePrekey is the record published to the directory.
type PublicOneTimePrekey struct {
	ID        uint32     `json:"id"`
	PublicKey crypto.JWK `json:"publicKey"`
}

// Public projects a OneTimePrekey to its published form.
func (otpk *OneTimePrekey) Public() PublicOneTimePrekey {
	return PublicOneTimePrekey{ID: otpk.ID, PublicKey: crypto.PublicJWK(otpk.KeyPair.Public)}
}

// PrekeyBundle is the wire object fetched from the directory to bootstrap
// X3DH. Its lifetime is request-scoped.
type PrekeyBundle struct {
	IdentityKey        crypto.JWK            `json:"identityKey"`
	SigningKey         crypto.JWK            `json:"signingKey"`
	SignedPrekeyID     uint32                `json:"signedPrekeyId"`
	SignedPrekeyPublic crypto.JWK            `json:"signedPrekeyPublic"`
	SignedPrekeySig    []byte                `json:"signedPrekeySignature"`
	OneTimePrekey      *PublicOneTimePrekey  `json:"oneTimePrekey,omitempty"`
}

// SessionRecord is the persisted state of one pairwise conversation.
type SessionRecord struct {
	ConversationID           string     `json:"conversationId"`
	RemoteUserID             string     `json:"remoteUserId"`
	RatchetState             []byte     `json:"ratchetState"`
	X3DHCompleted            bool       `json:"x3dhCompleted"`
	InitiatorEphemeralPublic *crypto.JWK `json:"initiatorEphemeralPublic,omitempty"`
	InitiatorOneTimePrekeyID *uint32    `json:"initiatorOneTimePrekeyId,omitempty"`
	CreatedAt                time.Time  `json:"createdAt"`
	UpdatedAt                time.Time  `json:"updatedAt"`
}
