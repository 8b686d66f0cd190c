// Package crypto is the primitives facade: every other package in this
// module reaches P-256 ECDH, ECDSA, HKDF-SHA-256, HMAC-SHA-256 and
// AES-256-GCM only through the functions declared here. Nothing above this
// package touches crypto/ecdh, crypto/ecdsa or crypto/aes directly.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Typed key handles. The DH pair rides on Go's crypto/ecdh so dh() returns
// exactly the X9.63 X-coordinate Signal's X3DH/Double Ratchet math expects;
// the signing pair stays on crypto/ecdsa since ecdh.Curve has no Sign.
type (
	DHPublicKey       = ecdh.PublicKey
	DHPrivateKey      = ecdh.PrivateKey
	SigningPublicKey  = ecdsa.PublicKey
	SigningPrivateKey = ecdsa.PrivateKey
)

// DHKeyPair is a generated Diffie-Hellman key pair on P-256.
type DHKeyPair struct {
	Private *DHPrivateKey
	Public  *DHPublicKey
}

// SigningKeyPair is a generated ECDSA key pair on P-256.
type SigningKeyPair struct {
	Private *SigningPrivateKey
	Public  *SigningPublicKey
}

var (
	ErrNotOnCurve   = errors.New("crypto: public key is not a valid point on P-256")
	ErrAuthFailed   = errors.New("crypto: AEAD authentication failed")
	ErrShortKDFRead = errors.New("crypto: HKDF expansion came up short")
)

func curve() ecdh.Curve { return ecdh.P256() }

// GenerateDHKeyPair produces a fresh P-256 Diffie-Hellman key pair.
func GenerateDHKeyPair() (*DHKeyPair, error) {
	priv, err := curve().GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &DHKeyPair{Private: priv, Public: priv.PublicKey()}, nil
}

// GenerateSigningKeyPair produces a fresh P-256 ECDSA key pair.
func GenerateSigningKeyPair() (*SigningKeyPair, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	return &SigningKeyPair{Private: priv, Public: &priv.PublicKey}, nil
}

// DH performs the P-256 ECDH calculation and returns the 32-byte
// X-coordinate of the resulting point, as crypto/ecdh does for NIST curves.
func DH(priv *DHPrivateKey, pub *DHPublicKey) ([]byte, error) {
	secret, err := priv.ECDH(pub)
	if err != nil {
		return nil, ErrNotOnCurve
	}
	return secret, nil
}

// ImportDHPublicKey parses the uncompressed SEC1 point produced by
// DHPublicKey.Bytes, failing if the point is not on P-256.
func ImportDHPublicKey(raw []byte) (*DHPublicKey, error) {
	pub, err := curve().NewPublicKey(raw)
	if err != nil {
		return nil, ErrNotOnCurve
	}
	return pub, nil
}

// ImportDHPrivateKey reconstructs a private scalar previously produced by
// DHPrivateKey.Bytes.
func ImportDHPrivateKey(raw []byte) (*DHPrivateKey, error) {
	return curve().NewPrivateKey(raw)
}

// HKDF derives length bytes of key material from ikm using HKDF-SHA-256
// with the given salt and ASCII info label. A 32-byte all-zero salt is an
// explicitly legal input at several call sites in this engine.
func HKDF(ikm, salt []byte, info string, length int) ([]byte, error) {
	out := make([]byte, length)
	reader := hkdf.New(sha256.New, ikm, salt, []byte(info))
	if _, err := io.ReadFull(reader, out); err != nil {
		return nil, ErrShortKDFRead
	}
	return out, nil
}

// ZeroSalt32 is the 32-byte all-zero salt used by several HKDF call sites.
func ZeroSalt32() []byte { return make([]byte, 32) }

// HMACSHA256 computes the HMAC-SHA-256 of data keyed by key.
func HMACSHA256(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}

// Sign produces an ECDSA/P-256 signature over the SHA-256 digest of data.
func Sign(priv *SigningPrivateKey, data []byte) ([]byte, error) {
	digest := sha256.Sum256(data)
	return ecdsa.SignASN1(rand.Reader, priv, digest[:])
}

// Verify reports whether sig is a valid ECDSA/P-256 signature over data
// under pub.
func Verify(pub *SigningPublicKey, data, sig []byte) bool {
	digest := sha256.Sum256(data)
	return ecdsa.VerifyASN1(pub, digest[:], sig)
}

const msgEncryptLabel = "signal-msg-encrypt"

// AEADEncrypt derives a 32-byte AES key and a 12-byte GCM nonce from
// messageKey via HKDF (salt = 32 zero bytes, info = "signal-msg-encrypt"),
// then seals plaintext. The nonce is deterministic in messageKey; callers
// must never reuse a message key, which the ratchet guarantees by
// construction.
func AEADEncrypt(messageKey [32]byte, plaintext []byte) ([]byte, error) {
	aead, nonce, err := aeadFromMessageKey(messageKey)
	if err != nil {
		return nil, err
	}
	return aead.Seal(nil, nonce, plaintext, nil), nil
}

// AEADDecrypt is the inverse of AEADEncrypt. It returns ErrAuthFailed on
// any authentication failure.
func AEADDecrypt(messageKey [32]byte, ciphertext []byte) ([]byte, error) {
	aead, nonce, err := aeadFromMessageKey(messageKey)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrAuthFailed
	}
	return plaintext, nil
}

func aeadFromMessageKey(messageKey [32]byte) (cipher.AEAD, []byte, error) {
	material, err := HKDF(messageKey[:], ZeroSalt32(), msgEncryptLabel, 44)
	if err != nil {
		return nil, nil, err
	}
	block, err := aes.NewCipher(material[:32])
	if err != nil {
		return nil, nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, err
	}
	return aead, material[32:44], nil
}
