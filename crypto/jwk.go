package crypto

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
)

// JWK is the canonical, field-ordered JSON Web Key representation used for
// every public and private key that crosses a serialization boundary
// (local store, session record, wire envelope). Field order is fixed by
// struct declaration order so two implementations that marshal the same
// key produce byte-identical JSON, which matters for signature verification
// over "the canonical JSON of public_key".
type JWK struct {
	Kty string `json:"kty"`
	Crv string `json:"crv"`
	X   string `json:"x"`
	Y   string `json:"y"`
	D   string `json:"d,omitempty"`
}

var ErrMalformedJWK = errors.New("crypto: malformed P-256 JWK")

const uncompressedPointLen = 1 + 32 + 32 // 0x04 || X || Y

func b64url(b []byte) string { return base64.RawURLEncoding.EncodeToString(b) }

func unb64url(s string) ([]byte, error) { return base64.RawURLEncoding.DecodeString(s) }

// CanonicalJSON returns the fixed-field-order JSON encoding of a JWK, which
// is what signatures over public keys are computed over.
func (j JWK) CanonicalJSON() ([]byte, error) { return json.Marshal(j) }

// PublicJWK encodes a DH public key as a public-only JWK.
func PublicJWK(pub *DHPublicKey) JWK {
	raw := pub.Bytes() // 0x04 || X || Y, uncompressed SEC1
	return JWK{
		Kty: "EC",
		Crv: "P-256",
		X:   b64url(raw[1:33]),
		Y:   b64url(raw[33:65]),
	}
}

// ParseDHPublicJWK reconstructs a DH public key from its JWK form.
func ParseDHPublicJWK(j JWK) (*DHPublicKey, error) {
	point, err := pointFromJWK(j)
	if err != nil {
		return nil, err
	}
	return ImportDHPublicKey(point)
}

// PrivateJWK encodes a DH private key together with its public half.
func PrivateJWK(pair *DHKeyPair) JWK {
	j := PublicJWK(pair.Public)
	j.D = b64url(pair.Private.Bytes())
	return j
}

// ParseDHPrivateJWK reconstructs a DH key pair from a private JWK.
func ParseDHPrivateJWK(j JWK) (*DHKeyPair, error) {
	if j.D == "" {
		return nil, ErrMalformedJWK
	}
	d, err := unb64url(j.D)
	if err != nil {
		return nil, ErrMalformedJWK
	}
	priv, err := ImportDHPrivateKey(d)
	if err != nil {
		return nil, err
	}
	return &DHKeyPair{Private: priv, Public: priv.PublicKey()}, nil
}

// SigningPublicJWK encodes an ECDSA public key as a public-only JWK.
func SigningPublicJWK(pub *SigningPublicKey) JWK {
	return JWK{
		Kty: "EC",
		Crv: "P-256",
		X:   b64url(pad32(pub.X)),
		Y:   b64url(pad32(pub.Y)),
	}
}

// ParseSigningPublicJWK reconstructs an ECDSA public key from its JWK form.
func ParseSigningPublicJWK(j JWK) (*SigningPublicKey, error) {
	x, y, err := coordsFromJWK(j)
	if err != nil {
		return nil, err
	}
	return &SigningPublicKey{Curve: elliptic.P256(), X: x, Y: y}, nil
}

// SigningPrivateJWK encodes an ECDSA key pair, public half and scalar.
func SigningPrivateJWK(pair *SigningKeyPair) JWK {
	j := SigningPublicJWK(pair.Public)
	j.D = b64url(pad32(pair.Private.D))
	return j
}

// ParseSigningPrivateJWK reconstructs an ECDSA key pair from a private JWK.
func ParseSigningPrivateJWK(j JWK) (*SigningKeyPair, error) {
	if j.D == "" {
		return nil, ErrMalformedJWK
	}
	x, y, err := coordsFromJWK(j)
	if err != nil {
		return nil, err
	}
	dRaw, err := unb64url(j.D)
	if err != nil {
		return nil, ErrMalformedJWK
	}
	priv := &SigningPrivateKey{
		PublicKey: ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y},
		D:         new(big.Int).SetBytes(dRaw),
	}
	return &SigningKeyPair{Private: priv, Public: &priv.PublicKey}, nil
}

func pointFromJWK(j JWK) ([]byte, error) {
	x, y, err := coordsFromJWK(j)
	if err != nil {
		return nil, err
	}
	point := make([]byte, uncompressedPointLen)
	point[0] = 0x04
	x.FillBytes(point[1:33])
	y.FillBytes(point[33:65])
	return point, nil
}

func coordsFromJWK(j JWK) (x, y *big.Int, err error) {
	if j.Kty != "EC" || j.Crv != "P-256" {
		return nil, nil, ErrMalformedJWK
	}
	xb, err := unb64url(j.X)
	if err != nil || len(xb) > 32 {
		return nil, nil, ErrMalformedJWK
	}
	yb, err := unb64url(j.Y)
	if err != nil || len(yb) > 32 {
		return nil, nil, ErrMalformedJWK
	}
	return new(big.Int).SetBytes(xb), new(big.Int).SetBytes(yb), nil
}

func pad32(v *big.Int) []byte {
	out := make([]byte, 32)
	v.FillBytes(out)
	return out
}
