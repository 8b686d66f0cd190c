package engine

import (
	"encoding/base64"
	"encoding/json"

	"sealwire/configs"
	"sealwire/crypto"
	"sealwire/protocol/doubleratchet"
)

type wireHeader struct {
	DH crypto.JWK           `json:"dh"`
	PN doubleratchet.MsgIndex `json:"pn"`
	N  doubleratchet.MsgIndex `json:"n"`
}

type wireX3DHPreamble struct {
	IdentityKey     crypto.JWK `json:"identityKey"`
	EphemeralKey    crypto.JWK `json:"ephemeralKey"`
	OneTimePrekeyID *uint32    `json:"oneTimePreKeyId,omitempty"`
}

type wireEnvelope struct {
	V          int               `json:"v"`
	Header     wireHeader        `json:"header"`
	Ciphertext string            `json:"ciphertext"`
	X3DH       *wireX3DHPreamble `json:"x3dh,omitempty"`
}

func encodeEnvelope(header doubleratchet.Header, ciphertext []byte, preamble *wireX3DHPreamble) (string, error) {
	env := wireEnvelope{
		V: configs.EnvelopeVersion,
		Header: wireHeader{
			DH: header.DH,
			PN: header.Pn,
			N:  header.N,
		},
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
		X3DH:       preamble,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeEnvelope(s string) (*wireEnvelope, error) {
	var env wireEnvelope
	if err := json.Unmarshal([]byte(s), &env); err != nil {
		return nil, err
	}
	return &env, nil
}

func (e *wireEnvelope) header() doubleratchet.Header {
	return doubleratchet.Header{DH: e.Header.DH, Pn: e.Header.PN, N: e.Header.N}
}

func (e *wireEnvelope) ciphertextBytes() ([]byte, error) {
	return base64.StdEncoding.DecodeString(e.Ciphertext)
}

// IsSignalEnvelope is a pure predicate: true if s parses as JSON carrying
// v == 2 and both a header and a ciphertext field. It performs no
// cryptographic work and never mutates engine state.
func IsSignalEnvelope(s string) bool {
	var probe struct {
		V          *int            `json:"v"`
		Header     json.RawMessage `json:"header"`
		Ciphertext json.RawMessage `json:"ciphertext"`
	}
	if err := json.Unmarshal([]byte(s), &probe); err != nil {
		return false
	}
	return probe.V != nil && *probe.V == configs.EnvelopeVersion && len(probe.Header) > 0 && len(probe.Ciphertext) > 0
}
