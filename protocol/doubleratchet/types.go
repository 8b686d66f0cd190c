package doubleratchet

import (
	"encoding/json"

	"sealwire/crypto"
)

type (
	// MsgIndex counts messages within one sending or receiving chain.
	MsgIndex uint32
	// MsgKey is a single-use AEAD key, consumed by exactly one message.
	MsgKey [32]byte
	// RootKey is the 32-byte root or chain key threaded through KDF_RK/KDF_CK.
	RootKey [32]byte
)

// Header is the per-message metadata the sender attaches so the receiver
// can detect DH ratchet steps and locate skipped keys.
type Header struct {
	DH crypto.JWK `json:"dh"`
	Pn MsgIndex   `json:"pn"`
	N  MsgIndex   `json:"n"`
}

func (h Header) Marshal() ([]byte, error) { return json.Marshal(h) }

func UnmarshalHeader(data []byte) (Header, error) {
	var h Header
	err := json.Unmarshal(data, &h)
	return h, err
}

// skippedKey indexes the skipped-message-key cache by the full remote
// ratchet public key plus message number, so keys from a superseded chain
// are never confused with keys from the current one.
type skippedKey struct {
	RatchetPub [65]byte
	N          MsgIndex
}

func skippedKeyFor(pub *crypto.DHPublicKey, n MsgIndex) skippedKey {
	var k skippedKey
	copy(k.RatchetPub[:], pub.Bytes())
	k.N = n
	return k
}

// State is the full live state of one ratchet, per state-variables. Dhr,
// Cks and Ckr are nil exactly when the corresponding chain has not yet been
// initialized.
type State struct {
	Dhs       *crypto.DHKeyPair
	Dhr       *crypto.DHPublicKey
	Rk        RootKey
	Cks       *RootKey
	Ckr       *RootKey
	Ns        MsgIndex
	Nr        MsgIndex
	Pn        MsgIndex
	MkSkipped map[skippedKey]MsgKey
}

func (s *State) clone() *State {
	c := &State{
		Dhs: s.Dhs,
		Dhr: s.Dhr,
		Rk:  s.Rk,
		Ns:  s.Ns,
		Nr:  s.Nr,
		Pn:  s.Pn,
	}
	if s.Cks != nil {
		ck := *s.Cks
		c.Cks = &ck
	}
	if s.Ckr != nil {
		ck := *s.Ckr
		c.Ckr = &ck
	}
	c.MkSkipped = make(map[skippedKey]MsgKey, len(s.MkSkipped))
	for k, v := range s.MkSkipped {
		c.MkSkipped[k] = v
	}
	return c
}
