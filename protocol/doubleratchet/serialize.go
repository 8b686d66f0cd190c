package doubleratchet

import (
	"encoding/base64"
	"encoding/json"

	"sealwire/crypto"
)

// skippedEntry is one row of the serialized skipped-key cache.
type skippedEntry struct {
	RatchetPub string   `json:"ratchetPub"` // base64 of the 65-byte uncompressed point
	N          MsgIndex `json:"n"`
	Key        string   `json:"key"` // base64 of the 32-byte message key
}

type wireState struct {
	Dhs       crypto.JWK     `json:"dhs"`
	Dhr       *crypto.JWK    `json:"dhr,omitempty"`
	Rk        string         `json:"rk"`
	Cks       string         `json:"cks,omitempty"`
	Ckr       string         `json:"ckr,omitempty"`
	Ns        MsgIndex       `json:"ns"`
	Nr        MsgIndex       `json:"nr"`
	Pn        MsgIndex       `json:"pn"`
	MkSkipped []skippedEntry `json:"mkSkipped"`
}

// Marshal snapshots the full live state, including the skipped-key cache
// and both DH key pairs, for durable persistence.
func (dr *DoubleRatchet) Marshal() ([]byte, error) {
	s := dr.State
	w := wireState{
		Dhs: crypto.PrivateJWK(s.Dhs),
		Rk:  base64.StdEncoding.EncodeToString(s.Rk[:]),
		Ns:  s.Ns,
		Nr:  s.Nr,
		Pn:  s.Pn,
	}
	if s.Dhr != nil {
		j := crypto.PublicJWK(s.Dhr)
		w.Dhr = &j
	}
	if s.Cks != nil {
		w.Cks = base64.StdEncoding.EncodeToString(s.Cks[:])
	}
	if s.Ckr != nil {
		w.Ckr = base64.StdEncoding.EncodeToString(s.Ckr[:])
	}
	for k, mk := range s.MkSkipped {
		w.MkSkipped = append(w.MkSkipped, skippedEntry{
			RatchetPub: base64.StdEncoding.EncodeToString(k.RatchetPub[:]),
			N:          k.N,
			Key:        base64.StdEncoding.EncodeToString(mk[:]),
		})
	}
	return json.Marshal(w)
}

// Unmarshal re-imports a snapshot produced by Marshal, re-importing key
// material through the crypto facade.
func Unmarshal(data []byte) (*DoubleRatchet, error) {
	var w wireState
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}

	dhs, err := crypto.ParseDHPrivateJWK(w.Dhs)
	if err != nil {
		return nil, err
	}

	s := &State{
		Dhs:       dhs,
		Ns:        w.Ns,
		Nr:        w.Nr,
		Pn:        w.Pn,
		MkSkipped: make(map[skippedKey]MsgKey, len(w.MkSkipped)),
	}

	if rk, err := base64.StdEncoding.DecodeString(w.Rk); err != nil {
		return nil, err
	} else {
		copy(s.Rk[:], rk)
	}

	if w.Dhr != nil {
		dhr, err := crypto.ParseDHPublicJWK(*w.Dhr)
		if err != nil {
			return nil, err
		}
		s.Dhr = dhr
	}
	if w.Cks != "" {
		raw, err := base64.StdEncoding.DecodeString(w.Cks)
		if err != nil {
			return nil, err
		}
		var ck RootKey
		copy(ck[:], raw)
		s.Cks = &ck
	}
	if w.Ckr != "" {
		raw, err := base64.StdEncoding.DecodeString(w.Ckr)
		if err != nil {
			return nil, err
		}
		var ck RootKey
		copy(ck[:], raw)
		s.Ckr = &ck
	}
	for _, e := range w.MkSkipped {
		pubBytes, err := base64.StdEncoding.DecodeString(e.RatchetPub)
		if err != nil {
			return nil, err
		}
		keyBytes, err := base64.StdEncoding.DecodeString(e.Key)
		if err != nil {
			return nil, err
		}
		var sk skippedKey
		copy(sk.RatchetPub[:], pubBytes)
		sk.N = e.N
		var mk MsgKey
		copy(mk[:], keyBytes)
		s.MkSkipped[sk] = mk
	}

	return newRatchet(s), nil
}
