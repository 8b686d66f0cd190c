// Package doubleratchet implements the Double Ratchet message-encryption
// state machine: per-session sending/receiving chains, DH ratchet steps on
// remote-key change, bounded skipped-key caching for out-of-order delivery,
// and deterministic serialization of the live state.
// https://signal.org/docs/specifications/doubleratchet/
package doubleratchet

import (
	"sealwire/configs"
	"sealwire/crypto"
)

const maxSkip = MsgIndex(configs.MaxSkippedMessageKeys)

// DoubleRatchet owns one session's live ratchet state.
type DoubleRatchet struct {
	State *State
}

func newRatchet(s *State) *DoubleRatchet {
	if s.MkSkipped == nil {
		s.MkSkipped = make(map[skippedKey]MsgKey)
	}
	return &DoubleRatchet{State: s}
}

// InitAlice builds the session-initiator's initial state: RK = sharedSecret,
// a fresh local DH pair, and an immediate DH ratchet step against the
// remote's signed prekey that installs the sending chain. There is no
// receiving chain yet.
func InitAlice(sharedSecret RootKey, remoteSignedPrekey *crypto.DHPublicKey) (*DoubleRatchet, error) {
	dhs, err := crypto.GenerateDHKeyPair()
	if err != nil {
		return nil, err
	}
	dhOut, err := crypto.DH(dhs.Private, remoteSignedPrekey)
	if err != nil {
		return nil, err
	}
	rk, cks, err := kdfRK(sharedSecret, dhOut)
	if err != nil {
		return nil, err
	}
	return newRatchet(&State{
		Dhs: dhs,
		Dhr: remoteSignedPrekey,
		Rk:  rk,
		Cks: &cks,
	}), nil
}

// InitBob builds the session-responder's initial state: RK = sharedSecret,
// Dhs = the local signed prekey pair that was referenced in the initiator's
// X3DH preamble. Neither chain exists until the first inbound message
// drives a DH ratchet step.
func InitBob(sharedSecret RootKey, localSignedPrekey *crypto.DHKeyPair) *DoubleRatchet {
	return newRatchet(&State{
		Dhs: localSignedPrekey,
		Rk:  sharedSecret,
	})
}

// Encrypt performs a symmetric-key ratchet step and encrypts plaintext with
// the resulting message key. It fails with ErrNotInitialized if no sending
// chain exists yet (Bob-initial, before any inbound message).
func (dr *DoubleRatchet) Encrypt(plaintext []byte) (Header, []byte, error) {
	if dr.State.Cks == nil {
		return Header{}, nil, ErrNotInitialized
	}

	nextCK, mk := kdfCK(*dr.State.Cks)
	dr.State.Cks = &nextCK

	header := Header{
		DH: crypto.PublicJWK(dr.State.Dhs.Public),
		Pn: dr.State.Pn,
		N:  dr.State.Ns,
	}
	dr.State.Ns++

	ciphertext, err := crypto.AEADEncrypt(mk, plaintext)
	if err != nil {
		return Header{}, nil, err
	}
	return header, ciphertext, nil
}

// Decrypt implements the full receive-side state machine: skipped-cache
// lookup, DH ratchet step on remote-key change, in-chain key skipping, and
// the symmetric-key ratchet step, in that order.
//
// On ErrTooManySkipped the state is left entirely untouched. On AEAD
// authentication failure the DH-ratchet-step mutation (if one happened,
// since it is based on the authenticated header) is retained, but the
// counter advances and skipped-cache insertions made while servicing this
// call are rolled back.
func (dr *DoubleRatchet) Decrypt(header Header, ciphertext []byte) ([]byte, error) {
	remotePub, err := crypto.ParseDHPublicJWK(header.DH)
	if err != nil {
		return nil, ErrUndecryptable
	}

	if mk, ok := dr.popSkipped(remotePub, header.N); ok {
		plaintext, err := crypto.AEADDecrypt(mk, ciphertext)
		if err != nil {
			return nil, ErrUndecryptable
		}
		return plaintext, nil
	}

	work := dr.State.clone()
	ratcheted := false
	if work.Dhr == nil || !keyEqual(work.Dhr, remotePub) {
		if err := dhRatchetStep(work, remotePub, header.Pn); err != nil {
			return nil, err
		}
		ratcheted = true
	}

	// Baseline to commit if the AEAD step below fails: the DH-ratchet-step
	// mutation is kept, everything from skip-forward onward is not.
	var fallback *State
	if ratcheted {
		fallback = work.clone()
	} else {
		fallback = dr.State
	}

	if err := skipMessageKeys(work, header.N); err != nil {
		return nil, err
	}

	nextCK, mk := kdfCK(*work.Ckr)
	work.Ckr = &nextCK
	work.Nr++

	plaintext, err := crypto.AEADDecrypt(mk, ciphertext)
	if err != nil {
		dr.State = fallback
		return nil, ErrUndecryptable
	}

	dr.State = work
	return plaintext, nil
}

func keyEqual(a, b *crypto.DHPublicKey) bool {
	ab, bb := a.Bytes(), b.Bytes()
	if len(ab) != len(bb) {
		return false
	}
	for i := range ab {
		if ab[i] != bb[i] {
			return false
		}
	}
	return true
}

func (dr *DoubleRatchet) popSkipped(pub *crypto.DHPublicKey, n MsgIndex) (MsgKey, bool) {
	key := skippedKeyFor(pub, n)
	mk, ok := dr.State.MkSkipped[key]
	if !ok {
		return MsgKey{}, false
	}
	delete(dr.State.MkSkipped, key)
	return mk, true
}

// dhRatchetStep runs the two-part DH ratchet step triggered by a new remote
// key: cache any unseen keys from the outgoing receiving chain, then
// install the new receiving chain, then generate a fresh local DH pair and
// install the new sending chain.
func dhRatchetStep(s *State, newDhr *crypto.DHPublicKey, headerPn MsgIndex) error {
	if s.Ckr != nil {
		if err := skipMessageKeys(s, headerPn); err != nil {
			return err
		}
	}

	s.Pn = s.Ns
	s.Ns = 0
	s.Nr = 0
	s.Dhr = newDhr

	dhOut, err := crypto.DH(s.Dhs.Private, s.Dhr)
	if err != nil {
		return err
	}
	rk, ckr, err := kdfRK(s.Rk, dhOut)
	if err != nil {
		return err
	}
	s.Rk, s.Ckr = rk, &ckr

	fresh, err := crypto.GenerateDHKeyPair()
	if err != nil {
		return err
	}
	s.Dhs = fresh

	dhOut2, err := crypto.DH(s.Dhs.Private, s.Dhr)
	if err != nil {
		return err
	}
	rk2, cks, err := kdfRK(s.Rk, dhOut2)
	if err != nil {
		return err
	}
	s.Rk, s.Cks = rk2, &cks
	return nil
}

// skipMessageKeys advances the receiving chain up to, but not including,
// message number until, caching every message key it derives along the
// way under the current Dhr.
func skipMessageKeys(s *State, until MsgIndex) error {
	if s.Ckr == nil {
		return nil
	}
	if s.Nr+maxSkip < until {
		return ErrTooManySkipped
	}
	for s.Nr < until {
		nextCK, mk := kdfCK(*s.Ckr)
		s.Ckr = &nextCK
		s.MkSkipped[skippedKeyFor(s.Dhr, s.Nr)] = mk
		s.Nr++
	}
	return nil
}
