package engine

import (
	"context"
	"errors"

	"sealwire/protocol/doubleratchet"
)

// Decrypt decrypts an inbound wire envelope for conversationID. Envelopes
// that do not carry the protocol's version tag pass through unchanged,
// since they are not this engine's ciphertext.
func (e *Engine) Decrypt(ctx context.Context, conversationID, remoteUserID, envelope string) (string, error) {
	if !IsSignalEnvelope(envelope) {
		return envelope, nil
	}
	if e.identity == nil {
		return "", ErrNotInitialized
	}

	lock := e.lockFor(conversationID)
	lock.Lock()
	defer lock.Unlock()

	env, err := decodeEnvelope(envelope)
	if err != nil {
		return "", ErrUndecryptable
	}
	ciphertext, err := env.ciphertextBytes()
	if err != nil {
		return "", ErrUndecryptable
	}

	dr, existing, err := e.loadCachedOrPersisted(ctx, conversationID)
	if err != nil {
		return "", err
	}

	if dr == nil {
		if env.X3DH == nil {
			return "", ErrNoSession
		}
		dr, err = e.completeSession(ctx, env.X3DH)
		if err != nil {
			return "", err
		}
	}

	plaintext, err := dr.Decrypt(env.header(), ciphertext)
	if err != nil {
		if errors.Is(err, doubleratchet.ErrUndecryptable) || errors.Is(err, doubleratchet.ErrTooManySkipped) {
			return "", ErrUndecryptable
		}
		return "", err
	}

	if err := e.persistSession(ctx, conversationID, remoteUserID, dr, existing, e.clock()); err != nil {
		return "", err
	}
	return string(plaintext), nil
}
