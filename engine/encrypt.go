package engine

import (
	"context"
)

// Encrypt encrypts plaintext for conversationID, addressed to remoteUserID,
// initiating a new session via X3DH if none exists yet. The returned
// string is a wire envelope ready to hand to the transport layer.
func (e *Engine) Encrypt(ctx context.Context, conversationID, remoteUserID string, plaintext []byte) (string, error) {
	if e.identity == nil {
		return "", ErrNotInitialized
	}

	lock := e.lockFor(conversationID)
	lock.Lock()
	defer lock.Unlock()

	dr, existing, err := e.loadCachedOrPersisted(ctx, conversationID)
	if err != nil {
		return "", err
	}

	var preamble *wireX3DHPreamble
	if dr == nil {
		dr, preamble, err = e.initiateSession(ctx, remoteUserID)
		if err != nil {
			return "", err
		}
	}

	header, ciphertext, err := dr.Encrypt(plaintext)
	if err != nil {
		return "", err
	}

	envelope, err := encodeEnvelope(header, ciphertext, preamble)
	if err != nil {
		return "", err
	}

	if err := e.persistSession(ctx, conversationID, remoteUserID, dr, existing, e.clock()); err != nil {
		return "", err
	}
	return envelope, nil
}
