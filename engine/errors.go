package engine

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the orchestrator. User-visible text is the chat
// layer's responsibility; this package only returns typed values.
var (
	// ErrNotInitialized means encrypt/decrypt was called before Initialize
	// completed for this engine instance.
	ErrNotInitialized = errors.New("engine: identity not initialized")

	// ErrNoSession means decrypt received a non-X3DH envelope with no
	// cached or stored session for the conversation.
	ErrNoSession = errors.New("engine: no session for this conversation")

	// ErrUndecryptable covers AEAD authentication failure, too-many-
	// skipped-keys, and malformed envelopes. State is never mutated when
	// this is returned.
	ErrUndecryptable = errors.New("engine: envelope undecryptable")

	// ErrBundleUnavailable means the directory has no identity or no
	// signed prekey on file for the remote user.
	ErrBundleUnavailable = errors.New("engine: remote prekey bundle unavailable")

	// ErrBundleInvalid means the remote bundle's signed-prekey signature
	// did not verify. Security-relevant; callers should log this.
	ErrBundleInvalid = errors.New("engine: remote prekey bundle signature invalid")

	// ErrStorage wraps a local key-store failure. Use errors.Is against
	// this sentinel; the underlying store error is available via errors.Unwrap.
	ErrStorage = errors.New("engine: storage failure")

	// ErrDirectory wraps a remote key-directory failure. Encrypt may be
	// retried at the caller's discretion when this is returned.
	ErrDirectory = errors.New("engine: directory failure")
)

func storageErr(err error) error {
	return fmt.Errorf("%w: %v", ErrStorage, err)
}

func directoryErr(err error) error {
	return fmt.Errorf("%w: %v", ErrDirectory, err)
}
