package doubleratchet

import "errors"

var (
	// ErrNotInitialized is returned by Encrypt before a sending chain
	// exists — Bob-initial, before any DH ratchet step has run.
	ErrNotInitialized = errors.New("doubleratchet: sending chain not initialized")
	// ErrTooManySkipped is returned when a header implies skipping more
	// than MaxSkippedMessageKeys keys in one chain.
	ErrTooManySkipped = errors.New("doubleratchet: too many skipped message keys")
	// ErrUndecryptable wraps AEAD authentication failure.
	ErrUndecryptable = errors.New("doubleratchet: message is undecryptable")
)
