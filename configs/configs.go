// Package configs centralizes the tunable constants and Redis key
// templates shared by the key store, the directory client and the
// orchestrator, the way the upstream client/server split once shared its
// address and key-template constants from a single place.
package configs

import "time"

var (
	RedisAddress = "localhost:6379"

	// Local key store, keyed per local user id.
	StoreIdentityKey       = "store:identity:%s"
	StoreSignedPrekeyKey   = "store:signedprekey:%s:%d"
	StoreOneTimePrekeyKey  = "store:otpk:%s:%d"
	StoreSessionKey        = "store:session:%s"
	StoreMetadataKey       = "store:meta:%s:%s"
	StoreSignedPrekeyIndex = "store:signedprekey-ids:%s"
	StoreOTPKIndex         = "store:otpk-ids:%s"
	StoreSessionIndex      = "store:session-ids"

	// Remote key directory, keyed per remote user id.
	DirectoryIdentityKey     = "directory:identity:%s"
	DirectorySignedPrekeyKey = "directory:signedprekey:%s"
	DirectoryOTPKSetKey      = "directory:otpk:%s"
	DirectoryOTPKRecordKey   = "directory:otpk:%s:%d"
)

const (
	// SignedPrekeyRotationPeriod is how long a signed prekey remains current
	// before initialize() generates and publishes a replacement.
	SignedPrekeyRotationPeriod = 7 * 24 * time.Hour

	// OneTimePrekeyLowWaterMark triggers a refill once the directory's
	// unused pool for a user drops below this count.
	OneTimePrekeyLowWaterMark = 10

	// OneTimePrekeyTargetPoolSize is the pool size a refill tops back up to.
	OneTimePrekeyTargetPoolSize = 20

	// InitialOneTimePrekeyCount is generated once, on first initialize().
	InitialOneTimePrekeyCount = OneTimePrekeyTargetPoolSize

	// RegistrationIDBits bounds the registration id to [0, 2^14).
	RegistrationIDBits = 14

	// MaxSkippedMessageKeys bounds the skipped-key cache per receiving chain.
	MaxSkippedMessageKeys = 256
)

const (
	HKDFInfoX3DHSharedSecret = "signal-x3dh-shared-secret"
	HKDFInfoRootChain        = "signal-root-chain"
	HKDFInfoMessageEncrypt   = "signal-msg-encrypt"
)

// EnvelopeVersion is the only wire version this engine understands.
const EnvelopeVersion = 2
