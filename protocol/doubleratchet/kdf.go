package doubleratchet

import (
	"sealwire/configs"
	"sealwire/crypto"
)

// kdfRK is KDF_RK: out = HKDF(ikm=dhOut, salt=rk, info="signal-root-chain", len=64),
// split into a new 32-byte root key and a new 32-byte chain key.
func kdfRK(rk RootKey, dhOut []byte) (newRK RootKey, chainKey RootKey, err error) {
	out, err := crypto.HKDF(dhOut, rk[:], configs.HKDFInfoRootChain, 64)
	if err != nil {
		return RootKey{}, RootKey{}, err
	}
	copy(newRK[:], out[:32])
	copy(chainKey[:], out[32:64])
	return newRK, chainKey, nil
}

// kdfCK is KDF_CK: mk = HMAC(ck, 0x01), ckNext = HMAC(ck, 0x02).
func kdfCK(ck RootKey) (nextCK RootKey, mk MsgKey) {
	mkBytes := crypto.HMACSHA256(ck[:], []byte{0x01})
	ckBytes := crypto.HMACSHA256(ck[:], []byte{0x02})
	copy(mk[:], mkBytes)
	copy(nextCK[:], ckBytes)
	return nextCK, mk
}
