package crypto

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Hash returns the 32-byte blake2b-256 digest of data. This is the single
// content-addressing primitive used for transaction hashes, block hashes
// and the merkle combiner.
func Hash(data []byte) [32]byte {
	return blake2b.Sum256(data)
}

// HashHex returns the lowercase hex encoding of Hash(data).
func HashHex(data []byte) string {
	h := Hash(data)
	return hex.EncodeToString(h[:])
}

// ZeroHash is the digest of 32 zero bytes, H(zeros), used as the genesis
// block's prev_hash input.
var ZeroHash = Hash(make([]byte, 32))
