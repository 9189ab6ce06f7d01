package core

import "github.com/tolelom/tolchain/crypto"

// MerkleRoot builds a deterministic binary hash tree over leaves with a
// fixed pairwise combiner and returns the root. An odd node at a level is
// promoted unchanged to the next level rather than duplicated, matching
// the static_merkle_tree construction the original source used.
func MerkleRoot(leaves [][32]byte) [32]byte {
	if len(leaves) == 0 {
		return crypto.Hash([]byte("empty"))
	}
	level := make([][32]byte, len(leaves))
	copy(level, leaves)
	for len(level) > 1 {
		next := make([][32]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				next = append(next, combine(level[i], level[i+1]))
			} else {
				next = append(next, level[i])
			}
		}
		level = next
	}
	return level[0]
}

// combine is the fixed pairwise merkle combiner: hash(left || right).
func combine(a, b [32]byte) [32]byte {
	buf := make([]byte, 0, 64)
	buf = append(buf, a[:]...)
	buf = append(buf, b[:]...)
	return crypto.Hash(buf)
}
