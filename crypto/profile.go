// Package crypto abstracts signing and verification behind a single
// capability set so the rest of the engine never branches on which
// signature scheme a node was started with.
package crypto

import "fmt"

// PublicKey is a verifying key for one of the supported profiles.
type PublicKey interface {
	// Bytes returns the canonical wire encoding of the key.
	Bytes() []byte
	// Hash returns blake2b(Bytes()) — the identity used throughout the
	// rest of the system (proposer_pub, pubkey-store keys, address hex).
	Hash() [32]byte
}

// PrivateKey is a signing key for one of the supported profiles.
type PrivateKey interface {
	// Sign returns the profile's signature over msg.
	Sign(msg []byte) ([]byte, error)
	// Public returns the matching PublicKey.
	Public() PublicKey
}

// Profile names a signature scheme and carries everything that differs
// between them: key generation, public-key parsing, verification, and the
// on-disk file names that must not collide between profiles running on
// the same machine.
type Profile interface {
	Name() string
	GenerateKey() (PrivateKey, error)
	ParsePublicKey(b []byte) (PublicKey, error)
	Verify(pub PublicKey, msg, sig []byte) bool
	GenesisFile() string
	KeyFile() string
	StoreDir(kind string) string // kind is one of "tx", "block", "accounts", "pubkeys"
}

// Kind identifies which profile a node was configured to run.
type Kind string

const (
	KindClassical Kind = "classical"
	KindLattice   Kind = "lattice"
)

// ForKind returns the Profile implementation for kind.
func ForKind(kind Kind) (Profile, error) {
	switch kind {
	case KindClassical, "":
		return Classical{}, nil
	case KindLattice:
		return Lattice{}, nil
	default:
		return nil, fmt.Errorf("crypto: unknown profile %q", kind)
	}
}
