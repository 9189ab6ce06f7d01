package crypto

import (
	"crypto/rand"
	"fmt"

	"github.com/cloudflare/circl/sign/dilithium/mode2"
)

// Lattice is the post-quantum profile: CRYSTALS-Dilithium mode2, the
// lattice-based signature scheme available in the Go ecosystem and the
// closest public equivalent to the GLP construction the original source
// used. Keys are larger than Ed25519's and signatures carry no implicit
// pubkey, so callers must always resolve the signer through the pubkey
// store (mirroring how the classical profile is now required to as well —
// see Open Question 3 in SPEC_FULL.md).
type Lattice struct{}

func (Lattice) Name() string { return "lattice" }

func (Lattice) GenesisFile() string { return "qNEMEZIS" }
func (Lattice) KeyFile() string     { return "qvalidator.pem" }
func (Lattice) StoreDir(kind string) string {
	switch kind {
	case "tx":
		return "qtx.db"
	case "block":
		return "qdb.db"
	case "accounts":
		return "qaccounts.db"
	case "pubkeys":
		return "qpubkeys.db"
	default:
		panic("crypto: unknown store kind " + kind)
	}
}

func (Lattice) GenerateKey() (PrivateKey, error) {
	pub, priv, err := mode2.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return latticePriv{priv: priv, pub: latticePub{pub}}, nil
}

func (Lattice) ParsePublicKey(b []byte) (PublicKey, error) {
	if len(b) != mode2.PublicKeySize {
		return nil, fmt.Errorf("crypto: lattice pubkey must be %d bytes, got %d", mode2.PublicKeySize, len(b))
	}
	pub := new(mode2.PublicKey)
	if err := pub.UnmarshalBinary(b); err != nil {
		return nil, fmt.Errorf("crypto: unmarshal lattice pubkey: %w", err)
	}
	return latticePub{pub}, nil
}

func (Lattice) Verify(pub PublicKey, msg, sig []byte) bool {
	lp, ok := pub.(latticePub)
	if !ok {
		return false
	}
	return mode2.Verify(lp.pub, msg, sig)
}

type latticePub struct {
	pub *mode2.PublicKey
}

func (p latticePub) Bytes() []byte {
	b, _ := p.pub.MarshalBinary()
	return b
}

func (p latticePub) Hash() [32]byte {
	return Hash(p.Bytes())
}

type latticePriv struct {
	priv *mode2.PrivateKey
	pub  latticePub
}

func (p latticePriv) Sign(msg []byte) ([]byte, error) {
	sig := make([]byte, mode2.SignatureSize)
	mode2.SignTo(p.priv, msg, sig)
	return sig, nil
}

func (p latticePriv) Public() PublicKey { return p.pub }

// PrivateKeyBytesLattice exposes the raw private-key encoding for the
// keystore to persist.
func PrivateKeyBytesLattice(priv PrivateKey) ([]byte, error) {
	lp, ok := priv.(latticePriv)
	if !ok {
		return nil, fmt.Errorf("crypto: not a lattice key")
	}
	return lp.priv.MarshalBinary()
}

// LatticeFromBytes reconstructs a lattice private key from the bytes
// written by the keystore.
func LatticeFromBytes(b []byte) (PrivateKey, error) {
	priv := new(mode2.PrivateKey)
	if err := priv.UnmarshalBinary(b); err != nil {
		return nil, fmt.Errorf("crypto: unmarshal lattice privkey: %w", err)
	}
	return latticePriv{priv: priv, pub: latticePub{priv.Public().(*mode2.PublicKey)}}, nil
}
