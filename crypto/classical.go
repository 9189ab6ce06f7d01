package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
)

// Classical is the Ed25519 signature profile: 32-byte keys, signatures
// that carry no implicit signer identity.
type Classical struct{}

func (Classical) Name() string { return "classical" }

func (Classical) GenesisFile() string { return "NEMEZIS" }
func (Classical) KeyFile() string     { return "validator.pem" }
func (Classical) StoreDir(kind string) string {
	switch kind {
	case "tx":
		return "tx.db"
	case "block":
		return "db.db"
	case "accounts":
		return "accounts.db"
	case "pubkeys":
		return "pubkeys.db"
	default:
		panic("crypto: unknown store kind " + kind)
	}
}

func (Classical) GenerateKey() (PrivateKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return classicalPriv{priv: priv, pub: classicalPub{pub}}, nil
}

func (Classical) ParsePublicKey(b []byte) (PublicKey, error) {
	if len(b) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("crypto: classical pubkey must be %d bytes, got %d", ed25519.PublicKeySize, len(b))
	}
	pk := make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(pk, b)
	return classicalPub{pk}, nil
}

func (Classical) Verify(pub PublicKey, msg, sig []byte) bool {
	cp, ok := pub.(classicalPub)
	if !ok {
		return false
	}
	return ed25519.Verify(cp.pub, msg, sig)
}

type classicalPub struct {
	pub ed25519.PublicKey
}

func (p classicalPub) Bytes() []byte { return []byte(p.pub) }
func (p classicalPub) Hash() [32]byte {
	return Hash(p.pub)
}

type classicalPriv struct {
	priv ed25519.PrivateKey
	pub  classicalPub
}

func (p classicalPriv) Sign(msg []byte) ([]byte, error) {
	return ed25519.Sign(p.priv, msg), nil
}

func (p classicalPriv) Public() PublicKey { return p.pub }

// PrivateKeyBytesClassical exposes the raw 64-byte seed||pub encoding, used
// by the keystore when persisting a classical key to disk.
func PrivateKeyBytesClassical(priv PrivateKey) ([]byte, error) {
	cp, ok := priv.(classicalPriv)
	if !ok {
		return nil, fmt.Errorf("crypto: not a classical key")
	}
	return []byte(cp.priv), nil
}

// ClassicalFromBytes reconstructs a classical private key from the raw
// ed25519.PrivateKeySize bytes written by the keystore.
func ClassicalFromBytes(b []byte) (PrivateKey, error) {
	if len(b) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("crypto: classical privkey must be %d bytes, got %d", ed25519.PrivateKeySize, len(b))
	}
	priv := make(ed25519.PrivateKey, ed25519.PrivateKeySize)
	copy(priv, b)
	pub := make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(pub, priv[32:])
	return classicalPriv{priv: priv, pub: classicalPub{pub}}, nil
}
