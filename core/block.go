package core

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tolelom/tolchain/crypto"
)

// BlockData is the hashed, unsigned body of a block.
type BlockData struct {
	PrevHash   string     `json:"prev_hash"` // hex-encoded parent hash
	Txes       [][32]byte `json:"txes"`      // ordered tx hashes; canonical block-assembly order
	MerkleRoot [32]byte   `json:"merkle_root"`
	Height     uint64     `json:"height"`
	Timestamp  uint64     `json:"timestamp"` // unix nanos
}

// HashedBlock pairs BlockData with its own content hash.
type HashedBlock struct {
	Data BlockData `json:"data"`
	Hash [32]byte  `json:"hash"`
}

// Block is a signed, hashed sequence of transactions extending the chain
// at one height.
type Block struct {
	Hashed      HashedBlock `json:"hashed"`
	ProposerPub [32]byte    `json:"proposer_pub"`
	Signature   []byte      `json:"signature"`
}

// GenesisPrevHash is H(zeros), the canonical prev_hash for height 0.
func GenesisPrevHash() string {
	return hex.EncodeToString(crypto.ZeroHash[:])
}

func computeBlockHash(data BlockData) [32]byte {
	raw, err := json.Marshal(data)
	if err != nil {
		panic(fmt.Sprintf("core: marshal block data: %v", err))
	}
	return crypto.Hash(raw)
}

// NewBlock assembles and signs a new block. txes must already be in
// canonical (lexicographic-by-hash) order — block-assembly order is a
// consensus invariant enforced by the caller (the proposal path sorts
// before calling NewBlock).
func NewBlock(prevHash string, txes [][32]byte, height uint64, timestamp uint64, priv crypto.PrivateKey) (*Block, error) {
	data := BlockData{
		PrevHash:   prevHash,
		Txes:       txes,
		MerkleRoot: MerkleRoot(txes),
		Height:     height,
		Timestamp:  timestamp,
	}
	hash := computeBlockHash(data)
	sig, err := priv.Sign(hash[:])
	if err != nil {
		return nil, fmt.Errorf("core: sign block: %w", err)
	}
	return &Block{
		Hashed:      HashedBlock{Data: data, Hash: hash},
		ProposerPub: priv.Public().Hash(),
		Signature:   sig,
	}, nil
}

// Hash returns the block's content hash.
func (b *Block) Hash() [32]byte { return b.Hashed.Hash }

// Height returns the block's height.
func (b *Block) Height() uint64 { return b.Hashed.Data.Height }

// Timestamp returns the block's unix-nano timestamp.
func (b *Block) Timestamp() uint64 { return b.Hashed.Data.Timestamp }

// Verify checks, in order: the recomputed content hash matches
// Hashed.Hash, the merkle root over Hashed.Data.Txes matches
// Hashed.Data.MerkleRoot, hash(pub) equals ProposerPub, and the signature
// verifies over the block hash under pub.
func (b *Block) Verify(profile crypto.Profile, pub crypto.PublicKey) error {
	if computed := computeBlockHash(b.Hashed.Data); computed != b.Hashed.Hash {
		return errors.New("core: block hash mismatch")
	}
	if root := MerkleRoot(b.Hashed.Data.Txes); root != b.Hashed.Data.MerkleRoot {
		return errors.New("core: block merkle root mismatch")
	}
	if pub.Hash() != b.ProposerPub {
		return errors.New("core: block proposer pubkey mismatch")
	}
	if !profile.Verify(pub, b.Hashed.Hash[:], b.Signature) {
		return errors.New("core: block signature invalid")
	}
	return nil
}

// Encode serialises b to its canonical wire/storage form.
func (b *Block) Encode() ([]byte, error) {
	return json.Marshal(b)
}

// DecodeBlock parses the bytes produced by Encode.
func DecodeBlock(data []byte) (*Block, error) {
	var b Block
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("core: decode block: %w", err)
	}
	return &b, nil
}
