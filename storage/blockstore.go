package storage

import (
	"fmt"
	"strconv"

	"github.com/tolelom/tolchain/core"
)

// BlockStore is the durable block store: hash → serialized block,
// "block"+decimal(height) → hash, "height" → decimal(max committed height).
type BlockStore struct {
	db DB
}

// NewBlockStore wraps db as a BlockStore.
func NewBlockStore(db DB) *BlockStore {
	return &BlockStore{db: db}
}

// PutBlock writes the block under its own content hash.
func (s *BlockStore) PutBlock(b *core.Block) error {
	data, err := b.Encode()
	if err != nil {
		return fmt.Errorf("storage: encode block: %w", err)
	}
	hash := b.Hash()
	return s.db.Set(hash[:], data)
}

// GetBlock reads the block stored under hash.
func (s *BlockStore) GetBlock(hash [32]byte) (*core.Block, error) {
	data, err := s.db.Get(hash[:])
	if err != nil {
		return nil, err
	}
	return core.DecodeBlock(data)
}

// HasBlock reports whether a block with the given hash is already stored.
func (s *BlockStore) HasBlock(hash [32]byte) bool {
	_, err := s.db.Get(hash[:])
	return err == nil
}

// DeleteBlock removes the block record for hash.
func (s *BlockStore) DeleteBlock(hash [32]byte) error {
	return s.db.Delete(hash[:])
}

// PutHeightIndex records that the block at height has the given hash.
// The key is always derived from the block's own height, never from a
// separately tracked running counter (see Open Question 1 in SPEC_FULL.md).
func (s *BlockStore) PutHeightIndex(height uint64, hash [32]byte) error {
	return s.db.Set(heightIndexKey(height), hash[:])
}

// GetHashAtHeight returns the block hash recorded for height.
func (s *BlockStore) GetHashAtHeight(height uint64) ([32]byte, error) {
	var out [32]byte
	val, err := s.db.Get(heightIndexKey(height))
	if err != nil {
		return out, err
	}
	copy(out[:], val)
	return out, nil
}

// SetHeight persists the current chain height.
func (s *BlockStore) SetHeight(height uint64) error {
	return s.db.Set([]byte("height"), []byte(strconv.FormatUint(height, 10)))
}

// GetHeight reads the persisted chain height, defaulting to 0 when the key
// is absent (a fresh store).
func (s *BlockStore) GetHeight() (uint64, error) {
	val, err := s.db.Get([]byte("height"))
	if err == ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	h, err := strconv.ParseUint(string(val), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("storage: parse height: %w", err)
	}
	return h, nil
}

func heightIndexKey(height uint64) []byte {
	return []byte("block" + strconv.FormatUint(height, 10))
}
