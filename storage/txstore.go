package storage

import (
	"fmt"

	"github.com/tolelom/tolchain/core"
)

// TxStore is the durable transaction store: tx hash → serialized
// transaction, written once per committed transaction.
type TxStore struct {
	db DB
}

// NewTxStore wraps db as a TxStore.
func NewTxStore(db DB) *TxStore {
	return &TxStore{db: db}
}

// Put writes tx under its own hash.
func (s *TxStore) Put(tx *core.Transaction) error {
	data, err := tx.Encode()
	if err != nil {
		return fmt.Errorf("storage: encode transaction: %w", err)
	}
	hash := tx.Hash()
	return s.db.Set(hash[:], data)
}

// Get reads the transaction stored under hash.
func (s *TxStore) Get(hash [32]byte) (*core.Transaction, error) {
	data, err := s.db.Get(hash[:])
	if err != nil {
		return nil, err
	}
	return core.DecodeTransaction(data)
}

// Has reports whether hash has a committed transaction.
func (s *TxStore) Has(hash [32]byte) bool {
	_, err := s.db.Get(hash[:])
	return err == nil
}
