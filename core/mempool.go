package core

import (
	"bytes"
	"sort"
	"sync"
)

// Mempool is a thread-safe pending-transaction pool keyed by transaction
// hash. Insertion order is irrelevant; every entry is removable in O(1).
type Mempool struct {
	mu  sync.RWMutex
	txs map[[32]byte]*Transaction
}

// NewMempool creates an empty mempool.
func NewMempool() *Mempool {
	return &Mempool{txs: make(map[[32]byte]*Transaction)}
}

// Insert adds tx keyed by its hash. It reports false without modifying the
// pool if a transaction with the same hash is already present — the
// caller (the event loop) treats that as "ignore, already have it".
func (m *Mempool) Insert(tx *Transaction) bool {
	h := tx.Hash()
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.txs[h]; exists {
		return false
	}
	m.txs[h] = tx
	return true
}

// Get returns the pending transaction with the given hash, if any.
func (m *Mempool) Get(hash [32]byte) (*Transaction, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tx, ok := m.txs[hash]
	return tx, ok
}

// Remove deletes a transaction by hash (called when it is moved to the tx
// store as part of a block commit).
func (m *Mempool) Remove(hash [32]byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.txs, hash)
}

// Len returns the number of pending transactions.
func (m *Mempool) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.txs)
}

// SortedHashes returns every pending transaction hash in lexicographic
// order — the canonical block-assembly order required by §3 and §4.3.
func (m *Mempool) SortedHashes() [][32]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	hashes := make([][32]byte, 0, len(m.txs))
	for h := range m.txs {
		hashes = append(hashes, h)
	}
	sort.Slice(hashes, func(i, j int) bool {
		return bytes.Compare(hashes[i][:], hashes[j][:]) < 0
	})
	return hashes
}

// Has reports whether hash is currently pending.
func (m *Mempool) Has(hash [32]byte) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.txs[hash]
	return ok
}
