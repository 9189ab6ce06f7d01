package storage

import (
	"fmt"
	"strconv"
)

// AccountStore maps a recipient identity to a monotonically increasing
// counter of transactions ever seen — not committed, not deduplicated by
// sender — addressed to that recipient. This is kept verbatim per Open
// Question 2 in SPEC_FULL.md.
type AccountStore struct {
	db DB
}

// NewAccountStore wraps db as an AccountStore.
func NewAccountStore(db DB) *AccountStore {
	return &AccountStore{db: db}
}

// IncrementSeen bumps the seen-count for recipient by one and returns the
// new value.
func (s *AccountStore) IncrementSeen(recipient [32]byte) (uint64, error) {
	cur, err := s.Get(recipient)
	if err != nil {
		return 0, err
	}
	cur++
	if err := s.db.Set(recipient[:], []byte(strconv.FormatUint(cur, 10))); err != nil {
		return 0, err
	}
	return cur, nil
}

// Get reads the current seen-count for recipient, defaulting to 0.
func (s *AccountStore) Get(recipient [32]byte) (uint64, error) {
	val, err := s.db.Get(recipient[:])
	if err == ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseUint(string(val), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("storage: parse account counter: %w", err)
	}
	return n, nil
}
