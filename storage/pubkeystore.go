package storage

// PubKeyStore maps hash(pubkey) to the raw pubkey bytes. It is populated
// lazily as the engine resolves signers it has not seen before, either by
// request/reply over the bus or by direct announcement.
type PubKeyStore struct {
	db DB
}

// NewPubKeyStore wraps db as a PubKeyStore.
func NewPubKeyStore(db DB) *PubKeyStore {
	return &PubKeyStore{db: db}
}

// Put records pubBytes under hash.
func (s *PubKeyStore) Put(hash [32]byte, pubBytes []byte) error {
	return s.db.Set(hash[:], pubBytes)
}

// Get returns the pubkey bytes stored under hash.
func (s *PubKeyStore) Get(hash [32]byte) ([]byte, error) {
	return s.db.Get(hash[:])
}

// Has reports whether hash is already known.
func (s *PubKeyStore) Has(hash [32]byte) bool {
	_, err := s.db.Get(hash[:])
	return err == nil
}
