package sync

import (
	"encoding/hex"
	"encoding/json"
	"errors"
)

// Resources is the subset of engine state the sync reply path of §4.4
// needs. The engine implements this directly against its head/stores.
type Resources interface {
	Height() uint64
	GenesisBlockBytes() ([]byte, bool)
	HashAtHeight(height uint64) ([32]byte, bool)
	TransactionBytesAtHash(hash [32]byte) ([]byte, bool)
	BlockBytesAtHash(hash [32]byte) ([]byte, bool)
}

var errBadHash = errors.New("sync: hash must be 32 bytes hex")

// HandleRequest decodes body as a Request and builds the Response per the
// table in §4.4. ok is false whenever the request names something unknown
// and must be silently dropped rather than answered.
func HandleRequest(r Resources, body []byte) (resp []byte, ok bool) {
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, false
	}
	switch req.Kind {
	case KindGetHeight:
		return encode(Response{Kind: KindHeight, Height: r.Height()})

	case KindGetGenesis:
		b, found := r.GenesisBlockBytes()
		if !found {
			return nil, false
		}
		return encode(Response{Kind: KindBlock, Block: b})

	case KindAtHeight:
		hash, found := r.HashAtHeight(req.Height)
		if !found {
			return nil, false
		}
		return encode(Response{Kind: KindBlockHash, Hash: hex.EncodeToString(hash[:])})

	case KindTransactionAtHash:
		hash, err := decodeHash(req.Hash)
		if err != nil {
			return nil, false
		}
		b, found := r.TransactionBytesAtHash(hash)
		if !found {
			return nil, false
		}
		return encode(Response{Kind: KindTransaction, Transaction: b})

	case KindBlockAtHash:
		hash, err := decodeHash(req.Hash)
		if err != nil {
			return nil, false
		}
		b, found := r.BlockBytesAtHash(hash)
		if !found {
			return nil, false
		}
		return encode(Response{Kind: KindBlock, Block: b})

	default:
		return nil, false
	}
}

func encode(resp Response) ([]byte, bool) {
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, false
	}
	return data, true
}

func decodeHash(s string) ([32]byte, error) {
	var out [32]byte
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 32 {
		return out, errBadHash
	}
	copy(out[:], b)
	return out, nil
}
