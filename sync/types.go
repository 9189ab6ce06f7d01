// Package sync implements the peer query protocol of §4.4 (the reply
// path any node serves to its peers) and the startup catch-up protocol of
// §4.5 (the Synchronizer).
package sync

// Pub/sub subjects used by the sync protocol and its neighbours.
const (
	SubjectSynchronize = "Synchronize"
	SubjectPubKey       = "PubKey"
	SubjectBlockPropose = "block.propose"
	SubjectTxBroadcast  = "tx.broadcast"
	SubjectChat         = "chat"
)

// Kind tags a Synchronize request or response variant.
type Kind string

const (
	KindGetHeight         Kind = "GetHeight"
	KindGetGenesis        Kind = "GetNemezis"
	KindAtHeight          Kind = "AtHeight"
	KindTransactionAtHash Kind = "TransactionAtHash"
	KindBlockAtHash       Kind = "BlockAtHash"

	KindHeight      Kind = "Height"
	KindBlock       Kind = "Block"
	KindBlockHash   Kind = "BlockHash"
	KindTransaction Kind = "Transaction"
)

// Request is the tagged body of a Synchronize request.
type Request struct {
	Kind   Kind   `json:"kind"`
	Height uint64 `json:"height,omitempty"`
	Hash   string `json:"hash,omitempty"` // hex-encoded
}

// Response is the tagged body published back on the caller's reply subject.
type Response struct {
	Kind        Kind   `json:"kind"`
	Height      uint64 `json:"height,omitempty"`
	Hash        string `json:"hash,omitempty"` // hex-encoded
	Block       []byte `json:"block,omitempty"`
	Transaction []byte `json:"transaction,omitempty"`
}
