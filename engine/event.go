package engine

import (
	"github.com/tolelom/tolchain/crypto"
)

// Kind tags which event variant a queued Event carries, per §4.1.
type Kind int

const (
	KindBlockArrival Kind = iota
	KindTransactionArrival
	KindRawTransaction
	KindPublishTx
	KindGetHeight
	KindGetTx
	KindChat
	KindPubKeyAnnouncement
	KindVmBuild
	KindSyncRequest
)

// Event is the single tagged type pushed through the engine's bounded
// queue. Only the fields relevant to Kind are populated; the rest are zero.
type Event struct {
	Kind Kind

	Block []byte // BlockArrival
	Tx    []byte // TransactionArrival

	Raw []byte // RawTransaction

	To         [32]byte          // PublishTx
	Data       []byte            // PublishTx, Chat
	SigningKey crypto.PrivateKey // PublishTx

	Hash [32]byte // GetTx

	PubKey       []byte // PubKeyAnnouncement
	ReplySubject string // PubKeyAnnouncement, SyncRequest: subject to publish the answer on

	File string // VmBuild

	Body []byte // SyncRequest: the encoded sync.Request

	HeightReply chan uint64           // GetHeight
	TxReply     chan *txReplyResult   // GetTx
	VmReply     chan *vmBuildResult   // VmBuild
}

type txReplyResult struct {
	Data  []byte
	Found bool
}

type vmBuildResult struct {
	BuildID string
	Err     error
}

// BlockArrival builds a BlockArrival event.
func BlockArrival(block []byte) Event { return Event{Kind: KindBlockArrival, Block: block} }

// TransactionArrival builds a TransactionArrival event.
func TransactionArrival(tx []byte) Event { return Event{Kind: KindTransactionArrival, Tx: tx} }

// RawTransaction builds a RawTransaction pass-through event.
func RawTransaction(raw []byte) Event { return Event{Kind: KindRawTransaction, Raw: raw} }

// PublishTx builds a PublishTx event.
func PublishTx(to [32]byte, data []byte, key crypto.PrivateKey) Event {
	return Event{Kind: KindPublishTx, To: to, Data: data, SigningKey: key}
}

// GetHeight builds a GetHeight event with its one-shot reply channel.
func GetHeight() (Event, chan uint64) {
	ch := make(chan uint64, 1)
	return Event{Kind: KindGetHeight, HeightReply: ch}, ch
}

// GetTx builds a GetTx event with its one-shot reply channel.
func GetTx(hash [32]byte) (Event, chan *txReplyResult) {
	ch := make(chan *txReplyResult, 1)
	return Event{Kind: KindGetTx, Hash: hash, TxReply: ch}, ch
}

// Chat builds a Chat event.
func Chat(data []byte) Event { return Event{Kind: KindChat, Data: data} }

// PubKeyAnnouncement builds a PubKeyAnnouncement event. replySubject is
// empty when this is an unsolicited announcement rather than a reply to a
// PubKey request.
func PubKeyAnnouncement(pubkey []byte, replySubject string) Event {
	return Event{Kind: KindPubKeyAnnouncement, PubKey: pubkey, ReplySubject: replySubject}
}

// VmBuild builds a VmBuild event with its one-shot reply channel.
func VmBuild(file string) (Event, chan *vmBuildResult) {
	ch := make(chan *vmBuildResult, 1)
	return Event{Kind: KindVmBuild, File: file, VmReply: ch}, ch
}

// SyncRequest builds a SyncRequest event. replySubject is where the encoded
// response is published.
func SyncRequest(body []byte, replySubject string) Event {
	return Event{Kind: KindSyncRequest, Body: body, ReplySubject: replySubject}
}
