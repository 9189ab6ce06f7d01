// Package engine is the single-writer core: one goroutine drains a bounded
// event queue and is the sole mutator of chain head, mempool, and the four
// stores. Every other component — the bus adapter, RPC, stdin — only ever
// enqueues events and waits on one-shot reply channels.
package engine

import (
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"github.com/tolelom/tolchain/bus"
	"github.com/tolelom/tolchain/consensus"
	"github.com/tolelom/tolchain/core"
	"github.com/tolelom/tolchain/crypto"
	"github.com/tolelom/tolchain/events"
	"github.com/tolelom/tolchain/storage"
	syncproto "github.com/tolelom/tolchain/sync"
	"github.com/tolelom/tolchain/vmgate"
)

// QueueCapacity is the bounded ingress queue depth of §4.1 and §5:
// producers block once it fills, giving the loop back-pressure.
const QueueCapacity = 777

// PubKeyRequestTimeout bounds a synchronous PubKey request/reply round
// trip; on timeout the triggering event is dropped.
const PubKeyRequestTimeout = 3 * time.Second

// TxFetchTimeout bounds a Synchronize{TransactionAtHash} round trip during
// block ingest, per §4.2's 4-8s guidance.
const TxFetchTimeout = 6 * time.Second

// Engine owns chain head, mempool, and the four durable stores, and is the
// only thing that ever mutates them.
type Engine struct {
	Profile  crypto.Profile
	Priv     crypto.PrivateKey
	Bus      *bus.Bus
	Blocks   *storage.BlockStore
	Txes     *storage.TxStore
	Accounts *storage.AccountStore
	PubKeys  *storage.PubKeyStore
	Settings consensus.Settings
	Vm       *vmgate.Gate
	Notifier *events.Emitter

	queue chan Event

	head          *core.Block
	mempool       *core.Mempool
	poolSizeBytes int
}

// New constructs an Engine. head must already reflect the genesis or
// previously-synced tip; the caller (cmd/node) establishes it via the
// genesis and sync packages before calling Run.
func New(profile crypto.Profile, priv crypto.PrivateKey, b *bus.Bus, blocks *storage.BlockStore, txes *storage.TxStore, accounts *storage.AccountStore, pubkeys *storage.PubKeyStore, settings consensus.Settings, vm *vmgate.Gate, notifier *events.Emitter, head *core.Block) *Engine {
	return &Engine{
		Profile:  profile,
		Priv:     priv,
		Bus:      b,
		Blocks:   blocks,
		Txes:     txes,
		Accounts: accounts,
		PubKeys:  pubkeys,
		Settings: settings,
		Vm:       vm,
		Notifier: notifier,
		queue:    make(chan Event, QueueCapacity),
		head:     head,
		mempool:  core.NewMempool(),
	}
}

// Enqueue pushes ev onto the ingress queue, blocking if it is full. This is
// the only way any other component talks to the engine.
func (e *Engine) Enqueue(ev Event) {
	e.queue <- ev
}

// Run drains the queue until stop is closed. The only error it returns is a
// failed accounts-counter write while admitting a transaction. Every other
// failure, including store writes during block ingest and block proposal,
// is logged, the event is dropped, and the loop continues.
func (e *Engine) Run(stop <-chan struct{}) error {
	for {
		select {
		case <-stop:
			return nil
		case ev := <-e.queue:
			if err := e.dispatch(ev); err != nil {
				return fmt.Errorf("engine: fatal: %w", err)
			}
		}
	}
}

func (e *Engine) dispatch(ev Event) error {
	switch ev.Kind {
	case KindBlockArrival:
		e.handleBlockArrival(ev.Block)
	case KindTransactionArrival:
		return e.handleTransactionArrival(ev.Tx)
	case KindRawTransaction:
		if err := e.Bus.Publish(syncproto.SubjectTxBroadcast, ev.Raw); err != nil {
			log.Printf("[engine] publish raw tx: %v", err)
		}
	case KindPublishTx:
		e.handlePublishTx(ev.To, ev.Data, ev.SigningKey)
	case KindGetHeight:
		ev.HeightReply <- e.head.Height()
	case KindGetTx:
		e.handleGetTx(ev.Hash, ev.TxReply)
	case KindChat:
		e.handlePublishTx(core.ZeroRecipient, ev.Data, e.Priv)
		e.notify(events.EventChatReceived, events.Event{Data: map[string]any{"bytes": len(ev.Data)}})
	case KindPubKeyAnnouncement:
		e.handlePubKeyAnnouncement(ev.PubKey, ev.ReplySubject)
	case KindVmBuild:
		e.handleVmBuild(ev.File, ev.VmReply)
	case KindSyncRequest:
		e.handleSyncRequest(ev.Body, ev.ReplySubject)
	}
	return nil
}

func (e *Engine) notify(typ events.EventType, ev events.Event) {
	if e.Notifier == nil {
		return
	}
	ev.Type = typ
	e.Notifier.Emit(ev)
}

// resolvePubKey looks up a signer's verifying key by the hash carried in a
// transaction or block, checking the local store first and falling back to
// a synchronous PubKey request/reply, caching the answer on success.
func (e *Engine) resolvePubKey(hash [32]byte) (crypto.PublicKey, bool) {
	if raw, err := e.PubKeys.Get(hash); err == nil {
		pub, err := e.Profile.ParsePublicKey(raw)
		if err != nil {
			return nil, false
		}
		return pub, true
	}
	raw, err := e.Bus.Request(syncproto.SubjectPubKey, hash[:], PubKeyRequestTimeout)
	if err != nil {
		return nil, false
	}
	pub, err := e.Profile.ParsePublicKey(raw)
	if err != nil {
		return nil, false
	}
	if err := e.PubKeys.Put(hash, raw); err != nil {
		log.Printf("[engine] store learned pubkey: %v", err)
	}
	e.notify(events.EventPubKeyLearned, events.Event{Hash: hex.EncodeToString(hash[:])})
	return pub, true
}

func (e *Engine) handlePublishTx(to [32]byte, data []byte, key crypto.PrivateKey) {
	tx, err := core.NewTransaction(core.NewTxBody(to, data), key)
	if err != nil {
		log.Printf("[engine] build outgoing transaction: %v", err)
		return
	}
	raw, err := tx.Encode()
	if err != nil {
		log.Printf("[engine] encode outgoing transaction: %v", err)
		return
	}
	if err := e.Bus.Publish(syncproto.SubjectTxBroadcast, raw); err != nil {
		log.Printf("[engine] publish outgoing transaction: %v", err)
	}
}

func (e *Engine) handleGetTx(hash [32]byte, reply chan *txReplyResult) {
	if tx, ok := e.mempool.Get(hash); ok {
		data, err := tx.Encode()
		if err != nil {
			log.Printf("[engine] encode mempool tx for reply: %v", err)
			return
		}
		reply <- &txReplyResult{Data: data, Found: true}
		return
	}
	tx, err := e.Txes.Get(hash)
	if err != nil {
		return // drop: caller times out and reports not found
	}
	data, err := tx.Encode()
	if err != nil {
		log.Printf("[engine] encode committed tx for reply: %v", err)
		return
	}
	reply <- &txReplyResult{Data: data, Found: true}
}

// handlePubKeyAnnouncement serves two shapes of the same event, matching
// the lattice-profile protocol: when replySubject is set, payload is a
// hash being looked up on behalf of a requester; when empty, payload is a
// full pubkey being announced or re-announced by its owner.
func (e *Engine) handlePubKeyAnnouncement(payload []byte, replySubject string) {
	if replySubject != "" {
		if len(payload) != 32 {
			return
		}
		var hash [32]byte
		copy(hash[:], payload)
		raw, err := e.PubKeys.Get(hash)
		if err != nil {
			return
		}
		if err := e.Bus.Publish(replySubject, raw); err != nil {
			log.Printf("[engine] reply to pubkey request: %v", err)
		}
		return
	}

	pub, err := e.Profile.ParsePublicKey(payload)
	if err != nil {
		return
	}
	hash := pub.Hash()
	if e.PubKeys.Has(hash) {
		return
	}
	if err := e.PubKeys.Put(hash, payload); err != nil {
		log.Printf("[engine] store announced pubkey: %v", err)
		return
	}
	ourPub := e.Priv.Public().Bytes()
	if err := e.Bus.Publish(syncproto.SubjectPubKey, ourPub); err != nil {
		log.Printf("[engine] re-announce own pubkey: %v", err)
	}
	e.notify(events.EventPubKeyLearned, events.Event{Hash: hex.EncodeToString(hash[:])})
}

func (e *Engine) handleVmBuild(file string, reply chan *vmBuildResult) {
	img, err := e.Vm.Build(file)
	if err != nil {
		reply <- &vmBuildResult{Err: err}
		return
	}
	reply <- &vmBuildResult{BuildID: img.File}
}

func (e *Engine) handleSyncRequest(body []byte, replySubject string) {
	resp, ok := syncproto.HandleRequest((*resources)(e), body)
	if !ok {
		return
	}
	if err := e.Bus.Publish(replySubject, resp); err != nil {
		log.Printf("[engine] publish sync reply: %v", err)
	}
}
