package engine

import (
	"encoding/hex"
	"log"
	"time"

	"github.com/tolelom/tolchain/core"
	"github.com/tolelom/tolchain/events"
	syncproto "github.com/tolelom/tolchain/sync"
)

// nowNano is a var so tests can fake the proposal timestamp deterministically.
var nowNano = func() uint64 { return uint64(time.Now().UnixNano()) }

// maybePropose implements §4.3: after every successful mempool insert,
// check the configured limiters and, if any fires, assemble and publish a
// new block.
func (e *Engine) maybePropose() {
	if !e.Settings.CheckLimiters(e.mempool.Len(), e.poolSizeBytes, e.head.Timestamp()) {
		return
	}
	if err := e.propose(); err != nil {
		log.Printf("[engine] propose block: %v", err)
	}
}

func (e *Engine) propose() error {
	hashes := e.mempool.SortedHashes()
	for _, h := range hashes {
		tx, ok := e.mempool.Get(h)
		if !ok {
			continue
		}
		if err := e.Txes.Put(tx); err != nil {
			return err
		}
	}
	for _, h := range hashes {
		e.mempool.Remove(h)
	}

	height := e.head.Height() + 1
	headHash := e.head.Hash()
	b, err := core.NewBlock(hex.EncodeToString(headHash[:]), hashes, height, nowNano(), e.Priv)
	if err != nil {
		return err
	}

	if err := e.Blocks.SetHeight(height); err != nil {
		return err
	}
	if err := e.Blocks.PutHeightIndex(height, b.Hash()); err != nil {
		return err
	}
	if err := e.Blocks.PutBlock(b); err != nil {
		return err
	}

	e.head = b
	e.poolSizeBytes = 0

	data, err := b.Encode()
	if err != nil {
		return err
	}
	if err := e.Bus.Publish(syncproto.SubjectBlockPropose, data); err != nil {
		log.Printf("[engine] publish proposed block: %v", err)
	}

	hash := b.Hash()
	e.notify(events.EventBlockProposed, events.Event{Height: height, Hash: hex.EncodeToString(hash[:])})
	e.notify(events.EventHeadCommitted, events.Event{Height: height, Hash: hex.EncodeToString(hash[:])})
	return nil
}
