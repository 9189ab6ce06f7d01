package engine

import (
	"encoding/hex"
	"encoding/json"
	"log"

	"github.com/tolelom/tolchain/core"
	"github.com/tolelom/tolchain/events"
	syncproto "github.com/tolelom/tolchain/sync"
)

// handleBlockArrival implements the BlockArrival contract of §4.1: decode,
// resolve the proposer's key, verify, then run the head-decision algorithm
// of §4.2. Any failure along the way drops the event and logs; nothing
// here is fatal.
func (e *Engine) handleBlockArrival(raw []byte) {
	b, err := core.DecodeBlock(raw)
	if err != nil {
		log.Printf("[engine] decode incoming block: %v", err)
		return
	}
	pub, ok := e.resolvePubKey(b.ProposerPub)
	if !ok {
		log.Printf("[engine] block %x: could not resolve proposer pubkey", b.Hash())
		return
	}
	if err := b.Verify(e.Profile, pub); err != nil {
		log.Printf("[engine] block %x: %v", b.Hash(), err)
		return
	}
	e.acceptBlock(b)
}

// acceptBlock is the head-decision algorithm of §4.2. b has already passed
// signature and merkle-root verification.
func (e *Engine) acceptBlock(b *core.Block) {
	if b.Hash() == e.head.Hash() {
		return // step 2: duplicate of current head, reject
	}

	if e.Blocks.HasBlock(b.Hash()) {
		// step 3: hash already recorded under some other entry. The
		// b.Hash() == head.Hash() branch below can never fire here since
		// step 2 already excluded it; it is kept to match the tie-break
		// this algorithm is specified to perform.
		if b.Hash() == e.head.Hash() && b.Signature[0] < e.head.Signature[0] {
			e.replaceHead(b, b.Height())
		}
		return
	}

	// step 4: novel hash.
	if b.Height() == e.head.Height() && b.Hashed.Data.MerkleRoot == e.head.Hashed.Data.MerkleRoot && e.head.Timestamp() < b.Timestamp() {
		e.replaceHeadSameHeight(b)
		return
	}

	e.commitNovelBlock(b)
}

func (e *Engine) replaceHead(b *core.Block, height uint64) {
	if err := e.Blocks.PutBlock(b); err != nil {
		log.Printf("[engine] store replacement head: %v", err)
		return
	}
	if err := e.Blocks.PutHeightIndex(height, b.Hash()); err != nil {
		log.Printf("[engine] index replacement head: %v", err)
		return
	}
	e.head = b
	log.Printf("[engine] new head accepted: %x", b.Hash())
}

func (e *Engine) replaceHeadSameHeight(b *core.Block) {
	if err := e.Blocks.DeleteBlock(e.head.Hash()); err != nil {
		log.Printf("[engine] delete superseded head: %v", err)
		return
	}
	e.replaceHead(b, b.Height())
}

// commitNovelBlock advances the chain by one block: every referenced
// transaction must already be in the mempool, or fetched and verified over
// the sync protocol; anything already committed to the tx store without
// being in the mempool means a transaction is referenced a second time by
// a different block, so the whole ingest is abandoned to protect the
// mempool-to-txstore move invariant.
func (e *Engine) commitNovelBlock(b *core.Block) {
	for _, txHash := range b.Hashed.Data.Txes {
		if e.mempool.Has(txHash) {
			continue
		}
		if e.Txes.Has(txHash) {
			log.Printf("[engine] block %x references already-committed tx %x, abandoning ingest", b.Hash(), txHash)
			return
		}
		if !e.fetchAndAdmit(txHash, b.ProposerPub) {
			return
		}
	}

	for _, txHash := range b.Hashed.Data.Txes {
		tx, ok := e.mempool.Get(txHash)
		if !ok {
			log.Printf("[engine] mempool missing tx %x during commit, abandoning ingest", txHash)
			return
		}
		if err := e.Txes.Put(tx); err != nil {
			log.Printf("[engine] store committed tx: %v", err)
			return
		}
		e.mempool.Remove(txHash)
	}

	height := b.Height()
	if err := e.Blocks.SetHeight(height); err != nil {
		log.Printf("[engine] persist height: %v", err)
		return
	}
	if err := e.Blocks.PutHeightIndex(height, b.Hash()); err != nil {
		log.Printf("[engine] index new head: %v", err)
		return
	}
	if err := e.Blocks.PutBlock(b); err != nil {
		log.Printf("[engine] store new head: %v", err)
		return
	}
	e.head = b
	e.poolSizeBytes = 0
	log.Printf("[engine] at height %d is block %x", height, b.Hash())
	hash := b.Hash()
	e.notify(events.EventHeadCommitted, events.Event{Height: height, Hash: hex.EncodeToString(hash[:])})
}

// fetchAndAdmit requests the transaction at hash over Synchronize,
// verifies it under proposerPub (the block proposer's key, per §4.2's
// fidelity requirement), and admits it to the mempool.
func (e *Engine) fetchAndAdmit(hash [32]byte, proposerPubHash [32]byte) bool {
	data, err := e.requestTransaction(hash)
	if err != nil {
		log.Printf("[engine] fetch tx %x: %v", hash, err)
		return false
	}
	tx, err := core.DecodeTransaction(data)
	if err != nil {
		log.Printf("[engine] decode fetched tx %x: %v", hash, err)
		return false
	}
	pub, ok := e.resolvePubKey(proposerPubHash)
	if !ok {
		log.Printf("[engine] resolve block proposer pubkey for tx %x: not found", hash)
		return false
	}
	if err := tx.Verify(e.Profile, pub); err != nil {
		log.Printf("[engine] fetched tx %x failed verification: %v", hash, err)
		return false
	}
	e.mempool.Insert(tx)
	return true
}

// handleTransactionArrival implements the TransactionArrival contract of
// §4.1: decode, resolve signer, verify, admit, then evaluate the proposal
// limiter.
func (e *Engine) handleTransactionArrival(raw []byte) error {
	tx, err := core.DecodeTransaction(raw)
	if err != nil {
		log.Printf("[engine] decode incoming tx: %v", err)
		return nil
	}
	pub, ok := e.resolvePubKey(tx.ProposerPub)
	if !ok {
		log.Printf("[engine] tx %x: could not resolve proposer pubkey", tx.Hash())
		return nil
	}
	if err := tx.Verify(e.Profile, pub); err != nil {
		log.Printf("[engine] tx %x: %v", tx.Hash(), err)
		return nil
	}
	if !e.mempool.Insert(tx) {
		return nil // already present, ignore
	}
	if _, err := e.Accounts.IncrementSeen(tx.Body.Recipient); err != nil {
		return err // store I/O error is fatal
	}
	e.poolSizeBytes += tx.Len()
	hash := tx.Hash()
	e.notify(events.EventTxAdmitted, events.Event{Hash: hex.EncodeToString(hash[:])})
	e.maybePropose()
	return nil
}

// requestTransaction issues a Synchronize{TransactionAtHash} request and
// unwraps the response payload.
func (e *Engine) requestTransaction(hash [32]byte) ([]byte, error) {
	req := syncproto.Request{Kind: syncproto.KindTransactionAtHash, Hash: hex.EncodeToString(hash[:])}
	data, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	raw, err := e.Bus.Request(syncproto.SubjectSynchronize, data, TxFetchTimeout)
	if err != nil {
		return nil, err
	}
	var resp syncproto.Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, err
	}
	return resp.Transaction, nil
}
