package sync

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/tolelom/tolchain/bus"
	"github.com/tolelom/tolchain/core"
	"github.com/tolelom/tolchain/crypto"
	"github.com/tolelom/tolchain/storage"
)

// Synchronizer drives the startup catch-up protocol of §4.5: broadcast
// GetHeight, then walk height by height, fetching each block's hash, body,
// and (unless SPV) every transaction it references from whichever peer
// answers first.
type Synchronizer struct {
	Bus     *bus.Bus
	Profile crypto.Profile
	Blocks  *storage.BlockStore
	Txes    *storage.TxStore
	PubKeys *storage.PubKeyStore
	SPV     bool          // thin mode: blocks only; their transactions are not fetched, now or later
	Timeout time.Duration // per-request timeout; 0 defaults to 5s
}

func (s *Synchronizer) timeout() time.Duration {
	if s.Timeout <= 0 {
		return 5 * time.Second
	}
	return s.Timeout
}

// Run performs catch-up from the locally stored height to the highest
// height any peer reports and returns the resulting tip height. If no peer
// answers GetHeight, it returns the local height unchanged — a lone node
// (or the first node on a fresh network) is not an error.
func (s *Synchronizer) Run() (uint64, error) {
	stored, err := s.Blocks.GetHeight()
	if err != nil {
		return 0, fmt.Errorf("sync: read local height: %w", err)
	}

	remoteTip, err := s.queryRemoteTip()
	if err != nil {
		log.Printf("[sync] no peer answered GetHeight, staying at %d: %v", stored, err)
		return stored, nil
	}
	if remoteTip <= stored {
		return stored, nil
	}

	height := stored
	for h := stored + 1; h <= remoteTip; h++ {
		if err := s.fetchAndCommit(h); err != nil {
			return height, fmt.Errorf("sync: height %d: %w", h, err)
		}
		height = h
		if err := s.Blocks.SetHeight(height); err != nil {
			return height, fmt.Errorf("sync: persist height %d: %w", height, err)
		}
		log.Printf("[sync] caught up to height %d", height)
	}
	return height, nil
}

// queryRemoteTip broadcasts GetHeight and waits for the highest reply
// within the synchronizer's window, per §4.5 step 2 — a single peer's
// reply is not enough, since a slower peer may hold a taller chain.
func (s *Synchronizer) queryRemoteTip() (uint64, error) {
	data, err := json.Marshal(Request{Kind: KindGetHeight})
	if err != nil {
		return 0, err
	}
	msgs, err := s.Bus.RequestMany(SubjectSynchronize, data, s.timeout())
	if err != nil {
		return 0, err
	}
	if len(msgs) == 0 {
		return 0, fmt.Errorf("sync: no peer answered GetHeight")
	}

	var maxHeight uint64
	seen := false
	for _, m := range msgs {
		var resp Response
		if err := json.Unmarshal(m.Data, &resp); err != nil {
			continue
		}
		if resp.Kind != KindHeight {
			continue
		}
		if !seen || resp.Height > maxHeight {
			maxHeight = resp.Height
			seen = true
		}
	}
	if !seen {
		return 0, fmt.Errorf("sync: no peer returned a usable GetHeight reply")
	}
	return maxHeight, nil
}

func (s *Synchronizer) fetchAndCommit(height uint64) error {
	hashResp, err := s.request(Request{Kind: KindAtHeight, Height: height})
	if err != nil {
		return fmt.Errorf("AtHeight: %w", err)
	}
	hash, err := decodeHash(hashResp.Hash)
	if err != nil {
		return fmt.Errorf("AtHeight: bad hash: %w", err)
	}

	blockResp, err := s.request(Request{Kind: KindBlockAtHash, Hash: hashResp.Hash})
	if err != nil {
		return fmt.Errorf("BlockAtHash: %w", err)
	}
	block, err := core.DecodeBlock(blockResp.Block)
	if err != nil {
		return fmt.Errorf("decode block: %w", err)
	}

	proposerPub, err := s.resolvePubKey(block.ProposerPub)
	if err != nil {
		return fmt.Errorf("resolve block proposer: %w", err)
	}
	if err := block.Verify(s.Profile, proposerPub); err != nil {
		return fmt.Errorf("verify block: %w", err)
	}

	if !s.SPV {
		for _, txHash := range block.Hashed.Data.Txes {
			if s.Txes.Has(txHash) {
				continue
			}
			if err := s.fetchTransaction(txHash); err != nil {
				return fmt.Errorf("fetch tx %x: %w", txHash, err)
			}
		}
	}

	if err := s.Blocks.PutBlock(block); err != nil {
		return err
	}
	return s.Blocks.PutHeightIndex(height, hash)
}

func (s *Synchronizer) fetchTransaction(hash [32]byte) error {
	resp, err := s.request(Request{Kind: KindTransactionAtHash, Hash: hex.EncodeToString(hash[:])})
	if err != nil {
		return err
	}
	tx, err := core.DecodeTransaction(resp.Transaction)
	if err != nil {
		return fmt.Errorf("decode tx: %w", err)
	}
	pub, err := s.resolvePubKey(tx.ProposerPub)
	if err != nil {
		return fmt.Errorf("resolve tx proposer: %w", err)
	}
	if err := tx.Verify(s.Profile, pub); err != nil {
		return fmt.Errorf("verify tx: %w", err)
	}
	return s.Txes.Put(tx)
}

func (s *Synchronizer) resolvePubKey(hash [32]byte) (crypto.PublicKey, error) {
	if raw, err := s.PubKeys.Get(hash); err == nil {
		return s.Profile.ParsePublicKey(raw)
	}
	raw, err := s.Bus.Request(SubjectPubKey, hash[:], s.timeout())
	if err != nil {
		return nil, fmt.Errorf("request pubkey: %w", err)
	}
	pub, err := s.Profile.ParsePublicKey(raw)
	if err != nil {
		return nil, err
	}
	if err := s.PubKeys.Put(hash, raw); err != nil {
		return nil, err
	}
	return pub, nil
}

func (s *Synchronizer) request(req Request) (Response, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return Response{}, err
	}
	raw, err := s.Bus.Request(SubjectSynchronize, data, s.timeout())
	if err != nil {
		return Response{}, err
	}
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}
	return resp, nil
}
