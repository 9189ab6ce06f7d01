// Package genesis implements the bootstrap step of §4.6: load the existing
// genesis block from disk if one is present, otherwise construct, sign, and
// persist a fresh one whose sole transaction carries the network's default
// consensus settings.
package genesis

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tolelom/tolchain/consensus"
	"github.com/tolelom/tolchain/core"
	"github.com/tolelom/tolchain/crypto"
	"github.com/tolelom/tolchain/storage"
)

// nowNano is a var so tests can fake the genesis timestamp deterministically.
var nowNano = func() uint64 { return 0 }

// Bootstrap loads path (NEMEZIS or qNEMEZIS, chosen by the caller from
// profile.GenesisFile()) if it exists, storing the block and its height-0
// index when the block store does not already have it. The file holds only
// the block, so the genesis transaction is not stored on this path. If path
// does not exist, it builds a new genesis block signed by priv, writes it to
// path, and stores it together with its transaction.
//
// A missing genesis file that fails to either load or construct is fatal —
// the caller should treat a non-nil error as unrecoverable startup failure.
func Bootstrap(path string, priv crypto.PrivateKey, blocks *storage.BlockStore, txes *storage.TxStore) (*core.Block, error) {
	if data, err := os.ReadFile(path); err == nil {
		block, err := core.DecodeBlock(data)
		if err != nil {
			return nil, fmt.Errorf("genesis: decode %s: %w", path, err)
		}
		if !blocks.HasBlock(block.Hash()) {
			if err := blocks.PutBlock(block); err != nil {
				return nil, fmt.Errorf("genesis: store loaded genesis: %w", err)
			}
			if err := blocks.PutHeightIndex(0, block.Hash()); err != nil {
				return nil, fmt.Errorf("genesis: index loaded genesis: %w", err)
			}
		}
		return block, nil
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("genesis: read %s: %w", path, err)
	}

	block, tx, err := construct(priv)
	if err != nil {
		return nil, fmt.Errorf("genesis: construct: %w", err)
	}
	data, err := block.Encode()
	if err != nil {
		return nil, fmt.Errorf("genesis: encode: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("genesis: write %s: %w", path, err)
	}
	if err := txes.Put(tx); err != nil {
		return nil, fmt.Errorf("genesis: store genesis transaction: %w", err)
	}
	if err := blocks.PutBlock(block); err != nil {
		return nil, fmt.Errorf("genesis: store: %w", err)
	}
	if err := blocks.PutHeightIndex(0, block.Hash()); err != nil {
		return nil, fmt.Errorf("genesis: index: %w", err)
	}
	if err := blocks.SetHeight(0); err != nil {
		return nil, fmt.Errorf("genesis: set height: %w", err)
	}
	return block, nil
}

// construct builds the height-0 block whose sole transaction's body data is
// the serialized default consensus settings, signed by priv.
func construct(priv crypto.PrivateKey) (*core.Block, *core.Transaction, error) {
	settings, err := json.Marshal(consensus.DefaultSettings())
	if err != nil {
		return nil, nil, fmt.Errorf("marshal consensus settings: %w", err)
	}
	tx, err := core.NewTransaction(core.NewTxBody(core.ZeroRecipient, settings), priv)
	if err != nil {
		return nil, nil, fmt.Errorf("sign genesis transaction: %w", err)
	}
	txHash := tx.Hash()
	block, err := core.NewBlock(core.GenesisPrevHash(), [][32]byte{txHash}, 0, nowNano(), priv)
	if err != nil {
		return nil, nil, fmt.Errorf("sign genesis block: %w", err)
	}
	return block, tx, nil
}
