package storage_test

import (
	"testing"

	"github.com/tolelom/tolchain/core"
	"github.com/tolelom/tolchain/crypto"
	"github.com/tolelom/tolchain/internal/testutil"
	"github.com/tolelom/tolchain/storage"
)

func newTestBlock(t *testing.T, height uint64) *core.Block {
	t.Helper()
	profile := crypto.Classical{}
	priv, err := profile.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	block, err := core.NewBlock(core.GenesisPrevHash(), nil, height, 1, priv)
	if err != nil {
		t.Fatalf("NewBlock: %v", err)
	}
	return block
}

func TestBlockStorePutGetHasBlock(t *testing.T) {
	bs := storage.NewBlockStore(testutil.NewMemDB())
	block := newTestBlock(t, 0)
	if bs.HasBlock(block.Hash()) {
		t.Fatal("HasBlock: expected false before Put")
	}
	if err := bs.PutBlock(block); err != nil {
		t.Fatalf("PutBlock: %v", err)
	}
	if !bs.HasBlock(block.Hash()) {
		t.Fatal("HasBlock: expected true after Put")
	}
	got, err := bs.GetBlock(block.Hash())
	if err != nil {
		t.Fatalf("GetBlock: %v", err)
	}
	if got.Hash() != block.Hash() {
		t.Fatal("GetBlock returned a different block")
	}
}

func TestBlockStoreHeightIndexAndHeightCounter(t *testing.T) {
	bs := storage.NewBlockStore(testutil.NewMemDB())
	h, err := bs.GetHeight()
	if err != nil {
		t.Fatalf("GetHeight on fresh store: %v", err)
	}
	if h != 0 {
		t.Fatalf("GetHeight fresh store = %d, want 0", h)
	}

	block := newTestBlock(t, 3)
	if err := bs.PutHeightIndex(3, block.Hash()); err != nil {
		t.Fatalf("PutHeightIndex: %v", err)
	}
	if err := bs.SetHeight(3); err != nil {
		t.Fatalf("SetHeight: %v", err)
	}
	got, err := bs.GetHashAtHeight(3)
	if err != nil {
		t.Fatalf("GetHashAtHeight: %v", err)
	}
	if got != block.Hash() {
		t.Fatal("GetHashAtHeight returned wrong hash")
	}
	h, err = bs.GetHeight()
	if err != nil {
		t.Fatalf("GetHeight: %v", err)
	}
	if h != 3 {
		t.Fatalf("GetHeight = %d, want 3", h)
	}
}

func TestBlockStoreDeleteBlock(t *testing.T) {
	bs := storage.NewBlockStore(testutil.NewMemDB())
	block := newTestBlock(t, 0)
	if err := bs.PutBlock(block); err != nil {
		t.Fatalf("PutBlock: %v", err)
	}
	if err := bs.DeleteBlock(block.Hash()); err != nil {
		t.Fatalf("DeleteBlock: %v", err)
	}
	if bs.HasBlock(block.Hash()) {
		t.Fatal("HasBlock: expected false after DeleteBlock")
	}
}
