package core

import (
	"testing"

	"github.com/tolelom/tolchain/crypto"
)

func TestNewBlockAndVerify(t *testing.T) {
	profile := crypto.Classical{}
	priv, err := profile.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	txes := [][32]byte{{1}, {2}}
	block, err := NewBlock(GenesisPrevHash(), txes, 0, 1000, priv)
	if err != nil {
		t.Fatalf("NewBlock: %v", err)
	}
	if block.Height() != 0 {
		t.Fatalf("Height() = %d, want 0", block.Height())
	}
	if block.Timestamp() != 1000 {
		t.Fatalf("Timestamp() = %d, want 1000", block.Timestamp())
	}
	if err := block.Verify(profile, priv.Public()); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestBlockVerifyRejectsTamperedTxes(t *testing.T) {
	profile := crypto.Classical{}
	priv, err := profile.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	block, err := NewBlock(GenesisPrevHash(), [][32]byte{{1}}, 0, 1, priv)
	if err != nil {
		t.Fatalf("NewBlock: %v", err)
	}
	block.Hashed.Data.Txes = append(block.Hashed.Data.Txes, [32]byte{9})
	if err := block.Verify(profile, priv.Public()); err == nil {
		t.Fatal("Verify: expected error for tampered txes, got nil")
	}
}

func TestBlockEncodeDecodeRoundTrip(t *testing.T) {
	profile := crypto.Classical{}
	priv, err := profile.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	block, err := NewBlock(GenesisPrevHash(), [][32]byte{{1}, {2}, {3}}, 7, 42, priv)
	if err != nil {
		t.Fatalf("NewBlock: %v", err)
	}
	data, err := block.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := DecodeBlock(data)
	if err != nil {
		t.Fatalf("DecodeBlock: %v", err)
	}
	if decoded.Hash() != block.Hash() {
		t.Fatalf("round-tripped hash mismatch")
	}
	if err := decoded.Verify(profile, priv.Public()); err != nil {
		t.Fatalf("Verify after round trip: %v", err)
	}
}

func TestBlockVerifyRejectsWrongProposer(t *testing.T) {
	profile := crypto.Classical{}
	priv, err := profile.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	other, err := profile.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	block, err := NewBlock(GenesisPrevHash(), nil, 0, 1, priv)
	if err != nil {
		t.Fatalf("NewBlock: %v", err)
	}
	if err := block.Verify(profile, other.Public()); err == nil {
		t.Fatal("Verify: expected proposer mismatch error, got nil")
	}
}
