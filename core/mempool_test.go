package core

import (
	"bytes"
	"testing"

	"github.com/tolelom/tolchain/crypto"
)

func newTestTx(t *testing.T, data string) *Transaction {
	t.Helper()
	profile := crypto.Classical{}
	priv, err := profile.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	tx, err := NewTransaction(NewTxBody(ZeroRecipient, []byte(data)), priv)
	if err != nil {
		t.Fatalf("NewTransaction: %v", err)
	}
	return tx
}

func TestMempoolInsertGetRemove(t *testing.T) {
	mp := NewMempool()
	tx := newTestTx(t, "one")
	if !mp.Insert(tx) {
		t.Fatal("Insert: expected true for new tx")
	}
	if mp.Insert(tx) {
		t.Fatal("Insert: expected false for duplicate hash")
	}
	if mp.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", mp.Len())
	}
	got, ok := mp.Get(tx.Hash())
	if !ok || got != tx {
		t.Fatal("Get: expected to find inserted transaction")
	}
	if !mp.Has(tx.Hash()) {
		t.Fatal("Has: expected true for inserted hash")
	}
	mp.Remove(tx.Hash())
	if mp.Has(tx.Hash()) {
		t.Fatal("Has: expected false after Remove")
	}
	if mp.Len() != 0 {
		t.Fatalf("Len() after Remove = %d, want 0", mp.Len())
	}
}

func TestMempoolSortedHashesLexicographic(t *testing.T) {
	mp := NewMempool()
	for i := 0; i < 10; i++ {
		mp.Insert(newTestTx(t, string(rune('a'+i))))
	}
	hashes := mp.SortedHashes()
	if len(hashes) != 10 {
		t.Fatalf("SortedHashes len = %d, want 10", len(hashes))
	}
	for i := 1; i < len(hashes); i++ {
		if bytes.Compare(hashes[i-1][:], hashes[i][:]) >= 0 {
			t.Fatalf("SortedHashes not ascending at index %d", i)
		}
	}
}
