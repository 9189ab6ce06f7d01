package crypto

import (
	"encoding/hex"
	"testing"
)

func TestHashDeterministic(t *testing.T) {
	data := []byte("hello world")
	if Hash(data) != Hash(data) {
		t.Fatal("Hash is not deterministic")
	}
}

func TestHashHexMatchesHash(t *testing.T) {
	data := []byte("payload")
	h := Hash(data)
	if got, want := HashHex(data), hex.EncodeToString(h[:]); got != want {
		t.Fatalf("HashHex = %s, want %s", got, want)
	}
}

func TestZeroHashIsHashOfZeros(t *testing.T) {
	if ZeroHash != Hash(make([]byte, 32)) {
		t.Fatal("ZeroHash does not match Hash(zeros)")
	}
}
