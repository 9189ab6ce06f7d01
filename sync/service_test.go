package sync

import (
	"encoding/hex"
	"encoding/json"
	"testing"
)

type fakeResources struct {
	height      uint64
	genesis     []byte
	genesisOK   bool
	hashes      map[uint64][32]byte
	txes        map[[32]byte][]byte
	blocks      map[[32]byte][]byte
}

func newFakeResources() *fakeResources {
	return &fakeResources{
		hashes: make(map[uint64][32]byte),
		txes:   make(map[[32]byte][]byte),
		blocks: make(map[[32]byte][]byte),
	}
}

func (f *fakeResources) Height() uint64 { return f.height }
func (f *fakeResources) GenesisBlockBytes() ([]byte, bool) {
	return f.genesis, f.genesisOK
}
func (f *fakeResources) HashAtHeight(height uint64) ([32]byte, bool) {
	h, ok := f.hashes[height]
	return h, ok
}
func (f *fakeResources) TransactionBytesAtHash(hash [32]byte) ([]byte, bool) {
	b, ok := f.txes[hash]
	return b, ok
}
func (f *fakeResources) BlockBytesAtHash(hash [32]byte) ([]byte, bool) {
	b, ok := f.blocks[hash]
	return b, ok
}

func mustMarshal(t *testing.T, req Request) []byte {
	t.Helper()
	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	return data
}

func TestHandleRequestGetHeight(t *testing.T) {
	r := newFakeResources()
	r.height = 17
	resp, ok := HandleRequest(r, mustMarshal(t, Request{Kind: KindGetHeight}))
	if !ok {
		t.Fatal("HandleRequest: expected ok")
	}
	var decoded Response
	if err := json.Unmarshal(resp, &decoded); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if decoded.Kind != KindHeight || decoded.Height != 17 {
		t.Fatalf("response = %+v, want Height=17", decoded)
	}
}

func TestHandleRequestAtHeightNotFound(t *testing.T) {
	r := newFakeResources()
	_, ok := HandleRequest(r, mustMarshal(t, Request{Kind: KindAtHeight, Height: 5}))
	if ok {
		t.Fatal("HandleRequest: expected ok=false for unknown height")
	}
}

func TestHandleRequestAtHeightFound(t *testing.T) {
	r := newFakeResources()
	var hash [32]byte
	hash[0] = 0x42
	r.hashes[5] = hash

	resp, ok := HandleRequest(r, mustMarshal(t, Request{Kind: KindAtHeight, Height: 5}))
	if !ok {
		t.Fatal("HandleRequest: expected ok")
	}
	var decoded Response
	if err := json.Unmarshal(resp, &decoded); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if decoded.Hash != hex.EncodeToString(hash[:]) {
		t.Fatalf("Hash = %s, want %x", decoded.Hash, hash)
	}
}

func TestHandleRequestTransactionAtHashBadHex(t *testing.T) {
	r := newFakeResources()
	_, ok := HandleRequest(r, mustMarshal(t, Request{Kind: KindTransactionAtHash, Hash: "not-hex"}))
	if ok {
		t.Fatal("HandleRequest: expected ok=false for malformed hash")
	}
}

func TestHandleRequestBlockAtHashFound(t *testing.T) {
	r := newFakeResources()
	var hash [32]byte
	hash[1] = 9
	r.blocks[hash] = []byte("block-bytes")

	resp, ok := HandleRequest(r, mustMarshal(t, Request{Kind: KindBlockAtHash, Hash: hex.EncodeToString(hash[:])}))
	if !ok {
		t.Fatal("HandleRequest: expected ok")
	}
	var decoded Response
	if err := json.Unmarshal(resp, &decoded); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if string(decoded.Block) != "block-bytes" {
		t.Fatalf("Block = %q, want block-bytes", decoded.Block)
	}
}

func TestHandleRequestUnknownKindDropped(t *testing.T) {
	r := newFakeResources()
	_, ok := HandleRequest(r, mustMarshal(t, Request{Kind: Kind("Bogus")}))
	if ok {
		t.Fatal("HandleRequest: expected ok=false for unknown kind")
	}
}

func TestHandleRequestMalformedBodyDropped(t *testing.T) {
	r := newFakeResources()
	_, ok := HandleRequest(r, []byte("not json"))
	if ok {
		t.Fatal("HandleRequest: expected ok=false for malformed body")
	}
}
