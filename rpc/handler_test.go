package rpc

import (
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tolelom/tolchain/consensus"
	"github.com/tolelom/tolchain/core"
	"github.com/tolelom/tolchain/crypto"
	"github.com/tolelom/tolchain/engine"
	"github.com/tolelom/tolchain/events"
	"github.com/tolelom/tolchain/internal/testutil"
	"github.com/tolelom/tolchain/storage"
	"github.com/tolelom/tolchain/vmgate"
)

// newTestHandler builds a Handler backed by a running Engine (nil Bus) so
// RPC methods that round-trip through the event queue resolve their reply
// channels. Every method exercised here must never reach e.Bus.
func newTestHandler(t *testing.T) (*Handler, *storage.BlockStore, *storage.AccountStore, crypto.PrivateKey) {
	t.Helper()
	profile := crypto.Classical{}
	priv, err := profile.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	genesisBlock, err := core.NewBlock(core.GenesisPrevHash(), nil, 0, 1, priv)
	if err != nil {
		t.Fatalf("NewBlock genesis: %v", err)
	}
	blocks := storage.NewBlockStore(testutil.NewMemDB())
	if err := blocks.PutBlock(genesisBlock); err != nil {
		t.Fatalf("PutBlock: %v", err)
	}
	if err := blocks.PutHeightIndex(0, genesisBlock.Hash()); err != nil {
		t.Fatalf("PutHeightIndex: %v", err)
	}
	accounts := storage.NewAccountStore(testutil.NewMemDB())
	vm := vmgate.New(t.TempDir())

	eng := engine.New(profile, priv, nil, blocks,
		storage.NewTxStore(testutil.NewMemDB()), accounts,
		storage.NewPubKeyStore(testutil.NewMemDB()),
		consensus.Settings{}, vm, events.NewEmitter(), genesisBlock)

	stop := make(chan struct{})
	go eng.Run(stop)
	t.Cleanup(func() { close(stop) })

	return NewHandler(eng, profile, blocks, accounts, vm), blocks, accounts, priv
}

func reqFor(method string, params any) Request {
	data, _ := json.Marshal(params)
	return Request{JSONRPC: "2.0", ID: 1, Method: method, Params: data}
}

func TestDispatchUnknownMethod(t *testing.T) {
	h, _, _, _ := newTestHandler(t)
	resp := h.Dispatch(reqFor("nonexistent", nil))
	if resp.Error == nil || resp.Error.Code != CodeMethodNotFound {
		t.Fatalf("Dispatch: want CodeMethodNotFound, got %+v", resp.Error)
	}
}

func TestPublishTransactionRejectsBadToHex(t *testing.T) {
	h, _, _, _ := newTestHandler(t)
	resp := h.Dispatch(reqFor("publish_transaction", map[string]string{
		"to": "not-hex", "data": "hi", "secret": "0x00",
	}))
	if resp.Error == nil || resp.Error.Code != CodeInvalidParams {
		t.Fatalf("Dispatch: want CodeInvalidParams, got %+v", resp.Error)
	}
}

func TestPublishTransactionRejectsBadSecret(t *testing.T) {
	h, _, _, _ := newTestHandler(t)
	resp := h.Dispatch(reqFor("publish_transaction", map[string]string{
		"to": hex.EncodeToString(make([]byte, 32)), "data": "hi", "secret": "0xnothex",
	}))
	if resp.Error == nil || resp.Error.Code != CodeInvalidParams {
		t.Fatalf("Dispatch: want CodeInvalidParams, got %+v", resp.Error)
	}
}

func TestPublishRawTransactionRejectsMalformedTx(t *testing.T) {
	h, _, _, _ := newTestHandler(t)
	params, _ := json.Marshal(map[string]json.RawMessage{"tx": json.RawMessage(`"not-a-tx"`)})
	resp := h.Dispatch(Request{JSONRPC: "2.0", ID: 1, Method: "publish_raw_transaction", Params: params})
	if resp.Error == nil || resp.Error.Code != CodeInvalidParams {
		t.Fatalf("Dispatch: want CodeInvalidParams, got %+v", resp.Error)
	}
}

func TestBlockByHeightFound(t *testing.T) {
	h, _, _, _ := newTestHandler(t)
	resp := h.Dispatch(reqFor("block_by_height", map[string]uint64{"height": 0}))
	if resp.Error != nil {
		t.Fatalf("Dispatch: %+v", resp.Error)
	}
	if resp.Result == nil {
		t.Fatal("Dispatch: expected a block result")
	}
}

func TestBlockByHeightNotFound(t *testing.T) {
	h, _, _, _ := newTestHandler(t)
	resp := h.Dispatch(reqFor("block_by_height", map[string]uint64{"height": 99}))
	if resp.Error == nil || resp.Error.Code != CodeInternalError {
		t.Fatalf("Dispatch: want CodeInternalError, got %+v", resp.Error)
	}
}

func TestBlockByHashRejectsBadHash(t *testing.T) {
	h, _, _, _ := newTestHandler(t)
	resp := h.Dispatch(reqFor("block_by_hash", map[string]string{"hash": "zz"}))
	if resp.Error == nil || resp.Error.Code != CodeInvalidParams {
		t.Fatalf("Dispatch: want CodeInvalidParams, got %+v", resp.Error)
	}
}

func TestGetAccountUnseenIsZero(t *testing.T) {
	h, _, _, _ := newTestHandler(t)
	hash := hex.EncodeToString(make([]byte, 32))
	resp := h.Dispatch(reqFor("get_account", map[string]string{"hash": hash}))
	if resp.Error != nil {
		t.Fatalf("Dispatch: %+v", resp.Error)
	}
	if resp.Result != "0" {
		t.Fatalf("Result = %v, want 0", resp.Result)
	}
}

func TestGetTransactionFound(t *testing.T) {
	h, _, _, priv := newTestHandler(t)
	// TransactionArrival resolves the signer via the local PubKeys store;
	// seed it first so the admit path never reaches the bus.
	if err := h.engine.PubKeys.Put(priv.Public().Hash(), priv.Public().Bytes()); err != nil {
		t.Fatalf("PubKeys.Put: %v", err)
	}

	tx, err := core.NewTransaction(core.NewTxBody(core.ZeroRecipient, []byte("hello")), priv)
	if err != nil {
		t.Fatalf("NewTransaction: %v", err)
	}
	h.engine.Enqueue(engine.TransactionArrival(mustEncode(t, tx)))

	// Poll because admission happens asynchronously on the engine's own
	// goroutine.
	hash := hex.EncodeToString(txHash(tx))
	var resp Response
	for i := 0; i < 100; i++ {
		resp = h.Dispatch(reqFor("get_transaction", map[string]string{"hash": hash}))
		if resp.Error == nil {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if resp.Error != nil {
		t.Fatalf("get_transaction: %+v", resp.Error)
	}
}

func txHash(tx *core.Transaction) []byte {
	h := tx.Hash()
	return h[:]
}

func mustEncode(t *testing.T, tx *core.Transaction) []byte {
	t.Helper()
	data, err := tx.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return data
}

func TestFileLoadContractAndCallVm(t *testing.T) {
	h, _, _, _ := newTestHandler(t)
	dir := t.TempDir()
	h.vm = vmgate.New(dir)
	h.engine.Vm = h.vm
	if err := os.WriteFile(filepath.Join(dir, "c.wasm"), []byte("bytecode"), 0o644); err != nil {
		t.Fatalf("write contract: %v", err)
	}

	params, _ := json.Marshal([]string{"c.wasm"})
	resp := h.Dispatch(Request{JSONRPC: "2.0", ID: 1, Method: "fileLoadContract", Params: params})
	if resp.Error != nil {
		t.Fatalf("fileLoadContract: %+v", resp.Error)
	}

	callParams, _ := json.Marshal([]string{"c.wasm", "run"})
	callResp := h.Dispatch(Request{JSONRPC: "2.0", ID: 2, Method: "callVm", Params: callParams})
	if callResp.Error != nil {
		t.Fatalf("callVm: %+v", callResp.Error)
	}
}

func TestCallVmBeforeBuildErrors(t *testing.T) {
	h, _, _, _ := newTestHandler(t)
	params, _ := json.Marshal([]string{"c.wasm", "run"})
	resp := h.Dispatch(Request{JSONRPC: "2.0", ID: 1, Method: "callVm", Params: params})
	if resp.Error == nil || resp.Error.Code != CodeInternalError {
		t.Fatalf("Dispatch: want CodeInternalError, got %+v", resp.Error)
	}
}
