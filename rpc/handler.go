package rpc

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tolelom/tolchain/core"
	"github.com/tolelom/tolchain/crypto"
	"github.com/tolelom/tolchain/engine"
	"github.com/tolelom/tolchain/storage"
	"github.com/tolelom/tolchain/vmgate"
)

// Handler holds all dependencies needed to serve the RPC methods of §6.
// Every method either talks to the engine exclusively through its event
// queue and one-shot reply channels, or reads directly from a store (block
// lookups, account counters) since those reads never race the single
// writer in a way that matters to a client.
type Handler struct {
	engine   *engine.Engine
	profile  crypto.Profile
	blocks   *storage.BlockStore
	accounts *storage.AccountStore
	vm       *vmgate.Gate
}

// NewHandler creates an RPC Handler.
func NewHandler(eng *engine.Engine, profile crypto.Profile, blocks *storage.BlockStore, accounts *storage.AccountStore, vm *vmgate.Gate) *Handler {
	return &Handler{engine: eng, profile: profile, blocks: blocks, accounts: accounts, vm: vm}
}

// Dispatch routes an RPC request to the correct method.
func (h *Handler) Dispatch(req Request) Response {
	switch req.Method {
	case "publish_transaction":
		return h.publishTransaction(req)
	case "publish_raw_transaction":
		return h.publishRawTransaction(req)
	case "block_by_height":
		return h.blockByHeight(req)
	case "block_by_hash":
		return h.blockByHash(req)
	case "get_account":
		return h.getAccount(req)
	case "get_transaction":
		return h.getTransaction(req)
	case "fileLoadContract":
		return h.fileLoadContract(req)
	case "callVm":
		return h.callVm(req)
	default:
		return errResponse(req.ID, CodeMethodNotFound, fmt.Sprintf("method %q not found", req.Method))
	}
}

func (h *Handler) publishTransaction(req Request) Response {
	var params struct {
		To     string `json:"to"`
		Data   string `json:"data"`
		Secret string `json:"secret"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	toBytes, err := hex.DecodeString(params.To)
	if err != nil || len(toBytes) != 32 {
		return errResponse(req.ID, CodeInvalidParams, "to must be 32 bytes hex")
	}
	var to [32]byte
	copy(to[:], toBytes)

	key, err := h.resolveSecret(params.Secret)
	if err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}

	h.engine.Enqueue(engine.PublishTx(to, []byte(params.Data), key))
	return okResponse(req.ID, "transaction_sent")
}

// resolveSecret parses the RPC "secret" field: a "0x"-prefixed hex private
// key, or a path to a keystore file saved with an empty password.
func (h *Handler) resolveSecret(secret string) (crypto.PrivateKey, error) {
	if strings.HasPrefix(secret, "0x") {
		raw, err := hex.DecodeString(secret[2:])
		if err != nil {
			return nil, fmt.Errorf("decode secret: %w", err)
		}
		switch h.profile.Name() {
		case "classical":
			return crypto.ClassicalFromBytes(raw)
		case "lattice":
			return crypto.LatticeFromBytes(raw)
		default:
			return nil, fmt.Errorf("unknown profile %q", h.profile.Name())
		}
	}
	key, _, err := crypto.LoadKey(secret, "")
	if err != nil {
		return nil, fmt.Errorf("load keystore %q: %w", secret, err)
	}
	return key, nil
}

func (h *Handler) publishRawTransaction(req Request) Response {
	var params struct {
		Tx json.RawMessage `json:"tx"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	if _, err := core.DecodeTransaction(params.Tx); err != nil {
		return errResponse(req.ID, CodeInvalidParams, "tx: "+err.Error())
	}
	h.engine.Enqueue(engine.RawTransaction(params.Tx))
	return okResponse(req.ID, "transaction_sent")
}

func (h *Handler) blockByHeight(req Request) Response {
	var params struct {
		Height uint64 `json:"height"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	hash, err := h.blocks.GetHashAtHeight(params.Height)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	block, err := h.blocks.GetBlock(hash)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, block)
}

func (h *Handler) blockByHash(req Request) Response {
	var params struct {
		Hash string `json:"hash"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	hash, err := parseHash(params.Hash)
	if err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	block, err := h.blocks.GetBlock(hash)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, block)
}

func (h *Handler) getAccount(req Request) Response {
	var params struct {
		Hash string `json:"hash"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	hash, err := parseHash(params.Hash)
	if err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	count, err := h.accounts.Get(hash)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, fmt.Sprintf("%d", count))
}

func (h *Handler) getTransaction(req Request) Response {
	var params struct {
		Hash string `json:"hash"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	hash, err := parseHash(params.Hash)
	if err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}

	ev, reply := engine.GetTx(hash)
	h.engine.Enqueue(ev)
	// The engine sends no reply for an unknown hash, so the wait is bounded.
	select {
	case result := <-reply:
		if result != nil {
			var tx *core.Transaction
			if err := json.Unmarshal(result.Data, &tx); err != nil {
				return errResponse(req.ID, CodeInternalError, err.Error())
			}
			return okResponse(req.ID, tx)
		}
	case <-time.After(5 * time.Second):
	}
	return errResponse(req.ID, CodeInternalError, "transaction not found")
}

func (h *Handler) fileLoadContract(req Request) Response {
	var params []string
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	if len(params) == 0 {
		return errResponse(req.ID, CodeInvalidParams, "expected [filename]")
	}
	ev, reply := engine.VmBuild(params[0])
	h.engine.Enqueue(ev)
	result := <-reply
	if result.Err != nil {
		return errResponse(req.ID, CodeInternalError, result.Err.Error())
	}
	return okResponse(req.ID, result.BuildID)
}

func (h *Handler) callVm(req Request) Response {
	var params []string
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	if len(params) < 2 {
		return errResponse(req.ID, CodeInvalidParams, "expected [contract, function, args...]")
	}
	contract, function, args := params[0], params[1], params[2:]
	result, err := h.vm.Call(func(img *vmgate.Image) ([]byte, error) {
		return callOpaqueVM(img, contract, function, args)
	})
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, string(result))
}

func parseHash(s string) ([32]byte, error) {
	var out [32]byte
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 32 {
		return out, fmt.Errorf("hash must be 32 bytes hex")
	}
	copy(out[:], b)
	return out, nil
}
