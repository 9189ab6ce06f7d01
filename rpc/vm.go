package rpc

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/tolelom/tolchain/crypto"
	"github.com/tolelom/tolchain/vmgate"
)

// callOpaqueVM is the read-only VM call path behind callVm. The contract
// virtual machine itself is out of this system's scope (§1); this just
// proves out the reader-lock plumbing the gate provides by hashing the
// call's identity against the currently built image, matching the
// "opaque build result" treatment the rest of the design gives the VM.
func callOpaqueVM(img *vmgate.Image, contract, function string, args []string) ([]byte, error) {
	if img.File != contract && img.File != contract+".wasm" {
		return nil, fmt.Errorf("vm: contract %q is not the currently built image (%q)", contract, img.File)
	}
	payload := strings.Join(append([]string{img.File, function}, args...), "|")
	digest := crypto.Hash(append(img.Bytecode, []byte(payload)...))
	return []byte(hex.EncodeToString(digest[:])), nil
}
