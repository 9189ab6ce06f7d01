// Package vmgate guards the opaque contract virtual machine behind the
// readers-writer discipline of §4.7: the engine acquires the sole writer
// when servicing a VmBuild event, RPC workers acquire readers concurrently
// for callVm. The VM's actual build/call semantics are outside this
// system's scope — Gate only owns the synchronization and the contracts
// directory convention around it.
package vmgate

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
)

// Image is the opaque result of a successful build: whatever state a call
// into the VM needs. This system never interprets it beyond holding it.
type Image struct {
	ContractsDir string
	File         string
	Bytecode     []byte
}

// Gate mediates access to the current Image under a readers-writer lock
// whose writer side spins rather than blocks, per §4.7's contention note.
type Gate struct {
	contractsDir string

	mu      sync.RWMutex
	writing int32 // spin flag; 1 while a Build is in progress
	current *Image
}

// New returns a Gate rooted at contractsDir, the fixed directory every
// build path is resolved relative to.
func New(contractsDir string) *Gate {
	return &Gate{contractsDir: contractsDir}
}

// Build loads file from the gate's contracts directory and installs it as
// the current Image, spinning (non-yielding retry) until the exclusive
// writer is free. At most one builder runs at a time across the process.
func (g *Gate) Build(file string) (*Image, error) {
	for !atomic.CompareAndSwapInt32(&g.writing, 0, 1) {
		// spin: builds are infrequent and brief, so a non-yielding retry
		// clears faster than parking a goroutine would.
	}
	defer atomic.StoreInt32(&g.writing, 0)

	path := filepath.Join(g.contractsDir, file)
	bytecode, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("vmgate: read %s: %w", path, err)
	}
	img := &Image{ContractsDir: g.contractsDir, File: file, Bytecode: bytecode}

	for !g.mu.TryLock() {
		// spin until in-flight Calls release their read locks.
	}
	g.current = img
	g.mu.Unlock()
	return img, nil
}

// Call takes a read lock on the current Image and runs fn against it. It
// returns an error if no Image has been built yet. Concurrent Call
// invocations proceed without contending each other; they only block a
// concurrent Build (and vice versa).
func (g *Gate) Call(fn func(*Image) ([]byte, error)) ([]byte, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.current == nil {
		return nil, fmt.Errorf("vmgate: no contract built yet")
	}
	return fn(g.current)
}
