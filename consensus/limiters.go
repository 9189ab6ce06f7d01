// Package consensus holds the pure predicate that decides when the engine
// proposes a new block. It owns no state of its own and never touches the
// chain, mempool, or stores directly — every input is passed in by the
// caller, which keeps the predicate trivially testable.
package consensus

import "time"

// Settings configures the thresholds that authorise a block proposal. Any
// one of the three firing is sufficient; defaults are serialised into the
// genesis transaction payload so every node on the network starts with an
// identical view of them.
type Settings struct {
	MinTxCount  int           `json:"min_tx_count"`
	MinBytes    int           `json:"min_bytes"`
	MaxElapsed  time.Duration `json:"max_elapsed"`
}

// DefaultSettings returns the settings written into a freshly bootstrapped
// genesis block.
func DefaultSettings() Settings {
	return Settings{
		MinTxCount: 500,
		MinBytes:   1 << 20, // 1 MiB
		MaxElapsed: 10 * time.Second,
	}
}

// CheckLimiters reports whether any configured threshold has been met:
// mempool transaction count, accumulated mempool byte size, or wall-clock
// time elapsed since the current head was produced.
func (s Settings) CheckLimiters(mempoolLen, poolSizeBytes int, headTimestampNano uint64) bool {
	if s.MinTxCount > 0 && mempoolLen >= s.MinTxCount {
		return true
	}
	if s.MinBytes > 0 && poolSizeBytes >= s.MinBytes {
		return true
	}
	if s.MaxElapsed > 0 {
		elapsed := time.Duration(nowNano()-headTimestampNano) * time.Nanosecond
		if elapsed >= s.MaxElapsed {
			return true
		}
	}
	return false
}

// nowNano is a var so tests can fake wall-clock time deterministically.
var nowNano = func() uint64 { return uint64(time.Now().UnixNano()) }
