// Package block defines the chain block record persisted by the store.
package block

import (
	"errors"
	"time"
)

// ErrMissingIndepHash is returned when a block has no identifying hash.
// Such a record must never reach the storage engine.
var ErrMissingIndepHash = errors.New("block has no indep_hash")

// Block is one synced unit of chain data. IndepHash, PreviousBlock,
// Timestamp and Height are required for store integrity; the remaining
// fields are carried opaquely and round-trip through serialization
// untouched.
type Block struct {
	IndepHash     string   `json:"indep_hash"`
	PreviousBlock string   `json:"previous_block"`
	Timestamp     int64    `json:"timestamp"` // seconds since epoch
	Height        int64    `json:"height"`
	Nonce         string   `json:"nonce,omitempty"`
	Txs           []string `json:"txs,omitempty"`
	RewardAddr    string   `json:"reward_addr,omitempty"`
}

// Validate checks that the block carries its identifying hash. Content is
// not otherwise inspected; callers decide what is worth persisting.
func (b *Block) Validate() error {
	if b == nil || b.IndepHash == "" {
		return ErrMissingIndepHash
	}
	return nil
}

// Age returns the elapsed time since the block's own timestamp.
func (b *Block) Age(now time.Time) time.Duration {
	return now.Sub(time.Unix(b.Timestamp, 0))
}
