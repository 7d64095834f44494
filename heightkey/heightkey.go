// Package heightkey converts block heights to fixed-width storage keys.
//
// Keys are 13-character zero-padded decimal strings, so for any two valid
// heights a < b the byte-wise comparison Encode(a) < Encode(b) holds. That
// property is what lets a lexicographically ordered engine answer numeric
// range queries over heights.
package heightkey

import (
	"errors"
	"fmt"
	"strconv"
)

const (
	// KeyLen is the fixed width of an encoded height key.
	KeyLen = 13

	// MaxHeight is the first height that no longer fits in a key.
	MaxHeight = int64(10_000_000_000_000)
)

// ErrOverflow is returned when a height is outside the representable range.
var ErrOverflow = errors.New("height outside representable key range")

// Encode converts a height to its 13-character zero-padded decimal key.
func Encode(height int64) (string, error) {
	if height < 0 || height >= MaxHeight {
		return "", fmt.Errorf("%w: %d", ErrOverflow, height)
	}
	return fmt.Sprintf("%013d", height), nil
}

// Decode parses a key produced by Encode back to its height. It rejects
// anything that is not exactly 13 decimal digits.
func Decode(key string) (int64, error) {
	if len(key) != KeyLen {
		return 0, fmt.Errorf("invalid height key %q: want %d characters, got %d", key, KeyLen, len(key))
	}
	for i := 0; i < KeyLen; i++ {
		if key[i] < '0' || key[i] > '9' {
			return 0, fmt.Errorf("invalid height key %q: non-digit at position %d", key, i)
		}
	}
	height, err := strconv.ParseInt(key, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid height key %q: %w", key, err)
	}
	return height, nil
}
