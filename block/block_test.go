package block

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blockdb/jsonx"
)

func TestValidate(t *testing.T) {
	b := &Block{IndepHash: "abc", Height: 5}
	assert.NoError(t, b.Validate())

	missing := &Block{PreviousBlock: "prev", Height: 5}
	assert.ErrorIs(t, missing.Validate(), ErrMissingIndepHash)

	var nilBlock *Block
	assert.ErrorIs(t, nilBlock.Validate(), ErrMissingIndepHash)
}

func TestJSONRoundTrip(t *testing.T) {
	b := &Block{
		IndepHash:     "ngFDAB2KRhJgJRysuxpp16DFSqx1ZCV5By4vgytO7oY",
		PreviousBlock: "V6YjG8G3he0JIIwRMlTiVSQHHzPqUIMpBV5J3cDqk_fbWbeEBEJMLkJooipHgpjyUgKRfZQ",
		Timestamp:     1528500720,
		Height:        145701,
		Nonce:         "AQEBAQABAQABAAEBAAEBAAA",
		Txs:           []string{"7BoxcxiJIjTwUp3JXp0xRJQXf6hZtyJj1kjGNiEl5A8"},
	}

	data, err := jsonx.Marshal(b)
	require.NoError(t, err)

	var got Block
	require.NoError(t, jsonx.Unmarshal(data, &got))
	assert.Equal(t, *b, got)
}

func TestAge(t *testing.T) {
	b := &Block{IndepHash: "abc", Timestamp: 1000}
	now := time.Unix(1000+600, 0)
	assert.Equal(t, 10*time.Minute, b.Age(now))
}
