package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blockdb/block"
	"blockdb/db"
	"blockdb/heightkey"
)

func newTestStore(t *testing.T) *BlockStore {
	t.Helper()
	s, err := New(db.NewMemoryProvider())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testBlock(height int64, hash string) *block.Block {
	return &block.Block{
		IndepHash:     hash,
		PreviousBlock: "prev-" + hash,
		Timestamp:     1528500720,
		Height:        height,
	}
}

func heights(blocks []*block.Block) []int64 {
	out := make([]int64, len(blocks))
	for i, b := range blocks {
		out[i] = b.Height
	}
	return out
}

func TestNewRejectsNilProvider(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestUpdateAndGetBlock(t *testing.T) {
	s := newTestStore(t)

	b := testBlock(5, "abc")
	b.Nonce = "AQEB"
	b.Txs = []string{"tx1", "tx2"}
	require.NoError(t, s.UpdateBlock(5, b))

	got, err := s.GetBlock(5)
	require.NoError(t, err)
	assert.Equal(t, b, got)
}

func TestGetBlockNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetBlock(42)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := s.TryGetBlock(42)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUpdateBlockRejectsMissingHash(t *testing.T) {
	s := newTestStore(t)

	err := s.UpdateBlock(5, &block.Block{PreviousBlock: "prev", Height: 5})
	assert.ErrorIs(t, err, ErrInvalidBlock)

	// nothing was written
	got, err := s.TryGetBlock(5)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUpdateBlockOverwrites(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.UpdateBlock(5, testBlock(5, "first")))
	require.NoError(t, s.UpdateBlock(5, testBlock(5, "second")))

	got, err := s.GetBlock(5)
	require.NoError(t, err)
	assert.Equal(t, "second", got.IndepHash)

	count, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUpdateBlockHeightOverflow(t *testing.T) {
	s := newTestStore(t)

	err := s.UpdateBlock(heightkey.MaxHeight, testBlock(heightkey.MaxHeight, "abc"))
	assert.ErrorIs(t, err, heightkey.ErrOverflow)

	err = s.UpdateBlock(-1, testBlock(-1, "abc"))
	assert.ErrorIs(t, err, heightkey.ErrOverflow)
}

// UpdateBlock keys by the height parameter, UpdateBlocks by each block's
// own Height field. A disagreeing pair lands at the parameter's key.
func TestUpdateBlockKeysByParameter(t *testing.T) {
	s := newTestStore(t)

	b := testBlock(99, "abc")
	require.NoError(t, s.UpdateBlock(7, b))

	got, err := s.GetBlock(7)
	require.NoError(t, err)
	assert.Equal(t, int64(99), got.Height)

	_, err = s.GetBlock(99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateBlocksOrdersByOwnHeight(t *testing.T) {
	s := newTestStore(t)

	err := s.UpdateBlocks([]*block.Block{
		testBlock(10, "h10"),
		testBlock(5, "h5"),
		testBlock(7, "h7"),
	})
	require.NoError(t, err)

	all, err := s.AllBlocks()
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 7, 10}, heights(all))
	assert.Equal(t, "h5", all[0].IndepHash)
	assert.Equal(t, "h7", all[1].IndepHash)
	assert.Equal(t, "h10", all[2].IndepHash)
}

func TestUpdateBlocksAtomicValidation(t *testing.T) {
	s := newTestStore(t)

	err := s.UpdateBlocks([]*block.Block{
		testBlock(1, "h1"),
		{PreviousBlock: "prev", Height: 2}, // missing indep_hash
		testBlock(3, "h3"),
	})
	assert.ErrorIs(t, err, ErrInvalidBlock)

	// none of the batch's entries were written
	count, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestUpdateBlocksOverflowAborts(t *testing.T) {
	s := newTestStore(t)

	err := s.UpdateBlocks([]*block.Block{
		testBlock(1, "h1"),
		testBlock(heightkey.MaxHeight, "huge"),
	})
	assert.ErrorIs(t, err, heightkey.ErrOverflow)

	count, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestFindTopBlock(t *testing.T) {
	s := newTestStore(t)

	top, err := s.FindTopBlock()
	require.NoError(t, err)
	assert.Nil(t, top)

	require.NoError(t, s.UpdateBlocks([]*block.Block{
		testBlock(1, "h1"),
		testBlock(3, "h3"),
		testBlock(2, "h2"),
	}))

	top, err = s.FindTopBlock()
	require.NoError(t, err)
	require.NotNil(t, top)
	assert.Equal(t, int64(3), top.Height)
	assert.Equal(t, "h3", top.IndepHash)
}

func TestCount(t *testing.T) {
	s := newTestStore(t)

	count, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	require.NoError(t, s.UpdateBlocks([]*block.Block{
		testBlock(1, "h1"),
		testBlock(5, "h5"),
		testBlock(9, "h9"),
	}))

	count, err = s.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestTrimPastHeight(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.UpdateBlocks([]*block.Block{
		testBlock(1, "h1"),
		testBlock(5, "h5"),
		testBlock(7, "h7"),
		testBlock(9, "h9"),
	}))

	deleted, err := s.TrimPastHeight(7)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	all, err := s.AllBlocks()
	require.NoError(t, err)
	assert.Equal(t, []int64{7, 9}, heights(all))

	// the boundary height itself is untouched
	got, err := s.GetBlock(7)
	require.NoError(t, err)
	assert.Equal(t, "h7", got.IndepHash)
}

func TestTrimPastHeightNothingBelow(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.UpdateBlock(10, testBlock(10, "h10")))

	deleted, err := s.TrimPastHeight(5)
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)

	count, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestClearDB(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.UpdateBlocks([]*block.Block{
		testBlock(1, "h1"),
		testBlock(2, "h2"),
	}))

	deleted, err := s.ClearDB()
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	count, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	top, err := s.FindTopBlock()
	require.NoError(t, err)
	assert.Nil(t, top)
}

func TestAllBlocksAscendingAcrossKeyWidths(t *testing.T) {
	s := newTestStore(t)

	// heights chosen so that naive string ordering of unpadded decimals
	// would misorder them
	require.NoError(t, s.UpdateBlocks([]*block.Block{
		testBlock(100, "h100"),
		testBlock(2, "h2"),
		testBlock(30, "h30"),
		testBlock(1000000, "h1000000"),
	}))

	all, err := s.AllBlocks()
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 30, 100, 1000000}, heights(all))
}

func TestDebugDump(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.UpdateBlocks([]*block.Block{
		testBlock(1, "h1"),
		testBlock(2, "h2"),
	}))

	// diagnostic readout only; it must complete without error
	require.NoError(t, s.DebugDump())
}

var errScanFault = errors.New("simulated engine failure")

// scanFaultProvider delegates to a real provider but makes every scan fail
// after yielding failAfter entries, and counts batch commits.
type scanFaultProvider struct {
	db.Provider
	failAfter int
	writes    int
}

func (p *scanFaultProvider) Iterate(opts db.IterOptions) db.Iterator {
	return &scanFaultIterator{inner: p.Provider.Iterate(opts), remaining: p.failAfter}
}

func (p *scanFaultProvider) Batch() db.Batch {
	return &writeCountingBatch{Batch: p.Provider.Batch(), writes: &p.writes}
}

type scanFaultIterator struct {
	inner     db.Iterator
	remaining int
	err       error
}

func (it *scanFaultIterator) Next() bool {
	if it.err != nil {
		return false
	}
	if it.remaining == 0 {
		it.err = errScanFault
		return false
	}
	if !it.inner.Next() {
		return false
	}
	it.remaining--
	return true
}

func (it *scanFaultIterator) Key() []byte   { return it.inner.Key() }
func (it *scanFaultIterator) Value() []byte { return it.inner.Value() }
func (it *scanFaultIterator) Release()      { it.inner.Release() }

func (it *scanFaultIterator) Error() error {
	if it.err != nil {
		return it.err
	}
	return it.inner.Error()
}

type writeCountingBatch struct {
	db.Batch
	writes *int
}

func (b *writeCountingBatch) Write() error {
	*b.writes++
	return b.Batch.Write()
}

func newFaultStore(t *testing.T, failAfter int) (*BlockStore, *scanFaultProvider) {
	t.Helper()
	fp := &scanFaultProvider{Provider: db.NewMemoryProvider(), failAfter: failAfter}
	s, err := New(fp)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.UpdateBlock(1, testBlock(1, "h1")))
	require.NoError(t, s.UpdateBlock(2, testBlock(2, "h2")))
	require.NoError(t, s.UpdateBlock(3, testBlock(3, "h3")))
	return s, fp
}

func TestScanErrorAbortsAllBlocks(t *testing.T) {
	s, _ := newFaultStore(t, 2)

	// two entries came back before the failure; none must be returned
	blocks, err := s.AllBlocks()
	assert.ErrorIs(t, err, errScanFault)
	assert.Nil(t, blocks)
}

func TestScanErrorAbortsCount(t *testing.T) {
	s, _ := newFaultStore(t, 2)

	count, err := s.Count()
	assert.ErrorIs(t, err, errScanFault)
	assert.Equal(t, 0, count)
}

func TestScanErrorAbortsFindTopBlock(t *testing.T) {
	s, _ := newFaultStore(t, 0)

	top, err := s.FindTopBlock()
	assert.ErrorIs(t, err, errScanFault)
	assert.Nil(t, top)
}

func TestScanErrorAbortsDebugDump(t *testing.T) {
	s, _ := newFaultStore(t, 1)

	assert.ErrorIs(t, s.DebugDump(), errScanFault)
}

func TestScanErrorLeavesTrimUnapplied(t *testing.T) {
	s, fp := newFaultStore(t, 2)

	deleted, err := s.TrimPastHeight(100)
	assert.ErrorIs(t, err, errScanFault)
	assert.Equal(t, 0, deleted)
	assert.Equal(t, 0, fp.writes)

	// every entry is still there
	for _, h := range []int64{1, 2, 3} {
		key, err := heightkey.Encode(h)
		require.NoError(t, err)
		found, err := fp.Provider.Has([]byte(key))
		require.NoError(t, err)
		assert.True(t, found)
	}
}

func TestScanErrorLeavesClearUnapplied(t *testing.T) {
	s, fp := newFaultStore(t, 2)

	deleted, err := s.ClearDB()
	assert.ErrorIs(t, err, errScanFault)
	assert.Equal(t, 0, deleted)
	assert.Equal(t, 0, fp.writes)
}

// the persistent engines must behave exactly like memory at store level
func TestStoreOverPersistentEngines(t *testing.T) {
	engines := map[string]func(t *testing.T) (db.Provider, error){
		"leveldb": func(t *testing.T) (db.Provider, error) {
			return db.NewLevelDBProvider(t.TempDir(), db.LevelDBTuning{})
		},
		"bolt": func(t *testing.T) (db.Provider, error) {
			return db.NewBoltProvider(t.TempDir())
		},
	}

	for name, open := range engines {
		t.Run(name, func(t *testing.T) {
			provider, err := open(t)
			require.NoError(t, err)

			s, err := New(provider)
			require.NoError(t, err)
			defer s.Close()

			require.NoError(t, s.UpdateBlocks([]*block.Block{
				testBlock(10, "h10"),
				testBlock(5, "h5"),
				testBlock(7, "h7"),
			}))

			all, err := s.AllBlocks()
			require.NoError(t, err)
			assert.Equal(t, []int64{5, 7, 10}, heights(all))

			top, err := s.FindTopBlock()
			require.NoError(t, err)
			assert.Equal(t, int64(10), top.Height)

			count, err := s.Count()
			require.NoError(t, err)
			assert.Equal(t, 3, count)

			deleted, err := s.TrimPastHeight(7)
			require.NoError(t, err)
			assert.Equal(t, 1, deleted)

			all, err = s.AllBlocks()
			require.NoError(t, err)
			assert.Equal(t, []int64{7, 10}, heights(all))

			deleted, err = s.ClearDB()
			require.NoError(t, err)
			assert.Equal(t, 2, deleted)

			top, err = s.FindTopBlock()
			require.NoError(t, err)
			assert.Nil(t, top)
		})
	}
}
