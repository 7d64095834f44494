package jsonrpc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blockdb/block"
	"blockdb/db"
	"blockdb/ratelimit"
	"blockdb/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	s, err := store.New(db.NewMemoryProvider())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return NewService(s, nil)
}

func testBlock(height int64, hash string) *block.Block {
	return &block.Block{
		IndepHash:     hash,
		PreviousBlock: "prev-" + hash,
		Timestamp:     1528500720,
		Height:        height,
	}
}

func TestPutAndGetBlock(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	ok, err := svc.putBlock(ctx, putParams{Height: 5, Block: testBlock(5, "abc")})
	require.NoError(t, err)
	assert.True(t, ok.Ok)

	got, err := svc.getBlock(ctx, heightParams{Height: 5})
	require.NoError(t, err)
	assert.Equal(t, "abc", got.IndepHash)
}

func TestGetBlockNotFoundCode(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.getBlock(context.Background(), heightParams{Height: 42})
	require.Error(t, err)

	var rpcErr *jrpc2.Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, codeBlockNotFound, rpcErr.Code)
}

func TestTryGetBlockAbsent(t *testing.T) {
	svc := newTestService(t)

	res, err := svc.tryGetBlock(context.Background(), heightParams{Height: 42})
	require.NoError(t, err)
	assert.False(t, res.Found)
	assert.Nil(t, res.Block)
}

func TestPutBlockInvalidCode(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.putBlock(context.Background(), putParams{Height: 5, Block: &block.Block{Height: 5}})
	require.Error(t, err)

	var rpcErr *jrpc2.Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, codeInvalidBlock, rpcErr.Code)
}

func TestPutManyTopCountTrimClear(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.putBlocks(ctx, putManyParams{Blocks: []*block.Block{
		testBlock(10, "h10"),
		testBlock(5, "h5"),
		testBlock(7, "h7"),
	}})
	require.NoError(t, err)

	top, err := svc.topBlock(ctx)
	require.NoError(t, err)
	require.True(t, top.Found)
	assert.Equal(t, int64(10), top.Block.Height)

	count, err := svc.countBlocks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count.Count)

	all, err := svc.allBlocks(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, int64(5), all[0].Height)

	trimmed, err := svc.trimBlocks(ctx, heightParams{Height: 7})
	require.NoError(t, err)
	assert.Equal(t, 1, trimmed.Deleted)

	cleared, err := svc.clearBlocks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, cleared.Deleted)

	top, err = svc.topBlock(ctx)
	require.NoError(t, err)
	assert.False(t, top.Found)
}

func TestHTTPBridge(t *testing.T) {
	svc := newTestService(t)
	server := httptest.NewServer(svc.NewHandler())
	defer server.Close()

	body := `{"jsonrpc":"2.0","id":1,"method":"block.put","params":{"height":3,"block":{"indep_hash":"abc","previous_block":"prev","timestamp":1528500720,"height":3}}}`
	resp, err := http.Post(server.URL, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHTTPRateLimit(t *testing.T) {
	s, err := store.New(db.NewMemoryProvider())
	require.NoError(t, err)
	defer s.Close()

	limiter := ratelimit.NewRateLimiter(&ratelimit.Config{
		MaxRequests:     1,
		WindowSize:      time.Minute,
		CleanupInterval: time.Minute,
	})
	defer limiter.Stop()

	svc := NewService(s, limiter)
	server := httptest.NewServer(svc.NewHandler())
	defer server.Close()

	body := `{"jsonrpc":"2.0","id":1,"method":"block.count"}`
	resp, err := http.Post(server.URL, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(server.URL, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}
