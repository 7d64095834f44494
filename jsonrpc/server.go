// Package jsonrpc exposes the block store over JSON-RPC. It is a
// collaborator of the store, not part of it: every method maps onto one
// store operation.
package jsonrpc

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"
	"github.com/creachadair/jrpc2/jhttp"

	"blockdb/block"
	storeerrors "blockdb/errors"
	"blockdb/monitoring"
	"blockdb/ratelimit"
	"blockdb/store"
)

// Application-specific JSON-RPC error codes.
const (
	codeInvalidBlock   = jrpc2.Code(-32002)
	codeHeightOverflow = jrpc2.Code(-32003)
	codeBlockNotFound  = jrpc2.Code(-32004)
	codeRateLimited    = jrpc2.Code(-32005)
)

// Service wires store operations to RPC methods.
type Service struct {
	store   *store.BlockStore
	limiter *ratelimit.RateLimiter
}

// NewService creates an RPC service over the given store. limiter may be
// nil to disable rate limiting.
func NewService(s *store.BlockStore, limiter *ratelimit.RateLimiter) *Service {
	return &Service{store: s, limiter: limiter}
}

// --- Params/Results ---

type heightParams struct {
	Height int64 `json:"height"`
}

type putParams struct {
	Height int64        `json:"height"`
	Block  *block.Block `json:"block"`
}

type putManyParams struct {
	Blocks []*block.Block `json:"blocks"`
}

type maybeBlockResult struct {
	Found bool         `json:"found"`
	Block *block.Block `json:"block,omitempty"`
}

type countResult struct {
	Count int `json:"count"`
}

type deletedResult struct {
	Deleted int `json:"deleted"`
}

type okResult struct {
	Ok bool `json:"ok"`
}

// --- Handlers ---

func (s *Service) getBlock(ctx context.Context, params heightParams) (*block.Block, error) {
	monitoring.IncreaseRPCRequestCount("block.get")
	b, err := s.store.GetBlock(params.Height)
	if err != nil {
		return nil, toRPCError(err)
	}
	return b, nil
}

func (s *Service) tryGetBlock(ctx context.Context, params heightParams) (*maybeBlockResult, error) {
	monitoring.IncreaseRPCRequestCount("block.tryGet")
	b, err := s.store.TryGetBlock(params.Height)
	if err != nil {
		return nil, toRPCError(err)
	}
	return &maybeBlockResult{Found: b != nil, Block: b}, nil
}

func (s *Service) topBlock(ctx context.Context) (*maybeBlockResult, error) {
	monitoring.IncreaseRPCRequestCount("block.top")
	b, err := s.store.FindTopBlock()
	if err != nil {
		return nil, toRPCError(err)
	}
	return &maybeBlockResult{Found: b != nil, Block: b}, nil
}

func (s *Service) allBlocks(ctx context.Context) ([]*block.Block, error) {
	monitoring.IncreaseRPCRequestCount("block.all")
	blocks, err := s.store.AllBlocks()
	if err != nil {
		return nil, toRPCError(err)
	}
	return blocks, nil
}

func (s *Service) countBlocks(ctx context.Context) (*countResult, error) {
	monitoring.IncreaseRPCRequestCount("block.count")
	start := time.Now()
	count, err := s.store.Count()
	if err != nil {
		return nil, toRPCError(err)
	}
	monitoring.RecordOpDuration("count", time.Since(start))
	return &countResult{Count: count}, nil
}

func (s *Service) putBlock(ctx context.Context, params putParams) (*okResult, error) {
	monitoring.IncreaseRPCRequestCount("block.put")
	start := time.Now()
	if err := s.store.UpdateBlock(params.Height, params.Block); err != nil {
		monitoring.RecordRejectedBlock(string(storeerrors.FromErr(err).Code))
		return nil, toRPCError(err)
	}
	monitoring.RecordOpDuration("put", time.Since(start))
	monitoring.AddBlocksWritten(1)
	s.refreshTopHeight()
	return &okResult{Ok: true}, nil
}

func (s *Service) putBlocks(ctx context.Context, params putManyParams) (*okResult, error) {
	monitoring.IncreaseRPCRequestCount("block.putMany")
	start := time.Now()
	if err := s.store.UpdateBlocks(params.Blocks); err != nil {
		monitoring.RecordRejectedBlock(string(storeerrors.FromErr(err).Code))
		return nil, toRPCError(err)
	}
	monitoring.RecordOpDuration("putMany", time.Since(start))
	monitoring.AddBlocksWritten(len(params.Blocks))
	s.refreshTopHeight()
	return &okResult{Ok: true}, nil
}

func (s *Service) trimBlocks(ctx context.Context, params heightParams) (*deletedResult, error) {
	monitoring.IncreaseRPCRequestCount("block.trim")
	start := time.Now()
	deleted, err := s.store.TrimPastHeight(params.Height)
	if err != nil {
		return nil, toRPCError(err)
	}
	monitoring.RecordOpDuration("trim", time.Since(start))
	monitoring.AddBlocksTrimmed(deleted)
	return &deletedResult{Deleted: deleted}, nil
}

func (s *Service) clearBlocks(ctx context.Context) (*deletedResult, error) {
	monitoring.IncreaseRPCRequestCount("block.clear")
	deleted, err := s.store.ClearDB()
	if err != nil {
		return nil, toRPCError(err)
	}
	monitoring.AddBlocksTrimmed(deleted)
	monitoring.SetTopHeight(0)
	return &deletedResult{Deleted: deleted}, nil
}

// refreshTopHeight is a single-entry reverse scan, cheap enough to run
// after every successful write.
func (s *Service) refreshTopHeight() {
	top, err := s.store.FindTopBlock()
	if err != nil || top == nil {
		return
	}
	monitoring.SetTopHeight(top.Height)
}

// Methods returns the method map served by this service.
func (s *Service) Methods() handler.Map {
	return handler.Map{
		"block.get":     handler.New(s.getBlock),
		"block.tryGet":  handler.New(s.tryGetBlock),
		"block.top":     handler.New(s.topBlock),
		"block.all":     handler.New(s.allBlocks),
		"block.count":   handler.New(s.countBlocks),
		"block.put":     handler.New(s.putBlock),
		"block.putMany": handler.New(s.putBlocks),
		"block.trim":    handler.New(s.trimBlocks),
		"block.clear":   handler.New(s.clearBlocks),
	}
}

// NewHandler returns the HTTP handler serving the JSON-RPC bridge, wrapped
// with per-client rate limiting when a limiter is configured.
func (s *Service) NewHandler() http.Handler {
	bridge := jhttp.NewBridge(s.Methods(), nil)
	if s.limiter == nil {
		return bridge
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow(clientKey(r)) {
			monitoring.IncreaseRateLimitedCount()
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write(storeerrors.NewStoreError(storeerrors.ErrCodeRateLimited, "too many requests").JSON())
			return
		}
		bridge.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func toRPCError(err error) error {
	se := storeerrors.FromErr(err)
	return jrpc2.Errorf(rpcCode(se.Code), "%s", se.Message).WithData(se)
}

func rpcCode(code storeerrors.StoreErrorCode) jrpc2.Code {
	switch code {
	case storeerrors.ErrCodeBlockNotFound:
		return codeBlockNotFound
	case storeerrors.ErrCodeInvalidBlock:
		return codeInvalidBlock
	case storeerrors.ErrCodeHeightOverflow:
		return codeHeightOverflow
	case storeerrors.ErrCodeRateLimited:
		return codeRateLimited
	case storeerrors.ErrCodeInvalidRequest:
		return jrpc2.InvalidParams
	default:
		return jrpc2.InternalError
	}
}
