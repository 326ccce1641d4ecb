package state

import (
	"aiwallet/aiwallet/config"
	"aiwallet/aiwallet/utils/logging"
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// WalletState is a point-in-time view of one wallet's on-chain data.
type WalletState struct {
	Address     string    `json:"address"`
	Owner       string    `json:"owner,omitempty"`
	Balance     string    `json:"balance"`
	DailyLimit  string    `json:"dailyLimit"`
	DailySpent  string    `json:"dailySpent"`
	IsLocked    bool      `json:"isLocked"`
	RefreshedAt time.Time `json:"refreshedAt"`
}

// Reader is the read side of the wallet wrapper.
type Reader interface {
	Address() string
	GetBalance(ctx context.Context) (string, error)
	GetDailyLimit(ctx context.Context) (string, error)
	GetDailySpent(ctx context.Context) (string, error)
	IsLocked(ctx context.Context) (bool, error)
}

// HeadReader reports the latest block; *ethclient.Client satisfies it.
type HeadReader interface {
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// Waiter blocks until a transaction has a receipt.
type Waiter interface {
	WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
}

// Service caches wallet state and refreshes it on demand.
type Service struct {
	cache     *ristretto.Cache
	ttl       time.Duration
	interval  time.Duration
	maxTicks  int
	txTimeout time.Duration
	now       func() time.Time
}

func NewService(cfg config.Config) (*Service, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e4,
		MaxCost:     1e3,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("state cache: %w", err)
	}
	return &Service{
		cache:     cache,
		ttl:       cfg.StateCacheTTL,
		interval:  cfg.RefreshInterval,
		maxTicks:  cfg.RefreshMaxTicks,
		txTimeout: cfg.TxWaitTimeout,
		now:       time.Now,
	}, nil
}

func (s *Service) Close() { s.cache.Close() }

func cacheKey(address string) string { return strings.ToLower(address) }

// Get returns the cached state when it is still fresh, otherwise reads the chain.
func (s *Service) Get(ctx context.Context, w Reader) (WalletState, error) {
	return s.Refresh(ctx, w, false)
}

// Refresh reads the chain unless a fresh cached entry exists and force is false.
func (s *Service) Refresh(ctx context.Context, w Reader, force bool) (WalletState, error) {
	key := cacheKey(w.Address())
	if !force {
		if v, ok := s.cache.Get(key); ok {
			if st, ok := v.(WalletState); ok {
				return st, nil
			}
		}
	}
	defer logging.LogDuration(ctx, "wallet_state_refresh")()

	st := WalletState{Address: w.Address()}
	if o, ok := w.(interface{ Owner() string }); ok {
		st.Owner = o.Owner()
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		st.Balance, err = w.GetBalance(gctx)
		return err
	})
	g.Go(func() (err error) {
		st.DailyLimit, err = w.GetDailyLimit(gctx)
		return err
	})
	g.Go(func() (err error) {
		st.DailySpent, err = w.GetDailySpent(gctx)
		return err
	})
	g.Go(func() (err error) {
		st.IsLocked, err = w.IsLocked(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return WalletState{}, err
	}
	st.RefreshedAt = s.now()

	s.cache.SetWithTTL(key, st, 1, s.ttl)
	s.cache.Wait()
	return st, nil
}

// Invalidate drops the cached state after a state-changing call.
func (s *Service) Invalidate(address string) {
	s.cache.Del(cacheKey(address))
}

// Watch polls for new blocks and refreshes the state whenever the head moves.
// It stops after maxTicks polls, when ctx ends, or when onUpdate returns false.
func (s *Service) Watch(ctx context.Context, w Reader, heads HeadReader, onUpdate func(WalletState) bool) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var last uint64
	for tick := 0; s.maxTicks <= 0 || tick < s.maxTicks; tick++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		head, err := heads.HeaderByNumber(ctx, nil)
		if err != nil {
			logging.AppLogger.Warn("watch: head lookup failed", zap.Error(err))
			continue
		}
		n := head.Number.Uint64()
		if n == last {
			continue
		}
		last = n
		st, err := s.Refresh(ctx, w, true)
		if err != nil {
			logging.AppLogger.Warn("watch: refresh failed", zap.Error(err))
			continue
		}
		if !onUpdate(st) {
			return nil
		}
	}
	return nil
}

type TxStatus string

const (
	TxConfirmed TxStatus = "confirmed"
	TxFailed    TxStatus = "failed"
)

// TxEvent reports the outcome of a tracked transaction. ID is stable per
// outcome so consumers can deduplicate.
type TxEvent struct {
	ID          string   `json:"id"`
	Hash        string   `json:"hash"`
	Status      TxStatus `json:"status"`
	BlockNumber uint64   `json:"blockNumber,omitempty"`
	Err         error    `json:"-"`
}

// TrackTransaction waits for tx in the background, bounded by the configured
// timeout, invalidates the wallet's cached state and reports through done.
func (s *Service) TrackTransaction(ctx context.Context, w Reader, waiter Waiter, tx *types.Transaction, done func(TxEvent)) {
	hash := tx.Hash().Hex()
	go func() {
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.txTimeout)
		defer cancel()

		receipt, err := waiter.WaitMined(wctx, tx)
		s.Invalidate(w.Address())

		ev := TxEvent{Hash: hash, Status: TxConfirmed}
		switch {
		case err != nil:
			ev.Status, ev.Err = TxFailed, err
		case receipt == nil:
			ev.Status, ev.Err = TxFailed, errors.New("no receipt")
		case receipt.Status != types.ReceiptStatusSuccessful:
			ev.Status, ev.Err = TxFailed, errors.New("transaction reverted")
		}
		if receipt != nil && receipt.BlockNumber != nil {
			ev.BlockNumber = receipt.BlockNumber.Uint64()
		}
		ev.ID = hash + ":" + string(ev.Status)
		logging.AppLogger.Info("transaction tracked",
			zap.String("tx", hash),
			zap.String("status", string(ev.Status)),
			zap.Error(ev.Err))
		done(ev)
	}()
}
