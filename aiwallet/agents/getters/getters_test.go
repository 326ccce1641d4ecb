package getters

import (
	"aiwallet/aiwallet/config"
	"aiwallet/aiwallet/services/alchemy"
	"aiwallet/aiwallet/services/state"
	"context"
	"errors"
	"testing"
	"time"
)

type stubReader struct{ reads int }

func (s *stubReader) Address() string { return "0x00000000000000000000000000000000000000AA" }
func (s *stubReader) GetBalance(ctx context.Context) (string, error) {
	s.reads++
	return "0.5", nil
}
func (s *stubReader) GetDailyLimit(ctx context.Context) (string, error) { return "0.1", nil }
func (s *stubReader) GetDailySpent(ctx context.Context) (string, error) { return "0.0", nil }
func (s *stubReader) IsLocked(ctx context.Context) (bool, error)        { return true, nil }

type stubChain struct{ address string }

func (s *stubChain) Activity(ctx context.Context, address string, maxCount int) (alchemy.Activity, error) {
	s.address = address
	return alchemy.Activity{LatestBlock: 7, Transfers: []alchemy.AssetTransfer{{Hash: "0x1"}}}, nil
}

func newGetters(t *testing.T, chain ActivitySource) *DataGetters {
	t.Helper()
	st, err := state.NewService(config.Config{StateCacheTTL: time.Minute})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(st.Close)
	return NewDataGetters(st, chain)
}

func TestGetState(t *testing.T) {
	g := newGetters(t, nil)
	r := &stubReader{}
	st, err := g.State(context.Background(), r, false)
	if err != nil {
		t.Fatal(err)
	}
	if st.Balance != "0.5" || !st.IsLocked {
		t.Errorf("unexpected state %+v", st)
	}
	g.State(context.Background(), r, true)
	if r.reads != 2 {
		t.Errorf("refresh should bypass the cache, got %d reads", r.reads)
	}
}

func TestGetActivity(t *testing.T) {
	chain := &stubChain{}
	g := newGetters(t, chain)
	a, err := g.Activity(context.Background(), &stubReader{}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if a.LatestBlock != 7 || len(a.Transfers) != 1 {
		t.Errorf("unexpected activity %+v", a)
	}
	if chain.address != "0x00000000000000000000000000000000000000AA" {
		t.Errorf("activity queried for %s", chain.address)
	}
}

func TestActivityWithoutSource(t *testing.T) {
	g := newGetters(t, nil)
	if _, err := g.Activity(context.Background(), &stubReader{}, 5); !errors.Is(err, ErrNoActivitySource) {
		t.Errorf("expected ErrNoActivitySource, got %v", err)
	}
}
