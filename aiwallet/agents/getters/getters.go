package getters

import (
	"aiwallet/aiwallet/services/alchemy"
	"aiwallet/aiwallet/services/state"
	"context"
	"errors"
)

var ErrNoActivitySource = errors.New("chain history is not configured")

// ActivitySource is the chain history backend; *alchemy.Client satisfies it.
type ActivitySource interface {
	Activity(ctx context.Context, address string, maxCount int) (alchemy.Activity, error)
}

// DataGetters serves read-only wallet data to the agent and controllers.
type DataGetters struct {
	state *state.Service
	chain ActivitySource
}

func NewDataGetters(st *state.Service, chain ActivitySource) *DataGetters {
	return &DataGetters{state: st, chain: chain}
}

// State returns the cached wallet state, re-reading the chain when refresh is set.
func (g *DataGetters) State(ctx context.Context, w state.Reader, refresh bool) (state.WalletState, error) {
	return g.state.Refresh(ctx, w, refresh)
}

func (g *DataGetters) Activity(ctx context.Context, w state.Reader, limit int) (alchemy.Activity, error) {
	if g.chain == nil {
		return alchemy.Activity{}, ErrNoActivitySource
	}
	return g.chain.Activity(ctx, w.Address(), limit)
}
