package walletlist

import (
	"context"
	"sync"
)

// MemoryStore keeps snapshots in process. Used by the CLI REPL and tests.
type MemoryStore struct {
	mu    sync.Mutex
	snaps map[string]Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snaps: make(map[string]Snapshot)}
}

func (s *MemoryStore) Load(ctx context.Context, userID string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.snaps[userID]), nil
}

func (s *MemoryStore) Save(ctx context.Context, userID string, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[userID] = clone(snap)
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snaps, userID)
	return nil
}

func clone(s Snapshot) Snapshot {
	out := Snapshot{ActiveWalletID: s.ActiveWalletID}
	if s.Wallets != nil {
		out.Wallets = append([]Record(nil), s.Wallets...)
	}
	return out
}
