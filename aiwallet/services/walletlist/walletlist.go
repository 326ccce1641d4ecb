package walletlist

import (
	"aiwallet/aiwallet/utils/logging"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrNoActiveWallet = errors.New("no active wallet")
	ErrWalletNotFound = errors.New("wallet not found")
)

// Record is one locally known wallet.
type Record struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Address         string `json:"address"`
	ContractAddress string `json:"contractAddress"`
	PrivateKey      string `json:"privateKey"`
	CreatedAt       int64  `json:"createdAt"`
	IsActive        bool   `json:"isActive"`
}

// Snapshot is the full persisted state of one user's wallet list.
type Snapshot struct {
	Wallets        []Record `json:"wallets"`
	ActiveWalletID string   `json:"activeWalletId,omitempty"`
}

// Active returns the record flagged active, if any.
func (s Snapshot) Active() (Record, bool) {
	for _, w := range s.Wallets {
		if w.ID == s.ActiveWalletID && w.IsActive {
			return w, true
		}
	}
	return Record{}, false
}

// Redacted strips private keys for output.
func (s Snapshot) Redacted() Snapshot {
	out := Snapshot{ActiveWalletID: s.ActiveWalletID, Wallets: make([]Record, len(s.Wallets))}
	for i, w := range s.Wallets {
		w.PrivateKey = ""
		out.Wallets[i] = w
	}
	return out
}

func (s Snapshot) find(id string) int {
	for i, w := range s.Wallets {
		if w.ID == id {
			return i
		}
	}
	return -1
}

// activate rewrites every record's flag so only id is active. An empty id
// leaves no active wallet.
func (s *Snapshot) activate(id string) {
	s.ActiveWalletID = id
	for i := range s.Wallets {
		s.Wallets[i].IsActive = s.Wallets[i].ID == id
	}
}

// normalize repairs snapshots written by older clients where the flags and
// the active id disagree. The active id wins when it names a known wallet.
func (s *Snapshot) normalize() {
	if s.ActiveWalletID != "" && s.find(s.ActiveWalletID) >= 0 {
		s.activate(s.ActiveWalletID)
		return
	}
	for _, w := range s.Wallets {
		if w.IsActive {
			s.activate(w.ID)
			return
		}
	}
	s.activate("")
}

// Store persists whole snapshots per user.
type Store interface {
	Load(ctx context.Context, userID string) (Snapshot, error)
	Save(ctx context.Context, userID string, snap Snapshot) error
	Clear(ctx context.Context, userID string) error
}

// NewWallet is what callers supply when adding a wallet.
type NewWallet struct {
	Name            string
	Address         string
	ContractAddress string
	PrivateKey      string
}

// Manager serializes read-modify-write cycles per user and saves a full
// snapshot after every mutation.
type Manager struct {
	store Store
	now   func() time.Time
	newID func() string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewManager(store Store) *Manager {
	return &Manager{
		store: store,
		now:   time.Now,
		newID: func() string { return "wallet_" + uuid.NewString() },
		locks: make(map[string]*sync.Mutex),
	}
}

func (m *Manager) lock(userID string) func() {
	m.mu.Lock()
	l, ok := m.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[userID] = l
	}
	m.mu.Unlock()
	l.Lock()
	return l.Unlock
}

func (m *Manager) load(ctx context.Context, userID string) (Snapshot, error) {
	snap, err := m.store.Load(ctx, userID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load wallet list: %w", err)
	}
	snap.normalize()
	return snap, nil
}

func (m *Manager) save(ctx context.Context, userID string, snap Snapshot) error {
	if err := m.store.Save(ctx, userID, snap); err != nil {
		return fmt.Errorf("save wallet list: %w", err)
	}
	return nil
}

// mutate runs fn on the current snapshot and persists the result.
func (m *Manager) mutate(ctx context.Context, userID string, fn func(*Snapshot) error) (Snapshot, error) {
	unlock := m.lock(userID)
	defer unlock()

	snap, err := m.load(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}
	if err := fn(&snap); err != nil {
		return Snapshot{}, err
	}
	if err := m.save(ctx, userID, snap); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// Add appends a wallet. An address already in the list is not duplicated:
// the existing record becomes active and is returned instead. The first
// wallet added becomes active.
func (m *Manager) Add(ctx context.Context, userID string, nw NewWallet) (Record, error) {
	var out Record
	_, err := m.mutate(ctx, userID, func(s *Snapshot) error {
		for _, w := range s.Wallets {
			if strings.EqualFold(w.Address, nw.Address) {
				logging.AppLogger.Info("wallet already exists", zap.String("user_id", userID), zap.String("id", w.ID))
				s.activate(w.ID)
				out = w
				out.IsActive = true
				return nil
			}
		}
		name := strings.TrimSpace(nw.Name)
		if name == "" {
			name = fmt.Sprintf("ウォレット %d", len(s.Wallets)+1)
		}
		out = Record{
			ID:              m.newID(),
			Name:            name,
			Address:         nw.Address,
			ContractAddress: nw.ContractAddress,
			PrivateKey:      nw.PrivateKey,
			CreatedAt:       m.now().UnixMilli(),
			IsActive:        len(s.Wallets) == 0,
		}
		s.Wallets = append(s.Wallets, out)
		if out.IsActive {
			s.activate(out.ID)
		}
		return nil
	})
	if err != nil {
		return Record{}, err
	}
	return out, nil
}

// SwitchActive makes id the only active wallet.
func (m *Manager) SwitchActive(ctx context.Context, userID, id string) (Record, error) {
	snap, err := m.mutate(ctx, userID, func(s *Snapshot) error {
		if s.find(id) < 0 {
			return fmt.Errorf("%w: %s", ErrWalletNotFound, id)
		}
		s.activate(id)
		return nil
	})
	if err != nil {
		return Record{}, err
	}
	return snap.Wallets[snap.find(id)], nil
}

// Remove deletes a wallet. Removing the active one hands activation to the
// first remaining wallet, or to none when the list is empty.
func (m *Manager) Remove(ctx context.Context, userID, id string) (Snapshot, error) {
	return m.mutate(ctx, userID, func(s *Snapshot) error {
		idx := s.find(id)
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrWalletNotFound, id)
		}
		s.Wallets = append(s.Wallets[:idx], s.Wallets[idx+1:]...)
		if s.ActiveWalletID == id {
			next := ""
			if len(s.Wallets) > 0 {
				next = s.Wallets[0].ID
			}
			s.activate(next)
		}
		return nil
	})
}

func (m *Manager) Rename(ctx context.Context, userID, id, name string) (Record, error) {
	name = strings.TrimSpace(name)
	snap, err := m.mutate(ctx, userID, func(s *Snapshot) error {
		idx := s.find(id)
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrWalletNotFound, id)
		}
		if name != "" {
			s.Wallets[idx].Name = name
		}
		return nil
	})
	if err != nil {
		return Record{}, err
	}
	return snap.Wallets[snap.find(id)], nil
}

// Active returns the active wallet or ErrNoActiveWallet.
func (m *Manager) Active(ctx context.Context, userID string) (Record, error) {
	snap, err := m.List(ctx, userID)
	if err != nil {
		return Record{}, err
	}
	w, ok := snap.Active()
	if !ok {
		return Record{}, ErrNoActiveWallet
	}
	return w, nil
}

func (m *Manager) List(ctx context.Context, userID string) (Snapshot, error) {
	unlock := m.lock(userID)
	defer unlock()
	return m.load(ctx, userID)
}

// Clear drops every stored wallet for the user.
func (m *Manager) Clear(ctx context.Context, userID string) error {
	unlock := m.lock(userID)
	defer unlock()
	return m.store.Clear(ctx, userID)
}
