package walletlist

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"
)

const user = "user-1"

func newTestManager() *Manager {
	m := NewManager(NewMemoryStore())
	n := 0
	m.newID = func() string {
		n++
		return fmt.Sprintf("wallet_%d", n)
	}
	m.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return m
}

func addr(i int) string { return fmt.Sprintf("0x%040x", i) }

func assertSingleActive(t *testing.T, snap Snapshot) {
	t.Helper()
	active := 0
	for _, w := range snap.Wallets {
		if w.IsActive {
			active++
			if w.ID != snap.ActiveWalletID {
				t.Errorf("active flag on %s but activeWalletId is %q", w.ID, snap.ActiveWalletID)
			}
		}
	}
	if active > 1 {
		t.Errorf("expected at most one active wallet, got %d", active)
	}
	if active == 0 && snap.ActiveWalletID != "" {
		t.Errorf("activeWalletId %q with no active record", snap.ActiveWalletID)
	}
}

func TestFirstWalletBecomesActive(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	first, err := m.Add(ctx, user, NewWallet{Address: addr(1)})
	if err != nil {
		t.Fatal(err)
	}
	if !first.IsActive || first.Name != "ウォレット 1" || first.CreatedAt != 1700000000000 {
		t.Errorf("unexpected first wallet %+v", first)
	}
	second, _ := m.Add(ctx, user, NewWallet{Name: "savings", Address: addr(2)})
	if second.IsActive {
		t.Error("second wallet should not steal activation")
	}
	active, err := m.Active(ctx, user)
	if err != nil || active.ID != first.ID {
		t.Errorf("expected first wallet active, got %+v %v", active, err)
	}
}

func TestAddDuplicateSwitchesToExisting(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	a, _ := m.Add(ctx, user, NewWallet{Address: addr(1)})
	m.Add(ctx, user, NewWallet{Address: addr(2)})

	dup, err := m.Add(ctx, user, NewWallet{Address: "0x" + strings.ToUpper(addr(1)[2:])})
	if err != nil {
		t.Fatal(err)
	}
	if dup.ID != a.ID || !dup.IsActive {
		t.Errorf("expected existing wallet %s returned active, got %+v", a.ID, dup)
	}
	snap, _ := m.List(ctx, user)
	if len(snap.Wallets) != 2 {
		t.Errorf("duplicate address must not add a record, got %d", len(snap.Wallets))
	}
	if snap.ActiveWalletID != a.ID {
		t.Errorf("expected %s active, got %s", a.ID, snap.ActiveWalletID)
	}
	assertSingleActive(t, snap)
}

func TestSwitchActive(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()
	m.Add(ctx, user, NewWallet{Address: addr(1)})
	b, _ := m.Add(ctx, user, NewWallet{Address: addr(2)})

	got, err := m.SwitchActive(ctx, user, b.ID)
	if err != nil || !got.IsActive {
		t.Fatalf("switch failed: %+v %v", got, err)
	}
	snap, _ := m.List(ctx, user)
	assertSingleActive(t, snap)
	if snap.ActiveWalletID != b.ID {
		t.Errorf("expected %s active", b.ID)
	}

	if _, err := m.SwitchActive(ctx, user, "nope"); !errors.Is(err, ErrWalletNotFound) {
		t.Errorf("expected ErrWalletNotFound, got %v", err)
	}
}

func TestRemoveActiveFallsBack(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()
	a, _ := m.Add(ctx, user, NewWallet{Address: addr(1)})
	b, _ := m.Add(ctx, user, NewWallet{Address: addr(2)})
	c, _ := m.Add(ctx, user, NewWallet{Address: addr(3)})
	m.SwitchActive(ctx, user, c.ID)

	snap, err := m.Remove(ctx, user, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if snap.ActiveWalletID != a.ID {
		t.Errorf("expected fallback to first remaining %s, got %s", a.ID, snap.ActiveWalletID)
	}
	assertSingleActive(t, snap)

	// removing a non-active wallet keeps activation
	snap, _ = m.Remove(ctx, user, b.ID)
	if snap.ActiveWalletID != a.ID {
		t.Errorf("expected %s to stay active", a.ID)
	}

	snap, _ = m.Remove(ctx, user, a.ID)
	if snap.ActiveWalletID != "" || len(snap.Wallets) != 0 {
		t.Errorf("expected empty list with no active wallet, got %+v", snap)
	}
	if _, err := m.Active(ctx, user); !errors.Is(err, ErrNoActiveWallet) {
		t.Errorf("expected ErrNoActiveWallet, got %v", err)
	}
}

func TestRename(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()
	a, _ := m.Add(ctx, user, NewWallet{Address: addr(1)})

	got, err := m.Rename(ctx, user, a.ID, "  daily  ")
	if err != nil || got.Name != "daily" {
		t.Errorf("rename failed: %+v %v", got, err)
	}
	got, _ = m.Rename(ctx, user, a.ID, " ")
	if got.Name != "daily" {
		t.Errorf("blank rename should keep the name, got %q", got.Name)
	}
	if _, err := m.Rename(ctx, user, "missing", "x"); !errors.Is(err, ErrWalletNotFound) {
		t.Errorf("expected ErrWalletNotFound, got %v", err)
	}
}

func TestUsersAreIsolated(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()
	m.Add(ctx, "alice", NewWallet{Address: addr(1)})
	snap, _ := m.List(ctx, "bob")
	if len(snap.Wallets) != 0 {
		t.Error("bob should not see alice's wallets")
	}
}

func TestRandomMutationsKeepSingleActive(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 300; i++ {
		snap, _ := m.List(ctx, user)
		switch op := rng.Intn(4); {
		case op == 0 || len(snap.Wallets) == 0:
			m.Add(ctx, user, NewWallet{Address: addr(rng.Intn(8))})
		case op == 1:
			m.SwitchActive(ctx, user, snap.Wallets[rng.Intn(len(snap.Wallets))].ID)
		case op == 2:
			m.Remove(ctx, user, snap.Wallets[rng.Intn(len(snap.Wallets))].ID)
		default:
			m.Rename(ctx, user, snap.Wallets[rng.Intn(len(snap.Wallets))].ID, "r")
		}
		after, _ := m.List(ctx, user)
		assertSingleActive(t, after)
		if len(after.Wallets) > 0 && after.ActiveWalletID == "" {
			t.Fatalf("step %d: wallets present but none active", i)
		}
		seen := map[string]bool{}
		for _, w := range after.Wallets {
			key := strings.ToLower(w.Address)
			if seen[key] {
				t.Fatalf("step %d: duplicate address %s", i, w.Address)
			}
			seen[key] = true
		}
	}
}

func TestNormalizeRepairsLegacyFlags(t *testing.T) {
	store := NewMemoryStore()
	store.Save(context.Background(), user, Snapshot{
		Wallets: []Record{
			{ID: "a", Address: addr(1), IsActive: true},
			{ID: "b", Address: addr(2), IsActive: true},
		},
		ActiveWalletID: "b",
	})
	m := NewManager(store)
	snap, err := m.List(context.Background(), user)
	if err != nil {
		t.Fatal(err)
	}
	assertSingleActive(t, snap)
	if snap.ActiveWalletID != "b" {
		t.Errorf("expected activeWalletId to win, got %s", snap.ActiveWalletID)
	}
}

func TestRedacted(t *testing.T) {
	snap := Snapshot{Wallets: []Record{{ID: "a", PrivateKey: "0xsecret"}}}
	if snap.Redacted().Wallets[0].PrivateKey != "" {
		t.Error("private key should be stripped")
	}
	if snap.Wallets[0].PrivateKey != "0xsecret" {
		t.Error("original snapshot must not be modified")
	}
}
