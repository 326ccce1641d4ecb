package dao

import (
	"aiwallet/aiwallet/services/walletlist"
	"aiwallet/aiwallet/sources/psql"
	"aiwallet/aiwallet/sources/psql/models"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := psql.Open(context.Background(), sqlite.Open(":memory:"))
	if err != nil {
		t.Fatal(err)
	}
	sqlDB, _ := db.DB.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(db.Close)
	return db.DB
}

func TestGetOrCreateUser(t *testing.T) {
	users := NewUserDAO(newTestDB(t))
	ctx := context.Background()

	u, err := users.GetOrCreateUser(ctx, "alice", "alice@example.com")
	if err != nil || u == nil || u.ID == 0 {
		t.Fatalf("create failed: %+v %v", u, err)
	}
	again, err := users.GetOrCreateUser(ctx, "alice", "other@example.com")
	if err != nil || again.ID != u.ID || again.Email != "alice@example.com" {
		t.Errorf("expected existing user, got %+v %v", again, err)
	}
	missing, err := users.GetUserByID(ctx, 999)
	if err != nil || missing != nil {
		t.Errorf("expected nil for unknown user, got %+v %v", missing, err)
	}
	byName, err := users.GetUserByUsername(ctx, "alice")
	if err != nil || byName == nil || byName.ID != u.ID {
		t.Errorf("lookup by name failed: %+v %v", byName, err)
	}
}

func TestChatMessages(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u, _ := NewUserDAO(db).GetOrCreateUser(ctx, "bob", "bob@example.com")
	chats := NewChatMessageDAO(db)
	sessions := NewChatSessionDAO(db)

	sid := uuid.NewString()
	now := time.Now()
	err := chats.SaveMessages(ctx, sid, u.ID, []models.ChatMessage{
		{Role: "user", Content: "残高を確認して", Timestamp: now},
		{Role: "assistant", Content: "残高は 0.5 ETH です", UI: `{"type":"select","options":["残高を確認"]}`, Timestamp: now},
	})
	if err != nil {
		t.Fatal(err)
	}
	chats.SaveMessages(ctx, sid, u.ID, []models.ChatMessage{{Role: "user", Content: "ありがとう"}})

	history, err := chats.GetChatHistoryBySession(ctx, sid, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 3 || history[0].Role != "user" || history[1].Role != "assistant" || history[2].Content != "ありがとう" {
		t.Fatalf("unexpected history %+v", history)
	}
	if history[0].Kind != "text" {
		t.Errorf("expected default kind text, got %q", history[0].Kind)
	}

	list, _ := sessions.ListSessions(ctx, u.ID, 10)
	if len(list) != 1 || list[0].Title != "残高を確認して" {
		t.Errorf("unexpected sessions %+v", list)
	}

	if owner, ok, err := sessions.Owner(ctx, sid); err != nil || !ok || owner != u.ID {
		t.Errorf("expected owner %d, got %d %v %v", u.ID, owner, ok, err)
	}
	if _, ok, _ := sessions.Owner(ctx, "missing"); ok {
		t.Error("unknown session should have no owner")
	}

	other, _ := chats.GetChatHistoryBySession(ctx, sid, u.ID+1)
	if len(other) != 0 {
		t.Error("history must be scoped to the user")
	}

	if err := chats.DeleteSession(ctx, sid, u.ID); err != nil {
		t.Fatal(err)
	}
	history, _ = chats.GetChatHistoryBySession(ctx, sid, u.ID)
	ss, _ := sessions.GetSession(ctx, sid, u.ID)
	if len(history) != 0 || ss != nil {
		t.Errorf("session not deleted: %d messages, %+v", len(history), ss)
	}
}

func TestWalletDAOBacksManager(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	wallets := NewWalletDAO(db)
	m := walletlist.NewManager(wallets)

	a, err := m.Add(ctx, "1", walletlist.NewWallet{Address: "0x00000000000000000000000000000000000000a1", PrivateKey: "0xk1"})
	if err != nil {
		t.Fatal(err)
	}
	b, _ := m.Add(ctx, "1", walletlist.NewWallet{Name: "second", Address: "0x00000000000000000000000000000000000000a2"})
	m.Add(ctx, "2", walletlist.NewWallet{Address: "0x00000000000000000000000000000000000000a1"})
	if _, err := m.SwitchActive(ctx, "1", b.ID); err != nil {
		t.Fatal(err)
	}

	snap, err := wallets.Load(ctx, "1")
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Wallets) != 2 || snap.Wallets[0].ID != a.ID || snap.Wallets[1].Name != "second" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if snap.ActiveWalletID != b.ID || snap.Wallets[0].IsActive {
		t.Errorf("expected only %s active, got %+v", b.ID, snap)
	}
	if snap.Wallets[0].PrivateKey != "0xk1" {
		t.Errorf("private key not persisted")
	}

	if err := wallets.Clear(ctx, "1"); err != nil {
		t.Fatal(err)
	}
	snap, _ = wallets.Load(ctx, "1")
	other, _ := wallets.Load(ctx, "2")
	if len(snap.Wallets) != 0 || len(other.Wallets) != 1 {
		t.Errorf("clear must only affect one user: %d / %d", len(snap.Wallets), len(other.Wallets))
	}
}
