package walletlist

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestEncryptRoundTrip(t *testing.T) {
	enc, err := Encrypt("0xdeadbeef", "passphrase")
	if err != nil {
		t.Fatal(err)
	}
	if !IsEncrypted(enc) || strings.Contains(enc, "deadbeef") {
		t.Fatalf("value not sealed: %s", enc)
	}
	other, _ := Encrypt("0xdeadbeef", "passphrase")
	if other == enc {
		t.Error("salt and nonce should differ per value")
	}
	plain, err := Decrypt(enc, "passphrase")
	if err != nil || plain != "0xdeadbeef" {
		t.Errorf("decrypt: %q %v", plain, err)
	}
	if _, err := Decrypt(enc, "wrong"); !errors.Is(err, ErrDecrypt) {
		t.Errorf("expected ErrDecrypt with wrong passphrase, got %v", err)
	}
	if _, err := Decrypt(encPrefix+"!!", "passphrase"); !errors.Is(err, ErrDecrypt) {
		t.Errorf("expected ErrDecrypt for garbage, got %v", err)
	}
}

func TestDecryptPassesPlaintextThrough(t *testing.T) {
	plain, err := Decrypt("0xabc", "k")
	if err != nil || plain != "0xabc" {
		t.Errorf("expected plaintext passthrough, got %q %v", plain, err)
	}
}

func TestEncryptingStore(t *testing.T) {
	inner := NewMemoryStore()
	store := NewEncryptingStore(inner, "k")
	ctx := context.Background()

	snap := Snapshot{Wallets: []Record{{ID: "a", PrivateKey: "0xkey", IsActive: true}}, ActiveWalletID: "a"}
	if err := store.Save(ctx, user, snap); err != nil {
		t.Fatal(err)
	}
	if snap.Wallets[0].PrivateKey != "0xkey" {
		t.Error("caller snapshot must not be modified")
	}

	raw, _ := inner.Load(ctx, user)
	if !IsEncrypted(raw.Wallets[0].PrivateKey) {
		t.Errorf("inner store holds plaintext: %s", raw.Wallets[0].PrivateKey)
	}

	got, err := store.Load(ctx, user)
	if err != nil {
		t.Fatal(err)
	}
	if got.Wallets[0].PrivateKey != "0xkey" {
		t.Errorf("expected decrypted key, got %s", got.Wallets[0].PrivateKey)
	}
}

func TestManagerOverEncryptingStore(t *testing.T) {
	m := NewManager(NewEncryptingStore(NewMemoryStore(), "k"))
	ctx := context.Background()
	if _, err := m.Add(ctx, user, NewWallet{Address: addr(1), PrivateKey: "0xkey"}); err != nil {
		t.Fatal(err)
	}
	active, err := m.Active(ctx, user)
	if err != nil || active.PrivateKey != "0xkey" {
		t.Errorf("expected usable key through the manager, got %+v %v", active, err)
	}
}
