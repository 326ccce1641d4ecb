package walletlist

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	encPrefix     = "enc:v1:"
	kdfIterations = 100000
	saltSize      = 16
	nonceSize     = 12
)

var ErrDecrypt = errors.New("cannot decrypt stored private key")

// Encrypt seals plaintext with AES-256-GCM under a PBKDF2-SHA256 key derived
// from passphrase. Salt and nonce are random per value.
func Encrypt(plaintext, passphrase string) (string, error) {
	buf := make([]byte, saltSize+nonceSize)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	salt, nonce := buf[:saltSize], buf[saltSize:]
	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return "", err
	}
	sealed := gcm.Seal(buf, nonce, []byte(plaintext), nil)
	return encPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Values without the prefix are returned unchanged
// so plaintext snapshots keep loading.
func Decrypt(value, passphrase string) (string, error) {
	if !strings.HasPrefix(value, encPrefix) {
		return value, nil
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, encPrefix))
	if err != nil || len(raw) < saltSize+nonceSize {
		return "", fmt.Errorf("%w: malformed value", ErrDecrypt)
	}
	salt, nonce, sealed := raw[:saltSize], raw[saltSize:saltSize+nonceSize], raw[saltSize+nonceSize:]
	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return "", err
	}
	plain, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return string(plain), nil
}

func IsEncrypted(value string) bool { return strings.HasPrefix(value, encPrefix) }

func newGCM(passphrase string, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(passphrase), salt, kdfIterations, 32, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// EncryptingStore encrypts private keys on the way into the wrapped store and
// decrypts them on the way out.
type EncryptingStore struct {
	inner      Store
	passphrase string
}

func NewEncryptingStore(inner Store, passphrase string) *EncryptingStore {
	return &EncryptingStore{inner: inner, passphrase: passphrase}
}

func (s *EncryptingStore) Load(ctx context.Context, userID string) (Snapshot, error) {
	snap, err := s.inner.Load(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}
	out := clone(snap)
	for i := range out.Wallets {
		if out.Wallets[i].PrivateKey, err = Decrypt(out.Wallets[i].PrivateKey, s.passphrase); err != nil {
			return Snapshot{}, fmt.Errorf("wallet %s: %w", out.Wallets[i].ID, err)
		}
	}
	return out, nil
}

func (s *EncryptingStore) Save(ctx context.Context, userID string, snap Snapshot) error {
	out := clone(snap)
	for i := range out.Wallets {
		pk := out.Wallets[i].PrivateKey
		if pk == "" || IsEncrypted(pk) {
			continue
		}
		enc, err := Encrypt(pk, s.passphrase)
		if err != nil {
			return err
		}
		out.Wallets[i].PrivateKey = enc
	}
	return s.inner.Save(ctx, userID, out)
}

func (s *EncryptingStore) Clear(ctx context.Context, userID string) error {
	return s.inner.Clear(ctx, userID)
}
