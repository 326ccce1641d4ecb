package storage

import (
	"aiwallet/aiwallet/services/wallet"
	"aiwallet/aiwallet/services/walletlist"
	"aiwallet/aiwallet/utils/logging"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"
)

const (
	walletListKey   = "walletList"
	activeWalletKey = "activeWalletId"
	legacyWalletKey = "aiWallet"
	legacyWalletID  = "wallet_legacy"
)

// legacyWallet is the single-wallet record written before wallet lists existed.
type legacyWallet struct {
	PrivateKey      string `json:"privateKey"`
	ContractAddress string `json:"contractAddress"`
}

// SnapshotStore keeps one user's wallet list as objects under users/<id>/.
// It satisfies walletlist.Store.
type SnapshotStore struct {
	objects Objects
}

func NewSnapshotStore(objects Objects) *SnapshotStore {
	return &SnapshotStore{objects: objects}
}

func objectKey(userID, name string) string {
	return path.Join("users", userID, name)
}

func (s *SnapshotStore) get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.objects.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	return data, true, nil
}

func (s *SnapshotStore) Load(ctx context.Context, userID string) (walletlist.Snapshot, error) {
	var snap walletlist.Snapshot

	data, ok, err := s.get(ctx, objectKey(userID, walletListKey))
	if err != nil {
		return snap, err
	}
	if !ok {
		return s.loadLegacy(ctx, userID)
	}
	if err := json.Unmarshal(data, &snap.Wallets); err != nil {
		return snap, fmt.Errorf("decode wallet list: %w", err)
	}

	active, ok, err := s.get(ctx, objectKey(userID, activeWalletKey))
	if err != nil {
		return snap, err
	}
	if ok {
		snap.ActiveWalletID = strings.TrimSpace(string(active))
	}
	return snap, nil
}

// loadLegacy turns a single stored wallet into a one-entry list.
func (s *SnapshotStore) loadLegacy(ctx context.Context, userID string) (walletlist.Snapshot, error) {
	data, ok, err := s.get(ctx, objectKey(userID, legacyWalletKey))
	if err != nil || !ok {
		return walletlist.Snapshot{}, err
	}
	var lw legacyWallet
	if err := json.Unmarshal(data, &lw); err != nil {
		return walletlist.Snapshot{}, fmt.Errorf("decode legacy wallet: %w", err)
	}
	owner, err := wallet.OwnerAddress(lw.PrivateKey)
	if err != nil {
		logging.AppLogger.Warn("legacy wallet has an unusable key", zap.String("user_id", userID), zap.Error(err))
		return walletlist.Snapshot{}, nil
	}
	return walletlist.Snapshot{
		Wallets: []walletlist.Record{{
			ID:              legacyWalletID,
			Name:            "ウォレット 1",
			Address:         owner,
			ContractAddress: lw.ContractAddress,
			PrivateKey:      lw.PrivateKey,
			IsActive:        true,
		}},
		ActiveWalletID: legacyWalletID,
	}, nil
}

func (s *SnapshotStore) Save(ctx context.Context, userID string, snap walletlist.Snapshot) error {
	wallets := snap.Wallets
	if wallets == nil {
		wallets = []walletlist.Record{}
	}
	data, err := json.Marshal(wallets)
	if err != nil {
		return err
	}
	if err := s.objects.Put(ctx, objectKey(userID, walletListKey), data, "application/json"); err != nil {
		return fmt.Errorf("put wallet list: %w", err)
	}
	if snap.ActiveWalletID == "" {
		return s.objects.Delete(ctx, objectKey(userID, activeWalletKey))
	}
	return s.objects.Put(ctx, objectKey(userID, activeWalletKey), []byte(snap.ActiveWalletID), "text/plain")
}

// Clear removes the list, the active id and any legacy wallet.
func (s *SnapshotStore) Clear(ctx context.Context, userID string) error {
	var errs []error
	for _, name := range []string{walletListKey, activeWalletKey, legacyWalletKey} {
		if err := s.objects.Delete(ctx, objectKey(userID, name)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
