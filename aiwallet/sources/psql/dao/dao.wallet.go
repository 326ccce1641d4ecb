package dao

import (
	"aiwallet/aiwallet/services/walletlist"
	"aiwallet/aiwallet/sources/psql/models"
	"context"

	"gorm.io/gorm"
)

// WalletDAO persists wallet list snapshots. It satisfies walletlist.Store.
type WalletDAO struct {
	DB *gorm.DB
}

func NewWalletDAO(db *gorm.DB) *WalletDAO {
	return &WalletDAO{DB: db}
}

func (dao *WalletDAO) Load(ctx context.Context, userID string) (walletlist.Snapshot, error) {
	var rows []models.WalletRecord
	err := dao.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("position ASC").
		Find(&rows).Error
	if err != nil {
		return walletlist.Snapshot{}, err
	}
	var snap walletlist.Snapshot
	for _, r := range rows {
		snap.Wallets = append(snap.Wallets, walletlist.Record{
			ID:              r.ID,
			Name:            r.Name,
			Address:         r.Address,
			ContractAddress: r.ContractAddress,
			PrivateKey:      r.PrivateKey,
			CreatedAt:       r.CreatedAt,
			IsActive:        r.IsActive,
		})
		if r.IsActive {
			snap.ActiveWalletID = r.ID
		}
	}
	return snap, nil
}

// Save replaces the user's rows with snap atomically.
func (dao *WalletDAO) Save(ctx context.Context, userID string, snap walletlist.Snapshot) error {
	return dao.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.WalletRecord{}).Error; err != nil {
			return err
		}
		if len(snap.Wallets) == 0 {
			return nil
		}
		rows := make([]models.WalletRecord, len(snap.Wallets))
		for i, w := range snap.Wallets {
			rows[i] = models.WalletRecord{
				ID:              w.ID,
				UserID:          userID,
				Position:        i,
				Name:            w.Name,
				Address:         w.Address,
				ContractAddress: w.ContractAddress,
				PrivateKey:      w.PrivateKey,
				CreatedAt:       w.CreatedAt,
				IsActive:        w.IsActive && w.ID == snap.ActiveWalletID,
			}
		}
		return tx.Create(&rows).Error
	})
}

func (dao *WalletDAO) Clear(ctx context.Context, userID string) error {
	return dao.DB.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.WalletRecord{}).Error
}
