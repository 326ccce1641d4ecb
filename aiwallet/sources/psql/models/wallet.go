package models

// WalletRecord is one entry of a user's wallet list, keyed by user and wallet
// id. Position keeps the list order stable across saves.
type WalletRecord struct {
	UserID          string `json:"user_id" gorm:"type:varchar(255);primaryKey"`
	ID              string `json:"id" gorm:"type:varchar(64);primaryKey"`
	Position        int    `json:"position" gorm:"not null"`
	Name            string `json:"name" gorm:"type:varchar(255)"`
	Address         string `json:"address" gorm:"type:varchar(42);not null"`
	ContractAddress string `json:"contract_address" gorm:"type:varchar(42)"`
	PrivateKey      string `json:"-" gorm:"type:text"`
	CreatedAt       int64  `json:"created_at"`
	IsActive        bool   `json:"is_active" gorm:"not null;default:false"`
}

func (WalletRecord) TableName() string {
	return "wallet_records"
}
