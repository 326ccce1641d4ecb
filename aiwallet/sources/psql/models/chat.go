package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChatMessage is one persisted turn of a wallet conversation. UI holds the
// option menu as JSON.
type ChatMessage struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	SessionID string    `json:"session_id" gorm:"type:varchar(255);not null;index"`
	UserID    int       `json:"user_id" gorm:"not null;index"`
	User      User      `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
	Role      string    `json:"role" gorm:"type:varchar(50);not null"`
	Kind      string    `json:"kind" gorm:"type:varchar(50);not null;default:'text'"`
	Content   string    `json:"content" gorm:"type:text;not null"`
	UI        string    `json:"ui,omitempty" gorm:"type:text"`
	Timestamp time.Time `json:"timestamp" gorm:"not null"`
}

func (m *ChatMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}
	return nil
}
