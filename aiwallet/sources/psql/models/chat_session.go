package models

import "time"

// ChatSession indexes a user's conversations. Title is the first user message.
type ChatSession struct {
	SessionID string    `json:"session_id" gorm:"type:varchar(255);primaryKey"`
	UserID    int       `json:"user_id" gorm:"not null;index"`
	User      User      `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
	Title     string    `json:"title" gorm:"type:varchar(255);default:''"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (ChatSession) TableName() string {
	return "chat_sessions"
}
