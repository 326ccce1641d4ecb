package dao

import (
	"aiwallet/aiwallet/sources/psql/models"
	"context"
	"time"

	"gorm.io/gorm"
)

type ChatMessageDAO struct {
	DB       *gorm.DB
	sessions *ChatSessionDAO
}

func NewChatMessageDAO(db *gorm.DB) *ChatMessageDAO {
	return &ChatMessageDAO{DB: db, sessions: NewChatSessionDAO(db)}
}

// SaveMessages stores a batch of turns and touches the session index in one
// transaction.
func (dao *ChatMessageDAO) SaveMessages(ctx context.Context, sessionID string, userID int, msgs []models.ChatMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	return dao.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		title := ""
		var prev time.Time
		for i := range msgs {
			msgs[i].SessionID = sessionID
			msgs[i].UserID = userID
			if title == "" && msgs[i].Role == "user" {
				title = msgs[i].Content
			}
			// history is ordered by timestamp, so a batch must be strictly increasing
			if msgs[i].Timestamp.IsZero() {
				msgs[i].Timestamp = time.Now()
			}
			if !msgs[i].Timestamp.After(prev) {
				msgs[i].Timestamp = prev.Add(time.Microsecond)
			}
			prev = msgs[i].Timestamp
		}
		if err := dao.sessions.touch(tx, sessionID, userID, title); err != nil {
			return err
		}
		return tx.Create(&msgs).Error
	})
}

func (dao *ChatMessageDAO) GetChatHistoryBySession(ctx context.Context, sessionID string, userID int) ([]models.ChatMessage, error) {
	var history []models.ChatMessage
	err := dao.DB.WithContext(ctx).
		Where("session_id = ? AND user_id = ?", sessionID, userID).
		Order("timestamp ASC").
		Find(&history).Error
	if err != nil {
		return nil, err
	}
	return history, nil
}

// DeleteSession removes the session and all of its messages.
func (dao *ChatMessageDAO) DeleteSession(ctx context.Context, sessionID string, userID int) error {
	return dao.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ? AND user_id = ?", sessionID, userID).Delete(&models.ChatMessage{}).Error; err != nil {
			return err
		}
		return tx.Where("session_id = ? AND user_id = ?", sessionID, userID).Delete(&models.ChatSession{}).Error
	})
}
