package dao

import (
	"aiwallet/aiwallet/sources/psql/models"
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"
)

const maxTitleRunes = 60

type ChatSessionDAO struct {
	DB *gorm.DB
}

func NewChatSessionDAO(db *gorm.DB) *ChatSessionDAO {
	return &ChatSessionDAO{DB: db}
}

// touch creates the session on its first message and bumps updated_at after.
func (dao *ChatSessionDAO) touch(tx *gorm.DB, sessionID string, userID int, title string) error {
	var ss models.ChatSession
	err := tx.Where("session_id = ? AND user_id = ?", sessionID, userID).First(&ss).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return tx.Create(&models.ChatSession{
			SessionID: sessionID,
			UserID:    userID,
			Title:     truncate(title, maxTitleRunes),
		}).Error
	}
	if err != nil {
		return err
	}
	updates := map[string]interface{}{"updated_at": time.Now()}
	if ss.Title == "" && title != "" {
		updates["title"] = truncate(title, maxTitleRunes)
	}
	return tx.Model(&ss).Updates(updates).Error
}

func (dao *ChatSessionDAO) GetSession(ctx context.Context, sessionID string, userID int) (*models.ChatSession, error) {
	var ss models.ChatSession
	err := dao.DB.WithContext(ctx).
		Where("session_id = ? AND user_id = ?", sessionID, userID).
		First(&ss).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ss, nil
}

// Owner reports which user a session belongs to; ok is false when it does not exist.
func (dao *ChatSessionDAO) Owner(ctx context.Context, sessionID string) (userID int, ok bool, err error) {
	var ss models.ChatSession
	err = dao.DB.WithContext(ctx).Select("user_id").Where("session_id = ?", sessionID).First(&ss).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return ss.UserID, true, nil
}

// ListSessions returns up to limit sessions for a user, most recently updated first.
func (dao *ChatSessionDAO) ListSessions(ctx context.Context, userID int, limit int) ([]models.ChatSession, error) {
	var sessions []models.ChatSession
	q := dao.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
