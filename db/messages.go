package db

import (
	"time"

	"gorm.io/gorm"

	"github.com/studysync/studysync/models"
)

// MessageStore persists relayed chat messages.
type MessageStore struct {
	db *gorm.DB
}

// Append stores one message.
func (s *MessageStore) Append(msg models.ChatMessage) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	return s.db.Create(&msg).Error
}

// Recent returns the most recent messages for a room in ascending time
// order, bounded by limit.
func (s *MessageStore) Recent(room string, limit int) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	err := s.db.Where("room = ?", room).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	// Query newest-first to apply the bound, then flip to ascending.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// DeleteAll removes every message for a room.
func (s *MessageStore) DeleteAll(room string) error {
	return s.db.Where("room = ?", room).Delete(&models.ChatMessage{}).Error
}
