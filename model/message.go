package model

import (
	"fmt"
	"time"

	"dialogos/platform"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID uint      `gorm:"not null;index:idx_conversation_id_created_at" json:"conversation_id"`
	Role           string    `gorm:"type:varchar(16);not null" json:"role"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	CreatedAt      time.Time `gorm:"index:idx_conversation_id_created_at" json:"created_at"`
}

// ListMessages returns a conversation's messages oldest first. The insert id
// breaks ties between the two halves of an exchange, which share a timestamp.
func ListMessages(conversationID uint) ([]Message, error) {
	db := platform.DB
	var messages []Message
	err := db.Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

func CountMessages() (int64, error) {
	var count int64
	if err := platform.DB.Model(&Message{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}
