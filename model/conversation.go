package model

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"dialogos/platform"
)

// ErrConversationNotFound covers both a missing conversation and one owned by
// a different user. Callers cannot tell the two apart.
var ErrConversationNotFound = errors.New("conversation not found")

// TitleMaxChars bounds the title derived from the opening user turn.
const TitleMaxChars = 80

type Conversation struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Title     string    `gorm:"type:varchar(100)" json:"title"`
	PersonaID string    `gorm:"type:varchar(64);not null" json:"persona_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`

	Messages []Message `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func CreateConversation(userID uint, title, personaID string) (*Conversation, error) {
	db := platform.DB
	conversation := &Conversation{
		UserID:    userID,
		Title:     TruncateTitle(title),
		PersonaID: personaID,
	}
	if err := db.Create(conversation).Error; err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return conversation, nil
}

// FindOwnedConversation looks up a conversation by id, scoped to its owner.
// Returns ErrConversationNotFound when the row is absent or owned by someone
// else.
func FindOwnedConversation(conversationID, userID uint) (*Conversation, error) {
	db := platform.DB
	var conversation Conversation
	err := db.Where("id = ? AND user_id = ?", conversationID, userID).First(&conversation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("database query failed: %w", err)
	}
	return &conversation, nil
}

// StartConversation creates a conversation together with its opening
// exchange. One transaction covers the row, both messages and the timestamp,
// so a failure leaves no empty conversation behind.
func StartConversation(userID uint, title, personaID, userText, assistantText string) (*Conversation, error) {
	db := platform.DB
	now := time.Now().UTC()
	conversation := &Conversation{
		UserID:    userID,
		Title:     TruncateTitle(title),
		PersonaID: personaID,
		UpdatedAt: now,
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(conversation).Error; err != nil {
			return fmt.Errorf("failed to create conversation: %w", err)
		}
		return appendExchange(tx, conversation.ID, userText, assistantText, now)
	})
	if err != nil {
		return nil, err
	}
	return conversation, nil
}

// AppendExchange commits one user turn plus the assistant reply and bumps the
// conversation's updated_at, all inside a single transaction.
func AppendExchange(conversationID uint, userText, assistantText string) error {
	db := platform.DB
	now := time.Now().UTC()
	return db.Transaction(func(tx *gorm.DB) error {
		return appendExchange(tx, conversationID, userText, assistantText, now)
	})
}

func appendExchange(tx *gorm.DB, conversationID uint, userText, assistantText string, now time.Time) error {
	userMsg := &Message{
		ConversationID: conversationID,
		Role:           RoleUser,
		Content:        userText,
		CreatedAt:      now,
	}
	if err := tx.Create(userMsg).Error; err != nil {
		return fmt.Errorf("failed to save user message: %w", err)
	}
	assistantMsg := &Message{
		ConversationID: conversationID,
		Role:           RoleAssistant,
		Content:        assistantText,
		CreatedAt:      now,
	}
	if err := tx.Create(assistantMsg).Error; err != nil {
		return fmt.Errorf("failed to save assistant message: %w", err)
	}
	if err := tx.Model(&Conversation{}).
		Where("id = ?", conversationID).
		Update("updated_at", now).Error; err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	return nil
}

func ListRecentConversations(userID uint, limit int) ([]Conversation, error) {
	db := platform.DB
	var conversations []Conversation
	err := db.Where("user_id = ?", userID).
		Order("updated_at DESC").
		Limit(limit).
		Find(&conversations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return conversations, nil
}

// DeleteConversation removes an owned conversation and all of its messages.
// The message delete rides in the same transaction rather than relying on the
// database cascade, so the invariant holds on backends migrated without the
// foreign-key constraint.
func DeleteConversation(conversationID, userID uint) error {
	db := platform.DB
	return db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ? AND user_id = ?", conversationID, userID).
			Delete(&Conversation{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete conversation: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrConversationNotFound
		}
		if err := tx.Where("conversation_id = ?", conversationID).
			Delete(&Message{}).Error; err != nil {
			return fmt.Errorf("failed to delete messages: %w", err)
		}
		return nil
	})
}

func CountConversations() (int64, error) {
	var count int64
	if err := platform.DB.Model(&Conversation{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count conversations: %w", err)
	}
	return count, nil
}

// TruncateTitle caps a candidate title at TitleMaxChars characters, counting
// runes so multi-byte text is not cut mid-character.
func TruncateTitle(s string) string {
	runes := []rune(s)
	if len(runes) <= TitleMaxChars {
		return s
	}
	return string(runes[:TitleMaxChars])
}
