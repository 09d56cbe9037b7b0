package model

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dialogos/platform"
)

// User is the local record behind an identity-provider subject. Email and
// display name are claims copied from the credential on first sight; they are
// not unique, only the subject is.
type User struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Subject     string    `gorm:"type:varchar(128);not null;uniqueIndex" json:"subject"`
	Email       string    `gorm:"type:varchar(255)" json:"email"`
	DisplayName string    `gorm:"type:varchar(128)" json:"display_name"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`

	Conversations []Conversation `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func GetUserBySubject(subject string) (*User, error) {
	var user User
	db := platform.DB
	if err := db.Where("subject = ?", subject).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("database query failed: %w", err)
	}
	return &user, nil
}

// EnsureUser finds or creates the record for a subject. The insert ignores
// conflicts on the subject unique index and re-reads, so two requests racing
// on a first-seen subject both end up with the same row.
func EnsureUser(subject, email, displayName string) (*User, error) {
	db := platform.DB

	user, err := GetUserBySubject(subject)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}

	fresh := &User{Subject: subject, Email: email, DisplayName: displayName}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "subject"}},
		DoNothing: true,
	}).Create(fresh).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	user, err = GetUserBySubject(subject)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user %s missing after upsert", subject)
	}
	return user, nil
}

func CountUsers() (int64, error) {
	var count int64
	if err := platform.DB.Model(&User{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}
