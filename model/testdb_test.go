package model

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"dialogos/platform"
)

// setupTestDB points the package-level handle at a fresh in-memory database.
// Connections are capped at one so every query sees the same sqlite instance.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get database handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&User{}, &Conversation{}, &Message{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	platform.DB = db
	t.Cleanup(func() {
		sqlDB.Close()
	})
	return db
}

func mustUser(t *testing.T, subject string) *User {
	t.Helper()
	user, err := EnsureUser(subject, subject+"@example.com", "")
	if err != nil {
		t.Fatalf("failed to create user %s: %v", subject, err)
	}
	return user
}
