// Package testutil provides shared fixtures for tests.
package testutil

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"storyline/internal/config"
	"storyline/internal/database"
	"storyline/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var dbSeq atomic.Int64

// SQLiteConfig returns a test config backed by a fresh in-memory SQLite database.
func SQLiteConfig() *config.Config {
	return &config.Config{
		Port:                  "8375",
		Env:                   "test",
		DBDriver:              database.DriverSQLite,
		DBSQLitePath:          fmt.Sprintf("file:storyline_test_%d?mode=memory", dbSeq.Add(1)),
		SessionSecret:         "test-session-secret-for-storyline-tests",
		SessionTTLHours:       24,
		RememberTTLDays:       30,
		AvatarMaxUploadSizeMB: 1,
	}
}

// NewTestDB opens an isolated in-memory SQLite database with the full schema applied.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()
	cfg := SQLiteConfig()
	db, err := database.Connect(cfg)
	if err != nil {
		t.Fatalf("connect test db: %v", err)
	}
	if err := database.ApplySchema(context.Background(), db, cfg); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// TestPassword satisfies the password policy.
const TestPassword = "Corr3ct!Horse#Battery"

// CreateUser inserts a user whose password is TestPassword.
func CreateUser(t testing.TB, db *gorm.DB, username string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := &models.User{
		Username:  username,
		Email:     username + "@example.com",
		Password:  string(hash),
		ImageFile: models.DefaultImageFile,
		About:     models.DefaultAbout,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}

// CreateHistory inserts a story authored by userID.
func CreateHistory(t testing.TB, db *gorm.DB, userID uint, title string) *models.History {
	t.Helper()
	h := &models.History{Title: title, Info: title + " info", UserID: userID}
	if err := db.Omit("Author").Create(h).Error; err != nil {
		t.Fatalf("create history: %v", err)
	}
	return h
}

// CreateCharacter inserts a character of historyID authored by userID.
func CreateCharacter(t testing.TB, db *gorm.DB, userID, historyID uint, name string) *models.Character {
	t.Helper()
	c := &models.Character{Name: name, Info: name + " info", UserID: userID, HistoryID: historyID}
	if err := db.Omit("Author", "History").Create(c).Error; err != nil {
		t.Fatalf("create character: %v", err)
	}
	return c
}

// CreatePost inserts a post about characterID authored by userID.
func CreatePost(t testing.TB, db *gorm.DB, userID uint, character *models.Character, title string) *models.Post {
	t.Helper()
	p := &models.Post{
		Title:       title,
		Content:     title + " content",
		UserID:      userID,
		HistoryID:   character.HistoryID,
		CharacterID: character.ID,
		DatePosted:  time.Now().UTC(),
	}
	if err := db.Omit("Author", "History", "Character").Create(p).Error; err != nil {
		t.Fatalf("create post: %v", err)
	}
	return p
}
