// Package models contains data structures for the application's domain models.
package models

import "time"

const (
	// DefaultImageFile is the avatar every new user starts with.
	DefaultImageFile = "default.jpg"
	// DefaultAbout is the bio every new user starts with.
	DefaultAbout = "There is no info yet!"
)

// User represents a registered author.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"size:20;uniqueIndex;not null" json:"username"`
	Email     string    `gorm:"size:120;uniqueIndex;not null" json:"email"`
	ImageFile string    `gorm:"size:64;not null;default:'default.jpg'" json:"image_file"`
	Password  string    `gorm:"size:60;not null" json:"-"`
	About     string    `gorm:"size:512;not null;default:'There is no info yet!'" json:"about"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AvatarPath returns the public URL path of the user's profile picture.
func (u *User) AvatarPath() string {
	name := u.ImageFile
	if name == "" {
		name = DefaultImageFile
	}
	return "/static/profile_pics/" + name
}
