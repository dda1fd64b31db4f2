package models

import "time"

// Post is a leaf content item written about a Character of a History.
type Post struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"size:100;not null" json:"title"`
	Content     string     `gorm:"type:text;not null" json:"content"`
	DatePosted  time.Time  `gorm:"not null;index" json:"date_posted"`
	UserID      uint       `gorm:"not null;index" json:"user_id"`
	Author      User       `gorm:"foreignKey:UserID;constraint:OnDelete:RESTRICT" json:"author"`
	HistoryID   uint       `gorm:"not null;index" json:"history_id"`
	History     *History   `gorm:"foreignKey:HistoryID;constraint:OnDelete:RESTRICT" json:"history,omitempty"`
	CharacterID uint       `gorm:"not null;index" json:"character_id"`
	Character   *Character `gorm:"foreignKey:CharacterID;constraint:OnDelete:RESTRICT" json:"character,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
