package models

import "time"

// Character is a named entity inside a History. Posts are written about it.
type Character struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Info      string    `gorm:"type:text;not null" json:"info"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Author    User      `gorm:"foreignKey:UserID;constraint:OnDelete:RESTRICT" json:"author"`
	HistoryID uint      `gorm:"not null;index" json:"history_id"`
	History   *History  `gorm:"foreignKey:HistoryID;constraint:OnDelete:RESTRICT" json:"history,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
