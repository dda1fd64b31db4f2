package database

import "storyline/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models,
// parents before children.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.History{},
		&models.Character{},
		&models.Post{},
		&models.Follow{},
	}
}
