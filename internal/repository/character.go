package repository

import (
	"context"

	"storyline/internal/models"

	"gorm.io/gorm"
)

// CharacterRepository defines persistence operations for characters.
type CharacterRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Character, error)
	Create(ctx context.Context, character *models.Character) error
	Update(ctx context.Context, character *models.Character) error
	DeleteIfChildless(ctx context.Context, id uint) error
	ListByHistory(ctx context.Context, historyID uint) ([]models.Character, error)
}

type characterRepository struct {
	db *gorm.DB
}

// NewCharacterRepository returns a new CharacterRepository implementation.
func NewCharacterRepository(db *gorm.DB) CharacterRepository {
	return &characterRepository{db: db}
}

func (r *characterRepository) GetByID(ctx context.Context, id uint) (*models.Character, error) {
	var character models.Character
	if err := r.db.WithContext(ctx).Preload("Author").Preload("History").First(&character, id).Error; err != nil {
		return nil, notFoundOr(err, "Character", id)
	}
	return &character, nil
}

// Create inserts the character while holding a shared lock on its story, so
// the story cannot be deleted between the existence check and the insert.
func (r *characterRepository) Create(ctx context.Context, character *models.Character) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var parent models.History
		if err := tx.Clauses(lockForShare).Select("id").First(&parent, character.HistoryID).Error; err != nil {
			return notFoundOr(err, "History", character.HistoryID)
		}
		if err := tx.Omit("Author", "History").Create(character).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
}

func (r *characterRepository) Update(ctx context.Context, character *models.Character) error {
	err := r.db.WithContext(ctx).
		Model(&models.Character{ID: character.ID}).
		Updates(map[string]interface{}{"name": character.Name, "info": character.Info}).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// DeleteIfChildless deletes the character unless a post is still written about it.
func (r *characterRepository) DeleteIfChildless(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var character models.Character
		if err := tx.Clauses(lockForUpdate).First(&character, id).Error; err != nil {
			return notFoundOr(err, "Character", id)
		}

		var children int64
		if err := tx.Model(&models.Post{}).Where("character_id = ?", id).Count(&children).Error; err != nil {
			return models.NewInternalError(err)
		}
		if children > 0 {
			return ErrHasChildren
		}

		if err := tx.Delete(&models.Character{}, id).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
}

func (r *characterRepository) ListByHistory(ctx context.Context, historyID uint) ([]models.Character, error) {
	var characters []models.Character
	if err := r.db.WithContext(ctx).
		Preload("Author").
		Where("history_id = ?", historyID).
		Order("id ASC").
		Find(&characters).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return characters, nil
}
