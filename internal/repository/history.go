package repository

import (
	"context"

	"storyline/internal/models"

	"gorm.io/gorm"
)

// HistoryRepository defines persistence operations for stories.
type HistoryRepository interface {
	GetByID(ctx context.Context, id uint) (*models.History, error)
	Create(ctx context.Context, history *models.History) error
	Update(ctx context.Context, history *models.History) error
	DeleteIfChildless(ctx context.Context, id uint) error
	ListByUser(ctx context.Context, userID uint) ([]models.History, error)
}

type historyRepository struct {
	db *gorm.DB
}

// NewHistoryRepository returns a new HistoryRepository implementation.
func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) GetByID(ctx context.Context, id uint) (*models.History, error) {
	var history models.History
	if err := r.db.WithContext(ctx).Preload("Author").First(&history, id).Error; err != nil {
		return nil, notFoundOr(err, "History", id)
	}
	return &history, nil
}

func (r *historyRepository) Create(ctx context.Context, history *models.History) error {
	if err := r.db.WithContext(ctx).Omit("Author").Create(history).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *historyRepository) Update(ctx context.Context, history *models.History) error {
	err := r.db.WithContext(ctx).
		Model(&models.History{ID: history.ID}).
		Updates(map[string]interface{}{"title": history.Title, "info": history.Info}).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// DeleteIfChildless deletes the story unless a character still references it.
// The story row is locked for the duration of the check so a concurrent
// character insert, which takes a shared lock on it, cannot slip in between.
func (r *historyRepository) DeleteIfChildless(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var history models.History
		if err := tx.Clauses(lockForUpdate).First(&history, id).Error; err != nil {
			return notFoundOr(err, "History", id)
		}

		var children int64
		if err := tx.Model(&models.Character{}).Where("history_id = ?", id).Count(&children).Error; err != nil {
			return models.NewInternalError(err)
		}
		if children > 0 {
			return ErrHasChildren
		}

		if err := tx.Delete(&models.History{}, id).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
}

func (r *historyRepository) ListByUser(ctx context.Context, userID uint) ([]models.History, error) {
	var histories []models.History
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&histories).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return histories, nil
}
