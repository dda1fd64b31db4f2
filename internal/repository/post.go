package repository

import (
	"context"
	"time"

	"storyline/internal/models"
	"storyline/internal/observability"

	"gorm.io/gorm"
)

// PostRepository defines persistence operations for posts and the feeds built from them.
type PostRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	Create(ctx context.Context, post *models.Post) error
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
	ListByCharacter(ctx context.Context, characterID uint) ([]models.Post, error)
	ListAll(ctx context.Context, limit, offset int) ([]models.Post, int64, error)
	Feed(ctx context.Context, userID uint, limit, offset int) ([]models.Post, int64, error)
}

type postRepository struct {
	db      *gorm.DB
	metrics *observability.DatabaseMetrics
}

// NewPostRepository returns a new PostRepository implementation.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db, metrics: observability.NewDatabaseMetrics()}
}

func (r *postRepository) withRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("Author").Preload("History").Preload("Character")
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.withRelations(r.db.WithContext(ctx)).First(&post, id).Error; err != nil {
		return nil, notFoundOr(err, "Post", id)
	}
	return &post, nil
}

// Create inserts the post after checking, under a shared lock, that the
// character exists and belongs to the post's story.
func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if post.DatePosted.IsZero() {
		post.DatePosted = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var parent models.Character
		err := tx.Clauses(lockForShare).
			Select("id", "history_id").
			Where("id = ? AND history_id = ?", post.CharacterID, post.HistoryID).
			First(&parent).Error
		if err != nil {
			return notFoundOr(err, "Character", post.CharacterID)
		}
		if err := tx.Omit("Author", "History", "Character").Create(post).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	err := r.db.WithContext(ctx).
		Model(&models.Post{ID: post.ID}).
		Updates(map[string]interface{}{"title": post.Title, "content": post.Content}).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Post{}, id)
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}

func (r *postRepository) ListByCharacter(ctx context.Context, characterID uint) ([]models.Post, error) {
	var posts []models.Post
	if err := r.db.WithContext(ctx).
		Preload("Author").
		Where("character_id = ?", characterID).
		Order("date_posted DESC, id DESC").
		Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// ListAll returns one page of every post, newest first, and the total count.
func (r *postRepository) ListAll(ctx context.Context, limit, offset int) ([]models.Post, int64, error) {
	defer r.metrics.TrackQuery("list_all", "posts")()
	return r.page(r.db.WithContext(ctx).Model(&models.Post{}), limit, offset)
}

// Feed returns posts written by userID or by anyone userID follows, newest first.
func (r *postRepository) Feed(ctx context.Context, userID uint, limit, offset int) ([]models.Post, int64, error) {
	defer r.metrics.TrackQuery("feed", "posts")()
	followed := r.db.Model(&models.Follow{}).Select("followed_id").Where("follower_id = ?", userID)
	query := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("user_id = ? OR user_id IN (?)", userID, followed)
	return r.page(query, limit, offset)
}

func (r *postRepository) page(query *gorm.DB, limit, offset int) ([]models.Post, int64, error) {
	limit, offset = normalizePage(limit, offset)

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var posts []models.Post
	if err := r.withRelations(query.Session(&gorm.Session{})).
		Order("date_posted DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return posts, total, nil
}
