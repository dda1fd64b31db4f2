package service

import (
	"context"
	"testing"

	"storyline/internal/repository"
	"storyline/internal/testutil"

	"gorm.io/gorm"
)

type services struct {
	db         *gorm.DB
	auth       *AuthService
	users      *UserService
	avatars    *AvatarService
	histories  *HistoryService
	characters *CharacterService
	posts      *PostService
	follows    *FollowService
}

func newServices(t *testing.T) *services {
	t.Helper()
	db := testutil.NewTestDB(t)
	userRepo := repository.NewUserRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	characterRepo := repository.NewCharacterRepository(db)
	postRepo := repository.NewPostRepository(db)
	followRepo := repository.NewFollowRepository(db)
	avatars := NewAvatarService(t.TempDir(), 1)

	return &services{
		db:         db,
		auth:       NewAuthService(userRepo).WithHashCost(4),
		users:      NewUserService(userRepo, historyRepo, followRepo, avatars),
		avatars:    avatars,
		histories:  NewHistoryService(historyRepo, characterRepo),
		characters: NewCharacterService(characterRepo, postRepo),
		posts:      NewPostService(postRepo),
		follows:    NewFollowService(followRepo, userRepo, postRepo),
	}
}

var bg = context.Background()
