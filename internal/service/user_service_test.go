package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"storyline/internal/models"
	"storyline/internal/repository"
	"storyline/internal/testutil"
	"storyline/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// profileRepoStub serves one user and fails every profile update.
type profileRepoStub struct {
	repository.UserRepository
	user     *models.User
	onUpdate func(*models.User)
}

func (s *profileRepoStub) GetByID(context.Context, uint) (*models.User, error) {
	u := *s.user
	return &u, nil
}

func (s *profileRepoStub) GetByUsername(context.Context, string) (*models.User, error) {
	return nil, nil
}

func (s *profileRepoStub) UpdateProfile(_ context.Context, u *models.User) error {
	if s.onUpdate != nil {
		s.onUpdate(u)
	}
	return models.NewInternalError(errors.New("connection reset"))
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestUserService_ListUsersPages(t *testing.T) {
	s := newServices(t)
	for i := 0; i < UsersPerPage+2; i++ {
		testutil.CreateUser(t, s.db, fmt.Sprintf("writer%02d", i))
	}

	first, err := s.users.ListUsers(bg, 1)
	require.NoError(t, err)
	assert.Len(t, first.Users, UsersPerPage)
	assert.Equal(t, "writer00", first.Users[0].Username)
	assert.False(t, first.HasPrev())
	assert.True(t, first.HasNext())

	second, err := s.users.ListUsers(bg, 2)
	require.NoError(t, err)
	require.Len(t, second.Users, 2)
	assert.Equal(t, "writer21", second.Users[1].Username)
	assert.True(t, second.HasPrev())
	assert.False(t, second.HasNext())

	capped, err := s.users.ListUsers(bg, MaxPage+10)
	require.NoError(t, err)
	assert.Equal(t, MaxPage, capped.Page)
	assert.Empty(t, capped.Users)
}

func TestUserService_UpdateAccountDropsUnsavedAvatar(t *testing.T) {
	avatars := NewAvatarService(t.TempDir(), 1)
	repo := &profileRepoStub{user: &models.User{ID: 1, Username: "alice", ImageFile: models.DefaultImageFile}}
	svc := NewUserService(repo, nil, nil, avatars)

	_, err := svc.UpdateAccount(bg, Identity{UserID: 1, Username: "alice"}, UpdateAccountInput{
		Form:    validation.AccountForm{Username: "alice", About: "x"},
		Picture: &AvatarUpload{Filename: "a.png", Content: testutil.TinyPNG(t, 64, 64)},
	})
	require.Error(t, err)
	assert.Equal(t, 500, models.HTTPStatus(err))

	entries, err := os.ReadDir(avatars.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUserService_UpdateAccountLogsFailedCleanup(t *testing.T) {
	logs := captureLogs(t)
	avatars := NewAvatarService(t.TempDir(), 1)
	repo := &profileRepoStub{user: &models.User{ID: 1, Username: "alice", ImageFile: models.DefaultImageFile}}
	// Swap the stored picture for a non-empty directory so removing it fails.
	repo.onUpdate = func(u *models.User) {
		path := filepath.Join(avatars.Dir(), u.ImageFile)
		require.NoError(t, os.Remove(path))
		require.NoError(t, os.MkdirAll(filepath.Join(path, "keep"), 0o750))
	}
	svc := NewUserService(repo, nil, nil, avatars)

	_, err := svc.UpdateAccount(bg, Identity{UserID: 1, Username: "alice"}, UpdateAccountInput{
		Form:    validation.AccountForm{Username: "alice", About: "x"},
		Picture: &AvatarUpload{Filename: "a.png", Content: testutil.TinyPNG(t, 64, 64)},
	})
	require.Error(t, err)
	assert.Contains(t, logs.String(), "failed to remove unsaved avatar")
}
