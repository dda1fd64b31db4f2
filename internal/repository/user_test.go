package repository

import (
	"context"
	"testing"

	"storyline/internal/cache"
	"storyline/internal/models"
	"storyline/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_CreateAndLookup(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := &models.User{Username: "alice", Email: "alice@example.com", Password: "hash"}
	require.NoError(t, repo.Create(ctx, user))
	assert.NotZero(t, user.ID)
	assert.Equal(t, models.DefaultImageFile, user.ImageFile)
	assert.Equal(t, models.DefaultAbout, user.About)

	byEmail, err := repo.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, "hash", byEmail.Password)

	missing, err := repo.GetByEmail(ctx, "nobody@example.com")
	assert.NoError(t, err)
	assert.Nil(t, missing)

	byName, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byName.ID)

	_, err = repo.GetByID(ctx, 9999)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestUserRepository_DuplicateMapsToFieldError(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.User{Username: "alice", Email: "alice@example.com", Password: "x"}))

	err := repo.Create(ctx, &models.User{Username: "alice", Email: "other@example.com", Password: "x"})
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeValidation, appErr.Code)
	assert.Equal(t, "username", appErr.Field)

	err = repo.Create(ctx, &models.User{Username: "alice2", Email: "alice@example.com", Password: "x"})
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "email", appErr.Field)
}

func TestUserRepository_UpdateProfileKeepsPassword(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice")
	testutil.CreateUser(t, db, "bob")

	alice.Username = "alicia"
	alice.About = "Writes space operas"
	alice.ImageFile = "0123456789abcdef.png"
	alice.Password = ""
	require.NoError(t, repo.UpdateProfile(ctx, alice))

	var stored models.User
	require.NoError(t, db.First(&stored, alice.ID).Error)
	assert.Equal(t, "alicia", stored.Username)
	assert.Equal(t, "Writes space operas", stored.About)
	assert.Equal(t, "0123456789abcdef.png", stored.ImageFile)
	assert.NotEmpty(t, stored.Password)

	alice.Username = "bob"
	err := repo.UpdateProfile(ctx, alice)
	assert.True(t, models.HasCode(err, models.CodeValidation))
}

func TestUserRepository_GetByIDUsesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { cache.SetClient(nil) })

	db := testutil.NewTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")

	got, err := repo.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.True(t, mr.Exists(cache.UserKey(alice.ID)))

	payload, err := mr.Get(cache.UserKey(alice.ID))
	require.NoError(t, err)
	assert.NotContains(t, payload, alice.Password)

	alice.Username = "alicia"
	require.NoError(t, repo.UpdateProfile(ctx, alice))
	assert.False(t, mr.Exists(cache.UserKey(alice.ID)))

	got, err = repo.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alicia", got.Username)
}

func TestUserRepository_List(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository(db)

	for _, name := range []string{"u1", "u2", "u3"} {
		testutil.CreateUser(t, db, name)
	}

	users, err := repo.List(context.Background(), 2, 1)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "u2", users[0].Username)
	assert.Equal(t, "u3", users[1].Username)
}
