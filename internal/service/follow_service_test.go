package service

import (
	"context"
	"errors"
	"testing"

	"storyline/internal/models"
	"storyline/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// followRepoStub is a stub for repository.FollowRepository.
type followRepoStub struct {
	followFn   func(context.Context, uint, uint) (bool, error)
	unfollowFn func(context.Context, uint, uint) (bool, error)
}

func (s *followRepoStub) Follow(ctx context.Context, followerID, followedID uint) (bool, error) {
	return s.followFn(ctx, followerID, followedID)
}
func (s *followRepoStub) Unfollow(ctx context.Context, followerID, followedID uint) (bool, error) {
	return s.unfollowFn(ctx, followerID, followedID)
}
func (s *followRepoStub) IsFollowing(context.Context, uint, uint) (bool, error) { return false, nil }
func (s *followRepoStub) CountFollowers(context.Context, uint) (int64, error)    { return 0, nil }
func (s *followRepoStub) CountFollowing(context.Context, uint) (int64, error)    { return 0, nil }

// userRepoStub answers GetByID only.
type userRepoStub struct {
	users map[uint]*models.User
}

func (s *userRepoStub) GetByID(_ context.Context, id uint) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, models.NewNotFoundError("User", id)
}
func (s *userRepoStub) GetByEmail(context.Context, string) (*models.User, error)    { return nil, nil }
func (s *userRepoStub) GetByUsername(context.Context, string) (*models.User, error) { return nil, nil }
func (s *userRepoStub) Create(context.Context, *models.User) error                  { return nil }
func (s *userRepoStub) UpdateProfile(context.Context, *models.User) error           { return nil }
func (s *userRepoStub) List(context.Context, int, int) ([]models.User, error)       { return nil, nil }

func TestFollowService_StubbedRepository(t *testing.T) {
	users := &userRepoStub{users: map[uint]*models.User{
		1: {ID: 1, Username: "alice"},
		2: {ID: 2, Username: "bob"},
	}}
	calls := 0
	repo := &followRepoStub{
		followFn: func(_ context.Context, followerID, followedID uint) (bool, error) {
			calls++
			assert.Equal(t, uint(2), followerID)
			assert.Equal(t, uint(1), followedID)
			return true, nil
		},
		unfollowFn: func(context.Context, uint, uint) (bool, error) {
			return false, errors.New("db down")
		},
	}
	svc := NewFollowService(repo, users, nil)
	bob := Identity{UserID: 2, Username: "bob"}

	target, err := svc.Follow(bg, bob, 1)
	require.NoError(t, err)
	assert.Equal(t, "alice", target.Username)
	assert.Equal(t, 1, calls)

	_, err = svc.Follow(bg, bob, 2)
	assert.True(t, models.HasCode(err, models.CodeConflict))
	assert.Equal(t, 1, calls, "self follow must not reach the repository")

	_, err = svc.Follow(bg, bob, 42)
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	_, err = svc.Unfollow(bg, bob, 1)
	assert.EqualError(t, err, "db down")
}

func TestFollowService_SelfFollowRefused(t *testing.T) {
	s := newServices(t)
	alice := IdentityOf(testutil.CreateUser(t, s.db, "alice"))

	_, err := s.follows.Follow(bg, alice, alice.UserID)
	require.Error(t, err)
	assert.Equal(t, "You cannot follow yourself.", err.Error())

	_, err = s.follows.Unfollow(bg, alice, alice.UserID)
	require.Error(t, err)
	assert.Equal(t, "You cannot unfollow yourself.", err.Error())

	following, err := s.follows.IsFollowing(bg, alice.UserID, alice.UserID)
	require.NoError(t, err)
	assert.False(t, following)
}

func TestFollowService_FollowUnfollowRoundTrip(t *testing.T) {
	s := newServices(t)
	alice := IdentityOf(testutil.CreateUser(t, s.db, "alice"))
	bob := IdentityOf(testutil.CreateUser(t, s.db, "bob"))

	before, err := s.users.Profile(bg, alice.UserID)
	require.NoError(t, err)

	_, err = s.follows.Follow(bg, bob, alice.UserID)
	require.NoError(t, err)
	_, err = s.follows.Follow(bg, bob, alice.UserID)
	require.NoError(t, err, "following twice is a no-op")

	during, err := s.users.Profile(bg, alice.UserID)
	require.NoError(t, err)
	assert.Equal(t, before.Followers+1, during.Followers)

	_, err = s.follows.Unfollow(bg, bob, alice.UserID)
	require.NoError(t, err)
	_, err = s.follows.Unfollow(bg, bob, alice.UserID)
	require.NoError(t, err, "unfollowing twice is a no-op")

	after, err := s.users.Profile(bg, alice.UserID)
	require.NoError(t, err)
	assert.Equal(t, before.Followers, after.Followers)

	_, err = s.follows.Follow(bg, bob, 9999)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestFollowService_FollowedPosts(t *testing.T) {
	s := newServices(t)
	aliceUser := testutil.CreateUser(t, s.db, "alice")
	bobUser := testutil.CreateUser(t, s.db, "bob")
	alice, bob := IdentityOf(aliceUser), IdentityOf(bobUser)

	history := testutil.CreateHistory(t, s.db, alice.UserID, "Space Saga")
	character := testutil.CreateCharacter(t, s.db, alice.UserID, history.ID, "Captain Zo")
	testutil.CreatePost(t, s.db, alice.UserID, character, "Liftoff")
	testutil.CreatePost(t, s.db, bob.UserID, character, "Bob's note")

	feed, err := s.follows.FollowedPosts(bg, bob, 1)
	require.NoError(t, err)
	require.Len(t, feed.Posts, 1, "without follows the feed holds only the caller's own posts")
	assert.Equal(t, "Bob's note", feed.Posts[0].Title)

	_, err = s.follows.Follow(bg, bob, alice.UserID)
	require.NoError(t, err)
	feed, err = s.follows.FollowedPosts(bg, bob, 1)
	require.NoError(t, err)
	assert.Len(t, feed.Posts, 2)
	assert.Equal(t, int64(2), feed.Total)

	_, err = s.follows.Unfollow(bg, bob, alice.UserID)
	require.NoError(t, err)
	feed, err = s.follows.FollowedPosts(bg, bob, 1)
	require.NoError(t, err)
	require.Len(t, feed.Posts, 1)

	_, err = s.follows.FollowedPosts(bg, Identity{}, 1)
	assert.True(t, models.HasCode(err, models.CodeUnauthorized))
}
