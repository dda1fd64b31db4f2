package service

import (
	"context"
	"errors"
	"math"
	"testing"

	"storyline/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockPostRepository is a mock of the PostRepository interface
type MockPostRepository struct {
	mock.Mock
}

func (m *MockPostRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

func (m *MockPostRepository) Create(ctx context.Context, post *models.Post) error {
	args := m.Called(ctx, post)
	return args.Error(0)
}

func (m *MockPostRepository) Update(ctx context.Context, post *models.Post) error {
	args := m.Called(ctx, post)
	return args.Error(0)
}

func (m *MockPostRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPostRepository) ListByCharacter(ctx context.Context, characterID uint) ([]models.Post, error) {
	args := m.Called(ctx, characterID)
	return args.Get(0).([]models.Post), args.Error(1)
}

func (m *MockPostRepository) ListAll(ctx context.Context, limit, offset int) ([]models.Post, int64, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]models.Post), args.Get(1).(int64), args.Error(2)
}

func (m *MockPostRepository) Feed(ctx context.Context, userID uint, limit, offset int) ([]models.Post, int64, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]models.Post), args.Get(1).(int64), args.Error(2)
}

func TestPostService_HomeOffsets(t *testing.T) {
	tests := []struct {
		name       string
		page       int
		wantPage   int
		wantOffset int
	}{
		{"first page", 1, 1, 0},
		{"third page", 3, 3, 2 * PostsPerPage},
		{"zero becomes first", 0, 1, 0},
		{"negative becomes first", -4, 1, 0},
		{"huge page is capped", math.MaxInt, MaxPage, (MaxPage - 1) * PostsPerPage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockPostRepository)
			repo.On("ListAll", mock.Anything, PostsPerPage, tt.wantOffset).
				Return([]models.Post{{ID: 1}}, int64(45), nil).Once()

			page, err := NewPostService(repo).Home(bg, tt.page)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPage, page.Page)
			assert.Equal(t, 3, page.TotalPages())
			repo.AssertExpectations(t)
		})
	}
}

func TestPostService_DeleteByNonAuthorNeverDeletes(t *testing.T) {
	repo := new(MockPostRepository)
	repo.On("GetByID", mock.Anything, uint(7)).Return(&models.Post{ID: 7, UserID: 2}, nil)

	_, err := NewPostService(repo).DeletePost(bg, Identity{UserID: 1, Username: "mallory"}, 7)
	require.Error(t, err)
	assert.True(t, models.HasCode(err, models.CodeForbidden))
	repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestPostService_DeletePropagatesStorageError(t *testing.T) {
	repo := new(MockPostRepository)
	repo.On("GetByID", mock.Anything, uint(7)).Return(&models.Post{ID: 7, UserID: 1, CharacterID: 3}, nil)
	repo.On("Delete", mock.Anything, uint(7)).Return(models.NewInternalError(errors.New("disk full")))

	_, err := NewPostService(repo).DeletePost(bg, Identity{UserID: 1, Username: "alice"}, 7)
	require.Error(t, err)
	assert.Equal(t, 500, models.HTTPStatus(err))
	repo.AssertExpectations(t)
}

func TestFollowService_FeedNeedsIdentity(t *testing.T) {
	repo := new(MockPostRepository)
	svc := NewFollowService(nil, nil, repo)

	_, err := svc.FollowedPosts(bg, Identity{}, 1)
	assert.True(t, models.HasCode(err, models.CodeUnauthorized))
	repo.AssertNotCalled(t, "Feed", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	repo.On("Feed", mock.Anything, uint(5), PostsPerPage, PostsPerPage).Return([]models.Post{}, int64(0), nil)
	page, err := svc.FollowedPosts(bg, Identity{UserID: 5, Username: "bob"}, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 1, page.TotalPages())
}
