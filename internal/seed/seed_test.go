package seed

import (
	"testing"

	"storyline/internal/models"
	"storyline/internal/testutil"
	"storyline/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestUsername(t *testing.T) {
	tests := []struct {
		first string
		i     int
		want  string
	}{
		{"Mary", 1, "mary1"},
		{"Jean Luc", 12, "jeanluc12"},
		{"", 3, "writer3"},
		{"Bartholomew-Alexander", 100, "bartholomew-alexa100"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := username(tt.first, tt.i)
			assert.Equal(t, tt.want, got)
			assert.NoError(t, validation.ValidateUsername(got))
		})
	}
}

func TestSeed(t *testing.T) {
	db := testutil.NewTestDB(t)
	s := NewSeeder(db)

	opts := Options{
		NumUsers:             4,
		HistoriesPerUser:     1,
		CharactersPerHistory: 2,
		PostsPerCharacter:    2,
		FollowsPerUser:       5,
		ShouldClean:          true,
	}
	res, err := s.Seed(opts)
	require.NoError(t, err)

	assert.Equal(t, 4, res.Users)
	assert.Equal(t, 4, res.Histories)
	assert.Equal(t, 8, res.Characters)
	assert.Equal(t, 16, res.Posts)
	// Capped at everyone else.
	assert.Equal(t, 12, res.Follows)

	var posts int64
	require.NoError(t, db.Model(&models.Post{}).Count(&posts).Error)
	assert.Equal(t, int64(16), posts)

	var selfEdges int64
	require.NoError(t, db.Model(&models.Follow{}).Where("follower_id = followed_id").Count(&selfEdges).Error)
	assert.Zero(t, selfEdges)

	var user models.User
	require.NoError(t, db.First(&user).Error)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(DefaultPassword)))

	// A second run with cleaning replaces the data instead of adding to it.
	_, err = s.Seed(opts)
	require.NoError(t, err)
	var users int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	assert.Equal(t, int64(4), users)
}

func TestSeedRequiresUsers(t *testing.T) {
	db := testutil.NewTestDB(t)
	_, err := NewSeeder(db).Seed(Options{})
	assert.Error(t, err)
}
