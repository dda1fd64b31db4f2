package seed

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"storyline/internal/models"
	"storyline/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var usernameUnsafe = regexp.MustCompile(`[^a-z0-9._-]`)

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db      *gorm.DB
	rng     *rand.Rand
	maxDays int
	hash    string
}

// NewFactory creates a Factory bound to db. All users it creates share password.
func NewFactory(db *gorm.DB, password string, maxDays int) (*Factory, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}
	if maxDays <= 0 {
		maxDays = 90
	}
	//nolint:gosec // Weak random number generator is fine for seeding
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	gofakeit.Seed(rng.Int63())
	return &Factory{db: db, rng: rng, maxDays: maxDays, hash: string(hash)}, nil
}

// username derives a valid, unique-per-index username from a fake first name.
func username(first string, i int) string {
	base := usernameUnsafe.ReplaceAllString(strings.ToLower(first), "")
	if base == "" {
		base = "writer"
	}
	suffix := fmt.Sprintf("%d", i)
	if limit := validation.UsernameMaxLen - len(suffix); len(base) > limit {
		base = base[:limit]
	}
	return base + suffix
}

func (f *Factory) CreateUser(i int) (*models.User, error) {
	name := username(gofakeit.FirstName(), i)
	user := &models.User{
		Username:  name,
		Email:     name + "@storyline.test",
		Password:  f.hash,
		ImageFile: models.DefaultImageFile,
		About:     gofakeit.Sentence(8),
	}
	if err := f.db.Create(user).Error; err != nil {
		return nil, fmt.Errorf("create user %s: %w", name, err)
	}
	return user, nil
}

func (f *Factory) CreateHistory(author *models.User) (*models.History, error) {
	h := &models.History{
		Title:  clip(gofakeit.BookTitle(), validation.TitleMaxLen),
		Info:   gofakeit.Paragraph(1, 3, 8, " "),
		UserID: author.ID,
	}
	if err := f.db.Omit("Author").Create(h).Error; err != nil {
		return nil, fmt.Errorf("create history: %w", err)
	}
	return h, nil
}

func (f *Factory) CreateCharacter(author *models.User, history *models.History) (*models.Character, error) {
	c := &models.Character{
		Name:      clip(gofakeit.Name(), validation.NameMaxLen),
		Info:      gofakeit.Sentence(12),
		UserID:    author.ID,
		HistoryID: history.ID,
	}
	if err := f.db.Omit("Author", "History").Create(c).Error; err != nil {
		return nil, fmt.Errorf("create character: %w", err)
	}
	return c, nil
}

// CreatePost writes a post about character dated somewhere in the last maxDays.
func (f *Factory) CreatePost(author *models.User, character *models.Character) (*models.Post, error) {
	back := time.Duration(f.rng.Intn(f.maxDays))*24*time.Hour +
		time.Duration(f.rng.Intn(24))*time.Hour +
		time.Duration(f.rng.Intn(60))*time.Minute
	p := &models.Post{
		Title:       clip(gofakeit.Sentence(5), validation.TitleMaxLen),
		Content:     gofakeit.Paragraph(1, 3, 10, "\n"),
		DatePosted:  time.Now().UTC().Add(-back),
		UserID:      author.ID,
		HistoryID:   character.HistoryID,
		CharacterID: character.ID,
	}
	if err := f.db.Omit("Author", "History", "Character").Create(p).Error; err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return p, nil
}

// Follow inserts the edge unless it already exists. Self edges are skipped.
func (f *Factory) Follow(follower, followed *models.User) error {
	if follower.ID == followed.ID {
		return nil
	}
	edge := &models.Follow{FollowerID: follower.ID, FollowedID: followed.ID}
	return f.db.Clauses(clause.OnConflict{DoNothing: true}).
		Omit("Follower", "Followed").
		Create(edge).Error
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}
