// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"fmt"
	"log"

	"storyline/internal/models"

	"gorm.io/gorm"
)

// DefaultPassword is the password of every seeded user.
const DefaultPassword = "Storyline#Seed2024"

// Options configuration for the seeder
type Options struct {
	NumUsers             int
	HistoriesPerUser     int
	CharactersPerHistory int
	PostsPerCharacter    int
	FollowsPerUser       int
	MaxDays              int
	ShouldClean          bool
}

// DefaultOptions is a small but browsable data set.
var DefaultOptions = Options{
	NumUsers:             10,
	HistoriesPerUser:     2,
	CharactersPerHistory: 3,
	PostsPerCharacter:    4,
	FollowsPerUser:       3,
	MaxDays:              90,
	ShouldClean:          true,
}

// Result counts what a seeding run created.
type Result struct {
	Users      int
	Histories  int
	Characters int
	Posts      int
	Follows    int
}

type Seeder struct {
	db *gorm.DB
}

func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// ClearAll removes every row of the content tables, children first.
func (s *Seeder) ClearAll() error {
	log.Println("Clearing existing data...")
	all := s.db.Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, model := range []interface{}{
		&models.Post{},
		&models.Character{},
		&models.History{},
		&models.Follow{},
		&models.User{},
	} {
		if err := all.Delete(model).Error; err != nil {
			return fmt.Errorf("clear %T: %w", model, err)
		}
	}
	return nil
}

// Seed populates the database. Every user writes stories with characters,
// posts are spread across authors and each user follows a few others.
func (s *Seeder) Seed(opts Options) (*Result, error) {
	if opts.NumUsers <= 0 {
		return nil, fmt.Errorf("seed needs at least one user")
	}
	if opts.ShouldClean {
		if err := s.ClearAll(); err != nil {
			return nil, err
		}
	}

	f, err := NewFactory(s.db, DefaultPassword, opts.MaxDays)
	if err != nil {
		return nil, err
	}
	res := &Result{}

	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		u, err := f.CreateUser(i + 1)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	res.Users = len(users)
	log.Printf("✓ %d users created", res.Users)

	for _, author := range users {
		for h := 0; h < opts.HistoriesPerUser; h++ {
			history, err := f.CreateHistory(author)
			if err != nil {
				return nil, err
			}
			res.Histories++

			for c := 0; c < opts.CharactersPerHistory; c++ {
				character, err := f.CreateCharacter(author, history)
				if err != nil {
					return nil, err
				}
				res.Characters++

				for p := 0; p < opts.PostsPerCharacter; p++ {
					// Other authors join in on roughly a third of the posts.
					writer := author
					if f.rng.Intn(3) == 0 {
						writer = users[f.rng.Intn(len(users))]
					}
					if _, err := f.CreatePost(writer, character); err != nil {
						return nil, err
					}
					res.Posts++
				}
			}
		}
	}
	log.Printf("✓ %d stories, %d characters, %d posts created", res.Histories, res.Characters, res.Posts)

	if len(users) > 1 {
		for i, follower := range users {
			n := opts.FollowsPerUser
			if n > len(users)-1 {
				n = len(users) - 1
			}
			for k := 1; k <= n; k++ {
				if err := f.Follow(follower, users[(i+k)%len(users)]); err != nil {
					return nil, fmt.Errorf("follow: %w", err)
				}
				res.Follows++
			}
		}
	}
	log.Printf("✓ %d follow edges created", res.Follows)

	return res, nil
}
