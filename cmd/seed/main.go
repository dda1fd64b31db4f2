// Command seed fills the database with demo users, stories and posts.
package main

import (
	"context"
	"flag"
	"log"

	"storyline/internal/config"
	"storyline/internal/database"
	"storyline/internal/seed"
)

func main() {
	opts := seed.DefaultOptions
	flag.IntVar(&opts.NumUsers, "users", opts.NumUsers, "Number of users to create")
	flag.IntVar(&opts.HistoriesPerUser, "histories", opts.HistoriesPerUser, "Stories per user")
	flag.IntVar(&opts.CharactersPerHistory, "characters", opts.CharactersPerHistory, "Characters per story")
	flag.IntVar(&opts.PostsPerCharacter, "posts", opts.PostsPerCharacter, "Posts per character")
	flag.IntVar(&opts.FollowsPerUser, "follows", opts.FollowsPerUser, "Users each user follows")
	flag.BoolVar(&opts.ShouldClean, "clean", opts.ShouldClean, "Clean database before seeding")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Printf("Target: %d users, %d stories each, clean=%v", opts.NumUsers, opts.HistoriesPerUser, opts.ShouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.ApplySchema(context.Background(), db, cfg); err != nil {
		log.Fatalf("Failed to apply database schema: %v", err)
	}

	if _, err := seed.NewSeeder(db).Seed(opts); err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Println("✨ All done! Your database is now populated with demo data.")
	log.Printf("📧 All seeded users have the password: %s", seed.DefaultPassword)
}
