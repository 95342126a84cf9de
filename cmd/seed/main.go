// Command seed fills the configured database with generated demo data.
package main

import (
	"flag"
	"log"

	"agora/internal/config"
	"agora/internal/database"
	"agora/internal/seed"
)

func main() {
	var opts seed.Options
	defaults := seed.DefaultOptions()
	flag.IntVar(&opts.NumUsers, "users", defaults.NumUsers, "number of users to create")
	flag.IntVar(&opts.PostsPerUser, "posts", defaults.PostsPerUser, "posts per user")
	flag.IntVar(&opts.MaxCommentsPerPost, "comments", defaults.MaxCommentsPerPost, "maximum comments per post")
	flag.BoolVar(&opts.ShouldClean, "clean", false, "remove existing rows before seeding")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	if err := seed.Run(db, opts); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
}
