package seed

import (
	"fmt"
	"log/slog"

	"agora/internal/models"

	"gorm.io/gorm"
)

// Options controls how much data a seeding run produces.
type Options struct {
	NumUsers           int
	PostsPerUser       int
	MaxCommentsPerPost int
	ShouldClean        bool
}

// DefaultOptions produces a small but browsable data set.
func DefaultOptions() Options {
	return Options{
		NumUsers:           25,
		PostsPerUser:       4,
		MaxCommentsPerPost: 6,
	}
}

// Run populates the database with generated users, posts and comments.
// With ShouldClean set, existing rows are removed first.
func Run(db *gorm.DB, opts Options) error {
	if opts.NumUsers <= 0 {
		opts = DefaultOptions()
	}

	if opts.ShouldClean {
		if err := Clean(db); err != nil {
			return err
		}
	}

	factory := NewFactory(db)

	admin, err := factory.CreateAdmin()
	if err != nil {
		return err
	}

	users := []*models.User{admin}
	for i := 1; i <= opts.NumUsers; i++ {
		user, err := factory.CreateUser(i)
		if err != nil {
			return err
		}
		users = append(users, user)
	}

	totalPosts := 0
	totalComments := 0
	for _, author := range users {
		for p := 0; p < opts.PostsPerUser; p++ {
			post, err := factory.CreatePost(author)
			if err != nil {
				return err
			}
			totalPosts++

			numComments := factory.rand.Intn(opts.MaxCommentsPerPost + 1)
			for c := 0; c < numComments; c++ {
				commenter := users[factory.rand.Intn(len(users))]
				if _, err := factory.CreateComment(post, commenter); err != nil {
					return err
				}
				totalComments++
			}
		}
	}

	slog.Info("seeding complete",
		slog.Int("users", len(users)),
		slog.Int("posts", totalPosts),
		slog.Int("comments", totalComments))
	return nil
}

// Clean removes all seeded rows. Deletes are hard so reruns start from an
// empty table rather than piling on soft-deleted rows.
func Clean(db *gorm.DB) error {
	for _, model := range []any{&models.Comment{}, &models.Post{}, &models.User{}} {
		if err := db.Unscoped().Where("1 = 1").Delete(model).Error; err != nil {
			return fmt.Errorf("seed: cleaning %T: %w", model, err)
		}
	}
	return nil
}
