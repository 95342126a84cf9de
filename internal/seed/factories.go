// Package seed creates demo data for development and testing.
package seed

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"agora/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the login password shared by every seeded account.
const DefaultPassword = "Password123!@"

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db   *gorm.DB
	rand *rand.Rand

	passwordHash string
}

// NewFactory creates a Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB) *Factory {
	gofakeit.Seed(time.Now().UnixNano())

	// MinCost keeps bulk seeding fast; these accounts are throwaway.
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.MinCost)
	if err != nil {
		panic(fmt.Sprintf("seed: hashing default password: %v", err))
	}

	return &Factory{
		db:           db,
		rand:         rand.New(rand.NewSource(time.Now().UnixNano())),
		passwordHash: string(hash),
	}
}

// CreateUser persists a user with generated profile fields. The index keeps
// usernames and emails unique across a seeding run.
func (f *Factory) CreateUser(index int, overrides ...func(*models.User)) (*models.User, error) {
	username := fmt.Sprintf("%s%d", strings.ToLower(gofakeit.Username()), index)
	user := &models.User{
		Username:     username,
		Email:        fmt.Sprintf("%s@example.com", username),
		PasswordHash: f.passwordHash,
		Role:         models.RoleUser,
		AuthProvider: models.ProviderManual,
		Bio:          gofakeit.Sentence(8),
		Avatar:       fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID()),
		CreatedAt:    f.pastTimestamp(365),
	}
	for _, override := range overrides {
		override(user)
	}
	if err := f.db.Create(user).Error; err != nil {
		return nil, fmt.Errorf("seed: creating user %q: %w", user.Username, err)
	}
	return user, nil
}

// CreateAdmin persists the well-known admin account used by local tooling.
func (f *Factory) CreateAdmin() (*models.User, error) {
	return f.CreateUser(0, func(u *models.User) {
		u.Username = "admin"
		u.Email = "admin@example.com"
		u.Role = models.RoleAdmin
		u.Bio = "Keeps the lights on."
	})
}

// CreatePost persists a post authored by the given user, dated after the
// author's own creation time.
func (f *Factory) CreatePost(author *models.User, overrides ...func(*models.Post)) (*models.Post, error) {
	post := &models.Post{
		UserID:      author.ID,
		Title:       gofakeit.Sentence(f.rand.Intn(6) + 3),
		Description: gofakeit.Paragraph(1, 3, 8, "\n"),
		ImageURL:    fmt.Sprintf("https://picsum.photos/seed/%s/800/800", gofakeit.UUID()),
		Tags:        strings.Join([]string{gofakeit.HackerNoun(), gofakeit.HackerNoun()}, ","),
		CreatedAt:   f.timestampAfter(author.CreatedAt),
	}
	for _, override := range overrides {
		override(post)
	}
	if err := f.db.Create(post).Error; err != nil {
		return nil, fmt.Errorf("seed: creating post for %q: %w", author.Username, err)
	}
	return post, nil
}

// CreateComment persists a comment on the given post, dated after the post.
func (f *Factory) CreateComment(post *models.Post, author *models.User) (*models.Comment, error) {
	comment := &models.Comment{
		PostID:    post.ID,
		UserID:    author.ID,
		Content:   gofakeit.Sentence(f.rand.Intn(12) + 3),
		CreatedAt: f.timestampAfter(post.CreatedAt),
	}
	if err := f.db.Create(comment).Error; err != nil {
		return nil, fmt.Errorf("seed: creating comment on post %d: %w", post.ID, err)
	}
	return comment, nil
}

// pastTimestamp returns a random moment up to maxDays in the past.
func (f *Factory) pastTimestamp(maxDays int) time.Time {
	back := time.Duration(f.rand.Intn(maxDays*24*60)) * time.Minute
	return time.Now().Add(-back)
}

// timestampAfter returns a random moment between t and now.
func (f *Factory) timestampAfter(t time.Time) time.Time {
	span := time.Since(t)
	if span <= 0 {
		return time.Now()
	}
	return t.Add(time.Duration(f.rand.Int63n(int64(span))))
}
