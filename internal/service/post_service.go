package service

import (
	"context"
	"strings"

	"agora/internal/models"
	"agora/internal/repository"
	"agora/internal/token"
)

type PostService struct {
	postRepo repository.PostRepository
	images   *ImageService
}

type CreatePostInput struct {
	UserID      uint
	Title       string
	Description string
	ImageURL    string
	Tags        string
}

type ListPostsInput struct {
	Limit   int
	Offset  int
	Preview bool
}

func NewPostService(postRepo repository.PostRepository, images *ImageService) *PostService {
	return &PostService{
		postRepo: postRepo,
		images:   images,
	}
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	const maxTitleLen = 300
	const maxDescriptionLen = 50000

	if strings.TrimSpace(in.ImageURL) == "" {
		return nil, models.NewValidationError("Image is required")
	}
	if len(in.Title) > maxTitleLen {
		return nil, models.NewValidationError("Title too long (max 300 characters)")
	}
	if len(in.Description) > maxDescriptionLen {
		return nil, models.NewValidationError("Description too long (max 50000 characters)")
	}

	imageURL := in.ImageURL
	if s.images != nil && strings.HasPrefix(imageURL, "data:") {
		imageURL = s.images.CompressDataURI(imageURL)
	}

	post := &models.Post{
		Title:       in.Title,
		Description: in.Description,
		ImageURL:    imageURL,
		Tags:        in.Tags,
		UserID:      in.UserID,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *PostService) ListPosts(ctx context.Context, in ListPostsInput) ([]*models.Post, error) {
	if in.Preview {
		return s.postRepo.ListWithPreview(ctx, in.Limit, in.Offset)
	}
	return s.postRepo.List(ctx, in.Limit, in.Offset)
}

func (s *PostService) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	return s.postRepo.GetWithComments(ctx, id)
}

func (s *PostService) GetUserPosts(ctx context.Context, username string) ([]*models.Post, error) {
	return s.postRepo.ListByUsername(ctx, username)
}

// EditTitle renames a post. The title is the only field a post edit may
// touch.
func (s *PostService) EditTitle(ctx context.Context, claims *token.Claims, postID uint, title string) (*models.Post, error) {
	if strings.TrimSpace(title) == "" {
		return nil, models.NewValidationError("Title is required")
	}

	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !claims.CanMutate(post.UserID) {
		return nil, models.NewForbiddenError("You can only edit your own posts")
	}

	if err := s.postRepo.UpdateTitle(ctx, postID, title); err != nil {
		return nil, err
	}
	post.Title = title
	return post, nil
}

func (s *PostService) DeletePost(ctx context.Context, claims *token.Claims, postID uint) error {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if !claims.CanMutate(post.UserID) {
		return models.NewForbiddenError("You can only delete your own posts")
	}

	return s.postRepo.Delete(ctx, postID)
}
