// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"

	"agora/internal/cache"
	"agora/internal/models"
	"agora/internal/observability"

	"gorm.io/gorm"
)

// PostRepository defines persistence operations for posts, including the
// enriched feed reads (author fields, comment counts, comment previews).
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	GetWithComments(ctx context.Context, id uint) (*models.Post, error)
	List(ctx context.Context, limit, offset int) ([]*models.Post, error)
	ListWithPreview(ctx context.Context, limit, offset int) ([]*models.Post, error)
	ListByUsername(ctx context.Context, username string) ([]*models.Post, error)
	UpdateTitle(ctx context.Context, id uint, title string) error
	Delete(ctx context.Context, id uint) error
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	defer observability.TrackQuery("insert", "posts")()
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// GetByID fetches the bare post row, cache-aside. Used for ownership checks
// before mutation; the enriched read paths bypass the cache.
func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := cache.Aside(ctx, cache.PostKey(id), &post, cache.PostTTL, func() error {
		if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Post", id)
			}
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// applyFeedDetails joins the author and adds the comment-count subquery so a
// single query produces the enriched feed row.
func (r *postRepository) applyFeedDetails(db *gorm.DB) *gorm.DB {
	return db.Model(&models.Post{}).
		Select("posts.*, users.username AS username, users.bio AS author_bio, users.avatar AS author_avatar, " +
			"(SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id AND comments.deleted_at IS NULL) AS comments_count").
		Joins("LEFT JOIN users ON users.id = posts.user_id")
}

func (r *postRepository) List(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	defer observability.TrackQuery("select", "posts")()
	var posts []*models.Post
	err := r.applyFeedDetails(r.db.WithContext(ctx)).
		Order("posts.created_at DESC, posts.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// ListWithPreview returns the same page as List plus, per post, the single
// most recent comment (or nil when the post has none).
func (r *postRepository) ListWithPreview(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	posts, err := r.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	if err := r.attachCommentPreviews(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// attachCommentPreviews fills CommentPreview for each post via a top-1
// ranking over comments partitioned by post.
func (r *postRepository) attachCommentPreviews(ctx context.Context, posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}

	ids := make([]uint, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}

	var previews []models.CommentPreview
	err := r.db.WithContext(ctx).Raw(`
		SELECT ranked.id, ranked.post_id, ranked.user_id, ranked.content, ranked.created_at, users.username
		FROM (
			SELECT comments.id, comments.post_id, comments.user_id, comments.content, comments.created_at,
				ROW_NUMBER() OVER (PARTITION BY comments.post_id ORDER BY comments.created_at DESC, comments.id DESC) AS rn
			FROM comments
			WHERE comments.post_id IN ? AND comments.deleted_at IS NULL
		) ranked
		LEFT JOIN users ON users.id = ranked.user_id
		WHERE ranked.rn = 1`, ids).Scan(&previews).Error
	if err != nil {
		return models.NewInternalError(err)
	}

	byPost := make(map[uint]*models.CommentPreview, len(previews))
	for i := range previews {
		byPost[previews[i].PostID] = &previews[i]
	}
	for _, p := range posts {
		p.CommentPreview = byPost[p.ID]
	}
	return nil
}

func (r *postRepository) GetWithComments(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := r.applyFeedDetails(r.db.WithContext(ctx)).
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Select("comments.*, (SELECT username FROM users WHERE users.id = comments.user_id) AS username").
				Order("comments.created_at DESC, comments.id DESC")
		}).
		Where("posts.id = ?", id).
		First(&post).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

func (r *postRepository) ListByUsername(ctx context.Context, username string) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.applyFeedDetails(r.db.WithContext(ctx)).
		Where("users.username = ?", username).
		Order("posts.created_at DESC, posts.id DESC").
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) UpdateTitle(ctx context.Context, id uint, title string) error {
	defer observability.TrackQuery("update", "posts")()
	res := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Update("title", title)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	cache.InvalidatePost(ctx, id)
	return nil
}

// Delete removes the post and its comments in one transaction. Of two
// concurrent deletes for the same id exactly one observes an affected row;
// the other reports NotFound.
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	defer observability.TrackQuery("delete", "posts")()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return models.NewInternalError(err)
		}
		res := tx.Delete(&models.Post{}, id)
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Post", id)
		}
		return nil
	})
	if err != nil {
		return err
	}
	cache.InvalidatePost(ctx, id)
	return nil
}
