package server

import (
	"agora/internal/models"
	"agora/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetPosts handles GET /api/posts. The feed is paginated and enriched with
// author fields and comment counts; ?preview=1 additionally attaches the
// most recent comment per post.
func (s *Server) GetPosts(c *fiber.Ctx) error {
	pagination := parsePagination(c, defaultPageLimit)
	preview := c.QueryBool("preview", false)

	posts, err := s.postService.ListPosts(c.Context(), service.ListPostsInput{
		Limit:   pagination.Limit,
		Offset:  pagination.Offset,
		Preview: preview,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	return c.JSON(posts)
}

// CreatePost handles POST /api/posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	claims, err := s.requireClaims(c)
	if err != nil {
		return nil
	}

	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		ImageURL    string `json:"image_url"`
		Tags        string `json:"tags"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.CreatePost(c.Context(), service.CreatePostInput{
		UserID:      claims.UserID,
		Title:       req.Title,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		Tags:        req.Tags,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Post created successfully",
		"postId":  post.ID,
	})
}

// GetPost handles GET /api/posts/:postId, returning the post with its
// comments newest first.
func (s *Server) GetPost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}

	post, err := s.postService.GetPost(c.Context(), postID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(post)
}

// UpdatePostTitle handles PUT /api/posts/:postId
func (s *Server) UpdatePostTitle(c *fiber.Ctx) error {
	claims, err := s.requireClaims(c)
	if err != nil {
		return nil
	}
	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}

	var req struct {
		Title string `json:"title"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.EditTitle(c.Context(), &claims, postID, req.Title)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Post updated successfully",
		"post":    post,
	})
}

// DeletePost handles DELETE /api/posts/:postId. Deleting an already removed
// post reports 404, so a double delete is observably idempotent.
func (s *Server) DeletePost(c *fiber.Ctx) error {
	claims, err := s.requireClaims(c)
	if err != nil {
		return nil
	}
	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}

	if err := s.postService.DeletePost(c.Context(), &claims, postID); err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Post deleted successfully",
	})
}
