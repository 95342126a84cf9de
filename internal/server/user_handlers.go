package server

import (
	"agora/internal/models"
	"agora/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetAllUsers handles GET /api/users
func (s *Server) GetAllUsers(c *fiber.Ctx) error {
	pagination := parsePagination(c, defaultPageLimit)

	users, err := s.userService.ListUsers(c.Context(), pagination.Limit, pagination.Offset)
	if err != nil {
		return respondServiceError(c, err)
	}
	if users == nil {
		users = []models.UserSummary{}
	}
	return c.JSON(users)
}

// GetMyProfile handles GET /api/users/profile
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	claims, err := s.requireClaims(c)
	if err != nil {
		return nil
	}

	user, err := s.userService.GetUserByID(c.Context(), claims.UserID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(user)
}

// UpdateMyProfile handles PUT /api/users/update-profile. The response
// carries a fresh token because the username claim may have changed.
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	claims, err := s.requireClaims(c)
	if err != nil {
		return nil
	}

	var req struct {
		Username string `json:"username"`
		Bio      string `json:"bio"`
		Avatar   string `json:"avatar"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, newToken, err := s.userService.UpdateProfile(c.Context(), service.UpdateProfileInput{
		UserID:   claims.UserID,
		Username: req.Username,
		Bio:      req.Bio,
		Avatar:   req.Avatar,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Profile updated successfully",
		"token":   newToken,
		"bio":     user.Bio,
		"avatar":  user.Avatar,
	})
}

// GetUserByUsername handles GET /api/users/:username
func (s *Server) GetUserByUsername(c *fiber.Ctx) error {
	username := c.Params("username")

	user, err := s.userService.GetUserByUsername(c.Context(), username)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(user)
}

// GetUserPosts handles GET /api/users/:username/posts
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	username := c.Params("username")

	posts, err := s.postService.GetUserPosts(c.Context(), username)
	if err != nil {
		return respondServiceError(c, err)
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	return c.JSON(posts)
}

// SetUserRole handles PUT /api/users/:username/role (admin only)
func (s *Server) SetUserRole(c *fiber.Ctx) error {
	username := c.Params("username")

	var req struct {
		Role string `json:"role"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.SetRole(c.Context(), username, req.Role)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Role updated successfully",
		"user":    user,
	})
}
