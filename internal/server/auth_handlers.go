// Package server contains HTTP handlers for the application's API endpoints.
package server

import (
	"agora/internal/models"
	"agora/internal/validation"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

// Register handles POST /api/auth/register
func (s *Server) Register(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Username, email, and password are required"))
	}

	if err := validation.ValidateUsername(req.Username); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}
	if err := validation.ValidateEmail(req.Email); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}
	if err := validation.ValidatePassword(req.Password); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}

	role := models.RoleUser
	if req.Role == models.RoleAdmin {
		role = models.RoleAdmin
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hashedPassword),
		Role:         role,
		AuthProvider: models.ProviderManual,
	}

	if createErr := s.userRepo.Create(c.Context(), user); createErr != nil {
		// Duplicate registration surfaces as a plain 400 on this endpoint.
		if models.StatusForError(createErr) == fiber.StatusConflict {
			return models.RespondWithError(c, fiber.StatusBadRequest, createErr)
		}
		return respondServiceError(c, createErr)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully",
		"userId":  user.ID,
	})
}

// Login handles POST /api/auth/login
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	// Only locally registered accounts hold a password; an external account
	// with the same email never matches here.
	user, err := s.userRepo.GetByEmailAndProvider(c.Context(), req.Email, models.ProviderManual)
	if err != nil {
		return respondServiceError(c, err)
	}
	if user == nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthenticatedError("Invalid credentials"))
	}

	if cmpErr := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); cmpErr != nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthenticatedError("Invalid credentials"))
	}

	tokenString, err := s.tokens.Issue(user.ID, user.Username, user.Role)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"message": "Login successful",
		"user":    user,
		"token":   tokenString,
	})
}

// OAuthLogin handles POST /api/auth/oauth-login. The client hands over the
// provider access token; the server verifies it against the provider's
// userinfo endpoint and provisions an account on first login.
func (s *Server) OAuthLogin(c *fiber.Ctx) error {
	var req struct {
		AccessToken string `json:"accessToken"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	info, err := s.oauthService.FetchUserInfo(c.Context(), req.AccessToken)
	if err != nil {
		return respondServiceError(c, err)
	}

	user, err := s.oauthService.LoginOrProvision(c.Context(), info)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Login successful",
		"user":    user,
	})
}
