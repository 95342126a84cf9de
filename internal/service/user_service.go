package service

import (
	"context"

	"agora/internal/models"
	"agora/internal/repository"
	"agora/internal/token"
	"agora/internal/validation"
)

type UserService struct {
	userRepo repository.UserRepository
	tokens   *token.Service
}

type UpdateProfileInput struct {
	UserID   uint
	Username string
	Bio      string
	Avatar   string
}

func NewUserService(userRepo repository.UserRepository, tokens *token.Service) *UserService {
	return &UserService{userRepo: userRepo, tokens: tokens}
}

func (s *UserService) ListUsers(ctx context.Context, limit, offset int) ([]models.UserSummary, error) {
	return s.userRepo.List(ctx, limit, offset)
}

func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

func (s *UserService) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.userRepo.GetByUsername(ctx, username)
}

// UpdateProfile applies the provided fields and issues a fresh token.
// The username claim is baked into every token, so a rename invalidates
// the old one and the response must carry a replacement.
func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, string, error) {
	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, "", err
	}

	const maxBioLen = 500

	if in.Username != "" {
		if err := validation.ValidateUsername(in.Username); err != nil {
			return nil, "", models.NewValidationError(err.Error())
		}
		user.Username = in.Username
	}
	if in.Bio != "" {
		if len(in.Bio) > maxBioLen {
			return nil, "", models.NewValidationError("Bio too long (max 500 characters)")
		}
		user.Bio = in.Bio
	}
	if in.Avatar != "" {
		user.Avatar = in.Avatar
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, "", err
	}

	newToken, err := s.tokens.Issue(user.ID, user.Username, user.Role)
	if err != nil {
		return nil, "", models.NewInternalError(err)
	}

	return user, newToken, nil
}

// SetRole grants or revokes the admin role on the target account.
func (s *UserService) SetRole(ctx context.Context, username, role string) (*models.User, error) {
	if role != models.RoleUser && role != models.RoleAdmin {
		return nil, models.NewValidationError("Invalid role")
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	user.Role = role
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
