package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"agora/internal/middleware"
	"agora/internal/models"
	"agora/internal/repository"
)

// UserInfo is the identity payload returned by the provider's userinfo
// endpoint for a valid access token.
type UserInfo struct {
	Sub      string `json:"sub"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Nickname string `json:"nickname"`
	Picture  string `json:"picture"`
}

// maxUsernameSuffix caps the numeric suffixes tried when a provisioned
// account's fallback username is already taken.
const maxUsernameSuffix = 20

// OAuthService verifies provider access tokens and provisions local
// accounts for external identities on first login.
type OAuthService struct {
	userRepo repository.UserRepository
	domain   string
	client   *http.Client
}

func NewOAuthService(userRepo repository.UserRepository, domain string) *OAuthService {
	return &OAuthService{
		userRepo: userRepo,
		domain:   domain,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// FetchUserInfo exchanges the access token for the provider's identity
// claims. Any non-200 answer means the token is not (or no longer) valid.
func (s *OAuthService) FetchUserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	if accessToken == "" {
		return nil, models.NewValidationError("Access token is required")
	}
	if s.domain == "" {
		return nil, models.NewInternalError(fmt.Errorf("auth domain not configured"))
	}

	url := fmt.Sprintf("https://%s/userinfo", s.domain)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		middleware.Logger.WarnContext(ctx, "userinfo rejected access token", "status", resp.StatusCode)
		return nil, models.NewUnauthenticatedError("Invalid access token")
	}

	var info UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, models.NewInternalError(err)
	}
	if info.Sub == "" {
		return nil, models.NewUnauthenticatedError("Invalid access token")
	}
	return &info, nil
}

// LoginOrProvision returns the account bound to the external identity,
// creating it on first login.
func (s *OAuthService) LoginOrProvision(ctx context.Context, info *UserInfo) (*models.User, error) {
	user, err := s.userRepo.GetByExternalID(ctx, models.ProviderAuth0, info.Sub)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}

	username, err := s.availableUsername(ctx, fallbackUsername(info))
	if err != nil {
		return nil, err
	}

	externalID := info.Sub
	user = &models.User{
		Username:     username,
		Email:        info.Email,
		Role:         models.RoleUser,
		AuthProvider: models.ProviderAuth0,
		ExternalID:   &externalID,
		Avatar:       info.Picture,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	middleware.Logger.InfoContext(ctx, "provisioned external account", "user_id", user.ID)
	return user, nil
}

// availableUsername returns base if it is free, otherwise base with the
// first free numeric suffix. Exhausting the suffix range is a conflict.
func (s *OAuthService) availableUsername(ctx context.Context, base string) (string, error) {
	candidate := base
	for i := 2; i <= maxUsernameSuffix; i++ {
		existing, err := s.userRepo.GetByUsername(ctx, candidate)
		if err != nil {
			var appErr *models.AppError
			if errors.As(err, &appErr) && appErr.Code == models.CodeNotFound {
				return candidate, nil
			}
			return "", err
		}
		if existing == nil {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s%d", base, i)
	}
	return "", models.NewConflictError("Could not allocate a unique username")
}

// fallbackUsername picks a display name for a provisioned account: the
// provider nickname or name when present, otherwise the email local-part.
func fallbackUsername(info *UserInfo) string {
	if info.Nickname != "" {
		return info.Nickname
	}
	if info.Name != "" {
		return info.Name
	}
	if at := strings.Index(info.Email, "@"); at > 0 {
		return info.Email[:at]
	}
	return info.Sub
}
