// Package middleware provides authentication, logging, rate limiting and
// tracing middleware for the application.
package middleware

import (
	"context"
	"strings"

	"agora/internal/models"
	"agora/internal/observability"
	"agora/internal/token"

	"github.com/gofiber/fiber/v2"
)

// Locals keys populated by AuthRequired.
const (
	ClaimsLocal = "claims"
	UserIDLocal = "userID"
)

// AuthRequired enforces bearer-token authentication for protected routes.
// On success the decoded claims are exposed to downstream handlers via
// Locals and the request context; every request is evaluated independently.
func AuthRequired(tokens *token.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			observability.AuthFailures.WithLabelValues("missing_header").Inc()
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthenticatedError("Authorization header required"))
		}

		// Extract token from "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			observability.AuthFailures.WithLabelValues("malformed_header").Inc()
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthenticatedError("Invalid authorization header format"))
		}

		claims, err := tokens.Verify(strings.TrimSpace(parts[1]))
		if err != nil {
			observability.AuthFailures.WithLabelValues("invalid_token").Inc()
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthenticatedError("Invalid or expired token"))
		}

		c.Locals(ClaimsLocal, *claims)
		c.Locals(UserIDLocal, claims.UserID)

		// Propagate the user ID so the context-aware logger picks it up.
		c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, claims.UserID))

		return c.Next()
	}
}

// AdminRequired rejects non-admin callers with 403. Must be placed after
// AuthRequired so that claims are available in locals.
func AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals(ClaimsLocal).(token.Claims)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthenticatedError("Authentication required"))
		}
		if claims.Role != models.RoleAdmin {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}
		return c.Next()
	}
}

// ClaimsFromCtx returns the verified claims stored by AuthRequired.
// The second return is false on routes that never passed through it.
func ClaimsFromCtx(c *fiber.Ctx) (token.Claims, bool) {
	claims, ok := c.Locals(ClaimsLocal).(token.Claims)
	return claims, ok
}
