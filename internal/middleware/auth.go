package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/fathima-sithara/konga-enrollment/internal/models"
	"github.com/fathima-sithara/konga-enrollment/internal/utils"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	LocalClaims     = "claims"
	LocalUserID     = "user_id"
	LocalUserRole   = "user_role"
	LocalEmail      = "email"
	LocalEnrolleeID = "enrollee_id"
)

// RevocationChecker reports whether a token id was logged out.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type tokenSource func(c *fiber.Ctx) (string, bool)

// JWTMiddleware authenticates "Authorization: Bearer <token>".
func JWTMiddleware(jwtManager *utils.JWTManager, revoked RevocationChecker, logger *zap.Logger) fiber.Handler {
	return authenticate(jwtManager, revoked, logger, bearerToken)
}

// QueryTokenMiddleware authenticates "?token=" for websocket upgrades, where
// browsers cannot set headers.
func QueryTokenMiddleware(jwtManager *utils.JWTManager, revoked RevocationChecker, logger *zap.Logger) fiber.Handler {
	return authenticate(jwtManager, revoked, logger, func(c *fiber.Ctx) (string, bool) {
		t := c.Query("token")
		return t, t != ""
	})
}

func bearerToken(c *fiber.Ctx) (string, bool) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func authenticate(jwtManager *utils.JWTManager, revoked RevocationChecker, logger *zap.Logger, source tokenSource) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := source(c)
		if !ok {
			return utils.JSONError(c, fiber.StatusUnauthorized, "missing or malformed token")
		}

		claims, err := jwtManager.GetClaims(token)
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, utils.ErrTokenExpired) {
				msg = "token expired"
			}
			return utils.JSONError(c, fiber.StatusUnauthorized, msg)
		}

		if revoked != nil {
			isRevoked, err := revoked.IsRevoked(c.UserContext(), claims.ID)
			if err != nil {
				logger.Error("revocation lookup failed", zap.String("jti", claims.ID), zap.Error(err))
				return utils.JSONError(c, fiber.StatusInternalServerError, "internal server error")
			}
			if isRevoked {
				return utils.JSONError(c, fiber.StatusUnauthorized, "token revoked")
			}
		}

		c.Locals(LocalClaims, claims)
		c.Locals(LocalUserID, claims.UserID)
		c.Locals(LocalUserRole, string(claims.Role))
		c.Locals(LocalEmail, claims.Email)
		c.Locals(LocalEnrolleeID, claims.EnrolleeID)
		return c.Next()
	}
}

// RequireRole must run after an auth middleware.
func RequireRole(role models.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if r, _ := c.Locals(LocalUserRole).(string); r != string(role) {
			return utils.JSONError(c, fiber.StatusForbidden, "insufficient permissions")
		}
		return c.Next()
	}
}

func RequireAdmin() fiber.Handler {
	return RequireRole(models.RoleAdmin)
}

func ClaimsFrom(c *fiber.Ctx) *utils.CustomClaims {
	claims, _ := c.Locals(LocalClaims).(*utils.CustomClaims)
	return claims
}

// CallerFrom returns the authenticated identity, or the zero Caller.
func CallerFrom(c *fiber.Ctx) models.Caller {
	if claims := ClaimsFrom(c); claims != nil {
		return claims.Caller()
	}
	return models.Caller{}
}
