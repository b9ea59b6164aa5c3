package middleware

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fathima-sithara/konga-enrollment/internal/models"
	"github.com/fathima-sithara/konga-enrollment/internal/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type revokedSet map[string]bool

func (r revokedSet) IsRevoked(_ context.Context, jti string) (bool, error) {
	return r[jti], nil
}

func TestJWTMiddleware(t *testing.T) {
	mgr := utils.NewJWTManager("secret", "konga-test", time.Hour)
	enrollee := primitive.NewObjectID()
	user := &models.Account{ID: primitive.NewObjectID(), Email: "jane@example.com", Role: models.RoleUser, EnrolleeID: &enrollee}
	good, _, err := mgr.Generate(user)
	require.NoError(t, err)
	gone, goneClaims, err := mgr.Generate(user)
	require.NoError(t, err)
	expired, _, err := utils.NewJWTManager("secret", "konga-test", -time.Minute).Generate(user)
	require.NoError(t, err)

	revoked := revokedSet{goneClaims.ID: true}
	app := fiber.New()
	app.Get("/me", JWTMiddleware(mgr, revoked, zap.NewNop()), func(c *fiber.Ctx) error {
		caller := CallerFrom(c)
		return c.SendString(caller.Email + "|" + caller.EnrolleeID)
	})
	app.Get("/ws", QueryTokenMiddleware(mgr, revoked, zap.NewNop()), func(c *fiber.Ctx) error {
		return c.SendString(c.Locals(LocalEnrolleeID).(string))
	})

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"missing", "/me", "", fiber.StatusUnauthorized},
		{"no bearer", "/me", good, fiber.StatusUnauthorized},
		{"garbage", "/me", "Bearer nope", fiber.StatusUnauthorized},
		{"expired", "/me", "Bearer " + expired, fiber.StatusUnauthorized},
		{"revoked", "/me", "Bearer " + gone, fiber.StatusUnauthorized},
		{"ok", "/me", "Bearer " + good, fiber.StatusOK},
		{"lowercase scheme", "/me", "bearer " + good, fiber.StatusOK},
		{"query token", "/ws?token=" + good, "", fiber.StatusOK},
		{"query missing", "/ws", "", fiber.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(fiber.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	mgr := utils.NewJWTManager("secret", "konga-test", time.Hour)
	userToken, _, err := mgr.Generate(&models.Account{ID: primitive.NewObjectID(), Role: models.RoleUser})
	require.NoError(t, err)
	adminToken, _, err := mgr.Generate(&models.Account{ID: primitive.NewObjectID(), Role: models.RoleAdmin})
	require.NoError(t, err)

	app := fiber.New()
	app.Get("/admin", JWTMiddleware(mgr, nil, zap.NewNop()), RequireAdmin(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	for token, want := range map[string]int{userToken: fiber.StatusForbidden, adminToken: fiber.StatusNoContent} {
		req := httptest.NewRequest(fiber.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, want, resp.StatusCode)
	}
}

func TestIPRateLimiter(t *testing.T) {
	l := NewIPRateLimiter(2, zap.NewNop())
	defer l.Close()

	app := fiber.New()
	app.Post("/enrollees", l.Handler(), ZapLogger(zap.NewNop()), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusCreated)
	})

	first, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/enrollees", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, first.StatusCode)

	second, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/enrollees", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, second.StatusCode)
}
