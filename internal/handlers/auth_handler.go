package handlers

import (
	"strings"

	"github.com/fathima-sithara/konga-enrollment/internal/middleware"
	"github.com/fathima-sithara/konga-enrollment/internal/services"
	"github.com/fathima-sithara/konga-enrollment/internal/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type AuthHandler struct {
	svc      services.AuthService
	validate *validator.Validate
	log      *zap.Logger
}

func NewAuthHandler(svc services.AuthService, validate *validator.Validate, log *zap.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, validate: validate, log: log}
}

// POST /auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var in services.LoginInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	in.Email = strings.TrimSpace(in.Email)
	if err := h.validate.Struct(in); err != nil {
		return utils.JSONValidation(c, utils.FormatValidationErrors(err))
	}
	res, err := h.svc.Login(c.UserContext(), in.Email, in.Password)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, res)
}

// POST /auth/logout revokes the presented token.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if err := h.svc.Logout(c.UserContext(), middleware.ClaimsFrom(c)); err != nil {
		return writeError(c, h.log, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"message": "logged out"})
}

func (h *AuthHandler) Status(c *fiber.Ctx) error {
	st, err := h.svc.Status(c.UserContext(), middleware.CallerFrom(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, st)
}
