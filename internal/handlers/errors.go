package handlers

import (
	"errors"

	"github.com/fathima-sithara/konga-enrollment/internal/repository"
	"github.com/fathima-sithara/konga-enrollment/internal/services"
	"github.com/fathima-sithara/konga-enrollment/internal/utils"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// statusOf maps a service or repository error to its HTTP status. Unknown
// errors are 500.
func statusOf(err error) int {
	switch {
	case errors.Is(err, repository.ErrInvalidID),
		errors.Is(err, services.ErrInvalidTeam),
		errors.Is(err, services.ErrInvalidStatus):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, utils.ErrInvalidToken),
		errors.Is(err, utils.ErrTokenExpired):
		return fiber.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, repository.ErrEnrolleeNotFound),
		errors.Is(err, repository.ErrReferralNotFound),
		errors.Is(err, repository.ErrNotificationNotFound),
		errors.Is(err, repository.ErrAccountNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, services.ErrNotRelinkable),
		errors.Is(err, services.ErrPaymentNotCollected):
		return fiber.StatusConflict
	}
	return fiber.StatusInternalServerError
}

func writeError(c *fiber.Ctx, log *zap.Logger, err error) error {
	var ve *services.ValidationError
	if errors.As(err, &ve) {
		return utils.JSONValidation(c, ve.Fields)
	}
	status := statusOf(err)
	if status == fiber.StatusInternalServerError {
		log.Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return utils.JSONError(c, status, "internal server error")
	}
	return utils.JSONError(c, status, err.Error())
}

func badBody(c *fiber.Ctx) error {
	return utils.JSONError(c, fiber.StatusBadRequest, "invalid body")
}
