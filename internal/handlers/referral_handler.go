package handlers

import (
	"github.com/fathima-sithara/konga-enrollment/internal/middleware"
	"github.com/fathima-sithara/konga-enrollment/internal/models"
	"github.com/fathima-sithara/konga-enrollment/internal/services"
	"github.com/fathima-sithara/konga-enrollment/internal/utils"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type ReferralHandler struct {
	svc services.ReferralService
	log *zap.Logger
}

func NewReferralHandler(svc services.ReferralService, log *zap.Logger) *ReferralHandler {
	return &ReferralHandler{svc: svc, log: log}
}

// GET /referrals?status=&page=&limit=
func (h *ReferralHandler) List(c *fiber.Ctx) error {
	page, err := h.svc.List(c.UserContext(), models.ReferralFilter{
		Status: models.ReferralStatus(c.Query("status")),
		Page:   c.QueryInt("page", 1),
		Limit:  c.QueryInt("limit", 20),
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, page)
}

func (h *ReferralHandler) Stats(c *fiber.Ctx) error {
	st, err := h.svc.Stats(c.UserContext())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, st)
}

// GET /referrals/referrer/:id
func (h *ReferralHandler) ListByReferrer(c *fiber.Ctx) error {
	items, err := h.svc.ListByReferrer(c.UserContext(), middleware.CallerFrom(c), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, items)
}

func (h *ReferralHandler) Get(c *fiber.Ctx) error {
	r, err := h.svc.Get(c.UserContext(), middleware.CallerFrom(c), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, r)
}

func (h *ReferralHandler) Update(c *fiber.Ctx) error {
	var upd models.ReferralUpdate
	if err := c.BodyParser(&upd); err != nil {
		return badBody(c)
	}
	r, err := h.svc.Update(c.UserContext(), c.Params("id"), upd)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, r)
}

func (h *ReferralHandler) Delete(c *fiber.Ctx) error {
	if err := h.svc.Delete(c.UserContext(), c.Params("id")); err != nil {
		return writeError(c, h.log, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"deleted": c.Params("id")})
}
