package handlers

import (
	"strings"

	"github.com/fathima-sithara/konga-enrollment/internal/middleware"
	"github.com/fathima-sithara/konga-enrollment/internal/models"
	"github.com/fathima-sithara/konga-enrollment/internal/services"
	"github.com/fathima-sithara/konga-enrollment/internal/utils"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type EnrolleeHandler struct {
	svc     services.EnrolleeService
	stats   services.StatsService
	reports services.ReportService
	log     *zap.Logger
}

func NewEnrolleeHandler(svc services.EnrolleeService, stats services.StatsService, reports services.ReportService, log *zap.Logger) *EnrolleeHandler {
	return &EnrolleeHandler{svc: svc, stats: stats, reports: reports, log: log}
}

// POST /enrollees
func (h *EnrolleeHandler) Create(c *fiber.Ctx) error {
	var in services.CreateEnrolleeInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	e, err := h.svc.Create(c.UserContext(), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return utils.JSONSuccess(c, fiber.StatusCreated, e)
}

// GET /enrollees?status=&package=&team=&search=&page=&limit=
func (h *EnrolleeHandler) List(c *fiber.Ctx) error {
	f := models.EnrolleeFilter{
		Status:  models.EnrolleeStatus(c.Query("status")),
		Package: models.PackageTier(c.Query("package")),
		Team:    models.TeamSide(c.Query("team")),
		Search:  strings.TrimSpace(c.Query("search")),
		Page:    c.QueryInt("page", 1),
		Limit:   c.QueryInt("limit", 20),
	}
	page, err := h.svc.List(c.UserContext(), middleware.CallerFrom(c), f)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, page)
}

// GET /enrollees/stats
func (h *EnrolleeHandler) Stats(c *fiber.Ctx) error {
	sum, err := h.stats.Summary(c.UserContext())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, sum)
}

// GET /enrollees/team/:team
func (h *EnrolleeHandler) ListByTeam(c *fiber.Ctx) error {
	items, err := h.svc.ListByTeam(c.UserContext(), middleware.CallerFrom(c), c.Params("team"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, items)
}

// GET /enrollees/sponsor/:id
func (h *EnrolleeHandler) ListBySponsor(c *fiber.Ctx) error {
	items, err := h.svc.ListBySponsor(c.UserContext(), middleware.CallerFrom(c), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, items)
}

func (h *EnrolleeHandler) Get(c *fiber.Ctx) error {
	e, err := h.svc.Get(c.UserContext(), middleware.CallerFrom(c), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, e)
}

func (h *EnrolleeHandler) Update(c *fiber.Ctx) error {
	var in services.UpdateEnrolleeInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	e, err := h.svc.Update(c.UserContext(), middleware.CallerFrom(c), c.Params("id"), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, e)
}

// PUT /enrollees/:id/payment
func (h *EnrolleeHandler) UpdatePayment(c *fiber.Ctx) error {
	var in services.PaymentInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	e, err := h.svc.UpdatePayment(c.UserContext(), middleware.CallerFrom(c), c.Params("id"), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, e)
}

// POST /enrollees/:id/relink
func (h *EnrolleeHandler) Relink(c *fiber.Ctx) error {
	e, err := h.svc.Relink(c.UserContext(), middleware.CallerFrom(c), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, e)
}

func (h *EnrolleeHandler) Delete(c *fiber.Ctx) error {
	if err := h.svc.Delete(c.UserContext(), middleware.CallerFrom(c), c.Params("id")); err != nil {
		return writeError(c, h.log, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"deleted": c.Params("id")})
}

// GET /enrollees/:id/print
func (h *EnrolleeHandler) Print(c *fiber.Ctx) error {
	doc, err := h.reports.PrintEnrollee(c.UserContext(), middleware.CallerFrom(c), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, doc)
}

// GET /enrollees/:id/receipt
func (h *EnrolleeHandler) Receipt(c *fiber.Ctx) error {
	doc, err := h.reports.Receipt(c.UserContext(), middleware.CallerFrom(c), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, doc)
}
