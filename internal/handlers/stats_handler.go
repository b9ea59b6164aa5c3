package handlers

import (
	"github.com/fathima-sithara/konga-enrollment/internal/services"
	"github.com/fathima-sithara/konga-enrollment/internal/utils"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// StatsHandler serves the admin dashboard. Every call aggregates fresh.
type StatsHandler struct {
	svc     services.StatsService
	reports services.ReportService
	log     *zap.Logger
}

func NewStatsHandler(svc services.StatsService, reports services.ReportService, log *zap.Logger) *StatsHandler {
	return &StatsHandler{svc: svc, reports: reports, log: log}
}

func (h *StatsHandler) Dashboard(c *fiber.Ctx) error {
	d, err := h.svc.Dashboard(c.UserContext())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, d)
}

// GET /stats/timeline?period=day|week|month|year
func (h *StatsHandler) Timeline(c *fiber.Ctx) error {
	points, err := h.svc.Timeline(c.UserContext(), c.Query("period"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, points)
}

func (h *StatsHandler) Teams(c *fiber.Ctx) error {
	t, err := h.svc.Teams(c.UserContext())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, t)
}

func (h *StatsHandler) Packages(c *fiber.Ctx) error {
	p, err := h.svc.Packages(c.UserContext())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, p)
}

func (h *StatsHandler) Leaderboard(c *fiber.Ctx) error {
	l, err := h.svc.Leaderboard(c.UserContext())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, l)
}

// GET /stats/report renders the dashboard as a PDF.
func (h *StatsHandler) Report(c *fiber.Ctx) error {
	doc, err := h.reports.DashboardReport(c.UserContext())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, doc)
}
