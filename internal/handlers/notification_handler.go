package handlers

import (
	"github.com/fathima-sithara/konga-enrollment/internal/middleware"
	"github.com/fathima-sithara/konga-enrollment/internal/services"
	"github.com/fathima-sithara/konga-enrollment/internal/utils"
	"github.com/fathima-sithara/konga-enrollment/internal/ws"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

type NotificationHandler struct {
	svc services.NotificationService
	hub *ws.Hub
	log *zap.Logger
}

func NewNotificationHandler(svc services.NotificationService, hub *ws.Hub, log *zap.Logger) *NotificationHandler {
	return &NotificationHandler{svc: svc, hub: hub, log: log}
}

// GET /notifications?unread=true&limit=
func (h *NotificationHandler) List(c *fiber.Ctx) error {
	items, err := h.svc.List(c.UserContext(), middleware.CallerFrom(c), c.QueryBool("unread"), c.QueryInt("limit", 50))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, items)
}

// PUT /notifications/:id/read
func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	if err := h.svc.MarkRead(c.UserContext(), middleware.CallerFrom(c), c.Params("id")); err != nil {
		return writeError(c, h.log, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"read": c.Params("id")})
}

// PUT /notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *fiber.Ctx) error {
	n, err := h.svc.MarkAllRead(c.UserContext(), middleware.CallerFrom(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"updated": n})
}

func (h *NotificationHandler) Delete(c *fiber.Ctx) error {
	if err := h.svc.Delete(c.UserContext(), middleware.CallerFrom(c), c.Params("id")); err != nil {
		return writeError(c, h.log, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"deleted": c.Params("id")})
}

// Upgrade rejects plain HTTP requests to the websocket endpoint.
func (h *NotificationHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Stream is mounted behind Upgrade and the query-token auth middleware.
func (h *NotificationHandler) Stream() fiber.Handler {
	return websocket.New(h.hub.Handle)
}
