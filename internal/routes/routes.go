package routes

import (
	"github.com/fathima-sithara/konga-enrollment/internal/handlers"
	"github.com/fathima-sithara/konga-enrollment/internal/middleware"
	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Enrollees     *handlers.EnrolleeHandler
	Referrals     *handlers.ReferralHandler
	Stats         *handlers.StatsHandler
	Notifications *handlers.NotificationHandler
	Auth          *handlers.AuthHandler
}

// Guards are the middlewares routes are mounted behind.
type Guards struct {
	Auth        fiber.Handler
	QueryAuth   fiber.Handler
	EnrollLimit fiber.Handler
}

func Setup(app *fiber.App, h Handlers, g Guards) {
	admin := middleware.RequireAdmin()
	api := app.Group("/api/v1")

	auth := api.Group("/auth")
	auth.Post("/login", h.Auth.Login)
	auth.Post("/logout", g.Auth, h.Auth.Logout)
	auth.Get("/status", g.Auth, h.Auth.Status)

	enrollees := api.Group("/enrollees")
	enrollees.Post("/", g.EnrollLimit, h.Enrollees.Create)
	enrollees.Get("/", g.Auth, admin, h.Enrollees.List)
	// static segments before /:id
	enrollees.Get("/stats", g.Auth, admin, h.Enrollees.Stats)
	enrollees.Get("/team/:team", g.Auth, admin, h.Enrollees.ListByTeam)
	enrollees.Get("/sponsor/:id", g.Auth, h.Enrollees.ListBySponsor)
	enrollees.Get("/:id", g.Auth, h.Enrollees.Get)
	enrollees.Put("/:id", g.Auth, h.Enrollees.Update)
	enrollees.Delete("/:id", g.Auth, admin, h.Enrollees.Delete)
	enrollees.Put("/:id/payment", g.Auth, h.Enrollees.UpdatePayment)
	enrollees.Post("/:id/relink", g.Auth, admin, h.Enrollees.Relink)
	enrollees.Get("/:id/print", g.Auth, h.Enrollees.Print)
	enrollees.Get("/:id/receipt", g.Auth, h.Enrollees.Receipt)

	referrals := api.Group("/referrals", g.Auth)
	referrals.Get("/", admin, h.Referrals.List)
	referrals.Get("/stats", admin, h.Referrals.Stats)
	referrals.Get("/referrer/:id", h.Referrals.ListByReferrer)
	referrals.Get("/:id", h.Referrals.Get)
	referrals.Put("/:id", admin, h.Referrals.Update)
	referrals.Delete("/:id", admin, h.Referrals.Delete)

	stats := api.Group("/stats", g.Auth, admin)
	stats.Get("/dashboard", h.Stats.Dashboard)
	stats.Get("/timeline", h.Stats.Timeline)
	stats.Get("/teams", h.Stats.Teams)
	stats.Get("/packages", h.Stats.Packages)
	stats.Get("/leaderboard", h.Stats.Leaderboard)
	stats.Get("/report", h.Stats.Report)

	notifications := api.Group("/notifications", g.Auth)
	notifications.Get("/", h.Notifications.List)
	notifications.Put("/read-all", h.Notifications.MarkAllRead)
	notifications.Put("/:id/read", h.Notifications.MarkRead)
	notifications.Delete("/:id", h.Notifications.Delete)

	api.Get("/ws/notifications", h.Notifications.Upgrade, g.QueryAuth, h.Notifications.Stream())
}
