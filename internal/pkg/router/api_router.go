package router

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/ManuelReschke/GuildPay/app/controllers"
	"github.com/ManuelReschke/GuildPay/internal/pkg/middleware"
)

const webhookPath = "/api/webhooks/"

type ApiRouter struct {
	handlers *controllers.Handlers
	opts     Options
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
		Storage:    h.opts.LimiterStorage,
		// Provider deliveries arrive from a few shared addresses.
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), webhookPath)
		},
	}))

	api.Get("/health", h.handlers.HandleHealth)
	api.Post("/webhooks/maxelpay", h.handlers.HandleMaxelPayWebhook)
	api.Post("/invoices", h.handlers.HandleCreateInvoice)
	api.Get("/orders/:id", h.handlers.HandleGetOrder)

	admin := api.Group("/admin", middleware.AdminAPIKey(h.opts.AdminKeyHash))
	admin.Get("/payouts", h.handlers.HandleAdminPayouts)
	admin.Post("/payouts/:id/requeue", h.handlers.HandleAdminRequeuePayout)
	admin.Get("/role-grants", h.handlers.HandleAdminRoleGrants)
	admin.Post("/role-grants/:id/requeue", h.handlers.HandleAdminRequeueRoleGrant)
	admin.Get("/stats", h.handlers.HandleAdminStats)
}

func NewApiRouter(h *controllers.Handlers, opts Options) *ApiRouter {
	return &ApiRouter{handlers: h, opts: opts}
}
