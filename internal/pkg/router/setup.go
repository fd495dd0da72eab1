package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/GuildPay/app/controllers"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

// Options configures the route installation.
type Options struct {
	// AdminKeyHash is the bcrypt hash guarding /api/admin and /metrics.
	AdminKeyHash string
	// LimiterStorage backs the /api rate limiter; nil keeps counters in memory.
	LimiterStorage fiber.Storage
	// DocsFile is the OpenAPI document served under /docs/api/v1. Empty disables the docs.
	DocsFile string
}

func InstallRouter(app *fiber.App, h *controllers.Handlers, opts Options) {
	// The docs and metrics router goes first so its middleware sees every request.
	setup(app, NewHttpRouter(opts), NewApiRouter(h, opts))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
