package router

import (
	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/monitor"

	"github.com/ManuelReschke/GuildPay/internal/pkg/middleware"
)

// HttpRouter serves the non-API surface: OpenAPI docs and the fiber monitor.
type HttpRouter struct {
	opts Options
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	if h.opts.DocsFile != "" {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/docs/api/",
			FilePath: h.opts.DocsFile,
			Path:     "v1",
			Title:    "GuildPay API",
		}))
	}

	app.Get("/metrics", middleware.AdminAPIKey(h.opts.AdminKeyHash), monitor.New(monitor.Config{Title: "GuildPay Metrics"}))
}

func NewHttpRouter(opts Options) *HttpRouter {
	return &HttpRouter{opts: opts}
}
