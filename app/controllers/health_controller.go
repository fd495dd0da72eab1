package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

func (h *Handlers) HandleHealth(c *fiber.Ctx) error {
	if h.Ping != nil {
		ctx, cancel := requestContext(c)
		defer cancel()
		if err := h.Ping(ctx); err != nil {
			log.Warnf("[Health] Backend check failed: %v", err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"ok": false})
		}
	}
	return c.JSON(fiber.Map{"ok": true})
}
