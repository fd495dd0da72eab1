package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/GuildPay/app/repository"
	"github.com/ManuelReschke/GuildPay/internal/pkg/invoice"
	"github.com/ManuelReschke/GuildPay/internal/pkg/jobqueue"
	"github.com/ManuelReschke/GuildPay/internal/pkg/webhook"
)

const requestTimeout = 15 * time.Second

// Handlers holds the dependencies of every HTTP endpoint. All fields are
// constructed by the caller; nothing is looked up from global state.
type Handlers struct {
	Ledger   repository.Ledger
	Verifier webhook.Verifier
	Webhooks *webhook.Service
	Invoices *invoice.Service
	Stats    jobqueue.Stats
	// Ping reports backend health for /api/health. Optional.
	Ping func(ctx context.Context) error
}

func jsonError(c *fiber.Ctx, status int, code string) error {
	return c.Status(status).JSON(fiber.Map{"error": code})
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func requestContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), requestTimeout)
}
