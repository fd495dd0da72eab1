package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/GuildPay/internal/pkg/webhook"
)

// HandleMaxelPayWebhook verifies and applies one provider delivery. Duplicates,
// unknown invoices and ignored event types are acknowledged with 200 so the
// provider stops redelivering; processing errors answer 500 to trigger a retry.
func (h *Handlers) HandleMaxelPayWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)

	if err := h.Verifier.Verify(rawBody, c.Get(webhook.TimestampHeader), c.Get(webhook.SignatureHeader)); err != nil {
		log.Warnf("[Webhook] Rejected delivery from %s: %v", c.IP(), err)
		return jsonError(c, fiber.StatusUnauthorized, "invalid_signature")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.Webhooks.Process(ctx, rawBody)
	if errors.Is(err, webhook.ErrMalformedEvent) {
		return jsonError(c, fiber.StatusBadRequest, "invalid_payload")
	}
	if err != nil {
		log.Errorf("[Webhook] Processing failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "webhook_processing_failed")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"ok":      true,
		"outcome": result.Outcome,
	})
}
