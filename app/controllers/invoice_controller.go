package controllers

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/GuildPay/internal/pkg/invoice"
)

// HandleCreateInvoice opens a checkout for one product.
func (h *Handlers) HandleCreateInvoice(c *fiber.Ctx) error {
	var req invoice.Request
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_body")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	checkout, err := h.Invoices.Create(ctx, req)
	var validationErrs validator.ValidationErrors
	switch {
	case err == nil:
		return c.Status(fiber.StatusOK).JSON(checkout)
	case errors.As(err, &validationErrs):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "fields": fieldNames(validationErrs)})
	case errors.Is(err, invoice.ErrProductUnavailable):
		return jsonError(c, fiber.StatusNotFound, "product_not_found")
	case errors.Is(err, invoice.ErrInvalidPrice):
		return jsonError(c, fiber.StatusBadRequest, "invalid_price")
	default:
		return jsonError(c, fiber.StatusInternalServerError, "invoice_create_failed")
	}
}

func fieldNames(errs validator.ValidationErrors) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Field())
	}
	return out
}
