package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// HandleGetOrder is the buyer-facing status poll.
func (h *Handlers) HandleGetOrder(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	order, err := h.Ledger.Repos().Order.GetByID(ctx, c.Params("id"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return jsonError(c, fiber.StatusNotFound, "not_found")
	}
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error")
	}

	response := fiber.Map{
		"id":        order.ID,
		"status":    order.Status,
		"updatedAt": formatTime(order.UpdatedAt),
		"invoiceId": order.InvoiceID,
	}
	if order.GrossMinor != nil {
		response["grossMinor"] = *order.GrossMinor
	}
	if order.FeeMinor != nil {
		response["feeMinor"] = *order.FeeMinor
	}
	if order.NetMinor != nil {
		response["netMinor"] = *order.NetMinor
	}
	return c.JSON(response)
}
