package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/GuildPay/app/models"
	"github.com/ManuelReschke/GuildPay/app/repository"
)

const (
	defaultAdminLimit = 50
	maxAdminLimit     = 200
)

var payoutStatuses = map[string]models.PayoutStatus{
	string(models.PayoutStatusQueued):    models.PayoutStatusQueued,
	string(models.PayoutStatusRequested): models.PayoutStatusRequested,
	string(models.PayoutStatusSent):      models.PayoutStatusSent,
	string(models.PayoutStatusConfirmed): models.PayoutStatusConfirmed,
	string(models.PayoutStatusFailed):    models.PayoutStatusFailed,
}

var roleGrantStatuses = map[string]models.RoleGrantStatus{
	string(models.RoleGrantStatusQueued): models.RoleGrantStatusQueued,
	string(models.RoleGrantStatusDone):   models.RoleGrantStatusDone,
	string(models.RoleGrantStatusFailed): models.RoleGrantStatusFailed,
}

// HandleAdminPayouts lists payouts by status, FAILED by default.
func (h *Handlers) HandleAdminPayouts(c *fiber.Ctx) error {
	status, ok := payoutStatuses[strings.ToUpper(c.Query("status", string(models.PayoutStatusFailed)))]
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "invalid_status")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	rows, err := h.Ledger.Repos().Payout.ListByStatus(ctx, []models.PayoutStatus{status}, adminLimit(c))
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error")
	}
	return c.JSON(fiber.Map{"ok": true, "status": status, "items": rows})
}

// HandleAdminRoleGrants lists role grants by status, FAILED by default.
func (h *Handlers) HandleAdminRoleGrants(c *fiber.Ctx) error {
	status, ok := roleGrantStatuses[strings.ToUpper(c.Query("status", string(models.RoleGrantStatusFailed)))]
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "invalid_status")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	rows, err := h.Ledger.Repos().RoleGrant.ListByStatus(ctx, []models.RoleGrantStatus{status}, adminLimit(c))
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error")
	}
	for i := range rows {
		rows[i].Product = nil
	}
	return c.JSON(fiber.Map{"ok": true, "status": status, "items": rows})
}

// HandleAdminRequeuePayout gives a FAILED payout a fresh attempt budget. Rows that
// already have a provider id resume polling instead of submitting again.
func (h *Handlers) HandleAdminRequeuePayout(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	repo := h.Ledger.Repos().Payout
	row, err := repo.GetByID(ctx, c.Params("id"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return jsonError(c, fiber.StatusNotFound, "not_found")
	}
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error")
	}

	next := models.PayoutStatusQueued
	if row.ExternalID != nil && *row.ExternalID != "" {
		next = models.PayoutStatusRequested
	}
	err = repo.Transition(ctx, row.ID, models.PayoutStatusFailed, repository.PayoutChange{Status: next})
	if errors.Is(err, repository.ErrStatusMismatch) {
		return jsonError(c, fiber.StatusConflict, "not_failed")
	}
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error")
	}

	log.Infof("[Admin] Requeued payout %s as %s", row.ID, next)
	return c.JSON(fiber.Map{"ok": true, "id": row.ID, "status": next})
}

func (h *Handlers) HandleAdminRequeueRoleGrant(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	repo := h.Ledger.Repos().RoleGrant
	row, err := repo.GetByID(ctx, c.Params("id"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return jsonError(c, fiber.StatusNotFound, "not_found")
	}
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error")
	}

	err = repo.Transition(ctx, row.ID, models.RoleGrantStatusFailed, repository.RoleGrantChange{Status: models.RoleGrantStatusQueued})
	if errors.Is(err, repository.ErrStatusMismatch) {
		return jsonError(c, fiber.StatusConflict, "not_failed")
	}
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error")
	}

	log.Infof("[Admin] Requeued role grant %s", row.ID)
	return c.JSON(fiber.Map{"ok": true, "id": row.ID, "status": models.RoleGrantStatusQueued})
}

// HandleAdminStats returns the worker outcome counters.
func (h *Handlers) HandleAdminStats(c *fiber.Ctx) error {
	if h.Stats == nil {
		return c.JSON(fiber.Map{"ok": true, "stats": fiber.Map{}})
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	snapshot, err := h.Stats.Snapshot(ctx)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "stats_unavailable")
	}
	return c.JSON(fiber.Map{"ok": true, "stats": snapshot})
}

func adminLimit(c *fiber.Ctx) int {
	limit := c.QueryInt("limit", defaultAdminLimit)
	if limit <= 0 {
		return defaultAdminLimit
	}
	if limit > maxAdminLimit {
		return maxAdminLimit
	}
	return limit
}
