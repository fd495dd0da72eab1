package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderStatusTransitions(t *testing.T) {
	assert.True(t, OrderStatusPending.CanTransition(OrderStatusPaid))
	assert.True(t, OrderStatusPending.CanTransition(OrderStatusExpired))
	assert.True(t, OrderStatusPending.CanTransition(OrderStatusCanceled))
	assert.True(t, OrderStatusExpired.CanTransition(OrderStatusPaid))
	assert.True(t, OrderStatusCanceled.CanTransition(OrderStatusPaid))

	for _, s := range []OrderStatus{OrderStatusPaid, OrderStatusExpired, OrderStatusCanceled} {
		assert.False(t, s.CanTransition(OrderStatusPending), "%s must never return to PENDING", s)
	}
	assert.False(t, OrderStatusPaid.CanTransition(OrderStatusExpired))
	assert.False(t, OrderStatusPaid.CanTransition(OrderStatusCanceled))
	assert.False(t, OrderStatusExpired.CanTransition(OrderStatusCanceled))
}

func TestBeforeCreateAssignsDefaults(t *testing.T) {
	o := &Order{ProductID: "p1"}
	assert.NoError(t, o.BeforeCreate(nil))
	assert.Len(t, o.ID, 36)
	assert.Equal(t, OrderStatusPending, o.Status)

	p := &Payout{ID: "fixed"}
	assert.NoError(t, p.BeforeCreate(nil))
	assert.Equal(t, "fixed", p.ID)
	assert.Equal(t, PayoutStatusQueued, p.Status)

	g := &RoleGrant{}
	assert.NoError(t, g.BeforeCreate(nil))
	assert.Equal(t, RoleGrantStatusQueued, g.Status)
}

func TestPayoutStatusIsTerminal(t *testing.T) {
	assert.True(t, PayoutStatusConfirmed.IsTerminal())
	assert.True(t, PayoutStatusFailed.IsTerminal())
	assert.False(t, PayoutStatusQueued.IsTerminal())
	assert.False(t, PayoutStatusRequested.IsTerminal())
	assert.False(t, PayoutStatusSent.IsTerminal())
}

func TestProductHasRole(t *testing.T) {
	empty := ""
	role := "123"
	assert.False(t, (&Product{}).HasRole())
	assert.False(t, (&Product{RoleID: &empty}).HasRole())
	assert.True(t, (&Product{RoleID: &role}).HasRole())
}
