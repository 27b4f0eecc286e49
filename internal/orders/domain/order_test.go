package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		want     bool
	}{
		{OrderStatusPendingApproval, OrderStatusApproved, true},
		{OrderStatusPendingApproval, OrderStatusRejected, true},
		{OrderStatusPendingApproval, OrderStatusShipped, false},
		{OrderStatusApproved, OrderStatusProcessing, true},
		{OrderStatusApproved, OrderStatusCancelled, true},
		{OrderStatusProcessing, OrderStatusShipped, true},
		{OrderStatusProcessing, OrderStatusCompleted, true},
		{OrderStatusProcessing, OrderStatusApproved, false},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusShipped, OrderStatusProcessing, false},
		{OrderStatusDelivered, OrderStatusCompleted, true},
		{OrderStatusDelivered, OrderStatusCancelled, false},
		{OrderStatusCompleted, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusProcessing, false},
		{OrderStatusRejected, OrderStatusApproved, false},
		{OrderStatusProcessing, OrderStatusProcessing, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, OrderStatusCompleted.IsTerminal())
	assert.True(t, OrderStatusCancelled.IsTerminal())
	assert.True(t, OrderStatusRejected.IsTerminal())
	assert.False(t, OrderStatusPendingApproval.IsTerminal())
	assert.False(t, OrderStatusDelivered.IsTerminal())
	assert.False(t, OrderStatus("bogus").IsTerminal())
}

func TestParseOrderStatus(t *testing.T) {
	st, err := ParseOrderStatus("Pending Approval")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusPendingApproval, st)

	_, err = ParseOrderStatus("pending approval")
	assert.ErrorIs(t, err, ErrUnknownStatus)
	_, err = ParseOrderStatus("")
	assert.ErrorIs(t, err, ErrUnknownStatus)
}
