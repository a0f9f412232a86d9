package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidPaymentMethod(t *testing.T) {
	for _, m := range []string{"COD", "Card", "UPI", "Net Banking"} {
		require.True(t, ValidPaymentMethod(m), m)
	}
	require.False(t, ValidPaymentMethod("Bitcoin"))
	require.False(t, ValidPaymentMethod(""))
	require.False(t, ValidPaymentMethod("cod"))
}

func TestValidStatusUpdate(t *testing.T) {
	for _, s := range []OrderStatus{OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered} {
		require.True(t, ValidStatusUpdate(s), string(s))
	}
	require.False(t, ValidStatusUpdate(OrderStatusCancelled))
	require.False(t, ValidStatusUpdate("Returned"))
}

func TestCancellable(t *testing.T) {
	require.True(t, Cancellable(OrderStatusPending))
	require.True(t, Cancellable(OrderStatusProcessing))
	require.True(t, Cancellable(OrderStatusCancelled))
	require.False(t, Cancellable(OrderStatusShipped))
	require.False(t, Cancellable(OrderStatusDelivered))
}
