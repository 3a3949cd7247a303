package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/choco-orders/internal/domain/order"
)

func TestRender(t *testing.T) {
	earned, spent := int64(2), int64(8)
	uid := int64(7)
	orders := []order.Order{
		{
			ID:        1002,
			CreatedAt: time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC),
			Status:    order.StatusPending,
			Discount:  decimal.NewFromInt(5),
			Total:     decimal.RequireFromString("215.50"),
			UserID:    &uid,
			User:      &order.UserSummary{ID: uid, Name: "Ana Ruiz"},
			Items:     []order.Item{{Qty: 2}, {Qty: 1}},
			Meta:      &order.Meta{PointsEarned: &earned, PointsSpent: &spent},
		},
		{
			ID:        1001,
			CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
			Status:    order.StatusProcessing,
			Total:     decimal.NewFromInt(40),
			Items:     []order.Item{{Qty: 4}},
			Meta:      &order.Meta{Contact: order.Contact{Name: "Walk In"}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, render(&buf, orders))
	out := strings.ToLower(buf.String())

	for _, want := range []string{
		"1002", "2026-03-01 10:30", "ana ruiz", "pending", "215.50", "+2 -8",
		"1001", "walk in (guest)", "processing", "40.00",
		"2 orders", "255.50",
	} {
		assert.Contains(t, out, want)
	}
}

func TestCustomer(t *testing.T) {
	assert.Equal(t, "guest", customer(order.Order{}))
	assert.Equal(t, "Bo", customer(order.Order{User: &order.UserSummary{Name: "Bo"}}))
}
