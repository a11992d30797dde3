package models

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidateReceiptLines(t *testing.T) {
	orderItems := []*PurchaseOrderItem{
		{ID: 1, ItemId: 11, QtyOrdered: decimal.NewFromInt(10), QtyReceived: decimal.NewFromInt(4)},
		{ID: 2, ItemId: 12, QtyOrdered: decimal.NewFromInt(5), QtyReceived: decimal.Zero},
	}

	t.Run("accepts quantities within remaining", func(t *testing.T) {
		accepted, err := validateReceiptLines(orderItems, []*NewGoodsReceiptItem{
			{PurchaseOrderItemId: 1, QtyReceived: decimal.NewFromInt(6)},
			{PurchaseOrderItemId: 2, QtyReceived: decimal.NewFromInt(2)},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !accepted[1].Equal(decimal.NewFromInt(6)) || !accepted[2].Equal(decimal.NewFromInt(2)) {
			t.Fatalf("accepted = %v", accepted)
		}
	})

	t.Run("rejects over-receipt on any line", func(t *testing.T) {
		_, err := validateReceiptLines(orderItems, []*NewGoodsReceiptItem{
			{PurchaseOrderItemId: 1, QtyReceived: decimal.NewFromInt(1)},
			{PurchaseOrderItemId: 2, QtyReceived: decimal.NewFromInt(6)},
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("want ValidationError, got %v", err)
		}
		if vErr.Line != 2 {
			t.Fatalf("want line 2, got %d", vErr.Line)
		}
	})

	t.Run("rejects unknown order line", func(t *testing.T) {
		_, err := validateReceiptLines(orderItems, []*NewGoodsReceiptItem{
			{PurchaseOrderItemId: 99, QtyReceived: decimal.NewFromInt(1)},
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("want ValidationError, got %v", err)
		}
	})

	t.Run("rejects duplicate order line", func(t *testing.T) {
		_, err := validateReceiptLines(orderItems, []*NewGoodsReceiptItem{
			{PurchaseOrderItemId: 1, QtyReceived: decimal.NewFromInt(1)},
			{PurchaseOrderItemId: 1, QtyReceived: decimal.NewFromInt(1)},
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("want ValidationError, got %v", err)
		}
	})

	t.Run("rejects negative quantity", func(t *testing.T) {
		_, err := validateReceiptLines(orderItems, []*NewGoodsReceiptItem{
			{PurchaseOrderItemId: 1, QtyReceived: decimal.NewFromInt(-1)},
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("want ValidationError, got %v", err)
		}
	})

	t.Run("rejects all-zero receipt", func(t *testing.T) {
		_, err := validateReceiptLines(orderItems, []*NewGoodsReceiptItem{
			{PurchaseOrderItemId: 1, QtyReceived: decimal.Zero},
			{PurchaseOrderItemId: 2, QtyReceived: decimal.Zero},
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("want ValidationError, got %v", err)
		}
	})

	t.Run("zero line alongside a positive line is fine", func(t *testing.T) {
		accepted, err := validateReceiptLines(orderItems, []*NewGoodsReceiptItem{
			{PurchaseOrderItemId: 1, QtyReceived: decimal.Zero},
			{PurchaseOrderItemId: 2, QtyReceived: decimal.NewFromInt(5)},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !accepted[1].Equal(decimal.Zero) {
			t.Fatalf("zero line should stay zero, got %s", accepted[1])
		}
	})
}
