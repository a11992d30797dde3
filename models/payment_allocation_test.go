package models

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func amount(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func TestBuildAllocation(t *testing.T) {
	remaining := decimal.NewFromInt(1000)

	t.Run("nil amount settles remainder after discount", func(t *testing.T) {
		cash, err := buildAllocation("INV-X-00001", remaining, &NewPaymentBill{
			Discount: decimal.NewFromInt(100),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !cash.Equal(decimal.NewFromInt(900)) {
			t.Fatalf("cash = %s, want 900", cash)
		}
	})

	t.Run("discount equal to remaining costs no cash", func(t *testing.T) {
		cash, err := buildAllocation("INV-X-00001", remaining, &NewPaymentBill{
			Discount: decimal.NewFromInt(1000),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !cash.Equal(decimal.Zero) {
			t.Fatalf("cash = %s, want 0", cash)
		}
	})

	t.Run("explicit partial amount", func(t *testing.T) {
		cash, err := buildAllocation("INV-X-00001", remaining, &NewPaymentBill{
			Amount: amount(400),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !cash.Equal(decimal.NewFromInt(400)) {
			t.Fatalf("cash = %s, want 400", cash)
		}
	})

	t.Run("discount above remaining names the invoice", func(t *testing.T) {
		_, err := buildAllocation("INV-X-00007", remaining, &NewPaymentBill{
			Discount: decimal.NewFromInt(1001),
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("want ValidationError, got %v", err)
		}
		if vErr.Field != "discount" {
			t.Fatalf("field = %s, want discount", vErr.Field)
		}
	})

	t.Run("amount plus discount may not overpay", func(t *testing.T) {
		_, err := buildAllocation("INV-X-00001", remaining, &NewPaymentBill{
			Amount:   amount(950),
			Discount: decimal.NewFromInt(100),
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("want ValidationError, got %v", err)
		}
	})

	t.Run("rejects zero explicit amount", func(t *testing.T) {
		_, err := buildAllocation("INV-X-00001", remaining, &NewPaymentBill{
			Amount: amount(0),
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("want ValidationError, got %v", err)
		}
	})

	t.Run("rejects negative discount", func(t *testing.T) {
		_, err := buildAllocation("INV-X-00001", remaining, &NewPaymentBill{
			Discount: decimal.NewFromInt(-5),
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("want ValidationError, got %v", err)
		}
	})
}

func TestInvoiceRemainingAmount(t *testing.T) {
	inv := &Invoice{Total: decimal.NewFromInt(500), PaidAmount: decimal.NewFromInt(200)}
	if got := inv.RemainingAmount(); !got.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("remaining = %s, want 300", got)
	}

	overpaid := &Invoice{Total: decimal.NewFromInt(500), PaidAmount: decimal.NewFromInt(600)}
	if got := overpaid.RemainingAmount(); !got.Equal(decimal.Zero) {
		t.Fatalf("overpaid remaining = %s, want 0", got)
	}
}
