package models

import (
	"errors"
	"testing"
	"time"
)

func TestNewInvoiceValidate(t *testing.T) {
	dueDate := time.Now().AddDate(0, 0, 14)
	var zero time.Time

	t.Run("missing supplier reference", func(t *testing.T) {
		input := &NewInvoice{PurchaseOrderId: 1, DueDate: &dueDate}
		var vErr *ValidationError
		if err := input.validate(); !errors.As(err, &vErr) || vErr.Field != "supplier_reference" {
			t.Fatalf("got %v", err)
		}
	})

	t.Run("blank supplier reference", func(t *testing.T) {
		input := &NewInvoice{PurchaseOrderId: 1, SupplierReference: "   ", DueDate: &dueDate}
		var vErr *ValidationError
		if err := input.validate(); !errors.As(err, &vErr) || vErr.Field != "supplier_reference" {
			t.Fatalf("got %v", err)
		}
	})

	t.Run("missing due date", func(t *testing.T) {
		input := &NewInvoice{PurchaseOrderId: 1, SupplierReference: "SUP/1"}
		var vErr *ValidationError
		if err := input.validate(); !errors.As(err, &vErr) || vErr.Field != "due_date" {
			t.Fatalf("got %v", err)
		}
	})

	t.Run("zero due date", func(t *testing.T) {
		input := &NewInvoice{PurchaseOrderId: 1, SupplierReference: "SUP/1", DueDate: &zero}
		var vErr *ValidationError
		if err := input.validate(); !errors.As(err, &vErr) || vErr.Field != "due_date" {
			t.Fatalf("got %v", err)
		}
	})

	t.Run("complete", func(t *testing.T) {
		input := &NewInvoice{PurchaseOrderId: 1, SupplierReference: "SUP/1", DueDate: &dueDate}
		if err := input.validate(); err != nil {
			t.Fatalf("got %v", err)
		}
	})
}
