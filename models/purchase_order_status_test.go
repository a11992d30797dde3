package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func poItem(ordered, received int64, price int64) *PurchaseOrderItem {
	return &PurchaseOrderItem{
		QtyOrdered:  decimal.NewFromInt(ordered),
		QtyReceived: decimal.NewFromInt(received),
		UnitPrice:   decimal.NewFromInt(price),
	}
}

func TestDerivePurchaseOrderStatus(t *testing.T) {
	cases := []struct {
		name    string
		current PurchaseOrderStatus
		items   []*PurchaseOrderItem
		want    PurchaseOrderStatus
	}{
		{
			name:    "nothing received keeps current status",
			current: PurchaseOrderStatusIssued,
			items:   []*PurchaseOrderItem{poItem(10, 0, 100), poItem(5, 0, 100)},
			want:    PurchaseOrderStatusIssued,
		},
		{
			name:    "one line partially received",
			current: PurchaseOrderStatusIssued,
			items:   []*PurchaseOrderItem{poItem(10, 4, 100), poItem(5, 0, 100)},
			want:    PurchaseOrderStatusPartial,
		},
		{
			name:    "one line complete one untouched",
			current: PurchaseOrderStatusIssued,
			items:   []*PurchaseOrderItem{poItem(10, 10, 100), poItem(5, 0, 100)},
			want:    PurchaseOrderStatusPartial,
		},
		{
			name:    "all lines complete",
			current: PurchaseOrderStatusPartial,
			items:   []*PurchaseOrderItem{poItem(10, 10, 100), poItem(5, 5, 100)},
			want:    PurchaseOrderStatusCompleted,
		},
		{
			name:    "no lines keeps current status",
			current: PurchaseOrderStatusDraft,
			items:   nil,
			want:    PurchaseOrderStatusDraft,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := derivePurchaseOrderStatus(tc.current, tc.items)
			if got != tc.want {
				t.Fatalf("got %s, want %s", got, tc.want)
			}
		})
	}
}

func TestQtyRemainingNeverNegative(t *testing.T) {
	item := poItem(10, 7, 100)
	if got := item.QtyRemaining(); !got.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("remaining = %s, want 3", got)
	}

	over := poItem(10, 12, 100)
	if got := over.QtyRemaining(); !got.Equal(decimal.Zero) {
		t.Fatalf("over-received remaining = %s, want 0", got)
	}
}

func TestComputeOrderTotal(t *testing.T) {
	items := []*PurchaseOrderItem{
		{QtyOrdered: decimal.NewFromInt(3), UnitPrice: decimal.NewFromFloat(1500.50)},
		{QtyOrdered: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(200)},
	}
	want := decimal.NewFromFloat(4901.50)
	if got := computeOrderTotal(items); !got.Equal(want) {
		t.Fatalf("total = %s, want %s", got, want)
	}

	if got := computeOrderTotal(nil); !got.Equal(decimal.Zero) {
		t.Fatalf("empty total = %s, want 0", got)
	}
}
