package models

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestResolveActualQty(t *testing.T) {
	systemQty := decimal.NewFromInt(40)

	t.Run("nil line keeps system quantity", func(t *testing.T) {
		if got := resolveActualQty(systemQty, nil); !got.Equal(systemQty) {
			t.Fatalf("got %s, want %s", got, systemQty)
		}
	})

	t.Run("out of stock wins over counted value", func(t *testing.T) {
		counted := decimal.NewFromInt(12)
		got := resolveActualQty(systemQty, &NewStockOpnameLine{OutOfStock: true, CountedQty: &counted})
		if !got.Equal(decimal.Zero) {
			t.Fatalf("got %s, want 0", got)
		}
	})

	t.Run("counted value applies", func(t *testing.T) {
		counted := decimal.NewFromInt(37)
		got := resolveActualQty(systemQty, &NewStockOpnameLine{CountedQty: &counted})
		if !got.Equal(counted) {
			t.Fatalf("got %s, want %s", got, counted)
		}
	})

	t.Run("blank line keeps system quantity", func(t *testing.T) {
		got := resolveActualQty(systemQty, &NewStockOpnameLine{})
		if !got.Equal(systemQty) {
			t.Fatalf("got %s, want %s", got, systemQty)
		}
	})
}

func TestNewStockOpnameValidate(t *testing.T) {
	counted := decimal.NewFromInt(5)
	negative := decimal.NewFromInt(-1)

	t.Run("spot requires exactly one line", func(t *testing.T) {
		input := &NewStockOpname{Mode: StockOpnameModeSpot, Lines: []*NewStockOpnameLine{
			{ItemId: 1, CountedQty: &counted},
			{ItemId: 2, CountedQty: &counted},
		}}
		var vErr *ValidationError
		if !errors.As(input.validate(), &vErr) {
			t.Fatalf("want ValidationError")
		}
	})

	t.Run("spot line needs a count or out-of-stock", func(t *testing.T) {
		input := &NewStockOpname{Mode: StockOpnameModeSpot, Lines: []*NewStockOpnameLine{
			{ItemId: 1},
		}}
		var vErr *ValidationError
		if !errors.As(input.validate(), &vErr) {
			t.Fatalf("want ValidationError")
		}
	})

	t.Run("spot out-of-stock without count is valid", func(t *testing.T) {
		input := &NewStockOpname{Mode: StockOpnameModeSpot, Lines: []*NewStockOpnameLine{
			{ItemId: 1, OutOfStock: true},
		}}
		if err := input.validate(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("batch allows no lines", func(t *testing.T) {
		input := &NewStockOpname{Mode: StockOpnameModeBatch}
		if err := input.validate(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("rejects duplicate item", func(t *testing.T) {
		input := &NewStockOpname{Mode: StockOpnameModeBatch, Lines: []*NewStockOpnameLine{
			{ItemId: 1, CountedQty: &counted},
			{ItemId: 1, CountedQty: &counted},
		}}
		var vErr *ValidationError
		if !errors.As(input.validate(), &vErr) {
			t.Fatalf("want ValidationError")
		}
	})

	t.Run("rejects negative count", func(t *testing.T) {
		input := &NewStockOpname{Mode: StockOpnameModeBatch, Lines: []*NewStockOpnameLine{
			{ItemId: 1, CountedQty: &negative},
		}}
		var vErr *ValidationError
		if !errors.As(input.validate(), &vErr) {
			t.Fatalf("want ValidationError")
		}
	})

	t.Run("rejects unknown mode", func(t *testing.T) {
		input := &NewStockOpname{Mode: StockOpnameMode("Rolling")}
		var vErr *ValidationError
		if !errors.As(input.validate(), &vErr) {
			t.Fatalf("want ValidationError")
		}
	})
}
