package models

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warungpos/procure_backend/config"
	"github.com/warungpos/procure_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InventoryBalance is the single on-hand quantity per outlet and item, kept in
// base units. Receipts, opnames and the internal ledgers all converge on this
// row.
type InventoryBalance struct {
	ID         int             `gorm:"primary_key" json:"id"`
	OutletCode string          `gorm:"uniqueIndex:idx_outlet_item;size:20;not null" json:"outlet_code"`
	ItemId     int             `gorm:"uniqueIndex:idx_outlet_item;not null" json:"item_id"`
	Item       *Item           `json:"item,omitempty"`
	QtyOnHand  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"qty_on_hand"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// lockInventoryBalance fetches the balance row FOR UPDATE, creating a zero row
// first when the item has never moved.
func lockInventoryBalance(tx *gorm.DB, outletCode string, itemId int) (*InventoryBalance, error) {
	balance := InventoryBalance{
		OutletCode: outletCode,
		ItemId:     itemId,
	}
	err := tx.Where("outlet_code = ? AND item_id = ?", outletCode, itemId).
		FirstOrCreate(&balance).Error
	if err != nil {
		return nil, err
	}

	var locked InventoryBalance
	err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("outlet_code = ? AND item_id = ?", outletCode, itemId).
		First(&locked).Error
	if err != nil {
		return nil, err
	}
	return &locked, nil
}

// addInventoryQty shifts the on-hand quantity by delta with an in-database
// increment so concurrent writers never lose updates.
func addInventoryQty(tx *gorm.DB, outletCode string, itemId int, delta decimal.Decimal) error {
	balance := InventoryBalance{
		OutletCode: outletCode,
		ItemId:     itemId,
	}
	if err := tx.Where("outlet_code = ? AND item_id = ?", outletCode, itemId).
		FirstOrCreate(&balance).Error; err != nil {
		return err
	}
	return tx.Model(&InventoryBalance{}).
		Where("outlet_code = ? AND item_id = ?", outletCode, itemId).
		Update("qty_on_hand", gorm.Expr("qty_on_hand + ?", delta)).Error
}

// setInventoryQty overwrites the on-hand quantity. The caller holds the row
// lock from lockInventoryBalance.
func setInventoryQty(tx *gorm.DB, outletCode string, itemId int, qty decimal.Decimal) error {
	return tx.Model(&InventoryBalance{}).
		Where("outlet_code = ? AND item_id = ?", outletCode, itemId).
		Update("qty_on_hand", qty).Error
}

func GetInventoryBalance(ctx context.Context, itemId int) (*InventoryBalance, error) {
	outletCode, err := outletCodeFromContext(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var balance InventoryBalance
	err = db.WithContext(ctx).Preload("Item").
		Where("outlet_code = ? AND item_id = ?", outletCode, itemId).
		First(&balance).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &balance, nil
}

func GetInventoryBalances(ctx context.Context) ([]*InventoryBalance, error) {
	outletCode, err := outletCodeFromContext(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var results []*InventoryBalance
	err = db.WithContext(ctx).Preload("Item").
		Where("outlet_code = ?", outletCode).
		Order("item_id").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
