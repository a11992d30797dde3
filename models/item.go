package models

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warungpos/procure_backend/config"
	"github.com/warungpos/procure_backend/utils"
)

// Item is the master-data record the engine reads when a product is put on a
// purchase order or counted: unit conversion, current buy price, unit cost.
type Item struct {
	ID           int    `gorm:"primary_key" json:"id"`
	OutletCode   string `gorm:"index;size:20;not null" json:"outlet_code"`
	Sku          string `gorm:"size:50" json:"sku"`
	Name         string `gorm:"size:100;not null" json:"name" binding:"required"`
	CategoryId   int    `gorm:"default:null" json:"category_id"`
	BaseUnit     string `gorm:"size:20;not null" json:"base_unit" binding:"required"`
	PurchaseUnit string `gorm:"size:20;not null" json:"purchase_unit" binding:"required"`
	// ConversionRate converts one purchase unit into base inventory units.
	ConversionRate decimal.Decimal `gorm:"type:decimal(20,4);default:1" json:"conversion_rate"`
	PurchasePrice  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"purchase_price"`
	UnitCost       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_cost"`
	IsActive       *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewItem struct {
	Sku            string          `json:"sku"`
	Name           string          `json:"name" binding:"required"`
	CategoryId     int             `json:"category_id"`
	BaseUnit       string          `json:"base_unit" binding:"required"`
	PurchaseUnit   string          `json:"purchase_unit" binding:"required"`
	ConversionRate decimal.Decimal `json:"conversion_rate"`
	PurchasePrice  decimal.Decimal `json:"purchase_price"`
	UnitCost       decimal.Decimal `json:"unit_cost"`
}

func (input *NewItem) validate(ctx context.Context, outletCode string, id int) error {
	if err := utils.ValidateUnique[Item](ctx, outletCode, "name", input.Name, id); err != nil {
		if err == utils.ErrorNotUnique {
			return newValidationError("name", "item name already exists")
		}
		return err
	}
	if input.ConversionRate.IsNegative() || input.ConversionRate.IsZero() {
		return newValidationError("conversion_rate", "conversion rate must be greater than zero")
	}
	if input.PurchasePrice.IsNegative() {
		return newValidationError("purchase_price", "purchase price cannot be negative")
	}
	if input.UnitCost.IsNegative() {
		return newValidationError("unit_cost", "unit cost cannot be negative")
	}
	return nil
}

func CreateItem(ctx context.Context, input *NewItem) (*Item, error) {
	outletCode, err := outletCodeFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if input.ConversionRate.IsZero() {
		input.ConversionRate = decimal.NewFromInt(1)
	}
	if err := input.validate(ctx, outletCode, 0); err != nil {
		return nil, err
	}

	item := Item{
		OutletCode:     outletCode,
		Sku:            input.Sku,
		Name:           input.Name,
		CategoryId:     input.CategoryId,
		BaseUnit:       input.BaseUnit,
		PurchaseUnit:   input.PurchaseUnit,
		ConversionRate: input.ConversionRate,
		PurchasePrice:  input.PurchasePrice,
		UnitCost:       input.UnitCost,
		IsActive:       utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func UpdateItem(ctx context.Context, id int, input *NewItem) (*Item, error) {
	outletCode, err := outletCodeFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if input.ConversionRate.IsZero() {
		input.ConversionRate = decimal.NewFromInt(1)
	}
	if err := input.validate(ctx, outletCode, id); err != nil {
		return nil, err
	}

	item, err := utils.FetchModel[Item](ctx, outletCode, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(item).Updates(map[string]interface{}{
		"Sku":            input.Sku,
		"Name":           input.Name,
		"CategoryId":     input.CategoryId,
		"BaseUnit":       input.BaseUnit,
		"PurchaseUnit":   input.PurchaseUnit,
		"ConversionRate": input.ConversionRate,
		"PurchasePrice":  input.PurchasePrice,
		"UnitCost":       input.UnitCost,
	}).Error
	if err != nil {
		return nil, err
	}
	return item, nil
}

func ToggleActiveItem(ctx context.Context, id int, isActive bool) (*Item, error) {
	outletCode, err := outletCodeFromContext(ctx)
	if err != nil {
		return nil, err
	}

	item, err := utils.FetchModel[Item](ctx, outletCode, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(item).UpdateColumn("IsActive", isActive).Error; err != nil {
		return nil, err
	}
	return item, nil
}

func GetItem(ctx context.Context, id int) (*Item, error) {
	outletCode, err := outletCodeFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[Item](ctx, outletCode, id)
}

func GetItems(ctx context.Context, name *string) ([]*Item, error) {
	outletCode, err := outletCodeFromContext(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var results []*Item
	dbCtx := db.WithContext(ctx).Where("outlet_code = ?", outletCode)
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	if err := dbCtx.Order("name").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// fetchItemsById loads and indexes the referenced items, rejecting ids that do
// not resolve within the outlet.
func fetchItemsById(ctx context.Context, outletCode string, ids []int) (map[int]*Item, error) {
	db := config.GetDB()
	var items []*Item
	if err := db.WithContext(ctx).
		Where("outlet_code = ? AND id IN ?", outletCode, utils.UniqueSlice(ids)).
		Find(&items).Error; err != nil {
		return nil, err
	}
	byId := make(map[int]*Item, len(items))
	for _, item := range items {
		byId[item.ID] = item
	}
	return byId, nil
}
