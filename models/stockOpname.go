package models

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warungpos/procure_backend/config"
	"github.com/warungpos/procure_backend/utils"
)

// StockOpname is a posted physical count. Batch mode sweeps every tracked
// item in the outlet; Spot mode corrects exactly one. The record is immutable
// once posted, so the variance trail survives later stock movement.
type StockOpname struct {
	ID             int                `gorm:"primary_key" json:"id"`
	OutletCode     string             `gorm:"uniqueIndex:idx_so_doc;size:20;not null" json:"outlet_code"`
	DocumentNumber string             `gorm:"uniqueIndex:idx_so_doc;size:30;not null" json:"document_number"`
	SequenceNo     int64              `gorm:"not null" json:"sequence_no"`
	Mode           StockOpnameMode    `gorm:"size:10;not null" json:"mode"`
	OpnameDate     time.Time          `json:"opname_date"`
	Note           string             `gorm:"size:255" json:"note"`
	Items          []*StockOpnameItem `json:"items,omitempty"`
	CreatedBy      int                `json:"created_by"`
	CreatedAt      time.Time          `gorm:"autoCreateTime" json:"created_at"`
}

// StockOpnameItem keeps both sides of the count: what the system said and
// what was found, plus the cost-weighted variance at posting time.
type StockOpnameItem struct {
	ID            int             `gorm:"primary_key" json:"id"`
	StockOpnameId int             `gorm:"index;not null" json:"stock_opname_id"`
	ItemId        int             `gorm:"not null" json:"item_id"`
	Item          *Item           `json:"item,omitempty"`
	SystemQty     decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"system_qty"`
	ActualQty     decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"actual_qty"`
	DiffQty       decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"diff_qty"`
	VarianceValue decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"variance_value"`
	Note          string          `gorm:"size:255" json:"note"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewStockOpnameLine struct {
	ItemId int `json:"item_id" binding:"required"`
	// CountedQty is the counted quantity in base units. Nil with OutOfStock
	// false leaves the item untouched in a batch count.
	CountedQty *decimal.Decimal `json:"counted_qty"`
	OutOfStock bool             `json:"out_of_stock"`
	Note       string           `json:"note"`
}

type NewStockOpname struct {
	Mode       StockOpnameMode       `json:"mode" binding:"required"`
	OpnameDate time.Time             `json:"opname_date"`
	Note       string                `json:"note"`
	Lines      []*NewStockOpnameLine `json:"lines"`
}

// resolveActualQty turns one count line into the actual quantity. OutOfStock
// wins over any counted value; a blank line keeps the system quantity, which
// posts a zero-diff row and moves nothing.
func resolveActualQty(systemQty decimal.Decimal, line *NewStockOpnameLine) decimal.Decimal {
	if line == nil {
		return systemQty
	}
	if line.OutOfStock {
		return decimal.Zero
	}
	if line.CountedQty != nil {
		return *line.CountedQty
	}
	return systemQty
}

func (input *NewStockOpname) validate() error {
	if input.Mode != StockOpnameModeBatch && input.Mode != StockOpnameModeSpot {
		return newValidationError("mode", "mode must be Batch or Spot")
	}
	if input.Mode == StockOpnameModeSpot {
		if len(input.Lines) != 1 {
			return newValidationError("lines", "spot opname takes exactly one line")
		}
		line := input.Lines[0]
		if !line.OutOfStock && line.CountedQty == nil {
			return newValidationError("counted_qty", "spot opname requires a counted quantity")
		}
	}
	seen := map[int]bool{}
	for i, line := range input.Lines {
		if seen[line.ItemId] {
			return newLineValidationError(i+1, "item_id", "item appears more than once")
		}
		seen[line.ItemId] = true
		if line.CountedQty != nil && line.CountedQty.IsNegative() {
			return newLineValidationError(i+1, "counted_qty", "counted quantity cannot be negative")
		}
	}
	return nil
}

// CreateStockOpname posts a count and snaps every differing balance to its
// counted value under row locks.
func CreateStockOpname(ctx context.Context, input *NewStockOpname) (*StockOpname, error) {
	outletCode, err := outletCodeFromContext(ctx)
	if err != nil {
		return nil, err
	}
	userId := userIdFromContext(ctx)

	if err := input.validate(); err != nil {
		return nil, err
	}

	lineByItemId := make(map[int]*NewStockOpnameLine, len(input.Lines))
	itemIds := []int{}
	for _, line := range input.Lines {
		lineByItemId[line.ItemId] = line
		itemIds = append(itemIds, line.ItemId)
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer tx.Rollback()

	// batch sweeps every balance row in the outlet; spot touches only the
	// named item
	countedItemIds := itemIds
	if input.Mode == StockOpnameModeBatch {
		var balances []*InventoryBalance
		if err := tx.Where("outlet_code = ?", outletCode).Order("item_id").Find(&balances).Error; err != nil {
			return nil, err
		}
		known := map[int]bool{}
		countedItemIds = []int{}
		for _, balance := range balances {
			countedItemIds = append(countedItemIds, balance.ItemId)
			known[balance.ItemId] = true
		}
		// counted items that never moved before still get a row
		for _, id := range itemIds {
			if !known[id] {
				countedItemIds = append(countedItemIds, id)
			}
		}
	}
	if len(countedItemIds) == 0 {
		return nil, newValidationError("lines", "nothing to count")
	}

	itemsById, err := fetchItemsById(ctx, outletCode, countedItemIds)
	if err != nil {
		return nil, err
	}
	for i, line := range input.Lines {
		if _, found := itemsById[line.ItemId]; !found {
			return nil, newLineValidationError(i+1, "item_id", "item not found")
		}
	}

	opnameDate := input.OpnameDate
	if opnameDate.IsZero() {
		opnameDate = time.Now()
	}

	sequenceNo, documentNumber, err := nextDocumentNumber[StockOpname](ctx, outletCode, DocPrefixStockOpname)
	if err != nil {
		return nil, err
	}
	opname := StockOpname{
		OutletCode:     outletCode,
		DocumentNumber: documentNumber,
		SequenceNo:     sequenceNo,
		Mode:           input.Mode,
		OpnameDate:     opnameDate,
		Note:           input.Note,
		CreatedBy:      userId,
	}

	for _, itemId := range countedItemIds {
		item, found := itemsById[itemId]
		if !found {
			return nil, newValidationError("item_id", "item not found")
		}

		balance, err := lockInventoryBalance(tx, outletCode, itemId)
		if err != nil {
			return nil, err
		}

		line := lineByItemId[itemId]
		lineNote := ""
		if line != nil {
			lineNote = line.Note
		}
		actualQty := resolveActualQty(balance.QtyOnHand, line)
		diff := actualQty.Sub(balance.QtyOnHand)
		opname.Items = append(opname.Items, &StockOpnameItem{
			ItemId:        itemId,
			SystemQty:     balance.QtyOnHand,
			ActualQty:     actualQty,
			DiffQty:       diff,
			VarianceValue: diff.Mul(item.UnitCost),
			Note:          lineNote,
		})

		if !diff.IsZero() {
			if err := setInventoryQty(tx, outletCode, itemId, actualQty); err != nil {
				return nil, err
			}
		}
	}

	if err := tx.Create(&opname).Error; err != nil {
		if isDuplicateKeyError(err) {
			return nil, newConflictError("document number collision, retry the request")
		}
		return nil, err
	}

	err = publishEvent(ctx, tx, OutboxEventOpnamePosted, "StockOpname", opname.ID, map[string]interface{}{
		"document_number": opname.DocumentNumber,
		"mode":            opname.Mode,
		"item_count":      len(opname.Items),
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &opname, nil
}

func GetStockOpname(ctx context.Context, id int) (*StockOpname, error) {
	outletCode, err := outletCodeFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[StockOpname](ctx, outletCode, id, "Items", "Items.Item")
}

func GetStockOpnames(ctx context.Context, mode *StockOpnameMode) ([]*StockOpname, error) {
	outletCode, err := outletCodeFromContext(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("outlet_code = ?", outletCode)
	if mode != nil {
		dbCtx = dbCtx.Where("mode = ?", *mode)
	}

	var results []*StockOpname
	if err := dbCtx.Order("id desc").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
