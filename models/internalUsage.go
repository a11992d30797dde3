package models

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warungpos/procure_backend/config"
	"github.com/warungpos/procure_backend/utils"
)

// InternalUsage records stock taken out for the outlet's own consumption.
// Quantities come off on-hand immediately; a line that would drive a balance
// negative fails the whole document.
type InternalUsage struct {
	ID             int                  `gorm:"primary_key" json:"id"`
	OutletCode     string               `gorm:"uniqueIndex:idx_iu_doc;size:20;not null" json:"outlet_code"`
	DocumentNumber string               `gorm:"uniqueIndex:idx_iu_doc;size:30;not null" json:"document_number"`
	SequenceNo     int64                `gorm:"not null" json:"sequence_no"`
	UsageDate      time.Time            `json:"usage_date"`
	Category       string               `gorm:"size:50" json:"category"`
	Reason         string               `gorm:"size:255" json:"reason"`
	Lines          []*InternalUsageLine `json:"lines,omitempty"`
	CreatedBy      int                  `json:"created_by"`
	CreatedAt      time.Time            `gorm:"autoCreateTime" json:"created_at"`
}

type InternalUsageLine struct {
	ID              int             `gorm:"primary_key" json:"id"`
	InternalUsageId int             `gorm:"index;not null" json:"internal_usage_id"`
	ItemId          int             `gorm:"not null" json:"item_id"`
	Item            *Item           `json:"item,omitempty"`
	Qty             decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"qty"`
	Unit            string          `gorm:"size:20" json:"unit"`
	Note            string          `gorm:"size:255" json:"note"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewInternalLedgerLine struct {
	ItemId int             `json:"item_id" binding:"required"`
	Qty    decimal.Decimal `json:"qty" binding:"required"`
	// Unit is free text; blank falls back to the item's base unit.
	Unit string `json:"unit"`
	Note string `json:"note"`
}

type NewInternalUsage struct {
	UsageDate time.Time                `json:"usage_date"`
	Category  string                   `json:"category"`
	Reason    string                   `json:"reason"`
	Lines     []*NewInternalLedgerLine `json:"lines" binding:"required"`
}

// resolveLedgerLineUnits fills blank line units from the item's base unit.
// Quantities on these documents are always in base units, so that is the only
// sensible default.
func resolveLedgerLineUnits(ctx context.Context, outletCode string, lines []*NewInternalLedgerLine) error {
	itemIds := []int{}
	for _, line := range lines {
		if line.Unit == "" {
			itemIds = append(itemIds, line.ItemId)
		}
	}
	if len(itemIds) == 0 {
		return nil
	}
	itemsById, err := fetchItemsById(ctx, outletCode, itemIds)
	if err != nil {
		return err
	}
	for _, line := range lines {
		if line.Unit == "" {
			if item, found := itemsById[line.ItemId]; found {
				line.Unit = item.BaseUnit
			}
		}
	}
	return nil
}

func validateLedgerLines(lines []*NewInternalLedgerLine) error {
	if len(lines) == 0 {
		return newValidationError("lines", "document requires at least one line")
	}
	seen := map[int]bool{}
	for i, line := range lines {
		if seen[line.ItemId] {
			return newLineValidationError(i+1, "item_id", "item appears more than once")
		}
		seen[line.ItemId] = true
		if !line.Qty.IsPositive() {
			return newLineValidationError(i+1, "qty", "quantity must be greater than zero")
		}
	}
	return nil
}

func CreateInternalUsage(ctx context.Context, input *NewInternalUsage) (*InternalUsage, error) {
	outletCode, err := outletCodeFromContext(ctx)
	if err != nil {
		return nil, err
	}
	userId := userIdFromContext(ctx)

	if err := validateLedgerLines(input.Lines); err != nil {
		return nil, err
	}

	itemIds := []int{}
	for _, line := range input.Lines {
		itemIds = append(itemIds, line.ItemId)
	}
	if err := utils.ValidateResourcesId[Item](ctx, outletCode, itemIds); err != nil {
		if err == utils.ErrorRecordNotFound {
			return nil, newValidationError("item_id", "one or more items not found")
		}
		return nil, err
	}
	if err := resolveLedgerLineUnits(ctx, outletCode, input.Lines); err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer tx.Rollback()

	// every balance is locked and checked before any decrement; one short
	// line fails the whole document
	for i, line := range input.Lines {
		balance, err := lockInventoryBalance(tx, outletCode, line.ItemId)
		if err != nil {
			return nil, err
		}
		if balance.QtyOnHand.LessThan(line.Qty) {
			return nil, newLineValidationError(i+1, "qty", "insufficient stock")
		}
	}
	for _, line := range input.Lines {
		if err := addInventoryQty(tx, outletCode, line.ItemId, line.Qty.Neg()); err != nil {
			return nil, err
		}
	}

	usageDate := input.UsageDate
	if usageDate.IsZero() {
		usageDate = time.Now()
	}

	sequenceNo, documentNumber, err := nextDocumentNumber[InternalUsage](ctx, outletCode, DocPrefixInternalUsage)
	if err != nil {
		return nil, err
	}
	usage := InternalUsage{
		OutletCode:     outletCode,
		DocumentNumber: documentNumber,
		SequenceNo:     sequenceNo,
		UsageDate:      usageDate,
		Category:       input.Category,
		Reason:         input.Reason,
		CreatedBy:      userId,
	}
	for _, line := range input.Lines {
		usage.Lines = append(usage.Lines, &InternalUsageLine{
			ItemId: line.ItemId,
			Qty:    line.Qty,
			Unit:   line.Unit,
			Note:   line.Note,
		})
	}

	if err := tx.Create(&usage).Error; err != nil {
		if isDuplicateKeyError(err) {
			return nil, newConflictError("document number collision, retry the request")
		}
		return nil, err
	}

	err = publishEvent(ctx, tx, OutboxEventUsagePosted, "InternalUsage", usage.ID, map[string]interface{}{
		"document_number": usage.DocumentNumber,
		"line_count":      len(usage.Lines),
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &usage, nil
}

func GetInternalUsage(ctx context.Context, id int) (*InternalUsage, error) {
	outletCode, err := outletCodeFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[InternalUsage](ctx, outletCode, id, "Lines", "Lines.Item")
}

func GetInternalUsages(ctx context.Context) ([]*InternalUsage, error) {
	outletCode, err := outletCodeFromContext(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var results []*InternalUsage
	err = db.WithContext(ctx).
		Where("outlet_code = ?", outletCode).
		Order("id desc").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
