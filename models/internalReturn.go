package models

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warungpos/procure_backend/config"
	"github.com/warungpos/procure_backend/utils"
)

// InternalReturn puts previously taken stock back on hand. Returns only need
// positive quantities; there is no upper bound against earlier usage.
type InternalReturn struct {
	ID             int                   `gorm:"primary_key" json:"id"`
	OutletCode     string                `gorm:"uniqueIndex:idx_ir_doc;size:20;not null" json:"outlet_code"`
	DocumentNumber string                `gorm:"uniqueIndex:idx_ir_doc;size:30;not null" json:"document_number"`
	SequenceNo     int64                 `gorm:"not null" json:"sequence_no"`
	ReturnDate     time.Time             `json:"return_date"`
	Category       string                `gorm:"size:50" json:"category"`
	Reason         string                `gorm:"size:255" json:"reason"`
	Lines          []*InternalReturnLine `json:"lines,omitempty"`
	CreatedBy      int                   `json:"created_by"`
	CreatedAt      time.Time             `gorm:"autoCreateTime" json:"created_at"`
}

// InternalReturnLine carries a per-line condition note so recovered stock can
// be graded when it comes back.
type InternalReturnLine struct {
	ID               int             `gorm:"primary_key" json:"id"`
	InternalReturnId int             `gorm:"index;not null" json:"internal_return_id"`
	ItemId           int             `gorm:"not null" json:"item_id"`
	Item             *Item           `json:"item,omitempty"`
	Qty              decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"qty"`
	Unit             string          `gorm:"size:20" json:"unit"`
	Note             string          `gorm:"size:255" json:"note"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewInternalReturn struct {
	ReturnDate time.Time                `json:"return_date"`
	Category   string                   `json:"category"`
	Reason     string                   `json:"reason"`
	Lines      []*NewInternalLedgerLine `json:"lines" binding:"required"`
}

func CreateInternalReturn(ctx context.Context, input *NewInternalReturn) (*InternalReturn, error) {
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

	for _, line := range input.Lines {
		if err := addInventoryQty(tx, outletCode, line.ItemId, line.Qty); err != nil {
			return nil, err
		}
	}

	returnDate := input.ReturnDate
	if returnDate.IsZero() {
		returnDate = time.Now()
	}

	sequenceNo, documentNumber, err := nextDocumentNumber[InternalReturn](ctx, outletCode, DocPrefixInternalReturn)
	if err != nil {
		return nil, err
	}
	ret := InternalReturn{
		OutletCode:     outletCode,
		DocumentNumber: documentNumber,
		SequenceNo:     sequenceNo,
		ReturnDate:     returnDate,
		Category:       input.Category,
		Reason:         input.Reason,
		CreatedBy:      userId,
	}
	for _, line := range input.Lines {
		ret.Lines = append(ret.Lines, &InternalReturnLine{
			ItemId: line.ItemId,
			Qty:    line.Qty,
			Unit:   line.Unit,
			Note:   line.Note,
		})
	}

	if err := tx.Create(&ret).Error; err != nil {
		if isDuplicateKeyError(err) {
			return nil, newConflictError("document number collision, retry the request")
		}
		return nil, err
	}

	err = publishEvent(ctx, tx, OutboxEventReturnPosted, "InternalReturn", ret.ID, map[string]interface{}{
		"document_number": ret.DocumentNumber,
		"line_count":      len(ret.Lines),
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &ret, nil
}

func GetInternalReturn(ctx context.Context, id int) (*InternalReturn, error) {
	outletCode, err := outletCodeFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[InternalReturn](ctx, outletCode, id, "Lines", "Lines.Item")
}

func GetInternalReturns(ctx context.Context) ([]*InternalReturn, error) {
	outletCode, err := outletCodeFromContext(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var results []*InternalReturn
	err = db.WithContext(ctx).
		Where("outlet_code = ?", outletCode).
		Order("id desc").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
