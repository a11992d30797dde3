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

// GoodsReceipt records stock arriving against an issued purchase order. Every
// accepted line advances the order line's QtyReceived counter and moves
// on-hand inventory in base units, all inside one transaction.
type GoodsReceipt struct {
	ID              int                 `gorm:"primary_key" json:"id"`
	OutletCode      string              `gorm:"uniqueIndex:idx_gr_doc;size:20;not null" json:"outlet_code"`
	DocumentNumber  string              `gorm:"uniqueIndex:idx_gr_doc;size:30;not null" json:"document_number"`
	SequenceNo      int64               `gorm:"not null" json:"sequence_no"`
	PurchaseOrderId int                 `gorm:"index;not null" json:"purchase_order_id"`
	PurchaseOrder   *PurchaseOrder      `json:"purchase_order,omitempty"`
	ReceivedDate    time.Time           `json:"received_date"`
	Note            string              `gorm:"size:255" json:"note"`
	Items           []*GoodsReceiptItem `json:"items,omitempty"`
	CreatedBy       int                 `json:"created_by"`
	CreatedAt       time.Time           `gorm:"autoCreateTime" json:"created_at"`
}

// GoodsReceiptItem stores the conversion rate it posted at, so the base-unit
// movement a receipt caused stays auditable after master-data edits.
type GoodsReceiptItem struct {
	ID                  int             `gorm:"primary_key" json:"id"`
	GoodsReceiptId      int             `gorm:"index;not null" json:"goods_receipt_id"`
	PurchaseOrderItemId int             `gorm:"not null" json:"purchase_order_item_id"`
	ItemId              int             `gorm:"not null" json:"item_id"`
	Item                *Item           `json:"item,omitempty"`
	QtyReceived         decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"qty_received"`
	ConversionRate      decimal.Decimal `gorm:"type:decimal(20,4);default:1" json:"conversion_rate"`
	CreatedAt           time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewGoodsReceiptItem struct {
	PurchaseOrderItemId int             `json:"purchase_order_item_id" binding:"required"`
	QtyReceived         decimal.Decimal `json:"qty_received"`
}

type NewGoodsReceipt struct {
	PurchaseOrderId int                    `json:"purchase_order_id" binding:"required"`
	ReceivedDate    time.Time              `json:"received_date"`
	Note            string                 `json:"note"`
	Items           []*NewGoodsReceiptItem `json:"items" binding:"required"`
}

// validateReceiptLines checks every input line against the locked order lines.
// All lines must pass before any stock moves; a single bad line fails the
// whole receipt. Returns the accepted quantity per order line id.
func validateReceiptLines(orderItems []*PurchaseOrderItem, lines []*NewGoodsReceiptItem) (map[int]decimal.Decimal, error) {
	orderItemById := make(map[int]*PurchaseOrderItem, len(orderItems))
	for _, item := range orderItems {
		orderItemById[item.ID] = item
	}

	accepted := map[int]decimal.Decimal{}
	anyPositive := false
	for i, line := range lines {
		orderItem, found := orderItemById[line.PurchaseOrderItemId]
		if !found {
			return nil, newLineValidationError(i+1, "purchase_order_item_id", "order line not found on this purchase order")
		}
		if _, dup := accepted[line.PurchaseOrderItemId]; dup {
			return nil, newLineValidationError(i+1, "purchase_order_item_id", "order line appears more than once")
		}
		if line.QtyReceived.IsNegative() {
			return nil, newLineValidationError(i+1, "qty_received", "received quantity cannot be negative")
		}
		if line.QtyReceived.GreaterThan(orderItem.QtyRemaining()) {
			return nil, newLineValidationError(i+1, "qty_received", "received quantity exceeds remaining quantity")
		}
		if line.QtyReceived.IsPositive() {
			anyPositive = true
		}
		accepted[line.PurchaseOrderItemId] = line.QtyReceived
	}
	if !anyPositive {
		return nil, newValidationError("items", "receipt requires at least one line with quantity")
	}
	return accepted, nil
}

// lockPurchaseOrderWithItems loads the order and its lines FOR UPDATE inside
// the caller's transaction. Receipts and invoices serialize on these rows.
func lockPurchaseOrderWithItems(tx *gorm.DB, outletCode string, id int) (*PurchaseOrder, error) {
	var order PurchaseOrder
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("outlet_code = ? AND id = ?", outletCode, id).
		First(&order).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("purchase_order_id = ?", order.ID).
		Order("id").
		Find(&order.Items).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func CreateGoodsReceipt(ctx context.Context, input *NewGoodsReceipt) (*GoodsReceipt, error) {
	outletCode, err := outletCodeFromContext(ctx)
	if err != nil {
		return nil, err
	}
	userId := userIdFromContext(ctx)

	if len(input.Items) == 0 {
		return nil, newValidationError("items", "receipt requires at least one line with quantity")
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer tx.Rollback()

	order, err := lockPurchaseOrderWithItems(tx, outletCode, input.PurchaseOrderId)
	if err != nil {
		return nil, err
	}
	if !order.Status.Receivable() {
		return nil, newStateError("PurchaseOrder", string(order.Status), "order is not open for receiving")
	}

	accepted, err := validateReceiptLines(order.Items, input.Items)
	if err != nil {
		return nil, err
	}

	receivedDate := input.ReceivedDate
	if receivedDate.IsZero() {
		receivedDate = time.Now()
	}

	sequenceNo, documentNumber, err := nextDocumentNumber[GoodsReceipt](ctx, outletCode, DocPrefixGoodsReceipt)
	if err != nil {
		return nil, err
	}
	receipt := GoodsReceipt{
		OutletCode:      outletCode,
		DocumentNumber:  documentNumber,
		SequenceNo:      sequenceNo,
		PurchaseOrderId: order.ID,
		ReceivedDate:    receivedDate,
		Note:            input.Note,
		CreatedBy:       userId,
	}

	for _, orderItem := range order.Items {
		qty := accepted[orderItem.ID]
		if !qty.IsPositive() {
			continue
		}
		receipt.Items = append(receipt.Items, &GoodsReceiptItem{
			PurchaseOrderItemId: orderItem.ID,
			ItemId:              orderItem.ItemId,
			QtyReceived:         qty,
			ConversionRate:      orderItem.ConversionRate,
		})
	}

	if err := tx.Create(&receipt).Error; err != nil {
		if isDuplicateKeyError(err) {
			return nil, newConflictError("document number collision, retry the request")
		}
		return nil, err
	}

	for _, orderItem := range order.Items {
		qty := accepted[orderItem.ID]
		if !qty.IsPositive() {
			continue
		}
		newReceived := orderItem.QtyReceived.Add(qty)
		if err := tx.Model(orderItem).UpdateColumn("QtyReceived", newReceived).Error; err != nil {
			return nil, err
		}
		orderItem.QtyReceived = newReceived

		// inventory moves at the rate frozen on the order line, not the
		// item's current master data
		baseQty := qty.Mul(orderItem.ConversionRate)
		if err := addInventoryQty(tx, outletCode, orderItem.ItemId, baseQty); err != nil {
			return nil, err
		}
	}

	newStatus := derivePurchaseOrderStatus(order.Status, order.Items)
	if newStatus != order.Status {
		if err := tx.Model(order).UpdateColumn("Status", newStatus).Error; err != nil {
			return nil, err
		}
		order.Status = newStatus
	}

	err = publishEvent(ctx, tx, OutboxEventReceiptPosted, "GoodsReceipt", receipt.ID, map[string]interface{}{
		"document_number":   receipt.DocumentNumber,
		"purchase_order_id": order.ID,
		"order_status":      order.Status,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &receipt, nil
}

// ReceiveRemaining posts one receipt covering everything still open on the
// order. When nothing remains it is a no-op and returns no receipt.
func ReceiveRemaining(ctx context.Context, purchaseOrderId int, note string) (*GoodsReceipt, error) {
	outletCode, err := outletCodeFromContext(ctx)
	if err != nil {
		return nil, err
	}

	order, err := utils.FetchModel[PurchaseOrder](ctx, outletCode, purchaseOrderId, "Items")
	if err != nil {
		return nil, err
	}
	if !order.Status.Receivable() {
		return nil, newStateError("PurchaseOrder", string(order.Status), "order is not open for receiving")
	}

	input := NewGoodsReceipt{
		PurchaseOrderId: purchaseOrderId,
		Note:            note,
	}
	anyRemaining := false
	for _, orderItem := range order.Items {
		remaining := orderItem.QtyRemaining()
		if remaining.IsPositive() {
			anyRemaining = true
		}
		input.Items = append(input.Items, &NewGoodsReceiptItem{
			PurchaseOrderItemId: orderItem.ID,
			QtyReceived:         remaining,
		})
	}
	if !anyRemaining {
		return nil, nil
	}
	return CreateGoodsReceipt(ctx, &input)
}

func GetGoodsReceipt(ctx context.Context, id int) (*GoodsReceipt, error) {
	outletCode, err := outletCodeFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[GoodsReceipt](ctx, outletCode, id, "Items", "Items.Item", "PurchaseOrder")
}

func GetGoodsReceipts(ctx context.Context, purchaseOrderId *int) ([]*GoodsReceipt, error) {
	outletCode, err := outletCodeFromContext(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("outlet_code = ?", outletCode)
	if purchaseOrderId != nil {
		dbCtx = dbCtx.Where("purchase_order_id = ?", *purchaseOrderId)
	}

	var results []*GoodsReceipt
	if err := dbCtx.Order("id desc").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
