package models

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warungpos/procure_backend/config"
	"github.com/warungpos/procure_backend/utils"
)

// PurchaseOrder is the ordering document the receiving and invoicing flows
// hang off. Status moves Draft -> Issued -> Partial/Completed -> Invoiced;
// Cancelled is terminal and only reachable before any receipt.
type PurchaseOrder struct {
	ID             int                  `gorm:"primary_key" json:"id"`
	OutletCode     string               `gorm:"uniqueIndex:idx_po_doc;size:20;not null" json:"outlet_code"`
	DocumentNumber string               `gorm:"uniqueIndex:idx_po_doc;size:30;not null" json:"document_number"`
	SequenceNo     int64                `gorm:"not null" json:"sequence_no"`
	SupplierId     int                  `gorm:"index;not null" json:"supplier_id"`
	Supplier       *Supplier            `json:"supplier,omitempty"`
	OrderDate      time.Time            `json:"order_date"`
	ExpectedDate   *time.Time           `gorm:"default:null" json:"expected_date"`
	Status         PurchaseOrderStatus  `gorm:"size:20;not null" json:"status"`
	Total          decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"total"`
	Note           string               `gorm:"size:255" json:"note"`
	Items          []*PurchaseOrderItem `json:"items,omitempty"`
	CreatedBy      int                  `json:"created_by"`
	CreatedAt      time.Time            `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time            `gorm:"autoUpdateTime" json:"updated_at"`
}

// PurchaseOrderItem carries the ordered quantity in purchase units and a
// QtyReceived counter the receiving flow advances. PurchaseUnit and
// ConversionRate are snapshots resolved when the line is added, so later
// master-data edits never change what this order posts to inventory.
type PurchaseOrderItem struct {
	ID              int             `gorm:"primary_key" json:"id"`
	PurchaseOrderId int             `gorm:"index;not null" json:"purchase_order_id"`
	ItemId          int             `gorm:"not null" json:"item_id"`
	Item            *Item           `json:"item,omitempty"`
	QtyOrdered      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"qty_ordered"`
	QtyReceived     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"qty_received"`
	PurchaseUnit    string          `gorm:"size:20" json:"purchase_unit"`
	ConversionRate  decimal.Decimal `gorm:"type:decimal(20,4);default:1" json:"conversion_rate"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"unit_price"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// QtyRemaining is the quantity still open for receiving, never negative.
func (item *PurchaseOrderItem) QtyRemaining() decimal.Decimal {
	remaining := item.QtyOrdered.Sub(item.QtyReceived)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

type NewPurchaseOrderItem struct {
	DetailId      int              `json:"detail_id"`
	ItemId        int              `json:"item_id" binding:"required"`
	QtyOrdered    decimal.Decimal  `json:"qty_ordered" binding:"required"`
	UnitPrice     *decimal.Decimal `json:"unit_price"`
	IsDeletedItem bool             `json:"is_deleted_item"`
}

type NewPurchaseOrder struct {
	SupplierId   int                     `json:"supplier_id" binding:"required"`
	OrderDate    time.Time               `json:"order_date"`
	ExpectedDate *time.Time              `json:"expected_date"`
	Note         string                  `json:"note"`
	Items        []*NewPurchaseOrderItem `json:"items" binding:"required"`
}

// computeOrderTotal sums qty * price across the live lines.
func computeOrderTotal(items []*PurchaseOrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.QtyOrdered.Mul(item.UnitPrice))
	}
	return total
}

// derivePurchaseOrderStatus recomputes the order status from its lines after a
// receipt. Fully received lines everywhere means Completed, any received
// quantity means Partial, otherwise the current status stands.
func derivePurchaseOrderStatus(current PurchaseOrderStatus, items []*PurchaseOrderItem) PurchaseOrderStatus {
	if len(items) == 0 {
		return current
	}
	allComplete := true
	anyReceived := false
	for _, item := range items {
		if item.QtyReceived.IsPositive() {
			anyReceived = true
		}
		if item.QtyReceived.LessThan(item.QtyOrdered) {
			allComplete = false
		}
	}
	if allComplete {
		return PurchaseOrderStatusCompleted
	}
	if anyReceived {
		return PurchaseOrderStatusPartial
	}
	return current
}

func (input *NewPurchaseOrder) validate(ctx context.Context, outletCode string) (map[int]*Item, error) {
	if err := utils.ValidateResourceId[Supplier](ctx, outletCode, input.SupplierId); err != nil {
		if err == utils.ErrorRecordNotFound {
			return nil, newValidationError("supplier_id", "supplier not found")
		}
		return nil, err
	}

	liveItemIds := []int{}
	for i, line := range input.Items {
		if line.IsDeletedItem {
			continue
		}
		if !line.QtyOrdered.IsPositive() {
			return nil, newLineValidationError(i+1, "qty_ordered", "ordered quantity must be greater than zero")
		}
		if line.UnitPrice != nil && line.UnitPrice.IsNegative() {
			return nil, newLineValidationError(i+1, "unit_price", "unit price cannot be negative")
		}
		liveItemIds = append(liveItemIds, line.ItemId)
	}
	if len(liveItemIds) == 0 {
		return nil, newValidationError("items", "purchase order requires at least one item")
	}

	itemsById, err := fetchItemsById(ctx, outletCode, liveItemIds)
	if err != nil {
		return nil, err
	}
	for i, line := range input.Items {
		if line.IsDeletedItem {
			continue
		}
		item, found := itemsById[line.ItemId]
		if !found {
			return nil, newLineValidationError(i+1, "item_id", "item not found")
		}
		if item.IsActive != nil && !*item.IsActive {
			return nil, newLineValidationError(i+1, "item_id", "item is not active")
		}
	}
	return itemsById, nil
}

func CreatePurchaseOrder(ctx context.Context, input *NewPurchaseOrder) (*PurchaseOrder, error) {
	outletCode, err := outletCodeFromContext(ctx)
	if err != nil {
		return nil, err
	}
	userId := userIdFromContext(ctx)

	itemsById, err := input.validate(ctx, outletCode)
	if err != nil {
		return nil, err
	}

	orderDate := input.OrderDate
	if orderDate.IsZero() {
		orderDate = time.Now()
	}

	order := PurchaseOrder{
		OutletCode:   outletCode,
		SupplierId:   input.SupplierId,
		OrderDate:    orderDate,
		ExpectedDate: input.ExpectedDate,
		Status:       PurchaseOrderStatusDraft,
		Note:         input.Note,
		CreatedBy:    userId,
	}
	for _, line := range input.Items {
		if line.IsDeletedItem {
			continue
		}
		item := itemsById[line.ItemId]
		unitPrice := item.PurchasePrice
		if line.UnitPrice != nil {
			unitPrice = *line.UnitPrice
		}
		order.Items = append(order.Items, &PurchaseOrderItem{
			ItemId:         line.ItemId,
			QtyOrdered:     line.QtyOrdered,
			PurchaseUnit:   item.PurchaseUnit,
			ConversionRate: item.ConversionRate,
			UnitPrice:      unitPrice,
		})
	}
	order.Total = computeOrderTotal(order.Items)

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer tx.Rollback()

	sequenceNo, documentNumber, err := nextDocumentNumber[PurchaseOrder](ctx, outletCode, DocPrefixPurchaseOrder)
	if err != nil {
		return nil, err
	}
	order.SequenceNo = sequenceNo
	order.DocumentNumber = documentNumber

	if err := tx.Create(&order).Error; err != nil {
		if isDuplicateKeyError(err) {
			return nil, newConflictError("document number collision, retry the request")
		}
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdatePurchaseOrder replaces header fields and diffs the line set. Only
// Draft and Issued orders are editable. The order rows are re-read FOR UPDATE
// inside the transaction so the received-quantity checks cannot race a
// concurrent receipt.
func UpdatePurchaseOrder(ctx context.Context, id int, input *NewPurchaseOrder) (*PurchaseOrder, error) {
	outletCode, err := outletCodeFromContext(ctx)
	if err != nil {
		return nil, err
	}

	itemsById, err := input.validate(ctx, outletCode)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer tx.Rollback()

	order, err := lockPurchaseOrderWithItems(tx, outletCode, id)
	if err != nil {
		return nil, err
	}
	if !order.Status.Editable() {
		return nil, newStateError("PurchaseOrder", string(order.Status), "only draft or issued orders can be edited")
	}

	existingById := make(map[int]*PurchaseOrderItem, len(order.Items))
	for _, item := range order.Items {
		existingById[item.ID] = item
	}

	keptItems := []*PurchaseOrderItem{}
	for _, line := range input.Items {
		if line.DetailId > 0 {
			existing, found := existingById[line.DetailId]
			if !found || existing.PurchaseOrderId != order.ID {
				return nil, newValidationError("detail_id", "order line not found")
			}
			if line.IsDeletedItem {
				if existing.QtyReceived.IsPositive() {
					return nil, newValidationError("detail_id", "cannot remove a line that has received stock")
				}
				if err := tx.Delete(existing).Error; err != nil {
					return nil, err
				}
				continue
			}
			if line.QtyOrdered.LessThan(existing.QtyReceived) {
				return nil, newValidationError("qty_ordered", "ordered quantity cannot go below received quantity")
			}
			unitPrice := existing.UnitPrice
			if line.UnitPrice != nil {
				unitPrice = *line.UnitPrice
			}
			// swapping the item on a line re-resolves its unit snapshot
			if line.ItemId != existing.ItemId {
				item := itemsById[line.ItemId]
				existing.PurchaseUnit = item.PurchaseUnit
				existing.ConversionRate = item.ConversionRate
			}
			err := tx.Model(existing).Updates(map[string]interface{}{
				"ItemId":         line.ItemId,
				"QtyOrdered":     line.QtyOrdered,
				"PurchaseUnit":   existing.PurchaseUnit,
				"ConversionRate": existing.ConversionRate,
				"UnitPrice":      unitPrice,
			}).Error
			if err != nil {
				return nil, err
			}
			existing.ItemId = line.ItemId
			existing.QtyOrdered = line.QtyOrdered
			existing.UnitPrice = unitPrice
			keptItems = append(keptItems, existing)
			continue
		}
		if line.IsDeletedItem {
			continue
		}
		item := itemsById[line.ItemId]
		unitPrice := item.PurchasePrice
		if line.UnitPrice != nil {
			unitPrice = *line.UnitPrice
		}
		newItem := &PurchaseOrderItem{
			PurchaseOrderId: order.ID,
			ItemId:          line.ItemId,
			QtyOrdered:      line.QtyOrdered,
			PurchaseUnit:    item.PurchaseUnit,
			ConversionRate:  item.ConversionRate,
			UnitPrice:       unitPrice,
		}
		if err := tx.Create(newItem).Error; err != nil {
			return nil, err
		}
		keptItems = append(keptItems, newItem)
	}

	total := computeOrderTotal(keptItems)
	err = tx.Model(order).Updates(map[string]interface{}{
		"SupplierId":   input.SupplierId,
		"ExpectedDate": input.ExpectedDate,
		"Note":         input.Note,
		"Total":        total,
	}).Error
	if err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return utils.FetchModel[PurchaseOrder](ctx, outletCode, id, "Items", "Supplier")
}

// IssuePurchaseOrder moves a draft order to Issued so receiving can begin.
func IssuePurchaseOrder(ctx context.Context, id int) (*PurchaseOrder, error) {
	outletCode, err := outletCodeFromContext(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer tx.Rollback()

	order, err := lockPurchaseOrderWithItems(tx, outletCode, id)
	if err != nil {
		return nil, err
	}
	if order.Status != PurchaseOrderStatusDraft {
		return nil, newStateError("PurchaseOrder", string(order.Status), "only draft orders can be issued")
	}
	if len(order.Items) == 0 {
		return nil, newValidationError("items", "purchase order requires at least one item")
	}

	if err := tx.Model(order).UpdateColumn("Status", PurchaseOrderStatusIssued).Error; err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	order.Status = PurchaseOrderStatusIssued
	return order, nil
}

// CancelPurchaseOrder cancels an order that has not received any stock. The
// received check runs against locked rows, so a receipt committing in between
// cannot be cancelled away.
func CancelPurchaseOrder(ctx context.Context, id int) (*PurchaseOrder, error) {
	outletCode, err := outletCodeFromContext(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer tx.Rollback()

	order, err := lockPurchaseOrderWithItems(tx, outletCode, id)
	if err != nil {
		return nil, err
	}
	if order.Status != PurchaseOrderStatusDraft && order.Status != PurchaseOrderStatusIssued {
		return nil, newStateError("PurchaseOrder", string(order.Status), "order can no longer be cancelled")
	}
	for _, item := range order.Items {
		if item.QtyReceived.IsPositive() {
			return nil, newStateError("PurchaseOrder", string(order.Status), "order has received stock and cannot be cancelled")
		}
	}

	if err := tx.Model(order).UpdateColumn("Status", PurchaseOrderStatusCancelled).Error; err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	order.Status = PurchaseOrderStatusCancelled
	return order, nil
}

func GetPurchaseOrder(ctx context.Context, id int) (*PurchaseOrder, error) {
	outletCode, err := outletCodeFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[PurchaseOrder](ctx, outletCode, id, "Items", "Items.Item", "Supplier")
}

func GetPurchaseOrders(ctx context.Context, status *PurchaseOrderStatus, supplierId *int) ([]*PurchaseOrder, error) {
	outletCode, err := outletCodeFromContext(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Preload("Supplier").Where("outlet_code = ?", outletCode)
	if status != nil {
		dbCtx = dbCtx.Where("status = ?", *status)
	}
	if supplierId != nil {
		dbCtx = dbCtx.Where("supplier_id = ?", *supplierId)
	}

	var results []*PurchaseOrder
	if err := dbCtx.Order("id desc").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
