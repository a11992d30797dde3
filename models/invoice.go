package models

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warungpos/procure_backend/config"
	"github.com/warungpos/procure_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Invoice is the supplier bill generated from a received purchase order. At
// most one live invoice exists per order: generation locks the order row and
// moves it to Invoiced, so a concurrent second generation sees the new status
// and fails.
type Invoice struct {
	ID              int            `gorm:"primary_key" json:"id"`
	OutletCode      string         `gorm:"uniqueIndex:idx_inv_doc;size:20;not null" json:"outlet_code"`
	DocumentNumber  string         `gorm:"uniqueIndex:idx_inv_doc;size:30;not null" json:"document_number"`
	SequenceNo      int64          `gorm:"not null" json:"sequence_no"`
	PurchaseOrderId int            `gorm:"index;not null" json:"purchase_order_id"`
	PurchaseOrder   *PurchaseOrder `json:"purchase_order,omitempty"`
	SupplierId      int            `gorm:"index;not null" json:"supplier_id"`
	Supplier        *Supplier      `json:"supplier,omitempty"`
	// SupplierReference is the number printed on the supplier's own bill.
	SupplierReference string          `gorm:"size:50;not null" json:"supplier_reference"`
	InvoiceDate       time.Time       `json:"invoice_date"`
	DueDate           time.Time       `gorm:"not null" json:"due_date"`
	Status            InvoiceStatus   `gorm:"size:20;not null" json:"status"`
	Total             decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"total"`
	PaidAmount        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"paid_amount"`
	Note              string          `gorm:"size:255" json:"note"`
	CreatedBy         int             `json:"created_by"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// RemainingAmount is the open balance still owed on the invoice.
func (inv *Invoice) RemainingAmount() decimal.Decimal {
	remaining := inv.Total.Sub(inv.PaidAmount)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

type NewInvoice struct {
	PurchaseOrderId   int        `json:"purchase_order_id" binding:"required"`
	SupplierReference string     `json:"supplier_reference" binding:"required"`
	InvoiceDate       time.Time  `json:"invoice_date"`
	DueDate           *time.Time `json:"due_date" binding:"required"`
	Note              string     `json:"note"`
}

func (input *NewInvoice) validate() error {
	if strings.TrimSpace(input.SupplierReference) == "" {
		return newValidationError("supplier_reference", "supplier invoice reference is required")
	}
	if input.DueDate == nil || input.DueDate.IsZero() {
		return newValidationError("due_date", "due date is required")
	}
	return nil
}

// invoiceTotalFromOrder bills what was actually received, not what was
// ordered: sum of QtyReceived * UnitPrice across the order lines.
func invoiceTotalFromOrder(items []*PurchaseOrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.QtyReceived.Mul(item.UnitPrice))
	}
	return total
}

// GenerateInvoice bills a partially or fully received order and freezes it by
// moving the order to Invoiced. A second call for the same order sees the new
// status and conflicts.
func GenerateInvoice(ctx context.Context, input *NewInvoice) (*Invoice, error) {
	outletCode, err := outletCodeFromContext(ctx)
	if err != nil {
		return nil, err
	}
	userId := userIdFromContext(ctx)

	if err := input.validate(); err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer tx.Rollback()

	order, err := lockPurchaseOrderWithItems(tx, outletCode, input.PurchaseOrderId)
	if err != nil {
		return nil, err
	}
	if order.Status == PurchaseOrderStatusInvoiced {
		return nil, newConflictError("an invoice already exists for this order")
	}
	if order.Status != PurchaseOrderStatusPartial && order.Status != PurchaseOrderStatusCompleted {
		return nil, newStateError("PurchaseOrder", string(order.Status), "only received orders can be invoiced")
	}

	total := invoiceTotalFromOrder(order.Items)
	if !total.IsPositive() {
		return nil, newValidationError("purchase_order_id", "order has no received quantity to invoice")
	}

	invoiceDate := input.InvoiceDate
	if invoiceDate.IsZero() {
		invoiceDate = time.Now()
	}

	sequenceNo, documentNumber, err := nextDocumentNumber[Invoice](ctx, outletCode, DocPrefixInvoice)
	if err != nil {
		return nil, err
	}
	invoice := Invoice{
		OutletCode:        outletCode,
		DocumentNumber:    documentNumber,
		SequenceNo:        sequenceNo,
		PurchaseOrderId:   order.ID,
		SupplierId:        order.SupplierId,
		SupplierReference: strings.TrimSpace(input.SupplierReference),
		InvoiceDate:       invoiceDate,
		DueDate:           *input.DueDate,
		Status:            InvoiceStatusUnpaid,
		Total:             total,
		PaidAmount:        decimal.Zero,
		Note:              input.Note,
		CreatedBy:         userId,
	}

	if err := tx.Create(&invoice).Error; err != nil {
		if isDuplicateKeyError(err) {
			return nil, newConflictError("document number collision, retry the request")
		}
		return nil, err
	}

	if err := tx.Model(order).UpdateColumn("Status", PurchaseOrderStatusInvoiced).Error; err != nil {
		return nil, err
	}

	err = publishEvent(ctx, tx, OutboxEventInvoiceGenerated, "Invoice", invoice.ID, map[string]interface{}{
		"document_number":   invoice.DocumentNumber,
		"purchase_order_id": order.ID,
		"supplier_id":       invoice.SupplierId,
		"total":             invoice.Total,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

// CancelInvoice voids an unpaid invoice and reopens the order for invoicing.
func CancelInvoice(ctx context.Context, id int) (*Invoice, error) {
	outletCode, err := outletCodeFromContext(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer tx.Rollback()

	invoice, err := lockInvoice(tx, outletCode, id)
	if err != nil {
		return nil, err
	}
	if invoice.Status != InvoiceStatusUnpaid {
		return nil, newStateError("Invoice", string(invoice.Status), "only unpaid invoices can be cancelled")
	}

	order, err := lockPurchaseOrderWithItems(tx, outletCode, invoice.PurchaseOrderId)
	if err != nil {
		return nil, err
	}

	if err := tx.Model(invoice).UpdateColumn("Status", InvoiceStatusCancelled).Error; err != nil {
		return nil, err
	}

	// reopen the order so a corrected invoice can be generated
	reopened := derivePurchaseOrderStatus(PurchaseOrderStatusIssued, order.Items)
	if err := tx.Model(order).UpdateColumn("Status", reopened).Error; err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	invoice.Status = InvoiceStatusCancelled
	return invoice, nil
}

// lockInvoice fetches one invoice FOR UPDATE inside the caller's transaction.
func lockInvoice(tx *gorm.DB, outletCode string, id int) (*Invoice, error) {
	var invoice Invoice
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("outlet_code = ? AND id = ?", outletCode, id).
		First(&invoice).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &invoice, nil
}

func GetInvoice(ctx context.Context, id int) (*Invoice, error) {
	outletCode, err := outletCodeFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[Invoice](ctx, outletCode, id, "Supplier", "PurchaseOrder")
}

func GetInvoices(ctx context.Context, status *InvoiceStatus, supplierId *int) ([]*Invoice, error) {
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

	var results []*Invoice
	if err := dbCtx.Order("id desc").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
