package models

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warungpos/procure_backend/config"
	"github.com/warungpos/procure_backend/utils"
)

// SupplierPayment settles one or more of a supplier's invoices from a single
// financial account. The debit, the allocations and every invoice status
// change commit together or not at all.
type SupplierPayment struct {
	ID                 int                  `gorm:"primary_key" json:"id"`
	OutletCode         string               `gorm:"uniqueIndex:idx_pay_doc;size:20;not null" json:"outlet_code"`
	DocumentNumber     string               `gorm:"uniqueIndex:idx_pay_doc;size:30;not null" json:"document_number"`
	SequenceNo         int64                `gorm:"not null" json:"sequence_no"`
	SupplierId         int                  `gorm:"index;not null" json:"supplier_id"`
	Supplier           *Supplier            `json:"supplier,omitempty"`
	FinancialAccountId int                  `gorm:"index;not null" json:"financial_account_id"`
	FinancialAccount   *FinancialAccount    `json:"financial_account,omitempty"`
	PaymentDate        time.Time            `json:"payment_date"`
	TotalPaid          decimal.Decimal      `gorm:"type:decimal(20,4);not null" json:"total_paid"`
	TotalDiscount      decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"total_discount"`
	Note               string               `gorm:"size:255" json:"note"`
	Allocations        []*PaymentAllocation `json:"allocations,omitempty"`
	CreatedBy          int                  `json:"created_by"`
	CreatedAt          time.Time            `gorm:"autoCreateTime" json:"created_at"`
}

// PaymentAllocation splits a payment across invoices: cash paid plus discount
// granted per invoice.
type PaymentAllocation struct {
	ID                int             `gorm:"primary_key" json:"id"`
	SupplierPaymentId int             `gorm:"index;not null" json:"supplier_payment_id"`
	InvoiceId         int             `gorm:"index;not null" json:"invoice_id"`
	Invoice           *Invoice        `json:"invoice,omitempty"`
	AmountPaid        decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount_paid"`
	Discount          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"discount"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewPaymentBill struct {
	InvoiceId int `json:"invoice_id" binding:"required"`
	// Amount is the cash portion. Left nil, the bill is paid down in full
	// (remaining balance less discount).
	Amount   *decimal.Decimal `json:"amount"`
	Discount decimal.Decimal  `json:"discount"`
}

type NewSupplierPayment struct {
	SupplierId         int               `json:"supplier_id" binding:"required"`
	FinancialAccountId int               `json:"financial_account_id" binding:"required"`
	PaymentDate        time.Time         `json:"payment_date"`
	Note               string            `json:"note"`
	Bills              []*NewPaymentBill `json:"bills" binding:"required"`
}

// buildAllocation resolves one bill against the invoice's open balance.
// Discount may not exceed the balance; an explicit amount may not overpay.
// A nil amount settles the full remainder after discount, clamped at zero.
func buildAllocation(documentNumber string, remaining decimal.Decimal, bill *NewPaymentBill) (decimal.Decimal, error) {
	if bill.Discount.IsNegative() {
		return decimal.Zero, newValidationError("discount", "discount cannot be negative on invoice "+documentNumber)
	}
	if bill.Discount.GreaterThan(remaining) {
		return decimal.Zero, newValidationError("discount", "discount exceeds open balance on invoice "+documentNumber)
	}
	afterDiscount := remaining.Sub(bill.Discount)
	if bill.Amount == nil {
		if afterDiscount.IsNegative() {
			return decimal.Zero, nil
		}
		return afterDiscount, nil
	}
	if !bill.Amount.IsPositive() {
		return decimal.Zero, newValidationError("amount", "amount must be greater than zero on invoice "+documentNumber)
	}
	if bill.Amount.GreaterThan(afterDiscount) {
		return decimal.Zero, newValidationError("amount", "amount exceeds open balance on invoice "+documentNumber)
	}
	return utils.DereferencePtr(bill.Amount), nil
}

func CreateSupplierPayment(ctx context.Context, input *NewSupplierPayment) (*SupplierPayment, error) {
	outletCode, err := outletCodeFromContext(ctx)
	if err != nil {
		return nil, err
	}
	userId := userIdFromContext(ctx)

	if len(input.Bills) == 0 {
		return nil, newValidationError("bills", "payment requires at least one invoice")
	}
	seen := map[int]bool{}
	for i, bill := range input.Bills {
		if seen[bill.InvoiceId] {
			return nil, newLineValidationError(i+1, "invoice_id", "invoice appears more than once")
		}
		seen[bill.InvoiceId] = true
	}

	type indexedBill struct {
		line int
		bill *NewPaymentBill
	}
	ordered := make([]indexedBill, 0, len(input.Bills))
	for i, bill := range input.Bills {
		ordered = append(ordered, indexedBill{line: i + 1, bill: bill})
	}
	sort.Slice(ordered, func(a, b int) bool {
		return ordered[a].bill.InvoiceId < ordered[b].bill.InvoiceId
	})

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer tx.Rollback()

	// lock order: account first, then invoices ascending by id, so
	// concurrent settlements cannot deadlock
	account, err := lockFinancialAccount(tx, outletCode, input.FinancialAccountId)
	if err != nil {
		return nil, err
	}

	totalCash := decimal.Zero
	totalDiscount := decimal.Zero
	allocations := []*PaymentAllocation{}
	paidInFull := []*Invoice{}
	for _, entry := range ordered {
		bill := entry.bill
		invoice, err := lockInvoice(tx, outletCode, bill.InvoiceId)
		if err != nil {
			if err == utils.ErrorRecordNotFound {
				return nil, newLineValidationError(entry.line, "invoice_id", "invoice not found")
			}
			return nil, err
		}
		if invoice.SupplierId != input.SupplierId {
			return nil, newLineValidationError(entry.line, "invoice_id", "invoice belongs to another supplier")
		}
		if !invoice.Status.Payable() {
			return nil, newStateError("Invoice", string(invoice.Status), "invoice "+invoice.DocumentNumber+" is not payable")
		}

		cash, err := buildAllocation(invoice.DocumentNumber, invoice.RemainingAmount(), bill)
		if err != nil {
			return nil, err
		}

		newPaid := invoice.PaidAmount.Add(cash).Add(bill.Discount)
		newStatus := InvoiceStatusPartial
		if newPaid.GreaterThanOrEqual(invoice.Total) {
			newStatus = InvoiceStatusPaid
		}
		err = tx.Model(invoice).Updates(map[string]interface{}{
			"PaidAmount": newPaid,
			"Status":     newStatus,
		}).Error
		if err != nil {
			return nil, err
		}
		invoice.PaidAmount = newPaid
		invoice.Status = newStatus
		if newStatus == InvoiceStatusPaid {
			paidInFull = append(paidInFull, invoice)
		}

		totalCash = totalCash.Add(cash)
		totalDiscount = totalDiscount.Add(bill.Discount)
		allocations = append(allocations, &PaymentAllocation{
			InvoiceId:  invoice.ID,
			AmountPaid: cash,
			Discount:   bill.Discount,
		})
	}

	if !totalCash.IsPositive() && !totalDiscount.IsPositive() {
		return nil, newValidationError("bills", "payment settles nothing")
	}
	if account.Balance.LessThan(totalCash) {
		return nil, newInsufficientFundsError(account.ID, totalCash, account.Balance)
	}

	paymentDate := input.PaymentDate
	if paymentDate.IsZero() {
		paymentDate = time.Now()
	}

	sequenceNo, documentNumber, err := nextDocumentNumber[SupplierPayment](ctx, outletCode, DocPrefixSupplierPayment)
	if err != nil {
		return nil, err
	}
	payment := SupplierPayment{
		OutletCode:         outletCode,
		DocumentNumber:     documentNumber,
		SequenceNo:         sequenceNo,
		SupplierId:         input.SupplierId,
		FinancialAccountId: account.ID,
		PaymentDate:        paymentDate,
		TotalPaid:          totalCash,
		TotalDiscount:      totalDiscount,
		Note:               input.Note,
		Allocations:        allocations,
		CreatedBy:          userId,
	}

	if err := tx.Create(&payment).Error; err != nil {
		if isDuplicateKeyError(err) {
			return nil, newConflictError("document number collision, retry the request")
		}
		return nil, err
	}

	if totalCash.IsPositive() {
		_, err = applyAccountMovement(tx, account, AccountTransactionTypeSettlement, totalCash.Neg(),
			"SupplierPayment", payment.ID, "settlement "+payment.DocumentNumber, userId)
		if err != nil {
			return nil, err
		}
	}

	err = publishEvent(ctx, tx, OutboxEventPaymentSettled, "SupplierPayment", payment.ID, map[string]interface{}{
		"document_number": payment.DocumentNumber,
		"supplier_id":     payment.SupplierId,
		"total_paid":      payment.TotalPaid,
		"total_discount":  payment.TotalDiscount,
	})
	if err != nil {
		return nil, err
	}
	for _, invoice := range paidInFull {
		err = publishEvent(ctx, tx, OutboxEventInvoicePaid, "Invoice", invoice.ID, map[string]interface{}{
			"document_number": invoice.DocumentNumber,
			"supplier_id":     invoice.SupplierId,
			"total":           invoice.Total,
		})
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func GetSupplierPayment(ctx context.Context, id int) (*SupplierPayment, error) {
	outletCode, err := outletCodeFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[SupplierPayment](ctx, outletCode, id, "Allocations", "Allocations.Invoice", "Supplier", "FinancialAccount")
}

func GetSupplierPayments(ctx context.Context, supplierId *int) ([]*SupplierPayment, error) {
	outletCode, err := outletCodeFromContext(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Preload("Supplier").Where("outlet_code = ?", outletCode)
	if supplierId != nil {
		dbCtx = dbCtx.Where("supplier_id = ?", *supplierId)
	}

	var results []*SupplierPayment
	if err := dbCtx.Order("id desc").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
