package models

type PurchaseOrderStatus string

const (
	PurchaseOrderStatusDraft     PurchaseOrderStatus = "Draft"
	PurchaseOrderStatusIssued    PurchaseOrderStatus = "Issued"
	PurchaseOrderStatusPartial   PurchaseOrderStatus = "Partial"
	PurchaseOrderStatusCompleted PurchaseOrderStatus = "Completed"
	PurchaseOrderStatusInvoiced  PurchaseOrderStatus = "Invoiced"
	PurchaseOrderStatusCancelled PurchaseOrderStatus = "Cancelled"
)

// editable: items, supplier and dates may still change
func (s PurchaseOrderStatus) Editable() bool {
	return s == PurchaseOrderStatusDraft || s == PurchaseOrderStatusIssued
}

// receivable: goods receipts may still be posted against the order
func (s PurchaseOrderStatus) Receivable() bool {
	return s == PurchaseOrderStatusIssued || s == PurchaseOrderStatusPartial
}

type InvoiceStatus string

const (
	InvoiceStatusUnpaid    InvoiceStatus = "Unpaid"
	InvoiceStatusPartial   InvoiceStatus = "Partial"
	InvoiceStatusPaid      InvoiceStatus = "Paid"
	InvoiceStatusCancelled InvoiceStatus = "Cancelled"
)

func (s InvoiceStatus) Payable() bool {
	return s == InvoiceStatusUnpaid || s == InvoiceStatusPartial
}

type FinancialAccountType string

const (
	FinancialAccountTypeCash FinancialAccountType = "cash"
	FinancialAccountTypeBank FinancialAccountType = "bank"
)

func (t FinancialAccountType) IsValid() bool {
	return t == FinancialAccountTypeCash || t == FinancialAccountTypeBank
}

type AccountTransactionType string

const (
	AccountTransactionTypeDeposit    AccountTransactionType = "Deposit"
	AccountTransactionTypeWithdrawal AccountTransactionType = "Withdrawal"
	AccountTransactionTypeSettlement AccountTransactionType = "Settlement"
)

type StockOpnameMode string

const (
	StockOpnameModeBatch StockOpnameMode = "Batch"
	StockOpnameModeSpot  StockOpnameMode = "Spot"
)

type OutboxEventType string

const (
	OutboxEventReceiptPosted    OutboxEventType = "ReceiptPosted"
	OutboxEventInvoiceGenerated OutboxEventType = "InvoiceGenerated"
	OutboxEventPaymentSettled   OutboxEventType = "PaymentSettled"
	OutboxEventInvoicePaid      OutboxEventType = "InvoicePaid"
	OutboxEventOpnamePosted     OutboxEventType = "OpnamePosted"
	OutboxEventUsagePosted      OutboxEventType = "UsagePosted"
	OutboxEventReturnPosted     OutboxEventType = "ReturnPosted"
)

// document number prefixes, one per transactional module
const (
	DocPrefixPurchaseOrder   = "PO"
	DocPrefixGoodsReceipt    = "GR"
	DocPrefixInvoice         = "INV"
	DocPrefixSupplierPayment = "PAY"
	DocPrefixStockOpname     = "SO"
	DocPrefixInternalUsage   = "IU"
	DocPrefixInternalReturn  = "IR"
)
