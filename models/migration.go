package models

import "github.com/warungpos/procure_backend/config"

// MigrateTable keeps the schema current. Called once on startup.
func MigrateTable() error {
	db := config.GetDB()
	return db.AutoMigrate(
		&Outlet{},
		&Supplier{},
		&Item{},
		&FinancialAccount{},
		&AccountTransaction{},
		&InventoryBalance{},
		&PurchaseOrder{},
		&PurchaseOrderItem{},
		&GoodsReceipt{},
		&GoodsReceiptItem{},
		&Invoice{},
		&SupplierPayment{},
		&PaymentAllocation{},
		&StockOpname{},
		&StockOpnameItem{},
		&InternalUsage{},
		&InternalUsageLine{},
		&InternalReturn{},
		&InternalReturnLine{},
		&OutboxRecord{},
	)
}
