package models_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warungpos/procure_backend/config"
	"github.com/warungpos/procure_backend/models"
	"github.com/warungpos/procure_backend/utils"
)

func setupIntegrationEnv(t *testing.T) context.Context {
	t.Helper()
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "procure_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	if err := models.MigrateTable(); err != nil {
		t.Fatalf("MigrateTable: %v", err)
	}

	ctx := context.Background()
	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, "Test")

	outlet, err := models.CreateOutlet(ctx, &models.NewOutlet{Code: "TST01", Name: "Test Outlet"})
	if err != nil {
		t.Fatalf("CreateOutlet: %v", err)
	}
	return utils.SetOutletCodeInContext(ctx, outlet.Code)
}

func seedSupplierAndItems(t *testing.T, ctx context.Context) (*models.Supplier, *models.Item, *models.Item) {
	t.Helper()

	supplier, err := models.CreateSupplier(ctx, &models.NewSupplier{Name: "Test Supplier"})
	if err != nil {
		t.Fatalf("CreateSupplier: %v", err)
	}

	// rice arrives by the 25kg sack, sugar by the kilo
	rice, err := models.CreateItem(ctx, &models.NewItem{
		Sku:            "RICE-25",
		Name:           "Rice",
		BaseUnit:       "kg",
		PurchaseUnit:   "sack",
		ConversionRate: decimal.NewFromInt(25),
		PurchasePrice:  decimal.NewFromInt(300000),
		UnitCost:       decimal.NewFromInt(12000),
	})
	if err != nil {
		t.Fatalf("CreateItem rice: %v", err)
	}
	sugar, err := models.CreateItem(ctx, &models.NewItem{
		Sku:            "SUGAR-1",
		Name:           "Sugar",
		BaseUnit:       "kg",
		PurchaseUnit:   "kg",
		ConversionRate: decimal.NewFromInt(1),
		PurchasePrice:  decimal.NewFromInt(15000),
		UnitCost:       decimal.NewFromInt(15000),
	})
	if err != nil {
		t.Fatalf("CreateItem sugar: %v", err)
	}
	return supplier, rice, sugar
}

func TestProcurementLifecycleEndToEnd(t *testing.T) {
	ctx := setupIntegrationEnv(t)
	supplier, rice, sugar := seedSupplierAndItems(t, ctx)

	account, err := models.CreateFinancialAccount(ctx, &models.NewFinancialAccount{
		Name:           "Main Cash",
		AccountType:    models.FinancialAccountTypeCash,
		OpeningBalance: decimal.NewFromInt(10000000),
	})
	if err != nil {
		t.Fatalf("CreateFinancialAccount: %v", err)
	}

	order, err := models.CreatePurchaseOrder(ctx, &models.NewPurchaseOrder{
		SupplierId: supplier.ID,
		Items: []*models.NewPurchaseOrderItem{
			{ItemId: rice.ID, QtyOrdered: decimal.NewFromInt(4)},
			{ItemId: sugar.ID, QtyOrdered: decimal.NewFromInt(50)},
		},
	})
	if err != nil {
		t.Fatalf("CreatePurchaseOrder: %v", err)
	}
	if order.Status != models.PurchaseOrderStatusDraft {
		t.Fatalf("new order status = %s", order.Status)
	}
	// 4*300000 + 50*15000
	if !order.Total.Equal(decimal.NewFromInt(1950000)) {
		t.Fatalf("order total = %s", order.Total)
	}
	if !strings.HasPrefix(order.DocumentNumber, "PO-TST01-") {
		t.Fatalf("document number = %s", order.DocumentNumber)
	}

	// receipts against a draft must fail
	_, err = models.CreateGoodsReceipt(ctx, &models.NewGoodsReceipt{
		PurchaseOrderId: order.ID,
		Items: []*models.NewGoodsReceiptItem{
			{PurchaseOrderItemId: order.Items[0].ID, QtyReceived: decimal.NewFromInt(1)},
		},
	})
	var stateErr *models.StateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("receipt on draft: want StateError, got %v", err)
	}

	if _, err := models.IssuePurchaseOrder(ctx, order.ID); err != nil {
		t.Fatalf("IssuePurchaseOrder: %v", err)
	}

	// partial receipt: 2 of 4 sacks, all the sugar
	receipt, err := models.CreateGoodsReceipt(ctx, &models.NewGoodsReceipt{
		PurchaseOrderId: order.ID,
		Items: []*models.NewGoodsReceiptItem{
			{PurchaseOrderItemId: order.Items[0].ID, QtyReceived: decimal.NewFromInt(2)},
			{PurchaseOrderItemId: order.Items[1].ID, QtyReceived: decimal.NewFromInt(50)},
		},
	})
	if err != nil {
		t.Fatalf("CreateGoodsReceipt: %v", err)
	}
	if !strings.HasPrefix(receipt.DocumentNumber, "GR-TST01-") {
		t.Fatalf("receipt document number = %s", receipt.DocumentNumber)
	}

	order, err = models.GetPurchaseOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("GetPurchaseOrder: %v", err)
	}
	if order.Status != models.PurchaseOrderStatusPartial {
		t.Fatalf("order status after partial receipt = %s", order.Status)
	}

	// on-hand is tracked in base units: 2 sacks * 25 kg
	riceBalance, err := models.GetInventoryBalance(ctx, rice.ID)
	if err != nil {
		t.Fatalf("GetInventoryBalance: %v", err)
	}
	if !riceBalance.QtyOnHand.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("rice on hand = %s, want 50", riceBalance.QtyOnHand)
	}

	// over-receipt of the remainder must fail atomically
	_, err = models.CreateGoodsReceipt(ctx, &models.NewGoodsReceipt{
		PurchaseOrderId: order.ID,
		Items: []*models.NewGoodsReceiptItem{
			{PurchaseOrderItemId: order.Items[0].ID, QtyReceived: decimal.NewFromInt(3)},
		},
	})
	var vErr *models.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("over-receipt: want ValidationError, got %v", err)
	}
	riceBalance, _ = models.GetInventoryBalance(ctx, rice.ID)
	if !riceBalance.QtyOnHand.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("failed receipt moved stock: rice on hand = %s", riceBalance.QtyOnHand)
	}

	// close out the order, then confirm a second call is a no-op
	closing, err := models.ReceiveRemaining(ctx, order.ID, "close out")
	if err != nil {
		t.Fatalf("ReceiveRemaining: %v", err)
	}
	if closing == nil {
		t.Fatalf("ReceiveRemaining returned no receipt with quantity open")
	}
	order, _ = models.GetPurchaseOrder(ctx, order.ID)
	if order.Status != models.PurchaseOrderStatusCompleted {
		t.Fatalf("order status after closing receipt = %s", order.Status)
	}
	noop, err := models.ReceiveRemaining(ctx, order.ID, "again")
	if err != nil {
		t.Fatalf("ReceiveRemaining second call: %v", err)
	}
	if noop != nil {
		t.Fatalf("second ReceiveRemaining created receipt %s", noop.DocumentNumber)
	}

	dueDate := time.Now().AddDate(0, 0, 30)
	// an invoice needs the supplier's own bill number and a due date
	_, err = models.GenerateInvoice(ctx, &models.NewInvoice{PurchaseOrderId: order.ID, DueDate: &dueDate})
	if !errors.As(err, &vErr) {
		t.Fatalf("invoice without supplier reference: want ValidationError, got %v", err)
	}
	_, err = models.GenerateInvoice(ctx, &models.NewInvoice{PurchaseOrderId: order.ID, SupplierReference: "SUP/2024/081"})
	if !errors.As(err, &vErr) {
		t.Fatalf("invoice without due date: want ValidationError, got %v", err)
	}

	invoice, err := models.GenerateInvoice(ctx, &models.NewInvoice{
		PurchaseOrderId:   order.ID,
		SupplierReference: "SUP/2024/081",
		DueDate:           &dueDate,
	})
	if err != nil {
		t.Fatalf("GenerateInvoice: %v", err)
	}
	// everything was received, so the bill matches the order total
	if !invoice.Total.Equal(decimal.NewFromInt(1950000)) {
		t.Fatalf("invoice total = %s", invoice.Total)
	}
	if invoice.SupplierReference != "SUP/2024/081" {
		t.Fatalf("invoice supplier reference = %q", invoice.SupplierReference)
	}
	order, _ = models.GetPurchaseOrder(ctx, order.ID)
	if order.Status != models.PurchaseOrderStatusInvoiced {
		t.Fatalf("order status after invoicing = %s", order.Status)
	}
	_, err = models.GenerateInvoice(ctx, &models.NewInvoice{
		PurchaseOrderId:   order.ID,
		SupplierReference: "SUP/2024/082",
		DueDate:           &dueDate,
	})
	var conflictErr *models.ConflictError
	if !errors.As(err, &conflictErr) {
		t.Fatalf("second invoice: want ConflictError, got %v", err)
	}

	// settlement too large for the account fails without touching anything
	poor, err := models.CreateFinancialAccount(ctx, &models.NewFinancialAccount{
		Name:           "Petty Cash",
		AccountType:    models.FinancialAccountTypeCash,
		OpeningBalance: decimal.NewFromInt(1000),
	})
	if err != nil {
		t.Fatalf("CreateFinancialAccount petty: %v", err)
	}
	_, err = models.CreateSupplierPayment(ctx, &models.NewSupplierPayment{
		SupplierId:         supplier.ID,
		FinancialAccountId: poor.ID,
		Bills:              []*models.NewPaymentBill{{InvoiceId: invoice.ID}},
	})
	var fundsErr *models.InsufficientFundsError
	if !errors.As(err, &fundsErr) {
		t.Fatalf("want InsufficientFundsError, got %v", err)
	}
	invoice, _ = models.GetInvoice(ctx, invoice.ID)
	if invoice.Status != models.InvoiceStatusUnpaid {
		t.Fatalf("failed settlement changed invoice status to %s", invoice.Status)
	}
	poorAfter, _ := models.GetFinancialAccount(ctx, poor.ID)
	if !poorAfter.Balance.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("failed settlement moved balance to %s", poorAfter.Balance)
	}

	// pay down in full with a 50000 discount
	payment, err := models.CreateSupplierPayment(ctx, &models.NewSupplierPayment{
		SupplierId:         supplier.ID,
		FinancialAccountId: account.ID,
		Bills: []*models.NewPaymentBill{
			{InvoiceId: invoice.ID, Discount: decimal.NewFromInt(50000)},
		},
	})
	if err != nil {
		t.Fatalf("CreateSupplierPayment: %v", err)
	}
	if !payment.TotalPaid.Equal(decimal.NewFromInt(1900000)) {
		t.Fatalf("total paid = %s, want 1900000", payment.TotalPaid)
	}

	invoice, _ = models.GetInvoice(ctx, invoice.ID)
	if invoice.Status != models.InvoiceStatusPaid {
		t.Fatalf("invoice status after settlement = %s", invoice.Status)
	}
	accountAfter, _ := models.GetFinancialAccount(ctx, account.ID)
	if !accountAfter.Balance.Equal(decimal.NewFromInt(8100000)) {
		t.Fatalf("account balance = %s, want 8100000", accountAfter.Balance)
	}

	txns, err := models.GetAccountTransactions(ctx, account.ID)
	if err != nil {
		t.Fatalf("GetAccountTransactions: %v", err)
	}
	if len(txns) != 1 || txns[0].TransactionType != models.AccountTransactionTypeSettlement {
		t.Fatalf("unexpected ledger: %+v", txns)
	}

	// every posting left an outbox row behind
	db := config.GetDB()
	var outboxCount int64
	if err := db.Model(&models.OutboxRecord{}).Where("processed = false").Count(&outboxCount).Error; err != nil {
		t.Fatalf("count outbox: %v", err)
	}
	if outboxCount < 5 {
		t.Fatalf("outbox rows = %d, want at least 5", outboxCount)
	}
}

func TestOpnameAndInternalLedgerFlows(t *testing.T) {
	ctx := setupIntegrationEnv(t)
	supplier, rice, sugar := seedSupplierAndItems(t, ctx)

	// bring in stock: 1 sack of rice (25kg), 20kg sugar
	order, err := models.CreatePurchaseOrder(ctx, &models.NewPurchaseOrder{
		SupplierId: supplier.ID,
		Items: []*models.NewPurchaseOrderItem{
			{ItemId: rice.ID, QtyOrdered: decimal.NewFromInt(1)},
			{ItemId: sugar.ID, QtyOrdered: decimal.NewFromInt(20)},
		},
	})
	if err != nil {
		t.Fatalf("CreatePurchaseOrder: %v", err)
	}
	if _, err := models.IssuePurchaseOrder(ctx, order.ID); err != nil {
		t.Fatalf("IssuePurchaseOrder: %v", err)
	}
	if _, err := models.ReceiveRemaining(ctx, order.ID, ""); err != nil {
		t.Fatalf("ReceiveRemaining: %v", err)
	}

	// spot count finds 22kg of rice instead of 25
	counted := decimal.NewFromInt(22)
	spot, err := models.CreateStockOpname(ctx, &models.NewStockOpname{
		Mode: models.StockOpnameModeSpot,
		Lines: []*models.NewStockOpnameLine{
			{ItemId: rice.ID, CountedQty: &counted, Note: "torn sack behind the rack"},
		},
	})
	if err != nil {
		t.Fatalf("CreateStockOpname spot: %v", err)
	}
	if len(spot.Items) != 1 {
		t.Fatalf("spot opname rows = %d", len(spot.Items))
	}
	if spot.Items[0].Note != "torn sack behind the rack" {
		t.Fatalf("spot line note = %q", spot.Items[0].Note)
	}
	if !spot.Items[0].DiffQty.Equal(decimal.NewFromInt(-3)) {
		t.Fatalf("spot diff = %s, want -3", spot.Items[0].DiffQty)
	}
	// 3kg missing at 12000/kg
	if !spot.Items[0].VarianceValue.Equal(decimal.NewFromInt(-36000)) {
		t.Fatalf("spot variance = %s, want -36000", spot.Items[0].VarianceValue)
	}
	riceBalance, _ := models.GetInventoryBalance(ctx, rice.ID)
	if !riceBalance.QtyOnHand.Equal(counted) {
		t.Fatalf("rice on hand after spot = %s, want 22", riceBalance.QtyOnHand)
	}

	// take 5kg sugar for the kitchen, bring 2kg back
	usage, err := models.CreateInternalUsage(ctx, &models.NewInternalUsage{
		Category: "kitchen",
		Reason:   "daily prep",
		Lines:    []*models.NewInternalLedgerLine{{ItemId: sugar.ID, Qty: decimal.NewFromInt(5), Note: "for syrup"}},
	})
	if err != nil {
		t.Fatalf("CreateInternalUsage: %v", err)
	}
	if !strings.HasPrefix(usage.DocumentNumber, "IU-TST01-") {
		t.Fatalf("usage document number = %s", usage.DocumentNumber)
	}
	if usage.Category != "kitchen" {
		t.Fatalf("usage category = %q", usage.Category)
	}
	// a blank line unit resolves to the item's base unit
	if usage.Lines[0].Unit != "kg" || usage.Lines[0].Note != "for syrup" {
		t.Fatalf("usage line unit/note = %q/%q", usage.Lines[0].Unit, usage.Lines[0].Note)
	}

	// taking more than on hand fails and moves nothing
	_, err = models.CreateInternalUsage(ctx, &models.NewInternalUsage{
		Lines: []*models.NewInternalLedgerLine{{ItemId: sugar.ID, Qty: decimal.NewFromInt(100)}},
	})
	var vErr *models.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("oversized usage: want ValidationError, got %v", err)
	}
	sugarBalance, _ := models.GetInventoryBalance(ctx, sugar.ID)
	if !sugarBalance.QtyOnHand.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("sugar on hand = %s, want 15", sugarBalance.QtyOnHand)
	}

	ret, err := models.CreateInternalReturn(ctx, &models.NewInternalReturn{
		Category: "kitchen",
		Reason:   "unused",
		Lines:    []*models.NewInternalLedgerLine{{ItemId: sugar.ID, Qty: decimal.NewFromInt(2), Note: "still sealed"}},
	})
	if err != nil {
		t.Fatalf("CreateInternalReturn: %v", err)
	}
	if ret.Lines[0].Note != "still sealed" || ret.Lines[0].Unit != "kg" {
		t.Fatalf("return line note/unit = %q/%q", ret.Lines[0].Note, ret.Lines[0].Unit)
	}
	sugarBalance, _ = models.GetInventoryBalance(ctx, sugar.ID)
	if !sugarBalance.QtyOnHand.Equal(decimal.NewFromInt(17)) {
		t.Fatalf("sugar on hand after return = %s, want 17", sugarBalance.QtyOnHand)
	}

	// batch count sweeps every balance and writes a row per item
	batch, err := models.CreateStockOpname(ctx, &models.NewStockOpname{
		Mode: models.StockOpnameModeBatch,
	})
	if err != nil {
		t.Fatalf("CreateStockOpname batch: %v", err)
	}
	if len(batch.Items) != 2 {
		t.Fatalf("batch opname rows = %d, want 2", len(batch.Items))
	}
	for _, row := range batch.Items {
		if !row.DiffQty.IsZero() {
			t.Fatalf("blank batch count produced diff %s on item %d", row.DiffQty, row.ItemId)
		}
	}
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("procure-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("procure-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=procure_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
