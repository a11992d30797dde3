package main

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warungpos/procure_backend/config"
	"github.com/warungpos/procure_backend/models"
	"github.com/warungpos/procure_backend/utils"
)

// Seeds one demo outlet with a supplier, a few items and two accounts, then
// prints a token scoped to it. Safe to run against an empty database only.
func main() {
	logger := config.GetLogger()

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	if err := models.MigrateTable(); err != nil {
		logger.Fatalf("migration failed: %v", err)
	}

	ctx := context.Background()

	outlet, err := models.CreateOutlet(ctx, &models.NewOutlet{
		Code: "DEMO01",
		Name: "Demo Outlet",
	})
	if err != nil {
		logger.Fatalf("seed outlet: %v", err)
	}

	ctx = utils.SetOutletCodeInContext(ctx, outlet.Code)
	ctx = utils.SetUserIdInContext(ctx, 1)

	supplier, err := models.CreateSupplier(ctx, &models.NewSupplier{
		Name:    "PT Sumber Pangan",
		Phone:   "+62-21-555-0101",
		Address: "Jl. Pasar Induk No. 7, Jakarta",
	})
	if err != nil {
		logger.Fatalf("seed supplier: %v", err)
	}

	items := []*models.NewItem{
		{
			Sku:            "RICE-25",
			Name:           "Beras Premium",
			BaseUnit:       "kg",
			PurchaseUnit:   "sack",
			ConversionRate: decimal.NewFromInt(25),
			PurchasePrice:  decimal.NewFromInt(300000),
			UnitCost:       decimal.NewFromInt(12000),
		},
		{
			Sku:            "OIL-12",
			Name:           "Minyak Goreng",
			BaseUnit:       "litre",
			PurchaseUnit:   "box",
			ConversionRate: decimal.NewFromInt(12),
			PurchasePrice:  decimal.NewFromInt(204000),
			UnitCost:       decimal.NewFromInt(17000),
		},
		{
			Sku:            "SUGAR-1",
			Name:           "Gula Pasir",
			BaseUnit:       "kg",
			PurchaseUnit:   "kg",
			ConversionRate: decimal.NewFromInt(1),
			PurchasePrice:  decimal.NewFromInt(15000),
			UnitCost:       decimal.NewFromInt(15000),
		},
	}
	for _, input := range items {
		if _, err := models.CreateItem(ctx, input); err != nil {
			logger.Fatalf("seed item %s: %v", input.Name, err)
		}
	}

	accounts := []*models.NewFinancialAccount{
		{
			Name:           "Kas Toko",
			AccountType:    models.FinancialAccountTypeCash,
			OpeningBalance: decimal.NewFromInt(5000000),
		},
		{
			Name:           "BCA Operasional",
			AccountType:    models.FinancialAccountTypeBank,
			OpeningBalance: decimal.NewFromInt(50000000),
		},
	}
	for _, input := range accounts {
		if _, err := models.CreateFinancialAccount(ctx, input); err != nil {
			logger.Fatalf("seed account %s: %v", input.Name, err)
		}
	}

	token, err := utils.JwtGenerate(1, "Demo Admin", outlet.Code, "admin")
	if err != nil {
		logger.Fatalf("token: %v", err)
	}

	logger.Infof("seeded outlet %s with supplier %s", outlet.Code, supplier.Name)
	fmt.Println(token)
}
