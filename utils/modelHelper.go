package utils

import (
	"context"

	"github.com/warungpos/procure_backend/config"
)

/* DB fetching */

// fetch model from db
// (ctx's outlet_code is used in query's WHERE, may return RecordNotFound)
func FetchModel[T any](ctx context.Context, outletCode string, id int, associations ...string) (*T, error) {

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("outlet_code = ?", outletCode)
	// preloading
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var result T
	err := dbCtx.First(&result, id).Error
	if err != nil {
		return nil, ErrorRecordNotFound
	}
	return &result, nil
}

// fetch all models from db
// (ctx's outlet_code is used in query's WHERE)
func FetchAllModels[T any](ctx context.Context, outletCode string, associations ...string) ([]*T, error) {

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("outlet_code = ?", outletCode)
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var results []*T
	err := dbCtx.Find(&results).Error
	if err != nil {
		return nil, ErrorRecordNotFound
	}
	return results, nil
}
