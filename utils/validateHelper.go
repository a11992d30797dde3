package utils

import (
	"context"
	"reflect"

	"github.com/warungpos/procure_backend/config"
)

// check if id exists, using ctx's outlet_code in WHERE, return RecordNotFound error
func ValidateResourceId[T any](ctx context.Context, outletCode string, id interface{}) error {

	count, err := ResourceCountWhere[T](ctx, outletCode, "id = ?", id)
	if err != nil {
		return err
	}
	if count <= 0 {
		return ErrorRecordNotFound
	}

	return nil
}

// check if ALL ids exist, using ctx's outlet_code in WHERE
func ValidateResourcesId[M any, ID comparable](ctx context.Context, outletCode string, ids []ID) error {
	unqIds := UniqueSlice(ids)

	count, err := ResourceCountWhere[M](ctx, outletCode, "id IN ?", unqIds)
	if err != nil {
		return err
	}
	if count != int64(len(unqIds)) {
		return ErrorRecordNotFound
	}

	return nil
}

func ValidateUnique[T any](ctx context.Context, outletCode string, column string, value interface{}, exceptId interface{}) error {
	var count int64
	var err error
	if reflect.ValueOf(exceptId).IsZero() {
		count, err = ResourceCountWhere[T](ctx, outletCode, column+" = ?", value)
	} else {
		count, err = ResourceCountWhere[T](ctx, outletCode, column+" = ? AND id != ?", value, exceptId)
	}
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrorNotUnique
	}
	return nil
}

func ResourceCountWhere[T any](ctx context.Context, outletCode string, cond string, values ...interface{}) (int64, error) {
	db := config.GetDB()
	var model T
	var count int64
	dbCtx := db.WithContext(ctx).Model(&model)
	if outletCode != "" {
		dbCtx = dbCtx.Where("outlet_code = ?", outletCode)
	}
	if err := dbCtx.Where(cond, values...).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
