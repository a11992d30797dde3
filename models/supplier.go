package models

import (
	"context"
	"time"

	"github.com/warungpos/procure_backend/config"
	"github.com/warungpos/procure_backend/utils"
)

type Supplier struct {
	ID            int       `gorm:"primary_key" json:"id"`
	OutletCode    string    `gorm:"index;size:20;not null" json:"outlet_code"`
	Name          string    `gorm:"size:100;not null" json:"name" binding:"required"`
	ContactPerson string    `gorm:"size:100" json:"contact_person"`
	Phone         string    `gorm:"size:30" json:"phone"`
	Address       string    `gorm:"type:text;default:null" json:"address"`
	IsActive      *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewSupplier struct {
	Name          string `json:"name" binding:"required"`
	ContactPerson string `json:"contact_person"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
}

func (input *NewSupplier) validate(ctx context.Context, outletCode string, id int) error {
	if err := utils.ValidateUnique[Supplier](ctx, outletCode, "name", input.Name, id); err != nil {
		if err == utils.ErrorNotUnique {
			return newValidationError("name", "supplier name already exists")
		}
		return err
	}
	return nil
}

func CreateSupplier(ctx context.Context, input *NewSupplier) (*Supplier, error) {
	outletCode, err := outletCodeFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, outletCode, 0); err != nil {
		return nil, err
	}

	supplier := Supplier{
		OutletCode:    outletCode,
		Name:          input.Name,
		ContactPerson: input.ContactPerson,
		Phone:         input.Phone,
		Address:       input.Address,
		IsActive:      utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&supplier).Error; err != nil {
		return nil, err
	}
	return &supplier, nil
}

func UpdateSupplier(ctx context.Context, id int, input *NewSupplier) (*Supplier, error) {
	outletCode, err := outletCodeFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, outletCode, id); err != nil {
		return nil, err
	}

	supplier, err := utils.FetchModel[Supplier](ctx, outletCode, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(supplier).Updates(map[string]interface{}{
		"Name":          input.Name,
		"ContactPerson": input.ContactPerson,
		"Phone":         input.Phone,
		"Address":       input.Address,
	}).Error
	if err != nil {
		return nil, err
	}
	return supplier, nil
}

func ToggleActiveSupplier(ctx context.Context, id int, isActive bool) (*Supplier, error) {
	outletCode, err := outletCodeFromContext(ctx)
	if err != nil {
		return nil, err
	}

	supplier, err := utils.FetchModel[Supplier](ctx, outletCode, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(supplier).UpdateColumn("IsActive", isActive).Error; err != nil {
		return nil, err
	}
	return supplier, nil
}

func GetSupplier(ctx context.Context, id int) (*Supplier, error) {
	outletCode, err := outletCodeFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[Supplier](ctx, outletCode, id)
}

func GetSuppliers(ctx context.Context, name *string) ([]*Supplier, error) {
	outletCode, err := outletCodeFromContext(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var results []*Supplier
	dbCtx := db.WithContext(ctx).Where("outlet_code = ?", outletCode)
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	if err := dbCtx.Order("name").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
