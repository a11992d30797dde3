package models

import (
	"context"
	"time"

	"github.com/warungpos/procure_backend/config"
	"github.com/warungpos/procure_backend/utils"
)

// Outlet is a physical business location. Every transactional document in
// this engine is scoped to exactly one outlet via its code.
type Outlet struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Code      string    `gorm:"uniqueIndex;size:20;not null" json:"code" binding:"required"`
	Name      string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Address   string    `gorm:"type:text;default:null" json:"address"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewOutlet struct {
	Code    string `json:"code" binding:"required"`
	Name    string `json:"name" binding:"required"`
	Address string `json:"address"`
}

func CreateOutlet(ctx context.Context, input *NewOutlet) (*Outlet, error) {
	db := config.GetDB()

	var count int64
	if err := db.WithContext(ctx).Model(&Outlet{}).Where("code = ?", input.Code).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, newConflictError("outlet code already exists - " + input.Code)
	}

	outlet := Outlet{
		Code:     input.Code,
		Name:     input.Name,
		Address:  input.Address,
		IsActive: utils.NewTrue(),
	}
	if err := db.WithContext(ctx).Create(&outlet).Error; err != nil {
		if isDuplicateKeyError(err) {
			return nil, newConflictError("outlet code already exists - " + input.Code)
		}
		return nil, err
	}
	return &outlet, nil
}

func GetOutletByCode(ctx context.Context, code string) (*Outlet, error) {
	db := config.GetDB()
	var outlet Outlet
	if err := db.WithContext(ctx).Where("code = ?", code).First(&outlet).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &outlet, nil
}

func GetOutlets(ctx context.Context) ([]*Outlet, error) {
	db := config.GetDB()
	var results []*Outlet
	if err := db.WithContext(ctx).Order("code").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func outletActiveCacheKey(code string) string {
	return "outlet-active-" + code
}

// ValidateOutletExists guards every command against a stale or mistyped
// outlet claim. Hit on nearly every request, so positive results are cached
// briefly in redis; ToggleActiveOutlet invalidates the key.
func ValidateOutletExists(ctx context.Context, code string) error {
	var cached bool
	if found, err := config.GetRedisObject(outletActiveCacheKey(code), &cached); err == nil && found && cached {
		return nil
	}

	db := config.GetDB()
	var count int64
	if err := db.WithContext(ctx).Model(&Outlet{}).
		Where("code = ? AND is_active = true", code).Count(&count).Error; err != nil {
		return err
	}
	if count <= 0 {
		return newValidationError("outlet_code", "outlet not found - "+code)
	}
	_ = config.SetRedisObject(outletActiveCacheKey(code), true, 5*time.Minute)
	return nil
}

// ToggleActiveOutlet opens or closes a location. Documents already posted
// under the outlet are untouched; new commands against an inactive outlet
// are refused at the gate.
func ToggleActiveOutlet(ctx context.Context, code string, isActive bool) (*Outlet, error) {
	outlet, err := GetOutletByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(outlet).UpdateColumn("IsActive", isActive).Error; err != nil {
		return nil, err
	}
	if err := config.RemoveRedisKey(outletActiveCacheKey(code)); err != nil {
		config.LogError(config.GetLogger(), "models", "ToggleActiveOutlet", "cache invalidation", code, err)
	}
	outlet.IsActive = &isActive
	return outlet, nil
}
