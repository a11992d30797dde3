package models

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warungpos/procure_backend/config"
	"github.com/warungpos/procure_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FinancialAccount holds the running cash or bank balance that supplier
// settlements draw from. Balance is only mutated inside transactions that
// lock the row first.
type FinancialAccount struct {
	ID          int                  `gorm:"primary_key" json:"id"`
	OutletCode  string               `gorm:"index;size:20;not null" json:"outlet_code"`
	Name        string               `gorm:"size:100;not null" json:"name" binding:"required"`
	AccountType FinancialAccountType `gorm:"size:10;not null" json:"account_type" binding:"required"`
	Balance     decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"balance"`
	IsActive    *bool                `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time            `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time            `gorm:"autoUpdateTime" json:"updated_at"`
}

// AccountTransaction is the append-only ledger behind every balance change.
type AccountTransaction struct {
	ID                 int                    `gorm:"primary_key" json:"id"`
	OutletCode         string                 `gorm:"index;size:20;not null" json:"outlet_code"`
	FinancialAccountId int                    `gorm:"index;not null" json:"financial_account_id"`
	FinancialAccount   *FinancialAccount      `json:"financial_account,omitempty"`
	TransactionType    AccountTransactionType `gorm:"size:20;not null" json:"transaction_type"`
	Amount             decimal.Decimal        `gorm:"type:decimal(20,4);not null" json:"amount"`
	BalanceAfter       decimal.Decimal        `gorm:"type:decimal(20,4);not null" json:"balance_after"`
	ReferenceType      string                 `gorm:"size:30" json:"reference_type"`
	ReferenceId        int                    `gorm:"default:null" json:"reference_id"`
	Description        string                 `gorm:"size:255" json:"description"`
	CreatedBy          int                    `json:"created_by"`
	CreatedAt          time.Time              `gorm:"autoCreateTime" json:"created_at"`
}

type NewFinancialAccount struct {
	Name           string               `json:"name" binding:"required"`
	AccountType    FinancialAccountType `json:"account_type" binding:"required"`
	OpeningBalance decimal.Decimal      `json:"opening_balance"`
}

func CreateFinancialAccount(ctx context.Context, input *NewFinancialAccount) (*FinancialAccount, error) {
	outletCode, err := outletCodeFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if !input.AccountType.IsValid() {
		return nil, newValidationError("account_type", "account type must be cash or bank")
	}
	if input.OpeningBalance.IsNegative() {
		return nil, newValidationError("opening_balance", "opening balance cannot be negative")
	}
	if err := utils.ValidateUnique[FinancialAccount](ctx, outletCode, "name", input.Name, 0); err != nil {
		if err == utils.ErrorNotUnique {
			return nil, newValidationError("name", "account name already exists")
		}
		return nil, err
	}

	account := FinancialAccount{
		OutletCode:  outletCode,
		Name:        input.Name,
		AccountType: input.AccountType,
		Balance:     input.OpeningBalance,
		IsActive:    utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

type NewAccountTransaction struct {
	FinancialAccountId int                    `json:"financial_account_id" binding:"required"`
	TransactionType    AccountTransactionType `json:"transaction_type" binding:"required"`
	Amount             decimal.Decimal        `json:"amount" binding:"required"`
	Description        string                 `json:"description"`
}

// CreateAccountTransaction records a manual deposit or withdrawal and moves
// the balance under a row lock. Withdrawals beyond the balance are refused.
func CreateAccountTransaction(ctx context.Context, input *NewAccountTransaction) (*AccountTransaction, error) {
	outletCode, err := outletCodeFromContext(ctx)
	if err != nil {
		return nil, err
	}
	userId := userIdFromContext(ctx)

	if input.TransactionType != AccountTransactionTypeDeposit && input.TransactionType != AccountTransactionTypeWithdrawal {
		return nil, newValidationError("transaction_type", "transaction type must be Deposit or Withdrawal")
	}
	if !input.Amount.IsPositive() {
		return nil, newValidationError("amount", "amount must be greater than zero")
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer tx.Rollback()

	account, err := lockFinancialAccount(tx, outletCode, input.FinancialAccountId)
	if err != nil {
		return nil, err
	}

	delta := input.Amount
	if input.TransactionType == AccountTransactionTypeWithdrawal {
		if account.Balance.LessThan(input.Amount) {
			return nil, newInsufficientFundsError(account.ID, input.Amount, account.Balance)
		}
		delta = input.Amount.Neg()
	}

	record, err := applyAccountMovement(tx, account, input.TransactionType, delta, "AccountTransaction", 0, input.Description, userId)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return record, nil
}

func GetFinancialAccount(ctx context.Context, id int) (*FinancialAccount, error) {
	outletCode, err := outletCodeFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[FinancialAccount](ctx, outletCode, id)
}

func GetFinancialAccounts(ctx context.Context) ([]*FinancialAccount, error) {
	outletCode, err := outletCodeFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchAllModels[FinancialAccount](ctx, outletCode)
}

func GetAccountTransactions(ctx context.Context, accountId int) ([]*AccountTransaction, error) {
	outletCode, err := outletCodeFromContext(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var results []*AccountTransaction
	err = db.WithContext(ctx).
		Where("outlet_code = ? AND financial_account_id = ?", outletCode, accountId).
		Order("id desc").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// lockFinancialAccount fetches the account FOR UPDATE inside the caller's
// transaction.
func lockFinancialAccount(tx *gorm.DB, outletCode string, id int) (*FinancialAccount, error) {
	var account FinancialAccount
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("outlet_code = ? AND id = ?", outletCode, id).
		First(&account).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	if account.IsActive != nil && !*account.IsActive {
		return nil, newValidationError("financial_account_id", "account is not active")
	}
	return &account, nil
}

// applyAccountMovement shifts the locked account's balance by delta and writes
// the matching ledger row. Callers must already hold the row lock.
func applyAccountMovement(
	tx *gorm.DB,
	account *FinancialAccount,
	txnType AccountTransactionType,
	delta decimal.Decimal,
	referenceType string,
	referenceId int,
	description string,
	userId int,
) (*AccountTransaction, error) {
	newBalance := account.Balance.Add(delta)
	if err := tx.Model(account).UpdateColumn("Balance", newBalance).Error; err != nil {
		return nil, err
	}
	account.Balance = newBalance

	record := AccountTransaction{
		OutletCode:         account.OutletCode,
		FinancialAccountId: account.ID,
		TransactionType:    txnType,
		Amount:             delta.Abs(),
		BalanceAfter:       newBalance,
		ReferenceType:      referenceType,
		ReferenceId:        referenceId,
		Description:        description,
		CreatedBy:          userId,
	}
	if err := tx.Create(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}
