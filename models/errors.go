package models

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// The engine returns one of four failure kinds; callers branch with errors.As.
// Nothing is written to the database before a ValidationError/StateError, and
// a ConflictError always means regenerate-and-retry, never corruption.

// ValidationError reports bad input. Line is 1-based when the offending value
// sits inside a document line, 0 otherwise.
type ValidationError struct {
	Field   string
	Line    int
	Message string
}

func (e *ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("validation failed on line %d (%s): %s", e.Line, e.Field, e.Message)
	}
	if e.Field != "" {
		return fmt.Sprintf("validation failed (%s): %s", e.Field, e.Message)
	}
	return "validation failed: " + e.Message
}

func newValidationError(field string, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func newLineValidationError(line int, field string, message string) *ValidationError {
	return &ValidationError{Line: line, Field: field, Message: message}
}

// ConflictError reports a lost race or duplicate document: the caller should
// regenerate (document number) or re-read (invoice already exists) and retry.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return "conflict: " + e.Message
}

func newConflictError(message string) *ConflictError {
	return &ConflictError{Message: message}
}

// StateError reports an operation attempted against a document whose status
// forbids it. Always fatal to the call.
type StateError struct {
	Entity  string
	Status  string
	Message string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s is %s: %s", e.Entity, e.Status, e.Message)
}

func newStateError(entity string, status string, message string) *StateError {
	return &StateError{Entity: entity, Status: status, Message: message}
}

// InsufficientFundsError fails a settlement whose total exceeds the source
// account balance. No partial settlement is ever committed.
type InsufficientFundsError struct {
	AccountId int
	Required  decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("account %d balance %s is less than required %s",
		e.AccountId, e.Available.String(), e.Required.String())
}

func newInsufficientFundsError(accountId int, required decimal.Decimal, available decimal.Decimal) *InsufficientFundsError {
	return &InsufficientFundsError{AccountId: accountId, Required: required, Available: available}
}

// isDuplicateKeyError recognizes unique-index violations from both the driver
// and gorm's translated error, so races on unique columns surface as Conflict.
func isDuplicateKeyError(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
