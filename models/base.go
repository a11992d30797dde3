package models

import (
	"context"
	"errors"
	"fmt"

	"github.com/warungpos/procure_backend/utils"
)

func outletCodeFromContext(ctx context.Context) (string, error) {
	outletCode, ok := utils.GetOutletCodeFromContext(ctx)
	if !ok || outletCode == "" {
		return "", errors.New("outlet code is required")
	}
	return outletCode, nil
}

func userIdFromContext(ctx context.Context) int {
	userId, _ := utils.GetUserIdFromContext(ctx)
	return userId
}

// nextDocumentNumber reserves the next outlet-scoped sequence for model T and
// renders the document number. The number is only reserved here; the unique
// index on (outlet_code, document_number) is the arbiter, and a duplicate-key
// failure at insert is surfaced as ConflictError so the caller regenerates.
func nextDocumentNumber[T any](ctx context.Context, outletCode string, prefix string) (int64, string, error) {
	seqNo, err := utils.GetSequence[T](ctx, outletCode)
	if err != nil {
		return 0, "", err
	}
	return seqNo, fmt.Sprintf("%s-%s-%05d", prefix, outletCode, seqNo), nil
}
