package utils

import (
	"context"
	"strings"
	"sync"

	"github.com/warungpos/procure_backend/config"
)

var mutex sync.Mutex

// GetSequence hands out the next outlet-scoped sequence number for model T.
// Redis holds the hot counter; on a cold counter the max from the DB seeds it.
// Uniqueness is re-checked against the DB so a flushed redis never replays a
// number that was already committed.
func GetSequence[T any](ctx context.Context, outletCode string) (int64, error) {
	var model T
	_ = model
	mutex.Lock()
	defer mutex.Unlock()
	cacheKey := outletCode + "-" + strings.ToLower(GetTypeName[T]()) + "_seq"
	var seqNo int64
	var err error
	db := config.GetDB()

	for {
		seqNo, err = config.GetRedisCounter(ctx, cacheKey)
		if err != nil {
			return 0, err
		}
		// if not found in redis, get from db
		if seqNo <= 1 {
			var dbSeq *int64
			if err := db.WithContext(ctx).Model(&model).Select("max(sequence_no)").
				Where("outlet_code = ?", outletCode).
				Scan(&dbSeq).Error; err != nil {
				return 0, err
			}
			if dbSeq == nil {
				seqNo = 0
			} else {
				seqNo = *dbSeq
			}
			seqNo++
			if err := config.SetRedisObject(cacheKey, &seqNo, 0); err != nil {
				return 0, err
			}
		}
		// check if sequence number exists in db
		err = ValidateUnique[T](ctx, outletCode, "sequence_no", seqNo, 0)
		if err == nil {
			break
		}
		if err != ErrorNotUnique {
			return 0, err
		}
	}
	return seqNo, nil
}
