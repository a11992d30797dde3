package main

import (
	"context"
	"time"

	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"
	"github.com/warungpos/procure_backend/config"
	"github.com/warungpos/procure_backend/models"
)

const (
	dispatchInterval  = 5 * time.Second
	dispatchBatchSize = 50
	dispatchLockKey   = "outbox-dispatcher-lock"
)

// runOutboxDispatcher drains the outbox in the background. It emits each
// pending record as a structured log event and stamps it processed in the
// same transaction, so a crash between the two repeats the event rather than
// losing it. A redis lock keeps replicas from polling in lockstep; SKIP
// LOCKED makes overlap harmless anyway.
func runOutboxDispatcher(ctx context.Context) {
	logger := config.GetLogger()
	ticker := time.NewTicker(dispatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			dispatchOnce(ctx, logger)
		}
	}
}

func dispatchOnce(ctx context.Context, logger *logrus.Logger) {
	locker := config.GetRedisLock()
	var lock *redislock.Lock
	if locker != nil {
		var err error
		lock, err = locker.Obtain(ctx, dispatchLockKey, dispatchInterval, nil)
		if err == redislock.ErrNotObtained {
			return
		}
		if err != nil {
			config.LogError(logger, "outbox", "dispatchOnce", "lock", nil, err)
			return
		}
		defer lock.Release(context.Background())
	}

	for {
		processed, err := dispatchBatch(ctx, logger)
		if err != nil {
			config.LogError(logger, "outbox", "dispatchBatch", "batch", nil, err)
			return
		}
		if processed < dispatchBatchSize {
			return
		}
	}
}

func dispatchBatch(ctx context.Context, logger *logrus.Logger) (int, error) {
	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer tx.Rollback()

	records, err := models.ClaimUnprocessedOutboxRecords(tx, dispatchBatchSize)
	if err != nil {
		return 0, err
	}

	for _, record := range records {
		logger.WithFields(logrus.Fields{
			"event_type":     record.EventType,
			"entity_type":    record.EntityType,
			"entity_id":      record.EntityId,
			"outlet_code":    record.OutletCode,
			"correlation_id": record.CorrelationId,
			"payload":        record.Payload,
		}).Info("outbox event")

		if err := models.MarkOutboxRecordProcessed(tx, record); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return 0, err
	}
	return len(records), nil
}
