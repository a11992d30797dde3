package models

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/warungpos/procure_backend/utils"
	"gorm.io/gorm"
)

// OutboxRecord is written in the same transaction as the document it
// announces. A background dispatcher claims unprocessed rows and emits them,
// so downstream consumers never see an event for a rolled-back write.
type OutboxRecord struct {
	ID            int             `gorm:"primary_key" json:"id"`
	OutletCode    string          `gorm:"index;size:20;not null" json:"outlet_code"`
	EventType     OutboxEventType `gorm:"size:30;not null" json:"event_type"`
	EntityType    string          `gorm:"size:30;not null" json:"entity_type"`
	EntityId      int             `gorm:"not null" json:"entity_id"`
	Payload       string          `gorm:"type:text" json:"payload"`
	CorrelationId string          `gorm:"size:40" json:"correlation_id"`
	Processed     *bool           `gorm:"index;not null;default:false" json:"processed"`
	ProcessedAt   *time.Time      `gorm:"default:null" json:"processed_at"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// publishEvent appends an outbox row inside the caller's transaction.
func publishEvent(
	ctx context.Context,
	tx *gorm.DB,
	eventType OutboxEventType,
	entityType string,
	entityId int,
	payload map[string]interface{},
) error {
	outletCode, err := outletCodeFromContext(ctx)
	if err != nil {
		return err
	}

	correlationId, ok := utils.GetCorrelationIdFromContext(ctx)
	if !ok || correlationId == "" {
		correlationId = uuid.NewString()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	record := OutboxRecord{
		OutletCode:    outletCode,
		EventType:     eventType,
		EntityType:    entityType,
		EntityId:      entityId,
		Payload:       string(body),
		CorrelationId: correlationId,
		Processed:     utils.NewFalse(),
	}
	return tx.Create(&record).Error
}

// ClaimUnprocessedOutboxRecords locks and returns a batch of pending rows for
// the dispatcher. SKIP LOCKED lets concurrent dispatchers divide the backlog.
func ClaimUnprocessedOutboxRecords(tx *gorm.DB, limit int) ([]*OutboxRecord, error) {
	var records []*OutboxRecord
	err := tx.Raw(
		"SELECT * FROM outbox_records WHERE processed = false ORDER BY id LIMIT ? FOR UPDATE SKIP LOCKED",
		limit,
	).Scan(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// MarkOutboxRecordProcessed stamps a claimed row inside the same transaction.
func MarkOutboxRecordProcessed(tx *gorm.DB, record *OutboxRecord) error {
	now := time.Now()
	return tx.Model(record).Updates(map[string]interface{}{
		"Processed":   true,
		"ProcessedAt": &now,
	}).Error
}
