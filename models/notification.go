package models

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/ltdedn/editions_backend/config"
	"github.com/ltdedn/editions_backend/utils"
	"gorm.io/gorm"
)

// NotificationRecord is the transactional outbox row for user notifications.
// Workflows write it inside their own DB transaction and never publish
// directly; the dispatcher picks rows up after commit, so a rolled-back
// workflow never leaks a notification.
type NotificationRecord struct {
	ID            int              `gorm:"primary_key;index:idx_notify_dispatch,priority:3" json:"id"`
	UserId        int              `gorm:"not null;index" json:"user_id"`
	Kind          NotificationKind `gorm:"size:50;not null;index" json:"kind"`
	Payload       []byte           `gorm:"type:blob" json:"payload"`
	PublishStatus string           `gorm:"size:20;index;not null;default:'PENDING';index:idx_notify_dispatch,priority:1" json:"publish_status"` // PENDING|PROCESSING|SENT|FAILED|DEAD
	PublishedAt   *time.Time       `gorm:"index" json:"published_at"`

	PubSubMessageId  *string    `gorm:"size:255" json:"pubsub_message_id"`
	PublishAttempts  int        `gorm:"not null;default:0" json:"publish_attempts"`
	NextAttemptAt    *time.Time `gorm:"index;index:idx_notify_dispatch,priority:2" json:"next_attempt_at"`
	LockedAt         *time.Time `gorm:"index" json:"locked_at"`
	LockedBy         *string    `gorm:"size:100" json:"locked_by"`
	LastPublishError *string    `gorm:"type:text" json:"last_publish_error"`
	CorrelationId    string     `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// EnqueueNotification writes one outbox row on the given db handle. Pass the
// workflow's transaction so the notification commits or rolls back with the
// state change it describes.
func EnqueueNotification(ctx context.Context, db *gorm.DB, userId int, kind NotificationKind, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	record := NotificationRecord{
		UserId:        userId,
		Kind:          kind,
		Payload:       body,
		PublishStatus: OutboxPublishStatusPending,
		CorrelationId: correlationIdFromContextOrNew(ctx),
	}
	return db.Create(&record).Error
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}

func ConvertToNotificationMessage(record NotificationRecord) config.NotificationMessage {
	return config.NotificationMessage{
		ID:            record.ID,
		UserId:        record.UserId,
		Kind:          string(record.Kind),
		Payload:       record.Payload,
		CorrelationId: record.CorrelationId,
		EnqueuedAt:    record.CreatedAt,
	}
}

// ListNotificationsForUser returns delivered and pending notifications, newest
// first. Read surface only; the dispatcher owns state transitions.
func ListNotificationsForUser(ctx context.Context, userId int, limit int) ([]*NotificationRecord, error) {
	var records []*NotificationRecord
	db := config.GetDB()
	err := db.WithContext(ctx).Where("user_id = ?", userId).
		Order("id DESC").Limit(limit).Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
