package models

import (
	"context"
	"errors"
	"time"

	"github.com/ltdedn/editions_backend/config"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TransferWindow is how long a recipient has to accept before the offer is
// eligible for expiry.
const TransferWindow = 48 * time.Hour

// ProductEditionTransfer is one offer to hand an edition to another user.
// A transfer is created pending and resolves exactly once: accepted, rejected,
// cancelled, or expired. Resolution always happens under the edition row lock.
type ProductEditionTransfer struct {
	ID          int            `gorm:"primary_key" json:"id"`
	EditionId   int            `gorm:"not null;index" json:"edition_id"`
	SenderId    int            `gorm:"not null;index" json:"sender_id"`
	RecipientId int            `gorm:"not null;index" json:"recipient_id"`
	Token       string         `gorm:"size:64;not null;uniqueIndex" json:"token"`
	Status      TransferStatus `gorm:"size:20;not null;default:'pending';index:idx_transfers_status_expiry" json:"status"`
	ExpiresAt   time.Time      `gorm:"not null;index:idx_transfers_status_expiry" json:"expires_at"`
	CompletedAt *time.Time     `json:"completed_at"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`

	Edition   *ProductEdition `gorm:"foreignKey:EditionId" json:"edition,omitempty"`
	Sender    *User           `gorm:"foreignKey:SenderId" json:"sender,omitempty"`
	Recipient *User           `gorm:"foreignKey:RecipientId" json:"recipient,omitempty"`
}

func (t *ProductEditionTransfer) IsPending() bool {
	return t.Status == TransferStatusPending
}

func (t *ProductEditionTransfer) IsExpiredAt(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// GetTransferByToken returns nil (no error) when the token is unknown.
func GetTransferByToken(ctx context.Context, token string) (*ProductEditionTransfer, error) {
	var transfer ProductEditionTransfer
	db := config.GetDB()
	err := db.WithContext(ctx).
		Preload("Edition").Preload("Edition.Product").
		Preload("Sender").Preload("Recipient").
		Where("token = ?", token).First(&transfer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &transfer, nil
}

// GetTransferForUpdateByToken re-reads the transfer with an exclusive row lock.
// Resolution paths call this inside their transaction and repeat the pending
// check on the locked copy, so two concurrent resolutions cannot both win.
func GetTransferForUpdateByToken(tx *gorm.DB, token string) (*ProductEditionTransfer, error) {
	var transfer ProductEditionTransfer
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("token = ?", token).First(&transfer).Error
	if err != nil {
		return nil, err
	}
	return &transfer, nil
}

// ListExpiredPendingTransfers returns candidates for the expiry sweeper. The
// read is advisory only; the sweeper re-checks each transfer under the edition
// lock and its own row lock before touching it. Edition is preloaded for the
// lock key.
func ListExpiredPendingTransfers(ctx context.Context, now time.Time, limit int) ([]*ProductEditionTransfer, error) {
	var transfers []*ProductEditionTransfer
	db := config.GetDB()
	err := db.WithContext(ctx).
		Preload("Edition").
		Where("status = ? AND expires_at <= ?", TransferStatusPending, now).
		Order("expires_at ASC").Limit(limit).Find(&transfers).Error
	if err != nil {
		return nil, err
	}
	return transfers, nil
}

func ListTransfersForUser(ctx context.Context, userId int) ([]*ProductEditionTransfer, error) {
	var transfers []*ProductEditionTransfer
	db := config.GetDB()
	err := db.WithContext(ctx).
		Preload("Edition").Preload("Edition.Product").
		Preload("Sender").Preload("Recipient").
		Where("sender_id = ? OR recipient_id = ?", userId, userId).
		Order("created_at DESC").Find(&transfers).Error
	if err != nil {
		return nil, err
	}
	return transfers, nil
}
