package models

import (
	"context"
	"time"

	"github.com/ltdedn/editions_backend/config"
	"gorm.io/gorm"
)

type CertificateEventType string

const (
	CertificateEventMinted      CertificateEventType = "minted"
	CertificateEventTransferred CertificateEventType = "transferred"
)

// CertificateEvent is the append-only provenance log for an edition's on-chain
// certificate. Rows are written inside the same transaction as the chain
// action they describe and are never updated.
type CertificateEvent struct {
	ID        int                  `gorm:"primary_key" json:"id"`
	EditionId int                  `gorm:"not null;index" json:"edition_id"`
	TokenId   int                  `gorm:"not null;index" json:"token_id"`
	Type      CertificateEventType `gorm:"size:20;not null" json:"type"`
	TxHash    string               `gorm:"size:66;not null" json:"tx_hash"`
	FromAddr  string               `gorm:"size:64" json:"from_addr"`
	ToAddr    string               `gorm:"size:64;not null" json:"to_addr"`
	CreatedAt time.Time            `gorm:"autoCreateTime" json:"created_at"`
}

func RecordCertificateEvent(tx *gorm.DB, event *CertificateEvent) error {
	return tx.Create(event).Error
}

func ListCertificateEventsForEdition(ctx context.Context, editionId int) ([]*CertificateEvent, error) {
	var events []*CertificateEvent
	db := config.GetDB()
	err := db.WithContext(ctx).Where("edition_id = ?", editionId).
		Order("id ASC").Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
