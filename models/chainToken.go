package models

import (
	"context"
	"errors"
	"time"

	"github.com/ltdedn/editions_backend/config"
	"gorm.io/gorm"
)

// ChainToken records the on-chain certificate minted when an edition is
// redeemed. One token per edition. WalletId follows the edition's owner: an
// accepted transfer of a redeemed edition re-points the token at the
// recipient's wallet and bumps LastTxHash.
type ChainToken struct {
	ID         int       `gorm:"primary_key" json:"id"`
	EditionId  int       `gorm:"not null;uniqueIndex" json:"edition_id"`
	WalletId   int       `gorm:"not null;index" json:"wallet_id"`
	Chain      string    `gorm:"size:30;not null;default:'polygon'" json:"chain"`
	TokenId    string    `gorm:"size:78;not null" json:"token_id"`
	MintTxHash string    `gorm:"size:66;not null" json:"mint_tx_hash"`
	LastTxHash string    `gorm:"size:66;not null" json:"last_tx_hash"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Wallet *Wallet `gorm:"foreignKey:WalletId" json:"wallet,omitempty"`
}

// GetChainTokenForEdition returns nil (no error) when the edition has not been
// redeemed yet.
func GetChainTokenForEdition(ctx context.Context, editionId int) (*ChainToken, error) {
	var token ChainToken
	db := config.GetDB()
	err := db.WithContext(ctx).Preload("Wallet").
		Where("edition_id = ?", editionId).First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &token, nil
}

// GetChainTokenForEditionTx is the transaction-scoped variant, used when the
// caller already holds the edition row lock.
func GetChainTokenForEditionTx(tx *gorm.DB, editionId int) (*ChainToken, error) {
	var token ChainToken
	err := tx.Where("edition_id = ?", editionId).First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &token, nil
}
