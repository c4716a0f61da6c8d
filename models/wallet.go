package models

import (
	"context"
	"errors"
	"time"

	"github.com/ltdedn/editions_backend/config"
	"gorm.io/gorm"
)

// Wallet is a custodial on-chain address held for a user. One wallet per user
// per chain; created lazily on first redemption or incoming certificate
// transfer. EncryptedKey is the sealed private-key blob; it never leaves the
// server.
type Wallet struct {
	ID           int       `gorm:"primary_key" json:"id"`
	UserId       int       `gorm:"not null;index:idx_wallets_user_chain,unique,composite:uc" json:"user_id"`
	Chain        string    `gorm:"size:30;not null;default:'polygon';index:idx_wallets_user_chain,unique,composite:uc" json:"chain"`
	Address      string    `gorm:"size:64;not null;uniqueIndex" json:"address"`
	EncryptedKey string    `gorm:"size:128;not null" json:"-"`
	KeyVersion   int       `gorm:"not null;default:1" json:"-"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// GetOrCreateWallet returns the user's wallet on the given chain, creating it
// on first use. credentialsFn generates the address and sealed key only when a
// row is missing.
func GetOrCreateWallet(ctx context.Context, tx *gorm.DB, userId int, chain string, credentialsFn func() (address, encryptedKey string)) (*Wallet, error) {
	var wallet Wallet
	err := tx.Where("user_id = ? AND chain = ?", userId, chain).First(&wallet).Error
	if err == nil {
		return &wallet, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	address, encryptedKey := credentialsFn()
	wallet = Wallet{
		UserId:       userId,
		Chain:        chain,
		Address:      address,
		EncryptedKey: encryptedKey,
		KeyVersion:   1,
	}
	if err := tx.Create(&wallet).Error; err != nil {
		// concurrent redemption can win the insert; read the winner back
		if isDuplicateKeyErr(err) {
			if err2 := tx.Where("user_id = ? AND chain = ?", userId, chain).First(&wallet).Error; err2 == nil {
				return &wallet, nil
			}
		}
		return nil, err
	}
	return &wallet, nil
}

func GetWalletForUser(ctx context.Context, userId int, chain string) (*Wallet, error) {
	var wallet Wallet
	db := config.GetDB()
	err := db.WithContext(ctx).Where("user_id = ? AND chain = ?", userId, chain).First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &wallet, nil
}
