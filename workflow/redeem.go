package workflow

import (
	"context"

	"github.com/ltdedn/editions_backend/config"
	"github.com/ltdedn/editions_backend/models"
	"gorm.io/gorm"
)

const redeemModuleName = "workflow/redeem"

// RedeemResult carries the redeem outcome. Token and Wallet are set when the
// outcome is Redeemed, including the idempotent already-redeemed case.
type RedeemResult struct {
	Outcome Outcome
	Edition *models.ProductEdition
	Token   *models.ChainToken
	Wallet  *models.Wallet
}

// RedeemEdition mints the on-chain certificate for an edition the caller
// owns. The wallet is created lazily on first redemption. Redeeming an
// already-redeemed edition returns the existing token rather than failing,
// so a retried request is safe.
func RedeemEdition(ctx context.Context, userId int, qrCode string) (*RedeemResult, error) {
	logger := config.GetLogger()

	edition, err := models.GetEditionByQRCode(ctx, qrCode)
	if err != nil {
		config.LogError(logger, redeemModuleName, "RedeemEdition", "resolving qr code", qrCode, err)
		return nil, err
	}
	if edition == nil {
		return &RedeemResult{Outcome: OutcomeNotFound}, nil
	}
	if edition.OwnerId == nil || *edition.OwnerId != userId {
		return &RedeemResult{Outcome: OutcomeNotAllowed, Edition: edition}, nil
	}

	lock, err := AcquireEditionLock(ctx, qrCode, redeemModuleName, "RedeemEdition")
	if err != nil {
		if err == ErrEditionBusy {
			return &RedeemResult{Outcome: OutcomeBusy, Edition: edition}, nil
		}
		return nil, err
	}
	defer func() { _ = lock.Release(ctx) }()

	result := &RedeemResult{Edition: edition}
	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := models.GetEditionForUpdate(tx, edition.ID)
		if err != nil {
			return err
		}
		result.Edition = locked

		if locked.OwnerId == nil || *locked.OwnerId != userId {
			result.Outcome = OutcomeNotAllowed
			return nil
		}
		if locked.IsRedeemed() {
			token, err := models.GetChainTokenForEditionTx(tx, locked.ID)
			if err != nil {
				return err
			}
			result.Outcome = OutcomeRedeemed
			result.Token = token
			return nil
		}
		if !locked.IsSold() {
			result.Outcome = OutcomeNotResolvable
			return nil
		}

		chain := DefaultChain()
		wallet, err := models.GetOrCreateWallet(ctx, tx, userId, chain, NewWalletCredentials)
		if err != nil {
			return err
		}
		result.Wallet = wallet

		mintHash := NewTxHash()
		token := models.ChainToken{
			EditionId:  locked.ID,
			WalletId:   wallet.ID,
			Chain:      chain,
			TokenId:    NewTokenId(),
			MintTxHash: mintHash,
			LastTxHash: mintHash,
		}
		if err := tx.Create(&token).Error; err != nil {
			return err
		}

		if err := models.RecordCertificateEvent(tx, &models.CertificateEvent{
			EditionId: locked.ID,
			TokenId:   token.ID,
			Type:      models.CertificateEventMinted,
			TxHash:    token.MintTxHash,
			ToAddr:    wallet.Address,
		}); err != nil {
			return err
		}

		locked.Status = models.EditionStatusRedeemed
		if err := tx.Save(locked).Error; err != nil {
			return err
		}

		if err := models.EnqueueNotification(ctx, tx, userId, models.NotificationKindEditionRedeemed, map[string]any{
			"edition_id":   locked.ID,
			"product_id":   locked.ProductId,
			"token_id":     token.TokenId,
			"mint_tx_hash": token.MintTxHash,
		}); err != nil {
			return err
		}

		result.Outcome = OutcomeRedeemed
		result.Token = &token
		return nil
	})
	if err != nil {
		config.LogError(logger, redeemModuleName, "RedeemEdition", "redeem transaction", qrCode, err)
		return nil, err
	}
	return result, nil
}
