package workflow

import (
	"context"
	"time"

	"github.com/ltdedn/editions_backend/config"
	"github.com/ltdedn/editions_backend/models"
	"github.com/ltdedn/editions_backend/utils"
	"gorm.io/gorm"
)

const transferModuleName = "workflow/transfer"

// TransferResult carries the outcome plus whichever records the attempt
// touched. Transfer is nil for outcomes that never created or found one.
type TransferResult struct {
	Outcome  Outcome
	Transfer *models.ProductEditionTransfer
	Edition  *models.ProductEdition
}

// CreateTransfer opens a 48h offer to hand the sender's edition to the user
// behind recipientEmail. The edition is parked in pending_transfer for the
// lifetime of the offer so it cannot be claimed, redeemed, or offered twice.
func CreateTransfer(ctx context.Context, senderId int, qrCode string, recipientEmail string) (*TransferResult, error) {
	logger := config.GetLogger()

	edition, err := models.GetEditionByQRCode(ctx, qrCode)
	if err != nil {
		config.LogError(logger, transferModuleName, "CreateTransfer", "resolving qr code", qrCode, err)
		return nil, err
	}
	if edition == nil {
		return &TransferResult{Outcome: OutcomeNotFound}, nil
	}
	if edition.OwnerId == nil || *edition.OwnerId != senderId {
		return &TransferResult{Outcome: OutcomeNotAllowed, Edition: edition}, nil
	}

	recipient, err := models.GetUserByEmail(ctx, recipientEmail)
	if err != nil {
		return nil, err
	}
	if recipient == nil {
		return &TransferResult{Outcome: OutcomeRecipientNotFound, Edition: edition}, nil
	}
	if recipient.ID == senderId {
		// Offering an edition to yourself is a harmless no-op.
		return &TransferResult{Outcome: OutcomeSelfTransfer, Edition: edition}, nil
	}

	lock, err := AcquireEditionLock(ctx, qrCode, transferModuleName, "CreateTransfer")
	if err != nil {
		if err == ErrEditionBusy {
			return &TransferResult{Outcome: OutcomeBusy, Edition: edition}, nil
		}
		return nil, err
	}
	defer func() { _ = lock.Release(ctx) }()

	result := &TransferResult{Edition: edition}
	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := models.GetEditionForUpdate(tx, edition.ID)
		if err != nil {
			return err
		}
		result.Edition = locked

		if locked.OwnerId == nil || *locked.OwnerId != senderId {
			result.Outcome = OutcomeNotAllowed
			return nil
		}
		if locked.Status == models.EditionStatusPendingTransfer {
			result.Outcome = OutcomeAlreadyPending
			return nil
		}
		if !locked.IsSold() && !locked.IsRedeemed() {
			result.Outcome = OutcomeNotAllowed
			return nil
		}

		token, err := utils.RandomToken()
		if err != nil {
			return err
		}
		transfer := models.ProductEditionTransfer{
			EditionId:   locked.ID,
			SenderId:    senderId,
			RecipientId: recipient.ID,
			Token:       token,
			Status:      models.TransferStatusPending,
			ExpiresAt:   time.Now().UTC().Add(models.TransferWindow),
		}
		if err := tx.Create(&transfer).Error; err != nil {
			return err
		}

		locked.Status = models.EditionStatusPendingTransfer
		if err := tx.Save(locked).Error; err != nil {
			return err
		}

		if err := models.EnqueueNotification(ctx, tx, recipient.ID, models.NotificationKindTransferRequested, map[string]any{
			"transfer_token": transfer.Token,
			"edition_id":     locked.ID,
			"product_id":     locked.ProductId,
			"sender_id":      senderId,
			"expires_at":     transfer.ExpiresAt,
		}); err != nil {
			return err
		}

		result.Outcome = OutcomeTransferCreated
		result.Transfer = &transfer
		return nil
	})
	if err != nil {
		config.LogError(logger, transferModuleName, "CreateTransfer", "create transaction", qrCode, err)
		return nil, err
	}
	return result, nil
}

// AcceptTransfer resolves a pending offer in the recipient's favor. An offer
// found past its window at accept time is expired on the spot instead; the
// sweeper and an eager accept racing each other both funnel through the same
// row lock, so the transfer still resolves exactly once. When the edition
// carries a minted certificate, the token moves to the recipient's wallet on
// the same transaction.
func AcceptTransfer(ctx context.Context, userId int, token string) (*TransferResult, error) {
	return resolveTransfer(ctx, userId, token, "AcceptTransfer", func(tx *gorm.DB, transfer *models.ProductEditionTransfer, edition *models.ProductEdition, now time.Time) (Outcome, error) {
		if transfer.RecipientId != userId {
			return OutcomeNotAllowed, nil
		}
		if transfer.IsExpiredAt(now) {
			if err := expireLocked(ctx, tx, transfer, edition); err != nil {
				return OutcomeError, err
			}
			return OutcomeTransferExpired, nil
		}

		token, err := models.GetChainTokenForEditionTx(tx, edition.ID)
		if err != nil {
			return OutcomeError, err
		}

		edition.OwnerId = &transfer.RecipientId
		edition.Status = models.EditionStatusSold
		if token != nil {
			edition.Status = models.EditionStatusRedeemed
		}
		if err := tx.Save(edition).Error; err != nil {
			return OutcomeError, err
		}

		if token != nil {
			if err := moveCertificate(ctx, tx, transfer, edition, token); err != nil {
				return OutcomeError, err
			}
		}

		transfer.Status = models.TransferStatusAccepted
		transfer.CompletedAt = &now
		if err := tx.Save(transfer).Error; err != nil {
			return OutcomeError, err
		}

		if err := models.EnqueueNotification(ctx, tx, transfer.SenderId, models.NotificationKindTransferAccepted, map[string]any{
			"transfer_token": transfer.Token,
			"edition_id":     edition.ID,
			"recipient_id":   transfer.RecipientId,
		}); err != nil {
			return OutcomeError, err
		}
		return OutcomeTransferAccepted, nil
	})
}

// RejectTransfer resolves a pending offer against the sender. The edition
// returns to sold under its current owner. Rejection is honored even past the
// window; an un-swept expired offer the recipient explicitly declines reads
// better as rejected than expired.
func RejectTransfer(ctx context.Context, userId int, token string) (*TransferResult, error) {
	return resolveTransfer(ctx, userId, token, "RejectTransfer", func(tx *gorm.DB, transfer *models.ProductEditionTransfer, edition *models.ProductEdition, now time.Time) (Outcome, error) {
		if transfer.RecipientId != userId {
			return OutcomeNotAllowed, nil
		}

		status, err := parkedEditionStatus(tx, edition.ID)
		if err != nil {
			return OutcomeError, err
		}
		edition.Status = status
		if err := tx.Save(edition).Error; err != nil {
			return OutcomeError, err
		}

		transfer.Status = models.TransferStatusRejected
		transfer.CompletedAt = &now
		if err := tx.Save(transfer).Error; err != nil {
			return OutcomeError, err
		}

		if err := models.EnqueueNotification(ctx, tx, transfer.SenderId, models.NotificationKindTransferRejected, map[string]any{
			"transfer_token": transfer.Token,
			"edition_id":     edition.ID,
			"recipient_id":   transfer.RecipientId,
		}); err != nil {
			return OutcomeError, err
		}
		return OutcomeTransferRejected, nil
	})
}

// CancelTransfer lets the sender withdraw a still-pending offer. Cancelling
// past the window is allowed; the sender keeps the edition either way.
func CancelTransfer(ctx context.Context, userId int, token string) (*TransferResult, error) {
	return resolveTransfer(ctx, userId, token, "CancelTransfer", func(tx *gorm.DB, transfer *models.ProductEditionTransfer, edition *models.ProductEdition, now time.Time) (Outcome, error) {
		if transfer.SenderId != userId {
			return OutcomeNotAllowed, nil
		}

		status, err := parkedEditionStatus(tx, edition.ID)
		if err != nil {
			return OutcomeError, err
		}
		edition.Status = status
		if err := tx.Save(edition).Error; err != nil {
			return OutcomeError, err
		}

		transfer.Status = models.TransferStatusCancelled
		transfer.CompletedAt = &now
		if err := tx.Save(transfer).Error; err != nil {
			return OutcomeError, err
		}

		if err := models.EnqueueNotification(ctx, tx, transfer.RecipientId, models.NotificationKindTransferCancelled, map[string]any{
			"transfer_token": transfer.Token,
			"edition_id":     edition.ID,
			"sender_id":      transfer.SenderId,
		}); err != nil {
			return OutcomeError, err
		}
		return OutcomeTransferCancelled, nil
	})
}

// resolveTransfer is the shared skeleton for accept/reject/cancel: look the
// offer up, take the edition lock, then re-fetch both rows FOR UPDATE and
// hand the locked copies to the resolution body. The pending check happens on
// the locked copy only.
func resolveTransfer(ctx context.Context, userId int, token string, functionName string,
	resolve func(tx *gorm.DB, transfer *models.ProductEditionTransfer, edition *models.ProductEdition, now time.Time) (Outcome, error)) (*TransferResult, error) {

	logger := config.GetLogger()

	transfer, err := models.GetTransferByToken(ctx, token)
	if err != nil {
		config.LogError(logger, transferModuleName, functionName, "resolving transfer token", token, err)
		return nil, err
	}
	if transfer == nil || transfer.Edition == nil {
		return &TransferResult{Outcome: OutcomeNotFound}, nil
	}

	lock, err := AcquireEditionLock(ctx, transfer.Edition.QrCode, transferModuleName, functionName)
	if err != nil {
		if err == ErrEditionBusy {
			return &TransferResult{Outcome: OutcomeBusy, Transfer: transfer}, nil
		}
		return nil, err
	}
	defer func() { _ = lock.Release(ctx) }()

	result := &TransferResult{Transfer: transfer, Edition: transfer.Edition}
	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lockedTransfer, err := models.GetTransferForUpdateByToken(tx, token)
		if err != nil {
			return err
		}
		result.Transfer = lockedTransfer

		if !lockedTransfer.IsPending() {
			// Someone else resolved it first (or the sweeper expired it).
			result.Outcome = OutcomeNotResolvable
			return nil
		}

		lockedEdition, err := models.GetEditionForUpdate(tx, lockedTransfer.EditionId)
		if err != nil {
			return err
		}
		result.Edition = lockedEdition

		now := time.Now().UTC()
		outcome, err := resolve(tx, lockedTransfer, lockedEdition, now)
		if err != nil {
			return err
		}
		result.Outcome = outcome
		return nil
	})
	if err != nil {
		config.LogError(logger, transferModuleName, functionName, "resolution transaction", token, err)
		return nil, err
	}
	return result, nil
}

// parkedEditionStatus is the status an edition returns to when its pending
// offer resolves without changing hands: redeemed when a certificate was
// minted, sold otherwise.
func parkedEditionStatus(tx *gorm.DB, editionId int) (models.EditionStatus, error) {
	token, err := models.GetChainTokenForEditionTx(tx, editionId)
	if err != nil {
		return "", err
	}
	if token != nil {
		return models.EditionStatusRedeemed, nil
	}
	return models.EditionStatusSold, nil
}

// moveCertificate re-points a minted certificate at the recipient's wallet and
// appends the transfer to the provenance log. Runs on the accept transaction,
// under the edition row lock. Both wallets are created on demand; a recipient
// who never redeemed anything gets one here.
func moveCertificate(ctx context.Context, tx *gorm.DB, transfer *models.ProductEditionTransfer, edition *models.ProductEdition, token *models.ChainToken) error {
	senderWallet, err := models.GetOrCreateWallet(ctx, tx, transfer.SenderId, token.Chain, NewWalletCredentials)
	if err != nil {
		return err
	}
	recipientWallet, err := models.GetOrCreateWallet(ctx, tx, transfer.RecipientId, token.Chain, NewWalletCredentials)
	if err != nil {
		return err
	}

	txHash := NewTxHash()
	token.WalletId = recipientWallet.ID
	token.LastTxHash = txHash
	if err := tx.Save(token).Error; err != nil {
		return err
	}

	return models.RecordCertificateEvent(tx, &models.CertificateEvent{
		EditionId: edition.ID,
		TokenId:   token.ID,
		Type:      models.CertificateEventTransferred,
		TxHash:    txHash,
		FromAddr:  senderWallet.Address,
		ToAddr:    recipientWallet.Address,
	})
}

// expireLocked marks an already row-locked pending transfer expired and
// returns the edition to its owner. Shared by the sweeper and the accept path
// that discovers the window has closed.
func expireLocked(ctx context.Context, tx *gorm.DB, transfer *models.ProductEditionTransfer, edition *models.ProductEdition) error {
	now := time.Now().UTC()

	status, err := parkedEditionStatus(tx, edition.ID)
	if err != nil {
		return err
	}
	edition.Status = status
	if err := tx.Save(edition).Error; err != nil {
		return err
	}

	transfer.Status = models.TransferStatusExpired
	transfer.CompletedAt = &now
	if err := tx.Save(transfer).Error; err != nil {
		return err
	}

	if err := models.EnqueueNotification(ctx, tx, transfer.SenderId, models.NotificationKindTransferExpired, map[string]any{
		"transfer_token": transfer.Token,
		"edition_id":     edition.ID,
	}); err != nil {
		return err
	}
	return models.EnqueueNotification(ctx, tx, transfer.RecipientId, models.NotificationKindTransferExpired, map[string]any{
		"transfer_token": transfer.Token,
		"edition_id":     edition.ID,
	})
}
