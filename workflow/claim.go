package workflow

import (
	"context"

	"github.com/ltdedn/editions_backend/config"
	"github.com/ltdedn/editions_backend/models"
	"gorm.io/gorm"
)

const claimModuleName = "workflow/claim"

// ClaimResult carries the claim outcome plus the edition as it stands after
// the attempt (nil when the QR resolves to nothing).
type ClaimResult struct {
	Outcome Outcome
	Edition *models.ProductEdition
}

// ClaimEdition assigns an available edition to the scanning user, first come
// first served. Order of operations: resolve QR (read-only), take the
// per-edition advisory lock, then open the transaction and redo every check
// on the row-locked copy. Checks done before the transaction are only there
// to fail fast; they are never trusted.
func ClaimEdition(ctx context.Context, userId int, qrCode string) (*ClaimResult, error) {
	logger := config.GetLogger()

	edition, err := models.GetEditionByQRCode(ctx, qrCode)
	if err != nil {
		config.LogError(logger, claimModuleName, "ClaimEdition", "resolving qr code", qrCode, err)
		return nil, err
	}
	if edition == nil {
		return &ClaimResult{Outcome: OutcomeNotFound}, nil
	}

	lock, err := AcquireEditionLock(ctx, qrCode, claimModuleName, "ClaimEdition")
	if err != nil {
		if err == ErrEditionBusy {
			return &ClaimResult{Outcome: OutcomeBusy, Edition: edition}, nil
		}
		return nil, err
	}
	defer func() { _ = lock.Release(ctx) }()

	result := &ClaimResult{Edition: edition}
	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := models.GetEditionForUpdate(tx, edition.ID)
		if err != nil {
			return err
		}
		result.Edition = locked

		if locked.OwnerId != nil && *locked.OwnerId == userId {
			result.Outcome = OutcomeAlreadyOwned
			return nil
		}
		if locked.OwnerId != nil {
			result.Outcome = OutcomeAlreadyClaimed
			return nil
		}
		if !locked.IsAvailable() {
			result.Outcome = OutcomeNotClaimable
			return nil
		}

		locked.OwnerId = &userId
		locked.Status = models.EditionStatusSold
		if err := tx.Save(locked).Error; err != nil {
			return err
		}

		if err := models.EnqueueNotification(ctx, tx, userId, models.NotificationKindEditionClaimedConfirmation, map[string]any{
			"edition_id": locked.ID,
			"product_id": locked.ProductId,
			"number":     locked.Number,
		}); err != nil {
			return err
		}

		artistUserId, err := artistOwnerForProduct(tx, locked.ProductId)
		if err != nil {
			return err
		}
		if artistUserId != 0 && artistUserId != userId {
			if err := models.EnqueueNotification(ctx, tx, artistUserId, models.NotificationKindEditionClaimed, map[string]any{
				"edition_id": locked.ID,
				"product_id": locked.ProductId,
				"number":     locked.Number,
				"claimer_id": userId,
			}); err != nil {
				return err
			}
		}

		// The count runs on this transaction so a claim that just consumed
		// the last edition sees zero.
		remaining, err := models.CountAvailableEditions(tx, locked.ProductId)
		if err != nil {
			return err
		}
		if remaining == 0 && artistUserId != 0 {
			if err := models.EnqueueNotification(ctx, tx, artistUserId, models.NotificationKindEditionsSoldOut, map[string]any{
				"product_id": locked.ProductId,
			}); err != nil {
				return err
			}
		}

		result.Outcome = OutcomeOwned
		return nil
	})
	if err != nil {
		config.LogError(logger, claimModuleName, "ClaimEdition", "claim transaction", qrCode, err)
		return nil, err
	}
	return result, nil
}

func artistOwnerForProduct(tx *gorm.DB, productId int) (int, error) {
	var artistId int
	if err := tx.Model(&models.Product{}).Where("id = ?", productId).
		Select("artist_id").Scan(&artistId).Error; err != nil {
		return 0, err
	}
	if artistId == 0 {
		return 0, nil
	}
	return models.GetArtistOwnerUserId(tx, artistId)
}
