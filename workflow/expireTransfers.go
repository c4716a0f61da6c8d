package workflow

import (
	"context"
	"time"

	"github.com/ltdedn/editions_backend/config"
	"github.com/ltdedn/editions_backend/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const sweeperModuleName = "workflow/expireTransfers"

const sweepBatchSize = 200

// SweepExpiredTransfers expires pending offers whose window has closed.
// Candidates come from an unlocked scan; each one is then handled under the
// same per-edition advisory lock the interactive paths take, re-fetched FOR
// UPDATE in its own transaction, and silently skipped if it is no longer
// pending, so a concurrent accept/reject/cancel always wins over the sweep.
// Returns the number of transfers actually expired.
func SweepExpiredTransfers(ctx context.Context, now time.Time) (int, error) {
	logger := config.GetLogger()

	candidates, err := models.ListExpiredPendingTransfers(ctx, now, sweepBatchSize)
	if err != nil {
		config.LogError(logger, sweeperModuleName, "SweepExpiredTransfers", "listing candidates", nil, err)
		return 0, err
	}

	expired := 0
	db := config.GetDB()
	for _, candidate := range candidates {
		ok, err := expireCandidate(ctx, db, candidate, now)
		if err != nil {
			// One bad transfer must not stall the rest of the batch.
			config.LogError(logger, sweeperModuleName, "SweepExpiredTransfers", "expiring transfer", candidate.Token, err)
			continue
		}
		if ok {
			expired++
		}
	}

	if expired > 0 {
		logger.WithFields(logrus.Fields{
			"expired":    expired,
			"candidates": len(candidates),
		}).Info("expired pending transfers")
	}
	return expired, nil
}

// expireCandidate expires one candidate behind the edition lock. A contended
// edition is skipped without error; the next sweep picks it up.
func expireCandidate(ctx context.Context, db *gorm.DB, candidate *models.ProductEditionTransfer, now time.Time) (bool, error) {
	if candidate.Edition == nil {
		return false, nil
	}

	lock, err := AcquireEditionLock(ctx, candidate.Edition.QrCode, sweeperModuleName, "SweepExpiredTransfers")
	if err != nil {
		if err == ErrEditionBusy {
			return false, nil
		}
		return false, err
	}
	defer func() { _ = lock.Release(ctx) }()

	expired := false
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		transfer, err := models.GetTransferForUpdateByToken(tx, candidate.Token)
		if err != nil {
			return err
		}
		if !transfer.IsPending() || !transfer.IsExpiredAt(now) {
			return nil
		}
		edition, err := models.GetEditionForUpdate(tx, transfer.EditionId)
		if err != nil {
			return err
		}
		if err := expireLocked(ctx, tx, transfer, edition); err != nil {
			return err
		}
		expired = true
		return nil
	})
	return expired, err
}

// RunTransferExpiryWorker sweeps on a fixed interval until ctx is cancelled.
func RunTransferExpiryWorker(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = SweepExpiredTransfers(ctx, time.Now().UTC())
		}
	}
}
