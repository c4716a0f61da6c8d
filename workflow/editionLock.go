package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/ltdedn/editions_backend/config"
)

// ErrEditionBusy means the per-edition advisory lock could not be obtained
// within the bounded wait. Callers surface this as a retryable condition;
// nothing was read or written.
var ErrEditionBusy = errors.New("edition is busy, try again")

const (
	editionLockTTL        = 10 * time.Second
	editionLockRetryEvery = 250 * time.Millisecond
	editionLockRetryMax   = 12 // ~3s of bounded waiting
)

// AcquireEditionLock obtains the advisory lock for one edition, keyed by QR
// code. Claim and every transfer operation on the same edition share this key,
// so they serialize against each other before the DB row lock even matters.
// The lock is an optimization to keep contending transactions short; the row
// lock inside the transaction remains the authoritative gate.
func AcquireEditionLock(ctx context.Context, qrCode string, moduleName string, functionName string) (*redislock.Lock, error) {
	logger := config.GetLogger()
	locker := config.GetRedisLock()
	if locker == nil {
		config.LogError(logger, moduleName, functionName, "Redis lock not initialized", qrCode, errors.New("redis lock is nil"))
		return nil, errors.New("service not ready (redis lock not initialized)")
	}

	lockKey := fmt.Sprintf("edition:%s", qrCode)
	lock, err := locker.Obtain(ctx, lockKey, editionLockTTL, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(editionLockRetryEvery), editionLockRetryMax),
	})
	if err == redislock.ErrNotObtained {
		config.LogError(logger, moduleName, functionName, "Could not obtain edition lock", qrCode, err)
		return nil, ErrEditionBusy
	} else if err != nil {
		config.LogError(logger, moduleName, functionName, "Error obtaining edition lock", qrCode, err)
		return nil, err
	}
	return lock, nil
}
