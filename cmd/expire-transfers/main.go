// expire-transfers runs one expiry sweep over pending transfers whose 48h
// window has closed. Intended as a scheduled job (Cloud Scheduler / cron) for
// deployments that prefer not to rely on the in-process worker.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//   REDIS_ADDRESS=... go run ./cmd/expire-transfers
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ltdedn/editions_backend/config"
	"github.com/ltdedn/editions_backend/workflow"
)

func main() {
	ctx := context.Background()
	// The sweeper shares the per-edition advisory lock with the interactive
	// paths, so it needs Redis as well as the database.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	expired, err := workflow.SweepExpiredTransfers(ctx, time.Now().UTC())
	if err != nil {
		fmt.Fprintf(os.Stderr, "sweep failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("expired %d transfer(s)\n", expired)
}
