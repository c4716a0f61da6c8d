// send-monthly-reports generates last month's activity workbook for every
// artist, uploads it when GCS_BUCKET is configured, and enqueues the artist
// notifications. Intended as a scheduled job on the first of the month.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//   GCS_BUCKET=... go run ./cmd/send-monthly-reports
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
	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	generated, err := workflow.GenerateMonthlyReportsForAllArtists(ctx, time.Now().UTC())
	if err != nil {
		fmt.Fprintf(os.Stderr, "report run failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("generated %d report(s)\n", generated)
}
