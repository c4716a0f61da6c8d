package models_test

import (
	"testing"
	"time"

	"github.com/ltdedn/editions_backend/models"
)

func TestTransferWindowIs48Hours(t *testing.T) {
	if models.TransferWindow != 48*time.Hour {
		t.Fatalf("transfer window changed: %s", models.TransferWindow)
	}
}

func TestTransferIsExpiredAt(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	transfer := models.ProductEditionTransfer{
		Status:    models.TransferStatusPending,
		ExpiresAt: now.Add(models.TransferWindow),
	}

	if transfer.IsExpiredAt(now) {
		t.Fatal("fresh transfer reported expired")
	}
	if transfer.IsExpiredAt(now.Add(models.TransferWindow - time.Second)) {
		t.Fatal("transfer expired one second early")
	}
	// The deadline itself counts as expired.
	if !transfer.IsExpiredAt(now.Add(models.TransferWindow)) {
		t.Fatal("transfer not expired exactly at the deadline")
	}
	if !transfer.IsExpiredAt(now.Add(models.TransferWindow + time.Hour)) {
		t.Fatal("transfer not expired after the deadline")
	}
}

func TestTransferIsPending(t *testing.T) {
	resolved := []models.TransferStatus{
		models.TransferStatusAccepted,
		models.TransferStatusRejected,
		models.TransferStatusCancelled,
		models.TransferStatusExpired,
	}
	for _, status := range resolved {
		transfer := models.ProductEditionTransfer{Status: status}
		if transfer.IsPending() {
			t.Errorf("status %q reported pending", status)
		}
	}
	pending := models.ProductEditionTransfer{Status: models.TransferStatusPending}
	if !pending.IsPending() {
		t.Fatal("pending transfer not reported pending")
	}
}

func TestEditionStatusHelpers(t *testing.T) {
	e := models.ProductEdition{Status: models.EditionStatusAvailable}
	if !e.IsAvailable() || e.IsSold() || e.IsRedeemed() {
		t.Fatal("available edition misclassified")
	}
	e.Status = models.EditionStatusSold
	if e.IsAvailable() || !e.IsSold() {
		t.Fatal("sold edition misclassified")
	}
	e.Status = models.EditionStatusRedeemed
	if !e.IsRedeemed() {
		t.Fatal("redeemed edition misclassified")
	}
}
