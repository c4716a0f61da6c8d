package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestMonthlyActivityRevenue(t *testing.T) {
	row := MonthlyActivity{
		Price:   decimal.RequireFromString("25.50"),
		Claimed: 4,
	}
	if got := row.Revenue(); !got.Equal(decimal.RequireFromString("102.00")) {
		t.Fatalf("revenue = %s, want 102.00", got)
	}

	row.Claimed = 0
	if got := row.Revenue(); !got.IsZero() {
		t.Fatalf("zero claims must yield zero revenue, got %s", got)
	}

	free := MonthlyActivity{Price: decimal.Zero, Claimed: 10}
	if got := free.Revenue(); !got.IsZero() {
		t.Fatalf("zero price must yield zero revenue, got %s", got)
	}
}

func TestMonthlyReportRevenueAccumulation(t *testing.T) {
	rows := []*MonthlyActivity{
		{Price: decimal.RequireFromString("10.00"), Claimed: 3},
		{Price: decimal.RequireFromString("7.25"), Claimed: 2},
		{Price: decimal.RequireFromString("99.99"), Claimed: 0},
	}
	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.Revenue())
	}
	if !total.Equal(decimal.RequireFromString("44.50")) {
		t.Fatalf("total revenue = %s, want 44.50", total)
	}
}
