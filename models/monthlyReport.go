package models

import (
	"context"
	"errors"
	"time"

	"github.com/ltdedn/editions_backend/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MonthlyReport is one generated artist activity report. Period is the first
// day of the reported month; re-running a period overwrites the stored object
// reference rather than duplicating the row.
type MonthlyReport struct {
	ID         int       `gorm:"primary_key" json:"id"`
	ArtistId   int       `gorm:"not null;index:idx_reports_artist_period,unique,composite:ap" json:"artist_id"`
	Period     time.Time `gorm:"not null;index:idx_reports_artist_period,unique,composite:ap" json:"period"`
	ObjectPath string          `gorm:"size:255" json:"object_path"`
	Claimed    int             `gorm:"not null;default:0" json:"claimed"`
	Transfers  int             `gorm:"not null;default:0" json:"transfers"`
	Redeemed   int             `gorm:"not null;default:0" json:"redeemed"`
	Revenue    decimal.Decimal `gorm:"type:decimal(13,2);not null;default:0" json:"revenue"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// MonthlyActivity is one product's aggregated counters inside a report period.
type MonthlyActivity struct {
	ProductId   int             `json:"product_id"`
	ProductName string          `json:"product_name"`
	Price       decimal.Decimal `json:"price"`
	Claimed     int             `json:"claimed"`
	Transferred int             `json:"transferred"`
	Redeemed    int             `json:"redeemed"`
	Available   int             `json:"available"`
}

// Revenue is the claim revenue the row generated inside the window: units
// claimed times the product price.
func (a *MonthlyActivity) Revenue() decimal.Decimal {
	return a.Price.Mul(decimal.NewFromInt(int64(a.Claimed)))
}

// AggregateMonthlyActivity collects per-product counters for one artist over
// [periodStart, periodEnd). Claims are editions that left 'available' in the
// window, transfers are accepted offers, redemptions are certificate mints.
func AggregateMonthlyActivity(ctx context.Context, artistId int, periodStart, periodEnd time.Time) ([]*MonthlyActivity, error) {
	db := config.GetDB()

	var rows []*MonthlyActivity
	sql := `
SELECT
	p.id AS product_id,
	p.name AS product_name,
	p.price AS price,
	COALESCE(SUM(CASE WHEN e.status <> 'available' AND e.updated_at >= ? AND e.updated_at < ? THEN 1 ELSE 0 END), 0) AS claimed,
	COALESCE(SUM(CASE WHEN e.status = 'available' THEN 1 ELSE 0 END), 0) AS available,
	COALESCE(t.transferred, 0) AS transferred,
	COALESCE(r.redeemed, 0) AS redeemed
FROM products p
LEFT JOIN product_editions e ON e.product_id = p.id AND e.deleted_at IS NULL
LEFT JOIN (
	SELECT e2.product_id, COUNT(*) AS transferred
	FROM product_edition_transfers tr
	JOIN product_editions e2 ON e2.id = tr.edition_id
	WHERE tr.status = 'accepted' AND tr.completed_at >= ? AND tr.completed_at < ?
	GROUP BY e2.product_id
) t ON t.product_id = p.id
LEFT JOIN (
	SELECT e3.product_id, COUNT(*) AS redeemed
	FROM chain_tokens ct
	JOIN product_editions e3 ON e3.id = ct.edition_id
	WHERE ct.created_at >= ? AND ct.created_at < ?
	GROUP BY e3.product_id
) r ON r.product_id = p.id
WHERE p.artist_id = ?
GROUP BY p.id, p.name, p.price, t.transferred, r.redeemed
ORDER BY p.id`

	err := db.WithContext(ctx).Raw(sql,
		periodStart, periodEnd,
		periodStart, periodEnd,
		periodStart, periodEnd,
		artistId).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// SaveMonthlyReport upserts the report row for (artist, period).
func SaveMonthlyReport(ctx context.Context, report *MonthlyReport) error {
	db := config.GetDB()
	var existing MonthlyReport
	err := db.WithContext(ctx).
		Where("artist_id = ? AND period = ?", report.ArtistId, report.Period).
		First(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return db.WithContext(ctx).Create(report).Error
		}
		return err
	}
	existing.ObjectPath = report.ObjectPath
	existing.Claimed = report.Claimed
	existing.Transfers = report.Transfers
	existing.Redeemed = report.Redeemed
	existing.Revenue = report.Revenue
	if err := db.WithContext(ctx).Save(&existing).Error; err != nil {
		return err
	}
	report.ID = existing.ID
	return nil
}
