package workflow

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/ltdedn/editions_backend/config"
	"github.com/ltdedn/editions_backend/models"
	"github.com/ltdedn/editions_backend/utils"
	"github.com/xuri/excelize/v2"
)

const reportModuleName = "workflow/monthlyReport"

// GenerateMonthlyReport builds the activity workbook for one artist and one
// month, uploads it to object storage when a bucket is configured, upserts the
// report row, and notifies the artist owner. month may be any instant inside
// the reported month.
func GenerateMonthlyReport(ctx context.Context, artistId int, month time.Time) (*models.MonthlyReport, error) {
	logger := config.GetLogger()

	periodStart := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	periodEnd := periodStart.AddDate(0, 1, 0)

	artist, err := models.GetArtistById(ctx, artistId)
	if err != nil {
		return nil, err
	}

	activity, err := models.AggregateMonthlyActivity(ctx, artistId, periodStart, periodEnd)
	if err != nil {
		config.LogError(logger, reportModuleName, "GenerateMonthlyReport", "aggregating activity", artistId, err)
		return nil, err
	}

	workbook, err := buildReportWorkbook(artist.Name, periodStart, activity)
	if err != nil {
		return nil, err
	}

	report := &models.MonthlyReport{
		ArtistId: artistId,
		Period:   periodStart,
	}
	for _, row := range activity {
		report.Claimed += row.Claimed
		report.Transfers += row.Transferred
		report.Redeemed += row.Redeemed
		report.Revenue = report.Revenue.Add(row.Revenue())
	}

	if utils.ReportUploadEnabled() {
		objectName := fmt.Sprintf("reports/%s/%s.xlsx", artist.Slug, periodStart.Format("2006-01"))
		objectPath, err := utils.UploadReportToGCS(ctx, objectName, bytes.NewReader(workbook))
		if err != nil {
			config.LogError(logger, reportModuleName, "GenerateMonthlyReport", "uploading report", objectName, err)
			return nil, err
		}
		report.ObjectPath = objectPath
	}

	if err := models.SaveMonthlyReport(ctx, report); err != nil {
		return nil, err
	}

	if artist.OwnerId != nil {
		db := config.GetDB()
		_ = models.EnqueueNotification(ctx, db.WithContext(ctx), *artist.OwnerId, models.NotificationKindMonthlyReport, map[string]any{
			"artist_id":   artistId,
			"period":      periodStart.Format("2006-01"),
			"object_path": report.ObjectPath,
			"claimed":     report.Claimed,
			"transfers":   report.Transfers,
			"redeemed":    report.Redeemed,
			"revenue":     report.Revenue,
		})
	}

	return report, nil
}

// GenerateMonthlyReportsForAllArtists runs the previous month's report for
// every artist. Used by the scheduled job; one failing artist does not stop
// the rest.
func GenerateMonthlyReportsForAllArtists(ctx context.Context, now time.Time) (int, error) {
	logger := config.GetLogger()

	artists, err := models.GetAllArtists(ctx)
	if err != nil {
		return 0, err
	}

	previousMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	generated := 0
	for _, artist := range artists {
		if _, err := GenerateMonthlyReport(ctx, artist.ID, previousMonth); err != nil {
			config.LogError(logger, reportModuleName, "GenerateMonthlyReportsForAllArtists", "generating report", artist.ID, err)
			continue
		}
		generated++
	}
	return generated, nil
}

func buildReportWorkbook(artistName string, period time.Time, activity []*models.MonthlyActivity) ([]byte, error) {
	f := excelize.NewFile()
	sheetName := "Sheet1"
	_, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, err
	}

	f.SetCellValue(sheetName, "A1", "Artist")
	f.SetCellValue(sheetName, "B1", artistName)
	f.SetCellValue(sheetName, "A2", "Period")
	f.SetCellValue(sheetName, "B2", period.Format("2006-01"))

	// Add headers
	f.SetCellValue(sheetName, "A4", "Product")
	f.SetCellValue(sheetName, "B4", "Claimed")
	f.SetCellValue(sheetName, "C4", "Transferred")
	f.SetCellValue(sheetName, "D4", "Redeemed")
	f.SetCellValue(sheetName, "E4", "StillAvailable")
	f.SetCellValue(sheetName, "F4", "Revenue")

	// Add data
	for i, row := range activity {
		f.SetCellValue(sheetName, "A"+fmt.Sprint(i+5), row.ProductName)
		f.SetCellValue(sheetName, "B"+fmt.Sprint(i+5), row.Claimed)
		f.SetCellValue(sheetName, "C"+fmt.Sprint(i+5), row.Transferred)
		f.SetCellValue(sheetName, "D"+fmt.Sprint(i+5), row.Redeemed)
		f.SetCellValue(sheetName, "E"+fmt.Sprint(i+5), row.Available)
		f.SetCellValue(sheetName, "F"+fmt.Sprint(i+5), row.Revenue().InexactFloat64())
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
