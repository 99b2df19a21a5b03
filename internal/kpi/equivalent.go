package kpi

import (
	"math"
	"time"

	"github.com/merchkpi/dashboard/backend/internal/domain"
)

// Equivalent converts the day's task counts into equivalent product uploads.
func Equivalent(c domain.Counts) float64 {
	v := float64(c.ProductUploads) +
		float64(c.ReOptimizations)/3 +
		float64(c.PriceUpdates)/7 +
		float64(c.PriceComparisons)/5 +
		float64(c.StockUpdates)/10 +
		float64(c.CsvUpdates)*10

	return Round2(v)
}

// Round2 rounds half away from zero at two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// NewDailyRecord builds the record for userID on the calendar day of date.
// A non-positive target falls back to DefaultDailyTarget.
func NewDailyRecord(userID int64, date time.Time, counts domain.Counts, target int64, comments, attachmentURL *string) *domain.DailyRecord {
	if target <= 0 {
		target = DefaultDailyTarget
	}

	return &domain.DailyRecord{
		UserID:            userID,
		Date:              Day(date),
		Counts:            counts,
		EquivalentUploads: Equivalent(counts),
		Target:            target,
		Comments:          emptyToNil(comments),
		AttachmentURL:     emptyToNil(attachmentURL),
	}
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
