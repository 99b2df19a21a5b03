package kpi

import (
	"math"
	"time"

	"github.com/merchkpi/dashboard/backend/internal/domain"
)

const DefaultDailyTarget = 50

// Day truncates t to midnight in t's location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// civil maps t to its calendar date at UTC midnight so dates coming from the
// store (UTC) compare with reference dates in any location.
func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MonthRange returns the first and the last calendar day of ref's month.
func MonthRange(ref time.Time) (time.Time, time.Time) {
	y, m, _ := ref.Date()
	start := time.Date(y, m, 1, 0, 0, 0, 0, ref.Location())
	end := start.AddDate(0, 1, -1)
	return start, end
}

// WeekRange returns Sunday through Saturday of ref's week.
func WeekRange(ref time.Time) (time.Time, time.Time) {
	start := Day(ref).AddDate(0, 0, -int(ref.Weekday()))
	return start, start.AddDate(0, 0, 6)
}

func isWorkingDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Sunday && wd != time.Saturday
}

// WorkingDays counts Monday..Friday days in the inclusive range [start, end].
func WorkingDays(start, end time.Time) int {
	count := 0
	last := civil(end)
	for cur := civil(start); !cur.After(last); cur = cur.AddDate(0, 0, 1) {
		if isWorkingDay(cur) {
			count++
		}
	}
	return count
}

func inRange(t, start, end time.Time) bool {
	c := civil(t)
	return !c.Before(civil(start)) && !c.After(civil(end))
}

func percentage(sum float64, target int) int {
	if target <= 0 {
		return 0
	}
	return int(math.Round(100 * sum / float64(target)))
}

type UserSummary struct {
	UserID         int64   `json:"userId"`
	Name           string  `json:"name"`
	Email          string  `json:"email"`
	Sum            float64 `json:"sum"`
	MonthlyUploads int64   `json:"monthlyUploads"`
	Target         int     `json:"target"`
	Percentage     int     `json:"percentage"`
}

type MonthlyReport struct {
	Month         string        `json:"month"`
	Start         time.Time     `json:"start"`
	End           time.Time     `json:"end"`
	WorkingDays   int           `json:"workingDays"`
	DailyTarget   int           `json:"dailyTarget"`
	MonthlyTarget int           `json:"monthlyTarget"`
	Summaries     []UserSummary `json:"merchandisers"`
}

// Report sums each user's equivalent uploads over ref's month and compares it
// with the monthly target. Summaries follow the order of users; users without
// records are reported with zeros.
func Report(ref time.Time, users []*domain.User, records []*domain.DailyRecord, dailyTarget int) *MonthlyReport {
	start, end := MonthRange(ref)
	workingDays := WorkingDays(start, end)
	target := dailyTarget * workingDays

	sums := make(map[int64]float64, len(users))
	for _, rec := range records {
		if inRange(rec.Date, start, end) {
			sums[rec.UserID] += rec.EquivalentUploads
		}
	}

	summaries := make([]UserSummary, 0, len(users))
	for _, user := range users {
		sum := sums[user.ID]
		summaries = append(summaries, UserSummary{
			UserID:         user.ID,
			Name:           user.Name,
			Email:          user.Email,
			Sum:            Round2(sum),
			MonthlyUploads: int64(math.Round(sum)),
			Target:         target,
			Percentage:     percentage(sum, target),
		})
	}

	return &MonthlyReport{
		Month:         start.Format("2006-01"),
		Start:         start,
		End:           end,
		WorkingDays:   workingDays,
		DailyTarget:   dailyTarget,
		MonthlyTarget: target,
		Summaries:     summaries,
	}
}

type PersonalStats struct {
	WeeklyUploads     float64 `json:"weeklyUploads"`
	WeeklyTarget      int     `json:"weeklyTarget"`
	WeeklyPercentage  int     `json:"weeklyPercentage"`
	WeeklyProgress    int     `json:"weeklyProgress"`
	MonthlyUploads    float64 `json:"monthlyUploads"`
	MonthlyTarget     int     `json:"monthlyTarget"`
	MonthlyPercentage int     `json:"monthlyPercentage"`
	MonthlyProgress   int     `json:"monthlyProgress"`
	TodayUploads      float64 `json:"todayUploads"`
}

// Stats summarises one merchandiser's own records for ref's week and month.
// Progress values are the percentages capped at 100.
func Stats(ref time.Time, records []*domain.DailyRecord, dailyTarget int) *PersonalStats {
	weekStart, weekEnd := WeekRange(ref)
	monthStart, monthEnd := MonthRange(ref)

	var week, month, today float64
	for _, rec := range records {
		if inRange(rec.Date, weekStart, weekEnd) {
			week += rec.EquivalentUploads
		}
		if inRange(rec.Date, monthStart, monthEnd) {
			month += rec.EquivalentUploads
		}
		if inRange(rec.Date, ref, ref) {
			today += rec.EquivalentUploads
		}
	}

	stats := &PersonalStats{
		WeeklyUploads:  Round2(week),
		WeeklyTarget:   dailyTarget * WorkingDays(weekStart, weekEnd),
		MonthlyUploads: Round2(month),
		MonthlyTarget:  dailyTarget * WorkingDays(monthStart, monthEnd),
		TodayUploads:   Round2(today),
	}
	stats.WeeklyPercentage = percentage(week, stats.WeeklyTarget)
	stats.WeeklyProgress = min(stats.WeeklyPercentage, 100)
	stats.MonthlyPercentage = percentage(month, stats.MonthlyTarget)
	stats.MonthlyProgress = min(stats.MonthlyPercentage, 100)

	return stats
}
