package seed

import (
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/merchkpi/dashboard/backend/internal/domain"
	"github.com/merchkpi/dashboard/backend/internal/kpi"
)

// RecordStore is the part of the repository the importer writes through.
type RecordStore interface {
	GetUserByEmail(email string) (*domain.User, error)
	UpsertDailyRecord(rec *domain.DailyRecord) error
}

var requiredHeaders = []string{"email", "date"}

// ImportResult counts rows written and rows skipped because of bad data.
type ImportResult struct {
	Imported int
	Skipped  int
}

func ImportDailyRecordsFile(store RecordStore, path string, loc *time.Location) (ImportResult, error) {
	file, err := os.Open(path)
	if err != nil {
		return ImportResult{}, err
	}
	defer file.Close()

	return ImportDailyRecords(store, file, loc)
}

// ImportDailyRecords reads a CSV with a header row and upserts one daily
// record per data row. Count columns are optional and coerced the same way as
// API input; the user is looked up by e-mail. Rows that cannot be mapped are
// logged and skipped.
func ImportDailyRecords(store RecordStore, r io.Reader, loc *time.Location) (ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err != nil {
		return ImportResult{}, fmt.Errorf("read header: %w", err)
	}

	index := make(map[string]int, len(headers))
	for i, header := range headers {
		index[strings.TrimSpace(header)] = i
	}
	for _, header := range requiredHeaders {
		if _, ok := index[header]; !ok {
			return ImportResult{}, fmt.Errorf("missing column %q", header)
		}
	}

	users := make(map[string]*domain.User)
	result := ImportResult{}
	line := 1

	for {
		row, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return result, fmt.Errorf("read line %d: %w", line+1, err)
		}
		line++

		field := func(name string) string {
			i, ok := index[name]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		email := strings.ToLower(field("email"))
		if email == "" {
			slog.Error("row has no email", slog.Int("line", line))
			result.Skipped++
			continue
		}

		date, err := time.ParseInLocation(time.DateOnly, field("date"), loc)
		if err != nil {
			slog.Error("row has an invalid date", slog.Int("line", line), slog.String("date", field("date")))
			result.Skipped++
			continue
		}

		user, ok := users[email]
		if !ok {
			user, err = store.GetUserByEmail(email)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					slog.Error("user not found", slog.Int("line", line), slog.String("email", email))
					result.Skipped++
					continue
				}
				return result, err
			}
			users[email] = user
		}

		counts := domain.Counts{
			ProductUploads:   domain.ParseCount(field("productUploads")),
			ReOptimizations:  domain.ParseCount(field("reOptimizations")),
			PriceUpdates:     domain.ParseCount(field("priceUpdates")),
			PriceComparisons: domain.ParseCount(field("priceComparisons")),
			StockUpdates:     domain.ParseCount(field("stockUpdates")),
			CsvUpdates:       domain.ParseCount(field("csvUpdates")),
		}
		comments := field("comments")

		rec := kpi.NewDailyRecord(user.ID, date, counts, int64(domain.ParseCount(field("target"))), &comments, nil)
		if err := store.UpsertDailyRecord(rec); err != nil {
			return result, fmt.Errorf("line %d: %w", line, err)
		}
		result.Imported++
	}

	return result, nil
}
