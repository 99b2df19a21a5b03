package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Count is a non-negative task counter. Decoding never fails: anything that
// is not a finite non-negative number becomes 0 and fractions are truncated.
type Count int64

// ParseCount reads a count from its decimal text. Values that do not fit in
// an int64 are treated as invalid and yield 0.
func ParseCount(s string) Count {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v >= 1<<63 {
		return 0
	}
	return Count(math.Trunc(v))
}

// UnmarshalJSON accepts numbers and numeric strings and never returns an error.
func (c *Count) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*c = 0
			return nil
		}
		*c = ParseCount(s)
		return nil
	}
	*c = ParseCount(string(data))
	return nil
}

// Counts are the six task categories a merchandiser reports each day.
type Counts struct {
	ProductUploads   Count `json:"productUploads"`
	ReOptimizations  Count `json:"reOptimizations"`
	PriceUpdates     Count `json:"priceUpdates"`
	PriceComparisons Count `json:"priceComparisons"`
	StockUpdates     Count `json:"stockUpdates"`
	CsvUpdates       Count `json:"csvUpdates"`
}

// DailyRecord is one submission per user per calendar day.
// EquivalentUploads is derived from Counts; it is filled in by kpi.NewDailyRecord
// and recomputed by the repository on every write.
type DailyRecord struct {
	ID     int64     `json:"id"`
	UserID int64     `json:"userId"`
	Date   time.Time `json:"date"`
	Counts
	EquivalentUploads float64    `json:"equivalentUploads"`
	Target            int64      `json:"target"`
	Comments          *string    `json:"comments"`
	AttachmentURL     *string    `json:"attachmentUrl"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
	User              *UserBrief `json:"user,omitempty"`
}

// RecordFilter narrows record listings. Zero values mean "no filter".
type RecordFilter struct {
	UserID   int64
	From     time.Time
	To       time.Time
	NameLike string
}
