package utils

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// ParseDate parses YYYY-MM-DD in loc. An empty string yields the zero time.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation(time.DateOnly, s, loc)
}

func ValidateDateRange(from, to time.Time) error {
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return errors.New("from cannot be later than to")
	}
	return nil
}

var whitespace = regexp.MustCompile(`\s+`)

// UploadFileName returns "<unix millis>-<base name>" with whitespace runs
// replaced by underscores. Directory parts of original are dropped.
func UploadFileName(now time.Time, original string) (string, error) {
	base := filepath.Base(strings.ReplaceAll(original, `\`, "/"))
	base = whitespace.ReplaceAllString(strings.TrimSpace(base), "_")
	if base == "" || base == "." || base == ".." || base == "/" {
		return "", errors.New("invalid file name")
	}

	return fmt.Sprintf("%d-%s", now.UnixMilli(), base), nil
}
