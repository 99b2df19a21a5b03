package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-10-14", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.October, 14, 0, 0, 0, 0, time.UTC), d)

	d, err = ParseDate("  ", time.UTC)
	require.NoError(t, err)
	assert.True(t, d.IsZero())

	_, err = ParseDate("14/10/2026", time.UTC)
	assert.Error(t, err)
}

func TestValidateDateRange(t *testing.T) {
	early := time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2026, time.October, 31, 0, 0, 0, 0, time.UTC)

	assert.NoError(t, ValidateDateRange(early, late))
	assert.NoError(t, ValidateDateRange(early, early))
	assert.NoError(t, ValidateDateRange(time.Time{}, early))
	assert.NoError(t, ValidateDateRange(late, time.Time{}))
	assert.Error(t, ValidateDateRange(late, early))
}

func TestUploadFileName(t *testing.T) {
	now := time.UnixMilli(1791900000123)

	tests := []struct {
		original string
		want     string
	}{
		{"photo.png", "1791900000123-photo.png"},
		{"shelf  photo\t1.png", "1791900000123-shelf_photo_1.png"},
		{"../../etc/passwd", "1791900000123-passwd"},
		{`C:\Users\ana\report.pdf`, "1791900000123-report.pdf"},
	}

	for _, tt := range tests {
		got, err := UploadFileName(now, tt.original)
		require.NoError(t, err, tt.original)
		assert.Equal(t, tt.want, got)
	}

	for _, bad := range []string{"", "   ", "..", "/"} {
		_, err := UploadFileName(now, bad)
		assert.Error(t, err, bad)
	}
}
