package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDate(t *testing.T) {
	now := time.Date(2025, time.January, 3, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		value string
		want  time.Time
	}{
		{"same day", "1/3 08:30", time.Date(2025, time.January, 3, 8, 30, 0, 0, time.UTC)},
		{"within a day ahead stays in current year", "1/4 08:59", time.Date(2025, time.January, 4, 8, 59, 0, 0, time.UTC)},
		{"december rolls back a year", "12/28 23:10", time.Date(2024, time.December, 28, 23, 10, 0, 0, time.UTC)},
		{"surrounding whitespace", "  1/2 7:05 ", time.Date(2025, time.January, 2, 7, 5, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveDate(tt.value, now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveDate_LeapDayFromPreviousYear(t *testing.T) {
	now := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)

	got, err := ResolveDate("2/29 12:00", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.February, 29, 12, 0, 0, 0, time.UTC), got)
}

func TestResolveDate_LeapDayAheadWithoutPreviousLeapYear(t *testing.T) {
	now := time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)

	got, err := ResolveDate("2/29 12:00", now)
	assert.Error(t, err)
	assert.Equal(t, now, got)
}

func TestResolveDate_InvalidFallsBackToNow(t *testing.T) {
	now := time.Date(2025, time.January, 3, 9, 0, 0, 0, time.UTC)

	for _, value := range []string{"", "today", "13/45 99:99"} {
		got, err := ResolveDate(value, now)
		assert.Error(t, err, value)
		assert.Equal(t, now, got, value)
	}
}
