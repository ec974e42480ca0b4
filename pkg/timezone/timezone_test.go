package timezone

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocation(t *testing.T) {
	loc, err := Location("Europe/Moscow")
	require.NoError(t, err)
	assert.Equal(t, "Europe/Moscow", loc.String())

	_, err = Location("")
	assert.ErrorIs(t, err, ErrInvalidTimeZone)

	_, err = Location("Mars/Olympus_Mons")
	assert.ErrorIs(t, err, ErrInvalidTimeZone)
}

func TestStartOfLocalDay(t *testing.T) {
	// 23:30 UTC 1 марта это уже 2 марта в Дубае (+04:00)
	instant := time.Date(2025, 3, 1, 23, 30, 0, 0, time.UTC)

	start, err := StartOfLocalDay(instant, "Asia/Dubai")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC), start)

	end, err := EndOfLocalDay(instant, "Asia/Dubai")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 2, 20, 0, 0, 0, time.UTC).Add(-time.Nanosecond), end)
}

func TestDayBoundsAcrossDSTTransition(t *testing.T) {
	// 30 марта 2025 в Берлине день перехода на летнее время: 23 часа
	start, end, err := DayBounds(2025, time.March, 30, "Europe/Berlin")
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 3, 29, 23, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 3, 30, 22, 0, 0, 0, time.UTC).Add(-time.Nanosecond), end)
	assert.Equal(t, 23*time.Hour-time.Nanosecond, end.Sub(start))
}

func TestLocalDate(t *testing.T) {
	// 22:00 UTC в Москве (+03:00) уже следующий день
	instant := time.Date(2025, 6, 10, 22, 0, 0, 0, time.UTC)

	date, err := LocalDate(instant, "Europe/Moscow")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC), date)

	date, err = LocalDate(instant, "UTC")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC), date)
}

func TestLocalClock(t *testing.T) {
	instant := time.Date(2025, 6, 10, 21, 30, 0, 0, time.UTC)

	minutes, err := LocalClock(instant, "Asia/Dubai")
	require.NoError(t, err)
	assert.Equal(t, 1*60+30, minutes)
}

func TestDayBucket(t *testing.T) {
	instant := time.Date(2025, 6, 10, 22, 0, 0, 0, time.UTC)

	bucket, err := DayBucket(instant, "Asia/Dubai")
	require.NoError(t, err)
	assert.Equal(t, "2025-06-11", bucket)

	bucket, err = DayBucket(instant, "UTC")
	require.NoError(t, err)
	assert.Equal(t, "2025-06-10", bucket)
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2025, 9, 13, 10, 0, 0, 0, time.UTC)
	b := time.Date(2025, 9, 16, 2, 0, 0, 0, time.UTC)

	assert.Equal(t, 3, DaysBetween(a, b))
	assert.Equal(t, -3, DaysBetween(b, a))
	assert.Equal(t, 0, DaysBetween(a, a))
}

func TestNormalizeBillingTime(t *testing.T) {
	tests := []struct {
		name     string
		input    time.Time
		expected time.Time
	}{
		{
			name:     "exact 21:00 means next day",
			input:    time.Date(2025, 9, 1, 21, 0, 0, 0, time.UTC),
			expected: time.Date(2025, 9, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "21:00:01 stays on its date",
			input:    time.Date(2025, 9, 1, 21, 0, 1, 0, time.UTC),
			expected: time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "morning time truncates",
			input:    time.Date(2025, 9, 1, 9, 15, 0, 0, time.UTC),
			expected: time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "midnight unchanged",
			input:    time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
			expected: time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeBillingTime(tt.input))
		})
	}
}
