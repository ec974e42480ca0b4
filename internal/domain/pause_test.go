package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPauseEndFor(t *testing.T) {
	// Инклюзивный учет: старт 13 сентября на 10 дней кончается 21 сентября
	start := date(2025, 9, 13)
	assert.Equal(t, date(2025, 9, 21), PauseEndFor(start, 10))
	assert.Equal(t, date(2025, 9, 13), PauseEndFor(start, 2))
}

func TestPauseDaysForWindow(t *testing.T) {
	assert.Equal(t, 10, PauseDaysForWindow(date(2025, 9, 13), date(2025, 9, 21)))
	assert.Equal(t, 2, PauseDaysForWindow(date(2025, 9, 13), date(2025, 9, 13)))
}

func TestUsedPauseDays(t *testing.T) {
	record := PauseRecord{
		PauseStart: date(2025, 9, 13),
		PauseDays:  10,
		PauseEnd:   date(2025, 9, 21),
	}

	tests := []struct {
		name string
		asOf time.Time
		want int
	}{
		{"before pause started", date(2025, 9, 12), 0},
		{"on start day", date(2025, 9, 13), 1},
		{"mid pause", date(2025, 9, 16), 4},
		{"on end date", date(2025, 9, 21), 10},
		{"after end date", date(2025, 10, 1), 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, record.UsedPauseDays(tt.asOf))
		})
	}
}

func TestPauseElapsed(t *testing.T) {
	record := PauseRecord{
		PauseStart: date(2025, 9, 13),
		PauseDays:  10,
		PauseEnd:   date(2025, 9, 21),
	}

	assert.False(t, record.Elapsed(date(2025, 9, 21)))
	assert.True(t, record.Elapsed(date(2025, 9, 22)))
}
