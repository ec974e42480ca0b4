package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestTimeSlotContains(t *testing.T) {
	day := TimeSlot{Weekday: time.Monday, StartMinute: 9 * 60, EndMinute: 18 * 60, Active: true}

	assert.True(t, day.Contains(9*60))
	assert.True(t, day.Contains(12*60))
	assert.True(t, day.Contains(18*60))
	assert.False(t, day.Contains(8*60+59))
	assert.False(t, day.Contains(18*60+1))
}

func TestTimeSlotContainsWrapsMidnight(t *testing.T) {
	// Окно 22:00-02:00 переходит через полночь
	night := TimeSlot{Weekday: time.Friday, StartMinute: 22 * 60, EndMinute: 2 * 60, Active: true}

	assert.True(t, night.Wraps())
	assert.True(t, night.Contains(23*60))
	assert.True(t, night.Contains(1*60))
	assert.True(t, night.Contains(2*60))
	assert.False(t, night.Contains(5*60))
	assert.False(t, night.Contains(21*60))
}

func TestTimeSlotString(t *testing.T) {
	slot := TimeSlot{StartMinute: 22 * 60, EndMinute: 2*60 + 30}
	assert.Equal(t, "22:00-02:30", slot.String())
}

func TestTimeSlotValidate(t *testing.T) {
	valid := TimeSlot{StartMinute: 10 * 60, EndMinute: 12 * 60}
	assert.NoError(t, valid.Validate())

	outOfRange := TimeSlot{StartMinute: -1, EndMinute: 12 * 60}
	assert.ErrorIs(t, outOfRange.Validate(), ErrInvalidInput)

	tooLate := TimeSlot{StartMinute: 10 * 60, EndMinute: 24 * 60}
	assert.ErrorIs(t, tooLate.Validate(), ErrInvalidInput)
}

func TestActiveSlotsFor(t *testing.T) {
	branch := Branch{
		ID:     uuid.New(),
		Active: true,
		TimeSlots: []TimeSlot{
			{Weekday: time.Monday, StartMinute: 9 * 60, EndMinute: 12 * 60, Active: true},
			{Weekday: time.Monday, StartMinute: 14 * 60, EndMinute: 18 * 60, Active: false},
			{Weekday: time.Tuesday, StartMinute: 9 * 60, EndMinute: 12 * 60, Active: true},
		},
	}

	monday := branch.ActiveSlotsFor(time.Monday)
	assert.Len(t, monday, 1)
	assert.Equal(t, 9*60, monday[0].StartMinute)

	assert.Empty(t, branch.ActiveSlotsFor(time.Sunday))
}
