package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Branch представляет собой филиал клуба
type Branch struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	TimeZone  string     `json:"time_zone"` // IANA идентификатор, например Asia/Dubai
	Active    bool       `json:"active"`
	TimeSlots []TimeSlot `json:"time_slots,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TimeSlot недельное окно допуска филиала.
// StartMinute и EndMinute заданы в минутах от локальной полуночи;
// StartMinute > EndMinute означает окно, переходящее через полночь.
type TimeSlot struct {
	ID          uuid.UUID    `json:"id"`
	BranchID    uuid.UUID    `json:"branch_id"`
	Weekday     time.Weekday `json:"weekday"`
	StartMinute int          `json:"start_minute"`
	EndMinute   int          `json:"end_minute"`
	Active      bool         `json:"active"`
}

// Wraps сообщает, переходит ли окно через полночь
func (ts *TimeSlot) Wraps() bool {
	return ts.StartMinute > ts.EndMinute
}

// Contains сообщает, попадает ли локальное время суток (в минутах) в окно.
// Окно с переходом через полночь трактуется как [start, 24:00) ∪ [00:00, end].
func (ts *TimeSlot) Contains(minuteOfDay int) bool {
	if ts.Wraps() {
		return minuteOfDay >= ts.StartMinute || minuteOfDay <= ts.EndMinute
	}
	return minuteOfDay >= ts.StartMinute && minuteOfDay <= ts.EndMinute
}

// Validate проверяет инвариант окна
func (ts *TimeSlot) Validate() error {
	if ts.StartMinute < 0 || ts.StartMinute >= 24*60 {
		return fmt.Errorf("%w: slot start minute %d out of range", ErrInvalidInput, ts.StartMinute)
	}
	if ts.EndMinute < 0 || ts.EndMinute >= 24*60 {
		return fmt.Errorf("%w: slot end minute %d out of range", ErrInvalidInput, ts.EndMinute)
	}
	return nil
}

// String форматирует окно как HH:MM-HH:MM для сообщений пользователю
func (ts *TimeSlot) String() string {
	return fmt.Sprintf("%02d:%02d-%02d:%02d",
		ts.StartMinute/60, ts.StartMinute%60,
		ts.EndMinute/60, ts.EndMinute%60,
	)
}

// ActiveSlotsFor возвращает активные окна филиала для дня недели
func (b *Branch) ActiveSlotsFor(weekday time.Weekday) []TimeSlot {
	var slots []TimeSlot
	for _, slot := range b.TimeSlots {
		if slot.Active && slot.Weekday == weekday {
			slots = append(slots, slot)
		}
	}
	return slots
}
