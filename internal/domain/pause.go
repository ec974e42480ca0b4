package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/padelpoint/access-service/pkg/timezone"
)

// PauseRecord представляет собой запись паузы подписки.
// Одновременно у участника может быть не более одной активной записи.
type PauseRecord struct {
	ID         uuid.UUID `json:"id"`
	MemberID   uuid.UUID `json:"member_id"`
	PauseStart time.Time `json:"pause_start"`
	PauseDays  int       `json:"pause_days"`
	PauseEnd   time.Time `json:"pause_end"`
	Reason     string    `json:"reason,omitempty"`
	CreatedBy  string    `json:"created_by,omitempty"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// PauseEndFor вычисляет дату окончания паузы по дате начала и числу дней.
// Учет инклюзивный: день начала считается первым днем, поэтому конец
// наступает через (days - 2) календарных дня после начала.
func PauseEndFor(start time.Time, days int) time.Time {
	return timezone.DateOnly(start).AddDate(0, 0, days-2)
}

// PauseDaysForWindow восстанавливает число дней паузы по ее границам,
// обратная функция к PauseEndFor
func PauseDaysForWindow(start, end time.Time) int {
	return timezone.DaysBetween(start, end) + 2
}

// UsedPauseDays вычисляет фактически использованные дни паузы на дату asOf:
// ноль до начала паузы, полное число дней начиная с даты окончания,
// иначе инклюзивное число дней от начала по asOf
func (p *PauseRecord) UsedPauseDays(asOf time.Time) int {
	asOfDate := timezone.DateOnly(asOf)
	startDate := timezone.DateOnly(p.PauseStart)
	endDate := timezone.DateOnly(p.PauseEnd)

	switch {
	case asOfDate.Before(startDate):
		return 0
	case !asOfDate.Before(endDate):
		return p.PauseDays
	default:
		return timezone.DaysBetween(startDate, asOfDate) + 1
	}
}

// Elapsed сообщает, истекла ли пауза на дату asOf
func (p *PauseRecord) Elapsed(asOf time.Time) bool {
	return timezone.DateOnly(asOf).After(timezone.DateOnly(p.PauseEnd))
}
