package timezone

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTimeZone неизвестный или пустой идентификатор часового пояса
var ErrInvalidTimeZone = errors.New("invalid time zone")

// billingDayRolloverHour час, которым биллинговая система обозначает начало следующего дня
const billingDayRolloverHour = 21

// Location возвращает *time.Location по IANA идентификатору зоны
func Location(zoneID string) (*time.Location, error) {
	if zoneID == "" {
		return nil, fmt.Errorf("%w: empty zone id", ErrInvalidTimeZone)
	}

	loc, err := time.LoadLocation(zoneID)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimeZone, zoneID)
	}

	return loc, nil
}

// StartOfLocalDay возвращает UTC-момент начала локального дня, в который попадает t
func StartOfLocalDay(t time.Time, zoneID string) (time.Time, error) {
	loc, err := Location(zoneID)
	if err != nil {
		return time.Time{}, err
	}

	year, month, day := t.In(loc).Date()
	return time.Date(year, month, day, 0, 0, 0, 0, loc).UTC(), nil
}

// EndOfLocalDay возвращает UTC-момент конца локального дня: на один тик раньше следующей локальной полуночи
func EndOfLocalDay(t time.Time, zoneID string) (time.Time, error) {
	loc, err := Location(zoneID)
	if err != nil {
		return time.Time{}, err
	}

	year, month, day := t.In(loc).Date()
	nextMidnight := time.Date(year, month, day+1, 0, 0, 0, 0, loc)
	return nextMidnight.Add(-time.Nanosecond).UTC(), nil
}

// DayBounds возвращает UTC-границы локального календарного дня (год, месяц, число)
func DayBounds(year int, month time.Month, day int, zoneID string) (time.Time, time.Time, error) {
	loc, err := Location(zoneID)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	start := time.Date(year, month, day, 0, 0, 0, 0, loc)
	end := time.Date(year, month, day+1, 0, 0, 0, 0, loc).Add(-time.Nanosecond)
	return start.UTC(), end.UTC(), nil
}

// LocalDate возвращает локальную календарную дату момента t как полночь UTC
func LocalDate(t time.Time, zoneID string) (time.Time, error) {
	loc, err := Location(zoneID)
	if err != nil {
		return time.Time{}, err
	}

	year, month, day := t.In(loc).Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), nil
}

// LocalClock возвращает локальное время суток момента t в минутах от полуночи
func LocalClock(t time.Time, zoneID string) (int, error) {
	loc, err := Location(zoneID)
	if err != nil {
		return 0, err
	}

	local := t.In(loc)
	return local.Hour()*60 + local.Minute(), nil
}

// DayBucket возвращает локальную дату момента t в виде строки YYYY-MM-DD.
// Используется как ключ уникальности чек-инов в пределах локального дня.
func DayBucket(t time.Time, zoneID string) (string, error) {
	loc, err := Location(zoneID)
	if err != nil {
		return "", err
	}

	return t.In(loc).Format(time.DateOnly), nil
}

// DateOnly усекает момент до календарной даты (полночь UTC)
func DateOnly(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DaysBetween возвращает число календарных дней от даты a до даты b
func DaysBetween(a, b time.Time) int {
	return int(DateOnly(b).Sub(DateOnly(a)).Hours() / 24)
}

// NormalizeBillingTime приводит биллинговый timestamp к календарной дате.
// Время ровно 21:00:00 в биллинге обозначает начало следующего дня,
// все остальные значения усекаются до своей даты.
func NormalizeBillingTime(t time.Time) time.Time {
	if t.Hour() == billingDayRolloverHour && t.Minute() == 0 && t.Second() == 0 {
		return DateOnly(t).AddDate(0, 0, 1)
	}
	return DateOnly(t)
}
