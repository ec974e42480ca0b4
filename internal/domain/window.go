package domain

import (
	"time"

	"github.com/padelpoint/access-service/pkg/timezone"
)

// WindowKind вариант текущего состояния участника
type WindowKind int

const (
	// WindowNone нет подходящей подписки, историческое окно сохраняется
	WindowNone WindowKind = iota
	// WindowActive действующая подписка покрывает "сегодня"
	WindowActive
	// WindowUpcoming ближайшая будущая подписка, допуска сегодня не дает
	WindowUpcoming
	// WindowPaused подписка на конечной паузе, окно продлено на дни паузы
	WindowPaused
	// WindowStopped административная остановка
	WindowStopped
)

// WindowContext входные условия для выбора текущего окна
type WindowContext struct {
	Now time.Time

	// AlreadyStopped участник уже остановлен вручную или по предупреждениям
	AlreadyStopped bool

	// Transferred выбор запущен событием переноса подписки
	Transferred bool
}

// WindowDecision результат выбора текущего окна участника.
// Слой хранения разворачивает вариант обратно в колонки записи участника.
type WindowDecision struct {
	Kind         WindowKind
	Subscription *Subscription

	Start time.Time
	End   time.Time

	// Для Kind == WindowPaused
	PauseStart time.Time
	PauseEnd   time.Time
	PauseDays  int

	// Для Kind == WindowStopped
	StopReason string

	// Для Kind == WindowNone: остановка участника сохраняется
	PreserveStopped bool
}

// SelectCurrentWindow выбирает текущее окно подписки участника по всем его
// известным подпискам. Чистая функция: пересчет выполняется с нуля на каждом
// событии, без инкрементальных правок состояния.
func SelectCurrentWindow(subs []Subscription, wctx WindowContext) WindowDecision {
	today := timezone.DateOnly(wctx.Now)

	var activeNow, pausedNow, upcoming []*Subscription
	for i := range subs {
		s := &subs[i]
		if !s.FullyPaid() {
			continue
		}
		switch s.Status {
		case SubscriptionStatusActive:
			if s.ContainsDate(today) {
				activeNow = append(activeNow, s)
			}
		case SubscriptionStatusPaused:
			if s.ContainsDate(today) {
				pausedNow = append(pausedNow, s)
			}
		case SubscriptionStatusPending, SubscriptionStatusStartingSoon:
			if timezone.DateOnly(s.StartDate).After(today) {
				upcoming = append(upcoming, s)
			}
		}
	}

	bestActive := bestByLatestStart(activeNow)
	bestPaused := bestByLatestStart(pausedNow)

	// При пересечении активной и паузной кандидатур активная выигрывает,
	// кроме случая, когда пауза началась строго позже (апгрейд на месте)
	chosen := bestActive
	pausedChosen := false
	switch {
	case bestActive != nil && bestPaused != nil:
		if bestPaused.StartDate.After(bestActive.StartDate) {
			chosen = bestPaused
			pausedChosen = true
		}
	case bestActive == nil && bestPaused != nil:
		chosen = bestPaused
		pausedChosen = true
	}

	if chosen != nil {
		if !pausedChosen {
			return WindowDecision{
				Kind:         WindowActive,
				Subscription: chosen,
				Start:        chosen.StartDate,
				End:          chosen.EndDate,
			}
		}
		return pausedDecision(chosen, today)
	}

	if next := nearestUpcoming(upcoming); next != nil {
		return WindowDecision{
			Kind:         WindowUpcoming,
			Subscription: next,
			Start:        next.StartDate,
			End:          next.EndDate,
		}
	}

	if wctx.Transferred {
		return WindowDecision{
			Kind:       WindowStopped,
			StopReason: StopReasonTransferred,
		}
	}

	return WindowDecision{
		Kind:            WindowNone,
		PreserveStopped: wctx.AlreadyStopped,
	}
}

// pausedDecision раскрывает кандидата со статусом "на паузе"
func pausedDecision(s *Subscription, today time.Time) WindowDecision {
	if s.ResumeAt == nil {
		// Бессрочная пауза трактуется как административная остановка
		return WindowDecision{
			Kind:         WindowStopped,
			Subscription: s,
			Start:        s.StartDate,
			End:          s.EndDate,
			StopReason:   StopReasonIndefinitePause,
		}
	}

	pauseStart := s.StartDate
	if s.PausedAt != nil {
		pauseStart = timezone.DateOnly(*s.PausedAt)
	}
	pauseEnd := timezone.DateOnly(*s.ResumeAt)

	if !today.Before(pauseStart) && !today.After(pauseEnd) {
		days := PauseDaysForWindow(pauseStart, pauseEnd)
		return WindowDecision{
			Kind:         WindowPaused,
			Subscription: s,
			Start:        s.StartDate,
			End:          s.EndDate.AddDate(0, 0, days),
			PauseStart:   pauseStart,
			PauseEnd:     pauseEnd,
			PauseDays:    days,
		}
	}

	// "Сегодня" вне интервала паузы: окно действует, состояние паузы снимается
	return WindowDecision{
		Kind:         WindowActive,
		Subscription: s,
		Start:        s.StartDate,
		End:          s.EndDate,
	}
}

// bestByLatestStart выбирает кандидата с самой поздней датой начала,
// при равенстве — с самой высокой ценой
func bestByLatestStart(candidates []*Subscription) *Subscription {
	var best *Subscription
	for _, s := range candidates {
		if best == nil ||
			s.StartDate.After(best.StartDate) ||
			(s.StartDate.Equal(best.StartDate) && s.TotalAmount > best.TotalAmount) {
			best = s
		}
	}
	return best
}

// nearestUpcoming выбирает будущую подписку с самой ранней датой начала,
// при равенстве — с самой высокой ценой
func nearestUpcoming(candidates []*Subscription) *Subscription {
	var best *Subscription
	for _, s := range candidates {
		if best == nil ||
			s.StartDate.Before(best.StartDate) ||
			(s.StartDate.Equal(best.StartDate) && s.TotalAmount > best.TotalAmount) {
			best = s
		}
	}
	return best
}
