package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/padelpoint/access-service/internal/domain"
	"github.com/padelpoint/access-service/internal/repository"
	"github.com/padelpoint/access-service/pkg/logger"
	"github.com/padelpoint/access-service/pkg/timezone"
)

// PauseService интерфейс ручных пауз участников
type PauseService interface {
	// Pause ставит участника на паузу с заданной даты на заданное число дней.
	// Дата окончания подписки продлевается на полное число дней паузы.
	Pause(ctx context.Context, memberID uuid.UUID, pauseStart time.Time, days int, reason, actor string) (domain.Member, error)

	// Unpause снимает участника с паузы на дату возобновления. Неиспользованные
	// дни паузы возвращаются: дата окончания подписки укорачивается на разницу.
	Unpause(ctx context.Context, memberID uuid.UUID, resumeDate time.Time, actor string) (domain.Member, error)

	// AutoUnpauseIfElapsed снимает истекшую паузу от имени системы.
	// Возвращает обновленного участника и признак того, что пауза была снята.
	AutoUnpauseIfElapsed(ctx context.Context, member domain.Member, now time.Time) (domain.Member, bool, error)
}

// PauseRepository интерфейс репозитория пауз
type PauseRepository interface {
	GetActiveByMemberID(ctx context.Context, memberID uuid.UUID) (domain.PauseRecord, error)
	ApplyPause(ctx context.Context, member domain.Member, record domain.PauseRecord) (domain.PauseRecord, error)
	ApplyUnpause(ctx context.Context, member domain.Member, record domain.PauseRecord) error
}

// PauseMetrics интерфейс метрик пауз
type PauseMetrics interface {
	IncPauseApplied(actor string)
	IncPauseLifted(actor string)
}

type pauseService struct {
	memberRepo   MemberRepository
	pauseRepo    PauseRepository
	metrics      PauseMetrics
	log          *logger.Logger
	facilityZone string
	now          func() time.Time
}

// NewPauseService создает новый сервис пауз. facilityZone задает часовой пояс
// клуба, в котором трактуются даты начала и возобновления паузы.
func NewPauseService(
	memberRepo MemberRepository,
	pauseRepo PauseRepository,
	metrics PauseMetrics,
	log *logger.Logger,
	facilityZone string,
) PauseService {
	return &pauseService{
		memberRepo:   memberRepo,
		pauseRepo:    pauseRepo,
		metrics:      metrics,
		log:          log,
		facilityZone: facilityZone,
		now:          time.Now,
	}
}

// Pause ставит участника на паузу
func (s *pauseService) Pause(ctx context.Context, memberID uuid.UUID, pauseStart time.Time, days int, reason, actor string) (domain.Member, error) {
	member, err := s.memberRepo.GetByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Member{}, domain.ErrMemberNotFound
		}
		return domain.Member{}, err
	}

	if member.IsStopped {
		return domain.Member{}, domain.NewInvalidStateError(member.ID.String(), "subscription is stopped", domain.ErrAlreadyStopped)
	}
	if member.IsPaused {
		return domain.Member{}, domain.ErrAlreadyPaused
	}
	if member.SubscriptionStartDate == nil || member.SubscriptionEndDate == nil {
		return domain.Member{}, domain.NewInvalidStateError(member.ID.String(), "no subscription window", domain.ErrInvalidInput)
	}
	if days < 2 {
		return domain.Member{}, fmt.Errorf("%w: pause must be at least 2 days", domain.ErrInvalidPauseDate)
	}

	start := timezone.DateOnly(pauseStart)
	today, err := timezone.LocalDate(s.now(), s.facilityZone)
	if err != nil {
		return domain.Member{}, err
	}
	if start.Before(today) {
		return domain.Member{}, fmt.Errorf("%w: pause cannot start in the past", domain.ErrInvalidPauseDate)
	}
	if start.After(timezone.DateOnly(*member.SubscriptionEndDate)) {
		return domain.Member{}, fmt.Errorf("%w: pause starts after subscription end", domain.ErrInvalidPauseDate)
	}

	pauseEnd := domain.PauseEndFor(start, days)
	extendedEnd := timezone.DateOnly(*member.SubscriptionEndDate).AddDate(0, 0, days)

	member.SetWindow(*member.SubscriptionStartDate, extendedEnd)
	member.ApplyPause(start, pauseEnd)

	record := domain.PauseRecord{
		ID:         uuid.New(),
		MemberID:   member.ID,
		PauseStart: start,
		PauseDays:  days,
		PauseEnd:   pauseEnd,
		Reason:     reason,
		CreatedBy:  actor,
		IsActive:   true,
	}

	if _, err := s.pauseRepo.ApplyPause(ctx, member, record); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return domain.Member{}, domain.ErrAlreadyPaused
		}
		return domain.Member{}, fmt.Errorf("failed to apply pause: %w", err)
	}

	s.metrics.IncPauseApplied(actor)
	s.log.Infow("Member paused",
		"memberID", member.ID, "start", start.Format(time.DateOnly),
		"days", days, "actor", actor)
	return member, nil
}

// Unpause снимает участника с паузы
func (s *pauseService) Unpause(ctx context.Context, memberID uuid.UUID, resumeDate time.Time, actor string) (domain.Member, error) {
	member, err := s.memberRepo.GetByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Member{}, domain.ErrMemberNotFound
		}
		return domain.Member{}, err
	}

	if !member.IsPaused {
		return domain.Member{}, domain.ErrNotPaused
	}

	record, err := s.pauseRepo.GetActiveByMemberID(ctx, member.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Member{}, domain.ErrNotPaused
		}
		return domain.Member{}, err
	}

	return s.lift(ctx, member, record, timezone.DateOnly(resumeDate), actor)
}

// AutoUnpauseIfElapsed снимает истекшую паузу в рамках проверки чекина
func (s *pauseService) AutoUnpauseIfElapsed(ctx context.Context, member domain.Member, now time.Time) (domain.Member, bool, error) {
	if !member.IsPaused {
		return member, false, nil
	}

	record, err := s.pauseRepo.GetActiveByMemberID(ctx, member.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Флаг без записи: снимаем по датам на самом участнике
			if member.CurrentPauseEndDate != nil && timezone.DateOnly(now).After(timezone.DateOnly(*member.CurrentPauseEndDate)) {
				member.ClearPause()
				if err := s.memberRepo.Update(ctx, member); err != nil {
					return member, false, err
				}
				return member, true, nil
			}
			return member, false, nil
		}
		return member, false, err
	}

	if !record.Elapsed(now) {
		return member, false, nil
	}

	updated, err := s.lift(ctx, member, record, timezone.DateOnly(now), "system")
	if err != nil {
		return member, false, err
	}
	return updated, true, nil
}

// lift применяет возврат неиспользованных дней и деактивирует запись паузы.
// Возобновление до даты начала паузы означает ноль использованных дней:
// дата окончания подписки возвращается к значению до паузы.
func (s *pauseService) lift(ctx context.Context, member domain.Member, record domain.PauseRecord, resumeDate time.Time, actor string) (domain.Member, error) {
	used := record.UsedPauseDays(resumeDate)
	unused := record.PauseDays - used
	if unused < 0 {
		unused = 0
	}

	if member.SubscriptionEndDate != nil {
		shrunk := timezone.DateOnly(*member.SubscriptionEndDate).AddDate(0, 0, -unused)
		member.SetWindow(*member.SubscriptionStartDate, shrunk)
	}
	member.ClearPause()

	record.PauseDays = used
	record.PauseEnd = resumeDate
	if resumeDate.Before(timezone.DateOnly(record.PauseStart)) {
		// Пауза отменена до начала: запись схлопывается в точку старта
		record.PauseEnd = timezone.DateOnly(record.PauseStart)
	}
	record.IsActive = false

	if err := s.pauseRepo.ApplyUnpause(ctx, member, record); err != nil {
		return domain.Member{}, fmt.Errorf("failed to lift pause: %w", err)
	}

	s.metrics.IncPauseLifted(actor)
	s.log.Infow("Member pause lifted",
		"memberID", member.ID, "usedDays", used, "returnedDays", unused, "actor", actor)
	return member, nil
}
