package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/padelpoint/access-service/internal/domain"
	"github.com/padelpoint/access-service/internal/repository"
	"github.com/padelpoint/access-service/pkg/logger"
)

// WarningService интерфейс учета посещаемости и эскалации предупреждений
type WarningService interface {
	// RecordAttendance редактирует флаг посещения визита. Неявка увеличивает
	// счетчик предупреждений участника; по достижении порога участник
	// останавливается административно.
	RecordAttendance(ctx context.Context, checkInID uuid.UUID, attended bool) (domain.Member, error)

	// ClearNoShow возвращает визиту флаг посещения и уменьшает счетчик
	// предупреждений. Остановку по предупреждениям снимает только
	// администратор, автоматического возврата доступа нет.
	ClearNoShow(ctx context.Context, checkInID uuid.UUID) (domain.Member, error)
}

// WarningMetrics интерфейс метрик предупреждений
type WarningMetrics interface {
	IncNoShow()
	IncWarningStop()
}

type warningService struct {
	memberRepo  MemberRepository
	checkInRepo CheckInRepository
	producer    AccessEventProducer
	metrics     WarningMetrics
	log         *logger.Logger
	threshold   int
}

// NewWarningService создает новый сервис предупреждений. threshold задает
// число неявок, после которого участник останавливается.
func NewWarningService(
	memberRepo MemberRepository,
	checkInRepo CheckInRepository,
	producer AccessEventProducer,
	metrics WarningMetrics,
	log *logger.Logger,
	threshold int,
) WarningService {
	return &warningService{
		memberRepo:  memberRepo,
		checkInRepo: checkInRepo,
		producer:    producer,
		metrics:     metrics,
		log:         log,
		threshold:   threshold,
	}
}

// RecordAttendance редактирует флаг посещения визита
func (s *warningService) RecordAttendance(ctx context.Context, checkInID uuid.UUID, attended bool) (domain.Member, error) {
	checkIn, member, err := s.load(ctx, checkInID)
	if err != nil {
		return domain.Member{}, err
	}

	if checkIn.Attended == attended {
		return member, nil
	}

	checkIn.Attended = attended
	if attended {
		// Исправление ранее записанной неявки
		if member.WarningCount > 0 {
			member.WarningCount--
		}
	} else {
		member.WarningCount++
		s.metrics.IncNoShow()
		if member.WarningCount >= s.threshold && !member.IsStopped {
			member.ApplyStop(domain.StopReasonWarningLimit, time.Now(), true)
			s.metrics.IncWarningStop()
			s.log.Warnw("Member stopped after reaching no-show limit",
				"memberID", member.ID, "warnings", member.WarningCount)
		}
	}

	if err := s.checkInRepo.UpdateWithMember(ctx, checkIn, member); err != nil {
		return domain.Member{}, err
	}

	if member.IsStoppedByWarning {
		if err := s.producer.PublishMemberStopped(ctx, member); err != nil {
			s.log.Errorw("Failed to publish member stopped event", "error", err, "memberID", member.ID)
		}
	}

	return member, nil
}

// ClearNoShow возвращает визиту флаг посещения
func (s *warningService) ClearNoShow(ctx context.Context, checkInID uuid.UUID) (domain.Member, error) {
	checkIn, member, err := s.load(ctx, checkInID)
	if err != nil {
		return domain.Member{}, err
	}

	if checkIn.Attended {
		return member, nil
	}

	checkIn.Attended = true
	if member.WarningCount > 0 {
		member.WarningCount--
	}

	if err := s.checkInRepo.UpdateWithMember(ctx, checkIn, member); err != nil {
		return domain.Member{}, err
	}

	s.log.Infow("No-show cleared", "checkInID", checkIn.ID, "memberID", member.ID)
	return member, nil
}

func (s *warningService) load(ctx context.Context, checkInID uuid.UUID) (domain.CheckIn, domain.Member, error) {
	checkIn, err := s.checkInRepo.GetByID(ctx, checkInID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.CheckIn{}, domain.Member{}, domain.ErrCheckInNotFound
		}
		return domain.CheckIn{}, domain.Member{}, err
	}

	member, err := s.memberRepo.GetByID(ctx, checkIn.MemberID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.CheckIn{}, domain.Member{}, domain.ErrMemberNotFound
		}
		return domain.CheckIn{}, domain.Member{}, err
	}

	return checkIn, member, nil
}
