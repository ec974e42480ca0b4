package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/padelpoint/access-service/internal/domain"
	"github.com/padelpoint/access-service/internal/repository"
	"github.com/padelpoint/access-service/pkg/logger"
	"github.com/padelpoint/access-service/pkg/timezone"
)

// CheckInService интерфейс проверки допуска и записи визитов
type CheckInService interface {
	// Validate прогоняет участника через цепочку проверок допуска в филиал.
	// Проверки упорядочены и останавливаются на первой провалившейся.
	Validate(ctx context.Context, identifier string, branchID uuid.UUID, at time.Time) (domain.CheckInDecision, error)

	// Record проверяет допуск и при успехе записывает визит. Гонка двух
	// одновременных чекинов за один день разрешается уникальным ограничением.
	Record(ctx context.Context, req RecordCheckInRequest) (domain.CheckInDecision, *domain.CheckIn, error)
}

// BranchRepository интерфейс репозитория филиалов
type BranchRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Branch, error)
}

// CheckInRepository интерфейс репозитория визитов
type CheckInRepository interface {
	Create(ctx context.Context, checkIn domain.CheckIn) (domain.CheckIn, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.CheckIn, error)
	ExistsByDayBucket(ctx context.Context, memberID uuid.UUID, bucket string) (bool, error)
	UpdateWithMember(ctx context.Context, checkIn domain.CheckIn, member domain.Member) error
}

// CheckInMetrics интерфейс метрик чекинов
type CheckInMetrics interface {
	IncValidation(branchID string, result string, reason string)
	IncRecorded(branchID string)
}

// RecordCheckInRequest параметры записи визита
type RecordCheckInRequest struct {
	Identifier      string
	BranchID        uuid.UUID
	At              time.Time
	CourtID         *uuid.UUID
	DurationMinutes *int
	Notes           string
}

type checkInService struct {
	memberRepo   MemberRepository
	branchRepo   BranchRepository
	checkInRepo  CheckInRepository
	pauseService PauseService
	producer     AccessEventProducer
	metrics      CheckInMetrics
	log          *logger.Logger
}

// NewCheckInService создает новый сервис чекинов
func NewCheckInService(
	memberRepo MemberRepository,
	branchRepo BranchRepository,
	checkInRepo CheckInRepository,
	pauseService PauseService,
	producer AccessEventProducer,
	metrics CheckInMetrics,
	log *logger.Logger,
) CheckInService {
	return &checkInService{
		memberRepo:   memberRepo,
		branchRepo:   branchRepo,
		checkInRepo:  checkInRepo,
		pauseService: pauseService,
		producer:     producer,
		metrics:      metrics,
		log:          log,
	}
}

// Validate прогоняет цепочку проверок допуска
func (s *checkInService) Validate(ctx context.Context, identifier string, branchID uuid.UUID, at time.Time) (domain.CheckInDecision, error) {
	decision, _, _, err := s.evaluate(ctx, identifier, branchID, at)
	if err != nil {
		return domain.CheckInDecision{}, err
	}

	s.recordValidationMetric(branchID, decision)
	return decision, nil
}

// Record проверяет допуск и записывает визит
func (s *checkInService) Record(ctx context.Context, req RecordCheckInRequest) (domain.CheckInDecision, *domain.CheckIn, error) {
	decision, member, branch, err := s.evaluate(ctx, req.Identifier, req.BranchID, req.At)
	if err != nil {
		return domain.CheckInDecision{}, nil, err
	}
	if !decision.Valid {
		s.recordValidationMetric(req.BranchID, decision)
		return decision, nil, nil
	}

	bucket, err := timezone.DayBucket(req.At, branch.TimeZone)
	if err != nil {
		return domain.CheckInDecision{}, nil, err
	}

	checkIn := domain.CheckIn{
		ID:              uuid.New(),
		MemberID:        member.ID,
		BranchID:        branch.ID,
		CheckInTime:     req.At,
		LocalDayBucket:  bucket,
		CourtID:         req.CourtID,
		DurationMinutes: req.DurationMinutes,
		Notes:           req.Notes,
		Attended:        true,
	}

	created, err := s.checkInRepo.Create(ctx, checkIn)
	if err != nil {
		// Второй визит за тот же локальный день проиграл гонку
		if errors.Is(err, repository.ErrDuplicate) {
			rejected := domain.Reject(domain.RejectAlreadyCheckedIn, "member already checked in today", member)
			s.recordValidationMetric(req.BranchID, rejected)
			return rejected, nil, nil
		}
		return domain.CheckInDecision{}, nil, fmt.Errorf("failed to record check-in: %w", err)
	}

	s.metrics.IncRecorded(branch.ID.String())
	s.recordValidationMetric(req.BranchID, decision)
	if err := s.producer.PublishCheckInRecorded(ctx, created); err != nil {
		s.log.Errorw("Failed to publish check-in event", "error", err, "checkInID", created.ID)
	}

	s.log.Infow("Check-in recorded",
		"memberID", member.ID, "branchID", branch.ID, "dayBucket", bucket)
	return decision, &created, nil
}

// evaluate выполняет упорядоченную цепочку проверок и возвращает решение
// вместе с загруженными участником и филиалом для последующей записи
func (s *checkInService) evaluate(ctx context.Context, identifier string, branchID uuid.UUID, at time.Time) (domain.CheckInDecision, *domain.Member, domain.Branch, error) {
	member, err := s.memberRepo.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Reject(domain.RejectMemberNotFound, "member not found", nil), nil, domain.Branch{}, nil
		}
		return domain.CheckInDecision{}, nil, domain.Branch{}, err
	}

	branch, err := s.branchRepo.GetByID(ctx, branchID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Reject(domain.RejectBranchNotFound, "branch not found", &member), nil, domain.Branch{}, nil
		}
		return domain.CheckInDecision{}, nil, domain.Branch{}, err
	}

	if !branch.Active {
		return domain.Reject(domain.RejectBranchInactive, "branch is not active", &member), nil, branch, nil
	}

	loc, err := timezone.Location(branch.TimeZone)
	if err != nil {
		return domain.Reject(domain.RejectTimeZoneNotSet, "branch time zone is not configured", &member), nil, branch, nil
	}

	if member.IsStopped {
		message := "subscription is stopped"
		if member.StopReason != "" {
			message = fmt.Sprintf("subscription is stopped: %s", member.StopReason)
		}
		return domain.Reject(domain.RejectStopped, message, &member), nil, branch, nil
	}

	localDay := timezone.DateOnly(at.In(loc))

	if member.IsPaused && !pauseNotStarted(member, localDay) {
		// Истекшая пауза снимается автоматически, проверка продолжается
		updated, lifted, err := s.pauseService.AutoUnpauseIfElapsed(ctx, member, at)
		if err != nil {
			return domain.CheckInDecision{}, nil, domain.Branch{}, err
		}
		if !lifted {
			message := "subscription is paused"
			if member.CurrentPauseEndDate != nil {
				message = fmt.Sprintf("subscription is paused until %s", member.CurrentPauseEndDate.Format(time.DateOnly))
			}
			return domain.Reject(domain.RejectPaused, message, &member), nil, branch, nil
		}
		member = updated
	}

	if !member.WindowContains(localDay) {
		return domain.Reject(domain.RejectSubscriptionNotActive, "no active subscription for today", &member), nil, branch, nil
	}

	// Один визит в локальные сутки, по всем филиалам: сравниваются маркеры
	// локального дня, тем же ключом закрыто уникальное ограничение на записи
	bucket, err := timezone.DayBucket(at, branch.TimeZone)
	if err != nil {
		return domain.CheckInDecision{}, nil, domain.Branch{}, err
	}
	exists, err := s.checkInRepo.ExistsByDayBucket(ctx, member.ID, bucket)
	if err != nil {
		return domain.CheckInDecision{}, nil, domain.Branch{}, err
	}
	if exists {
		return domain.Reject(domain.RejectAlreadyCheckedIn, "member already checked in today", &member), nil, branch, nil
	}

	if ok, allowed := s.withinAllowedSlot(branch, at, loc); !ok {
		message := "outside allowed visit hours"
		if allowed != "" {
			message = fmt.Sprintf("outside allowed visit hours, allowed: %s", allowed)
		}
		return domain.Reject(domain.RejectOutsideAllowedWindow, message, &member), nil, branch, nil
	}

	return domain.Admit(&member), &member, branch, nil
}

// pauseNotStarted сообщает, что пауза назначена на будущее и на локальную
// дату визита еще не действует
func pauseNotStarted(member domain.Member, localDay time.Time) bool {
	return member.CurrentPauseStartDate != nil &&
		localDay.Before(timezone.DateOnly(*member.CurrentPauseStartDate))
}

// withinAllowedSlot проверяет попадание момента визита в разрешенные слоты
// филиала. День без настроенных активных слотов открыт без ограничений.
// Вторым значением возвращается список разрешенных интервалов для сообщения.
func (s *checkInService) withinAllowedSlot(branch domain.Branch, at time.Time, loc *time.Location) (bool, string) {
	local := at.In(loc)
	slots := branch.ActiveSlotsFor(local.Weekday())
	if len(slots) == 0 {
		return true, ""
	}

	minute := local.Hour()*60 + local.Minute()
	allowed := make([]string, 0, len(slots))
	for _, slot := range slots {
		if slot.Contains(minute) {
			return true, ""
		}
		allowed = append(allowed, slot.String())
	}

	return false, strings.Join(allowed, ", ")
}

// recordValidationMetric пишет метрику исхода проверки
func (s *checkInService) recordValidationMetric(branchID uuid.UUID, decision domain.CheckInDecision) {
	if decision.Valid {
		s.metrics.IncValidation(branchID.String(), "admitted", "")
		return
	}
	s.metrics.IncValidation(branchID.String(), "rejected", string(decision.Reason))
}
