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

// MemberService интерфейс административных операций над участниками
type MemberService interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Member, error)
	FindByIdentifier(ctx context.Context, identifier string) (domain.Member, error)

	// Stop административно останавливает участника с указанием причины
	Stop(ctx context.Context, memberID uuid.UUID, reason, actor string) (domain.Member, error)

	// Reactivate снимает административную остановку и пересчитывает окно
	// по актуальным подпискам. Счетчик предупреждений обнуляется.
	Reactivate(ctx context.Context, memberID uuid.UUID, actor string) (domain.Member, error)
}

type memberService struct {
	memberRepo MemberRepository
	lifecycle  LifecycleService
	producer   AccessEventProducer
	log        *logger.Logger
}

// NewMemberService создает новый сервис участников
func NewMemberService(
	memberRepo MemberRepository,
	lifecycle LifecycleService,
	producer AccessEventProducer,
	log *logger.Logger,
) MemberService {
	return &memberService{
		memberRepo: memberRepo,
		lifecycle:  lifecycle,
		producer:   producer,
		log:        log,
	}
}

func (s *memberService) GetByID(ctx context.Context, id uuid.UUID) (domain.Member, error) {
	member, err := s.memberRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Member{}, domain.ErrMemberNotFound
		}
		return domain.Member{}, err
	}
	return member, nil
}

func (s *memberService) FindByIdentifier(ctx context.Context, identifier string) (domain.Member, error) {
	member, err := s.memberRepo.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Member{}, domain.ErrMemberNotFound
		}
		return domain.Member{}, err
	}
	return member, nil
}

// Stop административно останавливает участника
func (s *memberService) Stop(ctx context.Context, memberID uuid.UUID, reason, actor string) (domain.Member, error) {
	member, err := s.GetByID(ctx, memberID)
	if err != nil {
		return domain.Member{}, err
	}
	if member.IsStopped {
		return domain.Member{}, domain.ErrAlreadyStopped
	}

	member.ApplyStop(reason, time.Now(), false)
	if err := s.memberRepo.Update(ctx, member); err != nil {
		return domain.Member{}, err
	}

	if err := s.producer.PublishMemberStopped(ctx, member); err != nil {
		s.log.Errorw("Failed to publish member stopped event", "error", err, "memberID", member.ID)
	}

	s.log.Infow("Member stopped", "memberID", member.ID, "reason", reason, "actor", actor)
	return member, nil
}

// Reactivate снимает остановку участника
func (s *memberService) Reactivate(ctx context.Context, memberID uuid.UUID, actor string) (domain.Member, error) {
	member, err := s.GetByID(ctx, memberID)
	if err != nil {
		return domain.Member{}, err
	}
	if !member.IsStopped {
		return domain.Member{}, domain.ErrNotStopped
	}

	member.ClearStop()
	member.WarningCount = 0
	if err := s.memberRepo.Update(ctx, member); err != nil {
		return domain.Member{}, err
	}

	// Пересчет восстанавливает актуальное окно вместо снятого флага
	if err := s.lifecycle.RecomputeMemberWindow(ctx, member.ID); err != nil {
		return domain.Member{}, err
	}

	s.log.Infow("Member reactivated", "memberID", member.ID, "actor", actor)
	return s.GetByID(ctx, member.ID)
}
