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

// LifecycleService интерфейс движка жизненного цикла подписок
type LifecycleService interface {
	// ProcessWebhookEvent обрабатывает одно вебхук-событие биллинга.
	// Обработка идемпотентна: повторная доставка события безопасна.
	ProcessWebhookEvent(ctx context.Context, event domain.BillingEvent) error

	// SyncSubscriptions принимает снапшоты подписок, сгруппированные по клиентам
	SyncSubscriptions(ctx context.Context, snapshots []domain.CustomerSnapshot) error

	// RecomputeMemberWindow пересчитывает текущее окно участника по всем его подпискам
	RecomputeMemberWindow(ctx context.Context, memberID uuid.UUID) error
}

// MemberRepository интерфейс репозитория участников
type MemberRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Member, error)
	GetByBillingCustomerID(ctx context.Context, customerID string) (domain.Member, error)
	FindByIdentifier(ctx context.Context, identifier string) (domain.Member, error)
	Create(ctx context.Context, member domain.Member) (domain.Member, error)
	Update(ctx context.Context, member domain.Member) error
	UpdateWithHistory(ctx context.Context, member domain.Member, entries []domain.SubscriptionHistory) error
}

// SubscriptionRepository интерфейс репозитория подписок
type SubscriptionRepository interface {
	GetByMemberID(ctx context.Context, memberID uuid.UUID) ([]domain.Subscription, error)
	GetByExternalID(ctx context.Context, externalID string) (domain.Subscription, error)
	Upsert(ctx context.Context, subscription domain.Subscription) (domain.Subscription, error)
}

// AccessEventProducer интерфейс публикации событий доступа
type AccessEventProducer interface {
	PublishWindowUpdated(ctx context.Context, member domain.Member) error
	PublishMemberStopped(ctx context.Context, member domain.Member) error
	PublishCheckInRecorded(ctx context.Context, checkIn domain.CheckIn) error
}

// LifecycleMetrics интерфейс метрик жизненного цикла
type LifecycleMetrics interface {
	IncWebhookEvent(eventType string, outcome string)
	IncWindowRecompute(kind string)
}

type lifecycleService struct {
	memberRepo       MemberRepository
	subscriptionRepo SubscriptionRepository
	pauseRepo        PauseRepository
	producer         AccessEventProducer
	metrics          LifecycleMetrics
	log              *logger.Logger
	now              func() time.Time
}

// NewLifecycleService создает новый движок жизненного цикла подписок
func NewLifecycleService(
	memberRepo MemberRepository,
	subscriptionRepo SubscriptionRepository,
	pauseRepo PauseRepository,
	producer AccessEventProducer,
	metrics LifecycleMetrics,
	log *logger.Logger,
) LifecycleService {
	return &lifecycleService{
		memberRepo:       memberRepo,
		subscriptionRepo: subscriptionRepo,
		pauseRepo:        pauseRepo,
		producer:         producer,
		metrics:          metrics,
		log:              log,
		now:              time.Now,
	}
}

// ProcessWebhookEvent обрабатывает вебхук-событие биллинга
func (s *lifecycleService) ProcessWebhookEvent(ctx context.Context, event domain.BillingEvent) error {
	if !event.Type.Known() {
		s.log.Warn("Skipping unknown billing event type: %s", event.Type)
		s.metrics.IncWebhookEvent(string(event.Type), "skipped")
		return nil
	}

	sub := normalizeBillingSubscription(event.Subscription)
	if sub.ExternalID == "" {
		s.metrics.IncWebhookEvent(string(event.Type), "invalid")
		return fmt.Errorf("%w: billing event without subscription id", domain.ErrInvalidInput)
	}

	member, err := s.memberRepo.GetByBillingCustomerID(ctx, sub.CustomerExternalID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("failed to look up member: %w", err)
		}

		// Участник синтезируется только на created/activated; остальные
		// события без участника молча отбрасываются (логируются, не падают)
		if event.Type != domain.BillingEventSubscriptionCreated &&
			event.Type != domain.BillingEventSubscriptionActivated {
			s.log.Warnw("Billing event for unknown member dropped",
				"eventType", event.Type, "customerID", sub.CustomerExternalID)
			s.metrics.IncWebhookEvent(string(event.Type), "dropped")
			return nil
		}

		member, err = s.synthesizeMember(ctx, sub.CustomerExternalID, event.Profile)
		if err != nil {
			return err
		}
	}

	upserted, err := s.upsertEventSubscription(ctx, member, sub, event)
	if err != nil {
		return err
	}

	if err := s.applyEventToMember(ctx, member, upserted, event); err != nil {
		return err
	}

	s.metrics.IncWebhookEvent(string(event.Type), "processed")
	return nil
}

// SyncSubscriptions обрабатывает массовую синхронизацию снапшотов подписок
func (s *lifecycleService) SyncSubscriptions(ctx context.Context, snapshots []domain.CustomerSnapshot) error {
	for _, snapshot := range snapshots {
		member, err := s.memberRepo.GetByBillingCustomerID(ctx, snapshot.CustomerExternalID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				s.log.Warnw("Snapshot for unknown member skipped",
					"customerID", snapshot.CustomerExternalID)
				continue
			}
			return fmt.Errorf("failed to look up member: %w", err)
		}

		for _, billingSub := range snapshot.Subscriptions {
			normalized := normalizeBillingSubscription(billingSub)
			if _, err := s.subscriptionRepo.Upsert(ctx, billingSubscriptionToRecord(member.ID, normalized)); err != nil {
				return err
			}
		}

		if err := s.recompute(ctx, member, domain.WindowContext{
			Now:            s.now(),
			AlreadyStopped: member.IsStopped,
		}, "subscription.sync"); err != nil {
			return err
		}
	}

	return nil
}

// RecomputeMemberWindow пересчитывает текущее окно участника
func (s *lifecycleService) RecomputeMemberWindow(ctx context.Context, memberID uuid.UUID) error {
	member, err := s.memberRepo.GetByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrMemberNotFound
		}
		return err
	}

	return s.recompute(ctx, member, domain.WindowContext{
		Now:            s.now(),
		AlreadyStopped: member.IsStopped,
	}, "window.recompute")
}

// synthesizeMember создает участника из чистых полей профиля события.
// Единственный случай создания участника вне явного действия администратора.
func (s *lifecycleService) synthesizeMember(ctx context.Context, customerID string, profile *domain.MemberProfile) (domain.Member, error) {
	member := domain.Member{
		ID:                uuid.New(),
		BillingCustomerID: customerID,
	}
	if profile != nil {
		member.FullName = profile.FullName
		member.Phone = profile.Phone
		member.Email = profile.Email
		member.ImageURL = profile.ImageURL
	}

	created, err := s.memberRepo.Create(ctx, member)
	if err != nil {
		return domain.Member{}, fmt.Errorf("failed to synthesize member: %w", err)
	}

	s.log.Infow("Member synthesized from billing event",
		"memberID", created.ID, "customerID", customerID)
	return created, nil
}

// upsertEventSubscription сохраняет запись подписки из события
func (s *lifecycleService) upsertEventSubscription(ctx context.Context, member domain.Member, sub domain.BillingSubscription, event domain.BillingEvent) (domain.Subscription, error) {
	record := billingSubscriptionToRecord(member.ID, sub)

	// Статус события перекрывает статус из блока данных
	switch event.Type {
	case domain.BillingEventSubscriptionPaused:
		record.Status = domain.SubscriptionStatusPaused
	case domain.BillingEventSubscriptionResumed:
		record.Status = domain.SubscriptionStatusActive
		record.PausedAt = nil
		record.ResumeAt = nil
	case domain.BillingEventSubscriptionCancelled:
		record.Status = domain.SubscriptionStatusCancelled
	case domain.BillingEventSubscriptionExpired:
		record.Status = domain.SubscriptionStatusExpired
	case domain.BillingEventSubscriptionTransferred:
		record.Status = domain.SubscriptionStatusTransferred
		transferredAt := event.CreatedAt
		record.TransferredAt = &transferredAt
	}

	upserted, err := s.subscriptionRepo.Upsert(ctx, record)
	if err != nil {
		return domain.Subscription{}, fmt.Errorf("failed to upsert subscription: %w", err)
	}

	return upserted, nil
}

// applyEventToMember применяет правила условного обновления окна участника
func (s *lifecycleService) applyEventToMember(ctx context.Context, member domain.Member, sub domain.Subscription, event domain.BillingEvent) error {
	today := timezone.DateOnly(s.now())
	wctx := domain.WindowContext{
		Now:            s.now(),
		AlreadyStopped: member.IsStopped,
	}

	switch event.Type {
	case domain.BillingEventSubscriptionCreated:
		// Только upsert; пересчет как путь восстановления, когда текущее
		// окно участника не совпадает ни с одной известной подпиской
		matches, err := s.windowMatchesAnySubscription(ctx, member)
		if err != nil {
			return err
		}
		if !matches {
			return s.recompute(ctx, member, wctx, string(event.Type))
		}
		return nil

	case domain.BillingEventSubscriptionActivated:
		if sub.Status == domain.SubscriptionStatusActive && sub.ContainsDate(today) {
			return s.recompute(ctx, member, wctx, string(event.Type))
		}
		if sub.Status == domain.SubscriptionStatusStartingSoon &&
			timezone.DateOnly(sub.StartDate).After(today) &&
			!member.WindowContains(today) {
			return s.recompute(ctx, member, wctx, string(event.Type))
		}
		return nil

	case domain.BillingEventSubscriptionPaused,
		domain.BillingEventSubscriptionResumed,
		domain.BillingEventSubscriptionCancelled,
		domain.BillingEventSubscriptionExpired:
		// Окно участника меняется только если событие касается его текущей
		// подписки; исторические подписки не должны затирать состояние
		if !s.isCurrentSubscription(member, sub) {
			return nil
		}
		return s.recompute(ctx, member, wctx, string(event.Type))

	case domain.BillingEventSubscriptionTransferred:
		wctx.Transferred = true
		return s.recompute(ctx, member, wctx, string(event.Type))
	}

	return nil
}

// isCurrentSubscription сообщает, совпадают ли даты подписки с текущим
// записанным окном участника
func (s *lifecycleService) isCurrentSubscription(member domain.Member, sub domain.Subscription) bool {
	if member.SubscriptionStartDate == nil || member.SubscriptionEndDate == nil {
		return false
	}
	start := timezone.DateOnly(*member.SubscriptionStartDate)
	end := timezone.DateOnly(*member.SubscriptionEndDate)
	if start.Equal(timezone.DateOnly(sub.StartDate)) && end.Equal(timezone.DateOnly(sub.EndDate)) {
		return true
	}
	// Пауза могла продлить записанное окно относительно дат подписки
	if member.IsPaused && start.Equal(timezone.DateOnly(sub.StartDate)) && !end.Before(timezone.DateOnly(sub.EndDate)) {
		return true
	}
	return false
}

// windowMatchesAnySubscription сообщает, совпадает ли текущее окно участника
// хотя бы с одной известной подпиской
func (s *lifecycleService) windowMatchesAnySubscription(ctx context.Context, member domain.Member) (bool, error) {
	if member.SubscriptionStartDate == nil || member.SubscriptionEndDate == nil {
		return false, nil
	}

	subs, err := s.subscriptionRepo.GetByMemberID(ctx, member.ID)
	if err != nil {
		return false, fmt.Errorf("failed to load subscriptions: %w", err)
	}

	for i := range subs {
		if s.isCurrentSubscription(member, subs[i]) {
			return true, nil
		}
	}

	return false, nil
}

// recompute загружает все подписки участника, выбирает текущее окно чистой
// функцией и сохраняет результат вместе с записью аудита
func (s *lifecycleService) recompute(ctx context.Context, member domain.Member, wctx domain.WindowContext, eventName string) error {
	subs, err := s.subscriptionRepo.GetByMemberID(ctx, member.ID)
	if err != nil {
		return fmt.Errorf("failed to load subscriptions: %w", err)
	}

	decision := domain.SelectCurrentWindow(subs, wctx)
	s.applyDecision(&member, decision, wctx.Now)

	entry := domain.SubscriptionHistory{
		ID:          uuid.New(),
		MemberID:    member.ID,
		Event:       eventName,
		WindowStart: member.SubscriptionStartDate,
		WindowEnd:   member.SubscriptionEndDate,
		OccurredAt:  wctx.Now,
	}
	if decision.Subscription != nil {
		subID := decision.Subscription.ID
		entry.SubscriptionID = &subID
	}
	if decision.Kind == domain.WindowStopped {
		entry.Note = decision.StopReason
	}

	if err := s.memberRepo.UpdateWithHistory(ctx, member, []domain.SubscriptionHistory{entry}); err != nil {
		return fmt.Errorf("failed to persist member window: %w", err)
	}

	if decision.Kind == domain.WindowPaused {
		if err := s.ensurePauseRecord(ctx, member, decision); err != nil {
			return err
		}
	} else if err := s.retirePauseRecord(ctx, member, wctx.Now); err != nil {
		return err
	}

	s.metrics.IncWindowRecompute(windowKindName(decision.Kind))
	s.publishWindowChange(ctx, member, decision)
	return nil
}

// applyDecision разворачивает вариант решения в поля записи участника
func (s *lifecycleService) applyDecision(member *domain.Member, decision domain.WindowDecision, now time.Time) {
	switch decision.Kind {
	case domain.WindowActive, domain.WindowUpcoming:
		member.SetWindow(decision.Start, decision.End)
		member.ClearPause()
		member.ClearStop()

	case domain.WindowPaused:
		member.SetWindow(decision.Start, decision.End)
		member.ApplyPause(decision.PauseStart, decision.PauseEnd)

	case domain.WindowStopped:
		if decision.Subscription != nil {
			member.SetWindow(decision.Start, decision.End)
		}
		member.ApplyStop(decision.StopReason, now, false)

	case domain.WindowNone:
		// Историческое окно сохраняется; флаги снимаются, если участник
		// не был остановлен вручную или по предупреждениям
		if !decision.PreserveStopped {
			member.ClearStop()
		}
		member.ClearPause()
	}
}

// ensurePauseRecord гарантирует активную запись паузы для участника на паузе
func (s *lifecycleService) ensurePauseRecord(ctx context.Context, member domain.Member, decision domain.WindowDecision) error {
	_, err := s.pauseRepo.GetActiveByMemberID(ctx, member.ID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to load active pause record: %w", err)
	}

	record := domain.PauseRecord{
		ID:         uuid.New(),
		MemberID:   member.ID,
		PauseStart: decision.PauseStart,
		PauseDays:  decision.PauseDays,
		PauseEnd:   decision.PauseEnd,
		Reason:     "billing pause",
		CreatedBy:  "system",
		IsActive:   true,
	}

	if _, err := s.pauseRepo.ApplyPause(ctx, member, record); err != nil {
		return fmt.Errorf("failed to create pause record: %w", err)
	}

	return nil
}

// retirePauseRecord деактивирует активную запись паузы, когда пересчет вывел
// участника из паузы. Число дней паузы переписывается на фактически
// использованные, чтобы поздние ручные паузы не упирались в висящую запись
func (s *lifecycleService) retirePauseRecord(ctx context.Context, member domain.Member, now time.Time) error {
	record, err := s.pauseRepo.GetActiveByMemberID(ctx, member.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to load active pause record: %w", err)
	}

	resume := timezone.DateOnly(now)
	record.PauseDays = record.UsedPauseDays(resume)
	record.PauseEnd = resume
	if resume.Before(timezone.DateOnly(record.PauseStart)) {
		record.PauseEnd = timezone.DateOnly(record.PauseStart)
	}
	record.IsActive = false

	if err := s.pauseRepo.ApplyUnpause(ctx, member, record); err != nil {
		return fmt.Errorf("failed to retire pause record: %w", err)
	}

	return nil
}

// publishWindowChange публикует событие изменения окна в Kafka.
// Сбой публикации не роняет обработку: событие уже сохранено.
func (s *lifecycleService) publishWindowChange(ctx context.Context, member domain.Member, decision domain.WindowDecision) {
	var err error
	if decision.Kind == domain.WindowStopped {
		err = s.producer.PublishMemberStopped(ctx, member)
	} else {
		err = s.producer.PublishWindowUpdated(ctx, member)
	}
	if err != nil {
		s.log.Errorw("Failed to publish member window event", "error", err, "memberID", member.ID)
	}
}

// windowKindName имя варианта решения для метрик
func windowKindName(kind domain.WindowKind) string {
	switch kind {
	case domain.WindowActive:
		return "active"
	case domain.WindowUpcoming:
		return "upcoming"
	case domain.WindowPaused:
		return "paused"
	case domain.WindowStopped:
		return "stopped"
	default:
		return "none"
	}
}

// normalizeBillingSubscription приводит все временные поля блока данных
// биллинга к календарным датам (правило 21:00 включительно)
func normalizeBillingSubscription(sub domain.BillingSubscription) domain.BillingSubscription {
	sub.StartDate = timezone.NormalizeBillingTime(sub.StartDate)
	sub.EndDate = timezone.NormalizeBillingTime(sub.EndDate)
	if sub.PausedAt != nil {
		normalized := timezone.NormalizeBillingTime(*sub.PausedAt)
		sub.PausedAt = &normalized
	}
	if sub.ResumeAt != nil {
		normalized := timezone.NormalizeBillingTime(*sub.ResumeAt)
		sub.ResumeAt = &normalized
	}
	return sub
}

// billingSubscriptionToRecord строит запись подписки из блока данных биллинга
func billingSubscriptionToRecord(memberID uuid.UUID, sub domain.BillingSubscription) domain.Subscription {
	return domain.Subscription{
		MemberID:       memberID,
		ExternalID:     sub.ExternalID,
		Status:         sub.Status,
		StartDate:      sub.StartDate,
		EndDate:        sub.EndDate,
		PausedAt:       sub.PausedAt,
		ResumeAt:       sub.ResumeAt,
		PaidAmount:     sub.PaidAmount,
		TotalAmount:    sub.TotalAmount,
		Discount:       sub.Discount,
		Code:           sub.Code,
		Name:           sub.Name,
		TransferTarget: sub.TransferTarget,
	}
}
