package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/padelpoint/access-service/internal/domain"
	"github.com/padelpoint/access-service/pkg/logger"
)

// MemberRepository интерфейс репозитория участников, пригодный для кеширующей обертки
type MemberRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Member, error)
	GetByBillingCustomerID(ctx context.Context, customerID string) (domain.Member, error)
	FindByIdentifier(ctx context.Context, identifier string) (domain.Member, error)
	Create(ctx context.Context, member domain.Member) (domain.Member, error)
	Update(ctx context.Context, member domain.Member) error
	UpdateWithHistory(ctx context.Context, member domain.Member, entries []domain.SubscriptionHistory) error
}

// CachedMemberRepository реализует MemberRepository с кешированием.
// Кеш обслуживает горячий путь чек-ина: поиск участника по телефону или коду.
type CachedMemberRepository struct {
	repo  MemberRepository
	cache *RedisCacheRepository
	log   *logger.Logger
}

// NewCachedMemberRepository создает новый репозиторий участников с кешированием
func NewCachedMemberRepository(repo MemberRepository, cache *RedisCacheRepository, log *logger.Logger) *CachedMemberRepository {
	return &CachedMemberRepository{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

// GetByID возвращает участника по ID
func (r *CachedMemberRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Member, error) {
	return r.repo.GetByID(ctx, id)
}

// GetByBillingCustomerID возвращает участника по внешнему ID клиента биллинга
func (r *CachedMemberRepository) GetByBillingCustomerID(ctx context.Context, customerID string) (domain.Member, error) {
	return r.repo.GetByBillingCustomerID(ctx, customerID)
}

// FindByIdentifier возвращает участника по идентификатору (сначала из кеша, потом из БД)
func (r *CachedMemberRepository) FindByIdentifier(ctx context.Context, identifier string) (domain.Member, error) {
	cached, err := r.cache.GetCachedMemberByIdentifier(ctx, identifier)
	if err != nil {
		r.log.Warnw("Error getting member from cache", "error", err, "identifier", identifier)
		// Продолжаем выполнение при ошибке кеша
	}
	if cached != nil {
		r.log.Debugw("Member found in cache", "memberID", cached.ID)
		return *cached, nil
	}

	member, err := r.repo.FindByIdentifier(ctx, identifier)
	if err != nil {
		return domain.Member{}, err
	}

	if err := r.cache.CacheMember(ctx, &member); err != nil {
		r.log.Warnw("Failed to cache member after fetching", "error", err, "memberID", member.ID)
	}

	return member, nil
}

// Create создает участника и кеширует его
func (r *CachedMemberRepository) Create(ctx context.Context, member domain.Member) (domain.Member, error) {
	created, err := r.repo.Create(ctx, member)
	if err != nil {
		return domain.Member{}, err
	}

	if err := r.cache.CacheMember(ctx, &created); err != nil {
		r.log.Warnw("Failed to cache member after creation", "error", err, "memberID", created.ID)
	}

	return created, nil
}

// Update обновляет участника и инвалидирует его кеш
func (r *CachedMemberRepository) Update(ctx context.Context, member domain.Member) error {
	if err := r.repo.Update(ctx, member); err != nil {
		return err
	}

	if err := r.cache.InvalidateMember(ctx, &member); err != nil {
		r.log.Warnw("Failed to invalidate member cache", "error", err, "memberID", member.ID)
	}

	return nil
}

// UpdateWithHistory обновляет участника с аудитом и инвалидирует его кеш
func (r *CachedMemberRepository) UpdateWithHistory(ctx context.Context, member domain.Member, entries []domain.SubscriptionHistory) error {
	if err := r.repo.UpdateWithHistory(ctx, member, entries); err != nil {
		return err
	}

	if err := r.cache.InvalidateMember(ctx, &member); err != nil {
		r.log.Warnw("Failed to invalidate member cache", "error", err, "memberID", member.ID)
	}

	return nil
}
