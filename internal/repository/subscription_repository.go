package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/padelpoint/access-service/internal/domain"
	"github.com/padelpoint/access-service/pkg/logger"
)

// InMemorySubscriptionRepository реализация репозитория подписок в памяти
type InMemorySubscriptionRepository struct {
	subscriptions map[uuid.UUID]domain.Subscription
	mutex         sync.RWMutex
	log           *logger.Logger
}

// NewInMemorySubscriptionRepository создает новый репозиторий подписок в памяти
func NewInMemorySubscriptionRepository(log *logger.Logger) *InMemorySubscriptionRepository {
	return &InMemorySubscriptionRepository{
		subscriptions: make(map[uuid.UUID]domain.Subscription),
		log:           log,
	}
}

// GetByMemberID возвращает все подписки участника
func (r *InMemorySubscriptionRepository) GetByMemberID(ctx context.Context, memberID uuid.UUID) ([]domain.Subscription, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var subscriptions []domain.Subscription
	for _, subscription := range r.subscriptions {
		if subscription.MemberID == memberID {
			subscriptions = append(subscriptions, subscription)
		}
	}

	return subscriptions, nil
}

// GetByExternalID возвращает подписку по внешнему ID биллинга
func (r *InMemorySubscriptionRepository) GetByExternalID(ctx context.Context, externalID string) (domain.Subscription, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, subscription := range r.subscriptions {
		if subscription.ExternalID == externalID {
			return subscription, nil
		}
	}

	return domain.Subscription{}, ErrNotFound
}

// Upsert создает или обновляет подписку по внешнему ID биллинга.
// Подписки никогда не удаляются: это исторические записи.
func (r *InMemorySubscriptionRepository) Upsert(ctx context.Context, subscription domain.Subscription) (domain.Subscription, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for id, existing := range r.subscriptions {
		if existing.ExternalID == subscription.ExternalID {
			subscription.ID = id
			subscription.CreatedAt = existing.CreatedAt
			subscription.UpdatedAt = time.Now()
			r.subscriptions[id] = subscription
			return subscription, nil
		}
	}

	if subscription.ID == uuid.Nil {
		subscription.ID = uuid.New()
	}
	subscription.CreatedAt = time.Now()
	subscription.UpdatedAt = time.Now()
	r.subscriptions[subscription.ID] = subscription

	return subscription, nil
}

// PostgresSubscriptionRepository реализация репозитория подписок через PostgreSQL
type PostgresSubscriptionRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewPostgresSubscriptionRepository создает новый репозиторий подписок через PostgreSQL
func NewPostgresSubscriptionRepository(db *pgxpool.Pool, log *logger.Logger) *PostgresSubscriptionRepository {
	return &PostgresSubscriptionRepository{
		db:  db,
		log: log,
	}
}

const subscriptionColumns = `
	id, member_id, external_id, status, start_date, end_date,
	paused_at, resume_at, paid_amount, total_amount, discount,
	code, name, transfer_target, transferred_at, created_at, updated_at
`

// scanSubscription читает строку подписки
func scanSubscription(row pgx.Row) (domain.Subscription, error) {
	var s domain.Subscription
	var status string
	err := row.Scan(
		&s.ID,
		&s.MemberID,
		&s.ExternalID,
		&status,
		&s.StartDate,
		&s.EndDate,
		&s.PausedAt,
		&s.ResumeAt,
		&s.PaidAmount,
		&s.TotalAmount,
		&s.Discount,
		&s.Code,
		&s.Name,
		&s.TransferTarget,
		&s.TransferredAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Subscription{}, ErrNotFound
		}
		return domain.Subscription{}, fmt.Errorf("failed to scan subscription: %w", err)
	}
	s.Status = domain.ParseSubscriptionStatus(status)
	return s, nil
}

// GetByMemberID возвращает все подписки участника из базы данных
func (r *PostgresSubscriptionRepository) GetByMemberID(ctx context.Context, memberID uuid.UUID) ([]domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE member_id = $1 ORDER BY start_date DESC`

	rows, err := r.db.Query(ctx, query, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	defer rows.Close()

	var subscriptions []domain.Subscription
	for rows.Next() {
		subscription, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subscriptions = append(subscriptions, subscription)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subscriptions: %w", err)
	}

	return subscriptions, nil
}

// GetByExternalID возвращает подписку по внешнему ID биллинга
func (r *PostgresSubscriptionRepository) GetByExternalID(ctx context.Context, externalID string) (domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE external_id = $1`
	return scanSubscription(r.db.QueryRow(ctx, query, externalID))
}

// Upsert создает или обновляет подписку по внешнему ID биллинга
func (r *PostgresSubscriptionRepository) Upsert(ctx context.Context, subscription domain.Subscription) (domain.Subscription, error) {
	query := `
		INSERT INTO subscriptions (
			id, member_id, external_id, status, start_date, end_date,
			paused_at, resume_at, paid_amount, total_amount, discount,
			code, name, transfer_target, transferred_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17
		)
		ON CONFLICT (external_id) DO UPDATE SET
			member_id = EXCLUDED.member_id,
			status = EXCLUDED.status,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			paused_at = EXCLUDED.paused_at,
			resume_at = EXCLUDED.resume_at,
			paid_amount = EXCLUDED.paid_amount,
			total_amount = EXCLUDED.total_amount,
			discount = EXCLUDED.discount,
			code = EXCLUDED.code,
			name = EXCLUDED.name,
			transfer_target = EXCLUDED.transfer_target,
			transferred_at = EXCLUDED.transferred_at,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, updated_at
	`

	if subscription.ID == uuid.Nil {
		subscription.ID = uuid.New()
	}

	err := r.db.QueryRow(
		ctx,
		query,
		subscription.ID,
		subscription.MemberID,
		subscription.ExternalID,
		string(subscription.Status),
		subscription.StartDate,
		subscription.EndDate,
		subscription.PausedAt,
		subscription.ResumeAt,
		subscription.PaidAmount,
		subscription.TotalAmount,
		subscription.Discount,
		subscription.Code,
		subscription.Name,
		subscription.TransferTarget,
		subscription.TransferredAt,
		time.Now(),
		time.Now(),
	).Scan(&subscription.ID, &subscription.CreatedAt, &subscription.UpdatedAt)

	if err != nil {
		return domain.Subscription{}, fmt.Errorf("failed to upsert subscription: %w", err)
	}

	return subscription, nil
}
