package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/padelpoint/access-service/internal/domain"
	"github.com/padelpoint/access-service/pkg/logger"
)

// InMemoryMemberRepository реализация репозитория участников в памяти
type InMemoryMemberRepository struct {
	members map[uuid.UUID]domain.Member
	history []domain.SubscriptionHistory
	mutex   sync.RWMutex
	log     *logger.Logger
}

// NewInMemoryMemberRepository создает новый репозиторий участников в памяти
func NewInMemoryMemberRepository(log *logger.Logger) *InMemoryMemberRepository {
	return &InMemoryMemberRepository{
		members: make(map[uuid.UUID]domain.Member),
		log:     log,
	}
}

// GetByID возвращает участника по ID
func (r *InMemoryMemberRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Member, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	member, exists := r.members[id]
	if !exists {
		return domain.Member{}, ErrNotFound
	}

	return member, nil
}

// GetByBillingCustomerID возвращает участника по внешнему ID клиента биллинга
func (r *InMemoryMemberRepository) GetByBillingCustomerID(ctx context.Context, customerID string) (domain.Member, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, member := range r.members {
		if member.BillingCustomerID == customerID {
			return member, nil
		}
	}

	return domain.Member{}, ErrNotFound
}

// FindByIdentifier возвращает участника по номеру телефона или коду
func (r *InMemoryMemberRepository) FindByIdentifier(ctx context.Context, identifier string) (domain.Member, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	identifier = strings.TrimSpace(identifier)
	for _, member := range r.members {
		if member.Phone == identifier || (member.Code != "" && member.Code == identifier) {
			return member, nil
		}
	}

	return domain.Member{}, ErrNotFound
}

// Create создает нового участника
func (r *InMemoryMemberRepository) Create(ctx context.Context, member domain.Member) (domain.Member, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if member.ID == uuid.Nil {
		member.ID = uuid.New()
	}
	member.CreatedAt = time.Now()
	member.UpdatedAt = time.Now()

	r.members[member.ID] = member

	return member, nil
}

// Update обновляет существующего участника
func (r *InMemoryMemberRepository) Update(ctx context.Context, member domain.Member) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.members[member.ID]; !exists {
		return ErrNotFound
	}

	member.UpdatedAt = time.Now()
	r.members[member.ID] = member

	return nil
}

// UpdateWithHistory обновляет участника и дописывает записи аудита атомарно
func (r *InMemoryMemberRepository) UpdateWithHistory(ctx context.Context, member domain.Member, entries []domain.SubscriptionHistory) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.members[member.ID]; !exists {
		return ErrNotFound
	}

	member.UpdatedAt = time.Now()
	r.members[member.ID] = member

	for _, entry := range entries {
		if entry.ID == uuid.Nil {
			entry.ID = uuid.New()
		}
		r.history = append(r.history, entry)
	}

	return nil
}

// History возвращает накопленные записи аудита (для тестов)
func (r *InMemoryMemberRepository) History() []domain.SubscriptionHistory {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	out := make([]domain.SubscriptionHistory, len(r.history))
	copy(out, r.history)
	return out
}

// PostgresMemberRepository реализация репозитория участников через PostgreSQL
type PostgresMemberRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewPostgresMemberRepository создает новый репозиторий участников через PostgreSQL
func NewPostgresMemberRepository(db *pgxpool.Pool, log *logger.Logger) *PostgresMemberRepository {
	return &PostgresMemberRepository{
		db:  db,
		log: log,
	}
}

const memberColumns = `
	id, full_name, phone, email, code, image_url, billing_customer_id,
	subscription_start_date, subscription_end_date,
	is_paused, current_pause_start_date, current_pause_end_date,
	is_stopped, stopped_date, stop_reason, is_stopped_by_warning, warning_count,
	created_at, updated_at
`

// scanMember читает строку участника
func scanMember(row pgx.Row) (domain.Member, error) {
	var member domain.Member
	err := row.Scan(
		&member.ID,
		&member.FullName,
		&member.Phone,
		&member.Email,
		&member.Code,
		&member.ImageURL,
		&member.BillingCustomerID,
		&member.SubscriptionStartDate,
		&member.SubscriptionEndDate,
		&member.IsPaused,
		&member.CurrentPauseStartDate,
		&member.CurrentPauseEndDate,
		&member.IsStopped,
		&member.StoppedDate,
		&member.StopReason,
		&member.IsStoppedByWarning,
		&member.WarningCount,
		&member.CreatedAt,
		&member.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Member{}, ErrNotFound
		}
		return domain.Member{}, fmt.Errorf("failed to scan member: %w", err)
	}
	return member, nil
}

// GetByID возвращает участника по ID из базы данных
func (r *PostgresMemberRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE id = $1`
	return scanMember(r.db.QueryRow(ctx, query, id))
}

// GetByBillingCustomerID возвращает участника по внешнему ID клиента биллинга
func (r *PostgresMemberRepository) GetByBillingCustomerID(ctx context.Context, customerID string) (domain.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE billing_customer_id = $1`
	return scanMember(r.db.QueryRow(ctx, query, customerID))
}

// FindByIdentifier возвращает участника по номеру телефона или коду
func (r *PostgresMemberRepository) FindByIdentifier(ctx context.Context, identifier string) (domain.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE phone = $1 OR (code <> '' AND code = $1)`
	return scanMember(r.db.QueryRow(ctx, query, strings.TrimSpace(identifier)))
}

// Create создает нового участника в базе данных
func (r *PostgresMemberRepository) Create(ctx context.Context, member domain.Member) (domain.Member, error) {
	query := `
		INSERT INTO members (
			id, full_name, phone, email, code, image_url, billing_customer_id,
			subscription_start_date, subscription_end_date,
			is_paused, current_pause_start_date, current_pause_end_date,
			is_stopped, stopped_date, stop_reason, is_stopped_by_warning, warning_count,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19
		)
		RETURNING id, created_at, updated_at
	`

	if member.ID == uuid.Nil {
		member.ID = uuid.New()
	}

	err := r.db.QueryRow(
		ctx,
		query,
		member.ID,
		member.FullName,
		member.Phone,
		member.Email,
		member.Code,
		member.ImageURL,
		member.BillingCustomerID,
		member.SubscriptionStartDate,
		member.SubscriptionEndDate,
		member.IsPaused,
		member.CurrentPauseStartDate,
		member.CurrentPauseEndDate,
		member.IsStopped,
		member.StoppedDate,
		member.StopReason,
		member.IsStoppedByWarning,
		member.WarningCount,
		time.Now(),
		time.Now(),
	).Scan(&member.ID, &member.CreatedAt, &member.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.Member{}, ErrDuplicate
		}
		return domain.Member{}, fmt.Errorf("failed to create member: %w", err)
	}

	return member, nil
}

const updateMemberQuery = `
	UPDATE members
	SET
		full_name = $1,
		phone = $2,
		email = $3,
		code = $4,
		image_url = $5,
		billing_customer_id = $6,
		subscription_start_date = $7,
		subscription_end_date = $8,
		is_paused = $9,
		current_pause_start_date = $10,
		current_pause_end_date = $11,
		is_stopped = $12,
		stopped_date = $13,
		stop_reason = $14,
		is_stopped_by_warning = $15,
		warning_count = $16,
		updated_at = $17
	WHERE id = $18
`

// memberUpdateArgs собирает аргументы запроса обновления участника
func memberUpdateArgs(member domain.Member) []interface{} {
	return []interface{}{
		member.FullName,
		member.Phone,
		member.Email,
		member.Code,
		member.ImageURL,
		member.BillingCustomerID,
		member.SubscriptionStartDate,
		member.SubscriptionEndDate,
		member.IsPaused,
		member.CurrentPauseStartDate,
		member.CurrentPauseEndDate,
		member.IsStopped,
		member.StoppedDate,
		member.StopReason,
		member.IsStoppedByWarning,
		member.WarningCount,
		time.Now(),
		member.ID,
	}
}

// Update обновляет существующего участника в базе данных
func (r *PostgresMemberRepository) Update(ctx context.Context, member domain.Member) error {
	result, err := r.db.Exec(ctx, updateMemberQuery, memberUpdateArgs(member)...)
	if err != nil {
		return fmt.Errorf("failed to update member: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// UpdateWithHistory обновляет участника и дописывает записи аудита в одной транзакции
func (r *PostgresMemberRepository) UpdateWithHistory(ctx context.Context, member domain.Member, entries []domain.SubscriptionHistory) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx, updateMemberQuery, memberUpdateArgs(member)...)
	if err != nil {
		return fmt.Errorf("failed to update member: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	historyQuery := `
		INSERT INTO subscription_history (
			id, member_id, subscription_id, event, window_start, window_end, note, occurred_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	for _, entry := range entries {
		if entry.ID == uuid.Nil {
			entry.ID = uuid.New()
		}
		_, err := tx.Exec(ctx, historyQuery,
			entry.ID,
			entry.MemberID,
			entry.SubscriptionID,
			entry.Event,
			entry.WindowStart,
			entry.WindowEnd,
			entry.Note,
			entry.OccurredAt,
		)
		if err != nil {
			return fmt.Errorf("failed to append subscription history: %w", err)
		}
	}

	return tx.Commit(ctx)
}
